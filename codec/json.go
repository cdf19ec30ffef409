package codec

import (
	"encoding/json"
)

// JSON is the standard-library JSON codec: the most portable, lowest
// dependency option. Framed snapshots are self-describing, so data written
// with JSON always reopens with JSON regardless of the library default.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }

// Default is the default codec used for newly written snapshots.
var Default Codec = GoJSON{}
