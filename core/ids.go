package core

// CardKey is the opaque, stable identifier of a card. It is assigned by the
// persistence collaborator and never interpreted by this library.
type CardKey string

// LocalID is a dense, internal identifier for a card within a single
// universe generation. It is strictly 32-bit and indexes directly into
// bitmap space and the snapshot's card slice.
//
// LocalIDs are assigned once per generation and never reused within it;
// the whole mapping is rebuilt when the generation changes.
type LocalID uint32

// MaxLocalID is the maximum possible value for a LocalID.
const MaxLocalID = ^LocalID(0)

// TagID is a dense, internal identifier for a tag name. TagIDs are assigned
// on first use and remain stable for the lifetime of the tag index.
type TagID uint32

// MaxTagID is the maximum possible value for a TagID.
const MaxTagID = ^TagID(0)
