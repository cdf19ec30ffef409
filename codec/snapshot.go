package codec

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/multicardz/cardgrid/resource"
	"github.com/multicardz/cardgrid/universe"
)

// Framed snapshot layout:
//
//	[0:4]   magic "MCS1"
//	[4:6]   format version
//	[6:8]   codec name length
//	[8:10]  compression name length
//	[10:18] payload length
//	        codec name
//	        compression name
//	        payload (compressed, codec-marshaled universe.Doc)
//	[-4:]   CRC32-Castagnoli over everything before it
var snapshotMagic = [4]byte{'M', 'C', 'S', '1'}

const snapshotFormatVersion = uint16(1)

// crc32cTable is pre-computed for the Castagnoli polynomial, which is
// hardware accelerated on x86 and ARM.
var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// Compression names a payload compression scheme.
type Compression string

const (
	// CompressionNone stores the payload uncompressed.
	CompressionNone Compression = "none"
	// CompressionZstd compresses with klauspost zstd.
	CompressionZstd Compression = "zstd"
	// CompressionLZ4 compresses with lz4 frames.
	CompressionLZ4 Compression = "lz4"
)

// SnapshotOptions configures snapshot framing.
type SnapshotOptions struct {
	// Codec marshals the document. Defaults to codec.Default.
	Codec Codec
	// Compression wraps the payload. Defaults to CompressionZstd.
	Compression Compression
	// Controller, if set, rate-limits the frame write so a background
	// export does not saturate the writer.
	Controller *resource.Controller
}

// SnapshotOption mutates SnapshotOptions.
type SnapshotOption func(*SnapshotOptions)

// WithCodec selects the payload codec.
func WithCodec(c Codec) SnapshotOption {
	return func(o *SnapshotOptions) {
		if c == nil {
			c = Default
		}
		o.Codec = c
	}
}

// WithCompression selects the payload compression.
func WithCompression(c Compression) SnapshotOption {
	return func(o *SnapshotOptions) { o.Compression = c }
}

// WithController attaches a resource controller whose write limiter paces
// the frame write.
func WithController(rc *resource.Controller) SnapshotOption {
	return func(o *SnapshotOptions) { o.Controller = rc }
}

// WriteSnapshot frames doc onto w.
func WriteSnapshot(ctx context.Context, w io.Writer, doc universe.Doc, optFns ...SnapshotOption) error {
	if w == nil {
		return fmt.Errorf("snapshot: writer is nil")
	}
	opts := SnapshotOptions{Codec: Default, Compression: CompressionZstd}
	for _, fn := range optFns {
		fn(&opts)
	}

	payload, err := opts.Codec.Marshal(doc)
	if err != nil {
		return fmt.Errorf("snapshot: marshal: %w", err)
	}
	payload, err = compress(payload, opts.Compression)
	if err != nil {
		return err
	}

	codecName := opts.Codec.Name()
	compName := string(opts.Compression)

	var buf bytes.Buffer
	buf.Grow(18 + len(codecName) + len(compName) + len(payload) + 4)
	buf.Write(snapshotMagic[:])
	var u16 [2]byte
	binary.LittleEndian.PutUint16(u16[:], snapshotFormatVersion)
	buf.Write(u16[:])
	binary.LittleEndian.PutUint16(u16[:], uint16(len(codecName)))
	buf.Write(u16[:])
	binary.LittleEndian.PutUint16(u16[:], uint16(len(compName)))
	buf.Write(u16[:])
	var u64 [8]byte
	binary.LittleEndian.PutUint64(u64[:], uint64(len(payload)))
	buf.Write(u64[:])
	buf.WriteString(codecName)
	buf.WriteString(compName)
	buf.Write(payload)

	var crc [4]byte
	binary.LittleEndian.PutUint32(crc[:], crc32.Checksum(buf.Bytes(), crc32cTable))
	buf.Write(crc[:])

	return writePaced(ctx, w, buf.Bytes(), opts.Controller)
}

// ReadSnapshot parses a framed snapshot from r, verifying the checksum
// before decoding.
func ReadSnapshot(r io.Reader) (universe.Doc, error) {
	var doc universe.Doc
	raw, err := io.ReadAll(r)
	if err != nil {
		return doc, fmt.Errorf("snapshot: read: %w", err)
	}
	if len(raw) < 22 {
		return doc, fmt.Errorf("snapshot: truncated frame (%d bytes)", len(raw))
	}

	body, tail := raw[:len(raw)-4], raw[len(raw)-4:]
	if got, want := crc32.Checksum(body, crc32cTable), binary.LittleEndian.Uint32(tail); got != want {
		return doc, fmt.Errorf("snapshot: checksum mismatch: got %08x, want %08x", got, want)
	}

	if !bytes.Equal(body[0:4], snapshotMagic[:]) {
		return doc, fmt.Errorf("snapshot: bad magic %q", body[0:4])
	}
	if v := binary.LittleEndian.Uint16(body[4:6]); v != snapshotFormatVersion {
		return doc, fmt.Errorf("snapshot: unsupported format version %d", v)
	}
	codecLen := int(binary.LittleEndian.Uint16(body[6:8]))
	compLen := int(binary.LittleEndian.Uint16(body[8:10]))
	payloadLen := binary.LittleEndian.Uint64(body[10:18])

	rest := body[18:]
	if len(rest) < codecLen+compLen {
		return doc, fmt.Errorf("snapshot: truncated header names")
	}
	codecName := string(rest[:codecLen])
	compName := string(rest[codecLen : codecLen+compLen])
	payload := rest[codecLen+compLen:]
	if uint64(len(payload)) != payloadLen {
		return doc, fmt.Errorf("snapshot: payload length mismatch: got %d, want %d", len(payload), payloadLen)
	}

	c, ok := ByName(codecName)
	if !ok {
		return doc, fmt.Errorf("snapshot: unknown codec %q", codecName)
	}
	payload, err = decompress(payload, Compression(compName))
	if err != nil {
		return doc, err
	}
	if err := c.Unmarshal(payload, &doc); err != nil {
		return doc, fmt.Errorf("snapshot: unmarshal: %w", err)
	}
	return doc, nil
}

func compress(payload []byte, comp Compression) ([]byte, error) {
	switch comp {
	case CompressionNone, "":
		return payload, nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("snapshot: zstd: %w", err)
		}
		out := enc.EncodeAll(payload, nil)
		_ = enc.Close()
		return out, nil
	case CompressionLZ4:
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if _, err := zw.Write(payload); err != nil {
			return nil, fmt.Errorf("snapshot: lz4: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("snapshot: lz4: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("snapshot: unknown compression %q", comp)
	}
}

func decompress(payload []byte, comp Compression) ([]byte, error) {
	switch comp {
	case CompressionNone, "":
		return payload, nil
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("snapshot: zstd: %w", err)
		}
		defer dec.Close()
		out, err := dec.DecodeAll(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("snapshot: zstd: %w", err)
		}
		return out, nil
	case CompressionLZ4:
		out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(payload)))
		if err != nil {
			return nil, fmt.Errorf("snapshot: lz4: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("snapshot: unknown compression %q", comp)
	}
}

// writePaced writes b through the controller's write limiter in bounded
// chunks, so a throttled export yields between chunks.
func writePaced(ctx context.Context, w io.Writer, b []byte, rc *resource.Controller) error {
	const chunk = 256 << 10
	for len(b) > 0 {
		n := len(b)
		if n > chunk {
			n = chunk
		}
		if err := rc.WaitWrite(ctx, n); err != nil {
			return fmt.Errorf("snapshot: write paced: %w", err)
		}
		if _, err := w.Write(b[:n]); err != nil {
			return fmt.Errorf("snapshot: write: %w", err)
		}
		b = b[n:]
	}
	return nil
}
