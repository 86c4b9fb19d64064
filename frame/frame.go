// Package frame wraps one encoded value with the metadata needed to read it
// back later: the schema version it was written at, how the payload is
// compressed, and a checksum of the uncompressed bytes.
//
//	magic(4) | ver(1) | comp(1) | major(u16) | minor(u16) | patch(u16) |
//	rawLen(u32) | sum(8) | plen(u32) | payload(plen)
//
// All integers are big-endian. sum is the first 8 bytes of the BLAKE3 digest
// of the uncompressed payload.
package frame

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/unkn0wn-root/horse"
)

const (
	version byte = 1
	sumLen       = 8
	hdrLen       = 4 + 1 + 1 + 6 + 4 + sumLen + 4

	// DefaultMinCompressSize is the smallest payload worth compressing.
	DefaultMinCompressSize = 256
	// MaxPayload bounds the uncompressed payload of a frame.
	MaxPayload = 1 << 30
)

var (
	ErrCorrupt = errors.New("horse/frame: corrupt frame")
	magic4     = [...]byte{'H', 'R', 'S', 'E'}
)

// Compression identifies the payload compression. The values are stored in
// frames and must not change.
type Compression uint8

const (
	None Compression = 0
	LZ4  Compression = 1
	Zstd Compression = 2
)

func (c Compression) String() string {
	switch c {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	}
	return fmt.Sprintf("unknown(%d)", uint8(c))
}

func ParseCompression(s string) (Compression, error) {
	switch s {
	case "none", "":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return Zstd, nil
	}
	return 0, fmt.Errorf("horse/frame: unknown compression %q", s)
}

// Options controls Encode. The zero value stores payloads uncompressed.
type Options struct {
	Compression Compression
	// MinCompressSize: payloads shorter than this are stored as is.
	// 0 => DefaultMinCompressSize.
	MinCompressSize int
}

// Header is the metadata of a frame.
type Header struct {
	Version     horse.Version
	Compression Compression
	RawLen      int
	Sum         [sumLen]byte
}

// Encode frames payload written at schema version v. Compression is skipped
// when the payload is small or does not shrink.
func Encode(v horse.Version, payload []byte, o Options) ([]byte, error) {
	if len(payload) > MaxPayload {
		return nil, fmt.Errorf("horse/frame: payload of %d bytes is too large", len(payload))
	}
	minSize := o.MinCompressSize
	if minSize <= 0 {
		minSize = DefaultMinCompressSize
	}

	comp, body := None, payload
	if o.Compression != None && len(payload) >= minSize {
		packed, err := compress(o.Compression, payload)
		switch {
		case errors.Is(err, errIncompressible):
		case err != nil:
			return nil, err
		default:
			comp, body = o.Compression, packed
		}
	}

	var buf bytes.Buffer
	buf.Grow(hdrLen + len(body))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(byte(comp))

	var u2 [2]byte
	var u4 [4]byte
	for _, part := range [...]uint16{v.Major, v.Minor, v.Patch} {
		binary.BigEndian.PutUint16(u2[:], part)
		buf.Write(u2[:])
	}

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	sum := checksum(payload)
	buf.Write(sum[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(body)))
	buf.Write(u4[:])

	buf.Write(body)
	return buf.Bytes(), nil
}

// Peek parses the header without touching the payload.
func Peek(b []byte) (Header, error) {
	h, _, err := split(b)
	return h, err
}

// Decode verifies a frame and returns its header and uncompressed payload.
// An uncompressed payload aliases b.
func Decode(b []byte) (Header, []byte, error) {
	h, body, err := split(b)
	if err != nil {
		return h, nil, err
	}
	payload, err := decompress(h.Compression, body, h.RawLen)
	if err != nil {
		return h, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if checksum(payload) != h.Sum {
		return h, nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}
	return h, payload, nil
}

// split checks the fixed header and returns the body it announces.
func split(b []byte) (Header, []byte, error) {
	var h Header
	if len(b) < hdrLen || !bytes.Equal(b[:4], magic4[:]) || b[4] != version {
		return h, nil, ErrCorrupt
	}
	h.Compression = Compression(b[5])
	if h.Compression > Zstd {
		return h, nil, fmt.Errorf("%w: %s compression", ErrCorrupt, h.Compression)
	}

	off := 6
	h.Version = horse.V(
		binary.BigEndian.Uint16(b[off:off+2]),
		binary.BigEndian.Uint16(b[off+2:off+4]),
		binary.BigEndian.Uint16(b[off+4:off+6]),
	)
	off += 6

	h.RawLen = int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if h.RawLen > MaxPayload {
		return h, nil, ErrCorrupt
	}

	copy(h.Sum[:], b[off:off+sumLen])
	off += sumLen

	plen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if plen != len(b)-off {
		return h, nil, ErrCorrupt
	}
	if h.Compression == None && plen != h.RawLen {
		return h, nil, ErrCorrupt
	}
	return h, b[off:], nil
}

func checksum(p []byte) [sumLen]byte {
	full := blake3.Sum256(p)
	var s [sumLen]byte
	copy(s[:], full[:sumLen])
	return s
}
