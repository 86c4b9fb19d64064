package frame

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/unkn0wn-root/horse"
)

func mustEncode(t *testing.T, v horse.Version, payload []byte, o Options) []byte {
	t.Helper()
	b, err := Encode(v, payload, o)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	return b
}

func mustDecode(t *testing.T, b []byte) (Header, []byte) {
	t.Helper()
	h, p, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	return h, p
}

var compressible = []byte(strings.Repeat("horse horse horse ", 100))

func TestRoundTrip(t *testing.T) {
	cases := []struct {
		name     string
		payload  []byte
		opts     Options
		wantComp Compression
	}{
		{"empty", nil, Options{}, None},
		{"plain", []byte("hello"), Options{}, None},
		{"lz4", compressible, Options{Compression: LZ4}, LZ4},
		{"zstd", compressible, Options{Compression: Zstd}, Zstd},
		{"below threshold", []byte("tiny tiny tiny tiny"), Options{Compression: Zstd}, None},
		{"low threshold", []byte(strings.Repeat("ab", 40)), Options{Compression: LZ4, MinCompressSize: 1}, LZ4},
		{"incompressible", []byte{0x9a, 0x1f, 0x03, 0xee, 0x71, 0x42, 0xd0, 0x5b}, Options{Compression: Zstd, MinCompressSize: 1}, None},
	}
	v := horse.V(1, 2, 65535)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			enc := mustEncode(t, v, tc.payload, tc.opts)
			h, p := mustDecode(t, enc)
			if h.Version != v {
				t.Fatalf("version: got %s want %s", h.Version, v)
			}
			if h.Compression != tc.wantComp {
				t.Fatalf("compression: got %s want %s", h.Compression, tc.wantComp)
			}
			if h.RawLen != len(tc.payload) {
				t.Fatalf("raw len: got %d want %d", h.RawLen, len(tc.payload))
			}
			if !bytes.Equal(p, tc.payload) {
				t.Fatalf("payload mismatch: got %x want %x", p, tc.payload)
			}
			if tc.wantComp != None && len(enc) >= hdrLen+len(tc.payload) {
				t.Fatalf("compressed frame is not smaller: %d bytes", len(enc))
			}
		})
	}
}

func TestPeekReadsHeaderOnly(t *testing.T) {
	enc := mustEncode(t, horse.V(3, 0, 1), compressible, Options{Compression: Zstd})
	// flip a payload byte: Peek still succeeds, Decode does not
	enc[len(enc)-1] ^= 0xFF
	h, err := Peek(enc)
	if err != nil {
		t.Fatalf("Peek: %v", err)
	}
	if h.Version != horse.V(3, 0, 1) || h.Compression != Zstd {
		t.Fatalf("got %+v", h)
	}
	if _, _, err := Decode(enc); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestCorruptHeadersAndLengths(t *testing.T) {
	enc := mustEncode(t, horse.V(1, 0, 0), []byte("abc"), Options{})

	mutate := func(fn func(b []byte) []byte) []byte {
		return fn(append([]byte(nil), enc...))
	}
	cases := map[string][]byte{
		"bad magic":   mutate(func(b []byte) []byte { b[0] = 'X'; return b }),
		"bad version": mutate(func(b []byte) []byte { b[4] = version + 1; return b }),
		"bad comp":    mutate(func(b []byte) []byte { b[5] = 9; return b }),
		"raw len": mutate(func(b []byte) []byte {
			binary.BigEndian.PutUint32(b[12:16], 4)
			return b
		}),
		"payload len": mutate(func(b []byte) []byte {
			binary.BigEndian.PutUint32(b[hdrLen-4:hdrLen], 4)
			return b
		}),
		"checksum":  mutate(func(b []byte) []byte { b[16] ^= 1; return b }),
		"payload":   mutate(func(b []byte) []byte { b[len(b)-1] = 'z'; return b }),
		"trailing":  mutate(func(b []byte) []byte { return append(b, 0xDE, 0xAD) }),
		"truncated": enc[:len(enc)-1],
		"short":     enc[:hdrLen-1],
		"empty":     nil,
	}
	for name, b := range cases {
		if _, _, err := Decode(b); !errors.Is(err, ErrCorrupt) {
			t.Fatalf("%s: expected ErrCorrupt, got %v", name, err)
		}
	}
}

func TestCorruptCompressedBody(t *testing.T) {
	for _, c := range []Compression{LZ4, Zstd} {
		enc := mustEncode(t, horse.V(1, 0, 0), compressible, Options{Compression: c})
		// garble the start of the compressed body
		for i := hdrLen; i < hdrLen+4 && i < len(enc); i++ {
			enc[i] = 0xFF
		}
		if _, _, err := Decode(enc); !errors.Is(err, ErrCorrupt) {
			t.Fatalf("%s: expected ErrCorrupt, got %v", c, err)
		}
	}
}

func TestUncompressedPayloadAliasesInput(t *testing.T) {
	enc := mustEncode(t, horse.V(1, 0, 0), []byte("Z"), Options{})
	_, p := mustDecode(t, enc)
	p[0] = 'Q'
	if enc[len(enc)-1] != 'Q' {
		t.Fatalf("expected payload to share the frame buffer")
	}
}

func TestParseCompression(t *testing.T) {
	for _, c := range []Compression{None, LZ4, Zstd} {
		got, err := ParseCompression(c.String())
		if err != nil || got != c {
			t.Fatalf("ParseCompression(%q) = %v, %v", c.String(), got, err)
		}
	}
	if _, err := ParseCompression("gzip"); err == nil {
		t.Fatalf("expected error for gzip")
	}
}
