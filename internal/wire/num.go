package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Width is an integer width class. Classes are ordered so that class k has
// SIG_SMALL == k and SIG_LARGE == k+1 in the top three bits of the lead byte.
type Width uint8

const (
	W8 Width = iota
	W16
	W32
	W64
	W128
)

func (w Width) String() string {
	if int(w) < len(classes) {
		return fmt.Sprintf("%d-bit", classes[w].size*8)
	}
	return fmt.Sprintf("width(%d)", uint8(w))
}

// Size returns the byte width of the class.
func (w Width) Size() int { return classes[w].size }

// class is one row of the width table.
//
//	small: lead = sigSmall | 5 data bits, then `down` bytes
//	large: lead = sigLarge | fill, then `size` bytes
//
// fill is 0x1F for negative signed values and 0 otherwise, which makes a
// large encoding at class k bit-identical to a small encoding at class k+1.
type class struct {
	size     int
	down     int
	sigSmall byte
	sigLarge byte
}

var classes = [...]class{
	W8:   {size: 1, down: 0, sigSmall: 0 << 5, sigLarge: 1 << 5},
	W16:  {size: 2, down: 1, sigSmall: 1 << 5, sigLarge: 2 << 5},
	W32:  {size: 4, down: 2, sigSmall: 2 << 5, sigLarge: 3 << 5},
	W64:  {size: 8, down: 4, sigSmall: 3 << 5, sigLarge: 4 << 5},
	W128: {size: 16, down: 8, sigSmall: 4 << 5, sigLarge: 5 << 5},
}

const (
	sigMask  byte = 0xE0
	dataMask byte = 0x1F
	signBit  byte = 0x10
)

// Bits is an integer in big-endian two's complement, extended to 128 bits.
type Bits [16]byte

func Int64Bits(v int64) Bits {
	var b Bits
	binary.BigEndian.PutUint64(b[8:], uint64(v))
	if v < 0 {
		binary.BigEndian.PutUint64(b[:8], math.MaxUint64)
	}
	return b
}

func Uint64Bits(v uint64) Bits {
	var b Bits
	binary.BigEndian.PutUint64(b[8:], v)
	return b
}

func WordsBits(hi, lo uint64) Bits {
	var b Bits
	binary.BigEndian.PutUint64(b[:8], hi)
	binary.BigEndian.PutUint64(b[8:], lo)
	return b
}

// Words splits b into its high and low 64-bit halves.
func (b Bits) Words() (hi, lo uint64) {
	return binary.BigEndian.Uint64(b[:8]), binary.BigEndian.Uint64(b[8:])
}

func (b *Bits) negative() bool { return b[0]&0x80 != 0 }

// Fits reports whether b holds a value representable at width w.
func (b *Bits) Fits(w Width, signed bool) bool {
	n := classes[w].size
	var ext byte
	if signed && b.negative() {
		ext = 0xFF
	}
	if !allEqual(b[:16-n], ext) {
		return false
	}
	if signed {
		// the top bit of the kept bytes must agree with the extension
		return (b[16-n]&0x80 != 0) == (ext == 0xFF)
	}
	return true
}

// fitsSmall reports whether b lies in [SMALL_MIN, SMALL_MAX) of class c:
// unsigned [0, 2^(8*down+5)), signed [-2^(8*down+4), 2^(8*down+4)).
func (b *Bits) fitsSmall(c class, signed bool) bool {
	n := c.down + 1
	lead := b[16-n]
	if signed && b.negative() {
		return allEqual(b[:16-n], 0xFF) && lead&^(dataMask>>1) == 0xF0
	}
	if !allEqual(b[:16-n], 0) {
		return false
	}
	if signed {
		return lead&^(dataMask>>1) == 0
	}
	return lead&^dataMask == 0
}

func allEqual(p []byte, v byte) bool {
	for _, c := range p {
		if c != v {
			return false
		}
	}
	return true
}

// Narrowest returns the smallest width class whose range holds b.
func Narrowest(b Bits, w Width, signed bool) Width {
	for w > W8 && b.Fits(w-1, signed) {
		w--
	}
	return w
}

// AppendInt appends the variable-length encoding of b, declared at width w.
// b must be representable at w.
func AppendInt(dst []byte, b Bits, w Width, signed bool) []byte {
	c := classes[Narrowest(b, w, signed)]
	if b.fitsSmall(c, signed) {
		n := c.down + 1
		at := len(dst)
		dst = append(dst, b[16-n:]...)
		dst[at] = dst[at]&dataMask | c.sigSmall
		return dst
	}
	lead := c.sigLarge
	if signed && b.negative() {
		lead |= dataMask
	}
	dst = append(dst, lead)
	return append(dst, b[16-c.size:]...)
}

// decodeInt reads an integer of width w whose lead byte has already been
// consumed. more reads exactly n further bytes.
func decodeInt(lead byte, w Width, signed bool, more func(n int) ([]byte, error)) (Bits, error) {
	var b Bits
	c := classes[w]
	switch sig := lead & sigMask; {
	case sig == c.sigLarge:
		p, err := more(c.size)
		if err != nil {
			return b, err
		}
		copy(b[16-c.size:], p)
		if signed && p[0]&0x80 != 0 {
			fill(b[:16-c.size], 0xFF)
		}
		return b, nil

	case sig == c.sigSmall:
		n := c.down + 1
		b[16-n] = lead & dataMask
		if signed && lead&signBit != 0 {
			b[16-n] |= sigMask
			fill(b[:16-n], 0xFF)
		}
		if c.down > 0 {
			p, err := more(c.down)
			if err != nil {
				return b, err
			}
			copy(b[16-c.down:], p)
		}
		return b, nil

	case sig < c.sigSmall:
		// a narrower class; the lead byte is shared
		return decodeInt(lead, w-1, signed, more)

	default:
		return b, &IntCastError{Lead: lead, Want: w}
	}
}

func fill(p []byte, v byte) {
	for i := range p {
		p[i] = v
	}
}

// DecodeInt decodes one integer of width w from the front of p and returns
// the number of bytes consumed.
func DecodeInt(p []byte, w Width, signed bool) (Bits, int, error) {
	if len(p) == 0 {
		return Bits{}, 0, ErrUnexpectedEOF
	}
	r := bytes.NewReader(p[1:])
	s := source{r: r}
	b, err := decodeInt(p[0], w, signed, s.readFull)
	if err != nil {
		return b, 0, err
	}
	return b, len(p) - r.Len(), nil
}
