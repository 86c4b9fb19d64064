package horse

import (
	"errors"
	"fmt"
	"math"

	"github.com/unkn0wn-root/horse/internal/wire"
)

// Visitor receives one callback per wire shape from Deserializer.Visit.
// Container callbacks read their children through the accessor (or the
// Deserializer); children left unread are skipped afterwards.
type Visitor interface {
	VisitNull() error
	VisitBool(v bool) error
	// VisitInt receives i8..i64; t is the exact tag.
	VisitInt(t Type, v int64) error
	// VisitUint receives u8..u64; t is the exact tag.
	VisitUint(t Type, v uint64) error
	VisitInt128(v Int128) error
	VisitUint128(v Uint128) error
	VisitFloat32(v float32) error
	VisitFloat64(v float64) error
	VisitChar(r rune) error
	VisitBytes(p []byte) error
	VisitNone() error
	// VisitSome is called with the cursor on the payload.
	VisitSome(d *Deserializer) error
	VisitSeq(s *SeqAccess) error
	VisitMap(m *MapAccess) error
	// VisitPair is called with the cursor on the first of two values.
	VisitPair(d *Deserializer) error
}

var errOverread = errors.New("horse: visitor read past the end of its value")

// Visit consumes one value and reports it to v.
func (d *Deserializer) Visit(v Visitor) error {
	start := d.pos
	t, err := d.next()
	if err != nil {
		return err
	}
	switch t.Type {
	case TypeNull:
		return v.VisitNull()
	case TypeFalse, TypeTrue:
		return v.VisitBool(t.Type == TypeTrue)
	case TypeI8, TypeI16, TypeI32, TypeI64:
		return v.VisitInt(t.Type, int64(t.Lo))
	case TypeU8, TypeU16, TypeU32, TypeU64:
		return v.VisitUint(t.Type, t.Lo)
	case TypeI128:
		return v.VisitInt128(Int128{Hi: int64(t.Hi), Lo: t.Lo})
	case TypeU128:
		return v.VisitUint128(Uint128{Hi: t.Hi, Lo: t.Lo})
	case TypeF32:
		return v.VisitFloat32(math.Float32frombits(uint32(t.Lo)))
	case TypeF64:
		return v.VisitFloat64(math.Float64frombits(t.Lo))
	case TypeChar:
		return v.VisitChar(rune(t.Lo))
	case TypeBin:
		return v.VisitBytes(t.Bin)
	case TypeOptNone:
		return v.VisitNone()
	case TypeOptSome:
		return d.within(start, func() error { return v.VisitSome(d) })
	case TypePair:
		return d.within(start, func() error { return v.VisitPair(d) })
	case TypeList:
		s := &SeqAccess{d: d, n: t.N, remaining: t.N}
		if err := v.VisitSeq(s); err != nil {
			return err
		}
		return s.Finish()
	case TypeDict:
		m := &MapAccess{d: d, n: t.N, remaining: t.N}
		if err := v.VisitMap(m); err != nil {
			return err
		}
		return m.Finish()
	}
	return &InvalidTypeError{Byte: byte(t.Type)}
}

// within runs fn and then places the cursor just past the value that starts
// at start, skipping whatever fn left unread.
func (d *Deserializer) within(start int, fn func() error) error {
	if err := fn(); err != nil {
		return err
	}
	end, err := wire.Skip(d.toks, start)
	if err != nil {
		return err
	}
	if d.pos > end {
		return errOverread
	}
	d.pos = end
	return nil
}

// Any decodes one value into a generic tree:
//
//	null, none          nil
//	bool                bool
//	i8..i64, u8..u64    int8..int64, uint8..uint64
//	i128, u128          Int128, Uint128
//	f32, f64            float32, float64
//	char                Char
//	bin                 []byte (string when used as a dict key)
//	some(x)             x
//	list                []any
//	dict                map[any]any
//	pair                Pair
//
// Dict keys that are lists, dicts or pairs fail with ErrUnhashableKey.
func (d *Deserializer) Any() (any, error) {
	av := anyVisitor{}
	if err := d.Visit(&av); err != nil {
		return nil, err
	}
	return av.out, nil
}

func (d *Deserializer) anyKey() (any, error) {
	av := anyVisitor{key: true}
	if err := d.Visit(&av); err != nil {
		return nil, err
	}
	return av.out, nil
}

// DecodeAny decodes data into a generic tree; see Deserializer.Any.
func DecodeAny(data []byte) (any, error) {
	var v any
	err := Unmarshal(data, &v)
	return v, err
}

type anyVisitor struct {
	out any
	key bool
}

func (a *anyVisitor) VisitNull() error       { a.out = nil; return nil }
func (a *anyVisitor) VisitBool(v bool) error { a.out = v; return nil }

func (a *anyVisitor) VisitInt(t Type, v int64) error {
	switch t {
	case TypeI8:
		a.out = int8(v)
	case TypeI16:
		a.out = int16(v)
	case TypeI32:
		a.out = int32(v)
	default:
		a.out = v
	}
	return nil
}

func (a *anyVisitor) VisitUint(t Type, v uint64) error {
	switch t {
	case TypeU8:
		a.out = uint8(v)
	case TypeU16:
		a.out = uint16(v)
	case TypeU32:
		a.out = uint32(v)
	default:
		a.out = v
	}
	return nil
}

func (a *anyVisitor) VisitInt128(v Int128) error   { a.out = v; return nil }
func (a *anyVisitor) VisitUint128(v Uint128) error { a.out = v; return nil }
func (a *anyVisitor) VisitFloat32(v float32) error { a.out = v; return nil }
func (a *anyVisitor) VisitFloat64(v float64) error { a.out = v; return nil }
func (a *anyVisitor) VisitChar(r rune) error       { a.out = Char(r); return nil }

func (a *anyVisitor) VisitBytes(p []byte) error {
	if a.key {
		a.out = string(p)
	} else {
		a.out = p
	}
	return nil
}

func (a *anyVisitor) VisitNone() error { a.out = nil; return nil }

func (a *anyVisitor) VisitSome(d *Deserializer) error {
	var err error
	if a.key {
		a.out, err = d.anyKey()
	} else {
		a.out, err = d.Any()
	}
	return err
}

func (a *anyVisitor) VisitSeq(s *SeqAccess) error {
	if a.key {
		return fmt.Errorf("%w: list key", ErrUnhashableKey)
	}
	out := make([]any, 0, s.Len())
	for s.Next() {
		x, err := s.Deserializer().Any()
		if err != nil {
			return err
		}
		out = append(out, x)
	}
	a.out = out
	return nil
}

func (a *anyVisitor) VisitMap(m *MapAccess) error {
	if a.key {
		return fmt.Errorf("%w: dict key", ErrUnhashableKey)
	}
	out := make(map[any]any, m.Len())
	d := m.Deserializer()
	for m.Next() {
		k, err := d.anyKey()
		if err != nil {
			return err
		}
		v, err := d.Any()
		if err != nil {
			return err
		}
		out[k] = v
	}
	a.out = out
	return nil
}

func (a *anyVisitor) VisitPair(d *Deserializer) error {
	if a.key {
		return fmt.Errorf("%w: pair key", ErrUnhashableKey)
	}
	x, err := d.Any()
	if err != nil {
		return err
	}
	y, err := d.Any()
	if err != nil {
		return err
	}
	a.out = Pair{A: x, B: y}
	return nil
}
