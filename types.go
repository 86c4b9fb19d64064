package horse

import (
	"fmt"
	"math/big"

	"github.com/unkn0wn-root/horse/internal/wire"
)

// Type is the tag byte that precedes every encoded value.
type Type = wire.Type

const (
	TypeNull    = wire.Null
	TypeFalse   = wire.False
	TypeTrue    = wire.True
	TypeI8      = wire.I8
	TypeI16     = wire.I16
	TypeI32     = wire.I32
	TypeI64     = wire.I64
	TypeI128    = wire.I128
	TypeU8      = wire.U8
	TypeU16     = wire.U16
	TypeU32     = wire.U32
	TypeU64     = wire.U64
	TypeU128    = wire.U128
	TypeF32     = wire.F32
	TypeF64     = wire.F64
	TypeChar    = wire.Char
	TypeBin     = wire.Bin
	TypeOptSome = wire.OptSome
	TypeOptNone = wire.OptNone
	TypeList    = wire.List
	TypeDict    = wire.Dict
	TypePair    = wire.Pair
)

// Style selects how record fields and union discriminants are rendered.
// Decoders accept either style.
type Style uint8

const (
	// Compact writes records as lists and discriminants as indices.
	Compact Style = iota
	// Expressive writes records as name-keyed dicts and discriminants as names.
	Expressive
)

func (s Style) String() string {
	switch s {
	case Compact:
		return "compact"
	case Expressive:
		return "expressive"
	}
	return fmt.Sprintf("style(%d)", uint8(s))
}

// ParseStyle accepts "compact" or "expressive".
func ParseStyle(s string) (Style, error) {
	switch s {
	case "compact", "":
		return Compact, nil
	case "expressive":
		return Expressive, nil
	}
	return 0, fmt.Errorf("horse: unknown style %q", s)
}

// Char is a Unicode scalar value. It encodes with the char tag; a plain rune
// (int32) encodes as i32.
type Char rune

// Int128 is a signed 128-bit integer in two's complement.
type Int128 struct {
	Hi int64
	Lo uint64
}

func Int128From64(v int64) Int128 {
	hi := int64(0)
	if v < 0 {
		hi = -1
	}
	return Int128{Hi: hi, Lo: uint64(v)}
}

// Big returns x as a big.Int.
func (x Int128) Big() *big.Int {
	b := new(big.Int).SetInt64(x.Hi)
	b.Lsh(b, 64)
	return b.Add(b, new(big.Int).SetUint64(x.Lo))
}

func (x Int128) String() string { return x.Big().String() }

func (x Int128) bits() wire.Bits { return wire.WordsBits(uint64(x.Hi), x.Lo) }

// Uint128 is an unsigned 128-bit integer.
type Uint128 struct {
	Hi, Lo uint64
}

func Uint128From64(v uint64) Uint128 { return Uint128{Lo: v} }

func (x Uint128) Big() *big.Int {
	b := new(big.Int).SetUint64(x.Hi)
	b.Lsh(b, 64)
	return b.Add(b, new(big.Int).SetUint64(x.Lo))
}

func (x Uint128) String() string { return x.Big().String() }

func (x Uint128) bits() wire.Bits { return wire.WordsBits(x.Hi, x.Lo) }

// Pair is a heterogeneous two-tuple. It is what a dynamically decoded pair
// token becomes, and it encodes back as a pair.
type Pair struct {
	A, B any
}
