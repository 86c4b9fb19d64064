package wire

import "fmt"

// Type is the leading tag byte of every encoded value.
type Type byte

const (
	Null Type = iota
	False
	True
	I8
	I16
	I32
	I64
	I128
	U8
	U16
	U32
	U64
	U128
	F32
	F64
	Char
	Bin
	OptSome
	OptNone
	List
	Dict
	Pair

	numTypes
)

var typeNames = [numTypes]string{
	Null: "null", False: "false", True: "true",
	I8: "i8", I16: "i16", I32: "i32", I64: "i64", I128: "i128",
	U8: "u8", U16: "u16", U32: "u32", U64: "u64", U128: "u128",
	F32: "f32", F64: "f64", Char: "char", Bin: "bin",
	OptSome: "some", OptNone: "none",
	List: "list", Dict: "dict", Pair: "pair",
}

func (t Type) String() string {
	if t < numTypes {
		return typeNames[t]
	}
	return fmt.Sprintf("type(0x%02x)", byte(t))
}

// Valid reports whether t is one of the 22 defined tags.
func (t Type) Valid() bool { return t < numTypes }

// ParseType validates a raw tag byte.
func ParseType(b byte) (Type, error) {
	if t := Type(b); t.Valid() {
		return t, nil
	}
	return 0, &InvalidTypeError{Byte: b}
}

// IsInt reports whether t is a signed or unsigned integer tag.
func (t Type) IsInt() bool { return t >= I8 && t <= U128 }

// Signed reports whether t is a signed integer tag.
func (t Type) Signed() bool { return t >= I8 && t <= I128 }

// Width returns the integer width class of an integer tag.
func (t Type) Width() Width {
	switch {
	case t >= I8 && t <= I128:
		return Width(t - I8)
	case t >= U8 && t <= U128:
		return Width(t - U8)
	}
	panic("wire: Width on non-integer type " + t.String())
}

// IntType returns the tag for an integer of width w.
func IntType(w Width, signed bool) Type {
	if signed {
		return I8 + Type(w)
	}
	return U8 + Type(w)
}
