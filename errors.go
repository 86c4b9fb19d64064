package horse

import (
	"errors"
	"fmt"

	"github.com/unkn0wn-root/horse/internal/wire"
)

// Errors produced while reading raw bytes.
var (
	ErrInvalidType   = wire.ErrInvalidType
	ErrInvalidChar   = wire.ErrInvalidChar
	ErrUnexpectedEOF = wire.ErrUnexpectedEOF
	ErrIntCastFail   = wire.ErrIntCastFail
	ErrTooDeep       = wire.ErrTooDeep
)

// Errors produced while reconstructing typed values.
var (
	ErrUnexpectedType       = errors.New("horse: unexpected type")
	ErrNoDeserializeRawPair = errors.New("horse: pair cannot be read as a bare value")
	ErrUnitVariantPair      = errors.New("horse: unit variant carries a payload")
	ErrVersionInTheFuture   = errors.New("horse: version in the future")

	ErrUnsupportedType = errors.New("horse: unsupported type")
	ErrUnknownVariant  = errors.New("horse: unknown variant")
	ErrUnknownField    = errors.New("horse: unknown field")
	ErrRecordLength    = errors.New("horse: length mismatch")
	ErrUnhashableKey   = errors.New("horse: container used as dict key")
	ErrTrailingData    = errors.New("horse: trailing data after value")
)

type (
	InvalidTypeError = wire.InvalidTypeError
	InvalidCharError = wire.InvalidCharError
	IntCastError     = wire.IntCastError
	IOError          = wire.IOError
)

// UnexpectedTypeError reports a token whose tag differs from the one the
// caller asked for.
type UnexpectedTypeError struct {
	Found    Type
	Expected Type
}

func (e *UnexpectedTypeError) Error() string {
	return fmt.Sprintf("horse: unexpected type %s, expected %s", e.Found, e.Expected)
}

func (e *UnexpectedTypeError) Unwrap() error { return ErrUnexpectedType }

// VersionError reports bytes written by a shape newer than the newest one
// the reader knows.
type VersionError struct {
	Have Version // newest known shape
	Want Version // version the bytes were written at
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("horse: data version %s is newer than known version %s", e.Want, e.Have)
}

func (e *VersionError) Unwrap() error { return ErrVersionInTheFuture }

// typeError builds the error for a token of type found where want was
// expected. Pairs get their own sentinel since they are never legal as a
// bare value.
func typeError(found, want Type) error {
	if found == TypePair && want != TypePair {
		return fmt.Errorf("%w (expected %s)", ErrNoDeserializeRawPair, want)
	}
	return &UnexpectedTypeError{Found: found, Expected: want}
}
