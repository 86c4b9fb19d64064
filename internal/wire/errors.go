package wire

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidType   = errors.New("horse: invalid type")
	ErrInvalidChar   = errors.New("horse: invalid char")
	ErrUnexpectedEOF = errors.New("horse: unexpected EOF")
	ErrIntCastFail   = errors.New("horse: integer does not fit requested width")
	ErrTooDeep       = errors.New("horse: nesting exceeds max depth")
)

// InvalidTypeError reports a tag byte outside 0..21.
type InvalidTypeError struct {
	Byte byte
}

func (e *InvalidTypeError) Error() string {
	return fmt.Sprintf("horse: invalid type 0x%02x", e.Byte)
}

func (e *InvalidTypeError) Unwrap() error { return ErrInvalidType }

// InvalidCharError reports a Char payload that is not a Unicode scalar value.
type InvalidCharError struct {
	Code uint32
}

func (e *InvalidCharError) Error() string {
	return fmt.Sprintf("horse: invalid char 0x%x", e.Code)
}

func (e *InvalidCharError) Unwrap() error { return ErrInvalidChar }

// IntCastError reports an integer whose leading byte announces a width class
// larger than the one requested by the caller.
type IntCastError struct {
	Lead byte
	Want Width
}

func (e *IntCastError) Error() string {
	return fmt.Sprintf("horse: integer lead 0x%02x does not fit %s", e.Lead, e.Want)
}

func (e *IntCastError) Unwrap() error { return ErrIntCastFail }

// IOError wraps a failure of the byte source or sink that is not a short read.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string { return "horse: " + e.Op + ": " + e.Err.Error() }
func (e *IOError) Unwrap() error { return e.Err }
