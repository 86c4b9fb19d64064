package wire

import (
	"encoding/binary"
	"io"
	"math"
)

const flushAt = 4 << 10

// Writer emits tags and payloads to a byte sink. Output is buffered; call
// Flush after the last value. The first sink error is sticky.
type Writer struct {
	w   io.Writer
	buf []byte
	err error
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, buf: make([]byte, 0, 256)}
}

func (w *Writer) maybeFlush() error {
	if len(w.buf) >= flushAt {
		return w.Flush()
	}
	return w.err
}

// Flush writes buffered bytes to the sink.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	if len(w.buf) == 0 {
		return nil
	}
	if _, err := w.w.Write(w.buf); err != nil {
		w.err = &IOError{Op: "write", Err: err}
		return w.err
	}
	w.buf = w.buf[:0]
	return nil
}

func (w *Writer) Type(t Type) error {
	w.buf = append(w.buf, byte(t))
	return w.maybeFlush()
}

// Int writes an integer tag followed by its variable-length payload.
func (w *Writer) Int(t Type, b Bits) error {
	w.buf = append(w.buf, byte(t))
	w.buf = AppendInt(w.buf, b, t.Width(), t.Signed())
	return w.maybeFlush()
}

// Count writes an untagged unsigned length (lists, dicts, bin).
func (w *Writer) Count(n int) error {
	w.buf = AppendInt(w.buf, Uint64Bits(uint64(n)), W64, false)
	return w.maybeFlush()
}

func (w *Writer) F32(v float32) error {
	w.buf = append(w.buf, byte(F32))
	w.buf = binary.BigEndian.AppendUint32(w.buf, math.Float32bits(v))
	return w.maybeFlush()
}

func (w *Writer) F64(v float64) error {
	w.buf = append(w.buf, byte(F64))
	w.buf = binary.BigEndian.AppendUint64(w.buf, math.Float64bits(v))
	return w.maybeFlush()
}

func (w *Writer) Char(r rune) error {
	w.buf = append(w.buf, byte(Char))
	w.buf = AppendInt(w.buf, Uint64Bits(uint64(uint32(r))), W32, false)
	return w.maybeFlush()
}

func (w *Writer) Bin(p []byte) error {
	w.buf = append(w.buf, byte(Bin))
	w.buf = AppendInt(w.buf, Uint64Bits(uint64(len(p))), W64, false)
	if len(p) >= flushAt {
		if err := w.Flush(); err != nil {
			return err
		}
		if _, err := w.w.Write(p); err != nil {
			w.err = &IOError{Op: "write", Err: err}
		}
		return w.err
	}
	w.buf = append(w.buf, p...)
	return w.maybeFlush()
}

// Container writes a List or Dict tag and its count.
func (w *Writer) Container(t Type, n int) error {
	w.buf = append(w.buf, byte(t))
	w.buf = AppendInt(w.buf, Uint64Bits(uint64(n)), W64, false)
	return w.maybeFlush()
}

// Raw appends bytes that already hold complete encoded values.
func (w *Writer) Raw(p []byte) error {
	w.buf = append(w.buf, p...)
	return w.maybeFlush()
}
