package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"unicode/utf8"
)

// DefaultMaxDepth bounds container nesting when Reader.MaxDepth is zero.
const DefaultMaxDepth = 512

// Token is one tag/payload unit. Containers carry only their cardinality;
// their children follow them in the token slice (pre-order).
type Token struct {
	Type Type
	// N is the element count of a List or the pair count of a Dict.
	N int
	// Hi/Lo hold integer bits (two's complement, Hi sign-extended), the raw
	// IEEE bits of a float in Lo, or a Char codepoint in Lo.
	Hi, Lo uint64
	Bin    []byte
}

// Bits returns the integer payload of an integer token.
func (t *Token) Bits() Bits { return WordsBits(t.Hi, t.Lo) }

// Children returns how many child subsequences directly follow t.
func (t *Token) Children() int {
	switch t.Type {
	case List:
		return t.N
	case Dict:
		return 2 * t.N
	case Pair:
		return 2
	case OptSome:
		return 1
	}
	return 0
}

type source struct {
	r   io.Reader
	buf [16]byte
}

func readErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrUnexpectedEOF
	}
	return &IOError{Op: "read", Err: err}
}

func (s *source) readByte() (byte, error) {
	if br, ok := s.r.(io.ByteReader); ok {
		b, err := br.ReadByte()
		if err != nil {
			return 0, readErr(err)
		}
		return b, nil
	}
	if _, err := io.ReadFull(s.r, s.buf[:1]); err != nil {
		return 0, readErr(err)
	}
	return s.buf[0], nil
}

// full reads exactly n <= 16 bytes into the scratch buffer.
func (s *source) readFull(n int) ([]byte, error) {
	if _, err := io.ReadFull(s.r, s.buf[:n]); err != nil {
		return nil, readErr(err)
	}
	return s.buf[:n], nil
}

const binChunk = 64 << 10

// bytes reads a length-prefixed payload without trusting the length for a
// single up-front allocation.
func (s *source) readBin(n uint64) ([]byte, error) {
	if n > math.MaxInt64 {
		return nil, ErrUnexpectedEOF
	}
	if n <= binChunk {
		p := make([]byte, n)
		if _, err := io.ReadFull(s.r, p); err != nil {
			return nil, readErr(err)
		}
		return p, nil
	}
	var buf bytes.Buffer
	if _, err := io.CopyN(&buf, s.r, int64(n)); err != nil {
		return nil, readErr(err)
	}
	return buf.Bytes(), nil
}

func (s *source) readInt(w Width, signed bool) (Bits, error) {
	lead, err := s.readByte()
	if err != nil {
		return Bits{}, err
	}
	return decodeInt(lead, w, signed, s.readFull)
}

func (s *source) readCount() (uint64, error) {
	b, err := s.readInt(W64, false)
	if err != nil {
		return 0, err
	}
	_, lo := b.Words()
	return lo, nil
}

// Reader turns a byte source into flat token sequences.
type Reader struct {
	src source
	// MaxDepth bounds container nesting; <= 0 means DefaultMaxDepth.
	MaxDepth int
}

func NewReader(r io.Reader) *Reader {
	return &Reader{src: source{r: r}}
}

// ReadValue appends the tokens of exactly one encoded value to toks.
// A clean end of input before the first tag byte returns io.EOF.
func (r *Reader) ReadValue(toks []Token) ([]Token, error) {
	first, err := r.src.readByte()
	if err != nil {
		if errors.Is(err, ErrUnexpectedEOF) {
			return toks, io.EOF
		}
		return toks, err
	}
	limit := r.MaxDepth
	if limit <= 0 {
		limit = DefaultMaxDepth
	}
	return r.value(toks, first, limit)
}

func (r *Reader) next(toks []Token, depth int) ([]Token, error) {
	tag, err := r.src.readByte()
	if err != nil {
		return toks, err
	}
	return r.value(toks, tag, depth)
}

func (r *Reader) value(toks []Token, tag byte, depth int) ([]Token, error) {
	t, err := ParseType(tag)
	if err != nil {
		return toks, err
	}
	tok := Token{Type: t}

	switch {
	case t == Null, t == False, t == True, t == OptNone:

	case t.IsInt():
		b, err := r.src.readInt(t.Width(), t.Signed())
		if err != nil {
			return toks, err
		}
		tok.Hi, tok.Lo = b.Words()

	case t == F32:
		p, err := r.src.readFull(4)
		if err != nil {
			return toks, err
		}
		tok.Lo = uint64(binary.BigEndian.Uint32(p))

	case t == F64:
		p, err := r.src.readFull(8)
		if err != nil {
			return toks, err
		}
		tok.Lo = binary.BigEndian.Uint64(p)

	case t == Char:
		b, err := r.src.readInt(W32, false)
		if err != nil {
			return toks, err
		}
		_, lo := b.Words()
		if !utf8.ValidRune(rune(lo)) {
			return toks, &InvalidCharError{Code: uint32(lo)}
		}
		tok.Lo = lo

	case t == Bin:
		n, err := r.src.readCount()
		if err != nil {
			return toks, err
		}
		if tok.Bin, err = r.src.readBin(n); err != nil {
			return toks, err
		}

	case t == OptSome, t == Pair:
		if depth <= 0 {
			return toks, ErrTooDeep
		}
		toks = append(toks, tok)
		for i := tok.Children(); i > 0; i-- {
			if toks, err = r.next(toks, depth-1); err != nil {
				return toks, err
			}
		}
		return toks, nil

	case t == List, t == Dict:
		if depth <= 0 {
			return toks, ErrTooDeep
		}
		n, err := r.src.readCount()
		if err != nil {
			return toks, err
		}
		if n > math.MaxInt32 {
			// every child costs at least one byte; a count this large can
			// only be satisfied by input we refuse to buffer as tokens
			return toks, ErrUnexpectedEOF
		}
		tok.N = int(n)
		toks = append(toks, tok)
		for i := tok.Children(); i > 0; i-- {
			if toks, err = r.next(toks, depth-1); err != nil {
				return toks, err
			}
		}
		return toks, nil
	}

	return append(toks, tok), nil
}

// Tokenize reads exactly one value from p and reports how many bytes it used.
func Tokenize(p []byte, maxDepth int) ([]Token, int, error) {
	br := bytes.NewReader(p)
	r := NewReader(br)
	r.MaxDepth = maxDepth
	toks, err := r.ReadValue(nil)
	if err == io.EOF {
		err = ErrUnexpectedEOF
	}
	if err != nil {
		return nil, 0, err
	}
	return toks, len(p) - br.Len(), nil
}

// Skip returns the index just past the value that starts at toks[i],
// using container cardinalities only.
func Skip(toks []Token, i int) (int, error) {
	for need := 1; need > 0; need-- {
		if i >= len(toks) {
			return i, ErrUnexpectedEOF
		}
		need += toks[i].Children()
		i++
	}
	return i, nil
}
