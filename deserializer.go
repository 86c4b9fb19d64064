package horse

import (
	"fmt"
	"math"

	"github.com/unkn0wn-root/horse/internal/wire"
)

// Deserializer is a read cursor over the flat pre-order token sequence of
// one encoded value. Typed decoding (Decode) and dynamic decoding (Visit,
// Any) both advance it; so can Unmarshaler implementations.
//
// A Deserializer is owned by a single decode call and is not safe for
// concurrent use.
type Deserializer struct {
	toks []wire.Token
	pos  int
	opts DecodeOptions
}

// NewDeserializer reads exactly one value from data.
func NewDeserializer(data []byte) (*Deserializer, error) {
	return DecodeOptions{}.NewDeserializer(data)
}

func (o DecodeOptions) NewDeserializer(data []byte) (*Deserializer, error) {
	o = o.withDefaults()
	toks, n, err := wire.Tokenize(data, o.MaxDepth)
	if err != nil {
		return nil, err
	}
	if o.DisallowTrailing && n != len(data) {
		return nil, fmt.Errorf("%w: %d bytes", ErrTrailingData, len(data)-n)
	}
	return &Deserializer{toks: toks, opts: o}, nil
}

// Len is the total number of tokens.
func (d *Deserializer) Len() int { return len(d.toks) }

// Pos is the index of the next token to be read.
func (d *Deserializer) Pos() int { return d.pos }

// Done reports whether every token has been consumed.
func (d *Deserializer) Done() bool { return d.pos >= len(d.toks) }

// Peek returns the type of the token at the cursor without consuming it.
func (d *Deserializer) Peek() (Type, error) {
	if d.pos >= len(d.toks) {
		return 0, ErrUnexpectedEOF
	}
	return d.toks[d.pos].Type, nil
}

func (d *Deserializer) next() (*wire.Token, error) {
	if d.pos >= len(d.toks) {
		return nil, ErrUnexpectedEOF
	}
	t := &d.toks[d.pos]
	d.pos++
	return t, nil
}

// expect consumes the token at the cursor if it has type want.
func (d *Deserializer) expect(want Type) (*wire.Token, error) {
	if d.pos >= len(d.toks) {
		return nil, ErrUnexpectedEOF
	}
	t := &d.toks[d.pos]
	if t.Type != want {
		return nil, typeError(t.Type, want)
	}
	d.pos++
	return t, nil
}

// Skip consumes one complete value, however deeply nested, using container
// cardinalities only.
func (d *Deserializer) Skip() error {
	end, err := wire.Skip(d.toks, d.pos)
	if err != nil {
		return err
	}
	d.pos = end
	return nil
}

func (d *Deserializer) Null() error {
	_, err := d.expect(TypeNull)
	return err
}

func (d *Deserializer) Bool() (bool, error) {
	if d.pos >= len(d.toks) {
		return false, ErrUnexpectedEOF
	}
	switch t := d.toks[d.pos].Type; t {
	case TypeFalse, TypeTrue:
		d.pos++
		return t == TypeTrue, nil
	default:
		return false, typeError(t, TypeTrue)
	}
}

func (d *Deserializer) intBits(want Type) (uint64, error) {
	t, err := d.expect(want)
	if err != nil {
		return 0, err
	}
	return t.Lo, nil
}

func (d *Deserializer) Int8() (int8, error) {
	v, err := d.intBits(TypeI8)
	return int8(v), err
}

func (d *Deserializer) Int16() (int16, error) {
	v, err := d.intBits(TypeI16)
	return int16(v), err
}

func (d *Deserializer) Int32() (int32, error) {
	v, err := d.intBits(TypeI32)
	return int32(v), err
}

func (d *Deserializer) Int64() (int64, error) {
	v, err := d.intBits(TypeI64)
	return int64(v), err
}

func (d *Deserializer) Uint8() (uint8, error) {
	v, err := d.intBits(TypeU8)
	return uint8(v), err
}

func (d *Deserializer) Uint16() (uint16, error) {
	v, err := d.intBits(TypeU16)
	return uint16(v), err
}

func (d *Deserializer) Uint32() (uint32, error) {
	v, err := d.intBits(TypeU32)
	return uint32(v), err
}

func (d *Deserializer) Uint64() (uint64, error) {
	return d.intBits(TypeU64)
}

func (d *Deserializer) Int128() (Int128, error) {
	t, err := d.expect(TypeI128)
	if err != nil {
		return Int128{}, err
	}
	return Int128{Hi: int64(t.Hi), Lo: t.Lo}, nil
}

func (d *Deserializer) Uint128() (Uint128, error) {
	t, err := d.expect(TypeU128)
	if err != nil {
		return Uint128{}, err
	}
	return Uint128{Hi: t.Hi, Lo: t.Lo}, nil
}

func (d *Deserializer) Float32() (float32, error) {
	t, err := d.expect(TypeF32)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(uint32(t.Lo)), nil
}

func (d *Deserializer) Float64() (float64, error) {
	t, err := d.expect(TypeF64)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(t.Lo), nil
}

func (d *Deserializer) Char() (rune, error) {
	t, err := d.expect(TypeChar)
	if err != nil {
		return 0, err
	}
	return rune(t.Lo), nil
}

// Bytes returns a bin payload. The slice is not shared with the input.
func (d *Deserializer) Bytes() ([]byte, error) {
	t, err := d.expect(TypeBin)
	if err != nil {
		return nil, err
	}
	return t.Bin, nil
}

func (d *Deserializer) Text() (string, error) {
	p, err := d.Bytes()
	return string(p), err
}

// Option consumes an optional marker and reports whether a payload follows.
func (d *Deserializer) Option() (bool, error) {
	if d.pos >= len(d.toks) {
		return false, ErrUnexpectedEOF
	}
	switch t := d.toks[d.pos].Type; t {
	case TypeOptSome:
		d.pos++
		return true, nil
	case TypeOptNone:
		d.pos++
		return false, nil
	default:
		return false, typeError(t, TypeOptSome)
	}
}

// Pair consumes a pair marker; its two values follow.
func (d *Deserializer) Pair() error {
	_, err := d.expect(TypePair)
	return err
}

// Seq consumes a list header.
func (d *Deserializer) Seq() (*SeqAccess, error) {
	t, err := d.expect(TypeList)
	if err != nil {
		return nil, err
	}
	return &SeqAccess{d: d, n: t.N, remaining: t.N}, nil
}

// Map consumes a dict header.
func (d *Deserializer) Map() (*MapAccess, error) {
	t, err := d.expect(TypeDict)
	if err != nil {
		return nil, err
	}
	return &MapAccess{d: d, n: t.N, remaining: t.N}, nil
}

// Record consumes the header of a record with the given field names. Both
// the Compact (list) and Expressive (dict) renderings are accepted.
func (d *Deserializer) Record(fields []string) (*RecordAccess, error) {
	return d.openRecord(fields, nil)
}

func (d *Deserializer) openRecord(names []string, byName map[string]int) (*RecordAccess, error) {
	if d.pos >= len(d.toks) {
		return nil, ErrUnexpectedEOF
	}
	t := &d.toks[d.pos]
	switch t.Type {
	case TypeList, TypeDict:
	default:
		return nil, typeError(t.Type, TypeList)
	}
	d.pos++
	return &RecordAccess{
		d:          d,
		names:      names,
		byName:     byName,
		positional: t.Type == TypeList,
		remaining:  t.N,
	}, nil
}

// Enum consumes a union value up to its payload: a bare unsigned integer or
// bin is a unit variant; a pair holds the discriminant and the payload.
func (d *Deserializer) Enum() (*EnumAccess, error) {
	if d.pos >= len(d.toks) {
		return nil, ErrUnexpectedEOF
	}
	e := &EnumAccess{d: d}
	if d.toks[d.pos].Type == TypePair {
		d.pos++
		e.payload = true
	}
	if d.pos >= len(d.toks) {
		return nil, ErrUnexpectedEOF
	}
	t := &d.toks[d.pos]
	e.disc = t.Type
	switch {
	case t.Type == TypeBin:
		e.index, e.name = -1, string(t.Bin)
	case t.Type >= TypeU8 && t.Type <= TypeU64:
		if t.Lo > math.MaxUint32 {
			return nil, fmt.Errorf("%w: index %d", ErrUnknownVariant, t.Lo)
		}
		e.index = int(t.Lo)
	default:
		return nil, typeError(t.Type, TypeU32)
	}
	d.pos++
	return e, nil
}

// SeqAccess walks the elements of a list. It is a count over the shared
// cursor, not a copy: after Next reports true the element is read from the
// Deserializer.
type SeqAccess struct {
	d         *Deserializer
	n         int
	remaining int
}

func (s *SeqAccess) Len() int       { return s.n }
func (s *SeqAccess) Remaining() int { return s.remaining }

// Deserializer returns the cursor elements are read from.
func (s *SeqAccess) Deserializer() *Deserializer { return s.d }

// Next accounts for one element and reports whether there was one left.
func (s *SeqAccess) Next() bool {
	if s.remaining == 0 {
		return false
	}
	s.remaining--
	return true
}

// Element decodes the next element into v. It returns false at the end.
func (s *SeqAccess) Element(v any) (bool, error) {
	if !s.Next() {
		return false, nil
	}
	return true, s.d.Decode(v)
}

// Finish skips the elements that were not read.
func (s *SeqAccess) Finish() error {
	for s.Next() {
		if err := s.d.Skip(); err != nil {
			return err
		}
	}
	return nil
}

// MapAccess walks the entries of a dict. After Next reports true the key
// and then the value are read from the Deserializer.
type MapAccess struct {
	d         *Deserializer
	n         int
	remaining int
}

func (m *MapAccess) Len() int       { return m.n }
func (m *MapAccess) Remaining() int { return m.remaining }

func (m *MapAccess) Deserializer() *Deserializer { return m.d }

func (m *MapAccess) Next() bool {
	if m.remaining == 0 {
		return false
	}
	m.remaining--
	return true
}

// Entry decodes the next key into k and its value into v.
func (m *MapAccess) Entry(k, v any) (bool, error) {
	if !m.Next() {
		return false, nil
	}
	if err := m.d.checkKey(); err != nil {
		return true, err
	}
	if err := m.d.Decode(k); err != nil {
		return true, err
	}
	return true, m.d.Decode(v)
}

func (m *MapAccess) Finish() error {
	for m.Next() {
		if err := m.d.Skip(); err != nil {
			return err
		}
		if err := m.d.Skip(); err != nil {
			return err
		}
	}
	return nil
}

// checkKey rejects a dict key that is (an optional of) a container.
func (d *Deserializer) checkKey() error {
	for i := d.pos; i < len(d.toks); i++ {
		switch t := d.toks[i].Type; t {
		case TypeOptSome:
			continue
		case TypeList, TypeDict, TypePair:
			return fmt.Errorf("%w: %s key", ErrUnhashableKey, t)
		}
		return nil
	}
	return ErrUnexpectedEOF
}

// RecordAccess walks the fields of a record in either rendering.
type RecordAccess struct {
	d          *Deserializer
	names      []string
	byName     map[string]int
	positional bool
	remaining  int
	next       int
}

// Next returns the index (into the declared field names) of the field whose
// value is at the cursor, or ok=false once the record is exhausted.
//
// Unknown dict fields and surplus list elements fail with ErrUnknownField
// and ErrRecordLength; with DecodeOptions.IgnoreUnknownFields they are
// skipped.
func (r *RecordAccess) Next() (idx int, ok bool, err error) {
	if r.positional {
		return r.nextPositional()
	}
	for r.remaining > 0 {
		r.remaining--
		i, name, err := r.key()
		if err != nil {
			return 0, false, err
		}
		if i >= 0 {
			return i, true, nil
		}
		if !r.d.opts.IgnoreUnknownFields {
			return 0, false, fmt.Errorf("%w %q", ErrUnknownField, name)
		}
		r.d.opts.Logger.Debug("horse: skipped unknown field", Fields{"field": name})
		if err := r.d.Skip(); err != nil {
			return 0, false, err
		}
	}
	return 0, false, nil
}

func (r *RecordAccess) nextPositional() (int, bool, error) {
	if r.remaining == 0 {
		if r.next < len(r.names) && !r.d.opts.IgnoreUnknownFields {
			return 0, false, fmt.Errorf("%w: record has %d fields, got %d", ErrRecordLength, len(r.names), r.next)
		}
		return 0, false, nil
	}
	if r.next >= len(r.names) {
		if !r.d.opts.IgnoreUnknownFields {
			return 0, false, fmt.Errorf("%w: record has %d fields, got %d", ErrRecordLength, len(r.names), r.next+r.remaining)
		}
		r.d.opts.Logger.Debug("horse: skipped surplus fields", Fields{"count": r.remaining})
		for ; r.remaining > 0; r.remaining-- {
			if err := r.d.Skip(); err != nil {
				return 0, false, err
			}
		}
		return 0, false, nil
	}
	r.remaining--
	i := r.next
	r.next++
	return i, true, nil
}

// key consumes a dict field key: a name, or a field index.
func (r *RecordAccess) key() (int, string, error) {
	t, err := r.d.next()
	if err != nil {
		return 0, "", err
	}
	switch {
	case t.Type == TypeBin:
		name := string(t.Bin)
		return r.lookup(name), name, nil
	case t.Type >= TypeU8 && t.Type <= TypeU64:
		if t.Lo < uint64(len(r.names)) {
			return int(t.Lo), r.names[t.Lo], nil
		}
		return -1, fmt.Sprintf("#%d", t.Lo), nil
	}
	return 0, "", typeError(t.Type, TypeBin)
}

func (r *RecordAccess) lookup(name string) int {
	if r.byName != nil {
		if i, ok := r.byName[name]; ok {
			return i
		}
		return -1
	}
	for i, n := range r.names {
		if n == name {
			return i
		}
	}
	return -1
}

// EnumAccess is a union value whose discriminant has been read.
type EnumAccess struct {
	d       *Deserializer
	disc    Type
	index   int
	name    string
	payload bool
}

// Index is the discriminant index, or -1 when the variant is named.
func (e *EnumAccess) Index() int { return e.index }

// Name is the discriminant name, or "" when the variant is indexed.
func (e *EnumAccess) Name() string { return e.name }

// HasPayload reports whether the value was a pair.
func (e *EnumAccess) HasPayload() bool { return e.payload }

// Variant resolves the discriminant against the declared variant names.
func (e *EnumAccess) Variant(names []string) (int, error) {
	if e.index >= 0 {
		if e.index < len(names) {
			return e.index, nil
		}
		return 0, fmt.Errorf("%w: index %d of %d", ErrUnknownVariant, e.index, len(names))
	}
	for i, n := range names {
		if n == e.name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownVariant, e.name)
}

// Unit checks that the variant carries no payload.
func (e *EnumAccess) Unit() error {
	if e.payload {
		return ErrUnitVariantPair
	}
	return nil
}

func (e *EnumAccess) needPayload() error {
	if !e.payload {
		return &UnexpectedTypeError{Found: e.disc, Expected: TypePair}
	}
	return nil
}

// Newtype decodes the payload into v.
func (e *EnumAccess) Newtype(v any) error {
	if err := e.needPayload(); err != nil {
		return err
	}
	return e.d.Decode(v)
}

// Tuple opens a positional payload of exactly n elements.
func (e *EnumAccess) Tuple(n int) (*SeqAccess, error) {
	if err := e.needPayload(); err != nil {
		return nil, err
	}
	s, err := e.d.Seq()
	if err != nil {
		return nil, err
	}
	if s.Len() != n {
		return nil, fmt.Errorf("%w: tuple variant has %d fields, got %d", ErrRecordLength, n, s.Len())
	}
	return s, nil
}

// Struct opens a record payload with the given field names.
func (e *EnumAccess) Struct(fields []string) (*RecordAccess, error) {
	if err := e.needPayload(); err != nil {
		return nil, err
	}
	return e.d.Record(fields)
}
