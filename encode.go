package horse

import (
	"bytes"
	"fmt"
	"io"
	"reflect"
	"sort"
	"unicode/utf8"

	"github.com/unkn0wn-root/horse/internal/wire"
)

// Marshaler is implemented by types that write their own encoding. The
// method must write exactly one value.
type Marshaler interface {
	MarshalHorse(w *Writer) error
}

var (
	marshalerType = reflect.TypeFor[Marshaler]()
	int128Type    = reflect.TypeFor[Int128]()
	uint128Type   = reflect.TypeFor[Uint128]()
	charType      = reflect.TypeFor[Char]()
	pairType      = reflect.TypeFor[Pair]()
)

// Writer emits values in the tag + payload format. Marshal drives it by
// reflection; Marshaler implementations drive it directly.
type Writer struct {
	w        *wire.Writer
	style    Style
	maxDepth int
	depth    int
}

func newWriter(w io.Writer, o EncodeOptions) *Writer {
	o = o.withDefaults()
	return &Writer{w: wire.NewWriter(w), style: o.Style, maxDepth: o.MaxDepth}
}

// Style reports the record/discriminant style in effect.
func (w *Writer) Style() Style { return w.style }

func (w *Writer) Null() error { return w.w.Type(wire.Null) }

func (w *Writer) Bool(v bool) error {
	if v {
		return w.w.Type(wire.True)
	}
	return w.w.Type(wire.False)
}

func (w *Writer) Int8(v int8) error   { return w.w.Int(wire.I8, wire.Int64Bits(int64(v))) }
func (w *Writer) Int16(v int16) error { return w.w.Int(wire.I16, wire.Int64Bits(int64(v))) }
func (w *Writer) Int32(v int32) error { return w.w.Int(wire.I32, wire.Int64Bits(int64(v))) }
func (w *Writer) Int64(v int64) error { return w.w.Int(wire.I64, wire.Int64Bits(v)) }

func (w *Writer) Uint8(v uint8) error   { return w.w.Int(wire.U8, wire.Uint64Bits(uint64(v))) }
func (w *Writer) Uint16(v uint16) error { return w.w.Int(wire.U16, wire.Uint64Bits(uint64(v))) }
func (w *Writer) Uint32(v uint32) error { return w.w.Int(wire.U32, wire.Uint64Bits(uint64(v))) }
func (w *Writer) Uint64(v uint64) error { return w.w.Int(wire.U64, wire.Uint64Bits(v)) }

func (w *Writer) Int128(v Int128) error   { return w.w.Int(wire.I128, v.bits()) }
func (w *Writer) Uint128(v Uint128) error { return w.w.Int(wire.U128, v.bits()) }

func (w *Writer) Float32(v float32) error { return w.w.F32(v) }
func (w *Writer) Float64(v float64) error { return w.w.F64(v) }

// Char writes a Unicode scalar value.
func (w *Writer) Char(r rune) error {
	if !utf8.ValidRune(r) {
		return &InvalidCharError{Code: uint32(r)}
	}
	return w.w.Char(r)
}

func (w *Writer) Bytes(p []byte) error { return w.w.Bin(p) }
func (w *Writer) Text(s string) error  { return w.w.Bin([]byte(s)) }

func (w *Writer) None() error { return w.w.Type(wire.OptNone) }

// Some starts a present optional; the payload value follows.
func (w *Writer) Some() error { return w.w.Type(wire.OptSome) }

// List starts a list of n elements.
func (w *Writer) List(n int) error { return w.w.Container(wire.List, n) }

// Dict starts a dict of n key/value pairs.
func (w *Writer) Dict(n int) error { return w.w.Container(wire.Dict, n) }

// Pair starts a pair; exactly two values follow.
func (w *Writer) Pair() error { return w.w.Type(wire.Pair) }

// Discriminant writes a union discriminant: index as u32 (Compact) or name
// as bin (Expressive). A unit variant is just its discriminant.
func (w *Writer) Discriminant(index uint32, name string) error {
	if w.style == Expressive {
		return w.Text(name)
	}
	return w.Uint32(index)
}

// Record starts a record of n fields: a list (Compact) or dict (Expressive).
// Each field value must be preceded by Field.
func (w *Writer) Record(n int) error {
	if w.style == Expressive {
		return w.Dict(n)
	}
	return w.List(n)
}

// Field writes the key of the next record field. Compact records are
// positional, so nothing is written.
func (w *Writer) Field(name string) error {
	if w.style == Expressive {
		return w.Text(name)
	}
	return nil
}

// Encode writes v by reflection. Pointers encode as optionals.
func (w *Writer) Encode(v any) error {
	return w.value(reflect.ValueOf(v))
}

func (w *Writer) enter() error {
	if w.depth >= w.maxDepth {
		return ErrTooDeep
	}
	w.depth++
	return nil
}

func (w *Writer) leave() { w.depth-- }

func (w *Writer) value(v reflect.Value) error {
	if !v.IsValid() {
		return w.Null()
	}
	t := v.Type()

	if t.Kind() != reflect.Pointer && t.Kind() != reflect.Interface {
		if m, ok := asMarshaler(v); ok {
			return m.MarshalHorse(w)
		}
	}

	switch t {
	case int128Type:
		return w.Int128(v.Interface().(Int128))
	case uint128Type:
		return w.Uint128(v.Interface().(Uint128))
	case charType:
		return w.Char(rune(v.Int()))
	case pairType:
		p := v.Interface().(Pair)
		return w.pair(reflect.ValueOf(p.A), reflect.ValueOf(p.B))
	}
	if isEnum(t) {
		return w.enum(v)
	}

	switch t.Kind() {
	case reflect.Bool:
		return w.Bool(v.Bool())
	case reflect.Int, reflect.Int64:
		return w.Int64(v.Int())
	case reflect.Int8:
		return w.Int8(int8(v.Int()))
	case reflect.Int16:
		return w.Int16(int16(v.Int()))
	case reflect.Int32:
		return w.Int32(int32(v.Int()))
	case reflect.Uint, reflect.Uint64:
		return w.Uint64(v.Uint())
	case reflect.Uint8:
		return w.Uint8(uint8(v.Uint()))
	case reflect.Uint16:
		return w.Uint16(uint16(v.Uint()))
	case reflect.Uint32:
		return w.Uint32(uint32(v.Uint()))
	case reflect.Float32:
		return w.Float32(float32(v.Float()))
	case reflect.Float64:
		return w.Float64(v.Float())
	case reflect.String:
		return w.Text(v.String())

	case reflect.Pointer:
		if v.IsNil() {
			return w.None()
		}
		if err := w.enter(); err != nil {
			return err
		}
		defer w.leave()
		if err := w.Some(); err != nil {
			return err
		}
		return w.value(v.Elem())

	case reflect.Interface:
		if v.IsNil() {
			return w.Null()
		}
		if u := lookupUnion(t); u != nil {
			return w.union(u, v.Elem())
		}
		return w.value(v.Elem())

	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return w.Bytes(v.Bytes())
		}
		return w.list(v)

	case reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			p := make([]byte, v.Len())
			reflect.Copy(reflect.ValueOf(p), v)
			return w.Bytes(p)
		}
		return w.list(v)

	case reflect.Map:
		return w.dict(v)

	case reflect.Struct:
		return w.record(v)
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedType, t)
}

func asMarshaler(v reflect.Value) (Marshaler, bool) {
	t := v.Type()
	if t.Implements(marshalerType) {
		return v.Interface().(Marshaler), true
	}
	if reflect.PointerTo(t).Implements(marshalerType) {
		if v.CanAddr() {
			return v.Addr().Interface().(Marshaler), true
		}
		p := reflect.New(t)
		p.Elem().Set(v)
		return p.Interface().(Marshaler), true
	}
	return nil, false
}

func (w *Writer) list(v reflect.Value) error {
	if err := w.enter(); err != nil {
		return err
	}
	defer w.leave()
	n := v.Len()
	if err := w.List(n); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := w.value(v.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

type encodedEntry struct {
	key []byte
	val reflect.Value
}

// dict writes map entries ordered by the encoded bytes of their keys, so
// equal maps always produce equal output.
func (w *Writer) dict(v reflect.Value) error {
	if err := w.enter(); err != nil {
		return err
	}
	defer w.leave()

	entries := make([]encodedEntry, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		key, err := w.encodeKey(iter.Key())
		if err != nil {
			return err
		}
		entries = append(entries, encodedEntry{key: key, val: iter.Value()})
	}
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].key, entries[j].key) < 0
	})

	if err := w.Dict(len(entries)); err != nil {
		return err
	}
	for _, e := range entries {
		if err := w.w.Raw(e.key); err != nil {
			return err
		}
		if err := w.value(e.val); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) encodeKey(k reflect.Value) ([]byte, error) {
	var buf bytes.Buffer
	sub := &Writer{w: wire.NewWriter(&buf), style: w.style, maxDepth: w.maxDepth, depth: w.depth}
	if err := sub.value(k); err != nil {
		return nil, err
	}
	if err := sub.w.Flush(); err != nil {
		return nil, err
	}
	p := buf.Bytes()
	if unhashable(p) {
		return nil, fmt.Errorf("%w: %s", ErrUnhashableKey, k.Type())
	}
	return p, nil
}

// unhashable reports whether an encoded key is (an optional of) a list,
// dict or pair.
func unhashable(p []byte) bool {
	for _, b := range p {
		switch wire.Type(b) {
		case wire.OptSome:
			continue
		case wire.List, wire.Dict, wire.Pair:
			return true
		}
		return false
	}
	return false
}

func (w *Writer) record(v reflect.Value) error {
	if err := w.enter(); err != nil {
		return err
	}
	defer w.leave()
	si := structFields(v.Type())
	if err := w.Record(len(si.fields)); err != nil {
		return err
	}
	for _, f := range si.fields {
		if err := w.Field(f.name); err != nil {
			return err
		}
		if err := w.value(v.Field(f.index)); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) tuple(v reflect.Value) error {
	si := structFields(v.Type())
	if err := w.List(len(si.fields)); err != nil {
		return err
	}
	for _, f := range si.fields {
		if err := w.value(v.Field(f.index)); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) pair(a, b reflect.Value) error {
	if err := w.enter(); err != nil {
		return err
	}
	defer w.leave()
	if err := w.Pair(); err != nil {
		return err
	}
	if err := w.value(a); err != nil {
		return err
	}
	return w.value(b)
}

func (w *Writer) enum(v reflect.Value) error {
	names := enumNames(v.Type())
	var idx uint64
	if v.CanInt() {
		if v.Int() < 0 {
			return fmt.Errorf("%w: %s(%d)", ErrUnknownVariant, v.Type(), v.Int())
		}
		idx = uint64(v.Int())
	} else {
		idx = v.Uint()
	}
	if idx >= uint64(len(names)) {
		return fmt.Errorf("%w: %s(%d)", ErrUnknownVariant, v.Type(), idx)
	}
	return w.Discriminant(uint32(idx), names[idx])
}

func (w *Writer) union(u *union, v reflect.Value) error {
	i, ok := u.byType[v.Type()]
	if !ok {
		return fmt.Errorf("%w: %s is not a registered variant of %s", ErrUnknownVariant, v.Type(), u.iface)
	}
	vt := u.variants[i]
	if vt.Kind == UnitVariant {
		return w.Discriminant(uint32(i), vt.Name)
	}

	if err := w.enter(); err != nil {
		return err
	}
	defer w.leave()
	if err := w.Pair(); err != nil {
		return err
	}
	if err := w.Discriminant(uint32(i), vt.Name); err != nil {
		return err
	}
	switch vt.Kind {
	case TupleVariant:
		return w.tuple(v)
	case StructVariant:
		return w.record(v)
	}
	// newtype: v has the concrete variant type, so this does not re-enter
	// union dispatch
	return w.value(v)
}

// Encoder writes a sequence of values to a stream.
type Encoder struct {
	w *Writer
}

func NewEncoder(w io.Writer) *Encoder { return EncodeOptions{}.NewEncoder(w) }

func (o EncodeOptions) NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: newWriter(w, o)}
}

// Encode writes v and flushes. A non-nil top-level pointer is dereferenced,
// so Encode(&x) and Encode(x) produce the same bytes; pass a pointer to an
// interface variable to encode a registered union at the top level.
func (e *Encoder) Encode(v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if err := e.w.value(rv); err != nil {
		return err
	}
	return e.w.w.Flush()
}

// Marshal returns the Compact encoding of v.
func Marshal(v any) ([]byte, error) { return EncodeOptions{}.Marshal(v) }

// MarshalStyle returns the encoding of v in the given style.
func MarshalStyle(v any, s Style) ([]byte, error) { return EncodeOptions{Style: s}.Marshal(v) }

func (o EncodeOptions) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := o.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
