package horse

import (
	"bufio"
	"fmt"
	"io"
	"reflect"

	"github.com/unkn0wn-root/horse/internal/wire"
)

// Unmarshaler is implemented by types that read their own encoding. The
// method must consume exactly one value from d.
type Unmarshaler interface {
	UnmarshalHorse(d *Deserializer) error
}

var unmarshalerType = reflect.TypeFor[Unmarshaler]()

// Unmarshal decodes data into the value pointed to by v.
func Unmarshal(data []byte, v any) error { return DecodeOptions{}.Unmarshal(data, v) }

func (o DecodeOptions) Unmarshal(data []byte, v any) error {
	d, err := o.NewDeserializer(data)
	if err != nil {
		return err
	}
	if err := d.Decode(v); err != nil {
		return err
	}
	if !d.Done() {
		return fmt.Errorf("horse: decoding %T left %d of %d tokens unread", v, d.Len()-d.Pos(), d.Len())
	}
	return nil
}

// Decode reads one value at the cursor into the value pointed to by v.
func (d *Deserializer) Decode(v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w: Decode needs a non-nil pointer, got %T", ErrUnsupportedType, v)
	}
	return d.value(rv.Elem())
}

func (d *Deserializer) value(v reflect.Value) error {
	t := v.Type()

	if t.Kind() != reflect.Pointer && t.Kind() != reflect.Interface &&
		reflect.PointerTo(t).Implements(unmarshalerType) {
		return v.Addr().Interface().(Unmarshaler).UnmarshalHorse(d)
	}

	switch t {
	case int128Type:
		x, err := d.Int128()
		if err == nil {
			v.Set(reflect.ValueOf(x))
		}
		return err
	case uint128Type:
		x, err := d.Uint128()
		if err == nil {
			v.Set(reflect.ValueOf(x))
		}
		return err
	case charType:
		r, err := d.Char()
		if err == nil {
			v.SetInt(int64(r))
		}
		return err
	case pairType:
		return d.pair(v)
	}
	if isEnum(t) {
		return d.enum(v)
	}

	switch t.Kind() {
	case reflect.Bool:
		b, err := d.Bool()
		if err == nil {
			v.SetBool(b)
		}
		return err

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		x, err := d.intBits(signedType(t.Kind()))
		if err == nil {
			v.SetInt(int64(x))
		}
		return err

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		x, err := d.intBits(unsignedType(t.Kind()))
		if err == nil {
			v.SetUint(x)
		}
		return err

	case reflect.Float32:
		f, err := d.Float32()
		if err == nil {
			v.SetFloat(float64(f))
		}
		return err

	case reflect.Float64:
		f, err := d.Float64()
		if err == nil {
			v.SetFloat(f)
		}
		return err

	case reflect.String:
		p, err := d.Bytes()
		if err == nil {
			v.SetString(string(p))
		}
		return err

	case reflect.Pointer:
		some, err := d.Option()
		if err != nil {
			return err
		}
		if !some {
			v.SetZero()
			return nil
		}
		if v.IsNil() {
			v.Set(reflect.New(t.Elem()))
		}
		return d.value(v.Elem())

	case reflect.Interface:
		return d.iface(v)

	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			p, err := d.Bytes()
			if err == nil {
				v.SetBytes(p)
			}
			return err
		}
		return d.slice(v)

	case reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			p, err := d.Bytes()
			if err != nil {
				return err
			}
			if len(p) != v.Len() {
				return fmt.Errorf("%w: %s from %d bytes", ErrRecordLength, t, len(p))
			}
			reflect.Copy(v, reflect.ValueOf(p))
			return nil
		}
		return d.array(v)

	case reflect.Map:
		return d.dict(v)

	case reflect.Struct:
		return d.structValue(v)
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedType, t)
}

func signedType(k reflect.Kind) Type {
	switch k {
	case reflect.Int8:
		return TypeI8
	case reflect.Int16:
		return TypeI16
	case reflect.Int32:
		return TypeI32
	}
	return TypeI64
}

func unsignedType(k reflect.Kind) Type {
	switch k {
	case reflect.Uint8:
		return TypeU8
	case reflect.Uint16:
		return TypeU16
	case reflect.Uint32:
		return TypeU32
	}
	return TypeU64
}

func (d *Deserializer) iface(v reflect.Value) error {
	t := v.Type()
	if next, err := d.Peek(); err != nil {
		return err
	} else if next == TypeNull {
		d.pos++
		v.SetZero()
		return nil
	}
	if u := lookupUnion(t); u != nil {
		return d.union(v, u)
	}
	if t.NumMethod() != 0 {
		return fmt.Errorf("%w: %s is not a registered union", ErrUnsupportedType, t)
	}
	x, err := d.Any()
	if err != nil {
		return err
	}
	if x == nil {
		v.SetZero()
	} else {
		v.Set(reflect.ValueOf(x))
	}
	return nil
}

func (d *Deserializer) slice(v reflect.Value) error {
	s, err := d.Seq()
	if err != nil {
		return err
	}
	out := reflect.MakeSlice(v.Type(), s.Len(), s.Len())
	for i := 0; s.Next(); i++ {
		if err := d.value(out.Index(i)); err != nil {
			return err
		}
	}
	v.Set(out)
	return nil
}

func (d *Deserializer) array(v reflect.Value) error {
	s, err := d.Seq()
	if err != nil {
		return err
	}
	if s.Len() != v.Len() {
		return fmt.Errorf("%w: %s from %d elements", ErrRecordLength, v.Type(), s.Len())
	}
	for i := 0; s.Next(); i++ {
		if err := d.value(v.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

func (d *Deserializer) dict(v reflect.Value) error {
	m, err := d.Map()
	if err != nil {
		return err
	}
	t := v.Type()
	if v.IsNil() {
		v.Set(reflect.MakeMapWithSize(t, m.Len()))
	}
	for m.Next() {
		if err := d.checkKey(); err != nil {
			return err
		}
		k := reflect.New(t.Key()).Elem()
		if err := d.mapKey(k); err != nil {
			return err
		}
		if !k.Comparable() {
			return fmt.Errorf("%w: %s", ErrUnhashableKey, t.Key())
		}
		e := reflect.New(t.Elem()).Elem()
		if err := d.value(e); err != nil {
			return err
		}
		v.SetMapIndex(k, e)
	}
	return nil
}

// mapKey decodes a dict key into k. Keys of an empty interface type take
// the dynamic key mapping (bin as string) so that they stay hashable.
func (d *Deserializer) mapKey(k reflect.Value) error {
	t := k.Type()
	if t.Kind() != reflect.Interface || t.NumMethod() != 0 || lookupUnion(t) != nil {
		return d.value(k)
	}
	x, err := d.anyKey()
	if err != nil {
		return err
	}
	if x == nil {
		k.SetZero()
	} else {
		k.Set(reflect.ValueOf(x))
	}
	return nil
}

// structValue decodes a struct from either record rendering.
func (d *Deserializer) structValue(v reflect.Value) error {
	si := structFields(v.Type())
	r, err := d.openRecord(si.names, si.byName)
	if err != nil {
		return err
	}
	for {
		i, ok, err := r.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := d.value(v.Field(si.fields[i].index)); err != nil {
			return fmt.Errorf("field %s: %w", si.fields[i].name, err)
		}
	}
}

func (d *Deserializer) pair(v reflect.Value) error {
	if err := d.Pair(); err != nil {
		return err
	}
	a, err := d.Any()
	if err != nil {
		return err
	}
	b, err := d.Any()
	if err != nil {
		return err
	}
	v.Set(reflect.ValueOf(Pair{A: a, B: b}))
	return nil
}

func (d *Deserializer) enum(v reflect.Value) error {
	e, err := d.Enum()
	if err != nil {
		return err
	}
	i, err := e.Variant(enumNames(v.Type()))
	if err != nil {
		return err
	}
	if err := e.Unit(); err != nil {
		return err
	}
	if v.CanInt() {
		v.SetInt(int64(i))
	} else {
		v.SetUint(uint64(i))
	}
	return nil
}

func (d *Deserializer) union(v reflect.Value, u *union) error {
	e, err := d.Enum()
	if err != nil {
		return err
	}
	i, err := e.Variant(u.names)
	if err != nil {
		return err
	}
	vt := u.variants[i]
	x := reflect.New(vt.typ).Elem()

	switch vt.Kind {
	case UnitVariant:
		if err := e.Unit(); err != nil {
			return err
		}
	case NewtypeVariant:
		if err := e.needPayload(); err != nil {
			return err
		}
		if err := d.value(x); err != nil {
			return err
		}
	case TupleVariant:
		si := structFields(vt.typ)
		s, err := e.Tuple(len(si.fields))
		if err != nil {
			return err
		}
		for j := 0; s.Next(); j++ {
			if err := d.value(x.Field(si.fields[j].index)); err != nil {
				return err
			}
		}
	case StructVariant:
		if err := e.needPayload(); err != nil {
			return err
		}
		if err := d.structValue(x); err != nil {
			return err
		}
	}
	v.Set(x)
	return nil
}

// Decoder reads a sequence of values from a stream.
type Decoder struct {
	r    *wire.Reader
	opts DecodeOptions
	toks []wire.Token
}

func NewDecoder(r io.Reader) *Decoder { return DecodeOptions{}.NewDecoder(r) }

func (o DecodeOptions) NewDecoder(r io.Reader) *Decoder {
	o = o.withDefaults()
	if _, ok := r.(io.ByteReader); !ok {
		r = bufio.NewReader(r)
	}
	wr := wire.NewReader(r)
	wr.MaxDepth = o.MaxDepth
	return &Decoder{r: wr, opts: o}
}

// Next reads the next value and returns a cursor over it, valid until the
// following call. At a clean end of stream it returns io.EOF.
func (dec *Decoder) Next() (*Deserializer, error) {
	toks, err := dec.r.ReadValue(dec.toks[:0])
	if err != nil {
		return nil, err
	}
	dec.toks = toks
	return &Deserializer{toks: toks, opts: dec.opts}, nil
}

// Decode reads the next value into v. At a clean end of stream it returns
// io.EOF.
func (dec *Decoder) Decode(v any) error {
	d, err := dec.Next()
	if err != nil {
		return err
	}
	return d.Decode(v)
}
