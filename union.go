package horse

import (
	"fmt"
	"reflect"
	"sync"
)

// Enum is implemented by integer types whose values are the variants of a
// payload-less tagged union. The value is the variant index.
//
//	type Color uint8
//	func (Color) EnumVariants() []string { return []string{"Red", "Green", "Blue"} }
type Enum interface {
	EnumVariants() []string
}

// VariantKind is the payload shape of a union variant.
type VariantKind uint8

const (
	// UnitVariant has no payload; only the discriminant is written.
	UnitVariant VariantKind = iota
	// NewtypeVariant carries the variant value itself as payload.
	NewtypeVariant
	// TupleVariant carries the struct fields positionally as a list.
	TupleVariant
	// StructVariant carries the struct as a record (list or dict per style).
	StructVariant
)

func (k VariantKind) String() string {
	switch k {
	case UnitVariant:
		return "unit"
	case NewtypeVariant:
		return "newtype"
	case TupleVariant:
		return "tuple"
	case StructVariant:
		return "struct"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Variant declares one member of a union. Build it with Unit, Newtype,
// Tuple or Struct.
type Variant struct {
	Name string
	Kind VariantKind
	typ  reflect.Type
}

func Unit[T any](name string) Variant {
	return Variant{Name: name, Kind: UnitVariant, typ: reflect.TypeFor[T]()}
}

func Newtype[T any](name string) Variant {
	return Variant{Name: name, Kind: NewtypeVariant, typ: reflect.TypeFor[T]()}
}

func Tuple[T any](name string) Variant {
	return Variant{Name: name, Kind: TupleVariant, typ: reflect.TypeFor[T]()}
}

func Struct[T any](name string) Variant {
	return Variant{Name: name, Kind: StructVariant, typ: reflect.TypeFor[T]()}
}

type union struct {
	iface    reflect.Type
	variants []Variant
	names    []string
	byType   map[reflect.Type]int
}

var unions sync.Map // interface reflect.Type -> *union

// RegisterUnion declares the concrete types that an interface type I may
// hold. Fields, elements and map values of type I then encode as tagged
// union values, with the discriminant being the variant's position in
// variants (Compact) or its name (Expressive).
//
// Every variant type must implement I with a value receiver. Registering
// the same interface twice, or an invalid declaration, panics; call it from
// an init function.
func RegisterUnion[I any](variants ...Variant) {
	it := reflect.TypeFor[I]()
	if it.Kind() != reflect.Interface {
		panic(fmt.Sprintf("horse: RegisterUnion: %s is not an interface type", it))
	}
	u := &union{
		iface:    it,
		variants: variants,
		names:    make([]string, len(variants)),
		byType:   make(map[reflect.Type]int, len(variants)),
	}
	seen := make(map[string]bool, len(variants))
	for i, v := range variants {
		switch {
		case v.typ == nil:
			panic(fmt.Sprintf("horse: RegisterUnion[%s]: variant %d has no type", it, i))
		case v.typ.Kind() == reflect.Pointer || v.typ.Kind() == reflect.Interface:
			panic(fmt.Sprintf("horse: RegisterUnion[%s]: variant %q must be a value type, got %s", it, v.Name, v.typ))
		case !v.typ.Implements(it):
			panic(fmt.Sprintf("horse: RegisterUnion[%s]: %s does not implement it", it, v.typ))
		case (v.Kind == TupleVariant || v.Kind == StructVariant) && v.typ.Kind() != reflect.Struct:
			panic(fmt.Sprintf("horse: RegisterUnion[%s]: %s variant %q needs a struct type", it, v.Kind, v.Name))
		case seen[v.Name]:
			panic(fmt.Sprintf("horse: RegisterUnion[%s]: duplicate variant name %q", it, v.Name))
		}
		if _, dup := u.byType[v.typ]; dup {
			panic(fmt.Sprintf("horse: RegisterUnion[%s]: type %s registered twice", it, v.typ))
		}
		seen[v.Name] = true
		u.names[i] = v.Name
		u.byType[v.typ] = i
	}
	if _, loaded := unions.LoadOrStore(it, u); loaded {
		panic(fmt.Sprintf("horse: RegisterUnion: %s already registered", it))
	}
}

func lookupUnion(t reflect.Type) *union {
	if u, ok := unions.Load(t); ok {
		return u.(*union)
	}
	return nil
}

var enumType = reflect.TypeFor[Enum]()

func isEnum(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return t.Implements(enumType)
	}
	return false
}

func enumNames(t reflect.Type) []string {
	return reflect.Zero(t).Interface().(Enum).EnumVariants()
}
