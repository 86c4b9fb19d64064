package horse

import (
	"fmt"
	"slices"
)

// Shape is one link of a version chain ending at type T. Declare the
// chain once, oldest first:
//
//	var (
//		userV1 = horse.Origin[UserV1](horse.V(1, 0, 0))
//		userV2 = horse.Evolve(userV1, horse.V(1, 1, 0), func(o UserV1) UserV2 {
//			return UserV2{Name: o.Name, Email: "unknown"}
//		})
//	)
//
// and decode with the newest link and the version the bytes were written at:
//
//	u, err := userV2.Unmarshal(data, writtenAt)
//
// A Shape is immutable and safe for concurrent use.
type Shape[T any] struct {
	version  Version
	prev     *Version // nil at the origin
	versions []Version
	fromPrev func(d *Deserializer, at Version) (T, error)
}

// Origin declares the oldest shape of a chain.
func Origin[T any](v Version) *Shape[T] {
	return &Shape[T]{version: v, versions: []Version{v}}
}

// Evolve declares a shape that replaces prev at version v. migrate converts
// a value of the previous shape. v must be newer than prev; Evolve panics
// otherwise.
func Evolve[Old, New any](prev *Shape[Old], v Version, migrate func(Old) New) *Shape[New] {
	if prev == nil || migrate == nil {
		panic("horse: Evolve needs a previous shape and a migration")
	}
	if !prev.version.Less(v) {
		panic(fmt.Sprintf("horse: shape version %s must be newer than its predecessor %s", v, prev.version))
	}
	pv := prev.version
	return &Shape[New]{
		version:  v,
		prev:     &pv,
		versions: append(slices.Clone(prev.versions), v),
		fromPrev: func(d *Deserializer, at Version) (New, error) {
			old, err := prev.Decode(d, at)
			if err != nil {
				var zero New
				return zero, err
			}
			d.opts.Logger.Debug("horse: migrated value", Fields{"from": pv.String(), "to": v.String(), "written_at": at.String()})
			return migrate(old), nil
		},
	}
}

// Version is the version this shape was introduced at.
func (s *Shape[T]) Version() Version { return s.version }

// Versions lists the chain, oldest first.
func (s *Shape[T]) Versions() []Version { return slices.Clone(s.versions) }

// Migrates reports whether decoding a value written at at runs at least one
// migration. It is false for at newer than s, and for at between the
// previous shape and s, which decode directly as T.
func (s *Shape[T]) Migrates(at Version) bool {
	return s.prev != nil && !s.prev.Less(at) && !s.version.Less(at)
}

// Decode reads one value written at version at:
//   - at newer than this shape: VersionError (ErrVersionInTheFuture)
//   - the previous shape is still at least as new as at: resolve through the
//     previous shape, then migrate
//   - otherwise (or at the origin): decode directly as T
//
// Every step toward the origin shortens the chain, so the walk terminates.
func (s *Shape[T]) Decode(d *Deserializer, at Version) (T, error) {
	var v T
	if s.version.Less(at) {
		return v, &VersionError{Have: s.version, Want: at}
	}
	if s.prev != nil && !s.prev.Less(at) {
		return s.fromPrev(d, at)
	}
	if err := d.Decode(&v); err != nil {
		return v, err
	}
	return v, nil
}

// Unmarshal decodes data written at version at.
func (s *Shape[T]) Unmarshal(data []byte, at Version) (T, error) {
	return s.UnmarshalWith(DecodeOptions{}, data, at)
}

func (s *Shape[T]) UnmarshalWith(o DecodeOptions, data []byte, at Version) (T, error) {
	var zero T
	d, err := o.NewDeserializer(data)
	if err != nil {
		return zero, err
	}
	v, err := s.Decode(d, at)
	if err != nil {
		return zero, err
	}
	if !d.Done() {
		return zero, fmt.Errorf("horse: decoding %s left %d of %d tokens unread", at, d.Len()-d.Pos(), d.Len())
	}
	return v, nil
}

// Marshal encodes v as written at s.Version().
func (s *Shape[T]) Marshal(v T, style Style) ([]byte, error) {
	return MarshalStyle(&v, style)
}
