package codec

import (
	"fmt"

	"github.com/unkn0wn-root/horse"
	"github.com/unkn0wn-root/horse/frame"
)

// Horse encodes V in the horse format without version metadata. The zero
// value writes Compact and decodes strictly.
type Horse[V any] struct {
	Style   horse.Style
	Options horse.DecodeOptions
}

var _ Codec[int] = Horse[int]{}

func (c Horse[V]) Encode(v V) ([]byte, error) {
	// &v so a registered union interface V keeps its discriminant
	return horse.MarshalStyle(&v, c.Style)
}

func (c Horse[V]) Decode(b []byte) (V, error) {
	var v V
	err := c.Options.Unmarshal(b, &v)
	return v, err
}

// Versioned frames horse payloads with the shape version they were written
// at (see package frame) and resolves older payloads through the shape's
// migrations on Decode. Construct with NewVersioned.
type Versioned[V any] struct {
	shape *horse.Shape[V]
	opts  VersionedOptions
}

var _ Codec[int] = (*Versioned[int])(nil)

// VersionedOptions configures a Versioned codec. The zero value writes
// Compact, uncompressed frames and decodes strictly.
type VersionedOptions struct {
	Style  horse.Style
	Frame  frame.Options
	Decode horse.DecodeOptions
}

func NewVersioned[V any](shape *horse.Shape[V], o VersionedOptions) *Versioned[V] {
	if shape == nil {
		panic("codec: NewVersioned needs a shape")
	}
	return &Versioned[V]{shape: shape, opts: o}
}

// Shape returns the newest shape this codec reads and writes.
func (c *Versioned[V]) Shape() *horse.Shape[V] { return c.shape }

func (c *Versioned[V]) Encode(v V) ([]byte, error) {
	payload, err := c.shape.Marshal(v, c.opts.Style)
	if err != nil {
		return nil, err
	}
	return frame.Encode(c.shape.Version(), payload, c.opts.Frame)
}

func (c *Versioned[V]) Decode(b []byte) (V, error) {
	v, _, err := c.DecodeVersion(b)
	return v, err
}

// DecodeVersion is Decode that also reports the version the payload was
// written at. Frame damage is reported as frame.ErrCorrupt; payloads newer
// than the shape as horse.ErrVersionInTheFuture.
func (c *Versioned[V]) DecodeVersion(b []byte) (V, horse.Version, error) {
	var zero V
	h, payload, err := frame.Decode(b)
	if err != nil {
		return zero, horse.Version{}, err
	}
	v, err := c.shape.UnmarshalWith(c.opts.Decode, payload, h.Version)
	if err != nil {
		return zero, h.Version, fmt.Errorf("codec: decode at %s: %w", h.Version, err)
	}
	return v, h.Version, nil
}
