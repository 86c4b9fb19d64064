// Package store persists typed values as versioned horse frames in a
// provider.Provider. Values are written at the newest version of a
// horse.Shape; entries written by older code are migrated on read, entries
// written by newer code are refused with horse.ErrVersionInTheFuture, and
// entries that fail to decode are deleted and reported as misses.
package store

import (
	"context"
	"time"

	"github.com/unkn0wn-root/horse"
	"github.com/unkn0wn-root/horse/frame"
	pr "github.com/unkn0wn-root/horse/provider"
)

type SetCostFunc func(storageKey string, raw []byte) int64

// Store is the typed, provider-agnostic API over framed horse values.
type Store[V any] interface {
	Enabled() bool
	Close(context.Context) error

	// Single
	Get(ctx context.Context, key string) (v V, ok bool, err error)
	Put(ctx context.Context, key string, value V, ttl time.Duration) error
	Del(ctx context.Context, key string) error

	// Stat reads the frame header of key without decoding the value.
	Stat(ctx context.Context, key string) (h frame.Header, ok bool, err error)

	// Many (order-agnostic return; use your own ordering by keys slice)
	GetMany(ctx context.Context, keys []string) (values map[string]V, missing []string, err error)
	PutMany(ctx context.Context, items map[string]V, ttl time.Duration) error
}

// Options tune the behavior of the store.
// Namespace, Provider and Shape are required; others have sensible defaults.
type Options[V any] struct {
	// Required
	Namespace string // logical namespace to avoid collisions. e.g. "user", "profile"
	Provider  pr.Provider
	Shape     *horse.Shape[V] // newest shape; values are written at Shape.Version()

	Style          horse.Style         // Compact (default) or Expressive
	Frame          frame.Options       // compression; zero => uncompressed
	Decode         horse.DecodeOptions // passed to every decode
	Logger         horse.Logger        // if nil, NopLogger is used
	Hooks          Hooks               // if nil, NopHooks is used
	DefaultTTL     time.Duration       // 0 => 10m
	MaxKeyLen      int                 // longer keys are hashed; 0 => 200, <0 => never hash
	UpgradeOnRead  bool                // rewrite migrated entries at the current version
	Disabled       bool                // default false (enabled)
	ComputeSetCost SetCostFunc         // default 0 (provider decides)
}

func New[V any](opts Options[V]) (Store[V], error) {
	return newStore[V](opts)
}
