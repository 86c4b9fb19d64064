package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/unkn0wn-root/horse"
	"github.com/unkn0wn-root/horse/codec"
	"github.com/unkn0wn-root/horse/frame"
	"github.com/unkn0wn-root/horse/internal/util"
	pr "github.com/unkn0wn-root/horse/provider"
)

const (
	defaultTTL       = 10 * time.Minute
	defaultMaxKeyLen = 200
	keyPrefix        = "horse"
)

type store[V any] struct {
	ns             string
	prefix         string
	provider       pr.Provider
	codec          *codec.Versioned[V]
	log            horse.Logger
	hooks          Hooks
	enabled        bool
	upgrade        bool
	defaultTTL     time.Duration
	maxKeyLen      int
	computeSetCost SetCostFunc
}

func newStore[V any](opts Options[V]) (*store[V], error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("store: provider is required")
	}
	if opts.Shape == nil {
		return nil, fmt.Errorf("store: shape is required")
	}
	if opts.Namespace == "" {
		return nil, fmt.Errorf("store: namespace is required")
	}

	s := &store[V]{
		ns:       opts.Namespace,
		prefix:   keyPrefix + ":" + opts.Namespace,
		provider: opts.Provider,
		codec: codec.NewVersioned(opts.Shape, codec.VersionedOptions{
			Style:  opts.Style,
			Frame:  opts.Frame,
			Decode: opts.Decode,
		}),
		enabled: !opts.Disabled,
		upgrade: opts.UpgradeOnRead,
	}

	// defaults
	s.log = coalesce[horse.Logger](opts.Logger, horse.NopLogger{})
	s.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	s.defaultTTL = coalesce[time.Duration](opts.DefaultTTL, defaultTTL)
	s.maxKeyLen = coalesce[int](opts.MaxKeyLen, defaultMaxKeyLen)

	if opts.ComputeSetCost != nil {
		s.computeSetCost = opts.ComputeSetCost
	} else {
		s.computeSetCost = func(string, []byte) int64 { return 0 }
	}
	return s, nil
}

func (s *store[V]) Enabled() bool { return s.enabled }

func (s *store[V]) Close(ctx context.Context) error {
	if s.provider != nil {
		return s.provider.Close(ctx)
	}
	return nil
}

func (s *store[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	if !s.enabled {
		return zero, false, nil
	}
	k := s.storageKey(key)
	raw, ok, err := s.provider.Get(ctx, k)
	if err != nil || !ok {
		return zero, false, err
	}

	v, at, err := s.codec.DecodeVersion(raw)
	switch {
	case err == nil:
	case errors.Is(err, horse.ErrVersionInTheFuture):
		// written by newer code; leave it for the readers that understand it
		s.hooks.FutureVersion(k, at)
		return zero, false, err
	case errors.Is(err, frame.ErrCorrupt):
		s.heal(ctx, k, "corrupt", err)
		return zero, false, nil
	default:
		s.heal(ctx, k, "value_decode", err)
		return zero, false, nil
	}

	if shape := s.codec.Shape(); shape.Migrates(at) {
		s.hooks.Migrated(k, at, shape.Version())
		if s.upgrade {
			s.writeBack(ctx, k, v)
		}
	}
	return v, true, nil
}

func (s *store[V]) Put(ctx context.Context, key string, value V, ttl time.Duration) error {
	if !s.enabled {
		return nil
	}
	if ttl == 0 {
		ttl = s.defaultTTL
	}
	k := s.storageKey(key)
	raw, err := s.codec.Encode(value)
	if err != nil {
		return fmt.Errorf("store: encode %q: %w", key, err)
	}
	ok, err := s.provider.Set(ctx, k, raw, s.computeSetCost(k, raw), ttl)
	if err != nil {
		return err
	}
	if !ok {
		s.hooks.ProviderSetRejected(k, false)
		s.log.Debug("Put rejected by provider (pressure)", horse.Fields{"key": key})
	}
	return nil
}

func (s *store[V]) Del(ctx context.Context, key string) error {
	if !s.enabled {
		return nil
	}
	return s.provider.Del(ctx, s.storageKey(key))
}

func (s *store[V]) Stat(ctx context.Context, key string) (frame.Header, bool, error) {
	if !s.enabled {
		return frame.Header{}, false, nil
	}
	raw, ok, err := s.provider.Get(ctx, s.storageKey(key))
	if err != nil || !ok {
		return frame.Header{}, false, err
	}
	h, err := frame.Peek(raw)
	if err != nil {
		return frame.Header{}, false, err
	}
	return h, true, nil
}

func (s *store[V]) GetMany(ctx context.Context, keys []string) (map[string]V, []string, error) {
	out := make(map[string]V, len(keys))
	if !s.enabled {
		missing := make([]string, 0, len(keys))
		missing = append(missing, keys...)
		return out, missing, nil
	}

	var (
		missing []string
		errs    []error
	)
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		v, ok, err := s.Get(ctx, key)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		if ok {
			out[key] = v
		} else {
			missing = append(missing, key)
		}
	}
	return out, missing, errors.Join(errs...)
}

func (s *store[V]) PutMany(ctx context.Context, items map[string]V, ttl time.Duration) error {
	if !s.enabled || len(items) == 0 {
		return nil
	}
	// deterministic key order
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, k := range keys {
		if err := s.Put(ctx, k, items[k], ttl); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *store[V]) heal(ctx context.Context, storageKey, reason string, cause error) {
	delErr := s.provider.Del(ctx, storageKey)
	s.hooks.SelfHeal(storageKey, reason)
	f := horse.Fields{"key": storageKey, "reason": reason, "err": cause}
	if delErr != nil {
		f["del_err"] = delErr
		s.log.Warn("self-heal delete failed", f)
		return
	}
	s.log.Debug("self-healed entry", f)
}

// writeBack re-encodes a migrated value at the current version. The
// provider does not report remaining TTLs, so the entry gets DefaultTTL.
func (s *store[V]) writeBack(ctx context.Context, storageKey string, v V) {
	raw, err := s.codec.Encode(v)
	if err != nil {
		s.log.Warn("upgrade encode failed", horse.Fields{"key": storageKey, "err": err})
		return
	}
	ok, err := s.provider.Set(ctx, storageKey, raw, s.computeSetCost(storageKey, raw), s.defaultTTL)
	switch {
	case err != nil:
		s.log.Warn("upgrade write-back failed", horse.Fields{"key": storageKey, "err": err})
	case !ok:
		s.hooks.ProviderSetRejected(storageKey, true)
	}
}

func (s *store[V]) storageKey(userKey string) string {
	// isolate by namespace
	return util.StorageKey(s.prefix, userKey, s.maxKeyLen)
}

func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
