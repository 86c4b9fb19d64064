package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/unkn0wn-root/horse"
	"github.com/unkn0wn-root/horse/frame"
	pr "github.com/unkn0wn-root/horse/provider"
)

type memEntry struct {
	v   []byte
	exp time.Time // zero => no TTL
}

type memProvider struct {
	mu     sync.Mutex
	m      map[string]memEntry
	reject bool
}

var _ pr.Provider = (*memProvider)(nil)

func newMemProvider() *memProvider { return &memProvider{m: make(map[string]memEntry)} }

func (p *memProvider) Get(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.m[key]
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		delete(p.m, key)
		return nil, false, nil
	}
	return e.v, true, nil
}

func (p *memProvider) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reject {
		return false, nil
	}
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	p.m[key] = memEntry{v: append([]byte(nil), value...), exp: exp}
	return true, nil
}

func (p *memProvider) Del(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.m, key)
	return nil
}

func (p *memProvider) Close(_ context.Context) error { return nil }

func (p *memProvider) has(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.m[key]
	return ok
}

func (p *memProvider) put(key string, raw []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.m[key] = memEntry{v: raw}
}

type userV1 struct {
	ID   uint32
	Name string
}

type userV2 struct {
	ID    uint32
	First string
	Last  string
}

var (
	userShapeV1 = horse.Origin[userV1](horse.V(1, 0, 0))
	userShapeV2 = horse.Evolve(userShapeV1, horse.V(2, 0, 0), func(o userV1) userV2 {
		first, last, _ := strings.Cut(o.Name, " ")
		return userV2{ID: o.ID, First: first, Last: last}
	})
)

type event struct {
	kind, key, reason string
	from, to          horse.Version
	upgrade           bool
}

type recordingHooks struct {
	mu     sync.Mutex
	events []event
}

func (h *recordingHooks) add(e event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
}

func (h *recordingHooks) SelfHeal(k, r string) { h.add(event{kind: "self_heal", key: k, reason: r}) }
func (h *recordingHooks) Migrated(k string, from, to horse.Version) {
	h.add(event{kind: "migrated", key: k, from: from, to: to})
}
func (h *recordingHooks) FutureVersion(k string, at horse.Version) {
	h.add(event{kind: "future", key: k, from: at})
}
func (h *recordingHooks) ProviderSetRejected(k string, upgrade bool) {
	h.add(event{kind: "rejected", key: k, upgrade: upgrade})
}

func (h *recordingHooks) all() []event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]event(nil), h.events...)
}

func newTestStore[V any](t *testing.T, mp pr.Provider, shape *horse.Shape[V], optsOpt func(*Options[V])) Store[V] {
	t.Helper()
	opts := Options[V]{
		Namespace: "user",
		Provider:  mp,
		Shape:     shape,
	}
	if optsOpt != nil {
		optsOpt(&opts)
	}
	s, err := New[V](opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

var allowUnexported = cmp.AllowUnexported(event{})

func TestNewValidation(t *testing.T) {
	mp := newMemProvider()
	cases := map[string]Options[userV2]{
		"provider":  {Namespace: "u", Shape: userShapeV2},
		"shape":     {Namespace: "u", Provider: mp},
		"namespace": {Provider: mp, Shape: userShapeV2},
	}
	for name, o := range cases {
		if _, err := New[userV2](o); err == nil || !strings.Contains(err.Error(), name) {
			t.Fatalf("%s: expected required error, got %v", name, err)
		}
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	for _, style := range []horse.Style{horse.Compact, horse.Expressive} {
		s := newTestStore(t, mp, userShapeV2, func(o *Options[userV2]) {
			o.Style = style
			o.Frame = frame.Options{Compression: frame.LZ4, MinCompressSize: 1}
		})
		in := userV2{ID: 7, First: strings.Repeat("a", 64), Last: strings.Repeat("b", 64)}
		if err := s.Put(ctx, "7", in, 0); err != nil {
			t.Fatalf("%s Put: %v", style, err)
		}
		if !mp.has("horse:user:7") {
			t.Fatalf("%s: expected storage key horse:user:7", style)
		}
		got, ok, err := s.Get(ctx, "7")
		if err != nil || !ok {
			t.Fatalf("%s Get: ok=%v err=%v", style, ok, err)
		}
		if diff := cmp.Diff(in, got); diff != "" {
			t.Fatalf("%s (-want +got):\n%s", style, diff)
		}
		h, ok, err := s.Stat(ctx, "7")
		if err != nil || !ok {
			t.Fatalf("%s Stat: ok=%v err=%v", style, ok, err)
		}
		if h.Version != horse.V(2, 0, 0) || h.Compression != frame.LZ4 {
			t.Fatalf("%s Stat: %+v", style, h)
		}
	}
}

func TestGetMissAndDel(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, newMemProvider(), userShapeV2, nil)
	if _, ok, err := s.Get(ctx, "nope"); ok || err != nil {
		t.Fatalf("miss: ok=%v err=%v", ok, err)
	}
	if _, ok, err := s.Stat(ctx, "nope"); ok || err != nil {
		t.Fatalf("stat miss: ok=%v err=%v", ok, err)
	}
	if err := s.Put(ctx, "k", userV2{ID: 1}, time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Del(ctx, "k"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatalf("expected miss after Del")
	}
}

func TestMigrateOnRead(t *testing.T) {
	ctx := context.Background()
	for _, upgrade := range []bool{false, true} {
		mp := newMemProvider()
		old := newTestStore(t, mp, userShapeV1, func(o *Options[userV1]) { o.Style = horse.Expressive })
		if err := old.Put(ctx, "1", userV1{ID: 1, Name: "Ada Lovelace"}, 0); err != nil {
			t.Fatalf("Put: %v", err)
		}

		hooks := &recordingHooks{}
		cur := newTestStore(t, mp, userShapeV2, func(o *Options[userV2]) {
			o.Hooks = hooks
			o.UpgradeOnRead = upgrade
		})
		got, ok, err := cur.Get(ctx, "1")
		if err != nil || !ok {
			t.Fatalf("upgrade=%v Get: ok=%v err=%v", upgrade, ok, err)
		}
		if diff := cmp.Diff(userV2{ID: 1, First: "Ada", Last: "Lovelace"}, got); diff != "" {
			t.Fatalf("upgrade=%v (-want +got):\n%s", upgrade, diff)
		}
		want := []event{{kind: "migrated", key: "horse:user:1", from: horse.V(1, 0, 0), to: horse.V(2, 0, 0)}}
		if diff := cmp.Diff(want, hooks.all(), allowUnexported); diff != "" {
			t.Fatalf("upgrade=%v hooks (-want +got):\n%s", upgrade, diff)
		}

		h, _, err := cur.Stat(ctx, "1")
		if err != nil {
			t.Fatalf("Stat: %v", err)
		}
		wantAt := horse.V(1, 0, 0)
		if upgrade {
			wantAt = horse.V(2, 0, 0)
		}
		if h.Version != wantAt {
			t.Fatalf("upgrade=%v: entry at %s, want %s", upgrade, h.Version, wantAt)
		}
	}
}

func TestBetweenVersionsIsNotMigrated(t *testing.T) {
	ctx := context.Background()
	payload, err := horse.Marshal(&userV2{ID: 5, First: "a", Last: "b"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	// newer than the v1 link, older than v2: decodes directly as userV2
	raw, err := frame.Encode(horse.V(1, 5, 0), payload, frame.Options{})
	if err != nil {
		t.Fatalf("frame.Encode: %v", err)
	}
	mp := newMemProvider()
	mp.put("horse:user:5", raw)

	hooks := &recordingHooks{}
	s := newTestStore(t, mp, userShapeV2, func(o *Options[userV2]) {
		o.Hooks = hooks
		o.UpgradeOnRead = true
	})
	got, ok, err := s.Get(ctx, "5")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if diff := cmp.Diff(userV2{ID: 5, First: "a", Last: "b"}, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if ev := hooks.all(); len(ev) != 0 {
		t.Fatalf("unexpected hooks: %+v", ev)
	}
	if h, _, _ := s.Stat(ctx, "5"); h.Version != horse.V(1, 5, 0) {
		t.Fatalf("entry rewritten at %s", h.Version)
	}
}

func TestFutureVersionIsKept(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	cur := newTestStore(t, mp, userShapeV2, nil)
	if err := cur.Put(ctx, "1", userV2{ID: 1, First: "x"}, 0); err != nil {
		t.Fatalf("Put: %v", err)
	}

	hooks := &recordingHooks{}
	old := newTestStore(t, mp, userShapeV1, func(o *Options[userV1]) { o.Hooks = hooks })
	_, ok, err := old.Get(ctx, "1")
	if ok || !errors.Is(err, horse.ErrVersionInTheFuture) {
		t.Fatalf("expected ErrVersionInTheFuture, got ok=%v err=%v", ok, err)
	}
	var ve *horse.VersionError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *horse.VersionError, got %T", err)
	}
	if !mp.has("horse:user:1") {
		t.Fatalf("future entry must not be deleted")
	}
	want := []event{{kind: "future", key: "horse:user:1", from: horse.V(2, 0, 0)}}
	if diff := cmp.Diff(want, hooks.all(), allowUnexported); diff != "" {
		t.Fatalf("hooks (-want +got):\n%s", diff)
	}
}

func TestSelfHeal(t *testing.T) {
	ctx := context.Background()
	badValue, err := frame.Encode(horse.V(1, 0, 0), []byte{0xFF}, frame.Options{})
	if err != nil {
		t.Fatalf("frame.Encode: %v", err)
	}
	cases := []struct {
		name   string
		raw    []byte
		reason string
	}{
		{"garbage", []byte("not a frame"), "corrupt"},
		{"bad value", badValue, "value_decode"},
	}
	for _, tc := range cases {
		mp := newMemProvider()
		mp.put("horse:user:1", tc.raw)
		hooks := &recordingHooks{}
		s := newTestStore(t, mp, userShapeV2, func(o *Options[userV2]) { o.Hooks = hooks })

		if _, ok, err := s.Get(ctx, "1"); ok || err != nil {
			t.Fatalf("%s: expected silent miss, got ok=%v err=%v", tc.name, ok, err)
		}
		if mp.has("horse:user:1") {
			t.Fatalf("%s: entry not deleted", tc.name)
		}
		want := []event{{kind: "self_heal", key: "horse:user:1", reason: tc.reason}}
		if diff := cmp.Diff(want, hooks.all(), allowUnexported); diff != "" {
			t.Fatalf("%s hooks (-want +got):\n%s", tc.name, diff)
		}
	}
}

func TestProviderSetRejected(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	mp.reject = true
	hooks := &recordingHooks{}
	s := newTestStore(t, mp, userShapeV2, func(o *Options[userV2]) { o.Hooks = hooks })
	if err := s.Put(ctx, "1", userV2{ID: 1}, 0); err != nil {
		t.Fatalf("rejection is not an error: %v", err)
	}
	want := []event{{kind: "rejected", key: "horse:user:1"}}
	if diff := cmp.Diff(want, hooks.all(), allowUnexported); diff != "" {
		t.Fatalf("hooks (-want +got):\n%s", diff)
	}
}

func TestManyOperations(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	s := newTestStore(t, mp, userShapeV2, nil)

	items := map[string]userV2{
		"a": {ID: 1, First: "a"},
		"b": {ID: 2, First: "b"},
	}
	if err := s.PutMany(ctx, items, 0); err != nil {
		t.Fatalf("PutMany: %v", err)
	}
	mp.put("horse:user:c", []byte("junk"))

	got, missing, err := s.GetMany(ctx, []string{"a", "b", "c", "d", "a"})
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if diff := cmp.Diff(items, got); diff != "" {
		t.Fatalf("values (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"c", "d"}, missing); diff != "" {
		t.Fatalf("missing (-want +got):\n%s", diff)
	}
}

func TestGetManyReportsFutureVersions(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	cur := newTestStore(t, mp, userShapeV2, nil)
	if err := cur.Put(ctx, "new", userV2{ID: 2}, 0); err != nil {
		t.Fatalf("Put: %v", err)
	}
	old := newTestStore(t, mp, userShapeV1, nil)
	if err := old.Put(ctx, "old", userV1{ID: 1}, 0); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, missing, err := old.GetMany(ctx, []string{"old", "new"})
	if !errors.Is(err, horse.ErrVersionInTheFuture) {
		t.Fatalf("expected ErrVersionInTheFuture, got %v", err)
	}
	if len(got) != 1 || got["old"].ID != 1 {
		t.Fatalf("values: %+v", got)
	}
	if len(missing) != 1 || missing[0] != "new" {
		t.Fatalf("missing: %v", missing)
	}
}

func TestLongKeysAreHashed(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	s := newTestStore(t, mp, userShapeV2, func(o *Options[userV2]) { o.MaxKeyLen = 8 })
	long := strings.Repeat("k", 32)
	if err := s.Put(ctx, long, userV2{ID: 3}, 0); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if mp.has("horse:user:" + long) {
		t.Fatalf("long key stored verbatim")
	}
	if v, ok, err := s.Get(ctx, long); err != nil || !ok || v.ID != 3 {
		t.Fatalf("Get: %+v ok=%v err=%v", v, ok, err)
	}
}

func TestDisabled(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	s := newTestStore(t, mp, userShapeV2, func(o *Options[userV2]) { o.Disabled = true })
	if s.Enabled() {
		t.Fatalf("expected disabled")
	}
	if err := s.Put(ctx, "1", userV2{ID: 1}, 0); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if mp.has("horse:user:1") {
		t.Fatalf("disabled store wrote to provider")
	}
	_, missing, err := s.GetMany(ctx, []string{"1", "2"})
	if err != nil || len(missing) != 2 {
		t.Fatalf("GetMany: %v %v", missing, err)
	}
}

func TestTTLExpiry(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, newMemProvider(), userShapeV2, nil)
	if err := s.Put(ctx, "1", userV2{ID: 1}, time.Millisecond); err != nil {
		t.Fatalf("Put: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, ok, _ := s.Get(ctx, "1"); ok {
		t.Fatalf("expected expiry")
	}
}
