// usage:
//
// import (
//
//	"log/slog"
//
//	"github.com/unkn0wn-root/horse/hooks/async"
//	"github.com/unkn0wn-root/horse/sloghooks"
//	"github.com/unkn0wn-root/horse/store"
//
// )
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    SelfHealEvery: 10, // sample logs: ~every 10th self-heal
//	})
//
// hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
// defer hooks.Close()
//
//	users, _ := store.New[User](store.Options[User]{
//	    Namespace: "app:prod:user",
//	    Provider:  provider,
//	    Shape:     userShape,
//	    Hooks:     hooks, // or `raw` if you don’t want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/horse"
	"github.com/unkn0wn-root/horse/store"
)

type Hooks struct {
	inner   store.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	dropped atomic.Uint64
}

var _ store.Hooks = (*Hooks)(nil)

func New(inner store.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events raised after
// Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

// Dropped reports how many events were discarded because the queue was full.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	defer func() {
		// send on closed queue
		if recover() != nil {
			h.dropped.Add(1)
		}
	}()
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) SelfHeal(k, r string) { h.try(func() { h.inner.SelfHeal(k, r) }) }
func (h *Hooks) Migrated(k string, from, to horse.Version) {
	h.try(func() { h.inner.Migrated(k, from, to) })
}
func (h *Hooks) FutureVersion(k string, at horse.Version) {
	h.try(func() { h.inner.FutureVersion(k, at) })
}
func (h *Hooks) ProviderSetRejected(k string, upgrade bool) {
	h.try(func() { h.inner.ProviderSetRejected(k, upgrade) })
}
