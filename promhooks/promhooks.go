// Package promhooks counts store events with Prometheus counters.
package promhooks

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/unkn0wn-root/horse"
	"github.com/unkn0wn-root/horse/store"
)

type Options struct {
	Namespace string // metric namespace; "" => "horse"
	Subsystem string // e.g. "user_store"
	// Registerer to register the counters with; nil => prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
}

type Hooks struct {
	selfHeal    *prometheus.CounterVec
	migrated    *prometheus.CounterVec
	future      *prometheus.CounterVec
	setRejected *prometheus.CounterVec
}

var _ store.Hooks = (*Hooks)(nil)

// New registers the counters and returns hooks that increment them. It
// panics if the counters are already registered with the same registerer.
func New(o Options) *Hooks {
	if o.Namespace == "" {
		o.Namespace = "horse"
	}
	if o.Registerer == nil {
		o.Registerer = prometheus.DefaultRegisterer
	}
	f := promauto.With(o.Registerer)
	opts := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{
			Namespace: o.Namespace,
			Subsystem: o.Subsystem,
			Name:      name,
			Help:      help,
		}
	}
	return &Hooks{
		selfHeal: f.NewCounterVec(opts("self_heal_total",
			"Entries deleted on read because they could not be decoded"), []string{"reason"}),
		migrated: f.NewCounterVec(opts("migrated_total",
			"Entries read at an older version and migrated"), []string{"from", "to"}),
		future: f.NewCounterVec(opts("future_version_total",
			"Entries refused because a newer version wrote them"), []string{"written_at"}),
		setRejected: f.NewCounterVec(opts("provider_set_rejected_total",
			"Writes the provider rejected under pressure"), []string{"kind"}),
	}
}

func (h *Hooks) SelfHeal(_ string, reason string) {
	h.selfHeal.WithLabelValues(reason).Inc()
}

func (h *Hooks) Migrated(_ string, from, to horse.Version) {
	h.migrated.WithLabelValues(from.String(), to.String()).Inc()
}

func (h *Hooks) FutureVersion(_ string, at horse.Version) {
	h.future.WithLabelValues(at.String()).Inc()
}

func (h *Hooks) ProviderSetRejected(_ string, upgrade bool) {
	kind := "put"
	if upgrade {
		kind = "upgrade"
	}
	h.setRejected.WithLabelValues(kind).Inc()
}
