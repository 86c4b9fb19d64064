package promhooks

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/unkn0wn-root/horse"
)

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := New(Options{Subsystem: "user_store", Registerer: reg})

	h.SelfHeal("k", "corrupt")
	h.SelfHeal("k", "corrupt")
	h.SelfHeal("k", "value_decode")
	h.Migrated("k", horse.V(1, 0, 0), horse.V(2, 0, 0))
	h.FutureVersion("k", horse.V(3, 0, 0))
	h.ProviderSetRejected("k", true)

	cases := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"corrupt", h.selfHeal.WithLabelValues("corrupt"), 2},
		{"value_decode", h.selfHeal.WithLabelValues("value_decode"), 1},
		{"migrated", h.migrated.WithLabelValues("1.0.0", "2.0.0"), 1},
		{"future", h.future.WithLabelValues("3.0.0"), 1},
		{"upgrade rejected", h.setRejected.WithLabelValues("upgrade"), 1},
		{"put rejected", h.setRejected.WithLabelValues("put"), 0},
	}
	for _, tc := range cases {
		if got := testutil.ToFloat64(tc.c); got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}

	n, err := testutil.GatherAndCount(reg, "horse_user_store_self_heal_total")
	if err != nil {
		t.Fatalf("GatherAndCount: %v", err)
	}
	if n != 2 {
		t.Fatalf("self_heal series: %d", n)
	}
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(Options{Registerer: reg})
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	New(Options{Registerer: reg})
}
