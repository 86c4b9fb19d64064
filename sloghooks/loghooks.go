package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/horse"
	"github.com/unkn0wn-root/horse/store"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SelfHealEvery uint64
	MigratedEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	selfHealCtr atomic.Uint64
	migratedCtr atomic.Uint64
}

var _ store.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) SelfHeal(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("horse.self_heal",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) Migrated(storageKey string, from, to horse.Version) {
	if h.l == nil || !sample(h.opts.MigratedEvery, &h.migratedCtr) {
		return
	}
	h.l.Debug("horse.migrated",
		"key", h.redact(storageKey),
		"from", from.String(),
		"to", to.String())
}

func (h *Hooks) FutureVersion(storageKey string, at horse.Version) {
	if h.l == nil {
		return
	}
	h.l.Warn("horse.future_version",
		"key", h.redact(storageKey),
		"written_at", at.String())
}

func (h *Hooks) ProviderSetRejected(storageKey string, upgrade bool) {
	if h.l == nil {
		return
	}
	h.l.Warn("horse.provider_set_rejected",
		"key", h.redact(storageKey),
		"upgrade", upgrade)
}
