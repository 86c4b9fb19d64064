package store

import "github.com/unkn0wn-root/horse"

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The store calls them on hot paths.
type Hooks interface {
	// An entry was deleted by the store on read.
	// reason ∈ {"corrupt", "value_decode"}
	SelfHeal(storageKey, reason string)

	// An entry written at an older version was migrated on read.
	Migrated(storageKey string, from, to horse.Version)

	// An entry was written by a newer version than this store reads.
	FutureVersion(storageKey string, at horse.Version)

	// Provider returned ok=false on Set (backpressure/eviction).
	// upgrade is true for write-backs made by UpgradeOnRead.
	ProviderSetRejected(storageKey string, upgrade bool)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) SelfHeal(string, string)                       {}
func (NopHooks) Migrated(string, horse.Version, horse.Version) {}
func (NopHooks) FutureVersion(string, horse.Version)           {}
func (NopHooks) ProviderSetRejected(string, bool)              {}
