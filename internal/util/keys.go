package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// StorageKey namespaces key under prefix as prefix + ":" + key. Keys longer
// than max bytes are replaced by prefix + "#" + hex(sha256(key)) so that
// provider key limits hold; the separators keep both forms disjoint.
// max <= 0 disables hashing.
func StorageKey(prefix, key string, max int) string {
	if max <= 0 || len(key) <= max {
		return prefix + ":" + key
	}
	sum := sha256.Sum256([]byte(key))
	return prefix + "#" + hex.EncodeToString(sum[:])
}
