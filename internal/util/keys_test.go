package util

import (
	"strings"
	"testing"
)

func TestStorageKey(t *testing.T) {
	if got := StorageKey("horse:user", "42", 8); got != "horse:user:42" {
		t.Fatalf("short key: %q", got)
	}
	if got := StorageKey("horse:user", strings.Repeat("k", 100), 0); got != "horse:user:"+strings.Repeat("k", 100) {
		t.Fatalf("hashing disabled: %q", got)
	}

	long := strings.Repeat("k", 9)
	a := StorageKey("horse:user", long, 8)
	if !strings.HasPrefix(a, "horse:user#") || len(a) != len("horse:user#")+64 {
		t.Fatalf("long key: %q", a)
	}
	if b := StorageKey("horse:user", long, 8); a != b {
		t.Fatalf("not deterministic: %q vs %q", a, b)
	}
	if c := StorageKey("horse:user", long+"x", 8); a == c {
		t.Fatalf("distinct keys collided: %q", a)
	}
}
