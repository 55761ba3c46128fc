package cache

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/dominium-estate/dominium/pkg/log"
)

func newCache(t *testing.T, cfg Config) *Cache {
	t.Helper()
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Stop)
	return c
}

func TestLocalLevel(t *testing.T) {
	c := newCache(t, Config{TTL: time.Minute})

	key := Key("/api/properties/", "page=1&sort=date")
	if _, ok := c.Get(key); ok {
		t.Fatal("unexpected hit on empty cache")
	}

	c.Set(key, []byte(`{"count":1}`))
	got, ok := c.Get(key)
	if !ok || string(got) != `{"count":1}` {
		t.Fatalf("Get = %q, %v", got, ok)
	}

	c.Delete(key)
	if _, ok := c.Get(key); ok {
		t.Fatal("hit after delete")
	}

	c.Set(key, []byte("x"))
	c.Purge()
	if _, ok := c.Get(key); ok {
		t.Fatal("hit after purge")
	}
}

func TestExpiredEntriesMiss(t *testing.T) {
	c := newCache(t, Config{TTL: time.Millisecond})

	c.Set("k", []byte("v"))
	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expired entry returned")
	}
}

func TestUnreachableMemcachedFallsBackToLocal(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	c := newCache(t, Config{TTL: time.Minute, Memcached: "127.0.0.1:1"})
	if _, ok := c.Get("missing"); ok {
		t.Fatal("unexpected hit")
	}
	c.Set("k", []byte("v"))
	got, ok := c.Get("k")
	if !ok || string(got) != "v" {
		t.Fatalf("Get = %q, %v", got, ok)
	}
	if !strings.Contains(buf.String(), "memcached set k") {
		t.Errorf("remote failure not logged: %q", buf.String())
	}
}

func TestKeyShape(t *testing.T) {
	k := Key("a", "b")
	if !strings.HasPrefix(k, keyPrefix) || len(k) != len(keyPrefix)+40 {
		t.Fatalf("unexpected key %q", k)
	}
	if Key("a", "b") != k || Key("ab") == k {
		t.Fatal("keys must be stable and part-aware")
	}
}

func TestRemoteExpiration(t *testing.T) {
	tests := []struct {
		name string
		ttl  time.Duration
		want int32
	}{
		{"seconds", 90 * time.Second, 90},
		{"sub second rounds up", 300 * time.Millisecond, 1},
		{"thirty days", 30 * 24 * time.Hour, 2592000},
		{"longer is clamped", 90 * 24 * time.Hour, 2592000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := expiration(tt.ttl); got != tt.want {
				t.Errorf("expiration(%v) = %d, want %d", tt.ttl, got, tt.want)
			}
		})
	}
}
