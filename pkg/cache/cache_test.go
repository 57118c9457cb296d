package cache

import (
	"context"
	"strings"
	"testing"
	"time"
)

// backends that can be exercised without external services.
func localBackends(t *testing.T) map[string]Cache {
	t.Helper()
	fc, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() = %v", err)
	}
	return map[string]Cache{
		"Memory": NewMemoryCache(),
		"File":   fc,
	}
}

func TestCacheRoundTrip(t *testing.T) {
	ctx := context.Background()

	for name, c := range localBackends(t) {
		t.Run(name, func(t *testing.T) {
			defer c.Close()

			if _, ok, err := c.Get(ctx, "missing"); err != nil || ok {
				t.Fatalf("Get(missing) = ok=%v err=%v, want miss", ok, err)
			}

			if err := c.Set(ctx, "k", []byte("payload"), time.Hour); err != nil {
				t.Fatalf("Set() = %v", err)
			}
			data, ok, err := c.Get(ctx, "k")
			if err != nil || !ok {
				t.Fatalf("Get() = ok=%v err=%v, want hit", ok, err)
			}
			if string(data) != "payload" {
				t.Errorf("Get() = %q, want %q", data, "payload")
			}

			if err := c.Delete(ctx, "k"); err != nil {
				t.Fatalf("Delete() = %v", err)
			}
			if _, ok, _ := c.Get(ctx, "k"); ok {
				t.Error("Get() after Delete() still hits")
			}

			// Deleting a missing key is not an error.
			if err := c.Delete(ctx, "never-set"); err != nil {
				t.Errorf("Delete(missing) = %v", err)
			}
		})
	}
}

func TestCacheExpiry(t *testing.T) {
	ctx := context.Background()

	for name, c := range localBackends(t) {
		t.Run(name, func(t *testing.T) {
			defer c.Close()

			if err := c.Set(ctx, "short", []byte("x"), time.Nanosecond); err != nil {
				t.Fatalf("Set() = %v", err)
			}
			time.Sleep(5 * time.Millisecond)
			if _, ok, _ := c.Get(ctx, "short"); ok {
				t.Error("Get() hit on expired entry")
			}

			// Non-positive TTL stores without expiration.
			if err := c.Set(ctx, "forever", []byte("y"), 0); err != nil {
				t.Fatalf("Set() = %v", err)
			}
			if _, ok, _ := c.Get(ctx, "forever"); !ok {
				t.Error("Get() missed entry stored without TTL")
			}
		})
	}
}

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()

	if err := c.Set(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatalf("Set() = %v", err)
	}
	if _, ok, err := c.Get(ctx, "k"); err != nil || ok {
		t.Errorf("Get() = ok=%v err=%v, want permanent miss", ok, err)
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete() = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestMemoryCacheLen(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
	_ = c.Set(ctx, "a", []byte("1"), 0)
	_ = c.Set(ctx, "b", []byte("2"), 0)
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
	_ = c.Close()
	if c.Len() != 0 {
		t.Errorf("Len() after Close() = %d, want 0", c.Len())
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() = %v", err)
	}
	fc := c.(*FileCache)

	_ = c.Set(ctx, "a", []byte("1"), 0)
	_ = c.Set(ctx, "b", []byte("2"), 0)

	if err := fc.Clear(); err != nil {
		t.Fatalf("Clear() = %v", err)
	}
	if _, ok, _ := c.Get(ctx, "a"); ok {
		t.Error("Get() hit after Clear()")
	}

	// The directory survives Clear for subsequent writes.
	if err := c.Set(ctx, "c", []byte("3"), 0); err != nil {
		t.Errorf("Set() after Clear() = %v", err)
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	opts := PathKeyOpts{Source: "qasm2", Target: "qiskit", N: 3}
	first := k.PathKey(7, opts)
	if first != k.PathKey(7, opts) {
		t.Error("PathKey() not deterministic")
	}
	if !strings.HasPrefix(first, "paths:") {
		t.Errorf("PathKey() = %q, want paths: prefix", first)
	}

	// Any change to the version or query parameters changes the key.
	variants := []string{
		k.PathKey(8, opts),
		k.PathKey(7, PathKeyOpts{Source: "qasm3", Target: "qiskit", N: 3}),
		k.PathKey(7, PathKeyOpts{Source: "qasm2", Target: "cirq", N: 3}),
		k.PathKey(7, PathKeyOpts{Source: "qasm2", Target: "qiskit", N: 5}),
	}
	for i, v := range variants {
		if v == first {
			t.Errorf("variant %d collides with the base key", i)
		}
	}

	render := k.RenderKey(7, RenderKeyOpts{Format: "svg", Weights: true})
	if !strings.HasPrefix(render, "render:") {
		t.Errorf("RenderKey() = %q, want render: prefix", render)
	}
	if render == k.RenderKey(7, RenderKeyOpts{Format: "svg", Weights: false}) {
		t.Error("RenderKey() ignores the Weights option")
	}
}

func TestScopedKeyer(t *testing.T) {
	base := NewDefaultKeyer()
	scoped := NewScopedKeyer(base, "tenant:abc:")

	opts := PathKeyOpts{Source: "qasm2", Target: "qiskit", N: 3}
	got := scoped.PathKey(1, opts)
	if !strings.HasPrefix(got, "tenant:abc:") {
		t.Errorf("PathKey() = %q, want tenant prefix", got)
	}
	if strings.TrimPrefix(got, "tenant:abc:") != base.PathKey(1, opts) {
		t.Error("ScopedKeyer changed the inner key")
	}

	// Nil inner falls back to the default keyer.
	fallback := NewScopedKeyer(nil, "p:")
	if !strings.HasPrefix(fallback.RenderKey(1, RenderKeyOpts{Format: "dot"}), "p:render:") {
		t.Error("nil inner keyer not defaulted")
	}
}

func TestHash(t *testing.T) {
	a := Hash([]byte("payload"))
	if len(a) != 64 {
		t.Errorf("Hash() length = %d, want 64", len(a))
	}
	if a != Hash([]byte("payload")) {
		t.Error("Hash() not deterministic")
	}
	if a == Hash([]byte("other")) {
		t.Error("Hash() collides on different input")
	}
}
