package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(10)

	type payload struct {
		Name  string
		Count int
	}
	if err := c.Set(ctx, "k1", payload{Name: "a", Count: 3}, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var got payload
	if err := c.Get(ctx, "k1", &got); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "a" || got.Count != 3 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestMemoryCacheMissAndExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(10)

	var out string
	if err := c.Get(ctx, "absent", &out); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}

	if err := c.Set(ctx, "short", "v", time.Nanosecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(time.Millisecond)
	if err := c.Get(ctx, "short", &out); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expired entry must miss, got %v", err)
	}
}

func TestMemoryCacheEvictsAtCapacity(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(2)

	if err := c.Set(ctx, "a", 1, time.Minute); err != nil {
		t.Fatalf("Set a: %v", err)
	}
	if err := c.Set(ctx, "b", 2, time.Minute); err != nil {
		t.Fatalf("Set b: %v", err)
	}

	// Touch "a" so "b" becomes the eviction candidate.
	var n int
	if err := c.Get(ctx, "a", &n); err != nil {
		t.Fatalf("Get a: %v", err)
	}
	if err := c.Set(ctx, "c", 3, time.Minute); err != nil {
		t.Fatalf("Set c: %v", err)
	}

	if err := c.Get(ctx, "b", &n); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("LRU entry should be evicted, got %v", err)
	}
	if err := c.Get(ctx, "a", &n); err != nil {
		t.Fatalf("recently used entry evicted: %v", err)
	}
}

func TestMemoryCacheDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(10)

	if err := c.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	var out string
	if err := c.Get(ctx, "k", &out); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("deleted entry must miss, got %v", err)
	}
}

func TestLayeredCacheBackfillsLocal(t *testing.T) {
	ctx := context.Background()
	local := NewMemoryCache(10)
	remote := NewMemoryCache(10)
	layered := NewLayeredCache(local, remote)

	// Populate only the remote layer.
	if err := remote.Set(ctx, "k", "shared", time.Minute); err != nil {
		t.Fatalf("remote Set: %v", err)
	}

	var out string
	if err := layered.Get(ctx, "k", &out); err != nil {
		t.Fatalf("layered Get: %v", err)
	}
	if out != "shared" {
		t.Fatalf("got %q", out)
	}

	// The local layer must now serve the key on its own.
	var local2 string
	if err := local.Get(ctx, "k", &local2); err != nil {
		t.Fatalf("backfill missing from local layer: %v", err)
	}
}

func TestLayeredCacheWritesBothLayers(t *testing.T) {
	ctx := context.Background()
	local := NewMemoryCache(10)
	remote := NewMemoryCache(10)
	layered := NewLayeredCache(local, remote)

	if err := layered.Set(ctx, "k", 42, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var a, b int
	if err := local.Get(ctx, "k", &a); err != nil {
		t.Fatalf("local layer missing write: %v", err)
	}
	if err := remote.Get(ctx, "k", &b); err != nil {
		t.Fatalf("remote layer missing write: %v", err)
	}
	if a != 42 || b != 42 {
		t.Fatalf("layer values diverged: %d/%d", a, b)
	}
}
