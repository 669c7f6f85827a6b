package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestLRUCacheEviction(t *testing.T) {
	cache := NewLRUCache[string](3, time.Hour)

	cache.Set("key1", "value1")
	cache.Set("key2", "value2")
	cache.Set("key3", "value3")
	cache.Set("key4", "value4") // Should evict key1

	if _, found := cache.Get("key1"); found {
		t.Error("key1 should have been evicted")
	}
	for _, key := range []string{"key2", "key3", "key4"} {
		if _, found := cache.Get(key); !found {
			t.Errorf("%s should still be in cache", key)
		}
	}
	if cache.Size() != 3 {
		t.Errorf("Size() = %d, want 3", cache.Size())
	}
}

func TestLRUCacheRecentUseProtectsFromEviction(t *testing.T) {
	cache := NewLRUCache[string](3, time.Hour)

	cache.Set("key1", "value1")
	cache.Set("key2", "value2")
	cache.Set("key3", "value3")

	// Touch key1 so key2 becomes the eviction candidate.
	cache.Get("key1")
	cache.Set("key4", "value4")

	if _, found := cache.Get("key1"); !found {
		t.Error("recently used key1 should survive eviction")
	}
	if _, found := cache.Get("key2"); found {
		t.Error("key2 should have been evicted")
	}
}

func TestLRUCacheTTLExpiry(t *testing.T) {
	cache := NewLRUCache[string](100, 50*time.Millisecond)

	cache.Set("key1", "value1")
	if _, found := cache.Get("key1"); !found {
		t.Fatal("key1 should be present before TTL expires")
	}

	time.Sleep(60 * time.Millisecond)
	if _, found := cache.Get("key1"); found {
		t.Error("key1 should have expired")
	}
}

func TestLRUCacheDelete(t *testing.T) {
	cache := NewLRUCache[int](10, time.Hour)

	cache.Set("key1", 42)
	cache.Delete("key1")
	cache.Delete("missing") // no-op

	if _, found := cache.Get("key1"); found {
		t.Error("deleted key should be gone")
	}
}

func TestLRUCacheOverwrite(t *testing.T) {
	cache := NewLRUCache[string](10, time.Hour)

	cache.Set("key1", "old")
	cache.Set("key1", "new")

	v, found := cache.Get("key1")
	if !found || v != "new" {
		t.Errorf("Get(key1) = %q, %v, want new, true", v, found)
	}
	if cache.Size() != 1 {
		t.Errorf("Size() = %d, want 1", cache.Size())
	}
}

func TestCleanExpired(t *testing.T) {
	cache := NewLRUCache[string](100, 50*time.Millisecond)

	cache.Set("key1", "value1")
	cache.Set("key2", "value2")
	time.Sleep(60 * time.Millisecond)
	cache.Set("key3", "value3")

	removed := cache.CleanExpired()
	if removed != 2 {
		t.Errorf("CleanExpired() = %d, want 2", removed)
	}
	if _, found := cache.Get("key3"); !found {
		t.Error("fresh key3 should survive cleanup")
	}
}

func TestManagerCleansRegisteredCaches(t *testing.T) {
	c1 := NewLRUCache[string](100, 10*time.Millisecond)
	c2 := NewLRUCache[int](100, 10*time.Millisecond)

	m := NewManager()
	m.Register(c1)
	m.Register(c2)
	m.StartCleanup(20 * time.Millisecond)
	defer m.Stop()

	c1.Set("a", "1")
	c2.Set("b", 2)

	deadline := time.After(500 * time.Millisecond)
	for c1.Size() > 0 || c2.Size() > 0 {
		select {
		case <-deadline:
			t.Fatalf("expired entries not cleaned: sizes %d, %d", c1.Size(), c2.Size())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func BenchmarkLRUCacheSetGet(b *testing.B) {
	cache := NewLRUCache[string](1000, time.Hour)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := fmt.Sprintf("key-%d", i%1000)
		cache.Set(key, "value")
		cache.Get(key)
	}
}
