package handler

import (
	"testing"
	"time"
)

func TestHashRequest(t *testing.T) {
	body := []byte(`{"prompt":"hello"}`)

	if HashRequest(body) != HashRequest(body) {
		t.Error("hash is not consistent for identical bodies")
	}

	different := []byte(`{"prompt":"world"}`)
	if HashRequest(body) == HashRequest(different) {
		t.Error("different bodies produced the same hash")
	}
}

func TestResponseCacheGetSet(t *testing.T) {
	cache := NewResponseCache()

	key := "test-key-123"
	value := []byte(`{"success":true,"content":"hi"}`)

	if _, found := cache.Get(key); found {
		t.Error("cache hit for a key that was never set")
	}

	cache.Set(key, value)

	cached, found := cache.Get(key)
	if !found {
		t.Fatal("cache miss after set")
	}
	if string(cached) != string(value) {
		t.Errorf("cached value = %s, want %s", cached, value)
	}
}

func TestResponseCacheExpiration(t *testing.T) {
	cache := NewResponseCache(WithCacheTTL(50 * time.Millisecond))

	cache.Set("expiring", []byte(`{}`))
	if _, found := cache.Get("expiring"); !found {
		t.Fatal("cache miss immediately after set")
	}

	time.Sleep(80 * time.Millisecond)

	if _, found := cache.Get("expiring"); found {
		t.Error("cache hit after TTL expiration")
	}
}

func TestResponseCacheEviction(t *testing.T) {
	cache := NewResponseCache(WithCacheMaxEntries(2))

	cache.Set("a", []byte("1"))
	time.Sleep(5 * time.Millisecond)
	cache.Set("b", []byte("2"))
	time.Sleep(5 * time.Millisecond)
	cache.Set("c", []byte("3"))

	if _, found := cache.Get("a"); found {
		t.Error("oldest entry survived eviction")
	}
	if _, found := cache.Get("c"); !found {
		t.Error("newest entry was evicted")
	}
}

func TestResponseCacheStats(t *testing.T) {
	cache := NewResponseCache()

	cache.Get("nonexistent")
	cache.Set("key1", []byte("value1"))
	cache.Get("key1")

	hits, misses, size := cache.Stats()
	if hits != 1 {
		t.Errorf("hits = %d, want 1", hits)
	}
	if misses != 1 {
		t.Errorf("misses = %d, want 1", misses)
	}
	if size != 1 {
		t.Errorf("size = %d, want 1", size)
	}
}

func TestResponseCacheConcurrency(t *testing.T) {
	cache := NewResponseCache()

	done := make(chan bool, 100)
	for i := 0; i < 100; i++ {
		go func(id int) {
			if id%2 == 0 {
				cache.Set("concurrent-key", []byte(`{"id":"test"}`))
			} else {
				cache.Get("concurrent-key")
			}
			done <- true
		}(i)
	}
	for i := 0; i < 100; i++ {
		<-done
	}
}
