package cache

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

func newTestCache(size int, ttl time.Duration) (*LRUCache[string], *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](size, ttl)
	c.now = clock.Now
	return c, clock
}

func TestLRUCache_GetSet(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss")
	}
	c.Set("a", "1")
	c.Set("a", "2")
	if v, ok := c.Get("a"); !ok || v != "2" {
		t.Fatalf("Get(a) = %q, %v", v, ok)
	}
	if c.Size() != 1 {
		t.Fatalf("Size = %d, want 1", c.Size())
	}
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)

	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a") // b is now the oldest
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s should still be cached", k)
		}
	}
}

func TestLRUCache_TTL(t *testing.T) {
	c, clock := newTestCache(10, 30*time.Second)

	c.Set("a", "1")
	clock.Advance(29 * time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("entry expired too early")
	}
	clock.Advance(2 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatal("entry should have expired")
	}
	if c.Size() != 0 {
		t.Fatalf("expired entry not removed on read, size %d", c.Size())
	}
}

func TestLRUCache_CleanExpired(t *testing.T) {
	c, clock := newTestCache(10, time.Second)

	c.Set("a", "1")
	c.Set("b", "2")
	clock.Advance(2 * time.Second)
	c.Set("c", "3")

	if n := c.CleanExpired(); n != 2 {
		t.Fatalf("CleanExpired removed %d, want 2", n)
	}
	if c.Size() != 1 {
		t.Fatalf("Size = %d, want 1", c.Size())
	}
}

func TestLRUCache_DeleteAndClear(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")

	c.Delete("a")
	c.Delete("missing")
	if _, ok := c.Get("a"); ok {
		t.Fatal("a should be deleted")
	}

	c.Clear()
	if c.Size() != 0 {
		t.Fatalf("Size after Clear = %d", c.Size())
	}
	c.Set("d", "4")
	if v, ok := c.Get("d"); !ok || v != "4" {
		t.Fatal("cache unusable after Clear")
	}
}

func TestLRUCache_MinimumSize(t *testing.T) {
	c := NewLRUCache[int](0, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if c.Size() != 1 {
		t.Fatalf("Size = %d, want 1", c.Size())
	}
}

func TestLRUCache_ZeroTTLDisablesCaching(t *testing.T) {
	c, _ := newTestCache(10, 0)
	c.Set("a", "1")
	if _, ok := c.Get("a"); ok {
		t.Fatal("zero TTL should not store entries")
	}
	if c.Size() != 0 {
		t.Fatalf("Size = %d, want 0", c.Size())
	}
}

func TestManager(t *testing.T) {
	c, clock := newTestCache(10, time.Second)
	c.Set("a", "1")
	clock.Advance(2 * time.Second)

	m := NewManager(nil)
	m.Register(c)
	if n := m.CleanNow(); n != 1 {
		t.Fatalf("CleanNow removed %d, want 1", n)
	}

	m.StartCleanup(time.Millisecond)
	m.StartCleanup(time.Millisecond)
	m.Stop()
	m.Stop()
	m.StartCleanup(time.Millisecond) // no restart after Stop
	m.Stop()
}

func TestManager_StopWithoutStart(t *testing.T) {
	NewManager(nil).Stop()
}
