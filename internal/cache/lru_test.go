package cache

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestLRU(size int, ttl time.Duration) (*LRUCache[int], *fakeClock) {
	clk := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](size, ttl)
	c.now = clk.now
	return c, clk
}

func TestLRUCache_Eviction(t *testing.T) {
	c, _ := newTestLRU(2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be present")
	}
	// b is now least recently used.
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("a = %v, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUCache_TTL(t *testing.T) {
	c, clk := newTestLRU(10, time.Minute)
	c.Set("a", 1)
	clk.t = clk.t.Add(30 * time.Second)
	c.Set("b", 2)

	clk.t = clk.t.Add(45 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Error("a should be expired")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("b should still be live")
	}

	clk.t = clk.t.Add(time.Minute)
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired() = %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0", c.Size())
	}
}

func TestLRUCache_SetIfAbsent(t *testing.T) {
	c, clk := newTestLRU(10, time.Minute)
	if !c.SetIfAbsent("k", 1) {
		t.Fatal("first SetIfAbsent should store")
	}
	if c.SetIfAbsent("k", 2) {
		t.Error("second SetIfAbsent should not store")
	}
	if v, _ := c.Get("k"); v != 1 {
		t.Errorf("k = %d, want 1", v)
	}
	clk.t = clk.t.Add(2 * time.Minute)
	if !c.SetIfAbsent("k", 3) {
		t.Error("expired entry should be replaced")
	}
}

func TestDeduper(t *testing.T) {
	d := NewDeduper(100, time.Minute)
	if !d.Claim("income:1:upsert:2") {
		t.Fatal("first claim should succeed")
	}
	if d.Claim("income:1:upsert:2") {
		t.Error("duplicate claim should fail")
	}
	if !d.Claim("income:1:upsert:3") {
		t.Error("new version should be claimable")
	}
	d.Release("income:1:upsert:2")
	if !d.Claim("income:1:upsert:2") {
		t.Error("released key should be claimable again")
	}
}

func TestDeduper_ConcurrentClaims(t *testing.T) {
	d := NewDeduper(100, time.Minute)
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d.Claim("same") {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Errorf("wins = %d, want 1", wins)
	}
}

func TestManager_SweepsUntilCancelled(t *testing.T) {
	c, clk := newTestLRU(10, time.Minute)
	c.Set("a", 1)
	clk.t = clk.t.Add(time.Hour)

	m := NewManager()
	m.Register(c)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for c.Size() != 0 {
		select {
		case <-deadline:
			t.Fatal("expired entry was never swept")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}
