package cache

import "time"

// Deduper remembers recently processed keys so redelivered messages can be
// skipped. It is bounded in size and age.
type Deduper struct {
	seen *LRUCache[struct{}]
}

func NewDeduper(size int, ttl time.Duration) *Deduper {
	return &Deduper{seen: NewLRUCache[struct{}](size, ttl)}
}

// Claim records key and reports whether this is its first live sighting.
func (d *Deduper) Claim(key string) bool {
	return d.seen.SetIfAbsent(key, struct{}{})
}

// Release forgets key so a later delivery is processed again.
func (d *Deduper) Release(key string) {
	d.seen.Delete(key)
}

func (d *Deduper) CleanExpired() int {
	return d.seen.CleanExpired()
}
