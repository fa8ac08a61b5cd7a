// Package booltmemo memoizes boolean probes with separate lifetimes for true
// and false results, so a healthy answer can be trusted longer than a failing
// one.
package booltmemo

import (
	"sync"
	"time"
)

type entry struct {
	value   bool
	expires time.Time
}

// Memo caches fn per key. Expired entries are dropped lazily; there is no
// background goroutine.
type Memo[K comparable] struct {
	fn       func(K) bool
	trueTTL  time.Duration
	falseTTL time.Duration
	now      func() time.Time

	mu    sync.Mutex
	cache map[K]entry
}

// New memoizes fn, keeping true results for trueTTL and false results for
// falseTTL
func New[K comparable](fn func(K) bool, trueTTL, falseTTL time.Duration) *Memo[K] {
	return &Memo[K]{
		fn:       fn,
		trueTTL:  trueTTL,
		falseTTL: falseTTL,
		now:      time.Now,
		cache:    make(map[K]entry),
	}
}

// Get returns the cached result for key or computes it. Concurrent callers
// for an expired key wait for a single computation.
func (m *Memo[K]) Get(key K) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if e, ok := m.cache[key]; ok && now.Before(e.expires) {
		return e.value
	}
	m.sweep(now)

	value := m.fn(key)
	ttl := m.falseTTL
	if value {
		ttl = m.trueTTL
	}
	m.cache[key] = entry{value: value, expires: m.now().Add(ttl)}
	return value
}

func (m *Memo[K]) sweep(now time.Time) {
	for k, e := range m.cache {
		if !now.Before(e.expires) {
			delete(m.cache, k)
		}
	}
}

// Invalidate forgets key
func (m *Memo[K]) Invalidate(key K) {
	m.mu.Lock()
	delete(m.cache, key)
	m.mu.Unlock()
}

// Len returns the number of cached entries, including expired ones not yet
// swept
func (m *Memo[K]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cache)
}
