// Package syncmap provides a generic concurrent map whose entries are locked
// individually. A caller holding one entry never blocks lookups, inserts or
// mutations of other keys, and the map-wide lock is only held for the short
// lookup itself.
package syncmap

import (
	"iter"
	"sync"
)

type entry[V any] struct {
	mu   sync.RWMutex
	val  V
	dead bool
}

// Map is a concurrent map from K to V with per-key read and write guards.
// The zero value is not usable; create one with New.
type Map[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]*entry[V]
}

// New creates an empty Map
func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{
		entries: make(map[K]*entry[V]),
	}
}

// Ref is a shared read guard over one value. The value must not be modified
// through a Ref and must not be used after Release.
type Ref[K comparable, V any] struct {
	key  K
	e    *entry[V]
	once sync.Once
}

// Key returns the key the guard was taken on
func (r *Ref[K, V]) Key() K { return r.key }

// Value returns the guarded value
func (r *Ref[K, V]) Value() *V { return &r.e.val }

// Release drops the read lock. Calling it more than once is safe.
func (r *Ref[K, V]) Release() {
	r.once.Do(r.e.mu.RUnlock)
}

// RefMut is an exclusive guard over one value. Other readers and writers of
// the same key wait until Release.
type RefMut[K comparable, V any] struct {
	m    *Map[K, V]
	key  K
	e    *entry[V]
	once sync.Once
}

// Key returns the key the guard was taken on
func (r *RefMut[K, V]) Key() K { return r.key }

// Value returns the guarded value for in-place mutation
func (r *RefMut[K, V]) Value() *V { return &r.e.val }

// Release drops the write lock. Calling it more than once is safe.
func (r *RefMut[K, V]) Release() {
	r.once.Do(r.e.mu.Unlock)
}

// Delete removes the guarded entry from the map while the guard is still held.
// Goroutines already waiting on the entry observe a miss once the guard is
// released.
func (r *RefMut[K, V]) Delete() {
	r.e.dead = true

	r.m.mu.Lock()
	if cur, ok := r.m.entries[r.key]; ok && cur == r.e {
		delete(r.m.entries, r.key)
	}
	r.m.mu.Unlock()
}

func (m *Map[K, V]) load(key K) *entry[V] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entries[key]
}

// Get returns a read guard for key, or false if the key is absent
func (m *Map[K, V]) Get(key K) (*Ref[K, V], bool) {
	e := m.load(key)
	if e == nil {
		return nil, false
	}

	e.mu.RLock()
	if e.dead {
		e.mu.RUnlock()
		return nil, false
	}
	return &Ref[K, V]{key: key, e: e}, true
}

// GetMut returns a write guard for key, or false if the key is absent
func (m *Map[K, V]) GetMut(key K) (*RefMut[K, V], bool) {
	e := m.load(key)
	if e == nil {
		return nil, false
	}

	e.mu.Lock()
	if e.dead {
		e.mu.Unlock()
		return nil, false
	}
	return &RefMut[K, V]{m: m, key: key, e: e}, true
}

// View calls fn with the value for key under a read guard.
// It reports whether the key was present.
func (m *Map[K, V]) View(key K, fn func(*V)) bool {
	ref, ok := m.Get(key)
	if !ok {
		return false
	}
	defer ref.Release()

	fn(ref.Value())
	return true
}

// Update calls fn with the value for key under a write guard.
// It reports whether the key was present.
func (m *Map[K, V]) Update(key K, fn func(*V)) bool {
	ref, ok := m.GetMut(key)
	if !ok {
		return false
	}
	defer ref.Release()

	fn(ref.Value())
	return true
}

// Insert stores value under key, replacing any previous value
func (m *Map[K, V]) Insert(key K, value V) {
	e := &entry[V]{val: value}

	m.mu.Lock()
	old := m.entries[key]
	m.entries[key] = e
	m.mu.Unlock()

	if old != nil {
		old.mu.Lock()
		old.dead = true
		old.mu.Unlock()
	}
}

// InsertNew stores value under key only if the key is absent.
// It reports whether the value was stored.
func (m *Map[K, V]) InsertNew(key K, value V) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; exists {
		return false
	}
	m.entries[key] = &entry[V]{val: value}
	return true
}

// Upsert returns a write guard for key, creating the value with create if the
// key is absent. The second result reports whether the value was created.
func (m *Map[K, V]) Upsert(key K, create func() V) (*RefMut[K, V], bool) {
	for {
		if ref, ok := m.GetMut(key); ok {
			return ref, false
		}

		m.mu.Lock()
		if _, exists := m.entries[key]; exists {
			// lost the race to another creator, or the entry is being removed
			m.mu.Unlock()
			continue
		}
		e := &entry[V]{val: create()}
		e.mu.Lock()
		m.entries[key] = e
		m.mu.Unlock()

		return &RefMut[K, V]{m: m, key: key, e: e}, true
	}
}

// Remove deletes key and returns its last value. It waits for any guard held
// on the entry to be released.
func (m *Map[K, V]) Remove(key K) (V, bool) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if ok {
		delete(m.entries, key)
	}
	m.mu.Unlock()

	if !ok {
		var zero V
		return zero, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dead {
		var zero V
		return zero, false
	}
	e.dead = true
	return e.val, true
}

// Has reports whether key is present
func (m *Map[K, V]) Has(key K) bool {
	return m.load(key) != nil
}

// Len returns the number of entries
func (m *Map[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Keys returns a snapshot of the current keys in no particular order
func (m *Map[K, V]) Keys() []K {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]K, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	return keys
}

// Range iterates over a snapshot of the entries. Each value is yielded under
// its own read guard, which is released before the next entry is visited.
// Entries inserted after iteration starts are not visited; entries removed
// after iteration starts are skipped.
func (m *Map[K, V]) Range() iter.Seq2[K, *V] {
	return func(yield func(K, *V) bool) {
		type kv struct {
			key K
			e   *entry[V]
		}

		m.mu.RLock()
		snapshot := make([]kv, 0, len(m.entries))
		for k, e := range m.entries {
			snapshot = append(snapshot, kv{k, e})
		}
		m.mu.RUnlock()

		for _, item := range snapshot {
			item.e.mu.RLock()
			if item.e.dead {
				item.e.mu.RUnlock()
				continue
			}
			cont := yield(item.key, &item.e.val)
			item.e.mu.RUnlock()
			if !cont {
				return
			}
		}
	}
}
