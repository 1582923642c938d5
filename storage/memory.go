package storage

import (
	"sync"
	"time"
)

// MemoryMap is the in-process Map backend. Expired entries are dropped
// lazily on access; PruneExpired exists for periodic cleanup.
type MemoryMap[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]memoryEntry[V]
}

type memoryEntry[V any] struct {
	value    V
	expireAt time.Time // zero means no expiry
}

func (e memoryEntry[V]) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && now.After(e.expireAt)
}

// NewMemoryMap returns an empty in-process map.
func NewMemoryMap[K comparable, V any]() *MemoryMap[K, V] {
	return &MemoryMap[K, V]{entries: make(map[K]memoryEntry[V])}
}

func (m *MemoryMap[K, V]) Get(k K) (V, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[k]
	m.mu.RUnlock()
	if !ok {
		var zero V
		return zero, false, nil
	}
	if e.expired(time.Now()) {
		m.mu.Lock()
		// Re-check under the write lock, the entry may have been replaced.
		if cur, ok := m.entries[k]; ok && cur.expired(time.Now()) {
			delete(m.entries, k)
		}
		m.mu.Unlock()
		var zero V
		return zero, false, nil
	}
	return e.value, true, nil
}

func (m *MemoryMap[K, V]) Set(k K, v V, ttl time.Duration) error {
	e := memoryEntry[V]{value: v}
	if ttl > 0 {
		e.expireAt = time.Now().Add(ttl)
	}
	m.mu.Lock()
	m.entries[k] = e
	m.mu.Unlock()
	return nil
}

func (m *MemoryMap[K, V]) SetAll(entries map[K]V, ttl time.Duration) error {
	var expireAt time.Time
	if ttl > 0 {
		expireAt = time.Now().Add(ttl)
	}
	m.mu.Lock()
	for k, v := range entries {
		m.entries[k] = memoryEntry[V]{value: v, expireAt: expireAt}
	}
	m.mu.Unlock()
	return nil
}

func (m *MemoryMap[K, V]) Delete(k K) (bool, error) {
	m.mu.Lock()
	e, ok := m.entries[k]
	if ok {
		delete(m.entries, k)
	}
	m.mu.Unlock()
	if !ok || e.expired(time.Now()) {
		return false, nil
	}
	return true, nil
}

func (m *MemoryMap[K, V]) Has(k K) (bool, error) {
	_, ok, err := m.Get(k)
	return ok, err
}

func (m *MemoryMap[K, V]) Keys() ([]K, error) {
	now := time.Now()
	m.mu.RLock()
	keys := make([]K, 0, len(m.entries))
	for k, e := range m.entries {
		if !e.expired(now) {
			keys = append(keys, k)
		}
	}
	m.mu.RUnlock()
	return keys, nil
}

func (m *MemoryMap[K, V]) GetAll(keys []K) (map[K]V, error) {
	now := time.Now()
	out := make(map[K]V, len(keys))
	m.mu.RLock()
	for _, k := range keys {
		if e, ok := m.entries[k]; ok && !e.expired(now) {
			out[k] = e.value
		}
	}
	m.mu.RUnlock()
	return out, nil
}

func (m *MemoryMap[K, V]) Size() (int, error) {
	now := time.Now()
	m.mu.RLock()
	n := 0
	for _, e := range m.entries {
		if !e.expired(now) {
			n++
		}
	}
	m.mu.RUnlock()
	return n, nil
}

func (m *MemoryMap[K, V]) Clear() error {
	m.mu.Lock()
	m.entries = make(map[K]memoryEntry[V])
	m.mu.Unlock()
	return nil
}

// PruneExpired drops every expired entry and returns how many were
// removed.
func (m *MemoryMap[K, V]) PruneExpired() int {
	now := time.Now()
	m.mu.Lock()
	n := 0
	for k, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, k)
			n++
		}
	}
	m.mu.Unlock()
	return n
}
