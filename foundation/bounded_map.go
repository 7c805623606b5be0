package foundation

import (
	"fmt"
	"sort"
	"sync"

	"github.com/wrtgo/wrtgo/wrterr"
)

// BoundedMap is a capacity-checked, checksummed map, comparable K only
// (Go map key constraint), checksum computed over a canonical
// (sorted-by-key) encoding so it is independent of Go's randomized map
// iteration order.
type BoundedMap[K comparable, V any] struct {
	mu       sync.RWMutex
	provider *MemoryProvider
	capacity int
	items    map[K]V
	checksum uint64
}

// NewBoundedMap reserves capacity*elemSize bytes from provider.
func NewBoundedMap[K comparable, V any](provider *MemoryProvider, capacity int, elemSize uint64) (*BoundedMap[K, V], error) {
	if err := provider.Reserve(uint64(capacity) * elemSize); err != nil {
		return nil, err
	}
	provider.Counter().Record(CollCreate, provider.Level())
	return &BoundedMap[K, V]{
		provider: provider,
		capacity: capacity,
		items:    make(map[K]V, capacity),
		checksum: checksumSeed,
	}, nil
}

func (m *BoundedMap[K, V]) recompute() uint64 {
	keys := make([]string, 0, len(m.items))
	byKey := make(map[string][]byte, len(m.items))
	for k, v := range m.items {
		ks := fmt.Sprintf("%v", k)
		keys = append(keys, ks)
		byKey[ks] = []byte(fmt.Sprintf("%v=%v", k, v))
	}
	sort.Strings(keys)
	h := uint64(checksumSeed)
	for _, ks := range keys {
		h = fnv1a64(byKey[ks], h)
	}
	return h
}

// Len returns the current entry count.
func (m *BoundedMap[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Cap returns the fixed capacity N.
func (m *BoundedMap[K, V]) Cap() int { return m.capacity }

// Insert adds or overwrites k->v, failing with LimitExceeded if at
// capacity and k is not already present.
func (m *BoundedMap[K, V]) Insert(k K, v V) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.items[k]; !exists && len(m.items) >= m.capacity {
		return wrterr.Errorf(wrterr.LimitExceeded, "bounded map at capacity %d", m.capacity)
	}
	m.items[k] = v
	m.checksum = m.recompute()
	m.provider.Counter().Record(CollInsert, m.provider.Level())
	return nil
}

// Get looks up k, re-verifying the checksum first if required.
func (m *BoundedMap[K, V]) Get(k K) (V, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var zero V
	if m.provider.Level().ShouldReverify() {
		ok := m.recompute() == m.checksum
		m.provider.NoteIntegrityCheck(ok, "bounded map checksum mismatch")
		if !ok {
			return zero, wrterr.New(wrterr.IntegrityFailure, "bounded map checksum mismatch")
		}
	}
	v, ok := m.items[k]
	m.provider.Counter().Record(CollLookup, m.provider.Level())
	if !ok {
		return zero, wrterr.Errorf(wrterr.OutOfBounds, "key %v not present", k)
	}
	return v, nil
}

// Remove deletes k, failing with OutOfBounds if absent.
func (m *BoundedMap[K, V]) Remove(k K) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[k]; !ok {
		return wrterr.Errorf(wrterr.OutOfBounds, "key %v not present", k)
	}
	delete(m.items, k)
	m.checksum = m.recompute()
	m.provider.Counter().Record(CollRemove, m.provider.Level())
	return nil
}

// Clear empties the map.
func (m *BoundedMap[K, V]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[K]V, m.capacity)
	m.checksum = checksumSeed
	m.provider.Counter().Record(CollClear, m.provider.Level())
}

// Iterate calls fn for every entry in deterministic (sorted-by-key
// string form) order, stopping early if fn returns false.
func (m *BoundedMap[K, V]) Iterate(fn func(k K, v V) bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.provider.Counter().Record(CollIterate, m.provider.Level())

	type kv struct {
		k K
		s string
	}
	ordered := make([]kv, 0, len(m.items))
	for k := range m.items {
		ordered = append(ordered, kv{k, fmt.Sprintf("%v", k)})
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].s < ordered[j].s })
	for _, e := range ordered {
		if !fn(e.k, m.items[e.k]) {
			break
		}
	}
}

// Verify forces a checksum recomputation and comparison.
func (m *BoundedMap[K, V]) Verify() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.provider.Counter().Record(ChecksumCalc, m.provider.Level())
	ok := m.recompute() == m.checksum
	m.provider.NoteIntegrityCheck(ok, "bounded map checksum mismatch")
	if !ok {
		return wrterr.New(wrterr.IntegrityFailure, "bounded map checksum mismatch")
	}
	return nil
}
