package foundation

import (
	"fmt"
	"sync"

	"github.com/wrtgo/wrtgo/wrterr"
)

// BoundedVec is a capacity-checked, checksummed vector. Capacity is fixed
// at construction and carried by the value together with its provider; a
// Push or Insert beyond it fails with LimitExceeded.
type BoundedVec[T any] struct {
	mu       sync.RWMutex
	provider *MemoryProvider
	elemSize uint64
	capacity int
	items    []T
	checksum uint64
}

// NewBoundedVec reserves capacity*elemSize bytes from provider and
// returns an empty vector with that fixed capacity. elemSize is an
// estimate used purely for the provider's byte-budget bookkeeping; the
// checksum does not depend on it.
func NewBoundedVec[T any](provider *MemoryProvider, capacity int, elemSize uint64) (*BoundedVec[T], error) {
	if err := provider.Reserve(uint64(capacity) * elemSize); err != nil {
		return nil, err
	}
	provider.Counter().Record(CollCreate, provider.Level())
	return &BoundedVec[T]{
		provider: provider,
		elemSize: elemSize,
		capacity: capacity,
		items:    make([]T, 0, capacity),
		checksum: checksumSeed,
	}, nil
}

func elementBytes[T any](v T) []byte {
	return []byte(fmt.Sprintf("%v", v))
}

func (v *BoundedVec[T]) rollIn(item T) {
	v.checksum = fnv1a64(elementBytes(item), v.checksum)
}

// recompute derives the checksum from scratch, used by Verify.
func (v *BoundedVec[T]) recompute() uint64 {
	h := uint64(checksumSeed)
	for _, it := range v.items {
		h = fnv1a64(elementBytes(it), h)
	}
	return h
}

// Len returns the current element count.
func (v *BoundedVec[T]) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.items)
}

// Cap returns the fixed capacity N.
func (v *BoundedVec[T]) Cap() int { return v.capacity }

// Push appends item, failing with LimitExceeded if the vector is at
// capacity.
func (v *BoundedVec[T]) Push(item T) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.items) >= v.capacity {
		return wrterr.Errorf(wrterr.LimitExceeded, "bounded vec at capacity %d", v.capacity)
	}
	v.items = append(v.items, item)
	v.rollIn(item)
	v.provider.Counter().Record(CollPush, v.provider.Level())
	return nil
}

// Pop removes and returns the last element.
func (v *BoundedVec[T]) Pop() (T, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	var zero T
	if len(v.items) == 0 {
		return zero, wrterr.New(wrterr.OutOfBounds, "pop from empty bounded vec")
	}
	last := v.items[len(v.items)-1]
	v.items = v.items[:len(v.items)-1]
	v.checksum = v.recompute()
	v.provider.Counter().Record(CollPop, v.provider.Level())
	return last, nil
}

// Get returns the element at idx, re-verifying the checksum first if the
// provider's verification level requires it.
func (v *BoundedVec[T]) Get(idx int) (T, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var zero T
	if idx < 0 || idx >= len(v.items) {
		return zero, wrterr.Errorf(wrterr.OutOfBounds, "index %d out of bounds (len %d)", idx, len(v.items))
	}
	if v.provider.Level().ShouldReverify() {
		ok := v.recompute() == v.checksum
		v.provider.NoteIntegrityCheck(ok, "bounded vec checksum mismatch")
		if !ok {
			return zero, wrterr.New(wrterr.IntegrityFailure, "bounded vec checksum mismatch")
		}
	}
	v.provider.Counter().Record(CollRead, v.provider.Level())
	return v.items[idx], nil
}

// Insert places item at idx, shifting subsequent elements right.
func (v *BoundedVec[T]) Insert(idx int, item T) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if idx < 0 || idx > len(v.items) {
		return wrterr.Errorf(wrterr.OutOfBounds, "insert index %d out of bounds (len %d)", idx, len(v.items))
	}
	if len(v.items) >= v.capacity {
		return wrterr.Errorf(wrterr.LimitExceeded, "bounded vec at capacity %d", v.capacity)
	}
	v.items = append(v.items, item)
	copy(v.items[idx+1:], v.items[idx:])
	v.items[idx] = item
	v.checksum = v.recompute()
	v.provider.Counter().Record(CollInsert, v.provider.Level())
	return nil
}

// Remove deletes the element at idx, shifting subsequent elements left.
func (v *BoundedVec[T]) Remove(idx int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if idx < 0 || idx >= len(v.items) {
		return wrterr.Errorf(wrterr.OutOfBounds, "index %d out of bounds (len %d)", idx, len(v.items))
	}
	v.items = append(v.items[:idx], v.items[idx+1:]...)
	v.checksum = v.recompute()
	v.provider.Counter().Record(CollRemove, v.provider.Level())
	return nil
}

// Clear empties the vector.
func (v *BoundedVec[T]) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.items = v.items[:0]
	v.checksum = checksumSeed
	v.provider.Counter().Record(CollClear, v.provider.Level())
}

// Iterate calls fn for every element in order, stopping early if fn
// returns false.
func (v *BoundedVec[T]) Iterate(fn func(idx int, item T) bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	v.provider.Counter().Record(CollIterate, v.provider.Level())
	for i, it := range v.items {
		if !fn(i, it) {
			break
		}
	}
}

// Verify forces a checksum recomputation and comparison regardless of
// verification level, recording the outcome in the provider's
// IntegrityReport.
func (v *BoundedVec[T]) Verify() error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	v.provider.Counter().Record(ChecksumCalc, v.provider.Level())
	ok := v.recompute() == v.checksum
	v.provider.NoteIntegrityCheck(ok, "bounded vec checksum mismatch")
	if !ok {
		return wrterr.New(wrterr.IntegrityFailure, "bounded vec checksum mismatch")
	}
	return nil
}
