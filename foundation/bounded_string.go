package foundation

import (
	"sync"

	"github.com/wrtgo/wrtgo/wrterr"
)

// BoundedString is a capacity-checked, checksummed byte string. N is the
// maximum byte length, fixed at construction.
type BoundedString struct {
	mu       sync.RWMutex
	provider *MemoryProvider
	capacity int
	data     []byte
	checksum uint64
}

// NewBoundedString reserves capacity bytes from provider.
func NewBoundedString(provider *MemoryProvider, capacity int) (*BoundedString, error) {
	if err := provider.Reserve(uint64(capacity)); err != nil {
		return nil, err
	}
	provider.Counter().Record(CollCreate, provider.Level())
	return &BoundedString{provider: provider, capacity: capacity, checksum: checksumSeed}, nil
}

// Len returns the current byte length.
func (s *BoundedString) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Cap returns the fixed maximum byte length N.
func (s *BoundedString) Cap() int { return s.capacity }

// Set replaces the contents, failing with LimitExceeded if val exceeds
// capacity.
func (s *BoundedString) Set(val string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(val) > s.capacity {
		return wrterr.Errorf(wrterr.LimitExceeded, "value length %d exceeds bounded string capacity %d", len(val), s.capacity)
	}
	s.data = []byte(val)
	s.checksum = fnv1a64(s.data, checksumSeed)
	s.provider.Counter().Record(CollWrite, s.provider.Level())
	return nil
}

// Append adds suffix to the end of the string, failing with
// LimitExceeded if the result would exceed capacity.
func (s *BoundedString) Append(suffix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.data)+len(suffix) > s.capacity {
		return wrterr.Errorf(wrterr.LimitExceeded, "append would exceed bounded string capacity %d", s.capacity)
	}
	s.data = append(s.data, suffix...)
	s.checksum = fnv1a64(s.data, checksumSeed)
	s.provider.Counter().Record(CollMutate, s.provider.Level())
	return nil
}

// String returns the current contents, re-verifying the checksum first
// if the provider's level requires it.
func (s *BoundedString) String() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.provider.Level().ShouldReverify() {
		ok := fnv1a64(s.data, checksumSeed) == s.checksum
		s.provider.NoteIntegrityCheck(ok, "bounded string checksum mismatch")
		if !ok {
			return "", wrterr.New(wrterr.IntegrityFailure, "bounded string checksum mismatch")
		}
	}
	s.provider.Counter().Record(CollRead, s.provider.Level())
	return string(s.data), nil
}

// Verify forces a checksum recomputation and comparison.
func (s *BoundedString) Verify() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.provider.Counter().Record(ChecksumCalc, s.provider.Level())
	ok := fnv1a64(s.data, checksumSeed) == s.checksum
	s.provider.NoteIntegrityCheck(ok, "bounded string checksum mismatch")
	if !ok {
		return wrterr.New(wrterr.IntegrityFailure, "bounded string checksum mismatch")
	}
	return nil
}
