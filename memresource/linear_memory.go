package memresource

import (
	"encoding/binary"
	"sync"

	"github.com/wrtgo/wrtgo/foundation"
	"github.com/wrtgo/wrtgo/wrterr"
)

// PageSize is the fixed Wasm linear-memory page size in bytes.
const PageSize = 65536

// LinearMemory is one Wasm linear memory: page-granular, grown
// atomically, with alignment- and bounds-checked typed access in
// little-endian byte order.
type LinearMemory struct {
	mu sync.Mutex

	minPages uint32
	maxPages *uint32 // nil = unbounded
	shared   bool

	data []byte

	provider *foundation.MemoryProvider
}

// NewLinearMemory constructs a memory with minPages initial pages and an
// optional page ceiling. Fails Validation if minPages > *maxPages.
func NewLinearMemory(minPages uint32, maxPages *uint32, shared bool, provider *foundation.MemoryProvider) (*LinearMemory, error) {
	if maxPages != nil && minPages > *maxPages {
		return nil, wrterr.Errorf(wrterr.Validation, "min_pages %d > max_pages %d", minPages, *maxPages)
	}
	size := uint64(minPages) * PageSize
	if provider != nil {
		if err := provider.Reserve(size); err != nil {
			return nil, err
		}
		provider.Counter().Record(foundation.MemAlloc, provider.Level())
	}
	return &LinearMemory{
		minPages: minPages,
		maxPages: maxPages,
		shared:   shared,
		data:     make([]byte, size),
		provider: provider,
	}, nil
}

// PageCount returns the current size in pages.
func (m *LinearMemory) PageCount() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return uint32(len(m.data) / PageSize)
}

// ByteLen returns the current size in bytes.
func (m *LinearMemory) ByteLen() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return uint32(len(m.data))
}

// Shared reports whether this memory is declared shared.
func (m *LinearMemory) Shared() bool { return m.shared }

// MaxPages returns the configured page ceiling, and whether one is set.
func (m *LinearMemory) MaxPages() (uint32, bool) {
	if m.maxPages == nil {
		return 0, false
	}
	return *m.maxPages, true
}

// Grow adds delta pages atomically, returning the pre-grow page count. It
// fails with LimitExceeded when the page ceiling would be passed, and with
// the provider's ResourceExhausted when its byte budget cannot cover the new
// pages; a failed grow does not mutate state.
func (m *LinearMemory) Grow(delta uint32) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prevPages := uint32(len(m.data) / PageSize)
	nextPages := prevPages + delta
	if nextPages < prevPages {
		return 0, wrterr.New(wrterr.LimitExceeded, "page count overflow on grow")
	}
	if m.maxPages != nil && nextPages > *m.maxPages {
		return 0, wrterr.Errorf(wrterr.LimitExceeded, "grow to %d pages exceeds max %d", nextPages, *m.maxPages)
	}
	addBytes := uint64(delta) * PageSize
	if m.provider != nil {
		if err := m.provider.Reserve(addBytes); err != nil {
			return 0, err
		}
		m.provider.Counter().Record(foundation.MemGrow, m.provider.Level())
	}
	m.data = append(m.data, make([]byte, addBytes)...)
	return prevPages, nil
}

func checkAlign(offset uint32, accessBytes uint32, alignHint uint32) error {
	alignBytes := uint32(1) << alignHint
	if alignBytes > accessBytes {
		// An instruction may not declare stronger alignment than its own
		// access width implies as a *requirement*, but narrower hints are
		// always valid; we only enforce up to the natural width.
		alignBytes = accessBytes
	}
	if offset&(alignBytes-1) != 0 {
		return wrterr.Errorf(wrterr.AlignmentError, "offset %d not aligned to %d bytes", offset, alignBytes)
	}
	return nil
}

func (m *LinearMemory) boundsCheck(offset, accessBytes uint32) error {
	end := uint64(offset) + uint64(accessBytes)
	if end > uint64(len(m.data)) {
		return wrterr.Errorf(wrterr.OutOfBounds, "access [%d,%d) exceeds memory size %d", offset, end, len(m.data))
	}
	return nil
}

// --- typed loads ---

// ReadU32 little-endian loads an unaligned-checked, bounds-checked u32.
func (m *LinearMemory) ReadU32(offset, alignHint uint32) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := checkAlign(offset, 4, alignHint); err != nil {
		return 0, err
	}
	if err := m.boundsCheck(offset, 4); err != nil {
		return 0, err
	}
	m.chargeRead()
	return binary.LittleEndian.Uint32(m.data[offset:]), nil
}

// ReadI32 loads a sign-extended i32 (identical bit pattern to ReadU32;
// sign extension only matters for narrower loads, kept for API symmetry
// with the partial-width loads below).
func (m *LinearMemory) ReadI32(offset, alignHint uint32) (int32, error) {
	v, err := m.ReadU32(offset, alignHint)
	return int32(v), err
}

// ReadU64 little-endian loads a u64.
func (m *LinearMemory) ReadU64(offset, alignHint uint32) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := checkAlign(offset, 8, alignHint); err != nil {
		return 0, err
	}
	if err := m.boundsCheck(offset, 8); err != nil {
		return 0, err
	}
	m.chargeRead()
	return binary.LittleEndian.Uint64(m.data[offset:]), nil
}

func (m *LinearMemory) ReadI64(offset, alignHint uint32) (int64, error) {
	v, err := m.ReadU64(offset, alignHint)
	return int64(v), err
}

// ReadU8Zx loads a single byte, zero-extended to u32.
func (m *LinearMemory) ReadU8Zx(offset uint32) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.boundsCheck(offset, 1); err != nil {
		return 0, err
	}
	m.chargeRead()
	return uint32(m.data[offset]), nil
}

// ReadU8Sx loads a single byte, sign-extended to i32.
func (m *LinearMemory) ReadU8Sx(offset uint32) (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.boundsCheck(offset, 1); err != nil {
		return 0, err
	}
	m.chargeRead()
	return int32(int8(m.data[offset])), nil
}

// ReadU16Zx loads 2 bytes, zero-extended to u32.
func (m *LinearMemory) ReadU16Zx(offset, alignHint uint32) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := checkAlign(offset, 2, alignHint); err != nil {
		return 0, err
	}
	if err := m.boundsCheck(offset, 2); err != nil {
		return 0, err
	}
	m.chargeRead()
	return uint32(binary.LittleEndian.Uint16(m.data[offset:])), nil
}

// ReadU16Sx loads 2 bytes, sign-extended to i32.
func (m *LinearMemory) ReadU16Sx(offset, alignHint uint32) (int32, error) {
	v, err := m.ReadU16Zx(offset, alignHint)
	return int32(int16(v)), err
}

// ReadF32Bits/ReadF64Bits load the raw IEEE-754 bit pattern of an f32/f64
// with the same checks as ReadU32/ReadU64; the bits are returned unconverted.
func (m *LinearMemory) ReadF32Bits(offset, alignHint uint32) (uint32, error) {
	return m.ReadU32(offset, alignHint)
}

func (m *LinearMemory) ReadF64Bits(offset, alignHint uint32) (uint64, error) {
	return m.ReadU64(offset, alignHint)
}

// --- typed stores ---

func (m *LinearMemory) WriteU32(offset, alignHint, value uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := checkAlign(offset, 4, alignHint); err != nil {
		return err
	}
	if err := m.boundsCheck(offset, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(m.data[offset:], value)
	m.chargeWrite()
	return nil
}

func (m *LinearMemory) WriteU64(offset, alignHint uint32, value uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := checkAlign(offset, 8, alignHint); err != nil {
		return err
	}
	if err := m.boundsCheck(offset, 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(m.data[offset:], value)
	m.chargeWrite()
	return nil
}

func (m *LinearMemory) WriteU8(offset uint32, value uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.boundsCheck(offset, 1); err != nil {
		return err
	}
	m.data[offset] = value
	m.chargeWrite()
	return nil
}

func (m *LinearMemory) WriteU16(offset, alignHint uint32, value uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := checkAlign(offset, 2, alignHint); err != nil {
		return err
	}
	if err := m.boundsCheck(offset, 2); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(m.data[offset:], value)
	m.chargeWrite()
	return nil
}

func (m *LinearMemory) chargeRead() {
	if m.provider != nil {
		m.provider.Counter().Record(foundation.MemRead, m.provider.Level())
	}
}

func (m *LinearMemory) chargeWrite() {
	if m.provider != nil {
		m.provider.Counter().Record(foundation.MemWrite, m.provider.Level())
	}
}

// CopyWithin implements memory.copy: copies length bytes from srcOffset
// to dstOffset within the same memory, bounded by both ends.
func (m *LinearMemory) CopyWithin(dstOffset, srcOffset, length uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.boundsCheck(srcOffset, length); err != nil {
		return err
	}
	if err := m.boundsCheck(dstOffset, length); err != nil {
		return err
	}
	copy(m.data[dstOffset:dstOffset+length], m.data[srcOffset:srcOffset+length])
	if m.provider != nil {
		m.provider.Counter().Record(foundation.MemCopy, m.provider.Level())
	}
	return nil
}

// Fill implements memory.fill: sets length bytes starting at offset to
// value.
func (m *LinearMemory) Fill(offset uint32, value byte, length uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.boundsCheck(offset, length); err != nil {
		return err
	}
	for i := uint32(0); i < length; i++ {
		m.data[offset+i] = value
	}
	m.chargeWrite()
	return nil
}

// DataSegmentProvider is the external collaborator interface supplying
// memory.init / data.drop source data.
type DataSegmentProvider interface {
	SizeInBytes(dataIndex uint32) (uint32, error)
	Read(dataIndex uint32, offset, length uint32) ([]byte, error)
	IsDropped(dataIndex uint32) bool
	Drop(dataIndex uint32) error
}

// InitFromSegment implements memory.init: copies length bytes from
// segment dataIndex at srcOffset into this memory at dstOffset, bounded
// by both this memory and the segment's size.
func (m *LinearMemory) InitFromSegment(seg DataSegmentProvider, dataIndex, dstOffset, srcOffset, length uint32) error {
	if seg.IsDropped(dataIndex) {
		return wrterr.Errorf(wrterr.OutOfBounds, "data segment %d already dropped", dataIndex)
	}
	segSize, err := seg.SizeInBytes(dataIndex)
	if err != nil {
		return err
	}
	if uint64(srcOffset)+uint64(length) > uint64(segSize) {
		return wrterr.Errorf(wrterr.OutOfBounds, "segment %d read [%d,%d) exceeds size %d", dataIndex, srcOffset, srcOffset+length, segSize)
	}
	payload, err := seg.Read(dataIndex, srcOffset, length)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.boundsCheck(dstOffset, length); err != nil {
		return err
	}
	copy(m.data[dstOffset:dstOffset+length], payload)
	if m.provider != nil {
		m.provider.Counter().Record(foundation.MemCopy, m.provider.Level())
	}
	return nil
}

// MemorySet indexes multiple linear memories for multi-memory dispatch by
// declared index.
type MemorySet struct {
	mu       sync.RWMutex
	memories []*LinearMemory
}

// NewMemorySet wraps a fixed slice of memories for index-based dispatch.
func NewMemorySet(memories ...*LinearMemory) *MemorySet {
	return &MemorySet{memories: memories}
}

// At returns the memory at idx, failing Validation on an out-of-range
// index.
func (s *MemorySet) At(idx uint32) (*LinearMemory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if int(idx) >= len(s.memories) {
		return nil, wrterr.Errorf(wrterr.Validation, "memory index %d out of range (have %d)", idx, len(s.memories))
	}
	return s.memories[idx], nil
}

// Len returns the number of memories in the set.
func (s *MemorySet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.memories)
}
