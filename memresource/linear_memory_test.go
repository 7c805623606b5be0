package memresource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wrtgo/wrtgo/foundation"
	"github.com/wrtgo/wrtgo/wrterr"
)

func TestLinearMemoryGrowBoundedByMax(t *testing.T) {
	max := uint32(2)
	p := foundation.NewMemoryProvider(1<<20, foundation.Off, "test", nil)
	m, err := NewLinearMemory(1, &max, false, p)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), m.PageCount())

	prev, err := m.Grow(1)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), prev)
	assert.Equal(t, uint32(2), m.PageCount())

	_, err = m.Grow(1)
	require.Error(t, err)
	kind, ok := wrterr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, wrterr.LimitExceeded, kind)
	assert.Equal(t, uint32(2), m.PageCount(), "failed grow must not mutate state")
}

func TestLinearMemoryGrowReservesFromProvider(t *testing.T) {
	p := foundation.NewMemoryProvider(PageSize*2, foundation.Off, "test", nil)
	m, err := NewLinearMemory(1, nil, false, p)
	require.NoError(t, err)
	assert.Equal(t, uint64(PageSize), p.Used())

	_, err = m.Grow(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(PageSize*2), p.Used())

	_, err = m.Grow(1)
	require.Error(t, err)
	kind, _ := wrterr.KindOf(err)
	assert.Equal(t, wrterr.ResourceExhausted, kind)
}

func TestLinearMemoryReadWriteRoundtrip(t *testing.T) {
	m, err := NewLinearMemory(1, nil, false, nil)
	require.NoError(t, err)

	require.NoError(t, m.WriteU32(0, 2, 0xdeadbeef))
	v, err := m.ReadU32(0, 2)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xdeadbeef), v)

	require.NoError(t, m.WriteU8(8, 0xfe))
	zx, err := m.ReadU8Zx(8)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xfe), zx)
	sx, err := m.ReadU8Sx(8)
	require.NoError(t, err)
	assert.Equal(t, int32(-2), sx)
}

func TestLinearMemoryOutOfBoundsAccess(t *testing.T) {
	m, err := NewLinearMemory(1, nil, false, nil)
	require.NoError(t, err)

	_, err = m.ReadU64(PageSize-4, 0)
	require.Error(t, err)
	kind, _ := wrterr.KindOf(err)
	assert.Equal(t, wrterr.OutOfBounds, kind)
}

func TestLinearMemoryMisalignedAccessRejected(t *testing.T) {
	m, err := NewLinearMemory(1, nil, false, nil)
	require.NoError(t, err)

	err = m.WriteU32(1, 2, 0)
	require.Error(t, err)
	kind, _ := wrterr.KindOf(err)
	assert.Equal(t, wrterr.AlignmentError, kind)
}

func TestLinearMemoryCopyWithinBoundedByBothEnds(t *testing.T) {
	m, err := NewLinearMemory(1, nil, false, nil)
	require.NoError(t, err)
	require.NoError(t, m.WriteU32(0, 2, 0x11223344))

	require.NoError(t, m.CopyWithin(16, 0, 4))
	v, err := m.ReadU32(16, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x11223344), v)

	err = m.CopyWithin(PageSize-2, 0, 4)
	require.Error(t, err)
	kind, _ := wrterr.KindOf(err)
	assert.Equal(t, wrterr.OutOfBounds, kind)
}

type fakeSegment struct {
	data    []byte
	dropped bool
}

func (f *fakeSegment) SizeInBytes(uint32) (uint32, error) { return uint32(len(f.data)), nil }
func (f *fakeSegment) Read(_ uint32, offset, length uint32) ([]byte, error) {
	return f.data[offset : offset+length], nil
}
func (f *fakeSegment) IsDropped(uint32) bool { return f.dropped }
func (f *fakeSegment) Drop(uint32) error     { f.dropped = true; return nil }

func TestLinearMemoryInitFromSegmentRejectsDropped(t *testing.T) {
	m, err := NewLinearMemory(1, nil, false, nil)
	require.NoError(t, err)
	seg := &fakeSegment{data: []byte{1, 2, 3, 4}, dropped: true}

	err = m.InitFromSegment(seg, 0, 0, 0, 4)
	require.Error(t, err)
	kind, _ := wrterr.KindOf(err)
	assert.Equal(t, wrterr.OutOfBounds, kind)
}

func TestLinearMemoryInitFromSegmentCopiesBytes(t *testing.T) {
	m, err := NewLinearMemory(1, nil, false, nil)
	require.NoError(t, err)
	seg := &fakeSegment{data: []byte{9, 8, 7, 6}}

	require.NoError(t, m.InitFromSegment(seg, 0, 32, 0, 4))
	v, err := m.ReadU32(32, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x06070809), v)
}

func TestMemorySetOutOfRangeIndex(t *testing.T) {
	m, err := NewLinearMemory(1, nil, false, nil)
	require.NoError(t, err)
	set := NewMemorySet(m)
	assert.Equal(t, 1, set.Len())

	_, err = set.At(1)
	require.Error(t, err)
	kind, _ := wrterr.KindOf(err)
	assert.Equal(t, wrterr.Validation, kind)
}
