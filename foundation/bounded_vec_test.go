package foundation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wrtgo/wrtgo/wrterr"
)

func TestBoundedVecRejectsOverCapacity(t *testing.T) {
	p := NewMemoryProvider(1<<20, Off, "test", nil)
	v, err := NewBoundedVec[int](p, 3, 8)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, v.Push(i))
	}
	err = v.Push(99)
	require.Error(t, err)
	kind, ok := wrterr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, wrterr.LimitExceeded, kind)
	assert.Equal(t, 3, v.Len())
}

func TestBoundedVecNeverExceedsCapacityUnderMixedOps(t *testing.T) {
	p := NewMemoryProvider(1<<20, Off, "test", nil)
	v, err := NewBoundedVec[int](p, 4, 8)
	require.NoError(t, err)

	ops := []string{"push", "push", "pop", "push", "push", "push", "push", "push"}
	for _, op := range ops {
		switch op {
		case "push":
			_ = v.Push(1)
		case "pop":
			_, _ = v.Pop()
		}
		require.LessOrEqual(t, v.Len(), v.Cap())
	}
}

func TestBoundedVecGetOutOfBounds(t *testing.T) {
	p := NewMemoryProvider(1<<20, Off, "test", nil)
	v, err := NewBoundedVec[string](p, 2, 16)
	require.NoError(t, err)
	require.NoError(t, v.Push("a"))

	_, err = v.Get(5)
	require.Error(t, err)
	kind, _ := wrterr.KindOf(err)
	assert.Equal(t, wrterr.OutOfBounds, kind)
}

func TestBoundedVecChecksumDetectsCorruption(t *testing.T) {
	p := NewMemoryProvider(1<<20, Standard, "test", nil)
	v, err := NewBoundedVec[int](p, 4, 8)
	require.NoError(t, err)
	require.NoError(t, v.Push(1))
	require.NoError(t, v.Push(2))

	require.NoError(t, v.Verify())

	// Corrupt a slot directly, bypassing the checksum-updating API.
	v.items[0] = 999

	_, err = v.Get(0)
	require.Error(t, err)
	kind, _ := wrterr.KindOf(err)
	assert.Equal(t, wrterr.IntegrityFailure, kind)

	report := p.Report()
	assert.Equal(t, uint64(1), report.ChecksFailed)
	assert.NotEmpty(t, report.LastFailure)
}

func TestBoundedVecInsertRemoveIterate(t *testing.T) {
	p := NewMemoryProvider(1<<20, Off, "test", nil)
	v, err := NewBoundedVec[int](p, 5, 8)
	require.NoError(t, err)
	require.NoError(t, v.Push(1))
	require.NoError(t, v.Push(3))
	require.NoError(t, v.Insert(1, 2))

	var collected []int
	v.Iterate(func(_ int, item int) bool {
		collected = append(collected, item)
		return true
	})
	assert.Equal(t, []int{1, 2, 3}, collected)

	require.NoError(t, v.Remove(1))
	collected = nil
	v.Iterate(func(_ int, item int) bool {
		collected = append(collected, item)
		return true
	})
	assert.Equal(t, []int{1, 3}, collected)
}

func TestMemoryProviderReserveRelease(t *testing.T) {
	p := NewMemoryProvider(100, Off, "test", nil)
	require.NoError(t, p.Reserve(60))
	err := p.Reserve(50)
	require.Error(t, err)
	kind, _ := wrterr.KindOf(err)
	assert.Equal(t, wrterr.ResourceExhausted, kind)

	p.Release(60)
	require.NoError(t, p.Reserve(50))
	assert.Equal(t, uint64(50), p.Used())
}
