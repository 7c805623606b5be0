package foundation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wrtgo/wrtgo/wrterr"
)

func TestBoundedMapRejectsOverCapacity(t *testing.T) {
	p := NewMemoryProvider(1<<20, Off, "test", nil)
	m, err := NewBoundedMap[string, int](p, 2, 32)
	require.NoError(t, err)

	require.NoError(t, m.Insert("a", 1))
	require.NoError(t, m.Insert("b", 2))
	err = m.Insert("c", 3)
	require.Error(t, err)
	kind, _ := wrterr.KindOf(err)
	assert.Equal(t, wrterr.LimitExceeded, kind)
	assert.Equal(t, 2, m.Len())
}

func TestBoundedMapOverwriteAtCapacitySucceeds(t *testing.T) {
	p := NewMemoryProvider(1<<20, Off, "test", nil)
	m, err := NewBoundedMap[string, int](p, 1, 32)
	require.NoError(t, err)

	require.NoError(t, m.Insert("a", 1))
	require.NoError(t, m.Insert("a", 2))

	v, err := m.Get("a")
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestBoundedMapGetMissingKey(t *testing.T) {
	p := NewMemoryProvider(1<<20, Off, "test", nil)
	m, err := NewBoundedMap[string, int](p, 4, 32)
	require.NoError(t, err)

	_, err = m.Get("missing")
	require.Error(t, err)
	kind, _ := wrterr.KindOf(err)
	assert.Equal(t, wrterr.OutOfBounds, kind)
}

func TestBoundedMapRemoveThenIterateInKeyOrder(t *testing.T) {
	p := NewMemoryProvider(1<<20, Off, "test", nil)
	m, err := NewBoundedMap[string, int](p, 4, 32)
	require.NoError(t, err)
	require.NoError(t, m.Insert("b", 2))
	require.NoError(t, m.Insert("a", 1))
	require.NoError(t, m.Insert("c", 3))
	require.NoError(t, m.Remove("b"))

	var keys []string
	m.Iterate(func(k string, _ int) bool {
		keys = append(keys, k)
		return true
	})
	assert.Equal(t, []string{"a", "c"}, keys)

	err = m.Remove("b")
	require.Error(t, err)
	kind, _ := wrterr.KindOf(err)
	assert.Equal(t, wrterr.OutOfBounds, kind)
}

func TestBoundedMapChecksumDetectsCorruption(t *testing.T) {
	p := NewMemoryProvider(1<<20, Standard, "test", nil)
	m, err := NewBoundedMap[string, int](p, 4, 32)
	require.NoError(t, err)
	require.NoError(t, m.Insert("a", 1))
	require.NoError(t, m.Verify())

	// Corrupt an entry directly, bypassing the checksum-updating API.
	m.items["a"] = 999

	_, err = m.Get("a")
	require.Error(t, err)
	kind, _ := wrterr.KindOf(err)
	assert.Equal(t, wrterr.IntegrityFailure, kind)
}

func TestBoundedMapClearResetsChecksum(t *testing.T) {
	p := NewMemoryProvider(1<<20, Standard, "test", nil)
	m, err := NewBoundedMap[string, int](p, 4, 32)
	require.NoError(t, err)
	require.NoError(t, m.Insert("a", 1))

	m.Clear()
	assert.Equal(t, 0, m.Len())
	require.NoError(t, m.Verify())
}
