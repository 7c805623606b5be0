package async

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wrtgo/wrtgo/wrterr"
)

func TestPriorityInheritanceBoostsHolderThenRestoresOnRelease(t *testing.T) {
	pi := newPriorityInheritance(8)
	const (
		tLow  uint64 = 1
		tHigh uint64 = 2
		res   uint64 = 100
	)
	pi.noteTask(tLow, Low)

	require.NoError(t, pi.Block(tHigh, High, res, tLow, 0, 0))
	assert.Equal(t, High, pi.EffectivePriority(tLow))

	pi.Release(res, tLow)
	assert.Equal(t, Low, pi.EffectivePriority(tLow))
}

func TestPriorityInheritanceIsTransitive(t *testing.T) {
	pi := newPriorityInheritance(8)
	const (
		t1   uint64 = 1 // holds resource A, blocked on resource B held by t2
		t2   uint64 = 2 // holds resource B
		t3   uint64 = 3 // blocks on resource A held by t1, at Critical
		resA uint64 = 10
		resB uint64 = 20
	)
	pi.noteTask(t1, Normal)
	pi.noteTask(t2, Low)

	require.NoError(t, pi.Block(t1, Normal, resB, t2, 0, 0))
	require.NoError(t, pi.Block(t3, Critical, resA, t1, 0, 0))

	assert.Equal(t, Critical, pi.EffectivePriority(t1), "t1 inherits t3's priority")
	assert.Equal(t, Critical, pi.EffectivePriority(t2), "boost propagates transitively to t2")
}

func TestPriorityInheritanceDetectsCycle(t *testing.T) {
	pi := newPriorityInheritance(8)
	const (
		t1   uint64 = 1
		t2   uint64 = 2
		resA uint64 = 10
		resB uint64 = 20
	)
	pi.noteTask(t1, Normal)
	pi.noteTask(t2, Normal)

	require.NoError(t, pi.Block(t1, Normal, resA, t2, 0, 0))

	err := pi.Block(t2, Normal, resB, t1, 0, 0)
	require.Error(t, err)
	kind, ok := wrterr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, wrterr.DeadlockPrevented, kind)
}

func TestPriorityInheritanceChainBound(t *testing.T) {
	pi := newPriorityInheritance(1)
	const (
		t1   uint64 = 1
		t2   uint64 = 2
		t3   uint64 = 3
		resA uint64 = 10
		resB uint64 = 20
	)
	pi.noteTask(t1, Normal)
	pi.noteTask(t2, Normal)

	require.NoError(t, pi.Block(t1, Normal, resA, t2, 0, 0))

	err := pi.Block(t3, Normal, resB, t1, 0, 0)
	require.Error(t, err)
	kind, _ := wrterr.KindOf(err)
	assert.Equal(t, wrterr.DeadlockPrevented, kind)
}
