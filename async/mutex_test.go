package async

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wrtgo/wrtgo/foundation"
	"github.com/wrtgo/wrtgo/wrterr"
)

func TestMutexTryLockContention(t *testing.T) {
	m := NewMutex(1, nil, foundation.NewCounter(), foundation.Standard)

	require.NoError(t, m.TryLock(1))
	assert.Equal(t, uint64(1), m.Holder())

	err := m.TryLock(2)
	require.Error(t, err)
	kind, _ := wrterr.KindOf(err)
	assert.Equal(t, wrterr.WouldBlock, kind)

	err = m.TryLock(1)
	require.Error(t, err, "re-acquiring a held mutex is a usage error, not a deadlock")
	kind, _ = wrterr.KindOf(err)
	assert.Equal(t, wrterr.InvalidState, kind)

	require.NoError(t, m.Unlock(1))
	require.NoError(t, m.TryLock(2))
}

func TestMutexLockSuspendsAndElevatesHolder(t *testing.T) {
	pi := newPriorityInheritance(8)
	pi.noteTask(1, Low)
	m := NewMutex(42, pi, foundation.NewCounter(), foundation.Standard)

	require.NoError(t, m.TryLock(1))

	acquired := make(chan struct{})
	go func() {
		assert.NoError(t, m.Lock(2, High))
		close(acquired)
	}()

	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return len(m.waiters) == 1
	}, time.Second, time.Millisecond, "contended Lock must suspend")

	assert.Equal(t, High, pi.EffectivePriority(1), "holder inherits the blocked waiter's priority")

	select {
	case <-acquired:
		t.Fatal("Lock returned while the mutex was still held")
	default:
	}

	require.NoError(t, m.Unlock(1))

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("blocked waiter was never handed the mutex")
	}
	assert.Equal(t, uint64(2), m.Holder())
	assert.Equal(t, Low, pi.EffectivePriority(1), "boost is returned once the contention resolves")
}

func TestMutexUnlockHandsToHighestPriorityWaiter(t *testing.T) {
	m := NewMutex(7, nil, foundation.NewCounter(), foundation.Standard)
	require.NoError(t, m.TryLock(1))

	got := make(chan uint64, 2)
	for _, w := range []struct {
		id   uint64
		prio Priority
	}{{2, Low}, {3, Critical}} {
		w := w
		go func() {
			if err := m.Lock(w.id, w.prio); err == nil {
				got <- w.id
			}
		}()
	}

	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return len(m.waiters) == 2
	}, time.Second, time.Millisecond)

	require.NoError(t, m.Unlock(1))
	select {
	case id := <-got:
		assert.Equal(t, uint64(3), id, "highest-priority waiter wins the handoff")
	case <-time.After(time.Second):
		t.Fatal("no waiter was woken")
	}

	require.NoError(t, m.Unlock(3))
	select {
	case id := <-got:
		assert.Equal(t, uint64(2), id)
	case <-time.After(time.Second):
		t.Fatal("remaining waiter was never woken")
	}
}

func TestMutexUnlockByNonHolderRejected(t *testing.T) {
	m := NewMutex(9, nil, foundation.NewCounter(), foundation.Standard)
	require.NoError(t, m.TryLock(1))

	err := m.Unlock(2)
	require.Error(t, err)
	kind, _ := wrterr.KindOf(err)
	assert.Equal(t, wrterr.InvalidState, kind)
}
