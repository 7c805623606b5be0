package async

import (
	"sync"

	"github.com/wrtgo/wrtgo/foundation"
	"github.com/wrtgo/wrtgo/wrterr"
)

type mutexWaiter struct {
	taskID uint64
	prio   Priority
	done   chan struct{}
	ok     bool
}

// Mutex is a task-owned, priority-inheritance-aware lock. Contended Lock
// is an explicit suspension point: the blocked task's priority is lent to
// the current holder for as long as the contention lasts, and Unlock
// hands the lock to the highest-priority waiter.
type Mutex struct {
	mu sync.Mutex

	resourceID uint64
	holder     uint64 // 0 = unheld
	waiters    []*mutexWaiter

	pi      *priorityInheritance
	counter *foundation.Counter
	level   foundation.VerificationLevel
}

// NewMutex constructs an unheld mutex identified by resourceID for
// priority-inheritance purposes.
func NewMutex(resourceID uint64, pi *priorityInheritance, counter *foundation.Counter, level foundation.VerificationLevel) *Mutex {
	if counter == nil {
		counter = foundation.NewCounter()
	}
	return &Mutex{resourceID: resourceID, pi: pi, counter: counter, level: level}
}

// TryLock acquires the mutex for taskID without blocking, or returns
// WouldBlock if another task holds it.
func (m *Mutex) TryLock(taskID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter.Record(foundation.ControlFlow, m.level)
	if m.holder == 0 {
		m.holder = taskID
		return nil
	}
	if m.holder == taskID {
		return wrterr.Errorf(wrterr.InvalidState, "task %d already holds mutex %d", taskID, m.resourceID)
	}
	return wrterr.New(wrterr.WouldBlock, "mutex held")
}

// Lock acquires the mutex for taskID, blocking until the holder releases
// it. While blocked, the holder inherits prio if it is higher than the
// holder's own effective priority. A wait-for cycle fails with
// DeadlockPrevented instead of blocking forever.
func (m *Mutex) Lock(taskID uint64, prio Priority) error {
	if err := m.TryLock(taskID); err == nil {
		return nil
	} else if kind, _ := wrterr.KindOf(err); kind == wrterr.InvalidState {
		return err
	}

	m.mu.Lock()
	if m.holder == 0 {
		m.holder = taskID
		m.mu.Unlock()
		return nil
	}
	if m.pi != nil {
		if err := m.pi.Block(taskID, prio, m.resourceID, m.holder, m.counter.Fuel(), 0); err != nil {
			m.mu.Unlock()
			return err
		}
	}
	w := &mutexWaiter{taskID: taskID, prio: prio, done: make(chan struct{})}
	m.waiters = append(m.waiters, w)
	m.mu.Unlock()

	<-w.done

	if !w.ok {
		return wrterr.Errorf(wrterr.Cancelled, "mutex %d wait abandoned", m.resourceID)
	}
	return nil
}

// Unlock releases the mutex held by taskID and hands it to the
// highest-priority waiter, if any. The former holder's effective priority
// is recomputed now that the contention is resolved.
func (m *Mutex) Unlock(taskID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.holder != taskID {
		return wrterr.Errorf(wrterr.InvalidState, "task %d does not hold mutex %d (holder %d)", taskID, m.resourceID, m.holder)
	}
	m.counter.Record(foundation.ControlFlow, m.level)

	if m.pi != nil {
		m.pi.Release(m.resourceID, taskID)
	}

	if len(m.waiters) == 0 {
		m.holder = 0
		return nil
	}

	best := 0
	for i, w := range m.waiters[1:] {
		if w.prio > m.waiters[best].prio {
			best = i + 1
		}
	}
	next := m.waiters[best]
	m.waiters = append(m.waiters[:best], m.waiters[best+1:]...)
	m.holder = next.taskID

	// Remaining waiters re-block against the new holder so the
	// inheritance chain stays accurate.
	if m.pi != nil {
		for _, w := range m.waiters {
			_ = m.pi.Block(w.taskID, w.prio, m.resourceID, next.taskID, m.counter.Fuel(), 0)
		}
	}

	next.ok = true
	close(next.done)
	return nil
}

// Holder returns the task currently holding the mutex, 0 if unheld.
func (m *Mutex) Holder() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.holder
}
