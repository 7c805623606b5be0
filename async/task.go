package async

import (
	"context"
	"time"

	"github.com/wrtgo/wrtgo/foundation"
)

// Priority is a task's scheduling class.
type Priority int

const (
	Low Priority = iota
	Normal
	High
	Critical
)

func (p Priority) String() string {
	switch p {
	case Low:
		return "Low"
	case Normal:
		return "Normal"
	case High:
		return "High"
	default:
		return "Critical"
	}
}

// boosted returns the next priority class up, clamped at Critical.
func (p Priority) boosted() Priority {
	if p >= Critical {
		return Critical
	}
	return p + 1
}

// TaskState is an AsyncTask's lifecycle state.
type TaskState int

const (
	TaskReady TaskState = iota
	TaskRunning
	TaskWaiting
	TaskCompleted
	TaskCancelled
)

func (s TaskState) String() string {
	switch s {
	case TaskReady:
		return "Ready"
	case TaskRunning:
		return "Running"
	case TaskWaiting:
		return "Waiting"
	case TaskCompleted:
		return "Completed"
	default:
		return "Cancelled"
	}
}

func (s TaskState) terminal() bool {
	return s == TaskCompleted || s == TaskCancelled
}

// PollResult is what a Poll function returns at a suspension or
// completion boundary.
type PollResult int

const (
	// Pending means the task suspended at an explicit suspension point
	// or was preempted; it stays Ready/Waiting and will be polled again.
	Pending PollResult = iota
	// Done means the task ran to completion on this poll.
	Done
)

// PollFunc drives one task forward until it either completes, suspends
// at an explicit suspension point, or is asked to yield at a preemption
// boundary. ctx is the context passed to RunOnce, with the task's deadline
// attached when it has one; Executor.Cancel does not cancel it.
type PollFunc func(ctx context.Context) (PollResult, error)

// WaitReason names the single reason a Waiting task is blocked.
type WaitReason int

const (
	WaitNone WaitReason = iota
	WaitChannel
	WaitTimer
	WaitResource
)

// AsyncTask is one unit of cooperatively-scheduled work.
type AsyncTask struct {
	ID            uint64
	ComponentID   string
	OriginalPrio  Priority
	EffectivePrio Priority
	State         TaskState
	FuelRemaining uint64
	FuelQuantum   uint64
	Deadline      *time.Time
	Preemptible   bool
	WaitReason    WaitReason

	poll PollFunc

	enqueuedAt   time.Time // for FIFO tie-break among equal-priority Ready tasks
	waitStart    uint64    // fuel-time instant the task started waiting
	preemptFlag  bool
	cleanupQueue []*CleanupEntry
}

// NewAsyncTask constructs a task in the Ready state at its original
// priority.
func NewAsyncTask(id uint64, componentID string, prio Priority, fuelBudget, fuelQuantum uint64, preemptible bool, poll PollFunc) *AsyncTask {
	return &AsyncTask{
		ID:            id,
		ComponentID:   componentID,
		OriginalPrio:  prio,
		EffectivePrio: prio,
		State:         TaskReady,
		FuelRemaining: fuelBudget,
		FuelQuantum:   fuelQuantum,
		Preemptible:   preemptible,
		poll:          poll,
	}
}

// requestPreempt sets the flag a preemptible task's next poll boundary
// honors by returning Pending.
func (t *AsyncTask) requestPreempt() {
	if t.Preemptible {
		t.preemptFlag = true
	}
}

func (t *AsyncTask) clearPreempt() {
	t.preemptFlag = false
}

// chargeFuel deducts an op's fuel cost from the task's remaining budget.
func (t *AsyncTask) chargeFuel(counter *foundation.Counter, op foundation.OpType, level foundation.VerificationLevel) uint64 {
	delta := counter.Record(op, level)
	if delta > t.FuelRemaining {
		t.FuelRemaining = 0
	} else {
		t.FuelRemaining -= delta
	}
	return delta
}
