package async

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wrtgo/wrtgo/foundation"
	"github.com/wrtgo/wrtgo/internal/obs"
	"github.com/wrtgo/wrtgo/wrterr"
)

// Executor runs many cooperative tasks single-threaded, driving the
// scheduler's selection and priority-inheritance bookkeeping.
// Multiple Executors may run on distinct goroutines; they never share
// task queues.
type Executor struct {
	mu sync.Mutex

	tasks      map[uint64]*AsyncTask
	nextTaskID uint64
	taskLimit  int

	sched   *scheduler
	pi      *priorityInheritance
	cleanup *CleanupManager

	counter *foundation.Counter
	level   foundation.VerificationLevel
	logger  zerolog.Logger

	running *AsyncTask
	stopCh  chan struct{}
}

// NewExecutor constructs an idle executor bounded to taskLimit concurrent
// tasks.
func NewExecutor(cfg SchedulerConfig, taskLimit int, counter *foundation.Counter, level foundation.VerificationLevel) *Executor {
	if counter == nil {
		counter = foundation.NewCounter()
	}
	chainBound := cfg.PriorityChainBound
	if chainBound <= 0 {
		chainBound = 16
	}
	return &Executor{
		tasks:     make(map[uint64]*AsyncTask),
		taskLimit: taskLimit,
		sched:     newScheduler(cfg),
		pi:        newPriorityInheritance(chainBound),
		cleanup:   NewCleanupManager(),
		counter:   counter,
		level:     level,
		logger:    obs.WithComponent("async"),
		stopCh:    make(chan struct{}),
	}
}

// Spawn admits a new task, failing with LimitExceeded once taskLimit is
// reached.
func (e *Executor) Spawn(componentID string, prio Priority, fuelBudget uint64, preemptible bool, deadline *time.Time, poll PollFunc) (*AsyncTask, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.taskLimit > 0 && len(e.tasks) >= e.taskLimit {
		return nil, wrterr.Errorf(wrterr.LimitExceeded, "executor at task_limit=%d", e.taskLimit)
	}

	e.nextTaskID++
	t := NewAsyncTask(e.nextTaskID, componentID, prio, fuelBudget, e.sched.cfg.DefaultQuantum, preemptible, poll)
	t.Deadline = deadline
	t.enqueuedAt = time.Now()
	t.waitStart = e.counter.Fuel()
	e.tasks[t.ID] = t
	obs.TasksByState.WithLabelValues(t.State.String()).Inc()
	return t, nil
}

// setTaskStateLocked transitions t to newState, keeping the TasksByState
// gauge in sync. Caller holds e.mu.
func (e *Executor) setTaskStateLocked(t *AsyncTask, newState TaskState) {
	old := t.State
	t.State = newState
	if old == newState {
		return
	}
	obs.TasksByState.WithLabelValues(old.String()).Dec()
	obs.TasksByState.WithLabelValues(newState.String()).Inc()
}

// readyTasksLocked returns the live Ready tasks. Caller holds e.mu.
func (e *Executor) readyTasksLocked() []*AsyncTask {
	var ready []*AsyncTask
	for _, t := range e.tasks {
		if t.State == TaskReady {
			ready = append(ready, t)
		}
	}
	return ready
}

// RunOnce drives one scheduling cycle: selects the highest-priority Ready
// task, polls it under its fuel quantum, and handles completion,
// suspension, quantum exhaustion, and deadline expiry. Returns false when
// there is no Ready task to run.
func (e *Executor) RunOnce(ctx context.Context) (bool, error) {
	e.mu.Lock()
	nowFuel := e.counter.Fuel()
	for _, t := range e.tasks {
		if t.State == TaskReady {
			e.sched.applyAging(t, nowFuel)
		}
	}
	ready := e.readyTasksLocked()
	timer := obs.NewTimer()
	next := e.sched.selectNext(ready)
	timer.ObserveDuration(obs.SchedulingLatency)
	if next == nil {
		e.mu.Unlock()
		return false, nil
	}
	for _, t := range ready {
		if t != next {
			maybePreempt(next, t)
		}
	}
	e.setTaskStateLocked(next, TaskRunning)
	next.clearPreempt()
	e.running = next
	quantum := next.FuelQuantum
	if quantum == 0 {
		quantum = e.sched.cfg.DefaultQuantum
	}
	e.mu.Unlock()

	if next.Deadline != nil && time.Now().After(*next.Deadline) {
		return true, e.cancel(next, wrterr.Errorf(wrterr.DeadlineExceeded, "task %d missed deadline", next.ID))
	}

	pollCtx := ctx
	var cancelPoll context.CancelFunc
	if next.Deadline != nil {
		pollCtx, cancelPoll = context.WithDeadline(ctx, *next.Deadline)
	}
	fuelBeforePoll := e.counter.Fuel()
	result, err := pollSafely(next, pollCtx)
	if cancelPoll != nil {
		cancelPoll()
	}
	spent := e.counter.Fuel() - fuelBeforePoll
	if spent > next.FuelRemaining {
		next.FuelRemaining = 0
	} else {
		next.FuelRemaining -= spent
	}

	e.mu.Lock()
	e.running = nil
	e.mu.Unlock()

	if err != nil {
		return true, e.cancel(next, err)
	}

	switch {
	case result == Done:
		e.mu.Lock()
		e.setTaskStateLocked(next, TaskCompleted)
		e.mu.Unlock()
		e.drainCleanup(next)
		e.logger.Debug().Uint64("task_id", next.ID).Msg("task completed")
	case next.FuelRemaining == 0:
		return true, e.cancel(next, wrterr.Errorf(wrterr.FuelExhausted, "task %d exhausted fuel budget", next.ID))
	case spent >= quantum:
		e.mu.Lock()
		e.setTaskStateLocked(next, TaskReady)
		next.waitStart = e.counter.Fuel()
		next.enqueuedAt = time.Now()
		e.mu.Unlock()
	default:
		e.mu.Lock()
		e.setTaskStateLocked(next, TaskReady)
		next.enqueuedAt = time.Now()
		e.mu.Unlock()
	}
	return true, nil
}

// pollSafely drives one poll, translating a panic inside the future into
// a HostTrap error instead of tearing down the executor.
func pollSafely(t *AsyncTask, ctx context.Context) (result PollResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = Pending
			err = wrterr.Errorf(wrterr.HostTrap, "panic in task %d poll: %v", t.ID, r)
		}
	}()
	return t.poll(ctx)
}

// cancel transitions t to Cancelled, drains its cleanup entries, and
// releases any priority-inheritance holds it owned.
func (e *Executor) cancel(t *AsyncTask, cause error) error {
	e.mu.Lock()
	e.setTaskStateLocked(t, TaskCancelled)
	e.pi.releaseAllHeldBy(t.ID)
	e.mu.Unlock()
	e.drainCleanup(t)
	e.logger.Warn().Uint64("task_id", t.ID).Err(cause).Msg("task cancelled")
	return cause
}

func (e *Executor) drainCleanup(t *AsyncTask) error {
	return e.cleanup.Drain(t.cleanupQueue)
}

// Cancel cancels taskID from outside the run loop.
func (e *Executor) Cancel(taskID uint64) error {
	e.mu.Lock()
	t, ok := e.tasks[taskID]
	e.mu.Unlock()
	if !ok {
		return wrterr.Errorf(wrterr.InstanceNotFound, "no such task %d", taskID)
	}
	if t.State.terminal() {
		return nil
	}
	_ = e.cancel(t, wrterr.New(wrterr.Cancelled, "cancelled by caller"))
	return nil
}

// Task returns the task registered under id.
func (e *Executor) Task(id uint64) (*AsyncTask, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.tasks[id]
	return t, ok
}

// PriorityInheritance exposes the executor's priority-inheritance
// bookkeeping for Channel/resource integration.
func (e *Executor) PriorityInheritance() *priorityInheritance {
	return e.pi
}

// Cleanup exposes the executor's cleanup manager for task setup code to
// register CleanupEntry values against.
func (e *Executor) Cleanup() *CleanupManager {
	return e.cleanup
}

// Run drives RunOnce in a loop until the context is cancelled or Stop is
// called, sleeping briefly when there is no Ready task.
func (e *Executor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stopCh:
			return
		default:
		}
		ran, err := e.RunOnce(ctx)
		if err != nil {
			e.logger.Debug().Err(err).Msg("run cycle ended with error")
		}
		if !ran {
			select {
			case <-time.After(time.Millisecond):
			case <-ctx.Done():
				return
			case <-e.stopCh:
				return
			}
		}
	}
}

// Stop halts a running Run loop.
func (e *Executor) Stop() {
	close(e.stopCh)
}
