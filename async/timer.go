package async

import (
	"context"

	"github.com/wrtgo/wrtgo/foundation"
)

// Timer is a fuel-time alarm: it expires once the shared counter has
// consumed delayFuel more units than it had at construction. Waiting on
// one is an explicit suspension point, enforced at poll boundaries with
// resolution no finer than a fuel quantum.
type Timer struct {
	counter      *foundation.Counter
	deadlineFuel uint64
}

// NewFuelTimer arms a timer delayFuel units into the future.
func NewFuelTimer(counter *foundation.Counter, delayFuel uint64) *Timer {
	return &Timer{counter: counter, deadlineFuel: counter.Fuel() + delayFuel}
}

// Expired reports whether fuel-time has reached the deadline.
func (t *Timer) Expired() bool {
	return t.counter.Fuel() >= t.deadlineFuel
}

// Remaining returns the fuel units left before expiry, 0 once expired.
func (t *Timer) Remaining() uint64 {
	now := t.counter.Fuel()
	if now >= t.deadlineFuel {
		return 0
	}
	return t.deadlineFuel - now
}

// Wait returns a PollFunc that suspends (returns Pending) until the
// timer expires, for spawning onto an Executor.
func (t *Timer) Wait() PollFunc {
	return func(ctx context.Context) (PollResult, error) {
		if err := ctx.Err(); err != nil {
			return Pending, err
		}
		if t.Expired() {
			return Done, nil
		}
		return Pending, nil
	}
}
