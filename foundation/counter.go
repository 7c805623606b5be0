package foundation

import (
	"sync/atomic"

	"github.com/wrtgo/wrtgo/internal/obs"
)

// Counter is the process-wide (or executor-scoped) operation/fuel ledger.
// It is lock-free: every field is an atomic counter, safe for concurrent
// Record calls from multiple goroutines.
type Counter struct {
	counts [numOpTypes]atomic.Uint64
	fuel   atomic.Uint64
}

// NewCounter returns a zeroed Counter.
func NewCounter() *Counter {
	return &Counter{}
}

// Record tallies one occurrence of op at the given verification level,
// charges the computed fuel, and returns the fuel delta. Record never
// fails: fuel exhaustion is a policy enforced by callers that track a
// budget against Fuel(), not by Counter itself.
func (c *Counter) Record(op OpType, level VerificationLevel) uint64 {
	if op < 0 || op >= numOpTypes {
		op = Other
	}
	c.counts[op].Add(1)
	delta := Charge(BaseCost(op), level)
	c.fuel.Add(delta)

	obs.OperationsTotal.WithLabelValues(op.String()).Inc()
	obs.FuelConsumedTotal.WithLabelValues(op.Category().String()).Add(float64(delta))

	return delta
}

// Fuel returns total fuel consumed so far. Monotonically non-decreasing,
// invariant.
func (c *Counter) Fuel() uint64 {
	return c.fuel.Load()
}

// OpCount returns the tally for a single op type.
func (c *Counter) OpCount(op OpType) uint64 {
	if op < 0 || op >= numOpTypes {
		return 0
	}
	return c.counts[op].Load()
}

// Snapshot returns a point-in-time copy of every op tally, keyed by
// OpType.String(), plus the total fuel consumed.
func (c *Counter) Snapshot() (counts map[string]uint64, fuel uint64) {
	counts = make(map[string]uint64, numOpTypes)
	for op := OpType(0); op < numOpTypes; op++ {
		if v := c.counts[op].Load(); v > 0 {
			counts[op.String()] = v
		}
	}
	return counts, c.fuel.Load()
}
