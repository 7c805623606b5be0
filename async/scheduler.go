package async

import "sort"

// SchedulerConfig holds the scheduler's tunable knobs.
type SchedulerConfig struct {
	DefaultQuantum     uint64
	MinQuantum         uint64
	MaxQuantum         uint64
	AgingEnabled       bool
	AgingFuelThreshold uint64
	MaxPriorityBoost   int
	PriorityChainBound int
}

// DefaultSchedulerConfig returns the default 1000-unit quantum with
// aging disabled.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{DefaultQuantum: 1000, MinQuantum: 100, MaxQuantum: 10000, PriorityChainBound: 16}
}

func (c SchedulerConfig) clampQuantum(q uint64) uint64 {
	if c.MinQuantum > 0 && q < c.MinQuantum {
		return c.MinQuantum
	}
	if c.MaxQuantum > 0 && q > c.MaxQuantum {
		return c.MaxQuantum
	}
	return q
}

// scheduler selects the next Ready task to run: highest effective
// priority, then earliest deadline, then longest wait.
type scheduler struct {
	cfg SchedulerConfig
}

func newScheduler(cfg SchedulerConfig) *scheduler {
	if cfg.DefaultQuantum == 0 {
		cfg = DefaultSchedulerConfig()
	}
	return &scheduler{cfg: cfg}
}

// applyAging boosts a waiting task's effective priority by one class per
// aging_fuel_threshold units of accumulated wait fuel-time, up to
// max_priority_boost classes above its original priority.
func (s *scheduler) applyAging(t *AsyncTask, nowFuel uint64) {
	if !s.cfg.AgingEnabled || s.cfg.AgingFuelThreshold == 0 {
		return
	}
	waited := nowFuel - t.waitStart
	boosts := int(waited / s.cfg.AgingFuelThreshold)
	if s.cfg.MaxPriorityBoost > 0 && boosts > s.cfg.MaxPriorityBoost {
		boosts = s.cfg.MaxPriorityBoost
	}
	eff := t.OriginalPrio
	for i := 0; i < boosts; i++ {
		eff = eff.boosted()
	}
	if eff > t.EffectivePrio {
		t.EffectivePrio = eff
	}
}

// selectNext picks the highest-priority Ready task from ready, breaking
// ties by earliest deadline then longest wait (FIFO by enqueue time).
func (s *scheduler) selectNext(ready []*AsyncTask) *AsyncTask {
	if len(ready) == 0 {
		return nil
	}
	best := ready[0]
	for _, t := range ready[1:] {
		if better(t, best) {
			best = t
		}
	}
	return best
}

func better(a, b *AsyncTask) bool {
	if a.EffectivePrio != b.EffectivePrio {
		return a.EffectivePrio > b.EffectivePrio
	}
	switch {
	case a.Deadline != nil && b.Deadline == nil:
		return true
	case a.Deadline == nil && b.Deadline != nil:
		return false
	case a.Deadline != nil && b.Deadline != nil && !a.Deadline.Equal(*b.Deadline):
		return a.Deadline.Before(*b.Deadline)
	}
	return a.enqueuedAt.Before(b.enqueuedAt)
}

// sortReadyForDisplay returns ready tasks ordered by scheduling priority,
// for diagnostics. It does not mutate state.
func sortReadyForDisplay(ready []*AsyncTask) []*AsyncTask {
	out := make([]*AsyncTask, len(ready))
	copy(out, ready)
	sort.SliceStable(out, func(i, j int) bool { return better(out[i], out[j]) })
	return out
}

// maybePreempt marks running's preempt flag if candidate is a strictly
// higher effective priority and running is preemptible.
func maybePreempt(running, candidate *AsyncTask) {
	if running == nil || candidate == nil {
		return
	}
	if candidate.EffectivePrio > running.EffectivePrio {
		running.requestPreempt()
	}
}
