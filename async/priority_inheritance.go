package async

import (
	"github.com/wrtgo/wrtgo/internal/obs"
	"github.com/wrtgo/wrtgo/wrterr"
)

// PriorityInheritanceEdge records one blocked-task -> held-resource
// relationship.
type PriorityInheritanceEdge struct {
	BlockedTaskID uint64
	ResourceID    uint64
	HolderTaskID  uint64
	OriginalPrio  Priority
	EffectivePrio Priority
	WaitStartFuel uint64
	MaxWaitFuel   uint64 // 0 = unbounded
}

// priorityInheritance implements the transitive boost-on-block,
// recompute-on-release protocol with a bounded chain length and cycle
// detection.
type priorityInheritance struct {
	maxChain int

	// edges is keyed by blocked task id; holders is keyed by resource id
	// -> the task id currently holding it.
	edges   map[uint64]*PriorityInheritanceEdge
	holders map[uint64]uint64

	// originalPrio tracks each task's own priority so recomputation on
	// release can fall back to it.
	originalPrio  map[uint64]Priority
	effectivePrio map[uint64]Priority
}

func newPriorityInheritance(maxChain int) *priorityInheritance {
	return &priorityInheritance{
		maxChain:      maxChain,
		edges:         make(map[uint64]*PriorityInheritanceEdge),
		holders:       make(map[uint64]uint64),
		originalPrio:  make(map[uint64]Priority),
		effectivePrio: make(map[uint64]Priority),
	}
}

func (p *priorityInheritance) noteTask(taskID uint64, prio Priority) {
	if _, ok := p.originalPrio[taskID]; !ok {
		p.originalPrio[taskID] = prio
		p.effectivePrio[taskID] = prio
	}
}

// EffectivePriority returns the task's current boosted-or-not priority.
func (p *priorityInheritance) EffectivePriority(taskID uint64) Priority {
	if eff, ok := p.effectivePrio[taskID]; ok {
		return eff
	}
	return Low
}

// Block records waiterID blocking on resourceID held by holderID, and
// propagates the priority boost transitively along the existing
// wait-for chain. Detects a cycle (waiterID already reachable from
// holderID) and fails with DeadlockPrevented without recording the edge.
func (p *priorityInheritance) Block(waiterID uint64, waiterPrio Priority, resourceID, holderID uint64, waitStartFuel, maxWaitFuel uint64) error {
	p.noteTask(waiterID, waiterPrio)
	if _, known := p.originalPrio[holderID]; !known {
		p.noteTask(holderID, Low)
	}

	if p.wouldCycle(waiterID, holderID) {
		return wrterr.Errorf(wrterr.DeadlockPrevented, "blocking task %d on resource %d held by %d would cycle", waiterID, resourceID, holderID)
	}

	chainLen := p.chainLength(holderID)
	obs.InheritanceChainLength.Observe(float64(chainLen))
	if chainLen >= p.maxChain {
		return wrterr.Errorf(wrterr.DeadlockPrevented, "priority-inheritance chain bound %d exceeded", p.maxChain)
	}

	p.edges[waiterID] = &PriorityInheritanceEdge{
		BlockedTaskID: waiterID,
		ResourceID:    resourceID,
		HolderTaskID:  holderID,
		OriginalPrio:  waiterPrio,
		EffectivePrio: waiterPrio,
		WaitStartFuel: waitStartFuel,
		MaxWaitFuel:   maxWaitFuel,
	}
	p.holders[resourceID] = holderID

	p.boostTransitively(holderID)
	return nil
}

// wouldCycle reports whether holderID can already reach waiterID by
// following the wait-for chain (holder waiting on something waiterID
// ultimately holds).
func (p *priorityInheritance) wouldCycle(waiterID, holderID uint64) bool {
	seen := make(map[uint64]bool)
	cur := holderID
	for i := 0; i < p.maxChain+1; i++ {
		if cur == waiterID {
			return true
		}
		if seen[cur] {
			return false
		}
		seen[cur] = true
		edge, blocked := p.edges[cur]
		if !blocked {
			return false
		}
		cur = edge.HolderTaskID
	}
	return true // exceeded bound while still chasing: treat as a cycle for safety
}

func (p *priorityInheritance) chainLength(holderID uint64) int {
	n := 0
	cur := holderID
	seen := make(map[uint64]bool)
	for {
		edge, blocked := p.edges[cur]
		if !blocked || seen[cur] {
			return n
		}
		seen[cur] = true
		n++
		cur = edge.HolderTaskID
	}
}

// boostTransitively raises holderID's effective priority to the max of
// its own and every waiter blocked (directly or transitively) on a
// resource it holds, and propagates the same boost up the chain if the
// holder is itself blocked on a further resource.
func (p *priorityInheritance) boostTransitively(holderID uint64) {
	best := p.originalPrio[holderID]
	for _, edge := range p.edges {
		if p.holders[edge.ResourceID] == holderID && edge.EffectivePrio > best {
			best = edge.EffectivePrio
		}
	}
	p.effectivePrio[holderID] = best

	if holderEdge, blocked := p.edges[holderID]; blocked {
		if best > holderEdge.EffectivePrio {
			holderEdge.EffectivePrio = best
		}
		p.boostTransitively(holderEdge.HolderTaskID)
	}
}

// Release tears down the wait edge for resourceID's waiter(s) on
// acquisition, and recomputes the former holder's effective priority as
// the max of its original priority and the priorities of any remaining
// waiters across all resources it still holds.
func (p *priorityInheritance) Release(resourceID, formerHolderID uint64) {
	for waiterID, edge := range p.edges {
		if edge.ResourceID == resourceID {
			delete(p.edges, waiterID)
		}
	}
	delete(p.holders, resourceID)
	p.recompute(formerHolderID)
}

func (p *priorityInheritance) recompute(taskID uint64) {
	best := p.originalPrio[taskID]
	for _, edge := range p.edges {
		if p.holders[edge.ResourceID] == taskID && edge.EffectivePrio > best {
			best = edge.EffectivePrio
		}
	}
	p.effectivePrio[taskID] = best
}

// releaseAllHeldBy tears down every resource held by taskID (used on
// task cancellation) and recomputes affected holders.
func (p *priorityInheritance) releaseAllHeldBy(taskID uint64) {
	for resourceID, holder := range p.holders {
		if holder == taskID {
			p.Release(resourceID, taskID)
		}
	}
	delete(p.edges, taskID)
}
