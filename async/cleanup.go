package async

import (
	"sort"
	"sync"

	"github.com/wrtgo/wrtgo/internal/obs"
	"github.com/wrtgo/wrtgo/wrterr"
)

// CleanupKind is the closed set of resource kinds a CleanupEntry can
// release.
type CleanupKind int

const (
	CleanupStream CleanupKind = iota
	CleanupFuture
	CleanupTask
	CleanupBorrow
	CleanupScope
	CleanupSubtask
	CleanupCustom
)

func (k CleanupKind) String() string {
	switch k {
	case CleanupStream:
		return "stream"
	case CleanupFuture:
		return "future"
	case CleanupTask:
		return "task"
	case CleanupBorrow:
		return "borrow"
	case CleanupScope:
		return "scope"
	case CleanupSubtask:
		return "subtask"
	default:
		return "custom"
	}
}

// CleanupEntry is one queued teardown action, dispatched by kind at task
// completion or instance teardown.
type CleanupEntry struct {
	ID       uint64
	Kind     CleanupKind
	Priority Priority
	Critical bool
	Payload  any
	Action   func(payload any) error
}

// CleanupStats tallies drain outcomes.
type CleanupStats struct {
	EntriesProcessed    uint64
	CriticalFailures    uint64
	NonCriticalFailures uint64
}

// CleanupManager drains an instance's or task's queued CleanupEntry
// values in descending-priority order, dispatching each to its kind's
// handler.
type CleanupManager struct {
	mu       sync.Mutex
	nextID   uint64
	stats    CleanupStats
	handlers map[CleanupKind]func(payload any) error
}

// NewCleanupManager constructs an empty manager.
func NewCleanupManager() *CleanupManager {
	return &CleanupManager{handlers: make(map[CleanupKind]func(payload any) error)}
}

// RegisterHandler installs the per-kind dispatch function used when an
// entry of that kind carries no Action of its own.
func (m *CleanupManager) RegisterHandler(kind CleanupKind, handler func(payload any) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[kind] = handler
}

// NewEntry allocates a CleanupEntry id and returns a populated entry
// ready to be queued on an AsyncTask.
func (m *CleanupManager) NewEntry(kind CleanupKind, prio Priority, critical bool, payload any, action func(payload any) error) *CleanupEntry {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.mu.Unlock()
	return &CleanupEntry{ID: id, Kind: kind, Priority: prio, Critical: critical, Payload: payload, Action: action}
}

// Drain runs entries in descending-priority order. A critical entry that
// fails returns CriticalFailure immediately, abandoning any remaining
// entries; non-critical failures are tallied and execution continues.
func (m *CleanupManager) Drain(entries []*CleanupEntry) error {
	ordered := make([]*CleanupEntry, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority > ordered[j].Priority })

	for _, e := range ordered {
		handler := e.Action
		if handler == nil {
			m.mu.Lock()
			handler = m.handlers[e.Kind]
			m.mu.Unlock()
		}
		var err error
		if handler != nil {
			err = handler(e.Payload)
		}

		m.mu.Lock()
		m.stats.EntriesProcessed++
		if err != nil {
			if e.Critical {
				m.stats.CriticalFailures++
				obs.CleanupFailuresTotal.WithLabelValues(e.Kind.String()).Inc()
				m.mu.Unlock()
				return wrterr.Errorf(wrterr.CriticalFailure, "critical cleanup entry %d (kind %d) failed: %v", e.ID, e.Kind, err)
			}
			m.stats.NonCriticalFailures++
			obs.CleanupFailuresTotal.WithLabelValues(e.Kind.String()).Inc()
		}
		m.mu.Unlock()
	}
	return nil
}

// Stats returns a snapshot of the manager's drain outcomes.
func (m *CleanupManager) Stats() CleanupStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}
