package memresource

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wrtgo/wrtgo/foundation"
	"github.com/wrtgo/wrtgo/wrterr"
)

// MemoryStrategy tags how a resource's payload is shared with callers.
type MemoryStrategy int

const (
	ZeroCopy MemoryStrategy = iota
	BoundedCopy
	Isolated
	Copy
	Reference
	FullIsolation
)

func (s MemoryStrategy) String() string {
	switch s {
	case ZeroCopy:
		return "zero-copy"
	case BoundedCopy:
		return "bounded-copy"
	case Isolated:
		return "isolated"
	case Copy:
		return "copy"
	case Reference:
		return "reference"
	default:
		return "full-isolation"
	}
}

// Resource is a host-owned payload indexed by the ResourceTable.
type Resource struct {
	TypeIdx      uint32
	Payload      any
	DebugName    string
	CreatedAt    time.Time
	LastAccessed time.Time
	AccessCount  uint64
	Strategy     MemoryStrategy
	Level        foundation.VerificationLevel

	correlationID string // uuid, for cross-subsystem log correlation
	strongRefs    int
}

// Interceptor allows a host to override a resource's MemoryStrategy at
// creation time, and to intercept individual accesses with a synthetic
// result.
type Interceptor interface {
	OnCreate(typeIdx uint32, requested MemoryStrategy) MemoryStrategy
	OnAccess(handle uint32, res *Resource) (result any, intercepted bool)
}

type handleEntry struct {
	resourceID uint32
	weak       bool
}

// ResourceTable indexes heterogeneous host-owned resources by u32 handle
// starting at 1, with strong/weak handle semantics: a weak handle never
// outlives the last strong handle to the same resource.
type ResourceTable struct {
	mu          sync.Mutex
	max         int
	nextID      uint32
	nextHandle  uint32
	resources   map[uint32]*Resource // keyed by resourceID
	handles     map[uint32]handleEntry
	interceptor Interceptor
	counter     *foundation.Counter
	level       foundation.VerificationLevel
}

// NewResourceTable constructs an empty table with a fixed maximum entry
// count.
func NewResourceTable(max int, level foundation.VerificationLevel, counter *foundation.Counter, interceptor Interceptor) *ResourceTable {
	if counter == nil {
		counter = foundation.NewCounter()
	}
	return &ResourceTable{
		max:         max,
		resources:   make(map[uint32]*Resource),
		handles:     make(map[uint32]handleEntry),
		interceptor: interceptor,
		counter:     counter,
		level:       level,
	}
}

// Len returns the number of live resources (not handles: borrowed
// handles to the same resource don't count twice).
func (t *ResourceTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.resources)
}

// Create allocates a new resource and returns its strong handle.
func (t *ResourceTable) Create(typeIdx uint32, payload any, debugName string, strategy MemoryStrategy) (uint32, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.resources) >= t.max {
		return 0, wrterr.Errorf(wrterr.LimitExceeded, "resource table at capacity %d", t.max)
	}

	if t.interceptor != nil {
		strategy = t.interceptor.OnCreate(typeIdx, strategy)
	}

	t.nextID++
	resID := t.nextID
	now := time.Now()
	t.resources[resID] = &Resource{
		TypeIdx:       typeIdx,
		Payload:       payload,
		DebugName:     debugName,
		CreatedAt:     now,
		LastAccessed:  now,
		Strategy:      strategy,
		Level:         t.level,
		correlationID: uuid.NewString(),
		strongRefs:    1,
	}

	t.nextHandle++
	handle := t.nextHandle
	t.handles[handle] = handleEntry{resourceID: resID, weak: false}

	t.counter.Record(foundation.CollCreate, t.level)
	return handle, nil
}

// Borrow returns a fresh weak handle to the same resource as handle.
func (t *ResourceTable) Borrow(handle uint32) (uint32, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	he, ok := t.handles[handle]
	if !ok {
		return 0, wrterr.New(wrterr.ResourceNotFound, "no such resource handle")
	}

	t.nextHandle++
	weakHandle := t.nextHandle
	t.handles[weakHandle] = handleEntry{resourceID: he.resourceID, weak: true}

	t.counter.Record(foundation.CollRead, t.level)
	return weakHandle, nil
}

// Access looks up handle, bumping last-accessed time and the access
// counter, running any interceptor, and returning the live payload (or a
// synthetic interceptor result).
func (t *ResourceTable) Access(handle uint32) (any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	he, ok := t.handles[handle]
	if !ok {
		return nil, wrterr.New(wrterr.ResourceNotFound, "no such resource handle")
	}
	res, ok := t.resources[he.resourceID]
	if !ok {
		return nil, wrterr.New(wrterr.ResourceNotFound, "resource already dropped")
	}

	res.LastAccessed = time.Now()
	res.AccessCount++
	t.counter.Record(foundation.CollRead, t.level)

	if t.interceptor != nil {
		if result, intercepted := t.interceptor.OnAccess(handle, res); intercepted {
			return result, nil
		}
	}
	return res.Payload, nil
}

// Describe returns a copy of the Resource metadata for handle, without
// bumping access stats, for diagnostic use.
func (t *ResourceTable) Describe(handle uint32) (Resource, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	he, ok := t.handles[handle]
	if !ok {
		return Resource{}, wrterr.New(wrterr.ResourceNotFound, "no such resource handle")
	}
	res, ok := t.resources[he.resourceID]
	if !ok {
		return Resource{}, wrterr.New(wrterr.ResourceNotFound, "resource already dropped")
	}
	return *res, nil
}

// Drop releases handle. Dropping a weak handle only removes that handle.
// Dropping the last strong handle frees the resource and invalidates
// every weak handle derived from it, enforcing "a weak handle never
// outlives the last strong handle".
func (t *ResourceTable) Drop(handle uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	he, ok := t.handles[handle]
	if !ok {
		return wrterr.New(wrterr.ResourceNotFound, "no such resource handle")
	}
	delete(t.handles, handle)

	if he.weak {
		t.counter.Record(foundation.CollRemove, t.level)
		return nil
	}

	res, ok := t.resources[he.resourceID]
	if !ok {
		return nil // already gone
	}
	res.strongRefs--
	if res.strongRefs <= 0 {
		delete(t.resources, he.resourceID)
		for h, e := range t.handles {
			if e.resourceID == he.resourceID {
				delete(t.handles, h)
			}
		}
	}
	t.counter.Record(foundation.CollRemove, t.level)
	return nil
}
