package component

import (
	"context"
	"fmt"
	"sync"

	"github.com/wrtgo/wrtgo/foundation"
	"github.com/wrtgo/wrtgo/internal/obs"
	"github.com/wrtgo/wrtgo/memresource"
	"github.com/wrtgo/wrtgo/wrterr"
)

// InstanceState is the ComponentInstance execution state machine:
// Instantiating -> Ready -> Executing <-> Suspended -> Completed, with
// Terminated/Failed reachable from any non-terminal state.
type InstanceState int

const (
	Instantiating InstanceState = iota
	Ready
	Executing
	Suspended
	Completed
	Terminated
	Failed
)

func (s InstanceState) String() string {
	switch s {
	case Instantiating:
		return "Instantiating"
	case Ready:
		return "Ready"
	case Executing:
		return "Executing"
	case Suspended:
		return "Suspended"
	case Completed:
		return "Completed"
	case Terminated:
		return "Terminated"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

func (s InstanceState) terminal() bool {
	return s == Completed || s == Terminated || s == Failed
}

// ResolvedImportBinding names the provider instance and export satisfying
// one of this instance's imports.
type ResolvedImportBinding struct {
	Import             ImportDecl
	ProviderInstanceID uint32
	ProviderExportName string
	HostFunc           HostFunction // set instead of ProviderInstanceID for host-satisfied imports
}

// ComponentInstance is one instantiation of a ComponentDefinition: its
// own linear memories, resource table, resolved imports, and execution
// state.
type ComponentInstance struct {
	mu sync.Mutex

	ID          uint32
	ComponentID string
	def         *ComponentDefinition

	state      InstanceState
	failureMsg string
	resolved   []ResolvedImportBinding
	memories   *memresource.MemorySet
	resources  *memresource.ResourceTable
	provider   *foundation.MemoryProvider
	counter    *foundation.Counter
	level      foundation.VerificationLevel
}

// Exports returns the definition's advertised exports, for host
// introspection.
func (c *ComponentInstance) Exports() []ExportDecl {
	return c.def.Exports
}

// State returns the instance's current execution state.
func (c *ComponentInstance) State() InstanceState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Memories exposes the instance's linear memories for host access.
func (c *ComponentInstance) Memories() *memresource.MemorySet {
	return c.memories
}

// Resources exposes the instance's resource table for host access.
func (c *ComponentInstance) Resources() *memresource.ResourceTable {
	return c.resources
}

func (c *ComponentInstance) transition(to InstanceState) {
	if c.state != to {
		obs.LinkerInstancesTotal.WithLabelValues(c.state.String()).Dec()
		obs.LinkerInstancesTotal.WithLabelValues(to.String()).Inc()
	}
	c.state = to
}

// CallFunction invokes the named export. Permitted only from Ready or
// Suspended; transitions to Executing for the duration of the
// call and restores Ready on normal completion. Suspension (an explicit
// executor yield mid-call) is represented by the caller driving the
// executor directly; this synchronous shim models the non-suspending
// fast path and is exercised by the CLI's `run` subcommand and by tests
// that don't need the async executor.
func (c *ComponentInstance) CallFunction(ctx context.Context, name string, args []Value, dispatch func(ctx context.Context, fn ExportDecl, args []Value) ([]Value, error)) ([]Value, error) {
	c.mu.Lock()
	if c.state != Ready && c.state != Suspended {
		state := c.state
		c.mu.Unlock()
		return nil, wrterr.Errorf(wrterr.InvalidState, "CallFunction requires Ready or Suspended, instance is %s", state)
	}
	fn, ok := c.def.export(name, KindFunc)
	if !ok {
		c.mu.Unlock()
		return nil, wrterr.Errorf(wrterr.ComponentNotFound, "no such export function %q", name)
	}
	c.transition(Executing)
	c.mu.Unlock()

	c.counter.Record(foundation.FunctionCall, c.level)
	results, err := dispatchSafely(ctx, fn, args, dispatch)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.transition(Failed)
		c.failureMsg = err.Error()
		return nil, err
	}
	c.transition(Ready)
	return results, nil
}

// dispatchSafely invokes a function body or host callable, translating a
// panic into a HostTrap error instead of unwinding through the instance.
func dispatchSafely(ctx context.Context, fn ExportDecl, args []Value, dispatch func(ctx context.Context, fn ExportDecl, args []Value) ([]Value, error)) (results []Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			results = nil
			err = wrterr.Errorf(wrterr.HostTrap, "panic in %q: %v", fn.Name, r)
		}
	}()
	return dispatch(ctx, fn, args)
}

// Suspend transitions an Executing instance to Suspended, for use by an
// async executor driving this instance's functions cooperatively.
func (c *ComponentInstance) Suspend() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Executing {
		return wrterr.Errorf(wrterr.InvalidState, "Suspend requires Executing, instance is %s", c.state)
	}
	c.transition(Suspended)
	return nil
}

// Resume transitions a Suspended instance back to Executing.
func (c *ComponentInstance) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Suspended {
		return wrterr.Errorf(wrterr.InvalidState, "Resume requires Suspended, instance is %s", c.state)
	}
	c.transition(Executing)
	return nil
}

// Complete marks an Executing instance Completed.
func (c *ComponentInstance) Complete() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Executing {
		return wrterr.Errorf(wrterr.InvalidState, "Complete requires Executing, instance is %s", c.state)
	}
	c.transition(Completed)
	return nil
}

// Terminate is permitted from any non-terminal state and is irrevocable.
func (c *ComponentInstance) Terminate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.terminal() {
		return wrterr.Errorf(wrterr.InvalidState, "instance %d already terminal (%s)", c.ID, c.state)
	}
	c.transition(Terminated)
	return nil
}

// Fail forces a terminal Failed state with msg recorded, from any
// non-terminal state.
func (c *ComponentInstance) Fail(msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.terminal() {
		return wrterr.Errorf(wrterr.InvalidState, "instance %d already terminal (%s)", c.ID, c.state)
	}
	c.failureMsg = msg
	c.transition(Failed)
	return nil
}

func (c *ComponentInstance) String() string {
	return fmt.Sprintf("instance#%d(%s)=%s", c.ID, c.ComponentID, c.state)
}
