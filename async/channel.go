package async

import (
	"strconv"
	"sync"

	"github.com/wrtgo/wrtgo/foundation"
	"github.com/wrtgo/wrtgo/internal/obs"
	"github.com/wrtgo/wrtgo/wrterr"
)

// MaxChannelCapacity bounds every Channel's ring buffer.
const MaxChannelCapacity = 65536

// ChannelStats is the integer counter set a Channel exposes via Stats().
type ChannelStats struct {
	Capacity     int
	Size         int
	Sent         uint64
	Received     uint64
	FuelConsumed uint64
}

type waiter[T any] struct {
	taskID uint64
	value  T
	done   chan struct{}
	ok     bool
}

// Channel is a fixed-capacity, priority-inheritance-aware bounded async
// channel.
type Channel[T any] struct {
	mu sync.Mutex

	capacity int
	buf      []T
	closed   bool

	waitingSenders   []*waiter[T]
	waitingReceivers []*waiter[T]

	sent, received uint64

	ownerTaskID uint64 // the "receiver owner" resource id for priority inheritance
	pi          *priorityInheritance
	counter     *foundation.Counter
	level       foundation.VerificationLevel
	fuelSpent   uint64
}

// NewChannel constructs a channel bounded to capacity (clamped to
// MaxChannelCapacity), optionally wired to a priority-inheritance
// tracker owned by ownerTaskID. A full channel acts as a contended
// resource: blocked senders elevate the priority of the receiver owner.
func NewChannel[T any](capacity int, pi *priorityInheritance, ownerTaskID uint64, counter *foundation.Counter, level foundation.VerificationLevel) *Channel[T] {
	if capacity > MaxChannelCapacity {
		capacity = MaxChannelCapacity
	}
	if capacity < 1 {
		capacity = 1
	}
	if counter == nil {
		counter = foundation.NewCounter()
	}
	return &Channel[T]{capacity: capacity, pi: pi, ownerTaskID: ownerTaskID, counter: counter, level: level}
}

func (c *Channel[T]) charge(op foundation.OpType) {
	c.fuelSpent += c.counter.Record(op, c.level)
}

// reportDepthLocked publishes the channel's current occupancy, labelled by
// its owning task id (a channel's identity, per channelResourceID).
// Caller holds c.mu.
func (c *Channel[T]) reportDepthLocked() {
	obs.ChannelDepth.WithLabelValues(strconv.FormatUint(c.ownerTaskID, 10)).Set(float64(len(c.buf)))
}

// TrySend delivers directly to a waiting receiver if any, otherwise
// enqueues, otherwise returns WouldBlock.
func (c *Channel[T]) TrySend(value T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return wrterr.New(wrterr.ChannelClosed, "send on closed channel")
	}
	if len(c.waitingReceivers) > 0 {
		r := c.waitingReceivers[0]
		c.waitingReceivers = c.waitingReceivers[1:]
		r.value, r.ok = value, true
		close(r.done)
		c.sent++
		c.received++
		c.charge(foundation.CollWrite)
		return nil
	}
	if len(c.buf) < c.capacity {
		c.buf = append(c.buf, value)
		c.sent++
		c.charge(foundation.CollWrite)
		c.reportDepthLocked()
		return nil
	}
	return wrterr.New(wrterr.WouldBlock, "channel full")
}

// Send tries TrySend first; when the channel is full it registers the
// caller as a waiting sender and blocks until a receiver takes the value
// (into the buffer or directly) or the channel is closed. A woken sender
// does not retry: the receiver that woke it has already delivered its
// value.
func (c *Channel[T]) Send(taskID uint64, value T) error {
	if err := c.TrySend(value); err == nil {
		return nil
	} else if kind, _ := wrterr.KindOf(err); kind == wrterr.ChannelClosed {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return wrterr.New(wrterr.ChannelClosed, "send on closed channel")
	}
	w := &waiter[T]{taskID: taskID, value: value, done: make(chan struct{})}
	c.waitingSenders = append(c.waitingSenders, w)
	if c.pi != nil {
		c.pi.Block(taskID, c.pi.EffectivePriority(taskID), c.channelResourceID(), c.ownerTaskID, 0, 0)
	}
	c.mu.Unlock()

	<-w.done

	if c.pi != nil {
		c.pi.Release(c.channelResourceID(), c.ownerTaskID)
	}

	if !w.ok {
		return wrterr.Errorf(wrterr.ChannelClosed, "send on closed channel (value %v dropped)", value)
	}
	return nil
}

func (c *Channel[T]) channelResourceID() uint64 {
	// A channel's identity as a priority-inheritance resource: the
	// ownerTaskID it's attached to uniquely identifies it for this
	// executor's purposes, since one channel has exactly one owner.
	return c.ownerTaskID
}

// TryRecv dequeues a value, or returns Empty/Closed.
func (c *Channel[T]) TryRecv() (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	if len(c.buf) > 0 {
		v := c.buf[0]
		c.buf = c.buf[1:]
		c.received++
		c.charge(foundation.CollRead)
		c.promoteWaitingSenderLocked()
		c.reportDepthLocked()
		return v, nil
	}
	if len(c.waitingSenders) > 0 {
		s := c.waitingSenders[0]
		c.waitingSenders = c.waitingSenders[1:]
		s.ok = true
		close(s.done)
		c.sent++
		c.received++
		c.charge(foundation.CollRead)
		return s.value, nil
	}
	if c.closed {
		return zero, wrterr.New(wrterr.ChannelClosed, "recv on closed channel")
	}
	return zero, wrterr.New(wrterr.WouldBlock, "channel empty")
}

// Recv registers the caller as a waiting receiver and blocks until a
// value is delivered or the channel is closed. Unlike Send, a blocked receiver
// does not register a priority-inheritance block: the channel's PI
// resource identity (channelResourceID) models "blocked senders elevate
// the receiver owner that will drain the buffer," and there is no
// symmetric designated sender-owner task to elevate when the channel is
// simply empty.
func (c *Channel[T]) Recv(taskID uint64) (T, error) {
	if v, err := c.TryRecv(); err == nil {
		return v, nil
	} else if kind, _ := wrterr.KindOf(err); kind == wrterr.ChannelClosed {
		var zero T
		return zero, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		var zero T
		return zero, wrterr.New(wrterr.ChannelClosed, "recv on closed channel")
	}
	w := &waiter[T]{taskID: taskID, done: make(chan struct{})}
	c.waitingReceivers = append(c.waitingReceivers, w)
	c.mu.Unlock()

	<-w.done

	if !w.ok {
		var zero T
		return zero, wrterr.New(wrterr.ChannelClosed, "recv on closed channel")
	}
	return w.value, nil
}

func (c *Channel[T]) promoteWaitingSenderLocked() {
	if len(c.waitingSenders) == 0 || len(c.buf) >= c.capacity {
		return
	}
	s := c.waitingSenders[0]
	c.waitingSenders = c.waitingSenders[1:]
	c.buf = append(c.buf, s.value)
	c.sent++
	c.charge(foundation.CollWrite)
	s.ok = true
	close(s.done)
}

// Close drains both waiter queues with wakes; subsequent sends fail
// with Closed.
func (c *Channel[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for _, s := range c.waitingSenders {
		s.ok = false
		close(s.done)
	}
	for _, r := range c.waitingReceivers {
		r.ok = false
		close(r.done)
	}
	c.waitingSenders = nil
	c.waitingReceivers = nil
}

// Stats returns the channel's counters.
func (c *Channel[T]) Stats() ChannelStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ChannelStats{
		Capacity:     c.capacity,
		Size:         len(c.buf),
		Sent:         c.sent,
		Received:     c.received,
		FuelConsumed: c.fuelSpent,
	}
}
