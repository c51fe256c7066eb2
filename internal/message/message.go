// Package message implements the parallel, lossy telemetry channel
// blocks use for rate reporting, lifecycle commands and the receiver's
// decoded-header fan-in (spec.md §4.1, "Messages").
package message

import (
	"context"
	"sync"

	"github.com/kb9ops/gopacketmodem/internal/tag"
)

// Well-known commands carried on the lifecycle port.
const (
	CmdRequestedStop = "REQUESTED_STOP"
	CmdSetting       = "SET"
)

// Message is the unit of telemetry exchanged on a message port.
type Message struct {
	Cmd      string
	Service  string
	Endpoint string
	Data     tag.Map
	ClientID int64
}

// Bus is a bounded multi-producer/multi-consumer queue. On overflow the
// oldest message is dropped (spec.md §5, "Shared resources") rather than
// blocking the publisher, since message ports must never apply
// backpressure to the data path.
type Bus struct {
	mu       sync.Mutex
	cond     *sync.Cond
	items    []Message
	capacity int
	dropped  uint64
	closed   bool
}

// NewBus creates a bus that holds at most capacity undelivered messages.
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = 1
	}
	b := &Bus{capacity: capacity}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Publish enqueues m, dropping the oldest queued message first if the
// bus is already at capacity.
func (b *Bus) Publish(m Message) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	if len(b.items) >= b.capacity {
		b.items = b.items[1:]
		b.dropped++
	}
	b.items = append(b.items, m)
	b.cond.Broadcast()
	b.mu.Unlock()
}

// Dropped returns the number of messages evicted for overflow so far.
func (b *Bus) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// TryReceive returns the oldest queued message without blocking.
func (b *Bus) TryReceive() (Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.items) == 0 {
		return Message{}, false
	}
	m := b.items[0]
	b.items = b.items[1:]
	return m, true
}

// Receive blocks until a message is available, the bus is closed, or ctx
// is done.
func (b *Bus) Receive(ctx context.Context) (Message, bool) {
	done := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		close(done)
		b.mu.Lock()
		b.cond.Broadcast()
		b.mu.Unlock()
	})
	defer stop()

	b.mu.Lock()
	defer b.mu.Unlock()
	for len(b.items) == 0 && !b.closed {
		select {
		case <-done:
			return Message{}, false
		default:
		}
		b.cond.Wait()
	}
	if len(b.items) == 0 {
		return Message{}, false
	}
	m := b.items[0]
	b.items = b.items[1:]
	return m, true
}

// Close marks the bus closed; pending Receive calls unblock with ok=false.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	b.cond.Broadcast()
	b.mu.Unlock()
}
