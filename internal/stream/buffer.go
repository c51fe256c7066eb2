package stream

import (
	"sync"

	"github.com/kb9ops/gopacketmodem/internal/tag"
)

// Buffer is the bounded single-producer/single-consumer ring buffer that
// connects exactly two blocks' ports (spec.md §3, "Stream"). Readers and
// writers see contiguous spans; wrap-around is hidden from callers by
// PeekRead/PeekWrite never returning a slice that crosses the backing
// array's end — instead the caller gets a shorter span and, per the
// block contract, is called again once more space or data is available.
//
// The reference implementation models this as a lock-free SPSC queue
// (Design Note "Shared resources"). This port uses a mutex instead: a
// single goroutine per block, one buffer per edge, and calls into the
// buffer are brief enough that a mutex never becomes a bottleneck. The
// buffer also carries a condition variable for WaitForActivity; the
// threaded scheduler does not use it and sleeps briefly between idle
// calls instead. See DESIGN.md for the full rationale.
type Buffer[T any] struct {
	mu   sync.Mutex
	cond *sync.Cond

	buf []T
	cap int

	writePos int64
	readPos  int64

	tags []tag.Tag

	done    bool // producer will publish no more items (DONE reached)
	stopped bool // scheduler requested teardown
}

// NewBuffer allocates a ring buffer with room for capacity items.
func NewBuffer[T any](capacity int) *Buffer[T] {
	if capacity <= 0 {
		capacity = 1
	}
	b := &Buffer[T]{
		buf: make([]T, capacity),
		cap: capacity,
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *Buffer[T]) Cap() int { return b.cap }

// Available returns the number of unread items currently published.
func (b *Buffer[T]) Available() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int(b.writePos - b.readPos)
}

// Free returns the number of items that can still be published before
// the ring fills.
func (b *Buffer[T]) Free() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cap - int(b.writePos-b.readPos)
}

// PeekRead returns a contiguous, read-only view of up to max unread
// items. The returned slice may be shorter than max (or empty) either
// because fewer items are available or because the ring wraps before
// max items are reached.
func (b *Buffer[T]) PeekRead(max int) []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.peekReadLocked(max)
}

func (b *Buffer[T]) peekReadLocked(max int) []T {
	avail := int(b.writePos - b.readPos)
	if max > avail {
		max = avail
	}
	if max <= 0 {
		return nil
	}
	start := int(b.readPos % int64(b.cap))
	if room := b.cap - start; max > room {
		max = room
	}
	return b.buf[start : start+max]
}

// PeekWrite returns a contiguous, writable view of up to max free slots.
func (b *Buffer[T]) PeekWrite(max int) []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	free := b.cap - int(b.writePos-b.readPos)
	if max > free {
		max = free
	}
	if max <= 0 {
		return nil
	}
	start := int(b.writePos % int64(b.cap))
	if room := b.cap - start; max > room {
		max = room
	}
	return b.buf[start : start+max]
}

// Consume advances the read cursor by n items (n must not exceed the
// most recent PeekRead's length) and prunes tags that have fallen behind
// the new read cursor.
func (b *Buffer[T]) Consume(n int) {
	if n == 0 {
		return
	}
	b.mu.Lock()
	b.readPos += int64(n)
	if len(b.tags) > 0 {
		kept := b.tags[:0]
		for _, t := range b.tags {
			if t.Index >= b.readPos {
				kept = append(kept, t)
			}
		}
		b.tags = kept
	}
	b.cond.Broadcast()
	b.mu.Unlock()
}

// Publish advances the write cursor by n items (n must not exceed the
// most recent PeekWrite's length).
func (b *Buffer[T]) Publish(n int) {
	if n == 0 {
		return
	}
	b.mu.Lock()
	b.writePos += int64(n)
	b.cond.Broadcast()
	b.mu.Unlock()
}

// PublishTag attaches a tag at absolute position writePos+offset, i.e.
// offset items ahead of the next Publish call's first item. offset must
// be within [0, however many items will be published).
func (b *Buffer[T]) PublishTag(offset int, m tag.Map) {
	b.mu.Lock()
	b.tags = append(b.tags, tag.Tag{Index: b.writePos + int64(offset), Map: m})
	b.mu.Unlock()
}

// TagsInSpan returns tags whose absolute index falls within the next n
// unread items, with Index rewritten relative to the current read
// cursor (0 == first unread item).
func (b *Buffer[T]) TagsInSpan(n int) []tag.Tag {
	b.mu.Lock()
	defer b.mu.Unlock()
	end := b.readPos + int64(n)
	var out []tag.Tag
	for _, t := range b.tags {
		if t.Index >= b.readPos && t.Index < end {
			out = append(out, tag.Tag{Index: t.Index - b.readPos, Map: t.Map})
		}
	}
	return out
}

// MarkDone signals that the producer will never publish again.
func (b *Buffer[T]) MarkDone() {
	b.mu.Lock()
	b.done = true
	b.cond.Broadcast()
	b.mu.Unlock()
}

// Done reports whether the producer has finished and every published
// item has been consumed.
func (b *Buffer[T]) Done() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done && b.writePos == b.readPos
}

// ProducerDone reports whether MarkDone was called, regardless of
// whether unread items remain.
func (b *Buffer[T]) ProducerDone() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done
}

// WaitForActivity blocks the calling goroutine until either more items
// are available to read, more room is available to write, the producer
// signals Done, or the scheduler requests a stop. Neither scheduler in
// this module calls it.
func (b *Buffer[T]) WaitForActivity(prevWrite, prevRead int64) {
	b.mu.Lock()
	for b.writePos == prevWrite && b.readPos == prevRead && !b.done && !b.stopped {
		b.cond.Wait()
	}
	b.mu.Unlock()
}

// Positions returns the current write/read cursors, for use with
// WaitForActivity.
func (b *Buffer[T]) Positions() (write, read int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writePos, b.readPos
}

// Stop wakes any goroutine blocked in WaitForActivity so it can observe
// a requested teardown.
func (b *Buffer[T]) Stop() {
	b.mu.Lock()
	b.stopped = true
	b.cond.Broadcast()
	b.mu.Unlock()
}
