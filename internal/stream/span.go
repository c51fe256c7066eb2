package stream

import "github.com/kb9ops/gopacketmodem/internal/tag"

// InSpan is the read-only view of an input port's pending items that a
// block's ProcessBulk receives. The block must call Consume exactly once
// before returning (spec.md §4.1, "Span semantics").
type InSpan[T any] struct {
	items []T
	tags  []tag.Tag
	buf   *Buffer[T]
}

func newInSpan[T any](buf *Buffer[T], max int) InSpan[T] {
	items := buf.PeekRead(max)
	return InSpan[T]{items: items, tags: buf.TagsInSpan(len(items)), buf: buf}
}

func (s InSpan[T]) Size() int       { return len(s.items) }
func (s InSpan[T]) Items() []T      { return s.items }
func (s InSpan[T]) Tags() []tag.Tag { return s.tags }

// TagAt returns the tag map at relative index i, if any (merging maps of
// multiple tags sharing that index per spec.md §3).
func (s InSpan[T]) TagAt(i int64) (tag.Map, bool) {
	var m tag.Map
	found := false
	for _, t := range s.tags {
		if t.Index == i {
			if !found {
				m = t.Map
			} else {
				m = m.Merge(t.Map)
			}
			found = true
		}
	}
	return m, found
}

// Consume tells the runtime the block processed k of the span's items.
func (s InSpan[T]) Consume(k int) {
	if k < 0 || k > len(s.items) {
		panic("stream: Consume out of range")
	}
	s.buf.Consume(k)
}

// OutSpan is the writable view of an output port's free capacity.
type OutSpan[T any] struct {
	items []T
	buf   *Buffer[T]
}

func newOutSpan[T any](buf *Buffer[T], max int) OutSpan[T] {
	items := buf.PeekWrite(max)
	return OutSpan[T]{items: items, buf: buf}
}

func (s OutSpan[T]) Size() int  { return len(s.items) }
func (s OutSpan[T]) Items() []T { return s.items }

// Publish tells the runtime the block wrote k of the span's items.
func (s OutSpan[T]) Publish(k int) {
	if k < 0 || k > len(s.items) {
		panic("stream: Publish out of range")
	}
	s.buf.Publish(k)
}

// PublishTag attaches a tag at offset items ahead of the next Publish
// (CUSTOM tag propagation, spec.md §4.1).
func (s OutSpan[T]) PublishTag(offset int, m tag.Map) {
	s.buf.PublishTag(offset, m)
}

// Port wraps a Buffer with the span-acquisition helpers a block's
// ProcessBulk uses each call.
type Port[T any] struct {
	Buf *Buffer[T]
}

func NewPort[T any](capacity int) Port[T] {
	return Port[T]{Buf: NewBuffer[T](capacity)}
}

func (p Port[T]) InSpan(max int) InSpan[T]   { return newInSpan(p.Buf, max) }
func (p Port[T]) OutSpan(max int) OutSpan[T] { return newOutSpan(p.Buf, max) }
