package stream

import "github.com/kb9ops/gopacketmodem/internal/tag"

// PDU is an owned (data, tags) pair used where a block must hold an
// entire packet for random access — header formatting, PDU muxing, the
// TUN-facing boundary (spec.md §3, "PDU"). Tag indices are relative to
// the PDU's own Data slice.
type PDU[T any] struct {
	Data []T
	Tags []tag.Tag
}

// TagAt returns the merged tag map attached to relative index i, if any.
func (p PDU[T]) TagAt(i int64) (tag.Map, bool) {
	var m tag.Map
	found := false
	for _, t := range p.Tags {
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
