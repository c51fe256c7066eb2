package blocks

import (
	"fmt"

	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/stream"
)

// mapperInt is the constraint on Mapper's input element: something the
// table can be indexed by after masking to its low k bits.
type mapperInt interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64 | ~int
}

// Mapper looks each input item's low k bits (table size 2^k) up in a
// fixed table, the generic form behind the constellation modulator and
// any other nibble-to-symbol lookup (spec.md §4.2, "Mapper").
type Mapper[TIn mapperInt, TOut any] struct {
	block.Base
	In    stream.Port[TIn]
	Out   stream.Port[TOut]
	table []TOut
	mask  TIn
}

func NewMapper[TIn mapperInt, TOut any](table []TOut) (*Mapper[TIn, TOut], error) {
	n := len(table)
	if n == 0 || n&(n-1) != 0 {
		return nil, fmt.Errorf("blocks: mapper table length %d is not a power of two", n)
	}
	cp := make([]TOut, n)
	copy(cp, table)
	return &Mapper[TIn, TOut]{
		Base:  block.Base{BlockName: "mapper"},
		In:    stream.NewPort[TIn](1 << 16),
		Out:   stream.NewPort[TOut](1 << 16),
		table: cp,
		mask:  TIn(n - 1),
	}, nil
}

func (b *Mapper[TIn, TOut]) ProcessBulk() (block.Status, error) {
	inSpan := b.In.InSpan(1 << 20)
	outSpan := b.Out.OutSpan(1 << 20)

	n := min(inSpan.Size(), outSpan.Size())
	in := inSpan.Items()
	out := outSpan.Items()
	for i := 0; i < n; i++ {
		if m, ok := inSpan.TagAt(int64(i)); ok {
			outSpan.PublishTag(i, m)
		}
		out[i] = b.table[in[i]&b.mask]
	}

	inSpan.Consume(n)
	outSpan.Publish(n)
	if n == 0 {
		if inSpan.Size() == 0 {
			return block.InsufficientInput, nil
		}
		return block.InsufficientOutput, nil
	}
	return block.OK, nil
}
