package sync

import (
	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/stream"
)

// BinarySlicer makes a hard decision on each LLR: one bit per sample,
// no tag bookkeeping of its own (it just forwards whatever tags land
// on the samples it slices). Invert flips which sign maps to bit 1;
// since ConstellationLLRDecoder's positive LLR means "bit 0 more
// likely", the payload path wants Invert true (spec.md §4.5, "Binary
// slicer").
type BinarySlicer struct {
	block.Base
	In  stream.Port[float32]
	Out stream.Port[byte]

	Invert bool
}

func NewBinarySlicer(invert bool) *BinarySlicer {
	return &BinarySlicer{
		Base:   block.Base{BlockName: "binary_slicer"},
		In:     stream.NewPort[float32](1 << 16),
		Out:    stream.NewPort[byte](1 << 16),
		Invert: invert,
	}
}

func (b *BinarySlicer) ProcessBulk() (block.Status, error) {
	inSpan := b.In.InSpan(1 << 16)
	outSpan := b.Out.OutSpan(1 << 16)

	n := min(inSpan.Size(), outSpan.Size())
	in := inSpan.Items()
	out := outSpan.Items()
	for i := 0; i < n; i++ {
		if m, ok := inSpan.TagAt(int64(i)); ok {
			outSpan.PublishTag(i, m)
		}
		positive := in[i] > 0
		if positive != b.Invert {
			out[i] = 1
		} else {
			out[i] = 0
		}
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
