package framing

import (
	"fmt"

	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/stream"
	"github.com/kb9ops/gopacketmodem/internal/tag"
)

// PacketMux concatenates one packet from each of its inputs to form a
// single output packet (spec.md §4.2, "Packet Mux") — the header and
// payload byte streams are muxed this way ahead of the scrambler, and
// the transmit chain reuses the same block at the symbol level to
// prepend the syncword onto each frame's header-and-payload symbols
// (and, outside stream mode, append the ramp-down and flush symbols). All
// inputs must carry a packet-length tag on their first item; the block
// waits until every input has its whole packet available before
// producing output, since the output's packet-length tag is the sum of
// the per-input lengths.
type PacketMux[T any] struct {
	block.Base
	In           []stream.Port[T]
	Out          stream.Port[T]
	PacketLenKey string
}

func NewPacketMux[T any](numInputs int) *PacketMux[T] {
	in := make([]stream.Port[T], numInputs)
	for i := range in {
		in[i] = stream.NewPort[T](1 << 16)
	}
	return &PacketMux[T]{
		Base:         block.Base{BlockName: "packet_mux"},
		In:           in,
		Out:          stream.NewPort[T](1 << 16),
		PacketLenKey: tag.KeyPacketLen,
	}
}

func (b *PacketMux[T]) ProcessBulk() (block.Status, error) {
	spans := make([]stream.InSpan[T], len(b.In))
	lens := make([]int64, len(b.In))
	for i, p := range b.In {
		spans[i] = p.InSpan(1 << 20)
		m, ok := spans[i].TagAt(0)
		if !ok {
			for _, s := range spans {
				s.Consume(0)
			}
			return block.InsufficientInput, nil
		}
		v, ok := m[b.PacketLenKey]
		if !ok {
			return block.Error, fmt.Errorf("framing: packet_mux: expected packet-length tag not found on input %d", i)
		}
		n, _ := v.Int64()
		lens[i] = n
		if int64(spans[i].Size()) < n {
			for _, s := range spans {
				s.Consume(0)
			}
			return block.InsufficientInput, nil
		}
	}

	var total int64
	for _, n := range lens {
		total += n
	}

	outSpan := b.Out.OutSpan(1 << 20)
	if int64(outSpan.Size()) < total {
		outSpan.Publish(0)
		for _, s := range spans {
			s.Consume(0)
		}
		return block.InsufficientOutput, nil
	}

	outSpan.PublishTag(0, tag.Map{b.PacketLenKey: tag.Int64(total)})
	out := outSpan.Items()
	off := int64(0)
	for i, s := range spans {
		copy(out[off:off+lens[i]], s.Items()[:lens[i]])
		off += lens[i]
		s.Consume(int(lens[i]))
	}
	outSpan.Publish(int(total))
	return block.OK, nil
}
