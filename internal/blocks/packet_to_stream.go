// Package blocks collects small stream-shaping blocks that sit between
// the framing/sync chains and the outside world: packet-to-stream
// padding, rate throttling/probing, a GLFSR test source and the generic
// constellation mapper (spec.md §4.6).
package blocks

import (
	"fmt"

	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/stream"
	"github.com/kb9ops/gopacketmodem/internal/tag"
)

// PacketToStream converts a discontinuous packet stream into a
// continuous one by inserting zero samples whenever downstream needs
// output but no new packet is queued (spec.md §4.6, "Packet to
// Stream") — the bridge between the burst-shaped transmit packets and a
// DAC/IQ sink that wants samples at a constant rate.
type PacketToStream struct {
	block.Base
	In           stream.Port[complex64]
	Out          stream.Port[complex64]
	PacketLenKey string

	remaining int64
}

func NewPacketToStream() *PacketToStream {
	return &PacketToStream{
		Base:         block.Base{BlockName: "packet_to_stream"},
		In:           stream.NewPort[complex64](1 << 16),
		Out:          stream.NewPort[complex64](1 << 16),
		PacketLenKey: tag.KeyPacketLen,
	}
}

func (b *PacketToStream) ProcessBulk() (block.Status, error) {
	inSpan := b.In.InSpan(1 << 20)
	outSpan := b.Out.OutSpan(1 << 20)

	if b.remaining == 0 && inSpan.Size() == 0 {
		out := outSpan.Items()
		for i := range out {
			out[i] = 0
		}
		inSpan.Consume(0)
		outSpan.Publish(len(out))
		return block.OK, nil
	}

	if b.remaining == 0 {
		m, ok := inSpan.TagAt(0)
		if !ok {
			return block.Error, fmt.Errorf("blocks: packet_to_stream: expected packet-length tag not found")
		}
		v, ok := m[b.PacketLenKey]
		if !ok {
			return block.Error, fmt.Errorf("blocks: packet_to_stream: expected packet-length tag not found")
		}
		n, _ := v.Int64()
		b.remaining = n
	}

	toPublish := min64(b.remaining, int64(inSpan.Size()), int64(outSpan.Size()))
	copy(outSpan.Items(), inSpan.Items()[:toPublish])
	b.remaining -= toPublish

	inSpan.Consume(int(toPublish))
	outSpan.Publish(int(toPublish))
	return block.OK, nil
}

func min64(a, b, c int64) int64 {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
