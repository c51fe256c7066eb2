package blocks

import (
	"sync/atomic"

	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/message"
	"github.com/kb9ops/gopacketmodem/internal/stream"
	"github.com/kb9ops/gopacketmodem/internal/tag"
)

// PacketCounter passes bytes through unchanged, incrementing an
// atomic counter once per packet-length tag seen and publishing a
// packet_count telemetry message each time it does (spec.md §6,
// "packet-count messages from counter blocks").
type PacketCounter struct {
	block.Base
	In           stream.Port[byte]
	Out          stream.Port[byte]
	Telemetry    *message.Bus
	PacketLenKey string

	count atomic.Uint64
}

func NewPacketCounter(telemetry *message.Bus, packetLenKey string) *PacketCounter {
	return &PacketCounter{
		Base:         block.Base{BlockName: "packet_counter"},
		In:           stream.NewPort[byte](1 << 16),
		Out:          stream.NewPort[byte](1 << 16),
		Telemetry:    telemetry,
		PacketLenKey: packetLenKey,
	}
}

// Count returns the number of packets counted so far.
func (b *PacketCounter) Count() uint64 { return b.count.Load() }

func (b *PacketCounter) ProcessBulk() (block.Status, error) {
	inSpan := b.In.InSpan(1 << 16)
	outSpan := b.Out.OutSpan(1 << 16)

	n := min(inSpan.Size(), outSpan.Size())
	in := inSpan.Items()
	out := outSpan.Items()
	copy(out[:n], in[:n])

	for i := 0; i < n; i++ {
		if m, ok := inSpan.TagAt(int64(i)); ok {
			outSpan.PublishTag(i, m)
			if _, ok := m[b.PacketLenKey]; ok {
				c := b.count.Add(1)
				if b.Telemetry != nil {
					b.Telemetry.Publish(message.Message{
						Cmd:     "packet_count",
						Service: b.BlockName,
						Data:    tag.Map{"packet_count": tag.Uint64(c)},
					})
				}
			}
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
