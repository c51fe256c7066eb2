package framing

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/message"
	"github.com/kb9ops/gopacketmodem/internal/stream"
	"github.com/kb9ops/gopacketmodem/internal/tag"
)

// PacketIngress is the entry point for a packet-based transmitter
// (spec.md §4.2, "Packet Ingress"): packets arrive delimited by
// packet-length tags, back to back. Each valid packet (one that fits the
// header's 16-bit length field) is forwarded to the output and
// announced to the header formatter's metadata bus; packets too long to
// fit are dropped with a warning.
type PacketIngress struct {
	block.Base
	In           stream.Port[byte]
	Out          stream.Port[byte]
	Metadata     *message.Bus
	PacketLenKey string

	remaining int
	valid     bool
}

func NewPacketIngress(metadata *message.Bus) *PacketIngress {
	return &PacketIngress{
		Base:         block.Base{BlockName: "packet_ingress"},
		In:           stream.NewPort[byte](1 << 16),
		Out:          stream.NewPort[byte](1 << 16),
		Metadata:     metadata,
		PacketLenKey: tag.KeyPacketLen,
	}
}

func (b *PacketIngress) ProcessBulk() (block.Status, error) {
	inSpan := b.In.InSpan(1 << 20)
	outSpan := b.Out.OutSpan(1 << 20)

	if inSpan.Size() == 0 {
		inSpan.Consume(0)
		outSpan.Publish(0)
		return block.InsufficientInput, nil
	}

	if b.remaining == 0 {
		m, ok := inSpan.TagAt(0)
		if !ok {
			return block.Error, fmt.Errorf("framing: packet_ingress: expected packet-length tag not found")
		}
		lenVal, ok := m[b.PacketLenKey]
		if !ok {
			return block.Error, fmt.Errorf("framing: packet_ingress: expected packet-length tag not found")
		}
		n, _ := lenVal.Int64()
		b.remaining = int(n)
		b.valid = n <= 0xFFFF
		if b.valid {
			b.Metadata.Publish(message.Message{Data: tag.Map{tag.KeyPacketLength: tag.Int64(n)}})
			outSpan.PublishTag(0, tag.Map{b.PacketLenKey: tag.Int64(n)})
		} else {
			log.Warn("packet_ingress: dropping packet longer than 65535 bytes", "packet_len", n)
		}
	} else if b.valid {
		if m, ok := inSpan.TagAt(0); ok {
			outSpan.PublishTag(0, m)
		}
	}

	toConsume := min(b.remaining, inSpan.Size())
	published := 0
	if b.valid {
		toConsume = min(toConsume, outSpan.Size())
		copy(outSpan.Items(), inSpan.Items()[:toConsume])
		published = toConsume
	}
	outSpan.Publish(published)
	inSpan.Consume(toConsume)
	b.remaining -= toConsume

	if toConsume == 0 {
		if inSpan.Size() == 0 {
			return block.InsufficientInput, nil
		}
		return block.InsufficientOutput, nil
	}
	return block.OK, nil
}
