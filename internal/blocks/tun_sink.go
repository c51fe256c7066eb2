package blocks

import (
	"fmt"

	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/stream"
	"github.com/kb9ops/gopacketmodem/internal/tag"
	"github.com/kb9ops/gopacketmodem/internal/tun"
)

// TunSink writes each length-tagged packet the receive chain produces
// (spec.md §4.5's payload output) to a tun.Device as one datagram,
// the mirror image of TunSource.
type TunSink struct {
	block.Base
	In           stream.Port[byte]
	Device       tun.Device
	PacketLenKey string
}

func NewTunSink(device tun.Device) *TunSink {
	return &TunSink{
		Base:         block.Base{BlockName: "tun_sink"},
		In:           stream.NewPort[byte](1 << 16),
		Device:       device,
		PacketLenKey: tag.KeyPacketLen,
	}
}

func (b *TunSink) ProcessBulk() (block.Status, error) {
	inSpan := b.In.InSpan(1 << 16)
	if inSpan.Size() == 0 {
		inSpan.Consume(0)
		return block.InsufficientInput, nil
	}

	m, ok := inSpan.TagAt(0)
	if !ok {
		return block.Error, fmt.Errorf("blocks: tun_sink: expected packet-length tag not found")
	}
	lenVal, ok := m[b.PacketLenKey]
	if !ok {
		return block.Error, fmt.Errorf("blocks: tun_sink: expected packet-length tag not found")
	}
	n, _ := lenVal.Int64()
	packetLen := int(n)
	if inSpan.Size() < packetLen {
		inSpan.Consume(0)
		return block.InsufficientInput, nil
	}

	if packetLen > 0 {
		data := make([]byte, packetLen)
		copy(data, inSpan.Items()[:packetLen])
		if err := b.Device.WritePacket(data); err != nil {
			return block.Error, fmt.Errorf("blocks: tun_sink: %w", err)
		}
	}

	inSpan.Consume(packetLen)
	return block.OK, nil
}
