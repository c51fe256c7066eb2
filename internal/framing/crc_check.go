package framing

import (
	"fmt"

	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/crc"
	"github.com/kb9ops/gopacketmodem/internal/stream"
	"github.com/kb9ops/gopacketmodem/internal/tag"
)

// CrcCheck verifies a packet's trailing CRC and drops the packet (zero
// bytes published) when it fails or the packet is too short to contain
// one (spec.md §4.2, "CRC Check"). Like CrcAppend, this requires the
// whole packet to be present in one InSpan call.
type CrcCheck struct {
	block.Base
	In           stream.Port[byte]
	Out          stream.Port[byte]
	Engine       *crc.Engine
	PacketLenKey string
	DiscardCRC   bool
}

func NewCrcCheck(e *crc.Engine) *CrcCheck {
	return &CrcCheck{
		Base:         block.Base{BlockName: "crc_check"},
		In:           stream.NewPort[byte](1 << 16),
		Out:          stream.NewPort[byte](1 << 16),
		Engine:       e,
		PacketLenKey: tag.KeyPacketLen,
	}
}

func (b *CrcCheck) ProcessBulk() (block.Status, error) {
	inSpan := b.In.InSpan(1 << 20)
	if inSpan.Size() == 0 {
		inSpan.Consume(0)
		return block.InsufficientInput, nil
	}

	m, ok := inSpan.TagAt(0)
	if !ok {
		return block.Error, fmt.Errorf("framing: crc_check: expected packet-length tag not found")
	}
	lenVal, ok := m[b.PacketLenKey]
	if !ok {
		return block.Error, fmt.Errorf("framing: crc_check: expected packet-length tag not found")
	}
	packetLen, _ := lenVal.Int64()
	if packetLen == 0 {
		return block.Error, fmt.Errorf("framing: crc_check: received packet-length equal to zero")
	}

	if inSpan.Size() < int(packetLen) {
		outSpan := b.Out.OutSpan(0)
		outSpan.Publish(0)
		inSpan.Consume(0)
		return block.InsufficientInput, nil
	}

	crcBytes := int(b.Engine.Width() / 8)
	if int(packetLen) <= crcBytes {
		outSpan := b.Out.OutSpan(0)
		outSpan.Publish(0)
		inSpan.Consume(int(packetLen))
		return block.OK, nil
	}

	data := inSpan.Items()[:packetLen]
	payloadSize := int(packetLen) - crcBytes
	computed := b.Engine.Compute(data[:payloadSize])

	var received uint64
	for i := payloadSize; i < int(packetLen); i++ {
		received = (received << 8) | uint64(data[i])
	}

	if received != computed {
		outSpan := b.Out.OutSpan(0)
		outSpan.Publish(0)
		inSpan.Consume(int(packetLen))
		return block.OK, nil
	}

	outputSize := int(packetLen)
	if b.DiscardCRC {
		outputSize = payloadSize
	}
	outSpan := b.Out.OutSpan(1 << 20)
	if outSpan.Size() < outputSize {
		outSpan.Publish(0)
		inSpan.Consume(0)
		return block.InsufficientOutput, nil
	}

	outSpan.PublishTag(0, tag.Map{b.PacketLenKey: tag.Int64(int64(outputSize))})
	copy(outSpan.Items(), data[:outputSize])
	outSpan.Publish(outputSize)
	inSpan.Consume(int(packetLen))
	return block.OK, nil
}
