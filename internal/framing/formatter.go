package framing

import (
	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/message"
	"github.com/kb9ops/gopacketmodem/internal/stream"
	"github.com/kb9ops/gopacketmodem/internal/tag"
)

// HeaderLen is the formatted header's length in bytes (spec.md §3,
// "Header"): packet length (2 bytes, big-endian), packet type (1 byte,
// 0x00 = uncoded QPSK payload) and a spare byte (0x55).
const HeaderLen = 4

const spareByte = 0x55

// HeaderFormatter turns "packet_length" metadata messages into 4-byte
// headers on its output stream, one header per message, tagging each
// with a packet_len of HeaderLen so downstream framing blocks see it as
// its own mini-packet (spec.md §4.2, "Header Formatter").
type HeaderFormatter struct {
	block.Base
	Metadata       *message.Bus
	Out            stream.Port[byte]
	PacketLenKey   string
	onMetadataFail func(reason string)
}

func NewHeaderFormatter(metadata *message.Bus) *HeaderFormatter {
	return &HeaderFormatter{
		Base:         block.Base{BlockName: "header_formatter"},
		Metadata:     metadata,
		Out:          stream.NewPort[byte](HeaderLen * 64),
		PacketLenKey: tag.KeyPacketLen,
	}
}

// ProcessBulk drains as many queued metadata messages as fit in the
// output span, formatting one header per message. It never blocks: with
// no message queued it reports InsufficientInput so the scheduler can
// try another block.
func (b *HeaderFormatter) ProcessBulk() (block.Status, error) {
	outSpan := b.Out.OutSpan(1 << 20)
	capacity := outSpan.Size() / HeaderLen
	if capacity == 0 {
		outSpan.Publish(0)
		return block.InsufficientOutput, nil
	}

	out := outSpan.Items()
	produced := 0
	for produced < capacity {
		m, ok := b.Metadata.TryReceive()
		if !ok {
			break
		}
		length, present := m.Data[tag.KeyPacketLength]
		if !present {
			return block.Error, errInvalidMetadata("packet_length not present in metadata")
		}
		n, _ := length.Int64()
		if n < 0 || n > 0xFFFF {
			return block.Error, errInvalidMetadata("packet_length too large")
		}

		outSpan.PublishTag(produced*HeaderLen, tag.Map{b.PacketLenKey: tag.Int64(HeaderLen)})
		off := produced * HeaderLen
		out[off] = byte(n >> 8)
		out[off+1] = byte(n)
		out[off+2] = 0x00
		out[off+3] = spareByte
		produced++
	}

	outSpan.Publish(produced * HeaderLen)
	if produced == 0 {
		return block.InsufficientInput, nil
	}
	return block.OK, nil
}

type errInvalidMetadata string

func (e errInvalidMetadata) Error() string { return string(e) }
