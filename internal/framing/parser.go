package framing

import (
	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/message"
	"github.com/kb9ops/gopacketmodem/internal/stream"
	"github.com/kb9ops/gopacketmodem/internal/tag"
)

// HeaderParser consumes 4-byte decoded headers and emits one metadata
// message per header: "packet_length"/"constellation" when the header is
// well-formed, or "invalid_header" when the LDPC decoder flagged it or
// the fields fail validation (spec.md §4.2, "Header Parser"; the only
// modcod field this modem supports is 0x00, uncoded QPSK).
type HeaderParser struct {
	block.Base
	In       stream.Port[byte]
	Metadata *message.Bus
}

func NewHeaderParser(metadata *message.Bus) *HeaderParser {
	return &HeaderParser{
		Base:     block.Base{BlockName: "header_parser"},
		In:       stream.NewPort[byte](HeaderLen * 64),
		Metadata: metadata,
	}
}

func (b *HeaderParser) ProcessBulk() (block.Status, error) {
	inSpan := b.In.InSpan(1 << 20)
	headers := inSpan.Size() / HeaderLen
	if headers == 0 {
		inSpan.Consume(0)
		return block.InsufficientInput, nil
	}

	in := inSpan.Items()
	for j := 0; j < headers; j++ {
		h := in[j*HeaderLen : j*HeaderLen+HeaderLen]
		valid := true
		if m, ok := inSpan.TagAt(int64(j * HeaderLen)); ok {
			if _, present := m[tag.KeyInvalidHeader]; present {
				valid = false
			}
		}

		packetLength := uint64(h[0])<<8 | uint64(h[1])
		if packetLength == 0 {
			valid = false
		}
		if h[2] != 0x00 {
			valid = false
		}

		if valid {
			b.Metadata.Publish(message.Message{Data: tag.Map{
				tag.KeyPacketLength: tag.Uint64(packetLength),
				tag.KeyConstellation: tag.String("QPSK"),
			}})
		} else {
			b.Metadata.Publish(message.Message{Data: tag.Map{tag.KeyInvalidHeader: tag.Null()}})
		}
	}

	inSpan.Consume(headers * HeaderLen)
	return block.OK, nil
}
