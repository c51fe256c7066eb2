package sync

import (
	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/message"
	"github.com/kb9ops/gopacketmodem/internal/stream"
	"github.com/kb9ops/gopacketmodem/internal/tag"
)

type metadataState int

const (
	metaIdle metadataState = iota
	metaSyncword
	metaHeader
	metaWaitingHeader
	metaPayload
)

// PayloadMetadataInsert stitches the header parser's asynchronous
// decode result back into the sample stream: it passes the syncword
// and header symbols through tagged with their constellation, then
// blocks at the header/payload boundary until a parsed_header message
// arrives, at which point it either discards the rest of the packet
// (invalid header) or tags and passes through exactly the payload
// length the header declared (spec.md §4.5, "Payload metadata
// insert").
type PayloadMetadataInsert struct {
	block.Base
	In            stream.Port[complex64]
	Out           stream.Port[complex64]
	ParsedHeader  *message.Bus

	SyncwordSize int
	HeaderSize   int

	state      metadataState
	counter    int
	payloadRem int
}

func NewPayloadMetadataInsert(parsedHeader *message.Bus, syncwordSize, headerSize int) *PayloadMetadataInsert {
	return &PayloadMetadataInsert{
		Base:         block.Base{BlockName: "payload_metadata_insert"},
		In:           stream.NewPort[complex64](1 << 16),
		Out:          stream.NewPort[complex64](1 << 16),
		ParsedHeader: parsedHeader,
		SyncwordSize: syncwordSize,
		HeaderSize:   headerSize,
	}
}

func (b *PayloadMetadataInsert) ProcessBulk() (block.Status, error) {
	inSpan := b.In.InSpan(1 << 16)
	outSpan := b.Out.OutSpan(1 << 16)

	consumed, published := 0, 0
	in := inSpan.Items()
	out := outSpan.Items()

loop:
	for consumed < len(in) && published < len(out) {
		if m, ok := inSpan.TagAt(int64(consumed)); ok {
			if _, ok := m[tag.KeySyncwordAmplitude]; ok {
				b.state = metaSyncword
				b.counter = 0
				m = m.Merge(tag.Map{tag.KeyConstellation: tag.String("BPSK")})
			}
			outSpan.PublishTag(published, m)
		}

		switch b.state {
		case metaIdle:
			consumed++
			continue
		case metaSyncword:
			out[published] = in[consumed]
			published++
			consumed++
			b.counter++
			if b.counter >= b.SyncwordSize {
				b.state = metaHeader
				b.counter = 0
				outSpan.PublishTag(published, tag.Map{
					tag.KeyConstellation: tag.String("QPSK"),
					tag.KeyHeaderStart:   tag.Null(),
				})
			}
			continue
		case metaHeader:
			out[published] = in[consumed]
			published++
			consumed++
			b.counter++
			if b.counter >= b.HeaderSize {
				b.state = metaWaitingHeader
			}
			continue
		case metaWaitingHeader:
			msg, ok := b.ParsedHeader.TryReceive()
			if !ok {
				break loop
			}
			if _, bad := msg.Data[tag.KeyInvalidHeader]; bad {
				b.state = metaIdle
				continue
			}
			packetLen, _ := msg.Data[tag.KeyPacketLength].Int64()
			payloadSymbols := (packetLen + 4) * 4
			outSpan.PublishTag(published, tag.Map{
				tag.KeyPacketLength: tag.Int64(packetLen),
				tag.KeyConstellation: tag.String("QPSK"),
				tag.KeyPayloadBits:   tag.Int64(2 * payloadSymbols),
			})
			b.state = metaPayload
			b.payloadRem = int(payloadSymbols)
			continue
		case metaPayload:
			out[published] = in[consumed]
			published++
			consumed++
			b.payloadRem--
			if b.payloadRem <= 0 {
				b.state = metaIdle
			}
			continue
		}
	}

	inSpan.Consume(consumed)
	outSpan.Publish(published)
	if published == 0 && consumed == 0 {
		return block.InsufficientInput, nil
	}
	if published == 0 {
		return block.InsufficientOutput, nil
	}
	return block.OK, nil
}
