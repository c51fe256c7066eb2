package sync

import (
	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/stream"
	"github.com/kb9ops/gopacketmodem/internal/tag"
)

type splitState int

const (
	splitHeader splitState = iota
	splitPayload
)

// HeaderPayloadSplit routes the first HeaderSize elements of each
// frame to Header and the following payload_bits-tagged run to
// Payload. If HeaderSize elements pass without a payload_bits tag
// arriving (the header failed to decode upstream and
// PayloadMetadataInsert discarded the rest of the packet) the
// splitter resets to the top of the header stream rather than
// stalling (spec.md §4.5, "Header payload split").
//
// T is generic because the reference wiring places this split after
// the LLR decoder, where one payload_bits tag unit equals one element
// (Divisor 1); a second instance split directly on complex symbols
// (as the reference's optional PDU/ZeroMQ tap does) needs Divisor 2,
// since payload_bits there still counts LLRs, two per QPSK symbol.
type HeaderPayloadSplit[T any] struct {
	block.Base
	In      stream.Port[T]
	Header  stream.Port[T]
	Payload stream.Port[T]

	HeaderSize int
	Divisor    int

	state      splitState
	counter    int
	payloadRem int
}

func NewHeaderPayloadSplit[T any](headerSize, divisor int) *HeaderPayloadSplit[T] {
	return &HeaderPayloadSplit[T]{
		Base:       block.Base{BlockName: "header_payload_split"},
		In:         stream.NewPort[T](1 << 16),
		Header:     stream.NewPort[T](1 << 16),
		Payload:    stream.NewPort[T](1 << 16),
		HeaderSize: headerSize,
		Divisor:    divisor,
	}
}

func (b *HeaderPayloadSplit[T]) ProcessBulk() (block.Status, error) {
	inSpan := b.In.InSpan(1 << 16)
	headerOut := b.Header.OutSpan(1 << 16)
	payloadOut := b.Payload.OutSpan(1 << 16)

	in := inSpan.Items()
	consumed := 0
	headerN, payloadN := 0, 0

	for consumed < len(in) {
		if m, ok := inSpan.TagAt(int64(consumed)); ok {
			if v, ok := m[tag.KeyPayloadBits]; ok {
				bits, _ := v.Int64()
				b.state = splitPayload
				b.payloadRem = int(bits) / b.Divisor
				payloadOut.PublishTag(payloadN, m)
			}
		}

		switch b.state {
		case splitHeader:
			if headerN >= headerOut.Size() {
				goto done
			}
			headerOut.Items()[headerN] = in[consumed]
			headerN++
			consumed++
			b.counter++
			if b.counter >= b.HeaderSize {
				b.counter = 0
				b.state = splitHeader // reset: header decode failure, stay/retry at top
			}
		case splitPayload:
			if payloadN >= payloadOut.Size() {
				goto done
			}
			payloadOut.Items()[payloadN] = in[consumed]
			payloadN++
			consumed++
			b.payloadRem--
			if b.payloadRem <= 0 {
				b.state = splitHeader
				b.counter = 0
			}
		}
	}

done:
	inSpan.Consume(consumed)
	headerOut.Publish(headerN)
	payloadOut.Publish(payloadN)
	if consumed == 0 {
		return block.InsufficientInput, nil
	}
	return block.OK, nil
}
