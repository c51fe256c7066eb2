package blocks

import (
	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/iosample"
	"github.com/kb9ops/gopacketmodem/internal/stream"
)

// IQFileSink accumulates a transmit chain's baseband samples into an
// iosample.Sink for a caller to Flush to a file once the run ends,
// the offline stand-in for the out-of-scope SoapySDR radio binding.
type IQFileSink struct {
	block.Base
	In   stream.Port[complex64]
	Sink *iosample.Sink
}

func NewIQFileSink(sink *iosample.Sink) *IQFileSink {
	return &IQFileSink{
		Base: block.Base{BlockName: "iq_file_sink"},
		In:   stream.NewPort[complex64](1 << 16),
		Sink: sink,
	}
}

func (b *IQFileSink) ProcessBulk() (block.Status, error) {
	inSpan := b.In.InSpan(1 << 16)
	if inSpan.Size() == 0 {
		inSpan.Consume(0)
		return block.InsufficientInput, nil
	}
	b.Sink.Write(inSpan.Items())
	inSpan.Consume(inSpan.Size())
	return block.OK, nil
}
