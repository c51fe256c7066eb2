package blocks

import (
	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/iosample"
	"github.com/kb9ops/gopacketmodem/internal/stream"
)

// IQFileSource streams an already-decoded iosample.Source into a
// block graph, the offline stand-in for the out-of-scope SoapySDR
// radio binding (spec.md §1, §6): useful for the receive pipeline's
// recorded-capture and loopback runs.
type IQFileSource struct {
	block.Base
	Out    stream.Port[complex64]
	Source *iosample.Source
}

func NewIQFileSource(source *iosample.Source) *IQFileSource {
	return &IQFileSource{
		Base:   block.Base{BlockName: "iq_file_source"},
		Out:    stream.NewPort[complex64](1 << 16),
		Source: source,
	}
}

func (b *IQFileSource) ProcessBulk() (block.Status, error) {
	outSpan := b.Out.OutSpan(1 << 16)
	n := b.Source.Read(outSpan.Items())
	outSpan.Publish(n)
	if n == 0 {
		if b.Source.Remaining() == 0 {
			return block.Done, nil
		}
		return block.InsufficientOutput, nil
	}
	return block.OK, nil
}
