package sync

import (
	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/stream"
	"github.com/kb9ops/gopacketmodem/internal/tag"
)

// SyncwordRemove drops the SyncwordSize elements following a
// syncword_amplitude tag and passes every other element through
// unchanged, together with its tags; tags on dropped elements,
// including the syncword_amplitude tag itself, are not forwarded. The
// Costas loop still needs the syncword's known BPSK symbols to pull in
// phase, so the removal happens downstream of it, just ahead of the
// LLR decoder (spec.md §4.5, "Syncword remove").
type SyncwordRemove struct {
	block.Base
	In  stream.Port[complex64]
	Out stream.Port[complex64]

	SyncwordSize int

	remaining int
}

func NewSyncwordRemove(syncwordSize int) *SyncwordRemove {
	return &SyncwordRemove{
		Base:         block.Base{BlockName: "syncword_remove"},
		In:           stream.NewPort[complex64](1 << 16),
		Out:          stream.NewPort[complex64](1 << 16),
		SyncwordSize: syncwordSize,
	}
}

func (b *SyncwordRemove) ProcessBulk() (block.Status, error) {
	inSpan := b.In.InSpan(1 << 16)
	outSpan := b.Out.OutSpan(1 << 16)

	in := inSpan.Items()
	out := outSpan.Items()
	consumed, published := 0, 0

	for consumed < len(in) {
		if m, ok := inSpan.TagAt(int64(consumed)); ok {
			if _, ok := m[tag.KeySyncwordAmplitude]; ok {
				b.remaining = b.SyncwordSize
			}
			if b.remaining == 0 {
				if published >= len(out) {
					break
				}
				outSpan.PublishTag(published, m)
			}
		}

		if b.remaining > 0 {
			b.remaining--
			consumed++
			continue
		}

		if published >= len(out) {
			break
		}
		out[published] = in[consumed]
		published++
		consumed++
	}

	inSpan.Consume(consumed)
	outSpan.Publish(published)
	if consumed == 0 {
		return block.InsufficientInput, nil
	}
	if published == 0 {
		return block.InsufficientOutput, nil
	}
	return block.OK, nil
}
