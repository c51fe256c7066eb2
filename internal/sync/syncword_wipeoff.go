package sync

import (
	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/stream"
	"github.com/kb9ops/gopacketmodem/internal/tag"
)

// SyncwordWipeoff multiplies the SyncwordBits symbols following a
// syncword_amplitude tag by the known bipolar syncword sequence,
// converting the BPSK-modulated syncword into a pure carrier the
// Costas loop can lock to without the usual phase ambiguity (spec.md
// §4.5, "Syncword wipe-off").
type SyncwordWipeoff struct {
	block.Base
	In  stream.Port[complex64]
	Out stream.Port[complex64]

	bipolar  []float32
	position int // -1 when idle, else index into bipolar
}

func NewSyncwordWipeoff() *SyncwordWipeoff {
	return &SyncwordWipeoff{
		Base:     block.Base{BlockName: "syncword_wipeoff"},
		In:       stream.NewPort[complex64](1 << 16),
		Out:      stream.NewPort[complex64](1 << 16),
		bipolar:  SyncwordBipolar(),
		position: -1,
	}
}

func (b *SyncwordWipeoff) ProcessBulk() (block.Status, error) {
	inSpan := b.In.InSpan(1 << 16)
	outSpan := b.Out.OutSpan(1 << 16)

	n := min(inSpan.Size(), outSpan.Size())
	in := inSpan.Items()
	out := outSpan.Items()
	for i := 0; i < n; i++ {
		if m, ok := inSpan.TagAt(int64(i)); ok {
			if _, ok := m[tag.KeySyncwordAmplitude]; ok {
				b.position = 0
			}
			outSpan.PublishTag(i, m)
		}

		if b.position >= 0 && b.position < len(b.bipolar) {
			out[i] = complex64(complex(float64(real(in[i]))*float64(b.bipolar[b.position]), float64(imag(in[i]))*float64(b.bipolar[b.position])))
			b.position++
		} else {
			out[i] = in[i]
		}
	}

	inSpan.Consume(n)
	outSpan.Publish(n)
	if n == 0 {
		if inSpan.Size() == 0 {
			return block.InsufficientInput, nil
		}
		return block.InsufficientOutput, nil
	}
	return block.OK, nil
}
