package sync_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/dsp"
	"github.com/kb9ops/gopacketmodem/internal/sync"
	"github.com/kb9ops/gopacketmodem/internal/tag"
)

func TestSyncwordDetectorConsumesWholeStridesAndNeverCrashes(t *testing.T) {
	taps := dsp.RootRaisedCosine(1.0, 8.0, 2.0, 0.35, 11*2)
	d := sync.NewSyncwordDetector(64, 0, 2, 9.5, 2, taps)

	in := d.In.OutSpan(256)
	for i := range in.Items() {
		in.Items()[i] = complex64(complex(0, 0))
	}
	in.Publish(256)
	_ = d.Out.OutSpan(256)

	for i := 0; i < 4; i++ {
		status, err := d.ProcessBulk()
		require.NoError(t, err)
		assert.Contains(t, []block.Status{block.OK, block.InsufficientInput, block.InsufficientOutput}, status)
	}
}

// TestSyncwordDetectorDetectsAtTheCorrectSampleWithCorrectAmplitude places
// the detector's own correlation template (built with the same taps and
// gain passed into NewSyncwordDetector, so it is an exact copy of what
// modulateSyncword builds internally) into an otherwise-silent stream at
// a known offset, then checks the emitted syncword_amplitude tag lands
// at that offset with the energy a perfectly-aligned, noise-free
// correlation predicts: at peak alignment the IFFT-via-FFT correlation
// (see ProcessBulk's zIdx comment) reduces to the template's own energy,
// so amp should equal sqrt(sum |s|^2) over the template, and the phase
// should be (near) zero. A wrong z-index (the bug this test was added to
// catch) scrambles both the reported sample offset and this amplitude.
func TestSyncwordDetectorDetectsAtTheCorrectSampleWithCorrectAmplitude(t *testing.T) {
	sps := 2
	fftSize := 512
	timeThreshold := 2
	taps := dsp.RootRaisedCosine(float64(sps), 8.0, 2.0, 0.35, 11*sps)
	d := sync.NewSyncwordDetector(fftSize, 0, timeThreshold, 9.5, sps, taps)

	interp := dsp.NewInterpolator(sps, taps, "")
	bits := sync.SyncwordBipolar()
	symIn := interp.In.OutSpan(len(bits))
	for i, v := range bits {
		symIn.Items()[i] = complex(v, 0)
	}
	symIn.Publish(len(bits))
	_ = interp.Out.OutSpan(len(bits) * sps)
	interp.ProcessBulk()
	sw := interp.Out.InSpan(len(bits) * sps).Items()

	var pSw float64
	for _, s := range sw {
		pSw += real(s)*real(s) + imag(s)*imag(s)
	}
	wantAmp := math.Sqrt(pSw)

	const lead = 100
	total := 1200
	in := d.In.OutSpan(total)
	for i := range in.Items() {
		in.Items()[i] = 0
	}
	copy(in.Items()[lead:], sw)
	in.Publish(total)
	_ = d.Out.OutSpan(total)

	for i := 0; i < 4; i++ {
		status, err := d.ProcessBulk()
		require.NoError(t, err)
		require.Contains(t, []block.Status{block.OK, block.InsufficientInput, block.InsufficientOutput}, status)
	}

	out := d.Out.InSpan(total)
	tags := out.Tags()
	var found *tag.Tag
	for i, tg := range tags {
		if tg.Has(tag.KeySyncwordAmplitude) {
			found = &tags[i]
			break
		}
	}
	require.NotNil(t, found, "expected a syncword_amplitude tag to be emitted")

	assert.InDelta(t, lead, found.Index, 3, "detected sample offset should land on the injected syncword")

	amp, ok := found.Map[tag.KeySyncwordAmplitude].Float64()
	require.True(t, ok)
	assert.InDelta(t, wantAmp, amp, 0.05*wantAmp, "amplitude should match the template's own energy at perfect alignment")

	phase, ok := found.Map[tag.KeySyncwordPhase].Float64()
	require.True(t, ok)
	assert.InDelta(t, 0, phase, 0.2, "phase should be near zero for a zero-frequency, zero-phase-offset alignment")

	freqBin, ok := found.Map[tag.KeySyncwordFreqBin].Int64()
	require.True(t, ok)
	assert.Equal(t, int64(0), freqBin)
}
