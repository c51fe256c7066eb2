package dsp_test

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/dsp"
)

func TestRootRaisedCosineIsSymmetricAndForcesOddLength(t *testing.T) {
	taps := dsp.RootRaisedCosine(1.0, 4.0, 1.0, 0.35, 44)
	require.Len(t, taps, 45)
	for i := range taps {
		assert.InDelta(t, float64(taps[i]), float64(taps[len(taps)-1-i]), 1e-5)
	}
}

func TestRootRaisedCosinePeaksAtCenterTap(t *testing.T) {
	taps := dsp.RootRaisedCosine(1.0, 4.0, 1.0, 0.35, 11*4)
	center := len(taps) / 2
	for i, v := range taps {
		if i != center {
			assert.LessOrEqual(t, math.Abs(float64(v)), math.Abs(float64(taps[center]))+1e-6)
		}
	}
}

func TestRotatorUnityIncrementIsIdentity(t *testing.T) {
	r := dsp.NewRotator(0)
	for i := 0; i < 5; i++ {
		got := r.Next(complex64(complex(float64(i), -float64(i))))
		assert.Equal(t, complex64(complex(float64(i), -float64(i))), got)
	}
}

func TestRotatorAppliesPhaseIncrement(t *testing.T) {
	r := dsp.NewRotator(math.Pi / 2)
	got := r.Next(1)
	assert.InDelta(t, 1.0, real(got), 1e-5)
	assert.InDelta(t, 0.0, imag(got), 1e-5)
	got = r.Next(1)
	assert.InDelta(t, 0.0, real(got), 1e-5)
	assert.InDelta(t, 1.0, imag(got), 1e-5)
}

func TestRotatorStaysUnitModulusAfterManySamples(t *testing.T) {
	r := dsp.NewRotator(0.0123)
	var last complex64
	for i := 0; i < 2000; i++ {
		last = r.Next(1)
	}
	assert.InDelta(t, 1.0, cmplx.Abs(complex128(last)), 1e-3)
}

func TestPolyphaseArmZeroMatchesDecimatedPrototype(t *testing.T) {
	taps := []float32{1, 2, 3, 4, 5, 6, 7, 8}
	arms := dsp.Polyphase(taps, 4)
	require.Len(t, arms, 4)
	assert.Equal(t, []float32{1, 5}, arms[0])
	assert.Equal(t, []float32{4, 8}, arms[3])
}

func TestFIRPushConvolves(t *testing.T) {
	f := dsp.NewFIR([]float32{0, 0, 1})
	f.Push(5)
	f.Push(6)
	got := f.Push(7)
	assert.Equal(t, complex64(7), got)
}

func TestInterpolatorExpandsBySps(t *testing.T) {
	taps := []float32{0, 1, 0}
	b := dsp.NewInterpolator(2, taps, "packet_len")
	in := b.In.OutSpan(2)
	copy(in.Items(), []complex64{1, 2})
	in.Publish(2)
	_ = b.Out.OutSpan(4)

	status, err := b.ProcessBulk()
	require.NoError(t, err)
	assert.Equal(t, block.OK, status)

	out := b.Out.InSpan(4)
	require.Equal(t, 4, out.Size())
}
