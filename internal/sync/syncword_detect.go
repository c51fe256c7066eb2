// Package sync implements the receive synchronization chain: syncword
// detection with a frequency search, coarse frequency correction,
// polyphase matched-filter timing recovery, syncword wipe-off, the
// Costas carrier loop, payload metadata insertion and the
// header/payload splitter (spec.md §4.4, §4.5).
package sync

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/dsp"
	"github.com/kb9ops/gopacketmodem/internal/stream"
	"github.com/kb9ops/gopacketmodem/internal/tag"
)

// Syncword is the CCSDS attached sync marker, MSB-first (spec.md §3,
// "Syncword").
const Syncword uint64 = 0x1ACFFC1D
const SyncwordBits = 64

// SyncwordBipolar returns the syncword's bit-0-maps-to-+1 BPSK symbols.
func SyncwordBipolar() []float32 {
	out := make([]float32, SyncwordBits)
	for i := 0; i < SyncwordBits; i++ {
		bit := (Syncword >> (SyncwordBits - 1 - i)) & 1
		if bit == 0 {
			out[i] = 1
		} else {
			out[i] = -1
		}
	}
	return out
}

// historyItem is one entry of the sliding-peak ring buffer described
// in spec.md §4.4.
type historyItem struct {
	sample     complex64
	power      float64
	corr       complex128
	bin        int
	detected   bool
}

// SyncwordDetector correlates the incoming stream against the
// modulated syncword at MaxFreqBins*2+1 frequency hypotheses using an
// FFT overlap-save correlator, emitting sync tags at the estimated
// frame start (spec.md §4.4).
type SyncwordDetector struct {
	block.Base
	In  stream.Port[complex64]
	Out stream.Port[complex64]

	FFTSize        int
	MaxFreqBins    int
	TimeThreshold  int
	PowerThreshold float64
	Sps            int
	RRCTaps        []float32

	stride   int
	fft      *fourier.CmplxFFT
	hConj    [][]complex128 // per-bin conjugated frequency response, len fftSize
	pSw      float64
	swLen    int

	history    []historyItem
	historyPos int64 // absolute sample index of history[0]
	bestIdx    int64
	bestPower  float64
	haveBest   bool

	inBuf []complex128
}

// NewSyncwordDetector builds the detector and pre-computes the
// modulated-syncword frequency responses. fftSize should exceed the
// modulated syncword length; a typical value is 2048.
func NewSyncwordDetector(fftSize, maxFreqBins, timeThreshold int, powerThreshold float64, sps int, rrcTaps []float32) *SyncwordDetector {
	d := &SyncwordDetector{
		Base:           block.Base{BlockName: "syncword_detector"},
		In:             stream.NewPort[complex64](1 << 16),
		Out:            stream.NewPort[complex64](1 << 16),
		FFTSize:        fftSize,
		MaxFreqBins:    maxFreqBins,
		TimeThreshold:  timeThreshold,
		PowerThreshold: powerThreshold,
		Sps:            sps,
		RRCTaps:        rrcTaps,
	}
	d.precompute()
	return d
}

// modulateSyncword upsamples the bipolar syncword symbols by Sps and
// convolves with RRCTaps, mirroring the transmit interpolator but done
// once, in full, against a fixed-length sequence.
func (d *SyncwordDetector) modulateSyncword() []complex64 {
	bits := SyncwordBipolar()
	interp := dsp.NewInterpolator(d.Sps, d.RRCTaps, "")
	in := interp.In.OutSpan(len(bits))
	for i, b := range bits {
		in.Items()[i] = complex(b, 0)
	}
	in.Publish(len(bits))
	_ = interp.Out.OutSpan(len(bits) * d.Sps)
	interp.ProcessBulk()
	out := interp.Out.InSpan(len(bits) * d.Sps)
	cp := make([]complex64, out.Size())
	copy(cp, out.Items())
	return cp
}

func (d *SyncwordDetector) precompute() {
	sw := d.modulateSyncword()
	d.swLen = len(sw)
	d.stride = d.FFTSize - d.swLen + 1
	if d.stride < 1 {
		d.stride = 1
	}

	var p float64
	for _, s := range sw {
		p += real(s)*real(s) + imag(s)*imag(s)
	}
	d.pSw = p

	d.fft = fourier.NewCmplxFFT(d.FFTSize)
	n := 2*d.MaxFreqBins + 1
	d.hConj = make([][]complex128, n)
	S := float64(d.swLen)

	for bi := 0; bi < n; bi++ {
		k := bi - d.MaxFreqBins
		rotated := make([]complex128, d.FFTSize)
		for i, s := range sw {
			phase := -math.Pi * float64(k) * float64(i) / S
			rot := complex(math.Cos(phase), math.Sin(phase))
			rotated[i] = complex128(s) * rot
		}
		H := d.fft.Coefficients(nil, rotated)
		conj := make([]complex128, len(H))
		for i, v := range H {
			conj[i] = cmplx.Conj(v)
		}
		d.hConj[bi] = conj
	}

	historySize := 2*d.TimeThreshold + 1 + d.stride
	d.history = make([]historyItem, 0, historySize)
}

// freqBinRadPerSample converts a detector bin index (0-based into
// hConj) to the tagged frequency estimate in rad/sample.
func (d *SyncwordDetector) freqBinRadPerSample(bi int) (k int, radPerSample float64) {
	k = bi - d.MaxFreqBins
	return k, math.Pi * float64(k) / float64(d.swLen)
}

func (d *SyncwordDetector) historyCapacity() int {
	return 2*d.TimeThreshold + 1 + d.stride
}

// ProcessBulk consumes whole FFT strides of input, producing one
// delayed output sample (and possibly a sync tag) per consumed input
// sample once the sliding-peak window has enough history (spec.md
// §4.4, "Declaration rule").
func (d *SyncwordDetector) ProcessBulk() (block.Status, error) {
	inSpan := d.In.InSpan(d.FFTSize)
	if inSpan.Size() < d.FFTSize {
		return block.InsufficientInput, nil
	}

	in := inSpan.Items()
	buf := make([]complex128, d.FFTSize)
	for i, s := range in {
		buf[i] = complex128(s)
	}
	X := d.fft.Coefficients(nil, buf)

	// Correlation-via-IFFT for each frequency bin depends only on X and
	// H, not on pos, so compute each bin's inverse transform once per
	// stride instead of once per (bin, pos) pair.
	prod := make([]complex128, d.FFTSize)
	corrByBin := make([][]complex128, len(d.hConj))
	for bi, H := range d.hConj {
		for i := range prod {
			prod[i] = X[i] * H[i]
		}
		corrByBin[bi] = d.fft.Coefficients(nil, prod)
	}

	for pos := 0; pos < d.stride; pos++ {
		// Coefficients computes a forward FFT; recovering the
		// correlation's IFFT[n] from it uses FFT(Y)[n] = N·IFFT(Y)[(-n)
		// mod N], so sample pos of the correlation lives at index 0 for
		// pos==0 and FFTSize-pos otherwise.
		zIdx := 0
		if pos != 0 {
			zIdx = d.FFTSize - pos
		}

		bestBin, bestPower := 0, -1.0
		var bestCorr complex128
		for bi := range d.hConj {
			z := corrByBin[bi][zIdx]
			p := real(z)*real(z) + imag(z)*imag(z)
			if p > bestPower {
				bestPower, bestBin, bestCorr = p, bi, z
			}
		}

		absIdx := d.historyPos + int64(len(d.history))
		d.history = append(d.history, historyItem{
			sample: in[pos],
			power:  bestPower,
			corr:   bestCorr,
			bin:    bestBin,
		})

		if !d.haveBest || bestPower > d.bestPower {
			d.haveBest, d.bestPower, d.bestIdx = true, bestPower, absIdx
		}
	}

	d.declareIfWindowClosed()

	drain := len(d.history) - d.historyCapacity()
	if drain < 0 {
		drain = 0
	}
	emitted := d.emit(drain, d.Out.OutSpan(drain))
	inSpan.Consume(d.stride)
	if emitted == 0 {
		return block.InsufficientOutput, nil
	}
	return block.OK, nil
}

func (d *SyncwordDetector) declareIfWindowClosed() {
	if !d.haveBest {
		return
	}
	lastIdx := d.historyPos + int64(len(d.history)) - 1
	if lastIdx < d.bestIdx+int64(d.TimeThreshold) {
		return
	}

	lo := d.bestIdx - int64(d.TimeThreshold)
	hi := d.bestIdx + int64(d.TimeThreshold)
	below, total := 0, 0
	for off := lo; off <= hi; off++ {
		pos := off - d.historyPos
		if pos < 0 || int(pos) >= len(d.history) {
			continue
		}
		total++
		if d.history[pos].power < d.bestPower/d.PowerThreshold {
			below++
		}
	}
	if total > 0 && below*2 >= total {
		pos := d.bestIdx - d.historyPos
		if pos >= 0 && int(pos) < len(d.history) {
			d.history[pos].detected = true
		}
	}
	d.haveBest = false
}

// emit drains up to n items from the front of the history ring,
// copying samples to the output and attaching sync tags on declared
// detections.
func (d *SyncwordDetector) emit(n int, out stream.OutSpan[complex64]) int {
	if n > out.Size() {
		n = out.Size()
	}
	items := out.Items()
	for i := 0; i < n; i++ {
		h := d.history[i]
		items[i] = h.sample
		if h.detected {
			k, radPerSample := d.freqBinRadPerSample(h.bin)
			amp := math.Sqrt(h.power) / (float64(d.FFTSize) * math.Sqrt(d.pSw))
			out.PublishTag(i, tag.Map{
				tag.KeySyncwordAmplitude: tag.Float64(amp),
				tag.KeySyncwordPhase:     tag.Float64(cmplx.Phase(h.corr)),
				tag.KeySyncwordFreq:      tag.Float64(radPerSample),
				tag.KeySyncwordFreqBin:   tag.Int64(int64(k)),
			})
		}
	}
	out.Publish(n)
	d.history = d.history[n:]
	d.historyPos += int64(n)
	return n
}
