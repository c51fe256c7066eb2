package sync

import (
	"math"

	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/stream"
	"github.com/kb9ops/gopacketmodem/internal/tag"
)

// Constellation selects the Costas loop's phase-error discriminant.
type Constellation int

const (
	ConstellationPilot Constellation = iota
	ConstellationBPSK
	ConstellationQPSK
)

// CostasLoop is a second-order decision-directed carrier-phase PLL
// with loop gains derived from a closed-form cubic solution of the
// normalized-loop-bandwidth equation, matching the reference's
// behavior across the pilot/BPSK/QPSK discriminants used for the
// syncword, header and payload segments of each frame (spec.md §4.5,
// "Costas loop").
type CostasLoop struct {
	block.Base
	In  stream.Port[complex64]
	Out stream.Port[complex64]

	LoopBandwidth float64 // B_L * T
	Damping       float64 // zeta, default sqrt(2)/2

	k1, k2  float64
	phase   float64
	freq    float64
	constel Constellation
}

// NewCostasLoop builds a loop with the given one-sided normalized
// bandwidth and a critically-damped (double closed-loop pole) response;
// the Damping field is set to sqrt(2)/2 but does not affect the gains.
func NewCostasLoop(loopBandwidth float64) *CostasLoop {
	l := &CostasLoop{
		Base:          block.Base{BlockName: "costas_loop"},
		In:            stream.NewPort[complex64](1 << 16),
		Out:           stream.NewPort[complex64](1 << 16),
		LoopBandwidth: loopBandwidth,
		Damping:       math.Sqrt2 / 2,
		constel:       ConstellationQPSK,
	}
	l.computeGains()
	return l
}

// computeGains solves the cubic equation in loop_bandwidth the reference
// derives its Costas loop gains from (costas_loop.hpp's settingsChanged):
// a closed form that assumes critical damping throughout, so Damping is
// carried as a field for API parity but, matching the reference, does
// not otherwise enter this formula. The QPSK discriminant's extra
// 1/sqrt(2) scale is folded into discriminant() rather than here, the
// same split the reference makes via its discriminant_gain divisor.
func (l *CostasLoop) computeGains() {
	bt := l.LoopBandwidth
	bt2 := bt * bt
	bt3 := bt2 * bt
	bt4 := bt2 * bt2

	s := math.Cbrt(36*bt2 +
		math.Sqrt(3)*math.Sqrt(432*bt4+848*bt3+624*bt2+204*bt+25) +
		36*bt + 9)
	z := -(-12*bt-6)/(3*math.Cbrt(6)*(2*bt+1)*s) +
		(math.Cbrt(2)*s)/(math.Cbrt(9)*(2*bt+1)) - 1

	l.k1 = 1 - z*z
	l.k2 = (1 - z) * (1 - z)
}

func (l *CostasLoop) discriminant(derotated complex64) float64 {
	i, q := float64(real(derotated)), float64(imag(derotated))
	switch l.constel {
	case ConstellationPilot:
		return q
	case ConstellationBPSK:
		return i * q
	default: // QPSK
		return (sign(i)*q - sign(q)*i) / math.Sqrt2
	}
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

func (l *CostasLoop) ProcessBulk() (block.Status, error) {
	inSpan := l.In.InSpan(1 << 16)
	outSpan := l.Out.OutSpan(1 << 16)

	n := min(inSpan.Size(), outSpan.Size())
	in := inSpan.Items()
	out := outSpan.Items()
	for i := 0; i < n; i++ {
		if m, ok := inSpan.TagAt(int64(i)); ok {
			if v, ok := m[tag.KeySyncwordPhase]; ok {
				ph, _ := v.Float64()
				l.phase = ph
				l.freq = 0
			}
			if v, ok := m[tag.KeyConstellation]; ok {
				if s, ok := v.StringVal(); ok {
					switch s {
					case "BPSK":
						l.constel = ConstellationBPSK
					case "QPSK":
						l.constel = ConstellationQPSK
					default:
						l.constel = ConstellationPilot
					}
				}
			}
			outSpan.PublishTag(i, m)
		}

		rot := complex(math.Cos(-l.phase), math.Sin(-l.phase))
		derot := complex64(complex128(in[i]) * rot)
		out[i] = derot

		err := l.discriminant(derot)
		l.freq += l.k2 * err
		l.phase += l.freq + l.k1*err
		l.phase = math.Mod(l.phase, 2*math.Pi)
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
