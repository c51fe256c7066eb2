package blocks

import (
	"fmt"

	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/stream"
)

// glfsrPolynomialMasks are the maximal-length Galois LFSR feedback
// masks for degrees 1..32, ported from GNU Radio's glfsr_source block —
// the reference source for the transmit chain's ramp-down sequence and
// for test-bench PRBS payloads.
var glfsrPolynomialMasks = [33]uint64{
	0x00000000,
	0x00000001, 0x00000003, 0x00000005, 0x00000009, 0x00000012, 0x00000021,
	0x00000041, 0x0000008E, 0x00000108, 0x00000204, 0x00000402, 0x00000829,
	0x0000100D, 0x00002015, 0x00004001, 0x00008016, 0x00010004, 0x00020013,
	0x00040013, 0x00080004, 0x00100002, 0x00200001, 0x00400010, 0x0080000D,
	0x01000004, 0x02000023, 0x04000013, 0x08000004, 0x10000002, 0x20000029,
	0x40000004, 0x80000057,
}

// GlfsrSource generates a pseudo-random bit stream from a Galois LFSR of
// the given degree (spec.md §4.5, "Ramp-down sequence"; 1..32).
type GlfsrSource struct {
	block.Base
	Out    stream.Port[byte]
	Degree int
	Seed   uint64

	mask uint64
	reg  uint64
}

func NewGlfsrSource(degree int, seed uint64) (*GlfsrSource, error) {
	if degree < 1 || degree > 32 {
		return nil, fmt.Errorf("blocks: glfsr_source: degree %d out of range [1,32]", degree)
	}
	return &GlfsrSource{
		Base:   block.Base{BlockName: "glfsr_source"},
		Out:    stream.NewPort[byte](1 << 12),
		Degree: degree,
		Seed:   seed,
	}, nil
}

func (b *GlfsrSource) Start() error {
	b.mask = glfsrPolynomialMasks[b.Degree]
	b.reg = b.Seed
	return b.Base.Start()
}

// NextBit advances the LFSR by one step and returns the emitted bit.
func (b *GlfsrSource) NextBit() byte {
	bit := byte(b.reg & 1)
	b.reg >>= 1
	if bit != 0 {
		b.reg ^= b.mask
	}
	return bit
}

func (b *GlfsrSource) ProcessBulk() (block.Status, error) {
	outSpan := b.Out.OutSpan(1 << 20)
	out := outSpan.Items()
	for i := range out {
		out[i] = b.NextBit()
	}
	outSpan.Publish(len(out))
	return block.OK, nil
}
