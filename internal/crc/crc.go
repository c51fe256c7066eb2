// Package crc implements the generic table-driven CRC engine spec.md
// §4.2 describes, parameterized by bit width, generator polynomial,
// initial register, final XOR and input/result bit reflection.
//
// Grounded on the teacher's IL2P trailing CRC-16-CCITT
// (src/il2p_crc.go, fcs_calc) generalized from one fixed polynomial to
// the spec's configurable width/poly/init/xor/reflect parameters.
package crc

import "fmt"

// Params fully describes one CRC algorithm.
type Params struct {
	Width      uint // bit width, multiple of 8, 8..64
	Poly       uint64
	Init       uint64
	XorOut     uint64
	ReflectIn  bool
	ReflectOut bool
}

// CRC32MPEG2 is the payload CRC used by the wire format (spec.md §6):
// CRC-32/MPEG-2, poly 0x04C11DB7, init/xor 0xFFFFFFFF, both reflected.
//
// Despite the name this is catalogued as CRC-32/MPEG-2 with reflection
// disabled in most registries; the packet-modem wire format reflects
// both input and output, which is the variant this spec calls for.
var CRC32MPEG2 = Params{
	Width:      32,
	Poly:       0x04C11DB7,
	Init:       0xFFFFFFFF,
	XorOut:     0xFFFFFFFF,
	ReflectIn:  true,
	ReflectOut: true,
}

// Engine is a constructed CRC algorithm with its precomputed 256-entry
// table.
type Engine struct {
	params Params
	table  [256]uint64
	mask   uint64
}

// New validates params and precomputes the engine's lookup table. It
// returns a *block.ConfigError-shaped error (reported to the caller
// unwrapped so packages that don't depend on block stay decoupled) when
// Width is not a positive multiple of 8 in [8, 64].
func New(p Params) (*Engine, error) {
	if p.Width == 0 || p.Width%8 != 0 || p.Width > 64 {
		return nil, fmt.Errorf("crc: width %d must be a multiple of 8 in [8,64]", p.Width)
	}
	e := &Engine{params: p}
	if p.Width == 64 {
		e.mask = ^uint64(0)
	} else {
		e.mask = (uint64(1) << p.Width) - 1
	}
	topBit := uint64(1) << (p.Width - 1)
	for i := 0; i < 256; i++ {
		var crc uint64
		if p.ReflectIn {
			crc = uint64(reflectByte(byte(i))) << (p.Width - 8)
		} else {
			crc = uint64(i) << (p.Width - 8)
		}
		for b := 0; b < 8; b++ {
			if crc&topBit != 0 {
				crc = ((crc << 1) ^ p.Poly) & e.mask
			} else {
				crc = (crc << 1) & e.mask
			}
		}
		if p.ReflectIn {
			// The loop above ran MSB-first over the bit-reversed input
			// byte using the polynomial as given; Update's reflected
			// path shifts the register right and XORs in table[idx]
			// directly; that only lines up with a forward-computed
			// residue if the stored entry is reflected back to match.
			e.table[i] = reflectN(crc&e.mask, p.Width)
		} else {
			e.table[i] = crc & e.mask
		}
	}
	return e, nil
}

func reflectByte(b byte) byte {
	var r byte
	for i := 0; i < 8; i++ {
		if b&(1<<i) != 0 {
			r |= 1 << (7 - i)
		}
	}
	return r
}

func reflectN(v uint64, width uint) uint64 {
	var r uint64
	for i := uint(0); i < width; i++ {
		if v&(1<<i) != 0 {
			r |= 1 << (width - 1 - i)
		}
	}
	return r
}

// Register accumulates a running CRC computation; Update may be called
// repeatedly across chunks, mirroring crc_append's byte-at-a-time use.
type Register struct {
	e   *Engine
	reg uint64
}

// NewRegister starts a fresh computation initialized per the engine's
// Params.Init.
func (e *Engine) NewRegister() *Register {
	return &Register{e: e, reg: e.params.Init & e.mask}
}

// Update folds data into the running register.
func (r *Register) Update(data []byte) {
	p := r.e.params
	reg := r.reg
	width := p.Width
	if p.ReflectIn {
		if width == 8 {
			for _, b := range data {
				reg = r.e.table[byte(reg)^b]
			}
		} else {
			for _, b := range data {
				idx := byte(reg) ^ b
				reg = (reg >> 8) ^ r.e.table[idx]
			}
		}
	} else {
		topByteShift := width - 8
		for _, b := range data {
			idx := byte(reg>>topByteShift) ^ b
			reg = ((reg << 8) ^ r.e.table[idx]) & r.e.mask
		}
	}
	r.reg = reg & r.e.mask
}

// Finalize applies output reflection and the final XOR, returning the
// completed CRC value. It does not mutate the register, so Finalize may
// be called speculatively mid-stream.
func (r *Register) Finalize() uint64 {
	reg := r.reg
	p := r.e.params
	if p.ReflectIn != p.ReflectOut {
		reg = reflectN(reg, p.Width)
	}
	return (reg ^ p.XorOut) & r.e.mask
}

// Bytes returns the finalized CRC as big-endian bytes, Width/8 long —
// the wire order the spec's CRC append/check blocks use.
func (r *Register) Bytes() []byte {
	width := r.e.params.Width
	n := width / 8
	v := r.Finalize()
	out := make([]byte, n)
	for i := uint(0); i < n; i++ {
		shift := (n - 1 - i) * 8
		out[i] = byte(v >> shift)
	}
	return out
}

// Compute is a convenience one-shot CRC over data.
func (e *Engine) Compute(data []byte) uint64 {
	r := e.NewRegister()
	r.Update(data)
	return r.Finalize()
}

// Width reports the engine's bit width.
func (e *Engine) Width() uint { return e.params.Width }
