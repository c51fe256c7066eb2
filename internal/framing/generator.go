// Package framing implements the wire-frame plumbing around a packet's
// header: the header FEC (a systematic (128,32) dense-generator code
// concatenated with a rate-1/2 repetition), the header formatter/parser
// that translate between packet-length metadata and the four header
// bytes, CRC append/check, packet ingress, packet mux and burst shaping
// (spec.md §4.2).
package framing

import "math/bits"

// generator is the dense parity-check generator for the header's rate
// 1/4 = (128,32) LDPC outer code: row 8*k+l gives the 32-bit mask of
// information bits summed (mod 2) to produce parity bit l of byte k.
// Ported from the reference packet modem's HeaderFecEncoder.
var generator = [96]uint32{
	0x8ef9c844, 0x74ac6ee2, 0x3cfef71b, 0xb26263a9, 0x2dd63058, 0x007b3a60,
	0x31351305, 0xeaf6ef05, 0x05c7c06c, 0x14d54cea, 0x8b9a3a38, 0x014c7864,
	0x40f8d0fc, 0x61ef3bcd, 0xce500e2b, 0x9db2e7df, 0x011d14d6, 0x83164c42,
	0x766d4372, 0xead326fe, 0x919c7bc9, 0x5d7799a4, 0xedd6d997, 0xb5d68016,
	0x75109dd2, 0x87cf174e, 0xcc479aa7, 0x1db1a3a7, 0x8c927dfd, 0x5514181d,
	0x3f2d26cf, 0x4cb213a9, 0x4f8e715f, 0x1b975d94, 0xcaceb8d4, 0x9022fdb4,
	0x83d920b3, 0x9502c926, 0x24b815e6, 0xc51d5fb1, 0xf66c4372, 0x62e3b07b,
	0x7d6382a2, 0x3fe2683e, 0x26f13876, 0x7c471f48, 0x1da5b8a1, 0x6bbc09df,
	0xd6b6424e, 0xfbad49e5, 0xa00af367, 0xf3d0b974, 0x7d424b58, 0xb98860cf,
	0xbd51bb43, 0x908b1c3d, 0x414e7864, 0xe1ef3fcd, 0x75aba5ea, 0x6c79959f,
	0xf5109df2, 0x5a5f45d1, 0x84a8eb0d, 0xac33be50, 0x97b4a45c, 0x476a3987,
	0x81af4c18, 0x7f18b8c2, 0xd4a68d85, 0x784a836c, 0x3b409bd9, 0x4e836589,
	0x7e625eab, 0x6e7bc9f3, 0x3a9eac8d, 0xcddc8599, 0xa117efb1, 0x498f2a4c,
	0xa9f43e3d, 0x680a064d, 0x4e82093b, 0xf75157a4, 0x50947b04, 0xad5d2c65,
	0xd6cd382e, 0xbcf4047c, 0x916e95d0, 0xb00485ef, 0xa13e0f38, 0x7ff42423,
	0x20141b06, 0xde1bf63e, 0xf3ab831c, 0x049eb6ef, 0xe02623e7, 0x3cbfcfb0,
}

// parity returns the XOR of the bits of v, as 0 or 1.
func parity(v uint32) byte { return byte(bits.OnesCount32(v) & 1) }

// encodeParity computes the 12 parity bytes for a 4-byte (32-bit)
// systematic information word.
func encodeParity(info uint32) [12]byte {
	var out [12]byte
	for k := 0; k < 12; k++ {
		var b byte
		for l := 0; l < 8; l++ {
			b = (b << 1) | parity(info&generator[8*k+l])
		}
		out[k] = b
	}
	return out
}
