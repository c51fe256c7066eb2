// Package tun implements the TUN-like byte-datagram device spec.md §1
// specifies as an external collaborator: the transmitter reads IP
// datagrams from one, the receiver writes decoded payloads to one.
// Grounded on the teacher's NCHANNEL/nettnc attach-and-read-loop
// pattern (src/nettnc.go), generalized from a KISS-over-TCP channel to
// a real Linux TUN character device.
package tun

import "context"

// Device is a byte-datagram source/sink, up to 65535 bytes per
// datagram (spec.md §6, "TUN interface").
type Device interface {
	// ReadPacket blocks until a datagram arrives, ctx is canceled, or
	// the device is closed, whichever comes first.
	ReadPacket(ctx context.Context) ([]byte, error)
	// WritePacket writes one datagram.
	WritePacket(data []byte) error
	Close() error
}
