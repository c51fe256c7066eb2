package tun

import (
	"context"
	"errors"
)

// Loopback is an in-memory Device used by tests and the
// pmodem-loopback harness in place of a real /dev/net/tun file
// descriptor.
type Loopback struct {
	in     chan []byte
	closed chan struct{}
}

// NewLoopback returns a Device whose WritePacket feeds its own
// ReadPacket, queueing up to capacity pending datagrams.
func NewLoopback(capacity int) *Loopback {
	return &Loopback{
		in:     make(chan []byte, capacity),
		closed: make(chan struct{}),
	}
}

func (l *Loopback) ReadPacket(ctx context.Context) ([]byte, error) {
	select {
	case p, ok := <-l.in:
		if !ok {
			return nil, errors.New("tun: loopback device closed")
		}
		return p, nil
	case <-l.closed:
		return nil, errors.New("tun: loopback device closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Loopback) WritePacket(data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	select {
	case l.in <- cp:
		return nil
	case <-l.closed:
		return errors.New("tun: loopback device closed")
	}
}

func (l *Loopback) Close() error {
	select {
	case <-l.closed:
	default:
		close(l.closed)
	}
	return nil
}
