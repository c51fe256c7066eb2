package blocks

import (
	"context"
	"errors"
	"time"

	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/stream"
	"github.com/kb9ops/gopacketmodem/internal/tag"
	"github.com/kb9ops/gopacketmodem/internal/tun"
)

// readTimeout bounds each TUN read attempt so ProcessBulk always
// returns promptly enough for the scheduler to observe a canceled
// context, even though tun.Device.ReadPacket itself blocks.
const readTimeout = 50 * time.Millisecond

// TunSource turns a tun.Device's blocking datagram reads into the
// length-tagged byte stream framing.PacketIngress expects, one
// datagram at a time (spec.md §6, "TUN interface"; grounded on the
// teacher's nettnc.go read-loop-into-channel pattern, here driven
// directly by ProcessBulk instead of a separate goroutine since each
// block already owns one).
type TunSource struct {
	block.Base
	Out          stream.Port[byte]
	Device       tun.Device
	PacketLenKey string

	ctx    context.Context
	cancel context.CancelFunc
}

func NewTunSource(device tun.Device) *TunSource {
	ctx, cancel := context.WithCancel(context.Background())
	return &TunSource{
		Base:         block.Base{BlockName: "tun_source"},
		Out:          stream.NewPort[byte](1 << 16),
		Device:       device,
		PacketLenKey: tag.KeyPacketLen,
		ctx:          ctx,
		cancel:       cancel,
	}
}

func (b *TunSource) Stop() error {
	b.cancel()
	return b.Base.Stop()
}

func (b *TunSource) ProcessBulk() (block.Status, error) {
	readCtx, cancel := context.WithTimeout(b.ctx, readTimeout)
	defer cancel()

	data, err := b.Device.ReadPacket(readCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return block.InsufficientInput, nil
		}
		return block.Error, err
	}

	outSpan := b.Out.OutSpan(len(data))
	if outSpan.Size() < len(data) {
		return block.InsufficientOutput, nil
	}
	outSpan.PublishTag(0, tag.Map{b.PacketLenKey: tag.Int64(int64(len(data)))})
	copy(outSpan.Items(), data)
	outSpan.Publish(len(data))
	return block.OK, nil
}
