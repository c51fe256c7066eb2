package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kb9ops/gopacketmodem/internal/message"
	"github.com/kb9ops/gopacketmodem/internal/tag"
	"github.com/kb9ops/gopacketmodem/internal/telemetry"
)

func TestCollectingSinkReceivesPumpedMessages(t *testing.T) {
	bus := message.NewBus(4)
	sink := &telemetry.CollectingSink{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		telemetry.Pump(ctx, bus, sink)
		close(done)
	}()

	bus.Publish(message.Message{Cmd: "rate", Data: tag.Map{"rate_now": tag.Float64(1.5)}})

	require.Eventually(t, func() bool { return len(sink.Messages) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, "rate", sink.Messages[0].Cmd)

	cancel()
	<-done
}
