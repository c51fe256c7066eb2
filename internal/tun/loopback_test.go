package tun_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kb9ops/gopacketmodem/internal/tun"
)

func TestLoopbackWritePacketFeedsReadPacket(t *testing.T) {
	l := tun.NewLoopback(4)
	defer l.Close()

	require.NoError(t, l.WritePacket([]byte("hello")))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := l.ReadPacket(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}

func TestLoopbackReadPacketRespectsContextCancellation(t *testing.T) {
	l := tun.NewLoopback(1)
	defer l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.ReadPacket(ctx)
	assert.Error(t, err)
}

func TestLoopbackCloseUnblocksReadPacket(t *testing.T) {
	l := tun.NewLoopback(1)
	ctx := context.Background()
	done := make(chan error, 1)
	go func() {
		_, err := l.ReadPacket(ctx)
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, l.Close())
	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("ReadPacket did not unblock after Close")
	}
}
