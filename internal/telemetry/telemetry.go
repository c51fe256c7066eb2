// Package telemetry implements the message sink side of the
// structured telemetry stream described in spec.md §6: packet-count
// and rate messages published on a message.Bus need somewhere to go
// once they leave the streaming graph. The teacher's C code writes
// operator-facing lines with dw_printf and leaves machine-facing
// status to separate KISS/AGW control frames; here both purposes are
// served by one Sink interface, with a structured-logging
// implementation and a slice-collecting one for tests.
package telemetry

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"

	"github.com/kb9ops/gopacketmodem/internal/message"
)

// Sink receives every message.Message published on a telemetry bus.
type Sink interface {
	Handle(message.Message)
}

// Pump drains bus on its own goroutine, handing each message to sink,
// until ctx is canceled or the bus is closed. Callers run one Pump per
// bus they want observed; it returns once draining stops.
func Pump(ctx context.Context, bus *message.Bus, sink Sink) {
	for {
		m, ok := bus.Receive(ctx)
		if !ok {
			return
		}
		sink.Handle(m)
	}
}

// LogSink writes each message as a structured log line through
// charmbracelet/log, mirroring the teacher's per-packet structured
// fields in its receive-path logging. TimestampFormat, when non-empty,
// prefixes each line with time.Now() rendered through that strftime
// pattern, the same user-configurable prefix the teacher's kissutil -T
// flag and tq.go/xmit.go apply to received frames.
type LogSink struct {
	logger          *log.Logger
	timestampFormat string
}

// NewLogSink wraps logger (nil uses the charmbracelet default logger).
// An empty timestampFormat disables the timestamp prefix.
func NewLogSink(logger *log.Logger, timestampFormat string) *LogSink {
	if logger == nil {
		logger = log.Default()
	}
	return &LogSink{logger: logger, timestampFormat: timestampFormat}
}

func (s *LogSink) Handle(m message.Message) {
	args := make([]any, 0, 2+2*len(m.Data))
	args = append(args, "service", m.Service, "endpoint", m.Endpoint)
	for k, v := range m.Data {
		args = append(args, k, v.String())
	}
	cmd := m.Cmd
	if s.timestampFormat != "" {
		if ts, err := strftime.Format(s.timestampFormat, time.Now()); err == nil {
			cmd = ts + " " + cmd
		}
	}
	s.logger.Info(cmd, args...)
}

// CollectingSink appends every handled message to Messages; used by
// tests that need to assert on what telemetry a pipeline emitted.
type CollectingSink struct {
	Messages []message.Message
}

func (s *CollectingSink) Handle(m message.Message) {
	s.Messages = append(s.Messages, m)
}
