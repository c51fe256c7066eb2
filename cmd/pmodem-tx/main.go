// Command pmodem-tx runs the transmit pipeline standalone: it reads IP
// datagrams from a TUN interface and writes the modulated baseband
// samples to an I/Q file, the out-of-scope SoapySDR binding's offline
// stand-in (spec.md §1, §6).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/kb9ops/gopacketmodem/internal/blocks"
	"github.com/kb9ops/gopacketmodem/internal/config"
	"github.com/kb9ops/gopacketmodem/internal/iosample"
	"github.com/kb9ops/gopacketmodem/internal/message"
	"github.com/kb9ops/gopacketmodem/internal/pipeline"
	"github.com/kb9ops/gopacketmodem/internal/scheduler"
	"github.com/kb9ops/gopacketmodem/internal/telemetry"
	"github.com/kb9ops/gopacketmodem/internal/tun"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var configPath string
	fs := pflag.NewFlagSet("pmodem-tx", pflag.ExitOnError)
	fs.StringVar(&configPath, "config", "", "YAML config file (overridden by any other flag given)")

	cfg := config.Default()
	cfg.FlagSet(fs)
	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}
	if configPath != "" {
		fileCfg, err := config.LoadYAML(configPath)
		if err != nil {
			return err
		}
		cfg = fileCfg
		fs = pflag.NewFlagSet("pmodem-tx", pflag.ExitOnError)
		fs.StringVar(&configPath, "config", configPath, "YAML config file (overridden by any other flag given)")
		cfg.FlagSet(fs)
		if err := fs.Parse(os.Args[1:]); err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.IQOutPath == "" {
		return fmt.Errorf("pmodem-tx: --iq-out is required")
	}

	telemetryBus := message.NewBus(64)
	tx, err := pipeline.NewTransmit(cfg, telemetryBus)
	if err != nil {
		return err
	}

	device, err := tun.OpenLinuxTUN(cfg.TunName, cfg.NetNS)
	if err != nil {
		return fmt.Errorf("pmodem-tx: %w", err)
	}
	defer device.Close()

	source := blocks.NewTunSource(device)
	source.Out = tx.In
	tx.Graph.Add(source)

	sink := iosample.NewSink()
	fileSink := blocks.NewIQFileSink(sink)
	fileSink.In = tx.Out
	tx.Graph.Add(fileSink)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	go telemetry.Pump(ctx, telemetryBus, telemetry.NewLogSink(log.Default(), cfg.LogTimestampFormat))

	sched := scheduler.NewThreadedScheduler(tx.Graph)
	runErr := sched.Run(ctx)

	out, err := os.Create(cfg.IQOutPath)
	if err != nil {
		return fmt.Errorf("pmodem-tx: %w", err)
	}
	defer out.Close()
	if err := sink.Flush(out); err != nil {
		return fmt.Errorf("pmodem-tx: %w", err)
	}

	return runErr
}
