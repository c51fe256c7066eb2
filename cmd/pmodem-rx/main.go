// Command pmodem-rx runs the receive pipeline standalone: it reads
// baseband samples from an I/Q file, the out-of-scope SoapySDR
// binding's offline stand-in, demodulates and decodes packets, and
// writes the recovered payloads to a TUN interface (spec.md §1, §6).
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
	"github.com/kb9ops/gopacketmodem/internal/pipeline"
	"github.com/kb9ops/gopacketmodem/internal/scheduler"
	"github.com/kb9ops/gopacketmodem/internal/tag"
	"github.com/kb9ops/gopacketmodem/internal/tun"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var configPath string
	fs := pflag.NewFlagSet("pmodem-rx", pflag.ExitOnError)
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
		fs = pflag.NewFlagSet("pmodem-rx", pflag.ExitOnError)
		fs.StringVar(&configPath, "config", configPath, "YAML config file (overridden by any other flag given)")
		cfg.FlagSet(fs)
		if err := fs.Parse(os.Args[1:]); err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.IQInPath == "" {
		return fmt.Errorf("pmodem-rx: --iq-in is required")
	}

	in, err := os.Open(cfg.IQInPath)
	if err != nil {
		return fmt.Errorf("pmodem-rx: %w", err)
	}
	samples, err := iosample.ReadAllComplex64(in)
	in.Close()
	if err != nil {
		return fmt.Errorf("pmodem-rx: %w", err)
	}

	rx, err := pipeline.NewReceive(cfg)
	if err != nil {
		return err
	}

	source := blocks.NewIQFileSource(iosample.NewSource(samples))
	source.Out = rx.In
	rx.Graph.Add(source)

	device, err := tun.OpenLinuxTUN(cfg.TunName, cfg.NetNS)
	if err != nil {
		return fmt.Errorf("pmodem-rx: %w", err)
	}
	defer device.Close()

	sink := blocks.NewTunSink(device)
	sink.PacketLenKey = tag.KeyPayloadBits
	sink.In = rx.Out
	rx.Graph.Add(sink)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	sched := scheduler.NewThreadedScheduler(rx.Graph)
	return sched.Run(ctx)
}
