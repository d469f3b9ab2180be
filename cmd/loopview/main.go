package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/zsiec/loopview/internal/config"
	"github.com/zsiec/loopview/internal/logger"
	"github.com/zsiec/loopview/internal/media"
	"github.com/zsiec/loopview/internal/metrics"
	"github.com/zsiec/loopview/internal/player"
	"github.com/zsiec/loopview/internal/server"
	"github.com/zsiec/loopview/internal/synth"
	"github.com/zsiec/loopview/pkg/version"
)

// discardSink drops presented frames. The headless binary exercises the
// full pipeline against synthetic media; rendering happens in frontends
// that provide a real sink.
type discardSink struct{}

func (discardSink) Present(media.VideoFrame) {}

func main() {
	var (
		configPath   string
		showVersion  bool
		clipDuration float64
	)

	flag.StringVar(&configPath, "config", "", "Path to configuration file (built-in defaults when empty)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.Float64Var(&clipDuration, "duration", 30, "Synthetic clip duration in seconds")
	flag.Parse()

	if showVersion {
		fmt.Println(version.GetInfo().String())
		os.Exit(0)
	}

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	logrusLogger, err := logger.New(&cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	log := logger.NewLogrusAdapter(logrus.NewEntry(logrusLogger))

	log.WithField("version", version.GetInfo().Short()).Info("starting loopview")

	opener := &synth.Opener{Cfg: synth.DefaultConfig(clipDuration)}
	audioSink := &synth.AudioSink{DrainRate: media.OutputFormat.ByteRate()}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := &player.Events{
		OnFileLoaded: func() {
			log.Info("media loaded")
		},
		OnEndOfFile: func() {
			log.Info("end of file, exiting")
			cancel()
		},
		OnError: func(err error) {
			log.WithError(err).Error("playback error")
		},
	}

	p := player.New(cfg, opener, discardSink{}, audioSink, events, metrics.NewRecorder(), log)

	if err := p.Load("synthetic"); err != nil {
		log.WithError(err).Error("failed to load media")
		os.Exit(1)
	}
	if err := p.Play(); err != nil {
		log.WithError(err).Error("failed to start playback")
		os.Exit(1)
	}

	serverDone := make(chan error, 1)
	if cfg.Debug.Enabled {
		srv := server.New(cfg, log, p)
		go func() { serverDone <- srv.Start(ctx) }()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("received shutdown signal")
		cancel()
	case <-ctx.Done():
	}

	p.Stop()
	if cfg.Debug.Enabled {
		if err := <-serverDone; err != nil {
			log.WithError(err).Error("debug server error")
		}
	}
	log.Info("shutdown complete")
}
