package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/zsiec/loopview/internal/config"
	"github.com/zsiec/loopview/internal/logger"
	"github.com/zsiec/loopview/internal/media"
	"github.com/zsiec/loopview/internal/metrics"
	"github.com/zsiec/loopview/internal/player"
	"github.com/zsiec/loopview/internal/synth"
	"github.com/zsiec/loopview/internal/tui"
	"github.com/zsiec/loopview/pkg/version"
)

type nullSink struct{}

func (nullSink) Present(media.VideoFrame) {}

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

	// The console owns the terminal; keep log output away from it.
	cfg.Logging.Level = "error"
	logrusLogger, err := logger.New(&cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	log := logger.NewLogrusAdapter(logrus.NewEntry(logrusLogger))

	opener := &synth.Opener{Cfg: synth.DefaultConfig(clipDuration)}
	audioSink := &synth.AudioSink{DrainRate: media.OutputFormat.ByteRate()}

	var program *tea.Program
	events := &player.Events{
		OnError: func(err error) {
			if program != nil {
				program.Send(tui.ErrorMsg{Err: err})
			}
		},
	}

	p := player.New(cfg, opener, nullSink{}, audioSink, events, metrics.NewRecorder(), log)
	program = tea.NewProgram(tui.NewModel(p), tea.WithAltScreen())

	if err := p.Load("synthetic"); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load media: %v\n", err)
		os.Exit(1)
	}
	if err := p.Play(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start playback: %v\n", err)
		os.Exit(1)
	}

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Console error: %v\n", err)
		os.Exit(1)
	}
	p.Stop()
}
