// SPDX-License-Identifier: MIT
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"

	"github.com/MaveDX/Bard/cmd"
	"github.com/MaveDX/Bard/internal/artwork"
	"github.com/MaveDX/Bard/internal/config"
	applog "github.com/MaveDX/Bard/internal/log"
	"github.com/MaveDX/Bard/internal/player"
	"github.com/MaveDX/Bard/internal/session"
	"github.com/MaveDX/Bard/internal/transport"
	"github.com/MaveDX/Bard/internal/tui"
	"github.com/MaveDX/Bard/internal/waveform"
	"github.com/MaveDX/Bard/pkg/build"
)

// main runs in three phases:
//
// 1. Startup: build metadata, CLI parsing, config loading, log level.
// 2. Run: either a one-off command (palette, waveform) or the engine loop
//    with the optional telemetry publisher and terminal preview.
// 3. Shutdown: stop the publisher, then the session, in that order, so the
//    last published frame precedes subprocess teardown.
func main() {
	if err := build.Initialize(); err != nil {
		applog.Fatalf("%v", err)
	}

	options, err := cmd.ParseArgs()
	if err != nil {
		applog.Fatalf("%v", err)
	}

	cfg, err := config.LoadConfig(options.ConfigPath)
	if err != nil {
		applog.Fatalf("%v", err)
	}

	level, ok := applog.ParseLevel(cfg.LogLevel)
	if !ok {
		applog.Warnf("unknown log level %q, using %s", cfg.LogLevel, level)
	}
	if options.Verbose {
		level = applog.LevelDebug
	}
	applog.SetLevel(level)

	switch options.Command {
	case "palette":
		if err := printPalette(options.Args[0]); err != nil {
			applog.Fatalf("%v", err)
		}
		return
	case "waveform":
		if err := printWaveform(cfg, options.Args[0]); err != nil {
			applog.Fatalf("%v", err)
		}
		return
	}

	run(cfg, options.Command == "preview")
}

// run owns the engine lifecycle for both headless and preview modes.
func run(cfg *config.Config, preview bool) {
	client, err := dial(cfg)
	if err != nil {
		applog.Fatalf("playback client: %v", err)
	}

	s := session.New(cfg, client)
	defer func() {
		if err := s.Close(); err != nil {
			applog.Errorf("session close: %v", err)
		}
	}()

	var feed transport.Transport
	if cfg.Telemetry.Enabled {
		feed = transport.NewWebSocketTransport(cfg.Telemetry.Address)
	} else {
		feed = transport.NewLoggingTransport()
	}
	publisher, err := transport.NewPublisher(cfg.Telemetry.Interval, feed, s)
	if err != nil {
		applog.Fatalf("telemetry: %v", err)
	}
	publisher.Start()
	defer func() {
		publisher.Stop()
		feed.Close()
	}()

	if preview {
		// The preview's redraw tick drives session polling.
		p := tea.NewProgram(tui.NewPreviewModel(s), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			applog.Errorf("preview: %v", err)
		}
		return
	}

	applog.Infof("%s %s running, ctrl+c to stop", build.GetBuildFlags().Name, build.GetBuildFlags().Version)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Player.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Tick(); err != nil {
				applog.Warnf("poll: %v", err)
			}
		case <-done:
			applog.Infof("shutting down")
			return
		}
	}
}

// dial connects to the playback collaborator.
func dial(cfg *config.Config) (player.Client, error) {
	return player.DialMPD(cfg.Player.Address)
}

// printPalette extracts the display palette of an image and prints one
// swatch per line.
func printPalette(path string) error {
	palette, err := artwork.PaletteFromFile(path)
	if err != nil {
		return err
	}
	dominant, err := artwork.DominantColorFromFile(path)
	if err != nil {
		return err
	}

	printSwatch("dominant", dominant)
	labels := []string{"top-left", "top-right", "bottom-left", "bottom-right"}
	for i, c := range palette {
		printSwatch(labels[i], c)
	}
	return nil
}

func printSwatch(label string, c artwork.RGB) {
	swatch := color.RGB(
		int(c.R*255),
		int(c.G*255),
		int(c.B*255),
	).Sprint("██████")
	fmt.Printf("%-13s %s %s\n", label, swatch, c.CSS())
}

// printWaveform extracts a track's envelope and prints it as two mirrored
// bar rows plus the raw values.
func printWaveform(cfg *config.Config, path string) error {
	extractor := waveform.NewExtractor(cfg.Waveform.Binary)
	series, err := extractor.Extract(path, cfg.Waveform.Bars)
	if err != nil {
		return err
	}
	for i, pair := range series {
		fmt.Printf("%3d  L %.3f  R %.3f\n", i, pair.Left, pair.Right)
	}
	return nil
}
