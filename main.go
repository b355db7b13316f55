// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"vampeyer/cmd"
	"vampeyer/internal/analysis"
	"vampeyer/internal/audio"
	"vampeyer/internal/config"
	applog "vampeyer/internal/log"
	"vampeyer/internal/render"
	"vampeyer/internal/sink"
	"vampeyer/internal/transport"
	"vampeyer/internal/transport/udp"
	"vampeyer/internal/tui"
	"vampeyer/internal/vamp"
	"vampeyer/internal/vis"
	"vampeyer/pkg/build"
)

// main is the entry point for the vampeyer renderer.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase:
//   - Initialize build information
//   - Parse command line arguments and configuration
//   - Register analysis plugins and renderers
//   - Execute one-off commands if requested
//
// 2. Analysis Phase:
//   - Open the audio file
//   - Run every analysis the renderer asks for, each distinct one once
//   - Render the image
//
// 3. Output Phase:
//   - Write the PNG or show the image in the terminal
//   - Publish the feature streams if a transport is enabled
func main() {
	os.Exit(run(os.Args[1:]))
}

func fail(format string, args ...any) int {
	fmt.Fprintf(os.Stderr, "ERROR: "+format+"\n", args...)
	return 1
}

func run(args []string) int {
	// ==================== STARTUP PHASE ====================

	// Unstamped development builds still run.
	buildErr := build.Initialize()

	cfg, err := cmd.ParseArgs(args)
	if err != nil {
		if errors.Is(err, cmd.ErrUsage) {
			return fail("%v (see '%s --help')", err, build.GetBuildFlags().Name)
		}
		return fail("failed to read configuration: %v", err)
	}
	if cfg == nil {
		// --help or --version
		return 0
	}
	configureLogging(cfg)
	if buildErr != nil {
		applog.Warnf("Build information incomplete: %v", buildErr)
	}

	analyses := vamp.NewRegistry()
	analysis.Register(analyses)
	for _, dir := range cfg.ExistingPluginDirs() {
		if err := analyses.LoadDir(dir); err != nil {
			applog.Warnf("Failed to scan plugin directory: %v", err)
		}
	}
	renderers := vis.NewRegistry()
	render.Register(renderers)

	// Handle one-off commands that don't need an audio file
	if cfg.Command == "list" {
		if err := cmd.List(os.Stdout, analyses, renderers); err != nil {
			return fail("failed to list plugins: %v", err)
		}
		return 0
	}

	// ==================== ANALYSIS PHASE ====================

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := &vis.Collector{
		Loader:          analyses,
		Workers:         cfg.Analysis.Workers,
		RequireComplete: cfg.Analysis.RequireComplete,
	}
	if cfg.Analysis.Workers > 1 {
		path := cfg.AudioFile
		collector.Open = func() (audio.Source, error) {
			src, err := audio.OpenWAV(path)
			if err != nil {
				return nil, err
			}
			return src, nil
		}
	}

	host, err := vis.NewHost(renderers, cfg.Plugin, collector)
	if err != nil {
		return fail("failed to load rendering plugin %q: %v", cfg.Plugin, err)
	}
	defer host.Close()

	src, err := audio.OpenWAV(cfg.AudioFile)
	if err != nil {
		return fail("cannot read audio: %v", err)
	}
	defer src.Close()
	applog.Infof("Opened %s: %d channel(s) at %d Hz, %d frames",
		cfg.AudioFile, src.Channels(), src.SampleRate(), src.TotalFrames())

	if err := host.Process(ctx, src); err != nil {
		return fail("analysis failed: %v", err)
	}

	img, err := host.Render(cfg.Width, cfg.Height)
	if err != nil {
		return fail("rendering failed: %v", err)
	}

	// ==================== OUTPUT PHASE ====================

	if cfg.Output != "" {
		if err := sink.WritePNG(cfg.Output, img); err != nil {
			return fail("failed to write image: %v", err)
		}
	} else if err := tui.Show(img, filepath.Base(cfg.AudioFile)+" : "+host.Renderer().Name()); err != nil {
		return fail("failed to display image: %v", err)
	}

	if !cfg.Transport.UDPEnabled && !cfg.Transport.WebSocketEnabled {
		return 0
	}
	msgs, err := transport.NewStreamMessages(host.Renderer().Outputs(), host.Results())
	if err != nil {
		return fail("failed to prepare feature streams: %v", err)
	}

	if cfg.Transport.UDPEnabled {
		if err := publishUDP(cfg.Transport, msgs); err != nil {
			return fail("UDP publishing failed: %v", err)
		}
	}

	if cfg.Transport.WebSocketEnabled {
		if err := serveWebSocket(ctx, cfg.Transport, msgs); err != nil {
			return fail("WebSocket publishing failed: %v", err)
		}
	}
	return 0
}

// configureLogging applies log_level, then lets -V and debug raise it.
func configureLogging(cfg *config.Config) {
	level, _ := applog.ParseLevel(cfg.LogLevel)
	if cfg.Verbose && level > applog.LevelInfo {
		level = applog.LevelInfo
	}
	if cfg.Debug {
		level = applog.LevelDebug
	}
	applog.SetLevel(level)
}

func publishUDP(tc config.TransportConfig, msgs []transport.StreamMessage) error {
	sender, err := udp.Dial(tc.UDPTargetAddress)
	if err != nil {
		return err
	}
	defer sender.Close()

	publisher, err := udp.NewUDPPublisher(tc.UDPSendInterval, sender)
	if err != nil {
		return err
	}
	publisher.Start()

	applog.Infof("Publishing %d feature frames to udp://%s", len(msgs), sender.Target())
	err = transport.Publish(publisher, msgs)
	publisher.Close()
	packets, bytes := sender.Stats()
	applog.Infof("Sent %d packets (%d bytes) to udp://%s", packets, bytes, sender.Target())
	return err
}

// serveWebSocket publishes msgs and keeps serving them to new clients until
// ctx is cancelled.
func serveWebSocket(ctx context.Context, tc config.TransportConfig, msgs []transport.StreamMessage) error {
	ws, err := transport.NewWebSocketTransport(tc.WebSocketAddress)
	if err != nil {
		return err
	}
	defer ws.Close()

	if err := transport.Publish(ws, msgs); err != nil {
		return err
	}
	fmt.Printf("Serving %d feature frames on ws://%s/ws, press Ctrl+C to stop\n", len(msgs), ws.Addr())
	<-ctx.Done()
	return nil
}
