// SPDX-License-Identifier: MIT
package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"vampeyer/internal/config"
)

// isolate runs the test from an empty directory with no VAMPEYER_* overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	for _, name := range []string{"VAMPEYER_PLUGIN", "VAMPEYER_WORKERS", "VAMPEYER_LOG_LEVEL", "VAMPEYER_UDP_ENABLED"} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
	return dir
}

func TestParseArgs(t *testing.T) {
	isolate(t)

	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, c *config.Config)
	}{
		{
			"defaults",
			[]string{"song.wav"},
			func(t *testing.T, c *config.Config) {
				if c.AudioFile != "song.wav" || c.Plugin != config.DefaultPlugin {
					t.Errorf("got %+v", c)
				}
				if c.Width != config.DefaultWidth || c.Height != config.DefaultHeight || c.Output != "" {
					t.Errorf("got %dx%d -> %q", c.Width, c.Height, c.Output)
				}
			},
		},
		{
			"short flags",
			[]string{"-p", "freesound", "-o", "out.png", "-s", "800x100", "-V", "song.wav"},
			func(t *testing.T, c *config.Config) {
				if c.Plugin != "freesound" || c.Output != "out.png" || !c.Verbose {
					t.Errorf("got %+v", c)
				}
				if c.Width != 800 || c.Height != 100 {
					t.Errorf("size = %dx%d", c.Width, c.Height)
				}
			},
		},
		{
			"long flags",
			[]string{"song.wav", "--workers", "4", "--require-complete", "--log-level", "debug", "--udp", "--websocket"},
			func(t *testing.T, c *config.Config) {
				if c.Analysis.Workers != 4 || !c.Analysis.RequireComplete || c.LogLevel != "debug" {
					t.Errorf("got %+v", c)
				}
				if !c.Transport.UDPEnabled || !c.Transport.WebSocketEnabled {
					t.Errorf("transport = %+v", c.Transport)
				}
			},
		},
		{
			"list",
			[]string{"list", "-V"},
			func(t *testing.T, c *config.Config) {
				if c.Command != "list" || c.AudioFile != "" || !c.Verbose {
					t.Errorf("got %+v", c)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseArgs(tt.args)
			if err != nil {
				t.Fatalf("ParseArgs(%v): %v", tt.args, err)
			}
			tt.check(t, c)
		})
	}
}

func TestParseArgsFlagsOverrideFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	yaml := "plugin: spectrogram\nwidth: 1000\nheight: 500\nanalysis:\n  workers: 3\n"
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := ParseArgs([]string{"-c", path, "-p", "silence", "song.wav"})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if c.Plugin != "silence" {
		t.Errorf("plugin = %q, want the flag value", c.Plugin)
	}
	// unset flags leave file values alone
	if c.Width != 1000 || c.Height != 500 || c.Analysis.Workers != 3 {
		t.Errorf("file values lost: %dx%d workers=%d", c.Width, c.Height, c.Analysis.Workers)
	}
}

func TestParseArgsErrors(t *testing.T) {
	isolate(t)

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"no audio file", nil, ErrUsage},
		{"two audio files", []string{"a.wav", "b.wav"}, ErrUsage},
		{"bad size", []string{"-s", "wide", "a.wav"}, config.ErrInvalid},
		{"zero size", []string{"-s", "0x10", "a.wav"}, config.ErrInvalid},
		{"bad log level", []string{"--log-level", "loud", "a.wav"}, config.ErrInvalid},
		{"too many workers", []string{"--workers", "1000", "a.wav"}, config.ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseArgs(tt.args)
			if !errors.Is(err, tt.want) {
				t.Errorf("ParseArgs(%v) err = %v, want %v", tt.args, err, tt.want)
			}
			if c != nil {
				t.Errorf("config returned alongside error: %+v", c)
			}
		})
	}

	if _, err := ParseArgs([]string{"--no-such-flag", "a.wav"}); err == nil {
		t.Error("unknown flag accepted")
	}
	if _, err := ParseArgs([]string{"-c", "missing.yaml", "a.wav"}); err == nil {
		t.Error("missing config file accepted")
	}
}

func TestParseArgsHelp(t *testing.T) {
	isolate(t)
	c, err := ParseArgs([]string{"--help"})
	if err != nil || c != nil {
		t.Errorf("ParseArgs(--help) = %v, %v; want nil, nil", c, err)
	}
}
