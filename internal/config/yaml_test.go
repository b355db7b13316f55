// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if cfg.Width != DefaultWidth || cfg.Height != DefaultHeight || cfg.Plugin != DefaultPlugin {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadConfig_DefaultFileInWorkingDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte("plugin: spectrogram\n"), 0644); err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Plugin != "spectrogram" {
		t.Errorf("plugin = %q, want spectrogram from %s", cfg.Plugin, DefaultConfigFile)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig("nonexistent.yaml")
	if err == nil {
		t.Errorf("expected error for missing file, got nil")
	}
	if cfg != nil {
		t.Errorf("expected nil config on error, got %+v", cfg)
	}
}

func TestLoadConfig_UnmarshalError(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, ":\n:bad")
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Error("expected unmarshal error, got nil or wrong error")
	}
}

func TestLoadConfig_File(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, `
log_level: debug
plugin: freesound
output: out.png
width: 1200
height: 300
analysis:
  plugin_path: [/opt/a, /opt/b]
  workers: 4
  require_complete: true
transport:
  udp_enabled: true
  udp_target_address: 10.0.0.2:7000
  udp_send_interval: 5ms
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Plugin != "freesound" || cfg.Output != "out.png" || cfg.Width != 1200 || cfg.Height != 300 {
		t.Errorf("top level = %+v", cfg)
	}
	if !slices.Equal(cfg.Analysis.PluginPath, []string{"/opt/a", "/opt/b"}) {
		t.Errorf("plugin_path = %v", cfg.Analysis.PluginPath)
	}
	if cfg.Analysis.Workers != 4 || !cfg.Analysis.RequireComplete {
		t.Errorf("analysis = %+v", cfg.Analysis)
	}
	if !cfg.Transport.UDPEnabled || cfg.Transport.UDPSendInterval != 5*time.Millisecond {
		t.Errorf("transport = %+v", cfg.Transport)
	}
	// untouched settings keep their defaults
	if cfg.Transport.WebSocketAddress != DefaultWebSocketAddr {
		t.Errorf("websocket_address = %q, want default", cfg.Transport.WebSocketAddress)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeTempConfig(t, "plugin: freesound\nanalysis:\n  workers: 2\n")
	t.Setenv("VAMPEYER_PLUGIN", "silence")
	t.Setenv("VAMPEYER_WORKERS", "8")
	t.Setenv("VAMPEYER_UDP_SEND_INTERVAL", "not a duration")
	t.Setenv("VAMPEYER_PLUGIN_PATH", strings.Join([]string{"/x", "/y"}, string(filepath.ListSeparator)))
	t.Setenv("VAMPEYER_DEBUG", "true")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Plugin != "silence" || cfg.Analysis.Workers != 8 || !cfg.Debug {
		t.Errorf("env did not override file: %+v", cfg)
	}
	if cfg.Transport.UDPSendInterval != DefaultUDPInterval {
		t.Errorf("bad interval was applied: %v", cfg.Transport.UDPSendInterval)
	}
	if !slices.Equal(cfg.Analysis.PluginPath, []string{"/x", "/y"}) {
		t.Errorf("plugin_path = %v", cfg.Analysis.PluginPath)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero width", func(c *Config) { c.Width = 0 }},
		{"huge height", func(c *Config) { c.Height = MaxImageSide + 1 }},
		{"log level", func(c *Config) { c.LogLevel = "chatty" }},
		{"workers", func(c *Config) { c.Analysis.Workers = -1 }},
		{"output extension", func(c *Config) { c.Output = "picture" }},
		{"udp address", func(c *Config) {
			c.Transport.UDPEnabled = true
			c.Transport.UDPTargetAddress = "nowhere"
		}},
		{"udp interval", func(c *Config) {
			c.Transport.UDPEnabled = true
			c.Transport.UDPSendInterval = 0
		}},
		{"websocket address", func(c *Config) {
			c.Transport.WebSocketEnabled = true
			c.Transport.WebSocketAddress = ""
		}},
	}
	if err := NewConfig().Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConfig()
			tt.modify(c)
			if err := c.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestExistingPluginDirs(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}
	c := NewConfig()
	c.Analysis.PluginPath = []string{dir, filepath.Join(dir, "missing"), file}
	if got := c.ExistingPluginDirs(); !slices.Equal(got, []string{dir}) {
		t.Errorf("ExistingPluginDirs() = %v, want [%s]", got, dir)
	}
}
