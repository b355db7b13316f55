// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	applog "vampeyer/internal/log"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`             // Enable debug logging.
	LogLevel  string          `yaml:"log_level"`         // Logging level ("debug", "info", "warn", "error").
	Command   string          `yaml:"command,omitempty"` // A one-off command instead of rendering ("list").
	Plugin    string          `yaml:"plugin"`            // Renderer name or path to a Go plugin exporting NewRenderer.
	Output    string          `yaml:"output"`            // PNG path; empty shows the image in the terminal.
	Width     int             `yaml:"width"`             // Image width in pixels.
	Height    int             `yaml:"height"`            // Image height in pixels.
	Analysis  AnalysisConfig  `yaml:"analysis"`          // Analysis host settings.
	Transport TransportConfig `yaml:"transport"`         // Feature publishing settings.

	AudioFile string `yaml:"-"` // Input audio, from the command line only.
	Verbose   bool   `yaml:"-"` // Set by -V.
}

// AnalysisConfig holds settings for loading and running analysis plugins.
type AnalysisConfig struct {
	PluginPath      []string `yaml:"plugin_path"`      // Directories searched for external analysis libraries.
	Workers         int      `yaml:"workers"`          // Distinct analyses run concurrently; 1 runs them in turn.
	RequireComplete bool     `yaml:"require_complete"` // Fail when a read error cuts an analysis short.
}

// TransportConfig holds settings related to sending feature data over the network.
type TransportConfig struct {
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Send one UDP packet per feature frame.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address and port for UDP packets (e.g., "127.0.0.1:9090").
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between UDP packets.
	WebSocketEnabled bool          `yaml:"websocket_enabled"`  // Serve features over WebSocket until interrupted.
	WebSocketAddress string        `yaml:"websocket_address"`  // Listen address for the WebSocket server.
}

// LoadConfig loads configuration from the YAML file at path. If path is
// empty it reads DefaultConfigFile from the working directory when present,
// and otherwise uses the built-in defaults. Environment overrides are
// applied last, then the result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		applog.Debugf("configuration: Loaded %s", path)
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if err := checkSize(c.Width, c.Height); err != nil {
		return err
	}
	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalid, c.LogLevel)
	}
	if c.Analysis.Workers < 0 || c.Analysis.Workers > MaxWorkers {
		return fmt.Errorf("%w: analysis.workers %d outside 0 to %d", ErrInvalid, c.Analysis.Workers, MaxWorkers)
	}
	if c.Output != "" && filepath.Ext(c.Output) == "" {
		return fmt.Errorf("%w: output %q has no file extension", ErrInvalid, c.Output)
	}

	if c.Transport.UDPEnabled {
		if _, _, err := net.SplitHostPort(c.Transport.UDPTargetAddress); err != nil {
			return fmt.Errorf("%w: transport.udp_target_address %q: %w", ErrInvalid, c.Transport.UDPTargetAddress, err)
		}
		if c.Transport.UDPSendInterval <= 0 {
			return fmt.Errorf("%w: transport.udp_send_interval must be positive when UDP is enabled", ErrInvalid)
		}
	}
	if c.Transport.WebSocketEnabled {
		if _, _, err := net.SplitHostPort(c.Transport.WebSocketAddress); err != nil {
			return fmt.Errorf("%w: transport.websocket_address %q: %w", ErrInvalid, c.Transport.WebSocketAddress, err)
		}
	}
	return nil
}

// ExistingPluginDirs returns the plugin_path entries that are directories.
func (c *Config) ExistingPluginDirs() []string {
	var dirs []string
	for _, d := range c.Analysis.PluginPath {
		info, err := os.Stat(d)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			applog.Debugf("configuration: Plugin directory %s does not exist", d)
		case err != nil:
			applog.Warnf("configuration: Cannot use plugin directory %s: %v", d, err)
		case info.IsDir():
			dirs = append(dirs, d)
		}
	}
	return dirs
}

// applyEnvOverrides applies VAMPEYER_* environment variables over the
// loaded settings. Values that do not parse are ignored with a warning.
func (c *Config) applyEnvOverrides() {
	envBool("VAMPEYER_DEBUG", &c.Debug)
	envString("VAMPEYER_LOG_LEVEL", &c.LogLevel)
	envString("VAMPEYER_PLUGIN", &c.Plugin)
	if val, ok := os.LookupEnv("VAMPEYER_PLUGIN_PATH"); ok {
		c.Analysis.PluginPath = filepath.SplitList(val)
		applog.Infof("configuration: Overriding analysis.plugin_path from env: %v", c.Analysis.PluginPath)
	}
	if val, ok := os.LookupEnv("VAMPEYER_WORKERS"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			c.Analysis.Workers = n
			applog.Infof("configuration: Overriding analysis.workers from env: %d", n)
		} else {
			applog.Warnf("configuration: Ignoring VAMPEYER_WORKERS=%q: %v", val, err)
		}
	}
	envBool("VAMPEYER_REQUIRE_COMPLETE", &c.Analysis.RequireComplete)

	// VAMPEYER_UDP_* and VAMPEYER_WEBSOCKET_* are specific to the transport layer.
	envBool("VAMPEYER_UDP_ENABLED", &c.Transport.UDPEnabled)
	envString("VAMPEYER_UDP_TARGET_ADDRESS", &c.Transport.UDPTargetAddress)
	if val, ok := os.LookupEnv("VAMPEYER_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = dur
			applog.Infof("configuration: Overriding transport.udp_send_interval from env: %s", dur)
		} else {
			applog.Warnf("configuration: Ignoring VAMPEYER_UDP_SEND_INTERVAL=%q: %v", val, err)
		}
	}
	envBool("VAMPEYER_WEBSOCKET_ENABLED", &c.Transport.WebSocketEnabled)
	envString("VAMPEYER_WEBSOCKET_ADDRESS", &c.Transport.WebSocketAddress)
}

func envBool(name string, dst *bool) {
	val, ok := os.LookupEnv(name)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		applog.Warnf("configuration: Ignoring %s=%q: %v", name, val, err)
		return
	}
	*dst = b
	applog.Infof("configuration: Overriding from env %s: %v", name, b)
}

func envString(name string, dst *string) {
	if val, ok := os.LookupEnv(name); ok {
		*dst = val
		applog.Infof("configuration: Overriding from env %s: %s", name, val)
	}
}
