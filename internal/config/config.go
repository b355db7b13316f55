package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Core configuration constants that define the boundaries and defaults
// for a rendering run.
const (
	DefaultPlugin          = "waveform"                // Built-in renderer
	DefaultWidth           = 600                       // Image width in pixels
	DefaultHeight          = 200                       // Image height in pixels
	DefaultLogLevel        = "warn"                    // Quiet operation
	DefaultWorkers         = 1                         // One analysis at a time
	DefaultRequireComplete = false                     // Keep partial results on read errors
	DefaultUDPAddress      = "127.0.0.1:9090"          // Local listener
	DefaultUDPInterval     = 16 * time.Millisecond     // ~60 packets per second
	DefaultWebSocketAddr   = "127.0.0.1:8080"          // Local WebSocket server
	DefaultConfigFile      = "vampeyer.yaml"           // Read from the working directory if present
	DefaultPluginPath      = "/usr/local/lib/vampeyer" // External analysis libraries

	// Limits
	MaxImageSide = 16384 // Largest width or height accepted
	MaxWorkers   = 64
)

// ErrInvalid is wrapped by every configuration error.
var ErrInvalid = errors.New("invalid configuration")

// NewConfig creates a new Config instance with default values.
// This is the base configuration before a config file, the environment
// and command line flags are applied.
func NewConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Plugin:   DefaultPlugin,
		Width:    DefaultWidth,
		Height:   DefaultHeight,
		Analysis: AnalysisConfig{
			PluginPath:      []string{DefaultPluginPath},
			Workers:         DefaultWorkers,
			RequireComplete: DefaultRequireComplete,
		},
		Transport: TransportConfig{
			UDPTargetAddress: DefaultUDPAddress,
			UDPSendInterval:  DefaultUDPInterval,
			WebSocketAddress: DefaultWebSocketAddr,
		},
	}
}

// ParseSize parses a "WIDTHxHEIGHT" specifier such as "600x200".
func ParseSize(s string) (width, height int, err error) {
	ws, hs, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("%w: size %q is not WIDTHxHEIGHT", ErrInvalid, s)
	}
	width, werr := strconv.Atoi(ws)
	height, herr := strconv.Atoi(hs)
	if werr != nil || herr != nil {
		return 0, 0, fmt.Errorf("%w: size %q is not WIDTHxHEIGHT", ErrInvalid, s)
	}
	if err := checkSize(width, height); err != nil {
		return 0, 0, err
	}
	return width, height, nil
}

func checkSize(width, height int) error {
	if width <= 0 || height <= 0 || width > MaxImageSide || height > MaxImageSide {
		return fmt.Errorf("%w: image size %dx%d outside 1x1 to %dx%d",
			ErrInvalid, width, height, MaxImageSide, MaxImageSide)
	}
	return nil
}
