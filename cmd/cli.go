// SPDX-License-Identifier: MIT
package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"vampeyer/internal/config"
	"vampeyer/pkg/build"
)

// ErrUsage marks command line mistakes, as opposed to bad configuration files.
var ErrUsage = errors.New("usage")

// flagValues collects flag values before they are merged over the loaded
// configuration.
type flagValues struct {
	configPath      string
	plugin          string
	output          string
	size            string
	verbose         bool
	logLevel        string
	workers         int
	requireComplete bool
	udp             bool
	websocket       bool
}

// ParseArgs parses the command line (without the program name) into a
// configuration. A nil configuration with a nil error means the invocation
// was fully handled by cobra, as with --help or --version.
func ParseArgs(args []string) (*config.Config, error) {
	buildInfo := build.GetBuildFlags()

	var (
		flags   flagValues
		options *config.Config
	)

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name + " [flags] AUDIO_FILE",
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("%w: expected exactly one audio file, got %d arguments", ErrUsage, len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &flags)
			if err != nil {
				return err
			}
			cfg.AudioFile = args[0]
			options = cfg
			return nil
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available analysis plugins and renderers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &flags)
			if err != nil {
				return err
			}
			cfg.Command = "list"
			options = cfg
			return nil
		},
	}
	rootCmd.AddCommand(listCmd)

	// General Configuration
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "",
		"YAML configuration file (default ./"+config.DefaultConfigFile+" if present)")
	pf.BoolVarP(&flags.verbose, "verbose", "V", false,
		"Show progress output")
	pf.StringVar(&flags.logLevel, "log-level", config.DefaultLogLevel,
		"Logging level: debug, info, warn or error")

	// Rendering Configuration
	f := rootCmd.Flags()
	f.StringVarP(&flags.plugin, "plugin", "p", config.DefaultPlugin,
		"Rendering plugin: a built-in name or the path to a Go plugin (.so)")
	f.StringVarP(&flags.output, "output", "o", "",
		"Write a PNG image to this path instead of showing it in the terminal")
	f.StringVarP(&flags.size, "size", "s", fmt.Sprintf("%dx%d", config.DefaultWidth, config.DefaultHeight),
		"Image size as WIDTHxHEIGHT")

	// Analysis Configuration
	f.IntVar(&flags.workers, "workers", config.DefaultWorkers,
		"Number of distinct analyses to run concurrently")
	f.BoolVar(&flags.requireComplete, "require-complete", config.DefaultRequireComplete,
		"Fail instead of rendering partial results when the audio cannot be read to the end")

	// Transport Configuration
	f.BoolVar(&flags.udp, "udp", false,
		"Send the rendered features as UDP packets to transport.udp_target_address")
	f.BoolVar(&flags.websocket, "websocket", false,
		"Serve the rendered features over WebSocket until interrupted")

	// Execute the CLI
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	return options, nil
}

// loadConfig reads the configuration file and environment, then applies every
// flag the user set explicitly.
func loadConfig(cmd *cobra.Command, flags *flagValues) (*config.Config, error) {
	cfg, err := config.LoadConfig(flags.configPath)
	if err != nil {
		return nil, err
	}

	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}

	if changed("verbose") {
		cfg.Verbose = flags.verbose
	}
	if changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}
	if changed("plugin") {
		cfg.Plugin = flags.plugin
	}
	if changed("output") {
		cfg.Output = flags.output
	}
	if changed("size") {
		w, h, err := config.ParseSize(flags.size)
		if err != nil {
			return nil, err
		}
		cfg.Width, cfg.Height = w, h
	}
	if changed("workers") {
		cfg.Analysis.Workers = flags.workers
	}
	if changed("require-complete") {
		cfg.Analysis.RequireComplete = flags.requireComplete
	}
	if changed("udp") {
		cfg.Transport.UDPEnabled = flags.udp
	}
	if changed("websocket") {
		cfg.Transport.WebSocketEnabled = flags.websocket
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
