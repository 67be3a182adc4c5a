package cmd

import (
	"io"
	"log"

	"github.com/bnema/waykit/internal/config"
	"github.com/bnema/waykit/internal/logger"
	"github.com/spf13/cobra"
)

var (
	// Version is set during build
	Version = "0.1.0-dev"

	debug      bool
	configPath string
	display    string

	rootCmd = &cobra.Command{
		Use:   "waykit",
		Short: "waykit - Wayland client toolkit",
		Long: `waykit inspects and drives a Wayland compositor through the waykit
client toolkit: list globals, outputs and seats, copy and paste the
selection, and watch compositor events live.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
)

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)

	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging, including wire traffic")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/waykit/config.toml)")
	rootCmd.PersistentFlags().StringVar(&display, "display", "", "Wayland display socket (default $WAYLAND_DISPLAY)")
}

func setup(cmd *cobra.Command, args []string) error {
	if configPath != "" {
		config.SetConfigPath(configPath)
	}
	if err := config.Init(); err != nil {
		return err
	}

	cfg := config.Get()
	switch {
	case debug:
		logger.SetLevel("debug")
	case cfg.Log.Level != "":
		logger.SetLevel(cfg.Log.Level)
	}

	// wlturbo reports through the standard logger
	if !debug {
		log.SetOutput(io.Discard)
	}
	return nil
}
