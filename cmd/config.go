package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/bnema/waykit/internal/config"
	"github.com/bnema/waykit/internal/logger"
	"github.com/bnema/waykit/internal/ui"
	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage waykit configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, ui.FormatAppHeader("Config", config.GetConfigPath()))
		fmt.Fprintln(out, ui.Table([]string{"Key", "Value"}, configRows(cfg)))
		return nil
	},
}

func configRows(cfg *config.Config) [][]string {
	level := cfg.Log.Level
	if level == "" {
		level = "(LOG_LEVEL)"
	}
	socket := cfg.Client.Display
	if socket == "" {
		socket = "(WAYLAND_DISPLAY)"
	}
	locale := cfg.Keyboard.Locale
	if locale == "" {
		locale = "(environment)"
	}
	return [][]string{
		{"log.level", level},
		{"cursor.theme", cfg.Cursor.Theme},
		{"cursor.size", strconv.Itoa(cfg.Cursor.Size)},
		{"cursor.prefer_shape", strconv.FormatBool(cfg.Cursor.PreferShape)},
		{"keyboard.repeat_rate", strconv.Itoa(cfg.Keyboard.RepeatRate)},
		{"keyboard.repeat_delay", strconv.Itoa(cfg.Keyboard.RepeatDelay)},
		{"keyboard.compose", strconv.FormatBool(cfg.Keyboard.Compose)},
		{"keyboard.locale", locale},
		{"shm.multi_pool_initial", strconv.Itoa(cfg.Shm.MultiPoolInitial)},
		{"shm.prefer_memfd", strconv.FormatBool(cfg.Shm.PreferMemfd)},
		{"decoration.prefer_server_side", strconv.FormatBool(cfg.Decoration.PreferServerSide)},
		{"clipboard.default_mime", cfg.Clipboard.DefaultMime},
		{"client.display", socket},
		{"client.roundtrip_timeout", cfg.Client.RoundtripTimeout.String()},
	}
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the configuration file",
	Long: `Initialize the configuration file. On a terminal the settings are
chosen in a form, otherwise the defaults are written.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.GetConfigPath()
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(configPath); err == nil && !force {
			logger.Infof("Configuration file already exists at: %s", configPath)
			logger.Info("Use --force to overwrite")
			return nil
		}

		cfg := config.DefaultConfig
		defaults, _ := cmd.Flags().GetBool("defaults")
		if !defaults && isatty.IsTerminal(os.Stdin.Fd()) {
			values := ui.NewConfigValues(&cfg)
			if err := ui.ConfigForm(values).Run(); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					logger.Info("Aborted, nothing written")
					return nil
				}
				return err
			}
			if err := values.Apply(&cfg); err != nil {
				return err
			}
		}

		if err := config.Update(&cfg); err != nil {
			return err
		}

		logger.Infof("Configuration initialized at: %s", configPath)
		logger.Info("Use 'waykit config show' to view current settings")
		return nil
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit the configuration interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := *config.Get()
		values := ui.NewConfigValues(&cfg)
		if err := ui.ConfigForm(values).Run(); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return err
		}
		if err := values.Apply(&cfg); err != nil {
			return err
		}
		if err := config.Update(&cfg); err != nil {
			return err
		}
		logger.Infof("Configuration saved to: %s", config.GetConfigPath())
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), config.GetConfigPath())
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configPathCmd)

	configInitCmd.Flags().Bool("force", false, "Force overwrite existing configuration")
	configInitCmd.Flags().Bool("defaults", false, "Write the defaults without asking")
}
