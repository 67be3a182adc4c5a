// Package config handles toolkit configuration using Viper
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the toolkit configuration
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Cursor     CursorConfig     `mapstructure:"cursor"`
	Keyboard   KeyboardConfig   `mapstructure:"keyboard"`
	Shm        ShmConfig        `mapstructure:"shm"`
	Decoration DecorationConfig `mapstructure:"decoration"`
	Clipboard  ClipboardConfig  `mapstructure:"clipboard"`
	Client     ClientConfig     `mapstructure:"client"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level string `mapstructure:"level"` // Overrides LOG_LEVEL when set
}

// CursorConfig controls pointer cursor selection
type CursorConfig struct {
	Theme       string `mapstructure:"theme"`
	Size        int    `mapstructure:"size"`
	PreferShape bool   `mapstructure:"prefer_shape"` // Use wp_cursor_shape_v1 when the compositor has it
}

// KeyboardConfig controls repeat and compose handling
type KeyboardConfig struct {
	RepeatRate  int    `mapstructure:"repeat_rate"`  // 0 follows the compositor
	RepeatDelay int    `mapstructure:"repeat_delay"` // milliseconds, 0 follows the compositor
	Compose     bool   `mapstructure:"compose"`
	Locale      string `mapstructure:"locale"` // Empty resolves LC_ALL, LC_CTYPE, LANG
}

// ShmConfig controls shared memory pools
type ShmConfig struct {
	MultiPoolInitial int  `mapstructure:"multi_pool_initial"`
	PreferMemfd      bool `mapstructure:"prefer_memfd"`
}

// DecorationConfig controls window decorations
type DecorationConfig struct {
	PreferServerSide bool `mapstructure:"prefer_server_side"`
}

// ClipboardConfig contains clipboard defaults
type ClipboardConfig struct {
	DefaultMime string `mapstructure:"default_mime"`
}

// ClientConfig contains connection settings
type ClientConfig struct {
	Display          string        `mapstructure:"display"` // Empty uses WAYLAND_DISPLAY
	RoundtripTimeout time.Duration `mapstructure:"roundtrip_timeout"`
}

var (
	// DefaultConfig provides sensible defaults
	DefaultConfig = Config{
		Log: LogConfig{
			Level: "",
		},
		Cursor: CursorConfig{
			Theme:       "default",
			Size:        24,
			PreferShape: true,
		},
		Keyboard: KeyboardConfig{
			Compose: true,
		},
		Shm: ShmConfig{
			MultiPoolInitial: 4096,
			PreferMemfd:      true,
		},
		Decoration: DecorationConfig{
			PreferServerSide: true,
		},
		Clipboard: ClipboardConfig{
			DefaultMime: "text/plain;charset=utf-8",
		},
		Client: ClientConfig{
			RoundtripTimeout: 5 * time.Second,
		},
	}

	// Global config instance
	cfg *Config

	// Override config path if set
	configPathOverride string
)

// SetConfigPath allows overriding the config path
func SetConfigPath(path string) {
	configPathOverride = path
}

// Init initializes the configuration system
func Init() error {
	viper.SetConfigName("config")
	viper.SetConfigType("toml")

	if configPathOverride != "" {
		viper.SetConfigFile(configPathOverride)
	} else {
		viper.AddConfigPath(configDir())
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("waykit")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set defaults - need to set individual fields for proper merging
	viper.SetDefault("log.level", DefaultConfig.Log.Level)

	viper.SetDefault("cursor.theme", DefaultConfig.Cursor.Theme)
	viper.SetDefault("cursor.size", DefaultConfig.Cursor.Size)
	viper.SetDefault("cursor.prefer_shape", DefaultConfig.Cursor.PreferShape)

	viper.SetDefault("keyboard.repeat_rate", DefaultConfig.Keyboard.RepeatRate)
	viper.SetDefault("keyboard.repeat_delay", DefaultConfig.Keyboard.RepeatDelay)
	viper.SetDefault("keyboard.compose", DefaultConfig.Keyboard.Compose)
	viper.SetDefault("keyboard.locale", DefaultConfig.Keyboard.Locale)

	viper.SetDefault("shm.multi_pool_initial", DefaultConfig.Shm.MultiPoolInitial)
	viper.SetDefault("shm.prefer_memfd", DefaultConfig.Shm.PreferMemfd)

	viper.SetDefault("decoration.prefer_server_side", DefaultConfig.Decoration.PreferServerSide)

	viper.SetDefault("clipboard.default_mime", DefaultConfig.Clipboard.DefaultMime)

	viper.SetDefault("client.display", DefaultConfig.Client.Display)
	viper.SetDefault("client.roundtrip_timeout", DefaultConfig.Client.RoundtripTimeout)

	if err := viper.ReadInConfig(); err != nil {
		// an explicit path that does not exist yet is created by Update
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	return nil
}

// Get returns the current configuration
func Get() *Config {
	if cfg == nil {
		// Return defaults if not initialized
		c := DefaultConfig
		return &c
	}
	return cfg
}

// Set sets the current configuration (for testing)
func Set(c *Config) {
	cfg = c
}

// Save writes the current configuration to file
func Save() error {
	configPath := GetConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Update stores c in viper and on disk.
func Update(c *Config) error {
	viper.Set("log.level", c.Log.Level)
	viper.Set("cursor.theme", c.Cursor.Theme)
	viper.Set("cursor.size", c.Cursor.Size)
	viper.Set("cursor.prefer_shape", c.Cursor.PreferShape)
	viper.Set("keyboard.repeat_rate", c.Keyboard.RepeatRate)
	viper.Set("keyboard.repeat_delay", c.Keyboard.RepeatDelay)
	viper.Set("keyboard.compose", c.Keyboard.Compose)
	viper.Set("keyboard.locale", c.Keyboard.Locale)
	viper.Set("shm.multi_pool_initial", c.Shm.MultiPoolInitial)
	viper.Set("shm.prefer_memfd", c.Shm.PreferMemfd)
	viper.Set("decoration.prefer_server_side", c.Decoration.PreferServerSide)
	viper.Set("clipboard.default_mime", c.Clipboard.DefaultMime)
	viper.Set("client.display", c.Client.Display)
	viper.Set("client.roundtrip_timeout", c.Client.RoundtripTimeout)
	cfg = c
	return Save()
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	if configPathOverride != "" {
		return configPathOverride
	}

	if viper.ConfigFileUsed() != "" {
		return viper.ConfigFileUsed()
	}

	return filepath.Join(configDir(), "config.toml")
}

func configDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "waykit")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "waykit")
	}
	return filepath.Join(home, ".config", "waykit")
}
