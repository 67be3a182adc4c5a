package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetConfig(t *testing.T) {
	t.Helper()
	viper.Reset()
	configPathOverride = ""
	cfg = nil
	t.Cleanup(func() {
		viper.Reset()
		configPathOverride = ""
		cfg = nil
	})
}

func TestInit(t *testing.T) {
	t.Run("initializes with defaults when no config exists", func(t *testing.T) {
		resetConfig(t)
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())

		err := Init()
		if err != nil {
			t.Errorf("Init() failed: %v", err)
		}

		config := Get()
		require.NotNil(t, config)
		assert.Equal(t, 4096, config.Shm.MultiPoolInitial)
		assert.Equal(t, "default", config.Cursor.Theme)
		assert.True(t, config.Keyboard.Compose)
		assert.Equal(t, 5*time.Second, config.Client.RoundtripTimeout)
	})

	t.Run("reads values from an explicit file", func(t *testing.T) {
		resetConfig(t)
		path := filepath.Join(t.TempDir(), "waykit.toml")
		content := `[cursor]
theme = "Adwaita"
size = 32

[keyboard]
repeat_rate = 30
repeat_delay = 400
locale = "de_DE.UTF-8"

[client]
roundtrip_timeout = "2s"
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		SetConfigPath(path)

		require.NoError(t, Init())
		config := Get()
		assert.Equal(t, "Adwaita", config.Cursor.Theme)
		assert.Equal(t, 32, config.Cursor.Size)
		assert.Equal(t, 30, config.Keyboard.RepeatRate)
		assert.Equal(t, 400, config.Keyboard.RepeatDelay)
		assert.Equal(t, "de_DE.UTF-8", config.Keyboard.Locale)
		assert.Equal(t, 2*time.Second, config.Client.RoundtripTimeout)
		// untouched keys keep their defaults
		assert.Equal(t, "text/plain;charset=utf-8", config.Clipboard.DefaultMime)
	})

	t.Run("handles invalid TOML", func(t *testing.T) {
		resetConfig(t)
		path := filepath.Join(t.TempDir(), "broken.toml")
		require.NoError(t, os.WriteFile(path, []byte("[cursor\nsize = 1"), 0644))
		SetConfigPath(path)

		err := Init()
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "error reading config file"))
	})

	t.Run("environment overrides file values", func(t *testing.T) {
		resetConfig(t)
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		t.Setenv("WAYKIT_CURSOR_SIZE", "48")

		require.NoError(t, Init())
		assert.Equal(t, 48, Get().Cursor.Size)
	})
}

func TestConfigPathResolution(t *testing.T) {
	tests := []struct {
		name     string
		xdg      string
		override string
		expected string
	}{
		{
			name:     "xdg config home",
			xdg:      "/tmp/xdg",
			expected: "/tmp/xdg/waykit/config.toml",
		},
		{
			name:     "explicit override wins",
			xdg:      "/tmp/xdg",
			override: "/etc/waykit.toml",
			expected: "/etc/waykit.toml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetConfig(t)
			t.Setenv("XDG_CONFIG_HOME", tt.xdg)
			SetConfigPath(tt.override)

			if path := GetConfigPath(); path != tt.expected {
				t.Errorf("Expected path %s, got %s", tt.expected, path)
			}
		})
	}
}

func TestInitWithMissingExplicitPath(t *testing.T) {
	resetConfig(t)
	SetConfigPath(filepath.Join(t.TempDir(), "absent", "config.toml"))

	require.NoError(t, Init())
	assert.Equal(t, DefaultConfig.Cursor.Size, Get().Cursor.Size)
}

func TestUpdateWritesFile(t *testing.T) {
	resetConfig(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	SetConfigPath(path)
	require.NoError(t, Init())

	c := Get()
	c.Cursor.Theme = "breeze"
	c.Decoration.PreferServerSide = false
	require.NoError(t, Update(c))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "breeze")

	viper.Reset()
	SetConfigPath(path)
	require.NoError(t, Init())
	assert.Equal(t, "breeze", Get().Cursor.Theme)
	assert.False(t, Get().Decoration.PreferServerSide)
}

func TestGetWithoutInitReturnsDefaults(t *testing.T) {
	resetConfig(t)
	c := Get()
	c.Cursor.Size = 99
	assert.Equal(t, 24, Get().Cursor.Size, "defaults must not be mutated through Get")
}
