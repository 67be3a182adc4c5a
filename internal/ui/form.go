package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/waykit/internal/config"
	"github.com/charmbracelet/huh"
)

// ConfigValues holds the editable settings as the form fields see them.
type ConfigValues struct {
	LogLevel         string
	CursorTheme      string
	CursorSize       string
	PreferShape      bool
	Compose          bool
	PreferServerSide bool
	PreferMemfd      bool
	DefaultMime      string
	RoundtripTimeout string
}

// NewConfigValues copies cfg into form values.
func NewConfigValues(cfg *config.Config) *ConfigValues {
	return &ConfigValues{
		LogLevel:         cfg.Log.Level,
		CursorTheme:      cfg.Cursor.Theme,
		CursorSize:       strconv.Itoa(cfg.Cursor.Size),
		PreferShape:      cfg.Cursor.PreferShape,
		Compose:          cfg.Keyboard.Compose,
		PreferServerSide: cfg.Decoration.PreferServerSide,
		PreferMemfd:      cfg.Shm.PreferMemfd,
		DefaultMime:      cfg.Clipboard.DefaultMime,
		RoundtripTimeout: cfg.Client.RoundtripTimeout.String(),
	}
}

// Apply writes the values back into cfg.
func (v *ConfigValues) Apply(cfg *config.Config) error {
	size, err := parseCursorSize(v.CursorSize)
	if err != nil {
		return err
	}
	timeout, err := parseTimeout(v.RoundtripTimeout)
	if err != nil {
		return err
	}
	cfg.Log.Level = strings.ToLower(v.LogLevel)
	cfg.Cursor.Theme = v.CursorTheme
	cfg.Cursor.Size = size
	cfg.Cursor.PreferShape = v.PreferShape
	cfg.Keyboard.Compose = v.Compose
	cfg.Decoration.PreferServerSide = v.PreferServerSide
	cfg.Shm.PreferMemfd = v.PreferMemfd
	cfg.Clipboard.DefaultMime = v.DefaultMime
	cfg.Client.RoundtripTimeout = timeout
	return nil
}

func parseCursorSize(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 || n > 256 {
		return 0, fmt.Errorf("cursor size must be between 1 and 256")
	}
	return n, nil
}

func parseTimeout(s string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid roundtrip timeout %q", s)
	}
	return d, nil
}

// ConfigForm builds the interactive editor for v.
func ConfigForm(v *ConfigValues) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Log level").
				Options(
					huh.NewOption("from LOG_LEVEL", ""),
					huh.NewOption("debug", "debug"),
					huh.NewOption("info", "info"),
					huh.NewOption("warn", "warn"),
					huh.NewOption("error", "error"),
				).
				Value(&v.LogLevel),
			huh.NewInput().
				Title("Roundtrip timeout").
				Description("How long to wait for the compositor, e.g. 5s").
				Validate(func(s string) error {
					_, err := parseTimeout(s)
					return err
				}).
				Value(&v.RoundtripTimeout),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Cursor theme").
				Value(&v.CursorTheme),
			huh.NewInput().
				Title("Cursor size").
				Validate(func(s string) error {
					_, err := parseCursorSize(s)
					return err
				}).
				Value(&v.CursorSize),
			huh.NewConfirm().
				Title("Prefer compositor cursor shapes").
				Value(&v.PreferShape),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable compose sequences").
				Value(&v.Compose),
			huh.NewConfirm().
				Title("Prefer server-side decorations").
				Value(&v.PreferServerSide),
			huh.NewConfirm().
				Title("Back pools with memfd").
				Value(&v.PreferMemfd),
			huh.NewInput().
				Title("Default clipboard mime type").
				Value(&v.DefaultMime),
		),
	)
}
