package cmd

import (
	"context"

	"github.com/bnema/waykit/client"
	"github.com/bnema/waykit/internal/config"
	"github.com/bnema/waykit/internal/logger"
)

// clientOptions builds the connection options from the config file and the
// command line.
func clientOptions(cfg *config.Config) client.Options {
	opts := client.OptionsFromConfig(cfg)
	if display != "" {
		opts.Display = display
	}
	return opts
}

// connect opens a client on the calling goroutine, which becomes its loop
// goroutine. tweak may install handlers before the first roundtrip.
func connect(ctx context.Context, tweak func(*client.Options)) (*client.Client, error) {
	opts := clientOptions(config.Get())
	if tweak != nil {
		tweak(&opts)
	}
	c, err := client.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	logger.Debug("session ready", "display", displayName(opts.Display), "globals", len(c.Globals()))
	return c, nil
}

func displayName(name string) string {
	if name != "" {
		return name
	}
	return "$WAYLAND_DISPLAY"
}
