package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bnema/waykit/client"
	"github.com/bnema/waykit/internal/config"
	"github.com/bnema/waykit/internal/logger"
	"github.com/bnema/waykit/internal/ui"
	"github.com/bnema/waykit/output"
	"github.com/bnema/waykit/registry"
	"github.com/bnema/waykit/seat"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch globals, outputs, seats and the selection live",
	Long: `Watch globals, outputs, seats and the selection live.

Selection changes are only sent to the focused client: pass --window to
open a small window and focus it to see them.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	withWindow, _ := cmd.Flags().GetBool("window")
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	runner := ui.NewProgramRunner()
	model := ui.NewWatchModel(cancel)
	w := newWatcher(runner.Send)

	// the TUI owns the terminal
	if !debug {
		logger.SetOutput(io.Discard)
		defer logger.SetOutput(os.Stderr)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return runner.Run(gctx, model)
	})
	g.Go(func() error {
		return w.run(gctx, withWindow)
	})
	if err := g.Wait(); err != nil {
		return err
	}
	return model.Err()
}

// watcher turns client callbacks into watch messages. Every method runs on
// the loop goroutine.
type watcher struct {
	send func(tea.Msg)
	now  func() time.Time
	c    *client.Client

	selections map[*seat.Seat][]*selection
}

func newWatcher(send func(tea.Msg)) *watcher {
	return &watcher{
		send:       send,
		now:        time.Now,
		selections: make(map[*seat.Seat][]*selection),
	}
}

func (w *watcher) run(ctx context.Context, withWindow bool) error {
	c, err := connect(ctx, func(o *client.Options) {
		o.OutputHandler = w
		o.SeatHandler = w
	})
	if err != nil {
		w.send(ui.DisconnectedMsg{Err: err})
		return err
	}
	defer c.Close()
	defer w.releaseAll()

	w.attach(c)
	w.send(ui.ConnectedMsg{
		Display: displayName(clientOptions(config.Get()).Display),
		Globals: len(c.Globals()),
	})

	if withWindow {
		f, err := openFocusWindow(c, "waykit watch")
		if err != nil {
			w.event(ui.KindError, "focus window: %v", err)
		} else {
			defer f.Close()
		}
	}

	err = c.Run(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	w.send(ui.DisconnectedMsg{Err: err})
	return err
}

// attach starts following c. Seats announced during the connection are
// tracked here.
func (w *watcher) attach(c *client.Client) {
	w.c = c
	c.Registry().Handle(registry.AnyInterface, w)
	for _, s := range c.Seats().Seats() {
		w.track(s)
	}
	w.snapshot()
}

func (w *watcher) event(kind ui.EventKind, format string, args ...any) {
	w.send(ui.EventMsg{Time: w.now(), Kind: kind, Text: fmt.Sprintf(format, args...)})
}

func (w *watcher) snapshot() {
	if w.c == nil {
		return
	}
	seats := w.c.Seats().Seats()
	infos := make([]seat.Info, 0, len(seats))
	for _, s := range seats {
		infos = append(infos, s.Info())
	}
	w.send(snapshotMsg(w.c.Outputs().Outputs(), infos))
}

func snapshotMsg(outputs []output.Info, seats []seat.Info) ui.SnapshotMsg {
	msg := ui.SnapshotMsg{}
	for _, o := range outputs {
		msg.Outputs = append(msg.Outputs, outputSummary(o))
	}
	for _, s := range seats {
		msg.Seats = append(msg.Seats, s.String())
	}
	return msg
}

func outputSummary(info output.Info) string {
	parts := []string{outputName(info)}
	if m, ok := info.CurrentMode(); ok {
		parts = append(parts, m.String())
	}
	if info.ScaleFactor > 1 {
		parts = append(parts, fmt.Sprintf("scale %d", info.ScaleFactor))
	}
	if geo := logicalGeometry(info); geo != "-" {
		parts = append(parts, geo)
	}
	return strings.Join(parts, " ")
}

// track follows the selections of s once the client is connected.
func (w *watcher) track(s *seat.Seat) {
	if w.c == nil || len(w.selections[s]) > 0 {
		return
	}
	notify := func(primary bool, mimes []string) {
		name := "clipboard"
		if primary {
			name = "primary"
		}
		if mimes == nil {
			w.event(ui.KindSelection, "%s cleared on seat %d", name, s.Name())
			return
		}
		w.event(ui.KindSelection, "%s on seat %d: %s", name, s.Name(), strings.Join(mimes, ", "))
	}

	if sel, err := attachSelection(w.c, s, false, notify); err == nil {
		w.selections[s] = append(w.selections[s], sel)
	} else {
		w.event(ui.KindError, "seat %d: %v", s.Name(), err)
	}
	if w.c.PrimarySelection().Available() {
		if sel, err := attachSelection(w.c, s, true, notify); err == nil {
			w.selections[s] = append(w.selections[s], sel)
		} else {
			w.event(ui.KindError, "seat %d: %v", s.Name(), err)
		}
	}
}

func (w *watcher) release(s *seat.Seat) {
	for _, sel := range w.selections[s] {
		_ = sel.Release()
	}
	delete(w.selections, s)
}

func (w *watcher) releaseAll() {
	for s := range w.selections {
		w.release(s)
	}
}

// NewGlobal implements registry.Handler
func (w *watcher) NewGlobal(_ *registry.Registry, g registry.Global) {
	w.event(ui.KindGlobal, "+ %s v%d (name %d)", g.Interface, g.Version, g.Name)
}

// RemoveGlobal implements registry.Handler
func (w *watcher) RemoveGlobal(_ *registry.Registry, name uint32) {
	w.event(ui.KindGlobal, "- name %d", name)
}

// NewOutput implements output.Handler
func (w *watcher) NewOutput(info output.Info) {
	w.event(ui.KindOutput, "new %s", outputSummary(info))
	w.snapshot()
}

// UpdateOutput implements output.Handler
func (w *watcher) UpdateOutput(info output.Info) {
	w.event(ui.KindOutput, "updated %s", outputSummary(info))
	w.snapshot()
}

// OutputDestroyed implements output.Handler
func (w *watcher) OutputDestroyed(info output.Info) {
	w.event(ui.KindOutput, "removed %s", outputName(info))
	w.snapshot()
}

// NewSeat implements seat.Handler
func (w *watcher) NewSeat(s *seat.Seat) {
	w.event(ui.KindSeat, "new seat %d", s.Name())
	w.track(s)
	w.snapshot()
}

// NewCapability implements seat.Handler
func (w *watcher) NewCapability(s *seat.Seat, c seat.Capability) {
	w.event(ui.KindSeat, "seat %d gained %s", s.Name(), c)
	w.snapshot()
}

// RemoveCapability implements seat.Handler
func (w *watcher) RemoveCapability(s *seat.Seat, c seat.Capability) {
	w.event(ui.KindSeat, "seat %d lost %s", s.Name(), c)
	w.snapshot()
}

// RemoveSeat implements seat.Handler
func (w *watcher) RemoveSeat(s *seat.Seat) {
	w.event(ui.KindSeat, "seat %d removed", s.Name())
	w.release(s)
	w.snapshot()
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().Bool("window", false, "Open a window to receive selection events")
}
