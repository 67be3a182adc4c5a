package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/bnema/waykit/internal/config"
	"github.com/bnema/waykit/internal/ui"
	"github.com/bnema/waykit/output"
	"github.com/bnema/waykit/registry"
	"github.com/bnema/waykit/seat"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"globals", "outputs", "seats", "clipboard", "watch", "config", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}

	for _, flag := range []string{"debug", "config", "display"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(flag), "missing flag --%s", flag)
	}
}

func TestVersionCommand(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	out, err := executeCommand(rootCmd, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "waykit "+Version)
	assert.Contains(t, out, "commit: ")
}

func TestClientOptionsDisplayFlag(t *testing.T) {
	cfg := config.DefaultConfig
	cfg.Client.Display = "wayland-9"
	cfg.Client.RoundtripTimeout = time.Second

	opts := clientOptions(&cfg)
	assert.Equal(t, "wayland-9", opts.Display)
	assert.Equal(t, time.Second, opts.RoundtripTimeout)

	display = "wayland-1"
	t.Cleanup(func() { display = "" })
	assert.Equal(t, "wayland-1", clientOptions(&cfg).Display, "--display wins over the config file")
}

func TestGlobalRows(t *testing.T) {
	rows := globalRows([]registry.Global{
		{Name: 1, Interface: "wl_compositor", Version: 6},
		{Name: 7, Interface: "wl_seat", Version: 9},
	})
	assert.Equal(t, [][]string{
		{"1", "wl_compositor", "6"},
		{"7", "wl_seat", "9"},
	}, rows)
}

func TestOutputRows(t *testing.T) {
	infos := []output.Info{
		{
			ID:          42,
			Name:        "DP-1",
			Make:        "Dell",
			Model:       "U2720Q",
			ScaleFactor: 2,
			Modes: []output.Mode{
				{Width: 1920, Height: 1080, RefreshRate: 60000},
				{Width: 3840, Height: 2160, RefreshRate: 59997, Current: true, Preferred: true},
			},
			LogicalPosition: output.Point{X: 1920, Y: 0},
			LogicalSize:     output.Size{Width: 1920, Height: 1080},
		},
		{ID: 43},
	}

	rows := outputRows(infos)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"42", "DP-1", "Dell U2720Q", "3840x2160@59.997Hz", "2", "normal", "1920x1080+1920+0"}, rows[0])
	assert.Equal(t, "output-43", rows[1][1])
	assert.Equal(t, "-", rows[1][3], "no current mode")
	assert.Equal(t, "-", rows[1][6], "no logical geometry")

	assert.Equal(t, "3840x2160@59.997Hz (current, preferred)", modeLabel(infos[0].Modes[1]))
	assert.Equal(t, "1920x1080@60.000Hz", modeLabel(infos[0].Modes[0]))
}

func TestSeatRow(t *testing.T) {
	assert.Equal(t, []string{"9", "seat0", "yes", "yes", "no"},
		seatRow(9, seat.Info{Name: "seat0", HasKeyboard: true, HasPointer: true}))
	assert.Equal(t, []string{"3", "-", "no", "no", "yes"},
		seatRow(3, seat.Info{HasTouch: true}))
}

func TestConfigRows(t *testing.T) {
	cfg := config.DefaultConfig
	rows := configRows(&cfg)

	values := make(map[string]string)
	for _, r := range rows {
		values[r[0]] = r[1]
	}
	assert.Equal(t, "(LOG_LEVEL)", values["log.level"])
	assert.Equal(t, "24", values["cursor.size"])
	assert.Equal(t, "(WAYLAND_DISPLAY)", values["client.display"])
	assert.Equal(t, "5s", values["client.roundtrip_timeout"])
}

func TestMimeSelection(t *testing.T) {
	t.Run("text offers its aliases", func(t *testing.T) {
		mimes := offeredMimes("text/plain;charset=utf-8")
		assert.Equal(t, "text/plain;charset=utf-8", mimes[0])
		assert.Contains(t, mimes, "UTF8_STRING")
		assert.Contains(t, mimes, "text/plain")
		assert.Len(t, mimes, len(textMimes))
	})

	t.Run("binary offers itself", func(t *testing.T) {
		assert.Equal(t, []string{"image/png"}, offeredMimes("image/png"))
	})

	tests := []struct {
		name    string
		offered []string
		want    string
		got     string
		wantErr bool
	}{
		{"exact", []string{"image/png", "text/plain"}, "image/png", "image/png", false},
		{"text alias", []string{"UTF8_STRING"}, "text/plain;charset=utf-8", "UTF8_STRING", false},
		{"preferred alias first", []string{"TEXT", "text/plain"}, "text/html", "text/plain", false},
		{"missing binary", []string{"text/plain"}, "image/png", "", true},
		{"empty offer", nil, "text/plain", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := pickMime(tt.offered, tt.want)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.got, got)
		})
	}
}

func TestCopyPayload(t *testing.T) {
	data, err := copyPayload(strings.NewReader("ignored"), []string{"hello", "world"})
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))

	data, err = copyPayload(strings.NewReader("from stdin\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, "from stdin\n", string(data))
}

// fakeLoop runs posted callbacks on the goroutine calling RunUntil.
type fakeLoop struct {
	posted chan func() error
}

func newFakeLoop() *fakeLoop {
	return &fakeLoop{posted: make(chan func() error, 8)}
}

func (l *fakeLoop) Post(fn func() error) {
	l.posted <- fn
}

func (l *fakeLoop) RunUntil(ctx context.Context, cond func() bool) error {
	for !cond() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.posted:
			if err := fn(); err != nil {
				return err
			}
		}
	}
	return nil
}

func TestReceive(t *testing.T) {
	t.Run("copies the pipe", func(t *testing.T) {
		var out bytes.Buffer
		pipe := io.NopCloser(strings.NewReader("selection data"))

		err := receive(context.Background(), newFakeLoop(), pipe, &out)
		require.NoError(t, err)
		assert.Equal(t, "selection data", out.String())
	})

	t.Run("reports read errors", func(t *testing.T) {
		boom := errors.New("broken pipe")
		pipe := io.NopCloser(io.MultiReader(strings.NewReader("part"), errReader{boom}))

		err := receive(context.Background(), newFakeLoop(), pipe, io.Discard)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("stops on cancel", func(t *testing.T) {
		r, w := io.Pipe()
		defer w.Close()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := receive(ctx, newFakeLoop(), r, io.Discard)
		assert.NoError(t, err)
	})
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

func TestWatcherEvents(t *testing.T) {
	var msgs []tea.Msg
	w := newWatcher(func(m tea.Msg) { msgs = append(msgs, m) })
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	w.now = func() time.Time { return ts }

	w.NewGlobal(nil, registry.Global{Name: 3, Interface: "wl_shm", Version: 2})
	w.RemoveGlobal(nil, 3)
	w.NewOutput(output.Info{ID: 5, Name: "eDP-1", ScaleFactor: 2})

	require.Len(t, msgs, 3, "snapshots need a client")
	first := msgs[0].(ui.EventMsg)
	assert.Equal(t, ui.KindGlobal, first.Kind)
	assert.Equal(t, ts, first.Time)
	assert.Equal(t, "+ wl_shm v2 (name 3)", first.Text)
	assert.Equal(t, "- name 3", msgs[1].(ui.EventMsg).Text)

	out := msgs[2].(ui.EventMsg)
	assert.Equal(t, ui.KindOutput, out.Kind)
	assert.Equal(t, "new eDP-1 scale 2", out.Text)
}

func TestSnapshotMsg(t *testing.T) {
	msg := snapshotMsg(
		[]output.Info{{
			Name:            "HDMI-A-1",
			ScaleFactor:     1,
			Modes:           []output.Mode{{Width: 1920, Height: 1080, RefreshRate: 60000, Current: true}},
			LogicalPosition: output.Point{X: 0, Y: 0},
			LogicalSize:     output.Size{Width: 1920, Height: 1080},
		}},
		[]seat.Info{{Name: "seat0", HasKeyboard: true}},
	)

	assert.Equal(t, []string{"HDMI-A-1 1920x1080@60.000Hz 1920x1080+0+0"}, msg.Outputs)
	require.Len(t, msg.Seats, 1)
	assert.Contains(t, msg.Seats[0], "seat0")
	assert.Contains(t, msg.Seats[0], "keyboard")
}

func TestKeyboardSeat(t *testing.T) {
	_, err := keyboardSeat(nil)
	assert.ErrorIs(t, err, errNoKeyboard)
}
