package cmd

import (
	"context"
	"errors"
	"fmt"
	"image/color"

	"github.com/bnema/waykit/client"
	"github.com/bnema/waykit/internal/config"
	"github.com/bnema/waykit/internal/logger"
	"github.com/bnema/waykit/internal/raster"
	"github.com/bnema/waykit/seat"
	"github.com/bnema/waykit/seat/keyboard"
	"github.com/bnema/waykit/seat/pointer"
	"github.com/bnema/waykit/shm"
	"github.com/bnema/waykit/window"
	"github.com/bnema/wlturbo/wl"
)

const (
	focusWidth  = 240
	focusHeight = 80
)

var (
	errNoKeyboard   = errors.New("no seat with a keyboard")
	errWindowClosed = errors.New("window closed")
)

var (
	focusBackground = color.NRGBA{R: 0x1e, G: 0x1e, B: 0x2e, A: 0xff}
	focusAccent     = color.NRGBA{R: 0x89, G: 0xb4, B: 0xfa, A: 0xff}
)

// focusWindow is a small toplevel that takes keyboard focus. Compositors
// only send the selection to, and accept it from, the focused client.
type focusWindow struct {
	c       *client.Client
	seat    *seat.Seat
	win     *window.Window
	surface *wl.Surface
	pool    *shm.SimplePool
	kbd     *keyboard.Keyboard
	ptr     *pointer.ThemedPointer
	icon    pointer.CursorIcon

	serial  uint32
	focused bool
	closed  bool
}

// keyboardSeat returns the first seat with a keyboard.
func keyboardSeat(seats []*seat.Seat) (*seat.Seat, error) {
	for _, s := range seats {
		if s.Info().HasKeyboard {
			return s, nil
		}
	}
	return nil, errNoKeyboard
}

func openFocusWindow(c *client.Client, title string) (*focusWindow, error) {
	s, err := keyboardSeat(c.Seats().Seats())
	if err != nil {
		return nil, err
	}
	pool, err := shm.NewSimplePool(c.Shm(), focusWidth*focusHeight*4)
	if err != nil {
		return nil, fmt.Errorf("window pool: %w", err)
	}

	f := &focusWindow{c: c, seat: s, pool: pool, icon: -1}
	f.win, f.surface, err = c.CreateWindow(window.Config{
		Title:     title,
		AppID:     "waykit",
		Width:     focusWidth,
		Height:    focusHeight,
		MinWidth:  focusWidth / 2,
		MinHeight: focusHeight / 2,
	}, f)
	if err != nil {
		_ = pool.Close()
		return nil, err
	}

	cfg := config.Get()
	kcfg := keyboard.Config{
		Locale:         cfg.Keyboard.Locale,
		DisableCompose: !cfg.Keyboard.Compose,
		Timers:         keyboard.LoopTimers(c.Loop()),
	}
	if cfg.Keyboard.RepeatRate > 0 {
		kcfg.Repeat = &keyboard.RepeatInfo{Rate: int32(cfg.Keyboard.RepeatRate), Delay: int32(cfg.Keyboard.RepeatDelay)}
	}
	f.kbd, err = s.GetKeyboard(f, kcfg)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	if s.Info().HasPointer {
		f.ptr = f.themedPointer(cfg)
	}

	if err := f.win.Commit(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

func (f *focusWindow) themedPointer(cfg *config.Config) *pointer.ThemedPointer {
	comp, err := f.c.Compositor()
	if err != nil {
		return nil
	}
	p, err := f.seat.GetPointerWithTheme(f, seat.ThemeSpec{
		Surfaces: seat.CompositorSurfaces(comp),
		Shm:      f.c.Shm(),
		Size:     cfg.Cursor.Size,
	})
	if err != nil {
		logger.Warn("pointer unavailable", "error", err)
		return nil
	}
	return p
}

// waitFocus dispatches until the window has keyboard focus and returns the
// enter serial.
func (f *focusWindow) waitFocus(ctx context.Context) (uint32, error) {
	err := f.c.Loop().RunUntil(ctx, func() bool { return f.focused || f.closed })
	if err != nil {
		return 0, err
	}
	if f.closed {
		return 0, errWindowClosed
	}
	return f.serial, nil
}

// Serial is the latest input serial delivered to the window.
func (f *focusWindow) Serial() uint32 {
	return f.serial
}

func (f *focusWindow) Closed() bool {
	return f.closed
}

func (f *focusWindow) draw(width, height uint32) error {
	w, h := int(width), int(height)
	buf, pix, err := f.pool.Buffer(w, h, w*4, shm.FormatARGB8888)
	if errors.Is(err, shm.ErrInUse) {
		return f.win.Commit()
	}
	if err != nil {
		return err
	}

	canvas := raster.NewCanvas(pix, w, h, w*4)
	canvas.Fill(canvas.Bounds(), focusBackground)
	cx, cy := float32(w)/2, float32(h)/2
	canvas.FillPolygons(focusAccent,
		raster.Line(cx-14, cy-18, cx+14, cy-18, 3),
		raster.Line(cx+14, cy-18, cx+14, cy+18, 3),
		raster.Line(cx+14, cy+18, cx-14, cy+18, 3),
		raster.Line(cx-14, cy+18, cx-14, cy-18, 3),
		raster.Rect(cx-6, cy-22, cx+6, cy-14),
	)

	if err := buf.AttachTo(f.surface, 0, 0); err != nil {
		return err
	}
	if err := f.surface.DamageBuffer(0, 0, int32(w), int32(h)); err != nil {
		return err
	}
	return f.win.Commit()
}

// Configure implements window.Handler
func (f *focusWindow) Configure(w *window.Window, c window.Configure) {
	if err := f.draw(c.Width, c.Height); err != nil {
		logger.Error("failed to draw window", "error", err)
	}
}

// RequestClose implements window.Handler
func (f *focusWindow) RequestClose(w *window.Window) {
	f.closed = true
}

// Enter implements keyboard.Handler
func (f *focusWindow) Enter(k *keyboard.Keyboard, surface, serial uint32, raw []uint32, keysyms []keyboard.Keysym) {
	if surface != f.surface.ID() {
		return
	}
	f.serial = serial
	f.focused = true
}

// Leave implements keyboard.Handler
func (f *focusWindow) Leave(k *keyboard.Keyboard, surface, serial uint32) {
	f.focused = false
}

// PressKey implements keyboard.Handler
func (f *focusWindow) PressKey(k *keyboard.Keyboard, serial uint32, ev keyboard.KeyEvent) {
	f.serial = serial
	if ev.Keysym == keyboard.KeyEscape {
		f.closed = true
	}
}

func (f *focusWindow) ReleaseKey(*keyboard.Keyboard, uint32, keyboard.KeyEvent)       {}
func (f *focusWindow) RepeatKey(*keyboard.Keyboard, keyboard.KeyEvent)                {}
func (f *focusWindow) UpdateModifiers(*keyboard.Keyboard, uint32, keyboard.Modifiers) {}
func (f *focusWindow) UpdateRepeatInfo(*keyboard.Keyboard, keyboard.RepeatInfo)       {}

// PointerFrame implements pointer.Handler
func (f *focusWindow) PointerFrame(p *pointer.Pointer, events []pointer.Event) {
	icon, _, err := f.win.HandlePointer(f.seat.Wire(), events)
	if err != nil {
		logger.Warn("frame action failed", "error", err)
	}
	for _, ev := range events {
		if ev.Kind == pointer.EventPress && ev.Surface == f.surface.ID() {
			f.serial = ev.Serial
		}
	}
	if f.ptr == nil || p.Focus() == 0 || icon == f.icon {
		return
	}
	serial, ok := p.LatestEnterSerial()
	if !ok {
		return
	}
	if err := f.ptr.SetCursor(serial, icon); err != nil {
		logger.Debug("failed to set cursor", "icon", icon, "error", err)
		return
	}
	f.icon = icon
}

// Close releases the devices and destroys the window.
func (f *focusWindow) Close() error {
	var errs []error
	if f.kbd != nil {
		errs = append(errs, f.kbd.Release())
	}
	if f.ptr != nil {
		errs = append(errs, f.ptr.Release())
	}
	if f.win != nil {
		errs = append(errs, f.win.Destroy())
	}
	if f.surface != nil {
		errs = append(errs, f.surface.Destroy())
	}
	errs = append(errs, f.pool.Close())
	return errors.Join(errs...)
}
