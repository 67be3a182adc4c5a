package window

import (
	"errors"
	"fmt"

	"github.com/bnema/waykit/decoration"
	"github.com/bnema/waykit/internal/logger"
	"github.com/bnema/waykit/internal/protocols"
	"github.com/bnema/waykit/seat/pointer"
)

// DecorationMode is who draws the window decorations.
type DecorationMode int

const (
	// DecorationNone means no mode was negotiated yet.
	DecorationNone DecorationMode = iota
	DecorationClientSide
	DecorationServerSide
)

func (m DecorationMode) String() string {
	switch m {
	case DecorationNone:
		return "none"
	case DecorationClientSide:
		return "client-side"
	case DecorationServerSide:
		return "server-side"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Configure is an applied configure sequence.
type Configure struct {
	// Width and Height are the content size, borders excluded. The
	// compositor's suggestion is used when it made one, otherwise the
	// current size.
	Width, Height uint32
	// Suggested is false when the compositor left the size to the client.
	Suggested bool
	State     decoration.WindowState
	// Bounds is the size the window should fit in, zero when unknown.
	BoundsWidth, BoundsHeight int32
	Capabilities              decoration.WMCapabilities
	Decoration                DecorationMode
	Serial                    uint32
}

// Handler receives window events on the loop goroutine.
type Handler interface {
	// Configure asks the client to draw at the given size. The configure
	// is acknowledged by the next Commit.
	Configure(w *Window, c Configure)
	// RequestClose reports the compositor or the frame's close button
	// asking the window to close.
	RequestClose(w *Window)
}

// Surface is the content wl_surface.
type Surface interface {
	Commit() error
}

// XdgSurfaceWire is the xdg_surface of a window.
type XdgSurfaceWire interface {
	SetWindowGeometry(x, y, width, height int32) error
	AckConfigure(serial uint32) error
	Destroy() error
}

// ToplevelWire is the xdg_toplevel of a window.
type ToplevelWire interface {
	Version() uint32
	SetTitle(title string) error
	SetAppID(appID string) error
	ShowWindowMenu(seat *protocols.Seat, serial uint32, x, y int32) error
	Move(seat *protocols.Seat, serial uint32) error
	Resize(seat *protocols.Seat, serial, edges uint32) error
	SetMaxSize(width, height int32) error
	SetMinSize(width, height int32) error
	SetMaximized() error
	UnsetMaximized() error
	SetFullscreen() error
	UnsetFullscreen() error
	SetMinimized() error
	Destroy() error
}

// DecorationWire is the zxdg_toplevel_decoration_v1 of a window.
type DecorationWire interface {
	SetMode(mode uint32) error
	UnsetMode() error
	Destroy() error
}

type pendingConfigure struct {
	width, height int32
	states        []uint32
	received      bool
}

type geometry struct {
	x, y, w, h int32
}

// Window is an xdg_toplevel window. Methods run on the loop goroutine.
type Window struct {
	surface    Surface
	xdg        XdgSurfaceWire
	toplevel   ToplevelWire
	deco       DecorationWire
	newFrame   func() (*decoration.Frame, error)
	handler    Handler
	preferSSD  bool
	minW, minH uint32

	frame *decoration.Frame

	pending        pendingConfigure
	pendingMode    DecorationMode
	mode           DecorationMode
	caps           decoration.WMCapabilities
	boundsW        int32
	boundsH        int32
	current        Configure
	width, height  uint32
	configured     bool
	serial         uint32
	acked          bool
	lastGeometry   geometry
	closeRequested bool
	destroyed      bool
}

func newWindow(surface Surface, xdg XdgSurfaceWire, tl ToplevelWire, deco DecorationWire,
	newFrame func() (*decoration.Frame, error), cfg Config, h Handler) (*Window, error) {
	w := &Window{
		surface:   surface,
		xdg:       xdg,
		toplevel:  tl,
		deco:      deco,
		newFrame:  newFrame,
		handler:   h,
		preferSSD: cfg.PreferServerSide,
		minW:      cfg.MinWidth,
		minH:      cfg.MinHeight,
		caps:      decoration.CapAll,
		width:     cfg.Width,
		height:    cfg.Height,
		acked:     true,
	}
	if w.width == 0 || w.height == 0 {
		w.width, w.height = 640, 480
	}

	if cfg.Title != "" {
		if err := tl.SetTitle(cfg.Title); err != nil {
			return nil, err
		}
	}
	if cfg.AppID != "" {
		if err := tl.SetAppID(cfg.AppID); err != nil {
			return nil, err
		}
	}

	if deco == nil {
		// no manager: decorating is up to us
		w.pendingMode = DecorationClientSide
	} else {
		mode := uint32(protocols.DecorationModeClientSide)
		if w.preferSSD {
			mode = protocols.DecorationModeServerSide
		}
		if err := deco.SetMode(mode); err != nil {
			return nil, fmt.Errorf("set decoration mode: %w", err)
		}
	}
	return w, nil
}

func (w *Window) toplevelConfigure(width, height int32, states []uint32) {
	w.pending = pendingConfigure{width: width, height: height, states: states, received: true}
}

func (w *Window) boundsEvent(width, height int32) {
	w.boundsW, w.boundsH = width, height
}

func (w *Window) capabilitiesEvent(caps []uint32) {
	w.caps = capabilitiesFromWire(caps)
	if w.frame != nil {
		w.frame.UpdateWMCapabilities(w.caps)
	}
}

func (w *Window) decorationConfigure(mode uint32) {
	switch mode {
	case protocols.DecorationModeServerSide:
		w.pendingMode = DecorationServerSide
	case protocols.DecorationModeClientSide:
		w.pendingMode = DecorationClientSide
	default:
		logger.Debug("unknown decoration mode", "mode", mode)
		w.pendingMode = DecorationClientSide
	}
}

func (w *Window) closeEvent() {
	w.requestClose()
}

func (w *Window) requestClose() {
	w.closeRequested = true
	if w.handler != nil {
		w.handler.RequestClose(w)
	}
}

// surfaceConfigure applies the configure sequence ended by serial.
func (w *Window) surfaceConfigure(serial uint32) {
	if !w.acked {
		logger.Debug("configure superseded before ack", "serial", w.serial)
	}
	w.serial = serial
	w.acked = false
	w.configured = true

	if w.pendingMode != DecorationNone && w.pendingMode != w.mode {
		w.applyMode(w.pendingMode)
	}

	state := statesFromWire(w.pending.states)
	if w.frame != nil {
		w.frame.UpdateState(state)
		w.frame.UpdateWMCapabilities(w.caps)
	}

	suggested := w.pending.received && w.pending.width > 0 && w.pending.height > 0
	if suggested {
		cw, ch := uint32(w.pending.width), uint32(w.pending.height)
		if w.frame != nil {
			cw, ch = w.frame.SubtractBorders(cw, ch)
		}
		if cw > 0 && ch > 0 {
			w.width, w.height = max(cw, w.minW), max(ch, w.minH)
		}
	}
	if w.frame != nil && !w.frame.IsHidden() {
		if err := w.frame.Resize(w.width, w.height); err != nil {
			logger.Warn("failed to resize frame", "error", err)
		}
	}

	w.current = Configure{
		Width:        w.width,
		Height:       w.height,
		Suggested:    suggested,
		State:        state,
		BoundsWidth:  w.boundsW,
		BoundsHeight: w.boundsH,
		Capabilities: w.caps,
		Decoration:   w.mode,
		Serial:       serial,
	}
	w.pending = pendingConfigure{}
	if w.handler != nil {
		w.handler.Configure(w, w.current)
	}
}

func (w *Window) applyMode(mode DecorationMode) {
	logger.Debug("decoration mode", "mode", mode)
	w.mode = mode
	switch mode {
	case DecorationServerSide:
		if w.frame != nil {
			if err := w.frame.Destroy(); err != nil {
				logger.Warn("failed to destroy frame", "error", err)
			}
			w.frame = nil
		}
	case DecorationClientSide:
		if w.frame != nil || w.newFrame == nil {
			return
		}
		f, err := w.newFrame()
		if err != nil {
			logger.Error("failed to create window frame", "error", err)
			return
		}
		f.UpdateWMCapabilities(w.caps)
		w.frame = f
	}
}

// Configured reports whether the first configure arrived. Buffers may only
// be attached afterwards.
func (w *Window) Configured() bool {
	return w.configured
}

// Current returns the last applied configure.
func (w *Window) Current() Configure {
	return w.current
}

// Size returns the content size.
func (w *Window) Size() (uint32, uint32) {
	return w.width, w.height
}

// DecorationMode returns the negotiated decoration mode.
func (w *Window) DecorationMode() DecorationMode {
	return w.mode
}

// Frame returns the client-side frame, nil when there is none.
func (w *Window) Frame() *decoration.Frame {
	return w.frame
}

// CloseRequested reports whether a close was requested.
func (w *Window) CloseRequested() bool {
	return w.closeRequested
}

// AckConfigure acknowledges the latest configure. It does nothing when
// there is none to acknowledge.
func (w *Window) AckConfigure() error {
	if w.acked || !w.configured {
		return nil
	}
	w.acked = true
	return w.xdg.AckConfigure(w.serial)
}

// Commit acknowledges a pending configure, updates the window geometry,
// draws the frame and commits the content surface.
func (w *Window) Commit() error {
	if w.destroyed {
		return errors.New("window destroyed")
	}
	if err := w.AckConfigure(); err != nil {
		return fmt.Errorf("ack configure: %w", err)
	}
	if w.configured {
		if err := w.updateGeometry(); err != nil {
			return err
		}
	}
	if w.frame != nil && w.frame.IsDirty() {
		if _, err := w.frame.Draw(); err != nil {
			logger.Warn("failed to draw frame", "error", err)
		}
	}
	return w.surface.Commit()
}

func (w *Window) updateGeometry() error {
	g := geometry{w: int32(w.width), h: int32(w.height)}
	if w.frame != nil {
		g.x, g.y = w.frame.Location()
		ww, wh := w.frame.AddBorders(w.width, w.height)
		g.w, g.h = int32(ww), int32(wh)
	}
	if g == w.lastGeometry {
		return nil
	}
	w.lastGeometry = g
	return w.xdg.SetWindowGeometry(g.x, g.y, g.w, g.h)
}

// SetTitle sets the window title.
func (w *Window) SetTitle(title string) error {
	return w.toplevel.SetTitle(title)
}

// SetAppID sets the application id.
func (w *Window) SetAppID(id string) error {
	return w.toplevel.SetAppID(id)
}

// SetMinSize sets the minimum content size.
func (w *Window) SetMinSize(width, height uint32) error {
	w.minW, w.minH = width, height
	if w.frame != nil && width > 0 && height > 0 {
		width, height = w.frame.AddBorders(width, height)
	}
	return w.toplevel.SetMinSize(int32(width), int32(height))
}

// SetMaxSize sets the maximum content size, zero for unlimited.
func (w *Window) SetMaxSize(width, height uint32) error {
	if w.frame != nil && width > 0 && height > 0 {
		width, height = w.frame.AddBorders(width, height)
	}
	return w.toplevel.SetMaxSize(int32(width), int32(height))
}

// SetMaximized requests the maximized state.
func (w *Window) SetMaximized() error {
	return w.toplevel.SetMaximized()
}

// UnsetMaximized leaves the maximized state.
func (w *Window) UnsetMaximized() error {
	return w.toplevel.UnsetMaximized()
}

// SetFullscreen requests fullscreen.
func (w *Window) SetFullscreen() error {
	return w.toplevel.SetFullscreen()
}

// UnsetFullscreen leaves fullscreen.
func (w *Window) UnsetFullscreen() error {
	return w.toplevel.UnsetFullscreen()
}

// SetMinimized asks the compositor to minimize the window.
func (w *Window) SetMinimized() error {
	return w.toplevel.SetMinimized()
}

// SetScale sets the scale of the output the window is on.
func (w *Window) SetScale(scale float64) {
	if w.frame != nil {
		w.frame.SetScalingFactor(scale)
	}
}

// RequestDecorationMode asks the compositor for another mode. It fails when
// the compositor has no decoration manager.
func (w *Window) RequestDecorationMode(mode DecorationMode) error {
	if w.deco == nil {
		return errors.New("decoration manager not available")
	}
	switch mode {
	case DecorationServerSide:
		return w.deco.SetMode(protocols.DecorationModeServerSide)
	case DecorationClientSide:
		return w.deco.SetMode(protocols.DecorationModeClientSide)
	}
	return w.deco.UnsetMode()
}

// HandlePointer feeds the frame with a pointer frame of seat s. It returns
// the cursor to show and true when the pointer is over the frame.
func (w *Window) HandlePointer(s *protocols.Seat, events []pointer.Event) (pointer.CursorIcon, bool, error) {
	if w.frame == nil {
		return pointer.CursorDefault, false, nil
	}
	var (
		icon pointer.CursorIcon
		over bool
		errs []error
	)
	for _, ev := range events {
		switch ev.Kind {
		case pointer.EventEnter, pointer.EventMotion:
			icon, over = w.frame.ClickPointMoved(ev.Surface, ev.X, ev.Y)
			if !over && w.frame.Hovered() != decoration.LocationNone {
				w.frame.ClickPointLeft()
			}
		case pointer.EventLeave:
			if w.frame.Hovered() != decoration.LocationNone {
				w.frame.ClickPointLeft()
			}
			icon, over = pointer.CursorDefault, false
		case pointer.EventPress, pointer.EventRelease:
			click := decoration.ClickNormal
			switch ev.Button {
			case pointer.ButtonLeft:
			case pointer.ButtonRight:
				click = decoration.ClickAlternate
			default:
				continue
			}
			action, ok := w.frame.OnClick(click, ev.Kind == pointer.EventPress)
			if ok {
				errs = append(errs, w.Perform(action, s, ev.Serial))
			}
		}
	}
	return icon, over, errors.Join(errs...)
}

// Perform carries out a frame action with the serial of the triggering
// input event.
func (w *Window) Perform(a decoration.FrameAction, s *protocols.Seat, serial uint32) error {
	logger.Debug("frame action", "action", a.Kind, "serial", serial)
	switch a.Kind {
	case decoration.ActionClose:
		w.requestClose()
		return nil
	case decoration.ActionMinimize:
		return w.toplevel.SetMinimized()
	case decoration.ActionMaximize:
		return w.toplevel.SetMaximized()
	case decoration.ActionUnmaximize:
		return w.toplevel.UnsetMaximized()
	case decoration.ActionMove:
		return w.toplevel.Move(s, serial)
	case decoration.ActionResize:
		return w.toplevel.Resize(s, serial, uint32(a.Edge))
	case decoration.ActionShowMenu:
		return w.toplevel.ShowWindowMenu(s, serial, a.X, a.Y)
	}
	return fmt.Errorf("unknown frame action %v", a.Kind)
}

// Destroy destroys the frame and the protocol objects of the window.
func (w *Window) Destroy() error {
	if w.destroyed {
		return nil
	}
	w.destroyed = true
	var errs []error
	if w.frame != nil {
		errs = append(errs, w.frame.Destroy())
		w.frame = nil
	}
	if w.deco != nil {
		errs = append(errs, w.deco.Destroy())
	}
	errs = append(errs, w.toplevel.Destroy(), w.xdg.Destroy())
	return errors.Join(errs...)
}

func (w *Window) xdgSurface() *protocols.XdgSurface {
	xs, _ := w.xdg.(*protocols.XdgSurface)
	return xs
}
