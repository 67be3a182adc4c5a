package protocols

import (
	"github.com/bnema/wlturbo/wl"
)

// Protocol interface names
const (
	WmBaseInterface        = "xdg_wm_base"
	XdgSurfaceInterface    = "xdg_surface"
	XdgToplevelInterface   = "xdg_toplevel"
	XdgPopupInterface      = "xdg_popup"
	XdgPositionerInterface = "xdg_positioner"
)

// xdg_toplevel states
const (
	ToplevelStateMaximized   = 1
	ToplevelStateFullscreen  = 2
	ToplevelStateResizing    = 3
	ToplevelStateActivated   = 4
	ToplevelStateTiledLeft   = 5
	ToplevelStateTiledRight  = 6
	ToplevelStateTiledTop    = 7
	ToplevelStateTiledBottom = 8
	ToplevelStateSuspended   = 9
)

// xdg_toplevel wm_capabilities
const (
	WmCapabilityWindowMenu = 1
	WmCapabilityMaximize   = 2
	WmCapabilityFullscreen = 3
	WmCapabilityMinimize   = 4
)

// WmBase is an xdg_wm_base. Pings are answered as soon as they are read.
type WmBase struct {
	Proxy
	pingHandler func(uint32)
}

// NewWmBase creates an unbound xdg_wm_base proxy
func NewWmBase(ctx *wl.Context, q Queue) *WmBase {
	w := &WmBase{}
	w.setup(ctx, q, 1)
	return w
}

// SetPingHandler sets a handler notified after each ping was answered
func (w *WmBase) SetPingHandler(handler func(uint32)) {
	w.pingHandler = handler
}

// CreatePositioner creates an xdg_positioner for popup placement
func (w *WmBase) CreatePositioner() (*XdgPositioner, error) {
	p := &XdgPositioner{}
	id := w.create(p)

	// Opcode 1: create_positioner
	const opcode = 1
	if err := w.send(opcode, id); err != nil {
		w.forget(p)
		return nil, err
	}
	return p, nil
}

// GetXdgSurface assigns the xdg_surface role to surface
func (w *WmBase) GetXdgSurface(surface *wl.Surface) (*XdgSurface, error) {
	xs := &XdgSurface{}
	id := w.create(xs)

	// Opcode 2: get_xdg_surface
	const opcode = 2
	if err := w.send(opcode, id, surface.ID()); err != nil {
		w.forget(xs)
		return nil, err
	}
	return xs, nil
}

// Pong answers a ping
func (w *WmBase) Pong(serial uint32) error {
	return w.send(3, serial)
}

// Destroy destroys the wm_base
func (w *WmBase) Destroy() error {
	return w.destroy(w, 0)
}

// Dispatch handles incoming events
func (w *WmBase) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0: // ping
		serial := event.Uint32()
		_ = w.Pong(serial)
		w.emit(func() {
			if w.pingHandler != nil {
				w.pingHandler(serial)
			}
		})
	}
}

// XdgSurface is an xdg_surface.
type XdgSurface struct {
	Proxy
	configureHandler func(uint32)
}

// SetConfigureHandler sets the handler for configure events
func (s *XdgSurface) SetConfigureHandler(handler func(serial uint32)) {
	s.configureHandler = handler
}

// GetToplevel assigns the toplevel role
func (s *XdgSurface) GetToplevel() (*XdgToplevel, error) {
	t := &XdgToplevel{}
	id := s.create(t)
	if err := s.send(1, id); err != nil {
		s.forget(t)
		return nil, err
	}
	return t, nil
}

// GetPopup assigns the popup role. parent may be nil when another role
// object, such as a layer surface, parents the popup.
func (s *XdgSurface) GetPopup(parent *XdgSurface, positioner *XdgPositioner) (*XdgPopup, error) {
	p := &XdgPopup{}
	id := s.create(p)
	var parentID uint32
	if parent != nil {
		parentID = parent.ID()
	}

	// Opcode 2: get_popup
	const opcode = 2
	if err := s.send(opcode, id, parentID, positioner.ID()); err != nil {
		s.forget(p)
		return nil, err
	}
	return p, nil
}

// SetWindowGeometry sets the visible bounds of the window
func (s *XdgSurface) SetWindowGeometry(x, y, width, height int32) error {
	return s.send(3, x, y, width, height)
}

// AckConfigure acknowledges a configure event
func (s *XdgSurface) AckConfigure(serial uint32) error {
	return s.send(4, serial)
}

// Destroy destroys the xdg_surface
func (s *XdgSurface) Destroy() error {
	return s.destroy(s, 0)
}

// Dispatch handles incoming events
func (s *XdgSurface) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0: // configure
		serial := event.Uint32()
		s.emit(func() {
			if s.configureHandler != nil {
				s.configureHandler(serial)
			}
		})
	}
}

// ToplevelHandlers receives xdg_toplevel events. Nil members are skipped.
type ToplevelHandlers struct {
	Configure       func(width, height int32, states []uint32)
	Close           func()
	ConfigureBounds func(width, height int32)
	WmCapabilities  func(caps []uint32)
}

// XdgToplevel is an xdg_toplevel.
type XdgToplevel struct {
	Proxy
	handlers ToplevelHandlers
}

// SetHandlers replaces the event handlers
func (t *XdgToplevel) SetHandlers(h ToplevelHandlers) {
	t.handlers = h
}

// SetTitle sets the window title
func (t *XdgToplevel) SetTitle(title string) error {
	return t.send(2, title)
}

// SetAppID sets the application id
func (t *XdgToplevel) SetAppID(appID string) error {
	return t.send(3, appID)
}

// ShowWindowMenu asks the compositor to show the window menu at x, y
func (t *XdgToplevel) ShowWindowMenu(seat *Seat, serial uint32, x, y int32) error {
	return t.send(4, seat.ID(), serial, x, y)
}

// Move starts an interactive move
func (t *XdgToplevel) Move(seat *Seat, serial uint32) error {
	return t.send(5, seat.ID(), serial)
}

// Resize starts an interactive resize from edges
func (t *XdgToplevel) Resize(seat *Seat, serial, edges uint32) error {
	return t.send(6, seat.ID(), serial, edges)
}

// SetMaxSize sets the maximum window size; zero means unlimited
func (t *XdgToplevel) SetMaxSize(width, height int32) error {
	return t.send(7, width, height)
}

// SetMinSize sets the minimum window size
func (t *XdgToplevel) SetMinSize(width, height int32) error {
	return t.send(8, width, height)
}

// SetMaximized requests the maximized state
func (t *XdgToplevel) SetMaximized() error {
	return t.send(9)
}

// UnsetMaximized leaves the maximized state
func (t *XdgToplevel) UnsetMaximized() error {
	return t.send(10)
}

// SetFullscreen requests fullscreen on any output
func (t *XdgToplevel) SetFullscreen() error {
	return t.send(11, uint32(0))
}

// UnsetFullscreen leaves fullscreen
func (t *XdgToplevel) UnsetFullscreen() error {
	return t.send(12)
}

// SetMinimized requests minimization
func (t *XdgToplevel) SetMinimized() error {
	return t.send(13)
}

// Destroy destroys the toplevel role
func (t *XdgToplevel) Destroy() error {
	return t.destroy(t, 0)
}

// Dispatch handles incoming events
func (t *XdgToplevel) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0: // configure
		w, h := event.Int32(), event.Int32()
		states := uint32Array(event.Array())
		t.emit(func() {
			if t.handlers.Configure != nil {
				t.handlers.Configure(w, h, states)
			}
		})
	case 1: // close
		t.emit(func() {
			if t.handlers.Close != nil {
				t.handlers.Close()
			}
		})
	case 2: // configure_bounds
		w, h := event.Int32(), event.Int32()
		t.emit(func() {
			if t.handlers.ConfigureBounds != nil {
				t.handlers.ConfigureBounds(w, h)
			}
		})
	case 3: // wm_capabilities
		caps := uint32Array(event.Array())
		t.emit(func() {
			if t.handlers.WmCapabilities != nil {
				t.handlers.WmCapabilities(caps)
			}
		})
	}
}

// XdgPositioner is an xdg_positioner. It has no events.
type XdgPositioner struct {
	Proxy
}

// Destroy destroys the positioner
func (p *XdgPositioner) Destroy() error {
	return p.destroy(p, 0)
}

// SetSize sets the size of the surface to be positioned
func (p *XdgPositioner) SetSize(width, height int32) error {
	return p.send(1, width, height)
}

// SetAnchorRect sets the rectangle of the parent the popup is anchored to
func (p *XdgPositioner) SetAnchorRect(x, y, width, height int32) error {
	return p.send(2, x, y, width, height)
}

// SetAnchor sets the edge or corner of the anchor rectangle
func (p *XdgPositioner) SetAnchor(anchor uint32) error {
	return p.send(3, anchor)
}

// SetGravity sets the direction the popup extends from the anchor
func (p *XdgPositioner) SetGravity(gravity uint32) error {
	return p.send(4, gravity)
}

// SetConstraintAdjustment sets how the compositor may move a constrained popup
func (p *XdgPositioner) SetConstraintAdjustment(adjustment uint32) error {
	return p.send(5, adjustment)
}

// SetOffset sets the offset from the anchor point
func (p *XdgPositioner) SetOffset(x, y int32) error {
	return p.send(6, x, y)
}

// SetReactive asks for new configures when the parent moves (version 3)
func (p *XdgPositioner) SetReactive() error {
	return p.send(7)
}

// SetParentSize sets the parent size the positioner was computed for (version 3)
func (p *XdgPositioner) SetParentSize(width, height int32) error {
	return p.send(8, width, height)
}

// SetParentConfigure sets the parent configure serial (version 3)
func (p *XdgPositioner) SetParentConfigure(serial uint32) error {
	return p.send(9, serial)
}

// PopupHandlers receives xdg_popup events. Nil members are skipped.
type PopupHandlers struct {
	Configure    func(x, y, width, height int32)
	Done         func()
	Repositioned func(token uint32)
}

// XdgPopup is an xdg_popup.
type XdgPopup struct {
	Proxy
	handlers PopupHandlers
}

// SetHandlers replaces the event handlers
func (p *XdgPopup) SetHandlers(h PopupHandlers) {
	p.handlers = h
}

// Destroy destroys the popup role
func (p *XdgPopup) Destroy() error {
	return p.destroy(p, 0)
}

// Grab makes the popup take an explicit grab of seat
func (p *XdgPopup) Grab(seat *Seat, serial uint32) error {
	return p.send(1, seat.ID(), serial)
}

// Reposition moves the popup with a new positioner (version 3)
func (p *XdgPopup) Reposition(positioner *XdgPositioner, token uint32) error {
	return p.send(2, positioner.ID(), token)
}

// Dispatch handles incoming events
func (p *XdgPopup) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0: // configure
		x, y := event.Int32(), event.Int32()
		w, h := event.Int32(), event.Int32()
		p.emit(func() {
			if p.handlers.Configure != nil {
				p.handlers.Configure(x, y, w, h)
			}
		})
	case 1: // popup_done
		p.emit(func() {
			if p.handlers.Done != nil {
				p.handlers.Done()
			}
		})
	case 2: // repositioned
		token := event.Uint32()
		p.emit(func() {
			if p.handlers.Repositioned != nil {
				p.handlers.Repositioned(token)
			}
		})
	}
}
