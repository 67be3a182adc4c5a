package protocols

import (
	"github.com/bnema/wlturbo/wl"
)

// Protocol interface names
const (
	LayerShellInterface   = "zwlr_layer_shell_v1"
	LayerSurfaceInterface = "zwlr_layer_surface_v1"
)

// zwlr_layer_shell_v1 layers
const (
	LayerBackground = 0
	LayerBottom     = 1
	LayerTop        = 2
	LayerOverlay    = 3
)

// zwlr_layer_surface_v1 anchors
const (
	LayerAnchorTop    = 1
	LayerAnchorBottom = 2
	LayerAnchorLeft   = 4
	LayerAnchorRight  = 8
)

// zwlr_layer_surface_v1 keyboard_interactivity
const (
	LayerKeyboardNone      = 0
	LayerKeyboardExclusive = 1
	LayerKeyboardOnDemand  = 2
)

// LayerShell is a zwlr_layer_shell_v1.
type LayerShell struct {
	Proxy
}

// NewLayerShell creates an unbound layer shell proxy
func NewLayerShell(ctx *wl.Context, q Queue) *LayerShell {
	l := &LayerShell{}
	l.setup(ctx, q, 1)
	return l
}

// GetLayerSurface assigns the layer surface role to surface. A nil output
// lets the compositor pick one.
func (l *LayerShell) GetLayerSurface(surface *wl.Surface, output wl.Object, layer uint32, namespace string) (*LayerSurface, error) {
	ls := &LayerSurface{}
	id := l.create(ls)

	// Opcode 0: get_layer_surface
	const opcode = 0
	if err := l.send(opcode, id, surface.ID(), objectID(output), layer, namespace); err != nil {
		l.forget(ls)
		return nil, err
	}
	return ls, nil
}

// Destroy destroys the layer shell. Before version 3 the object is only
// forgotten.
func (l *LayerShell) Destroy() error {
	if l.version < 3 {
		l.destroyed = true
		l.forget(l)
		return nil
	}
	return l.destroy(l, 1)
}

// LayerSurfaceHandlers receives zwlr_layer_surface_v1 events. Nil members
// are skipped.
type LayerSurfaceHandlers struct {
	Configure func(serial, width, height uint32)
	Closed    func()
}

// LayerSurface is a zwlr_layer_surface_v1.
type LayerSurface struct {
	Proxy
	handlers LayerSurfaceHandlers
}

// SetHandlers replaces the event handlers
func (s *LayerSurface) SetHandlers(h LayerSurfaceHandlers) {
	s.handlers = h
}

// SetSize sets the surface size; zero stretches along anchored edges
func (s *LayerSurface) SetSize(width, height uint32) error {
	return s.send(0, width, height)
}

// SetAnchor sets the anchored edges
func (s *LayerSurface) SetAnchor(anchor uint32) error {
	return s.send(1, anchor)
}

// SetExclusiveZone reserves space along the anchored edge
func (s *LayerSurface) SetExclusiveZone(zone int32) error {
	return s.send(2, zone)
}

// SetMargin sets the distance from the anchored edges
func (s *LayerSurface) SetMargin(top, right, bottom, left int32) error {
	return s.send(3, top, right, bottom, left)
}

// SetKeyboardInteractivity sets how the surface receives keyboard focus
func (s *LayerSurface) SetKeyboardInteractivity(mode uint32) error {
	return s.send(4, mode)
}

// GetPopup makes popup a child of the layer surface
func (s *LayerSurface) GetPopup(popup *XdgPopup) error {
	return s.send(5, popup.ID())
}

// AckConfigure acknowledges a configure event
func (s *LayerSurface) AckConfigure(serial uint32) error {
	return s.send(6, serial)
}

// Destroy destroys the layer surface
func (s *LayerSurface) Destroy() error {
	return s.destroy(s, 7)
}

// SetLayer moves the surface to another layer (version 2)
func (s *LayerSurface) SetLayer(layer uint32) error {
	return s.send(8, layer)
}

// Dispatch handles incoming events
func (s *LayerSurface) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0: // configure
		serial := event.Uint32()
		w, h := event.Uint32(), event.Uint32()
		s.emit(func() {
			if s.handlers.Configure != nil {
				s.handlers.Configure(serial, w, h)
			}
		})
	case 1: // closed
		s.emit(func() {
			if s.handlers.Closed != nil {
				s.handlers.Closed()
			}
		})
	}
}
