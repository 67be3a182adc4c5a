// Package layer gives a wl_surface a wlr layer shell role: panels, docks,
// wallpapers and overlays anchored to the edges of an output.
package layer

import (
	"errors"
	"fmt"

	"github.com/bnema/waykit/internal/logger"
	"github.com/bnema/waykit/internal/protocols"
	"github.com/bnema/waykit/registry"
	"github.com/bnema/waykit/window"
	"github.com/bnema/wlturbo/wl"
)

const maxLayerShellVersion = 4

// Layer is the stacking layer of a surface.
type Layer uint32

const (
	Background Layer = protocols.LayerBackground
	Bottom     Layer = protocols.LayerBottom
	Top        Layer = protocols.LayerTop
	Overlay    Layer = protocols.LayerOverlay
)

func (l Layer) String() string {
	switch l {
	case Background:
		return "background"
	case Bottom:
		return "bottom"
	case Top:
		return "top"
	case Overlay:
		return "overlay"
	}
	return fmt.Sprintf("layer(%d)", uint32(l))
}

// Anchor is a set of output edges.
type Anchor uint32

const (
	AnchorTop    Anchor = protocols.LayerAnchorTop
	AnchorBottom Anchor = protocols.LayerAnchorBottom
	AnchorLeft   Anchor = protocols.LayerAnchorLeft
	AnchorRight  Anchor = protocols.LayerAnchorRight

	AnchorAll = AnchorTop | AnchorBottom | AnchorLeft | AnchorRight
)

// KeyboardInteractivity is how a layer surface receives keyboard focus.
type KeyboardInteractivity uint32

const (
	KeyboardNone      KeyboardInteractivity = protocols.LayerKeyboardNone
	KeyboardExclusive KeyboardInteractivity = protocols.LayerKeyboardExclusive
	// KeyboardOnDemand needs version 4.
	KeyboardOnDemand KeyboardInteractivity = protocols.LayerKeyboardOnDemand
)

var (
	// ErrUnavailable is returned when the compositor has no layer shell.
	ErrUnavailable = errors.New("zwlr_layer_shell_v1 not available")
	// ErrInvalidSize is returned for a zero dimension without both
	// opposite edges anchored.
	ErrInvalidSize = errors.New("zero layer surface size needs both opposite edges anchored")
)

// Margin is the distance from the anchored edges.
type Margin struct {
	Top, Right, Bottom, Left int32
}

// Config describes a new layer surface.
type Config struct {
	Layer     Layer
	Namespace string
	// Output is nil to let the compositor pick one.
	Output *protocols.Output

	// A zero Width or Height stretches the surface between the opposite
	// anchored edges.
	Width, Height uint32
	Anchor        Anchor
	ExclusiveZone int32
	Margin        Margin
	Keyboard      KeyboardInteractivity
}

// Configure is a configure event. A zero dimension is left to the client.
type Configure struct {
	Width, Height uint32
	Serial        uint32
}

// Handler receives layer surface events on the loop goroutine.
type Handler interface {
	// ConfigureLayer reports the size picked by the compositor. The
	// configure is already acknowledged.
	ConfigureLayer(s *Surface, c Configure)
	// Closed reports the surface will no longer be shown, for example
	// because its output went away. It should be destroyed.
	Closed(s *Surface)
}

// Committer is the content wl_surface.
type Committer interface {
	Commit() error
}

type surfaceWire interface {
	Version() uint32
	SetSize(width, height uint32) error
	SetAnchor(anchor uint32) error
	SetExclusiveZone(zone int32) error
	SetMargin(top, right, bottom, left int32) error
	SetKeyboardInteractivity(mode uint32) error
	GetPopup(popup *protocols.XdgPopup) error
	AckConfigure(serial uint32) error
	SetLayer(layer uint32) error
	Destroy() error
}

// Shell tracks zwlr_layer_shell_v1.
type Shell struct {
	global *registry.SingleGlobal[*protocols.LayerShell]
}

// NewShell creates the layer shell state. The global is bound on first use.
func NewShell(ctx *wl.Context, q protocols.Queue) *Shell {
	return &Shell{
		global: &registry.SingleGlobal[*protocols.LayerShell]{
			Interface:  protocols.LayerShellInterface,
			MaxVersion: maxLayerShellVersion,
			Lazy:       true,
			New:        func() *protocols.LayerShell { return protocols.NewLayerShell(ctx, q) },
		},
	}
}

// Register routes the layer shell global of r.
func (s *Shell) Register(r *registry.Registry) {
	r.Handle(protocols.LayerShellInterface, s.global)
}

// Available reports whether the compositor advertises the layer shell.
func (s *Shell) Available() bool {
	return s.global.Available()
}

// Version returns the bound version, zero before the first surface.
func (s *Shell) Version() uint32 {
	return s.global.Version()
}

// CreateLayerSurface gives surface the layer role. Commit the returned
// surface once to receive the first configure.
func (s *Shell) CreateLayerSurface(surface *wl.Surface, cfg Config, h Handler) (*Surface, error) {
	if !s.global.Available() {
		return nil, ErrUnavailable
	}
	if err := validate(cfg.Width, cfg.Height, cfg.Anchor); err != nil {
		return nil, err
	}
	shell, err := s.global.Get()
	if err != nil {
		return nil, err
	}
	var out wl.Object
	if cfg.Output != nil {
		out = cfg.Output
	}
	ls, err := shell.GetLayerSurface(surface, out, uint32(cfg.Layer), cfg.Namespace)
	if err != nil {
		return nil, fmt.Errorf("get layer surface: %w", err)
	}
	l, err := newSurface(surface, ls, cfg, h)
	if err != nil {
		_ = ls.Destroy()
		return nil, err
	}
	ls.SetHandlers(protocols.LayerSurfaceHandlers{
		Configure: l.configure,
		Closed:    l.closedEvent,
	})
	logger.Debug("layer surface created", "layer", cfg.Layer, "namespace", cfg.Namespace)
	return l, nil
}

func validate(width, height uint32, anchor Anchor) error {
	if width == 0 && anchor&(AnchorLeft|AnchorRight) != AnchorLeft|AnchorRight {
		return ErrInvalidSize
	}
	if height == 0 && anchor&(AnchorTop|AnchorBottom) != AnchorTop|AnchorBottom {
		return ErrInvalidSize
	}
	return nil
}

// Surface is a layer surface. Methods run on the loop goroutine.
type Surface struct {
	surface Committer
	wire    surfaceWire
	handler Handler

	layer         Layer
	width, height uint32
	anchor        Anchor
	current       Configure
	configured    bool
	closed        bool
	destroyed     bool
}

func newSurface(surface Committer, wire surfaceWire, cfg Config, h Handler) (*Surface, error) {
	s := &Surface{
		surface: surface,
		wire:    wire,
		handler: h,
		layer:   cfg.Layer,
		width:   cfg.Width,
		height:  cfg.Height,
		anchor:  cfg.Anchor,
	}
	err := errors.Join(
		wire.SetSize(cfg.Width, cfg.Height),
		wire.SetAnchor(uint32(cfg.Anchor)),
		wire.SetExclusiveZone(cfg.ExclusiveZone),
		wire.SetMargin(cfg.Margin.Top, cfg.Margin.Right, cfg.Margin.Bottom, cfg.Margin.Left),
	)
	if err != nil {
		return nil, err
	}
	if cfg.Keyboard != KeyboardNone {
		if err := s.SetKeyboardInteractivity(cfg.Keyboard); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Surface) configure(serial, width, height uint32) {
	if err := s.wire.AckConfigure(serial); err != nil {
		logger.Warn("failed to ack layer configure", "serial", serial, "error", err)
	}
	s.configured = true
	s.current = Configure{Width: width, Height: height, Serial: serial}
	if s.handler != nil {
		s.handler.ConfigureLayer(s, s.current)
	}
}

func (s *Surface) closedEvent() {
	s.closed = true
	if s.handler != nil {
		s.handler.Closed(s)
	}
}

// Configured reports whether the first configure arrived. Buffers may only
// be attached afterwards.
func (s *Surface) Configured() bool {
	return s.configured
}

// Current returns the last configure.
func (s *Surface) Current() Configure {
	return s.current
}

// IsClosed reports whether the compositor closed the surface.
func (s *Surface) IsClosed() bool {
	return s.closed
}

// Layer returns the current layer.
func (s *Surface) Layer() Layer {
	return s.layer
}

// SetSize sets the requested size. A zero dimension stretches between the
// opposite anchored edges.
func (s *Surface) SetSize(width, height uint32) error {
	if err := validate(width, height, s.anchor); err != nil {
		return err
	}
	s.width, s.height = width, height
	return s.wire.SetSize(width, height)
}

// SetAnchor sets the anchored edges.
func (s *Surface) SetAnchor(anchor Anchor) error {
	if err := validate(s.width, s.height, anchor); err != nil {
		return err
	}
	s.anchor = anchor
	return s.wire.SetAnchor(uint32(anchor))
}

// SetExclusiveZone reserves space along the anchored edge. -1 asks not to
// be moved by other exclusive zones.
func (s *Surface) SetExclusiveZone(zone int32) error {
	return s.wire.SetExclusiveZone(zone)
}

// SetMargin sets the distance from the anchored edges.
func (s *Surface) SetMargin(m Margin) error {
	return s.wire.SetMargin(m.Top, m.Right, m.Bottom, m.Left)
}

// SetKeyboardInteractivity sets how the surface receives keyboard focus.
func (s *Surface) SetKeyboardInteractivity(mode KeyboardInteractivity) error {
	if mode == KeyboardOnDemand && s.wire.Version() < 4 {
		return fmt.Errorf("on-demand keyboard interactivity needs v4, have v%d", s.wire.Version())
	}
	if mode > KeyboardOnDemand {
		return fmt.Errorf("unknown keyboard interactivity %d", mode)
	}
	return s.wire.SetKeyboardInteractivity(uint32(mode))
}

// SetLayer moves the surface to another layer. It needs version 2.
func (s *Surface) SetLayer(l Layer) error {
	if s.wire.Version() < 2 {
		return fmt.Errorf("set_layer needs v2, have v%d", s.wire.Version())
	}
	if err := s.wire.SetLayer(uint32(l)); err != nil {
		return err
	}
	s.layer = l
	return nil
}

// AttachPopup parents p, created without a parent, to the layer surface.
// It must happen before the popup's first commit.
func (s *Surface) AttachPopup(p *window.Popup) error {
	xp := p.Wire()
	if xp == nil {
		return errors.New("popup has no xdg_popup")
	}
	return s.wire.GetPopup(xp)
}

// Commit commits the surface.
func (s *Surface) Commit() error {
	if s.destroyed {
		return errors.New("layer surface destroyed")
	}
	return s.surface.Commit()
}

// Destroy destroys the layer surface role.
func (s *Surface) Destroy() error {
	if s.destroyed {
		return nil
	}
	s.destroyed = true
	return s.wire.Destroy()
}
