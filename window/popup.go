package window

import (
	"errors"
	"fmt"

	"github.com/bnema/waykit/internal/logger"
	"github.com/bnema/waykit/internal/protocols"
	"github.com/bnema/wlturbo/wl"
)

// Anchor is the edge or corner of the anchor rectangle a popup attaches to.
// Gravity uses the same values for the direction the popup extends.
type Anchor uint32

const (
	AnchorNone Anchor = iota
	AnchorTop
	AnchorBottom
	AnchorLeft
	AnchorRight
	AnchorTopLeft
	AnchorBottomLeft
	AnchorTopRight
	AnchorBottomRight
)

// ConstraintAdjustment is how the compositor may move a popup that would
// end up outside the output.
type ConstraintAdjustment uint32

const (
	AdjustSlideX ConstraintAdjustment = 1 << iota
	AdjustSlideY
	AdjustFlipX
	AdjustFlipY
	AdjustResizeX
	AdjustResizeY
)

// ErrInvalidPositioner is returned for a positioner without a size.
var ErrInvalidPositioner = errors.New("popup positioner needs a non-zero size")

// Positioner places a popup relative to its parent's window geometry.
type Positioner struct {
	Width, Height int32

	// AnchorX, AnchorY, AnchorWidth and AnchorHeight are the rectangle
	// of the parent the popup is anchored to.
	AnchorX, AnchorY          int32
	AnchorWidth, AnchorHeight int32
	Anchor                    Anchor
	Gravity                   Anchor
	Adjustment                ConstraintAdjustment
	OffsetX, OffsetY          int32

	// The fields below need xdg_wm_base version 3 and are ignored by
	// older compositors.
	Reactive                  bool
	ParentWidth, ParentHeight int32
	ParentConfigure           uint32
	HasParentConfigure        bool
}

type positionerWire interface {
	SetSize(width, height int32) error
	SetAnchorRect(x, y, width, height int32) error
	SetAnchor(anchor uint32) error
	SetGravity(gravity uint32) error
	SetConstraintAdjustment(adjustment uint32) error
	SetOffset(x, y int32) error
	SetReactive() error
	SetParentSize(width, height int32) error
	SetParentConfigure(serial uint32) error
	Destroy() error
}

func (p Positioner) apply(w positionerWire, version uint32) error {
	if p.Width <= 0 || p.Height <= 0 {
		return ErrInvalidPositioner
	}
	if p.AnchorWidth < 0 || p.AnchorHeight < 0 {
		return fmt.Errorf("negative anchor rectangle %dx%d", p.AnchorWidth, p.AnchorHeight)
	}
	err := errors.Join(
		w.SetSize(p.Width, p.Height),
		w.SetAnchorRect(p.AnchorX, p.AnchorY, p.AnchorWidth, p.AnchorHeight),
		w.SetAnchor(uint32(p.Anchor)),
		w.SetGravity(uint32(p.Gravity)),
		w.SetConstraintAdjustment(uint32(p.Adjustment)),
		w.SetOffset(p.OffsetX, p.OffsetY),
	)
	if err != nil {
		return err
	}
	if version < 3 {
		if p.Reactive || p.HasParentConfigure {
			logger.Debug("positioner fields need xdg_wm_base v3", "version", version)
		}
		return nil
	}
	if p.Reactive {
		if err := w.SetReactive(); err != nil {
			return err
		}
	}
	if p.ParentWidth > 0 && p.ParentHeight > 0 {
		if err := w.SetParentSize(p.ParentWidth, p.ParentHeight); err != nil {
			return err
		}
	}
	if p.HasParentConfigure {
		return w.SetParentConfigure(p.ParentConfigure)
	}
	return nil
}

// ConfigureKind tells why a popup was configured.
type ConfigureKind int

const (
	// ConfigureInitial is the first configure of the popup.
	ConfigureInitial ConfigureKind = iota
	// ConfigureReactive follows a parent move of a reactive popup.
	ConfigureReactive
	// ConfigureReposition answers Reposition; Token identifies the call.
	ConfigureReposition
)

func (k ConfigureKind) String() string {
	switch k {
	case ConfigureInitial:
		return "initial"
	case ConfigureReactive:
		return "reactive"
	case ConfigureReposition:
		return "reposition"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// PopupConfigure is an applied popup configure. X and Y are relative to the
// parent's window geometry.
type PopupConfigure struct {
	X, Y          int32
	Width, Height int32
	Serial        uint32
	Kind          ConfigureKind
	Token         uint32
}

// PopupHandler receives popup events on the loop goroutine.
type PopupHandler interface {
	// ConfigurePopup reports the position and size picked by the
	// compositor. The configure is already acknowledged.
	ConfigurePopup(p *Popup, c PopupConfigure)
	// PopupDone reports the compositor dismissing the popup. The popup
	// should be destroyed.
	PopupDone(p *Popup)
}

// PopupParent is a surface that can parent popups: a *Window or a *Popup.
type PopupParent interface {
	xdgSurface() *protocols.XdgSurface
}

type popupWire interface {
	Version() uint32
	Grab(seat *protocols.Seat, serial uint32) error
	Reposition(positioner positionerWire, token uint32) error
	Destroy() error
}

// xdgPopup adapts *protocols.XdgPopup to popupWire.
type xdgPopup struct {
	*protocols.XdgPopup
}

func (x xdgPopup) Reposition(positioner positionerWire, token uint32) error {
	p, ok := positioner.(*protocols.XdgPositioner)
	if !ok {
		return fmt.Errorf("unexpected positioner %T", positioner)
	}
	return x.XdgPopup.Reposition(p, token)
}

type pendingPopup struct {
	x, y, w, h   int32
	token        uint32
	repositioned bool
}

// Popup is an xdg_popup surface. Methods run on the loop goroutine.
type Popup struct {
	surface       Surface
	xdg           XdgSurfaceWire
	popup         popupWire
	newPositioner func() (positionerWire, error)
	handler       PopupHandler

	// set for popups created through a Shell
	wireSurface *protocols.XdgSurface
	wirePopup   *protocols.XdgPopup

	pending    pendingPopup
	current    PopupConfigure
	configured bool
	committed  bool
	done       bool
	destroyed  bool
}

func newPopup(surface Surface, xdg XdgSurfaceWire, popup popupWire,
	newPositioner func() (positionerWire, error), h PopupHandler) *Popup {
	return &Popup{
		surface:       surface,
		xdg:           xdg,
		popup:         popup,
		newPositioner: newPositioner,
		handler:       h,
	}
}

func (p *Popup) xdgSurface() *protocols.XdgSurface {
	return p.wireSurface
}

func (p *Popup) popupConfigure(x, y, width, height int32) {
	p.pending.x, p.pending.y = x, y
	p.pending.w, p.pending.h = width, height
}

func (p *Popup) repositionedEvent(token uint32) {
	p.pending.token = token
	p.pending.repositioned = true
}

func (p *Popup) doneEvent() {
	p.done = true
	if p.handler != nil {
		p.handler.PopupDone(p)
	}
}

// surfaceConfigure acknowledges right away: a popup has no state the client
// could negotiate.
func (p *Popup) surfaceConfigure(serial uint32) {
	if err := p.xdg.AckConfigure(serial); err != nil {
		logger.Warn("failed to ack popup configure", "serial", serial, "error", err)
	}
	c := PopupConfigure{
		X:      p.pending.x,
		Y:      p.pending.y,
		Width:  p.pending.w,
		Height: p.pending.h,
		Serial: serial,
	}
	switch {
	case !p.configured:
		c.Kind = ConfigureInitial
	case p.pending.repositioned:
		c.Kind = ConfigureReposition
		c.Token = p.pending.token
	default:
		c.Kind = ConfigureReactive
	}
	p.pending.repositioned = false
	p.configured = true
	p.current = c
	if p.handler != nil {
		p.handler.ConfigurePopup(p, c)
	}
}

// Configured reports whether the first configure arrived.
func (p *Popup) Configured() bool {
	return p.configured
}

// Current returns the last configure.
func (p *Popup) Current() PopupConfigure {
	return p.current
}

// Done reports whether the compositor dismissed the popup.
func (p *Popup) Done() bool {
	return p.done
}

// Wire returns the xdg_popup, nil for popups not created through a Shell.
func (p *Popup) Wire() *protocols.XdgPopup {
	return p.wirePopup
}

// Grab takes an explicit grab for the input event with serial. It must be
// called before the first commit.
func (p *Popup) Grab(s *protocols.Seat, serial uint32) error {
	if p.committed {
		return errors.New("popup grab after the first commit")
	}
	return p.popup.Grab(s, serial)
}

// Reposition moves the popup. The answering configure carries token.
func (p *Popup) Reposition(pos Positioner, token uint32) error {
	if p.popup.Version() < 3 {
		return fmt.Errorf("reposition needs xdg_popup v3, have v%d", p.popup.Version())
	}
	w, err := p.newPositioner()
	if err != nil {
		return fmt.Errorf("create positioner: %w", err)
	}
	defer func() { _ = w.Destroy() }()
	if err := pos.apply(w, p.popup.Version()); err != nil {
		return err
	}
	return p.popup.Reposition(w, token)
}

// Commit commits the popup surface.
func (p *Popup) Commit() error {
	if p.destroyed {
		return errors.New("popup destroyed")
	}
	p.committed = true
	return p.surface.Commit()
}

// Destroy destroys the popup role. Child popups must be destroyed first.
func (p *Popup) Destroy() error {
	if p.destroyed {
		return nil
	}
	p.destroyed = true
	return errors.Join(p.popup.Destroy(), p.xdg.Destroy())
}

// CreatePopup gives surface the popup role. parent may be nil when the
// popup is attached to a layer surface before its first commit.
func (s *Shell) CreatePopup(surface *wl.Surface, parent PopupParent, pos Positioner, h PopupHandler) (*Popup, error) {
	wm, err := s.wm.Get()
	if err != nil {
		return nil, err
	}
	newPositioner := func() (positionerWire, error) { return wm.CreatePositioner() }

	pw, err := wm.CreatePositioner()
	if err != nil {
		return nil, fmt.Errorf("create positioner: %w", err)
	}
	defer func() { _ = pw.Destroy() }()
	if err := pos.apply(pw, wm.Version()); err != nil {
		return nil, err
	}

	xs, err := wm.GetXdgSurface(surface)
	if err != nil {
		return nil, fmt.Errorf("get xdg_surface: %w", err)
	}
	var parentSurface *protocols.XdgSurface
	if parent != nil {
		parentSurface = parent.xdgSurface()
	}
	xp, err := xs.GetPopup(parentSurface, pw)
	if err != nil {
		_ = xs.Destroy()
		return nil, fmt.Errorf("get popup: %w", err)
	}

	p := newPopup(surface, xs, xdgPopup{xp}, newPositioner, h)
	p.wireSurface = xs
	p.wirePopup = xp
	xs.SetConfigureHandler(p.surfaceConfigure)
	xp.SetHandlers(protocols.PopupHandlers{
		Configure:    p.popupConfigure,
		Done:         p.doneEvent,
		Repositioned: p.repositionedEvent,
	})
	return p, nil
}
