// Package decoration draws a minimal client-side window frame: a header
// bar with close, maximize and minimize buttons and a resize border, built
// from five subsurfaces around the content surface.
//
// The frame does not act on input itself. Pointer positions are fed in with
// ClickPointMoved and clicks with OnClick, which returns the FrameAction the
// window should perform.
package decoration

import (
	"errors"
	"fmt"
	"math"

	"github.com/bnema/waykit/internal/logger"
	"github.com/bnema/waykit/seat/pointer"
	"github.com/bnema/waykit/shm"
)

const (
	// HeaderSize is the height of the header bar and the width of a button.
	HeaderSize = 24
	// BorderSize is the width of the resize border.
	BorderSize = 4
)

var (
	// ErrHidden is returned when resizing a hidden frame.
	ErrHidden = errors.New("frame is hidden")
	// ErrZeroSize is returned for an empty content size.
	ErrZeroSize = errors.New("zero content size")
)

// Part indexes the frame subsurfaces.
type Part int

const (
	PartHeader Part = iota
	PartTop
	PartRight
	PartBottom
	PartLeft

	partCount = 5
)

func (p Part) String() string {
	switch p {
	case PartHeader:
		return "header"
	case PartTop:
		return "top"
	case PartRight:
		return "right"
	case PartBottom:
		return "bottom"
	case PartLeft:
		return "left"
	}
	return fmt.Sprintf("part(%d)", int(p))
}

// Surface is the wl_surface of a frame part.
type Surface interface {
	shm.Attacher
	ID() uint32
	SetBufferScale(scale int32) error
	DamageBuffer(x, y, width, height int32) error
	Commit() error
	Destroy() error
}

// Subsurface places a part relative to the content surface.
type Subsurface interface {
	SetPosition(x, y int32) error
	SetSync() error
	SetDesync() error
	Destroy() error
}

// Parts creates the surfaces of the frame parts, each a subsurface of the
// content surface.
type Parts interface {
	CreatePart() (Surface, Subsurface, error)
}

// BufferPool hands out one buffer per part; *shm.MultiPool[Part]
// implements it.
type BufferPool interface {
	Get(key Part, width, stride, height int, format uint32) (int, *shm.Buffer, []byte, error)
	CreateBuffer(key Part, width, stride, height int, format uint32) (int, *shm.Buffer, []byte, error)
	Remove(key Part) error
	Close() error
}

type framePart struct {
	surface Surface
	sub     Subsurface
	width   uint32
	height  uint32
	x, y    int32
}

// Frame is the fallback decoration of one window. Methods run on the loop
// goroutine.
type Frame struct {
	factory Parts
	pool    BufferPool

	state     WindowState
	caps      WMCapabilities
	buttons   []Button
	resizable bool
	dirty     bool
	sync      bool
	scale     float64

	location       Location
	mouseX, mouseY int32

	// nil while hidden
	parts []*framePart
}

// New creates a visible frame. Call Resize before the first Draw.
func New(factory Parts, pool BufferPool) (*Frame, error) {
	f := &Frame{
		factory:   factory,
		pool:      pool,
		caps:      CapAll,
		buttons:   supportedButtons(CapAll),
		resizable: true,
		dirty:     true,
		sync:      true,
		scale:     1,
	}
	if err := f.show(); err != nil {
		return nil, err
	}
	return f, nil
}

func supportedButtons(caps WMCapabilities) []Button {
	buttons := []Button{ButtonClose}
	if caps.Has(CapMaximize) {
		buttons = append(buttons, ButtonMaximize)
	}
	if caps.Has(CapMinimize) {
		buttons = append(buttons, ButtonMinimize)
	}
	return buttons
}

func (f *Frame) show() error {
	geometry := [partCount]struct {
		w, h uint32
		x, y int32
	}{
		PartHeader: {0, HeaderSize, 0, -HeaderSize},
		PartTop:    {0, BorderSize, -BorderSize, -(HeaderSize + BorderSize)},
		PartRight:  {BorderSize, 0, 0, -HeaderSize},
		PartBottom: {0, BorderSize, -BorderSize, 0},
		PartLeft:   {BorderSize, 0, -BorderSize, -HeaderSize},
	}

	parts := make([]*framePart, 0, partCount)
	for i, g := range geometry {
		surface, sub, err := f.factory.CreatePart()
		if err != nil {
			destroyParts(parts)
			return fmt.Errorf("create %s part: %w", Part(i), err)
		}
		if err := sub.SetSync(); err != nil {
			logger.Warn("failed to sync frame part", "part", Part(i), "error", err)
		}
		parts = append(parts, &framePart{surface: surface, sub: sub, width: g.w, height: g.h, x: g.x, y: g.y})
	}
	f.parts = parts
	f.dirty = true
	f.sync = true
	return nil
}

func destroyParts(parts []*framePart) error {
	var errs []error
	for _, p := range parts {
		errs = append(errs, p.sub.Destroy(), p.surface.Destroy())
	}
	return errors.Join(errs...)
}

func (f *Frame) partIndex(surfaceID uint32) (Part, bool) {
	for i, p := range f.parts {
		if p.surface.ID() == surfaceID {
			return Part(i), true
		}
	}
	return 0, false
}

// ClickPointMoved records the pointer at (x, y) on surfaceID and returns the
// cursor to show. ok is false when the surface is not part of the frame.
func (f *Frame) ClickPointMoved(surfaceID uint32, x, y float64) (icon pointer.CursorIcon, ok bool) {
	part, ok := f.partIndex(surfaceID)
	if !ok {
		return pointer.CursorDefault, false
	}

	var base Location
	switch part {
	case PartLeft:
		base = LocationLeft
	case PartRight:
		base = LocationRight
	case PartBottom:
		base = LocationBottom
	case PartTop:
		base = LocationTop
	default:
		base = LocationHead
	}

	old := f.location
	f.mouseX, f.mouseY = int32(x), int32(y)
	f.location = preciseLocation(f.buttons, base, f.parts[part].width, x, y)
	if (old.IsButton() || f.location.IsButton()) && old != f.location {
		f.dirty = true
	}
	return cursorFor(f.location), true
}

func preciseLocation(buttons []Button, base Location, width uint32, x, y float64) Location {
	switch base {
	case LocationHead:
		return findButton(buttons, x, y, width)
	case LocationTop:
		switch {
		case x <= BorderSize:
			return LocationTopLeft
		case x >= float64(width)-BorderSize:
			return LocationTopRight
		}
		return LocationTop
	case LocationBottom:
		switch {
		case x <= BorderSize:
			return LocationBottomLeft
		case x >= float64(width)-BorderSize:
			return LocationBottomRight
		}
		return LocationBottom
	}
	return base
}

// findButton scans the buttons from the right edge of the header.
func findButton(buttons []Button, x, y float64, width uint32) Location {
	for i, b := range buttons {
		right := uint32(i) * HeaderSize
		left := right + HeaderSize
		if width >= left &&
			x >= float64(width-left) && x <= float64(width-right) &&
			y >= 0 && y <= HeaderSize {
			return buttonLocation(b)
		}
	}
	return LocationHead
}

func cursorFor(l Location) pointer.CursorIcon {
	switch l {
	case LocationTop:
		return pointer.CursorNResize
	case LocationTopRight:
		return pointer.CursorNeResize
	case LocationRight:
		return pointer.CursorEResize
	case LocationBottomRight:
		return pointer.CursorSeResize
	case LocationBottom:
		return pointer.CursorSResize
	case LocationBottomLeft:
		return pointer.CursorSwResize
	case LocationLeft:
		return pointer.CursorWResize
	case LocationTopLeft:
		return pointer.CursorNwResize
	}
	return pointer.CursorDefault
}

// ClickPointLeft tells the frame the pointer left every part.
func (f *Frame) ClickPointLeft() {
	if f.location.IsButton() {
		f.dirty = true
	}
	f.location = LocationNone
}

// Hovered returns the zone under the pointer.
func (f *Frame) Hovered() Location {
	return f.location
}

var resizeEdges = map[Location]ResizeEdge{
	LocationTop:         EdgeTop,
	LocationTopLeft:     EdgeTopLeft,
	LocationLeft:        EdgeLeft,
	LocationBottomLeft:  EdgeBottomLeft,
	LocationBottom:      EdgeBottom,
	LocationBottomRight: EdgeBottomRight,
	LocationRight:       EdgeRight,
	LocationTopRight:    EdgeTopRight,
}

// OnClick maps a click at the last recorded position to an action. Buttons
// act on release, moves and resizes on press.
func (f *Frame) OnClick(click FrameClick, pressed bool) (FrameAction, bool) {
	if click == ClickAlternate {
		if f.location != LocationHead || !f.caps.Has(CapWindowMenu) {
			return FrameAction{}, false
		}
		return FrameAction{Kind: ActionShowMenu, X: f.mouseX, Y: f.mouseY - HeaderSize}, true
	}

	switch f.location {
	case LocationHead:
		if pressed {
			return FrameAction{Kind: ActionMove}, true
		}
	case LocationClose:
		if !pressed {
			return FrameAction{Kind: ActionClose}, true
		}
	case LocationMinimize:
		if !pressed {
			return FrameAction{Kind: ActionMinimize}, true
		}
	case LocationMaximize:
		if pressed {
			break
		}
		if f.state.Has(StateMaximized) {
			return FrameAction{Kind: ActionUnmaximize}, true
		}
		return FrameAction{Kind: ActionMaximize}, true
	default:
		if edge, ok := resizeEdges[f.location]; ok && pressed && f.resizable {
			return FrameAction{Kind: ActionResize, Edge: edge}, true
		}
	}
	return FrameAction{}, false
}

// UpdateState applies the states of a configure event.
func (f *Frame) UpdateState(state WindowState) {
	changed := f.state ^ state
	f.state = state
	if changed&(StateActivated|StateFullscreen|StateMaximized) != 0 {
		f.dirty = true
	}
}

// State returns the last applied window state.
func (f *Frame) State() WindowState {
	return f.state
}

// UpdateWMCapabilities applies the compositor's capabilities, which decide
// the header buttons.
func (f *Frame) UpdateWMCapabilities(caps WMCapabilities) {
	if caps != f.caps {
		f.dirty = true
	}
	f.caps = caps
	f.buttons = supportedButtons(caps)
}

// Buttons returns the header buttons from right to left.
func (f *Frame) Buttons() []Button {
	return append([]Button(nil), f.buttons...)
}

// SetResizable enables resizing from the border.
func (f *Frame) SetResizable(resizable bool) {
	f.resizable = resizable
}

// SetScalingFactor sets the output scale. Fractional scales are rounded up.
func (f *Frame) SetScalingFactor(scale float64) {
	if scale <= 0 {
		scale = 1
	}
	f.scale = scale
	f.dirty = true
	f.sync = true
}

// SetHidden hides or shows the frame. Hiding destroys the part surfaces.
func (f *Frame) SetHidden(hidden bool) error {
	if f.IsHidden() == hidden {
		return nil
	}
	if !hidden {
		return f.show()
	}

	err := destroyParts(f.parts)
	f.parts = nil
	f.location = LocationNone
	for p := Part(0); p < partCount; p++ {
		if rerr := f.pool.Remove(p); rerr != nil && !errors.Is(rerr, shm.ErrNotFound) {
			err = errors.Join(err, rerr)
		}
	}
	return err
}

// IsHidden reports whether the frame is hidden.
func (f *Frame) IsHidden() bool {
	return f.parts == nil
}

// Resize lays the parts out around content of width by height.
func (f *Frame) Resize(width, height uint32) error {
	if f.IsHidden() {
		return ErrHidden
	}
	if width == 0 || height == 0 {
		return ErrZeroSize
	}

	f.parts[PartHeader].width = width
	f.parts[PartTop].width = width + 2*BorderSize
	f.parts[PartBottom].width = width + 2*BorderSize
	f.parts[PartBottom].y = int32(height)
	f.parts[PartLeft].height = height + HeaderSize
	f.parts[PartRight].height = height + HeaderSize
	f.parts[PartRight].x = int32(width)

	f.dirty = true
	f.sync = true
	return nil
}

func (f *Frame) bordersShown() bool {
	return !f.IsHidden() && !f.state.Has(StateFullscreen)
}

// SubtractBorders returns the content size for a window of width by height.
// A dimension too small for the borders is returned as 0.
func (f *Frame) SubtractBorders(width, height uint32) (uint32, uint32) {
	if !f.bordersShown() {
		return width, height
	}
	return saturatingSub(width, 2*BorderSize), saturatingSub(height, HeaderSize+2*BorderSize)
}

func saturatingSub(a, b uint32) uint32 {
	if a < b {
		return 0
	}
	return a - b
}

// AddBorders returns the window size for content of width by height.
func (f *Frame) AddBorders(width, height uint32) (uint32, uint32) {
	if !f.bordersShown() {
		return width, height
	}
	return width + 2*BorderSize, height + HeaderSize + 2*BorderSize
}

// Location returns the top-left corner of the frame relative to the
// content surface.
func (f *Frame) Location() (x, y int32) {
	if !f.bordersShown() {
		return 0, 0
	}
	top := f.parts[PartTop]
	return top.x, top.y
}

// IsDirty reports whether the frame needs a Draw.
func (f *Frame) IsDirty() bool {
	return f.dirty
}

func (f *Frame) bufferScale() int32 {
	return int32(math.Ceil(f.scale))
}

// Destroy hides the frame and closes its pool.
func (f *Frame) Destroy() error {
	return errors.Join(f.SetHidden(true), f.pool.Close())
}
