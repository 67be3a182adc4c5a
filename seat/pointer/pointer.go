// Package pointer groups wl_pointer events into frames and sets cursors.
package pointer

import (
	"fmt"

	"github.com/bnema/waykit/internal/logger"
	"github.com/bnema/waykit/internal/protocols"
	"github.com/bnema/wlturbo/wl"
)

// Mouse buttons from linux/input-event-codes.h.
const (
	ButtonLeft    = 0x110
	ButtonRight   = 0x111
	ButtonMiddle  = 0x112
	ButtonSide    = 0x113
	ButtonExtra   = 0x114
	ButtonForward = 0x115
	ButtonBack    = 0x116
	ButtonTask    = 0x117
)

// wl_pointer enums.
const (
	buttonReleased = 0
	buttonPressed  = 1

	axisVertical   = 0
	axisHorizontal = 1
)

// AxisSource describes the device producing scroll events.
type AxisSource uint8

// Sources; AxisSourceNone means the frame carried no axis_source.
const (
	AxisSourceNone AxisSource = iota
	AxisSourceWheel
	AxisSourceFinger
	AxisSourceContinuous
	AxisSourceWheelTilt
)

func (s AxisSource) String() string {
	switch s {
	case AxisSourceNone:
		return "none"
	case AxisSourceWheel:
		return "wheel"
	case AxisSourceFinger:
		return "finger"
	case AxisSourceContinuous:
		return "continuous"
	case AxisSourceWheelTilt:
		return "wheel-tilt"
	}
	return fmt.Sprintf("source(%d)", uint8(s))
}

// Direction is the physical direction relative to the scroll value.
type Direction uint8

// Directions; DirectionNone means no axis_relative_direction was received.
const (
	DirectionNone Direction = iota
	DirectionIdentical
	DirectionInverted
)

func (d Direction) String() string {
	switch d {
	case DirectionNone:
		return "none"
	case DirectionIdentical:
		return "identical"
	case DirectionInverted:
		return "inverted"
	}
	return fmt.Sprintf("direction(%d)", uint8(d))
}

// AxisScroll is the scroll along one axis within a frame.
type AxisScroll struct {
	// Absolute is the continuous scroll distance in surface coordinates.
	Absolute float64
	// Discrete counts wheel clicks (axis_discrete, before version 8).
	Discrete int32
	// Value120 is the high-resolution wheel value, 120 per click.
	Value120          int32
	RelativeDirection Direction
	// Stop is set when scrolling on this axis ended.
	Stop bool
}

// IsZero reports whether the axis saw no scroll at all.
func (a AxisScroll) IsZero() bool {
	return a == AxisScroll{}
}

// merge adds b into a. Differing known directions cannot be merged.
func (a AxisScroll) merge(b AxisScroll) (AxisScroll, bool) {
	dir := a.RelativeDirection
	switch {
	case dir == DirectionNone:
		dir = b.RelativeDirection
	case b.RelativeDirection != DirectionNone && b.RelativeDirection != dir:
		return a, false
	}
	a.Absolute += b.Absolute
	a.Discrete += b.Discrete
	a.Value120 += b.Value120
	a.RelativeDirection = dir
	a.Stop = a.Stop || b.Stop
	return a, true
}

// EventKind is the type of a pointer Event.
type EventKind int

// Event kinds.
const (
	EventEnter EventKind = iota
	EventLeave
	EventMotion
	EventPress
	EventRelease
	EventAxis
)

func (k EventKind) String() string {
	switch k {
	case EventEnter:
		return "enter"
	case EventLeave:
		return "leave"
	case EventMotion:
		return "motion"
	case EventPress:
		return "press"
	case EventRelease:
		return "release"
	case EventAxis:
		return "axis"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Event is one logical pointer event. Fields not meaningful for Kind are zero.
type Event struct {
	Kind    EventKind
	Surface uint32
	X, Y    float64

	// Serial is set for enter, leave, press and release.
	Serial uint32
	Time   uint32
	Button uint32

	Horizontal AxisScroll
	Vertical   AxisScroll
	Source     AxisSource
}

// Handler receives pointer frames on the loop goroutine.
type Handler interface {
	PointerFrame(p *Pointer, events []Event)
}

// Wire is the protocol object behind a Pointer.
type Wire interface {
	Version() uint32
	SetCursor(serial uint32, surface wl.Object, hotspotX, hotspotY int32) error
	Release() error
}

type pending struct {
	Event
	// timed is false for axis events that carried no timestamp yet.
	timed bool
}

// Pointer is a wl_pointer. From version 5 events are grouped by the frame
// event; older pointers deliver every event as its own frame.
type Pointer struct {
	wire    Wire
	handler Handler

	surface  uint32
	x, y     float64
	pending  []pending
	lastTime uint32

	latestEnter  uint32
	latestButton uint32
	hasEnter     bool
}

// New wraps wire, routing its frames to h.
func New(wire *protocols.Pointer, h Handler) *Pointer {
	p := newPointer(wire, h)
	wire.SetHandlers(protocols.PointerHandlers{
		Enter:                 p.enter,
		Leave:                 p.leave,
		Motion:                p.motion,
		Button:                p.button,
		Axis:                  p.axis,
		Frame:                 p.frame,
		AxisSource:            p.axisSource,
		AxisStop:              p.axisStop,
		AxisDiscrete:          p.axisDiscrete,
		AxisValue120:          p.axisValue120,
		AxisRelativeDirection: p.axisRelativeDirection,
	})
	return p
}

func newPointer(wire Wire, h Handler) *Pointer {
	return &Pointer{wire: wire, handler: h}
}

// Wire returns the underlying protocol object.
func (p *Pointer) Wire() Wire {
	return p.wire
}

// Focus returns the surface under the pointer, 0 when none.
func (p *Pointer) Focus() uint32 {
	return p.surface
}

// Position returns the last known surface-local position.
func (p *Pointer) Position() (x, y float64) {
	return p.x, p.y
}

// LatestEnterSerial returns the serial of the last enter event.
func (p *Pointer) LatestEnterSerial() (uint32, bool) {
	return p.latestEnter, p.hasEnter
}

// LatestButtonSerial returns the serial of the last button event.
func (p *Pointer) LatestButtonSerial() uint32 {
	return p.latestButton
}

// Release releases the wire object.
func (p *Pointer) Release() error {
	return p.wire.Release()
}

func (p *Pointer) enter(e protocols.PointerEnter) {
	p.surface = e.Surface
	p.x, p.y = e.X, e.Y
	p.latestEnter = e.Serial
	p.hasEnter = true
	p.push(Event{Kind: EventEnter, Serial: e.Serial}, true, 0)
}

func (p *Pointer) leave(serial, surface uint32) {
	ev := Event{Kind: EventLeave, Serial: serial, Surface: surface, X: p.x, Y: p.y}
	if p.surface == surface {
		p.surface = 0
	}
	p.deliver(pending{Event: ev, timed: true})
}

func (p *Pointer) motion(time uint32, x, y float64) {
	p.x, p.y = x, y
	p.push(Event{Kind: EventMotion, Time: time}, true, time)
}

func (p *Pointer) button(b protocols.PointerButton) {
	p.latestButton = b.Serial
	ev := Event{Time: b.Time, Button: b.Button, Serial: b.Serial}
	switch b.State {
	case buttonPressed:
		ev.Kind = EventPress
	case buttonReleased:
		ev.Kind = EventRelease
	default:
		logger.Debug("invalid pointer button state", "state", b.State)
		return
	}
	p.push(ev, true, b.Time)
}

// axisEvent builds an axis event for one axis, or false for unknown axes.
func axisEvent(axis uint32, set func(*AxisScroll)) (Event, bool) {
	ev := Event{Kind: EventAxis}
	switch axis {
	case axisVertical:
		set(&ev.Vertical)
	case axisHorizontal:
		set(&ev.Horizontal)
	default:
		logger.Debug("invalid pointer axis", "axis", axis)
		return ev, false
	}
	return ev, true
}

func (p *Pointer) axis(time, axis uint32, value float64) {
	if ev, ok := axisEvent(axis, func(a *AxisScroll) { a.Absolute = value }); ok {
		ev.Time = time
		p.push(ev, true, time)
	}
}

func (p *Pointer) axisStop(time, axis uint32) {
	if ev, ok := axisEvent(axis, func(a *AxisScroll) { a.Stop = true }); ok {
		ev.Time = time
		p.push(ev, true, time)
	}
}

func (p *Pointer) axisDiscrete(axis uint32, discrete int32) {
	if ev, ok := axisEvent(axis, func(a *AxisScroll) { a.Discrete = discrete }); ok {
		p.push(ev, false, 0)
	}
}

func (p *Pointer) axisValue120(axis uint32, value120 int32) {
	if ev, ok := axisEvent(axis, func(a *AxisScroll) { a.Value120 = value120 }); ok {
		p.push(ev, false, 0)
	}
}

func (p *Pointer) axisRelativeDirection(axis, direction uint32) {
	var dir Direction
	switch direction {
	case 0:
		dir = DirectionIdentical
	case 1:
		dir = DirectionInverted
	default:
		logger.Debug("invalid axis relative direction", "direction", direction)
		return
	}
	if ev, ok := axisEvent(axis, func(a *AxisScroll) { a.RelativeDirection = dir }); ok {
		p.push(ev, false, 0)
	}
}

func (p *Pointer) axisSource(source uint32) {
	if source > 3 {
		logger.Debug("unknown pointer axis source", "source", source)
		return
	}
	p.push(Event{Kind: EventAxis, Source: AxisSource(source + 1)}, false, 0)
}

// push stamps ev with the focus and position and queues it.
func (p *Pointer) push(ev Event, timed bool, time uint32) {
	if timed && ev.Kind != EventEnter {
		p.lastTime = time
	}
	if p.surface == 0 {
		logger.Warn("pointer event without an entered surface", "kind", ev.Kind)
		return
	}
	ev.Surface = p.surface
	ev.X, ev.Y = p.x, p.y
	p.deliver(pending{Event: ev, timed: timed})
}

func (p *Pointer) deliver(ev pending) {
	if p.wire.Version() < 5 {
		p.emit([]pending{ev})
		return
	}

	// consecutive axis events merge into one, possibly diagonal, scroll
	if ev.Kind == EventAxis && len(p.pending) > 0 {
		last := &p.pending[len(p.pending)-1]
		if last.Kind == EventAxis {
			h, hok := last.Horizontal.merge(ev.Horizontal)
			v, vok := last.Vertical.merge(ev.Vertical)
			if hok && vok {
				if !last.timed && ev.timed {
					last.Time = ev.Time
					last.timed = true
				}
				last.Horizontal, last.Vertical = h, v
				if last.Source == AxisSourceNone {
					last.Source = ev.Source
				}
				return
			}
		}
	}
	p.pending = append(p.pending, ev)
}

func (p *Pointer) frame() {
	events := p.pending
	p.pending = nil
	if len(events) > 0 {
		p.emit(events)
	}
}

// emit finalizes pending events. An axis record that never received a
// timestamp takes the time of the latest pointer event seen.
func (p *Pointer) emit(events []pending) {
	out := make([]Event, len(events))
	for i, ev := range events {
		if !ev.timed {
			logger.Debug("axis frame without timestamp", "time", p.lastTime)
			ev.Time = p.lastTime
		}
		out[i] = ev.Event
	}
	if p.handler != nil {
		p.handler.PointerFrame(p, out)
	}
}
