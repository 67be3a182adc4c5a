package tablet

import (
	"fmt"
	"strings"

	"github.com/bnema/waykit/internal/logger"
	"github.com/bnema/waykit/internal/protocols"
)

// ToolType is the physical type of a tool.
type ToolType uint32

// Tool types of zwp_tablet_tool_v2.
const (
	ToolPen      ToolType = 0x140
	ToolEraser   ToolType = 0x141
	ToolBrush    ToolType = 0x142
	ToolPencil   ToolType = 0x143
	ToolAirbrush ToolType = 0x144
	ToolFinger   ToolType = 0x145
	ToolMouse    ToolType = 0x146
	ToolLens     ToolType = 0x147
)

var toolTypeNames = map[ToolType]string{
	ToolPen:      "pen",
	ToolEraser:   "eraser",
	ToolBrush:    "brush",
	ToolPencil:   "pencil",
	ToolAirbrush: "airbrush",
	ToolFinger:   "finger",
	ToolMouse:    "mouse",
	ToolLens:     "lens",
}

func (t ToolType) String() string {
	if name, ok := toolTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tool(%#x)", uint32(t))
}

// Capability is a set of axes a tool supports.
type Capability uint8

// Capabilities.
const (
	CapTilt Capability = 1 << iota
	CapPressure
	CapDistance
	CapRotation
	CapSlider
	CapWheel
)

func (c Capability) String() string {
	var names []string
	for i, name := range []string{"tilt", "pressure", "distance", "rotation", "slider", "wheel"} {
		if c&(1<<i) != 0 {
			names = append(names, name)
		}
	}
	return "(" + strings.Join(names, ", ") + ")"
}

// HardwareID is a 64-bit identifier sent as two halves.
type HardwareID struct {
	Hi, Lo uint32
}

// Uint64 joins the halves.
func (h HardwareID) Uint64() uint64 {
	return uint64(h.Hi)<<32 | uint64(h.Lo)
}

// Description is the static description of a tool, complete once the
// compositor sent done.
type Description struct {
	Type         ToolType
	Capabilities Capability

	HardwareSerial    HardwareID
	HasHardwareSerial bool
	HardwareIDWacom   HardwareID
	HasHardwareID     bool
}

// Supports reports whether every capability in c is present.
func (d Description) Supports(c Capability) bool {
	return d.Capabilities&c == c
}

// EventKind is the type of a tool Event.
type EventKind int

// Event kinds.
const (
	EventProximityIn EventKind = iota
	EventProximityOut
	EventDown
	EventUp
	EventMotion
	EventPressure
	EventDistance
	EventTilt
	EventRotation
	EventSlider
	EventWheel
	EventButton
)

// Event is one tool event inside a frame. Fields not meaningful for Kind
// are zero.
type Event struct {
	Kind    EventKind
	Serial  uint32
	Tablet  uint32
	Surface uint32
	// X and Y carry motion and tilt.
	X, Y float64
	// Value carries pressure, distance and slider.
	Value   int32
	Degrees float64
	Clicks  int32
	Button  uint32
	Pressed bool
}

// Stylus buttons from linux/input-event-codes.h.
const (
	ButtonStylus  = 0x14b
	ButtonStylus2 = 0x14c
	ButtonStylus3 = 0x149
)

// State is the accumulated state of a tool in proximity.
type State struct {
	ProximitySerial uint32
	Tablet          uint32
	Surface         uint32

	Down       bool
	DownSerial uint32
	X, Y       float64
	// Pressure and Distance are normalized to 0..65535.
	Pressure     uint16
	Distance     uint16
	TiltX, TiltY float64
	Rotation     float64
	Slider       int32
	// Wheel values accumulate deltas.
	WheelDegrees float64
	WheelClicks  int32
	Stylus       [3]bool
}

func (s *State) apply(ev Event) {
	switch ev.Kind {
	case EventDown:
		s.Down, s.DownSerial = true, ev.Serial
	case EventUp:
		s.Down = false
	case EventMotion:
		s.X, s.Y = ev.X, ev.Y
	case EventPressure:
		s.Pressure = uint16(ev.Value)
	case EventDistance:
		s.Distance = uint16(ev.Value)
	case EventTilt:
		s.TiltX, s.TiltY = ev.X, ev.Y
	case EventRotation:
		s.Rotation = ev.Degrees
	case EventSlider:
		s.Slider = ev.Value
	case EventWheel:
		s.WheelDegrees += ev.Degrees
		s.WheelClicks += ev.Clicks
	case EventButton:
		switch ev.Button {
		case ButtonStylus:
			s.Stylus[0] = ev.Pressed
		case ButtonStylus2:
			s.Stylus[1] = ev.Pressed
		case ButtonStylus3:
			s.Stylus[2] = ev.Pressed
		}
	}
}

// PressureWeb returns pressure in 0..1 the way web pointer events report
// it: 0.5 while down for tools without pressure.
func (t *Tool) PressureWeb() float64 {
	switch {
	case t.state == nil:
		return 0
	case t.desc.Supports(CapPressure):
		return float64(t.state.Pressure) / 65535
	case t.state.Down:
		return 0.5
	}
	return 0
}

// ToolWire is the protocol object behind a Tool.
type ToolWire interface {
	Destroy() error
}

// Tool is a zwp_tablet_tool_v2.
type Tool struct {
	wire ToolWire
	seat *Seat

	desc    Description
	ready   bool
	removed bool

	frame []Event
	// out is set after a proximity_out until the end of the frame.
	out       bool
	state     *State
	frameTime uint32
}

func newTool(wire ToolWire, s *Seat) *Tool {
	return &Tool{wire: wire, seat: s}
}

func (t *Tool) handlers() protocols.TabletToolHandlers {
	return protocols.TabletToolHandlers{
		Type:            t.setType,
		HardwareSerial:  t.hardwareSerial,
		HardwareIDWacom: t.hardwareIDWacom,
		Capability:      t.capability,
		Done:            t.done,
		Removed:         t.remove,
		ProximityIn: func(serial, tablet, surface uint32) {
			t.push(Event{Kind: EventProximityIn, Serial: serial, Tablet: tablet, Surface: surface})
		},
		ProximityOut: func() { t.push(Event{Kind: EventProximityOut}) },
		Down:         func(serial uint32) { t.push(Event{Kind: EventDown, Serial: serial}) },
		Up:           func() { t.push(Event{Kind: EventUp}) },
		Motion:       func(x, y float64) { t.push(Event{Kind: EventMotion, X: x, Y: y}) },
		Pressure:     func(v uint32) { t.push(Event{Kind: EventPressure, Value: int32(v)}) },
		Distance:     func(v uint32) { t.push(Event{Kind: EventDistance, Value: int32(v)}) },
		Tilt:         func(x, y float64) { t.push(Event{Kind: EventTilt, X: x, Y: y}) },
		Rotation:     func(deg float64) { t.push(Event{Kind: EventRotation, Degrees: deg}) },
		Slider:       func(pos int32) { t.push(Event{Kind: EventSlider, Value: pos}) },
		Wheel: func(deg float64, clicks int32) {
			t.push(Event{Kind: EventWheel, Degrees: deg, Clicks: clicks})
		},
		Button: func(serial, button, state uint32) {
			t.push(Event{Kind: EventButton, Serial: serial, Button: button, Pressed: state == 1})
		},
		Frame: t.endFrame,
	}
}

// Description returns the tool description; valid once the tool was added.
func (t *Tool) Description() Description {
	return t.desc
}

// State returns the tool state, nil while out of proximity.
func (t *Tool) State() *State {
	if t.state == nil {
		return nil
	}
	s := *t.state
	return &s
}

// LastFrameTime returns the timestamp of the last frame.
func (t *Tool) LastFrameTime() uint32 {
	return t.frameTime
}

func (t *Tool) describing(event string) bool {
	if t.ready {
		logger.Warn("tablet tool description after done", "event", event)
		return false
	}
	return true
}

func (t *Tool) setType(v uint32) {
	if t.describing("type") {
		t.desc.Type = ToolType(v)
	}
}

func (t *Tool) hardwareSerial(hi, lo uint32) {
	if t.describing("hardware_serial") {
		t.desc.HardwareSerial = HardwareID{hi, lo}
		t.desc.HasHardwareSerial = true
	}
}

func (t *Tool) hardwareIDWacom(hi, lo uint32) {
	if t.describing("hardware_id_wacom") {
		t.desc.HardwareIDWacom = HardwareID{hi, lo}
		t.desc.HasHardwareID = true
	}
}

func (t *Tool) capability(v uint32) {
	if !t.describing("capability") {
		return
	}
	if v < 1 || v > 6 {
		logger.Debug("unknown tablet tool capability", "capability", v)
		return
	}
	t.desc.Capabilities |= 1 << (v - 1)
}

func (t *Tool) done() {
	if t.ready {
		return
	}
	t.ready = true
	t.seat.toolReady(t)
}

func (t *Tool) push(ev Event) {
	if t.out {
		logger.Debug("dropping tablet tool event after proximity out", "kind", ev.Kind)
		return
	}
	if ev.Kind == EventProximityOut {
		t.out = true
	}
	t.frame = append(t.frame, ev)
}

func (t *Tool) endFrame(time uint32) {
	events := t.frame
	t.frame = nil
	t.out = false
	t.frameTime = time

	if t.state == nil {
		if len(events) == 0 || events[0].Kind != EventProximityIn {
			logger.Warn("tablet tool frame outside proximity", "events", len(events))
			return
		}
		in := events[0]
		t.state = &State{ProximitySerial: in.Serial, Tablet: in.Tablet, Surface: in.Surface}
	}
	for _, ev := range events {
		if ev.Kind == EventProximityOut {
			t.state = nil
			break
		}
		if ev.Kind == EventProximityIn {
			continue
		}
		t.state.apply(ev)
	}
	t.seat.toolFrame(t, time, events)
}

func (t *Tool) remove() {
	if t.removed {
		return
	}
	t.removed = true
	t.state = nil
	if err := t.wire.Destroy(); err != nil {
		logger.Warn("failed to destroy tablet tool", "error", err)
	}
	t.seat.toolRemoved(t)
}
