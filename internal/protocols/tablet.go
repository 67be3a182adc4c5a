package protocols

import (
	"github.com/bnema/wlturbo/wl"
)

// Protocol interface names
const (
	TabletManagerInterface = "zwp_tablet_manager_v2"
	TabletSeatInterface    = "zwp_tablet_seat_v2"
	TabletInterface        = "zwp_tablet_v2"
	TabletToolInterface    = "zwp_tablet_tool_v2"
	TabletPadInterface     = "zwp_tablet_pad_v2"
)

// TabletManager is a zwp_tablet_manager_v2.
type TabletManager struct {
	Proxy
}

// NewTabletManager creates an unbound manager proxy
func NewTabletManager(ctx *wl.Context, q Queue) *TabletManager {
	m := &TabletManager{}
	m.setup(ctx, q, 1)
	return m
}

// GetTabletSeat creates the tablet seat of a wl_seat
func (m *TabletManager) GetTabletSeat(seat *Seat) (*TabletSeat, error) {
	ts := &TabletSeat{}
	id := m.create(ts)

	// Opcode 0: get_tablet_seat
	const opcode = 0
	if err := m.send(opcode, id, seat.ID()); err != nil {
		m.forget(ts)
		return nil, err
	}
	return ts, nil
}

// Destroy destroys the manager
func (m *TabletManager) Destroy() error {
	return m.destroy(m, 1)
}

// TabletSeat is a zwp_tablet_seat_v2. Devices are announced as new objects.
type TabletSeat struct {
	Proxy
	tabletAddedHandler func(*Tablet)
	toolAddedHandler   func(*TabletTool)
	padAddedHandler    func(*TabletPad)
}

// SetTabletAddedHandler sets the handler for tablet_added events
func (s *TabletSeat) SetTabletAddedHandler(handler func(*Tablet)) {
	s.tabletAddedHandler = handler
}

// SetToolAddedHandler sets the handler for tool_added events
func (s *TabletSeat) SetToolAddedHandler(handler func(*TabletTool)) {
	s.toolAddedHandler = handler
}

// SetPadAddedHandler sets the handler for pad_added events
func (s *TabletSeat) SetPadAddedHandler(handler func(*TabletPad)) {
	s.padAddedHandler = handler
}

// Destroy destroys the tablet seat
func (s *TabletSeat) Destroy() error {
	return s.destroy(s, 0)
}

// Dispatch handles incoming events
func (s *TabletSeat) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0: // tablet_added
		t := &Tablet{}
		s.adopt(t, event.Uint32())
		s.emit(func() {
			if s.tabletAddedHandler != nil {
				s.tabletAddedHandler(t)
			}
		})
	case 1: // tool_added
		tool := &TabletTool{}
		s.adopt(tool, event.Uint32())
		s.emit(func() {
			if s.toolAddedHandler != nil {
				s.toolAddedHandler(tool)
			}
		})
	case 2: // pad_added
		pad := &TabletPad{}
		s.adopt(pad, event.Uint32())
		s.emit(func() {
			if s.padAddedHandler != nil {
				s.padAddedHandler(pad)
			}
		})
	}
}

// TabletHandlers receives zwp_tablet_v2 events. Nil members are skipped.
type TabletHandlers struct {
	Name    func(string)
	ID      func(vid, pid uint32)
	Path    func(string)
	Done    func()
	Removed func()
}

// Tablet is a zwp_tablet_v2.
type Tablet struct {
	Proxy
	handlers TabletHandlers
}

// SetHandlers replaces the event handlers
func (t *Tablet) SetHandlers(h TabletHandlers) {
	t.handlers = h
}

// Destroy destroys the tablet object
func (t *Tablet) Destroy() error {
	return t.destroy(t, 0)
}

// Dispatch handles incoming events
func (t *Tablet) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0: // name
		name := event.String()
		t.emit(func() {
			if t.handlers.Name != nil {
				t.handlers.Name(name)
			}
		})
	case 1: // id
		vid, pid := event.Uint32(), event.Uint32()
		t.emit(func() {
			if t.handlers.ID != nil {
				t.handlers.ID(vid, pid)
			}
		})
	case 2: // path
		path := event.String()
		t.emit(func() {
			if t.handlers.Path != nil {
				t.handlers.Path(path)
			}
		})
	case 3: // done
		t.emit(func() {
			if t.handlers.Done != nil {
				t.handlers.Done()
			}
		})
	case 4: // removed
		t.emit(func() {
			if t.handlers.Removed != nil {
				t.handlers.Removed()
			}
		})
	}
}

// TabletToolHandlers receives zwp_tablet_tool_v2 events. Nil members are
// skipped.
type TabletToolHandlers struct {
	Type            func(uint32)
	HardwareSerial  func(hi, lo uint32)
	HardwareIDWacom func(hi, lo uint32)
	Capability      func(uint32)
	Done            func()
	Removed         func()
	ProximityIn     func(serial, tablet, surface uint32)
	ProximityOut    func()
	Down            func(serial uint32)
	Up              func()
	Motion          func(x, y float64)
	Pressure        func(uint32)
	Distance        func(uint32)
	Tilt            func(x, y float64)
	Rotation        func(degrees float64)
	Slider          func(int32)
	Wheel           func(degrees float64, clicks int32)
	Button          func(serial, button, state uint32)
	Frame           func(time uint32)
}

// TabletTool is a zwp_tablet_tool_v2.
type TabletTool struct {
	Proxy
	handlers TabletToolHandlers
}

// SetHandlers replaces the event handlers
func (t *TabletTool) SetHandlers(h TabletToolHandlers) {
	t.handlers = h
}

// SetCursor sets the tool cursor image; a nil surface hides the cursor.
func (t *TabletTool) SetCursor(serial uint32, surface wl.Object, hotspotX, hotspotY int32) error {
	return t.send(0, serial, objectID(surface), hotspotX, hotspotY)
}

// Destroy destroys the tool object
func (t *TabletTool) Destroy() error {
	return t.destroy(t, 1)
}

// Dispatch handles incoming events
func (t *TabletTool) Dispatch(event *wl.Event) {
	h := &t.handlers
	switch event.Opcode {
	case 0: // type
		v := event.Uint32()
		t.emit(func() {
			if h.Type != nil {
				h.Type(v)
			}
		})
	case 1: // hardware_serial
		hi, lo := event.Uint32(), event.Uint32()
		t.emit(func() {
			if h.HardwareSerial != nil {
				h.HardwareSerial(hi, lo)
			}
		})
	case 2: // hardware_id_wacom
		hi, lo := event.Uint32(), event.Uint32()
		t.emit(func() {
			if h.HardwareIDWacom != nil {
				h.HardwareIDWacom(hi, lo)
			}
		})
	case 3: // capability
		v := event.Uint32()
		t.emit(func() {
			if h.Capability != nil {
				h.Capability(v)
			}
		})
	case 4: // done
		t.emit(func() {
			if h.Done != nil {
				h.Done()
			}
		})
	case 5: // removed
		t.emit(func() {
			if h.Removed != nil {
				h.Removed()
			}
		})
	case 6: // proximity_in
		serial, tablet, surface := event.Uint32(), event.Uint32(), event.Uint32()
		t.emit(func() {
			if h.ProximityIn != nil {
				h.ProximityIn(serial, tablet, surface)
			}
		})
	case 7: // proximity_out
		t.emit(func() {
			if h.ProximityOut != nil {
				h.ProximityOut()
			}
		})
	case 8: // down
		serial := event.Uint32()
		t.emit(func() {
			if h.Down != nil {
				h.Down(serial)
			}
		})
	case 9: // up
		t.emit(func() {
			if h.Up != nil {
				h.Up()
			}
		})
	case 10: // motion
		x, y := fixedFloat(event.Fixed()), fixedFloat(event.Fixed())
		t.emit(func() {
			if h.Motion != nil {
				h.Motion(x, y)
			}
		})
	case 11: // pressure
		v := event.Uint32()
		t.emit(func() {
			if h.Pressure != nil {
				h.Pressure(v)
			}
		})
	case 12: // distance
		v := event.Uint32()
		t.emit(func() {
			if h.Distance != nil {
				h.Distance(v)
			}
		})
	case 13: // tilt
		x, y := fixedFloat(event.Fixed()), fixedFloat(event.Fixed())
		t.emit(func() {
			if h.Tilt != nil {
				h.Tilt(x, y)
			}
		})
	case 14: // rotation
		deg := fixedFloat(event.Fixed())
		t.emit(func() {
			if h.Rotation != nil {
				h.Rotation(deg)
			}
		})
	case 15: // slider
		pos := event.Int32()
		t.emit(func() {
			if h.Slider != nil {
				h.Slider(pos)
			}
		})
	case 16: // wheel
		deg := fixedFloat(event.Fixed())
		clicks := event.Int32()
		t.emit(func() {
			if h.Wheel != nil {
				h.Wheel(deg, clicks)
			}
		})
	case 17: // button
		serial, button, state := event.Uint32(), event.Uint32(), event.Uint32()
		t.emit(func() {
			if h.Button != nil {
				h.Button(serial, button, state)
			}
		})
	case 18: // frame
		time := event.Uint32()
		t.emit(func() {
			if h.Frame != nil {
				h.Frame(time)
			}
		})
	}
}

// TabletPad is a zwp_tablet_pad_v2. Pad events are not interpreted; the
// object only exists so the pad can be destroyed when the seat goes away.
type TabletPad struct {
	Proxy
}

// Destroy destroys the pad object
func (p *TabletPad) Destroy() error {
	return p.destroy(p, 1)
}
