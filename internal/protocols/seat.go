package protocols

import (
	"github.com/bnema/wlturbo/wl"
)

// Protocol interface names
const (
	SeatInterface     = "wl_seat"
	PointerInterface  = "wl_pointer"
	KeyboardInterface = "wl_keyboard"
	TouchInterface    = "wl_touch"
)

// Seat capability bits
const (
	SeatCapabilityPointer  = 1
	SeatCapabilityKeyboard = 2
	SeatCapabilityTouch    = 4
)

// Seat is a wl_seat.
type Seat struct {
	Proxy
	capabilitiesHandler func(uint32)
	nameHandler         func(string)
}

// NewSeat creates an unbound wl_seat proxy
func NewSeat(ctx *wl.Context, q Queue) *Seat {
	s := &Seat{}
	s.setup(ctx, q, 1)
	return s
}

// SetCapabilitiesHandler sets the handler for capabilities events
func (s *Seat) SetCapabilitiesHandler(handler func(uint32)) {
	s.capabilitiesHandler = handler
}

// SetNameHandler sets the handler for name events (version 2)
func (s *Seat) SetNameHandler(handler func(string)) {
	s.nameHandler = handler
}

// GetPointer creates the seat's pointer device
func (s *Seat) GetPointer() (*Pointer, error) {
	p := &Pointer{}
	id := s.create(p)
	if err := s.send(0, id); err != nil {
		s.forget(p)
		return nil, err
	}
	return p, nil
}

// GetKeyboard creates the seat's keyboard device
func (s *Seat) GetKeyboard() (*Keyboard, error) {
	k := &Keyboard{}
	id := s.create(k)
	if err := s.send(1, id); err != nil {
		s.forget(k)
		return nil, err
	}
	return k, nil
}

// GetTouch creates the seat's touch device
func (s *Seat) GetTouch() (*Touch, error) {
	t := &Touch{}
	id := s.create(t)
	if err := s.send(2, id); err != nil {
		s.forget(t)
		return nil, err
	}
	return t, nil
}

// Release releases the seat (version 5)
func (s *Seat) Release() error {
	if s.version < 5 {
		s.destroyed = true
		s.forget(s)
		return nil
	}
	return s.destroy(s, 3)
}

// Dispatch handles incoming events
func (s *Seat) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0: // capabilities
		caps := event.Uint32()
		s.emit(func() {
			if s.capabilitiesHandler != nil {
				s.capabilitiesHandler(caps)
			}
		})
	case 1: // name
		name := event.String()
		s.emit(func() {
			if s.nameHandler != nil {
				s.nameHandler(name)
			}
		})
	}
}

// PointerEnter carries a wl_pointer.enter event
type PointerEnter struct {
	Serial  uint32
	Surface uint32
	X, Y    float64
}

// PointerButton carries a wl_pointer.button event
type PointerButton struct {
	Serial uint32
	Time   uint32
	Button uint32
	State  uint32
}

// PointerHandlers receives wl_pointer events. Nil members are skipped.
type PointerHandlers struct {
	Enter                 func(PointerEnter)
	Leave                 func(serial, surface uint32)
	Motion                func(time uint32, x, y float64)
	Button                func(PointerButton)
	Axis                  func(time, axis uint32, value float64)
	Frame                 func()
	AxisSource            func(source uint32)
	AxisStop              func(time, axis uint32)
	AxisDiscrete          func(axis uint32, discrete int32)
	AxisValue120          func(axis uint32, value120 int32)
	AxisRelativeDirection func(axis, direction uint32)
}

// Pointer is a wl_pointer.
type Pointer struct {
	Proxy
	handlers PointerHandlers
}

// SetHandlers replaces the event handlers
func (p *Pointer) SetHandlers(h PointerHandlers) {
	p.handlers = h
}

// SetCursor sets the cursor image; a nil surface hides the cursor.
func (p *Pointer) SetCursor(serial uint32, surface wl.Object, hotspotX, hotspotY int32) error {
	// Opcode 0: set_cursor
	const opcode = 0
	return p.send(opcode, serial, objectID(surface), hotspotX, hotspotY)
}

// Release releases the pointer (version 3)
func (p *Pointer) Release() error {
	if p.version < 3 {
		p.destroyed = true
		p.forget(p)
		return nil
	}
	return p.destroy(p, 1)
}

// Dispatch handles incoming events
func (p *Pointer) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0: // enter
		e := PointerEnter{
			Serial:  event.Uint32(),
			Surface: event.Uint32(),
			X:       fixedFloat(event.Fixed()),
			Y:       fixedFloat(event.Fixed()),
		}
		p.emit(func() {
			if p.handlers.Enter != nil {
				p.handlers.Enter(e)
			}
		})
	case 1: // leave
		serial, surface := event.Uint32(), event.Uint32()
		p.emit(func() {
			if p.handlers.Leave != nil {
				p.handlers.Leave(serial, surface)
			}
		})
	case 2: // motion
		time := event.Uint32()
		x, y := fixedFloat(event.Fixed()), fixedFloat(event.Fixed())
		p.emit(func() {
			if p.handlers.Motion != nil {
				p.handlers.Motion(time, x, y)
			}
		})
	case 3: // button
		b := PointerButton{
			Serial: event.Uint32(),
			Time:   event.Uint32(),
			Button: event.Uint32(),
			State:  event.Uint32(),
		}
		p.emit(func() {
			if p.handlers.Button != nil {
				p.handlers.Button(b)
			}
		})
	case 4: // axis
		time, axis := event.Uint32(), event.Uint32()
		value := fixedFloat(event.Fixed())
		p.emit(func() {
			if p.handlers.Axis != nil {
				p.handlers.Axis(time, axis, value)
			}
		})
	case 5: // frame
		p.emit(func() {
			if p.handlers.Frame != nil {
				p.handlers.Frame()
			}
		})
	case 6: // axis_source
		source := event.Uint32()
		p.emit(func() {
			if p.handlers.AxisSource != nil {
				p.handlers.AxisSource(source)
			}
		})
	case 7: // axis_stop
		time, axis := event.Uint32(), event.Uint32()
		p.emit(func() {
			if p.handlers.AxisStop != nil {
				p.handlers.AxisStop(time, axis)
			}
		})
	case 8: // axis_discrete
		axis, discrete := event.Uint32(), event.Int32()
		p.emit(func() {
			if p.handlers.AxisDiscrete != nil {
				p.handlers.AxisDiscrete(axis, discrete)
			}
		})
	case 9: // axis_value120
		axis, v120 := event.Uint32(), event.Int32()
		p.emit(func() {
			if p.handlers.AxisValue120 != nil {
				p.handlers.AxisValue120(axis, v120)
			}
		})
	case 10: // axis_relative_direction
		axis, dir := event.Uint32(), event.Uint32()
		p.emit(func() {
			if p.handlers.AxisRelativeDirection != nil {
				p.handlers.AxisRelativeDirection(axis, dir)
			}
		})
	}
}

// KeyboardHandlers receives wl_keyboard events. Nil members are skipped.
type KeyboardHandlers struct {
	// Keymap owns fd and must close it.
	Keymap     func(format uint32, fd int, size uint32)
	Enter      func(serial, surface uint32, keys []uint32)
	Leave      func(serial, surface uint32)
	Key        func(serial, time, key, state uint32)
	Modifiers  func(serial, depressed, latched, locked, group uint32)
	RepeatInfo func(rate, delay int32)
}

// Keyboard is a wl_keyboard.
type Keyboard struct {
	Proxy
	handlers KeyboardHandlers
}

// SetHandlers replaces the event handlers
func (k *Keyboard) SetHandlers(h KeyboardHandlers) {
	k.handlers = h
}

// Release releases the keyboard (version 3)
func (k *Keyboard) Release() error {
	if k.version < 3 {
		k.destroyed = true
		k.forget(k)
		return nil
	}
	return k.destroy(k, 0)
}

// Dispatch handles incoming events
func (k *Keyboard) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0: // keymap
		format := event.Uint32()
		fd := int(event.Fd())
		size := event.Uint32()
		k.emit(func() {
			if k.handlers.Keymap != nil {
				k.handlers.Keymap(format, fd, size)
				return
			}
			closeFD(fd)
		})
	case 1: // enter
		serial, surface := event.Uint32(), event.Uint32()
		keys := uint32Array(event.Array())
		k.emit(func() {
			if k.handlers.Enter != nil {
				k.handlers.Enter(serial, surface, keys)
			}
		})
	case 2: // leave
		serial, surface := event.Uint32(), event.Uint32()
		k.emit(func() {
			if k.handlers.Leave != nil {
				k.handlers.Leave(serial, surface)
			}
		})
	case 3: // key
		serial, time, key, state := event.Uint32(), event.Uint32(), event.Uint32(), event.Uint32()
		k.emit(func() {
			if k.handlers.Key != nil {
				k.handlers.Key(serial, time, key, state)
			}
		})
	case 4: // modifiers
		serial := event.Uint32()
		dep, lat, lock, group := event.Uint32(), event.Uint32(), event.Uint32(), event.Uint32()
		k.emit(func() {
			if k.handlers.Modifiers != nil {
				k.handlers.Modifiers(serial, dep, lat, lock, group)
			}
		})
	case 5: // repeat_info
		rate, delay := event.Int32(), event.Int32()
		k.emit(func() {
			if k.handlers.RepeatInfo != nil {
				k.handlers.RepeatInfo(rate, delay)
			}
		})
	}
}

// TouchDown carries a wl_touch.down event
type TouchDown struct {
	Serial  uint32
	Time    uint32
	Surface uint32
	ID      int32
	X, Y    float64
}

// TouchHandlers receives wl_touch events. Nil members are skipped.
type TouchHandlers struct {
	Down        func(TouchDown)
	Up          func(serial, time uint32, id int32)
	Motion      func(time uint32, id int32, x, y float64)
	Frame       func()
	Cancel      func()
	Shape       func(id int32, major, minor float64)
	Orientation func(id int32, orientation float64)
}

// Touch is a wl_touch.
type Touch struct {
	Proxy
	handlers TouchHandlers
}

// SetHandlers replaces the event handlers
func (t *Touch) SetHandlers(h TouchHandlers) {
	t.handlers = h
}

// Release releases the touch device (version 3)
func (t *Touch) Release() error {
	if t.version < 3 {
		t.destroyed = true
		t.forget(t)
		return nil
	}
	return t.destroy(t, 0)
}

// Dispatch handles incoming events
func (t *Touch) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0: // down
		d := TouchDown{
			Serial:  event.Uint32(),
			Time:    event.Uint32(),
			Surface: event.Uint32(),
			ID:      event.Int32(),
			X:       fixedFloat(event.Fixed()),
			Y:       fixedFloat(event.Fixed()),
		}
		t.emit(func() {
			if t.handlers.Down != nil {
				t.handlers.Down(d)
			}
		})
	case 1: // up
		serial, time, id := event.Uint32(), event.Uint32(), event.Int32()
		t.emit(func() {
			if t.handlers.Up != nil {
				t.handlers.Up(serial, time, id)
			}
		})
	case 2: // motion
		time, id := event.Uint32(), event.Int32()
		x, y := fixedFloat(event.Fixed()), fixedFloat(event.Fixed())
		t.emit(func() {
			if t.handlers.Motion != nil {
				t.handlers.Motion(time, id, x, y)
			}
		})
	case 3: // frame
		t.emit(func() {
			if t.handlers.Frame != nil {
				t.handlers.Frame()
			}
		})
	case 4: // cancel
		t.emit(func() {
			if t.handlers.Cancel != nil {
				t.handlers.Cancel()
			}
		})
	case 5: // shape
		id := event.Int32()
		major, minor := fixedFloat(event.Fixed()), fixedFloat(event.Fixed())
		t.emit(func() {
			if t.handlers.Shape != nil {
				t.handlers.Shape(id, major, minor)
			}
		})
	case 6: // orientation
		id := event.Int32()
		o := fixedFloat(event.Fixed())
		t.emit(func() {
			if t.handlers.Orientation != nil {
				t.handlers.Orientation(id, o)
			}
		})
	}
}
