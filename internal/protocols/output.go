package protocols

import (
	"github.com/bnema/wlturbo/wl"
)

// Protocol interface names
const (
	OutputInterface           = "wl_output"
	XdgOutputManagerInterface = "zxdg_output_manager_v1"
	XdgOutputInterface        = "zxdg_output_v1"
)

// OutputGeometry carries a wl_output.geometry event
type OutputGeometry struct {
	X, Y                          int32
	PhysicalWidth, PhysicalHeight int32
	Subpixel                      int32
	Make, Model                   string
	Transform                     int32
}

// OutputMode carries a wl_output.mode event
type OutputMode struct {
	Flags         uint32
	Width, Height int32
	Refresh       int32
}

// Output mode flags
const (
	OutputModeCurrent   = 0x1
	OutputModePreferred = 0x2
)

// Output is a wl_output.
type Output struct {
	Proxy
	geometryHandler    func(OutputGeometry)
	modeHandler        func(OutputMode)
	doneHandler        func()
	scaleHandler       func(int32)
	nameHandler        func(string)
	descriptionHandler func(string)
}

// NewOutput creates an unbound wl_output proxy
func NewOutput(ctx *wl.Context, q Queue) *Output {
	o := &Output{}
	o.setup(ctx, q, 1)
	return o
}

// SetGeometryHandler sets the handler for geometry events
func (o *Output) SetGeometryHandler(handler func(OutputGeometry)) {
	o.geometryHandler = handler
}

// SetModeHandler sets the handler for mode events
func (o *Output) SetModeHandler(handler func(OutputMode)) {
	o.modeHandler = handler
}

// SetDoneHandler sets the handler for done events (version 2)
func (o *Output) SetDoneHandler(handler func()) {
	o.doneHandler = handler
}

// SetScaleHandler sets the handler for scale events (version 2)
func (o *Output) SetScaleHandler(handler func(int32)) {
	o.scaleHandler = handler
}

// SetNameHandler sets the handler for name events (version 4)
func (o *Output) SetNameHandler(handler func(string)) {
	o.nameHandler = handler
}

// SetDescriptionHandler sets the handler for description events (version 4)
func (o *Output) SetDescriptionHandler(handler func(string)) {
	o.descriptionHandler = handler
}

// Release releases the output (version 3); older objects are just forgotten
func (o *Output) Release() error {
	if o.version < 3 {
		o.destroyed = true
		o.forget(o)
		return nil
	}
	return o.destroy(o, 0)
}

// Dispatch handles incoming events
func (o *Output) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0: // geometry
		g := OutputGeometry{
			X:              event.Int32(),
			Y:              event.Int32(),
			PhysicalWidth:  event.Int32(),
			PhysicalHeight: event.Int32(),
			Subpixel:       event.Int32(),
			Make:           event.String(),
			Model:          event.String(),
			Transform:      event.Int32(),
		}
		o.emit(func() {
			if o.geometryHandler != nil {
				o.geometryHandler(g)
			}
		})
	case 1: // mode
		m := OutputMode{
			Flags:   event.Uint32(),
			Width:   event.Int32(),
			Height:  event.Int32(),
			Refresh: event.Int32(),
		}
		o.emit(func() {
			if o.modeHandler != nil {
				o.modeHandler(m)
			}
		})
	case 2: // done
		o.emit(func() {
			if o.doneHandler != nil {
				o.doneHandler()
			}
		})
	case 3: // scale
		factor := event.Int32()
		o.emit(func() {
			if o.scaleHandler != nil {
				o.scaleHandler(factor)
			}
		})
	case 4: // name
		name := event.String()
		o.emit(func() {
			if o.nameHandler != nil {
				o.nameHandler(name)
			}
		})
	case 5: // description
		desc := event.String()
		o.emit(func() {
			if o.descriptionHandler != nil {
				o.descriptionHandler(desc)
			}
		})
	}
}

// XdgOutputManager is a zxdg_output_manager_v1.
type XdgOutputManager struct {
	Proxy
}

// NewXdgOutputManager creates an unbound manager proxy
func NewXdgOutputManager(ctx *wl.Context, q Queue) *XdgOutputManager {
	m := &XdgOutputManager{}
	m.setup(ctx, q, 1)
	return m
}

// GetXdgOutput creates the extension object for output
func (m *XdgOutputManager) GetXdgOutput(output *Output) (*XdgOutput, error) {
	xo := &XdgOutput{}
	id := m.create(xo)

	// Opcode 1: get_xdg_output
	const opcode = 1
	if err := m.send(opcode, id, output.ID()); err != nil {
		m.forget(xo)
		return nil, err
	}
	return xo, nil
}

// Destroy destroys the manager
func (m *XdgOutputManager) Destroy() error {
	return m.destroy(m, 0)
}

// XdgOutput is a zxdg_output_v1.
type XdgOutput struct {
	Proxy
	logicalPositionHandler func(int32, int32)
	logicalSizeHandler     func(int32, int32)
	doneHandler            func()
	nameHandler            func(string)
	descriptionHandler     func(string)
}

// SetLogicalPositionHandler sets the handler for logical_position events
func (x *XdgOutput) SetLogicalPositionHandler(handler func(int32, int32)) {
	x.logicalPositionHandler = handler
}

// SetLogicalSizeHandler sets the handler for logical_size events
func (x *XdgOutput) SetLogicalSizeHandler(handler func(int32, int32)) {
	x.logicalSizeHandler = handler
}

// SetDoneHandler sets the handler for done events
func (x *XdgOutput) SetDoneHandler(handler func()) {
	x.doneHandler = handler
}

// SetNameHandler sets the handler for name events (version 2)
func (x *XdgOutput) SetNameHandler(handler func(string)) {
	x.nameHandler = handler
}

// SetDescriptionHandler sets the handler for description events (version 2)
func (x *XdgOutput) SetDescriptionHandler(handler func(string)) {
	x.descriptionHandler = handler
}

// Destroy destroys the extension object
func (x *XdgOutput) Destroy() error {
	return x.destroy(x, 0)
}

// Dispatch handles incoming events
func (x *XdgOutput) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0: // logical_position
		px, py := event.Int32(), event.Int32()
		x.emit(func() {
			if x.logicalPositionHandler != nil {
				x.logicalPositionHandler(px, py)
			}
		})
	case 1: // logical_size
		w, h := event.Int32(), event.Int32()
		x.emit(func() {
			if x.logicalSizeHandler != nil {
				x.logicalSizeHandler(w, h)
			}
		})
	case 2: // done
		x.emit(func() {
			if x.doneHandler != nil {
				x.doneHandler()
			}
		})
	case 3: // name
		name := event.String()
		x.emit(func() {
			if x.nameHandler != nil {
				x.nameHandler(name)
			}
		})
	case 4: // description
		desc := event.String()
		x.emit(func() {
			if x.descriptionHandler != nil {
				x.descriptionHandler(desc)
			}
		})
	}
}
