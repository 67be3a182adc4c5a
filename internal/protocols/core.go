package protocols

import (
	"github.com/bnema/wlturbo/wl"
)

// Interface names of the core objects
const (
	DisplayInterface       = "wl_display"
	CallbackInterface      = "wl_callback"
	CompositorInterface    = "wl_compositor"
	SubcompositorInterface = "wl_subcompositor"
	SubsurfaceInterface    = "wl_subsurface"
)

// Display addresses requests to the wl_display singleton. It is never
// registered with the context: the substrate owns the real display object.
type Display struct {
	Proxy
}

// NewDisplay creates a request-only handle on object 1.
func NewDisplay(ctx *wl.Context, q Queue) *Display {
	d := &Display{}
	d.setup(ctx, q, 1)
	d.SetID(1)
	return d
}

// Sync requests a callback fired once all prior requests were processed.
func (d *Display) Sync() (*Callback, error) {
	cb := &Callback{}
	id := d.create(cb)

	// Opcode 0: sync
	const opcode = 0
	if err := d.send(opcode, id); err != nil {
		d.forget(cb)
		return nil, err
	}
	return cb, nil
}

// Callback is a wl_callback.
type Callback struct {
	Proxy
	doneHandler func(uint32)
}

// SetDoneHandler sets the handler for the done event
func (c *Callback) SetDoneHandler(handler func(uint32)) {
	c.doneHandler = handler
}

// Dispatch handles incoming events
func (c *Callback) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0: // done
		data := event.Uint32()
		c.forget(c)
		c.emit(func() {
			if c.doneHandler != nil {
				c.doneHandler(data)
			}
		})
	}
}

// Compositor is a wl_compositor. Surfaces and regions are the substrate's
// own types.
type Compositor struct {
	Proxy
}

// NewCompositor creates an unbound compositor proxy
func NewCompositor(ctx *wl.Context, q Queue) *Compositor {
	c := &Compositor{}
	c.setup(ctx, q, 1)
	return c
}

// CreateSurface creates a new wl_surface
func (c *Compositor) CreateSurface() (*wl.Surface, error) {
	ctx := c.Context()
	s := wl.NewSurface(ctx)
	s.SetID(ctx.AllocateID())
	ctx.Register(s)

	// Opcode 0: create_surface
	const opcode = 0
	if err := c.send(opcode, s.ID()); err != nil {
		ctx.Unregister(s)
		return nil, err
	}
	return s, nil
}

// CreateRegion creates a new wl_region
func (c *Compositor) CreateRegion() (*wl.Region, error) {
	ctx := c.Context()
	r := &wl.Region{}
	r.SetContext(ctx)
	r.SetID(ctx.AllocateID())
	ctx.Register(r)

	// Opcode 1: create_region
	const opcode = 1
	if err := c.send(opcode, r.ID()); err != nil {
		ctx.Unregister(r)
		return nil, err
	}
	return r, nil
}

// Subcompositor is a wl_subcompositor.
type Subcompositor struct {
	Proxy
}

// NewSubcompositor creates an unbound subcompositor proxy
func NewSubcompositor(ctx *wl.Context, q Queue) *Subcompositor {
	s := &Subcompositor{}
	s.setup(ctx, q, 1)
	return s
}

// GetSubsurface turns surface into a sub-surface of parent.
func (s *Subcompositor) GetSubsurface(surface, parent *wl.Surface) (*Subsurface, error) {
	sub := &Subsurface{}
	id := s.create(sub)

	// Opcode 1: get_subsurface
	const opcode = 1
	if err := s.send(opcode, id, surface.ID(), parent.ID()); err != nil {
		s.forget(sub)
		return nil, err
	}
	return sub, nil
}

// Destroy destroys the subcompositor
func (s *Subcompositor) Destroy() error {
	return s.destroy(s, 0)
}

// Subsurface is a wl_subsurface.
type Subsurface struct {
	Proxy
}

// Destroy destroys the sub-surface role
func (s *Subsurface) Destroy() error {
	return s.destroy(s, 0)
}

// SetPosition positions the sub-surface relative to its parent
func (s *Subsurface) SetPosition(x, y int32) error {
	return s.send(1, x, y)
}

// SetSync makes the sub-surface commit with its parent
func (s *Subsurface) SetSync() error {
	return s.send(4)
}

// SetDesync makes the sub-surface commit independently
func (s *Subsurface) SetDesync() error {
	return s.send(5)
}
