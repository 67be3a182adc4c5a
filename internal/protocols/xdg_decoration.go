package protocols

import (
	"github.com/bnema/wlturbo/wl"
)

// Protocol interface names
const (
	DecorationManagerInterface  = "zxdg_decoration_manager_v1"
	ToplevelDecorationInterface = "zxdg_toplevel_decoration_v1"
)

// Decoration modes
const (
	DecorationModeClientSide = 1
	DecorationModeServerSide = 2
)

// DecorationManager is a zxdg_decoration_manager_v1.
type DecorationManager struct {
	Proxy
}

// NewDecorationManager creates an unbound manager proxy
func NewDecorationManager(ctx *wl.Context, q Queue) *DecorationManager {
	m := &DecorationManager{}
	m.setup(ctx, q, 1)
	return m
}

// GetToplevelDecoration creates the decoration object of a toplevel
func (m *DecorationManager) GetToplevelDecoration(toplevel *XdgToplevel) (*ToplevelDecoration, error) {
	d := &ToplevelDecoration{}
	id := m.create(d)

	// Opcode 1: get_toplevel_decoration
	const opcode = 1
	if err := m.send(opcode, id, toplevel.ID()); err != nil {
		m.forget(d)
		return nil, err
	}
	return d, nil
}

// Destroy destroys the manager
func (m *DecorationManager) Destroy() error {
	return m.destroy(m, 0)
}

// ToplevelDecoration is a zxdg_toplevel_decoration_v1.
type ToplevelDecoration struct {
	Proxy
	configureHandler func(uint32)
}

// SetConfigureHandler sets the handler for configure events
func (d *ToplevelDecoration) SetConfigureHandler(handler func(mode uint32)) {
	d.configureHandler = handler
}

// SetMode asks for a decoration mode
func (d *ToplevelDecoration) SetMode(mode uint32) error {
	return d.send(1, mode)
}

// UnsetMode lets the compositor choose
func (d *ToplevelDecoration) UnsetMode() error {
	return d.send(2)
}

// Destroy destroys the decoration object
func (d *ToplevelDecoration) Destroy() error {
	return d.destroy(d, 0)
}

// Dispatch handles incoming events
func (d *ToplevelDecoration) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0: // configure
		mode := event.Uint32()
		d.emit(func() {
			if d.configureHandler != nil {
				d.configureHandler(mode)
			}
		})
	}
}
