package protocols

import (
	"github.com/bnema/wlturbo/wl"
)

// Protocol interface names
const (
	CursorShapeManagerInterface = "wp_cursor_shape_manager_v1"
	CursorShapeDeviceInterface  = "wp_cursor_shape_device_v1"
)

// CursorShapeManager is a wp_cursor_shape_manager_v1.
type CursorShapeManager struct {
	Proxy
}

// NewCursorShapeManager creates an unbound manager proxy
func NewCursorShapeManager(ctx *wl.Context, q Queue) *CursorShapeManager {
	m := &CursorShapeManager{}
	m.setup(ctx, q, 1)
	return m
}

// GetPointer creates a shape device for a wl_pointer
func (m *CursorShapeManager) GetPointer(pointer *Pointer) (*CursorShapeDevice, error) {
	dev := &CursorShapeDevice{}
	id := m.create(dev)

	// Opcode 1: get_pointer
	const opcode = 1
	if err := m.send(opcode, id, pointer.ID()); err != nil {
		m.forget(dev)
		return nil, err
	}
	return dev, nil
}

// GetTabletToolV2 creates a shape device for a tablet tool
func (m *CursorShapeManager) GetTabletToolV2(tool *TabletTool) (*CursorShapeDevice, error) {
	dev := &CursorShapeDevice{}
	id := m.create(dev)

	// Opcode 2: get_tablet_tool_v2
	const opcode = 2
	if err := m.send(opcode, id, tool.ID()); err != nil {
		m.forget(dev)
		return nil, err
	}
	return dev, nil
}

// Destroy destroys the manager
func (m *CursorShapeManager) Destroy() error {
	return m.destroy(m, 0)
}

// CursorShapeDevice is a wp_cursor_shape_device_v1.
type CursorShapeDevice struct {
	Proxy
}

// SetShape sets the cursor for the enter event identified by serial
func (d *CursorShapeDevice) SetShape(serial, shape uint32) error {
	// Opcode 1: set_shape
	const opcode = 1
	return d.send(opcode, serial, shape)
}

// Destroy destroys the device
func (d *CursorShapeDevice) Destroy() error {
	return d.destroy(d, 0)
}
