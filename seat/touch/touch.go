// Package touch buffers wl_touch events until their frame.
package touch

import (
	"slices"

	"github.com/bnema/waykit/internal/protocols"
)

// Point is the last known state of one touch point.
type Point struct {
	ID      int32
	Surface uint32
	X, Y    float64
}

// Handler receives touch events on the loop goroutine, in arrival order,
// once their frame is complete.
type Handler interface {
	Down(t *Touch, serial, time uint32, p Point)
	Up(t *Touch, serial, time uint32, id int32)
	Motion(t *Touch, time uint32, p Point)
	Shape(t *Touch, id int32, major, minor float64)
	Orientation(t *Touch, id int32, orientation float64)
	// Cancel ends every active point; buffered events are discarded.
	Cancel(t *Touch)
}

// Wire is the protocol object behind a Touch.
type Wire interface {
	Release() error
}

// Touch is a wl_touch.
type Touch struct {
	wire    Wire
	handler Handler

	pending    []func()
	active     []int32
	points     map[int32]Point
	latestDown uint32
}

// New wraps wire, routing its events to h.
func New(wire *protocols.Touch, h Handler) *Touch {
	t := newTouch(wire, h)
	wire.SetHandlers(protocols.TouchHandlers{
		Down:        t.down,
		Up:          t.up,
		Motion:      t.motion,
		Frame:       t.frame,
		Cancel:      t.cancel,
		Shape:       t.shape,
		Orientation: t.orientation,
	})
	return t
}

func newTouch(wire Wire, h Handler) *Touch {
	return &Touch{wire: wire, handler: h, points: make(map[int32]Point)}
}

// Active returns the ids of the touch points currently down, ascending.
func (t *Touch) Active() []int32 {
	return slices.Clone(t.active)
}

// LatestDownSerial returns the serial of the last down event.
func (t *Touch) LatestDownSerial() uint32 {
	return t.latestDown
}

// Release releases the wire object.
func (t *Touch) Release() error {
	return t.wire.Release()
}

func (t *Touch) down(d protocols.TouchDown) {
	t.latestDown = d.Serial
	if i, found := slices.BinarySearch(t.active, d.ID); !found {
		t.active = slices.Insert(t.active, i, d.ID)
	}
	p := Point{ID: d.ID, Surface: d.Surface, X: d.X, Y: d.Y}
	t.points[d.ID] = p
	t.queue(func() { t.handler.Down(t, d.Serial, d.Time, p) })
}

func (t *Touch) up(serial, time uint32, id int32) {
	if i, found := slices.BinarySearch(t.active, id); found {
		t.active = slices.Delete(t.active, i, i+1)
	}
	delete(t.points, id)
	t.queue(func() { t.handler.Up(t, serial, time, id) })

	// some compositors send no frame after the last point is lifted
	if len(t.active) == 0 {
		t.frame()
	}
}

func (t *Touch) motion(time uint32, id int32, x, y float64) {
	p := t.points[id]
	p.ID, p.X, p.Y = id, x, y
	t.points[id] = p
	t.queue(func() { t.handler.Motion(t, time, p) })
}

func (t *Touch) shape(id int32, major, minor float64) {
	t.queue(func() { t.handler.Shape(t, id, major, minor) })
}

func (t *Touch) orientation(id int32, orientation float64) {
	t.queue(func() { t.handler.Orientation(t, id, orientation) })
}

func (t *Touch) queue(fn func()) {
	if t.handler != nil {
		t.pending = append(t.pending, fn)
	}
}

func (t *Touch) frame() {
	events := t.pending
	t.pending = nil
	for _, fn := range events {
		fn()
	}
}

func (t *Touch) cancel() {
	t.pending = nil
	t.active = nil
	clear(t.points)
	if t.handler != nil {
		t.handler.Cancel(t)
	}
}
