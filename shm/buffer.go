package shm

import (
	"sync/atomic"

	"github.com/bnema/wlturbo/wl"
)

// Attacher is implemented by wl.Surface.
type Attacher interface {
	Attach(buffer wl.Object, x, y int32) error
}

// Buffer is a wl_buffer carved out of a pool.
type Buffer struct {
	wire WireBuffer
	// free is true while the compositor does not hold the buffer.
	free      atomic.Bool
	onRelease func()
	destroyed bool

	Offset int
	Width  int
	Height int
	Stride int
	Format uint32
}

func newBuffer(wire WireBuffer, offset, width, height, stride int, format uint32) *Buffer {
	b := &Buffer{
		wire:   wire,
		Offset: offset,
		Width:  width,
		Height: height,
		Stride: stride,
		Format: format,
	}
	b.free.Store(true)
	wire.SetReleaseHandler(b.release)
	return b
}

func (b *Buffer) release() {
	b.free.Store(true)
	if b.onRelease != nil {
		b.onRelease()
	}
}

// Released reports whether the compositor released the buffer.
func (b *Buffer) Released() bool {
	return b.free.Load()
}

// Size returns the number of bytes the buffer covers.
func (b *Buffer) Size() int {
	return b.Stride * b.Height
}

// OnRelease sets a hook called on every release event.
func (b *Buffer) OnRelease(fn func()) {
	b.onRelease = fn
}

// MarkBusy flags the buffer as held by the compositor.
func (b *Buffer) MarkBusy() {
	b.free.Store(false)
}

// Object returns the wire object for requests taking a wl_buffer.
func (b *Buffer) Object() wl.Object {
	return b.wire
}

// AttachTo attaches the buffer to surface and marks it busy until the
// compositor releases it.
func (b *Buffer) AttachTo(surface Attacher, x, y int32) error {
	if b.destroyed {
		return ErrNotFound
	}
	b.MarkBusy()
	return surface.Attach(b.wire, x, y)
}

func (b *Buffer) sameGeometry(width, height, stride int, format uint32) bool {
	return b.Width == width && b.Height == height && b.Stride == stride && b.Format == format
}

// Destroy destroys the wire buffer. It is safe to call twice.
func (b *Buffer) Destroy() error {
	if b.destroyed {
		return nil
	}
	b.destroyed = true
	return b.wire.Destroy()
}
