package pointer

import (
	"errors"
	"image/color"

	"github.com/bnema/waykit/internal/logger"
	"github.com/bnema/waykit/internal/raster"
	"github.com/bnema/waykit/shm"
)

// DefaultCursorSize is the software cursor size in surface coordinates.
const DefaultCursorSize = 24

// ErrNoCursorSource is returned when a ThemedPointer has neither a shape
// device nor a cursor surface.
var ErrNoCursorSource = errors.New("no cursor shape device or cursor surface")

// ShapeDevice is a wp_cursor_shape_device_v1.
type ShapeDevice interface {
	Version() uint32
	SetShape(serial, shape uint32) error
	Destroy() error
}

// CursorSurface is the wl_surface showing the software cursor.
type CursorSurface interface {
	shm.Attacher
	ID() uint32
	DamageBuffer(x, y, width, height int32) error
	SetBufferScale(scale int32) error
	Commit() error
	Destroy() error
}

// BufferSource hands out the cursor buffer; shm.SimplePool implements it.
type BufferSource interface {
	Buffer(width, height, stride int, format uint32) (*shm.Buffer, []byte, error)
	Close() error
}

// ThemedPointer is a Pointer that sets cursors by icon. It uses the
// compositor's cursor shapes when available and otherwise draws a built-in
// cursor into a shm buffer.
type ThemedPointer struct {
	*Pointer

	shape   ShapeDevice
	surface CursorSurface
	pool    BufferSource
	size    int
	scale   int32

	drawn    CursorIcon
	hasDrawn bool
}

// NewShaped uses dev for every cursor change.
func NewShaped(p *Pointer, dev ShapeDevice) *ThemedPointer {
	return &ThemedPointer{Pointer: p, shape: dev, scale: 1}
}

// NewSoftware draws cursors of size (surface coordinates) into pool and
// shows them on surface.
func NewSoftware(p *Pointer, surface CursorSurface, pool BufferSource, size int) *ThemedPointer {
	if size <= 0 {
		size = DefaultCursorSize
	}
	return &ThemedPointer{Pointer: p, surface: surface, pool: pool, size: size, scale: 1}
}

// UsesShapes reports whether cursors go through the shape protocol.
func (t *ThemedPointer) UsesShapes() bool {
	return t.shape != nil
}

// SetScale sets the buffer scale of the software cursor.
func (t *ThemedPointer) SetScale(scale int32) {
	if scale < 1 {
		scale = 1
	}
	if scale != t.scale {
		t.scale = scale
		t.hasDrawn = false
	}
}

// SetCursor shows icon for the enter event identified by serial.
func (t *ThemedPointer) SetCursor(serial uint32, icon CursorIcon) error {
	if t.shape != nil {
		return t.shape.SetShape(serial, icon.Shape(t.shape.Version()))
	}
	if t.surface == nil {
		return ErrNoCursorSource
	}

	hx, hy := hotspot(icon, t.size)
	if !t.hasDrawn || t.drawn != icon {
		if err := t.draw(icon); err != nil {
			return err
		}
	}
	return t.wire.SetCursor(serial, t.surface, hx, hy)
}

// HideCursor hides the cursor for the enter event identified by serial.
func (t *ThemedPointer) HideCursor(serial uint32) error {
	return t.wire.SetCursor(serial, nil, 0, 0)
}

func (t *ThemedPointer) draw(icon CursorIcon) error {
	px := t.size * int(t.scale)
	stride := px * 4
	buf, mem, err := t.pool.Buffer(px, px, stride, shm.FormatARGB8888)
	if err != nil {
		if errors.Is(err, shm.ErrInUse) && t.hasDrawn {
			// the compositor still shows the previous image
			logger.Debug("cursor buffer busy, keeping previous image", "icon", icon)
			return nil
		}
		return err
	}

	canvas := raster.NewCanvas(mem, px, px, stride)
	canvas.Clear()
	paintCursor(canvas, icon, float32(t.scale)*float32(t.size)/DefaultCursorSize)

	if err := t.surface.SetBufferScale(t.scale); err != nil {
		return err
	}
	if err := buf.AttachTo(t.surface, 0, 0); err != nil {
		return err
	}
	if err := t.surface.DamageBuffer(0, 0, int32(px), int32(px)); err != nil {
		return err
	}
	if err := t.surface.Commit(); err != nil {
		return err
	}
	t.drawn = icon
	t.hasDrawn = true
	return nil
}

// Release destroys the cursor resources and the pointer.
func (t *ThemedPointer) Release() error {
	var errs []error
	if t.shape != nil {
		errs = append(errs, t.shape.Destroy())
	}
	if t.pool != nil {
		errs = append(errs, t.pool.Close())
	}
	if t.surface != nil {
		errs = append(errs, t.surface.Destroy())
	}
	errs = append(errs, t.Pointer.Release())
	return errors.Join(errs...)
}

var (
	cursorInk     = color.NRGBA{A: 0xff}
	cursorOutline = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// arrow in a 24 unit box with its tip at the origin
var arrow = raster.Polygon{{1, 1}, {1, 18}, {5.5, 14}, {8.5, 21}, {11.5, 20}, {8.5, 13}, {14, 13}}

func hotspot(icon CursorIcon, size int) (int32, int32) {
	switch icon {
	case CursorText, CursorCrosshair, CursorMove, CursorAllScroll, CursorAllResize:
		return int32(size / 2), int32(size / 2)
	}
	return int32(size / DefaultCursorSize), int32(size / DefaultCursorSize)
}

func scalePolygon(p raster.Polygon, k float32) raster.Polygon {
	out := make(raster.Polygon, len(p))
	for i, pt := range p {
		out[i] = [2]float32{pt[0] * k, pt[1] * k}
	}
	return out
}

// paintCursor draws a simplified rendition of icon; k converts the 24
// unit design box to pixels.
func paintCursor(c raster.Canvas, icon CursorIcon, k float32) {
	switch icon {
	case CursorText, CursorVerticalText:
		c.FillPolygons(cursorOutline, scalePolygon(raster.Rect(10, 3, 14, 21), k))
		c.FillPolygons(cursorInk,
			scalePolygon(raster.Rect(11, 4, 13, 20), k),
			scalePolygon(raster.Rect(8, 4, 16, 5.5), k),
			scalePolygon(raster.Rect(8, 18.5, 16, 20), k),
		)
	case CursorCrosshair, CursorMove, CursorAllScroll, CursorAllResize:
		c.FillPolygons(cursorOutline,
			scalePolygon(raster.Rect(10.5, 2, 13.5, 22), k),
			scalePolygon(raster.Rect(2, 10.5, 22, 13.5), k),
		)
		c.FillPolygons(cursorInk,
			scalePolygon(raster.Rect(11.25, 3, 12.75, 21), k),
			scalePolygon(raster.Rect(3, 11.25, 21, 12.75), k),
		)
	default:
		c.FillPolygons(cursorOutline, scalePolygon(arrow, k*1.08))
		c.FillPolygons(cursorInk, scalePolygon(arrow, k))
	}
}
