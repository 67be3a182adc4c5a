package pointer

import (
	"errors"
	"testing"

	"github.com/bnema/waykit/shm"
	"github.com/bnema/wlturbo/wl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorIconNames(t *testing.T) {
	assert.Equal(t, "default", CursorDefault.String())
	assert.Equal(t, "nwse-resize", CursorNwseResize.String())
	assert.Equal(t, "all-resize", CursorAllResize.String())
	assert.Equal(t, "cursor(99)", CursorIcon(99).String())

	icon, err := ParseCursorIcon("col-resize")
	require.NoError(t, err)
	assert.Equal(t, CursorColResize, icon)
	_, err = ParseCursorIcon("hand")
	assert.Error(t, err)
}

func TestCursorShapeMapping(t *testing.T) {
	tests := []struct {
		icon    CursorIcon
		version uint32
		want    uint32
	}{
		{CursorDefault, 1, 1},
		{CursorPointer, 1, 4},
		{CursorText, 1, 9},
		{CursorZoomOut, 1, 34},
		{CursorDndAsk, 1, 1},
		{CursorDndAsk, 2, 35},
		{CursorAllResize, 1, 1},
		{CursorAllResize, 2, 36},
		{CursorIcon(-1), 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.icon.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.icon.Shape(tt.version))
		})
	}
}

type fakeShapeDevice struct {
	version   uint32
	shapes    []uint32
	destroyed bool
}

func (d *fakeShapeDevice) Version() uint32 { return d.version }

func (d *fakeShapeDevice) SetShape(_, shape uint32) error {
	d.shapes = append(d.shapes, shape)
	return nil
}

func (d *fakeShapeDevice) Destroy() error {
	d.destroyed = true
	return nil
}

func TestShapedCursor(t *testing.T) {
	wire := &fakeWire{version: 8}
	dev := &fakeShapeDevice{version: 1}
	tp := NewShaped(newPointer(wire, nil), dev)

	require.True(t, tp.UsesShapes())
	require.NoError(t, tp.SetCursor(3, CursorText))
	require.NoError(t, tp.SetCursor(3, CursorDndAsk))
	assert.Equal(t, []uint32{9, 1}, dev.shapes)
	assert.Empty(t, wire.cursors)

	require.NoError(t, tp.Release())
	assert.True(t, dev.destroyed)
	assert.True(t, wire.released)
}

type fakeCursorSurface struct {
	attached  int
	damage    [][4]int32
	scale     int32
	commits   int
	destroyed bool
}

func (s *fakeCursorSurface) ID() uint32 { return 77 }

func (s *fakeCursorSurface) Attach(wl.Object, int32, int32) error {
	s.attached++
	return nil
}

func (s *fakeCursorSurface) DamageBuffer(x, y, w, h int32) error {
	s.damage = append(s.damage, [4]int32{x, y, w, h})
	return nil
}

func (s *fakeCursorSurface) SetBufferScale(scale int32) error {
	s.scale = scale
	return nil
}

func (s *fakeCursorSurface) Commit() error {
	s.commits++
	return nil
}

func (s *fakeCursorSurface) Destroy() error {
	s.destroyed = true
	return nil
}

type fakeBuffer struct {
	release func()
}

func (b *fakeBuffer) ID() uint32                  { return 900 }
func (b *fakeBuffer) SetReleaseHandler(fn func()) { b.release = fn }
func (b *fakeBuffer) Destroy() error              { return nil }

type fakePool struct {
	buffers []*fakeBuffer
}

func (p *fakePool) CreateBuffer(_, _, _, _ int32, _ uint32) (shm.WireBuffer, error) {
	b := &fakeBuffer{}
	p.buffers = append(p.buffers, b)
	return b, nil
}

func (p *fakePool) Resize(int32) error { return nil }
func (p *fakePool) Destroy() error     { return nil }

type fakeCreator struct {
	pool *fakePool
}

func (c *fakeCreator) CreatePool(fd int, _ int32) (shm.WirePool, error) {
	if fd < 0 {
		return nil, errors.New("bad fd")
	}
	c.pool = &fakePool{}
	return c.pool, nil
}

func newSoftwarePointer(t *testing.T) (*ThemedPointer, *fakeWire, *fakeCursorSurface, *fakeCreator) {
	t.Helper()
	creator := &fakeCreator{}
	pool, err := shm.NewSimplePool(shm.NewWithCreator(creator, true), 4096)
	require.NoError(t, err)
	wire := &fakeWire{version: 8}
	surface := &fakeCursorSurface{}
	return NewSoftware(newPointer(wire, nil), surface, pool, 0), wire, surface, creator
}

func TestSoftwareCursor(t *testing.T) {
	tp, wire, surface, creator := newSoftwarePointer(t)
	require.False(t, tp.UsesShapes())

	require.NoError(t, tp.SetCursor(5, CursorDefault))
	assert.Equal(t, 1, surface.attached)
	assert.Equal(t, [][4]int32{{0, 0, 24, 24}}, surface.damage)
	assert.Equal(t, 1, surface.commits)
	assert.Equal(t, []cursorCall{{serial: 5, surface: 77, hx: 1, hy: 1}}, wire.cursors)

	// same icon: only set_cursor again
	require.NoError(t, tp.SetCursor(6, CursorDefault))
	assert.Equal(t, 1, surface.commits)

	// new icon while the compositor holds the buffer keeps the old image
	require.NoError(t, tp.SetCursor(7, CursorText))
	assert.Equal(t, 1, surface.commits)
	assert.Equal(t, int32(12), wire.cursors[2].hx)

	creator.pool.buffers[0].release()
	require.NoError(t, tp.SetCursor(8, CursorText))
	assert.Equal(t, 2, surface.commits)

	tp.SetScale(2)
	creator.pool.buffers[len(creator.pool.buffers)-1].release()
	require.NoError(t, tp.SetCursor(9, CursorText))
	assert.Equal(t, int32(2), surface.scale)
	assert.Equal(t, [4]int32{0, 0, 48, 48}, surface.damage[len(surface.damage)-1])

	require.NoError(t, tp.HideCursor(10))
	assert.Equal(t, cursorCall{serial: 10}, wire.cursors[len(wire.cursors)-1])

	require.NoError(t, tp.Release())
	assert.True(t, surface.destroyed)
}

func TestCursorWithoutSource(t *testing.T) {
	tp := &ThemedPointer{Pointer: newPointer(&fakeWire{version: 8}, nil)}
	assert.ErrorIs(t, tp.SetCursor(1, CursorDefault), ErrNoCursorSource)
}
