package shm

import (
	"testing"

	"github.com/bnema/waykit/internal/protocols"
	"github.com/bnema/wlturbo/wl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSurface struct {
	attached []wl.Object
}

func (s *fakeSurface) Attach(buffer wl.Object, x, y int32) error {
	s.attached = append(s.attached, buffer)
	return nil
}

func TestSimplePoolReusesBuffer(t *testing.T) {
	s, c := newTestShm(t)
	p, err := NewSimplePool(s, 64)
	require.NoError(t, err)
	defer p.Close()

	buf, mem, err := p.Buffer(8, 4, 32, FormatARGB8888)
	require.NoError(t, err)
	assert.Len(t, mem, 128)
	assert.GreaterOrEqual(t, p.Len(), 128)
	assert.False(t, p.Busy())

	surface := &fakeSurface{}
	require.NoError(t, buf.AttachTo(surface, 0, 0))
	assert.True(t, p.Busy())
	_, _, err = p.Buffer(8, 4, 32, FormatARGB8888)
	assert.ErrorIs(t, err, ErrInUse)

	wireOf(buf).Release()
	again, _, err := p.Buffer(8, 4, 32, FormatARGB8888)
	require.NoError(t, err)
	assert.Same(t, buf, again)
	assert.Len(t, c.last().buffers, 1)
}

func TestSimplePoolGeometryChange(t *testing.T) {
	s, c := newTestShm(t)
	p, err := NewSimplePool(s, 64)
	require.NoError(t, err)
	defer p.Close()

	first, _, err := p.Buffer(8, 4, 32, FormatARGB8888)
	require.NoError(t, err)
	second, mem, err := p.Buffer(16, 16, 64, FormatXRGB8888)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.True(t, wireOf(first).destroyed)
	assert.Len(t, mem, 1024)
	assert.Equal(t, FormatXRGB8888, second.Format)
	assert.Len(t, c.last().buffers, 2)
}

func TestSimplePoolClose(t *testing.T) {
	s, c := newTestShm(t)
	p, err := NewSimplePool(s, 64)
	require.NoError(t, err)

	buf, _, err := p.Buffer(4, 4, 16, FormatARGB8888)
	require.NoError(t, err)
	require.NoError(t, p.Close())

	assert.True(t, wireOf(buf).destroyed)
	assert.True(t, c.last().destroyed)
}

// the wire proxies satisfy the adapter interfaces
var (
	_ Attacher   = (*wl.Surface)(nil)
	_ WireBuffer = (*protocols.Buffer)(nil)
)
