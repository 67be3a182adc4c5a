package decoration

import (
	"errors"
	"testing"

	"github.com/bnema/waykit/shm"
	"github.com/bnema/wlturbo/wl"
	"github.com/stretchr/testify/require"
)

type fakeSurface struct {
	id        uint32
	attached  wl.Object
	attaches  int
	commits   int
	scale     int32
	damaged   bool
	destroyed bool
}

func (s *fakeSurface) ID() uint32 { return s.id }

func (s *fakeSurface) Attach(buffer wl.Object, x, y int32) error {
	s.attached = buffer
	s.attaches++
	return nil
}

func (s *fakeSurface) SetBufferScale(scale int32) error {
	s.scale = scale
	return nil
}

func (s *fakeSurface) DamageBuffer(x, y, width, height int32) error {
	s.damaged = true
	return nil
}

func (s *fakeSurface) Commit() error {
	s.commits++
	return nil
}

func (s *fakeSurface) Destroy() error {
	s.destroyed = true
	return nil
}

type fakeSubsurface struct {
	x, y      int32
	sync      bool
	syncs     int
	destroyed bool
}

func (s *fakeSubsurface) SetPosition(x, y int32) error {
	s.x, s.y = x, y
	return nil
}

func (s *fakeSubsurface) SetSync() error {
	s.sync = true
	s.syncs++
	return nil
}

func (s *fakeSubsurface) SetDesync() error {
	s.sync = false
	return nil
}

func (s *fakeSubsurface) Destroy() error {
	s.destroyed = true
	return nil
}

type fakeParts struct {
	next     uint32
	surfaces []*fakeSurface
	subs     []*fakeSubsurface
	failAt   int
}

func (f *fakeParts) CreatePart() (Surface, Subsurface, error) {
	if f.failAt > 0 && len(f.surfaces)+1 == f.failAt {
		return nil, nil, errors.New("no more surfaces")
	}
	f.next++
	s := &fakeSurface{id: 10 + f.next - 1}
	sub := &fakeSubsurface{}
	f.surfaces = append(f.surfaces, s)
	f.subs = append(f.subs, sub)
	return s, sub, nil
}

// current returns the surface and subsurface of part in the latest set.
func (f *fakeParts) current(p Part) (*fakeSurface, *fakeSubsurface) {
	base := len(f.surfaces) - partCount
	return f.surfaces[base+int(p)], f.subs[base+int(p)]
}

type fakeWireBuffer struct {
	release func()
}

func (b *fakeWireBuffer) ID() uint32                  { return 7 }
func (b *fakeWireBuffer) SetReleaseHandler(fn func()) { b.release = fn }
func (b *fakeWireBuffer) Destroy() error              { return nil }

type fakeWirePool struct {
	buffers []*fakeWireBuffer
}

func (p *fakeWirePool) CreateBuffer(offset, width, height, stride int32, format uint32) (shm.WireBuffer, error) {
	b := &fakeWireBuffer{}
	p.buffers = append(p.buffers, b)
	return b, nil
}

func (p *fakeWirePool) Resize(int32) error { return nil }
func (p *fakeWirePool) Destroy() error     { return nil }

type fakeCreator struct {
	pool *fakeWirePool
}

func (c *fakeCreator) CreatePool(fd int, size int32) (shm.WirePool, error) {
	c.pool = &fakeWirePool{}
	return c.pool, nil
}

// recordingPool keeps the pixels handed out per part.
type recordingPool struct {
	*shm.MultiPool[Part]
	pix     map[Part][]byte
	buffers map[Part]*shm.Buffer
	sizes   map[Part][2]int
}

func (r *recordingPool) record(key Part, width, height int, buf *shm.Buffer, pix []byte, err error) (int, *shm.Buffer, []byte, error) {
	if err == nil {
		r.pix[key] = pix
		r.buffers[key] = buf
		r.sizes[key] = [2]int{width, height}
	}
	return 0, buf, pix, err
}

func (r *recordingPool) Get(key Part, width, stride, height int, format uint32) (int, *shm.Buffer, []byte, error) {
	_, buf, pix, err := r.MultiPool.Get(key, width, stride, height, format)
	return r.record(key, width, height, buf, pix, err)
}

func (r *recordingPool) CreateBuffer(key Part, width, stride, height int, format uint32) (int, *shm.Buffer, []byte, error) {
	_, buf, pix, err := r.MultiPool.CreateBuffer(key, width, stride, height, format)
	return r.record(key, width, height, buf, pix, err)
}

// release simulates the compositor releasing the buffer of key.
func (r *recordingPool) release(key Part) {
	buf := r.buffers[key]
	buf.Object().(*fakeWireBuffer).release()
}

func newTestFrame(t *testing.T) (*Frame, *fakeParts, *recordingPool) {
	t.Helper()
	mp, err := shm.NewMultiPool[Part](shm.NewWithCreator(&fakeCreator{}, true), 4096)
	require.NoError(t, err)
	pool := &recordingPool{
		MultiPool: mp,
		pix:       make(map[Part][]byte),
		buffers:   make(map[Part]*shm.Buffer),
		sizes:     make(map[Part][2]int),
	}
	parts := &fakeParts{}
	f, err := New(parts, pool)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Destroy() })
	return f, parts, pool
}
