package shm

import "errors"

type fakeBuffer struct {
	id        uint32
	offset    int32
	release   func()
	destroyed bool
}

func (b *fakeBuffer) ID() uint32                  { return b.id }
func (b *fakeBuffer) SetReleaseHandler(fn func()) { b.release = fn }
func (b *fakeBuffer) Destroy() error              { b.destroyed = true; return nil }

// Release simulates the compositor's release event.
func (b *fakeBuffer) Release() {
	if b.release != nil {
		b.release()
	}
}

type fakePool struct {
	size      int32
	resizes   []int32
	buffers   []*fakeBuffer
	destroyed bool
}

func (p *fakePool) CreateBuffer(offset, width, height, stride int32, format uint32) (WireBuffer, error) {
	b := &fakeBuffer{id: uint32(len(p.buffers) + 100), offset: offset}
	p.buffers = append(p.buffers, b)
	return b, nil
}

func (p *fakePool) Resize(size int32) error {
	p.resizes = append(p.resizes, size)
	p.size = size
	return nil
}

func (p *fakePool) Destroy() error {
	p.destroyed = true
	return nil
}

type fakeCreator struct {
	pools []*fakePool
	err   error
}

func (c *fakeCreator) CreatePool(fd int, size int32) (WirePool, error) {
	if c.err != nil {
		return nil, c.err
	}
	if fd < 0 {
		return nil, errors.New("bad fd")
	}
	p := &fakePool{size: size}
	c.pools = append(c.pools, p)
	return p, nil
}

func (c *fakeCreator) last() *fakePool {
	return c.pools[len(c.pools)-1]
}
