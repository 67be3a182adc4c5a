package protocols

import (
	"github.com/bnema/wlturbo/wl"
)

// Protocol interface names
const (
	ShmInterface     = "wl_shm"
	ShmPoolInterface = "wl_shm_pool"
	BufferInterface  = "wl_buffer"
)

// Shm is a wl_shm global.
type Shm struct {
	Proxy
	formatHandler func(uint32)
}

// NewShm creates an unbound wl_shm proxy
func NewShm(ctx *wl.Context, q Queue) *Shm {
	s := &Shm{}
	s.setup(ctx, q, 1)
	return s
}

// SetFormatHandler sets the handler for format events
func (s *Shm) SetFormatHandler(handler func(uint32)) {
	s.formatHandler = handler
}

// CreatePool shares fd with the compositor as a pool of size bytes.
func (s *Shm) CreatePool(fd int, size int32) (*ShmPool, error) {
	pool := &ShmPool{}
	id := s.create(pool)

	// Opcode 0: create_pool(new_id, fd, size); the fd travels out of band
	const opcode = 0
	if err := s.sendFD(opcode, fd, id, uintptr(fd), size); err != nil {
		s.forget(pool)
		return nil, err
	}
	return pool, nil
}

// Release releases the global (version 2)
func (s *Shm) Release() error {
	if s.version < 2 {
		return nil
	}
	return s.destroy(s, 1)
}

// Dispatch handles incoming events
func (s *Shm) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0: // format
		format := event.Uint32()
		s.emit(func() {
			if s.formatHandler != nil {
				s.formatHandler(format)
			}
		})
	}
}

// ShmPool is a wl_shm_pool.
type ShmPool struct {
	Proxy
}

// CreateBuffer carves a buffer out of the pool.
func (p *ShmPool) CreateBuffer(offset, width, height, stride int32, format uint32) (*Buffer, error) {
	buf := &Buffer{}
	id := p.create(buf)

	// Opcode 0: create_buffer
	const opcode = 0
	if err := p.send(opcode, id, offset, width, height, stride, format); err != nil {
		p.forget(buf)
		return nil, err
	}
	return buf, nil
}

// Destroy destroys the pool; buffers created from it stay valid
func (p *ShmPool) Destroy() error {
	return p.destroy(p, 1)
}

// Resize grows the pool to size bytes
func (p *ShmPool) Resize(size int32) error {
	return p.send(2, size)
}

// Buffer is a wl_buffer.
type Buffer struct {
	Proxy
	releaseHandler func()
}

// SetReleaseHandler sets the handler for release events
func (b *Buffer) SetReleaseHandler(handler func()) {
	b.releaseHandler = handler
}

// Destroy destroys the buffer
func (b *Buffer) Destroy() error {
	return b.destroy(b, 0)
}

// Dispatch handles incoming events
func (b *Buffer) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0: // release
		b.emit(func() {
			if b.releaseHandler != nil {
				b.releaseHandler()
			}
		})
	}
}
