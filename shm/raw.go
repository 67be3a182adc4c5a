package shm

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/sys/unix"
)

// RawPool is a memory-mapped file shared with the compositor. Its length
// only grows.
type RawPool struct {
	wire WirePool
	fd   int
	data []byte
	len  int
}

func newRawPool(creator PoolCreator, size int, preferMemfd bool) (*RawPool, error) {
	if size <= 0 || size > math.MaxInt32 {
		return nil, &CreatePoolError{Kind: FileDescriptor, Err: fmt.Errorf("invalid pool size %d", size)}
	}

	fd, err := createMemFile(size, preferMemfd)
	if err != nil {
		return nil, &CreatePoolError{Kind: FileDescriptor, Err: err}
	}

	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, &CreatePoolError{Kind: FileDescriptor, Err: fmt.Errorf("mmap: %w", err)}
	}

	wire, err := creator.CreatePool(fd, int32(size))
	if err != nil {
		_ = unix.Munmap(data)
		_ = unix.Close(fd)
		return nil, &CreatePoolError{Kind: Protocol, Err: err}
	}

	return &RawPool{wire: wire, fd: fd, data: data, len: size}, nil
}

// Len returns the pool length in bytes.
func (p *RawPool) Len() int {
	return p.len
}

// Mmap returns the mapped pool memory. The slice is invalidated by Resize.
func (p *RawPool) Mmap() []byte {
	return p.data
}

// Fd returns the backing file descriptor.
func (p *RawPool) Fd() int {
	return p.fd
}

// Resize grows the pool to size bytes; smaller sizes are ignored. The file
// is extended and remapped before the compositor is told about the new
// length.
func (p *RawPool) Resize(size int) error {
	if size <= p.len {
		return nil
	}
	if size > math.MaxInt32 {
		return fmt.Errorf("%w: %d bytes exceeds the protocol limit", ErrPoolResize, size)
	}

	if err := unix.Ftruncate(p.fd, int64(size)); err != nil {
		return fmt.Errorf("%w: ftruncate: %v", ErrPoolResize, err)
	}
	data, err := unix.Mmap(p.fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("%w: mmap: %v", ErrPoolResize, err)
	}
	_ = unix.Munmap(p.data)
	p.data = data
	p.len = size

	if err := p.wire.Resize(int32(size)); err != nil {
		return fmt.Errorf("%w: %v", ErrPoolResize, err)
	}
	return nil
}

// CreateBuffer creates a buffer at offset.
func (p *RawPool) CreateBuffer(offset, width, height, stride int, format uint32) (*Buffer, error) {
	if offset < 0 || width <= 0 || height <= 0 || stride < width {
		return nil, fmt.Errorf("invalid buffer geometry %dx%d stride %d at %d", width, height, stride, offset)
	}
	if offset+stride*height > p.len {
		return nil, ErrOutOfBounds
	}

	wire, err := p.wire.CreateBuffer(int32(offset), int32(width), int32(height), int32(stride), format)
	if err != nil {
		return nil, err
	}
	return newBuffer(wire, offset, width, height, stride, format), nil
}

// Close destroys the pool, unmaps it and closes the file. Buffers created
// from the pool stay valid on the compositor side.
func (p *RawPool) Close() error {
	if p.fd < 0 {
		return nil
	}
	err := p.wire.Destroy()
	err = errors.Join(err, unix.Munmap(p.data))
	err = errors.Join(err, unix.Close(p.fd))
	p.data = nil
	p.fd = -1
	return err
}
