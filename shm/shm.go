// Package shm manages wl_shm pools: the raw memfd-backed pool, the keyed
// MultiPool and the single-buffer SimplePool.
package shm

import (
	"errors"
	"fmt"
	"slices"

	"github.com/bnema/waykit/internal/logger"
	"github.com/bnema/waykit/internal/protocols"
	"github.com/bnema/waykit/registry"
	"github.com/bnema/wlturbo/wl"
)

// Pixel formats used by waykit. Other formats use their fourcc code.
const (
	FormatARGB8888 uint32 = 0
	FormatXRGB8888 uint32 = 1
)

var (
	// ErrNoShm is returned when no wl_shm global is bound.
	ErrNoShm = errors.New("wl_shm is not bound")
	// ErrInUse is returned when a buffer is still held by the compositor.
	ErrInUse = errors.New("buffer is currently used")
	// ErrOverlap is returned when a buffer would overlap another.
	ErrOverlap = errors.New("buffer is overlapping another")
	// ErrNotFound is returned for unknown pool keys.
	ErrNotFound = errors.New("buffer could not be found")
	// ErrPoolResize is returned when the pool file could not be grown.
	ErrPoolResize = errors.New("pool resize failed")
	// ErrOutOfBounds is returned for buffers outside the pool.
	ErrOutOfBounds = errors.New("buffer exceeds pool")
)

// CreatePoolErrorKind tells why a pool could not be created.
type CreatePoolErrorKind int

const (
	MissingGlobal CreatePoolErrorKind = iota
	FileDescriptor
	Protocol
)

func (k CreatePoolErrorKind) String() string {
	switch k {
	case MissingGlobal:
		return "missing global"
	case FileDescriptor:
		return "file descriptor"
	case Protocol:
		return "protocol"
	}
	return "unknown"
}

// CreatePoolError is returned by the pool constructors.
type CreatePoolError struct {
	Kind CreatePoolErrorKind
	Err  error
}

func (e *CreatePoolError) Error() string {
	return fmt.Sprintf("create shm pool (%s): %v", e.Kind, e.Err)
}

func (e *CreatePoolError) Unwrap() error {
	return e.Err
}

// PoolCreator shares a file with the compositor as a wl_shm_pool.
type PoolCreator interface {
	CreatePool(fd int, size int32) (WirePool, error)
}

// WirePool is the protocol side of a pool.
type WirePool interface {
	CreateBuffer(offset, width, height, stride int32, format uint32) (WireBuffer, error)
	Resize(size int32) error
	Destroy() error
}

// WireBuffer is the protocol side of a buffer.
type WireBuffer interface {
	ID() uint32
	SetReleaseHandler(func())
	Destroy() error
}

// Shm tracks the wl_shm global and its advertised formats.
type Shm struct {
	global      *registry.SingleGlobal[*protocols.Shm]
	creator     PoolCreator
	formats     []uint32
	preferMemfd bool
}

// New creates the wl_shm state. Register it with the registry for "wl_shm".
func New(ctx *wl.Context, q protocols.Queue, preferMemfd bool) *Shm {
	s := &Shm{preferMemfd: preferMemfd}
	s.global = &registry.SingleGlobal[*protocols.Shm]{
		Interface:  protocols.ShmInterface,
		MaxVersion: 1,
		New:        func() *protocols.Shm { return protocols.NewShm(ctx, q) },
		OnBind: func(p *protocols.Shm, _ uint32) {
			p.SetFormatHandler(s.addFormat)
			s.creator = wireShm{p}
		},
		OnRemove: func(*protocols.Shm) {
			s.creator = nil
		},
	}
	return s
}

// NewWithCreator creates a Shm backed by an arbitrary pool creator.
func NewWithCreator(c PoolCreator, preferMemfd bool) *Shm {
	return &Shm{creator: c, preferMemfd: preferMemfd}
}

// NewGlobal implements registry.Handler.
func (s *Shm) NewGlobal(r *registry.Registry, g registry.Global) {
	if s.global != nil {
		s.global.NewGlobal(r, g)
	}
}

// RemoveGlobal implements registry.Handler.
func (s *Shm) RemoveGlobal(r *registry.Registry, name uint32) {
	if s.global != nil {
		s.global.RemoveGlobal(r, name)
	}
}

// Bound reports whether pools can be created.
func (s *Shm) Bound() bool {
	return s.creator != nil
}

// Formats returns the advertised pixel formats in announcement order.
func (s *Shm) Formats() []uint32 {
	return slices.Clone(s.formats)
}

// Supports reports whether format was advertised.
func (s *Shm) Supports(format uint32) bool {
	return slices.Contains(s.formats, format)
}

func (s *Shm) addFormat(format uint32) {
	if slices.Contains(s.formats, format) {
		return
	}
	logger.Debug("shm format", "format", FormatName(format))
	s.formats = append(s.formats, format)
}

// NewRawPool creates a raw pool of size bytes.
func (s *Shm) NewRawPool(size int) (*RawPool, error) {
	if s == nil || s.creator == nil {
		return nil, &CreatePoolError{Kind: MissingGlobal, Err: ErrNoShm}
	}
	return newRawPool(s.creator, size, s.preferMemfd)
}

// FormatName returns a readable name for a wl_shm format.
func FormatName(format uint32) string {
	switch format {
	case FormatARGB8888:
		return "ARGB8888"
	case FormatXRGB8888:
		return "XRGB8888"
	}
	b := []byte{byte(format), byte(format >> 8), byte(format >> 16), byte(format >> 24)}
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return fmt.Sprintf("0x%08x", format)
		}
	}
	return string(b)
}

type wireShm struct {
	shm *protocols.Shm
}

func (w wireShm) CreatePool(fd int, size int32) (WirePool, error) {
	p, err := w.shm.CreatePool(fd, size)
	if err != nil {
		return nil, err
	}
	return wirePool{p}, nil
}

type wirePool struct {
	pool *protocols.ShmPool
}

func (w wirePool) CreateBuffer(offset, width, height, stride int32, format uint32) (WireBuffer, error) {
	b, err := w.pool.CreateBuffer(offset, width, height, stride, format)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (w wirePool) Resize(size int32) error {
	return w.pool.Resize(size)
}

func (w wirePool) Destroy() error {
	return w.pool.Destroy()
}
