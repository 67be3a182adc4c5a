// Package protocols contains the Wayland protocol objects used by waykit,
// written against the wlturbo wire substrate.
//
// Dispatch runs on the wire pump goroutine. Every proxy decodes its event
// arguments there (the substrate reuses the event buffer) and queues the
// handler invocation on its Queue, so handlers and handler setters only ever
// run on the event loop goroutine. Objects created by the server (new_id
// event arguments) are registered synchronously before the next event is
// read.
package protocols

import (
	"encoding/binary"
	"errors"

	"github.com/bnema/wlturbo/wl"
	"golang.org/x/sys/unix"
)

// ErrDestroyed is returned for requests on an object after its destructor.
var ErrDestroyed = errors.New("protocol object already destroyed")

// Queue receives decoded events for the loop goroutine.
type Queue interface {
	Post(func() error)
}

// Proxy is embedded by every object in this package.
type Proxy struct {
	wl.BaseProxy
	queue     Queue
	version   uint32
	destroyed bool
}

type object interface {
	wl.Proxy
	setup(ctx *wl.Context, q Queue, version uint32)
}

func (p *Proxy) setup(ctx *wl.Context, q Queue, version uint32) {
	p.SetContext(ctx)
	p.queue = q
	p.version = version
}

// Version returns the negotiated protocol version.
func (p *Proxy) Version() uint32 {
	return p.version
}

// SetVersion records the version the object was bound with.
func (p *Proxy) SetVersion(v uint32) {
	p.version = v
}

// Destroyed reports whether a destructor request was sent.
func (p *Proxy) Destroyed() bool {
	return p.destroyed
}

// emit runs fn on the loop goroutine, or inline when no queue is set.
func (p *Proxy) emit(fn func()) {
	if p.queue == nil {
		fn()
		return
	}
	p.queue.Post(func() error {
		fn()
		return nil
	})
}

func (p *Proxy) send(opcode uint32, args ...interface{}) error {
	if p.destroyed {
		return ErrDestroyed
	}
	return p.Context().SendRequest(p, opcode, args...)
}

func (p *Proxy) sendFD(opcode uint32, fd int, args ...interface{}) error {
	if p.destroyed {
		return ErrDestroyed
	}
	return p.Context().SendRequestWithFDs(p, opcode, []int{fd}, args...)
}

// create allocates an id for a client-created child object, registers it and
// returns the id for the new_id request argument.
func (p *Proxy) create(child object) uint32 {
	ctx := p.Context()
	child.setup(ctx, p.queue, p.version)
	child.SetID(ctx.AllocateID())
	ctx.Register(child)
	return child.ID()
}

// adopt registers a server-created child object announced with id.
func (p *Proxy) adopt(child object, id uint32) {
	ctx := p.Context()
	child.setup(ctx, p.queue, p.version)
	child.SetID(id)
	ctx.Register(child)
}

func (p *Proxy) forget(child object) {
	if ctx := p.Context(); ctx != nil {
		ctx.Unregister(child)
	}
}

// destroy sends a destructor request and unregisters the object.
func (p *Proxy) destroy(self wl.Proxy, opcode uint32) error {
	if p.destroyed {
		return nil
	}
	p.destroyed = true
	ctx := p.Context()
	if ctx == nil {
		return nil
	}
	err := ctx.SendRequest(p, opcode)
	ctx.Unregister(self)
	return err
}

// objectID encodes a nullable object argument.
func objectID(o wl.Object) uint32 {
	if o == nil {
		return 0
	}
	return o.ID()
}

// nullableString encodes a nullable string argument; the empty string is
// sent as null.
func nullableString(s string) interface{} {
	if s == "" {
		return uint32(0)
	}
	return s
}

// fixedFloat converts a 24.8 fixed-point wire value.
func fixedFloat(f wl.Fixed) float64 {
	return float64(f) / 256.0
}

// toFixed converts to the 24.8 fixed-point wire format.
func toFixed(v float64) wl.Fixed {
	return wl.Fixed(v * 256.0)
}

// uint32Array decodes a wire array of native-endian 32-bit values.
func uint32Array(data []byte) []uint32 {
	out := make([]uint32, 0, len(data)/4)
	for i := 0; i+4 <= len(data); i += 4 {
		out = append(out, binary.NativeEndian.Uint32(data[i:]))
	}
	return out
}

func closeFD(fd int) {
	if fd >= 0 {
		_ = unix.Close(fd)
	}
}

// Global is implemented by every proxy that can be bound from the registry.
type Global interface {
	wl.Proxy
	SetVersion(uint32)
}

// Bind binds the registry global name to p at version.
func Bind(r *wl.Registry, name uint32, iface string, version uint32, p Global) error {
	p.SetVersion(version)
	return r.Bind(name, iface, version, p)
}
