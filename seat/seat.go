// Package seat tracks wl_seat globals and their capabilities, and creates
// the keyboard, pointer, touch and tablet devices of a seat.
package seat

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bnema/waykit/internal/logger"
	"github.com/bnema/waykit/internal/protocols"
	"github.com/bnema/waykit/registry"
	"github.com/bnema/wlturbo/wl"
)

const maxSeatVersion = 7

// Capability is an input device class of a seat.
type Capability int

// Capabilities in notification order.
const (
	Keyboard Capability = iota
	Pointer
	Touch
)

func (c Capability) String() string {
	switch c {
	case Keyboard:
		return "keyboard"
	case Pointer:
		return "pointer"
	case Touch:
		return "touch"
	}
	return fmt.Sprintf("capability(%d)", int(c))
}

var capabilityBits = [...]struct {
	cap Capability
	bit uint32
}{
	{Keyboard, protocols.SeatCapabilityKeyboard},
	{Pointer, protocols.SeatCapabilityPointer},
	{Touch, protocols.SeatCapabilityTouch},
}

const knownCapabilities = protocols.SeatCapabilityKeyboard | protocols.SeatCapabilityPointer | protocols.SeatCapabilityTouch

var (
	// ErrUnsupportedCapability is returned when creating a device the seat
	// does not currently have.
	ErrUnsupportedCapability = errors.New("capability not supported")
	// ErrDeadObject is returned for seats whose global was removed.
	ErrDeadObject = errors.New("the seat is dead")
)

// CapabilityError reports the missing capability.
type CapabilityError struct {
	Capability Capability
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("the capability %q is not supported", e.Capability.String())
}

func (e *CapabilityError) Unwrap() error {
	return ErrUnsupportedCapability
}

// Info is a snapshot of a seat.
type Info struct {
	// Name is empty until the compositor names the seat (version 2).
	Name        string
	HasKeyboard bool
	HasPointer  bool
	HasTouch    bool
}

func (i Info) String() string {
	var b strings.Builder
	if i.Name != "" {
		fmt.Fprintf(&b, "name: %q ", i.Name)
	}
	var caps []string
	if i.HasKeyboard {
		caps = append(caps, "keyboard")
	}
	if i.HasPointer {
		caps = append(caps, "pointer")
	}
	if i.HasTouch {
		caps = append(caps, "touch")
	}
	if len(caps) == 0 {
		caps = append(caps, "none")
	}
	fmt.Fprintf(&b, "capabilities: (%s)", strings.Join(caps, ", "))
	return b.String()
}

// Has reports whether c is present.
func (i Info) Has(c Capability) bool {
	switch c {
	case Keyboard:
		return i.HasKeyboard
	case Pointer:
		return i.HasPointer
	case Touch:
		return i.HasTouch
	}
	return false
}

func (i *Info) set(c Capability, on bool) {
	switch c {
	case Keyboard:
		i.HasKeyboard = on
	case Pointer:
		i.HasPointer = on
	case Touch:
		i.HasTouch = on
	}
}

// Handler is notified of seat changes on the loop goroutine.
type Handler interface {
	NewSeat(s *Seat)
	NewCapability(s *Seat, c Capability)
	RemoveCapability(s *Seat, c Capability)
	// RemoveSeat runs before the seat becomes dead.
	RemoveSeat(s *Seat)
}

// Wire is the protocol object behind a Seat.
type Wire interface {
	Version() uint32
	GetPointer() (*protocols.Pointer, error)
	GetKeyboard() (*protocols.Keyboard, error)
	GetTouch() (*protocols.Touch, error)
	Release() error
}

// Seat is a handle to one wl_seat. It stays valid after the global is
// removed; device factories then fail with ErrDeadObject.
type Seat struct {
	global uint32
	wire   Wire
	proto  *protocols.Seat
	state  *State
	info   Info
	dead   bool

	releasers []func() error
}

// Name returns the registry name of the wl_seat global.
func (s *Seat) Name() uint32 {
	return s.global
}

// Info returns the seat snapshot.
func (s *Seat) Info() Info {
	return s.info
}

// Dead reports whether the seat global was removed.
func (s *Seat) Dead() bool {
	return s.dead
}

// Wire returns the protocol object, nil for seats created without one.
func (s *Seat) Wire() *protocols.Seat {
	return s.proto
}

func (s *Seat) check(c Capability) error {
	if s.dead {
		return ErrDeadObject
	}
	if !s.info.Has(c) {
		return &CapabilityError{Capability: c}
	}
	return nil
}

// onRemove registers cleanup to run when the seat is removed.
func (s *Seat) onRemove(fn func() error) {
	s.releasers = append(s.releasers, fn)
}

func (s *Seat) capabilities(bits uint32) {
	if unknown := bits &^ knownCapabilities; unknown != 0 {
		logger.Debug("unknown seat capability bits", "seat", s.global, "bits", fmt.Sprintf("%#x", unknown))
	}
	for _, cb := range capabilityBits {
		on := bits&cb.bit != 0
		if on == s.info.Has(cb.cap) {
			continue
		}
		s.info.set(cb.cap, on)
		logger.Debug("seat capability changed", "seat", s.global, "capability", cb.cap, "present", on)
		h := s.state.handler
		if h == nil {
			continue
		}
		if on {
			h.NewCapability(s, cb.cap)
		} else {
			h.RemoveCapability(s, cb.cap)
		}
	}
}

func (s *Seat) name(name string) {
	s.info.Name = name
}

// State tracks every seat of the compositor.
type State struct {
	ctx     *wl.Context
	queue   protocols.Queue
	handler Handler
	seats   map[uint32]*Seat

	cursorShapes *registry.SingleGlobal[*protocols.CursorShapeManager]
	tablets      *registry.SingleGlobal[*protocols.TabletManager]
}

// NewState creates the seat state notifying h. h may be nil.
func NewState(ctx *wl.Context, q protocols.Queue, h Handler) *State {
	s := newState(h)
	s.ctx = ctx
	s.queue = q
	s.cursorShapes = &registry.SingleGlobal[*protocols.CursorShapeManager]{
		Interface:  protocols.CursorShapeManagerInterface,
		MaxVersion: 2,
		Lazy:       true,
		New:        func() *protocols.CursorShapeManager { return protocols.NewCursorShapeManager(ctx, q) },
	}
	s.tablets = &registry.SingleGlobal[*protocols.TabletManager]{
		Interface:  protocols.TabletManagerInterface,
		MaxVersion: 1,
		Lazy:       true,
		New:        func() *protocols.TabletManager { return protocols.NewTabletManager(ctx, q) },
	}
	return s
}

func newState(h Handler) *State {
	return &State{handler: h, seats: make(map[uint32]*Seat)}
}

// Register routes wl_seat, cursor shape and tablet manager globals of r to
// the state.
func (st *State) Register(r *registry.Registry) {
	r.Handle(protocols.SeatInterface, st)
	if st.cursorShapes != nil {
		r.Handle(protocols.CursorShapeManagerInterface, st.cursorShapes)
	}
	if st.tablets != nil {
		r.Handle(protocols.TabletManagerInterface, st.tablets)
	}
}

// SetHandler replaces the notification handler.
func (st *State) SetHandler(h Handler) {
	st.handler = h
}

// NewGlobal implements registry.Handler for wl_seat.
func (st *State) NewGlobal(r *registry.Registry, g registry.Global) {
	p := protocols.NewSeat(st.ctx, st.queue)
	version, err := r.Bind(g.Name, protocols.SeatInterface, maxSeatVersion, p)
	if err != nil {
		logger.Error("failed to bind seat", "name", g.Name, "error", err)
		return
	}
	s := st.track(g.Name, p)
	s.proto = p
	p.SetCapabilitiesHandler(s.capabilities)
	p.SetNameHandler(s.name)
	logger.Debug("tracking seat", "name", g.Name, "version", version)
}

func (st *State) track(name uint32, wire Wire) *Seat {
	s := &Seat{global: name, wire: wire, state: st}
	st.seats[name] = s
	if st.handler != nil {
		st.handler.NewSeat(s)
	}
	return s
}

// RemoveGlobal implements registry.Handler for wl_seat.
func (st *State) RemoveGlobal(_ *registry.Registry, name uint32) {
	s, ok := st.seats[name]
	if !ok {
		return
	}
	if st.handler != nil {
		st.handler.RemoveSeat(s)
	}
	delete(st.seats, name)
	s.dead = true
	for _, release := range s.releasers {
		if err := release(); err != nil {
			logger.Warn("failed to release seat device", "seat", name, "error", err)
		}
	}
	s.releasers = nil
	if err := s.wire.Release(); err != nil {
		logger.Warn("failed to release seat", "seat", name, "error", err)
	}
	logger.Debug("seat removed", "name", name)
}

// Seats returns the live seats ordered by global name.
func (st *State) Seats() []*Seat {
	out := make([]*Seat, 0, len(st.seats))
	for _, s := range st.seats {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].global < out[j].global })
	return out
}

// Info returns the snapshot of the seat with global name.
func (st *State) Info(name uint32) (Info, bool) {
	s, ok := st.seats[name]
	if !ok {
		return Info{}, false
	}
	return s.info, true
}
