// Package tablet tracks the tablets, tools and pads of a seat through
// zwp_tablet_seat_v2.
package tablet

import (
	"errors"
	"fmt"

	"github.com/bnema/waykit/internal/logger"
	"github.com/bnema/waykit/internal/protocols"
)

// Handler receives tablet events on the loop goroutine.
type Handler interface {
	// TabletAdded runs once the tablet description is complete.
	TabletAdded(s *Seat, t *Tablet)
	TabletRemoved(s *Seat, t *Tablet)
	// ToolAdded runs once the tool description is complete.
	ToolAdded(s *Seat, tool *Tool)
	ToolRemoved(s *Seat, tool *Tool)
	// ToolFrame delivers the events of one frame; tool.State() already
	// reflects them.
	ToolFrame(s *Seat, tool *Tool, time uint32, events []Event)
}

// Info describes a tablet.
type Info struct {
	Name string
	// VendorID and ProductID are USB ids, zero when unknown.
	VendorID  uint32
	ProductID uint32
	Path      string
}

func (i Info) String() string {
	return fmt.Sprintf("%s (%04x:%04x) %s", i.Name, i.VendorID, i.ProductID, i.Path)
}

// TabletWire is the protocol object behind a Tablet.
type TabletWire interface {
	Destroy() error
}

// Tablet is a zwp_tablet_v2.
type Tablet struct {
	wire    TabletWire
	seat    *Seat
	info    Info
	ready   bool
	removed bool
}

// Info returns the tablet description.
func (t *Tablet) Info() Info {
	return t.info
}

func (t *Tablet) handlers() protocols.TabletHandlers {
	return protocols.TabletHandlers{
		Name: func(name string) { t.info.Name = name },
		ID: func(vid, pid uint32) {
			t.info.VendorID, t.info.ProductID = vid, pid
		},
		Path:    func(path string) { t.info.Path = path },
		Done:    t.done,
		Removed: t.remove,
	}
}

func (t *Tablet) done() {
	if t.ready {
		return
	}
	t.ready = true
	logger.Debug("tablet added", "tablet", t.info)
	if t.seat.handler != nil {
		t.seat.handler.TabletAdded(t.seat, t)
	}
}

func (t *Tablet) remove() {
	if t.removed {
		return
	}
	t.removed = true
	delete(t.seat.tablets, t)
	if err := t.wire.Destroy(); err != nil {
		logger.Warn("failed to destroy tablet", "error", err)
	}
	if t.ready && t.seat.handler != nil {
		t.seat.handler.TabletRemoved(t.seat, t)
	}
}

// SeatWire is the protocol object behind a Seat.
type SeatWire interface {
	Destroy() error
}

// Seat is a zwp_tablet_seat_v2.
type Seat struct {
	wire    SeatWire
	handler Handler

	tablets map[*Tablet]struct{}
	tools   map[*Tool]struct{}
	pads    []TabletWire
}

// NewSeat wraps wire, routing its events to h.
func NewSeat(wire *protocols.TabletSeat, h Handler) *Seat {
	s := newSeat(wire, h)
	wire.SetTabletAddedHandler(func(t *protocols.Tablet) {
		t.SetHandlers(s.addTablet(t).handlers())
	})
	wire.SetToolAddedHandler(func(t *protocols.TabletTool) {
		t.SetHandlers(s.addTool(t).handlers())
	})
	wire.SetPadAddedHandler(func(p *protocols.TabletPad) {
		s.addPad(p)
	})
	return s
}

func newSeat(wire SeatWire, h Handler) *Seat {
	return &Seat{
		wire:    wire,
		handler: h,
		tablets: make(map[*Tablet]struct{}),
		tools:   make(map[*Tool]struct{}),
	}
}

func (s *Seat) addTablet(wire TabletWire) *Tablet {
	t := &Tablet{wire: wire, seat: s}
	s.tablets[t] = struct{}{}
	return t
}

func (s *Seat) addTool(wire ToolWire) *Tool {
	t := newTool(wire, s)
	s.tools[t] = struct{}{}
	return t
}

// addPad keeps the pad so it can be destroyed with the seat; pad events
// are not interpreted.
func (s *Seat) addPad(wire TabletWire) {
	logger.Debug("tablet pad added")
	s.pads = append(s.pads, wire)
}

// Tablets returns the tablets whose description is complete.
func (s *Seat) Tablets() []*Tablet {
	var out []*Tablet
	for t := range s.tablets {
		if t.ready {
			out = append(out, t)
		}
	}
	return out
}

// Tools returns the tools whose description is complete.
func (s *Seat) Tools() []*Tool {
	var out []*Tool
	for t := range s.tools {
		if t.ready {
			out = append(out, t)
		}
	}
	return out
}

func (s *Seat) toolReady(t *Tool) {
	logger.Debug("tablet tool added", "type", t.desc.Type, "capabilities", t.desc.Capabilities)
	if s.handler != nil {
		s.handler.ToolAdded(s, t)
	}
}

func (s *Seat) toolFrame(t *Tool, time uint32, events []Event) {
	if s.handler != nil {
		s.handler.ToolFrame(s, t, time, events)
	}
}

func (s *Seat) toolRemoved(t *Tool) {
	delete(s.tools, t)
	if t.ready && s.handler != nil {
		s.handler.ToolRemoved(s, t)
	}
}

// Destroy destroys every tablet, tool and pad, then the tablet seat.
func (s *Seat) Destroy() error {
	var errs []error
	for t := range s.tablets {
		errs = append(errs, t.wire.Destroy())
	}
	for t := range s.tools {
		errs = append(errs, t.wire.Destroy())
	}
	for _, p := range s.pads {
		errs = append(errs, p.Destroy())
	}
	clear(s.tablets)
	clear(s.tools)
	s.pads = nil
	errs = append(errs, s.wire.Destroy())
	return errors.Join(errs...)
}
