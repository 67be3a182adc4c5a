// Package datadevice implements clipboard and drag-and-drop transfers on
// wl_data_device_manager, and the primary selection.
//
// Offers are kept in a per-device arena keyed by OfferID. The device's
// selection and drag slots hold ids, the compositor designating an offer
// it never announced is a ProtocolViolation. Everything runs on the event
// loop goroutine.
package datadevice

import (
	"errors"
	"fmt"

	"github.com/bnema/waykit/internal/logger"
	"github.com/bnema/waykit/internal/protocols"
	"github.com/bnema/waykit/registry"
	"github.com/bnema/waykit/seat"
	"github.com/bnema/wlturbo/wl"
)

const maxManagerVersion = 3

// Manager is the wl_data_device_manager global.
type Manager struct {
	global *registry.SingleGlobal[*protocols.DataDeviceManager]
	rep    *reporter
}

// NewManager creates the manager state. Violations are posted to q.
func NewManager(ctx *wl.Context, q protocols.Queue) *Manager {
	m := &Manager{rep: newReporter(q)}
	m.global = &registry.SingleGlobal[*protocols.DataDeviceManager]{
		Interface:  protocols.DataDeviceManagerInterface,
		MaxVersion: maxManagerVersion,
		New:        func() *protocols.DataDeviceManager { return protocols.NewDataDeviceManager(ctx, q) },
	}
	return m
}

func newReporter(q protocols.Queue) *reporter {
	r := &reporter{}
	if q != nil {
		r.post = q.Post
	}
	return r
}

// Register routes the manager global of r.
func (m *Manager) Register(r *registry.Registry) {
	r.Handle(protocols.DataDeviceManagerInterface, m.global)
}

// Bound reports whether the compositor advertised the manager.
func (m *Manager) Bound() bool {
	return m.global.Bound()
}

// Version returns the bound version, 0 when unbound.
func (m *Manager) Version() uint32 {
	return m.global.Version()
}

// Err returns the first protocol violation seen.
func (m *Manager) Err() error {
	return m.rep.err
}

func seatProxy(s *seat.Seat) (*protocols.Seat, error) {
	if s.Dead() {
		return nil, seat.ErrDeadObject
	}
	p := s.Wire()
	if p == nil {
		return nil, errors.New("seat has no protocol object")
	}
	return p, nil
}

// Device creates the data device of s.
func (m *Manager) Device(s *seat.Seat, h Handler) (*Device, error) {
	sp, err := seatProxy(s)
	if err != nil {
		return nil, err
	}
	mgr, err := m.global.Get()
	if err != nil {
		return nil, err
	}
	w, err := mgr.GetDataDevice(sp)
	if err != nil {
		return nil, fmt.Errorf("get data device: %w", err)
	}
	d := newDevice(w, h, m.rep)
	w.SetHandlers(protocols.DataDeviceHandlers{
		DataOffer: func(p *protocols.DataOffer) {
			o := d.dataOffer(p, p.ID())
			p.SetHandlers(o.handlers())
		},
		Enter: func(e protocols.DataEnter) {
			d.enter(e.Serial, e.Surface, e.X, e.Y, e.OfferID)
		},
		Leave:     d.leave,
		Motion:    d.motion,
		Drop:      d.drop,
		Selection: func(id uint32, _ *protocols.DataOffer) { d.selectionEvent(id) },
	})
	return d, nil
}

// DragEvent describes the drag session over one of our surfaces. Offer is
// nil for drags started without a source.
type DragEvent struct {
	Serial  uint32
	Surface uint32
	Time    uint32
	X, Y    float64
	Offer   *Offer
}

// Handler receives data device events on the loop goroutine.
type Handler interface {
	// Selection reports a new selection offer, nil when cleared.
	Selection(d *Device, offer *Offer)
	DragEnter(d *Device, e DragEvent)
	DragMotion(d *Device, e DragEvent)
	// DragLeave ends the session. The drag offer was destroyed unless it was
	// dropped.
	DragLeave(d *Device)
	Drop(d *Device, e DragEvent)
}

// DeviceWire is the protocol object behind a Device.
type DeviceWire interface {
	Version() uint32
	SetSelection(source *protocols.DataSource, serial uint32) error
	StartDrag(source *protocols.DataSource, origin, icon wl.Object, serial uint32) error
	Release() error
}

// Device is the data device of one seat.
type Device struct {
	wire    DeviceWire
	handler Handler
	rep     *reporter

	next   OfferID
	offers map[OfferID]*Offer
	byWire map[uint32]OfferID

	selection OfferID
	drag      OfferID
	dragging  bool
	dropped   bool
	last      DragEvent
}

func newDevice(w DeviceWire, h Handler, rep *reporter) *Device {
	return &Device{
		wire:    w,
		handler: h,
		rep:     rep,
		offers:  make(map[OfferID]*Offer),
		byWire:  make(map[uint32]OfferID),
	}
}

func (d *Device) dataOffer(w OfferWire, wireID uint32) *Offer {
	if old, ok := d.byWire[wireID]; ok {
		logger.Warn("offer id announced twice", "wire_id", wireID, "offer", old)
	}
	d.next++
	o := &Offer{id: d.next, wireID: wireID, wire: w, dev: d}
	d.offers[o.id] = o
	d.byWire[wireID] = o.id
	logger.Debug("new data offer", "offer", o.id, "wire_id", wireID)
	return o
}

func (d *Device) resolve(wireID uint32, event string) *Offer {
	id, ok := d.byWire[wireID]
	if !ok {
		d.rep.fail(&ProtocolViolation{
			Object: protocols.DataDeviceInterface,
			Err:    fmt.Errorf("%s names offer %d: %w", event, wireID, ErrUnknownOffer),
		})
		return nil
	}
	return d.offers[id]
}

func (d *Device) enter(serial, surface uint32, x, y float64, wireID uint32) {
	if prev := d.DragOffer(); prev != nil && !d.dropped {
		_ = prev.Destroy()
	}
	d.drag = 0
	d.dropped = false

	var o *Offer
	if wireID != 0 {
		if o = d.resolve(wireID, "enter"); o == nil {
			return
		}
		o.kind = Drag
		o.serial = serial
		o.surface = surface
		o.x, o.y = x, y
		d.drag = o.id
	}
	d.dragging = true
	d.last = DragEvent{Serial: serial, Surface: surface, X: x, Y: y, Offer: o}
	if d.handler != nil {
		d.handler.DragEnter(d, d.last)
	}
}

func (d *Device) leave() {
	if !d.dragging {
		logger.Debug("data device leave without enter")
		return
	}
	if o := d.DragOffer(); o != nil && !d.dropped {
		_ = o.Destroy()
	}
	d.drag = 0
	d.dragging = false
	if d.handler != nil {
		d.handler.DragLeave(d)
	}
}

func (d *Device) motion(time uint32, x, y float64) {
	if !d.dragging {
		logger.Debug("data device motion without enter")
		return
	}
	o := d.DragOffer()
	if o != nil {
		o.x, o.y = x, y
	}
	d.last.Time, d.last.X, d.last.Y, d.last.Offer = time, x, y, o
	if d.handler != nil {
		d.handler.DragMotion(d, d.last)
	}
}

func (d *Device) drop() {
	if !d.dragging {
		logger.Debug("data device drop without enter")
		return
	}
	d.dropped = true
	d.last.Offer = d.DragOffer()
	if d.handler != nil {
		d.handler.Drop(d, d.last)
	}
}

func (d *Device) selectionEvent(wireID uint32) {
	var o *Offer
	if wireID != 0 {
		if o = d.resolve(wireID, "selection"); o == nil {
			return
		}
	}
	if prev := d.SelectionOffer(); prev != nil && prev != o {
		_ = prev.Destroy()
	}
	d.selection = 0
	if o != nil {
		o.kind = Selection
		d.selection = o.id
	}
	if d.handler != nil {
		d.handler.Selection(d, o)
	}
}

func (d *Device) forget(o *Offer) {
	delete(d.offers, o.id)
	if d.byWire[o.wireID] == o.id {
		delete(d.byWire, o.wireID)
	}
	if d.selection == o.id {
		d.selection = 0
	}
	if d.drag == o.id {
		d.drag = 0
	}
}

// SelectionOffer returns the current selection offer, nil when none.
func (d *Device) SelectionOffer() *Offer {
	return d.offers[d.selection]
}

// DragOffer returns the offer of the drag session, nil when there is none
// or the drag has no source.
func (d *Device) DragOffer() *Offer {
	return d.offers[d.drag]
}

// Offer returns a live offer by id.
func (d *Device) Offer(id OfferID) (*Offer, bool) {
	o, ok := d.offers[id]
	return o, ok
}

// ClearSelection unsets the selection.
func (d *Device) ClearSelection(serial uint32) error {
	return d.wire.SetSelection(nil, serial)
}

// StartInternalDrag starts a drag without a source. Drag events of this
// client then carry no offer and the payload is exchanged in-process.
func (d *Device) StartInternalDrag(origin, icon wl.Object, serial uint32) error {
	return d.wire.StartDrag(nil, origin, icon, serial)
}

// Release destroys the remaining offers and the device.
func (d *Device) Release() error {
	var errs []error
	for _, o := range d.offers {
		errs = append(errs, o.Destroy())
	}
	errs = append(errs, d.wire.Release())
	return errors.Join(errs...)
}
