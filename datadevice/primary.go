package datadevice

import (
	"errors"
	"fmt"

	"github.com/bnema/waykit/internal/logger"
	"github.com/bnema/waykit/internal/protocols"
	"github.com/bnema/waykit/registry"
	"github.com/bnema/waykit/seat"
	"github.com/bnema/wlturbo/wl"
	"golang.org/x/sys/unix"
)

// PrimaryProtocol names the primary selection protocol in use.
type PrimaryProtocol int

const (
	PrimaryNone PrimaryProtocol = iota
	// PrimaryZwp is zwp_primary_selection_device_manager_v1.
	PrimaryZwp
	// PrimaryGtk is the older gtk_primary_selection_device_manager.
	PrimaryGtk
)

func (p PrimaryProtocol) String() string {
	switch p {
	case PrimaryZwp:
		return protocols.PrimarySelectionManagerInterface
	case PrimaryGtk:
		return protocols.GtkPrimarySelectionManagerInterface
	}
	return "none"
}

// PrimaryManager is the primary selection manager. The protocol is chosen
// on first use, zwp over gtk, and never changes afterwards.
type PrimaryManager struct {
	zwp *registry.SingleGlobal[*protocols.PrimarySelectionManager]
	gtk *registry.SingleGlobal[*protocols.PrimarySelectionManager]
	rep *reporter

	chosen PrimaryProtocol
	mgr    *protocols.PrimarySelectionManager
}

// NewPrimaryManager creates the primary selection state. Violations are
// posted to q.
func NewPrimaryManager(ctx *wl.Context, q protocols.Queue) *PrimaryManager {
	variant := func(iface string) *registry.SingleGlobal[*protocols.PrimarySelectionManager] {
		return &registry.SingleGlobal[*protocols.PrimarySelectionManager]{
			Interface:  iface,
			MaxVersion: 1,
			Lazy:       true,
			New: func() *protocols.PrimarySelectionManager {
				return protocols.NewPrimarySelectionManager(ctx, q, iface)
			},
		}
	}
	m := &PrimaryManager{
		zwp: variant(protocols.PrimarySelectionManagerInterface),
		gtk: variant(protocols.GtkPrimarySelectionManagerInterface),
		rep: newReporter(q),
	}
	m.zwp.OnRemove = m.removed(PrimaryZwp)
	m.gtk.OnRemove = m.removed(PrimaryGtk)
	return m
}

func (m *PrimaryManager) removed(p PrimaryProtocol) func(*protocols.PrimarySelectionManager) {
	return func(*protocols.PrimarySelectionManager) {
		if m.chosen == p {
			logger.Warn("primary selection manager removed", "protocol", p)
			m.mgr = nil
		}
	}
}

// Register routes both manager globals of r.
func (m *PrimaryManager) Register(r *registry.Registry) {
	r.Handle(protocols.PrimarySelectionManagerInterface, m.zwp)
	r.Handle(protocols.GtkPrimarySelectionManagerInterface, m.gtk)
}

// Available reports whether either protocol is advertised.
func (m *PrimaryManager) Available() bool {
	return m.zwp.Available() || m.gtk.Available()
}

// Protocol returns the chosen protocol, PrimaryNone before first use.
func (m *PrimaryManager) Protocol() PrimaryProtocol {
	return m.chosen
}

// Err returns the first protocol violation seen.
func (m *PrimaryManager) Err() error {
	return m.rep.err
}

func (m *PrimaryManager) get() (*protocols.PrimarySelectionManager, error) {
	if m.mgr != nil {
		return m.mgr, nil
	}
	var (
		g *registry.SingleGlobal[*protocols.PrimarySelectionManager]
		p PrimaryProtocol
	)
	switch {
	case m.chosen == PrimaryZwp || (m.chosen == PrimaryNone && m.zwp.Available()):
		g, p = m.zwp, PrimaryZwp
	case m.chosen == PrimaryGtk || (m.chosen == PrimaryNone && m.gtk.Available()):
		g, p = m.gtk, PrimaryGtk
	default:
		return nil, &registry.MissingGlobalError{Interface: protocols.PrimarySelectionManagerInterface}
	}
	mgr, err := g.Get()
	if err != nil {
		return nil, err
	}
	if m.chosen == PrimaryNone {
		logger.Debug("using primary selection protocol", "protocol", p)
	}
	m.chosen = p
	m.mgr = mgr
	return mgr, nil
}

// Device creates the primary selection device of s.
func (m *PrimaryManager) Device(s *seat.Seat, h PrimaryHandler) (*PrimaryDevice, error) {
	sp, err := seatProxy(s)
	if err != nil {
		return nil, err
	}
	mgr, err := m.get()
	if err != nil {
		return nil, err
	}
	w, err := mgr.GetDevice(sp)
	if err != nil {
		return nil, fmt.Errorf("get primary device: %w", err)
	}
	d := newPrimaryDevice(w, h, m.rep, mgr.Interface())
	w.SetDataOfferHandler(func(p *protocols.PrimaryOffer) {
		o := d.dataOffer(p, p.ID())
		p.SetOfferHandler(o.offer)
	})
	w.SetSelectionHandler(func(id uint32, _ *protocols.PrimaryOffer) { d.selectionEvent(id) })
	return d, nil
}

// CreateSource creates a primary selection source offering mimes.
func (m *PrimaryManager) CreateSource(mimes []string, h SourceHandler) (*PrimarySource, error) {
	mgr, err := m.get()
	if err != nil {
		return nil, err
	}
	w, err := mgr.CreateSource()
	if err != nil {
		return nil, err
	}
	s, err := newPrimarySource(w, h, m.rep, mimes, mgr.Interface())
	if err != nil {
		return nil, err
	}
	s.proto = w
	w.SetSendHandler(s.send)
	w.SetCancelledHandler(s.cancel)
	return s, nil
}

// PrimaryHandler receives primary selection changes.
type PrimaryHandler interface {
	// Selection reports the new selection offer, nil when cleared.
	Selection(d *PrimaryDevice, offer *PrimaryOffer)
}

// PrimaryDeviceWire is the protocol object behind a PrimaryDevice.
type PrimaryDeviceWire interface {
	SetSelection(source *protocols.PrimarySource, serial uint32) error
	Destroy() error
}

// PrimaryOfferWire is the protocol object behind a PrimaryOffer.
type PrimaryOfferWire interface {
	Receive(mime string, fd int) error
	Destroy() error
}

// PrimaryDevice is the primary selection device of one seat.
type PrimaryDevice struct {
	wire    PrimaryDeviceWire
	handler PrimaryHandler
	rep     *reporter
	object  string

	next      OfferID
	offers    map[OfferID]*PrimaryOffer
	byWire    map[uint32]OfferID
	selection OfferID
}

func newPrimaryDevice(w PrimaryDeviceWire, h PrimaryHandler, rep *reporter, object string) *PrimaryDevice {
	return &PrimaryDevice{
		wire:    w,
		handler: h,
		rep:     rep,
		object:  object,
		offers:  make(map[OfferID]*PrimaryOffer),
		byWire:  make(map[uint32]OfferID),
	}
}

func (d *PrimaryDevice) dataOffer(w PrimaryOfferWire, wireID uint32) *PrimaryOffer {
	d.next++
	o := &PrimaryOffer{id: d.next, wireID: wireID, wire: w, dev: d}
	d.offers[o.id] = o
	d.byWire[wireID] = o.id
	return o
}

func (d *PrimaryDevice) selectionEvent(wireID uint32) {
	var o *PrimaryOffer
	if wireID != 0 {
		id, ok := d.byWire[wireID]
		if !ok {
			d.rep.fail(&ProtocolViolation{
				Object: d.object,
				Err:    fmt.Errorf("selection names offer %d: %w", wireID, ErrUnknownOffer),
			})
			return
		}
		o = d.offers[id]
	}
	if prev := d.SelectionOffer(); prev != nil && prev != o {
		_ = prev.Destroy()
	}
	d.selection = 0
	if o != nil {
		d.selection = o.id
	}
	if d.handler != nil {
		d.handler.Selection(d, o)
	}
}

func (d *PrimaryDevice) forget(o *PrimaryOffer) {
	delete(d.offers, o.id)
	if d.byWire[o.wireID] == o.id {
		delete(d.byWire, o.wireID)
	}
	if d.selection == o.id {
		d.selection = 0
	}
}

// SelectionOffer returns the current primary selection, nil when none.
func (d *PrimaryDevice) SelectionOffer() *PrimaryOffer {
	return d.offers[d.selection]
}

// ClearSelection unsets the primary selection.
func (d *PrimaryDevice) ClearSelection(serial uint32) error {
	return d.wire.SetSelection(nil, serial)
}

// Destroy destroys the remaining offers and the device.
func (d *PrimaryDevice) Destroy() error {
	var errs []error
	for _, o := range d.offers {
		errs = append(errs, o.Destroy())
	}
	errs = append(errs, d.wire.Destroy())
	return errors.Join(errs...)
}

// PrimaryOffer is a primary selection offer.
type PrimaryOffer struct {
	id        OfferID
	wireID    uint32
	wire      PrimaryOfferWire
	dev       *PrimaryDevice
	mimes     []string
	destroyed bool
}

func (o *PrimaryOffer) offer(mime string) {
	o.mimes = append(o.mimes, mime)
}

// ID returns the stable id of the offer.
func (o *PrimaryOffer) ID() OfferID {
	return o.id
}

// MimeTypes returns the advertised mime types in advertisement order.
func (o *PrimaryOffer) MimeTypes() []string {
	return append([]string(nil), o.mimes...)
}

// Receive asks the source for mime.
func (o *PrimaryOffer) Receive(mime string) (*ReadPipe, error) {
	if mime == "" {
		return nil, ErrInvalidReceive
	}
	if o.destroyed {
		return nil, ErrOfferDestroyed
	}
	r, w, err := newPipe()
	if err != nil {
		return nil, err
	}
	err = o.wire.Receive(mime, w)
	_ = unix.Close(w)
	if err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("receive %s: %w", mime, err)
	}
	return r, nil
}

// ReceiveToFD asks the source to write mime into fd, which the caller
// keeps.
func (o *PrimaryOffer) ReceiveToFD(mime string, fd int) error {
	if mime == "" {
		return ErrInvalidReceive
	}
	if o.destroyed {
		return ErrOfferDestroyed
	}
	return o.wire.Receive(mime, fd)
}

// Destroy destroys the offer. It is a no-op on destroyed offers.
func (o *PrimaryOffer) Destroy() error {
	if o.destroyed {
		return nil
	}
	o.destroyed = true
	if o.dev != nil {
		o.dev.forget(o)
	}
	return o.wire.Destroy()
}

// PrimarySourceWire is the protocol object behind a PrimarySource.
type PrimarySourceWire interface {
	Offer(mime string) error
	Destroy() error
}

// PrimarySource serves the primary selection.
type PrimarySource struct {
	source
	proto *protocols.PrimarySource
}

type primarySourceWire struct {
	PrimarySourceWire
}

func (primarySourceWire) Version() uint32         { return 1 }
func (primarySourceWire) SetActions(uint32) error { return ErrVersion }

func newPrimarySource(w PrimarySourceWire, h SourceHandler, rep *reporter, mimes []string, object string) (*PrimarySource, error) {
	s := &PrimarySource{source: source{object: object, wire: primarySourceWire{w}, handler: h, rep: rep}}
	if err := s.init(mimes); err != nil {
		_ = w.Destroy()
		return nil, err
	}
	return s, nil
}

// SetSelection makes the source the primary selection of d.
func (s *PrimarySource) SetSelection(d *PrimaryDevice, serial uint32) error {
	if err := s.usable(); err != nil {
		return err
	}
	return d.wire.SetSelection(s.proto, serial)
}
