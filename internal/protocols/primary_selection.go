package protocols

import (
	"sync"

	"github.com/bnema/wlturbo/wl"
)

// Protocol interface names. The gtk protocol predates the zwp one and
// shares its request and event layout.
const (
	PrimarySelectionManagerInterface    = "zwp_primary_selection_device_manager_v1"
	GtkPrimarySelectionManagerInterface = "gtk_primary_selection_device_manager"
)

// PrimarySelectionManager is a zwp_primary_selection_device_manager_v1 or a
// gtk_primary_selection_device_manager.
type PrimarySelectionManager struct {
	Proxy
	iface string
}

// NewPrimarySelectionManager creates an unbound manager proxy for iface
func NewPrimarySelectionManager(ctx *wl.Context, q Queue, iface string) *PrimarySelectionManager {
	m := &PrimarySelectionManager{iface: iface}
	m.setup(ctx, q, 1)
	return m
}

// Interface returns the protocol the manager was created for
func (m *PrimarySelectionManager) Interface() string {
	return m.iface
}

// CreateSource creates a new primary selection source
func (m *PrimarySelectionManager) CreateSource() (*PrimarySource, error) {
	src := &PrimarySource{}
	id := m.create(src)
	if err := m.send(0, id); err != nil {
		m.forget(src)
		return nil, err
	}
	return src, nil
}

// GetDevice creates the primary selection device of seat
func (m *PrimarySelectionManager) GetDevice(seat *Seat) (*PrimaryDevice, error) {
	dev := &PrimaryDevice{}
	id := m.create(dev)
	if err := m.send(1, id, seat.ID()); err != nil {
		m.forget(dev)
		return nil, err
	}
	return dev, nil
}

// Destroy destroys the manager
func (m *PrimarySelectionManager) Destroy() error {
	return m.destroy(m, 2)
}

// PrimaryDevice is a primary selection device.
type PrimaryDevice struct {
	Proxy
	dataOfferHandler func(*PrimaryOffer)
	selectionHandler func(uint32, *PrimaryOffer)

	mu     sync.Mutex
	offers map[uint32]*PrimaryOffer
}

// SetDataOfferHandler sets the handler for data_offer events
func (d *PrimaryDevice) SetDataOfferHandler(handler func(*PrimaryOffer)) {
	d.dataOfferHandler = handler
}

// SetSelectionHandler sets the handler for selection events. id is 0 when
// the selection was cleared; offer is nil for ids never announced.
func (d *PrimaryDevice) SetSelectionHandler(handler func(id uint32, offer *PrimaryOffer)) {
	d.selectionHandler = handler
}

// SetSelection sets the primary selection; a nil source clears it.
func (d *PrimaryDevice) SetSelection(source *PrimarySource, serial uint32) error {
	var sid uint32
	if source != nil {
		sid = source.ID()
	}
	return d.send(0, sid, serial)
}

// Destroy destroys the device
func (d *PrimaryDevice) Destroy() error {
	return d.destroy(d, 1)
}

func (d *PrimaryDevice) untrack(id uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.offers, id)
}

// Dispatch handles incoming events
func (d *PrimaryDevice) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0: // data_offer
		offer := &PrimaryOffer{owner: d}
		d.adopt(offer, event.Uint32())
		d.mu.Lock()
		if d.offers == nil {
			d.offers = make(map[uint32]*PrimaryOffer)
		}
		d.offers[offer.ID()] = offer
		d.mu.Unlock()
		d.emit(func() {
			if d.dataOfferHandler != nil {
				d.dataOfferHandler(offer)
			}
		})
	case 1: // selection
		id := event.Uint32()
		d.mu.Lock()
		offer := d.offers[id]
		d.mu.Unlock()
		d.emit(func() {
			if d.selectionHandler != nil {
				d.selectionHandler(id, offer)
			}
		})
	}
}

// PrimaryOffer is a primary selection offer.
type PrimaryOffer struct {
	Proxy
	offerHandler func(string)
	owner        *PrimaryDevice
}

// SetOfferHandler sets the handler for offer events
func (o *PrimaryOffer) SetOfferHandler(handler func(string)) {
	o.offerHandler = handler
}

// Receive asks the source to write mime data into fd. The caller keeps
// ownership of fd.
func (o *PrimaryOffer) Receive(mime string, fd int) error {
	return o.sendFD(0, fd, mime, uintptr(fd))
}

// Destroy destroys the offer
func (o *PrimaryOffer) Destroy() error {
	if o.owner != nil {
		o.owner.untrack(o.ID())
	}
	return o.destroy(o, 1)
}

// Dispatch handles incoming events
func (o *PrimaryOffer) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0: // offer
		mime := event.String()
		o.emit(func() {
			if o.offerHandler != nil {
				o.offerHandler(mime)
			}
		})
	}
}

// PrimarySource is a primary selection source.
type PrimarySource struct {
	Proxy
	sendHandler      func(string, int)
	cancelledHandler func()
}

// SetSendHandler sets the handler for send events. The handler owns fd.
func (s *PrimarySource) SetSendHandler(handler func(mime string, fd int)) {
	s.sendHandler = handler
}

// SetCancelledHandler sets the handler for cancelled events
func (s *PrimarySource) SetCancelledHandler(handler func()) {
	s.cancelledHandler = handler
}

// Offer advertises a mime type
func (s *PrimarySource) Offer(mime string) error {
	return s.send(0, mime)
}

// Destroy destroys the source
func (s *PrimarySource) Destroy() error {
	return s.destroy(s, 1)
}

// Dispatch handles incoming events
func (s *PrimarySource) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0: // send
		mime := event.String()
		fd := int(event.Fd())
		s.emit(func() {
			if s.sendHandler != nil {
				s.sendHandler(mime, fd)
				return
			}
			closeFD(fd)
		})
	case 1: // cancelled
		s.emit(func() {
			if s.cancelledHandler != nil {
				s.cancelledHandler()
			}
		})
	}
}
