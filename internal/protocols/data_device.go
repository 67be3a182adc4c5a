package protocols

import (
	"sync"

	"github.com/bnema/wlturbo/wl"
)

// Protocol interface names
const (
	DataDeviceManagerInterface = "wl_data_device_manager"
	DataDeviceInterface        = "wl_data_device"
	DataSourceInterface        = "wl_data_source"
	DataOfferInterface         = "wl_data_offer"
)

// DataDeviceManager is a wl_data_device_manager.
type DataDeviceManager struct {
	Proxy
}

// NewDataDeviceManager creates an unbound manager proxy
func NewDataDeviceManager(ctx *wl.Context, q Queue) *DataDeviceManager {
	m := &DataDeviceManager{}
	m.setup(ctx, q, 1)
	return m
}

// CreateDataSource creates a new data source
func (m *DataDeviceManager) CreateDataSource() (*DataSource, error) {
	src := &DataSource{}
	id := m.create(src)

	// Opcode 0: create_data_source
	const opcode = 0
	if err := m.send(opcode, id); err != nil {
		m.forget(src)
		return nil, err
	}
	return src, nil
}

// GetDataDevice creates the data device of seat
func (m *DataDeviceManager) GetDataDevice(seat *Seat) (*DataDevice, error) {
	dev := &DataDevice{}
	id := m.create(dev)

	// Opcode 1: get_data_device
	const opcode = 1
	if err := m.send(opcode, id, seat.ID()); err != nil {
		m.forget(dev)
		return nil, err
	}
	return dev, nil
}

// DataEnter carries a wl_data_device.enter event
type DataEnter struct {
	Serial  uint32
	Surface uint32
	X, Y    float64
	// OfferID is the raw offer argument, 0 for a drag without source.
	OfferID uint32
	Offer   *DataOffer
}

// DataDeviceHandlers receives wl_data_device events. Nil members are skipped.
type DataDeviceHandlers struct {
	DataOffer func(*DataOffer)
	Enter     func(DataEnter)
	Leave     func()
	Motion    func(time uint32, x, y float64)
	Drop      func()
	Selection func(id uint32, offer *DataOffer)
}

// DataDevice is a wl_data_device.
type DataDevice struct {
	Proxy
	handlers DataDeviceHandlers

	// offers resolves offer arguments of enter and selection events
	mu     sync.Mutex
	offers map[uint32]*DataOffer
}

// SetHandlers replaces the event handlers
func (d *DataDevice) SetHandlers(h DataDeviceHandlers) {
	d.handlers = h
}

// StartDrag starts a drag-and-drop operation. source may be nil for a
// client-local drag, icon may be nil.
func (d *DataDevice) StartDrag(source *DataSource, origin, icon wl.Object, serial uint32) error {
	var sid uint32
	if source != nil {
		sid = source.ID()
	}

	// Opcode 0: start_drag
	const opcode = 0
	return d.send(opcode, sid, objectID(origin), objectID(icon), serial)
}

// SetSelection sets the selection; a nil source clears it.
func (d *DataDevice) SetSelection(source *DataSource, serial uint32) error {
	var sid uint32
	if source != nil {
		sid = source.ID()
	}

	// Opcode 1: set_selection
	const opcode = 1
	return d.send(opcode, sid, serial)
}

// Release releases the device (version 2)
func (d *DataDevice) Release() error {
	if d.version < 2 {
		d.destroyed = true
		d.forget(d)
		return nil
	}
	return d.destroy(d, 2)
}

// lookup resolves an offer argument received on the pump goroutine.
func (d *DataDevice) lookup(id uint32) *DataOffer {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.offers[id]
}

func (d *DataDevice) track(offer *DataOffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.offers == nil {
		d.offers = make(map[uint32]*DataOffer)
	}
	d.offers[offer.ID()] = offer
}

func (d *DataDevice) untrack(id uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.offers, id)
}

// Dispatch handles incoming events
func (d *DataDevice) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0: // data_offer
		offer := &DataOffer{}
		d.adopt(offer, event.Uint32())
		offer.owner = d
		d.track(offer)
		d.emit(func() {
			if d.handlers.DataOffer != nil {
				d.handlers.DataOffer(offer)
			}
		})
	case 1: // enter
		e := DataEnter{
			Serial:  event.Uint32(),
			Surface: event.Uint32(),
			X:       fixedFloat(event.Fixed()),
			Y:       fixedFloat(event.Fixed()),
		}
		e.OfferID = event.Uint32()
		e.Offer = d.lookup(e.OfferID)
		d.emit(func() {
			if d.handlers.Enter != nil {
				d.handlers.Enter(e)
			}
		})
	case 2: // leave
		d.emit(func() {
			if d.handlers.Leave != nil {
				d.handlers.Leave()
			}
		})
	case 3: // motion
		time := event.Uint32()
		x, y := fixedFloat(event.Fixed()), fixedFloat(event.Fixed())
		d.emit(func() {
			if d.handlers.Motion != nil {
				d.handlers.Motion(time, x, y)
			}
		})
	case 4: // drop
		d.emit(func() {
			if d.handlers.Drop != nil {
				d.handlers.Drop()
			}
		})
	case 5: // selection
		id := event.Uint32()
		offer := d.lookup(id)
		d.emit(func() {
			if d.handlers.Selection != nil {
				d.handlers.Selection(id, offer)
			}
		})
	}
}

// DataOfferHandlers receives wl_data_offer events. Nil members are skipped.
type DataOfferHandlers struct {
	Offer         func(mime string)
	SourceActions func(actions uint32)
	Action        func(action uint32)
}

// DataOffer is a wl_data_offer.
type DataOffer struct {
	Proxy
	handlers DataOfferHandlers
	owner    *DataDevice
}

// SetHandlers replaces the event handlers
func (o *DataOffer) SetHandlers(h DataOfferHandlers) {
	o.handlers = h
}

// Accept tells the source which mime type would be accepted; an empty
// mime type signals that nothing is accepted.
func (o *DataOffer) Accept(serial uint32, mime string) error {
	return o.send(0, serial, nullableString(mime))
}

// Receive asks the source to write mime data into fd. The caller keeps
// ownership of fd.
func (o *DataOffer) Receive(mime string, fd int) error {
	// Opcode 1: receive(mime_type, fd)
	const opcode = 1
	return o.sendFD(opcode, fd, mime, uintptr(fd))
}

// Destroy destroys the offer
func (o *DataOffer) Destroy() error {
	if o.owner != nil {
		o.owner.untrack(o.ID())
	}
	return o.destroy(o, 2)
}

// Finish completes a drag-and-drop operation (version 3)
func (o *DataOffer) Finish() error {
	return o.send(3)
}

// SetActions sets the accepted and preferred drag-and-drop actions (version 3)
func (o *DataOffer) SetActions(actions, preferred uint32) error {
	return o.send(4, actions, preferred)
}

// Dispatch handles incoming events
func (o *DataOffer) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0: // offer
		mime := event.String()
		o.emit(func() {
			if o.handlers.Offer != nil {
				o.handlers.Offer(mime)
			}
		})
	case 1: // source_actions
		actions := event.Uint32()
		o.emit(func() {
			if o.handlers.SourceActions != nil {
				o.handlers.SourceActions(actions)
			}
		})
	case 2: // action
		action := event.Uint32()
		o.emit(func() {
			if o.handlers.Action != nil {
				o.handlers.Action(action)
			}
		})
	}
}

// DataSourceHandlers receives wl_data_source events. Nil members are skipped.
type DataSourceHandlers struct {
	Target func(mime string)
	// Send owns fd and must close it.
	Send             func(mime string, fd int)
	Cancelled        func()
	DndDropPerformed func()
	DndFinished      func()
	Action           func(action uint32)
}

// DataSource is a wl_data_source.
type DataSource struct {
	Proxy
	handlers DataSourceHandlers
}

// SetHandlers replaces the event handlers
func (s *DataSource) SetHandlers(h DataSourceHandlers) {
	s.handlers = h
}

// Offer advertises a mime type
func (s *DataSource) Offer(mime string) error {
	return s.send(0, mime)
}

// Destroy destroys the source
func (s *DataSource) Destroy() error {
	return s.destroy(s, 1)
}

// SetActions sets the drag-and-drop actions the source supports (version 3)
func (s *DataSource) SetActions(actions uint32) error {
	return s.send(2, actions)
}

// Dispatch handles incoming events
func (s *DataSource) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0: // target
		mime := event.String()
		s.emit(func() {
			if s.handlers.Target != nil {
				s.handlers.Target(mime)
			}
		})
	case 1: // send
		mime := event.String()
		fd := int(event.Fd())
		s.emit(func() {
			if s.handlers.Send != nil {
				s.handlers.Send(mime, fd)
				return
			}
			closeFD(fd)
		})
	case 2: // cancelled
		s.emit(func() {
			if s.handlers.Cancelled != nil {
				s.handlers.Cancelled()
			}
		})
	case 3: // dnd_drop_performed
		s.emit(func() {
			if s.handlers.DndDropPerformed != nil {
				s.handlers.DndDropPerformed()
			}
		})
	case 4: // dnd_finished
		s.emit(func() {
			if s.handlers.DndFinished != nil {
				s.handlers.DndFinished()
			}
		})
	case 5: // action
		action := event.Uint32()
		s.emit(func() {
			if s.handlers.Action != nil {
				s.handlers.Action(action)
			}
		})
	}
}
