package datadevice

import (
	"errors"
	"fmt"

	"github.com/bnema/waykit/internal/logger"
	"github.com/bnema/waykit/internal/protocols"
	"golang.org/x/sys/unix"
)

// OfferID identifies an offer for the lifetime of its device. Ids are never
// reused, unlike protocol object ids.
type OfferID uint64

// OfferKind tells what the compositor designated an offer for.
type OfferKind int

const (
	Undetermined OfferKind = iota
	Selection
	Drag
)

func (k OfferKind) String() string {
	switch k {
	case Undetermined:
		return "undetermined"
	case Selection:
		return "selection"
	case Drag:
		return "drag"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// OfferWire is the protocol object behind an Offer.
type OfferWire interface {
	Version() uint32
	Accept(serial uint32, mime string) error
	Receive(mime string, fd int) error
	Finish() error
	SetActions(actions, preferred uint32) error
	Destroy() error
}

// Offer is data another client (or this one) made available.
type Offer struct {
	id     OfferID
	wireID uint32
	wire   OfferWire
	dev    *Device
	kind   OfferKind

	mimes         []string
	sourceActions DndAction
	action        DndAction

	// drag state
	serial   uint32
	surface  uint32
	x, y     float64
	accepted string
	finished bool

	destroyed bool
}

func (o *Offer) handlers() protocols.DataOfferHandlers {
	return protocols.DataOfferHandlers{
		Offer:         o.offer,
		SourceActions: func(a uint32) { o.sourceActions = actionFromWire(a) },
		Action:        func(a uint32) { o.action = actionFromWire(a) },
	}
}

func (o *Offer) offer(mime string) {
	o.mimes = append(o.mimes, mime)
}

// ID returns the stable id of the offer.
func (o *Offer) ID() OfferID {
	return o.id
}

// Kind returns what the offer was designated for.
func (o *Offer) Kind() OfferKind {
	return o.kind
}

// MimeTypes returns the advertised mime types in advertisement order,
// duplicates included.
func (o *Offer) MimeTypes() []string {
	return append([]string(nil), o.mimes...)
}

// HasMimeType reports whether mime was advertised.
func (o *Offer) HasMimeType(mime string) bool {
	for _, m := range o.mimes {
		if m == mime {
			return true
		}
	}
	return false
}

// SourceActions returns the actions the drag source supports.
func (o *Offer) SourceActions() DndAction {
	return o.sourceActions
}

// Action returns the action the compositor selected.
func (o *Offer) Action() DndAction {
	return o.action
}

// Serial returns the serial of the enter event of a drag offer.
func (o *Offer) Serial() uint32 {
	return o.serial
}

// Position returns the latest drag position in surface coordinates and
// the surface id.
func (o *Offer) Position() (surface uint32, x, y float64) {
	return o.surface, o.x, o.y
}

// Accepted returns the accepted mime type, empty when none.
func (o *Offer) Accepted() string {
	return o.accepted
}

// Destroyed reports whether the offer was destroyed.
func (o *Offer) Destroyed() bool {
	return o.destroyed
}

// Receive asks the source for mime. The returned pipe yields the payload
// until EOF. Several mime types may be received from the same offer.
func (o *Offer) Receive(mime string) (*ReadPipe, error) {
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

// ReceiveToFD asks the source to write mime into fd. The caller keeps
// ownership of fd.
func (o *Offer) ReceiveToFD(mime string, fd int) error {
	if mime == "" {
		return ErrInvalidReceive
	}
	if o.destroyed {
		return ErrOfferDestroyed
	}
	return o.wire.Receive(mime, fd)
}

// Accept tells the source which mime type would be accepted on drop. An
// empty mime type accepts nothing.
func (o *Offer) Accept(serial uint32, mime string) error {
	if o.destroyed {
		return ErrOfferDestroyed
	}
	if err := o.wire.Accept(serial, mime); err != nil {
		return err
	}
	o.accepted = mime
	return nil
}

// SetActions sets the supported and the preferred action of a drag
// offer.
func (o *Offer) SetActions(actions, preferred DndAction) error {
	if o.destroyed {
		return ErrOfferDestroyed
	}
	if o.kind != Drag {
		return ErrNotDrag
	}
	if o.wire.Version() < 3 {
		return ErrVersion
	}
	return o.wire.SetActions(uint32(actions&actionMask), uint32(preferred&actionMask))
}

// Finish completes a drop. It needs an accepted mime type, may only be
// called once and destroys the offer.
func (o *Offer) Finish() error {
	if o.finished {
		return ErrAlreadyFinished
	}
	if o.destroyed {
		return ErrOfferDestroyed
	}
	if o.kind != Drag {
		return ErrNotDrag
	}
	if o.wire.Version() < 3 {
		return ErrVersion
	}
	if o.accepted == "" {
		return ErrNothingAccepted
	}
	o.finished = true
	err := o.wire.Finish()
	return errors.Join(err, o.Destroy())
}

// Destroy destroys the offer. It is a no-op on destroyed offers.
func (o *Offer) Destroy() error {
	if o.destroyed {
		return nil
	}
	o.destroyed = true
	if o.dev != nil {
		o.dev.forget(o)
	}
	if err := o.wire.Destroy(); err != nil {
		logger.Warn("failed to destroy offer", "offer", o.id, "error", err)
		return err
	}
	return nil
}
