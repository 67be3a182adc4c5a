package datadevice

import (
	"errors"
	"fmt"

	"github.com/bnema/waykit/internal/logger"
)

var (
	// ErrInvalidReceive is returned when receiving with an empty mime type.
	ErrInvalidReceive = errors.New("receive needs a mime type")
	// ErrOfferDestroyed is returned for requests on a destroyed offer.
	ErrOfferDestroyed = errors.New("offer already destroyed")
	// ErrAlreadyFinished is returned by a second Finish.
	ErrAlreadyFinished = errors.New("drag offer already finished")
	// ErrNothingAccepted is returned by Finish before a mime type was accepted.
	ErrNothingAccepted = errors.New("finish without an accepted mime type")
	// ErrNotDrag is returned for drag-only requests on other offers.
	ErrNotDrag = errors.New("not a drag offer")
	// ErrSourceCancelled is returned for requests on a cancelled source.
	ErrSourceCancelled = errors.New("source was cancelled")
	// ErrUnknownOffer is wrapped by violations naming an offer that was never
	// announced.
	ErrUnknownOffer = errors.New("unknown offer")
	// ErrVersion is returned for requests the bound manager version lacks.
	ErrVersion = errors.New("request needs wl_data_device_manager version 3")
)

// ProtocolViolation reports server behavior that breaks the protocol. It
// is returned from the event loop and ends Run.
type ProtocolViolation struct {
	Object string
	Err    error
}

func (e *ProtocolViolation) Error() string {
	return fmt.Sprintf("protocol violation on %s: %v", e.Object, e.Err)
}

func (e *ProtocolViolation) Unwrap() error {
	return e.Err
}

// reporter surfaces violations to the loop. The first violation is kept.
type reporter struct {
	post func(func() error)
	err  error
}

func (r *reporter) fail(v *ProtocolViolation) {
	logger.Error("protocol violation", "object", v.Object, "error", v.Err)
	if r.err != nil {
		return
	}
	r.err = v
	if r.post != nil {
		r.post(func() error { return v })
	}
}
