package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bnema/waykit/client"
	"github.com/bnema/waykit/datadevice"
	"github.com/bnema/waykit/seat"
)

// textMimes are the names X11 and Wayland clients use for plain text.
var textMimes = []string{"text/plain;charset=utf-8", "text/plain", "UTF8_STRING", "STRING", "TEXT"}

func isText(mime string) bool {
	return strings.HasPrefix(mime, "text/") || slices.Contains(textMimes, mime)
}

// offeredMimes returns mime followed by its text aliases.
func offeredMimes(mime string) []string {
	out := []string{mime}
	if !isText(mime) {
		return out
	}
	for _, alias := range textMimes {
		if alias != mime {
			out = append(out, alias)
		}
	}
	return out
}

// pickMime selects what to receive among offered: want itself, or any text
// alias when want is text.
func pickMime(offered []string, want string) (string, error) {
	if slices.Contains(offered, want) {
		return want, nil
	}
	if isText(want) {
		for _, alias := range textMimes {
			if slices.Contains(offered, alias) {
				return alias, nil
			}
		}
	}
	if len(offered) == 0 {
		return "", fmt.Errorf("selection offers no mime types")
	}
	return "", fmt.Errorf("selection has no %s data (offers: %s)", want, strings.Join(offered, ", "))
}

// selectionOffer is implemented by *datadevice.Offer and
// *datadevice.PrimaryOffer.
type selectionOffer interface {
	MimeTypes() []string
	Receive(mime string) (*datadevice.ReadPipe, error)
}

// selection follows the regular or the primary selection of one seat.
type selection struct {
	primary bool
	offer   selectionOffer
	// notify runs on every change with the new mime types, nil when cleared.
	notify  func(primary bool, mimes []string)

	device     *datadevice.Device
	primaryDev *datadevice.PrimaryDevice
}

func (s *selection) set(o selectionOffer) {
	s.offer = o
	if s.notify == nil {
		return
	}
	var mimes []string
	if o != nil {
		mimes = o.MimeTypes()
	}
	s.notify(s.primary, mimes)
}

type clipboardHandler struct{ *selection }

func (h clipboardHandler) Selection(d *datadevice.Device, o *datadevice.Offer) {
	if o == nil {
		h.set(nil)
		return
	}
	h.set(o)
}

func (clipboardHandler) DragEnter(*datadevice.Device, datadevice.DragEvent)  {}
func (clipboardHandler) DragMotion(*datadevice.Device, datadevice.DragEvent) {}
func (clipboardHandler) DragLeave(*datadevice.Device)                        {}
func (clipboardHandler) Drop(*datadevice.Device, datadevice.DragEvent)       {}

type primaryHandler struct{ *selection }

func (h primaryHandler) Selection(d *datadevice.PrimaryDevice, o *datadevice.PrimaryOffer) {
	if o == nil {
		h.set(nil)
		return
	}
	h.set(o)
}

// attachSelection creates the data device, or the primary selection device,
// of s.
func attachSelection(c *client.Client, s *seat.Seat, primary bool, notify func(bool, []string)) (*selection, error) {
	sel := &selection{primary: primary, notify: notify}
	if primary {
		d, err := c.PrimarySelection().Device(s, primaryHandler{sel})
		if err != nil {
			return nil, fmt.Errorf("primary selection: %w", err)
		}
		sel.primaryDev = d
		return sel, nil
	}
	d, err := c.DataDevice().Device(s, clipboardHandler{sel})
	if err != nil {
		return nil, fmt.Errorf("data device: %w", err)
	}
	sel.device = d
	return sel, nil
}

// publish creates a source serving mimes through h and makes it the
// selection. serial must come from an input event of the focused window.
func (s *selection) publish(c *client.Client, mimes []string, h datadevice.SourceHandler, serial uint32) error {
	if s.primaryDev != nil {
		src, err := c.PrimarySelection().CreateSource(mimes, h)
		if err != nil {
			return err
		}
		return src.SetSelection(s.primaryDev, serial)
	}
	src, err := c.DataDevice().CreateCopyPasteSource(mimes, h)
	if err != nil {
		return err
	}
	return src.SetSelection(s.device, serial)
}

func (s *selection) Release() error {
	if s.primaryDev != nil {
		return s.primaryDev.Destroy()
	}
	if s.device != nil {
		return s.device.Release()
	}
	return nil
}
