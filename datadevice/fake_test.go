package datadevice

import (
	"github.com/bnema/waykit/internal/protocols"
	"github.com/bnema/wlturbo/wl"
	"golang.org/x/sys/unix"
)

type fakeQueue struct {
	posted []func() error
}

func (q *fakeQueue) Post(fn func() error) {
	q.posted = append(q.posted, fn)
}

type fakeOffer struct {
	version  uint32
	accepted []string
	receives []string
	actions  [][2]uint32
	finishes int
	destroys int

	// serve plays the compositor forwarding receive to a source.
	serve func(mime string, fd int)
}

func (o *fakeOffer) Version() uint32 { return o.version }

func (o *fakeOffer) Accept(_ uint32, mime string) error {
	o.accepted = append(o.accepted, mime)
	return nil
}

func (o *fakeOffer) Receive(mime string, fd int) error {
	o.receives = append(o.receives, mime)
	if o.serve != nil {
		dup, err := unix.Dup(fd)
		if err != nil {
			return err
		}
		o.serve(mime, dup)
	}
	return nil
}

func (o *fakeOffer) Finish() error {
	o.finishes++
	return nil
}

func (o *fakeOffer) SetActions(actions, preferred uint32) error {
	o.actions = append(o.actions, [2]uint32{actions, preferred})
	return nil
}

func (o *fakeOffer) Destroy() error {
	o.destroys++
	return nil
}

type dragStart struct {
	withSource bool
	serial     uint32
}

type fakeDevice struct {
	version    uint32
	selections []uint32
	drags      []dragStart
	released   bool
}

func (d *fakeDevice) Version() uint32 { return d.version }

func (d *fakeDevice) SetSelection(_ *protocols.DataSource, serial uint32) error {
	d.selections = append(d.selections, serial)
	return nil
}

func (d *fakeDevice) StartDrag(source *protocols.DataSource, _, _ wl.Object, serial uint32) error {
	d.drags = append(d.drags, dragStart{withSource: source != nil, serial: serial})
	return nil
}

func (d *fakeDevice) Release() error {
	d.released = true
	return nil
}

type fakeSource struct {
	version   uint32
	offered   []string
	actions   []uint32
	destroyed int
}

func (s *fakeSource) Version() uint32 { return s.version }

func (s *fakeSource) Offer(mime string) error {
	s.offered = append(s.offered, mime)
	return nil
}

func (s *fakeSource) SetActions(actions uint32) error {
	s.actions = append(s.actions, actions)
	return nil
}

func (s *fakeSource) Destroy() error {
	s.destroyed++
	return nil
}

// textSource answers every send with a fixed payload.
type textSource struct {
	payload   string
	sent      []string
	cancelled int

	targets  []string
	actions  []DndAction
	dropped  int
	finished int
}

func (s *textSource) Send(mime string, w *WritePipe) {
	s.sent = append(s.sent, mime)
	_, _ = w.Write([]byte(s.payload))
	_ = w.Close()
}

func (s *textSource) Cancelled()         { s.cancelled++ }
func (s *textSource) Target(mime string) { s.targets = append(s.targets, mime) }
func (s *textSource) Action(a DndAction) { s.actions = append(s.actions, a) }
func (s *textSource) DropPerformed()     { s.dropped++ }
func (s *textSource) Finished()          { s.finished++ }
