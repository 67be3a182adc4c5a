package datadevice

import (
	"fmt"

	"github.com/bnema/waykit/internal/logger"
	"github.com/bnema/waykit/internal/protocols"
	"github.com/bnema/wlturbo/wl"
	"golang.org/x/sys/unix"
)

// SourceHandler serves the data of a source on the loop goroutine.
type SourceHandler interface {
	// Send writes the payload for mime and closes w. Large payloads should
	// be written from another goroutine.
	Send(mime string, w *WritePipe)
	// Cancelled is terminal. The source is destroyed once it returns.
	Cancelled()
}

// DragHandler adds the drag-and-drop events of a DragSource.
type DragHandler interface {
	SourceHandler
	// Target reports the mime type accepted by the target, empty for none.
	Target(mime string)
	Action(a DndAction)
	DropPerformed()
	// Finished is terminal. The source is destroyed once it returns.
	Finished()
}

// SourceWire is the protocol object behind a source.
type SourceWire interface {
	Version() uint32
	Offer(mime string) error
	SetActions(actions uint32) error
	Destroy() error
}

type source struct {
	object    string
	wire      SourceWire
	proto     *protocols.DataSource
	handler   SourceHandler
	rep       *reporter
	mimes     []string
	cancelled bool
	destroyed bool
}

func (s *source) init(mimes []string) error {
	s.mimes = append([]string(nil), mimes...)
	for _, m := range s.mimes {
		if err := s.wire.Offer(m); err != nil {
			return fmt.Errorf("offer %s: %w", m, err)
		}
	}
	return nil
}

func (s *source) send(mime string, fd int) {
	if s.cancelled || s.destroyed {
		_ = unix.Close(fd)
		s.rep.fail(&ProtocolViolation{
			Object: s.object,
			Err:    fmt.Errorf("send %q: %w", mime, ErrSourceCancelled),
		})
		return
	}
	w, err := newWritePipe(fd)
	if err != nil {
		logger.Warn("failed to wrap send pipe", "mime", mime, "error", err)
		return
	}
	if s.handler == nil {
		_ = w.Close()
		return
	}
	s.handler.Send(mime, w)
}

func (s *source) cancel() {
	if s.cancelled {
		return
	}
	s.cancelled = true
	if s.handler != nil {
		s.handler.Cancelled()
	}
	_ = s.Destroy()
}

// MimeTypes returns the offered mime types.
func (s *source) MimeTypes() []string {
	return append([]string(nil), s.mimes...)
}

// Cancelled reports whether the compositor cancelled the source.
func (s *source) Cancelled() bool {
	return s.cancelled
}

// Destroy destroys the source. It is a no-op on destroyed sources.
func (s *source) Destroy() error {
	if s.destroyed {
		return nil
	}
	s.destroyed = true
	return s.wire.Destroy()
}

func (s *source) usable() error {
	if s.cancelled || s.destroyed {
		return ErrSourceCancelled
	}
	return nil
}

// CopyPasteSource serves the clipboard selection.
type CopyPasteSource struct {
	source
}

// DragSource serves a drag-and-drop operation.
type DragSource struct {
	source
	drag   DragHandler
	action DndAction
	target string
}

func (m *Manager) newSourceWire() (*protocols.DataSource, error) {
	mgr, err := m.global.Get()
	if err != nil {
		return nil, err
	}
	return mgr.CreateDataSource()
}

// CreateCopyPasteSource creates a selection source offering mimes.
func (m *Manager) CreateCopyPasteSource(mimes []string, h SourceHandler) (*CopyPasteSource, error) {
	w, err := m.newSourceWire()
	if err != nil {
		return nil, err
	}
	s, err := newCopyPasteSource(w, h, m.rep, mimes)
	if err != nil {
		return nil, err
	}
	s.proto = w
	w.SetHandlers(protocols.DataSourceHandlers{
		Send:      s.send,
		Cancelled: s.cancel,
	})
	return s, nil
}

func newCopyPasteSource(w SourceWire, h SourceHandler, rep *reporter, mimes []string) (*CopyPasteSource, error) {
	s := &CopyPasteSource{source{object: protocols.DataSourceInterface, wire: w, handler: h, rep: rep}}
	if err := s.init(mimes); err != nil {
		_ = w.Destroy()
		return nil, err
	}
	return s, nil
}

// SetSelection makes the source the selection of d.
func (s *CopyPasteSource) SetSelection(d *Device, serial uint32) error {
	if err := s.usable(); err != nil {
		return err
	}
	return d.wire.SetSelection(s.proto, serial)
}

// CreateDragSource creates a drag source offering mimes with actions.
func (m *Manager) CreateDragSource(mimes []string, actions DndAction, h DragHandler) (*DragSource, error) {
	w, err := m.newSourceWire()
	if err != nil {
		return nil, err
	}
	s, err := newDragSource(w, h, m.rep, mimes, actions)
	if err != nil {
		return nil, err
	}
	s.proto = w
	w.SetHandlers(protocols.DataSourceHandlers{
		Target:           s.targetEvent,
		Send:             s.send,
		Cancelled:        s.cancel,
		DndDropPerformed: s.dropPerformed,
		DndFinished:      s.finished,
		Action:           s.actionEvent,
	})
	return s, nil
}

func newDragSource(w SourceWire, h DragHandler, rep *reporter, mimes []string, actions DndAction) (*DragSource, error) {
	s := &DragSource{source: source{object: protocols.DataSourceInterface, wire: w, handler: h, rep: rep}, drag: h}
	if err := s.init(mimes); err != nil {
		_ = w.Destroy()
		return nil, err
	}
	if w.Version() >= 3 {
		if err := w.SetActions(uint32(actions & actionMask)); err != nil {
			_ = w.Destroy()
			return nil, fmt.Errorf("set actions: %w", err)
		}
	}
	return s, nil
}

// SetActions changes the supported actions.
func (s *DragSource) SetActions(actions DndAction) error {
	if err := s.usable(); err != nil {
		return err
	}
	if s.wire.Version() < 3 {
		return ErrVersion
	}
	return s.wire.SetActions(uint32(actions & actionMask))
}

// StartDrag starts the drag on d from origin. icon may be nil.
func (s *DragSource) StartDrag(d *Device, origin, icon wl.Object, serial uint32) error {
	if err := s.usable(); err != nil {
		return err
	}
	return d.wire.StartDrag(s.proto, origin, icon, serial)
}

// Action returns the action selected by the compositor.
func (s *DragSource) Action() DndAction {
	return s.action
}

// Target returns the mime type accepted by the target.
func (s *DragSource) Target() string {
	return s.target
}

func (s *DragSource) targetEvent(mime string) {
	s.target = mime
	if s.drag != nil {
		s.drag.Target(mime)
	}
}

func (s *DragSource) actionEvent(a uint32) {
	s.action = actionFromWire(a)
	if s.drag != nil {
		s.drag.Action(s.action)
	}
}

func (s *DragSource) dropPerformed() {
	if s.drag != nil {
		s.drag.DropPerformed()
	}
}

func (s *DragSource) finished() {
	if s.drag != nil {
		s.drag.Finished()
	}
	_ = s.Destroy()
}
