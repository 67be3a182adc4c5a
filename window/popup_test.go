package window

import (
	"fmt"
	"testing"

	"github.com/bnema/waykit/internal/protocols"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePositioner struct {
	calls     []string
	destroyed bool
}

func (p *fakePositioner) record(format string, args ...any) error {
	p.calls = append(p.calls, fmt.Sprintf(format, args...))
	return nil
}

func (p *fakePositioner) SetSize(w, h int32) error               { return p.record("size %dx%d", w, h) }
func (p *fakePositioner) SetAnchorRect(x, y, w, h int32) error   { return p.record("rect %d,%d %dx%d", x, y, w, h) }
func (p *fakePositioner) SetAnchor(a uint32) error               { return p.record("anchor %d", a) }
func (p *fakePositioner) SetGravity(g uint32) error              { return p.record("gravity %d", g) }
func (p *fakePositioner) SetConstraintAdjustment(a uint32) error { return p.record("adjust %d", a) }
func (p *fakePositioner) SetOffset(x, y int32) error             { return p.record("offset %d,%d", x, y) }
func (p *fakePositioner) SetReactive() error                     { return p.record("reactive") }
func (p *fakePositioner) SetParentSize(w, h int32) error         { return p.record("parent %dx%d", w, h) }
func (p *fakePositioner) SetParentConfigure(s uint32) error      { return p.record("serial %d", s) }
func (p *fakePositioner) Destroy() error                         { p.destroyed = true; return nil }

type fakePopupWire struct {
	version    uint32
	grabs      []uint32
	reposition []uint32
	positioner positionerWire
	destroyed  bool
}

func (f *fakePopupWire) Version() uint32 { return f.version }

func (f *fakePopupWire) Grab(_ *protocols.Seat, serial uint32) error {
	f.grabs = append(f.grabs, serial)
	return nil
}

func (f *fakePopupWire) Reposition(p positionerWire, token uint32) error {
	f.positioner = p
	f.reposition = append(f.reposition, token)
	return nil
}

func (f *fakePopupWire) Destroy() error {
	f.destroyed = true
	return nil
}

type recordingPopupHandler struct {
	configures []PopupConfigure
	done       int
}

func (h *recordingPopupHandler) ConfigurePopup(_ *Popup, c PopupConfigure) {
	h.configures = append(h.configures, c)
}

func (h *recordingPopupHandler) PopupDone(*Popup) { h.done++ }

type popupFixture struct {
	popup       *Popup
	surface     *fakeSurface
	xdg         *fakeXdg
	wire        *fakePopupWire
	positioners []*fakePositioner
	handler     *recordingPopupHandler
}

func newTestPopup(t *testing.T, version uint32) *popupFixture {
	t.Helper()
	f := &popupFixture{
		surface: &fakeSurface{},
		xdg:     &fakeXdg{},
		wire:    &fakePopupWire{version: version},
		handler: &recordingPopupHandler{},
	}
	newPositioner := func() (positionerWire, error) {
		p := &fakePositioner{}
		f.positioners = append(f.positioners, p)
		return p, nil
	}
	f.popup = newPopup(f.surface, f.xdg, f.wire, newPositioner, f.handler)
	return f
}

func TestPositionerApply(t *testing.T) {
	pos := Positioner{
		Width:              120,
		Height:             80,
		AnchorX:            10,
		AnchorY:            20,
		AnchorWidth:        1,
		AnchorHeight:       1,
		Anchor:             AnchorBottomRight,
		Gravity:            AnchorBottomRight,
		Adjustment:         AdjustSlideX | AdjustFlipY,
		OffsetX:            2,
		OffsetY:            3,
		Reactive:           true,
		ParentWidth:        640,
		ParentHeight:       480,
		ParentConfigure:    9,
		HasParentConfigure: true,
	}

	t.Run("version 3 sends everything", func(t *testing.T) {
		p := &fakePositioner{}
		require.NoError(t, pos.apply(p, 3))
		assert.Equal(t, []string{
			"size 120x80",
			"rect 10,20 1x1",
			"anchor 8",
			"gravity 8",
			"adjust 9",
			"offset 2,3",
			"reactive",
			"parent 640x480",
			"serial 9",
		}, p.calls)
	})

	t.Run("older versions skip the reactive fields", func(t *testing.T) {
		p := &fakePositioner{}
		require.NoError(t, pos.apply(p, 2))
		assert.Len(t, p.calls, 6)
		assert.NotContains(t, p.calls, "reactive")
	})

	t.Run("rejects empty and negative sizes", func(t *testing.T) {
		assert.ErrorIs(t, Positioner{Width: 0, Height: 10}.apply(&fakePositioner{}, 3), ErrInvalidPositioner)
		err := Positioner{Width: 10, Height: 10, AnchorWidth: -1}.apply(&fakePositioner{}, 3)
		assert.Error(t, err)
	})
}

func TestPopupConfigureKinds(t *testing.T) {
	f := newTestPopup(t, 3)

	f.popup.popupConfigure(5, 6, 100, 50)
	f.popup.surfaceConfigure(11)
	require.True(t, f.popup.Configured())
	assert.Equal(t, []uint32{11}, f.xdg.acks, "popup configures are acked right away")

	f.popup.popupConfigure(7, 6, 100, 50)
	f.popup.surfaceConfigure(12)

	require.NoError(t, f.popup.Reposition(Positioner{Width: 80, Height: 40}, 77))
	f.popup.repositionedEvent(77)
	f.popup.popupConfigure(0, 0, 80, 40)
	f.popup.surfaceConfigure(13)

	f.popup.surfaceConfigure(14)

	require.Len(t, f.handler.configures, 4)
	assert.Equal(t, PopupConfigure{X: 5, Y: 6, Width: 100, Height: 50, Serial: 11, Kind: ConfigureInitial}, f.handler.configures[0])
	assert.Equal(t, ConfigureReactive, f.handler.configures[1].Kind)
	assert.Equal(t, PopupConfigure{Width: 80, Height: 40, Serial: 13, Kind: ConfigureReposition, Token: 77}, f.handler.configures[2])
	assert.Equal(t, ConfigureReactive, f.handler.configures[3].Kind, "token is consumed by one configure")
	assert.Equal(t, []uint32{11, 12, 13, 14}, f.xdg.acks)
	assert.Equal(t, f.handler.configures[3], f.popup.Current())
}

func TestPopupReposition(t *testing.T) {
	f := newTestPopup(t, 3)
	require.NoError(t, f.popup.Reposition(Positioner{Width: 80, Height: 40, Anchor: AnchorTop}, 5))

	require.Len(t, f.positioners, 1)
	assert.Same(t, f.positioners[0], f.wire.positioner)
	assert.Contains(t, f.positioners[0].calls, "anchor 1")
	assert.True(t, f.positioners[0].destroyed)
	assert.Equal(t, []uint32{5}, f.wire.reposition)

	assert.ErrorIs(t, f.popup.Reposition(Positioner{}, 6), ErrInvalidPositioner)
	assert.Equal(t, []uint32{5}, f.wire.reposition)

	old := newTestPopup(t, 2)
	assert.Error(t, old.popup.Reposition(Positioner{Width: 1, Height: 1}, 1))
	assert.Empty(t, old.positioners)
}

func TestPopupGrabBeforeCommit(t *testing.T) {
	f := newTestPopup(t, 3)
	require.NoError(t, f.popup.Grab(nil, 42))
	require.NoError(t, f.popup.Commit())
	assert.Equal(t, 1, f.surface.commits)

	assert.Error(t, f.popup.Grab(nil, 43))
	assert.Equal(t, []uint32{42}, f.wire.grabs)
}

func TestPopupDoneAndDestroy(t *testing.T) {
	f := newTestPopup(t, 3)
	f.popup.doneEvent()
	assert.True(t, f.popup.Done())
	assert.Equal(t, 1, f.handler.done)

	require.NoError(t, f.popup.Destroy())
	assert.True(t, f.wire.destroyed)
	assert.True(t, f.xdg.destroyed)
	require.NoError(t, f.popup.Destroy())

	err := f.popup.Commit()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "destroyed")
}

func TestPopupParents(t *testing.T) {
	f := newTestPopup(t, 3)
	var parent PopupParent = f.popup
	assert.Nil(t, parent.xdgSurface(), "popups built on fakes have no wire surface")

	w := &Window{xdg: &fakeXdg{}}
	parent = w
	assert.Nil(t, parent.xdgSurface())
}
