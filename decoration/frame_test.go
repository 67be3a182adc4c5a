package decoration

import (
	"testing"

	"github.com/bnema/waykit/seat/pointer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sized(t *testing.T) (*Frame, *fakeParts, *recordingPool) {
	t.Helper()
	f, parts, pool := newTestFrame(t)
	require.NoError(t, f.Resize(200, 100))
	return f, parts, pool
}

func surfaceID(parts *fakeParts, p Part) uint32 {
	s, _ := parts.current(p)
	return s.id
}

func TestHitTesting(t *testing.T) {
	f, parts, _ := sized(t)

	tests := []struct {
		name   string
		part   Part
		x, y   float64
		want   Location
		cursor pointer.CursorIcon
	}{
		{"close button", PartHeader, 195, 10, LocationClose, pointer.CursorDefault},
		{"maximize button", PartHeader, 160, 10, LocationMaximize, pointer.CursorDefault},
		{"minimize button", PartHeader, 140, 10, LocationMinimize, pointer.CursorDefault},
		{"plain header", PartHeader, 100, 10, LocationHead, pointer.CursorDefault},
		{"top-left corner", PartTop, 2, 2, LocationTopLeft, pointer.CursorNwResize},
		{"top edge", PartTop, 100, 2, LocationTop, pointer.CursorNResize},
		{"top-right corner", PartTop, 206, 2, LocationTopRight, pointer.CursorNeResize},
		{"bottom-left corner", PartBottom, 1, 1, LocationBottomLeft, pointer.CursorSwResize},
		{"bottom edge", PartBottom, 50, 1, LocationBottom, pointer.CursorSResize},
		{"bottom-right corner", PartBottom, 205, 1, LocationBottomRight, pointer.CursorSeResize},
		{"left edge", PartLeft, 2, 60, LocationLeft, pointer.CursorWResize},
		{"right edge", PartRight, 2, 60, LocationRight, pointer.CursorEResize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cursor, ok := f.ClickPointMoved(surfaceID(parts, tt.part), tt.x, tt.y)
			require.True(t, ok)
			assert.Equal(t, tt.want, f.Hovered())
			assert.Equal(t, tt.cursor, cursor)
		})
	}
}

func TestPointerOnForeignSurface(t *testing.T) {
	f, _, _ := sized(t)

	_, ok := f.ClickPointMoved(999, 10, 10)
	assert.False(t, ok)
	assert.Equal(t, LocationNone, f.Hovered())
}

func TestButtonsFollowCapabilities(t *testing.T) {
	f, parts, _ := sized(t)
	assert.Equal(t, []Button{ButtonClose, ButtonMaximize, ButtonMinimize}, f.Buttons())

	f.UpdateWMCapabilities(CapWindowMenu | CapMinimize)
	assert.Equal(t, []Button{ButtonClose, ButtonMinimize}, f.Buttons())

	f.ClickPointMoved(surfaceID(parts, PartHeader), 160, 10)
	assert.Equal(t, LocationMinimize, f.Hovered())
	f.ClickPointMoved(surfaceID(parts, PartHeader), 140, 10)
	assert.Equal(t, LocationHead, f.Hovered())
}

func TestOnClick(t *testing.T) {
	tests := []struct {
		name      string
		part      Part
		x, y      float64
		click     FrameClick
		pressed   bool
		maximized bool
		want      FrameAction
		ok        bool
	}{
		{"press on header moves", PartHeader, 100, 10, ClickNormal, true, false, FrameAction{Kind: ActionMove}, true},
		{"release on header", PartHeader, 100, 10, ClickNormal, false, false, FrameAction{}, false},
		{"release on close", PartHeader, 195, 10, ClickNormal, false, false, FrameAction{Kind: ActionClose}, true},
		{"press on close", PartHeader, 195, 10, ClickNormal, true, false, FrameAction{}, false},
		{"release on maximize", PartHeader, 160, 10, ClickNormal, false, false, FrameAction{Kind: ActionMaximize}, true},
		{"release on maximize when maximized", PartHeader, 160, 10, ClickNormal, false, true, FrameAction{Kind: ActionUnmaximize}, true},
		{"release on minimize", PartHeader, 140, 10, ClickNormal, false, false, FrameAction{Kind: ActionMinimize}, true},
		{"press on corner resizes", PartTop, 2, 2, ClickNormal, true, false, FrameAction{Kind: ActionResize, Edge: EdgeTopLeft}, true},
		{"press on right edge", PartRight, 2, 60, ClickNormal, true, false, FrameAction{Kind: ActionResize, Edge: EdgeRight}, true},
		{"alternate on header opens menu", PartHeader, 100, 30, ClickAlternate, true, false, FrameAction{Kind: ActionShowMenu, X: 100, Y: 6}, true},
		{"alternate on border", PartLeft, 2, 60, ClickAlternate, true, false, FrameAction{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, parts, _ := sized(t)
			if tt.maximized {
				f.UpdateState(StateMaximized)
			}
			f.ClickPointMoved(surfaceID(parts, tt.part), tt.x, tt.y)

			got, ok := f.OnClick(tt.click, tt.pressed)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNotResizableIgnoresBorder(t *testing.T) {
	f, parts, _ := sized(t)
	f.SetResizable(false)

	f.ClickPointMoved(surfaceID(parts, PartBottom), 50, 1)
	_, ok := f.OnClick(ClickNormal, true)
	assert.False(t, ok)
}

func TestMenuNeedsCapability(t *testing.T) {
	f, parts, _ := sized(t)
	f.UpdateWMCapabilities(CapMaximize)

	f.ClickPointMoved(surfaceID(parts, PartHeader), 100, 10)
	_, ok := f.OnClick(ClickAlternate, true)
	assert.False(t, ok)
}

func TestDirtyRules(t *testing.T) {
	f, parts, _ := sized(t)
	_, err := f.Draw()
	require.NoError(t, err)
	require.False(t, f.IsDirty())

	f.UpdateState(StateTiledLeft)
	assert.False(t, f.IsDirty(), "tiling does not change the look")

	f.UpdateState(StateTiledLeft | StateActivated)
	assert.True(t, f.IsDirty())
	f.dirty = false

	f.UpdateWMCapabilities(CapAll)
	assert.False(t, f.IsDirty(), "same capabilities")
	f.UpdateWMCapabilities(CapWindowMenu)
	assert.True(t, f.IsDirty())
	f.dirty = false

	header := surfaceID(parts, PartHeader)
	f.ClickPointMoved(header, 100, 10)
	assert.False(t, f.IsDirty(), "moving over the header")
	f.ClickPointMoved(header, 195, 10)
	assert.True(t, f.IsDirty(), "entering a button")
	f.dirty = false
	f.ClickPointMoved(header, 190, 12)
	assert.False(t, f.IsDirty(), "moving inside a button")
	f.ClickPointMoved(header, 100, 10)
	assert.True(t, f.IsDirty(), "leaving a button")
	f.dirty = false

	f.ClickPointLeft()
	assert.False(t, f.IsDirty(), "leaving the frame from the header")
	assert.Equal(t, LocationNone, f.Hovered())
	f.ClickPointMoved(header, 195, 10)
	f.dirty = false
	f.ClickPointLeft()
	assert.True(t, f.IsDirty(), "leaving the frame from a button")
	f.dirty = false

	f.SetScalingFactor(2)
	assert.True(t, f.IsDirty())
}

func TestBorders(t *testing.T) {
	f, _, _ := sized(t)

	w, h := f.AddBorders(200, 100)
	assert.Equal(t, uint32(208), w)
	assert.Equal(t, uint32(132), h)

	w, h = f.SubtractBorders(208, 132)
	assert.Equal(t, uint32(200), w)
	assert.Equal(t, uint32(100), h)

	w, h = f.SubtractBorders(5, 20)
	assert.Zero(t, w)
	assert.Zero(t, h)

	x, y := f.Location()
	assert.Equal(t, int32(-BorderSize), x)
	assert.Equal(t, int32(-(HeaderSize + BorderSize)), y)

	f.UpdateState(StateFullscreen)
	w, h = f.AddBorders(200, 100)
	assert.Equal(t, uint32(200), w)
	assert.Equal(t, uint32(100), h)
	x, y = f.Location()
	assert.Zero(t, x)
	assert.Zero(t, y)

	f.UpdateState(0)
	require.NoError(t, f.SetHidden(true))
	w, h = f.SubtractBorders(208, 132)
	assert.Equal(t, uint32(208), w)
	assert.Equal(t, uint32(132), h)
}

func TestResizeLayout(t *testing.T) {
	f, parts, _ := sized(t)
	_, err := f.Draw()
	require.NoError(t, err)

	want := map[Part][2]int32{
		PartHeader: {0, -24},
		PartTop:    {-4, -28},
		PartRight:  {200, -24},
		PartBottom: {-4, 100},
		PartLeft:   {-4, -24},
	}
	for p, pos := range want {
		_, sub := parts.current(p)
		assert.Equal(t, pos, [2]int32{sub.x, sub.y}, p.String())
	}

	assert.ErrorIs(t, f.Resize(0, 10), ErrZeroSize)
	require.NoError(t, f.SetHidden(true))
	assert.ErrorIs(t, f.Resize(10, 10), ErrHidden)
}

func TestHideAndShow(t *testing.T) {
	f, parts, pool := sized(t)
	_, err := f.Draw()
	require.NoError(t, err)
	require.Len(t, pool.Keys(), partCount)

	require.NoError(t, f.SetHidden(true))
	assert.True(t, f.IsHidden())
	for _, s := range parts.surfaces {
		assert.True(t, s.destroyed)
	}
	for _, s := range parts.subs {
		assert.True(t, s.destroyed)
	}
	assert.Empty(t, pool.Keys())

	drawn, err := f.Draw()
	require.NoError(t, err)
	assert.False(t, drawn)

	require.NoError(t, f.SetHidden(false))
	assert.Len(t, parts.surfaces, 2*partCount)
	assert.True(t, f.IsDirty())
	_, sub := parts.current(PartHeader)
	assert.True(t, sub.sync)
}

func TestNewCleansUpOnFailure(t *testing.T) {
	parts := &fakeParts{failAt: 3}
	_, err := New(parts, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create right part")
	for _, s := range parts.surfaces {
		assert.True(t, s.destroyed)
	}
}
