package tablet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWire struct {
	destroyed int
}

func (w *fakeWire) Destroy() error {
	w.destroyed++
	return nil
}

type frame struct {
	time   uint32
	events []Event
	state  *State
}

type recorder struct {
	tablets []Info
	removed []Info
	tools   []Description
	gone    int
	frames  []frame
}

func (r *recorder) TabletAdded(_ *Seat, t *Tablet)   { r.tablets = append(r.tablets, t.Info()) }
func (r *recorder) TabletRemoved(_ *Seat, t *Tablet) { r.removed = append(r.removed, t.Info()) }
func (r *recorder) ToolAdded(_ *Seat, t *Tool)       { r.tools = append(r.tools, t.Description()) }
func (r *recorder) ToolRemoved(*Seat, *Tool)         { r.gone++ }

func (r *recorder) ToolFrame(_ *Seat, t *Tool, time uint32, events []Event) {
	r.frames = append(r.frames, frame{time, events, t.State()})
}

func newTestTool(t *testing.T) (*Seat, *Tool, *fakeWire, *recorder) {
	t.Helper()
	rec := &recorder{}
	s := newSeat(&fakeWire{}, rec)
	wire := &fakeWire{}
	tool := s.addTool(wire)
	h := tool.handlers()
	h.Type(uint32(ToolPen))
	h.HardwareSerial(1, 2)
	h.Capability(2)
	h.Capability(1)
	h.Capability(42)
	h.Done()
	return s, tool, wire, rec
}

func TestToolDescription(t *testing.T) {
	s, tool, _, rec := newTestTool(t)

	require.Len(t, rec.tools, 1)
	desc := rec.tools[0]
	assert.Equal(t, ToolPen, desc.Type)
	assert.True(t, desc.HasHardwareSerial)
	assert.Equal(t, uint64(1<<32|2), desc.HardwareSerial.Uint64())
	assert.False(t, desc.HasHardwareID)
	assert.True(t, desc.Supports(CapPressure|CapTilt))
	assert.False(t, desc.Supports(CapWheel))
	assert.Equal(t, "(tilt, pressure)", desc.Capabilities.String())

	// late description events do not change the snapshot
	tool.handlers().Type(uint32(ToolEraser))
	tool.handlers().Done()
	assert.Equal(t, ToolPen, tool.Description().Type)
	assert.Len(t, rec.tools, 1)
	assert.Len(t, s.Tools(), 1)
}

func TestToolFrames(t *testing.T) {
	_, tool, _, rec := newTestTool(t)
	h := tool.handlers()

	h.ProximityIn(5, 10, 20)
	h.Down(6)
	h.Motion(1.5, 2.5)
	h.Pressure(65535)
	assert.Empty(t, rec.frames, "batched until frame")
	h.Frame(100)

	require.Len(t, rec.frames, 1)
	f := rec.frames[0]
	assert.Equal(t, uint32(100), f.time)
	assert.Len(t, f.events, 4)
	require.NotNil(t, f.state)
	assert.Equal(t, uint32(20), f.state.Surface)
	assert.True(t, f.state.Down)
	assert.Equal(t, 1.5, f.state.X)
	assert.Equal(t, 1.0, tool.PressureWeb())

	h.Wheel(15, 1)
	h.Wheel(15, 1)
	h.Button(7, ButtonStylus2, 1)
	h.Up()
	h.Frame(110)
	state := tool.State()
	assert.Equal(t, 30.0, state.WheelDegrees)
	assert.Equal(t, int32(2), state.WheelClicks)
	assert.Equal(t, [3]bool{false, true, false}, state.Stylus)
	assert.False(t, state.Down)
	assert.Equal(t, uint32(110), tool.LastFrameTime())
}

func TestProximityOutEndsFrame(t *testing.T) {
	_, tool, _, rec := newTestTool(t)
	h := tool.handlers()

	h.ProximityIn(5, 10, 20)
	h.Frame(1)
	h.Motion(3, 3)
	h.ProximityOut()
	h.Motion(9, 9)
	h.Frame(2)

	require.Len(t, rec.frames, 2)
	assert.Len(t, rec.frames[1].events, 2, "events after proximity out are dropped")
	assert.Nil(t, rec.frames[1].state)
	assert.Nil(t, tool.State())
	assert.Zero(t, tool.PressureWeb())

	// a frame outside proximity without proximity_in is dropped
	h.Motion(1, 1)
	h.Frame(3)
	assert.Len(t, rec.frames, 2)

	h.ProximityIn(8, 10, 21)
	h.Frame(4)
	require.Len(t, rec.frames, 3)
	assert.Equal(t, uint32(21), rec.frames[2].state.Surface)
}

func TestToolRemoved(t *testing.T) {
	s, tool, wire, rec := newTestTool(t)
	tool.handlers().Removed()
	tool.handlers().Removed()

	assert.Equal(t, 1, wire.destroyed)
	assert.Equal(t, 1, rec.gone)
	assert.Empty(t, s.Tools())
}

func TestTablets(t *testing.T) {
	rec := &recorder{}
	seatWire := &fakeWire{}
	s := newSeat(seatWire, rec)

	wire := &fakeWire{}
	tab := s.addTablet(wire)
	h := tab.handlers()
	h.Name("Wacom Intuos")
	h.ID(0x56a, 0x374)
	h.Path("/dev/input/event7")
	assert.Empty(t, rec.tablets)
	assert.Empty(t, s.Tablets())
	h.Done()

	require.Len(t, rec.tablets, 1)
	assert.Equal(t, "Wacom Intuos (056a:0374) /dev/input/event7", rec.tablets[0].String())
	assert.Len(t, s.Tablets(), 1)

	pad := &fakeWire{}
	s.addPad(pad)
	other := &fakeWire{}
	s.addTablet(other)

	h.Removed()
	assert.Equal(t, 1, wire.destroyed)
	assert.Len(t, rec.removed, 1)

	require.NoError(t, s.Destroy())
	assert.Equal(t, 1, wire.destroyed, "removed tablets are not destroyed twice")
	assert.Equal(t, 1, other.destroyed)
	assert.Equal(t, 1, pad.destroyed)
	assert.Equal(t, 1, seatWire.destroyed)
}
