package pointer

import (
	"bytes"
	"os"
	"testing"

	"github.com/bnema/waykit/internal/logger"
	"github.com/bnema/waykit/internal/protocols"
	"github.com/bnema/wlturbo/wl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cursorCall struct {
	serial  uint32
	surface uint32
	hx, hy  int32
}

type fakeWire struct {
	version  uint32
	cursors  []cursorCall
	released bool
}

func (w *fakeWire) Version() uint32 { return w.version }

func (w *fakeWire) SetCursor(serial uint32, surface wl.Object, hx, hy int32) error {
	var id uint32
	if surface != nil {
		id = surface.ID()
	}
	w.cursors = append(w.cursors, cursorCall{serial, id, hx, hy})
	return nil
}

func (w *fakeWire) Release() error {
	w.released = true
	return nil
}

type frames struct {
	got [][]Event
}

func (f *frames) PointerFrame(_ *Pointer, events []Event) {
	f.got = append(f.got, events)
}

func newTestPointer(version uint32) (*Pointer, *frames) {
	f := &frames{}
	return newPointer(&fakeWire{version: version}, f), f
}

func enter(p *Pointer, serial, surface uint32) {
	p.enter(protocols.PointerEnter{Serial: serial, Surface: surface, X: 1, Y: 2})
}

func TestEventsBeforeVersion5AreImmediate(t *testing.T) {
	p, f := newTestPointer(4)
	enter(p, 1, 7)
	p.motion(10, 5, 6)
	p.button(protocols.PointerButton{Serial: 2, Time: 11, Button: ButtonLeft, State: 1})

	require.Len(t, f.got, 3)
	for _, frame := range f.got {
		assert.Len(t, frame, 1)
	}
	assert.Equal(t, EventEnter, f.got[0][0].Kind)
	assert.Equal(t, Event{Kind: EventMotion, Surface: 7, X: 5, Y: 6, Time: 10}, f.got[1][0])
	assert.Equal(t, EventPress, f.got[2][0].Kind)
	assert.Equal(t, uint32(2), p.LatestButtonSerial())
}

func TestFrameGroupsEvents(t *testing.T) {
	p, f := newTestPointer(8)
	enter(p, 1, 7)
	p.motion(10, 3, 4)
	assert.Empty(t, f.got, "buffered until frame")

	p.frame()
	require.Len(t, f.got, 1)
	assert.Equal(t, []EventKind{EventEnter, EventMotion}, kinds(f.got[0]))

	// a lone motion is delivered by its frame unchanged
	p.motion(12, 5, 5)
	p.frame()
	require.Len(t, f.got, 2)
	assert.Equal(t, Event{Kind: EventMotion, Surface: 7, X: 5, Y: 5, Time: 12}, f.got[1][0])

	p.frame()
	assert.Len(t, f.got, 2, "empty frames are not delivered")
}

func TestEventsWithoutFocusAreDropped(t *testing.T) {
	p, f := newTestPointer(8)
	p.motion(1, 1, 1)
	p.frame()
	assert.Empty(t, f.got)

	enter(p, 1, 7)
	p.leave(2, 7)
	p.motion(3, 1, 1)
	p.frame()
	require.Len(t, f.got, 1)
	assert.Equal(t, []EventKind{EventEnter, EventLeave}, kinds(f.got[0]))
	assert.Equal(t, uint32(7), f.got[0][1].Surface)
	assert.Zero(t, p.Focus())
}

func TestAxisMerge(t *testing.T) {
	p, f := newTestPointer(9)
	enter(p, 1, 7)
	p.frame()

	p.axisSource(0)
	p.axisValue120(axisVertical, 120)
	p.axis(50, axisVertical, 15)
	p.axis(50, axisHorizontal, -3)
	p.axisRelativeDirection(axisVertical, 1)
	p.frame()

	require.Len(t, f.got, 2)
	require.Len(t, f.got[1], 1)
	ev := f.got[1][0]
	assert.Equal(t, EventAxis, ev.Kind)
	assert.Equal(t, uint32(50), ev.Time)
	assert.Equal(t, AxisSourceWheel, ev.Source)
	assert.Equal(t, AxisScroll{Absolute: 15, Value120: 120, RelativeDirection: DirectionInverted}, ev.Vertical)
	assert.Equal(t, AxisScroll{Absolute: -3}, ev.Horizontal)
}

func TestAxisConflictingDirectionsStaySeparate(t *testing.T) {
	p, f := newTestPointer(9)
	enter(p, 1, 7)
	p.frame()

	p.axisRelativeDirection(axisVertical, 0)
	p.axis(5, axisVertical, 1)
	p.axisRelativeDirection(axisVertical, 1)
	p.axis(6, axisVertical, 2)
	p.frame()

	require.Len(t, f.got[1], 2)
	assert.Equal(t, DirectionIdentical, f.got[1][0].Vertical.RelativeDirection)
	assert.Equal(t, DirectionInverted, f.got[1][1].Vertical.RelativeDirection)
}

func TestAxisStop(t *testing.T) {
	p, f := newTestPointer(5)
	enter(p, 1, 7)
	p.frame()

	p.axisSource(1)
	p.axisStop(80, axisHorizontal)
	p.frame()

	ev := f.got[1][0]
	assert.True(t, ev.Horizontal.Stop)
	assert.Equal(t, uint32(80), ev.Time)
	assert.Equal(t, AxisSourceFinger, ev.Source)
}

func TestAxisWithoutTimestampUsesLatestTime(t *testing.T) {
	p, f := newTestPointer(8)
	enter(p, 1, 7)
	p.motion(42, 1, 1)
	p.frame()

	p.axisDiscrete(axisVertical, 1)
	p.frame()

	require.Len(t, f.got, 2)
	ev := f.got[1][0]
	assert.Equal(t, int32(1), ev.Vertical.Discrete)
	assert.Equal(t, uint32(42), ev.Time)
}

func TestUnknownEnumValuesAreDropped(t *testing.T) {
	p, f := newTestPointer(4)
	enter(p, 1, 7)

	p.button(protocols.PointerButton{State: 9})
	p.axis(1, 5, 1)
	p.axisSource(17)
	p.axisRelativeDirection(axisVertical, 3)
	assert.Len(t, f.got, 1, "only the enter was delivered")
}

func TestUnknownEnumValuesLogAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(os.Stderr)
	logger.SetLevel("info")

	p, _ := newTestPointer(5)
	enter(p, 1, 7)
	p.button(protocols.PointerButton{State: 9})
	p.axis(1, 5, 1)
	p.axisSource(17)
	p.axisRelativeDirection(axisVertical, 3)
	assert.Empty(t, buf.String(), "nothing above debug")

	logger.SetLevel("debug")
	defer logger.SetLevel("info")
	p.axisSource(17)
	assert.Contains(t, buf.String(), "unknown pointer axis source")
}

func TestAxisScrollIsZero(t *testing.T) {
	assert.True(t, AxisScroll{}.IsZero())
	assert.False(t, AxisScroll{Stop: true}.IsZero())
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}
