package output

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/bnema/waykit/internal/protocols"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWL struct {
	version  uint32
	released bool
}

func (f *fakeWL) Version() uint32 { return f.version }
func (f *fakeWL) Release() error  { f.released = true; return nil }

type fakeXDG struct {
	version   uint32
	destroyed bool
}

func (f *fakeXDG) Version() uint32 { return f.version }
func (f *fakeXDG) Destroy() error  { f.destroyed = true; return nil }

type fakeFactory struct {
	version uint32
	created map[uint32]*fakeXDG
}

func newFakeFactory(version uint32) *fakeFactory {
	return &fakeFactory{version: version, created: make(map[uint32]*fakeXDG)}
}

func (f *fakeFactory) newXDG(o *output) (xdgObject, error) {
	x := &fakeXDG{version: f.version}
	f.created[o.info.ID] = x
	return x, nil
}

type recorder struct {
	events []string
	last   Info
}

func (r *recorder) NewOutput(info Info) {
	r.events = append(r.events, fmt.Sprintf("new %d", info.ID))
	r.last = info
}

func (r *recorder) UpdateOutput(info Info) {
	r.events = append(r.events, fmt.Sprintf("update %d", info.ID))
	r.last = info
}

func (r *recorder) OutputDestroyed(info Info) {
	r.events = append(r.events, fmt.Sprintf("destroyed %d", info.ID))
	r.last = info
}

func addOutput(t *Tracker, name, version uint32) (*output, *fakeWL) {
	obj := &fakeWL{version: version}
	o := t.track(name, obj)
	t.attachXDG(o)
	return o, obj
}

func geometry(vendor, model string) protocols.OutputGeometry {
	return protocols.OutputGeometry{PhysicalWidth: 600, PhysicalHeight: 340, Make: vendor, Model: model}
}

func TestOutputWithoutXDG(t *testing.T) {
	rec := &recorder{}
	tr := newTracker(rec)
	o, _ := addOutput(tr, 7, 4)

	tr.geometry(o, geometry("Dell", "U2720Q"))
	tr.mode(o, protocols.OutputMode{Flags: protocols.OutputModeCurrent | protocols.OutputModePreferred, Width: 3840, Height: 2160, Refresh: 60000})
	tr.scale(o, 2)
	tr.name(o, "DP-1")
	assert.Empty(t, rec.events, "nothing before done")
	_, ok := tr.Info(7)
	assert.False(t, ok)

	tr.wlDone(o)
	require.Equal(t, []string{"new 7"}, rec.events)
	assert.Equal(t, "Dell", rec.last.Make)
	assert.Equal(t, "DP-1", rec.last.Name)
	assert.Equal(t, int32(2), rec.last.ScaleFactor)
	mode, ok := rec.last.CurrentMode()
	require.True(t, ok)
	assert.Equal(t, "3840x2160@60.000Hz", mode.String())

	tr.scale(o, 1)
	tr.wlDone(o)
	assert.Equal(t, []string{"new 7", "update 7"}, rec.events)
}

func TestOutputVersionOneCommitsEveryEvent(t *testing.T) {
	rec := &recorder{}
	tr := newTracker(rec)
	o, _ := addOutput(tr, 3, 1)

	tr.geometry(o, geometry("BOE", "0x095F"))
	tr.mode(o, protocols.OutputMode{Flags: protocols.OutputModeCurrent, Width: 1920, Height: 1080, Refresh: 60000})

	assert.Equal(t, []string{"new 3", "update 3"}, rec.events)
}

func TestOutputWaitsForBothSourcesBeforeV3(t *testing.T) {
	rec := &recorder{}
	tr := newTracker(rec)
	tr.setXDGFactory(newFakeFactory(2))
	o, _ := addOutput(tr, 1, 4)

	tr.geometry(o, geometry("LG", "27GL850"))
	tr.wlDone(o)
	assert.Empty(t, rec.events, "extension still pending")

	tr.logicalPosition(o, 1920, 0)
	tr.logicalSize(o, 2560, 1440)
	tr.xdgDone(o)
	require.Equal(t, []string{"new 1"}, rec.events)
	assert.Equal(t, Point{X: 1920}, rec.last.LogicalPosition)
	assert.Equal(t, Size{Width: 2560, Height: 1440}, rec.last.LogicalSize)
}

func TestOutputXDGv3DoneIsAdvisory(t *testing.T) {
	rec := &recorder{}
	tr := newTracker(rec)
	tr.setXDGFactory(newFakeFactory(3))
	o, _ := addOutput(tr, 1, 4)

	tr.geometry(o, geometry("LG", "27GL850"))
	tr.logicalSize(o, 1280, 720)
	tr.xdgDone(o)
	assert.Empty(t, rec.events)

	tr.wlDone(o)
	assert.Equal(t, []string{"new 1"}, rec.events)

	// xdg-only change, completed by wl_output.done
	tr.logicalPosition(o, 10, 20)
	tr.wlDone(o)
	assert.Equal(t, []string{"new 1", "update 1"}, rec.events)
	assert.Equal(t, Point{X: 10, Y: 20}, rec.last.LogicalPosition)
}

func TestLateXDGManager(t *testing.T) {
	rec := &recorder{}
	tr := newTracker(rec)
	a, _ := addOutput(tr, 4, 4)
	b, _ := addOutput(tr, 2, 4)
	assert.Nil(t, a.xdg)

	factory := newFakeFactory(3)
	tr.setXDGFactory(factory)
	assert.Len(t, factory.created, 2, "existing outputs get extension objects")
	assert.NotNil(t, a.xdg)
	assert.NotNil(t, b.xdg)

	c, _ := addOutput(tr, 9, 4)
	assert.NotNil(t, c.xdg, "later outputs get one immediately")
	assert.Len(t, factory.created, 3)

	tr.setXDGFactory(nil)
	assert.True(t, factory.created[9].destroyed)
	assert.Nil(t, c.xdg)
}

func TestOutputRemoval(t *testing.T) {
	rec := &recorder{}
	tr := newTracker(rec)
	factory := newFakeFactory(3)
	tr.setXDGFactory(factory)
	o, wlObj := addOutput(tr, 5, 4)
	_, pendingObj := addOutput(tr, 6, 4)

	tr.geometry(o, geometry("AOC", "Q27"))
	tr.wlDone(o)

	tr.RemoveGlobal(nil, 5)
	tr.RemoveGlobal(nil, 6)
	tr.RemoveGlobal(nil, 42)

	assert.True(t, factory.created[5].destroyed)
	assert.True(t, wlObj.released)
	assert.True(t, pendingObj.released)
	assert.Equal(t, []string{"new 5", "destroyed 5"}, rec.events, "never-announced outputs are dropped silently")
	assert.Empty(t, tr.Outputs())
}

func TestOutputsSnapshot(t *testing.T) {
	tr := newTracker(nil)
	for _, name := range []uint32{8, 3, 5} {
		o, _ := addOutput(tr, name, 4)
		if name != 5 {
			tr.mode(o, protocols.OutputMode{Flags: protocols.OutputModeCurrent, Width: 800, Height: 600, Refresh: 60000})
			tr.wlDone(o)
		}
	}

	infos := tr.Outputs()
	require.Len(t, infos, 2)
	assert.Equal(t, uint32(3), infos[0].ID)
	assert.Equal(t, uint32(8), infos[1].ID)

	// snapshots do not alias tracker state
	infos[0].Modes[0].Width = 1
	info, ok := tr.Info(3)
	require.True(t, ok)
	assert.Equal(t, int32(800), info.Modes[0].Width)
}

func TestUnknownEnumsDefault(t *testing.T) {
	tr := newTracker(nil)
	o, _ := addOutput(tr, 1, 4)

	g := geometry("X", "Y")
	g.Subpixel = 42
	g.Transform = -3
	tr.geometry(o, g)
	tr.wlDone(o)

	info, ok := tr.Info(1)
	require.True(t, ok)
	assert.Equal(t, SubpixelUnknown, info.Subpixel)
	assert.Equal(t, TransformNormal, info.Transform)
	assert.Equal(t, "flipped-90", TransformFlipped90.String())
	assert.Equal(t, "horizontal rgb", SubpixelHorizontalRGB.String())
	assert.Equal(t, "subpixel(42)", Subpixel(42).String())
}

func TestModeMerge(t *testing.T) {
	var modes []Mode
	modes = mergeMode(modes, Mode{Width: 1920, Height: 1080, RefreshRate: 60000, Current: true, Preferred: true})
	modes = mergeMode(modes, Mode{Width: 1280, Height: 720, RefreshRate: 60000})
	modes = mergeMode(modes, Mode{Width: 2560, Height: 1440, RefreshRate: 144000, Current: true})

	require.Len(t, modes, 3)
	assert.False(t, modes[0].Current, "current moved to the new mode")
	assert.True(t, modes[0].Preferred, "preferred untouched")
	assert.True(t, modes[2].Current)

	// same timing replaces the stale entry and moves it to the end
	modes = mergeMode(modes, Mode{Width: 1920, Height: 1080, RefreshRate: 60000, Current: true})
	require.Len(t, modes, 3)
	assert.Equal(t, int32(1280), modes[0].Width)
	assert.Equal(t, int32(1920), modes[2].Width)
	assert.False(t, modes[2].Preferred)
	assert.False(t, modes[1].Current)
}

func TestModeInvariantRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	timings := [][3]int32{{1920, 1080, 60000}, {1920, 1080, 144000}, {1280, 720, 60000}, {3840, 2160, 30000}}

	var modes []Mode
	for i := 0; i < 1000; i++ {
		tm := timings[rng.Intn(len(timings))]
		modes = mergeMode(modes, Mode{
			Width:       tm[0],
			Height:      tm[1],
			RefreshRate: tm[2],
			Current:     rng.Intn(2) == 0,
			Preferred:   rng.Intn(3) == 0,
		})

		var current, preferred int
		seen := map[[3]int32]bool{}
		for _, m := range modes {
			key := [3]int32{m.Width, m.Height, m.RefreshRate}
			require.False(t, seen[key], "step %d: duplicate timing %v", i, key)
			seen[key] = true
			if m.Current {
				current++
			}
			if m.Preferred {
				preferred++
			}
		}
		require.LessOrEqual(t, current, 1, "step %d", i)
		require.LessOrEqual(t, preferred, 1, "step %d", i)
	}
}

// interleave merges two ordered event streams in random order, keeping the
// order within each stream.
func interleave(rng *rand.Rand, a, b []func()) []func() {
	out := make([]func(), 0, len(a)+len(b))
	for len(a) > 0 || len(b) > 0 {
		if len(b) == 0 || (len(a) > 0 && rng.Intn(2) == 0) {
			out, a = append(out, a[0]), a[1:]
		} else {
			out, b = append(out, b[0]), b[1:]
		}
	}
	return out
}

func TestOneNotificationPerGeneration(t *testing.T) {
	for _, xdgVersion := range []uint32{0, 1, 2, 3} {
		t.Run(fmt.Sprintf("xdg v%d", xdgVersion), func(t *testing.T) {
			rng := rand.New(rand.NewSource(int64(100 + xdgVersion)))
			for run := 0; run < 50; run++ {
				rec := &recorder{}
				tr := newTracker(rec)
				if xdgVersion > 0 {
					tr.setXDGFactory(newFakeFactory(xdgVersion))
				}
				o, _ := addOutput(tr, 1, 4)

				generations := 1 + rng.Intn(8)
				for gen := 0; gen < generations; gen++ {
					var wlStream, xdgStream []func()
					for i, n := 0, 1+rng.Intn(3); i < n; i++ {
						factor := int32(gen + i)
						wlStream = append(wlStream, func() { tr.scale(o, factor) })
					}
					if xdgVersion > 0 {
						for i, n := 0, 1+rng.Intn(2); i < n; i++ {
							x := int32(gen*10 + i)
							xdgStream = append(xdgStream, func() { tr.logicalPosition(o, x, 0) })
						}
						xdgStream = append(xdgStream, func() { tr.xdgDone(o) })
					}

					var events []func()
					if xdgVersion >= 3 {
						// wl_output.done follows every extension update
						events = append(interleave(rng, wlStream, xdgStream), func() { tr.wlDone(o) })
					} else {
						wlStream = append(wlStream, func() { tr.wlDone(o) })
						events = interleave(rng, wlStream, xdgStream)
					}
					for _, ev := range events {
						ev()
					}
				}

				require.Len(t, rec.events, generations, "run %d", run)
				assert.Equal(t, "new 1", rec.events[0])
				for _, ev := range rec.events[1:] {
					assert.Equal(t, "update 1", ev)
				}
			}
		})
	}
}

func TestOutputProxyLookup(t *testing.T) {
	tr := newTracker(nil)
	o, _ := addOutput(tr, 3, 4)

	_, ok := tr.Output(3)
	assert.False(t, ok, "fake outputs have no wire proxy")

	o.proxy = &protocols.Output{}
	p, ok := tr.Output(3)
	require.True(t, ok)
	assert.Same(t, o.proxy, p)

	tr.RemoveGlobal(nil, 3)
	_, ok = tr.Output(3)
	assert.False(t, ok)
}
