// Package output tracks wl_output globals and merges their zxdg_output_v1
// extension state into one Info per output, delivered once both sources
// agree a batch of changes is complete.
package output

import (
	"sort"

	"github.com/bnema/waykit/internal/logger"
	"github.com/bnema/waykit/internal/protocols"
	"github.com/bnema/waykit/registry"
	"github.com/bnema/wlturbo/wl"
)

const (
	maxOutputVersion    = 4
	maxXdgOutputVersion = 3
)

// Handler is notified when an output snapshot completes.
type Handler interface {
	NewOutput(info Info)
	UpdateOutput(info Info)
	OutputDestroyed(info Info)
}

type wlObject interface {
	Version() uint32
	Release() error
}

type xdgObject interface {
	Version() uint32
	Destroy() error
}

// xdgFactory creates extension objects once the manager is bound.
type xdgFactory interface {
	newXDG(o *output) (xdgObject, error)
}

type output struct {
	wl    wlObject
	proxy *protocols.Output
	xdg   xdgObject

	pendingWL  bool
	pendingXDG bool
	ready      bool
	announced  bool
	info       Info
}

func (o *output) xdgVersion() uint32 {
	if o.xdg == nil {
		return 0
	}
	return o.xdg.Version()
}

// Tracker tracks every output of the compositor.
type Tracker struct {
	ctx     *wl.Context
	queue   protocols.Queue
	handler Handler

	outputs    map[uint32]*output
	xdg        xdgFactory
	xdgManager *registry.SingleGlobal[*protocols.XdgOutputManager]
}

// NewTracker creates a tracker notifying h. h may be nil.
func NewTracker(ctx *wl.Context, q protocols.Queue, h Handler) *Tracker {
	t := newTracker(h)
	t.ctx = ctx
	t.queue = q
	t.xdgManager = &registry.SingleGlobal[*protocols.XdgOutputManager]{
		Interface:  protocols.XdgOutputManagerInterface,
		MaxVersion: maxXdgOutputVersion,
		New:        func() *protocols.XdgOutputManager { return protocols.NewXdgOutputManager(ctx, q) },
		OnBind: func(m *protocols.XdgOutputManager, _ uint32) {
			t.setXDGFactory(&wireXDG{tracker: t, manager: m})
		},
		OnRemove: func(*protocols.XdgOutputManager) {
			t.setXDGFactory(nil)
		},
	}
	return t
}

func newTracker(h Handler) *Tracker {
	return &Tracker{
		handler: h,
		outputs: make(map[uint32]*output),
	}
}

// Register routes wl_output and zxdg_output_manager_v1 globals of r to the
// tracker.
func (t *Tracker) Register(r *registry.Registry) {
	r.Handle(protocols.OutputInterface, t)
	r.Handle(protocols.XdgOutputManagerInterface, t.xdgManager)
}

// SetHandler replaces the notification handler.
func (t *Tracker) SetHandler(h Handler) {
	t.handler = h
}

// NewGlobal implements registry.Handler for wl_output.
func (t *Tracker) NewGlobal(r *registry.Registry, g registry.Global) {
	p := protocols.NewOutput(t.ctx, t.queue)
	version, err := r.Bind(g.Name, protocols.OutputInterface, maxOutputVersion, p)
	if err != nil {
		logger.Error("failed to bind output", "name", g.Name, "error", err)
		return
	}
	o := t.track(g.Name, p)
	o.proxy = p
	p.SetGeometryHandler(func(geo protocols.OutputGeometry) { t.geometry(o, geo) })
	p.SetModeHandler(func(m protocols.OutputMode) { t.mode(o, m) })
	p.SetScaleHandler(func(factor int32) { t.scale(o, factor) })
	p.SetNameHandler(func(name string) { t.name(o, name) })
	p.SetDescriptionHandler(func(desc string) { t.description(o, desc) })
	p.SetDoneHandler(func() { t.wlDone(o) })
	logger.Debug("tracking output", "name", g.Name, "version", version)
	t.attachXDG(o)
}

// RemoveGlobal implements registry.Handler for wl_output.
func (t *Tracker) RemoveGlobal(_ *registry.Registry, name uint32) {
	o, ok := t.outputs[name]
	if !ok {
		return
	}
	delete(t.outputs, name)
	if o.xdg != nil {
		if err := o.xdg.Destroy(); err != nil {
			logger.Warn("failed to destroy xdg output", "name", name, "error", err)
		}
	}
	if err := o.wl.Release(); err != nil {
		logger.Warn("failed to release output", "name", name, "error", err)
	}
	if o.announced && t.handler != nil {
		t.handler.OutputDestroyed(o.info.clone())
	}
}

// Outputs returns the last completed snapshot of every output, ordered by
// registry name. Outputs that never completed are skipped.
func (t *Tracker) Outputs() []Info {
	names := make([]uint32, 0, len(t.outputs))
	for name, o := range t.outputs {
		if o.announced {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	out := make([]Info, len(names))
	for i, name := range names {
		out[i] = t.outputs[name].info.clone()
	}
	return out
}

// Info returns the current snapshot of the output with registry name id.
// The second result is false for unknown outputs and outputs that never
// completed a batch.
func (t *Tracker) Info(id uint32) (Info, bool) {
	o, ok := t.outputs[id]
	if !ok || !o.announced {
		return Info{}, false
	}
	return o.info.clone(), true
}

// Output returns the wl_output with registry name id, for requests taking
// an output argument such as layer surfaces.
func (t *Tracker) Output(id uint32) (*protocols.Output, bool) {
	o, ok := t.outputs[id]
	if !ok || o.proxy == nil {
		return nil, false
	}
	return o.proxy, true
}

func (t *Tracker) track(name uint32, obj wlObject) *output {
	o := &output{
		wl:        obj,
		pendingWL: true,
		info:      Info{ID: name, ScaleFactor: 1},
	}
	t.outputs[name] = o
	return o
}

func (t *Tracker) setXDGFactory(f xdgFactory) {
	t.xdg = f
	names := make([]uint32, 0, len(t.outputs))
	for name := range t.outputs {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	for _, name := range names {
		o := t.outputs[name]
		if f == nil {
			// the manager is gone; its objects are inert
			if o.xdg != nil {
				_ = o.xdg.Destroy()
				o.xdg = nil
			}
			o.pendingXDG = false
			continue
		}
		t.attachXDG(o)
	}
}

func (t *Tracker) attachXDG(o *output) {
	if t.xdg == nil || o.xdg != nil {
		return
	}
	x, err := t.xdg.newXDG(o)
	if err != nil {
		logger.Error("failed to create xdg output", "name", o.info.ID, "error", err)
		return
	}
	o.xdg = x
	if x.Version() < 3 {
		// older versions complete with their own done event
		o.pendingXDG = true
	}
}

// touchWL marks a wl_output event. A completed output starts a new batch
// that also waits for the extension when it is bound.
func (t *Tracker) touchWL(o *output) {
	if o.ready {
		o.ready = false
		o.pendingXDG = o.xdg != nil
	}
	o.pendingWL = true
}

// touchXDG marks a zxdg_output_v1 event. The wl_output side of a completed
// output already holds its geometry.
func (t *Tracker) touchXDG(o *output) {
	if o.ready {
		o.ready = false
		o.pendingWL = false
	}
	o.pendingXDG = true
}

// afterWL commits immediately for wl_output version 1, which has no done
// event.
func (t *Tracker) afterWL(o *output) {
	if o.wl.Version() < 2 {
		t.wlDone(o)
	}
}

func (t *Tracker) geometry(o *output, g protocols.OutputGeometry) {
	t.touchWL(o)
	o.info.Location = Point{X: g.X, Y: g.Y}
	o.info.PhysicalSize = Size{Width: g.PhysicalWidth, Height: g.PhysicalHeight}
	o.info.Subpixel = subpixelFromWire(g.Subpixel)
	o.info.Transform = transformFromWire(g.Transform)
	o.info.Make = g.Make
	o.info.Model = g.Model
	t.afterWL(o)
}

func (t *Tracker) mode(o *output, m protocols.OutputMode) {
	t.touchWL(o)
	o.info.Modes = mergeMode(o.info.Modes, Mode{
		Width:       m.Width,
		Height:      m.Height,
		RefreshRate: m.Refresh,
		Current:     m.Flags&protocols.OutputModeCurrent != 0,
		Preferred:   m.Flags&protocols.OutputModePreferred != 0,
	})
	t.afterWL(o)
}

func (t *Tracker) scale(o *output, factor int32) {
	t.touchWL(o)
	o.info.ScaleFactor = factor
}

func (t *Tracker) name(o *output, name string) {
	t.touchWL(o)
	o.info.Name = name
}

func (t *Tracker) description(o *output, desc string) {
	t.touchWL(o)
	o.info.Description = desc
}

func (t *Tracker) wlDone(o *output) {
	o.pendingWL = false
	if o.xdg == nil || o.xdgVersion() >= 3 {
		o.pendingXDG = false
	}
	t.complete(o)
}

func (t *Tracker) logicalPosition(o *output, x, y int32) {
	t.touchXDG(o)
	o.info.LogicalPosition = Point{X: x, Y: y}
}

func (t *Tracker) logicalSize(o *output, w, h int32) {
	t.touchXDG(o)
	o.info.LogicalSize = Size{Width: w, Height: h}
}

func (t *Tracker) xdgName(o *output, name string) {
	t.touchXDG(o)
	o.info.Name = name
}

func (t *Tracker) xdgDescription(o *output, desc string) {
	t.touchXDG(o)
	o.info.Description = desc
}

// xdgDone completes the batch only for versions before 3. Later versions
// deprecate it in favour of wl_output.done.
func (t *Tracker) xdgDone(o *output) {
	o.pendingXDG = false
	if o.xdgVersion() < 3 {
		t.complete(o)
	}
}

func (t *Tracker) complete(o *output) {
	if o.ready || o.pendingWL || o.pendingXDG {
		return
	}
	o.ready = true
	if t.handler == nil {
		o.announced = true
		return
	}
	if !o.announced {
		o.announced = true
		t.handler.NewOutput(o.info.clone())
		return
	}
	t.handler.UpdateOutput(o.info.clone())
}

type wireXDG struct {
	tracker *Tracker
	manager *protocols.XdgOutputManager
}

func (w *wireXDG) newXDG(o *output) (xdgObject, error) {
	x, err := w.manager.GetXdgOutput(o.proxy)
	if err != nil {
		return nil, err
	}
	t := w.tracker
	x.SetLogicalPositionHandler(func(px, py int32) { t.logicalPosition(o, px, py) })
	x.SetLogicalSizeHandler(func(width, height int32) { t.logicalSize(o, width, height) })
	x.SetNameHandler(func(name string) { t.xdgName(o, name) })
	x.SetDescriptionHandler(func(desc string) { t.xdgDescription(o, desc) })
	x.SetDoneHandler(func() { t.xdgDone(o) })
	return x, nil
}
