// Package client connects to a compositor and wires every waykit component
// to one registry and one event loop.
//
// A Client owns two goroutines: the wire pump, which reads and decodes
// events, and the goroutine calling Run or Roundtrip, which owns all
// toolkit state. Handlers only ever run on the latter.
package client

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bnema/waykit/datadevice"
	"github.com/bnema/waykit/decoration"
	"github.com/bnema/waykit/eventloop"
	"github.com/bnema/waykit/internal/config"
	"github.com/bnema/waykit/internal/logger"
	"github.com/bnema/waykit/internal/protocols"
	"github.com/bnema/waykit/layer"
	"github.com/bnema/waykit/output"
	"github.com/bnema/waykit/registry"
	"github.com/bnema/waykit/seat"
	"github.com/bnema/waykit/shm"
	"github.com/bnema/waykit/window"
	"github.com/bnema/wlturbo/wl"
	"github.com/charmbracelet/log"
)

const (
	maxCompositorVersion    = 6
	maxSubcompositorVersion = 1

	// ids 1 to 3 are the display, the registry and the initial sync callback
	firstBindID = 4
	// wlturbo treats events on object 5 as zwlr_output_manager_v1 events
	quirkID = 5
)

// ErrClosed is returned by requests on a closed client.
var ErrClosed = errors.New("client closed")

// eventless globals never send events, binding them first keeps object 5
// quiet
var eventless = map[string]int{
	protocols.CompositorInterface:         0,
	protocols.SubcompositorInterface:      1,
	protocols.DataDeviceManagerInterface:  2,
	protocols.DecorationManagerInterface:  3,
	protocols.CursorShapeManagerInterface: 4,
}

// Options configure a connection.
type Options struct {
	// Display is the socket name or path, empty for $WAYLAND_DISPLAY.
	Display          string
	PreferMemfd      bool
	MultiPoolInitial int
	RoundtripTimeout time.Duration
	PreferServerSide bool

	// Require lists the interfaces Connect fails without.
	Require []string

	OutputHandler output.Handler
	SeatHandler   seat.Handler
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		PreferMemfd:      true,
		MultiPoolInitial: 4096,
		RoundtripTimeout: 5 * time.Second,
		PreferServerSide: true,
		Require:          []string{protocols.CompositorInterface},
	}
}

// OptionsFromConfig maps the toolkit configuration onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	o := DefaultOptions()
	if cfg == nil {
		return o
	}
	o.Display = cfg.Client.Display
	o.PreferMemfd = cfg.Shm.PreferMemfd
	if cfg.Shm.MultiPoolInitial > 0 {
		o.MultiPoolInitial = cfg.Shm.MultiPoolInitial
	}
	if cfg.Client.RoundtripTimeout > 0 {
		o.RoundtripTimeout = cfg.Client.RoundtripTimeout
	}
	o.PreferServerSide = cfg.Decoration.PreferServerSide
	return o
}

// syncer sends wl_display.sync.
type syncer interface {
	Sync() (*protocols.Callback, error)
}

// wireBinder binds through the substrate registry and counts the object ids
// it consumed.
type wireBinder struct {
	reg   *wl.Registry
	binds int
}

func (b *wireBinder) Bind(name uint32, iface string, version uint32, p protocols.Global) error {
	if err := protocols.Bind(b.reg, name, iface, version, p); err != nil {
		return err
	}
	b.binds++
	return nil
}

type announcement struct {
	name    uint32
	iface   string
	version uint32
}

// Client is a connection to a compositor.
type Client struct {
	opts    Options
	log     *log.Logger
	display *wl.Display
	ctx     *wl.Context
	loop    *eventloop.Loop
	wire    syncer
	binder  *wireBinder

	registry      *registry.Registry
	compositor    *registry.SingleGlobal[*protocols.Compositor]
	subcompositor *registry.SingleGlobal[*protocols.Subcompositor]
	shm           *shm.Shm
	outputs       *output.Tracker
	seats         *seat.State
	data          *datadevice.Manager
	primary       *datadevice.PrimaryManager
	shell         *window.Shell
	layers        *layer.Shell

	// announcements are held back until setup binds the eventless globals
	pending []announcement
	ready   bool
	filler  *wl.Region

	pumping  bool
	closing  atomic.Bool
	pumpDone chan struct{}
	once     sync.Once
}

func newClient(b registry.Binder, ctx *wl.Context, q protocols.Queue, opts Options) *Client {
	c := &Client{opts: opts}
	display := opts.Display
	if display == "" {
		display = "$WAYLAND_DISPLAY"
	}
	c.log = logger.With("display", display)
	c.registry = registry.New(b)
	c.compositor = &registry.SingleGlobal[*protocols.Compositor]{
		Interface:  protocols.CompositorInterface,
		MaxVersion: maxCompositorVersion,
		New:        func() *protocols.Compositor { return protocols.NewCompositor(ctx, q) },
	}
	c.subcompositor = &registry.SingleGlobal[*protocols.Subcompositor]{
		Interface:  protocols.SubcompositorInterface,
		MaxVersion: maxSubcompositorVersion,
		New:        func() *protocols.Subcompositor { return protocols.NewSubcompositor(ctx, q) },
	}
	c.shm = shm.New(ctx, q, opts.PreferMemfd)
	c.outputs = output.NewTracker(ctx, q, opts.OutputHandler)
	c.seats = seat.NewState(ctx, q, opts.SeatHandler)
	c.data = datadevice.NewManager(ctx, q)
	c.primary = datadevice.NewPrimaryManager(ctx, q)
	c.shell = window.NewShell(ctx, q)
	c.layers = layer.NewShell(ctx, q)

	c.registry.Handle(protocols.CompositorInterface, c.compositor)
	c.registry.Handle(protocols.SubcompositorInterface, c.subcompositor)
	c.registry.Handle(protocols.ShmInterface, c.shm)
	c.outputs.Register(c.registry)
	c.seats.Register(c.registry)
	c.data.Register(c.registry)
	c.primary.Register(c.registry)
	c.shell.Register(c.registry)
	c.layers.Register(c.registry)
	return c
}

// Connect opens the display socket, binds the advertised globals and starts
// the wire pump. The calling goroutine becomes the loop goroutine.
func Connect(ctx context.Context, opts Options) (*Client, error) {
	loop, err := eventloop.New()
	if err != nil {
		return nil, err
	}
	display, err := wl.Connect(opts.Display)
	if err != nil {
		_ = loop.Close()
		return nil, fmt.Errorf("connect to wayland display: %w", err)
	}

	reg := display.Registry()
	binder := &wireBinder{reg: reg}
	wctx := display.Context()
	c := newClient(binder, wctx, loop, opts)
	c.display = display
	c.ctx = wctx
	c.loop = loop
	c.binder = binder
	c.wire = protocols.NewDisplay(wctx, loop)
	c.pumpDone = make(chan struct{})

	// both callbacks run on whichever goroutine reads the socket
	reg.AddHandler("*", func(r *wl.Registry, name, version uint32) {
		g, ok := r.FindGlobalByName(name)
		if !ok {
			return
		}
		loop.Post(func() error {
			c.announce(name, g.Interface, version)
			return nil
		})
	})
	display.AddListener(reg.ID(), 1, func(data []byte) {
		if len(data) < 4 {
			return
		}
		name := binary.LittleEndian.Uint32(data[0:4])
		loop.Post(func() error {
			c.remove(name)
			return nil
		})
	})

	if err := c.setup(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	go c.pump()
	c.pumping = true
	if err := c.Roundtrip(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	c.log.Debug("connected", "globals", len(c.registry.Globals()))
	return c, nil
}

func (c *Client) setup(ctx context.Context) error {
	if err := c.Roundtrip(ctx); err != nil {
		return fmt.Errorf("initial roundtrip: %w", err)
	}
	c.flush()
	// second roundtrip collects the events of the objects bound above
	if err := c.Roundtrip(ctx); err != nil {
		return fmt.Errorf("setup roundtrip: %w", err)
	}
	for _, iface := range c.opts.Require {
		if len(c.registry.Lookup(iface)) == 0 {
			return &registry.MissingGlobalError{Interface: iface}
		}
	}
	return nil
}

func (c *Client) announce(name uint32, iface string, version uint32) {
	if !c.ready {
		c.pending = append(c.pending, announcement{name: name, iface: iface, version: version})
		return
	}
	c.registry.Announce(name, iface, version)
}

func (c *Client) remove(name uint32) {
	if !c.ready {
		for i, a := range c.pending {
			if a.name == name {
				c.pending = append(c.pending[:i], c.pending[i+1:]...)
				return
			}
		}
		return
	}
	c.registry.Remove(name)
}

// flush replays the held announcements, eventless globals first.
func (c *Client) flush() {
	pending := c.pending
	c.pending = nil
	c.ready = true

	rank := func(iface string) int {
		if r, ok := eventless[iface]; ok {
			return r
		}
		return len(eventless)
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return rank(pending[i].iface) < rank(pending[j].iface)
	})

	filled := false
	for _, a := range pending {
		if !filled && rank(a.iface) == len(eventless) {
			c.fillQuirkID()
			filled = true
		}
		c.registry.Announce(a.name, a.iface, a.version)
	}
	if !filled {
		c.fillQuirkID()
	}
}

// fillQuirkID spends object 5 on a region when the eventless globals did
// not use it.
func (c *Client) fillQuirkID() {
	if c.binder == nil || firstBindID+c.binder.binds != quirkID {
		return
	}
	comp, err := c.compositor.Get()
	if err != nil {
		return
	}
	r, err := comp.CreateRegion()
	if err != nil {
		c.log.Warn("failed to reserve object id", "id", quirkID, "error", err)
		return
	}
	c.filler = r
}

func (c *Client) pump() {
	defer close(c.pumpDone)
	for {
		if err := c.display.Dispatch(); err != nil {
			if c.closing.Load() {
				return
			}
			c.log.Error("wayland connection lost", "error", err)
			c.loop.Post(func() error {
				return fmt.Errorf("wayland connection: %w", err)
			})
			return
		}
	}
}

// Roundtrip waits until the compositor processed every request sent so
// far and the resulting events were dispatched.
func (c *Client) Roundtrip(ctx context.Context) error {
	if c.closing.Load() {
		return ErrClosed
	}
	if c.opts.RoundtripTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.RoundtripTimeout)
		defer cancel()
	}

	if !c.pumping {
		// nothing reads the socket yet, let the substrate do it
		if err := c.display.Roundtrip(); err != nil {
			return err
		}
		return c.loop.Dispatch(0)
	}

	cb, err := c.wire.Sync()
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	done := false
	cb.SetDoneHandler(func(uint32) { done = true })
	if err := c.loop.RunUntil(ctx, func() bool { return done }); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("roundtrip: %w", err)
		}
		return err
	}
	return nil
}

// Run dispatches events until ctx is cancelled or a handler fails.
func (c *Client) Run(ctx context.Context) error {
	if c.closing.Load() {
		return ErrClosed
	}
	return c.loop.Run(ctx)
}

// Loop returns the event loop, for registering pipes and timers.
func (c *Client) Loop() *eventloop.Loop {
	return c.loop
}

// Registry returns the globals mirror.
func (c *Client) Registry() *registry.Registry {
	return c.registry
}

// Globals returns the advertised globals ordered by name.
func (c *Client) Globals() []registry.Global {
	return c.registry.Globals()
}

func (c *Client) Shm() *shm.Shm                                { return c.shm }
func (c *Client) Outputs() *output.Tracker                     { return c.outputs }
func (c *Client) Seats() *seat.State                           { return c.seats }
func (c *Client) DataDevice() *datadevice.Manager              { return c.data }
func (c *Client) PrimarySelection() *datadevice.PrimaryManager { return c.primary }
func (c *Client) Shell() *window.Shell                         { return c.shell }
func (c *Client) LayerShell() *layer.Shell                     { return c.layers }

// Compositor returns the bound wl_compositor.
func (c *Client) Compositor() (*protocols.Compositor, error) {
	return c.compositor.Get()
}

// CreateSurface creates a wl_surface.
func (c *Client) CreateSurface() (*wl.Surface, error) {
	comp, err := c.compositor.Get()
	if err != nil {
		return nil, err
	}
	return comp.CreateSurface()
}

// CreateWindow creates a surface and gives it the toplevel role. Without a
// frame factory in cfg, client-side decorations are drawn with subsurfaces
// when wl_subcompositor is available.
func (c *Client) CreateWindow(cfg window.Config, h window.Handler) (*window.Window, *wl.Surface, error) {
	surface, err := c.CreateSurface()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Frame == nil && c.subcompositor.Available() {
		cfg.Frame = c.newFrame
	}
	if !cfg.PreferServerSide {
		cfg.PreferServerSide = c.opts.PreferServerSide
	}
	w, err := c.shell.CreateWindow(surface, cfg, h)
	if err != nil {
		_ = surface.Destroy()
		return nil, nil, err
	}
	return w, surface, nil
}

// CreatePopup creates a surface and gives it the popup role. A nil parent
// is for popups attached to a layer surface before their first commit.
func (c *Client) CreatePopup(parent window.PopupParent, pos window.Positioner, h window.PopupHandler) (*window.Popup, *wl.Surface, error) {
	surface, err := c.CreateSurface()
	if err != nil {
		return nil, nil, err
	}
	p, err := c.shell.CreatePopup(surface, parent, pos, h)
	if err != nil {
		_ = surface.Destroy()
		return nil, nil, err
	}
	return p, surface, nil
}

// CreateLayerSurface creates a surface and gives it a layer shell role.
func (c *Client) CreateLayerSurface(cfg layer.Config, h layer.Handler) (*layer.Surface, *wl.Surface, error) {
	if !c.layers.Available() {
		return nil, nil, layer.ErrUnavailable
	}
	surface, err := c.CreateSurface()
	if err != nil {
		return nil, nil, err
	}
	l, err := c.layers.CreateLayerSurface(surface, cfg, h)
	if err != nil {
		_ = surface.Destroy()
		return nil, nil, err
	}
	return l, surface, nil
}

func (c *Client) newFrame(parent *wl.Surface) (*decoration.Frame, error) {
	comp, err := c.compositor.Get()
	if err != nil {
		return nil, err
	}
	sub, err := c.subcompositor.Get()
	if err != nil {
		return nil, err
	}
	pool, err := shm.NewMultiPool[decoration.Part](c.shm, c.opts.MultiPoolInitial)
	if err != nil {
		return nil, fmt.Errorf("frame pool: %w", err)
	}
	f, err := decoration.New(&decoration.SubsurfaceParts{
		Compositor:    comp,
		Subcompositor: sub,
		Parent:        parent,
	}, pool)
	if err != nil {
		_ = pool.Close()
		return nil, err
	}
	return f, nil
}

// Err returns the first protocol violation reported by the data device
// managers.
func (c *Client) Err() error {
	return errors.Join(c.data.Err(), c.primary.Err())
}

// Close disconnects and stops the pump. It is safe to call twice.
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		c.closing.Store(true)
		if c.filler != nil {
			err = errors.Join(err, c.filler.Destroy())
		}
		if c.display != nil {
			err = errors.Join(err, c.display.Close())
		}
		if c.pumping {
			<-c.pumpDone
		}
		if c.loop != nil {
			err = errors.Join(err, c.loop.Close())
		}
	})
	return err
}
