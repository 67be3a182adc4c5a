// Package window gives a wl_surface the xdg_toplevel role: it answers pings,
// acknowledges configures, negotiates server-side decorations and falls back
// to a decoration.Frame when the compositor leaves decorating to the client.
package window

import (
	"fmt"

	"github.com/bnema/waykit/decoration"
	"github.com/bnema/waykit/internal/logger"
	"github.com/bnema/waykit/internal/protocols"
	"github.com/bnema/waykit/registry"
	"github.com/bnema/wlturbo/wl"
)

const (
	maxWmBaseVersion     = 6
	maxDecorationVersion = 1
)

// FrameFactory creates the client-side frame of a window.
type FrameFactory func(parent *wl.Surface) (*decoration.Frame, error)

// Shell tracks xdg_wm_base and the decoration manager.
type Shell struct {
	wm   *registry.SingleGlobal[*protocols.WmBase]
	deco *registry.SingleGlobal[*protocols.DecorationManager]

	pings    int
	lastPing uint32
}

// NewShell creates the shell state.
func NewShell(ctx *wl.Context, q protocols.Queue) *Shell {
	s := &Shell{}
	s.wm = &registry.SingleGlobal[*protocols.WmBase]{
		Interface:  protocols.WmBaseInterface,
		MaxVersion: maxWmBaseVersion,
		New:        func() *protocols.WmBase { return protocols.NewWmBase(ctx, q) },
		OnBind: func(wm *protocols.WmBase, _ uint32) {
			wm.SetPingHandler(s.ping)
		},
	}
	s.deco = &registry.SingleGlobal[*protocols.DecorationManager]{
		Interface:  protocols.DecorationManagerInterface,
		MaxVersion: maxDecorationVersion,
		Lazy:       true,
		New:        func() *protocols.DecorationManager { return protocols.NewDecorationManager(ctx, q) },
	}
	return s
}

// Register routes the shell globals of r.
func (s *Shell) Register(r *registry.Registry) {
	r.Handle(protocols.WmBaseInterface, s.wm)
	r.Handle(protocols.DecorationManagerInterface, s.deco)
}

// Bound reports whether xdg_wm_base is bound.
func (s *Shell) Bound() bool {
	return s.wm.Bound()
}

// Version returns the bound xdg_wm_base version.
func (s *Shell) Version() uint32 {
	return s.wm.Version()
}

// ServerSideDecorations reports whether the decoration manager is advertised.
func (s *Shell) ServerSideDecorations() bool {
	return s.deco.Available()
}

// Pings returns the number of pings answered and the last serial.
func (s *Shell) Pings() (int, uint32) {
	return s.pings, s.lastPing
}

// the proxy already sent the pong
func (s *Shell) ping(serial uint32) {
	s.pings++
	s.lastPing = serial
	logger.Debug("answered ping", "serial", serial)
}

// Config describes a new window.
type Config struct {
	Title string
	AppID string
	// Width and Height are the content size used until the compositor
	// suggests one.
	Width, Height uint32
	MinWidth      uint32
	MinHeight     uint32
	// PreferServerSide asks for server-side decorations when the compositor
	// supports them.
	PreferServerSide bool
	// Frame builds the fallback decorations. Without it, client-side
	// windows are undecorated.
	Frame FrameFactory
}

// CreateWindow gives surface the toplevel role. Commit the returned window
// once to receive the first configure.
func (s *Shell) CreateWindow(surface *wl.Surface, cfg Config, h Handler) (*Window, error) {
	wm, err := s.wm.Get()
	if err != nil {
		return nil, err
	}
	xs, err := wm.GetXdgSurface(surface)
	if err != nil {
		return nil, fmt.Errorf("get xdg_surface: %w", err)
	}
	tl, err := xs.GetToplevel()
	if err != nil {
		_ = xs.Destroy()
		return nil, fmt.Errorf("get toplevel: %w", err)
	}

	var dw *protocols.ToplevelDecoration
	if s.deco.Available() {
		mgr, err := s.deco.Get()
		if err == nil {
			dw, err = mgr.GetToplevelDecoration(tl)
		}
		if err != nil {
			logger.Warn("server-side decorations unavailable", "error", err)
			dw = nil
		}
	}

	var frame func() (*decoration.Frame, error)
	if cfg.Frame != nil {
		frame = func() (*decoration.Frame, error) { return cfg.Frame(surface) }
	}

	var deco DecorationWire
	if dw != nil {
		deco = dw
	}
	w, err := newWindow(surface, xs, tl, deco, frame, cfg, h)
	if err != nil {
		if dw != nil {
			_ = dw.Destroy()
		}
		_ = tl.Destroy()
		_ = xs.Destroy()
		return nil, err
	}

	xs.SetConfigureHandler(w.surfaceConfigure)
	tl.SetHandlers(protocols.ToplevelHandlers{
		Configure:       w.toplevelConfigure,
		Close:           w.closeEvent,
		ConfigureBounds: w.boundsEvent,
		WmCapabilities:  w.capabilitiesEvent,
	})
	if dw != nil {
		dw.SetConfigureHandler(w.decorationConfigure)
	}
	return w, nil
}
