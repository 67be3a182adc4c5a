// Package registry mirrors the compositor's globals and binds them.
//
// Announcements and removals are fed in by the client on the loop goroutine.
// Components register a Handler per interface; single-instance globals use
// SingleGlobal, components tracking every instance (outputs, seats) implement
// Handler directly.
package registry

import (
	"errors"
	"fmt"
	"sort"

	"github.com/bnema/waykit/internal/logger"
	"github.com/bnema/waykit/internal/protocols"
)

var (
	// ErrNotAdvertised is returned when binding a name that is not currently
	// advertised under the requested interface.
	ErrNotAdvertised = errors.New("global not advertised")
	// ErrAlreadyBound is returned when a global name is bound twice.
	ErrAlreadyBound = errors.New("global already bound")
)

// BindError describes a failed bind.
type BindError struct {
	Interface string
	Name      uint32
	Err       error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s (name %d): %v", e.Interface, e.Name, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// MissingGlobalError is returned when a required global was never advertised.
type MissingGlobalError struct {
	Interface string
}

func (e *MissingGlobalError) Error() string {
	return fmt.Sprintf("compositor does not advertise %s", e.Interface)
}

// Global is one advertised global.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

// Binder performs the bind request on the wire.
type Binder interface {
	Bind(name uint32, iface string, version uint32, p protocols.Global) error
}

// Handler receives the globals of one interface.
type Handler interface {
	NewGlobal(r *Registry, g Global)
	RemoveGlobal(r *Registry, name uint32)
}

// Registry is the local mirror of the server's globals.
type Registry struct {
	binder   Binder
	globals  map[uint32]Global
	bound    map[uint32]bool
	handlers map[string][]Handler
}

// New creates an empty registry binding through b.
func New(b Binder) *Registry {
	return &Registry{
		binder:   b,
		globals:  make(map[uint32]Global),
		bound:    make(map[uint32]bool),
		handlers: make(map[string][]Handler),
	}
}

// AnyInterface registers a handler for every global.
const AnyInterface = "*"

// Handle registers h for iface. Globals already announced are replayed.
func (r *Registry) Handle(iface string, h Handler) {
	r.handlers[iface] = append(r.handlers[iface], h)
	replay := r.Globals()
	if iface != AnyInterface {
		replay = r.Lookup(iface)
	}
	for _, g := range replay {
		h.NewGlobal(r, g)
	}
}

func (r *Registry) handlersFor(iface string) []Handler {
	hs := r.handlers[iface]
	if wild := r.handlers[AnyInterface]; len(wild) > 0 {
		hs = append(hs[:len(hs):len(hs)], wild...)
	}
	return hs
}

// Announce records a global announcement and notifies the handlers of its
// interface.
func (r *Registry) Announce(name uint32, iface string, version uint32) {
	if old, ok := r.globals[name]; ok {
		logger.Warn("global announced twice, replacing", "name", name, "old", old.Interface, "new", iface)
		r.Remove(name)
	}

	g := Global{Name: name, Interface: iface, Version: version}
	r.globals[name] = g
	logger.Debug("global announced", "interface", iface, "name", name, "version", version)

	for _, h := range r.handlersFor(iface) {
		h.NewGlobal(r, g)
	}
}

// Remove forgets a global and notifies the handlers of its interface. A
// later announcement reusing the name is an unrelated global.
func (r *Registry) Remove(name uint32) {
	g, ok := r.globals[name]
	if !ok {
		logger.Debug("removal of unknown global", "name", name)
		return
	}
	delete(r.globals, name)
	delete(r.bound, name)
	logger.Debug("global removed", "interface", g.Interface, "name", name)

	for _, h := range r.handlersFor(g.Interface) {
		h.RemoveGlobal(r, name)
	}
}

// Bind binds global name to p at min(requested, advertised) and returns the
// negotiated version.
func (r *Registry) Bind(name uint32, iface string, requested uint32, p protocols.Global) (uint32, error) {
	g, ok := r.globals[name]
	if !ok || g.Interface != iface {
		return 0, &BindError{Interface: iface, Name: name, Err: ErrNotAdvertised}
	}
	if r.bound[name] {
		return 0, &BindError{Interface: iface, Name: name, Err: ErrAlreadyBound}
	}

	version := min(requested, g.Version)
	if err := r.binder.Bind(name, iface, version, p); err != nil {
		return 0, &BindError{Interface: iface, Name: name, Err: err}
	}
	r.bound[name] = true
	logger.Debug("bound global", "interface", iface, "name", name, "version", version)
	return version, nil
}

// Contains reports whether name is currently advertised.
func (r *Registry) Contains(name uint32) bool {
	_, ok := r.globals[name]
	return ok
}

// Globals returns every advertised global ordered by name.
func (r *Registry) Globals() []Global {
	out := make([]Global, 0, len(r.globals))
	for _, g := range r.globals {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup returns the globals advertised under iface ordered by name.
func (r *Registry) Lookup(iface string) []Global {
	var out []Global
	for _, g := range r.Globals() {
		if g.Interface == iface {
			out = append(out, g)
		}
	}
	return out
}
