package registry

import (
	"github.com/bnema/waykit/internal/logger"
	"github.com/bnema/waykit/internal/protocols"
)

// SingleGlobal binds the first advertised instance of an interface.
// Duplicates are logged and ignored. A lazy SingleGlobal only records the
// candidate and binds on the first Get.
type SingleGlobal[T protocols.Global] struct {
	Interface  string
	MaxVersion uint32
	Lazy       bool

	// New creates the unbound proxy.
	New func() T
	// OnBind runs after a successful bind.
	OnBind func(proxy T, version uint32)
	// OnRemove runs when the bound global is removed.
	OnRemove func(proxy T)

	reg       *Registry
	candidate *Global
	version   uint32
	proxy     T
	bound     bool
	err       error
}

// NewGlobal implements Handler.
func (s *SingleGlobal[T]) NewGlobal(r *Registry, g Global) {
	s.reg = r
	if s.bound || s.candidate != nil {
		logger.Warn("ignoring duplicate global", "interface", g.Interface, "name", g.Name)
		return
	}
	gc := g
	s.candidate = &gc
	s.err = nil
	if !s.Lazy {
		_, _ = s.Get()
	}
}

// RemoveGlobal implements Handler.
func (s *SingleGlobal[T]) RemoveGlobal(_ *Registry, name uint32) {
	if s.candidate == nil || s.candidate.Name != name {
		return
	}
	s.candidate = nil
	if !s.bound {
		return
	}

	proxy := s.proxy
	var zero T
	s.proxy = zero
	s.bound = false
	s.version = 0
	logger.Debug("bound global removed", "interface", s.Interface, "name", name)
	if s.OnRemove != nil {
		s.OnRemove(proxy)
	}
}

// Get returns the bound proxy, binding it first when lazy.
func (s *SingleGlobal[T]) Get() (T, error) {
	if s.bound {
		return s.proxy, nil
	}
	var zero T
	if s.candidate == nil {
		return zero, &MissingGlobalError{Interface: s.Interface}
	}
	if s.err != nil {
		return zero, s.err
	}

	proxy := s.New()
	version, err := s.reg.Bind(s.candidate.Name, s.Interface, s.MaxVersion, proxy)
	if err != nil {
		logger.Error("failed to bind global", "interface", s.Interface, "error", err)
		s.err = err
		return zero, err
	}
	s.proxy = proxy
	s.version = version
	s.bound = true
	if s.OnBind != nil {
		s.OnBind(proxy, version)
	}
	return proxy, nil
}

// Bound reports whether the global is currently bound.
func (s *SingleGlobal[T]) Bound() bool {
	return s.bound
}

// Available reports whether the interface is advertised, bound or not.
func (s *SingleGlobal[T]) Available() bool {
	return s.candidate != nil
}

// Version returns the negotiated version, 0 when unbound.
func (s *SingleGlobal[T]) Version() uint32 {
	return s.version
}
