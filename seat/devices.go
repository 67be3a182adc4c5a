package seat

import (
	"errors"
	"fmt"

	"github.com/bnema/waykit/internal/logger"
	"github.com/bnema/waykit/internal/protocols"
	"github.com/bnema/waykit/registry"
	"github.com/bnema/waykit/seat/keyboard"
	"github.com/bnema/waykit/seat/pointer"
	"github.com/bnema/waykit/seat/tablet"
	"github.com/bnema/waykit/seat/touch"
	"github.com/bnema/waykit/shm"
)

// Devices are owned by the caller: release them on RemoveCapability or
// RemoveSeat.

// GetKeyboard creates the keyboard of the seat.
func (s *Seat) GetKeyboard(h keyboard.Handler, cfg keyboard.Config) (*keyboard.Keyboard, error) {
	if err := s.check(Keyboard); err != nil {
		return nil, err
	}
	w, err := s.wire.GetKeyboard()
	if err != nil {
		return nil, fmt.Errorf("get keyboard: %w", err)
	}
	k, err := keyboard.New(w, h, cfg)
	if err != nil {
		return nil, errors.Join(err, w.Release())
	}
	return k, nil
}

// GetPointer creates the pointer of the seat.
func (s *Seat) GetPointer(h pointer.Handler) (*pointer.Pointer, error) {
	if err := s.check(Pointer); err != nil {
		return nil, err
	}
	w, err := s.wire.GetPointer()
	if err != nil {
		return nil, fmt.Errorf("get pointer: %w", err)
	}
	return pointer.New(w, h), nil
}

// SurfaceFactory creates the surface of a software cursor.
type SurfaceFactory interface {
	CreateCursorSurface() (pointer.CursorSurface, error)
}

type compositorSurfaces struct {
	c *protocols.Compositor
}

// CompositorSurfaces creates cursor surfaces with c.
func CompositorSurfaces(c *protocols.Compositor) SurfaceFactory {
	return compositorSurfaces{c: c}
}

func (f compositorSurfaces) CreateCursorSurface() (pointer.CursorSurface, error) {
	surface, err := f.c.CreateSurface()
	if err != nil {
		return nil, err
	}
	return surface, nil
}

// ThemeSpec configures the software cursor used when the compositor has no
// cursor shape manager.
type ThemeSpec struct {
	Surfaces SurfaceFactory
	Shm      *shm.Shm
	// Size in surface coordinates, pointer.DefaultCursorSize when zero.
	Size int
}

// GetPointerWithTheme creates a pointer that sets cursors by icon. The
// cursor shape manager is bound on first use; without it cursors are drawn
// into a shm buffer described by theme.
func (s *Seat) GetPointerWithTheme(h pointer.Handler, theme ThemeSpec) (*pointer.ThemedPointer, error) {
	if err := s.check(Pointer); err != nil {
		return nil, err
	}
	w, err := s.wire.GetPointer()
	if err != nil {
		return nil, fmt.Errorf("get pointer: %w", err)
	}
	p := pointer.New(w, h)

	if shapes := s.state.cursorShapes; shapes != nil && shapes.Available() {
		mgr, err := shapes.Get()
		if err == nil {
			dev, err := mgr.GetPointer(w)
			if err == nil {
				return pointer.NewShaped(p, dev), nil
			}
			logger.Warn("failed to get cursor shape device", "error", err)
		}
	}

	tp, err := softwareCursor(p, theme)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("software cursor: %w", err), p.Release())
	}
	return tp, nil
}

func softwareCursor(p *pointer.Pointer, theme ThemeSpec) (*pointer.ThemedPointer, error) {
	if theme.Surfaces == nil || theme.Shm == nil {
		return nil, pointer.ErrNoCursorSource
	}
	size := theme.Size
	if size <= 0 {
		size = pointer.DefaultCursorSize
	}
	surface, err := theme.Surfaces.CreateCursorSurface()
	if err != nil {
		return nil, err
	}
	pool, err := shm.NewSimplePool(theme.Shm, size*size*4)
	if err != nil {
		return nil, errors.Join(err, surface.Destroy())
	}
	return pointer.NewSoftware(p, surface, pool, size), nil
}

// GetTouch creates the touch device of the seat.
func (s *Seat) GetTouch(h touch.Handler) (*touch.Touch, error) {
	if err := s.check(Touch); err != nil {
		return nil, err
	}
	w, err := s.wire.GetTouch()
	if err != nil {
		return nil, fmt.Errorf("get touch: %w", err)
	}
	return touch.New(w, h), nil
}

// TabletSeat creates the tablet seat, binding the tablet manager on first
// use. It is destroyed with the seat.
func (s *Seat) TabletSeat(h tablet.Handler) (*tablet.Seat, error) {
	if s.dead {
		return nil, ErrDeadObject
	}
	if s.proto == nil || s.state.tablets == nil {
		return nil, &registry.MissingGlobalError{Interface: protocols.TabletManagerInterface}
	}
	mgr, err := s.state.tablets.Get()
	if err != nil {
		return nil, err
	}
	w, err := mgr.GetTabletSeat(s.proto)
	if err != nil {
		return nil, fmt.Errorf("get tablet seat: %w", err)
	}
	ts := tablet.NewSeat(w, h)
	s.onRemove(ts.Destroy)
	return ts, nil
}
