package decoration

import (
	"fmt"

	"github.com/bnema/waykit/internal/protocols"
	"github.com/bnema/wlturbo/wl"
)

// SubsurfaceParts creates frame parts as subsurfaces of Parent.
type SubsurfaceParts struct {
	Compositor    *protocols.Compositor
	Subcompositor *protocols.Subcompositor
	Parent        *wl.Surface
}

// CreatePart implements Parts.
func (s *SubsurfaceParts) CreatePart() (Surface, Subsurface, error) {
	surface, err := s.Compositor.CreateSurface()
	if err != nil {
		return nil, nil, fmt.Errorf("create surface: %w", err)
	}
	sub, err := s.Subcompositor.GetSubsurface(surface, s.Parent)
	if err != nil {
		_ = surface.Destroy()
		return nil, nil, fmt.Errorf("get subsurface: %w", err)
	}
	return surface, sub, nil
}
