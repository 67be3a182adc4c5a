package window

import (
	"github.com/bnema/waykit/decoration"
	"github.com/bnema/waykit/internal/logger"
	"github.com/bnema/waykit/internal/protocols"
)

func statesFromWire(states []uint32) decoration.WindowState {
	var s decoration.WindowState
	for _, v := range states {
		if v < protocols.ToplevelStateMaximized || v > protocols.ToplevelStateSuspended {
			logger.Debug("unknown toplevel state", "state", v)
			continue
		}
		s |= 1 << (v - 1)
	}
	return s
}

func capabilitiesFromWire(caps []uint32) decoration.WMCapabilities {
	var c decoration.WMCapabilities
	for _, v := range caps {
		if v < protocols.WmCapabilityWindowMenu || v > protocols.WmCapabilityMinimize {
			logger.Debug("unknown wm capability", "capability", v)
			continue
		}
		c |= 1 << (v - 1)
	}
	return c
}
