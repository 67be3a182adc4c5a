package datadevice

import (
	"strings"

	"github.com/bnema/waykit/internal/logger"
)

// DndAction is a set of drag-and-drop actions.
type DndAction uint32

const (
	ActionNone DndAction = 0
	ActionCopy DndAction = 1 << (iota - 1)
	ActionMove
	ActionAsk

	actionMask = ActionCopy | ActionMove | ActionAsk
)

func (a DndAction) String() string {
	if a == ActionNone {
		return "none"
	}
	var parts []string
	if a&ActionCopy != 0 {
		parts = append(parts, "copy")
	}
	if a&ActionMove != 0 {
		parts = append(parts, "move")
	}
	if a&ActionAsk != 0 {
		parts = append(parts, "ask")
	}
	if a&^actionMask != 0 {
		parts = append(parts, "unknown")
	}
	return strings.Join(parts, "|")
}

// Has reports whether every action of b is in a.
func (a DndAction) Has(b DndAction) bool {
	return a&b == b
}

// actionFromWire drops bits outside the protocol's enum.
func actionFromWire(v uint32) DndAction {
	a := DndAction(v)
	if unknown := a &^ actionMask; unknown != 0 {
		logger.Debug("ignoring unknown dnd action bits", "bits", uint32(unknown))
	}
	return a & actionMask
}
