package pointer

import (
	"fmt"
)

// CursorIcon names a cursor by its CSS cursor name.
type CursorIcon int

// Cursor icons in wp_cursor_shape_device_v1 shape order.
const (
	CursorDefault CursorIcon = iota
	CursorContextMenu
	CursorHelp
	CursorPointer
	CursorProgress
	CursorWait
	CursorCell
	CursorCrosshair
	CursorText
	CursorVerticalText
	CursorAlias
	CursorCopy
	CursorMove
	CursorNoDrop
	CursorNotAllowed
	CursorGrab
	CursorGrabbing
	CursorEResize
	CursorNResize
	CursorNeResize
	CursorNwResize
	CursorSResize
	CursorSeResize
	CursorSwResize
	CursorWResize
	CursorEwResize
	CursorNsResize
	CursorNeswResize
	CursorNwseResize
	CursorColResize
	CursorRowResize
	CursorAllScroll
	CursorZoomIn
	CursorZoomOut
	// Shapes added in version 2.
	CursorDndAsk
	CursorAllResize
)

var cursorNames = [...]string{
	"default", "context-menu", "help", "pointer", "progress", "wait", "cell",
	"crosshair", "text", "vertical-text", "alias", "copy", "move", "no-drop",
	"not-allowed", "grab", "grabbing", "e-resize", "n-resize", "ne-resize",
	"nw-resize", "s-resize", "se-resize", "sw-resize", "w-resize", "ew-resize",
	"ns-resize", "nesw-resize", "nwse-resize", "col-resize", "row-resize",
	"all-scroll", "zoom-in", "zoom-out", "dnd-ask", "all-resize",
}

func (c CursorIcon) String() string {
	if c < 0 || int(c) >= len(cursorNames) {
		return fmt.Sprintf("cursor(%d)", int(c))
	}
	return cursorNames[c]
}

// ParseCursorIcon looks up an icon by CSS name.
func ParseCursorIcon(name string) (CursorIcon, error) {
	for i, n := range cursorNames {
		if n == name {
			return CursorIcon(i), nil
		}
	}
	return CursorDefault, fmt.Errorf("unknown cursor icon %q", name)
}

// Shape returns the wp_cursor_shape_device_v1 shape for c at the given
// protocol version. Shapes the version lacks fall back to default.
func (c CursorIcon) Shape(version uint32) uint32 {
	switch {
	case c < 0 || int(c) >= len(cursorNames):
		return 1
	case c >= CursorDndAsk && version < 2:
		return 1
	}
	return uint32(c) + 1
}
