package decoration

import (
	"fmt"
	"strings"
)

// WindowState holds the xdg_toplevel states relevant to a frame.
type WindowState uint32

const (
	StateMaximized WindowState = 1 << iota
	StateFullscreen
	StateResizing
	StateActivated
	StateTiledLeft
	StateTiledRight
	StateTiledTop
	StateTiledBottom
	StateSuspended
)

// StateTiled is set when every edge is tiled.
const StateTiled = StateTiledLeft | StateTiledRight | StateTiledTop | StateTiledBottom

var stateNames = []struct {
	s    WindowState
	name string
}{
	{StateMaximized, "maximized"},
	{StateFullscreen, "fullscreen"},
	{StateResizing, "resizing"},
	{StateActivated, "activated"},
	{StateTiledLeft, "tiled-left"},
	{StateTiledRight, "tiled-right"},
	{StateTiledTop, "tiled-top"},
	{StateTiledBottom, "tiled-bottom"},
	{StateSuspended, "suspended"},
}

func (s WindowState) String() string {
	var parts []string
	for _, n := range stateNames {
		if s&n.s != 0 {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Has reports whether every state of o is set.
func (s WindowState) Has(o WindowState) bool {
	return s&o == o
}

// WMCapabilities are the window management features offered by the
// compositor.
type WMCapabilities uint32

const (
	CapWindowMenu WMCapabilities = 1 << iota
	CapMaximize
	CapFullscreen
	CapMinimize

	// CapAll is assumed until the compositor sends wm_capabilities.
	CapAll = CapWindowMenu | CapMaximize | CapFullscreen | CapMinimize
)

// Has reports whether every capability of o is set.
func (c WMCapabilities) Has(o WMCapabilities) bool {
	return c&o == o
}

// ResizeEdge is an xdg_toplevel resize edge.
type ResizeEdge uint32

const (
	EdgeNone        ResizeEdge = 0
	EdgeTop         ResizeEdge = 1
	EdgeBottom      ResizeEdge = 2
	EdgeLeft        ResizeEdge = 4
	EdgeTopLeft     ResizeEdge = 5
	EdgeBottomLeft  ResizeEdge = 6
	EdgeRight       ResizeEdge = 8
	EdgeTopRight    ResizeEdge = 9
	EdgeBottomRight ResizeEdge = 10
)

// ActionKind is what a click on the frame asks the window to do.
type ActionKind int

const (
	ActionMinimize ActionKind = iota
	ActionMaximize
	ActionUnmaximize
	ActionClose
	ActionMove
	ActionResize
	ActionShowMenu
)

func (k ActionKind) String() string {
	switch k {
	case ActionMinimize:
		return "minimize"
	case ActionMaximize:
		return "maximize"
	case ActionUnmaximize:
		return "unmaximize"
	case ActionClose:
		return "close"
	case ActionMove:
		return "move"
	case ActionResize:
		return "resize"
	case ActionShowMenu:
		return "show-menu"
	}
	return fmt.Sprintf("action(%d)", int(k))
}

// FrameAction is the result of a click. Edge is set for ActionResize, X and
// Y, relative to the content surface, for ActionShowMenu.
type FrameAction struct {
	Kind ActionKind
	Edge ResizeEdge
	X, Y int32
}

// FrameClick tells primary clicks from alternate ones (right button, long
// press).
type FrameClick int

const (
	ClickNormal FrameClick = iota
	ClickAlternate
)

// Button is a header button.
type Button int

const (
	ButtonClose Button = iota
	ButtonMaximize
	ButtonMinimize
)

func (b Button) String() string {
	switch b {
	case ButtonClose:
		return "close"
	case ButtonMaximize:
		return "maximize"
	case ButtonMinimize:
		return "minimize"
	}
	return fmt.Sprintf("button(%d)", int(b))
}

// Location is the frame zone under the pointer.
type Location int

const (
	LocationNone Location = iota
	LocationHead
	LocationTop
	LocationTopRight
	LocationRight
	LocationBottomRight
	LocationBottom
	LocationBottomLeft
	LocationLeft
	LocationTopLeft
	LocationClose
	LocationMaximize
	LocationMinimize
)

var locationNames = [...]string{
	"none", "head", "top", "top-right", "right", "bottom-right",
	"bottom", "bottom-left", "left", "top-left",
	"close", "maximize", "minimize",
}

func (l Location) String() string {
	if l < 0 || int(l) >= len(locationNames) {
		return fmt.Sprintf("location(%d)", int(l))
	}
	return locationNames[l]
}

// IsButton reports whether l is a header button.
func (l Location) IsButton() bool {
	return l >= LocationClose && l <= LocationMinimize
}

// Button returns the button at l.
func (l Location) Button() (Button, bool) {
	if !l.IsButton() {
		return 0, false
	}
	return Button(l - LocationClose), true
}

func buttonLocation(b Button) Location {
	return LocationClose + Location(b)
}
