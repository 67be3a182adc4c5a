package output

import (
	"fmt"
	"slices"

	"github.com/bnema/waykit/internal/logger"
)

// Subpixel is the wl_output subpixel layout.
type Subpixel int32

const (
	SubpixelUnknown Subpixel = iota
	SubpixelNone
	SubpixelHorizontalRGB
	SubpixelHorizontalBGR
	SubpixelVerticalRGB
	SubpixelVerticalBGR
)

var subpixelNames = [...]string{"unknown", "none", "horizontal rgb", "horizontal bgr", "vertical rgb", "vertical bgr"}

func (s Subpixel) String() string {
	if s < 0 || int(s) >= len(subpixelNames) {
		return fmt.Sprintf("subpixel(%d)", int32(s))
	}
	return subpixelNames[s]
}

func subpixelFromWire(v int32) Subpixel {
	s := Subpixel(v)
	if s < SubpixelUnknown || s > SubpixelVerticalBGR {
		logger.Debug("unknown subpixel layout", "value", v)
		return SubpixelUnknown
	}
	return s
}

// Transform is the wl_output transform.
type Transform int32

const (
	TransformNormal Transform = iota
	Transform90
	Transform180
	Transform270
	TransformFlipped
	TransformFlipped90
	TransformFlipped180
	TransformFlipped270
)

var transformNames = [...]string{"normal", "90", "180", "270", "flipped", "flipped-90", "flipped-180", "flipped-270"}

func (t Transform) String() string {
	if t < 0 || int(t) >= len(transformNames) {
		return fmt.Sprintf("transform(%d)", int32(t))
	}
	return transformNames[t]
}

func transformFromWire(v int32) Transform {
	t := Transform(v)
	if t < TransformNormal || t > TransformFlipped270 {
		logger.Debug("unknown output transform", "value", v)
		return TransformNormal
	}
	return t
}

// Point is a position in compositor space.
type Point struct {
	X, Y int32
}

// Size is a width and height pair.
type Size struct {
	Width, Height int32
}

// Mode is one display mode. RefreshRate is in mHz.
type Mode struct {
	Width       int32
	Height      int32
	RefreshRate int32
	Current     bool
	Preferred   bool
}

func (m Mode) String() string {
	return fmt.Sprintf("%dx%d@%.3fHz", m.Width, m.Height, float64(m.RefreshRate)/1000)
}

func (m Mode) sameTiming(o Mode) bool {
	return m.Width == o.Width && m.Height == o.Height && m.RefreshRate == o.RefreshRate
}

// Info is a merged snapshot of wl_output and zxdg_output_v1 state.
type Info struct {
	// ID is the registry name of the output global.
	ID           uint32
	Model        string
	Make         string
	Name         string
	Description  string
	Location     Point
	PhysicalSize Size
	Subpixel     Subpixel
	Transform    Transform
	ScaleFactor  int32
	Modes        []Mode

	// Set from xdg_output; zero when the compositor lacks it.
	LogicalPosition Point
	LogicalSize     Size
}

// CurrentMode returns the mode flagged current, if any.
func (i Info) CurrentMode() (Mode, bool) {
	for _, m := range i.Modes {
		if m.Current {
			return m, true
		}
	}
	return Mode{}, false
}

func (i Info) clone() Info {
	i.Modes = slices.Clone(i.Modes)
	return i
}

// mergeMode replaces a mode with the same timing and clears the current and
// preferred flags it takes over from the other modes.
func mergeMode(modes []Mode, m Mode) []Mode {
	modes = slices.DeleteFunc(modes, m.sameTiming)
	for i := range modes {
		if m.Current {
			modes[i].Current = false
		}
		if m.Preferred {
			modes[i].Preferred = false
		}
	}
	return append(modes, m)
}
