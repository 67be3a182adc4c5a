package keyboard

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidKeymap is returned when a keymap cannot be compiled.
var ErrInvalidKeymap = errors.New("invalid keymap")

// Keymap formats of wl_keyboard.keymap.
const (
	KeymapFormatNoKeymap = 0
	KeymapFormatXkbV1    = 1
)

// RMLVO names a keymap by rules, model, layout, variant and options.
type RMLVO struct {
	Rules   string
	Model   string
	Layout  string
	Variant string
	Options string
}

// Modifiers is the effective modifier state.
type Modifiers struct {
	Ctrl     bool
	Alt      bool
	Shift    bool
	CapsLock bool
	Logo     bool
	NumLock  bool
}

func (m Modifiers) String() string {
	var names []string
	for _, mod := range []struct {
		on   bool
		name string
	}{
		{m.Ctrl, "ctrl"}, {m.Alt, "alt"}, {m.Shift, "shift"},
		{m.CapsLock, "caps"}, {m.Logo, "logo"}, {m.NumLock, "num"},
	} {
		if mod.on {
			names = append(names, mod.name)
		}
	}
	return fmt.Sprintf("(%s)", strings.Join(names, ", "))
}

// KeymapCompiler turns the text keymap sent by the compositor into a Keymap.
type KeymapCompiler interface {
	Compile(data []byte) (Keymap, error)
}

// NamesCompiler is implemented by compilers that can build a keymap from
// RMLVO names.
type NamesCompiler interface {
	CompileNames(names RMLVO) (Keymap, error)
}

// Keymap is a compiled keymap.
type Keymap interface {
	NewState() State
}

// State tracks modifiers against a keymap. Key codes are evdev codes as
// sent by wl_keyboard.
type State interface {
	Keysym(key uint32) Keysym
	UTF8(key uint32) string
	// UpdateMask applies a wl_keyboard.modifiers event and reports whether
	// the effective modifiers changed.
	UpdateMask(depressed, latched, locked, group uint32) bool
	Modifiers() Modifiers
	Repeats(key uint32) bool
}
