package keyboard

import (
	"bytes"
	"fmt"
	"unicode"
)

// Real modifier bits in the order xkbcommon assigns them.
const (
	modShift = 1 << iota
	modLock
	modControl
	modMod1
	modMod2
	modMod3
	modMod4
	modMod5
)

// evdev key codes
const (
	keyEsc        = 1
	keyBackspace  = 14
	keyTab        = 15
	keyEnter      = 28
	keyLeftCtrl   = 29
	keyLeftShift  = 42
	keyRightShift = 54
	keyKPAsterisk = 55
	keyLeftAlt    = 56
	keySpace      = 57
	keyCapsLock   = 58
	keyF1         = 59
	keyNumLock    = 69
	keyScrollLock = 70
	keyKP7        = 71
	keyF11        = 87
	keyF12        = 88
	keyKPEnter    = 96
	keyRightCtrl  = 97
	keyKPSlash    = 98
	keySysRq      = 99
	keyRightAlt   = 100
	keyHome       = 102
	keyUp         = 103
	keyPageUp     = 104
	keyLeft       = 105
	keyRight      = 106
	keyEnd        = 107
	keyDown       = 108
	keyPageDown   = 109
	keyInsert     = 110
	keyDelete     = 111
	keyPause      = 119
	keyLeftMeta   = 125
	keyRightMeta  = 126
	keyCompose    = 127
)

// usRows maps the printable evdev rows of a US layout, unshifted and
// shifted, starting at the given key code.
var usRows = []struct {
	first   uint32
	lower   string
	shifted string
}{
	{2, "1234567890-=", "!@#$%^&*()_+"},
	{16, "qwertyuiop[]", "QWERTYUIOP{}"},
	{30, "asdfghjkl;'`", "ASDFGHJKL:\"~"},
	{43, "\\zxcvbnm,./", "|ZXCVBNM<>?"},
}

// usSpecial maps non-printable keys.
var usSpecial = map[uint32]Keysym{
	keyEsc:        KeyEscape,
	keyBackspace:  KeyBackSpace,
	keyTab:        KeyTab,
	keyEnter:      KeyReturn,
	keyLeftCtrl:   KeyControlL,
	keyLeftShift:  KeyShiftL,
	keyRightShift: KeyShiftR,
	keyKPAsterisk: KeyKPMul,
	keyLeftAlt:    KeyAltL,
	keySpace:      KeySpace,
	keyCapsLock:   KeyCapsLock,
	keyNumLock:    KeyNumLock,
	keyScrollLock: KeyScrollLck,
	keyKPEnter:    KeyKPEnter,
	keyRightCtrl:  KeyControlR,
	keyKPSlash:    KeyKPDiv,
	keySysRq:      KeyPrint,
	keyRightAlt:   KeyAltR,
	keyHome:       KeyHome,
	keyUp:         KeyUp,
	keyPageUp:     KeyPageUp,
	keyLeft:       KeyLeft,
	keyRight:      KeyRight,
	keyEnd:        KeyEnd,
	keyDown:       KeyDown,
	keyPageDown:   KeyPageDown,
	keyInsert:     KeyInsert,
	keyDelete:     KeyDelete,
	keyPause:      KeyPause,
	keyLeftMeta:   KeySuperL,
	keyRightMeta:  KeySuperR,
	keyCompose:    KeyMultiKey,
}

// keypad keys in evdev order from KP7
var keypad = []Keysym{
	KeyKP0 + 7, KeyKP0 + 8, KeyKP0 + 9, KeyKPSub,
	KeyKP0 + 4, KeyKP0 + 5, KeyKP0 + 6, KeyKPAdd,
	KeyKP0 + 1, KeyKP0 + 2, KeyKP0 + 3,
	KeyKP0, KeyKPDecimal,
}

// EvdevCompiler is a built-in compiler producing a US QWERTY keymap for any
// xkb_v1 text keymap, so the toolkit works without libxkbcommon.
type EvdevCompiler struct{}

// Compile accepts any xkb text keymap.
func (EvdevCompiler) Compile(data []byte) (Keymap, error) {
	text := bytes.TrimRight(data, "\x00")
	if !bytes.Contains(text, []byte("xkb_keymap")) {
		return nil, fmt.Errorf("%w: not an xkb text keymap", ErrInvalidKeymap)
	}
	return newUSKeymap(), nil
}

// CompileNames supports the "us" layout without variant.
func (EvdevCompiler) CompileNames(names RMLVO) (Keymap, error) {
	if (names.Layout != "" && names.Layout != "us") || names.Variant != "" {
		return nil, fmt.Errorf("%w: layout %q variant %q not built in", ErrInvalidKeymap, names.Layout, names.Variant)
	}
	return newUSKeymap(), nil
}

type usKeymap struct {
	lower   map[uint32]Keysym
	shifted map[uint32]Keysym
}

func newUSKeymap() *usKeymap {
	km := &usKeymap{
		lower:   make(map[uint32]Keysym),
		shifted: make(map[uint32]Keysym),
	}
	for _, row := range usRows {
		shifted := []rune(row.shifted)
		for i, r := range row.lower {
			code := row.first + uint32(i)
			km.lower[code] = KeysymFromRune(r)
			km.shifted[code] = KeysymFromRune(shifted[i])
		}
	}
	for code, sym := range usSpecial {
		km.lower[code] = sym
	}
	for i := 0; i < 10; i++ {
		km.lower[keyF1+uint32(i)] = KeyF1 + Keysym(i)
	}
	km.lower[keyF11] = KeyF1 + 10
	km.lower[keyF12] = KeyF1 + 11
	for i, sym := range keypad {
		km.lower[keyKP7+uint32(i)] = sym
	}
	return km
}

func (km *usKeymap) NewState() State {
	return &usState{keymap: km}
}

type usState struct {
	keymap *usKeymap
	mods   uint32
	group  uint32
}

func (s *usState) Keysym(key uint32) Keysym {
	sym, ok := s.keymap.lower[key]
	if !ok {
		return KeyNoSymbol
	}
	shifted, hasShift := s.keymap.shifted[key]
	if !hasShift {
		return sym
	}

	shift := s.mods&modShift != 0
	r := sym.Rune()
	if unicode.IsLetter(r) && s.mods&modLock != 0 {
		shift = !shift
	}
	if shift {
		return shifted
	}
	return sym
}

func (s *usState) UTF8(key uint32) string {
	sym := s.Keysym(key)
	r := sym.Rune()
	if r == 0xfffd {
		return ""
	}
	if s.mods&modControl != 0 {
		// control characters as produced by xkbcommon
		switch {
		case r >= '@' && r <= '_':
			r -= '@'
		case r >= 'a' && r <= 'z':
			r -= 'a' - 1
		case r == ' ' || r == '2':
			r = 0
		case r == '/':
			r = 0x1f
		}
	}
	return string(r)
}

func (s *usState) UpdateMask(depressed, latched, locked, group uint32) bool {
	mods := depressed | latched | locked
	changed := mods != s.mods || group != s.group
	s.mods = mods
	s.group = group
	return changed
}

func (s *usState) Modifiers() Modifiers {
	return Modifiers{
		Shift:    s.mods&modShift != 0,
		CapsLock: s.mods&modLock != 0,
		Ctrl:     s.mods&modControl != 0,
		Alt:      s.mods&modMod1 != 0,
		NumLock:  s.mods&modMod2 != 0,
		Logo:     s.mods&modMod4 != 0,
	}
}

func (s *usState) Repeats(key uint32) bool {
	sym, ok := s.keymap.lower[key]
	if !ok {
		return false
	}
	switch sym {
	case KeyEscape, KeyCapsLock, KeyNumLock, KeyScrollLck, KeyPause, KeyPrint, KeyMultiKey:
		return false
	}
	return !sym.IsModifier()
}
