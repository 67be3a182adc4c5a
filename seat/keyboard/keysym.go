package keyboard

import (
	"fmt"
	"unicode/utf8"
)

// Keysym is an X11 keysym value.
type Keysym uint32

// Keysyms with special meaning to the keyboard code. Printable Latin-1
// keysyms equal their code point.
const (
	KeyNoSymbol  Keysym = 0x0000
	KeySpace     Keysym = 0x0020
	KeyBackSpace Keysym = 0xff08
	KeyTab       Keysym = 0xff09
	KeyReturn    Keysym = 0xff0d
	KeyPause     Keysym = 0xff13
	KeyScrollLck Keysym = 0xff14
	KeyEscape    Keysym = 0xff1b
	KeyMultiKey  Keysym = 0xff20
	KeyHome      Keysym = 0xff50
	KeyLeft      Keysym = 0xff51
	KeyUp        Keysym = 0xff52
	KeyRight     Keysym = 0xff53
	KeyDown      Keysym = 0xff54
	KeyPageUp    Keysym = 0xff55
	KeyPageDown  Keysym = 0xff56
	KeyEnd       Keysym = 0xff57
	KeyPrint     Keysym = 0xff61
	KeyInsert    Keysym = 0xff63
	KeyMenu      Keysym = 0xff67
	KeyNumLock   Keysym = 0xff7f
	KeyKPEnter   Keysym = 0xff8d
	KeyKPMul     Keysym = 0xffaa
	KeyKPAdd     Keysym = 0xffab
	KeyKPSub     Keysym = 0xffad
	KeyKPDecimal Keysym = 0xffae
	KeyKPDiv     Keysym = 0xffaf
	KeyKP0       Keysym = 0xffb0
	KeyF1        Keysym = 0xffbe
	KeyShiftL    Keysym = 0xffe1
	KeyShiftR    Keysym = 0xffe2
	KeyControlL  Keysym = 0xffe3
	KeyControlR  Keysym = 0xffe4
	KeyCapsLock  Keysym = 0xffe5
	KeyAltL      Keysym = 0xffe9
	KeyAltR      Keysym = 0xffea
	KeySuperL    Keysym = 0xffeb
	KeySuperR    Keysym = 0xffec
	KeyDelete    Keysym = 0xffff

	KeyDeadGrave      Keysym = 0xfe50
	KeyDeadAcute      Keysym = 0xfe51
	KeyDeadCircumflex Keysym = 0xfe52
	KeyDeadTilde      Keysym = 0xfe53
	KeyDeadDiaeresis  Keysym = 0xfe57
)

var keysymNames = map[Keysym]string{
	KeyNoSymbol:       "NoSymbol",
	KeySpace:          "space",
	KeyBackSpace:      "BackSpace",
	KeyTab:            "Tab",
	KeyReturn:         "Return",
	KeyPause:          "Pause",
	KeyScrollLck:      "Scroll_Lock",
	KeyEscape:         "Escape",
	KeyMultiKey:       "Multi_key",
	KeyHome:           "Home",
	KeyLeft:           "Left",
	KeyUp:             "Up",
	KeyRight:          "Right",
	KeyDown:           "Down",
	KeyPageUp:         "Prior",
	KeyPageDown:       "Next",
	KeyEnd:            "End",
	KeyPrint:          "Print",
	KeyInsert:         "Insert",
	KeyMenu:           "Menu",
	KeyNumLock:        "Num_Lock",
	KeyKPEnter:        "KP_Enter",
	KeyShiftL:         "Shift_L",
	KeyShiftR:         "Shift_R",
	KeyControlL:       "Control_L",
	KeyControlR:       "Control_R",
	KeyCapsLock:       "Caps_Lock",
	KeyAltL:           "Alt_L",
	KeyAltR:           "Alt_R",
	KeySuperL:         "Super_L",
	KeySuperR:         "Super_R",
	KeyDelete:         "Delete",
	KeyDeadGrave:      "dead_grave",
	KeyDeadAcute:      "dead_acute",
	KeyDeadCircumflex: "dead_circumflex",
	KeyDeadTilde:      "dead_tilde",
	KeyDeadDiaeresis:  "dead_diaeresis",
}

func (k Keysym) String() string {
	if name, ok := keysymNames[k]; ok {
		return name
	}
	if k >= KeyF1 && k < KeyF1+24 {
		return fmt.Sprintf("F%d", k-KeyF1+1)
	}
	if r := k.Rune(); r > ' ' && r != utf8.RuneError {
		return string(r)
	}
	return fmt.Sprintf("0x%04x", uint32(k))
}

// IsModifier reports whether k is a modifier key.
func (k Keysym) IsModifier() bool {
	switch k {
	case KeyShiftL, KeyShiftR, KeyControlL, KeyControlR, KeyCapsLock,
		KeyAltL, KeyAltR, KeySuperL, KeySuperR, KeyNumLock:
		return true
	}
	return false
}

// Rune returns the character k produces, or utf8.RuneError if none.
func (k Keysym) Rune() rune {
	switch {
	case k >= 0x20 && k <= 0x7e, k >= 0xa0 && k <= 0xff:
		return rune(k)
	case k >= 0x01000100 && k <= 0x0110ffff:
		return rune(k - 0x01000000)
	}
	switch k {
	case KeyBackSpace:
		return '\b'
	case KeyTab:
		return '\t'
	case KeyReturn, KeyKPEnter:
		return '\r'
	case KeyEscape:
		return 0x1b
	case KeyDelete:
		return 0x7f
	case KeyKPMul:
		return '*'
	case KeyKPAdd:
		return '+'
	case KeyKPSub:
		return '-'
	case KeyKPDecimal:
		return '.'
	case KeyKPDiv:
		return '/'
	}
	if k >= KeyKP0 && k <= KeyKP0+9 {
		return rune('0' + k - KeyKP0)
	}
	return utf8.RuneError
}

// KeysymFromRune returns the keysym producing r.
func KeysymFromRune(r rune) Keysym {
	if (r >= 0x20 && r <= 0x7e) || (r >= 0xa0 && r <= 0xff) {
		return Keysym(r)
	}
	return Keysym(r) + 0x01000000
}
