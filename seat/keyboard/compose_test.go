package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func feedAll(s *ComposeState, syms ...Keysym) {
	for _, sym := range syms {
		s.Feed(sym)
	}
}

func TestComposeSequences(t *testing.T) {
	table := NewComposeTable("en_US.UTF-8")
	tests := []struct {
		name string
		keys []Keysym
		want string
	}{
		{"dead acute", []Keysym{KeyDeadAcute, 'e'}, "é"},
		{"dead grave upper", []Keysym{KeyDeadGrave, 'A'}, "À"},
		{"dead circumflex", []Keysym{KeyDeadCircumflex, 'o'}, "ô"},
		{"dead diaeresis", []Keysym{KeyDeadDiaeresis, 'u'}, "ü"},
		{"dead tilde", []Keysym{KeyDeadTilde, 'n'}, "ñ"},
		{"dead key alone", []Keysym{KeyDeadAcute, KeySpace}, "´"},
		{"multi key", []Keysym{KeyMultiKey, 'o', 'c'}, "©"},
		{"multi key euro", []Keysym{KeyMultiKey, 'e', '='}, "€"},
		{"multi key three", []Keysym{KeyMultiKey, '-', '-', '-'}, "—"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := table.NewState()
			feedAll(s, tt.keys...)
			assert.Equal(t, ComposeComposed, s.Status())
			assert.Equal(t, tt.want, s.UTF8())
		})
	}
}

func TestComposeStatuses(t *testing.T) {
	s := NewComposeTable("C").NewState()

	assert.Equal(t, FeedAccepted, s.Feed('a'))
	assert.Equal(t, ComposeNothing, s.Status())

	s.Feed(KeyMultiKey)
	assert.Equal(t, ComposeComposing, s.Status())
	assert.Equal(t, FeedIgnored, s.Feed(KeyShiftL), "modifiers do not break a sequence")
	assert.Equal(t, ComposeComposing, s.Status())

	s.Feed('o')
	s.Feed('z')
	assert.Equal(t, ComposeCancelled, s.Status())
	assert.Empty(t, s.UTF8())

	s.Feed('x')
	assert.Equal(t, ComposeNothing, s.Status(), "cancelled resets on the next key")

	s.Feed(KeyDeadAcute)
	s.Reset()
	assert.Equal(t, ComposeNothing, s.Status())
	assert.Equal(t, "composing", ComposeComposing.String())
}

func TestKeysymStrings(t *testing.T) {
	assert.Equal(t, "Return", KeyReturn.String())
	assert.Equal(t, "F12", (KeyF1 + 11).String())
	assert.Equal(t, "a", Keysym('a').String())
	assert.Equal(t, "é", KeysymFromRune('é').String())
	assert.Equal(t, "€", KeysymFromRune('€').String())
	assert.Equal(t, Keysym(0x010020ac), KeysymFromRune('€'))
	assert.True(t, KeyControlR.IsModifier())
	assert.False(t, KeyReturn.IsModifier())
}
