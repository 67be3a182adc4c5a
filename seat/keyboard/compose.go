package keyboard

import (
	"strings"

	"github.com/bnema/waykit/internal/logger"
)

// ComposeStatus is the state of a compose sequence.
type ComposeStatus int

const (
	ComposeNothing ComposeStatus = iota
	ComposeComposing
	ComposeComposed
	ComposeCancelled
)

func (s ComposeStatus) String() string {
	switch s {
	case ComposeNothing:
		return "nothing"
	case ComposeComposing:
		return "composing"
	case ComposeComposed:
		return "composed"
	case ComposeCancelled:
		return "cancelled"
	}
	return "unknown"
}

// FeedResult tells whether a keysym took part in composing.
type FeedResult int

const (
	FeedIgnored FeedResult = iota
	FeedAccepted
)

// LocaleFromEnv resolves the compose locale from LC_ALL, LC_CTYPE and LANG,
// first non-empty wins, defaulting to "C".
func LocaleFromEnv(getenv func(string) string) string {
	for _, key := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		if v := getenv(key); v != "" {
			return v
		}
	}
	return "C"
}

type composeNode struct {
	next   map[Keysym]*composeNode
	result string
}

// ComposeTable holds compose sequences.
type ComposeTable struct {
	locale string
	root   *composeNode
}

type sequence struct {
	keys   []Keysym
	result string
}

var deadKeys = []struct {
	dead  Keysym
	alone string
	pairs string // base, composed, base, composed...
}{
	{KeyDeadAcute, "´", "aáeéiíoóuúyýAÁEÉIÍOÓUÚYÝcćnńsśzź"},
	{KeyDeadGrave, "`", "aàeèiìoòuùAÀEÈIÌOÒUÙ"},
	{KeyDeadCircumflex, "^", "aâeêiîoôuûAÂEÊIÎOÔUÛ"},
	{KeyDeadDiaeresis, "¨", "aäeëiïoöuüyÿAÄEËIÏOÖUÜ"},
	{KeyDeadTilde, "~", "aãnñoõAÃNÑOÕ"},
}

var multiKey = []struct {
	seq    string
	result string
}{
	{"'e", "é"}, {"'a", "á"}, {"`e", "è"}, {"`a", "à"},
	{"\"u", "ü"}, {"\"o", "ö"}, {"\"a", "ä"}, {"~n", "ñ"},
	{",c", "ç"}, {"^o", "ô"}, {"ss", "ß"}, {"ae", "æ"},
	{"AE", "Æ"}, {"oe", "œ"}, {"oc", "©"}, {"or", "®"},
	{"e=", "€"}, {"=e", "€"}, {"L-", "£"}, {"Y=", "¥"},
	{"tm", "™"}, {"12", "½"}, {"14", "¼"}, {"--.", "–"},
	{"---", "—"}, {"<<", "«"}, {">>", "»"}, {"+-", "±"},
}

func defaultSequences() []sequence {
	var seqs []sequence
	for _, d := range deadKeys {
		seqs = append(seqs,
			sequence{keys: []Keysym{d.dead, KeySpace}, result: d.alone},
			sequence{keys: []Keysym{d.dead, d.dead}, result: d.alone},
		)
		runes := []rune(d.pairs)
		for i := 0; i+1 < len(runes); i += 2 {
			seqs = append(seqs, sequence{
				keys:   []Keysym{d.dead, KeysymFromRune(runes[i])},
				result: string(runes[i+1]),
			})
		}
	}
	for _, m := range multiKey {
		keys := []Keysym{KeyMultiKey}
		for _, r := range m.seq {
			keys = append(keys, KeysymFromRune(r))
		}
		seqs = append(seqs, sequence{keys: keys, result: m.result})
	}
	return seqs
}

// NewComposeTable builds the compose table for locale. Every locale uses the
// built-in sequences; the locale is kept for diagnostics.
func NewComposeTable(locale string) *ComposeTable {
	t := &ComposeTable{locale: locale, root: &composeNode{}}
	for _, seq := range defaultSequences() {
		t.add(seq.keys, seq.result)
	}
	logger.Debug("compose table ready", "locale", locale, "charset", charset(locale))
	return t
}

func charset(locale string) string {
	if i := strings.IndexByte(locale, '.'); i >= 0 {
		cs := locale[i+1:]
		if j := strings.IndexByte(cs, '@'); j >= 0 {
			cs = cs[:j]
		}
		return cs
	}
	return ""
}

// Locale returns the locale the table was built for.
func (t *ComposeTable) Locale() string {
	return t.locale
}

func (t *ComposeTable) add(keys []Keysym, result string) {
	n := t.root
	for _, k := range keys {
		if n.next == nil {
			n.next = make(map[Keysym]*composeNode)
		}
		child, ok := n.next[k]
		if !ok {
			child = &composeNode{}
			n.next[k] = child
		}
		n = child
	}
	n.result = result
}

// NewState returns a fresh compose state.
func (t *ComposeTable) NewState() *ComposeState {
	return &ComposeState{table: t}
}

// ComposeState walks a ComposeTable one keysym at a time.
type ComposeState struct {
	table  *ComposeTable
	node   *composeNode
	status ComposeStatus
	utf8   string
}

// Feed advances the sequence with sym. Modifier keys are ignored.
func (s *ComposeState) Feed(sym Keysym) FeedResult {
	if sym.IsModifier() {
		return FeedIgnored
	}
	if s.status == ComposeComposed || s.status == ComposeCancelled {
		s.Reset()
	}

	from := s.node
	if from == nil {
		from = s.table.root
	}
	next, ok := from.next[sym]
	switch {
	case !ok && s.status == ComposeComposing:
		s.node = nil
		s.status = ComposeCancelled
	case !ok:
		s.node = nil
		s.status = ComposeNothing
	case next.next == nil:
		s.node = nil
		s.status = ComposeComposed
		s.utf8 = next.result
	default:
		s.node = next
		s.status = ComposeComposing
	}
	return FeedAccepted
}

// Status returns the current status.
func (s *ComposeState) Status() ComposeStatus {
	return s.status
}

// UTF8 returns the composed text while the status is ComposeComposed.
func (s *ComposeState) UTF8() string {
	if s.status != ComposeComposed {
		return ""
	}
	return s.utf8
}

// Reset abandons any sequence in progress.
func (s *ComposeState) Reset() {
	s.node = nil
	s.status = ComposeNothing
	s.utf8 = ""
}
