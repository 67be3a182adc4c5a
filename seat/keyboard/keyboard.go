// Package keyboard turns wl_keyboard events into key events with keysyms,
// text, compose sequences and client-side key repeat.
package keyboard

import (
	"errors"
	"fmt"
	"os"

	"github.com/bnema/waykit/internal/logger"
	"github.com/bnema/waykit/internal/protocols"
	"golang.org/x/sys/unix"
)

// Key states of wl_keyboard.key.
const (
	KeyReleased = 0
	KeyPressed  = 1
)

// KeyEvent describes one key press, release or repeat.
type KeyEvent struct {
	Time    uint32
	RawCode uint32
	Keysym  Keysym
	// UTF8 is empty for releases and keys producing no text.
	UTF8 string
}

// Handler receives keyboard events on the loop goroutine.
type Handler interface {
	Enter(k *Keyboard, surface, serial uint32, raw []uint32, keysyms []Keysym)
	Leave(k *Keyboard, surface, serial uint32)
	PressKey(k *Keyboard, serial uint32, ev KeyEvent)
	ReleaseKey(k *Keyboard, serial uint32, ev KeyEvent)
	RepeatKey(k *Keyboard, ev KeyEvent)
	UpdateModifiers(k *Keyboard, serial uint32, mods Modifiers)
	UpdateRepeatInfo(k *Keyboard, info RepeatInfo)
}

// Config controls keymap compilation, compose and repeat.
type Config struct {
	// Compiler defaults to EvdevCompiler.
	Compiler KeymapCompiler
	// RMLVO fixes the keymap instead of following the compositor.
	RMLVO *RMLVO
	// Locale selects the compose table; empty resolves it with Getenv.
	Locale string
	// Getenv defaults to os.Getenv.
	Getenv         func(string) string
	DisableCompose bool
	// Timers enables client-side key repeat.
	Timers TimerSource
	// Repeat overrides the compositor's repeat rate and delay.
	Repeat *RepeatInfo
}

// Wire is the protocol object behind a Keyboard.
type Wire interface {
	Version() uint32
	Release() error
}

// Keyboard is a wl_keyboard with keymap state.
type Keyboard struct {
	wire     Wire
	handler  Handler
	compiler KeymapCompiler

	// locked stops server keymaps from replacing the current one;
	// lockOnKeymap locks after the next server keymap is compiled.
	locked       bool
	lockOnKeymap bool

	state    State
	compose  *ComposeState
	repeat   *repeater
	override *RepeatInfo
	info     RepeatInfo
	focus    uint32
	started  bool
}

// New wraps wire, routing its events to h.
func New(wire *protocols.Keyboard, h Handler, cfg Config) (*Keyboard, error) {
	k, err := newKeyboard(wire, h, cfg)
	if err != nil {
		return nil, err
	}
	wire.SetHandlers(protocols.KeyboardHandlers{
		Keymap:     k.keymap,
		Enter:      k.enter,
		Leave:      k.leave,
		Key:        k.key,
		Modifiers:  k.modifiers,
		RepeatInfo: k.repeatInfo,
	})
	return k, nil
}

func newKeyboard(wire Wire, h Handler, cfg Config) (*Keyboard, error) {
	k := &Keyboard{
		wire:     wire,
		handler:  h,
		compiler: cfg.Compiler,
		override: cfg.Repeat,
		info:     defaultRepeat,
	}
	if k.compiler == nil {
		k.compiler = EvdevCompiler{}
	}

	if cfg.RMLVO != nil {
		nc, ok := k.compiler.(NamesCompiler)
		if !ok {
			// the first compositor keymap stands in for the names
			k.lockOnKeymap = true
		} else {
			km, err := nc.CompileNames(*cfg.RMLVO)
			if err != nil {
				return nil, err
			}
			k.state = km.NewState()
			k.locked = true
		}
	}

	if !cfg.DisableCompose {
		locale := cfg.Locale
		if locale == "" {
			getenv := cfg.Getenv
			if getenv == nil {
				getenv = os.Getenv
			}
			locale = LocaleFromEnv(getenv)
		}
		k.compose = NewComposeTable(locale).NewState()
	}

	if cfg.Timers != nil {
		r, err := newRepeater(cfg.Timers, k.repeated)
		if err != nil {
			return nil, fmt.Errorf("key repeat timer: %w", err)
		}
		if cfg.Repeat != nil {
			r.info = *cfg.Repeat
			k.info = *cfg.Repeat
		}
		k.repeat = r
	}
	return k, nil
}

// Modifiers returns the effective modifiers.
func (k *Keyboard) Modifiers() Modifiers {
	if k.state == nil {
		return Modifiers{}
	}
	return k.state.Modifiers()
}

// RepeatInfo returns the repeat configuration in effect.
func (k *Keyboard) RepeatInfo() RepeatInfo {
	return k.info
}

// Focus returns the focused surface id, 0 when unfocused.
func (k *Keyboard) Focus() uint32 {
	return k.focus
}

// Release stops key repeat and releases the wire object.
func (k *Keyboard) Release() error {
	var errs []error
	if k.repeat != nil {
		errs = append(errs, k.repeat.close())
		k.repeat = nil
	}
	errs = append(errs, k.wire.Release())
	return errors.Join(errs...)
}

// begin sends the repeat information older keyboards never receive.
func (k *Keyboard) begin() {
	if k.started {
		return
	}
	k.started = true
	if k.wire.Version() < 4 {
		k.repeatInfo(defaultRepeat.Rate, defaultRepeat.Delay)
	}
}

func (k *Keyboard) keymap(format uint32, fd int, size uint32) {
	defer unix.Close(fd)
	k.begin()

	switch format {
	case KeymapFormatNoKeymap:
		logger.Warn("compositor sent no keymap")
		return
	case KeymapFormatXkbV1:
	default:
		logger.Debug("unknown keymap format", "format", format)
		return
	}
	if k.locked {
		logger.Debug("keymap locked, ignoring compositor keymap")
		return
	}

	data, err := readKeymap(fd, size)
	if err != nil {
		logger.Error("failed to read keymap", "error", err)
		return
	}
	km, err := k.compiler.Compile(data)
	if err != nil {
		logger.Error("failed to compile keymap", "error", err)
		return
	}
	k.state = km.NewState()
	if k.lockOnKeymap {
		k.locked = true
	}
}

// readKeymap copies the keymap out of fd. From wl_keyboard version 7 the
// descriptor must be mapped private.
func readKeymap(fd int, size uint32) ([]byte, error) {
	if size == 0 {
		return nil, fmt.Errorf("%w: empty keymap", ErrInvalidKeymap)
	}
	mem, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmap keymap: %w", err)
	}
	data := make([]byte, len(mem))
	copy(data, mem)
	if err := unix.Munmap(mem); err != nil {
		logger.Warn("failed to unmap keymap", "error", err)
	}
	return data, nil
}

func (k *Keyboard) enter(serial, surface uint32, keys []uint32) {
	k.begin()
	k.focus = surface
	if k.state == nil {
		logger.Debug("keyboard enter before keymap", "surface", surface)
		return
	}
	syms := make([]Keysym, len(keys))
	for i, code := range keys {
		syms[i] = k.state.Keysym(code)
	}
	if k.handler != nil {
		k.handler.Enter(k, surface, serial, keys, syms)
	}
}

func (k *Keyboard) leave(serial, surface uint32) {
	k.begin()
	if k.repeat != nil {
		k.repeat.stop()
	}
	if k.compose != nil {
		k.compose.Reset()
	}
	if k.focus == surface {
		k.focus = 0
	}
	if k.handler != nil {
		k.handler.Leave(k, surface, serial)
	}
}

func (k *Keyboard) key(serial, time, code, state uint32) {
	k.begin()
	if k.state == nil {
		logger.Debug("key event before keymap", "key", code)
		return
	}

	ev := KeyEvent{Time: time, RawCode: code, Keysym: k.state.Keysym(code)}
	switch state {
	case KeyReleased:
		if k.repeat != nil {
			k.repeat.release(code)
		}
		if k.handler != nil {
			k.handler.ReleaseKey(k, serial, ev)
		}
	case KeyPressed:
		ev.UTF8 = k.text(code, ev.Keysym)
		if k.repeat != nil && k.state.Repeats(code) {
			k.repeat.start(ev)
		}
		if k.handler != nil {
			k.handler.PressKey(k, serial, ev)
		}
	default:
		logger.Debug("unknown key state", "key", code, "state", state)
	}
}

// text feeds sym to the compose state and returns the text produced by the
// press.
func (k *Keyboard) text(code uint32, sym Keysym) string {
	if k.compose == nil {
		return k.state.UTF8(code)
	}
	if k.compose.Feed(sym) == FeedIgnored {
		return ""
	}
	switch k.compose.Status() {
	case ComposeComposed:
		return k.compose.UTF8()
	case ComposeNothing:
		return k.state.UTF8(code)
	}
	return ""
}

func (k *Keyboard) modifiers(serial, depressed, latched, locked, group uint32) {
	k.begin()
	if k.state == nil {
		return
	}
	changed := k.state.UpdateMask(depressed, latched, locked, group)

	// a repeating key picks up the new modifiers
	if k.repeat != nil && k.repeat.active {
		ev := k.repeat.key
		ev.Keysym = k.state.Keysym(ev.RawCode)
		ev.UTF8 = k.state.UTF8(ev.RawCode)
		k.repeat.update(ev)
	}
	if changed && k.handler != nil {
		k.handler.UpdateModifiers(k, serial, k.state.Modifiers())
	}
}

func (k *Keyboard) repeatInfo(rate, delay int32) {
	k.started = true
	info := RepeatInfo{Rate: rate, Delay: delay}
	if k.override != nil {
		info = *k.override
	}
	k.info = info
	if k.repeat != nil {
		k.repeat.setInfo(info)
	}
	if k.handler != nil {
		k.handler.UpdateRepeatInfo(k, info)
	}
}

func (k *Keyboard) repeated(ev KeyEvent) {
	if k.handler != nil {
		k.handler.RepeatKey(k, ev)
	}
}
