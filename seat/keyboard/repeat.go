package keyboard

import (
	"time"

	"github.com/bnema/waykit/eventloop"
	"github.com/bnema/waykit/internal/logger"
)

// RepeatInfo is the key repeat configuration. A zero Rate disables repeat.
type RepeatInfo struct {
	// Rate in characters per second.
	Rate int32
	// Delay in milliseconds before the first repeat.
	Delay int32
}

// Disabled reports whether repeat is off.
func (r RepeatInfo) Disabled() bool {
	return r.Rate <= 0
}

func (r RepeatInfo) delay() time.Duration {
	return time.Duration(max(r.Delay, 0)) * time.Millisecond
}

func (r RepeatInfo) interval() time.Duration {
	return time.Second / time.Duration(r.Rate)
}

// defaultRepeat is synthesised for wl_keyboard before version 4, which has
// no repeat_info event.
var defaultRepeat = RepeatInfo{Rate: 200, Delay: 200}

// Timer is a re-armable one-shot timer run by the event loop.
type Timer interface {
	// Reset arms the timer to fire once after delay.
	Reset(delay, interval time.Duration) error
	Stop() error
	Close() error
}

// TimerSource creates timers whose callback runs on the loop goroutine.
type TimerSource interface {
	NewTimer(fire func() error) (Timer, error)
}

type loopTimers struct {
	loop *eventloop.Loop
}

// LoopTimers adapts an event loop into a TimerSource.
func LoopTimers(l *eventloop.Loop) TimerSource {
	return loopTimers{loop: l}
}

func (s loopTimers) NewTimer(fire func() error) (Timer, error) {
	t, err := s.loop.NewTimer(fire)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// repeater tracks the single repeating key. Each expiry re-arms the timer
// from the current RepeatInfo, so a changed rate or delay applies to the
// next scheduled repeat.
type repeater struct {
	timer  Timer
	info   RepeatInfo
	key    KeyEvent
	active bool
	fire   func(KeyEvent)
}

func newRepeater(src TimerSource, fire func(KeyEvent)) (*repeater, error) {
	r := &repeater{fire: fire, info: defaultRepeat}
	t, err := src.NewTimer(r.tick)
	if err != nil {
		return nil, err
	}
	r.timer = t
	return r, nil
}

// start begins repeating ev, replacing any key already repeating.
func (r *repeater) start(ev KeyEvent) {
	r.key = ev
	r.active = true
	if r.info.Disabled() {
		r.stop()
		return
	}
	r.arm(r.info.delay())
}

// release stops repeating when code is the repeating key.
func (r *repeater) release(code uint32) {
	if r.active && r.key.RawCode == code {
		r.stop()
	}
}

func (r *repeater) stop() {
	r.active = false
	if err := r.timer.Stop(); err != nil {
		logger.Warn("failed to stop key repeat timer", "error", err)
	}
}

// update replaces the text of the repeating key after a modifier change.
func (r *repeater) update(ev KeyEvent) {
	if r.active {
		r.key = ev
	}
}

func (r *repeater) setInfo(info RepeatInfo) {
	r.info = info
	if info.Disabled() && r.active {
		r.stop()
	}
}

func (r *repeater) arm(d time.Duration) {
	if d <= 0 {
		d = time.Millisecond
	}
	if err := r.timer.Reset(d, 0); err != nil {
		logger.Warn("failed to arm key repeat timer", "error", err)
	}
}

func (r *repeater) tick() error {
	if !r.active {
		return nil
	}
	r.fire(r.key)
	if r.active && !r.info.Disabled() {
		r.arm(r.info.interval())
	}
	return nil
}

func (r *repeater) close() error {
	r.active = false
	return r.timer.Close()
}
