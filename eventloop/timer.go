package eventloop

import (
	"encoding/binary"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Timer is a timerfd source owned by a Loop. A new timer is disarmed.
type Timer struct {
	loop  *Loop
	fd    int
	token Token
	fire  func() error
}

// NewTimer creates a disarmed timer whose callback runs on the loop
// goroutine. The callback runs once per wakeup even if several periods
// elapsed while the loop was busy.
func (l *Loop) NewTimer(fire func() error) (*Timer, error) {
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_NONBLOCK|unix.TFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("timerfd_create: %w", err)
	}

	t := &Timer{loop: l, fd: fd, fire: fire}
	token, err := l.AddReader(fd, t.ready)
	if err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	t.token = token
	return t, nil
}

// AfterFunc arms a one-shot timer.
func (l *Loop) AfterFunc(d time.Duration, fire func() error) (*Timer, error) {
	t, err := l.NewTimer(fire)
	if err != nil {
		return nil, err
	}
	if err := t.Reset(d, 0); err != nil {
		_ = t.Close()
		return nil, err
	}
	return t, nil
}

// Reset arms the timer to fire after delay and then every interval (zero
// interval means one-shot). A zero delay disarms it.
func (t *Timer) Reset(delay, interval time.Duration) error {
	if delay == 0 && interval != 0 {
		// timerfd treats a zero value as disarm
		delay = time.Nanosecond
	}
	spec := unix.ItimerSpec{
		Value:    unix.NsecToTimespec(delay.Nanoseconds()),
		Interval: unix.NsecToTimespec(interval.Nanoseconds()),
	}
	if err := unix.TimerfdSettime(t.fd, 0, &spec, nil); err != nil {
		return fmt.Errorf("timerfd_settime: %w", err)
	}
	return nil
}

// Stop disarms the timer. Pending expirations are discarded.
func (t *Timer) Stop() error {
	if err := t.Reset(0, 0); err != nil {
		return err
	}
	t.drain()
	return nil
}

// Close removes the timer from the loop and closes its descriptor.
func (t *Timer) Close() error {
	if t.fd < 0 {
		return nil
	}
	err := t.loop.Remove(t.token)
	if cerr := unix.Close(t.fd); err == nil {
		err = cerr
	}
	t.fd = -1
	return err
}

func (t *Timer) ready(int) error {
	if t.drain() == 0 {
		return nil
	}
	return t.fire()
}

func (t *Timer) drain() uint64 {
	var buf [8]byte
	for {
		n, err := unix.Read(t.fd, buf[:])
		if err == unix.EINTR {
			continue
		}
		if err != nil || n != 8 {
			return 0
		}
		return binary.NativeEndian.Uint64(buf[:])
	}
}
