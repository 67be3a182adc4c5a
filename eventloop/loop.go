// Package eventloop implements the single-threaded reactor every waykit
// component runs on.
//
// All toolkit state is owned by the goroutine calling Dispatch or Run. Other
// goroutines (the wire pump in particular) hand work over with Post. File
// descriptors such as data transfer pipes and timerfds are multiplexed with
// epoll and their callbacks run on the same goroutine.
package eventloop

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bnema/waykit/internal/logger"
	"golang.org/x/sys/unix"
)

// ErrClosed is returned when the loop has been closed.
var ErrClosed = errors.New("event loop closed")

// Token identifies a registered source.
type Token uint64

// ReadyFunc is called when a registered descriptor becomes readable or hung up.
type ReadyFunc func(fd int) error

type source struct {
	token Token
	fd    int
	ready ReadyFunc
}

// Loop is an epoll based reactor with a posted-closure queue.
type Loop struct {
	epfd int
	wake int

	mu      sync.Mutex
	queue   []func() error
	closed  bool
	next    Token
	byFD    map[int]*source
	byToken map[Token]*source

	events []unix.EpollEvent
}

// New creates a loop with its epoll set and wake descriptor.
func New() (*Loop, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}

	wake, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("eventfd: %w", err)
	}

	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wake)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wake, &ev); err != nil {
		_ = unix.Close(wake)
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("epoll_ctl wake: %w", err)
	}

	return &Loop{
		epfd:    epfd,
		wake:    wake,
		byFD:    make(map[int]*source),
		byToken: make(map[Token]*source),
		events:  make([]unix.EpollEvent, 32),
	}, nil
}

// Post queues fn to run on the loop goroutine. It is safe to call from any
// goroutine. Closures run in the order they were posted. A non-nil error
// returned by fn stops Run.
func (l *Loop) Post(fn func() error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	l.Wakeup()
}

// Wakeup interrupts a blocking Dispatch.
func (l *Loop) Wakeup() {
	var one [8]byte
	binary.NativeEndian.PutUint64(one[:], 1)
	for {
		_, err := unix.Write(l.wake, one[:])
		if err == unix.EINTR {
			continue
		}
		// EAGAIN means the counter is already non-zero, which is enough.
		return
	}
}

// Pending reports the number of posted closures not yet run.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// AddReader registers fd for readability. The callback also fires on hang-up
// so readers observe EOF.
func (l *Loop) AddReader(fd int, ready ReadyFunc) (Token, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0, ErrClosed
	}
	if _, ok := l.byFD[fd]; ok {
		return 0, fmt.Errorf("fd %d already registered", fd)
	}

	ev := unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLRDHUP, Fd: int32(fd)}
	if err := unix.EpollCtl(l.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return 0, fmt.Errorf("epoll_ctl add %d: %w", fd, err)
	}

	l.next++
	src := &source{token: l.next, fd: fd, ready: ready}
	l.byFD[fd] = src
	l.byToken[src.token] = src
	return src.token, nil
}

// Remove unregisters a source. The descriptor itself is not closed.
func (l *Loop) Remove(token Token) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	src, ok := l.byToken[token]
	if !ok {
		return nil
	}
	delete(l.byToken, token)
	delete(l.byFD, src.fd)

	if l.closed {
		return nil
	}
	if err := unix.EpollCtl(l.epfd, unix.EPOLL_CTL_DEL, src.fd, nil); err != nil && err != unix.EBADF && err != unix.ENOENT {
		return fmt.Errorf("epoll_ctl del %d: %w", src.fd, err)
	}
	return nil
}

// Dispatch runs posted closures, waits up to timeout for descriptors (a
// negative timeout blocks), runs ready callbacks and then any closures those
// callbacks posted.
func (l *Loop) Dispatch(timeout time.Duration) error {
	if err := l.runPending(); err != nil {
		return err
	}

	msec := -1
	if timeout >= 0 {
		msec = int(timeout / time.Millisecond)
	}
	if l.Pending() > 0 {
		msec = 0
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.mu.Unlock()

	var n int
	var err error
	for {
		n, err = unix.EpollWait(l.epfd, l.events, msec)
		if err == unix.EINTR {
			continue
		}
		break
	}
	if err != nil {
		return fmt.Errorf("epoll_wait: %w", err)
	}

	for i := 0; i < n; i++ {
		ev := l.events[i]
		fd := int(ev.Fd)
		if fd == l.wake {
			l.drainWake()
			continue
		}

		l.mu.Lock()
		src, ok := l.byFD[fd]
		l.mu.Unlock()
		if !ok {
			// removed by an earlier callback in this batch
			continue
		}
		if ev.Events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLRDHUP|unix.EPOLLERR) == 0 {
			continue
		}
		if err := src.ready(fd); err != nil {
			return err
		}
	}

	return l.runPending()
}

// Run dispatches until ctx is cancelled or a callback returns an error.
func (l *Loop) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, l.Wakeup)
	defer stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := l.Dispatch(-1); err != nil {
			return err
		}
	}
}

// RunUntil dispatches until cond reports true, ctx ends or a callback fails.
func (l *Loop) RunUntil(ctx context.Context, cond func() bool) error {
	stop := context.AfterFunc(ctx, l.Wakeup)
	defer stop()

	for !cond() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := l.Dispatch(-1); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the epoll and wake descriptors. Registered descriptors are
// left to their owners.
func (l *Loop) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.queue = nil
	l.byFD = make(map[int]*source)
	l.byToken = make(map[Token]*source)
	l.mu.Unlock()

	return errors.Join(unix.Close(l.wake), unix.Close(l.epfd))
}

func (l *Loop) runPending() error {
	for {
		l.mu.Lock()
		queue := l.queue
		l.queue = nil
		l.mu.Unlock()

		if len(queue) == 0 {
			return nil
		}
		for i, fn := range queue {
			if err := fn(); err != nil {
				// keep the rest for a later Dispatch
				l.mu.Lock()
				l.queue = append(queue[i+1:len(queue):len(queue)], l.queue...)
				l.mu.Unlock()
				return err
			}
		}
	}
}

func (l *Loop) drainWake() {
	var buf [8]byte
	for {
		_, err := unix.Read(l.wake, buf[:])
		if err == unix.EINTR {
			continue
		}
		if err != nil && err != unix.EAGAIN {
			logger.Debug("eventloop: wake read failed", "error", err)
		}
		return
	}
}
