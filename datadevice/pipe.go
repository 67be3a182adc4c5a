package datadevice

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/bnema/waykit/eventloop"
	"golang.org/x/sys/unix"
)

// Reactor registers descriptors for readability; *eventloop.Loop
// implements it.
type Reactor interface {
	AddReader(fd int, ready eventloop.ReadyFunc) (eventloop.Token, error)
	Remove(token eventloop.Token) error
}

// ReadPipe is the receiving end of a transfer. The descriptor is
// non-blocking: Read and ReadAll park the calling goroutine, Watch feeds the
// data to callbacks on the loop goroutine.
//
// Flush outgoing requests before reading, the source only starts writing
// once the compositor forwarded the receive request.
type ReadPipe struct {
	f     *os.File
	fd    int
	token eventloop.Token
	r     Reactor
}

// WritePipe is the sending end handed to a source's Send handler. It must be
// closed once the payload is written, the receiver waits for EOF.
type WritePipe struct {
	f *os.File
}

func newPipe() (*ReadPipe, int, error) {
	var fds [2]int
	for {
		err := unix.Pipe2(fds[:], unix.O_CLOEXEC|unix.O_NONBLOCK)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil, -1, fmt.Errorf("pipe2: %w", err)
		}
		break
	}
	return newReadPipe(fds[0]), fds[1], nil
}

func newReadPipe(fd int) *ReadPipe {
	return &ReadPipe{f: os.NewFile(uintptr(fd), "waykit-read-pipe"), fd: fd}
}

func newWritePipe(fd int) (*WritePipe, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("set nonblock: %w", err)
	}
	return &WritePipe{f: os.NewFile(uintptr(fd), "waykit-write-pipe")}, nil
}

// Read implements io.Reader.
func (p *ReadPipe) Read(b []byte) (int, error) {
	return p.f.Read(b)
}

// ReadAll reads until EOF and closes the pipe.
func (p *ReadPipe) ReadAll() ([]byte, error) {
	data, err := io.ReadAll(p.f)
	return data, errors.Join(err, p.Close())
}

// File returns the underlying file.
func (p *ReadPipe) File() *os.File {
	return p.f
}

// Watch registers the pipe with r. data receives each chunk read, done runs
// once at EOF or on a read error, after the pipe was unregistered and
// closed. An error returned by data stops the loop.
func (p *ReadPipe) Watch(r Reactor, data func([]byte) error, done func(error)) error {
	if p.r != nil {
		return errors.New("pipe already watched")
	}
	buf := make([]byte, 4096)
	token, err := r.AddReader(p.fd, func(int) error {
		for {
			n, err := unix.Read(p.fd, buf)
			switch {
			case err == unix.EINTR:
				continue
			case err == unix.EAGAIN:
				return nil
			case err != nil:
				p.finish(done, fmt.Errorf("read pipe: %w", err))
				return nil
			case n == 0:
				p.finish(done, nil)
				return nil
			}
			if err := data(buf[:n]); err != nil {
				return err
			}
		}
	})
	if err != nil {
		return err
	}
	p.r = r
	p.token = token
	return nil
}

func (p *ReadPipe) finish(done func(error), err error) {
	err = errors.Join(err, p.Close())
	if done != nil {
		done(err)
	}
}

// Close unregisters and closes the pipe.
func (p *ReadPipe) Close() error {
	var err error
	if p.r != nil {
		err = p.r.Remove(p.token)
		p.r = nil
	}
	if cerr := p.f.Close(); cerr != nil && !errors.Is(cerr, os.ErrClosed) {
		err = errors.Join(err, cerr)
	}
	return err
}

// Write implements io.Writer.
func (p *WritePipe) Write(b []byte) (int, error) {
	return p.f.Write(b)
}

// File returns the underlying file.
func (p *WritePipe) File() *os.File {
	return p.f
}

// Close closes the pipe, signalling EOF to the receiver.
func (p *WritePipe) Close() error {
	return p.f.Close()
}
