package shm

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// createMemFile returns a CLOEXEC file descriptor of size bytes that can
// be shared with the compositor. memfd files are sealed against shrinking
// since a truncated pool makes the compositor fault on its mapping.
func createMemFile(size int, preferMemfd bool) (int, error) {
	if preferMemfd {
		fd, err := createMemfd()
		switch {
		case err == nil:
			if err := unix.Ftruncate(fd, int64(size)); err != nil {
				_ = unix.Close(fd)
				return -1, fmt.Errorf("ftruncate memfd: %w", err)
			}
			return fd, nil
		case !errors.Is(err, unix.ENOSYS):
			return -1, err
		}
	}
	return createShmFile(size)
}

func createMemfd() (int, error) {
	for {
		fd, err := unix.MemfdCreate("waykit-shm", unix.MFD_CLOEXEC|unix.MFD_ALLOW_SEALING)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return -1, err
		}
		// F_SEAL_GROW stays unset so the pool can be resized.
		if _, err := unix.FcntlInt(uintptr(fd), unix.F_ADD_SEALS, unix.F_SEAL_SHRINK|unix.F_SEAL_SEAL); err != nil {
			_ = unix.Close(fd)
			return -1, fmt.Errorf("seal memfd: %w", err)
		}
		return fd, nil
	}
}

// createShmFile creates and immediately unlinks a /dev/shm file.
func createShmFile(size int) (int, error) {
	for {
		name := fmt.Sprintf("/dev/shm/waykit-%d", time.Now().UnixNano())
		fd, err := unix.Open(name, unix.O_CREAT|unix.O_EXCL|unix.O_RDWR|unix.O_CLOEXEC, 0o600)
		if errors.Is(err, unix.EEXIST) || errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return -1, fmt.Errorf("open %s: %w", name, err)
		}
		_ = unix.Unlink(name)
		if err := unix.Ftruncate(fd, int64(size)); err != nil {
			_ = unix.Close(fd)
			return -1, fmt.Errorf("ftruncate %s: %w", name, err)
		}
		return fd, nil
	}
}
