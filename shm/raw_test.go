package shm

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func newTestShm(t *testing.T) (*Shm, *fakeCreator) {
	t.Helper()
	c := &fakeCreator{}
	return NewWithCreator(c, true), c
}

func TestNewRawPool(t *testing.T) {
	s, c := newTestShm(t)

	pool, err := s.NewRawPool(4096)
	require.NoError(t, err)
	defer pool.Close()

	assert.Equal(t, 4096, pool.Len())
	require.Len(t, c.pools, 1)
	assert.Equal(t, int32(4096), c.last().size)

	// writes through the mapping are visible through the shared file
	copy(pool.Mmap()[10:], "waykit")
	buf := make([]byte, 6)
	_, err = unix.Pread(pool.Fd(), buf, 10)
	require.NoError(t, err)
	assert.Equal(t, "waykit", string(buf))
}

func TestMemfdIsSealedAgainstShrinking(t *testing.T) {
	fd, err := createMemFile(8192, true)
	if errors.Is(err, unix.ENOSYS) {
		t.Skip("memfd_create not supported")
	}
	require.NoError(t, err)
	defer unix.Close(fd)

	seals, err := unix.FcntlInt(uintptr(fd), unix.F_GET_SEALS, 0)
	require.NoError(t, err)
	assert.NotZero(t, seals&unix.F_SEAL_SHRINK)
	assert.NotZero(t, seals&unix.F_SEAL_SEAL)
	assert.Zero(t, seals&unix.F_SEAL_GROW)

	assert.Error(t, unix.Ftruncate(fd, 4096), "shrinking must be refused")
	assert.NoError(t, unix.Ftruncate(fd, 16384))
}

func TestShmFileFallback(t *testing.T) {
	var st unix.Stat_t
	if err := unix.Stat("/dev/shm", &st); err != nil {
		t.Skip("/dev/shm not available")
	}
	fd, err := createMemFile(1024, false)
	require.NoError(t, err)
	defer unix.Close(fd)

	require.NoError(t, unix.Fstat(fd, &st))
	assert.Equal(t, int64(1024), st.Size)
	assert.Zero(t, st.Nlink, "fallback file must be unlinked")
}

func TestRawPoolResizeMonotonic(t *testing.T) {
	s, c := newTestShm(t)
	pool, err := s.NewRawPool(64)
	require.NoError(t, err)
	defer pool.Close()

	rng := rand.New(rand.NewSource(7))
	want := 64
	for i := 0; i < 200; i++ {
		n := rng.Intn(1 << 16)
		require.NoError(t, pool.Resize(n))
		want = max(want, n)
		require.Equal(t, want, pool.Len())
		require.Len(t, pool.Mmap(), want)
	}

	// the compositor only hears about growth, in increasing order
	resizes := c.last().resizes
	for i := 1; i < len(resizes); i++ {
		assert.Greater(t, resizes[i], resizes[i-1])
	}
	assert.Equal(t, int32(want), resizes[len(resizes)-1])
}

func TestRawPoolResizeKeepsContent(t *testing.T) {
	s, _ := newTestShm(t)
	pool, err := s.NewRawPool(128)
	require.NoError(t, err)
	defer pool.Close()

	copy(pool.Mmap(), "hello")
	require.NoError(t, pool.Resize(1<<20))
	assert.Equal(t, "hello", string(pool.Mmap()[:5]))
}

func TestCreatePoolErrors(t *testing.T) {
	t.Run("missing global", func(t *testing.T) {
		var s *Shm
		_, err := s.NewRawPool(4096)
		var cpe *CreatePoolError
		require.ErrorAs(t, err, &cpe)
		assert.Equal(t, MissingGlobal, cpe.Kind)
		assert.ErrorIs(t, err, ErrNoShm)
	})

	t.Run("protocol failure", func(t *testing.T) {
		boom := errors.New("connection closed")
		s := NewWithCreator(&fakeCreator{err: boom}, true)
		_, err := s.NewRawPool(4096)
		var cpe *CreatePoolError
		require.ErrorAs(t, err, &cpe)
		assert.Equal(t, Protocol, cpe.Kind)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("invalid size", func(t *testing.T) {
		s, _ := newTestShm(t)
		_, err := s.NewRawPool(0)
		var cpe *CreatePoolError
		require.ErrorAs(t, err, &cpe)
		assert.Equal(t, FileDescriptor, cpe.Kind)
	})
}

func TestRawPoolCreateBuffer(t *testing.T) {
	s, c := newTestShm(t)
	pool, err := s.NewRawPool(4096)
	require.NoError(t, err)

	buf, err := pool.CreateBuffer(0, 16, 16, 64, FormatARGB8888)
	require.NoError(t, err)
	assert.True(t, buf.Released(), "new buffers are available")
	assert.Equal(t, 1024, buf.Size())

	_, err = pool.CreateBuffer(4000, 16, 16, 64, FormatARGB8888)
	assert.ErrorIs(t, err, ErrOutOfBounds)

	// a failed allocation leaves the pool usable
	_, err = pool.CreateBuffer(1024, 16, 16, 64, FormatARGB8888)
	assert.NoError(t, err)

	require.NoError(t, pool.Close())
	assert.True(t, c.last().destroyed)
	assert.NoError(t, pool.Close())
}

func TestBufferReleaseFlag(t *testing.T) {
	s, c := newTestShm(t)
	pool, err := s.NewRawPool(4096)
	require.NoError(t, err)
	defer pool.Close()

	buf, err := pool.CreateBuffer(0, 8, 8, 32, FormatXRGB8888)
	require.NoError(t, err)

	released := 0
	buf.OnRelease(func() { released++ })

	buf.MarkBusy()
	assert.False(t, buf.Released())

	c.last().buffers[0].Release()
	assert.True(t, buf.Released())
	assert.Equal(t, 1, released)

	require.NoError(t, buf.Destroy())
	require.NoError(t, buf.Destroy())
	assert.True(t, c.last().buffers[0].destroyed)
}

func TestFormatName(t *testing.T) {
	assert.Equal(t, "ARGB8888", FormatName(FormatARGB8888))
	assert.Equal(t, "XRGB8888", FormatName(FormatXRGB8888))
	assert.Equal(t, "AR24", FormatName(0x34325241))
	assert.Equal(t, "0x00000002", FormatName(2))
}
