package registry

import (
	"errors"
	"testing"

	"github.com/bnema/waykit/internal/protocols"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bindCall struct {
	name    uint32
	iface   string
	version uint32
}

type fakeBinder struct {
	calls []bindCall
	err   error
}

func (f *fakeBinder) Bind(name uint32, iface string, version uint32, p protocols.Global) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, bindCall{name, iface, version})
	p.SetVersion(version)
	return nil
}

type recordingHandler struct {
	added   []Global
	removed []uint32
}

func (h *recordingHandler) NewGlobal(_ *Registry, g Global) {
	h.added = append(h.added, g)
}

func (h *recordingHandler) RemoveGlobal(_ *Registry, name uint32) {
	h.removed = append(h.removed, name)
}

func TestBindClampsVersion(t *testing.T) {
	tests := []struct {
		name       string
		advertised uint32
		requested  uint32
		want       uint32
	}{
		{"requested lower", 9, 7, 7},
		{"advertised lower", 4, 7, 4},
		{"equal", 5, 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBinder{}
			r := New(b)
			r.Announce(3, "wl_seat", tt.advertised)

			v, err := r.Bind(3, "wl_seat", tt.requested, &protocols.Seat{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
			require.Len(t, b.calls, 1)
			assert.Equal(t, tt.want, b.calls[0].version)
		})
	}
}

func TestBindRejectsUnknownNames(t *testing.T) {
	r := New(&fakeBinder{})
	r.Announce(1, "wl_shm", 1)

	_, err := r.Bind(2, "wl_shm", 1, &protocols.Shm{})
	assert.ErrorIs(t, err, ErrNotAdvertised)

	_, err = r.Bind(1, "wl_seat", 1, &protocols.Seat{})
	assert.ErrorIs(t, err, ErrNotAdvertised)

	r.Remove(1)
	_, err = r.Bind(1, "wl_shm", 1, &protocols.Shm{})
	var bindErr *BindError
	require.ErrorAs(t, err, &bindErr)
	assert.Equal(t, "wl_shm", bindErr.Interface)
	assert.Equal(t, uint32(1), bindErr.Name)
}

func TestBindTwiceFails(t *testing.T) {
	r := New(&fakeBinder{})
	r.Announce(1, "wl_shm", 1)

	_, err := r.Bind(1, "wl_shm", 1, &protocols.Shm{})
	require.NoError(t, err)
	_, err = r.Bind(1, "wl_shm", 1, &protocols.Shm{})
	assert.ErrorIs(t, err, ErrAlreadyBound)
}

func TestBinderFailureIsWrapped(t *testing.T) {
	boom := errors.New("broken pipe")
	r := New(&fakeBinder{err: boom})
	r.Announce(1, "wl_shm", 1)

	_, err := r.Bind(1, "wl_shm", 1, &protocols.Shm{})
	assert.ErrorIs(t, err, boom)
}

func TestHandlersRouting(t *testing.T) {
	r := New(&fakeBinder{})
	outputs := &recordingHandler{}
	seats := &recordingHandler{}

	r.Announce(1, "wl_output", 4)
	r.Handle("wl_output", outputs)
	r.Handle("wl_seat", seats)

	r.Announce(2, "wl_seat", 7)
	r.Announce(3, "wl_output", 3)
	r.Remove(1)
	r.Remove(2)
	r.Remove(42)

	require.Len(t, outputs.added, 2, "existing globals are replayed on Handle")
	assert.Equal(t, uint32(1), outputs.added[0].Name)
	assert.Equal(t, uint32(3), outputs.added[1].Name)
	assert.Equal(t, []uint32{1}, outputs.removed)

	require.Len(t, seats.added, 1)
	assert.Equal(t, []uint32{2}, seats.removed)
}

func TestAnyInterfaceHandler(t *testing.T) {
	r := New(&fakeBinder{})
	all := &recordingHandler{}
	outputs := &recordingHandler{}

	r.Announce(1, "wl_compositor", 6)
	r.Handle(AnyInterface, all)
	r.Handle("wl_output", outputs)

	r.Announce(2, "wl_output", 4)
	r.Announce(3, "wl_seat", 7)
	r.Remove(2)

	require.Len(t, all.added, 3)
	assert.Equal(t, "wl_compositor", all.added[0].Interface)
	assert.Equal(t, []uint32{2}, all.removed)
	require.Len(t, outputs.added, 1)
	assert.Equal(t, []uint32{2}, outputs.removed)
}

func TestReusedNameIsNewGlobal(t *testing.T) {
	r := New(&fakeBinder{})
	h := &recordingHandler{}
	r.Handle("wl_output", h)

	r.Announce(5, "wl_output", 4)
	r.Remove(5)
	r.Announce(5, "wl_output", 2)

	require.Len(t, h.added, 2)
	assert.Equal(t, uint32(2), h.added[1].Version)
	assert.Equal(t, []uint32{5}, h.removed)
	assert.True(t, r.Contains(5))
}

func TestGlobalsSortedAndLookup(t *testing.T) {
	r := New(&fakeBinder{})
	r.Announce(9, "wl_seat", 7)
	r.Announce(2, "wl_compositor", 6)
	r.Announce(5, "wl_seat", 5)

	globals := r.Globals()
	require.Len(t, globals, 3)
	assert.Equal(t, []uint32{2, 5, 9}, []uint32{globals[0].Name, globals[1].Name, globals[2].Name})

	seats := r.Lookup("wl_seat")
	require.Len(t, seats, 2)
	assert.Equal(t, uint32(5), seats[0].Name)
	assert.Empty(t, r.Lookup("wl_shm"))
}

func TestSingleGlobal(t *testing.T) {
	b := &fakeBinder{}
	r := New(b)

	var bound, removed int
	shm := &SingleGlobal[*protocols.Shm]{
		Interface:  "wl_shm",
		MaxVersion: 2,
		New:        func() *protocols.Shm { return &protocols.Shm{} },
		OnBind:     func(*protocols.Shm, uint32) { bound++ },
		OnRemove:   func(*protocols.Shm) { removed++ },
	}

	_, err := shm.Get()
	var missing *MissingGlobalError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "wl_shm", missing.Interface)

	r.Handle("wl_shm", shm)
	r.Announce(4, "wl_shm", 1)
	r.Announce(6, "wl_shm", 2)

	assert.True(t, shm.Bound())
	assert.Equal(t, uint32(1), shm.Version())
	assert.Equal(t, 1, bound)
	require.Len(t, b.calls, 1, "duplicates are not bound")
	assert.Equal(t, uint32(4), b.calls[0].name)

	r.Remove(6)
	assert.True(t, shm.Bound(), "removing the duplicate keeps the binding")

	r.Remove(4)
	assert.False(t, shm.Bound())
	assert.Equal(t, 1, removed)
}

func TestLazySingleGlobal(t *testing.T) {
	b := &fakeBinder{}
	r := New(b)

	shapes := &SingleGlobal[*protocols.CursorShapeManager]{
		Interface:  "wp_cursor_shape_manager_v1",
		MaxVersion: 1,
		Lazy:       true,
		New:        func() *protocols.CursorShapeManager { return &protocols.CursorShapeManager{} },
	}
	r.Handle("wp_cursor_shape_manager_v1", shapes)
	r.Announce(8, "wp_cursor_shape_manager_v1", 1)

	assert.True(t, shapes.Available())
	assert.False(t, shapes.Bound())
	assert.Empty(t, b.calls)

	first, err := shapes.Get()
	require.NoError(t, err)
	second, err := shapes.Get()
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Len(t, b.calls, 1)
}
