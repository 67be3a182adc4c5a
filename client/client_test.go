package client

import (
	"context"
	"testing"
	"time"

	"github.com/bnema/waykit/internal/config"
	"github.com/bnema/waykit/internal/protocols"
	"github.com/bnema/waykit/layer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBinder struct {
	ifaces []string
}

func (f *fakeBinder) Bind(name uint32, iface string, version uint32, p protocols.Global) error {
	f.ifaces = append(f.ifaces, iface)
	p.SetVersion(version)
	return nil
}

type fakeQueue struct {
	posted []func() error
}

func (q *fakeQueue) Post(fn func() error) {
	q.posted = append(q.posted, fn)
}

func newTestClient(t *testing.T) (*Client, *fakeBinder) {
	t.Helper()
	b := &fakeBinder{}
	return newClient(b, nil, &fakeQueue{}, DefaultOptions()), b
}

func TestAnnouncementsWaitForSetup(t *testing.T) {
	c, b := newTestClient(t)

	c.announce(1, protocols.ShmInterface, 1)
	c.announce(2, protocols.SeatInterface, 9)
	c.announce(3, protocols.CompositorInterface, 6)
	c.announce(4, protocols.OutputInterface, 4)
	c.announce(5, protocols.SubcompositorInterface, 1)
	c.announce(6, protocols.DataDeviceManagerInterface, 3)

	assert.Empty(t, b.ifaces)
	assert.Empty(t, c.Globals())

	c.flush()
	assert.Equal(t, []string{
		protocols.CompositorInterface,
		protocols.SubcompositorInterface,
		protocols.DataDeviceManagerInterface,
		protocols.ShmInterface,
		protocols.SeatInterface,
		protocols.OutputInterface,
	}, b.ifaces)
	assert.Len(t, c.Globals(), 6)
	assert.True(t, c.Shm().Bound())
	assert.Len(t, c.Seats().Seats(), 1)
}

func TestLazyGlobalsStayUnbound(t *testing.T) {
	c, b := newTestClient(t)
	c.announce(1, protocols.CompositorInterface, 6)
	c.announce(2, protocols.DecorationManagerInterface, 1)
	c.announce(3, protocols.PrimarySelectionManagerInterface, 1)
	c.announce(4, protocols.WmBaseInterface, 6)
	c.flush()

	assert.Equal(t, []string{protocols.CompositorInterface, protocols.WmBaseInterface}, b.ifaces)
	assert.True(t, c.Shell().ServerSideDecorations())
	assert.True(t, c.PrimarySelection().Available())
	assert.Equal(t, uint32(6), c.Shell().Version())
}

func TestLayerShellIsLazy(t *testing.T) {
	c, b := newTestClient(t)
	c.announce(1, protocols.CompositorInterface, 6)
	c.flush()

	_, _, err := c.CreateLayerSurface(layer.Config{Width: 10, Height: 10}, nil)
	assert.ErrorIs(t, err, layer.ErrUnavailable)

	c.announce(2, protocols.LayerShellInterface, 4)
	assert.True(t, c.LayerShell().Available())
	assert.Zero(t, c.LayerShell().Version(), "bound on first surface")
	assert.Equal(t, []string{protocols.CompositorInterface}, b.ifaces)
}

func TestRemovalBeforeSetup(t *testing.T) {
	c, b := newTestClient(t)
	c.announce(1, protocols.CompositorInterface, 6)
	c.announce(2, protocols.ShmInterface, 1)
	c.remove(2)
	c.remove(42)
	c.flush()

	assert.Equal(t, []string{protocols.CompositorInterface}, b.ifaces)
	assert.False(t, c.Shm().Bound())
}

func TestAnnouncementsAfterSetup(t *testing.T) {
	c, b := newTestClient(t)
	c.flush()

	c.announce(7, protocols.CompositorInterface, 4)
	assert.Equal(t, []string{protocols.CompositorInterface}, b.ifaces)
	comp, err := c.Compositor()
	require.NoError(t, err)
	assert.Equal(t, uint32(4), comp.Version())

	c.remove(7)
	assert.False(t, c.Registry().Contains(7))
	_, err = c.Compositor()
	require.Error(t, err)
	assert.Contains(t, err.Error(), protocols.CompositorInterface)
}

func TestQuirkIDUntouchedWhenUsed(t *testing.T) {
	c, _ := newTestClient(t)
	c.binder = &wireBinder{binds: 2}
	c.fillQuirkID()
	assert.Nil(t, c.filler)
}

func TestClosedClient(t *testing.T) {
	c, _ := newTestClient(t)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.ErrorIs(t, c.Roundtrip(ctx), ErrClosed)
	assert.ErrorIs(t, c.Run(ctx), ErrClosed)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig
	cfg.Client.Display = "wayland-9"
	cfg.Client.RoundtripTimeout = 2 * time.Second
	cfg.Shm.MultiPoolInitial = 0
	cfg.Decoration.PreferServerSide = false

	o := OptionsFromConfig(&cfg)
	assert.Equal(t, "wayland-9", o.Display)
	assert.Equal(t, 2*time.Second, o.RoundtripTimeout)
	assert.Equal(t, 4096, o.MultiPoolInitial)
	assert.False(t, o.PreferServerSide)

	assert.Equal(t, DefaultOptions(), OptionsFromConfig(nil))
}
