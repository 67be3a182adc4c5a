package protocols

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordQueue struct {
	posted []func() error
}

func (q *recordQueue) Post(fn func() error) {
	q.posted = append(q.posted, fn)
}

func TestEmitQueuesOnLoop(t *testing.T) {
	q := &recordQueue{}
	p := &Proxy{queue: q}

	ran := false
	p.emit(func() { ran = true })
	assert.False(t, ran, "handler must wait for the loop")
	require.Len(t, q.posted, 1)
	require.NoError(t, q.posted[0]())
	assert.True(t, ran)
}

func TestEmitWithoutQueue(t *testing.T) {
	p := &Proxy{}
	ran := false
	p.emit(func() { ran = true })
	assert.True(t, ran)
}

func TestDestroyedProxy(t *testing.T) {
	s := &Subsurface{}
	require.NoError(t, s.Destroy(), "destroy without a connection")
	assert.True(t, s.Destroyed())
	require.NoError(t, s.Destroy(), "second destroy is a no-op")

	assert.ErrorIs(t, s.SetPosition(1, 2), ErrDestroyed)
	assert.ErrorIs(t, s.SetSync(), ErrDestroyed)
}

func TestWireHelpers(t *testing.T) {
	assert.Equal(t, uint32(0), objectID(nil))
	assert.Equal(t, uint32(0), nullableString(""))
	assert.Equal(t, "text/plain", nullableString("text/plain"))

	assert.InDelta(t, 12.5, fixedFloat(toFixed(12.5)), 1.0/256)
	assert.InDelta(t, -3.25, fixedFloat(toFixed(-3.25)), 1.0/256)

	data := make([]byte, 10)
	binary.NativeEndian.PutUint32(data[0:], 1)
	binary.NativeEndian.PutUint32(data[4:], 4)
	assert.Equal(t, []uint32{1, 4}, uint32Array(data), "trailing bytes are dropped")
}

func TestVersion(t *testing.T) {
	o := &Output{}
	o.SetVersion(4)
	assert.Equal(t, uint32(4), o.Version())
}
