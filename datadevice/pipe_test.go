package datadevice

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/bnema/waykit/eventloop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClipboardRoundTrip(t *testing.T) {
	rep := &reporter{}
	text := &textSource{payload: "hello clipboard"}
	src, err := newCopyPasteSource(&fakeSource{version: 3}, text, rep, []string{"text/plain"})
	require.NoError(t, err)

	d := newDevice(&fakeDevice{version: 3}, nil, rep)
	wire := &fakeOffer{version: 3, serve: src.send}
	offer := d.dataOffer(wire, 40)
	for _, m := range src.MimeTypes() {
		offer.offer(m)
	}
	d.selectionEvent(40)
	require.Same(t, offer, d.SelectionOffer())

	r, err := offer.Receive("text/plain")
	require.NoError(t, err)
	data, err := r.ReadAll()
	require.NoError(t, err)

	assert.Equal(t, []byte("hello clipboard"), data)
	assert.Equal(t, []string{"text/plain"}, text.sent)
	assert.Equal(t, []string{"text/plain"}, wire.receives)
	assert.NoError(t, rep.err)
}

func TestWatchReadsUntilEOF(t *testing.T) {
	l, err := eventloop.New()
	require.NoError(t, err)
	defer l.Close()

	payload := bytes.Repeat([]byte("0123456789"), 2000)
	r, fd, err := newPipe()
	require.NoError(t, err)
	w, err := newWritePipe(fd)
	require.NoError(t, err)

	var got []byte
	done := false
	require.NoError(t, r.Watch(l, func(b []byte) error {
		got = append(got, b...)
		return nil
	}, func(err error) {
		assert.NoError(t, err)
		done = true
	}))

	go func() {
		_, _ = w.Write(payload)
		_ = w.Close()
	}()

	for i := 0; i < 1000 && !done; i++ {
		require.NoError(t, l.Dispatch(time.Second))
	}
	require.True(t, done)
	assert.Equal(t, payload, got)
}

func TestWatchDataErrorStopsLoop(t *testing.T) {
	l, err := eventloop.New()
	require.NoError(t, err)
	defer l.Close()

	r, fd, err := newPipe()
	require.NoError(t, err)
	w, err := newWritePipe(fd)
	require.NoError(t, err)
	defer w.Close()
	defer r.Close()

	boom := errors.New("stop")
	require.NoError(t, r.Watch(l, func([]byte) error { return boom }, nil))
	assert.Error(t, r.Watch(l, nil, nil), "a pipe is watched once")

	_, err = w.Write([]byte("x"))
	require.NoError(t, err)
	assert.ErrorIs(t, l.Dispatch(time.Second), boom)
}

func TestReceiveRejectsEmptyMime(t *testing.T) {
	o := &Offer{wire: &fakeOffer{}}
	_, err := o.Receive("")
	assert.ErrorIs(t, err, ErrInvalidReceive)
	assert.ErrorIs(t, o.ReceiveToFD("", 3), ErrInvalidReceive)

	require.NoError(t, o.Destroy())
	_, err = o.Receive("text/plain")
	assert.ErrorIs(t, err, ErrOfferDestroyed)
}

func TestSendAfterCancelIsViolation(t *testing.T) {
	q := &fakeQueue{}
	rep := newReporter(q)
	text := &textSource{payload: "late"}
	wire := &fakeSource{version: 3}
	src, err := newCopyPasteSource(wire, text, rep, []string{"text/plain", "UTF8_STRING"})
	require.NoError(t, err)
	assert.Equal(t, []string{"text/plain", "UTF8_STRING"}, wire.offered)

	src.cancel()
	src.cancel()
	assert.Equal(t, 1, text.cancelled)
	assert.Equal(t, 1, wire.destroyed)
	assert.True(t, src.Cancelled())
	assert.ErrorIs(t, src.SetSelection(newDevice(&fakeDevice{}, nil, rep), 1), ErrSourceCancelled)

	r, fd, err := newPipe()
	require.NoError(t, err)
	src.send("text/plain", fd)
	assert.Empty(t, text.sent)

	data, err := r.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, data, "the write end is closed")

	var v *ProtocolViolation
	require.ErrorAs(t, rep.err, &v)
	assert.ErrorIs(t, v, ErrSourceCancelled)
	require.Len(t, q.posted, 1)
	assert.Equal(t, rep.err, q.posted[0]())
}
