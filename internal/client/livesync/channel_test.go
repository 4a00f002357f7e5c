package livesync

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/mediax/internal/client/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type pipeStreamer struct {
	pr  *io.PipeReader
	pw  *io.PipeWriter
	err error

	gotEndpoint string
	block       bool
}

func newPipeStreamer() *pipeStreamer {
	pr, pw := io.Pipe()
	return &pipeStreamer{pr: pr, pw: pw}
}

func (p *pipeStreamer) Stream(ctx context.Context, endpoint string) (io.ReadCloser, error) {
	p.gotEndpoint = endpoint
	if p.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.pr, nil
}

func (p *pipeStreamer) send(t *testing.T, s string) {
	t.Helper()
	_, err := io.WriteString(p.pw, s)
	require.NoError(t, err)
}

type counter struct{ n atomic.Int32 }

func (c *counter) inc()       { c.n.Add(1) }
func (c *counter) get() int32 { return c.n.Load() }

// marker sends a recognised update and waits for it, so every message sent
// before it is known to have been processed.
func flush(t *testing.T, p *pipeStreamer, c *counter, want int32) {
	t.Helper()
	p.send(t, "data: {\"type\":\"videosUpdated\"}\n\n")
	require.Eventually(t, func() bool { return c.get() == want }, time.Second, time.Millisecond)
}

func TestChannel_UpdateFiresOnce(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	p := newPipeStreamer()
	ch, err := Open(context.Background(), p, "/videos/events")
	require.NoError(t, err)
	defer ch.Close()

	var c counter
	ch.OnUpdate(c.inc)

	flush(t, p, &c, 1)
	assert.Equal(t, "/videos/events", p.gotEndpoint)
	assert.Equal(t, StateOpen, ch.State())
}

func TestChannel_IgnoresOtherShapes(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	p := newPipeStreamer()
	var mu sync.Mutex
	kinds := map[string]int{}
	ch, err := Open(context.Background(), p, "/videos/events", WithEventHook(func(k string) {
		mu.Lock()
		kinds[k]++
		mu.Unlock()
	}))
	require.NoError(t, err)
	defer ch.Close()

	var c counter
	ch.OnUpdate(c.inc)

	p.send(t, "data: {\"type\":\"somethingElse\"}\n\n")
	p.send(t, "data: not json at all\n\n")
	p.send(t, "data: {\"type\":\"videosUpdated\"\n\n")
	p.send(t, "data: []\n\n")
	p.send(t, "event: heartbeat\ndata: {\"type\":\"videosUpdated\"}\n\n")
	flush(t, p, &c, 1)

	assert.Equal(t, StateOpen, ch.State(), "malformed payloads do not close the channel")
	assert.NoError(t, ch.Err())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[string]int{KindIgnored: 2, KindMalformed: 3, KindUpdate: 1}, kinds)
}

func TestChannel_TransportErrorIsTerminal(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	p := newPipeStreamer()
	ch, err := Open(context.Background(), p, "/videos/events")
	require.NoError(t, err)

	var c counter
	ch.OnUpdate(c.inc)
	flush(t, p, &c, 1)

	boom := errors.New("connection reset by peer")
	p.pw.CloseWithError(boom)

	select {
	case <-ch.Done():
	case <-time.After(time.Second):
		t.Fatal("reader did not stop")
	}
	assert.Equal(t, StateErrored, ch.State())
	assert.ErrorIs(t, ch.Err(), boom)

	ch.Close()
	assert.Equal(t, StateErrored, ch.State(), "no transition out of Errored")
}

func TestChannel_ServerEndIsErrored(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	p := newPipeStreamer()
	ch, err := Open(context.Background(), p, "/videos/events")
	require.NoError(t, err)
	defer ch.Close()

	p.pw.Close()
	<-ch.Done()
	assert.Equal(t, StateErrored, ch.State())
	assert.ErrorIs(t, ch.Err(), ErrStreamEnded)
}

func TestChannel_CloseIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	p := newPipeStreamer()
	ch, err := Open(context.Background(), p, "/videos/events")
	require.NoError(t, err)

	var c counter
	ch.OnUpdate(c.inc)

	ch.Close()
	ch.Close()
	<-ch.Done()
	assert.Equal(t, StateClosed, ch.State())
	assert.NoError(t, ch.Err())

	_, err = io.WriteString(p.pw, "data: {\"type\":\"videosUpdated\"}\n\n")
	assert.Error(t, err, "reader side is closed")
	assert.Zero(t, c.get())
}

func TestChannel_ParentCancelCloses(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	p := newPipeStreamer()
	ch, err := Open(ctx, p, "/videos/events")
	require.NoError(t, err)
	defer ch.Close()

	cancel()
	// A pipe does not observe ctx; the real transport closes the body.
	p.pw.CloseWithError(context.Canceled)
	<-ch.Done()
	assert.Equal(t, StateClosed, ch.State())
}

func TestOpen_Failures(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	p := newPipeStreamer()
	p.err = &gateway.HTTPError{Status: http.StatusUnauthorized}
	_, err := Open(context.Background(), p, "/videos/events")
	assert.True(t, gateway.IsUnauthorized(err))

	p = newPipeStreamer()
	p.block = true
	_, err = Open(context.Background(), p, "/videos/events", WithConnectTimeout(20*time.Millisecond))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestChannel_OverGateway(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, ": connected\n\ndata: {\"type\":\"videosUpdated\"}\n\n")
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	var c counter
	ch, err := Open(context.Background(), gateway.New(srv.URL, nil), "/videos/events",
		WithConnectTimeout(time.Second), WithUpdateHandler(c.inc))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return c.get() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, StateOpen, ch.State())

	ch.Close()
	select {
	case <-ch.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("reader did not stop after Close")
	}
	assert.Equal(t, StateClosed, ch.State())
}
