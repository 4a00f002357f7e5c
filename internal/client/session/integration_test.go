package session_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/dmitrijs2005/mediax/internal/client/api"
	"github.com/dmitrijs2005/mediax/internal/client/credentials"
	"github.com/dmitrijs2005/mediax/internal/client/gateway"
	"github.com/dmitrijs2005/mediax/internal/client/session"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memPersister struct {
	mu    sync.Mutex
	value string
}

func (m *memPersister) Load(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value, nil
}

func (m *memPersister) Save(_ context.Context, c string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = c
	return nil
}

func (m *memPersister) Remove(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = ""
	return nil
}

// backend accepts only tok-A. /slow blocks until release is closed and
// records the Authorization header it was sent with.
type backend struct {
	mu      sync.Mutex
	auth    map[string]string
	release chan struct{}
	slowIn  chan struct{}
}

func (b *backend) record(path, auth string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.auth[path] = auth
}

func (b *backend) seen(path string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.auth[path]
}

func newStack(t *testing.T, stored string) (*session.Controller, *credentials.Store, *gateway.Gateway, *backend) {
	t.Helper()
	b := &backend{auth: map[string]string{}, release: make(chan struct{}), slowIn: make(chan struct{}, 1)}

	r := chi.NewRouter()
	r.Get("/users/me", func(w http.ResponseWriter, r *http.Request) {
		b.record(r.URL.Path, r.Header.Get("Authorization"))
		if r.Header.Get("Authorization") != "Bearer tok-A" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"message":"Not authorized"}`)
			return
		}
		_, _ = io.WriteString(w, `{"success":true,"user":{"id":"u1","role":"user"}}`)
	})
	r.Get("/videos", func(w http.ResponseWriter, r *http.Request) {
		b.record(r.URL.Path, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"videos":[]}`)
	})
	r.Get("/slow", func(w http.ResponseWriter, r *http.Request) {
		b.record(r.URL.Path, r.Header.Get("Authorization"))
		b.slowIn <- struct{}{}
		<-b.release
		_, _ = io.WriteString(w, `{}`)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	store := credentials.NewStore(&memPersister{value: stored}, nil)
	require.NoError(t, store.Load(context.Background()))
	gw := gateway.New(srv.URL, store)
	return session.New(store, api.NewUsers(gw), session.Policy{}, nil), store, gw, b
}

func get(gw *gateway.Gateway, endpoint string) error {
	_, err := gw.Send(context.Background(), gateway.Request{Method: http.MethodGet, Endpoint: endpoint})
	return err
}

func TestLoginThenImmediateRequestCarriesCredential(t *testing.T) {
	c, _, gw, b := newStack(t, "")

	require.NoError(t, c.Login(context.Background(), "tok-A"))
	require.NoError(t, get(gw, "/videos"))
	assert.Equal(t, "Bearer tok-A", b.seen("/videos"))
}

func TestLogoutThenImmediateRequestCarriesNothing(t *testing.T) {
	c, _, gw, b := newStack(t, "tok-A")
	require.NoError(t, c.Bootstrap(context.Background()))

	pending := make(chan error, 1)
	go func() { pending <- get(gw, "/slow") }()
	<-b.slowIn
	assert.Equal(t, "Bearer tok-A", b.seen("/slow"))

	require.NoError(t, c.Logout(context.Background()))
	require.NoError(t, get(gw, "/videos"))
	assert.Empty(t, b.seen("/videos"))

	close(b.release)
	require.NoError(t, <-pending)
	assert.Equal(t, session.Anonymous, c.Current().State)
}

func TestBootstrapWithRejectedCredential(t *testing.T) {
	c, store, _, _ := newStack(t, "tok-expired")

	require.NoError(t, c.Bootstrap(context.Background()))
	assert.False(t, c.Current().Authenticated())

	_, ok := store.Get()
	assert.False(t, ok, "stored credential must be cleared")
}

func TestLoginLogoutScenario(t *testing.T) {
	c, store, _, _ := newStack(t, "")
	require.NoError(t, c.Bootstrap(context.Background()))

	require.NoError(t, c.Login(context.Background(), "tok-A"))
	s := c.Current()
	require.Equal(t, session.Authenticated, s.State)
	assert.Equal(t, "u1", s.Identity.ID)
	assert.Equal(t, "user", string(s.Identity.Role))

	require.NoError(t, c.Logout(context.Background()))
	assert.Equal(t, session.Anonymous, c.Current().State)
	_, ok := store.Get()
	assert.False(t, ok)
}
