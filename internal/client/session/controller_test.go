package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/mediax/internal/client/credentials"
	"github.com/dmitrijs2005/mediax/internal/client/gateway"
	"github.com/dmitrijs2005/mediax/internal/client/models"
	"github.com/dmitrijs2005/mediax/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memPersister struct {
	mu        sync.Mutex
	value     string
	removeErr error
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
	if m.removeErr != nil {
		return m.removeErr
	}
	m.value = ""
	return nil
}

func (m *memPersister) stored() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value
}

// fakeFetcher answers Me with id/err. With gate set, Me signals entered and
// blocks until gate is closed.
type fakeFetcher struct {
	mu      sync.Mutex
	id      *models.Identity
	err     error
	calls   int
	gate    chan struct{}
	entered chan struct{}
}

func (f *fakeFetcher) Me(ctx context.Context) (*models.Identity, error) {
	f.mu.Lock()
	f.calls++
	gate, entered := f.gate, f.entered
	id, err := f.id, f.err
	f.mu.Unlock()

	if gate != nil {
		entered <- struct{}{}
		<-gate
	}
	return id, err
}

func newController(t *testing.T, stored string, f *fakeFetcher, p Policy) (*Controller, *credentials.Store, *memPersister) {
	t.Helper()
	mp := &memPersister{value: stored}
	store := credentials.NewStore(mp, nil)
	require.NoError(t, store.Load(context.Background()))
	return New(store, f, p, nil), store, mp
}

func unauthorized() error {
	return &gateway.HTTPError{Status: http.StatusUnauthorized, Payload: gateway.ErrorPayload{Message: "Invalid token"}}
}

func TestBootstrap_NoCredential(t *testing.T) {
	f := &fakeFetcher{}
	c, _, _ := newController(t, "", f, Policy{})
	assert.Equal(t, Booting, c.Current().State)

	require.NoError(t, c.Bootstrap(context.Background()))
	assert.Equal(t, Anonymous, c.Current().State)
	assert.Zero(t, f.calls, "no fetch without a credential")
}

func TestBootstrap_ValidCredential(t *testing.T) {
	u1 := &models.Identity{ID: "u1", Role: models.RoleUser}
	c, _, _ := newController(t, "tok-A", &fakeFetcher{id: u1}, Policy{})

	require.NoError(t, c.Bootstrap(context.Background()))
	s := c.Current()
	assert.True(t, s.Authenticated())
	assert.Equal(t, u1, s.Identity)
}

func TestBootstrap_RejectedCredentialIsCleared(t *testing.T) {
	c, store, mp := newController(t, "tok-old", &fakeFetcher{err: unauthorized()}, Policy{})

	require.NoError(t, c.Bootstrap(context.Background()))
	assert.Equal(t, Anonymous, c.Current().State)
	assert.False(t, c.Current().Authenticated())

	_, ok := store.Get()
	assert.False(t, ok)
	assert.Empty(t, mp.stored())
}

func TestBootstrap_NetworkFailureAlsoClears(t *testing.T) {
	netErr := &gateway.NetworkError{Method: http.MethodGet, Endpoint: "/users/me", Err: errors.New("connection refused")}
	c, store, _ := newController(t, "tok-old", &fakeFetcher{err: netErr}, Policy{})

	require.NoError(t, c.Bootstrap(context.Background()))
	assert.Equal(t, Anonymous, c.Current().State)
	_, ok := store.Get()
	assert.False(t, ok)
}

func TestLogin_ThenLogout(t *testing.T) {
	u1 := &models.Identity{ID: "u1", Role: models.RoleUser}
	c, store, mp := newController(t, "", &fakeFetcher{id: u1}, Policy{})
	require.NoError(t, c.Bootstrap(context.Background()))

	var seen []State
	unsubscribe := c.Subscribe(func(s Session) { seen = append(seen, s.State) })
	defer unsubscribe()

	require.NoError(t, c.Login(context.Background(), "tok-A"))
	s := c.Current()
	require.True(t, s.Authenticated())
	assert.Equal(t, "u1", s.Identity.ID)

	require.NoError(t, c.Logout(context.Background()))
	assert.Equal(t, Anonymous, c.Current().State)
	assert.Nil(t, c.Current().Identity)
	_, ok := store.Get()
	assert.False(t, ok)
	assert.Empty(t, mp.stored())

	assert.Equal(t, []State{Authenticating, Authenticated, Anonymous}, seen)
}

func TestLogin_CredentialVisibleDuringFetch(t *testing.T) {
	f := &fakeFetcher{id: &models.Identity{ID: "u1"}, gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	c, store, _ := newController(t, "", f, Policy{})

	done := make(chan error, 1)
	go func() { done <- c.Login(context.Background(), "tok-A") }()

	<-f.entered
	got, ok := store.Get()
	require.True(t, ok)
	assert.Equal(t, "tok-A", got)
	assert.Equal(t, Authenticating, c.Current().State)

	close(f.gate)
	require.NoError(t, <-done)
	assert.Equal(t, Authenticated, c.Current().State)
}

func TestLogin_FetchFailureKeepsCredentialByDefault(t *testing.T) {
	c, store, _ := newController(t, "", &fakeFetcher{err: unauthorized()}, Policy{})

	err := c.Login(context.Background(), "tok-A")
	require.Error(t, err)
	assert.True(t, gateway.IsUnauthorized(err))

	s := c.Current()
	assert.Equal(t, Authenticating, s.State)
	assert.False(t, s.Authenticated())
	got, ok := store.Get()
	assert.True(t, ok)
	assert.Equal(t, "tok-A", got)
}

func TestLogin_FetchFailureRevertsWithPolicy(t *testing.T) {
	c, store, _ := newController(t, "", &fakeFetcher{err: unauthorized()}, Policy{RevertOnLoginFailure: true})

	require.Error(t, c.Login(context.Background(), "tok-A"))
	assert.Equal(t, Anonymous, c.Current().State)
	_, ok := store.Get()
	assert.False(t, ok)
}

func TestLogin_EmptyCredentialRejected(t *testing.T) {
	c, _, _ := newController(t, "", &fakeFetcher{}, Policy{})

	err := c.Login(context.Background(), "")
	assert.ErrorIs(t, err, common.ErrorValidation)
	assert.Equal(t, Booting, c.Current().State)
}

func TestLogin_LateIdentityAfterLogoutIsDropped(t *testing.T) {
	f := &fakeFetcher{id: &models.Identity{ID: "u1"}, gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	c, store, _ := newController(t, "", f, Policy{})

	done := make(chan error, 1)
	go func() { done <- c.Login(context.Background(), "tok-A") }()
	<-f.entered

	require.NoError(t, c.Logout(context.Background()))
	close(f.gate)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.Equal(t, Anonymous, c.Current().State)
	_, ok := store.Get()
	assert.False(t, ok)
}

func TestLogout_ClearFailureStillDropsMirror(t *testing.T) {
	c, store, mp := newController(t, "tok-A", &fakeFetcher{id: &models.Identity{ID: "u1"}}, Policy{})
	require.NoError(t, c.Bootstrap(context.Background()))
	mp.removeErr = errors.New("disk full")

	err := c.Logout(context.Background())
	require.ErrorContains(t, err, "disk full")
	_, ok := store.Get()
	assert.False(t, ok)
	assert.Equal(t, Anonymous, c.Current().State)
}

func TestRefreshIdentity(t *testing.T) {
	f := &fakeFetcher{id: &models.Identity{ID: "u1", DisplayName: "Ann"}}
	c, store, _ := newController(t, "tok-A", f, Policy{})
	require.NoError(t, c.Bootstrap(context.Background()))

	f.mu.Lock()
	f.id = &models.Identity{ID: "u1", DisplayName: "Ann B."}
	f.mu.Unlock()
	id, err := c.RefreshIdentity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ann B.", id.DisplayName)
	assert.Equal(t, "Ann B.", c.Current().Identity.DisplayName)

	f.mu.Lock()
	f.id, f.err = nil, &gateway.NetworkError{Err: errors.New("offline")}
	f.mu.Unlock()
	_, err = c.RefreshIdentity(context.Background())
	assert.True(t, gateway.IsNetwork(err))
	assert.True(t, c.Current().Authenticated(), "transport failure leaves the session alone")

	f.mu.Lock()
	f.err = unauthorized()
	f.mu.Unlock()
	id, err = c.RefreshIdentity(context.Background())
	require.NoError(t, err)
	assert.Nil(t, id)
	assert.Equal(t, Anonymous, c.Current().State)
	_, ok := store.Get()
	assert.False(t, ok)
}

func TestRefreshIdentity_NoCredential(t *testing.T) {
	f := &fakeFetcher{}
	c, _, _ := newController(t, "", f, Policy{})

	id, err := c.RefreshIdentity(context.Background())
	require.NoError(t, err)
	assert.Nil(t, id)
	assert.Zero(t, f.calls)
}

func TestHandleAuthFailure(t *testing.T) {
	c, store, _ := newController(t, "tok-A", &fakeFetcher{id: &models.Identity{ID: "u1"}}, Policy{})
	require.NoError(t, c.Bootstrap(context.Background()))

	var seen []State
	c.Subscribe(func(s Session) { seen = append(seen, s.State) })

	assert.False(t, c.HandleAuthFailure(context.Background(), &gateway.HTTPError{Status: http.StatusInternalServerError}))
	assert.True(t, c.Current().Authenticated())

	assert.True(t, c.HandleAuthFailure(context.Background(), unauthorized()))
	assert.Equal(t, Anonymous, c.Current().State)
	_, ok := store.Get()
	assert.False(t, ok)
	assert.Equal(t, []State{Expiring, Anonymous}, seen)

	assert.True(t, c.HandleAuthFailure(context.Background(), unauthorized()))
	assert.Equal(t, []State{Expiring, Anonymous}, seen, "nothing left to expire")
}

func TestCheckExpiry(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)}).SignedString([]byte("k"))
	require.NoError(t, err)

	c, store, _ := newController(t, tok, &fakeFetcher{id: &models.Identity{ID: "u1"}}, Policy{})
	require.NoError(t, c.Bootstrap(context.Background()))
	assert.True(t, c.Current().ExpiresAt.Equal(exp))

	c.now = func() time.Time { return exp.Add(-time.Minute) }
	require.NoError(t, c.CheckExpiry(context.Background()))
	assert.True(t, c.Current().Authenticated())

	c.now = func() time.Time { return exp.Add(time.Second) }
	assert.ErrorIs(t, c.CheckExpiry(context.Background()), common.ErrTokenExpired)
	assert.Equal(t, Anonymous, c.Current().State)
	_, ok := store.Get()
	assert.False(t, ok)
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	c, _, _ := newController(t, "", &fakeFetcher{}, Policy{})

	calls := 0
	unsubscribe := c.Subscribe(func(Session) { calls++ })
	require.NoError(t, c.Bootstrap(context.Background()))
	unsubscribe()
	unsubscribe()
	require.NoError(t, c.Logout(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestSubscribe_HandlerMayReadCurrent(t *testing.T) {
	c, _, _ := newController(t, "", &fakeFetcher{id: &models.Identity{ID: "u1"}}, Policy{})

	var states []State
	c.Subscribe(func(Session) { states = append(states, c.Current().State) })
	require.NoError(t, c.Login(context.Background(), "tok-A"))
	assert.NotEmpty(t, states)
}
