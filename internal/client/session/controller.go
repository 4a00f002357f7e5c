package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/mediax/internal/client/credentials"
	"github.com/dmitrijs2005/mediax/internal/client/gateway"
	"github.com/dmitrijs2005/mediax/internal/client/models"
	"github.com/dmitrijs2005/mediax/internal/common"
	"github.com/dmitrijs2005/mediax/internal/logging"
)

// ErrSuperseded is returned when a login or logout happened while an
// identity fetch was in flight; the fetch result was discarded.
var ErrSuperseded = errors.New("session changed while identity fetch was in flight")

// CredentialStore is the writable credential holder. *credentials.Store
// satisfies it.
type CredentialStore interface {
	Get() (string, bool)
	Set(ctx context.Context, credential string) error
	Clear(ctx context.Context) error
}

// IdentityFetcher resolves the current credential into a user.
// *api.Users satisfies it.
type IdentityFetcher interface {
	Me(ctx context.Context) (*models.Identity, error)
}

// Controller owns session validity. It is the only writer of the
// credential store.
type Controller struct {
	store   CredentialStore
	fetcher IdentityFetcher
	policy  Policy
	log     logging.Logger
	now     func() time.Time

	mu       sync.Mutex
	gen      uint64
	cur      Session
	subs     []subscriber
	nextSub  int
	pending  []Session
	draining bool
}

type subscriber struct {
	id int
	fn func(Session)
}

func New(store CredentialStore, fetcher IdentityFetcher, policy Policy, log logging.Logger) *Controller {
	if log == nil {
		log = logging.Nop()
	}
	return &Controller{
		store:   store,
		fetcher: fetcher,
		policy:  policy,
		log:     log.With("component", "session"),
		now:     time.Now,
		cur:     Session{State: Booting},
	}
}

// Current returns the latest known session without blocking on I/O.
func (c *Controller) Current() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

// Subscribe registers fn for every state change. Handlers are called in
// transition order with no lock held, one at a time.
func (c *Controller) Subscribe(fn func(Session)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs = append(c.subs, subscriber{id: id, fn: fn})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, s := range c.subs {
				if s.id == id {
					c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Bootstrap resolves the stored credential into a session. Any failure to
// fetch the identity clears the credential and ends in Anonymous; that
// downgrade is not reported as an error.
func (c *Controller) Bootstrap(ctx context.Context) error {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	cred, ok := c.store.Get()
	if !ok {
		c.transitionLocked(Session{State: Anonymous})
		return nil
	}
	c.mu.Unlock()

	id, err := c.fetcher.Me(ctx)

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		c.log.Debug(ctx, "bootstrap result dropped", "reason", "superseded")
		return nil
	}
	if err != nil {
		c.log.Warn(ctx, "stored credential rejected", "error", err)
		c.clearLocked(ctx)
		c.transitionLocked(Session{State: Anonymous})
		return nil
	}
	c.transitionLocked(Session{State: Authenticated, Identity: id, ExpiresAt: expiry(cred)})
	return nil
}

// Login stores credential, then fetches the identity it belongs to. The
// credential is visible to the gateway before Login first yields, so a
// request issued concurrently with the fetch already carries it.
func (c *Controller) Login(ctx context.Context, credential string) error {
	c.mu.Lock()
	if err := c.store.Set(ctx, credential); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("login: %w", err)
	}
	c.gen++
	gen := c.gen
	c.transitionLocked(Session{State: Authenticating, ExpiresAt: expiry(credential)})

	id, err := c.fetcher.Me(ctx)

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return ErrSuperseded
	}
	if err != nil {
		if c.policy.RevertOnLoginFailure {
			c.log.Warn(ctx, "login identity fetch failed, reverting", "error", err)
			c.clearLocked(ctx)
			c.transitionLocked(Session{State: Anonymous})
		} else {
			c.log.Warn(ctx, "login identity fetch failed, keeping credential", "error", err)
			c.mu.Unlock()
		}
		return fmt.Errorf("login: fetch identity: %w", err)
	}
	c.log.Info(ctx, "logged in", "user_id", id.ID, "role", id.Role)
	c.transitionLocked(Session{State: Authenticated, Identity: id, ExpiresAt: expiry(credential)})
	return nil
}

// Logout clears the credential and the identity. It does not wait for, or
// cancel, requests already in flight; their late results are discarded by
// the generation check. A durable clear failure is returned, but the
// in-process credential is gone either way.
func (c *Controller) Logout(ctx context.Context) error {
	c.mu.Lock()
	c.gen++
	err := c.store.Clear(ctx)
	c.transitionLocked(Session{State: Anonymous})
	c.log.Info(ctx, "logged out")
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// RefreshIdentity re-fetches the identity for the current credential. It
// returns nil without error when there is no credential, or when the
// backend rejected it (the session is then logged out). Transport failures
// are returned and leave the session unchanged.
func (c *Controller) RefreshIdentity(ctx context.Context) (*models.Identity, error) {
	c.mu.Lock()
	cred, ok := c.store.Get()
	if !ok {
		c.mu.Unlock()
		return nil, nil
	}
	gen := c.gen
	c.mu.Unlock()

	id, err := c.fetcher.Me(ctx)

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return nil, ErrSuperseded
	}
	if err != nil {
		var he *gateway.HTTPError
		if !errors.As(err, &he) {
			c.mu.Unlock()
			return nil, fmt.Errorf("refresh identity: %w", err)
		}
		c.log.Warn(ctx, "credential rejected on refresh", "status", he.Status)
		c.gen++
		c.clearLocked(ctx)
		c.transitionLocked(Session{State: Anonymous})
		return nil, nil
	}
	c.transitionLocked(Session{State: Authenticated, Identity: id, ExpiresAt: expiry(cred)})
	return id, nil
}

// HandleAuthFailure is called by consumers of protected resources with the
// error of a failed call. If err is an authorization failure the session
// passes through Expiring to Anonymous and true is returned.
func (c *Controller) HandleAuthFailure(ctx context.Context, err error) bool {
	if !gateway.IsUnauthorized(err) && !errors.Is(err, common.ErrTokenExpired) {
		return false
	}
	c.expire(ctx, "reason", err)
	return true
}

// CheckExpiry logs the session out when the credential's exp claim has
// passed, returning common.ErrTokenExpired in that case.
func (c *Controller) CheckExpiry(ctx context.Context) error {
	s := c.Current()
	if s.State != Authenticated || s.ExpiresAt.IsZero() || c.now().Before(s.ExpiresAt) {
		return nil
	}
	c.expire(ctx, "expired_at", s.ExpiresAt)
	return common.ErrTokenExpired
}

func (c *Controller) expire(ctx context.Context, args ...any) {
	c.mu.Lock()
	if _, ok := c.store.Get(); !ok {
		c.mu.Unlock()
		return
	}
	c.gen++
	c.log.Warn(ctx, "session expired", args...)
	c.pending = append(c.pending, Session{State: Expiring, Identity: c.cur.Identity, ExpiresAt: c.cur.ExpiresAt})
	c.clearLocked(ctx)
	c.transitionLocked(Session{State: Anonymous})
}

// clearLocked removes the credential; a durable failure is only logged
// since the mirror is empty regardless.
func (c *Controller) clearLocked(ctx context.Context) {
	if err := c.store.Clear(ctx); err != nil {
		c.log.Error(ctx, "credential clear failed", "error", err)
	}
}

// transitionLocked installs s, releases mu and delivers queued
// notifications. If another goroutine is already delivering, it picks up
// s after the ones queued before it.
func (c *Controller) transitionLocked(s Session) {
	c.cur = s
	c.pending = append(c.pending, s)
	if c.draining {
		c.mu.Unlock()
		return
	}
	c.draining = true
	for len(c.pending) > 0 {
		batch := c.pending
		c.pending = nil
		subs := append([]subscriber(nil), c.subs...)
		c.mu.Unlock()
		for _, s := range batch {
			for _, sub := range subs {
				sub.fn(s)
			}
		}
		c.mu.Lock()
	}
	c.draining = false
	c.mu.Unlock()
}

func expiry(credential string) time.Time {
	t, _ := credentials.ExpiresAt(credential)
	return t
}
