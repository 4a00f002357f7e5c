package credentials

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/mediax/internal/common"
	"github.com/dmitrijs2005/mediax/internal/logging"
)

// Persister is the durable half of a Store. Load returns "" when nothing
// has been saved.
type Persister interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, credential string) error
	Remove(ctx context.Context) error
}

// Stamped is implemented by persisters that know when the credential was
// saved.
type Stamped interface {
	SavedAt(ctx context.Context) (t time.Time, ok bool, err error)
}

type Store struct {
	mu     sync.RWMutex
	p      Persister
	mirror string
	log    logging.Logger
}

func NewStore(p Persister, log logging.Logger) *Store {
	if log == nil {
		log = logging.Nop()
	}
	return &Store{p: p, log: log.With("component", "credentials")}
}

// Load primes the mirror from the durable layer. Called once at startup,
// before any request is issued.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.p.Load(ctx)
	if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}
	s.mirror = c
	return nil
}

// Get reads the mirror. The boolean is false when no credential is held.
func (s *Store) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mirror, s.mirror != ""
}

// Set persists credential and then updates the mirror. If persisting fails
// neither layer changes.
func (s *Store) Set(ctx context.Context, credential string) error {
	if credential == "" {
		return fmt.Errorf("set credential: empty value: %w", common.ErrorValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.p.Save(ctx, credential); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	s.mirror = credential
	return nil
}

// Clear drops the mirror and removes the durable copy. The mirror is
// cleared even if removal fails; the error is still returned.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mirror = ""
	if err := s.p.Remove(ctx); err != nil {
		s.log.Error(ctx, "durable credential not removed", "error", err)
		return fmt.Errorf("remove credential: %w", err)
	}
	return nil
}

// SavedAt reports when the held credential was persisted. ok is false when
// no credential is held or the durable layer keeps no timestamp.
func (s *Store) SavedAt(ctx context.Context) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, stamped := s.p.(Stamped)
	if s.mirror == "" || !stamped {
		return time.Time{}, false, nil
	}
	return st.SavedAt(ctx)
}
