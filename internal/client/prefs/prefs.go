// Package prefs persists small client preferences next to the credential:
// the email awaiting verification and the UI theme.
package prefs

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/mediax/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/mediax/internal/common"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme accepts "light" or "dark" in any case.
func ParseTheme(s string) (Theme, error) {
	switch t := Theme(strings.ToLower(strings.TrimSpace(s))); t {
	case ThemeLight, ThemeDark:
		return t, nil
	}
	return "", fmt.Errorf("theme %q: %w", s, common.ErrorValidation)
}

func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

type Store struct {
	repo metadata.Repository
}

func New(repo metadata.Repository) *Store {
	return &Store{repo: repo}
}

// PendingEmail is the address that signed up but has not entered its OTP
// yet, or "" when there is none.
func (s *Store) PendingEmail(ctx context.Context) (string, error) {
	v, err := s.repo.Get(ctx, common.PendingVerificationEmailKey)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func (s *Store) SetPendingEmail(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("pending email: %w", common.ErrorValidation)
	}
	return s.repo.Set(ctx, common.PendingVerificationEmailKey, []byte(email))
}

func (s *Store) ClearPendingEmail(ctx context.Context) error {
	return s.repo.Delete(ctx, common.PendingVerificationEmailKey)
}

// Theme returns the saved theme. Missing or unknown values read as light.
func (s *Store) Theme(ctx context.Context) (Theme, error) {
	v, err := s.repo.Get(ctx, common.ThemeKey)
	if err != nil {
		return ThemeLight, err
	}
	t, err := ParseTheme(string(v))
	if err != nil {
		return ThemeLight, nil
	}
	return t, nil
}

func (s *Store) SetTheme(ctx context.Context, t Theme) error {
	if _, err := ParseTheme(string(t)); err != nil {
		return err
	}
	return s.repo.Set(ctx, common.ThemeKey, []byte(t))
}

// Reset wipes every locally stored entry, preferences and any stored
// credential alike, and reports how many there were. The session must be
// ended first; Reset does not touch the in-process credential mirror.
func (s *Store) Reset(ctx context.Context) (int, error) {
	entries, err := s.repo.List(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.repo.Clear(ctx); err != nil {
		return 0, err
	}
	return len(entries), nil
}
