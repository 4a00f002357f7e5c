package prefs

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/mediax/internal/client/localdb"
	"github.com/dmitrijs2005/mediax/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/mediax/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	data   map[string][]byte
	getErr error
}

func newMemRepo() *memRepo { return &memRepo{data: map[string][]byte{}} }

func (m *memRepo) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.data[key], nil
}

func (m *memRepo) Set(_ context.Context, key string, value []byte) error {
	m.data[key] = value
	return nil
}

func (m *memRepo) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memRepo) List(context.Context) (map[string][]byte, error) { return m.data, nil }

func (m *memRepo) Clear(context.Context) error {
	m.data = map[string][]byte{}
	return nil
}

func TestPendingEmail(t *testing.T) {
	repo := newMemRepo()
	s := New(repo)
	ctx := context.Background()

	got, err := s.PendingEmail(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.SetPendingEmail(ctx, "  ann@x.io "))
	got, err = s.PendingEmail(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ann@x.io", got)
	assert.Equal(t, []byte("ann@x.io"), repo.data[common.PendingVerificationEmailKey])

	assert.ErrorIs(t, s.SetPendingEmail(ctx, " "), common.ErrorValidation)

	require.NoError(t, s.ClearPendingEmail(ctx))
	got, err = s.PendingEmail(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTheme(t *testing.T) {
	repo := newMemRepo()
	s := New(repo)
	ctx := context.Background()

	th, err := s.Theme(ctx)
	require.NoError(t, err)
	assert.Equal(t, ThemeLight, th, "light by default")

	require.NoError(t, s.SetTheme(ctx, ThemeDark))
	th, err = s.Theme(ctx)
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, th)
	assert.Equal(t, ThemeLight, th.Toggle())

	assert.ErrorIs(t, s.SetTheme(ctx, "sepia"), common.ErrorValidation)

	repo.data[common.ThemeKey] = []byte("neon")
	th, err = s.Theme(ctx)
	require.NoError(t, err)
	assert.Equal(t, ThemeLight, th, "unknown values read as light")

	repo.getErr = errors.New("db locked")
	_, err = s.Theme(ctx)
	assert.Error(t, err)
}

func TestParseTheme(t *testing.T) {
	th, err := ParseTheme(" DARK ")
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, th)

	_, err = ParseTheme("")
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestStore_SQLite(t *testing.T) {
	ctx := context.Background()
	db, err := localdb.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := New(metadata.NewSQLiteRepository(db))
	require.NoError(t, s.SetTheme(ctx, ThemeDark))
	require.NoError(t, s.SetPendingEmail(ctx, "bob@x.io"))

	th, err := s.Theme(ctx)
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, th)

	email, err := s.PendingEmail(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bob@x.io", email)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	db, err := localdb.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := metadata.NewSQLiteRepository(db)
	s := New(repo)
	require.NoError(t, s.SetTheme(ctx, ThemeDark))
	require.NoError(t, s.SetPendingEmail(ctx, "bob@x.io"))

	n, err := s.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	th, err := s.Theme(ctx)
	require.NoError(t, err)
	assert.Equal(t, ThemeLight, th)
	email, err := s.PendingEmail(ctx)
	require.NoError(t, err)
	assert.Empty(t, email)

	n, err = s.Reset(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
