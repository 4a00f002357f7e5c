package credentials

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/dmitrijs2005/mediax/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/mediax/internal/common"
	"github.com/dmitrijs2005/mediax/internal/dbx"
)

const savedAtKey = common.CredentialKey + "_saved_at"

// SQLitePersister keeps the credential in the local metadata table, next to
// the time it was saved.
type SQLitePersister struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLitePersister(db *sql.DB) *SQLitePersister {
	return &SQLitePersister{db: db, now: time.Now}
}

func (p *SQLitePersister) Load(ctx context.Context) (string, error) {
	v, err := metadata.NewSQLiteRepository(p.db).Get(ctx, common.CredentialKey)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func (p *SQLitePersister) Save(ctx context.Context, credential string) error {
	return dbx.WithTx(ctx, p.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, common.CredentialKey, []byte(credential)); err != nil {
			return err
		}
		ts := strconv.FormatInt(p.now().Unix(), 10)
		return repo.Set(ctx, savedAtKey, []byte(ts))
	})
}

func (p *SQLitePersister) Remove(ctx context.Context) error {
	return metadata.NewSQLiteRepository(p.db).Delete(ctx, common.CredentialKey, savedAtKey)
}

// SavedAt reports when the current credential was stored. ok is false when
// no credential is stored.
func (p *SQLitePersister) SavedAt(ctx context.Context) (t time.Time, ok bool, err error) {
	v, err := metadata.NewSQLiteRepository(p.db).Get(ctx, savedAtKey)
	if err != nil || v == nil {
		return time.Time{}, false, err
	}
	sec, err := strconv.ParseInt(string(v), 10, 64)
	if err != nil {
		return time.Time{}, false, err
	}
	return time.Unix(sec, 0), true, nil
}
