package credentials

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/renameio/v2"
)

type fileRecord struct {
	Token string `json:"token"`
}

// FilePersister stores the credential as JSON in a single file. Writes go
// through a temp file and rename, so a reader never sees a torn file.
type FilePersister struct {
	path string
}

func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

func (p *FilePersister) Load(ctx context.Context) (string, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", p.path, err)
	}

	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return "", fmt.Errorf("decode %s: %w", p.path, err)
	}
	return rec.Token, nil
}

func (p *FilePersister) Save(ctx context.Context, credential string) error {
	data, err := json.Marshal(fileRecord{Token: credential})
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(p.path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", p.path, err)
	}
	return nil
}

func (p *FilePersister) Remove(ctx context.Context) error {
	err := os.Remove(p.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", p.path, err)
	}
	return nil
}

// SavedAt is the modification time of the credential file.
func (p *FilePersister) SavedAt(ctx context.Context) (time.Time, bool, error) {
	fi, err := os.Stat(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("stat %s: %w", p.path, err)
	}
	return fi.ModTime(), true, nil
}
