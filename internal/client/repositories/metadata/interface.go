// Package metadata is the local key/value store backing persisted client
// state: the session credential, the pending verification email and the UI
// theme preference.
package metadata

import (
	"context"
)

// Repository stores opaque byte values by key. Get returns (nil, nil) for a
// key that was never set.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
