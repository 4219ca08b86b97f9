// Package metadata persists opaque values under string keys in the local
// SQLite state database.
package metadata

import (
	"context"
)

// Repository is a small key/value store. Get returns nil, nil for a missing key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}
