// Package store provides the persistence backends used for diff state:
// a SQLite-backed key/value store and a YAML file store. Both implement
// Storage; values are opaque to the backends.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrStorage marks persistence failures. Callers that can proceed without a
// prior state (the diff tracker) treat these as "no prior state" rather than
// aborting the run.
var ErrStorage = errors.New("storage error")

// Storage is the key/value contract the diff tracker depends on. A zero ttl
// means the entry never expires.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Has(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
