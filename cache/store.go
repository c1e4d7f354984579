package cache

import (
	"context"
	"time"
)

// Store is an acquired connection to the cache service.
type Store interface {
	// Get returns the stored bytes for key. A missing key is reported with
	// found == false and a nil error.
	Get(ctx context.Context, key string) (data []byte, found bool, err error)

	// Set writes value under key with the given expiration, replacing any
	// earlier value.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes keys and returns how many existed.
	Delete(ctx context.Context, keys ...string) (int64, error)

	// Scan returns the keys currently matching a glob pattern.
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Acquirer hands out a ready Store.
type Acquirer interface {
	Acquire(ctx context.Context) (Store, error)
}

// AcquirerFunc adapts a function to Acquirer.
type AcquirerFunc func(ctx context.Context) (Store, error)

func (f AcquirerFunc) Acquire(ctx context.Context) (Store, error) { return f(ctx) }

// Recorder receives the Result of every helper call.
type Recorder interface {
	Record(Result)
}

type nopRecorder struct{}

func (nopRecorder) Record(Result) {}
