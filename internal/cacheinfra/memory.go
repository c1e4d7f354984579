package cacheinfra

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/goliatone/go-storefront-cache/cache"
	"github.com/goliatone/go-storefront-cache/keys"
)

// ErrConnClosed is returned by commands on a closed in-memory connection.
var ErrConnClosed = errors.New("cacheinfra: connection closed")

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryBackend is an in-process stand-in for the cache service, for
// development and tests. All connections dialed from one backend share its
// keyspace. Entries only disappear when their TTL elapses or they are
// deleted.
type MemoryBackend struct {
	entries    *xsync.MapOf[string, memoryEntry]
	now        func() time.Time
	dials      atomic.Int64
	generation atomic.Int64
	failDials  atomic.Int64
}

// MemoryOption configures a MemoryBackend.
type MemoryOption func(*MemoryBackend)

// WithClock sets the clock used for expiry.
func WithClock(now func() time.Time) MemoryOption {
	return func(b *MemoryBackend) {
		if now != nil {
			b.now = now
		}
	}
}

// NewMemoryBackend returns an empty backend.
func NewMemoryBackend(opts ...MemoryOption) *MemoryBackend {
	b := &MemoryBackend{
		entries: xsync.NewMapOf[string, memoryEntry](),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Dial returns a new connection view over the shared keyspace.
func (b *MemoryBackend) Dial(_ context.Context, spec cache.ConnSpec) (Conn, error) {
	b.dials.Add(1)
	if b.failDials.Load() > 0 {
		b.failDials.Add(-1)
		return nil, errors.New("cacheinfra: connection refused")
	}
	return &memoryConn{
		backend:    b,
		id:         uuid.NewString(),
		prefix:     keyPrefix(spec.KeyPrefix),
		generation: b.generation.Load(),
	}, nil
}

// Dials returns how many times Dial was called.
func (b *MemoryBackend) Dials() int64 { return b.dials.Load() }

// FailNextDials makes the next n Dial calls fail.
func (b *MemoryBackend) FailNextDials(n int) { b.failDials.Store(int64(n)) }

// Disconnect breaks every connection dialed so far, as a server restart
// would. Stored entries survive.
func (b *MemoryBackend) Disconnect() { b.generation.Add(1) }

// Len returns the number of unexpired entries.
func (b *MemoryBackend) Len() int {
	now := b.now()
	n := 0
	b.entries.Range(func(_ string, e memoryEntry) bool {
		if now.Before(e.expiresAt) {
			n++
		}
		return true
	})
	return n
}

// TTL returns the remaining lifetime of a raw key, including any tenant
// prefix.
func (b *MemoryBackend) TTL(rawKey string) (time.Duration, bool) {
	e, ok := b.entries.Load(rawKey)
	if !ok {
		return 0, false
	}
	left := e.expiresAt.Sub(b.now())
	if left <= 0 {
		return 0, false
	}
	return left, true
}

type memoryConn struct {
	backend    *MemoryBackend
	id         string
	prefix     string
	generation int64
	closed     atomic.Bool
}

func (c *memoryConn) ID() string { return c.id }

func (c *memoryConn) IsOpen() bool {
	return !c.closed.Load() && c.generation == c.backend.generation.Load()
}

func (c *memoryConn) Ping(context.Context) error { return c.check() }

func (c *memoryConn) Close() error {
	c.closed.Store(true)
	return nil
}

func (c *memoryConn) check() error {
	if !c.IsOpen() {
		return ErrConnClosed
	}
	return nil
}

func (c *memoryConn) Get(_ context.Context, key string) ([]byte, bool, error) {
	if err := c.check(); err != nil {
		return nil, false, err
	}
	full := c.prefix + key
	e, ok := c.backend.entries.Load(full)
	if !ok {
		return nil, false, nil
	}
	if !c.backend.now().Before(e.expiresAt) {
		c.backend.entries.Delete(full)
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

func (c *memoryConn) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.check(); err != nil {
		return err
	}
	if ttl <= 0 {
		return cache.ErrInvalidTTL
	}
	c.backend.entries.Store(c.prefix+key, memoryEntry{
		value:     append([]byte(nil), value...),
		expiresAt: c.backend.now().Add(ttl),
	})
	return nil
}

func (c *memoryConn) Delete(_ context.Context, ks ...string) (int64, error) {
	if err := c.check(); err != nil {
		return 0, err
	}
	now := c.backend.now()
	var n int64
	for _, k := range ks {
		e, ok := c.backend.entries.LoadAndDelete(c.prefix + k)
		if ok && now.Before(e.expiresAt) {
			n++
		}
	}
	return n, nil
}

func (c *memoryConn) Scan(_ context.Context, pattern string) ([]string, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	now := c.backend.now()
	var out []string
	c.backend.entries.Range(func(full string, e memoryEntry) bool {
		if !strings.HasPrefix(full, c.prefix) || !now.Before(e.expiresAt) {
			return true
		}
		key := strings.TrimPrefix(full, c.prefix)
		if keys.Match(pattern, key) {
			out = append(out, key)
		}
		return true
	})
	return out, nil
}
