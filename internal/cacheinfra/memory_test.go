package cacheinfra

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-storefront-cache/cache"
	"github.com/goliatone/go-storefront-cache/keys"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func dialMemory(t *testing.T, b *MemoryBackend, prefix string) Conn {
	t.Helper()
	conn, err := b.Dial(context.Background(), cache.ConnSpec{Kind: cache.EndpointAddr, KeyPrefix: prefix})
	require.NoError(t, err)
	return conn
}

func TestMemoryBackend_TTL(t *testing.T) {
	clock := &manualClock{now: time.Unix(1_700_000_000, 0)}
	b := NewMemoryBackend(WithClock(clock.Now))
	conn := dialMemory(t, b, "")
	ctx := context.Background()

	require.NoError(t, conn.Set(ctx, "k", []byte("v"), 30*time.Minute))
	left, ok := b.TTL("k")
	assert.True(t, ok)
	assert.Equal(t, 30*time.Minute, left)

	clock.Advance(29 * time.Minute)
	_, found, err := conn.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)

	clock.Advance(time.Minute)
	_, found, err = conn.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Zero(t, b.Len())

	assert.ErrorIs(t, conn.Set(ctx, "k", []byte("v"), 0), cache.ErrInvalidTTL)
}

func TestMemoryBackend_ScanAndDelete(t *testing.T) {
	clock := &manualClock{now: time.Unix(0, 0)}
	b := NewMemoryBackend(WithClock(clock.Now))
	conn := dialMemory(t, b, "")
	ctx := context.Background()

	for _, k := range []string{keys.ProductByID("1"), keys.ProductByID("2"), keys.CategoryTree()} {
		require.NoError(t, conn.Set(ctx, k, []byte("1"), time.Minute))
	}
	require.NoError(t, conn.Set(ctx, keys.ProductBySlug("old"), []byte("1"), time.Second))
	clock.Advance(2 * time.Second)

	got, err := conn.Scan(ctx, keys.ProductPattern())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{keys.ProductByID("1"), keys.ProductByID("2")}, got)

	n, err := conn.Delete(ctx, append(got, "absent", keys.ProductBySlug("old"))...)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Equal(t, 1, b.Len())
}

func TestMemoryBackend_PrefixedViewsShareKeyspace(t *testing.T) {
	b := NewMemoryBackend()
	a := dialMemory(t, b, "tenant-a")
	other := dialMemory(t, b, "tenant-b")
	ctx := context.Background()

	require.NoError(t, a.Set(ctx, "k", []byte("a"), time.Minute))
	_, found, err := other.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	_, ok := b.TTL("tenant-a:k")
	assert.True(t, ok)

	got, err := a.Scan(ctx, "*")
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, got)
}

func TestMemoryBackend_ClosedConnection(t *testing.T) {
	b := NewMemoryBackend()
	conn := dialMemory(t, b, "")
	ctx := context.Background()

	require.NoError(t, conn.Ping(ctx))
	require.NoError(t, conn.Close())
	assert.False(t, conn.IsOpen())

	_, _, err := conn.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrConnClosed)
	assert.ErrorIs(t, conn.Set(ctx, "k", nil, time.Minute), ErrConnClosed)
	assert.ErrorIs(t, conn.Ping(ctx), ErrConnClosed)

	fresh := dialMemory(t, b, "")
	b.Disconnect()
	assert.False(t, fresh.IsOpen())
	assert.True(t, dialMemory(t, b, "").IsOpen())
}
