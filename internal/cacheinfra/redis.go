package cacheinfra

import (
	"context"
	"io"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-storefront-cache/cache"
)

const (
	defaultScanCount       int64 = 100
	defaultDeleteBatchSize       = 500
)

// RedisDialer opens go-redis connections.
type RedisDialer struct{}

// NewRedisDialer returns the default Dialer.
func NewRedisDialer() *RedisDialer {
	return &RedisDialer{}
}

// Dial builds client options from spec, opens a client and pings it. A
// client that does not answer within the connect timeout is closed.
func (d *RedisDialer) Dial(ctx context.Context, spec cache.ConnSpec) (Conn, error) {
	opts, err := redisOptions(spec)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	pingCtx := ctx
	if spec.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, spec.ConnectTimeout)
		defer cancel()
	}
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "failed to connect to cache service")
	}

	return newRedisConn(client, spec), nil
}

func redisOptions(spec cache.ConnSpec) (*redis.Options, error) {
	var opts *redis.Options

	switch spec.Kind {
	case cache.EndpointURL:
		parsed, err := redis.ParseURL(spec.URL)
		if err != nil {
			return nil, &cache.ConfigError{Field: "URL", Message: "unparseable connection url", Err: err}
		}
		if !spec.TLS {
			parsed.TLSConfig = nil
		}
		opts = parsed
	case cache.EndpointAddr:
		opts = &redis.Options{
			Addr:     spec.Addr,
			Username: spec.Username,
			Password: spec.Password,
			DB:       spec.DB,
		}
	default:
		return nil, &cache.ConfigError{Field: "Kind", Message: "connection spec has no endpoint", Err: cache.ErrNoEndpoint}
	}

	if spec.ConnectTimeout > 0 {
		opts.DialTimeout = spec.ConnectTimeout
	}
	return opts, nil
}

type redisConn struct {
	client    *redis.Client
	id        string
	prefix    string
	scanCount int64
	batchSize int

	closed atomic.Bool
	broken atomic.Bool
}

func newRedisConn(client *redis.Client, spec cache.ConnSpec) *redisConn {
	c := &redisConn{
		client:    client,
		id:        uuid.NewString(),
		prefix:    keyPrefix(spec.KeyPrefix),
		scanCount: spec.ScanCount,
		batchSize: spec.DeleteBatchSize,
	}
	if c.scanCount <= 0 {
		c.scanCount = defaultScanCount
	}
	if c.batchSize <= 0 {
		c.batchSize = defaultDeleteBatchSize
	}
	return c
}

func (c *redisConn) ID() string { return c.id }

func (c *redisConn) IsOpen() bool {
	return !c.closed.Load() && !c.broken.Load()
}

func (c *redisConn) Ping(ctx context.Context) error {
	return c.observe(c.client.Ping(ctx).Err())
}

func (c *redisConn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.client.Close()
}

func (c *redisConn) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(c.observe(err), "redis GET")
	}
	return data, true, nil
}

func (c *redisConn) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return cache.ErrInvalidTTL
	}
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return errors.Wrap(c.observe(err), "redis SET")
	}
	return nil
}

// Delete sends the keys as DEL commands of at most batchSize keys each, all in
// one pipeline.
func (c *redisConn) Delete(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.prefix + k
	}

	var cmds []*redis.IntCmd
	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for start := 0; start < len(full); start += c.batchSize {
			end := start + c.batchSize
			if end > len(full) {
				end = len(full)
			}
			cmds = append(cmds, pipe.Del(ctx, full[start:end]...))
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(c.observe(err), "redis DEL")
	}

	var n int64
	for _, cmd := range cmds {
		n += cmd.Val()
	}
	return n, nil
}

// Scan walks the keyspace with SCAN MATCH COUNT and returns the matches with
// the tenant prefix removed. SCAN may return a key more than once; the result
// has no duplicates.
func (c *redisConn) Scan(ctx context.Context, pattern string) ([]string, error) {
	iter := c.client.Scan(ctx, 0, escapeGlob(c.prefix)+pattern, c.scanCount).Iterator()

	seen := make(map[string]struct{})
	var out []string
	for iter.Next(ctx) {
		key := strings.TrimPrefix(iter.Val(), c.prefix)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(c.observe(err), "redis SCAN")
	}
	return out, nil
}

// observe marks the connection broken when err shows the transport is gone,
// so the manager replaces it on the next Acquire.
func (c *redisConn) observe(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.Is(err, redis.ErrClosed) || errors.Is(err, io.EOF) || errors.As(err, &netErr) {
		c.broken.Store(true)
	}
	return err
}

func keyPrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	return prefix + ":"
}

func escapeGlob(s string) string {
	if !strings.ContainsAny(s, `*?[]\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
