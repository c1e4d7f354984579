package cacheinfra

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-storefront-cache/cache"
)

// Manager owns the single connection to the cache service. The connection is
// opened lazily on the first Acquire, shared by every caller, and replaced
// transparently when it is found closed.
type Manager struct {
	cfg     cache.Config
	spec    cache.ConnSpec
	specErr error

	dialer  Dialer
	logger  *zap.Logger
	sleep   func(time.Duration)
	breaker *gobreaker.CircuitBreaker

	group singleflight.Group
	mu    sync.RWMutex
	conn  Conn
	// releases counts Release calls; a connect that sees it change drops
	// its connection instead of storing it.
	releases uint64
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithDialer replaces the go-redis dialer.
func WithDialer(d Dialer) ManagerOption {
	return func(m *Manager) {
		if d != nil {
			m.dialer = d
		}
	}
}

// WithLogger sets the logger for connection lifecycle events.
func WithLogger(logger *zap.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithSleep replaces the function used to wait between connect attempts.
func WithSleep(sleep func(time.Duration)) ManagerOption {
	return func(m *Manager) {
		if sleep != nil {
			m.sleep = sleep
		}
	}
}

// NewManager resolves cfg once and returns a Manager for it. Resolution
// errors are not returned here; every Acquire reports them instead, so a
// disabled or unconfigured cache degrades like an unreachable one.
func NewManager(cfg cache.Config, opts ...ManagerOption) *Manager {
	m := &Manager{
		cfg:    cfg,
		logger: zap.NewNop(),
		sleep:  time.Sleep,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.dialer == nil {
		m.dialer = NewRedisDialer()
	}

	m.spec, m.specErr = cfg.Resolve()
	if cfg.BreakerThreshold > 0 {
		m.breaker = m.newBreaker()
	}
	return m
}

func (m *Manager) newBreaker() *gobreaker.CircuitBreaker {
	threshold := uint32(m.cfg.BreakerThreshold)
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "cache-connect",
		MaxRequests: 1,
		Timeout:     m.cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || cache.IsConfigError(err) || errors.Is(err, cache.ErrReleased)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			m.logger.Warn("cache breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// Spec returns the resolved connection spec and the resolution error, if any.
func (m *Manager) Spec() (cache.ConnSpec, error) {
	return m.spec, m.specErr
}

// Acquire returns the open connection, connecting first if there is none or
// the previous one was closed. Concurrent callers share a single connect.
//
// Errors are typed: *cache.ConfigError when caching is disabled or no
// endpoint is configured, *cache.ConnectionError when the attempt budget is
// spent or the breaker is open.
func (m *Manager) Acquire(ctx context.Context) (cache.Store, error) {
	if m.specErr != nil {
		return nil, m.specErr
	}
	if conn := m.current(); conn != nil {
		return conn, nil
	}

	v, err, _ := m.group.Do("acquire", func() (any, error) {
		if conn := m.current(); conn != nil {
			return conn, nil
		}
		m.discardStale()
		return m.connectGuarded(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	return v.(Conn), nil
}

// Release closes the connection if one is held. A connect in flight when
// Release runs closes its new connection and fails with cache.ErrReleased.
func (m *Manager) Release() error {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.releases++
	m.mu.Unlock()

	if conn == nil {
		return nil
	}
	err := conn.Close()
	m.logger.Info("cache connection closed",
		zap.String("endpoint", m.spec.Endpoint()),
		zap.String("conn_id", conn.ID()),
	)
	if err != nil {
		return errors.Wrap(err, "closing cache connection")
	}
	return nil
}

// HealthCheck reports whether the service answers a ping. It never fails.
func (m *Manager) HealthCheck(ctx context.Context) bool {
	store, err := m.Acquire(ctx)
	if err != nil {
		return false
	}
	conn, ok := store.(Conn)
	if !ok {
		return false
	}

	if m.spec.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.spec.ConnectTimeout)
		defer cancel()
	}
	if err := conn.Ping(ctx); err != nil {
		m.logger.Warn("cache health check failed",
			zap.String("conn_id", conn.ID()),
			zap.Error(err),
		)
		return false
	}
	return true
}

// BreakerState returns the connect breaker state, or "disabled".
func (m *Manager) BreakerState() string {
	if m.breaker == nil {
		return "disabled"
	}
	return m.breaker.State().String()
}

func (m *Manager) current() Conn {
	m.mu.RLock()
	conn := m.conn
	m.mu.RUnlock()

	if conn != nil && conn.IsOpen() {
		return conn
	}
	return nil
}

func (m *Manager) discardStale() {
	m.mu.Lock()
	stale := m.conn
	m.conn = nil
	m.mu.Unlock()

	if stale == nil {
		return
	}
	m.logger.Warn("cache connection lost",
		zap.String("endpoint", m.spec.Endpoint()),
		zap.String("conn_id", stale.ID()),
	)
	_ = stale.Close()
}

func (m *Manager) connectGuarded(ctx context.Context) (Conn, error) {
	if m.breaker == nil {
		return m.connect(ctx)
	}

	v, err := m.breaker.Execute(func() (any, error) {
		return m.connect(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &cache.ConnectionError{Endpoint: m.spec.Endpoint(), Err: cache.ErrCircuitOpen}
	}
	if err != nil {
		return nil, err
	}
	return v.(Conn), nil
}

func (m *Manager) connect(ctx context.Context) (Conn, error) {
	endpoint := m.spec.Endpoint()
	attempts := m.cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	m.mu.RLock()
	releases := m.releases
	m.mu.RUnlock()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		m.logger.Info("cache connecting",
			zap.String("endpoint", endpoint),
			zap.Int("attempt", attempt),
			zap.Bool("tls", m.spec.TLS),
		)

		conn, err := m.dialer.Dial(ctx, m.spec)
		if err == nil {
			m.mu.Lock()
			released := m.releases != releases
			if !released {
				m.conn = conn
			}
			m.mu.Unlock()

			if released {
				_ = conn.Close()
				m.logger.Info("cache connection released during connect",
					zap.String("endpoint", endpoint),
					zap.String("conn_id", conn.ID()),
				)
				return nil, &cache.ConnectionError{Endpoint: endpoint, Attempts: attempt, Err: cache.ErrReleased}
			}

			m.logger.Info("cache ready",
				zap.String("endpoint", endpoint),
				zap.Int("attempt", attempt),
				zap.String("conn_id", conn.ID()),
			)
			return conn, nil
		}

		if cache.IsConfigError(err) {
			return nil, err
		}

		lastErr = err
		m.logger.Warn("cache connect attempt failed",
			zap.String("endpoint", endpoint),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Error(err),
		)
		if attempt < attempts {
			m.sleep(m.backoff(attempt))
		}
	}

	return nil, &cache.ConnectionError{Endpoint: endpoint, Attempts: attempts, Err: lastErr}
}

// backoff grows linearly with the attempt number up to RetryMaxDelay.
func (m *Manager) backoff(attempt int) time.Duration {
	d := m.cfg.RetryBaseDelay * time.Duration(attempt)
	if m.cfg.RetryMaxDelay > 0 && d > m.cfg.RetryMaxDelay {
		return m.cfg.RetryMaxDelay
	}
	return d
}
