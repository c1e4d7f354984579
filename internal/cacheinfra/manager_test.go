package cacheinfra

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-storefront-cache/cache"
	"github.com/goliatone/go-storefront-cache/pkg/testsupport"
)

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
}

func testConfig() cache.Config {
	cfg := cache.DefaultConfig()
	cfg.MaxAttempts = 3
	cfg.RetryBaseDelay = 500 * time.Millisecond
	cfg.RetryMaxDelay = 3 * time.Second
	cfg.BreakerThreshold = 0
	return cfg
}

func newTestManager(cfg cache.Config, d Dialer) (*Manager, *sleepRecorder) {
	rec := &sleepRecorder{}
	return NewManager(cfg, WithDialer(d), WithSleep(rec.sleep)), rec
}

func TestManager_AcquireReusesConnection(t *testing.T) {
	backend := NewMemoryBackend()
	m, _ := newTestManager(testConfig(), backend)
	ctx := context.Background()

	first, err := m.Acquire(ctx)
	if err != nil {
		t.Fatalf("expected acquire to succeed, got %v", err)
	}
	second, err := m.Acquire(ctx)
	if err != nil {
		t.Fatalf("expected acquire to succeed, got %v", err)
	}

	if first.(Conn).ID() != second.(Conn).ID() {
		t.Errorf("expected the same connection, got %s and %s", first.(Conn).ID(), second.(Conn).ID())
	}
	if backend.Dials() != 1 {
		t.Errorf("expected 1 dial, got %d", backend.Dials())
	}
}

func TestManager_RetriesWithLinearBackoff(t *testing.T) {
	backend := NewMemoryBackend()
	backend.FailNextDials(2)
	m, rec := newTestManager(testConfig(), backend)

	if _, err := m.Acquire(context.Background()); err != nil {
		t.Fatalf("expected third attempt to succeed, got %v", err)
	}

	if backend.Dials() != 3 {
		t.Errorf("expected 3 dials, got %d", backend.Dials())
	}
	want := []time.Duration{500 * time.Millisecond, time.Second}
	if len(rec.delays) != len(want) {
		t.Fatalf("expected delays %v, got %v", want, rec.delays)
	}
	for i := range want {
		if rec.delays[i] != want[i] {
			t.Errorf("delay %d: expected %v, got %v", i, want[i], rec.delays[i])
		}
	}
}

func TestManager_ExhaustedBudgetIsConnectionError(t *testing.T) {
	backend := NewMemoryBackend()
	backend.FailNextDials(10)
	m, rec := newTestManager(testConfig(), backend)

	_, err := m.Acquire(context.Background())

	var connErr *cache.ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected *cache.ConnectionError, got %T %v", err, err)
	}
	if connErr.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", connErr.Attempts)
	}
	if backend.Dials() != 3 {
		t.Errorf("expected no dial beyond the budget, got %d", backend.Dials())
	}
	if len(rec.delays) != 2 {
		t.Errorf("expected no sleep after the last attempt, got %v", rec.delays)
	}
}

func TestManager_BackoffIsCapped(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAttempts = 4
	cfg.RetryBaseDelay = time.Second
	cfg.RetryMaxDelay = 1500 * time.Millisecond

	backend := NewMemoryBackend()
	backend.FailNextDials(4)
	m, rec := newTestManager(cfg, backend)
	_, _ = m.Acquire(context.Background())

	want := []time.Duration{time.Second, 1500 * time.Millisecond, 1500 * time.Millisecond}
	if len(rec.delays) != len(want) {
		t.Fatalf("expected delays %v, got %v", want, rec.delays)
	}
	for i := range want {
		if rec.delays[i] != want[i] {
			t.Errorf("delay %d: expected %v, got %v", i, want[i], rec.delays[i])
		}
	}
}

func TestManager_ConfigErrorsFailFast(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*cache.Config)
		sentinel error
	}{
		{name: "disabled", mutate: func(c *cache.Config) { c.Enabled = false }, sentinel: cache.ErrDisabled},
		{name: "no endpoint", mutate: func(c *cache.Config) { c.Host = ""; c.URL = "" }, sentinel: cache.ErrNoEndpoint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			backend := NewMemoryBackend()
			m, rec := newTestManager(cfg, backend)

			_, err := m.Acquire(context.Background())
			if !errors.Is(err, tt.sentinel) {
				t.Fatalf("expected %v, got %v", tt.sentinel, err)
			}
			if !cache.IsConfigError(err) {
				t.Errorf("expected *cache.ConfigError, got %T", err)
			}
			if backend.Dials() != 0 || len(rec.delays) != 0 {
				t.Errorf("expected no dial and no retry, got %d dials %v", backend.Dials(), rec.delays)
			}
		})
	}
}

func TestManager_DialerConfigErrorIsNotRetried(t *testing.T) {
	var dials atomic.Int32
	dialer := DialerFunc(func(context.Context, cache.ConnSpec) (Conn, error) {
		dials.Add(1)
		return nil, &cache.ConfigError{Field: "URL", Message: "unparseable connection url"}
	})
	m, rec := newTestManager(testConfig(), dialer)

	_, err := m.Acquire(context.Background())
	if !cache.IsConfigError(err) {
		t.Fatalf("expected config error, got %v", err)
	}
	if dials.Load() != 1 || len(rec.delays) != 0 {
		t.Errorf("expected a single attempt, got %d dials %v", dials.Load(), rec.delays)
	}
}

func TestManager_ReconnectsAfterDisconnect(t *testing.T) {
	logger, logs := testsupport.ObservedLogger()
	backend := NewMemoryBackend()
	m := NewManager(testConfig(), WithDialer(backend), WithLogger(logger))
	ctx := context.Background()

	first, err := m.Acquire(ctx)
	if err != nil {
		t.Fatalf("expected acquire to succeed, got %v", err)
	}
	backend.Disconnect()
	if first.(Conn).IsOpen() {
		t.Fatal("expected connection to report closed after disconnect")
	}

	second, err := m.Acquire(ctx)
	if err != nil {
		t.Fatalf("expected reconnect to succeed, got %v", err)
	}
	if first.(Conn).ID() == second.(Conn).ID() {
		t.Error("expected a new connection after disconnect")
	}
	if backend.Dials() != 2 {
		t.Errorf("expected 2 dials, got %d", backend.Dials())
	}
	if logs.FilterMessage("cache connection lost").Len() != 1 {
		t.Errorf("expected one connection lost entry, got %d", logs.FilterMessage("cache connection lost").Len())
	}
	if logs.FilterMessage("cache ready").Len() != 2 {
		t.Errorf("expected two ready entries, got %d", logs.FilterMessage("cache ready").Len())
	}
}

func TestManager_Release(t *testing.T) {
	logger, logs := testsupport.ObservedLogger()
	backend := NewMemoryBackend()
	m := NewManager(testConfig(), WithDialer(backend), WithLogger(logger))
	ctx := context.Background()

	if err := m.Release(); err != nil {
		t.Fatalf("expected release without connection to be a no-op, got %v", err)
	}
	if logs.FilterMessage("cache connection closed").Len() != 0 {
		t.Error("expected no close entry for a no-op release")
	}

	store, err := m.Acquire(ctx)
	if err != nil {
		t.Fatalf("expected acquire to succeed, got %v", err)
	}
	if err := m.Release(); err != nil {
		t.Fatalf("expected release to succeed, got %v", err)
	}
	if store.(Conn).IsOpen() {
		t.Error("expected released connection to be closed")
	}
	if err := m.Release(); err != nil {
		t.Errorf("expected second release to be a no-op, got %v", err)
	}

	if _, err := m.Acquire(ctx); err != nil {
		t.Fatalf("expected acquire after release to reconnect, got %v", err)
	}
	if backend.Dials() != 2 {
		t.Errorf("expected 2 dials, got %d", backend.Dials())
	}
}

func TestManager_ReleaseDuringConnectDropsNewConnection(t *testing.T) {
	backend := NewMemoryBackend()
	dialing := make(chan struct{})
	proceed := make(chan struct{})
	var dialed Conn
	slow := DialerFunc(func(ctx context.Context, spec cache.ConnSpec) (Conn, error) {
		conn, err := backend.Dial(ctx, spec)
		dialed = conn
		close(dialing)
		<-proceed
		return conn, err
	})
	m, _ := newTestManager(testConfig(), slow)

	errs := make(chan error, 1)
	go func() {
		_, err := m.Acquire(context.Background())
		errs <- err
	}()

	<-dialing
	if err := m.Release(); err != nil {
		t.Fatalf("expected release to succeed, got %v", err)
	}
	close(proceed)

	err := <-errs
	if !errors.Is(err, cache.ErrReleased) || !cache.IsUnavailable(err) {
		t.Fatalf("expected a released connection error, got %v", err)
	}
	if m.current() != nil {
		t.Error("expected no connection held after release")
	}
	if dialed.IsOpen() {
		t.Error("expected the connection dialed during release to be closed")
	}
}

func TestManager_ConcurrentAcquireSharesOneDial(t *testing.T) {
	backend := NewMemoryBackend()
	var dials atomic.Int32
	slow := DialerFunc(func(ctx context.Context, spec cache.ConnSpec) (Conn, error) {
		dials.Add(1)
		time.Sleep(20 * time.Millisecond)
		return backend.Dial(ctx, spec)
	})
	m, _ := newTestManager(testConfig(), slow)

	const callers = 50
	ids := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store, err := m.Acquire(context.Background())
			if err != nil {
				t.Errorf("expected acquire to succeed, got %v", err)
				return
			}
			ids[i] = store.(Conn).ID()
		}(i)
	}
	wg.Wait()

	if dials.Load() != 1 {
		t.Errorf("expected a single dial, got %d", dials.Load())
	}
	for i := 1; i < callers; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("expected every caller to share one connection, got %s and %s", ids[0], ids[i])
		}
	}
}

func TestManager_AcquireIgnoresCallerCancellation(t *testing.T) {
	var sawErr error
	backend := NewMemoryBackend()
	dialer := DialerFunc(func(ctx context.Context, spec cache.ConnSpec) (Conn, error) {
		sawErr = ctx.Err()
		return backend.Dial(ctx, spec)
	})
	m, _ := newTestManager(testConfig(), dialer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Acquire(ctx); err != nil {
		t.Fatalf("expected acquire to succeed, got %v", err)
	}
	if sawErr != nil {
		t.Errorf("expected dial context to be detached, got %v", sawErr)
	}
}

func TestManager_HealthCheck(t *testing.T) {
	ctx := context.Background()

	m, _ := newTestManager(testConfig(), NewMemoryBackend())
	if !m.HealthCheck(ctx) {
		t.Error("expected healthy cache")
	}

	disabled := testConfig()
	disabled.Enabled = false
	m, _ = newTestManager(disabled, NewMemoryBackend())
	if m.HealthCheck(ctx) {
		t.Error("expected disabled cache to be unhealthy")
	}

	down := NewMemoryBackend()
	down.FailNextDials(100)
	m, _ = newTestManager(testConfig(), down)
	if m.HealthCheck(ctx) {
		t.Error("expected unreachable cache to be unhealthy")
	}
}

func TestManager_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAttempts = 1
	cfg.BreakerThreshold = 2
	cfg.BreakerCooldown = 50 * time.Millisecond

	logger, logs := testsupport.ObservedLogger()
	backend := NewMemoryBackend()
	backend.FailNextDials(2)
	m := NewManager(cfg, WithDialer(backend), WithLogger(logger), WithSleep(func(time.Duration) {}))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := m.Acquire(ctx)
		if !cache.IsConnectionError(err) || errors.Is(err, cache.ErrCircuitOpen) {
			t.Fatalf("attempt %d: expected plain connection error, got %v", i, err)
		}
	}
	if m.BreakerState() != "open" {
		t.Fatalf("expected breaker to be open, got %s", m.BreakerState())
	}

	_, err := m.Acquire(ctx)
	if !errors.Is(err, cache.ErrCircuitOpen) {
		t.Fatalf("expected circuit open error, got %v", err)
	}
	if backend.Dials() != 2 {
		t.Errorf("expected no dial while open, got %d", backend.Dials())
	}

	time.Sleep(80 * time.Millisecond)
	if _, err := m.Acquire(ctx); err != nil {
		t.Fatalf("expected probe after cooldown to succeed, got %v", err)
	}
	if m.BreakerState() != "closed" {
		t.Errorf("expected breaker to close, got %s", m.BreakerState())
	}
	if logs.FilterMessage("cache breaker state changed").Len() < 2 {
		t.Errorf("expected breaker transitions to be logged")
	}
}

func TestManager_BreakerIgnoresConfigErrors(t *testing.T) {
	cfg := testConfig()
	cfg.BreakerThreshold = 1
	dialer := DialerFunc(func(context.Context, cache.ConnSpec) (Conn, error) {
		return nil, &cache.ConfigError{Field: "URL", Message: "bad"}
	})
	m, _ := newTestManager(cfg, dialer)

	for i := 0; i < 3; i++ {
		_, err := m.Acquire(context.Background())
		if !cache.IsConfigError(err) {
			t.Fatalf("expected config error, got %v", err)
		}
	}
	if m.BreakerState() != "closed" {
		t.Errorf("expected breaker to stay closed, got %s", m.BreakerState())
	}
}

func TestManager_BreakerDisabled(t *testing.T) {
	m, _ := newTestManager(testConfig(), NewMemoryBackend())
	if m.BreakerState() != "disabled" {
		t.Errorf("expected disabled breaker, got %s", m.BreakerState())
	}
}
