package testsupport

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/goliatone/go-storefront-cache/cache"
)

// StartRedis starts an in-process Redis server for the duration of the test
// and returns it with a Config pointing at it. Retries are fast so that
// failure paths do not slow the suite down.
func StartRedis(t testing.TB) (*miniredis.Miniredis, cache.Config) {
	t.Helper()

	mr := miniredis.RunT(t)

	cfg := cache.DefaultConfig()
	cfg.URL = "redis://" + mr.Addr()
	cfg.RetryBaseDelay = time.Millisecond
	cfg.RetryMaxDelay = 5 * time.Millisecond
	cfg.ConnectTimeout = time.Second
	return mr, cfg
}

// ObservedLogger returns a logger that records every entry at debug level
// and above.
func ObservedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}
