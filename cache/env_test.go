package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("REDIS_ENABLED", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("REDIS_HOST", "")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)

	assert.False(t, cfg.Enabled)
	assert.Empty(t, cfg.Host)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryBaseDelay)
	assert.Equal(t, 5*time.Second, cfg.ConnectTimeout)
	assert.EqualValues(t, 100, cfg.ScanCount)
	assert.Equal(t, CodecJSON, cfg.Codec)

	_, err = cfg.Resolve()
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_URL", "rediss://cache.example.com:6380")
	t.Setenv("REDIS_HOST", "ignored")
	t.Setenv("REDIS_PORT", "7001")
	t.Setenv("REDIS_MAX_RETRIES", "5")
	t.Setenv("REDIS_RETRY_DELAY", "750ms")
	t.Setenv("REDIS_CONNECT_TIMEOUT", "2s")
	t.Setenv("REDIS_KEY_PREFIX", "tenant-a")
	t.Setenv("REDIS_BREAKER_THRESHOLD", "0")
	t.Setenv("REDIS_CODEC", "msgpack")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 7001, cfg.Port)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, 750*time.Millisecond, cfg.RetryBaseDelay)
	assert.Equal(t, 2*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, "tenant-a", cfg.KeyPrefix)
	assert.Zero(t, cfg.BreakerThreshold)
	assert.Equal(t, CodecMsgpack, cfg.Codec)

	spec, err := cfg.Resolve()
	require.NoError(t, err)
	assert.Equal(t, EndpointURL, spec.Kind)
	assert.True(t, spec.TLS)
}

func TestLoadConfigFromEnv_DotenvFile(t *testing.T) {
	t.Setenv("REDIS_ENABLED", "")
	t.Setenv("REDIS_URL", "")

	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(file, []byte("REDIS_SCAN_COUNT=42\nREDIS_DELETE_BATCH_SIZE=64\n"), 0o644))
	t.Cleanup(func() {
		_ = os.Unsetenv("REDIS_SCAN_COUNT")
		_ = os.Unsetenv("REDIS_DELETE_BATCH_SIZE")
	})

	cfg, err := LoadConfigFromEnv(filepath.Join(dir, "missing.env"), file)
	require.NoError(t, err)
	assert.EqualValues(t, 42, cfg.ScanCount)
	assert.Equal(t, 64, cfg.DeleteBatchSize)
}
