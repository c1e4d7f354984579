package cache

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type envBinding struct {
	key string
	env string
	def any
}

func envBindings() []envBinding {
	d := DefaultConfig()
	return []envBinding{
		{"enabled", "REDIS_ENABLED", false},
		{"url", "REDIS_URL", ""},
		{"host", "REDIS_HOST", ""},
		{"port", "REDIS_PORT", d.Port},
		{"username", "REDIS_USERNAME", ""},
		{"password", "REDIS_PASSWORD", ""},
		{"db", "REDIS_DB", 0},
		{"key_prefix", "REDIS_KEY_PREFIX", ""},
		{"max_attempts", "REDIS_MAX_RETRIES", d.MaxAttempts},
		{"retry_delay", "REDIS_RETRY_DELAY", d.RetryBaseDelay},
		{"max_retry_delay", "REDIS_MAX_RETRY_DELAY", d.RetryMaxDelay},
		{"connect_timeout", "REDIS_CONNECT_TIMEOUT", d.ConnectTimeout},
		{"scan_count", "REDIS_SCAN_COUNT", d.ScanCount},
		{"delete_batch_size", "REDIS_DELETE_BATCH_SIZE", d.DeleteBatchSize},
		{"breaker_threshold", "REDIS_BREAKER_THRESHOLD", d.BreakerThreshold},
		{"breaker_cooldown", "REDIS_BREAKER_COOLDOWN", d.BreakerCooldown},
		{"codec", "REDIS_CODEC", d.Codec},
	}
}

// LoadConfigFromEnv reads the REDIS_* environment variables. Dotenv files
// that exist are loaded first; variables already set in the process win over
// them. Caching stays off unless REDIS_ENABLED is true.
func LoadConfigFromEnv(dotenvFiles ...string) (Config, error) {
	for _, file := range dotenvFiles {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return Config{}, &ConfigError{Field: "dotenv", Message: "failed to load " + file, Err: err}
		}
	}

	v := viper.New()
	v.SetEnvPrefix("REDIS")
	v.AutomaticEnv()
	for _, b := range envBindings() {
		v.SetDefault(b.key, b.def)
		_ = v.BindEnv(b.key, b.env)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, &ConfigError{Field: "env", Message: "unable to decode environment", Err: err}
	}
	return cfg, nil
}
