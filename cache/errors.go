package cache

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrDisabled is wrapped by the ConfigError returned while caching is
	// switched off.
	ErrDisabled = errors.New("cache: disabled")

	// ErrNoEndpoint means neither a connection url nor a host was configured.
	ErrNoEndpoint = errors.New("cache: no endpoint configured")

	// ErrCircuitOpen is wrapped by the ConnectionError returned while the
	// connect circuit breaker is open.
	ErrCircuitOpen = errors.New("cache: circuit open")

	// ErrReleased is wrapped by the ConnectionError returned when the
	// connection was released while a connect was in flight.
	ErrReleased = errors.New("cache: released during connect")

	// ErrInvalidTTL rejects writes without a positive expiration.
	ErrInvalidTTL = errors.New("cache: ttl must be positive")
)

// ConfigError reports a configuration problem. Acquire fails fast on it and
// never retries.
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	msg := "config error in field " + e.Field + ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ConnectionError reports that no connection could be opened: the attempt
// budget was exhausted, the circuit is open, or a release won the race.
type ConnectionError struct {
	Endpoint string
	Attempts int
	Err      error
}

func (e *ConnectionError) Error() string {
	if errors.Is(e.Err, ErrCircuitOpen) || errors.Is(e.Err, ErrReleased) {
		return fmt.Sprintf("cache: connection to %s refused: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("cache: connection to %s failed after %d attempt(s): %v", e.Endpoint, e.Attempts, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// OperationError reports a command that failed on an acquired connection.
type OperationError struct {
	Op  string
	Key string
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("cache: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// IsConfigError reports whether err is, or wraps, a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsConnectionError reports whether err is, or wraps, a *ConnectionError.
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

// IsUnavailable reports whether err means the cache could not be used at all,
// which callers treat as a bypass.
func IsUnavailable(err error) bool {
	return IsConfigError(err) || IsConnectionError(err)
}
