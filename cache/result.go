package cache

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Operation names a helper call.
type Operation string

const (
	OpGetOrCompute  Operation = "get_or_compute"
	OpSet           Operation = "set"
	OpDelete        Operation = "delete"
	OpDeletePattern Operation = "delete_pattern"
)

// Outcome is what a helper call did.
type Outcome string

const (
	// OutcomeHit: the value came from the cache.
	OutcomeHit Outcome = "hit"
	// OutcomeMiss: the value was computed; Err reports a failed write-back.
	OutcomeMiss Outcome = "miss"
	// OutcomeBypass: the cache could not be used and the call fell through.
	OutcomeBypass Outcome = "bypass"
	OutcomeStored Outcome = "stored"
	// OutcomeDeleted: at least one key was removed; see Affected.
	OutcomeDeleted Outcome = "deleted"
	// OutcomeNoop: nothing matched.
	OutcomeNoop   Outcome = "noop"
	OutcomeFailed Outcome = "failed"
)

// Result describes one helper call. Helpers never return cache errors to the
// caller's data path; they report them here and in the log.
type Result struct {
	Op       Operation
	Key      string
	Outcome  Outcome
	Affected int64
	Elapsed  time.Duration
	Err      error
}

// OK reports whether the call completed without a cache-layer error.
func (r Result) OK() bool { return r.Err == nil }

// Degraded reports whether the cache was skipped or a command failed.
func (r Result) Degraded() bool {
	return r.Outcome == OutcomeBypass || r.Err != nil
}

// Disabled reports whether the call bypassed the cache because it is switched
// off.
func (r Result) Disabled() bool {
	return errors.Is(r.Err, ErrDisabled)
}

func (r Result) fields() []zap.Field {
	fields := []zap.Field{
		zap.String("op", string(r.Op)),
		zap.String("key", r.Key),
		zap.String("outcome", string(r.Outcome)),
		zap.Duration("elapsed", r.Elapsed),
	}
	if r.Affected > 0 {
		fields = append(fields, zap.Int64("affected", r.Affected))
	}
	if r.Err != nil {
		fields = append(fields, zap.Error(r.Err))
	}
	return fields
}
