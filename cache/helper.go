package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/goliatone/go-storefront-cache/cache"

// ComputeFn produces a fresh value from the source of truth.
type ComputeFn[T any] func(ctx context.Context) (T, error)

// Helper runs the read-through and invalidation operations against the
// connection handed out by an Acquirer. It is safe for concurrent use.
type Helper struct {
	acquirer Acquirer
	codec    Codec
	logger   *zap.Logger
	recorder Recorder
	tracer   trace.Tracer
	now      func() time.Time
}

// Option configures a Helper.
type Option func(*Helper)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Helper) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithCodec sets the value encoding. The default is JSON.
func WithCodec(codec Codec) Option {
	return func(h *Helper) {
		if codec != nil {
			h.codec = codec
		}
	}
}

// WithRecorder sets the sink that receives every Result.
func WithRecorder(recorder Recorder) Option {
	return func(h *Helper) {
		if recorder != nil {
			h.recorder = recorder
		}
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(h *Helper) {
		if tracer != nil {
			h.tracer = tracer
		}
	}
}

// WithClock replaces time.Now for elapsed-time reporting.
func WithClock(now func() time.Time) Option {
	return func(h *Helper) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHelper returns a Helper that obtains connections from acquirer.
func NewHelper(acquirer Acquirer, opts ...Option) *Helper {
	h := &Helper{
		acquirer: acquirer,
		codec:    JSONCodec{},
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// GetOrCompute returns the cached value for key, or computes, stores and
// returns a fresh one. Cache failures never reach the caller: the value is
// computed directly instead. The only error returned is compute's own, and
// compute runs at most once.
//
// compute receives ctx as given. Cache commands run on a context detached
// from ctx's cancellation, so an abandoned request does not abort them.
func GetOrCompute[T any](ctx context.Context, h *Helper, key string, ttl time.Duration, compute ComputeFn[T]) (T, error) {
	value, _, err := Lookup(ctx, h, key, ttl, compute)
	return value, err
}

// Lookup is GetOrCompute that also reports what happened. The Result carries
// cache-layer errors; the returned error is compute's.
func Lookup[T any](ctx context.Context, h *Helper, key string, ttl time.Duration, compute ComputeFn[T]) (T, Result, error) {
	ctx, span := h.startSpan(ctx, OpGetOrCompute, key)
	defer span.End()

	start := h.now()
	res := Result{Op: OpGetOrCompute, Key: key}
	opCtx := context.WithoutCancel(ctx)

	store, err := h.acquirer.Acquire(opCtx)
	if err != nil {
		res.Outcome = OutcomeBypass
		res.Err = err
		value, cerr := compute(ctx)
		h.finish(span, &res, start)
		return value, res, cerr
	}

	data, found, err := store.Get(opCtx, key)
	if err != nil {
		res.Outcome = OutcomeBypass
		res.Err = &OperationError{Op: "get", Key: key, Err: err}
		value, cerr := compute(ctx)
		h.finish(span, &res, start)
		return value, res, cerr
	}

	if found {
		var cached T
		err := h.codec.Unmarshal(data, &cached)
		if err == nil {
			res.Outcome = OutcomeHit
			h.finish(span, &res, start)
			return cached, res, nil
		}
		h.logger.Warn("cache entry undecodable, recomputing",
			zap.String("key", key),
			zap.String("codec", h.codec.Name()),
			zap.Error(err),
		)
	}

	res.Outcome = OutcomeMiss
	value, cerr := compute(ctx)
	if cerr != nil {
		h.finish(span, &res, start)
		return value, res, cerr
	}

	if err := h.write(opCtx, store, key, value, ttl); err != nil {
		res.Err = err
	} else {
		res.Affected = 1
	}
	h.finish(span, &res, start)
	return value, res, nil
}

// SetCacheData writes value under key unconditionally. It is best-effort:
// failures are logged and reported in the Result only.
func (h *Helper) SetCacheData(ctx context.Context, key string, value any, ttl time.Duration) Result {
	ctx, span := h.startSpan(ctx, OpSet, key)
	defer span.End()

	start := h.now()
	res := Result{Op: OpSet, Key: key}
	opCtx := context.WithoutCancel(ctx)

	store, err := h.acquirer.Acquire(opCtx)
	if err != nil {
		res.Outcome = OutcomeBypass
		res.Err = err
		h.finish(span, &res, start)
		return res
	}

	if err := h.write(opCtx, store, key, value, ttl); err != nil {
		res.Outcome = OutcomeFailed
		res.Err = err
	} else {
		res.Outcome = OutcomeStored
		res.Affected = 1
	}
	h.finish(span, &res, start)
	return res
}

// DeleteKey removes a single key. Deleting an absent key is a noop.
func (h *Helper) DeleteKey(ctx context.Context, key string) Result {
	ctx, span := h.startSpan(ctx, OpDelete, key)
	defer span.End()

	start := h.now()
	res := Result{Op: OpDelete, Key: key}
	opCtx := context.WithoutCancel(ctx)

	store, err := h.acquirer.Acquire(opCtx)
	if err != nil {
		res.Outcome = OutcomeBypass
		res.Err = err
		h.finish(span, &res, start)
		return res
	}

	n, err := store.Delete(opCtx, key)
	switch {
	case err != nil:
		res.Outcome = OutcomeFailed
		res.Err = &OperationError{Op: "delete", Key: key, Err: err}
	case n == 0:
		res.Outcome = OutcomeNoop
	default:
		res.Outcome = OutcomeDeleted
		res.Affected = n
	}
	h.finish(span, &res, start)
	return res
}

// DeleteByPattern removes every key matching pattern at the time of the scan.
// Keys written after the scan started may survive.
func (h *Helper) DeleteByPattern(ctx context.Context, pattern string) Result {
	ctx, span := h.startSpan(ctx, OpDeletePattern, pattern)
	defer span.End()

	start := h.now()
	res := Result{Op: OpDeletePattern, Key: pattern}
	opCtx := context.WithoutCancel(ctx)

	store, err := h.acquirer.Acquire(opCtx)
	if err != nil {
		res.Outcome = OutcomeBypass
		res.Err = err
		h.finish(span, &res, start)
		return res
	}

	matched, err := store.Scan(opCtx, pattern)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Err = &OperationError{Op: "scan", Key: pattern, Err: err}
		h.finish(span, &res, start)
		return res
	}
	if len(matched) == 0 {
		res.Outcome = OutcomeNoop
		h.finish(span, &res, start)
		return res
	}

	n, err := store.Delete(opCtx, matched...)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Err = &OperationError{Op: "delete", Key: pattern, Err: err}
	} else {
		res.Outcome = OutcomeDeleted
		res.Affected = n
	}
	h.finish(span, &res, start)
	return res
}

// DeleteByPatterns runs DeleteByPattern for each pattern in order.
func (h *Helper) DeleteByPatterns(ctx context.Context, patterns ...string) []Result {
	results := make([]Result, 0, len(patterns))
	for _, p := range patterns {
		results = append(results, h.DeleteByPattern(ctx, p))
	}
	return results
}

func (h *Helper) write(ctx context.Context, store Store, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		return &OperationError{Op: "set", Key: key, Err: ErrInvalidTTL}
	}
	data, err := h.codec.Marshal(value)
	if err != nil {
		return &OperationError{Op: "encode", Key: key, Err: err}
	}
	if err := store.Set(ctx, key, data, ttl); err != nil {
		return &OperationError{Op: "set", Key: key, Err: err}
	}
	return nil
}

func (h *Helper) startSpan(ctx context.Context, op Operation, key string) (context.Context, trace.Span) {
	return h.tracer.Start(ctx, "cache."+string(op),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("cache.op", string(op)),
			attribute.String("cache.key", key),
		),
	)
}

func (h *Helper) finish(span trace.Span, res *Result, start time.Time) {
	res.Elapsed = h.now().Sub(start)

	span.SetAttributes(
		attribute.String("cache.outcome", string(res.Outcome)),
		attribute.Int64("cache.affected", res.Affected),
	)
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
	}

	h.recorder.Record(*res)
	h.log(*res)
}

func (h *Helper) log(res Result) {
	switch {
	case res.Outcome == OutcomeBypass && errors.Is(res.Err, ErrDisabled):
		h.logger.Debug("cache disabled, bypassing", res.fields()...)
	case res.Outcome == OutcomeBypass:
		h.logger.Warn("cache unavailable, bypassing", res.fields()...)
	case res.Err != nil:
		h.logger.Warn("cache operation failed", res.fields()...)
	default:
		h.logger.Debug("cache "+string(res.Outcome), res.fields()...)
	}
}
