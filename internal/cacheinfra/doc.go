// Package cacheinfra holds the infrastructure behind the cache helpers: the
// connection manager, the go-redis and in-memory backends, and the
// Prometheus recorder.
//
// Manager is the only stateful piece. It resolves the configuration once,
// dials lazily, shares one connection between all callers and replaces it
// when a command reports a broken transport. Connect attempts are retried
// with linear backoff and guarded by a circuit breaker, so an unreachable
// service costs one fast failure per request once the breaker is open.
package cacheinfra
