package cacheinfra

import (
	"context"

	"github.com/goliatone/go-storefront-cache/cache"
)

// Conn is a live connection to the cache service.
type Conn interface {
	cache.Store

	// Ping is a lightweight liveness probe.
	Ping(ctx context.Context) error

	// Close shuts the connection down. It is safe to call more than once.
	Close() error

	// IsOpen reports false once the connection was closed or a command
	// observed a broken transport.
	IsOpen() bool

	// ID identifies the connection in logs.
	ID() string
}

// Dialer opens connections for a resolved ConnSpec.
type Dialer interface {
	Dial(ctx context.Context, spec cache.ConnSpec) (Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, spec cache.ConnSpec) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context, spec cache.ConnSpec) (Conn, error) {
	return f(ctx, spec)
}
