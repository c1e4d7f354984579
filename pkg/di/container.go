package di

import (
	"context"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/goliatone/go-storefront-cache/cache"
	"github.com/goliatone/go-storefront-cache/internal/cacheinfra"
	"github.com/goliatone/go-storefront-cache/repositorycache"
)

// DefaultMetricsNamespace prefixes every metric the container registers.
const DefaultMetricsNamespace = "storefront"

// Container wires the cache components together: one connection manager,
// one helper that reports to a metrics collector, and factories for cached
// repositories. It owns the connection and must be closed.
type Container struct {
	config    cache.Config
	logger    *zap.Logger
	manager   *cacheinfra.Manager
	helper    *cache.Helper
	collector *cacheinfra.Collector
	memory    *cacheinfra.MemoryBackend
}

// Option configures a Container.
type Option func(*options)

type options struct {
	logger    *zap.Logger
	namespace string
	memory    bool
}

// WithLogger sets the logger shared by the manager and the helper.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetricsNamespace overrides DefaultMetricsNamespace.
func WithMetricsNamespace(namespace string) Option {
	return func(o *options) {
		if namespace != "" {
			o.namespace = namespace
		}
	}
}

// WithInMemoryBackend replaces the cache service with a process-local
// keyspace. The configured endpoint is still resolved, so a disabled or
// unconfigured cache degrades the same way it would against the service.
func WithInMemoryBackend() Option {
	return func(o *options) {
		o.memory = true
	}
}

// NewContainer validates cfg and builds the cache components. No connection
// is opened until the first cache operation. A disabled cfg is accepted as is
// and every operation bypasses the cache.
func NewContainer(cfg cache.Config, opts ...Option) (*Container, error) {
	o := options{
		logger:    zap.NewNop(),
		namespace: DefaultMetricsNamespace,
	}
	for _, opt := range opts {
		opt(&o)
	}

	// a disabled cache never dials, so its tuning is not validated
	var codec cache.Codec = cache.JSONCodec{}
	if cfg.Enabled {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		var err error
		if codec, err = cache.CodecByName(cfg.Codec); err != nil {
			return nil, err
		}
	} else if named, err := cache.CodecByName(cfg.Codec); err == nil {
		codec = named
	}

	c := &Container{
		config:    cfg,
		logger:    o.logger,
		collector: cacheinfra.NewCollector(o.namespace),
	}

	managerOpts := []cacheinfra.ManagerOption{cacheinfra.WithLogger(o.logger)}
	if o.memory {
		c.memory = cacheinfra.NewMemoryBackend()
		managerOpts = append(managerOpts, cacheinfra.WithDialer(c.memory))
	}
	c.manager = cacheinfra.NewManager(cfg, managerOpts...)

	c.helper = cache.NewHelper(c.manager,
		cache.WithLogger(o.logger),
		cache.WithCodec(codec),
		cache.WithRecorder(c.collector),
	)

	if spec, err := c.manager.Spec(); err != nil {
		o.logger.Info("cache inactive, requests will bypass it", zap.Error(err))
	} else {
		o.logger.Debug("cache configured", zap.String("endpoint", spec.Endpoint()), zap.String("codec", codec.Name()))
	}
	return c, nil
}

// NewContainerWithDefaults creates a container for a local cache service.
func NewContainerWithDefaults(opts ...Option) (*Container, error) {
	return NewContainer(cache.DefaultConfig(), opts...)
}

// NewContainerFromEnv reads the REDIS_* environment, after loading any of
// dotenvFiles that exist, and builds a container from it.
func NewContainerFromEnv(dotenvFiles []string, opts ...Option) (*Container, error) {
	cfg, err := cache.LoadConfigFromEnv(dotenvFiles...)
	if err != nil {
		return nil, err
	}
	return NewContainer(cfg, opts...)
}

// Helper returns the shared cache helper.
func (c *Container) Helper() *cache.Helper {
	return c.helper
}

// Manager returns the connection manager.
func (c *Container) Manager() *cacheinfra.Manager {
	return c.manager
}

// MemoryBackend returns the in-memory keyspace, or nil unless the container
// was built WithInMemoryBackend.
func (c *Container) MemoryBackend() *cacheinfra.MemoryBackend {
	return c.memory
}

// MetricsRegistry returns the registry holding the cache metrics, for
// mounting on a /metrics handler.
func (c *Container) MetricsRegistry() *prometheus.Registry {
	return c.collector.Registry()
}

// Config returns a copy of the configuration the container was built from.
func (c *Container) Config() cache.Config {
	return c.config
}

// HealthCheck reports whether the cache service answers a ping.
func (c *Container) HealthCheck(ctx context.Context) bool {
	return c.manager.HealthCheck(ctx)
}

// Close releases the connection. A later cache operation reconnects.
func (c *Container) Close() error {
	return c.manager.Release()
}

// NewCachedRepository wraps base with the container's helper.
//
// Since Go methods cannot have type parameters, this is provided as a package-level function.
// Example: NewCachedRepository[*Product](container, baseProductRepository)
func NewCachedRepository[T any](container *Container, base repository.Repository[T], opts ...repositorycache.Option) *repositorycache.CachedRepository[T] {
	return repositorycache.New(base, container.helper, opts...)
}
