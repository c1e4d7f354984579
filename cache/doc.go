// Package cache provides the read-through and invalidation helpers that sit
// between storefront request handlers and the cache service.
//
// # Overview
//
// A Helper is built around an Acquirer, usually the connection manager from
// internal/cacheinfra wired by pkg/di:
//
//   - GetOrCompute / Lookup: cache-aside reads with a caller-supplied compute function
//   - SetCacheData: best-effort unconditional writes (pre-warming)
//   - DeleteKey / DeleteByPattern: invalidation after a successful mutation
//
// # Basic Usage
//
// Keys come from the keys package and TTLs from the ttl package; the helper
// infers neither:
//
//	product, err := cache.GetOrCompute(ctx, helper, keys.ProductByID(id), ttl.Product,
//		func(ctx context.Context) (Product, error) {
//			return db.FindProduct(ctx, id)
//		})
//
//	// after an update
//	helper.DeleteKey(ctx, keys.ProductByID(id))
//	helper.DeleteByPattern(ctx, keys.ProductListPattern())
//
// # Degradation
//
// The helpers fail open. If caching is disabled, the configuration is
// incomplete or the service is unreachable, GetOrCompute calls compute
// directly and returns its result. Read, write and delete failures are
// logged and never returned to the caller. The only error GetOrCompute
// returns is the one produced by compute, which runs at most once per call.
//
// Every call produces a Result. Lookup returns it alongside the value, the
// invalidation helpers return it directly, and a Recorder (see WithRecorder)
// receives a copy, so tests and metrics can observe what happened without
// parsing logs.
//
// # Configuration
//
// Config is resolved once into an immutable ConnSpec. The connection-string
// form (REDIS_URL) wins over the discrete host/port form, and only the
// rediss:// scheme enables TLS. LoadConfigFromEnv reads the REDIS_*
// environment variables.
//
// # Encoding
//
// Values are stored as JSON by default. MsgpackCodec trades readability for
// size. An entry that no longer decodes into the requested type is treated
// as a miss and overwritten.
package cache
