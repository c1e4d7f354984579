// Package repositorycache provides cached repository decorators for go-repository-bun.
//
// # Overview
//
// CachedRepository wraps a base repository.Repository[T] and routes its
// reads through a cache.Helper, so it inherits the helper's fail-open
// behavior: when the cache service is down the decorator behaves exactly
// like the base repository.
//
//	helper := container.Helper()
//	products := repositorycache.New[*Product](base, helper,
//		repositorycache.WithInvalidationPatterns(keys.ProductListPattern(), keys.FeaturedProducts()),
//	)
//
//	p, err := products.GetByID(ctx, id)
//
// # Keys
//
// Reads are keyed under the repository scope of the record family:
//
//	product:repo:id:<id>:<signature>
//	product:repo:identifier:<identifier>:<signature>
//	product:repo:get:<signature>
//	product:repo:list:<signature>
//	product:repo:count:<signature>
//
// The family defaults to the registered keys.Family whose name matches the
// record type ignoring case and separators, otherwise to the snake_case type
// name. It can be set with WithFamily. TTLs default to ttl.ForFamily.
//
// Select criteria are closures, so a read with criteria is cached only when
// the context carries a signature from WithQuerySignature. Otherwise it goes
// straight to the base repository.
//
// # Invalidation
//
// Writes invalidate after the base repository reports success:
//
//   - Create, CreateMany, GetOrCreate: get, list and count reads
//   - Update, Upsert, Delete, ForceDelete and their bulk forms: the above plus
//     the id and identifier reads of every record involved
//   - DeleteMany, DeleteWhere: every read of the family
//
// Patterns passed with WithInvalidationPatterns are deleted on every write.
// Transactional writes invalidate when the statement succeeds, before the
// transaction commits; a read between the two may cache pre-commit data
// until the next write or the TTL.
//
// Transactional reads and Raw are not cached.
package repositorycache
