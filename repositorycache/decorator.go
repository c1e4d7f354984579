package repositorycache

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-storefront-cache/cache"
	"github.com/goliatone/go-storefront-cache/keys"
	"github.com/goliatone/go-storefront-cache/ttl"
)

var _ repository.Repository[any] = (*CachedRepository[any])(nil)

// Read scopes under <family>:repo.
const (
	scopeRepo       = "repo"
	scopeGet        = "get"
	scopeID         = "id"
	scopeIdentifier = "identifier"
	scopeList       = "list"
	scopeCount      = "count"
)

// listResult wraps the tuple result from List operations for caching
type listResult[T any] struct {
	Records []T `json:"records" msgpack:"records"`
	Total   int `json:"total" msgpack:"total"`
}

// CachedRepository decorates a go-repository-bun repository with read-through
// caching. Methods it does not override, such as the transactional reads and
// Raw, reach the wrapped repository directly.
type CachedRepository[T any] struct {
	repository.Repository[T]

	helper   *cache.Helper
	family   keys.Family
	ttl      time.Duration
	listTTL  time.Duration
	patterns []string
}

// Option configures a CachedRepository.
type Option func(*settings)

type settings struct {
	family   keys.Family
	ttl      time.Duration
	listTTL  time.Duration
	patterns []string
}

// WithFamily sets the key family. By default it is derived from the record
// type name.
func WithFamily(f keys.Family) Option {
	return func(s *settings) {
		if f != "" {
			s.family = f
		}
	}
}

// WithTTL sets the expiration of single-record reads.
func WithTTL(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithListTTL sets the expiration of List and Count reads. It defaults to
// the single-record TTL.
func WithListTTL(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.listTTL = d
		}
	}
}

// WithInvalidationPatterns adds patterns that are deleted after every
// successful write, e.g. the storefront listing keys built outside the
// repository.
func WithInvalidationPatterns(patterns ...string) Option {
	return func(s *settings) {
		s.patterns = append(s.patterns, patterns...)
	}
}

// New wraps base so that its reads go through helper.
func New[T any](base repository.Repository[T], helper *cache.Helper, opts ...Option) *CachedRepository[T] {
	s := settings{family: familyFor[T]()}
	for _, opt := range opts {
		opt(&s)
	}
	if s.ttl == 0 {
		s.ttl = ttl.ForFamily(s.family)
	}
	if s.listTTL == 0 {
		s.listTTL = s.ttl
	}

	return &CachedRepository[T]{
		Repository: base,
		helper:     helper,
		family:     s.family,
		ttl:        s.ttl,
		listTTL:    s.listTTL,
		patterns:   s.patterns,
	}
}

// Family returns the key family the repository caches under.
func (c *CachedRepository[T]) Family() keys.Family { return c.family }

// Pattern matches every key this repository writes.
func (c *CachedRepository[T]) Pattern() string { return c.family.Pattern(scopeRepo) }

// IDKey is the key GetByID uses for id when called without criteria.
func (c *CachedRepository[T]) IDKey(id string) string {
	return c.family.Key(scopeRepo, scopeID, id, keys.NoFilters)
}

// readKey returns the key of a read, or false when the read carries criteria
// without a query signature and must not be cached.
func (c *CachedRepository[T]) readKey(ctx context.Context, scope string, subject *string, criteria int) (string, bool) {
	sig := keys.NoFilters
	if criteria > 0 {
		s, ok := querySignature(ctx)
		if !ok {
			return "", false
		}
		sig = s
	}
	if subject != nil {
		return c.family.Key(scopeRepo, scope, *subject, sig), true
	}
	return c.family.Key(scopeRepo, scope, sig), true
}

// Get retrieves a single record using the provided criteria, with caching
func (c *CachedRepository[T]) Get(ctx context.Context, criteria ...repository.SelectCriteria) (T, error) {
	key, ok := c.readKey(ctx, scopeGet, nil, len(criteria))
	if !ok {
		return c.Repository.Get(ctx, criteria...)
	}
	return cache.GetOrCompute(ctx, c.helper, key, c.ttl, func(ctx context.Context) (T, error) {
		return c.Repository.Get(ctx, criteria...)
	})
}

// GetByID retrieves a record by ID with optional criteria, with caching
func (c *CachedRepository[T]) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (T, error) {
	key, ok := c.readKey(ctx, scopeID, &id, len(criteria))
	if !ok {
		return c.Repository.GetByID(ctx, id, criteria...)
	}
	return cache.GetOrCompute(ctx, c.helper, key, c.ttl, func(ctx context.Context) (T, error) {
		return c.Repository.GetByID(ctx, id, criteria...)
	})
}

// GetByIdentifier retrieves a record by identifier with optional criteria, with caching
func (c *CachedRepository[T]) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	key, ok := c.readKey(ctx, scopeIdentifier, &identifier, len(criteria))
	if !ok {
		return c.Repository.GetByIdentifier(ctx, identifier, criteria...)
	}
	return cache.GetOrCompute(ctx, c.helper, key, c.ttl, func(ctx context.Context) (T, error) {
		return c.Repository.GetByIdentifier(ctx, identifier, criteria...)
	})
}

// List retrieves multiple records using the provided criteria, with caching.
// Records and total are cached together.
func (c *CachedRepository[T]) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, int, error) {
	key, ok := c.readKey(ctx, scopeList, nil, len(criteria))
	if !ok {
		return c.Repository.List(ctx, criteria...)
	}
	res, err := cache.GetOrCompute(ctx, c.helper, key, c.listTTL, func(ctx context.Context) (listResult[T], error) {
		records, total, err := c.Repository.List(ctx, criteria...)
		return listResult[T]{Records: records, Total: total}, err
	})
	if err != nil {
		return nil, 0, err
	}
	return res.Records, res.Total, nil
}

// Count returns the number of records matching the criteria, with caching
func (c *CachedRepository[T]) Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error) {
	key, ok := c.readKey(ctx, scopeCount, nil, len(criteria))
	if !ok {
		return c.Repository.Count(ctx, criteria...)
	}
	return cache.GetOrCompute(ctx, c.helper, key, c.listTTL, func(ctx context.Context) (int, error) {
		return c.Repository.Count(ctx, criteria...)
	})
}

// Create creates a new record and expires the query caches.
func (c *CachedRepository[T]) Create(ctx context.Context, record T, criteria ...repository.InsertCriteria) (T, error) {
	result, err := c.Repository.Create(ctx, record, criteria...)
	if err == nil {
		c.invalidateQueries(ctx)
	}
	return result, err
}

// CreateTx creates a new record within a transaction
func (c *CachedRepository[T]) CreateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.InsertCriteria) (T, error) {
	result, err := c.Repository.CreateTx(ctx, tx, record, criteria...)
	if err == nil {
		c.invalidateQueries(ctx)
	}
	return result, err
}

// CreateMany creates multiple records
func (c *CachedRepository[T]) CreateMany(ctx context.Context, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	result, err := c.Repository.CreateMany(ctx, records, criteria...)
	if err == nil {
		c.invalidateQueries(ctx)
	}
	return result, err
}

// CreateManyTx creates multiple records within a transaction
func (c *CachedRepository[T]) CreateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	result, err := c.Repository.CreateManyTx(ctx, tx, records, criteria...)
	if err == nil {
		c.invalidateQueries(ctx)
	}
	return result, err
}

// GetOrCreate may insert, so it expires the query caches like Create.
func (c *CachedRepository[T]) GetOrCreate(ctx context.Context, record T) (T, error) {
	result, err := c.Repository.GetOrCreate(ctx, record)
	if err == nil {
		c.invalidateQueries(ctx)
	}
	return result, err
}

// GetOrCreateTx gets a record or creates it within a transaction
func (c *CachedRepository[T]) GetOrCreateTx(ctx context.Context, tx bun.IDB, record T) (T, error) {
	result, err := c.Repository.GetOrCreateTx(ctx, tx, record)
	if err == nil {
		c.invalidateQueries(ctx)
	}
	return result, err
}

// Update updates a record and expires its cached reads.
func (c *CachedRepository[T]) Update(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := c.Repository.Update(ctx, record, criteria...)
	if err == nil {
		c.invalidateRecords(ctx, []T{record, result})
	}
	return result, err
}

// UpdateTx updates a record within a transaction
func (c *CachedRepository[T]) UpdateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := c.Repository.UpdateTx(ctx, tx, record, criteria...)
	if err == nil {
		c.invalidateRecords(ctx, []T{record, result})
	}
	return result, err
}

// UpdateMany updates multiple records
func (c *CachedRepository[T]) UpdateMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	result, err := c.Repository.UpdateMany(ctx, records, criteria...)
	if err == nil {
		c.invalidateRecords(ctx, records, result)
	}
	return result, err
}

// UpdateManyTx updates multiple records within a transaction
func (c *CachedRepository[T]) UpdateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	result, err := c.Repository.UpdateManyTx(ctx, tx, records, criteria...)
	if err == nil {
		c.invalidateRecords(ctx, records, result)
	}
	return result, err
}

// Upsert inserts or updates a record
func (c *CachedRepository[T]) Upsert(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := c.Repository.Upsert(ctx, record, criteria...)
	if err == nil {
		c.invalidateRecords(ctx, []T{record, result})
	}
	return result, err
}

// UpsertTx inserts or updates a record within a transaction
func (c *CachedRepository[T]) UpsertTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := c.Repository.UpsertTx(ctx, tx, record, criteria...)
	if err == nil {
		c.invalidateRecords(ctx, []T{record, result})
	}
	return result, err
}

// UpsertMany inserts or updates multiple records
func (c *CachedRepository[T]) UpsertMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	result, err := c.Repository.UpsertMany(ctx, records, criteria...)
	if err == nil {
		c.invalidateRecords(ctx, records, result)
	}
	return result, err
}

// UpsertManyTx inserts or updates multiple records within a transaction
func (c *CachedRepository[T]) UpsertManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	result, err := c.Repository.UpsertManyTx(ctx, tx, records, criteria...)
	if err == nil {
		c.invalidateRecords(ctx, records, result)
	}
	return result, err
}

// Delete deletes a record and expires its cached reads.
func (c *CachedRepository[T]) Delete(ctx context.Context, record T) error {
	err := c.Repository.Delete(ctx, record)
	if err == nil {
		c.invalidateRecords(ctx, []T{record})
	}
	return err
}

// DeleteTx deletes a record within a transaction
func (c *CachedRepository[T]) DeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	err := c.Repository.DeleteTx(ctx, tx, record)
	if err == nil {
		c.invalidateRecords(ctx, []T{record})
	}
	return err
}

// DeleteMany deletes the records matching criteria. The affected records are
// unknown, so every cached read of the family is expired.
func (c *CachedRepository[T]) DeleteMany(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	err := c.Repository.DeleteMany(ctx, criteria...)
	if err == nil {
		c.invalidateAll(ctx)
	}
	return err
}

// DeleteManyTx deletes the records matching criteria within a transaction
func (c *CachedRepository[T]) DeleteManyTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	err := c.Repository.DeleteManyTx(ctx, tx, criteria...)
	if err == nil {
		c.invalidateAll(ctx)
	}
	return err
}

// DeleteWhere deletes records based on criteria
func (c *CachedRepository[T]) DeleteWhere(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	err := c.Repository.DeleteWhere(ctx, criteria...)
	if err == nil {
		c.invalidateAll(ctx)
	}
	return err
}

// DeleteWhereTx deletes records based on criteria within a transaction
func (c *CachedRepository[T]) DeleteWhereTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	err := c.Repository.DeleteWhereTx(ctx, tx, criteria...)
	if err == nil {
		c.invalidateAll(ctx)
	}
	return err
}

// ForceDelete force deletes a record (bypassing soft delete)
func (c *CachedRepository[T]) ForceDelete(ctx context.Context, record T) error {
	err := c.Repository.ForceDelete(ctx, record)
	if err == nil {
		c.invalidateRecords(ctx, []T{record})
	}
	return err
}

// ForceDeleteTx force deletes a record within a transaction
func (c *CachedRepository[T]) ForceDeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	err := c.Repository.ForceDeleteTx(ctx, tx, record)
	if err == nil {
		c.invalidateRecords(ctx, []T{record})
	}
	return err
}

func (c *CachedRepository[T]) queryPatterns() []string {
	return []string{
		c.family.Pattern(scopeRepo, scopeGet),
		c.family.Pattern(scopeRepo, scopeList),
		c.family.Pattern(scopeRepo, scopeCount),
	}
}

// invalidateQueries expires reads whose result set may change when a record
// is added.
func (c *CachedRepository[T]) invalidateQueries(ctx context.Context) {
	c.invalidate(ctx, c.queryPatterns())
}

// invalidateRecords expires the by-id and by-identifier reads of each record
// along with the query reads. When a record has no recognizable id or
// identifier the whole scope is expired.
func (c *CachedRepository[T]) invalidateRecords(ctx context.Context, groups ...[]T) {
	patterns := c.queryPatterns()
	for _, record := range slices.Concat(groups...) {
		if id, ok := fieldString(record, idFields); ok {
			patterns = append(patterns, c.family.Pattern(scopeRepo, scopeID, id))
		} else {
			patterns = append(patterns, c.family.Pattern(scopeRepo, scopeID))
		}
		if ident, ok := fieldString(record, identifierFields); ok {
			patterns = append(patterns, c.family.Pattern(scopeRepo, scopeIdentifier, ident))
		} else {
			patterns = append(patterns, c.family.Pattern(scopeRepo, scopeIdentifier))
		}
	}
	c.invalidate(ctx, patterns)
}

func (c *CachedRepository[T]) invalidateAll(ctx context.Context) {
	c.invalidate(ctx, []string{c.Pattern()})
}

func (c *CachedRepository[T]) invalidate(ctx context.Context, patterns []string) {
	seen := make(map[string]struct{}, len(patterns)+len(c.patterns))
	ordered := make([]string, 0, len(patterns)+len(c.patterns))
	for _, p := range append(patterns, c.patterns...) {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		ordered = append(ordered, p)
	}
	c.helper.DeleteByPatterns(ctx, ordered...)
}

var (
	idFields         = []string{"ID", "Id"}
	identifierFields = []string{"Identifier", "Slug", "Email", "Code", "Name"}
)

// fieldString returns the first non-zero field among names, formatted the
// way callers pass it to GetByID and GetByIdentifier.
func fieldString(record any, names []string) (string, bool) {
	v := reflect.ValueOf(record)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return "", false
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return "", false
	}

	for _, name := range names {
		field := v.FieldByName(name)
		if !field.IsValid() || !field.CanInterface() || field.IsZero() {
			continue
		}
		if s, ok := field.Interface().(fmt.Stringer); ok {
			return s.String(), true
		}
		return fmt.Sprintf("%v", field.Interface()), true
	}
	return "", false
}
