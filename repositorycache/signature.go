package repositorycache

import (
	"context"

	"github.com/goliatone/go-storefront-cache/keys"
)

type querySignatureKey struct{}

// WithQuerySignature describes the criteria of the next read in a form the
// cache can key on. Select criteria are closures and cannot be serialized,
// so a read that carries criteria is only cached when the caller states what
// those criteria select. Two reads with the same signature must select the
// same rows.
//
//	ctx = repositorycache.WithQuerySignature(ctx, keys.Filters{"vendor": vendorID, "page": 2})
//	products, total, err := repo.List(ctx, byVendor(vendorID), page(2))
func WithQuerySignature(ctx context.Context, filters keys.Filters) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, querySignatureKey{}, filters.Signature())
}

func querySignature(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	sig, ok := ctx.Value(querySignatureKey{}).(string)
	return sig, ok
}
