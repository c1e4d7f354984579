package keys

import (
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// MaxSignatureLength bounds the canonical filter form embedded in a key.
// Longer forms are replaced by a hash.
const MaxSignatureLength = 200

// NoFilters is the signature of an empty filter set.
const NoFilters = "all"

// Filters is the set of active listing filters (brand, price range, sort,
// search text, ...) that distinguishes one listing from another.
type Filters map[string]any

// Signature returns the normalized representation of the filter set used as a
// key segment. Keys are sorted and nil or empty values are dropped, so
// {"brand": "acme", "color": ""} and {"brand": "acme"} share a signature.
func (f Filters) Signature() string {
	names := make([]string, 0, len(f))
	for name, v := range f {
		if isEmptyFilter(v) {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return NoFilters
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(defaultSerializer.Serialize(f[name])))
	}

	canonical := b.String()
	if len(canonical) <= MaxSignatureLength {
		return canonical
	}
	return "h." + strconv.FormatUint(xxhash.Sum64String(canonical), 16)
}

func isEmptyFilter(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
