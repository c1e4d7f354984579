package repositorycache

import (
	"reflect"
	"strings"
	"unicode"

	"github.com/goliatone/go-storefront-cache/keys"
)

// familyFor derives the key family from the record type. A type whose name
// folds to a registered family uses it, so *Product maps to "product" and
// ChildCategory to "childcategory". Other types fall back to snake case.
func familyFor[T any]() keys.Family {
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := t.Name()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}

	folded := fold(name)
	for _, f := range keys.Families() {
		if folded != "" && fold(string(f)) == folded {
			return f
		}
	}
	if s := toSnake(name); s != "" {
		return keys.Family(s)
	}
	return keys.Family("record")
}

// fold lowercases s and drops everything but letters and digits.
func fold(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// toSnake lowercases s and separates words with underscores. Anything that
// is not a letter or digit becomes a separator, so the result is always a
// valid key segment.
func toSnake(s string) string {
	runes := []rune(s)
	out := make([]rune, 0, len(runes)+4)
	sep := func() {
		if len(out) > 0 && out[len(out)-1] != '_' {
			out = append(out, '_')
		}
	}

	for i, r := range runes {
		switch {
		case unicode.IsUpper(r):
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					sep()
				}
			}
			out = append(out, unicode.ToLower(r))
		case unicode.IsDigit(r):
			if i > 0 && unicode.IsLetter(runes[i-1]) {
				sep()
			}
			out = append(out, r)
		case unicode.IsLetter(r):
			out = append(out, r)
		default:
			sep()
		}
	}
	return strings.Trim(string(out), "_")
}
