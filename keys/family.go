package keys

import (
	"fmt"
	"strings"
)

// Delimiter separates key segments.
const Delimiter = ":"

// Wildcard is the glob token appended to patterns.
const Wildcard = "*"

// Family is the literal namespace that prefixes every key of one entity type.
type Family string

const (
	User          Family = "user"
	Session       Family = "session"
	Product       Family = "product"
	Banner        Family = "banner"
	Category      Family = "category"
	Subcategory   Family = "subcategory"
	ChildCategory Family = "childcategory"
	Order         Family = "order"
	QnA           Family = "qna"
	Review        Family = "review"
)

var families = []Family{
	User, Session, Product, Banner, Category,
	Subcategory, ChildCategory, Order, QnA, Review,
}

// Families returns every registered family in declaration order.
func Families() []Family {
	return append([]Family(nil), families...)
}

// Registered reports whether f is one of the built-in families.
func (f Family) Registered() bool {
	for _, known := range families {
		if f == known {
			return true
		}
	}
	return false
}

// Key builds a key for this family out of the given segments. Each segment is
// serialized deterministically and escaped so it can never introduce a
// delimiter or a glob token.
func (f Family) Key(segments ...any) string {
	var b strings.Builder
	b.WriteString(string(f))
	for _, s := range segments {
		b.WriteString(Delimiter)
		b.WriteString(escape(defaultSerializer.Serialize(s)))
	}
	return b.String()
}

// Pattern builds a wildcard pattern matching every key of this family whose
// leading segments equal the given ones. With no segments it matches the
// whole family.
func (f Family) Pattern(segments ...any) string {
	return f.Key(segments...) + Delimiter + Wildcard
}

// Parse splits a key produced by Family.Key back into its family and
// unescaped segments.
func Parse(key string) (Family, []string, error) {
	parts := strings.Split(key, Delimiter)
	if parts[0] == "" {
		return "", nil, fmt.Errorf("keys: empty family in %q", key)
	}

	segments := make([]string, 0, len(parts)-1)
	for _, p := range parts[1:] {
		s, err := unescape(p)
		if err != nil {
			return "", nil, fmt.Errorf("keys: segment %q of %q: %w", p, key, err)
		}
		segments = append(segments, s)
	}
	return Family(parts[0]), segments, nil
}

// FamilyOf returns the registered family a key belongs to.
func FamilyOf(key string) (Family, bool) {
	head, _, _ := strings.Cut(key, Delimiter)
	f := Family(head)
	if !f.Registered() {
		return "", false
	}
	return f, true
}

const hexDigits = "0123456789ABCDEF"

func needsEscape(c byte) bool {
	switch c {
	case '%', ':', '*', '?', '[', ']', '\\':
		return true
	}
	return false
}

func escape(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if needsEscape(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}

	out := make([]byte, 0, len(s)+2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if needsEscape(c) {
			out = append(out, '%', hexDigits[c>>4], hexDigits[c&0x0f])
			continue
		}
		out = append(out, c)
	}
	return string(out)
}

func unescape(s string) (string, error) {
	if !strings.Contains(s, "%") {
		return s, nil
	}

	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			out = append(out, s[i])
			continue
		}
		if i+2 >= len(s) {
			return "", fmt.Errorf("truncated escape")
		}
		hi, ok1 := fromHex(s[i+1])
		lo, ok2 := fromHex(s[i+2])
		if !ok1 || !ok2 {
			return "", fmt.Errorf("invalid escape %q", s[i:i+3])
		}
		out = append(out, hi<<4|lo)
		i += 2
	}
	return string(out), nil
}

func fromHex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}
