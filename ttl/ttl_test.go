package ttl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/goliatone/go-storefront-cache/keys"
	"github.com/goliatone/go-storefront-cache/pkg/testsupport"
)

func TestClass_Duration(t *testing.T) {
	tests := []struct {
		class Class
		want  time.Duration
		name  string
	}{
		{Short, 5 * time.Minute, "short"},
		{Medium, 30 * time.Minute, "medium"},
		{Long, time.Hour, "long"},
		{VeryLong, 24 * time.Hour, "very_long"},
		{Class(42), 5 * time.Minute, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.class.Duration())
			assert.Equal(t, tt.name, tt.class.String())
		})
	}
}

func TestClasses_AreOrderedByVolatility(t *testing.T) {
	assert.Less(t, Short.Duration(), Medium.Duration())
	assert.Less(t, Medium.Duration(), Long.Duration())
	assert.Less(t, Long.Duration(), VeryLong.Duration())
}

func TestForFamily_CoversEveryFamily(t *testing.T) {
	for _, f := range keys.Families() {
		d := ForFamily(f)
		assert.Positive(t, d, string(f))
		assert.LessOrEqual(t, d, VeryLong.Duration(), string(f))
	}
	assert.Equal(t, Short.Duration(), ForFamily(keys.Family("cart")))
}

func TestForKey(t *testing.T) {
	assert.Equal(t, Product, ForKey(keys.ProductByID("42")))
	assert.Equal(t, 1800*time.Second, ForKey(keys.ProductByID("42")))
	assert.Equal(t, Session, ForKey(keys.SessionByID("s1")))
	assert.Equal(t, Short.Duration(), ForKey("unknown:key"))
}

func TestForFamily_Golden(t *testing.T) {
	table := make(map[string]string, len(keys.Families()))
	for _, f := range keys.Families() {
		table[string(f)] = ForFamily(f).String()
	}
	testsupport.CompareWithGoldenJSON(t, testsupport.GoldenPath("family_ttls.json"), table)
}
