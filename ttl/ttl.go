// Package ttl holds the expiration policy for cached storefront data.
//
// Durations are grouped into volatility classes, with entity-specific
// overrides where a family's data changes faster or slower than its class.
// Callers pick the TTL; the cache helper never infers one.
package ttl

import (
	"time"

	"github.com/goliatone/go-storefront-cache/keys"
)

// Class is a volatility class.
type Class int

const (
	Short Class = iota
	Medium
	Long
	VeryLong
)

var classDurations = map[Class]time.Duration{
	Short:    5 * time.Minute,
	Medium:   30 * time.Minute,
	Long:     time.Hour,
	VeryLong: 24 * time.Hour,
}

// Duration returns the expiration for the class. Unknown classes fall back to
// Short.
func (c Class) Duration() time.Duration {
	if d, ok := classDurations[c]; ok {
		return d
	}
	return classDurations[Short]
}

func (c Class) String() string {
	switch c {
	case Short:
		return "short"
	case Medium:
		return "medium"
	case Long:
		return "long"
	case VeryLong:
		return "very_long"
	}
	return "unknown"
}

// Entity overrides.
const (
	UserProfile      = 15 * time.Minute
	Session          = 24 * time.Hour
	Product          = 30 * time.Minute
	ProductList      = 10 * time.Minute
	ProductSearch    = 5 * time.Minute
	FeaturedProducts = time.Hour
	Banner           = time.Hour
	Category         = 6 * time.Hour
	CategoryTree     = 24 * time.Hour
	Order            = 5 * time.Minute
	OrderList        = 2 * time.Minute
	Review           = 30 * time.Minute
	ReviewSummary    = time.Hour
	QnA              = 30 * time.Minute
)

var familyDefaults = map[keys.Family]time.Duration{
	keys.User:          UserProfile,
	keys.Session:       Session,
	keys.Product:       Product,
	keys.Banner:        Banner,
	keys.Category:      Category,
	keys.Subcategory:   Category,
	keys.ChildCategory: Category,
	keys.Order:         Order,
	keys.QnA:           QnA,
	keys.Review:        Review,
}

// ForFamily returns the default TTL for a key family. Unregistered families
// get the Short class.
func ForFamily(f keys.Family) time.Duration {
	if d, ok := familyDefaults[f]; ok {
		return d
	}
	return Short.Duration()
}

// ForKey resolves the family of a registry key and returns its default TTL.
func ForKey(key string) time.Duration {
	f, _ := keys.FamilyOf(key)
	return ForFamily(f)
}
