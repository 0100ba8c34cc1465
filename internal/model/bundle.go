package model

import (
	"fmt"
	"time"
)

// BundleCandidate is a proposed grouping of individually-unprofitable
// records sharing publisher, series, and edition year. It becomes a
// BundleSKU only if the aggregate margin clears the bundle floor.
type BundleCandidate struct {
	Publisher string
	Series    string
	Year      int
	Records   []CatalogRecord
}

// Key returns the stable composite key shared with BundleSKU.
func (c *BundleCandidate) Key() string {
	return BundleKey(c.Publisher, c.Series, c.Year)
}

// BundleSKU is a composite sellable unit grouping multiple titles so that
// a single shipping charge is amortized across them.
type BundleSKU struct {
	CreatedAt      time.Time
	Key            string
	Name           string
	Publisher      string
	Series         string
	ISBNs          []string // ordered, deduplicated constituents
	Year           int
	TotalListPrice int64
	TotalSalePrice int64
	SupplyCost     int64
	PlatformFee    int64
	ShippingCost   int64
	NetMargin      int64
	Policy         ShippingPolicy
	ID             int64
}

// BundleKey builds the stable composite key for a publisher/series/year
// grouping. Re-running the generator on the same inputs yields the same
// key, which is what the ledger's uniqueness check guards on.
func BundleKey(publisher, series string, year int) string {
	return fmt.Sprintf("%s_%s_%d", publisher, series, year)
}

// BundleName builds the marketplace-facing display name.
func BundleName(series string, count, year int) string {
	return fmt.Sprintf("%s %d-volume set (%d)", series, count, year)
}
