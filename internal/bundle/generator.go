// Package bundle groups individually-unprofitable catalog records into
// composite bundle SKUs that amortize one shipping charge across several
// titles.
package bundle

import (
	"fmt"
	"sort"
	"time"

	"github.com/bookwheel/bookwheel/internal/common"
	"github.com/bookwheel/bookwheel/internal/model"
	"github.com/bookwheel/bookwheel/internal/pricing"
)

// Config holds the grouping and acceptance parameters.
type Config struct {
	MinSize      int
	MaxSize      int
	MarginFloor  int64 // minimum aggregate net margin to accept a bundle
	FlatShipping int64 // shipping charged once per bundle regardless of size
}

// DefaultConfig returns the default bundling parameters.
func DefaultConfig() Config {
	return Config{
		MinSize:      2,
		MaxSize:      10,
		MarginFloor:  2000,
		FlatShipping: 2000,
	}
}

// Generator builds bundle candidates from records that failed the
// single-unit profitability verdict.
type Generator struct {
	cfg Config
}

// New creates a generator with the given configuration, falling back to
// defaults for unset fields.
func New(cfg Config) *Generator {
	def := DefaultConfig()
	if cfg.MinSize < 2 {
		cfg.MinSize = def.MinSize
	}
	if cfg.MaxSize < cfg.MinSize {
		cfg.MaxSize = def.MaxSize
	}
	if cfg.MarginFloor == 0 {
		cfg.MarginFloor = def.MarginFloor
	}
	if cfg.FlatShipping == 0 {
		cfg.FlatShipping = def.FlatShipping
	}
	return &Generator{cfg: cfg}
}

// Group partitions failing records by (publisher, series, year) and
// returns the partitions large enough to bundle. Records without a series
// key or edition year cannot be grouped and are skipped. Partitions over
// the size cap keep the first MaxSize records in input order; the excess
// stays ungrouped and is reconsidered on the next run.
func (g *Generator) Group(records []model.CatalogRecord) []model.BundleCandidate {
	partitions := make(map[string]*model.BundleCandidate)
	var order []string

	for _, record := range records {
		if record.NormalizedSeries == "" || record.EditionYear == 0 {
			continue
		}

		key := model.BundleKey(record.Publisher, record.NormalizedSeries, record.EditionYear)
		candidate, ok := partitions[key]
		if !ok {
			candidate = &model.BundleCandidate{
				Publisher: record.Publisher,
				Series:    record.NormalizedSeries,
				Year:      record.EditionYear,
			}
			partitions[key] = candidate
			order = append(order, key)
		}

		if len(candidate.Records) < g.cfg.MaxSize {
			candidate.Records = append(candidate.Records, record)
		}
	}

	sort.Strings(order)

	candidates := make([]model.BundleCandidate, 0, len(order))
	for _, key := range order {
		candidate := partitions[key]
		if len(candidate.Records) < g.cfg.MinSize {
			continue
		}
		candidates = append(candidates, *candidate)
	}

	return candidates
}

// Evaluate computes aggregate economics for a candidate and decides
// acceptance. The returned bool reports whether the bundle clears the
// margin floor; a rejected candidate's constituents remain unsellable and
// are not re-tried as a smaller bundle within the same run.
func (g *Generator) Evaluate(candidate model.BundleCandidate, econ model.PublisherEconomics) (model.BundleSKU, bool, error) {
	if !econ.Valid() {
		return model.BundleSKU{}, false, fmt.Errorf("%w: supply rate %s for publisher %q",
			common.ErrInvalidInput, econ.SupplyRate, econ.Name)
	}

	isbns := make([]string, 0, len(candidate.Records))
	seen := make(map[string]bool, len(candidate.Records))
	var totalListPrice int64

	for _, record := range candidate.Records {
		if record.Publisher != candidate.Publisher ||
			record.NormalizedSeries != candidate.Series ||
			record.EditionYear != candidate.Year {
			return model.BundleSKU{}, false, fmt.Errorf("%w: record %s does not share the bundle key",
				common.ErrInvalidInput, record.ISBN)
		}
		if seen[record.ISBN] {
			continue
		}
		seen[record.ISBN] = true
		isbns = append(isbns, record.ISBN)
		totalListPrice += record.ListPrice
	}

	if len(isbns) < g.cfg.MinSize {
		return model.BundleSKU{}, false, fmt.Errorf("%w: %d distinct constituents",
			common.ErrBundleTooSmall, len(isbns))
	}

	totalSalePrice := pricing.MulFloor(totalListPrice, pricing.DiscountFactor)
	supplyCost := pricing.MulFloor(totalListPrice, econ.SupplyRate)
	platformFee := pricing.MulFloor(totalSalePrice, pricing.PlatformFeeRate)
	netMargin := totalSalePrice - supplyCost - platformFee - g.cfg.FlatShipping

	policy := model.ShippingPaid
	if netMargin >= pricing.FreeMarginFloor {
		policy = model.ShippingFree
	}

	sku := model.BundleSKU{
		CreatedAt:      time.Now(),
		Key:            candidate.Key(),
		Name:           model.BundleName(candidate.Series, len(isbns), candidate.Year),
		Publisher:      candidate.Publisher,
		Series:         candidate.Series,
		ISBNs:          isbns,
		Year:           candidate.Year,
		TotalListPrice: totalListPrice,
		TotalSalePrice: totalSalePrice,
		SupplyCost:     supplyCost,
		PlatformFee:    platformFee,
		ShippingCost:   g.cfg.FlatShipping,
		NetMargin:      netMargin,
		Policy:         policy,
	}

	return sku, netMargin >= g.cfg.MarginFloor, nil
}
