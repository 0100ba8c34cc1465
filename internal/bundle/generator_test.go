package bundle

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookwheel/bookwheel/internal/common"
	"github.com/bookwheel/bookwheel/internal/model"
)

func seriesRecord(isbn string, listPrice int64, publisher, series string, year int) model.CatalogRecord {
	return model.CatalogRecord{
		ISBN:             isbn,
		Title:            series,
		NormalizedSeries: series,
		Publisher:        publisher,
		ListPrice:        listPrice,
		EditionYear:      year,
	}
}

func TestGenerator_Group(t *testing.T) {
	gen := New(DefaultConfig())

	records := []model.CatalogRecord{
		seriesRecord("a1", 9000, "soma", "Math Workbook", 2025),
		seriesRecord("a2", 9500, "soma", "Math Workbook", 2025),
		seriesRecord("a3", 8000, "soma", "Math Workbook", 2025),
		// Different year lands in a different partition.
		seriesRecord("b1", 9000, "soma", "Math Workbook", 2024),
		// A lone record never bundles.
		seriesRecord("c1", 7000, "gilbut", "English Starter", 2025),
		// Missing series or year cannot be grouped.
		{ISBN: "d1", ListPrice: 5000, Publisher: "soma", EditionYear: 2025},
		seriesRecord("e1", 5000, "soma", "Science Primer", 0),
	}

	candidates := gen.Group(records)
	require.Len(t, candidates, 1)
	assert.Equal(t, "soma", candidates[0].Publisher)
	assert.Equal(t, "Math Workbook", candidates[0].Series)
	assert.Equal(t, 2025, candidates[0].Year)
	assert.Len(t, candidates[0].Records, 3)
}

func TestGenerator_Group_MinSizeBoundary(t *testing.T) {
	gen := New(DefaultConfig())

	// Exactly MinSize-1 members: never a bundle.
	candidates := gen.Group([]model.CatalogRecord{
		seriesRecord("a1", 9000, "soma", "Math Workbook", 2025),
	})
	assert.Empty(t, candidates)

	// Exactly MinSize members: bundles.
	candidates = gen.Group([]model.CatalogRecord{
		seriesRecord("a1", 9000, "soma", "Math Workbook", 2025),
		seriesRecord("a2", 9000, "soma", "Math Workbook", 2025),
	})
	assert.Len(t, candidates, 1)
}

func TestGenerator_Group_CapsPartition(t *testing.T) {
	gen := New(Config{MinSize: 2, MaxSize: 3, MarginFloor: 2000, FlatShipping: 2000})

	var records []model.CatalogRecord
	for _, isbn := range []string{"a1", "a2", "a3", "a4", "a5"} {
		records = append(records, seriesRecord(isbn, 9000, "soma", "Math Workbook", 2025))
	}

	candidates := gen.Group(records)
	require.Len(t, candidates, 1)
	require.Len(t, candidates[0].Records, 3)

	// The cap keeps input order: the first three survive, the excess is
	// left ungrouped for the next run.
	assert.Equal(t, "a1", candidates[0].Records[0].ISBN)
	assert.Equal(t, "a3", candidates[0].Records[2].ISBN)
}

func TestGenerator_Group_Deterministic(t *testing.T) {
	gen := New(DefaultConfig())
	records := []model.CatalogRecord{
		seriesRecord("b1", 9000, "gilbut", "English Starter", 2025),
		seriesRecord("a1", 9000, "soma", "Math Workbook", 2025),
		seriesRecord("a2", 9000, "soma", "Math Workbook", 2025),
		seriesRecord("b2", 9000, "gilbut", "English Starter", 2025),
	}

	first := gen.Group(records)
	second := gen.Group(records)
	require.Equal(t, first, second)
	require.Len(t, first, 2)

	// Output order is sorted by composite key, independent of input order.
	assert.Equal(t, "gilbut", first[0].Publisher)
	assert.Equal(t, "soma", first[1].Publisher)
}

func TestGenerator_Evaluate_AcceptsProfitableBundle(t *testing.T) {
	// Three titles totalling 46,000 list at a 0.35 supply rate: aggregate
	// sale 41,400, supply 16,100, fee 4,554, one flat 2,000 shipping
	// charge, net margin 18,746.
	gen := New(DefaultConfig())
	candidate := model.BundleCandidate{
		Publisher: "marinbooks",
		Series:    "Coding Basics",
		Year:      2025,
		Records: []model.CatalogRecord{
			seriesRecord("x1", 16000, "marinbooks", "Coding Basics", 2025),
			seriesRecord("x2", 15000, "marinbooks", "Coding Basics", 2025),
			seriesRecord("x3", 15000, "marinbooks", "Coding Basics", 2025),
		},
	}
	econ := model.PublisherEconomics{Name: "marinbooks", SupplyRate: decimal.NewFromFloat(0.35), IsActive: true}

	sku, accepted, err := gen.Evaluate(candidate, econ)
	require.NoError(t, err)
	require.True(t, accepted)

	assert.Equal(t, int64(46000), sku.TotalListPrice)
	assert.Equal(t, int64(41400), sku.TotalSalePrice)
	assert.Equal(t, int64(16100), sku.SupplyCost)
	assert.Equal(t, int64(4554), sku.PlatformFee)
	assert.Equal(t, int64(18746), sku.NetMargin)
	assert.Equal(t, model.ShippingFree, sku.Policy)
	assert.Equal(t, "marinbooks_Coding Basics_2025", sku.Key)
	assert.Equal(t, "Coding Basics 3-volume set (2025)", sku.Name)
}

func TestGenerator_Evaluate_RejectsBelowFloor(t *testing.T) {
	// Two cheap titles at a high supply rate stay under the margin floor.
	gen := New(DefaultConfig())
	candidate := model.BundleCandidate{
		Publisher: "sinsago",
		Series:    "Grammar Drills",
		Year:      2025,
		Records: []model.CatalogRecord{
			seriesRecord("y1", 6000, "sinsago", "Grammar Drills", 2025),
			seriesRecord("y2", 6000, "sinsago", "Grammar Drills", 2025),
		},
	}
	econ := model.PublisherEconomics{Name: "sinsago", SupplyRate: decimal.NewFromFloat(0.70), IsActive: true}

	sku, accepted, err := gen.Evaluate(candidate, econ)
	require.NoError(t, err)
	assert.False(t, accepted)
	assert.Less(t, sku.NetMargin, int64(2000))
}

func TestGenerator_Evaluate_StableKey(t *testing.T) {
	gen := New(DefaultConfig())
	candidate := model.BundleCandidate{
		Publisher: "soma",
		Series:    "Math Workbook",
		Year:      2025,
		Records: []model.CatalogRecord{
			seriesRecord("a1", 15000, "soma", "Math Workbook", 2025),
			seriesRecord("a2", 15000, "soma", "Math Workbook", 2025),
		},
	}
	econ := model.PublisherEconomics{Name: "soma", SupplyRate: decimal.NewFromFloat(0.40), IsActive: true}

	first, _, err := gen.Evaluate(candidate, econ)
	require.NoError(t, err)
	second, _, err := gen.Evaluate(candidate, econ)
	require.NoError(t, err)

	// Re-running the generator never invents a new identity: the ledger's
	// unique bundle key is what dedupes persistence.
	assert.Equal(t, first.Key, second.Key)
	assert.Equal(t, first.ISBNs, second.ISBNs)
}

func TestGenerator_Evaluate_Validation(t *testing.T) {
	gen := New(DefaultConfig())
	econ := model.PublisherEconomics{Name: "soma", SupplyRate: decimal.NewFromFloat(0.40), IsActive: true}

	t.Run("mismatched constituent", func(t *testing.T) {
		candidate := model.BundleCandidate{
			Publisher: "soma",
			Series:    "Math Workbook",
			Year:      2025,
			Records: []model.CatalogRecord{
				seriesRecord("a1", 15000, "soma", "Math Workbook", 2025),
				seriesRecord("b1", 15000, "gilbut", "Math Workbook", 2025),
			},
		}
		_, _, err := gen.Evaluate(candidate, econ)
		assert.ErrorIs(t, err, common.ErrInvalidInput)
	})

	t.Run("duplicate constituents collapse below min size", func(t *testing.T) {
		candidate := model.BundleCandidate{
			Publisher: "soma",
			Series:    "Math Workbook",
			Year:      2025,
			Records: []model.CatalogRecord{
				seriesRecord("a1", 15000, "soma", "Math Workbook", 2025),
				seriesRecord("a1", 15000, "soma", "Math Workbook", 2025),
			},
		}
		_, _, err := gen.Evaluate(candidate, econ)
		assert.ErrorIs(t, err, common.ErrBundleTooSmall)
	})
}
