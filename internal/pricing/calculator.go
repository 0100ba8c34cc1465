// Package pricing implements the margin calculator: the pure function
// turning a catalog record plus publisher economics into a profitability
// verdict.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/bookwheel/bookwheel/internal/common"
	"github.com/bookwheel/bookwheel/internal/model"
)

// Marketplace-imposed constants. The discount factor is fixed by book
// price regulation and the fee rate by the marketplace contract; neither
// is configurable per item.
var (
	// DiscountFactor converts list price to sale price.
	DiscountFactor = decimal.NewFromFloat(0.9)
	// PlatformFeeRate is charged on the sale price.
	PlatformFeeRate = decimal.NewFromFloat(0.11)
)

const (
	// FreeMarginFloor is the net margin at which a single title is listed
	// with free shipping. A net margin exactly at the floor qualifies.
	FreeMarginFloor int64 = 2000
)

// MulFloor multiplies an amount in minor units by a decimal rate, flooring
// the result. All money math in the engine rounds down.
func MulFloor(amount int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(rate).Floor().IntPart()
}

// Evaluate computes the profitability verdict for one record. It is pure:
// identical inputs always yield the identical verdict. The only failure
// mode is input validation.
func Evaluate(record model.CatalogRecord, econ model.PublisherEconomics, table *ShippingTable) (model.PricingVerdict, error) {
	if record.ListPrice <= 0 {
		return model.PricingVerdict{}, fmt.Errorf("%w: list price %d for %s",
			common.ErrInvalidInput, record.ListPrice, record.ISBN)
	}
	if !econ.Valid() {
		return model.PricingVerdict{}, fmt.Errorf("%w: supply rate %s for publisher %q",
			common.ErrInvalidInput, econ.SupplyRate, econ.Name)
	}

	salePrice := MulFloor(record.ListPrice, DiscountFactor)
	supplyCost := MulFloor(record.ListPrice, econ.SupplyRate)
	platformFee := MulFloor(salePrice, PlatformFeeRate)
	grossMargin := salePrice - supplyCost - platformFee

	buyerFee := table.BuyerFee(econ.SupplyRate, record.ListPrice)
	sellerShipping := table.Ceiling - buyerFee
	netMargin := grossMargin - sellerShipping

	return model.PricingVerdict{
		ISBN:               record.ISBN,
		Publisher:          econ.Name,
		ListPrice:          record.ListPrice,
		SalePrice:          salePrice,
		SupplyCost:         supplyCost,
		PlatformFee:        platformFee,
		GrossMargin:        grossMargin,
		BuyerShippingFee:   buyerFee,
		SellerShippingCost: sellerShipping,
		NetMargin:          netMargin,
		Policy:             classify(netMargin),
		SingleSellable:     netMargin >= 0,
	}, nil
}

// classify maps net margin to a shipping policy. Ties at the free floor
// resolve to the more favorable classification.
func classify(netMargin int64) model.ShippingPolicy {
	switch {
	case netMargin >= FreeMarginFloor:
		return model.ShippingFree
	case netMargin >= 0:
		return model.ShippingPaid
	default:
		return model.ShippingBundleRequired
	}
}
