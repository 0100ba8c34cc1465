package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PublisherEconomics holds the per-publisher supply terms every pricing
// decision looks up. The rate and threshold are set once per publisher;
// changing them later does not retroactively alter issued verdicts because
// verdicts are derived, not stored.
type PublisherEconomics struct {
	CreatedAt       time.Time
	Name            string
	SupplyRate      decimal.Decimal // fraction of list price paid to the supplier, 0 < r < 1
	FreeShippingMin int64           // list price threshold for free shipping, 0 = none
	IsActive        bool
}

// Valid reports whether the economics are usable for pricing.
func (p *PublisherEconomics) Valid() bool {
	return p.Name != "" &&
		p.SupplyRate.IsPositive() &&
		p.SupplyRate.LessThan(decimal.NewFromInt(1))
}
