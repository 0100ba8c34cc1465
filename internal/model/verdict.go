package model

// ShippingPolicy classifies a sellable unit by who pays for shipping.
type ShippingPolicy string

const (
	// ShippingFree means the seller absorbs shipping and still clears the margin floor.
	ShippingFree ShippingPolicy = "free"
	// ShippingPaid means the buyer pays a shipping fee and the unit is still profitable.
	ShippingPaid ShippingPolicy = "paid"
	// ShippingBundleRequired means the title loses money on its own and must be bundled.
	ShippingBundleRequired ShippingPolicy = "bundle_required"
)

// PricingVerdict is the profitability decision for one catalog record.
// It is recomputed deterministically from a CatalogRecord plus
// PublisherEconomics and is never persisted on its own.
type PricingVerdict struct {
	ISBN               string
	Publisher          string
	ListPrice          int64
	SalePrice          int64
	SupplyCost         int64
	PlatformFee        int64
	GrossMargin        int64
	BuyerShippingFee   int64
	SellerShippingCost int64
	NetMargin          int64
	Policy             ShippingPolicy
	SingleSellable     bool
}
