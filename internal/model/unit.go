package model

// UnitKind discriminates the two shapes of sellable unit.
type UnitKind string

const (
	// UnitSingle is one catalog record with an accepted verdict.
	UnitSingle UnitKind = "single"
	// UnitBundle is a composite bundle SKU.
	UnitBundle UnitKind = "bundle"
)

// SellableUnit is the tagged union the distribution planner operates on:
// either a single profitable record or an accepted bundle. Exactly one of
// Record/Bundle is set, matching Kind.
type SellableUnit struct {
	Kind   UnitKind
	Record *CatalogRecord
	Bundle *BundleSKU

	SalePrice int64
	NetMargin int64
	Policy    ShippingPolicy
}

// SingleUnit wraps a catalog record and its verdict as a sellable unit.
func SingleUnit(record CatalogRecord, verdict PricingVerdict) SellableUnit {
	r := record
	return SellableUnit{
		Kind:      UnitSingle,
		Record:    &r,
		SalePrice: verdict.SalePrice,
		NetMargin: verdict.NetMargin,
		Policy:    verdict.Policy,
	}
}

// BundleUnit wraps an accepted bundle SKU as a sellable unit.
func BundleUnit(bundle BundleSKU) SellableUnit {
	b := bundle
	return SellableUnit{
		Kind:      UnitBundle,
		Bundle:    &b,
		SalePrice: b.TotalSalePrice,
		NetMargin: b.NetMargin,
		Policy:    b.Policy,
	}
}

// UnitKey returns the identifier listings are deduplicated on: the ISBN
// for singles, the composite bundle key for bundles.
func (u *SellableUnit) UnitKey() string {
	switch u.Kind {
	case UnitSingle:
		return u.Record.ISBN
	case UnitBundle:
		return u.Bundle.Key
	}
	return ""
}

// Title returns the display name for logs and reports.
func (u *SellableUnit) Title() string {
	switch u.Kind {
	case UnitSingle:
		return u.Record.Title
	case UnitBundle:
		return u.Bundle.Name
	}
	return ""
}
