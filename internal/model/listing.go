package model

import "time"

// ListingState tracks a listing's lifecycle on the marketplace.
type ListingState string

const (
	// ListingPending means the planner has assigned the unit but the
	// marketplace has not confirmed it yet.
	ListingPending ListingState = "pending"
	// ListingActive means the marketplace confirmed the listing.
	ListingActive ListingState = "active"
	// ListingRemoved means the listing was withdrawn.
	ListingRemoved ListingState = "removed"
	// ListingExcluded means the listing was pulled for policy reasons.
	ListingExcluded ListingState = "excluded"
)

// ValidTransition reports whether a listing may move from its current
// state to next. The engine itself only ever creates pending listings;
// everything past pending is driven by the marketplace client's callback.
func (s ListingState) ValidTransition(next ListingState) bool {
	switch s {
	case ListingPending:
		return next == ListingActive || next == ListingRemoved || next == ListingExcluded
	case ListingActive:
		return next == ListingRemoved || next == ListingExcluded
	case ListingRemoved, ListingExcluded:
		return false
	}
	return false
}

// Listing records one sellable unit offered under one account. The
// (AccountID, UnitKey) pair is globally unique, enforced by the ledger.
type Listing struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	AccountID string
	UnitKey   string
	UnitKind  UnitKind
	SalePrice int64
	Policy    ShippingPolicy
	State     ListingState
	RunID     string // planner run that proposed this listing
	ID        int64
}
