// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/bookwheel/bookwheel/internal/model"
)

// ListingFilter defines filtering options for ledger queries.
type ListingFilter struct {
	AccountID string
	UnitKey   string
	UnitKind  model.UnitKind
	State     model.ListingState
	RunID     string
	Limit     int
}

// Ledger is the durable record of (account, unit) assignments. It is the
// only shared-mutation point in the engine; uniqueness of the
// (account, unit) pair is enforced by the ledger's insert, not by callers.
type Ledger interface {
	// Ping verifies the ledger is reachable. Planner runs call this before
	// any assignment so an unreachable store fails the whole batch up front.
	Ping(ctx context.Context) error
	// Exists reports whether the account already holds a listing for the unit.
	Exists(ctx context.Context, accountID, unitKey string) (bool, error)
	// InsertListing creates a pending listing. A duplicate (account, unit)
	// pair returns common.ErrDuplicateEntry; callers treat it as already
	// assigned, not as a failure.
	InsertListing(ctx context.Context, listing *model.Listing) error
	// ListedAccounts returns the IDs of accounts holding any listing for the unit.
	ListedAccounts(ctx context.Context, unitKey string) ([]string, error)
	// TransitionListing moves a listing to a new lifecycle state.
	TransitionListing(ctx context.Context, listingID int64, state model.ListingState) error
	// ListListings returns listings matching the filter.
	ListListings(ctx context.Context, filter ListingFilter) ([]model.Listing, error)
}

// Storage defines the contract for the persistence layer.
type Storage interface {
	Ledger

	// Catalog record operations
	SaveRecords(ctx context.Context, records []model.CatalogRecord) error
	GetRecord(ctx context.Context, isbn string) (*model.CatalogRecord, error)
	GetRecordsToEvaluate(ctx context.Context) ([]model.CatalogRecord, error)
	GetRecordsByPolicy(ctx context.Context, policy model.ShippingPolicy) ([]model.CatalogRecord, error)

	// Verdict persistence (derived rows, regenerated on each evaluation)
	SaveVerdict(ctx context.Context, verdict *model.PricingVerdict) error
	GetVerdict(ctx context.Context, isbn string) (*model.PricingVerdict, error)
	GetSellableSingles(ctx context.Context) ([]model.CatalogRecord, []model.PricingVerdict, error)

	// Publisher economics operations
	SavePublisher(ctx context.Context, publisher *model.PublisherEconomics) error
	GetPublisher(ctx context.Context, name string) (*model.PublisherEconomics, error)
	GetPublishers(ctx context.Context) ([]model.PublisherEconomics, error)

	// Bundle operations
	InsertBundle(ctx context.Context, bundle *model.BundleSKU) error
	GetBundle(ctx context.Context, key string) (*model.BundleSKU, error)
	GetBundles(ctx context.Context) ([]model.BundleSKU, error)

	// Account operations
	SaveAccount(ctx context.Context, account *model.Account) error
	GetAccount(ctx context.Context, id string) (*model.Account, error)
	GetActiveAccounts(ctx context.Context) ([]model.Account, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// CatalogSource supplies raw catalog records from an external crawler or
// search API. Implementations live outside the core.
type CatalogSource interface {
	Fetch(ctx context.Context) ([]model.CatalogRecord, error)
}

// Uploader consumes proposed listings and performs the authenticated
// marketplace calls. It reports back per-listing success so the caller can
// transition the ledger; the core never talks to the marketplace itself.
type Uploader interface {
	Upload(ctx context.Context, listing model.Listing) error
}

// RunStats summarizes one engine invocation for the caller. Per-record
// failures are folded into Errored rather than surfaced as errors.
type RunStats struct {
	Evaluated       int
	Sellable        int
	BundleRequired  int
	BundlesCreated  int
	BundlesRejected int
	Proposed        int
	AlreadyAssigned int
	Complete        int
	Queued          int
	Errored         int
	Duration        time.Duration
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
