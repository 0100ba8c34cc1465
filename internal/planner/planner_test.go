package planner

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookwheel/bookwheel/internal/common"
	"github.com/bookwheel/bookwheel/internal/model"
	"github.com/bookwheel/bookwheel/internal/service"
	"github.com/bookwheel/bookwheel/internal/storage"
)

func setupLedger(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func setupAccounts(t *testing.T, db *storage.SQLiteStorage, count int) []model.Account {
	t.Helper()
	ctx := context.Background()
	accounts := make([]model.Account, count)
	for i := 0; i < count; i++ {
		accounts[i] = model.Account{ID: fmt.Sprintf("acct-%d", i+1), IsActive: true}
		require.NoError(t, db.SaveAccount(ctx, &accounts[i]))
	}
	return accounts
}

func singleUnit(isbn string, salePrice, netMargin int64) model.SellableUnit {
	record := model.CatalogRecord{
		ISBN:      isbn,
		Title:     "Test Book " + isbn,
		Publisher: "marinbooks",
		ListPrice: salePrice * 10 / 9,
	}
	verdict := model.PricingVerdict{
		ISBN:           isbn,
		SalePrice:      salePrice,
		NetMargin:      netMargin,
		Policy:         model.ShippingPaid,
		SingleSellable: true,
	}
	return model.SingleUnit(record, verdict)
}

func TestPlanner_BroadcastsToUncoveredAccounts(t *testing.T) {
	db := setupLedger(t)
	ctx := context.Background()
	accounts := setupAccounts(t, db, 5)

	unit := singleUnit("9788900000001", 13500, 715)

	// Two accounts already hold the unit from an earlier run.
	for _, id := range []string{"acct-2", "acct-4"} {
		require.NoError(t, db.InsertListing(ctx, &model.Listing{
			AccountID: id,
			UnitKey:   unit.UnitKey(),
			UnitKind:  model.UnitSingle,
			SalePrice: 13500,
			Policy:    model.ShippingPaid,
			RunID:     "earlier-run",
		}))
	}

	result, err := New(db).Plan(ctx, []model.SellableUnit{unit}, accounts, Options{})
	require.NoError(t, err)

	// Exactly the three uncovered accounts get a proposal, no more.
	assert.Equal(t, 3, result.Stats.Proposed)
	assert.Len(t, result.Listings, 3)
	assert.Equal(t, 1, result.Stats.Complete)
	assert.Equal(t, 0, result.Stats.Queued)

	require.Len(t, result.Units, 1)
	assert.Equal(t, StatusComplete, result.Units[0].Status)
	assert.ElementsMatch(t, []string{"acct-1", "acct-3", "acct-5"}, result.Units[0].Proposed)
	assert.ElementsMatch(t, []string{"acct-2", "acct-4"}, result.Units[0].Held)

	for _, listing := range result.Listings {
		assert.Equal(t, model.ListingPending, listing.State)
		assert.Equal(t, result.RunID, listing.RunID)
		assert.NotZero(t, listing.ID)
	}

	held, err := db.ListedAccounts(ctx, unit.UnitKey())
	require.NoError(t, err)
	assert.Len(t, held, 5)
}

func TestPlanner_RerunIsNoOp(t *testing.T) {
	db := setupLedger(t)
	ctx := context.Background()
	accounts := setupAccounts(t, db, 3)

	units := []model.SellableUnit{singleUnit("9788900000001", 13500, 715)}
	planner := New(db)

	first, err := planner.Plan(ctx, units, accounts, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, first.Stats.Proposed)

	// The second run sees every account as held and proposes nothing.
	second, err := planner.Plan(ctx, units, accounts, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Stats.Proposed)
	assert.Equal(t, 1, second.Stats.Complete)
	assert.Empty(t, second.Listings)

	listings, err := db.ListListings(ctx, service.ListingFilter{UnitKey: units[0].UnitKey()})
	require.NoError(t, err)
	assert.Len(t, listings, 3)
}

func TestPlanner_DryRunWritesNothing(t *testing.T) {
	db := setupLedger(t)
	ctx := context.Background()
	accounts := setupAccounts(t, db, 4)

	units := []model.SellableUnit{singleUnit("9788900000001", 13500, 715)}

	result, err := New(db).Plan(ctx, units, accounts, Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 4, result.Stats.Proposed)
	assert.Len(t, result.Listings, 4)

	listings, err := db.ListListings(ctx, service.ListingFilter{})
	require.NoError(t, err)
	assert.Empty(t, listings, "dry run must not touch the ledger")
}

func TestPlanner_CapacityQueuesUnits(t *testing.T) {
	db := setupLedger(t)
	ctx := context.Background()

	// One account that may only take a single new listing per run.
	account := model.Account{ID: "acct-1", IsActive: true, Capacity: 1}
	require.NoError(t, db.SaveAccount(ctx, &account))

	units := []model.SellableUnit{
		singleUnit("9788900000001", 13500, 715),
		singleUnit("9788900000002", 18000, 2400),
	}

	result, err := New(db).Plan(ctx, units, []model.Account{account}, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stats.Proposed)
	assert.Equal(t, 1, result.Stats.Complete)
	assert.Equal(t, 1, result.Stats.Queued)

	require.Len(t, result.Units, 2)
	assert.Equal(t, StatusComplete, result.Units[0].Status)
	assert.Equal(t, StatusQueued, result.Units[1].Status)
	assert.Empty(t, result.Units[1].Proposed, "queued unit keeps its listings for a later run")
}

func TestPlanner_PerAccountLimit(t *testing.T) {
	db := setupLedger(t)
	ctx := context.Background()
	accounts := setupAccounts(t, db, 2)

	units := []model.SellableUnit{
		singleUnit("9788900000001", 13500, 715),
		singleUnit("9788900000002", 18000, 2400),
		singleUnit("9788900000003", 20000, 3100),
	}

	result, err := New(db).Plan(ctx, units, accounts, Options{PerAccountLimit: 2})
	require.NoError(t, err)

	assert.Equal(t, 4, result.Stats.Proposed)
	assert.Equal(t, 2, result.Stats.Complete)
	assert.Equal(t, 1, result.Stats.Queued)
}

func TestPlanner_SkipsInactiveAccounts(t *testing.T) {
	db := setupLedger(t)
	ctx := context.Background()
	accounts := setupAccounts(t, db, 2)

	inactive := model.Account{ID: "acct-off", IsActive: false}
	require.NoError(t, db.SaveAccount(ctx, &inactive))
	accounts = append(accounts, inactive)

	units := []model.SellableUnit{singleUnit("9788900000001", 13500, 715)}

	result, err := New(db).Plan(ctx, units, accounts, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Stats.Proposed)

	exists, err := db.Exists(ctx, "acct-off", units[0].UnitKey())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPlanner_BundleUnits(t *testing.T) {
	db := setupLedger(t)
	ctx := context.Background()
	accounts := setupAccounts(t, db, 2)

	bundle := model.BundleSKU{
		Key:            model.BundleKey("marinbooks", "Coding Basics", 2025),
		Name:           model.BundleName("Coding Basics", 3, 2025),
		Publisher:      "marinbooks",
		Series:         "Coding Basics",
		Year:           2025,
		ISBNs:          []string{"9788900000001", "9788900000002", "9788900000003"},
		TotalSalePrice: 41400,
		NetMargin:      18746,
		Policy:         model.ShippingFree,
	}

	result, err := New(db).Plan(ctx, []model.SellableUnit{model.BundleUnit(bundle)}, accounts, Options{})
	require.NoError(t, err)

	require.Len(t, result.Listings, 2)
	for _, listing := range result.Listings {
		assert.Equal(t, model.UnitBundle, listing.UnitKind)
		assert.Equal(t, bundle.Key, listing.UnitKey)
		assert.Equal(t, int64(41400), listing.SalePrice)
	}
}

// failingLedger simulates an unreachable store.
type failingLedger struct {
	service.Ledger
}

func (f *failingLedger) Ping(_ context.Context) error {
	return fmt.Errorf("%w: connection refused", common.ErrLedgerUnavailable)
}

func TestPlanner_UnreachableLedgerFailsBatch(t *testing.T) {
	units := []model.SellableUnit{singleUnit("9788900000001", 13500, 715)}
	accounts := []model.Account{{ID: "acct-1", IsActive: true}}

	_, err := New(&failingLedger{}).Plan(context.Background(), units, accounts, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrLedgerUnavailable)
}

func TestPlanner_InvalidOptions(t *testing.T) {
	db := setupLedger(t)

	_, err := New(db).Plan(context.Background(), nil, nil, Options{PerAccountLimit: -1})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
