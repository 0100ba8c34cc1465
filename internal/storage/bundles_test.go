package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/bookwheel/bookwheel/internal/common"
	"github.com/bookwheel/bookwheel/internal/model"
)

func testBundle() *model.BundleSKU {
	return &model.BundleSKU{
		Key:            model.BundleKey("marinbooks", "Coding Basics", 2025),
		Name:           model.BundleName("Coding Basics", 3, 2025),
		Publisher:      "marinbooks",
		Series:         "Coding Basics",
		Year:           2025,
		ISBNs:          []string{"9788900000001", "9788900000002", "9788900000003"},
		TotalListPrice: 46000,
		TotalSalePrice: 41400,
		SupplyCost:     16100,
		PlatformFee:    4554,
		ShippingCost:   2000,
		NetMargin:      18746,
		Policy:         model.ShippingFree,
	}
}

func TestSQLiteStorage_InsertBundle(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	bundle := testBundle()
	if err := store.InsertBundle(ctx, bundle); err != nil {
		t.Fatalf("InsertBundle() error = %v", err)
	}
	if bundle.ID == 0 {
		t.Error("Expected inserted bundle to get an ID")
	}

	got, err := store.GetBundle(ctx, bundle.Key)
	if err != nil {
		t.Fatalf("GetBundle() error = %v", err)
	}
	if got.Name != bundle.Name {
		t.Errorf("Name = %q, want %q", got.Name, bundle.Name)
	}
	if got.NetMargin != 18746 {
		t.Errorf("NetMargin = %d, want 18746", got.NetMargin)
	}
	if len(got.ISBNs) != 3 || got.ISBNs[0] != "9788900000001" {
		t.Errorf("ISBNs = %v, want ordered constituents back", got.ISBNs)
	}
}

func TestSQLiteStorage_InsertBundle_Idempotent(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.InsertBundle(ctx, testBundle()); err != nil {
		t.Fatalf("First InsertBundle() error = %v", err)
	}

	// A generator re-run produces the same composite key.
	err := store.InsertBundle(ctx, testBundle())
	if !errors.Is(err, common.ErrDuplicateEntry) {
		t.Fatalf("Expected ErrDuplicateEntry on re-insert, got %v", err)
	}

	bundles, err := store.GetBundles(ctx)
	if err != nil {
		t.Fatalf("GetBundles() error = %v", err)
	}
	if len(bundles) != 1 {
		t.Errorf("Expected 1 bundle after re-insert, got %d", len(bundles))
	}
}

func TestSQLiteStorage_InsertBundle_TooFewConstituents(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	bundle := testBundle()
	bundle.ISBNs = bundle.ISBNs[:1]
	if err := store.InsertBundle(ctx, bundle); !errors.Is(err, common.ErrBundleTooSmall) {
		t.Errorf("Expected ErrBundleTooSmall, got %v", err)
	}
}

func TestSQLiteStorage_GetBundle_NotFound(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.GetBundle(ctx, "nobody_Nothing_2020")
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
