package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bookwheel/bookwheel/internal/common"
	"github.com/bookwheel/bookwheel/internal/model"
)

// InsertBundle persists an accepted bundle SKU. The unique bundle_key
// makes generator re-runs idempotent: a second insert of the same
// composite key returns common.ErrDuplicateEntry.
func (s *SQLiteStorage) InsertBundle(ctx context.Context, bundle *model.BundleSKU) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if bundle == nil {
		return fmt.Errorf("%w: bundle", ErrNilParameter)
	}
	if err := validateString(bundle.Key, "bundle.Key"); err != nil {
		return err
	}
	if len(bundle.ISBNs) < 2 {
		return fmt.Errorf("%w: bundle %s has %d constituents", common.ErrBundleTooSmall, bundle.Key, len(bundle.ISBNs))
	}

	isbnsJSON, err := json.Marshal(bundle.ISBNs)
	if err != nil {
		return fmt.Errorf("failed to encode constituents: %w", err)
	}

	query := `
		INSERT INTO bundle_skus (
			bundle_key, bundle_name, publisher, normalized_series, edition_year,
			isbns, total_list_price, total_sale_price, supply_cost, platform_fee,
			shipping_cost, net_margin, shipping_policy
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := s.db.ExecContext(ctx, query,
		bundle.Key,
		bundle.Name,
		bundle.Publisher,
		bundle.Series,
		bundle.Year,
		string(isbnsJSON),
		bundle.TotalListPrice,
		bundle.TotalSalePrice,
		bundle.SupplyCost,
		bundle.PlatformFee,
		bundle.ShippingCost,
		bundle.NetMargin,
		string(bundle.Policy),
	)
	if err != nil {
		return fmt.Errorf("failed to insert bundle %s: %w", bundle.Key, mapSQLiteError(err))
	}

	if id, idErr := result.LastInsertId(); idErr == nil {
		bundle.ID = id
	}

	slog.Debug("inserted bundle", "key", bundle.Key, "constituents", len(bundle.ISBNs), "net_margin", bundle.NetMargin)
	return nil
}

// GetBundle returns one bundle SKU by its composite key.
func (s *SQLiteStorage) GetBundle(ctx context.Context, key string) (*model.BundleSKU, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(key, "key"); err != nil {
		return nil, err
	}

	query := bundleSelect + ` WHERE bundle_key = ?`

	bundle, err := scanBundle(s.db.QueryRowContext(ctx, query, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: bundle %s", common.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query bundle: %w", err)
	}

	return bundle, nil
}

// GetBundles returns all persisted bundle SKUs.
func (s *SQLiteStorage) GetBundles(ctx context.Context) ([]model.BundleSKU, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, bundleSelect+` ORDER BY bundle_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to query bundles: %w", mapSQLiteError(err))
	}
	defer func() { _ = rows.Close() }()

	var bundles []model.BundleSKU
	for rows.Next() {
		bundle, err := scanBundle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bundle: %w", err)
		}
		bundles = append(bundles, *bundle)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bundles: %w", err)
	}

	return bundles, nil
}

const bundleSelect = `
	SELECT id, bundle_key, bundle_name, publisher, normalized_series, edition_year,
	       isbns, total_list_price, total_sale_price, supply_cost, platform_fee,
	       shipping_cost, net_margin, shipping_policy, created_at
	FROM bundle_skus`

func scanBundle(row rowScanner) (*model.BundleSKU, error) {
	var bundle model.BundleSKU
	var isbnsJSON, policy string
	if err := row.Scan(
		&bundle.ID, &bundle.Key, &bundle.Name, &bundle.Publisher, &bundle.Series,
		&bundle.Year, &isbnsJSON, &bundle.TotalListPrice, &bundle.TotalSalePrice,
		&bundle.SupplyCost, &bundle.PlatformFee, &bundle.ShippingCost,
		&bundle.NetMargin, &policy, &bundle.CreatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(isbnsJSON), &bundle.ISBNs); err != nil {
		return nil, fmt.Errorf("corrupt constituent list for %s: %w", bundle.Key, err)
	}
	bundle.Policy = model.ShippingPolicy(policy)

	return &bundle, nil
}
