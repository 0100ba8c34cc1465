package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bookwheel/bookwheel/internal/common"
	"github.com/bookwheel/bookwheel/internal/model"
)

// SaveVerdict persists the derived verdict row for one record. Verdicts
// are regenerated, never mutated, so this is a plain replace.
func (s *SQLiteStorage) SaveVerdict(ctx context.Context, verdict *model.PricingVerdict) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if verdict == nil {
		return fmt.Errorf("%w: verdict", ErrNilParameter)
	}
	if err := validateString(verdict.ISBN, "verdict.ISBN"); err != nil {
		return err
	}

	query := `
		INSERT OR REPLACE INTO products (
			isbn, publisher, list_price, sale_price, supply_cost, platform_fee,
			gross_margin, buyer_shipping_fee, seller_shipping_cost, net_margin,
			shipping_policy, single_sellable, evaluated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`

	if _, err := s.db.ExecContext(ctx, query,
		verdict.ISBN,
		verdict.Publisher,
		verdict.ListPrice,
		verdict.SalePrice,
		verdict.SupplyCost,
		verdict.PlatformFee,
		verdict.GrossMargin,
		verdict.BuyerShippingFee,
		verdict.SellerShippingCost,
		verdict.NetMargin,
		string(verdict.Policy),
		verdict.SingleSellable,
	); err != nil {
		return fmt.Errorf("failed to save verdict for %s: %w", verdict.ISBN, mapSQLiteError(err))
	}

	return nil
}

// GetVerdict returns the stored verdict row for one ISBN.
func (s *SQLiteStorage) GetVerdict(ctx context.Context, isbn string) (*model.PricingVerdict, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(isbn, "isbn"); err != nil {
		return nil, err
	}

	query := `
		SELECT isbn, publisher, list_price, sale_price, supply_cost, platform_fee,
		       gross_margin, buyer_shipping_fee, seller_shipping_cost, net_margin,
		       shipping_policy, single_sellable
		FROM products
		WHERE isbn = ?`

	verdict, err := scanVerdict(s.db.QueryRowContext(ctx, query, isbn))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: verdict for %s", common.ErrNotFound, isbn)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query verdict: %w", err)
	}

	return verdict, nil
}

// GetSellableSingles returns every record whose stored verdict allows a
// single-unit listing, paired with its verdict.
func (s *SQLiteStorage) GetSellableSingles(ctx context.Context) ([]model.CatalogRecord, []model.PricingVerdict, error) {
	if err := validateContext(ctx); err != nil {
		return nil, nil, err
	}

	query := `
		SELECT b.isbn, b.title, b.normalized_title, b.normalized_series, b.publisher, b.list_price, b.edition_year, b.crawled_at,
		       p.sale_price, p.supply_cost, p.platform_fee, p.gross_margin,
		       p.buyer_shipping_fee, p.seller_shipping_cost, p.net_margin,
		       p.shipping_policy, p.single_sellable
		FROM books b
		JOIN products p ON p.isbn = b.isbn
		WHERE p.single_sellable = 1
		ORDER BY p.net_margin DESC, b.isbn`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query sellable singles: %w", mapSQLiteError(err))
	}
	defer func() { _ = rows.Close() }()

	var records []model.CatalogRecord
	var verdicts []model.PricingVerdict
	for rows.Next() {
		var record model.CatalogRecord
		var verdict model.PricingVerdict
		var policy string
		if err := rows.Scan(
			&record.ISBN, &record.Title, &record.NormalizedTitle, &record.NormalizedSeries,
			&record.Publisher, &record.ListPrice, &record.EditionYear, &record.CrawledAt,
			&verdict.SalePrice, &verdict.SupplyCost, &verdict.PlatformFee, &verdict.GrossMargin,
			&verdict.BuyerShippingFee, &verdict.SellerShippingCost, &verdict.NetMargin,
			&policy, &verdict.SingleSellable,
		); err != nil {
			return nil, nil, fmt.Errorf("failed to scan sellable single: %w", err)
		}
		verdict.ISBN = record.ISBN
		verdict.Publisher = record.Publisher
		verdict.ListPrice = record.ListPrice
		verdict.Policy = model.ShippingPolicy(policy)
		records = append(records, record)
		verdicts = append(verdicts, verdict)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating sellable singles: %w", err)
	}

	return records, verdicts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVerdict(row rowScanner) (*model.PricingVerdict, error) {
	var verdict model.PricingVerdict
	var policy string
	if err := row.Scan(
		&verdict.ISBN, &verdict.Publisher, &verdict.ListPrice, &verdict.SalePrice,
		&verdict.SupplyCost, &verdict.PlatformFee, &verdict.GrossMargin,
		&verdict.BuyerShippingFee, &verdict.SellerShippingCost, &verdict.NetMargin,
		&policy, &verdict.SingleSellable,
	); err != nil {
		return nil, err
	}
	verdict.Policy = model.ShippingPolicy(policy)
	return &verdict, nil
}
