package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bookwheel/bookwheel/internal/common"
	"github.com/bookwheel/bookwheel/internal/model"
)

// SaveRecords stores catalog records. A re-ingested ISBN supersedes the
// stored row; if the list price changed, the stale verdict row is dropped
// so the record is re-evaluated on the next pass.
func (s *SQLiteStorage) SaveRecords(ctx context.Context, records []model.CatalogRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRecords(records); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO books (isbn, title, normalized_title, normalized_series, publisher, list_price, edition_year, crawled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(isbn) DO UPDATE SET
			title = excluded.title,
			normalized_title = excluded.normalized_title,
			normalized_series = excluded.normalized_series,
			publisher = excluded.publisher,
			list_price = excluded.list_price,
			edition_year = excluded.edition_year,
			crawled_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, record := range records {
		if _, err := stmt.ExecContext(ctx,
			record.ISBN,
			record.Title,
			record.NormalizedTitle,
			record.NormalizedSeries,
			record.Publisher,
			record.ListPrice,
			record.EditionYear,
		); err != nil {
			return fmt.Errorf("failed to save record %s: %w", record.ISBN, mapSQLiteError(err))
		}

		// A price change invalidates the derived verdict.
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM products WHERE isbn = ? AND list_price != ?`,
			record.ISBN, record.ListPrice,
		); err != nil {
			return fmt.Errorf("failed to invalidate verdict for %s: %w", record.ISBN, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit records: %w", err)
	}

	slog.Debug("saved catalog records", "count", len(records))
	return nil
}

// GetRecord returns one catalog record by ISBN.
func (s *SQLiteStorage) GetRecord(ctx context.Context, isbn string) (*model.CatalogRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(isbn, "isbn"); err != nil {
		return nil, err
	}

	query := `
		SELECT isbn, title, normalized_title, normalized_series, publisher, list_price, edition_year, crawled_at
		FROM books
		WHERE isbn = ?`

	var record model.CatalogRecord
	err := s.db.QueryRowContext(ctx, query, isbn).Scan(
		&record.ISBN, &record.Title, &record.NormalizedTitle, &record.NormalizedSeries,
		&record.Publisher, &record.ListPrice, &record.EditionYear, &record.CrawledAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: record %s", common.ErrNotFound, isbn)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query record: %w", err)
	}

	return &record, nil
}

// GetRecordsToEvaluate returns records without a stored verdict row.
func (s *SQLiteStorage) GetRecordsToEvaluate(ctx context.Context) ([]model.CatalogRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT b.isbn, b.title, b.normalized_title, b.normalized_series, b.publisher, b.list_price, b.edition_year, b.crawled_at
		FROM books b
		WHERE NOT EXISTS (SELECT 1 FROM products p WHERE p.isbn = b.isbn)
		ORDER BY b.isbn`

	return s.queryRecords(ctx, query)
}

// GetRecordsByPolicy returns records whose stored verdict carries the
// given shipping policy.
func (s *SQLiteStorage) GetRecordsByPolicy(ctx context.Context, policy model.ShippingPolicy) ([]model.CatalogRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT b.isbn, b.title, b.normalized_title, b.normalized_series, b.publisher, b.list_price, b.edition_year, b.crawled_at
		FROM books b
		JOIN products p ON p.isbn = b.isbn
		WHERE p.shipping_policy = ?
		ORDER BY b.isbn`

	return s.queryRecords(ctx, query, string(policy))
}

func (s *SQLiteStorage) queryRecords(ctx context.Context, query string, args ...any) ([]model.CatalogRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", mapSQLiteError(err))
	}
	defer func() { _ = rows.Close() }()

	var records []model.CatalogRecord
	for rows.Next() {
		var record model.CatalogRecord
		if err := rows.Scan(
			&record.ISBN, &record.Title, &record.NormalizedTitle, &record.NormalizedSeries,
			&record.Publisher, &record.ListPrice, &record.EditionYear, &record.CrawledAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	return records, nil
}
