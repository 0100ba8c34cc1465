package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/bookwheel/bookwheel/internal/common"
	"github.com/bookwheel/bookwheel/internal/model"
)

// SavePublisher upserts one publisher's economics. The supply rate is
// stored as its exact decimal string to avoid float drift.
func (s *SQLiteStorage) SavePublisher(ctx context.Context, publisher *model.PublisherEconomics) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if publisher == nil {
		return fmt.Errorf("%w: publisher", ErrNilParameter)
	}
	if !publisher.Valid() {
		return fmt.Errorf("%w: publisher %q with supply rate %s",
			common.ErrInvalidInput, publisher.Name, publisher.SupplyRate)
	}

	query := `
		INSERT INTO publishers (name, supply_rate, free_shipping_min, is_active)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			supply_rate = excluded.supply_rate,
			free_shipping_min = excluded.free_shipping_min,
			is_active = excluded.is_active`

	if _, err := s.db.ExecContext(ctx, query,
		publisher.Name,
		publisher.SupplyRate.String(),
		publisher.FreeShippingMin,
		publisher.IsActive,
	); err != nil {
		return fmt.Errorf("failed to save publisher %s: %w", publisher.Name, mapSQLiteError(err))
	}

	slog.Debug("saved publisher economics", "name", publisher.Name, "supply_rate", publisher.SupplyRate)
	return nil
}

// GetPublisher returns economics for one publisher. A missing publisher
// is common.ErrMissingEconomics: callers must exclude the record rather
// than default the rate.
func (s *SQLiteStorage) GetPublisher(ctx context.Context, name string) (*model.PublisherEconomics, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	query := `
		SELECT name, supply_rate, free_shipping_min, is_active, created_at
		FROM publishers
		WHERE name = ?`

	publisher, err := scanPublisher(s.db.QueryRowContext(ctx, query, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", common.ErrMissingEconomics, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query publisher: %w", err)
	}

	return publisher, nil
}

// GetPublishers returns all configured publishers.
func (s *SQLiteStorage) GetPublishers(ctx context.Context) ([]model.PublisherEconomics, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT name, supply_rate, free_shipping_min, is_active, created_at
		FROM publishers
		ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query publishers: %w", mapSQLiteError(err))
	}
	defer func() { _ = rows.Close() }()

	var publishers []model.PublisherEconomics
	for rows.Next() {
		publisher, err := scanPublisher(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan publisher: %w", err)
		}
		publishers = append(publishers, *publisher)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating publishers: %w", err)
	}

	return publishers, nil
}

func scanPublisher(row rowScanner) (*model.PublisherEconomics, error) {
	var publisher model.PublisherEconomics
	var rate string
	if err := row.Scan(
		&publisher.Name, &rate, &publisher.FreeShippingMin,
		&publisher.IsActive, &publisher.CreatedAt,
	); err != nil {
		return nil, err
	}

	parsed, err := decimal.NewFromString(rate)
	if err != nil {
		return nil, fmt.Errorf("corrupt supply rate %q: %w", rate, err)
	}
	publisher.SupplyRate = parsed

	return &publisher, nil
}
