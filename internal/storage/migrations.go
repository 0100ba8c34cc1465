package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a
// fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema: catalog records, publisher economics, verdicts",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS books (
					isbn TEXT PRIMARY KEY,
					title TEXT NOT NULL,
					normalized_title TEXT,
					normalized_series TEXT,
					publisher TEXT NOT NULL,
					list_price INTEGER NOT NULL,
					edition_year INTEGER DEFAULT 0,
					crawled_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_books_publisher ON books(publisher)`,
				`CREATE INDEX idx_books_series ON books(normalized_series)`,

				`CREATE TABLE IF NOT EXISTS publishers (
					name TEXT PRIMARY KEY,
					supply_rate TEXT NOT NULL,
					free_shipping_min INTEGER DEFAULT 0,
					is_active BOOLEAN DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS products (
					isbn TEXT PRIMARY KEY,
					publisher TEXT NOT NULL,
					list_price INTEGER NOT NULL,
					sale_price INTEGER NOT NULL,
					supply_cost INTEGER NOT NULL,
					platform_fee INTEGER NOT NULL,
					gross_margin INTEGER NOT NULL,
					buyer_shipping_fee INTEGER NOT NULL,
					seller_shipping_cost INTEGER NOT NULL,
					net_margin INTEGER NOT NULL,
					shipping_policy TEXT NOT NULL,
					single_sellable BOOLEAN NOT NULL,
					evaluated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (isbn) REFERENCES books(isbn)
				)`,
				`CREATE INDEX idx_products_policy ON products(shipping_policy)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Bundle SKUs, accounts, and the listing ledger",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS bundle_skus (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					bundle_key TEXT UNIQUE NOT NULL,
					bundle_name TEXT NOT NULL,
					publisher TEXT NOT NULL,
					normalized_series TEXT NOT NULL,
					edition_year INTEGER NOT NULL,
					isbns TEXT NOT NULL,
					total_list_price INTEGER NOT NULL,
					total_sale_price INTEGER NOT NULL,
					supply_cost INTEGER NOT NULL,
					platform_fee INTEGER NOT NULL,
					shipping_cost INTEGER NOT NULL,
					net_margin INTEGER NOT NULL,
					shipping_policy TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_bundles_publisher ON bundle_skus(publisher)`,

				`CREATE TABLE IF NOT EXISTS accounts (
					id TEXT PRIMARY KEY,
					is_active BOOLEAN DEFAULT 1,
					capacity INTEGER DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS listings (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					account_id TEXT NOT NULL,
					unit_key TEXT NOT NULL,
					unit_kind TEXT NOT NULL,
					sale_price INTEGER NOT NULL,
					shipping_policy TEXT NOT NULL,
					state TEXT NOT NULL DEFAULT 'pending',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (account_id) REFERENCES accounts(id)
				)`,
				// The deduplication invariant lives here, not in application code.
				`CREATE UNIQUE INDEX uix_listings_account_unit ON listings(account_id, unit_key)`,
				`CREATE INDEX idx_listings_unit ON listings(unit_key)`,
				`CREATE INDEX idx_listings_state ON listings(state)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Track the planner run that proposed each listing",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`ALTER TABLE listings ADD COLUMN run_id TEXT DEFAULT ''`)
			return err
		},
	},
}

// SchemaVersion returns the database's current schema version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// Migrate runs all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion); err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		slog.Info("Running migration",
			"version", migration.Version,
			"description", migration.Description)

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration transaction: %w", err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}

		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to set schema version: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	var finalVersion int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion); err != nil {
		return fmt.Errorf("failed to verify schema version: %w", err)
	}
	if finalVersion < ExpectedSchemaVersion {
		return fmt.Errorf("database at version %d, expected %d", finalVersion, ExpectedSchemaVersion)
	}

	return nil
}
