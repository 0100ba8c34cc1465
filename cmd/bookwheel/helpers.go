package main

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/bookwheel/bookwheel/internal/config"
	"github.com/bookwheel/bookwheel/internal/pricing"
	"github.com/bookwheel/bookwheel/internal/storage"
)

// initStorage opens the store with proper path expansion and runs any
// pending migrations.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/bookwheel/bookwheel.db"
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// loadShippingTable returns the operator-configured fee schedule, or the
// built-in default when none is configured.
func loadShippingTable() (*pricing.ShippingTable, error) {
	path := viper.GetString("pricing.shipping_table")
	if path == "" {
		return pricing.DefaultShippingTable(), nil
	}
	return pricing.LoadShippingTable(config.ExpandPath(path))
}

// formatWon renders a minor-unit amount for terminal output.
func formatWon(amount int64) string {
	return fmt.Sprintf("%d원", amount)
}
