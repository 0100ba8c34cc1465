// Package storage provides the data persistence layer for the bookwheel
// application, including the listing ledger.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bookwheel/bookwheel/internal/model"
)

// Validation errors.
var (
	ErrNilContext     = errors.New("context cannot be nil")
	ErrEmptyString    = errors.New("string parameter cannot be empty")
	ErrNilParameter   = errors.New("parameter cannot be nil")
	ErrEmptySlice     = errors.New("slice cannot be empty")
	ErrInvalidRecord  = errors.New("invalid catalog record")
	ErrInvalidListing = errors.New("invalid listing")
	ErrInvalidState   = errors.New("invalid listing state")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRecords validates a slice of catalog records.
func validateRecords(records []model.CatalogRecord) error {
	if records == nil {
		return fmt.Errorf("%w: records", ErrNilParameter)
	}
	if len(records) == 0 {
		return fmt.Errorf("%w: records", ErrEmptySlice)
	}

	for i, record := range records {
		if err := validateRecord(&record); err != nil {
			return fmt.Errorf("record at index %d: %w", i, err)
		}
	}
	return nil
}

// validateRecord validates a single catalog record.
func validateRecord(record *model.CatalogRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record", ErrNilParameter)
	}
	if record.ISBN == "" {
		return fmt.Errorf("%w: missing ISBN", ErrInvalidRecord)
	}
	if record.Title == "" {
		return fmt.Errorf("%w: missing title", ErrInvalidRecord)
	}
	if record.Publisher == "" {
		return fmt.Errorf("%w: missing publisher", ErrInvalidRecord)
	}
	if record.ListPrice <= 0 {
		return fmt.Errorf("%w: list price must be positive", ErrInvalidRecord)
	}
	return nil
}

// validateListing validates a listing before insert.
func validateListing(listing *model.Listing) error {
	if listing == nil {
		return fmt.Errorf("%w: listing", ErrNilParameter)
	}
	if listing.AccountID == "" {
		return fmt.Errorf("%w: missing account ID", ErrInvalidListing)
	}
	if listing.UnitKey == "" {
		return fmt.Errorf("%w: missing unit key", ErrInvalidListing)
	}
	if listing.UnitKind != model.UnitSingle && listing.UnitKind != model.UnitBundle {
		return fmt.Errorf("%w: unknown unit kind %q", ErrInvalidListing, listing.UnitKind)
	}
	if listing.SalePrice <= 0 {
		return fmt.Errorf("%w: sale price must be positive", ErrInvalidListing)
	}
	return nil
}

// validateListingState checks that a state value is one of the known
// lifecycle states.
func validateListingState(state model.ListingState) error {
	switch state {
	case model.ListingPending, model.ListingActive, model.ListingRemoved, model.ListingExcluded:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidState, state)
}
