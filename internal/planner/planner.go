// Package planner decides which seller account gets which sellable unit.
// It broadcasts every unit to every eligible account; the listing ledger's
// unique (account, unit) index is the only deduplication authority.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bookwheel/bookwheel/internal/common"
	"github.com/bookwheel/bookwheel/internal/model"
	"github.com/bookwheel/bookwheel/internal/service"
)

// UnitStatus summarizes one unit's distribution outcome.
type UnitStatus string

const (
	// StatusComplete means the unit is listed on every active account.
	StatusComplete UnitStatus = "complete"
	// StatusQueued means eligible accounts exist but capacity ran out; the
	// unit waits for a later run rather than being dropped.
	StatusQueued UnitStatus = "queued"
)

// Options are the per-invocation safety locks. There is no package-level
// state: a caller that wants a dry run or a throttle must say so on every
// call.
type Options struct {
	// RunID tags proposed listings; generated when empty.
	RunID string
	// PerAccountLimit caps new listings per account in this run. Zero
	// means unlimited.
	PerAccountLimit int
	// DryRun computes the full plan without writing to the ledger.
	DryRun bool
}

// UnitResult reports the outcome for a single unit.
type UnitResult struct {
	UnitKey  string
	Title    string
	Status   UnitStatus
	Proposed []string // account IDs that received a new listing
	Held     []string // account IDs that already had one
}

// Result is the outcome of one planning pass.
type Result struct {
	RunID    string
	Units    []UnitResult
	Listings []model.Listing
	Stats    service.RunStats
}

// Planner assigns sellable units to seller accounts.
type Planner struct {
	ledger service.Ledger
}

// New creates a planner backed by the given ledger.
func New(ledger service.Ledger) *Planner {
	return &Planner{ledger: ledger}
}

// Plan distributes units across the active accounts. An unreachable
// ledger fails the whole batch before any assignment; a duplicate
// (account, unit) conflict during insert is recoverable and counted as
// already assigned.
func (p *Planner) Plan(ctx context.Context, units []model.SellableUnit, accounts []model.Account, opts Options) (*Result, error) {
	if p.ledger == nil {
		return nil, fmt.Errorf("%w: planner has no ledger", common.ErrInvalidInput)
	}
	if opts.PerAccountLimit < 0 {
		return nil, fmt.Errorf("%w: per-account limit cannot be negative", common.ErrInvalidInput)
	}

	if err := p.ledger.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ledger unreachable, aborting plan: %w", err)
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	active := make([]model.Account, 0, len(accounts))
	for _, account := range accounts {
		if account.IsActive {
			active = append(active, account)
		}
	}

	result := &Result{RunID: runID}
	assigned := make(map[string]int, len(active)) // new listings per account this run

	for i := range units {
		unit := &units[i]
		unitResult, err := p.planUnit(ctx, unit, active, assigned, runID, opts, result)
		if err != nil {
			return nil, err
		}
		result.Units = append(result.Units, unitResult)

		switch unitResult.Status {
		case StatusComplete:
			result.Stats.Complete++
		case StatusQueued:
			result.Stats.Queued++
		}
	}

	slog.Info("distribution plan finished",
		"run_id", runID,
		"units", len(units),
		"proposed", result.Stats.Proposed,
		"already_assigned", result.Stats.AlreadyAssigned,
		"complete", result.Stats.Complete,
		"queued", result.Stats.Queued,
		"dry_run", opts.DryRun)

	return result, nil
}

func (p *Planner) planUnit(ctx context.Context, unit *model.SellableUnit, active []model.Account, assigned map[string]int, runID string, opts Options, result *Result) (UnitResult, error) {
	unitKey := unit.UnitKey()
	if unitKey == "" {
		return UnitResult{}, fmt.Errorf("%w: unit has no key", common.ErrInvalidInput)
	}

	unitResult := UnitResult{UnitKey: unitKey, Title: unit.Title()}

	held, err := p.ledger.ListedAccounts(ctx, unitKey)
	if err != nil {
		return UnitResult{}, fmt.Errorf("failed to query holders of %s: %w", unitKey, err)
	}
	heldSet := make(map[string]bool, len(held))
	for _, id := range held {
		heldSet[id] = true
		unitResult.Held = append(unitResult.Held, id)
	}

	capacityHit := false
	for _, account := range active {
		if heldSet[account.ID] {
			continue
		}
		if !p.hasCapacity(account, assigned, opts) {
			capacityHit = true
			continue
		}

		listing := model.Listing{
			AccountID: account.ID,
			UnitKey:   unitKey,
			UnitKind:  unit.Kind,
			SalePrice: unit.SalePrice,
			Policy:    unit.Policy,
			State:     model.ListingPending,
			RunID:     runID,
		}

		if !opts.DryRun {
			err := p.ledger.InsertListing(ctx, &listing)
			if errors.Is(err, common.ErrDuplicateEntry) {
				// Another run got there first. The ledger already holds
				// this pair, so treat the account as covered.
				slog.Debug("listing already held", "account", account.ID, "unit", unitKey)
				result.Stats.AlreadyAssigned++
				unitResult.Held = append(unitResult.Held, account.ID)
				continue
			}
			if err != nil {
				return UnitResult{}, fmt.Errorf("failed to propose listing %s/%s: %w", account.ID, unitKey, err)
			}
		}

		assigned[account.ID]++
		result.Stats.Proposed++
		result.Listings = append(result.Listings, listing)
		unitResult.Proposed = append(unitResult.Proposed, account.ID)
	}

	// Every active account is now held, newly proposed, or blocked on
	// capacity; only the last keeps the unit from full coverage.
	if capacityHit {
		unitResult.Status = StatusQueued
	} else {
		unitResult.Status = StatusComplete
	}

	return unitResult, nil
}

func (p *Planner) hasCapacity(account model.Account, assigned map[string]int, opts Options) bool {
	count := assigned[account.ID]
	if account.Capacity > 0 && count >= account.Capacity {
		return false
	}
	if opts.PerAccountLimit > 0 && count >= opts.PerAccountLimit {
		return false
	}
	return true
}
