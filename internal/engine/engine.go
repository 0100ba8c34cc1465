// Package engine orchestrates the full decision pass: margin evaluation,
// bundle generation, and distribution planning over the stored catalog.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bookwheel/bookwheel/internal/bundle"
	"github.com/bookwheel/bookwheel/internal/common"
	"github.com/bookwheel/bookwheel/internal/model"
	"github.com/bookwheel/bookwheel/internal/planner"
	"github.com/bookwheel/bookwheel/internal/pricing"
	"github.com/bookwheel/bookwheel/internal/service"
)

// Config holds configuration options for the decision engine.
type Config struct {
	// OnProgress, when set, is called after each record evaluation.
	OnProgress func(done, total int)
	// Bundle configures the bundle generator.
	Bundle bundle.Config
	// Retry configures retries for transient store errors.
	Retry service.RetryOptions
	// Workers bounds the evaluation worker pool.
	Workers int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Workers: 4,
		Bundle:  bundle.DefaultConfig(),
		Retry: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 100 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Multiplier:   2.0,
		},
	}
}

// Engine runs the pricing, bundling, and distribution pipeline.
type Engine struct {
	storage service.Storage
	planner *planner.Planner
	table   *pricing.ShippingTable
	bundler *bundle.Generator
	config  Config
}

// New creates an engine with the default configuration.
func New(storage service.Storage, table *pricing.ShippingTable) *Engine {
	return NewWithConfig(storage, table, DefaultConfig())
}

// NewWithConfig creates an engine with custom configuration.
func NewWithConfig(storage service.Storage, table *pricing.ShippingTable, config Config) *Engine {
	if config.Workers < 1 {
		config.Workers = 1
	}
	return &Engine{
		storage: storage,
		planner: planner.New(storage),
		table:   table,
		bundler: bundle.New(config.Bundle),
		config:  config,
	}
}

type evalResult struct {
	err     error
	isbn    string
	verdict model.PricingVerdict
}

// EvaluateRecords computes and persists a pricing verdict for every record
// that does not have one. Per-record failures are logged and counted, not
// returned; a record whose publisher has no configured economics is
// excluded rather than priced on a guessed rate.
func (e *Engine) EvaluateRecords(ctx context.Context, stats *service.RunStats) error {
	records, err := e.storage.GetRecordsToEvaluate(ctx)
	if err != nil {
		return fmt.Errorf("failed to load records for evaluation: %w", err)
	}
	if len(records) == 0 {
		slog.Info("no records need evaluation")
		return nil
	}

	economics, err := e.loadEconomics(ctx)
	if err != nil {
		return err
	}

	slog.Info("starting margin evaluation",
		"records", len(records),
		"publishers", len(economics),
		"workers", e.config.Workers)

	workChan := make(chan model.CatalogRecord, len(records))
	resultsChan := make(chan evalResult, len(records))
	for _, record := range records {
		workChan <- record
	}
	close(workChan)

	var wg sync.WaitGroup
	for i := 0; i < e.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for record := range workChan {
				resultsChan <- e.evaluateOne(record, economics)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	// Verdict writes stay on this goroutine; the store runs on a single
	// connection.
	done := 0
	for result := range resultsChan {
		done++
		if e.config.OnProgress != nil {
			e.config.OnProgress(done, len(records))
		}

		if result.err != nil {
			common.LogError(result.err, "record evaluation failed", common.Fields{"isbn": result.isbn})
			stats.Errored++
			continue
		}

		// Transient busy errors from the store are retried; anything else
		// aborts immediately inside WithRetry.
		verdict := result.verdict
		saveErr := common.WithRetry(ctx, func() error {
			return e.storage.SaveVerdict(ctx, &verdict)
		}, e.config.Retry)
		if saveErr != nil {
			common.LogError(saveErr, "failed to persist verdict", common.Fields{"isbn": result.isbn})
			stats.Errored++
			continue
		}

		stats.Evaluated++
		if verdict.SingleSellable {
			stats.Sellable++
		}
		if verdict.Policy == model.ShippingBundleRequired {
			stats.BundleRequired++
		}
	}

	slog.Info("margin evaluation finished",
		"evaluated", stats.Evaluated,
		"sellable", stats.Sellable,
		"bundle_required", stats.BundleRequired,
		"errored", stats.Errored)

	return nil
}

func (e *Engine) evaluateOne(record model.CatalogRecord, economics map[string]model.PublisherEconomics) evalResult {
	econ, ok := economics[record.Publisher]
	if !ok || !econ.IsActive {
		return evalResult{
			isbn: record.ISBN,
			err:  fmt.Errorf("%w: publisher %q", common.ErrMissingEconomics, record.Publisher),
		}
	}

	verdict, err := pricing.Evaluate(record, econ, e.table)
	if err != nil {
		return evalResult{isbn: record.ISBN, err: err}
	}
	return evalResult{isbn: record.ISBN, verdict: verdict}
}

func (e *Engine) loadEconomics(ctx context.Context) (map[string]model.PublisherEconomics, error) {
	publishers, err := e.storage.GetPublishers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load publisher economics: %w", err)
	}
	economics := make(map[string]model.PublisherEconomics, len(publishers))
	for _, publisher := range publishers {
		economics[publisher.Name] = publisher
	}
	return economics, nil
}

// BuildBundles groups the records rejected as singles into composite
// SKUs and persists the profitable ones. Re-running over the same catalog
// is idempotent: the stored bundle key wins and the rerun is a no-op.
func (e *Engine) BuildBundles(ctx context.Context, stats *service.RunStats) error {
	rejects, err := e.storage.GetRecordsByPolicy(ctx, model.ShippingBundleRequired)
	if err != nil {
		return fmt.Errorf("failed to load bundle-required records: %w", err)
	}
	if len(rejects) == 0 {
		slog.Info("no records require bundling")
		return nil
	}

	economics, err := e.loadEconomics(ctx)
	if err != nil {
		return err
	}

	candidates := e.bundler.Group(rejects)
	slog.Info("grouping bundle candidates", "rejects", len(rejects), "candidates", len(candidates))

	for _, candidate := range candidates {
		econ, ok := economics[candidate.Publisher]
		if !ok {
			common.LogError(common.ErrMissingEconomics, "skipping bundle candidate",
				common.Fields{"key": candidate.Key(), "publisher": candidate.Publisher})
			stats.Errored++
			continue
		}

		sku, accepted, err := e.bundler.Evaluate(candidate, econ)
		if err != nil {
			common.LogError(err, "bundle evaluation failed", common.Fields{"key": candidate.Key()})
			stats.Errored++
			continue
		}
		if !accepted {
			slog.Debug("rejected bundle candidate", "key", sku.Key, "net_margin", sku.NetMargin)
			stats.BundlesRejected++
			continue
		}

		err = e.storage.InsertBundle(ctx, &sku)
		if errors.Is(err, common.ErrDuplicateEntry) {
			slog.Debug("bundle already exists", "key", sku.Key)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to persist bundle %s: %w", sku.Key, err)
		}
		stats.BundlesCreated++
	}

	slog.Info("bundle generation finished",
		"created", stats.BundlesCreated,
		"rejected", stats.BundlesRejected)

	return nil
}

// PlanDistribution loads every sellable unit, single and bundle, and
// broadcasts them across the active accounts.
func (e *Engine) PlanDistribution(ctx context.Context, opts planner.Options, stats *service.RunStats) (*planner.Result, error) {
	units, err := e.SellableUnits(ctx)
	if err != nil {
		return nil, err
	}

	accounts, err := e.storage.GetActiveAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil, common.NewUserError(
			"no active seller accounts; add one with 'bookwheel accounts add'",
			common.ErrInvalidInput)
	}

	result, err := e.planner.Plan(ctx, units, accounts, opts)
	if err != nil {
		return nil, err
	}

	stats.Proposed += result.Stats.Proposed
	stats.AlreadyAssigned += result.Stats.AlreadyAssigned
	stats.Complete += result.Stats.Complete
	stats.Queued += result.Stats.Queued

	return result, nil
}

// SellableUnits assembles the planner input: profitable singles ordered
// by margin, then stored bundles.
func (e *Engine) SellableUnits(ctx context.Context) ([]model.SellableUnit, error) {
	records, verdicts, err := e.storage.GetSellableSingles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load sellable singles: %w", err)
	}

	units := make([]model.SellableUnit, 0, len(records))
	for i := range records {
		units = append(units, model.SingleUnit(records[i], verdicts[i]))
	}

	bundles, err := e.storage.GetBundles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load bundles: %w", err)
	}
	for _, sku := range bundles {
		units = append(units, model.BundleUnit(sku))
	}

	return units, nil
}

// Run executes the full pipeline: evaluate, bundle, plan.
func (e *Engine) Run(ctx context.Context, opts planner.Options) (*service.RunStats, *planner.Result, error) {
	start := time.Now()
	stats := &service.RunStats{}

	if err := e.EvaluateRecords(ctx, stats); err != nil {
		return nil, nil, err
	}
	if err := e.BuildBundles(ctx, stats); err != nil {
		return nil, nil, err
	}
	result, err := e.PlanDistribution(ctx, opts, stats)
	if err != nil {
		return nil, nil, err
	}

	stats.Duration = time.Since(start)
	return stats, result, nil
}
