package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bookwheel/bookwheel/internal/cli"
	"github.com/bookwheel/bookwheel/internal/engine"
	"github.com/bookwheel/bookwheel/internal/planner"
	"github.com/bookwheel/bookwheel/internal/service"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline: evaluate, bundle, plan",
		RunE:  runPipeline,
	}
	cmd.Flags().Bool("dry-run", false, "Plan distribution without writing listings")
	cmd.Flags().Int("limit", 0, "Max new listings per account this run (0 = unlimited)")
	return cmd
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	limit, _ := cmd.Flags().GetInt("limit")

	handler := cli.NewInterruptHandler(os.Stdout)
	ctx := handler.HandleInterrupts(cmd.Context())

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	table, err := loadShippingTable()
	if err != nil {
		return fmt.Errorf("failed to load shipping table: %w", err)
	}

	opts := planner.Options{DryRun: dryRun, PerAccountLimit: limit}
	stats, result, err := engine.New(store, table).Run(ctx, opts)
	if err != nil {
		if handler.WasInterrupted() {
			return nil
		}
		return err
	}

	fmt.Println(cli.RenderBox("Run summary", formatRunStats(stats, result)))
	return nil
}

func formatRunStats(stats *service.RunStats, result *planner.Result) string {
	return fmt.Sprintf(
		"Run: %s\nEvaluated: %d\nSellable singles: %d\nBundle required: %d\n"+
			"Bundles created: %d (rejected %d)\nProposed listings: %d\n"+
			"Already assigned: %d\nComplete units: %d\nQueued units: %d\n"+
			"Errored: %d\nDuration: %s",
		result.RunID, stats.Evaluated, stats.Sellable, stats.BundleRequired,
		stats.BundlesCreated, stats.BundlesRejected, stats.Proposed,
		stats.AlreadyAssigned, stats.Complete, stats.Queued,
		stats.Errored, stats.Duration.Round(time.Millisecond))
}
