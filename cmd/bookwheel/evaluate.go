package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/bookwheel/bookwheel/internal/cli"
	"github.com/bookwheel/bookwheel/internal/engine"
	"github.com/bookwheel/bookwheel/internal/service"
)

func evaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run the margin calculator over unevaluated records",
		Long: `Compute a pricing verdict for every imported record that does not
have one: sale price at the 10% discount, supply cost, platform fee,
shipping split, and the resulting free/paid/bundle_required policy.`,
		RunE: runEvaluate,
	}
	cmd.Flags().Int("workers", engine.DefaultConfig().Workers, "Evaluation worker count")
	return cmd
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	workers, _ := cmd.Flags().GetInt("workers")

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	table, err := loadShippingTable()
	if err != nil {
		return fmt.Errorf("failed to load shipping table: %w", err)
	}

	var bar *progressbar.ProgressBar
	cfg := engine.DefaultConfig()
	cfg.Workers = workers
	cfg.OnProgress = func(_, total int) {
		if bar == nil {
			bar = newEvaluationBar(total)
		}
		if err := bar.Add(1); err != nil {
			slog.Warn("Failed to update progress bar", "error", err)
		}
	}

	stats := &service.RunStats{}
	if err := engine.NewWithConfig(store, table, cfg).EvaluateRecords(ctx, stats); err != nil {
		return err
	}

	fmt.Println(cli.RenderBox("Evaluation", formatEvaluationStats(stats)))
	return nil
}

func newEvaluationBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Evaluating records...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)
}

func formatEvaluationStats(stats *service.RunStats) string {
	return fmt.Sprintf("Evaluated: %d\nSellable singles: %d\nBundle required: %d\nErrored: %d",
		stats.Evaluated, stats.Sellable, stats.BundleRequired, stats.Errored)
}
