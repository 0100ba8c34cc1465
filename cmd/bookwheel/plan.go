package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bookwheel/bookwheel/internal/cli"
	"github.com/bookwheel/bookwheel/internal/engine"
	"github.com/bookwheel/bookwheel/internal/planner"
	"github.com/bookwheel/bookwheel/internal/service"
)

func planCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Distribute sellable units across seller accounts",
		Long: `Broadcast every sellable unit, profitable singles and accepted
bundles, to every active account that does not already hold it. The
ledger's unique (account, unit) index is the deduplication authority:
conflicts are treated as already assigned, never as failures.`,
		RunE: runPlan,
	}
	cmd.Flags().Bool("dry-run", false, "Compute the plan without writing listings")
	cmd.Flags().Int("limit", 0, "Max new listings per account this run (0 = unlimited)")
	return cmd
}

func runPlan(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	limit, _ := cmd.Flags().GetInt("limit")

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	table, err := loadShippingTable()
	if err != nil {
		return fmt.Errorf("failed to load shipping table: %w", err)
	}

	stats := &service.RunStats{}
	opts := planner.Options{DryRun: dryRun, PerAccountLimit: limit}
	result, err := engine.New(store, table).PlanDistribution(ctx, opts, stats)
	if err != nil {
		return err
	}

	if dryRun {
		fmt.Println(cli.FormatWarning("Dry run: no listings were written"))
	}
	fmt.Println(cli.RenderBox("Distribution plan", formatPlanResult(result)))

	if len(result.Listings) == 0 {
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ACCOUNT\tUNIT\tKIND\tSALE PRICE\tPOLICY")
	for _, l := range result.Listings {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			l.AccountID, l.UnitKey, l.UnitKind, formatWon(l.SalePrice),
			cli.StylePolicy(string(l.Policy)))
	}
	return w.Flush()
}

func formatPlanResult(result *planner.Result) string {
	return fmt.Sprintf("Run: %s\nProposed: %d\nAlready assigned: %d\nComplete units: %d\nQueued units: %d",
		result.RunID, result.Stats.Proposed, result.Stats.AlreadyAssigned,
		result.Stats.Complete, result.Stats.Queued)
}
