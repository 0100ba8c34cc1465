package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bookwheel/bookwheel/internal/cli"
	"github.com/bookwheel/bookwheel/internal/engine"
	"github.com/bookwheel/bookwheel/internal/service"
)

func bundleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bundle",
		Short: "Group unprofitable titles into series bundles",
		Long: `Partition records classified bundle_required by publisher, series,
and edition year, then keep the partitions whose aggregate margin over a
single flat shipping charge clears the bundle floor.`,
		RunE: runBundle,
	}
}

func runBundle(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

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
	if err := engine.New(store, table).BuildBundles(ctx, stats); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Bundles created: %d, rejected: %d",
		stats.BundlesCreated, stats.BundlesRejected)))

	bundles, err := store.GetBundles(ctx)
	if err != nil {
		return fmt.Errorf("failed to load bundles: %w", err)
	}
	if len(bundles) == 0 {
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tVOLUMES\tSALE PRICE\tNET MARGIN\tPOLICY")
	for _, b := range bundles {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
			b.Key, len(b.ISBNs), formatWon(b.TotalSalePrice),
			cli.StyleMargin(formatWon(b.NetMargin), b.NetMargin),
			cli.StylePolicy(string(b.Policy)))
	}
	return w.Flush()
}
