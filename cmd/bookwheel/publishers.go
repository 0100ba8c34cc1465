package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bookwheel/bookwheel/internal/cli"
	"github.com/bookwheel/bookwheel/internal/config"
)

func publishersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publishers",
		Short: "Manage publisher economics",
	}
	cmd.AddCommand(publishersSyncCmd())
	cmd.AddCommand(publishersListCmd())
	return cmd
}

func publishersSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync <publishers.yaml>",
		Short: "Load publisher supply rates from a YAML file",
		Long: `Upsert publisher economics from a YAML file. A publisher's supply
rate decides both the supply cost and the buyer shipping fee bracket, so
records of publishers missing from this table are excluded from
evaluation rather than priced on a guessed rate.`,
		Args: cobra.ExactArgs(1),
		RunE: runPublishersSync,
	}
}

func runPublishersSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	publishers, err := config.LoadEconomics(args[0])
	if err != nil {
		return fmt.Errorf("failed to load economics file: %w", err)
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	for i := range publishers {
		if err := store.SavePublisher(ctx, &publishers[i]); err != nil {
			return fmt.Errorf("failed to save publisher %s: %w", publishers[i].Name, err)
		}
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Synced %d publishers", len(publishers))))
	return nil
}

func publishersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured publishers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to open storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			publishers, err := store.GetPublishers(ctx)
			if err != nil {
				return fmt.Errorf("failed to load publishers: %w", err)
			}
			if len(publishers) == 0 {
				fmt.Println(cli.FormatInfo("No publishers configured; run 'bookwheel publishers sync'"))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSUPPLY RATE\tFREE SHIPPING MIN\tACTIVE")
			for _, p := range publishers {
				fmt.Fprintf(w, "%s\t%s\t%s\t%v\n",
					p.Name, p.SupplyRate, formatWon(p.FreeShippingMin), p.IsActive)
			}
			return w.Flush()
		},
	}
}
