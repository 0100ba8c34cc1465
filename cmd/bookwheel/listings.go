package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bookwheel/bookwheel/internal/cli"
	"github.com/bookwheel/bookwheel/internal/model"
	"github.com/bookwheel/bookwheel/internal/service"
)

func listingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listings",
		Short: "Inspect and update the listing ledger",
	}
	cmd.AddCommand(listingsListCmd())
	cmd.AddCommand(listingsTransitionCmd())
	return cmd
}

func listingsListCmd() *cobra.Command {
	var (
		accountID string
		state     string
		kind      string
		runID     string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ledger entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			filter := service.ListingFilter{
				AccountID: accountID,
				RunID:     runID,
				Limit:     limit,
			}
			if state != "" {
				parsed, err := parseListingState(state)
				if err != nil {
					return err
				}
				filter.State = parsed
			}
			if kind != "" {
				switch model.UnitKind(kind) {
				case model.UnitSingle, model.UnitBundle:
					filter.UnitKind = model.UnitKind(kind)
				default:
					return fmt.Errorf("unknown unit kind %q (expected single or bundle)", kind)
				}
			}

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to open storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			listings, err := store.ListListings(ctx, filter)
			if err != nil {
				return fmt.Errorf("failed to list listings: %w", err)
			}
			if len(listings) == 0 {
				fmt.Println(cli.FormatInfo("No listings match the filter"))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tACCOUNT\tUNIT\tKIND\tPRICE\tPOLICY\tSTATE\tRUN")
			for _, l := range listings {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					l.ID, l.AccountID, l.UnitKey, l.UnitKind,
					formatWon(l.SalePrice), cli.StylePolicy(string(l.Policy)),
					l.State, l.RunID)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Printf("\n%d listings\n", len(listings))
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "filter by seller account ID")
	cmd.Flags().StringVar(&state, "state", "", "filter by state (pending, active, removed, excluded)")
	cmd.Flags().StringVar(&kind, "kind", "", "filter by unit kind (single or bundle)")
	cmd.Flags().StringVar(&runID, "run", "", "filter by planner run ID")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of rows (0 for all)")
	return cmd
}

func listingsTransitionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transition <listing-id> <state>",
		Short: "Move a listing to a new lifecycle state",
		Long: `Record a marketplace state change for a listing. Only forward
transitions are allowed: pending listings may become active, removed, or
excluded; active listings may become removed or excluded; removed and
excluded are terminal.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			listingID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid listing ID %q: %w", args[0], err)
			}
			state, err := parseListingState(args[1])
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to open storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			if err := store.TransitionListing(ctx, listingID, state); err != nil {
				return fmt.Errorf("failed to transition listing %d: %w", listingID, err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Listing %d is now %s", listingID, state)))
			return nil
		},
	}
}

func parseListingState(s string) (model.ListingState, error) {
	switch model.ListingState(s) {
	case model.ListingPending, model.ListingActive, model.ListingRemoved, model.ListingExcluded:
		return model.ListingState(s), nil
	}
	return "", fmt.Errorf("unknown listing state %q (expected pending, active, removed, or excluded)", s)
}
