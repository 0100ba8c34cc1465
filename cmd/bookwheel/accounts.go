package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bookwheel/bookwheel/internal/cli"
	"github.com/bookwheel/bookwheel/internal/model"
)

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage seller accounts",
	}
	cmd.AddCommand(accountsAddCmd())
	cmd.AddCommand(accountsListCmd())
	cmd.AddCommand(accountsSetActiveCmd("activate", true))
	cmd.AddCommand(accountsSetActiveCmd("deactivate", false))
	return cmd
}

func accountsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <account-id>",
		Short: "Register a seller account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			capacity, _ := cmd.Flags().GetInt("capacity")

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to open storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			account := model.Account{ID: args[0], IsActive: true, Capacity: capacity}
			if err := store.SaveAccount(ctx, &account); err != nil {
				return fmt.Errorf("failed to save account: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Registered account %s", account.ID)))
			return nil
		},
	}
	cmd.Flags().Int("capacity", 0, "Max new listings per run (0 = unlimited)")
	return cmd
}

func accountsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List seller accounts eligible for distribution",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to open storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			accounts, err := store.GetActiveAccounts(ctx)
			if err != nil {
				return fmt.Errorf("failed to load accounts: %w", err)
			}
			if len(accounts) == 0 {
				fmt.Println(cli.FormatInfo("No active accounts; run 'bookwheel accounts add'"))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCAPACITY\tSINCE")
			for _, a := range accounts {
				capacity := "unlimited"
				if a.Capacity > 0 {
					capacity = fmt.Sprintf("%d", a.Capacity)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", a.ID, capacity, a.CreatedAt.Format("2006-01-02"))
			}
			return w.Flush()
		},
	}
}

func accountsSetActiveCmd(verb string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <account-id>",
		Short: capitalize(verb) + " a seller account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to open storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			account, err := store.GetAccount(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to load account: %w", err)
			}

			account.IsActive = active
			if err := store.SaveAccount(ctx, account); err != nil {
				return fmt.Errorf("failed to update account: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Account %s %sd", account.ID, verb)))
			return nil
		},
	}
}

func capitalize(verb string) string {
	if verb == "" {
		return verb
	}
	return string(verb[0]-'a'+'A') + verb[1:]
}
