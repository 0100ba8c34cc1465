package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bookwheel/bookwheel/internal/cli"
	"github.com/bookwheel/bookwheel/internal/ingest"
)

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <catalog.json>",
		Short: "Import crawled catalog records",
		Long: `Read a crawler-produced JSON catalog, normalize title metadata
(edition year, series key), and store the records. Re-importing an ISBN
supersedes the stored row; a price change queues the record for
re-evaluation.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	records, err := ingest.NewFileSource(args[0]).Fetch(ctx)
	if err != nil {
		return fmt.Errorf("failed to read catalog: %w", err)
	}

	if err := store.SaveRecords(ctx, records); err != nil {
		return fmt.Errorf("failed to save records: %w", err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Imported %d catalog records", len(records))))
	return nil
}
