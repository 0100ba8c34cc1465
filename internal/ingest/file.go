// Package ingest supplies catalog records from external sources. The
// engine core only sees the service.CatalogSource contract; this package
// holds the file-based implementation used by the import command.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/bookwheel/bookwheel/internal/common"
	"github.com/bookwheel/bookwheel/internal/model"
)

// rawRecord is the JSON shape of one crawled catalog entry.
type rawRecord struct {
	ISBN        string `json:"isbn"`
	Title       string `json:"title"`
	Publisher   string `json:"publisher"`
	ListPrice   int64  `json:"list_price"`
	EditionYear int    `json:"edition_year"`
}

// FileSource reads catalog records from a crawler-produced JSON file.
type FileSource struct {
	path string
}

// NewFileSource creates a source backed by the given file.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Fetch parses the file and returns normalized records. Entries missing
// an ISBN, title, publisher, or positive list price fail the whole fetch:
// a partially-broken crawl should be fixed, not half-imported.
func (s *FileSource) Fetch(ctx context.Context) ([]model.CatalogRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path) // #nosec G304 -- operator-supplied import path
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var raw []rawRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: catalog file contains no records", common.ErrInvalidInput)
	}

	records := make([]model.CatalogRecord, 0, len(raw))
	seen := make(map[string]int, len(raw))
	for i, entry := range raw {
		if entry.ISBN == "" || entry.Title == "" || entry.Publisher == "" {
			return nil, fmt.Errorf("%w: entry %d missing isbn, title, or publisher",
				common.ErrInvalidInput, i)
		}
		if entry.ListPrice <= 0 {
			return nil, fmt.Errorf("%w: entry %d list price %d",
				common.ErrInvalidInput, i, entry.ListPrice)
		}
		if prev, dup := seen[entry.ISBN]; dup {
			// Later crawl entries supersede earlier ones within a file.
			slog.Debug("duplicate ISBN in catalog file, keeping latest",
				"isbn", entry.ISBN, "first_entry", prev, "entry", i)
		}
		seen[entry.ISBN] = i

		record := model.CatalogRecord{
			ISBN:        entry.ISBN,
			Title:       entry.Title,
			Publisher:   entry.Publisher,
			ListPrice:   entry.ListPrice,
			EditionYear: entry.EditionYear,
		}
		record.ProcessMetadata()
		records = upsertRecord(records, record)
	}

	slog.Info("fetched catalog records", "path", s.path, "records", len(records))
	return records, nil
}

func upsertRecord(records []model.CatalogRecord, record model.CatalogRecord) []model.CatalogRecord {
	for i := range records {
		if records[i].ISBN == record.ISBN {
			records[i] = record
			return records
		}
	}
	return append(records, record)
}
