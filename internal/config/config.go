// Package config provides configuration utilities for the application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/bookwheel/bookwheel/internal/common"
	"github.com/bookwheel/bookwheel/internal/model"
)

// ExpandPath expands ~ and environment variables in a file path.
// It handles both ~ for home directory and $VAR style environment variables.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	// First expand tilde if present
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	// Then expand environment variables
	return os.ExpandEnv(path)
}

// publisherEntry is the YAML shape of one publisher in an economics file.
// The supply rate is a string so it parses as an exact decimal.
type publisherEntry struct {
	Name            string `yaml:"name"`
	SupplyRate      string `yaml:"supply_rate"`
	FreeShippingMin int64  `yaml:"free_shipping_min"`
	Active          *bool  `yaml:"active"`
}

type economicsFile struct {
	Publishers []publisherEntry `yaml:"publishers"`
}

// LoadEconomics reads a publisher economics file. Publishers without an
// explicit active flag default to active; an invalid supply rate fails
// the whole file rather than silently skipping the publisher.
func LoadEconomics(path string) ([]model.PublisherEconomics, error) {
	data, err := os.ReadFile(ExpandPath(path)) // #nosec G304 -- operator-supplied config path
	if err != nil {
		return nil, fmt.Errorf("failed to read economics file: %w", err)
	}

	var file economicsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse economics file: %w", err)
	}
	if len(file.Publishers) == 0 {
		return nil, fmt.Errorf("%w: economics file lists no publishers", common.ErrInvalidConfig)
	}

	publishers := make([]model.PublisherEconomics, 0, len(file.Publishers))
	seen := make(map[string]bool, len(file.Publishers))
	for i, entry := range file.Publishers {
		if entry.Name == "" {
			return nil, fmt.Errorf("%w: publisher %d has no name", common.ErrInvalidConfig, i)
		}
		if seen[entry.Name] {
			return nil, fmt.Errorf("%w: publisher %q listed twice", common.ErrInvalidConfig, entry.Name)
		}
		seen[entry.Name] = true

		rate, err := decimal.NewFromString(entry.SupplyRate)
		if err != nil {
			return nil, fmt.Errorf("%w: publisher %q supply rate %q: %v",
				common.ErrInvalidConfig, entry.Name, entry.SupplyRate, err)
		}

		publisher := model.PublisherEconomics{
			Name:            entry.Name,
			SupplyRate:      rate,
			FreeShippingMin: entry.FreeShippingMin,
			IsActive:        entry.Active == nil || *entry.Active,
		}
		if !publisher.Valid() {
			return nil, fmt.Errorf("%w: publisher %q supply rate %s outside (0, 1)",
				common.ErrInvalidConfig, entry.Name, rate)
		}
		publishers = append(publishers, publisher)
	}

	return publishers, nil
}
