package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bookwheel/bookwheel/internal/common"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("Failed to get home dir: %v", err)
	}
	t.Setenv("BOOKWHEEL_TEST_DIR", "/data")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "plain path", in: "/var/lib/bookwheel.db", want: "/var/lib/bookwheel.db"},
		{name: "tilde prefix", in: "~/books.db", want: filepath.Join(home, "books.db")},
		{name: "bare tilde", in: "~", want: home},
		{name: "env var", in: "$BOOKWHEEL_TEST_DIR/books.db", want: "/data/books.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandPath(tt.in); got != tt.want {
				t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func writeEconomicsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "publishers.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	return path
}

func TestLoadEconomics(t *testing.T) {
	path := writeEconomicsFile(t, `
publishers:
  - name: marinbooks
    supply_rate: "0.35"
    free_shipping_min: 15000
  - name: ebspress
    supply_rate: "0.7"
    active: false
`)

	publishers, err := LoadEconomics(path)
	if err != nil {
		t.Fatalf("LoadEconomics() error = %v", err)
	}
	if len(publishers) != 2 {
		t.Fatalf("Expected 2 publishers, got %d", len(publishers))
	}

	if publishers[0].Name != "marinbooks" || !publishers[0].IsActive {
		t.Errorf("Expected marinbooks active by default, got %+v", publishers[0])
	}
	if publishers[0].SupplyRate.String() != "0.35" {
		t.Errorf("SupplyRate = %s, want 0.35", publishers[0].SupplyRate)
	}
	if publishers[0].FreeShippingMin != 15000 {
		t.Errorf("FreeShippingMin = %d, want 15000", publishers[0].FreeShippingMin)
	}
	if publishers[1].IsActive {
		t.Error("Expected ebspress inactive")
	}
}

func TestLoadEconomics_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "empty file", content: "publishers: []"},
		{name: "missing name", content: "publishers:\n  - supply_rate: \"0.5\""},
		{name: "bad rate", content: "publishers:\n  - name: x\n    supply_rate: cheap"},
		{name: "rate out of range", content: "publishers:\n  - name: x\n    supply_rate: \"1.2\""},
		{name: "duplicate publisher", content: "publishers:\n  - name: x\n    supply_rate: \"0.5\"\n  - name: x\n    supply_rate: \"0.6\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeEconomicsFile(t, tt.content)
			if _, err := LoadEconomics(path); !errors.Is(err, common.ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoadEconomics_MissingFile(t *testing.T) {
	if _, err := LoadEconomics(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
