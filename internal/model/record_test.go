package model

import "testing"

func TestExtractYear(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  int
	}{
		{name: "leading four digit year", title: "2025 CSAT Korean Workbook", want: 2025},
		{name: "trailing four digit year", title: "Concept Math Basics 2024", want: 2024},
		{name: "parenthesized year", title: "Middle School Math 1-1 (2025)", want: 2025},
		{name: "apostrophe short year", title: "EBS Prep Course '24", want: 2024},
		{name: "four digit wins over short", title: "2026 Exam Prep '24 reprint", want: 2026},
		{name: "no year", title: "High School Grammar", want: 0},
		{name: "grade number is not a year", title: "Elementary Math 5-2", want: 0},
		{name: "year outside window ignored", title: "History of 1988", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractYear(tt.title); got != tt.want {
				t.Errorf("ExtractYear(%q) = %d, want %d", tt.title, got, tt.want)
			}
		})
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		year  int
		want  string
	}{
		{name: "strips leading year", title: "2025 CSAT Korean Workbook", year: 2025, want: "CSAT Korean Workbook"},
		{name: "strips trailing year", title: "Concept Math Basics 2024", year: 2024, want: "Concept Math Basics"},
		{name: "strips apostrophe form", title: "EBS Prep Course '24", year: 2024, want: "EBS Prep Course"},
		{name: "no year leaves title alone", title: "High School Grammar", year: 0, want: "High School Grammar"},
		{name: "collapses leftover spaces", title: "Exam  2025  Prep", year: 2025, want: "Exam Prep"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTitle(tt.title, tt.year); got != tt.want {
				t.Errorf("NormalizeTitle(%q, %d) = %q, want %q", tt.title, tt.year, got, tt.want)
			}
		})
	}
}

func TestExtractSeries(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{name: "strips parenthesized qualifier", title: "Concept Math (Advanced)", want: "Concept Math"},
		{name: "strips volume marker", title: "Math Magic Vol. 3", want: "Math Magic"},
		{name: "strips bare trailing number", title: "Math Magic 2", want: "Math Magic"},
		{name: "volumes share a key", title: "Math Magic 1", want: "Math Magic"},
		{name: "plain title unchanged", title: "High School Grammar", want: "High School Grammar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractSeries(tt.title); got != tt.want {
				t.Errorf("ExtractSeries(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

func TestProcessMetadata(t *testing.T) {
	record := CatalogRecord{
		ISBN:      "9788900000001",
		Title:     "Math Magic 2 (2025)",
		Publisher: "ebspress",
		ListPrice: 12000,
	}
	record.ProcessMetadata()

	if record.EditionYear != 2025 {
		t.Errorf("EditionYear = %d, want 2025", record.EditionYear)
	}
	if record.NormalizedTitle != "Math Magic 2 ()" {
		t.Errorf("NormalizedTitle = %q", record.NormalizedTitle)
	}
	if record.NormalizedSeries != "Math Magic" {
		t.Errorf("NormalizedSeries = %q, want %q", record.NormalizedSeries, "Math Magic")
	}

	// Pre-populated fields survive reprocessing.
	record.NormalizedSeries = "Custom Series"
	record.ProcessMetadata()
	if record.NormalizedSeries != "Custom Series" {
		t.Errorf("NormalizedSeries = %q, want preset value kept", record.NormalizedSeries)
	}
}

func TestListingStateTransitions(t *testing.T) {
	tests := []struct {
		from ListingState
		to   ListingState
		want bool
	}{
		{ListingPending, ListingActive, true},
		{ListingPending, ListingRemoved, true},
		{ListingPending, ListingExcluded, true},
		{ListingActive, ListingRemoved, true},
		{ListingActive, ListingExcluded, true},
		{ListingActive, ListingPending, false},
		{ListingRemoved, ListingActive, false},
		{ListingExcluded, ListingActive, false},
		{ListingPending, ListingPending, false},
	}

	for _, tt := range tests {
		if got := tt.from.ValidTransition(tt.to); got != tt.want {
			t.Errorf("ValidTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestBundleKeyAndName(t *testing.T) {
	if got := BundleKey("ebspress", "Math Magic", 2025); got != "ebspress_Math Magic_2025" {
		t.Errorf("BundleKey() = %q", got)
	}
	if got := BundleName("Math Magic", 4, 2025); got != "Math Magic 4-volume set (2025)" {
		t.Errorf("BundleName() = %q", got)
	}
}
