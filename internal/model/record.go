// Package model defines the core domain models used throughout the application.
package model

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// CatalogRecord is an immutable snapshot of one title as supplied by the
// catalog crawler. Re-ingesting an ISBN with a new price supersedes the
// stored row; it never mutates it in place.
type CatalogRecord struct {
	CrawledAt        time.Time
	ISBN             string
	Title            string
	NormalizedTitle  string
	NormalizedSeries string
	Publisher        string
	ListPrice        int64 // currency minor unit
	EditionYear      int   // 0 = unknown
}

var (
	fourDigitYearRe = regexp.MustCompile(`\b(20[2-3][0-9])\b`)
	shortYearRe     = regexp.MustCompile(`'([2-3][0-9])\b`)
	parenRe         = regexp.MustCompile(`\([^)]*\)`)
	volumeRe        = regexp.MustCompile(`(?i)\b(?:vol\.?|volume|book|part)\s*\d+\b|\b\d+(?:st|nd|rd|th)\s+edition\b`)
	trailingNumRe   = regexp.MustCompile(`\s+\d+$`)
	spaceRe         = regexp.MustCompile(`\s+`)
)

// ExtractYear pulls an edition year out of a raw title. Four digit years
// between 2020 and 2039 win; an apostrophe-prefixed two digit year ('25)
// is accepted as a fallback. Returns 0 when no year is present.
func ExtractYear(title string) int {
	if m := fourDigitYearRe.FindStringSubmatch(title); m != nil {
		year, _ := strconv.Atoi(m[1])
		return year
	}

	if m := shortYearRe.FindStringSubmatch(title); m != nil {
		suffix, _ := strconv.Atoi(m[1])
		return 2000 + suffix
	}

	return 0
}

// NormalizeTitle strips the edition year from a title so that successive
// yearly editions collapse onto the same normalized form.
func NormalizeTitle(title string, year int) string {
	normalized := title

	if year > 0 {
		normalized = strings.ReplaceAll(normalized, strconv.Itoa(year), "")
		normalized = strings.ReplaceAll(normalized, "'"+strconv.Itoa(year%100), "")
	}

	return spaceRe.ReplaceAllString(strings.TrimSpace(normalized), " ")
}

// ExtractSeries reduces a normalized title to a series key used for bundle
// partitioning: parenthesized qualifiers, volume markers, and a bare
// trailing volume number are removed, so "Math Magic 1" and "Math Magic 2"
// share one key.
func ExtractSeries(normalizedTitle string) string {
	series := parenRe.ReplaceAllString(normalizedTitle, "")
	series = volumeRe.ReplaceAllString(series, "")
	series = spaceRe.ReplaceAllString(strings.TrimSpace(series), " ")
	return strings.TrimSpace(trailingNumRe.ReplaceAllString(series, ""))
}

// ProcessMetadata fills the derived fields (edition year, normalized title,
// series key) from the raw title. Already-populated fields are preserved.
func (r *CatalogRecord) ProcessMetadata() {
	if r.EditionYear == 0 {
		r.EditionYear = ExtractYear(r.Title)
	}
	if r.NormalizedTitle == "" {
		r.NormalizedTitle = NormalizeTitle(r.Title, r.EditionYear)
	}
	if r.NormalizedSeries == "" && r.NormalizedTitle != "" {
		r.NormalizedSeries = ExtractSeries(r.NormalizedTitle)
	}
}
