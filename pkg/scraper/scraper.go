package scraper

import (
	"context"
	"regexp"
	"strings"

	"profilesync/pkg/models"
)

// Scraper produces a Record for one identifier. A returned error marks the
// queue item FAILED; its message becomes the item's note.
type Scraper interface {
	Scrape(ctx context.Context, identifier string) (models.Record, error)
}

// Func adapts a plain function to the Scraper interface
type Func func(ctx context.Context, identifier string) (models.Record, error)

// Scrape calls f
func (f Func) Scrape(ctx context.Context, identifier string) (models.Record, error) {
	return f(ctx, identifier)
}

// maxPostPreview caps the last-post text stored in the table
const maxPostPreview = 100

var (
	spaceRun = regexp.MustCompile(`\s+`)
	digitRun = regexp.MustCompile(`\d+`)

	placeholders = map[string]bool{
		"not set": true,
		"no set":  true,
		"no city": true,
		"none":    true,
		"n/a":     true,
		"null":    true,
	}
)

// CleanText collapses whitespace and maps placeholder text to empty
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.ReplaceAll(s, "+", "")
	s = strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
	if placeholders[strings.ToLower(s)] {
		return ""
	}
	return s
}

// FirstNumber returns the first run of digits in s, or empty
func FirstNumber(s string) string {
	return digitRun.FindString(s)
}

// Numbers joins every run of digits in s; text without digits is cleaned instead
func Numbers(s string) string {
	found := digitRun.FindAllString(s, -1)
	if len(found) == 0 {
		return CleanText(s)
	}
	return strings.Join(found, ", ")
}

// Preview shortens post text to the stored length
func Preview(s string) string {
	s = CleanText(s)
	r := []rune(s)
	if len(r) > maxPostPreview {
		return string(r[:maxPostPreview]) + "..."
	}
	return s
}
