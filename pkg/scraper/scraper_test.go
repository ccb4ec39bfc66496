package scraper

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"profilesync/pkg/models"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Lahore ", "Lahore"},
		{"a\n\n b\tc", "a b c"},
		{"Not Set", ""},
		{"N/A", ""},
		{"+92 300", "92 300"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanText(tt.in), "input %q", tt.in)
	}
}

func TestNumbers(t *testing.T) {
	assert.Equal(t, "3, 2", Numbers("3 years, 2 months"))
	assert.Equal(t, "recently", Numbers(" recently "))
	assert.Equal(t, "1", FirstNumber("1,204 followers"))
	assert.Equal(t, "", FirstNumber("none"))
}

func TestPreview(t *testing.T) {
	long := strings.Repeat("é", 120)
	got := Preview(long)
	assert.Equal(t, strings.Repeat("é", 100)+"...", got)
	assert.Equal(t, "short", Preview(" short "))
}

func TestFuncAdapter(t *testing.T) {
	var s Scraper = Func(func(ctx context.Context, id string) (models.Record, error) {
		return models.Record{Identifier: id}, nil
	})
	rec, err := s.Scrape(context.Background(), "x")
	assert.NoError(t, err)
	assert.Equal(t, "x", rec.Identifier)
}
