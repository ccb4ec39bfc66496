// Package tags builds the identifier -> tag labels index from the tags
// worksheet, where each column header names a tag and each cell below it
// names a member.
package tags

import (
	"context"
	"strings"

	"profilesync/pkg/logger"
	"profilesync/pkg/table"
)

// Separator joins labels in the TAGS column
const Separator = ", "

// Labels maps worksheet headers to display labels
type Labels struct {
	DisplayNames map[string]string
	// DefaultPrefix is prepended to headers without a display name
	DefaultPrefix string
}

// Label returns the display label for a header
func (l Labels) Label(header string) string {
	if name, ok := l.DisplayNames[header]; ok {
		return name
	}
	return l.DefaultPrefix + header
}

// Index is a read-only identifier -> labels mapping
type Index struct {
	members map[string][]string
}

// Empty returns an index with no memberships
func Empty() *Index {
	return &Index{members: map[string][]string{}}
}

// Build reads the tags worksheet once. Any failure degrades to an empty
// index with a warning; tags are optional decoration.
func Build(ctx context.Context, client table.Client, worksheet string, labels Labels, l logger.Logger) *Index {
	log := logger.OrGlobal(l).WithFields(map[string]interface{}{"component": "tags", "worksheet": worksheet})
	if worksheet == "" {
		return Empty()
	}

	ws, err := client.OpenWorksheet(ctx, worksheet)
	if err != nil {
		log.WithError(err).Warn("Tags worksheet unavailable, continuing without tags")
		return Empty()
	}
	rows, err := client.ReadAllRows(ctx, ws)
	if err != nil {
		log.WithError(err).Warn("Failed to read tags, continuing without tags")
		return Empty()
	}

	idx := FromRows(rows, labels)
	log.InfoWithFields("Tag index built", map[string]interface{}{"members": len(idx.members)})
	return idx
}

// FromRows builds an index from raw rows, header first
func FromRows(rows [][]string, labels Labels) *Index {
	idx := Empty()
	if len(rows) == 0 {
		return idx
	}
	for col, header := range rows[0] {
		header = strings.TrimSpace(header)
		if header == "" {
			continue
		}
		label := labels.Label(header)
		for _, row := range rows[1:] {
			if col >= len(row) {
				continue
			}
			id := strings.TrimSpace(row[col])
			if id == "" || contains(idx.members[id], label) {
				continue
			}
			idx.members[id] = append(idx.members[id], label)
		}
	}
	return idx
}

// Lookup returns the labels for identifier in column order
func (i *Index) Lookup(identifier string) []string {
	return i.members[identifier]
}

// Tags returns the joined label string written to the TAGS column
func (i *Index) Tags(identifier string) string {
	return strings.Join(i.members[identifier], Separator)
}

// Len is the number of identifiers with at least one tag
func (i *Index) Len() int {
	return len(i.members)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
