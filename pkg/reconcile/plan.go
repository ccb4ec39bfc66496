package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"profilesync/pkg/models"
)

// TagSource supplies the TAGS column value for an identifier
type TagSource interface {
	Tags(identifier string) string
}

// Insert is a new row placed directly under the header
type Insert struct {
	Identifier string
	RowIndex   int
	Cells      []string
}

// Update rewrites an existing row and highlights the changed columns
type Update struct {
	Identifier string
	// RowIndex is the row's position after this batch's inserts landed
	RowIndex int
	Cells    []string
	Changed  []int
}

// Plan is the set of writes one batch needs, computed from a single snapshot
type Plan struct {
	WriteHeader bool
	Inserts     []Insert
	Updates     []Update
	Unchanged   []string
	Skipped     int
	Warnings    []string
}

// Empty reports whether the plan performs no writes
func (p Plan) Empty() bool {
	return !p.WriteHeader && len(p.Inserts) == 0 && len(p.Updates) == 0
}

// BuildPlan diffs a batch of records against a snapshot of the profiles
// table (header included). It has no side effects.
//
// New identifiers are inserted as one block under the header, newest capture
// first with ties broken by identifier, case-insensitively. Inserts are
// applied before updates, so every update's row index is its snapshot index
// plus the number of inserts. An existing row is updated when a mutable
// column has a new non-empty value or its tag string differs. Empty scraped
// values never overwrite stored ones. Within a batch the last record for an
// identifier wins.
func BuildPlan(records []models.Record, tags TagSource, snapshot [][]string) Plan {
	var plan Plan

	existing := make(map[string]models.RemoteRow)
	if len(snapshot) == 0 {
		plan.WriteHeader = true
	} else {
		for i, cells := range snapshot[1:] {
			row := models.RemoteRowFromCells(i+2, cells)
			if row.Identifier == "" {
				continue
			}
			if first, dup := existing[row.Identifier]; dup {
				plan.Warnings = append(plan.Warnings, fmt.Sprintf(
					"identifier %q appears on rows %d and %d; using row %d", row.Identifier, first.RowIndex, row.RowIndex, first.RowIndex))
				continue
			}
			existing[row.Identifier] = row
		}
	}

	batch, skipped := dedupe(records)
	plan.Skipped = skipped

	var inserts []models.Record
	for _, rec := range batch {
		tagStr := tags.Tags(rec.Identifier)
		row, ok := existing[rec.Identifier]
		if !ok {
			inserts = append(inserts, rec)
			continue
		}
		cells, changed := merge(row, rec, tagStr)
		if len(changed) == 0 {
			plan.Unchanged = append(plan.Unchanged, rec.Identifier)
			continue
		}
		plan.Updates = append(plan.Updates, Update{
			Identifier: rec.Identifier,
			RowIndex:   row.RowIndex,
			Cells:      cells,
			Changed:    changed,
		})
	}

	sort.SliceStable(inserts, func(i, j int) bool {
		return insertLess(inserts[i], inserts[j])
	})
	for k, rec := range inserts {
		plan.Inserts = append(plan.Inserts, Insert{
			Identifier: rec.Identifier,
			RowIndex:   2 + k,
			Cells:      rec.Cells(tags.Tags(rec.Identifier)),
		})
	}

	offset := len(plan.Inserts)
	for i := range plan.Updates {
		plan.Updates[i].RowIndex += offset
	}
	sort.Slice(plan.Updates, func(i, j int) bool {
		return plan.Updates[i].RowIndex < plan.Updates[j].RowIndex
	})

	return plan
}

// dedupe keeps the last record per identifier, in order of first appearance
func dedupe(records []models.Record) ([]models.Record, int) {
	pos := make(map[string]int)
	var out []models.Record
	skipped := 0
	for _, rec := range records {
		rec.Identifier = strings.TrimSpace(rec.Identifier)
		if rec.Identifier == "" {
			skipped++
			continue
		}
		if i, ok := pos[rec.Identifier]; ok {
			out[i] = rec
			continue
		}
		pos[rec.Identifier] = len(out)
		out = append(out, rec)
	}
	return out, skipped
}

func insertLess(a, b models.Record) bool {
	if !a.CapturedAt.Equal(b.CapturedAt) {
		return a.CapturedAt.After(b.CapturedAt)
	}
	la, lb := strings.ToLower(a.Identifier), strings.ToLower(b.Identifier)
	if la != lb {
		return la < lb
	}
	return a.Identifier < b.Identifier
}

// merge builds the row to write for an existing identifier and the list of
// changed columns. Capture columns take the new timestamp; static columns
// take non-empty new values without counting as a change.
func merge(row models.RemoteRow, rec models.Record, tagStr string) ([]string, []int) {
	fresh := rec.Cells(tagStr)
	cells := append([]string(nil), row.Cells...)
	var changed []int

	for col, def := range models.Columns {
		switch def.Kind {
		case models.KindCapture:
			cells[col] = fresh[col]
		case models.KindTags:
			if fresh[col] != row.Cells[col] {
				cells[col] = fresh[col]
				changed = append(changed, col)
			}
		case models.KindMutable:
			if fresh[col] != "" && fresh[col] != row.Cells[col] {
				cells[col] = fresh[col]
				changed = append(changed, col)
			}
		case models.KindStatic:
			if fresh[col] != "" {
				cells[col] = fresh[col]
			}
		}
	}
	return cells, changed
}
