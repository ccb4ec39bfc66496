// Package queue is the durable work queue kept in the target worksheet
// (USERNAME | STATUS | LAST_SCRAPED | NOTES). Items are claimed by scanning
// for PENDING and committed with one ranged write per item. Delivery is
// at-least-once: an item whose commit never lands stays PENDING.
package queue

import (
	"context"
	"fmt"
	"strings"
	"time"

	errs "profilesync/pkg/errors"
	"profilesync/pkg/logger"
	"profilesync/pkg/models"
	"profilesync/pkg/table"
)

// Queue reads and commits queue items
type Queue struct {
	client table.Client
	ws     table.Worksheet
	logger logger.Logger
	now    func() time.Time
}

// Option configures a Queue
type Option func(*Queue)

// WithClock overrides the commit timestamp source
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// Open opens the queue worksheet. A missing worksheet is a setup failure.
func Open(ctx context.Context, client table.Client, name string, l logger.Logger, opts ...Option) (*Queue, error) {
	ws, err := client.OpenWorksheet(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("open queue worksheet: %w", err)
	}
	q := &Queue{
		client: client,
		ws:     ws,
		logger: logger.OrGlobal(l).WithFields(map[string]interface{}{"component": "queue", "worksheet": name}),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// Worksheet returns the underlying worksheet handle
func (q *Queue) Worksheet() table.Worksheet { return q.ws }

// LoadPending returns PENDING items in row order. Rows with an unknown
// status and repeated identifiers are skipped with a warning.
func (q *Queue) LoadPending(ctx context.Context) ([]models.QueueItem, error) {
	items, err := q.List(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]int)
	var pending []models.QueueItem
	for _, it := range items {
		if it.Status != models.StatusPending {
			continue
		}
		if first, dup := seen[it.Identifier]; dup {
			q.logger.WarnWithFields("Duplicate pending identifier ignored", map[string]interface{}{
				"identifier": it.Identifier,
				"row_index":  it.RowIndex,
				"first_row":  first,
			})
			continue
		}
		seen[it.Identifier] = it.RowIndex
		pending = append(pending, it)
	}

	q.logger.InfoWithFields("Loaded pending queue items", map[string]interface{}{
		"pending": len(pending),
		"total":   len(items),
	})
	return pending, nil
}

// List returns every well-formed queue item in row order
func (q *Queue) List(ctx context.Context) ([]models.QueueItem, error) {
	rows, err := q.client.ReadAllRows(ctx, q.ws)
	if err != nil {
		return nil, fmt.Errorf("read queue: %w", err)
	}
	if err := checkHeader(rows); err != nil {
		return nil, err
	}

	var items []models.QueueItem
	for i, row := range rows[1:] {
		rowIndex := i + 2
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		id := strings.TrimSpace(row[0])
		if len(row) < 2 {
			q.logger.WarnWithFields("Queue row has no status", map[string]interface{}{
				"identifier": id,
				"row_index":  rowIndex,
			})
			continue
		}
		status, ok := models.ParseStatus(row[1])
		if !ok {
			q.logger.WarnWithFields("Queue row has unknown status", map[string]interface{}{
				"identifier": id,
				"row_index":  rowIndex,
				"status":     row[1],
			})
			continue
		}

		item := models.QueueItem{Identifier: id, RowIndex: rowIndex, Status: status}
		if len(row) > 2 && row[2] != "" {
			if ts, err := time.ParseInLocation(models.CommittedLayout, row[2], time.Local); err == nil {
				item.CompletedAt = &ts
			}
		}
		if len(row) > 3 {
			item.LastNote = row[3]
		}
		items = append(items, item)
	}
	return items, nil
}

// CommitStatus writes status, timestamp and note for the item's row in one
// ranged update. The timestamp is only set for COMPLETED.
func (q *Queue) CommitStatus(ctx context.Context, item *models.QueueItem, status models.Status, note string) error {
	var stamp string
	var completedAt *time.Time
	if status == models.StatusCompleted {
		now := q.now()
		stamp = now.Format(models.CommittedLayout)
		completedAt = &now
	}

	start, end := table.RowRange(item.RowIndex, 1, 3)
	if err := q.client.UpdateRange(ctx, q.ws, start, end, [][]string{{string(status), stamp, note}}); err != nil {
		return fmt.Errorf("commit %s for %s (row %d): %w", status, item.Identifier, item.RowIndex, err)
	}

	item.Status = status
	item.LastNote = note
	item.CompletedAt = completedAt
	return nil
}

// Add appends PENDING rows for identifiers not already queued
func (q *Queue) Add(ctx context.Context, identifiers ...string) (int, error) {
	existing, err := q.List(ctx)
	if err != nil {
		return 0, err
	}
	known := make(map[string]bool, len(existing))
	for _, it := range existing {
		known[it.Identifier] = true
	}

	added := 0
	for _, id := range identifiers {
		id = strings.TrimSpace(id)
		if id == "" || known[id] {
			continue
		}
		if err := q.client.AppendRow(ctx, q.ws, []string{id, string(models.StatusPending), "", ""}); err != nil {
			return added, fmt.Errorf("queue %s: %w", id, err)
		}
		known[id] = true
		added++
	}
	return added, nil
}

func checkHeader(rows [][]string) error {
	if len(rows) == 0 || len(rows[0]) < 2 {
		return errs.New(errs.ErrorTypeDataAnomaly, "queue worksheet has no header row")
	}
	h0 := strings.ToUpper(rows[0][0])
	h1 := strings.ToUpper(rows[0][1])
	if !strings.Contains(h0, models.QueueHeaders[0]) || !strings.Contains(h1, models.QueueHeaders[1]) {
		return errs.Newf(errs.ErrorTypeDataAnomaly, "queue header must start with %s | %s, got %q | %q",
			models.QueueHeaders[0], models.QueueHeaders[1], rows[0][0], rows[0][1])
	}
	return nil
}
