package ui

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"profilesync/pkg/checkpoint"
	"profilesync/pkg/models"
	"profilesync/pkg/syncer"
)

func init() {
	SetColor(false)
}

func TestSummaryLine(t *testing.T) {
	s := syncer.Summary{Totals: checkpoint.Totals{Inserted: 2, Updated: 1, Unchanged: 4, Failed: 1, Skipped: 3}}
	assert.Equal(t, "2 inserted, 1 updated, 4 unchanged, 1 failed, 3 skipped", SummaryLine(s))
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, syncer.Summary{
		Totals:      checkpoint.Totals{Inserted: 2, APICalls: 17},
		Batches:     3,
		Uncommitted: []string{"a", "b"},
	})

	out := buf.String()
	assert.Contains(t, out, "Sync complete")
	assert.Regexp(t, `Inserted\s+2`, out)
	assert.Regexp(t, `API calls\s+17`, out)
	assert.Regexp(t, `Batches\s+3`, out)
	assert.Contains(t, out, "Uncommitted queue items: a, b")
}

func TestPrintSummaryInterrupted(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, syncer.Summary{Interrupted: true})
	assert.Contains(t, buf.String(), "Sync interrupted")
	assert.NotContains(t, buf.String(), "Uncommitted")
}

func TestPrintRun(t *testing.T) {
	start := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Second)

	var buf bytes.Buffer
	PrintRun(&buf, &checkpoint.Run{Target: "profiles_db", Batches: 2, StartedAt: start, UpdatedAt: start})
	assert.Contains(t, buf.String(), "in progress or crashed")
	assert.Contains(t, buf.String(), "Last batch")

	buf.Reset()
	PrintRun(&buf, &checkpoint.Run{Target: "profiles_db", StartedAt: start, FinishedAt: &end, Interrupted: true})
	assert.Contains(t, buf.String(), "interrupted")
	assert.Contains(t, buf.String(), "(1m30s)")
}

func TestPrintQueue(t *testing.T) {
	done := time.Date(2024, 3, 9, 12, 2, 0, 0, time.Local)
	var buf bytes.Buffer
	PrintQueue(&buf, []models.QueueItem{
		{Identifier: "a", RowIndex: 2, Status: models.StatusCompleted, CompletedAt: &done, LastNote: "Successfully scraped"},
		{Identifier: "b", RowIndex: 3, Status: models.StatusPending},
		{Identifier: "c", RowIndex: 4, Status: models.StatusFailed, LastNote: "Error: timeout"},
	})

	out := buf.String()
	assert.Contains(t, out, "2024-03-09 12:02")
	assert.Contains(t, out, "Error: timeout")
	assert.Contains(t, out, "1 pending, 1 completed, 1 failed")
}

type recordingSender struct {
	titles []string
	err    error
}

func (r *recordingSender) Send(title, _ string) error {
	r.titles = append(r.titles, title)
	return r.err
}

func TestNotifier(t *testing.T) {
	var buf bytes.Buffer
	prev := Output
	Output = &buf
	defer func() { Output = prev }()

	sender := &recordingSender{err: errors.New("no display")}
	n := NewNotifierWithSender(sender)
	n.SendSuccess("Sync complete", "2 inserted")
	n.SendError("Sync failed", "boom")

	assert.Equal(t, []string{"Sync complete", "Sync failed"}, sender.titles)
	assert.Contains(t, buf.String(), "Sync complete: 2 inserted")
	assert.Contains(t, buf.String(), "Sync failed: boom")
}
