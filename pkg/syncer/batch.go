package syncer

import (
	"profilesync/pkg/models"
)

// outcome is the in-memory result for one queue item awaiting commit
type outcome struct {
	item   *models.QueueItem
	record *models.Record
	status models.Status
	note   string
}

// batch accumulates outcomes until it reaches capacity
type batch struct {
	outcomes []outcome
	capacity int
}

func newBatch(capacity int) *batch {
	if capacity < 1 {
		capacity = 1
	}
	return &batch{outcomes: make([]outcome, 0, capacity), capacity: capacity}
}

// Add appends an outcome and reports whether the batch should be flushed
func (b *batch) Add(o outcome) bool {
	b.outcomes = append(b.outcomes, o)
	return len(b.outcomes) >= b.capacity
}

// Flush returns the buffered outcomes and clears the batch
func (b *batch) Flush() []outcome {
	out := b.outcomes
	b.outcomes = make([]outcome, 0, b.capacity)
	return out
}

// Size returns the number of buffered outcomes
func (b *batch) Size() int {
	return len(b.outcomes)
}

// records returns the scraped records of successful outcomes
func records(outcomes []outcome) []models.Record {
	var out []models.Record
	for _, o := range outcomes {
		if o.record != nil {
			out = append(out, *o.record)
		}
	}
	return out
}
