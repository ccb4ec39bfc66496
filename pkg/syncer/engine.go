// Package syncer drives one sync run: claim PENDING queue items, scrape
// each, reconcile completed batches into the profiles table and commit the
// items' outcomes. Failures local to an item or a batch never stop the run.
package syncer

import (
	"context"
	"fmt"
	"time"

	"profilesync/pkg/checkpoint"
	"profilesync/pkg/logger"
	"profilesync/pkg/metrics"
	"profilesync/pkg/models"
	"profilesync/pkg/queue"
	"profilesync/pkg/ratelimit"
	"profilesync/pkg/reconcile"
	"profilesync/pkg/scraper"
)

const (
	completedNote = "Successfully scraped"
	maxNoteLength = 100
)

// Options tune batching
type Options struct {
	BatchSize       int
	InterBatchDelay time.Duration
	// CommitRetryPass retries failed status commits once at the end of the run
	CommitRetryPass bool
}

// Deps are the collaborators of an Engine. Journal and CallCounter are optional.
type Deps struct {
	Queue       *queue.Queue
	Reconciler  *reconcile.Reconciler
	Tags        reconcile.TagSource
	Scraper     scraper.Scraper
	Clock       ratelimit.Clock
	Journal     *checkpoint.Manager
	Target      string
	CallCounter func() int64
	Logger      logger.Logger
}

// Summary is the end-of-run report
type Summary struct {
	checkpoint.Totals
	Batches     int
	Interrupted bool
	Uncommitted []string
}

// Engine runs sync cycles
type Engine struct {
	deps   Deps
	opts   Options
	logger logger.Logger
}

// New creates an engine
func New(deps Deps, opts Options) *Engine {
	if deps.Clock == nil {
		deps.Clock = ratelimit.RealClock()
	}
	if deps.Tags == nil {
		deps.Tags = emptyTags{}
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = 1
	}
	return &Engine{
		deps:   deps,
		opts:   opts,
		logger: logger.OrGlobal(deps.Logger).WithField("component", "syncer"),
	}
}

type emptyTags struct{}

func (emptyTags) Tags(string) string { return "" }

// run is the mutable state of one Run call
type run struct {
	summary Summary
	retry   []outcome
	journal *checkpoint.Run
}

// Run performs one full cycle. Cancelling ctx is honoured between items and
// between batches; calls already started always complete, and an
// accumulated but uncommitted batch is discarded, leaving its items PENDING.
// The returned error is non-nil only when the queue could not be loaded.
func (e *Engine) Run(ctx context.Context) (Summary, error) {
	work := context.WithoutCancel(ctx)
	r := &run{}

	items, err := e.deps.Queue.LoadPending(work)
	if err != nil {
		return r.summary, fmt.Errorf("load pending queue items: %w", err)
	}
	e.logger.InfoWithFields("Sync started", map[string]interface{}{
		"pending":    len(items),
		"batch_size": e.opts.BatchSize,
	})
	e.startJournal(r)

	b := newBatch(e.opts.BatchSize)
	for i := range items {
		if ctx.Err() != nil {
			r.summary.Interrupted = true
			r.summary.Skipped += len(items) - i
			break
		}

		item := &items[i]
		rec, err := e.deps.Scraper.Scrape(work, item.Identifier)
		var o outcome
		if err != nil {
			e.logger.WithError(err).WithField("identifier", item.Identifier).Warn("Scrape failed")
			o = outcome{item: item, status: models.StatusFailed, note: failureNote(err)}
		} else {
			o = outcome{item: item, record: &rec, status: models.StatusCompleted, note: completedNote}
		}

		if !b.Add(o) {
			continue
		}
		e.flush(work, r, b.Flush())

		if i == len(items)-1 {
			break
		}
		if ctx.Err() != nil {
			r.summary.Interrupted = true
			r.summary.Skipped += len(items) - i - 1
			break
		}
		if e.opts.InterBatchDelay > 0 {
			e.logger.WithField("delay", e.opts.InterBatchDelay).Debug("Waiting before next batch")
			if err := e.deps.Clock.Sleep(ctx, e.opts.InterBatchDelay); err != nil {
				r.summary.Interrupted = true
				r.summary.Skipped += len(items) - i - 1
				break
			}
		}
	}

	if b.Size() > 0 {
		if r.summary.Interrupted {
			discarded := b.Flush()
			r.summary.Skipped += len(discarded)
			e.logger.WithField("items", len(discarded)).Warn("Interrupted, discarding uncommitted batch")
		} else {
			e.flush(work, r, b.Flush())
		}
	}

	if e.opts.CommitRetryPass && !r.summary.Interrupted && len(r.retry) > 0 {
		e.retryCommits(work, r)
	}

	r.summary.Uncommitted = identifiers(r.retry)
	if e.deps.CallCounter != nil {
		r.summary.APICalls = e.deps.CallCounter()
	}
	e.finishJournal(r)

	logger.LogSyncSummary(e.logger, map[string]interface{}{
		"inserted":      r.summary.Inserted,
		"updated":       r.summary.Updated,
		"unchanged":     r.summary.Unchanged,
		"completed":     r.summary.Completed,
		"failed":        r.summary.Failed,
		"skipped":       r.summary.Skipped,
		"batch_errors":  r.summary.BatchErrors,
		"commit_errors": r.summary.CommitErrors,
		"api_calls":     r.summary.APICalls,
		"interrupted":   r.summary.Interrupted,
	})
	return r.summary, nil
}

// flush reconciles one batch and commits every item in it. A reconcile
// failure leaves all of the batch's items PENDING.
func (e *Engine) flush(ctx context.Context, r *run, outcomes []outcome) {
	start := e.deps.Clock.Now()
	r.summary.Batches++
	number := r.summary.Batches

	var res reconcile.Result
	var err error
	if recs := records(outcomes); len(recs) > 0 {
		res, err = e.deps.Reconciler.Reconcile(ctx, recs, e.deps.Tags)
	}
	r.summary.Inserted += res.Inserted
	r.summary.Updated += res.Updated
	r.summary.Unchanged += res.Unchanged
	r.summary.Skipped += res.Skipped

	logger.LogBatch(e.logger, number, len(outcomes), res.Inserted, res.Updated, err)
	if err != nil {
		r.summary.BatchErrors++
		r.summary.Skipped += len(outcomes)
		metrics.BatchFailuresTotal.Inc()
		e.recordJournal(r)
		return
	}

	for _, o := range outcomes {
		if !e.commit(ctx, r, o) {
			r.retry = append(r.retry, o)
		}
	}

	metrics.BatchLatency.Observe(e.deps.Clock.Now().Sub(start).Seconds())
	e.recordJournal(r)
}

// commit writes one item's outcome and reports whether it landed
func (e *Engine) commit(ctx context.Context, r *run, o outcome) bool {
	if err := e.deps.Queue.CommitStatus(ctx, o.item, o.status, o.note); err != nil {
		r.summary.CommitErrors++
		metrics.CommitErrorsTotal.Inc()
		e.logger.WithError(err).WithFields(map[string]interface{}{
			"identifier": o.item.Identifier,
			"status":     o.status,
		}).Error("Failed to commit queue item")
		return false
	}

	switch o.status {
	case models.StatusCompleted:
		r.summary.Completed++
	case models.StatusFailed:
		r.summary.Failed++
	}
	metrics.QueueItemsTotal.WithLabelValues(string(o.status)).Inc()
	return true
}

func (e *Engine) retryCommits(ctx context.Context, r *run) {
	e.logger.WithField("items", len(r.retry)).Info("Retrying failed commits")
	var still []outcome
	for _, o := range r.retry {
		if !e.commit(ctx, r, o) {
			still = append(still, o)
		}
	}
	r.retry = still
}

func (e *Engine) startJournal(r *run) {
	if e.deps.Journal == nil {
		return
	}
	j, err := e.deps.Journal.Start(e.deps.Target)
	if err != nil {
		e.logger.WithError(err).Warn("Run journal unavailable")
		return
	}
	r.journal = j
}

func (e *Engine) recordJournal(r *run) {
	if r.journal == nil {
		return
	}
	if e.deps.CallCounter != nil {
		r.summary.APICalls = e.deps.CallCounter()
	}
	if err := e.deps.Journal.RecordBatch(r.journal, r.summary.Totals, identifiers(r.retry)); err != nil {
		e.logger.WithError(err).Warn("Failed to update run journal")
	}
}

func (e *Engine) finishJournal(r *run) {
	if r.journal == nil {
		return
	}
	if err := e.deps.Journal.Finish(r.journal, r.summary.Totals, r.summary.Uncommitted, r.summary.Interrupted); err != nil {
		e.logger.WithError(err).Warn("Failed to finish run journal")
	}
}

func identifiers(outcomes []outcome) []string {
	var out []string
	for _, o := range outcomes {
		out = append(out, o.item.Identifier)
	}
	return out
}

func failureNote(err error) string {
	note := "Error: " + err.Error()
	if r := []rune(note); len(r) > maxNoteLength {
		note = string(r[:maxNoteLength])
	}
	return note
}
