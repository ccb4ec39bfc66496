// Package reconcile merges batches of scraped profiles into the profiles
// table: new identifiers are inserted under the header, existing rows are
// rewritten only when a tracked field changed, and changed cells are
// highlighted.
package reconcile

import (
	"context"
	"fmt"

	errs "profilesync/pkg/errors"
	"profilesync/pkg/logger"
	"profilesync/pkg/metrics"
	"profilesync/pkg/models"
	"profilesync/pkg/table"
)

// Result counts what one batch did to the profiles table
type Result struct {
	Inserted  int
	Updated   int
	Unchanged int
	Skipped   int
}

// Reconciler applies batches to one profiles worksheet
type Reconciler struct {
	client    table.Client
	ws        table.Worksheet
	highlight table.Style
	logger    logger.Logger
}

// New creates a reconciler for an already opened worksheet
func New(client table.Client, ws table.Worksheet, highlight table.Style, l logger.Logger) *Reconciler {
	return &Reconciler{
		client:    client,
		ws:        ws,
		highlight: highlight,
		logger:    logger.OrGlobal(l).WithFields(map[string]interface{}{"component": "reconcile", "worksheet": ws.Name}),
	}
}

// Open opens the named profiles worksheet and returns a reconciler for it
func Open(ctx context.Context, client table.Client, name string, highlight table.Style, l logger.Logger) (*Reconciler, error) {
	ws, err := client.OpenWorksheet(ctx, name)
	if err != nil {
		return nil, err
	}
	return New(client, ws, highlight, l), nil
}

// Worksheet returns the profiles worksheet handle
func (r *Reconciler) Worksheet() table.Worksheet { return r.ws }

// Reconcile reads the table once, plans the batch against that snapshot and
// applies it. An error means the batch may be partially applied; re-running
// the same batch converges.
func (r *Reconciler) Reconcile(ctx context.Context, records []models.Record, tags TagSource) (Result, error) {
	if len(records) == 0 {
		return Result{}, nil
	}

	snapshot, err := r.client.ReadAllRows(ctx, r.ws)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read profiles snapshot: %w", err)
	}

	plan := BuildPlan(records, tags, snapshot)
	for _, w := range plan.Warnings {
		r.logger.WithField("error_type", errs.ErrorTypeDataAnomaly).Warn(w)
	}

	return r.Apply(ctx, plan)
}

// Apply performs a plan's writes in order: header, inserts, then updates
// each followed by their highlights. It stops at the first failed write.
func (r *Reconciler) Apply(ctx context.Context, plan Plan) (Result, error) {
	res := Result{Unchanged: len(plan.Unchanged), Skipped: plan.Skipped}

	if plan.WriteHeader {
		if err := r.client.AppendRow(ctx, r.ws, models.Headers()); err != nil {
			return res, fmt.Errorf("failed to write profiles header: %w", err)
		}
		r.logger.Info("Wrote profiles header")
	}

	for _, ins := range plan.Inserts {
		if err := r.client.InsertRowAt(ctx, r.ws, ins.RowIndex, ins.Cells); err != nil {
			return res, fmt.Errorf("failed to insert %s at row %d: %w", ins.Identifier, ins.RowIndex, err)
		}
		res.Inserted++
		metrics.RowsInsertedTotal.Inc()
		r.logger.DebugWithFields("Inserted profile", map[string]interface{}{
			"identifier": ins.Identifier,
			"row":        ins.RowIndex,
		})
	}

	last := len(models.Columns) - 1
	for _, upd := range plan.Updates {
		start, end := table.RowRange(upd.RowIndex, 0, last)
		if err := r.client.UpdateRange(ctx, r.ws, start, end, [][]string{upd.Cells}); err != nil {
			return res, fmt.Errorf("failed to update %s at row %d: %w", upd.Identifier, upd.RowIndex, err)
		}
		for _, col := range upd.Changed {
			if err := r.client.FormatCells(ctx, r.ws, table.Cell(col, upd.RowIndex), r.highlight); err != nil {
				return res, fmt.Errorf("failed to highlight %s of %s: %w", models.Columns[col].Header, upd.Identifier, err)
			}
		}
		res.Updated++
		metrics.RowsUpdatedTotal.Inc()
		r.logger.DebugWithFields("Updated profile", map[string]interface{}{
			"identifier": upd.Identifier,
			"row":        upd.RowIndex,
			"changed":    changedHeaders(upd.Changed),
		})
	}

	metrics.RowsUnchangedTotal.Add(float64(res.Unchanged))
	return res, nil
}

func changedHeaders(cols []int) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = models.Columns[c].Header
	}
	return out
}
