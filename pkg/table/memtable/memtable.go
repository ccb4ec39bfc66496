// Package memtable is an in-memory table.Client with a call log and
// failure injection, used by tests and dry runs.
package memtable

import (
	"context"
	"fmt"
	"sync"

	errs "profilesync/pkg/errors"
	"profilesync/pkg/table"
)

// Call is one recorded client call
type Call struct {
	Op        string
	Worksheet string
	Detail    string
}

// Format is one recorded FormatCells call
type Format struct {
	Worksheet string
	Range     string
	Style     table.Style
}

// FailHook may veto a call before it takes effect
type FailHook func(op, worksheet string) error

// Table holds named worksheets in memory
type Table struct {
	mu       sync.Mutex
	sheets   map[string][][]string
	ids      map[string]int64
	calls    []Call
	formats  []Format
	failures map[string][]error
	hook     FailHook
}

// New creates an empty table
func New() *Table {
	return &Table{
		sheets:   make(map[string][][]string),
		ids:      make(map[string]int64),
		failures: make(map[string][]error),
	}
}

// AddWorksheet creates (or replaces) a worksheet with the given rows
func (t *Table) AddWorksheet(name string, rows ...[]string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.ids[name]; !ok {
		t.ids[name] = int64(len(t.ids) + 1)
	}
	t.sheets[name] = cloneRows(rows)
}

// Rows returns a copy of a worksheet's rows
func (t *Table) Rows(name string) [][]string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return cloneRows(t.sheets[name])
}

// FailNext queues errors returned by the next calls of op, one per call
func (t *Table) FailNext(op string, errors ...error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures[op] = append(t.failures[op], errors...)
}

// SetFailHook installs a hook consulted on every call
func (t *Table) SetFailHook(h FailHook) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hook = h
}

// Calls returns the call log
func (t *Table) Calls() []Call {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Call, len(t.calls))
	copy(out, t.calls)
	return out
}

// CallCount counts recorded calls of op
func (t *Table) CallCount(op string) int {
	n := 0
	for _, c := range t.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Formats returns every applied format
func (t *Table) Formats() []Format {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Format, len(t.formats))
	copy(out, t.formats)
	return out
}

// ResetLog clears calls and formats but keeps the data
func (t *Table) ResetLog() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = nil
	t.formats = nil
}

// begin records a call and returns an injected failure, if any. Caller holds mu.
func (t *Table) begin(op, ws, detail string) error {
	t.calls = append(t.calls, Call{Op: op, Worksheet: ws, Detail: detail})
	if q := t.failures[op]; len(q) > 0 {
		t.failures[op] = q[1:]
		if q[0] != nil {
			return q[0]
		}
	}
	if t.hook != nil {
		return t.hook(op, ws)
	}
	return nil
}

func (t *Table) sheet(name string) ([][]string, error) {
	rows, ok := t.sheets[name]
	if !ok {
		return nil, errs.Newf(errs.ErrorTypeNotFound, "worksheet %q", name).WithCode(404)
	}
	return rows, nil
}

func (t *Table) OpenWorksheet(ctx context.Context, name string) (table.Worksheet, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.begin("OpenWorksheet", name, ""); err != nil {
		return table.Worksheet{}, err
	}
	if _, err := t.sheet(name); err != nil {
		return table.Worksheet{}, err
	}
	return table.Worksheet{Name: name, ID: t.ids[name]}, nil
}

func (t *Table) ReadAllRows(ctx context.Context, ws table.Worksheet) ([][]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.begin("ReadAllRows", ws.Name, ""); err != nil {
		return nil, err
	}
	rows, err := t.sheet(ws.Name)
	if err != nil {
		return nil, err
	}
	return cloneRows(rows), nil
}

func (t *Table) AppendRow(ctx context.Context, ws table.Worksheet, row []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.begin("AppendRow", ws.Name, fmt.Sprint(row)); err != nil {
		return err
	}
	rows, err := t.sheet(ws.Name)
	if err != nil {
		return err
	}
	t.sheets[ws.Name] = append(rows, append([]string(nil), row...))
	return nil
}

func (t *Table) InsertRowAt(ctx context.Context, ws table.Worksheet, index int, row []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.begin("InsertRowAt", ws.Name, fmt.Sprintf("%d %v", index, row)); err != nil {
		return err
	}
	rows, err := t.sheet(ws.Name)
	if err != nil {
		return err
	}
	if index < 1 || index > len(rows)+1 {
		return fmt.Errorf("insert index %d out of range 1..%d", index, len(rows)+1)
	}
	i := index - 1
	rows = append(rows, nil)
	copy(rows[i+1:], rows[i:])
	rows[i] = append([]string(nil), row...)
	t.sheets[ws.Name] = rows
	return nil
}

func (t *Table) UpdateRange(ctx context.Context, ws table.Worksheet, startCell, endCell string, values [][]string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.begin("UpdateRange", ws.Name, startCell+":"+endCell); err != nil {
		return err
	}
	rows, err := t.sheet(ws.Name)
	if err != nil {
		return err
	}
	rect, err := table.ParseBounds(startCell, endCell)
	if err != nil {
		return err
	}
	if err := rect.CheckShape(values); err != nil {
		return err
	}
	for len(rows) < rect.EndRow {
		rows = append(rows, []string{})
	}
	for i, vals := range values {
		r := rect.StartRow - 1 + i
		for len(rows[r]) < rect.StartCol+len(vals) {
			rows[r] = append(rows[r], "")
		}
		copy(rows[r][rect.StartCol:], vals)
	}
	t.sheets[ws.Name] = rows
	return nil
}

func (t *Table) FormatCells(ctx context.Context, ws table.Worksheet, cellRange string, style table.Style) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.begin("FormatCells", ws.Name, cellRange); err != nil {
		return err
	}
	if _, err := t.sheet(ws.Name); err != nil {
		return err
	}
	if _, err := table.ParseRange(cellRange); err != nil {
		return err
	}
	t.formats = append(t.formats, Format{Worksheet: ws.Name, Range: cellRange, Style: style})
	return nil
}

func cloneRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}
