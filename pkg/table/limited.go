package table

import (
	"context"

	"profilesync/pkg/ratelimit"
)

// Limited routes every call of the wrapped client through a governor
type Limited struct {
	next Client
	gov  *ratelimit.Governor
}

// NewLimited wraps c so each call consumes one unit of quota
func NewLimited(c Client, gov *ratelimit.Governor) *Limited {
	return &Limited{next: c, gov: gov}
}

// Governor returns the shared governor
func (l *Limited) Governor() *ratelimit.Governor { return l.gov }

func (l *Limited) OpenWorksheet(ctx context.Context, name string) (Worksheet, error) {
	var ws Worksheet
	err := l.gov.Do(ctx, "OpenWorksheet", func(ctx context.Context) error {
		var err error
		ws, err = l.next.OpenWorksheet(ctx, name)
		return err
	})
	return ws, err
}

func (l *Limited) ReadAllRows(ctx context.Context, ws Worksheet) ([][]string, error) {
	var rows [][]string
	err := l.gov.Do(ctx, "ReadAllRows", func(ctx context.Context) error {
		var err error
		rows, err = l.next.ReadAllRows(ctx, ws)
		return err
	})
	return rows, err
}

func (l *Limited) AppendRow(ctx context.Context, ws Worksheet, row []string) error {
	return l.gov.Do(ctx, "AppendRow", func(ctx context.Context) error {
		return l.next.AppendRow(ctx, ws, row)
	})
}

func (l *Limited) InsertRowAt(ctx context.Context, ws Worksheet, index int, row []string) error {
	return l.gov.Do(ctx, "InsertRowAt", func(ctx context.Context) error {
		return l.next.InsertRowAt(ctx, ws, index, row)
	})
}

func (l *Limited) UpdateRange(ctx context.Context, ws Worksheet, startCell, endCell string, rows [][]string) error {
	return l.gov.Do(ctx, "UpdateRange", func(ctx context.Context) error {
		return l.next.UpdateRange(ctx, ws, startCell, endCell, rows)
	})
}

func (l *Limited) FormatCells(ctx context.Context, ws Worksheet, cellRange string, style Style) error {
	return l.gov.Do(ctx, "FormatCells", func(ctx context.Context) error {
		return l.next.FormatCells(ctx, ws, cellRange, style)
	})
}
