package table

import (
	"context"
)

// Worksheet is a handle to one named worksheet
type Worksheet struct {
	Name string
	// ID is the backend's numeric sheet id where it has one
	ID int64
}

// Color is an RGB colour with components in [0,1]
type Color struct {
	Red   float64 `json:"red"`
	Green float64 `json:"green"`
	Blue  float64 `json:"blue"`
}

// Style is the cell formatting the reconciler applies to changed cells
type Style struct {
	Background Color `json:"background"`
}

// Client is a thin adapter over a remote spreadsheet-like store. Every
// method is exactly one remote round trip with no implicit batching or retry.
// Row indexes are 1-based with the header on row 1.
type Client interface {
	// OpenWorksheet returns a not_found error if the worksheet is absent
	OpenWorksheet(ctx context.Context, name string) (Worksheet, error)
	// ReadAllRows returns every row including the header
	ReadAllRows(ctx context.Context, ws Worksheet) ([][]string, error)
	// AppendRow adds a row after the last non-empty row
	AppendRow(ctx context.Context, ws Worksheet, row []string) error
	// InsertRowAt inserts row at index, shifting rows at or below it down
	InsertRowAt(ctx context.Context, ws Worksheet, index int, row []string) error
	// UpdateRange overwrites the rectangle startCell:endCell with rows
	UpdateRange(ctx context.Context, ws Worksheet, startCell, endCell string, rows [][]string) error
	// FormatCells applies style to an A1 range
	FormatCells(ctx context.Context, ws Worksheet, cellRange string, style Style) error
}
