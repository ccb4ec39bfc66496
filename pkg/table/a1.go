package table

import (
	"fmt"
	"strconv"
	"strings"
)

// ColumnName converts a 0-based column index to letters: 0 -> A, 26 -> AA
func ColumnName(col int) string {
	if col < 0 {
		return ""
	}
	var b []byte
	for n := col + 1; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('A' + (n-1)%26)}, b...)
	}
	return string(b)
}

// Cell formats a 0-based column and 1-based row as A1 notation
func Cell(col, row int) string {
	return ColumnName(col) + strconv.Itoa(row)
}

// RowRange is the A1 range spanning columns firstCol..lastCol of one row
func RowRange(row, firstCol, lastCol int) (string, string) {
	return Cell(firstCol, row), Cell(lastCol, row)
}

// ParseCell parses A1 notation into a 0-based column and 1-based row
func ParseCell(cell string) (col, row int, err error) {
	cell = strings.ToUpper(strings.TrimSpace(cell))
	i := 0
	for i < len(cell) && cell[i] >= 'A' && cell[i] <= 'Z' {
		col = col*26 + int(cell[i]-'A'+1)
		i++
	}
	if i == 0 || i == len(cell) {
		return 0, 0, fmt.Errorf("invalid cell reference %q", cell)
	}
	row, err = strconv.Atoi(cell[i:])
	if err != nil || row < 1 {
		return 0, 0, fmt.Errorf("invalid cell reference %q", cell)
	}
	return col - 1, row, nil
}

// Rect is a parsed cell range; columns 0-based, rows 1-based, inclusive
type Rect struct {
	StartCol, StartRow int
	EndCol, EndRow     int
}

// Width is the number of columns in the rectangle
func (r Rect) Width() int { return r.EndCol - r.StartCol + 1 }

// Height is the number of rows in the rectangle
func (r Rect) Height() int { return r.EndRow - r.StartRow + 1 }

// ParseRange parses "B4:D4" or a single cell "B4"
func ParseRange(cellRange string) (Rect, error) {
	start, end, found := strings.Cut(cellRange, ":")
	if !found {
		end = start
	}
	return ParseBounds(start, end)
}

// ParseBounds parses a start and end cell into a normalised rectangle
func ParseBounds(startCell, endCell string) (Rect, error) {
	sc, sr, err := ParseCell(startCell)
	if err != nil {
		return Rect{}, err
	}
	ec, er, err := ParseCell(endCell)
	if err != nil {
		return Rect{}, err
	}
	if ec < sc || er < sr {
		return Rect{}, fmt.Errorf("invalid range %s:%s", startCell, endCell)
	}
	return Rect{StartCol: sc, StartRow: sr, EndCol: ec, EndRow: er}, nil
}

// CheckShape verifies rows fit the rectangle exactly in height and at most in width
func (r Rect) CheckShape(rows [][]string) error {
	if len(rows) != r.Height() {
		return fmt.Errorf("range has %d rows, got %d", r.Height(), len(rows))
	}
	for i, row := range rows {
		if len(row) > r.Width() {
			return fmt.Errorf("row %d has %d cells, range is %d wide", i, len(row), r.Width())
		}
	}
	return nil
}
