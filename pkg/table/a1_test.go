package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnName(t *testing.T) {
	tests := map[int]string{0: "A", 1: "B", 15: "P", 25: "Z", 26: "AA", 27: "AB", 51: "AZ", 52: "BA", 701: "ZZ", 702: "AAA"}
	for col, want := range tests {
		assert.Equal(t, want, ColumnName(col), "col %d", col)
	}
	assert.Empty(t, ColumnName(-1))
}

func TestParseCellRoundTrip(t *testing.T) {
	for _, cell := range []string{"A1", "D4", "P12", "AA100", "ZZ7"} {
		col, row, err := ParseCell(cell)
		require.NoError(t, err, cell)
		assert.Equal(t, cell, Cell(col, row))
	}
}

func TestParseCellErrors(t *testing.T) {
	for _, cell := range []string{"", "12", "A", "A0", "A-1", "1A"} {
		_, _, err := ParseCell(cell)
		assert.Error(t, err, cell)
	}
}

func TestParseRange(t *testing.T) {
	r, err := ParseRange("B4:D4")
	require.NoError(t, err)
	assert.Equal(t, Rect{StartCol: 1, StartRow: 4, EndCol: 3, EndRow: 4}, r)
	assert.Equal(t, 3, r.Width())
	assert.Equal(t, 1, r.Height())

	single, err := ParseRange("J7")
	require.NoError(t, err)
	assert.Equal(t, 1, single.Width())

	_, err = ParseRange("D4:B4")
	assert.Error(t, err)
}

func TestRowRange(t *testing.T) {
	start, end := RowRange(5, 1, 3)
	assert.Equal(t, "B5", start)
	assert.Equal(t, "D5", end)
}

func TestCheckShape(t *testing.T) {
	r, _ := ParseRange("A2:C3")
	assert.NoError(t, r.CheckShape([][]string{{"a", "b", "c"}, {"d"}}))
	assert.Error(t, r.CheckShape([][]string{{"a", "b", "c"}}))
	assert.Error(t, r.CheckShape([][]string{{"a", "b", "c", "d"}, {}}))
}
