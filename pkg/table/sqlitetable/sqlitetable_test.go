package sqlitetable

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "profilesync/pkg/errors"
	"profilesync/pkg/table"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "book.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenWorksheetNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.OpenWorksheet(context.Background(), "Tags")
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestCreateWorksheetWritesHeaderOnce(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ws, err := s.CreateWorksheet(ctx, "Target", []string{"USERNAME", "STATUS"})
	require.NoError(t, err)
	_, err = s.CreateWorksheet(ctx, "Target", []string{"USERNAME", "STATUS"})
	require.NoError(t, err)

	rows, err := s.ReadAllRows(ctx, ws)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"USERNAME", "STATUS"}}, rows)
}

func TestAppendInsertAndUpdate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ws, err := s.CreateWorksheet(ctx, "Profiles", []string{"DATE", "NICKNAME"})
	require.NoError(t, err)

	require.NoError(t, s.AppendRow(ctx, ws, []string{"d1", "old"}))
	require.NoError(t, s.InsertRowAt(ctx, ws, 2, []string{"d2", "newest"}))
	require.NoError(t, s.InsertRowAt(ctx, ws, 3, []string{"d3", "second"}))

	rows, err := s.ReadAllRows(ctx, ws)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"DATE", "NICKNAME"},
		{"d2", "newest"},
		{"d3", "second"},
		{"d1", "old"},
	}, rows)

	require.NoError(t, s.UpdateRange(ctx, ws, "B4", "C4", [][]string{{"old", "Oslo"}}))
	require.NoError(t, s.UpdateRange(ctx, ws, "A6", "A6", [][]string{{"gap"}}))

	rows, err = s.ReadAllRows(ctx, ws)
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, []string{"d1", "old", "Oslo"}, rows[3])
	assert.Empty(t, rows[4])
	assert.Equal(t, []string{"gap"}, rows[5])

	assert.Error(t, s.UpdateRange(ctx, ws, "A2", "A3", [][]string{{"x"}}))
}

func TestFormatCellsIsRecorded(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ws, err := s.CreateWorksheet(ctx, "Profiles", nil)
	require.NoError(t, err)

	style := table.Style{Background: table.Color{Red: 1, Green: 0.9, Blue: 0.6}}
	require.NoError(t, s.FormatCells(ctx, ws, "J2", style))
	require.NoError(t, s.FormatCells(ctx, ws, "E3:E3", style))
	assert.Error(t, s.FormatCells(ctx, ws, "nope", style))

	got, err := s.Formats(ctx, ws)
	require.NoError(t, err)
	assert.Equal(t, []string{"J2", "E3:E3"}, got)
}

func TestWorksheetsAreIsolated(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a, err := s.CreateWorksheet(ctx, "A", []string{"a"})
	require.NoError(t, err)
	b, err := s.CreateWorksheet(ctx, "B", []string{"b"})
	require.NoError(t, err)

	require.NoError(t, s.InsertRowAt(ctx, a, 1, []string{"top"}))

	rowsB, err := s.ReadAllRows(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"b"}}, rowsB)
}

var _ table.Client = (*Store)(nil)
