// Package sqlitetable implements table.Client on a local SQLite file, for
// offline runs and for operators without a spreadsheet account.
package sqlitetable

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	errs "profilesync/pkg/errors"
	"profilesync/pkg/table"
)

const schema = `
CREATE TABLE IF NOT EXISTS worksheets (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS sheet_rows (
	worksheet_id INTEGER NOT NULL REFERENCES worksheets(id),
	row_idx      INTEGER NOT NULL,
	cells        TEXT    NOT NULL,
	PRIMARY KEY (worksheet_id, row_idx)
);
CREATE TABLE IF NOT EXISTS cell_formats (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	worksheet_id INTEGER NOT NULL REFERENCES worksheets(id),
	cell_range   TEXT    NOT NULL,
	style        TEXT    NOT NULL,
	applied_at   TEXT    NOT NULL
);`

// Store is a SQLite-backed workbook
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the workbook at path
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("db path required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, p := range []string{"PRAGMA busy_timeout = 5000", "PRAGMA foreign_keys = ON"} {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateWorksheet adds a worksheet, writing header as row 1 when given.
// An existing worksheet is left untouched.
func (s *Store) CreateWorksheet(ctx context.Context, name string, header []string) (table.Worksheet, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO worksheets(name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name)
	if err != nil {
		return table.Worksheet{}, fmt.Errorf("create worksheet %q: %w", name, err)
	}
	ws, err := s.OpenWorksheet(ctx, name)
	if err != nil {
		return table.Worksheet{}, err
	}
	if n, _ := res.RowsAffected(); n == 1 && len(header) > 0 {
		if err := s.AppendRow(ctx, ws, header); err != nil {
			return table.Worksheet{}, err
		}
	}
	return ws, nil
}

// Formats returns the ranges formatted on a worksheet, oldest first
func (s *Store) Formats(ctx context.Context, ws table.Worksheet) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT cell_range FROM cell_formats WHERE worksheet_id = ? ORDER BY id`, ws.ID)
	if err != nil {
		return nil, fmt.Errorf("query formats: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) OpenWorksheet(ctx context.Context, name string) (table.Worksheet, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM worksheets WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return table.Worksheet{}, errs.Newf(errs.ErrorTypeNotFound, "worksheet %q", name)
	}
	if err != nil {
		return table.Worksheet{}, fmt.Errorf("open worksheet %q: %w", name, err)
	}
	return table.Worksheet{Name: name, ID: id}, nil
}

func (s *Store) ReadAllRows(ctx context.Context, ws table.Worksheet) ([][]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT row_idx, cells FROM sheet_rows WHERE worksheet_id = ? ORDER BY row_idx`, ws.ID)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", ws.Name, err)
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		var idx int
		var raw string
		if err := rows.Scan(&idx, &raw); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		cells, err := decodeCells(raw)
		if err != nil {
			return nil, fmt.Errorf("row %d of %q: %w", idx, ws.Name, err)
		}
		for len(out) < idx-1 {
			out = append(out, []string{})
		}
		out = append(out, cells)
	}
	return out, rows.Err()
}

func (s *Store) AppendRow(ctx context.Context, ws table.Worksheet, row []string) error {
	raw, err := encodeCells(row)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sheet_rows(worksheet_id, row_idx, cells)
		VALUES (?, (SELECT COALESCE(MAX(row_idx), 0) + 1 FROM sheet_rows WHERE worksheet_id = ?), ?)`,
		ws.ID, ws.ID, raw)
	if err != nil {
		return fmt.Errorf("append to %q: %w", ws.Name, err)
	}
	return nil
}

func (s *Store) InsertRowAt(ctx context.Context, ws table.Worksheet, index int, row []string) error {
	if index < 1 {
		return fmt.Errorf("insert index %d out of range", index)
	}
	raw, err := encodeCells(row)
	if err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		// Shift in two steps so the primary key never collides mid-update.
		if _, err := tx.ExecContext(ctx,
			`UPDATE sheet_rows SET row_idx = -(row_idx + 1) WHERE worksheet_id = ? AND row_idx >= ?`, ws.ID, index); err != nil {
			return fmt.Errorf("shift rows: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE sheet_rows SET row_idx = -row_idx WHERE worksheet_id = ? AND row_idx < 0`, ws.ID); err != nil {
			return fmt.Errorf("shift rows: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sheet_rows(worksheet_id, row_idx, cells) VALUES (?, ?, ?)`, ws.ID, index, raw); err != nil {
			return fmt.Errorf("insert row %d: %w", index, err)
		}
		return nil
	})
}

func (s *Store) UpdateRange(ctx context.Context, ws table.Worksheet, startCell, endCell string, values [][]string) error {
	rect, err := table.ParseBounds(startCell, endCell)
	if err != nil {
		return err
	}
	if err := rect.CheckShape(values); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for i, vals := range values {
			idx := rect.StartRow + i
			var raw string
			err := tx.QueryRowContext(ctx,
				`SELECT cells FROM sheet_rows WHERE worksheet_id = ? AND row_idx = ?`, ws.ID, idx).Scan(&raw)
			var cells []string
			switch {
			case errors.Is(err, sql.ErrNoRows):
			case err != nil:
				return fmt.Errorf("read row %d: %w", idx, err)
			default:
				if cells, err = decodeCells(raw); err != nil {
					return err
				}
			}
			for len(cells) < rect.StartCol+len(vals) {
				cells = append(cells, "")
			}
			copy(cells[rect.StartCol:], vals)

			enc, err := encodeCells(cells)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO sheet_rows(worksheet_id, row_idx, cells) VALUES (?, ?, ?)
				ON CONFLICT(worksheet_id, row_idx) DO UPDATE SET cells = excluded.cells`,
				ws.ID, idx, enc); err != nil {
				return fmt.Errorf("write row %d: %w", idx, err)
			}
		}
		return nil
	})
}

func (s *Store) FormatCells(ctx context.Context, ws table.Worksheet, cellRange string, style table.Style) error {
	if _, err := table.ParseRange(cellRange); err != nil {
		return err
	}
	raw, err := json.Marshal(style)
	if err != nil {
		return fmt.Errorf("encode style: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cell_formats(worksheet_id, cell_range, style, applied_at) VALUES (?, ?, ?, ?)`,
		ws.ID, cellRange, string(raw), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("format %s: %w", cellRange, err)
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func encodeCells(cells []string) (string, error) {
	if cells == nil {
		cells = []string{}
	}
	raw, err := json.Marshal(cells)
	if err != nil {
		return "", fmt.Errorf("encode cells: %w", err)
	}
	return string(raw), nil
}

func decodeCells(raw string) ([]string, error) {
	var cells []string
	if err := json.Unmarshal([]byte(raw), &cells); err != nil {
		return nil, fmt.Errorf("decode cells: %w", err)
	}
	if cells == nil {
		cells = []string{}
	}
	return cells, nil
}
