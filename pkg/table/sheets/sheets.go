// Package sheets implements table.Client on the Google Sheets v4 API.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	errs "profilesync/pkg/errors"
	"profilesync/pkg/table"
)

// Client talks to one spreadsheet
type Client struct {
	svc           *gsheets.Service
	spreadsheetID string
}

// New creates a client for spreadsheetID. With no options it authenticates
// from credentialsFile (a service-account or OAuth client JSON).
func New(ctx context.Context, spreadsheetID, credentialsFile string, opts ...option.ClientOption) (*Client, error) {
	if spreadsheetID == "" {
		return nil, errors.New("spreadsheet id required")
	}
	if len(opts) == 0 && credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile), option.WithScopes(gsheets.SpreadsheetsScope))
	}
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func (c *Client) OpenWorksheet(ctx context.Context, name string) (table.Worksheet, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return table.Worksheet{}, classify(err, "open worksheet "+name)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == name {
			return table.Worksheet{Name: name, ID: sh.Properties.SheetId}, nil
		}
	}
	return table.Worksheet{}, errs.Newf(errs.ErrorTypeNotFound, "worksheet %q", name).WithCode(404)
}

func (c *Client) ReadAllRows(ctx context.Context, ws table.Worksheet) ([][]string, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, quote(ws.Name)).
		ValueRenderOption("FORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, classify(err, "read "+ws.Name)
	}
	rows := make([][]string, len(resp.Values))
	for i, r := range resp.Values {
		rows[i] = make([]string, len(r))
		for j, v := range r {
			rows[i][j] = fmt.Sprint(v)
		}
	}
	return rows, nil
}

func (c *Client) AppendRow(ctx context.Context, ws table.Worksheet, row []string) error {
	vr := &gsheets.ValueRange{Values: [][]interface{}{toInterfaces(row)}}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, quote(ws.Name), vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	return classify(err, "append to "+ws.Name)
}

// InsertRowAt inserts an empty row and fills it in a single batch update
func (c *Client) InsertRowAt(ctx context.Context, ws table.Worksheet, index int, row []string) error {
	if index < 1 {
		return fmt.Errorf("insert index %d out of range", index)
	}
	cells := make([]*gsheets.CellData, len(row))
	for i := range row {
		v := row[i]
		cells[i] = &gsheets.CellData{UserEnteredValue: &gsheets.ExtendedValue{StringValue: &v}}
	}
	req := &gsheets.BatchUpdateSpreadsheetRequest{Requests: []*gsheets.Request{
		{InsertDimension: &gsheets.InsertDimensionRequest{
			Range: &gsheets.DimensionRange{
				SheetId:    ws.ID,
				Dimension:  "ROWS",
				StartIndex: int64(index - 1),
				EndIndex:   int64(index),
			},
			InheritFromBefore: false,
		}},
		{UpdateCells: &gsheets.UpdateCellsRequest{
			Start:  &gsheets.GridCoordinate{SheetId: ws.ID, RowIndex: int64(index - 1)},
			Rows:   []*gsheets.RowData{{Values: cells}},
			Fields: "userEnteredValue",
		}},
	}}
	_, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
	return classify(err, fmt.Sprintf("insert row %d in %s", index, ws.Name))
}

func (c *Client) UpdateRange(ctx context.Context, ws table.Worksheet, startCell, endCell string, rows [][]string) error {
	rect, err := table.ParseBounds(startCell, endCell)
	if err != nil {
		return err
	}
	if err := rect.CheckShape(rows); err != nil {
		return err
	}
	values := make([][]interface{}, len(rows))
	for i, r := range rows {
		values[i] = toInterfaces(r)
	}
	rng := fmt.Sprintf("%s!%s:%s", quote(ws.Name), startCell, endCell)
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheets.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	return classify(err, "update "+rng)
}

func (c *Client) FormatCells(ctx context.Context, ws table.Worksheet, cellRange string, style table.Style) error {
	rect, err := table.ParseRange(cellRange)
	if err != nil {
		return err
	}
	req := &gsheets.BatchUpdateSpreadsheetRequest{Requests: []*gsheets.Request{
		{RepeatCell: &gsheets.RepeatCellRequest{
			Range: &gsheets.GridRange{
				SheetId:          ws.ID,
				StartRowIndex:    int64(rect.StartRow - 1),
				EndRowIndex:      int64(rect.EndRow),
				StartColumnIndex: int64(rect.StartCol),
				EndColumnIndex:   int64(rect.EndCol + 1),
			},
			Cell: &gsheets.CellData{UserEnteredFormat: &gsheets.CellFormat{
				BackgroundColor: &gsheets.Color{
					Red:   style.Background.Red,
					Green: style.Background.Green,
					Blue:  style.Background.Blue,
				},
			}},
			Fields: "userEnteredFormat.backgroundColor",
		}},
	}}
	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
	return classify(err, "format "+cellRange)
}

// classify maps API failures onto the error taxonomy; quota rejections
// become rate_limit so the governor retries them
func classify(err error, what string) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		t := errs.FromStatusCode(gerr.Code)
		if strings.Contains(gerr.Message, "RATE_LIMIT_EXCEEDED") || strings.Contains(gerr.Error(), "RATE_LIMIT_EXCEEDED") {
			t = errs.ErrorTypeRateLimit
		}
		if t == errs.ErrorTypeUnknown && gerr.Code >= 400 && gerr.Code < 500 {
			t = errs.ErrorTypeDataAnomaly
		}
		return errs.Wrap(t, err, what).WithCode(gerr.Code)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return errs.Wrap(errs.ErrorTypeNetwork, err, what)
}

// quote wraps a worksheet name for use in A1 ranges
func quote(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func toInterfaces(row []string) []interface{} {
	out := make([]interface{}, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}
