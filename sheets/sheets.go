// Package sheets wraps the Google Sheets v4 API for ledger access. It
// verifies spreadsheet and worksheet access, fetches the header row and data
// rows in bounded batches, reads individual columns for the optimistic
// commit, and applies batched cell updates.
//
// All remote calls go through the narrow API interface so the sync and fetch
// layers can be tested against an in-memory fake.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsv4 "google.golang.org/api/sheets/v4"

	"github.com/wgergely/expensetracker/config"
	"github.com/wgergely/expensetracker/status"
)

// batchSize bounds the number of rows requested per value range. Personal
// ledgers rarely exceed a few thousand rows, so most fetches are one range.
const batchSize = 3000

// Worksheet describes one sheet of the remote document.
type Worksheet struct {
	Title   string
	Rows    int
	Columns int
}

// ValueUpdate addresses a single cell write.
type ValueUpdate struct {
	Range string
	Value any
}

// API is the minimal surface of the Sheets service the application uses.
type API interface {
	// Worksheets returns title and grid size for every sheet in the document.
	Worksheets(ctx context.Context, spreadsheetID string) ([]Worksheet, error)

	// BatchGet fetches the given A1 ranges with unformatted values. The
	// result holds one [][]any per requested range, in request order.
	BatchGet(ctx context.Context, spreadsheetID string, ranges []string) ([][][]any, error)

	// BatchUpdate applies all cell writes in a single request.
	BatchUpdate(ctx context.Context, spreadsheetID string, updates []ValueUpdate) error
}

// Client binds an API to the configured spreadsheet.
type Client struct {
	api         API
	spreadsheet config.Spreadsheet
}

// NewClient creates a client for the configured spreadsheet.
func NewClient(api API, spreadsheet config.Spreadsheet) *Client {
	return &Client{api: api, spreadsheet: spreadsheet}
}

// NewService builds the real Sheets API client from an OAuth token source.
func NewService(ctx context.Context, ts oauth2.TokenSource) (API, error) {
	svc, err := sheetsv4.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, status.Wrap(status.ServiceUnavailable, err, "failed to create Sheets client")
	}
	return &googleAPI{svc: svc}, nil
}

// VerifyAccess confirms the spreadsheet is reachable and the configured
// worksheet exists, returning its grid size.
func (c *Client) VerifyAccess(ctx context.Context) (Worksheet, error) {
	if c.spreadsheet.ID == "" {
		return Worksheet{}, status.Err(status.SpreadsheetIDNotConfigured)
	}
	if c.spreadsheet.Worksheet == "" {
		return Worksheet{}, status.Err(status.WorksheetNotConfigured)
	}

	worksheets, err := c.api.Worksheets(ctx, c.spreadsheet.ID)
	if err != nil {
		return Worksheet{}, err
	}
	for _, ws := range worksheets {
		if ws.Title == c.spreadsheet.Worksheet {
			log.Debug("worksheet found", "title", ws.Title, "rows", ws.Rows, "columns", ws.Columns)
			return ws, nil
		}
	}
	return Worksheet{}, status.New(status.WorksheetNotFound,
		"worksheet %q not found in spreadsheet %q", c.spreadsheet.Worksheet, c.spreadsheet.ID)
}

// Headers fetches the first row of the worksheet.
func (c *Client) Headers(ctx context.Context) ([]string, error) {
	ws, err := c.VerifyAccess(ctx)
	if err != nil {
		return nil, err
	}
	if ws.Rows < 1 || ws.Columns < 1 {
		return nil, status.New(status.SpreadsheetEmpty, "worksheet %q has no grid", ws.Title)
	}

	headerRange := fmt.Sprintf("%s!A1:%s1", ws.Title, ColumnLetter(ws.Columns-1))
	ranges, err := c.api.BatchGet(ctx, c.spreadsheet.ID, []string{headerRange})
	if err != nil {
		return nil, err
	}
	if len(ranges) == 0 || len(ranges[0]) == 0 {
		return nil, status.New(status.SpreadsheetEmpty, "no header row in worksheet %q", ws.Title)
	}

	row := ranges[0][0]
	headers := make([]string, len(row))
	for i, cell := range row {
		headers[i] = fmt.Sprint(cell)
	}
	log.Debug("fetched headers", "count", len(headers))
	return headers, nil
}

// FetchAll fetches the complete worksheet: the header row plus every data
// row, requested in batches of batchSize rows. A worksheet with fewer than
// two rows yields no data rows and no error.
func (c *Client) FetchAll(ctx context.Context) ([]string, [][]any, error) {
	ws, err := c.VerifyAccess(ctx)
	if err != nil {
		return nil, nil, err
	}
	if ws.Rows < 2 {
		log.Warn("no data rows in worksheet", "title", ws.Title)
		headers, err := c.Headers(ctx)
		if err != nil {
			return nil, nil, err
		}
		return headers, nil, nil
	}

	lastCol := ColumnLetter(ws.Columns - 1)
	var dataRanges []string
	for start := 1; start <= ws.Rows; start += batchSize {
		end := min(start+batchSize-1, ws.Rows)
		dataRanges = append(dataRanges, fmt.Sprintf("%s!A%d:%s%d", ws.Title, start, lastCol, end))
	}

	log.Debug("fetching rows", "rows", ws.Rows, "batches", len(dataRanges))
	ranges, err := c.api.BatchGet(ctx, c.spreadsheet.ID, dataRanges)
	if err != nil {
		return nil, nil, err
	}

	var rows [][]any
	for _, vr := range ranges {
		rows = append(rows, vr...)
	}
	if len(rows) == 0 {
		return nil, nil, status.New(status.SpreadsheetEmpty, "no data in worksheet %q", ws.Title)
	}

	header := rows[0]
	headers := make([]string, len(header))
	for i, cell := range header {
		headers[i] = fmt.Sprint(cell)
	}
	return headers, rows[1:], nil
}

// Columns fetches the given zero-based columns for all data rows (sheet
// rows 2..rows). Each returned slice is padded with nils to dataRows so the
// caller can index rows uniformly.
func (c *Client) Columns(ctx context.Context, indexes []int, rows int) (map[int][]any, error) {
	dataRows := max(rows-1, 0)
	out := make(map[int][]any, len(indexes))
	if dataRows == 0 || len(indexes) == 0 {
		return out, nil
	}

	ranges := make([]string, len(indexes))
	for i, idx := range indexes {
		col := ColumnLetter(idx)
		ranges[i] = fmt.Sprintf("%s!%s2:%s%d", c.spreadsheet.Worksheet, col, col, rows)
	}

	valueRanges, err := c.api.BatchGet(ctx, c.spreadsheet.ID, ranges)
	if err != nil {
		return nil, err
	}

	for i, idx := range indexes {
		values := make([]any, dataRows)
		if i < len(valueRanges) {
			for row, cells := range valueRanges[i] {
				if row < dataRows && len(cells) > 0 {
					values[row] = cells[0]
				}
			}
		}
		out[idx] = values
	}
	return out, nil
}

// Categories returns the sorted distinct non-empty values of the given
// zero-based column, skipping the header row.
func (c *Client) Categories(ctx context.Context, columnIndex int) ([]string, error) {
	ws, err := c.VerifyAccess(ctx)
	if err != nil {
		return nil, err
	}

	values, err := c.Columns(ctx, []int{columnIndex}, ws.Rows)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var categories []string
	for _, cell := range values[columnIndex] {
		if cell == nil {
			continue
		}
		name := fmt.Sprint(cell)
		if name != "" && !seen[name] {
			seen[name] = true
			categories = append(categories, name)
		}
	}
	sortStrings(categories)
	log.Debug("fetched categories", "count", len(categories))
	return categories, nil
}

// Apply writes all updates in one batch.
func (c *Client) Apply(ctx context.Context, updates []ValueUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	return c.api.BatchUpdate(ctx, c.spreadsheet.ID, updates)
}

// googleAPI implements API against the real service.
type googleAPI struct {
	svc *sheetsv4.Service
}

func (g *googleAPI) Worksheets(ctx context.Context, spreadsheetID string) ([]Worksheet, error) {
	resp, err := g.svc.Spreadsheets.Get(spreadsheetID).
		Fields("sheets(properties(title,gridProperties(rowCount,columnCount)))").
		Context(ctx).Do()
	if err != nil {
		return nil, mapAPIError(err, spreadsheetID)
	}

	worksheets := make([]Worksheet, 0, len(resp.Sheets))
	for _, sheet := range resp.Sheets {
		if sheet.Properties == nil {
			continue
		}
		ws := Worksheet{Title: sheet.Properties.Title}
		if grid := sheet.Properties.GridProperties; grid != nil {
			ws.Rows = int(grid.RowCount)
			ws.Columns = int(grid.ColumnCount)
		}
		worksheets = append(worksheets, ws)
	}
	return worksheets, nil
}

func (g *googleAPI) BatchGet(ctx context.Context, spreadsheetID string, ranges []string) ([][][]any, error) {
	resp, err := g.svc.Spreadsheets.Values.BatchGet(spreadsheetID).
		Ranges(ranges...).
		ValueRenderOption("UNFORMATTED_VALUE").
		Fields("valueRanges(values)").
		Context(ctx).Do()
	if err != nil {
		return nil, mapAPIError(err, spreadsheetID)
	}

	out := make([][][]any, len(resp.ValueRanges))
	for i, vr := range resp.ValueRanges {
		rows := make([][]any, len(vr.Values))
		for j, row := range vr.Values {
			rows[j] = row
		}
		out[i] = rows
	}
	return out, nil
}

func (g *googleAPI) BatchUpdate(ctx context.Context, spreadsheetID string, updates []ValueUpdate) error {
	data := make([]*sheetsv4.ValueRange, len(updates))
	for i, u := range updates {
		data[i] = &sheetsv4.ValueRange{
			Range:  u.Range,
			Values: [][]any{{u.Value}},
		}
	}
	req := &sheetsv4.BatchUpdateValuesRequest{
		ValueInputOption: "USER_ENTERED",
		Data:             data,
	}
	_, err := g.svc.Spreadsheets.Values.BatchUpdate(spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return mapAPIError(err, spreadsheetID)
	}
	return nil
}

// mapAPIError converts transport failures into status errors.
func mapAPIError(err error, spreadsheetID string) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case 404:
			return status.Wrap(status.SpreadsheetNotFound, err, "spreadsheet %q not found (HTTP 404)", spreadsheetID)
		case 401:
			return status.Wrap(status.NotAuthenticated, err, "request rejected (HTTP 401)")
		case 403:
			return status.Wrap(status.ServiceUnavailable, err,
				"access denied (HTTP 403) for spreadsheet %q; share the sheet with your authenticated account", spreadsheetID)
		default:
			return status.Wrap(status.ServiceUnavailable, err, "error accessing spreadsheet %q", spreadsheetID)
		}
	}

	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return status.Wrap(status.ServiceUnavailable, err, "timeout fetching data")
	}
	return status.Wrap(status.ServiceUnavailable, err, "error accessing spreadsheet %q", spreadsheetID)
}
