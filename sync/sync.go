// Package sync pushes queued category edits back to the spreadsheet. An
// edit is keyed by the row's date, amount and description as they were when
// the edit was queued; before writing, the commit re-reads those columns
// and refuses to touch a row it cannot re-identify exactly. Either every
// queued edit applies or none do.
package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"

	"github.com/wgergely/expensetracker/cache"
	"github.com/wgergely/expensetracker/config"
	"github.com/wgergely/expensetracker/sheets"
	"github.com/wgergely/expensetracker/status"
)

// ErrConflict means the remote ledger changed since the snapshot was
// fetched and an edit could not be re-anchored to its row. Nothing was
// written; fetch again and requeue.
var ErrConflict = errors.New("remote ledger changed since the last fetch; nothing was written")

// Result reports what a commit did. Edits carries one entry per queued
// edit in queue order, so a conflicting commit still reports how every
// edit fared.
type Result struct {
	Applied []cache.Edit
	Edits   []EditResult
}

// EditResult reports how one queued edit re-anchored against the sheet.
type EditResult struct {
	Row     int
	Column  string
	OK      bool
	Message string
}

// QueueCategory queues a category change for a cached row.
func QueueCategory(store *cache.Store, cfg *config.Ledger, row int, category string) (cache.Edit, error) {
	if category == "" {
		return cache.Edit{}, status.New(status.CategoriesInvalid, "category must not be empty")
	}
	return QueueField(store, cfg, row, "category", category)
}

// QueueField queues a cell change for any single-column logical field of a
// cached row. The row's identifying values and the current cell value are
// captured now so the commit can detect remote drift later.
func QueueField(store *cache.Store, cfg *config.Ledger, row int, field, value string) (cache.Edit, error) {
	spec := cfg.Mapping.Spec(field)
	if spec == "" {
		return cache.Edit{}, status.New(status.MappingInvalid, "unknown field %q", field)
	}
	columns := config.SplitMappingSpec(spec)
	if len(columns) != 1 {
		return cache.Edit{}, status.New(status.MappingInvalid, "field %q maps to several columns; edit is ambiguous", field)
	}

	cells, err := store.Row(row)
	if err != nil {
		return cache.Edit{}, err
	}

	edit := cache.Edit{
		Row:     row,
		Column:  columns[0],
		Orig:    cellText(cells[columns[0]]),
		Value:   value,
		KeyDate: keyDate(cells[dateColumn(cfg)]),
		KeyAmt:  keyAmount(cells[amountColumn(cfg)]),
		KeyDesc: keyDescription(cfg, func(col string) any { return cells[col] }),
	}
	return store.QueueEdit(edit)
}

func cellText(value any) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

// Commit writes every queued edit to the sheet in one batch. Each edit's
// target row is re-identified by its stored key against freshly fetched
// columns; a missing or ambiguous match aborts the whole commit with
// ErrConflict. On success the local cache is patched and the queue cleared.
func Commit(ctx context.Context, client *sheets.Client, store *cache.Store, cfg *config.Ledger) (Result, error) {
	edits, err := store.Edits()
	if err != nil {
		return Result{}, err
	}
	if len(edits) == 0 {
		return Result{}, nil
	}

	ws, err := client.VerifyAccess(ctx)
	if err != nil {
		return Result{}, err
	}
	headers, err := client.Headers(ctx)
	if err != nil {
		return Result{}, err
	}
	if err := cfg.VerifyMapping(headers); err != nil {
		return Result{}, err
	}

	position := make(map[string]int, len(headers))
	for i, h := range headers {
		position[h] = i
	}

	// Fetch the key columns plus every edited column in one round trip.
	needed := map[string]bool{
		dateColumn(cfg):   true,
		amountColumn(cfg): true,
	}
	for _, col := range config.SplitMappingSpec(cfg.Mapping.Description) {
		needed[col] = true
	}
	for _, e := range edits {
		if _, ok := position[e.Column]; !ok {
			return Result{}, status.New(status.MappingInvalid, "edited column %q not in sheet", e.Column)
		}
		needed[e.Column] = true
	}

	var indexes []int
	for col := range needed {
		idx, ok := position[col]
		if !ok {
			return Result{}, status.New(status.MappingInvalid, "mapped column %q not in sheet", col)
		}
		indexes = append(indexes, idx)
	}

	remote, err := client.Columns(ctx, indexes, ws.Rows)
	if err != nil {
		return Result{}, err
	}

	dataRows := ws.Rows - 1
	cell := func(col string, row int) any {
		return remote[position[col]][row]
	}

	// Key every remote row once.
	remoteKeys := make([]string, dataRows)
	for row := 0; row < dataRows; row++ {
		remoteKeys[row] = rowKey(
			keyDate(cell(dateColumn(cfg), row)),
			keyAmount(cell(amountColumn(cfg), row)),
			keyDescription(cfg, func(col string) any { return cell(col, row) }),
		)
	}

	// Every edit is matched before anything is written, so one conflicting
	// edit reports alongside the rest instead of masking them.
	updates := make([]sheets.ValueUpdate, 0, len(edits))
	results := make([]EditResult, 0, len(edits))
	conflicts := 0
	for _, e := range edits {
		want := rowKey(e.KeyDate, e.KeyAmt, e.KeyDesc)

		var matches []int
		for row, key := range remoteKeys {
			if key == want {
				matches = append(matches, row)
			}
		}

		res := EditResult{Row: e.Row, Column: e.Column}
		switch len(matches) {
		case 1:
			res.OK = true
			updates = append(updates, sheets.ValueUpdate{
				Range: fmt.Sprintf("%s!%s%d", ws.Title, sheets.ColumnLetter(position[e.Column]), matches[0]+2),
				Value: e.Value,
			})
		case 0:
			res.Message = "no matching row; the remote row changed or was removed"
		default:
			res.Message = fmt.Sprintf("ambiguous; %d remote rows match", len(matches))
		}
		if !res.OK {
			conflicts++
			log.Error("edit cannot be re-anchored", "row", e.Row, "column", e.Column, "matches", len(matches))
		}
		results = append(results, res)
	}
	if conflicts > 0 {
		return Result{Edits: results}, fmt.Errorf("%d of %d edit(s) could not be re-anchored: %w", conflicts, len(edits), ErrConflict)
	}

	if err := client.Apply(ctx, updates); err != nil {
		return Result{Edits: results}, err
	}

	// Patch the snapshot by local row so reports reflect the edits without
	// a refetch, then clear the queue.
	for _, e := range edits {
		if err := store.UpdateCell(e.Row, e.Column, e.Value); err != nil {
			log.Warn("failed to patch cached cell after commit", "row", e.Row, "err", err)
		}
	}
	if err := store.ClearEdits(); err != nil {
		return Result{Edits: results}, err
	}

	log.Info("committed edits", "count", len(edits))
	return Result{Applied: edits, Edits: results}, nil
}

func dateColumn(cfg *config.Ledger) string {
	cols := config.SplitMappingSpec(cfg.Mapping.Date)
	if len(cols) == 0 {
		return ""
	}
	return cols[0]
}

func amountColumn(cfg *config.Ledger) string {
	cols := config.SplitMappingSpec(cfg.Mapping.Amount)
	if len(cols) == 0 {
		return ""
	}
	return cols[0]
}

// keyDate normalizes a date cell to ISO form regardless of whether it
// arrives as a serial number (remote) or text (cache).
func keyDate(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case float64:
		if iso, err := sheets.SerialToISO(v); err == nil {
			return iso
		}
	case int64:
		if iso, err := sheets.SerialToISO(float64(v)); err == nil {
			return iso
		}
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

// keyAmount normalizes an amount cell so 80, 80.0 and "80.00" compare
// equal.
func keyAmount(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case float64:
		return decimal.NewFromFloat(v).String()
	case int64:
		return decimal.NewFromInt(v).String()
	case string:
		if d, err := decimal.NewFromString(strings.TrimSpace(v)); err == nil {
			return d.String()
		}
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

func keyDescription(cfg *config.Ledger, cell func(col string) any) string {
	var parts []string
	for _, col := range config.SplitMappingSpec(cfg.Mapping.Description) {
		v := cell(col)
		if v == nil {
			continue
		}
		if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func rowKey(date, amount, description string) string {
	return date + "\x00" + amount + "\x00" + description
}
