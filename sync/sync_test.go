package sync

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/wgergely/expensetracker/cache"
	"github.com/wgergely/expensetracker/config"
	"github.com/wgergely/expensetracker/sheets"
)

// fakeAPI serves one worksheet from a grid, mirroring what the commit sees
// remotely. The grid may drift from the cache to provoke conflicts.
type fakeAPI struct {
	title   string
	grid    [][]any
	updates []sheets.ValueUpdate
}

func (f *fakeAPI) Worksheets(ctx context.Context, spreadsheetID string) ([]sheets.Worksheet, error) {
	cols := 0
	if len(f.grid) > 0 {
		cols = len(f.grid[0])
	}
	return []sheets.Worksheet{{Title: f.title, Rows: len(f.grid), Columns: cols}}, nil
}

func (f *fakeAPI) BatchGet(ctx context.Context, spreadsheetID string, ranges []string) ([][][]any, error) {
	out := make([][][]any, len(ranges))
	for i, r := range ranges {
		rows, err := sliceRange(f.grid, r)
		if err != nil {
			return nil, err
		}
		out[i] = rows
	}
	return out, nil
}

func (f *fakeAPI) BatchUpdate(ctx context.Context, spreadsheetID string, updates []sheets.ValueUpdate) error {
	f.updates = append(f.updates, updates...)
	return nil
}

func sliceRange(grid [][]any, a1 string) ([][]any, error) {
	_, ref, ok := strings.Cut(a1, "!")
	if !ok {
		return nil, fmt.Errorf("malformed range %q", a1)
	}
	from, to, ok := strings.Cut(ref, ":")
	if !ok {
		return nil, fmt.Errorf("malformed range %q", a1)
	}
	lo := int(from[0] - 'A')
	hi := int(to[0] - 'A')
	r1, err := strconv.Atoi(from[1:])
	if err != nil {
		return nil, err
	}
	r2, err := strconv.Atoi(to[1:])
	if err != nil {
		return nil, err
	}

	var out [][]any
	for row := r1; row <= r2 && row <= len(grid); row++ {
		cells := grid[row-1]
		if lo >= len(cells) {
			continue
		}
		end := min(hi, len(cells)-1)
		out = append(out, cells[lo:end+1])
	}
	return out, nil
}

func testGrid() [][]any {
	return [][]any{
		{"Date", "Amount", "Description", "Category", "Account"},
		{45662.0, -12.5, "coffee", "Dining", "Checking"},
		{45667.0, -80.0, "groceries", "Groceries", "Checking"},
		{45682.0, 1500.0, "salary", "Income", "Checking"},
	}
}

// testFixture builds a cache snapshot matching the grid, a fake remote and
// a client bound to it.
func testFixture(t *testing.T, grid [][]any) (*cache.Store, *fakeAPI, *sheets.Client, *config.Ledger) {
	t.Helper()
	cfg := config.TemplateLedger()

	store, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	assert.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	headers := []string{"Date", "Amount", "Description", "Category", "Account"}
	assert.NoError(t, store.Replace(headers, cfg.Header, testGrid()[1:]))

	api := &fakeAPI{title: "Ledger", grid: grid}
	client := sheets.NewClient(api, config.Spreadsheet{ID: "sheet-id", Worksheet: "Ledger"})
	return store, api, client, cfg
}

func TestQueueCategoryCapturesKeys(t *testing.T) {
	store, _, _, cfg := testFixture(t, testGrid())

	edit, err := QueueCategory(store, cfg, 1, "Food")
	assert.NoError(t, err)
	assert.Equal(t, "Category", edit.Column)
	assert.Equal(t, "Groceries", edit.Orig)
	assert.Equal(t, "Food", edit.Value)
	assert.Equal(t, "2025-01-10", edit.KeyDate)
	assert.Equal(t, "-80", edit.KeyAmt)
	assert.Equal(t, "groceries", edit.KeyDesc)
}

func TestQueueCategoryRejectsEmpty(t *testing.T) {
	store, _, _, cfg := testFixture(t, testGrid())
	_, err := QueueCategory(store, cfg, 1, "")
	assert.Error(t, err)
}

func TestQueueFieldAccount(t *testing.T) {
	store, _, _, cfg := testFixture(t, testGrid())

	edit, err := QueueField(store, cfg, 0, "account", "Joint")
	assert.NoError(t, err)
	assert.Equal(t, "Account", edit.Column)
	assert.Equal(t, "Checking", edit.Orig)
	assert.Equal(t, "Joint", edit.Value)

	_, err = QueueField(store, cfg, 0, "payee", "x")
	assert.Error(t, err)
}

func TestCommitAppliesFieldEdit(t *testing.T) {
	store, api, client, cfg := testFixture(t, testGrid())

	_, err := QueueField(store, cfg, 2, "account", "Savings")
	assert.NoError(t, err)

	_, err = Commit(context.Background(), client, store, cfg)
	assert.NoError(t, err)
	assert.Equal(t, "Ledger!E4", api.updates[0].Range)
}

func TestCommitApplies(t *testing.T) {
	store, api, client, cfg := testFixture(t, testGrid())

	_, err := QueueCategory(store, cfg, 1, "Food")
	assert.NoError(t, err)

	res, err := Commit(context.Background(), client, store, cfg)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(res.Applied))

	assert.Equal(t, 1, len(api.updates))
	assert.Equal(t, "Ledger!D3", api.updates[0].Range)
	assert.Equal[any](t, "Food", api.updates[0].Value)

	// The snapshot is patched and the queue cleared.
	row, err := store.Row(1)
	assert.NoError(t, err)
	assert.Equal(t, "Food", row["Category"].(string))

	edits, err := store.Edits()
	assert.NoError(t, err)
	assert.Equal(t, 0, len(edits))
}

func TestCommitNothingQueued(t *testing.T) {
	store, api, client, cfg := testFixture(t, testGrid())

	res, err := Commit(context.Background(), client, store, cfg)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(res.Applied))
	assert.Equal(t, 0, len(api.updates))
}

func TestCommitConflictAbortsAll(t *testing.T) {
	grid := testGrid()
	grid[2][1] = -85.0 // remote amount changed since the fetch

	store, api, client, cfg := testFixture(t, grid)

	_, err := QueueCategory(store, cfg, 0, "Coffee shops")
	assert.NoError(t, err)
	_, err = QueueCategory(store, cfg, 1, "Food")
	assert.NoError(t, err)

	res, err := Commit(context.Background(), client, store, cfg)
	assert.True(t, errors.Is(err, ErrConflict))

	// Nothing was written and the queue is intact.
	assert.Equal(t, 0, len(api.updates))
	edits, err := store.Edits()
	assert.NoError(t, err)
	assert.Equal(t, 2, len(edits))

	// Both edits were evaluated, not just the first conflicting one.
	assert.Equal(t, 2, len(res.Edits))
	assert.True(t, res.Edits[0].OK)
	assert.False(t, res.Edits[1].OK)
	assert.NotEqual(t, "", res.Edits[1].Message)
}

func TestCommitFollowsMovedRow(t *testing.T) {
	grid := testGrid()
	// The edited row moved from sheet row 3 to sheet row 4.
	grid[2], grid[3] = grid[3], grid[2]

	store, api, client, cfg := testFixture(t, grid)

	_, err := QueueCategory(store, cfg, 1, "Food")
	assert.NoError(t, err)

	_, err = Commit(context.Background(), client, store, cfg)
	assert.NoError(t, err)
	assert.Equal(t, "Ledger!D4", api.updates[0].Range)

	// The local patch lands on the edited row, not on the row's new remote
	// position.
	row, err := store.Row(1)
	assert.NoError(t, err)
	assert.Equal(t, "Food", row["Category"].(string))
	row, err = store.Row(2)
	assert.NoError(t, err)
	assert.Equal(t, "Income", row["Category"].(string))
}

func TestCommitAmbiguousDuplicatesAbort(t *testing.T) {
	grid := testGrid()
	// A duplicate of the groceries row makes the edit unanchorable.
	grid = append(grid, []any{45667.0, -80.0, "groceries", "Groceries", "Checking"})

	store, api, client, cfg := testFixture(t, grid)

	_, err := QueueCategory(store, cfg, 1, "Food")
	assert.NoError(t, err)

	res, err := Commit(context.Background(), client, store, cfg)
	assert.True(t, errors.Is(err, ErrConflict))
	assert.Equal(t, 0, len(api.updates))
	assert.False(t, res.Edits[0].OK)

	edits, err := store.Edits()
	assert.NoError(t, err)
	assert.Equal(t, 1, len(edits))
}
