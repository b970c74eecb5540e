package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/wgergely/expensetracker/config"
)

var testTypes = map[string]config.ColumnType{
	"Date":        config.TypeDate,
	"Amount":      config.TypeFloat,
	"Description": config.TypeString,
	"Category":    config.TypeString,
}

var testHeaders = []string{"Date", "Amount", "Description", "Category"}

func testRows() [][]any {
	return [][]any{
		{45000.0, -12.5, "coffee", "Dining"},
		{45001.0, -80.0, "groceries", "Groceries"},
		{45002.0, 1500.0, "salary", "Income"},
	}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	assert.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestVerifyUninitialized(t *testing.T) {
	s := openTestStore(t)
	assert.Equal(t, StateUninitialized, s.Verify(testTypes))
}

func TestReplaceAndRows(t *testing.T) {
	s := openTestStore(t)
	assert.NoError(t, s.Replace(testHeaders, testTypes, testRows()))
	assert.Equal(t, StateValid, s.Verify(testTypes))

	columns, rows, err := s.Rows()
	assert.NoError(t, err)
	assert.Equal(t, testHeaders, columns)
	assert.Equal(t, 3, len(rows))

	// Serial dates are stored as ISO strings, floats as REAL.
	assert.Equal(t, "2023-03-15", rows[0][0].(string))
	assert.Equal(t, -12.5, rows[0][1].(float64))
	assert.Equal(t, "coffee", rows[0][2].(string))

	_, ok := s.LastSync()
	assert.True(t, ok)
}

func TestReplaceCastsBadCells(t *testing.T) {
	s := openTestStore(t)
	rows := [][]any{
		{"not a date", "not a number", nil, "Dining"},
	}
	assert.NoError(t, s.Replace(testHeaders, testTypes, rows))

	_, stored, err := s.Rows()
	assert.NoError(t, err)
	assert.Equal(t, "1980-01-01", stored[0][0].(string))
	assert.Equal(t, 0.0, stored[0][1].(float64))
	assert.Equal(t, "", stored[0][2].(string))
}

func TestVerifyEmpty(t *testing.T) {
	s := openTestStore(t)
	assert.NoError(t, s.Replace(testHeaders, testTypes, nil))
	assert.Equal(t, StateEmpty, s.Verify(testTypes))
}

func TestVerifyStaleColumns(t *testing.T) {
	s := openTestStore(t)
	assert.NoError(t, s.Replace(testHeaders, testTypes, testRows()))

	changed := map[string]config.ColumnType{
		"Date":   config.TypeDate,
		"Amount": config.TypeFloat,
		"Payee":  config.TypeString,
	}
	assert.Equal(t, StateStale, s.Verify(changed))
}

func TestRowAndUpdateCell(t *testing.T) {
	s := openTestStore(t)
	assert.NoError(t, s.Replace(testHeaders, testTypes, testRows()))

	row, err := s.Row(1)
	assert.NoError(t, err)
	assert.Equal(t, "groceries", row["Description"].(string))

	assert.NoError(t, s.UpdateCell(1, "Category", "Food"))
	row, err = s.Row(1)
	assert.NoError(t, err)
	assert.Equal(t, "Food", row["Category"].(string))

	err = s.UpdateCell(99, "Category", "Food")
	assert.Error(t, err)
}

func TestQueueEditSquashes(t *testing.T) {
	s := openTestStore(t)

	first, err := s.QueueEdit(Edit{Row: 1, Column: "Category", Orig: "Groceries", Value: "Food",
		KeyDate: "2023-03-16", KeyAmt: "-80", KeyDesc: "groceries"})
	assert.NoError(t, err)
	assert.NotEqual(t, "", first.ID)

	second, err := s.QueueEdit(Edit{Row: 1, Column: "Category", Orig: "Food", Value: "Household",
		KeyDate: "2023-03-16", KeyAmt: "-80", KeyDesc: "groceries"})
	assert.NoError(t, err)

	// The squash keeps the first original, so the change still reads
	// against the fetched snapshot.
	assert.Equal(t, "Groceries", second.Orig)

	edits, err := s.Edits()
	assert.NoError(t, err)
	assert.Equal(t, 1, len(edits))
	assert.Equal(t, second.ID, edits[0].ID)
	assert.Equal(t, "Household", edits[0].Value)
	assert.Equal(t, "Groceries", edits[0].Orig)
}

func TestEditsSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.db")

	s, err := Open(path)
	assert.NoError(t, err)
	_, err = s.QueueEdit(Edit{Row: 0, Column: "Category", Value: "Food",
		KeyDate: "2023-03-15", KeyAmt: "-12.5", KeyDesc: "coffee"})
	assert.NoError(t, err)
	assert.NoError(t, s.Close())

	s, err = Open(path)
	assert.NoError(t, err)
	defer s.Close()

	edits, err := s.Edits()
	assert.NoError(t, err)
	assert.Equal(t, 1, len(edits))
	assert.Equal(t, "Food", edits[0].Value)
}

func TestDropAndClearEdits(t *testing.T) {
	s := openTestStore(t)

	e, err := s.QueueEdit(Edit{Row: 0, Column: "Category", Value: "Food"})
	assert.NoError(t, err)
	_, err = s.QueueEdit(Edit{Row: 1, Column: "Category", Value: "Travel"})
	assert.NoError(t, err)

	assert.NoError(t, s.DropEdit(e.ID))
	assert.Error(t, s.DropEdit(e.ID))

	assert.NoError(t, s.ClearEdits())
	edits, err := s.Edits()
	assert.NoError(t, err)
	assert.Equal(t, 0, len(edits))
}

func TestDelete(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.db")

	s, err := Open(path)
	assert.NoError(t, err)
	assert.NoError(t, s.Replace(testHeaders, testTypes, testRows()))
	assert.NoError(t, s.Delete())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestCast(t *testing.T) {
	tests := []struct {
		name  string
		value any
		typ   config.ColumnType
		want  any
	}{
		{"serial date", 45000.0, config.TypeDate, "2023-03-15"},
		{"iso date", "2023-03-15", config.TypeDate, "2023-03-15"},
		{"slash date", "2023/03/15", config.TypeDate, "2023-03-15"},
		{"bad date", "yesterday", config.TypeDate, "1980-01-01"},
		{"float from string", "1,500.25", config.TypeFloat, 1500.25},
		{"bad float", "n/a", config.TypeFloat, 0.0},
		{"empty float", "", config.TypeFloat, 0.0},
		{"blank int", "  ", config.TypeInt, int64(0)},
		{"int from float", 12.0, config.TypeInt, int64(12)},
		{"bad int", "twelve", config.TypeInt, int64(0)},
		{"string from number", 42.0, config.TypeString, "42"},
		{"nil string", nil, config.TypeString, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal[any](t, tt.want, Cast(tt.value, tt.typ, 0, "col"))
		})
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "valid", StateValid.String())
	assert.Equal(t, "stale", StateStale.String())
	assert.Equal(t, "unknown", State(99).String())
}
