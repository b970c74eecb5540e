package ledger

import (
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"

	"github.com/wgergely/expensetracker/config"
)

var testColumns = []string{"Date", "Amount", "Description", "Category", "Account"}

func testConfig() *config.Ledger {
	return config.TemplateLedger()
}

func testRows() [][]any {
	return [][]any{
		{"2025-01-05", -12.5, "coffee", "Dining", "Checking"},
		{"2025-01-10", -80.0, "groceries", "Groceries", "Checking"},
		{"2025-01-25", 1500.0, "salary", "Income", "Checking"},
		{"2025-02-02", -30.0, "petrol", "", "Checking"},
	}
}

func TestFromRows(t *testing.T) {
	l, err := FromRows(testConfig(), testColumns, testRows())
	assert.NoError(t, err)
	assert.Equal(t, 4, len(l.Transactions))

	tx := l.Transactions[0]
	assert.Equal(t, 0, tx.Row)
	assert.Equal(t, time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC), tx.Date)
	assert.True(t, tx.Amount.Equal(decimal.NewFromFloat(-12.5)))
	assert.Equal(t, "coffee", tx.Description)
	assert.Equal(t, "Dining", tx.Category)
	assert.Equal(t, "Checking", tx.Account)
}

func TestFromRowsFillsUncategorized(t *testing.T) {
	l, err := FromRows(testConfig(), testColumns, testRows())
	assert.NoError(t, err)
	assert.Equal(t, Uncategorized, l.Transactions[3].Category)
}

func TestFromRowsRejectsUnmappedColumn(t *testing.T) {
	cfg := testConfig()
	cfg.Mapping.Category = "Label"
	cfg.Header["Label"] = config.TypeString

	_, err := FromRows(cfg, testColumns, testRows())
	assert.Error(t, err)
}

func TestFromRowsSkipsBadDates(t *testing.T) {
	rows := append(testRows(), []any{"not a date", -1.0, "junk", "Dining", "Checking"})
	l, err := FromRows(testConfig(), testColumns, rows)
	assert.NoError(t, err)
	assert.Equal(t, 4, len(l.Transactions))
}

func TestMultiColumnDescription(t *testing.T) {
	cfg := testConfig()
	cfg.Mapping.Description = "Description|Account"

	l, err := FromRows(cfg, testColumns, testRows())
	assert.NoError(t, err)
	assert.Equal(t, "coffee Checking", l.Transactions[0].Description)
}

func TestCategories(t *testing.T) {
	l, err := FromRows(testConfig(), testColumns, testRows())
	assert.NoError(t, err)
	assert.Equal(t, []string{"Dining", "Groceries", "Income", "Uncategorized"}, l.Categories())
}

func TestFilterExcludesByAmountSign(t *testing.T) {
	cfg := testConfig()
	cfg.Metadata.ExcludePositive = true

	l, err := FromRows(cfg, testColumns, testRows())
	assert.NoError(t, err)

	for _, tx := range l.Filter() {
		assert.True(t, tx.Amount.Sign() <= 0)
	}
	assert.Equal(t, 3, len(l.Filter()))
}

func TestFilterExcludesCategories(t *testing.T) {
	cfg := testConfig()
	cfg.Categories["Income"] = config.Category{DisplayName: "Income", Color: "#00FF00", Excluded: true}

	l, err := FromRows(cfg, testColumns, testRows())
	assert.NoError(t, err)
	for _, tx := range l.Filter() {
		assert.NotEqual(t, "Income", tx.Category)
	}
}

func TestSpan(t *testing.T) {
	l, err := FromRows(testConfig(), testColumns, testRows())
	assert.NoError(t, err)

	jan := l.Span(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), 1)
	assert.Equal(t, 3, len(jan))

	both := l.Span(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), 2)
	assert.Equal(t, 4, len(both))

	none := l.Span(time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC), 1)
	assert.Equal(t, 0, len(none))
}
