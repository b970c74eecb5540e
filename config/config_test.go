package config

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/wgergely/expensetracker/status"
)

func validLedger() *Ledger {
	return TemplateLedger()
}

func TestTemplateLedgerIsValid(t *testing.T) {
	assert.NoError(t, TemplateLedger().Validate())
}

func TestValidateSpreadsheet(t *testing.T) {
	l := validLedger()
	l.Spreadsheet.ID = ""
	err := l.Validate()
	assert.True(t, errors.Is(err, status.ErrLedgerConfigInvalid))

	l = validLedger()
	l.Spreadsheet.Worksheet = ""
	assert.True(t, errors.Is(l.Validate(), status.ErrLedgerConfigInvalid))
}

func TestValidateHeaderTypes(t *testing.T) {
	l := validLedger()
	l.Header["Amount"] = "currency"
	assert.True(t, errors.Is(l.Validate(), status.ErrHeadersInvalid))
}

func TestValidateMapping(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Ledger)
	}{
		{"empty field", func(l *Ledger) { l.Mapping.Category = "" }},
		{"multi-column amount", func(l *Ledger) { l.Mapping.Amount = "Amount|Fee" }},
		{"unknown column", func(l *Ledger) { l.Mapping.Account = "IBAN" }},
		{"date source not a date", func(l *Ledger) { l.Header["Date"] = TypeString }},
		{"amount source not numeric", func(l *Ledger) { l.Header["Amount"] = TypeString }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := validLedger()
			tt.mutate(l)
			err := l.Validate()
			assert.Error(t, err)
			assert.True(t, errors.Is(err, status.ErrMappingInvalid) || errors.Is(err, status.ErrHeadersInvalid))
		})
	}
}

func TestValidateMappingAllowsMultiColumnDescription(t *testing.T) {
	l := validLedger()
	l.Header["Notes"] = TypeString
	l.Mapping.Description = "Description|Notes"
	assert.NoError(t, l.Validate())
}

func TestValidateCategoryColor(t *testing.T) {
	l := validLedger()
	l.Categories["Groceries"] = Category{DisplayName: "Groceries", Color: "red"}
	assert.True(t, errors.Is(l.Validate(), status.ErrCategoriesInvalid))
}

func TestValidateMetadata(t *testing.T) {
	l := validLedger()
	l.Metadata.SummaryMode = "weekly"
	assert.True(t, errors.Is(l.Validate(), status.ErrLedgerConfigInvalid))

	l = validLedger()
	l.Metadata.LoessFraction = 1.5
	assert.True(t, errors.Is(l.Validate(), status.ErrLedgerConfigInvalid))

	l = validLedger()
	l.Metadata.Span = 0
	assert.True(t, errors.Is(l.Validate(), status.ErrLedgerConfigInvalid))
}

func TestSplitMappingSpec(t *testing.T) {
	tests := []struct {
		spec string
		want []string
	}{
		{"Description", []string{"Description"}},
		{"Description|Notes", []string{"Description", "Notes"}},
		{"A + B", []string{"A", "B"}},
		{" A |  | B ", []string{"A", "B"}},
		{"", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SplitMappingSpec(tt.spec))
	}
}

func TestMappingColumnsDeduplicates(t *testing.T) {
	m := Mapping{
		Date:        "Date",
		Amount:      "Amount",
		Description: "Description|Date",
		Category:    "Category",
		Account:     "Account",
	}
	assert.Equal(t, []string{"Date", "Amount", "Description", "Category", "Account"}, m.Columns())
}

func TestVerifyHeaders(t *testing.T) {
	l := validLedger()
	remote := []string{"Date", "Amount", "Description", "Category", "Account"}
	assert.NoError(t, l.VerifyHeaders(remote))

	err := l.VerifyHeaders([]string{"Date", "Amount"})
	assert.True(t, errors.Is(err, status.ErrHeadersInvalid))

	// An unconfigured remote column would stale every cache read, so the
	// fetch refuses it up front.
	err = l.VerifyHeaders(append(remote, "Notes"))
	assert.True(t, errors.Is(err, status.ErrHeadersInvalid))
	assert.Contains(t, err.Error(), "Notes")
}

func TestVerifyMapping(t *testing.T) {
	l := validLedger()
	assert.NoError(t, l.VerifyMapping([]string{"Date", "Amount", "Description", "Category", "Account"}))

	err := l.VerifyMapping([]string{"Date", "Amount", "Description"})
	assert.True(t, errors.Is(err, status.ErrMappingInvalid))
}

func TestDisplayName(t *testing.T) {
	l := validLedger()
	l.Categories["groceries"] = Category{DisplayName: "Groceries", Color: "#00FF00"}
	assert.Equal(t, "Groceries", l.DisplayName("groceries"))
	assert.Equal(t, "fuel", l.DisplayName("fuel"))
}
