// Package ledger turns cached sheet rows into typed transactions by
// applying the configured column mapping. The raw columns keep whatever
// names the spreadsheet uses; this is where they become date, amount,
// description, category and account.
package ledger

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"

	"github.com/wgergely/expensetracker/config"
	"github.com/wgergely/expensetracker/status"
)

// Uncategorized is assigned when the mapped category cell is empty.
const Uncategorized = "Uncategorized"

// descriptionJoin separates the parts of a multi-column description.
const descriptionJoin = " "

// Transaction is one ledger row with the mapping applied. Row is the cache
// row id, which also locates the row in the sheet.
type Transaction struct {
	Row         int
	Date        time.Time
	Amount      decimal.Decimal
	Description string
	Category    string
	Account     string
}

// Ledger holds the mapped transactions of one snapshot.
type Ledger struct {
	Transactions []Transaction

	cfg *config.Ledger
}

// FromRows maps cached rows onto transactions using the configured mapping.
// Columns is the cached column order; every mapped column must be present.
func FromRows(cfg *config.Ledger, columns []string, rows [][]any) (*Ledger, error) {
	if err := cfg.VerifyMapping(columns); err != nil {
		return nil, err
	}

	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}

	resolve := func(field string) ([]int, error) {
		specs := config.SplitMappingSpec(cfg.Mapping.Spec(field))
		out := make([]int, len(specs))
		for i, col := range specs {
			idx, ok := index[col]
			if !ok {
				return nil, status.New(status.MappingInvalid, "mapped column %q not in cache", col)
			}
			out[i] = idx
		}
		return out, nil
	}

	fields := make(map[string][]int, 5)
	for _, f := range cfg.Mapping.Fields() {
		idxs, err := resolve(f.Name)
		if err != nil {
			return nil, err
		}
		fields[f.Name] = idxs
	}

	l := &Ledger{cfg: cfg, Transactions: make([]Transaction, 0, len(rows))}
	for rowIdx, row := range rows {
		tx, err := mapRow(rowIdx, row, fields)
		if err != nil {
			log.Warn("skipping unmappable row", "row", rowIdx, "err", err)
			continue
		}
		l.Transactions = append(l.Transactions, tx)
	}
	return l, nil
}

func mapRow(rowIdx int, row []any, fields map[string][]int) (Transaction, error) {
	tx := Transaction{Row: rowIdx}

	date, err := parseDate(cellString(row, fields["date"][0]))
	if err != nil {
		return Transaction{}, err
	}
	tx.Date = date

	tx.Amount = cellDecimal(row, fields["amount"][0])

	parts := make([]string, 0, len(fields["description"]))
	for _, idx := range fields["description"] {
		if s := cellString(row, idx); s != "" {
			parts = append(parts, s)
		}
	}
	tx.Description = joinNonEmpty(parts)

	tx.Category = cellString(row, fields["category"][0])
	if tx.Category == "" {
		tx.Category = Uncategorized
	}
	tx.Account = cellString(row, fields["account"][0])
	return tx, nil
}

// Config returns the ledger configuration the transactions were mapped
// with.
func (l *Ledger) Config() *config.Ledger {
	return l.cfg
}

// Categories returns the sorted distinct categories present in the data,
// not the configured ones.
func (l *Ledger) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, tx := range l.Transactions {
		if !seen[tx.Category] {
			seen[tx.Category] = true
			out = append(out, tx.Category)
		}
	}
	sortStrings(out)
	return out
}

// Filter returns the transactions that pass the metadata's amount filters
// and category exclusions.
func (l *Ledger) Filter() []Transaction {
	md := l.cfg.Metadata
	excluded := l.cfg.ExcludedCategories()

	out := make([]Transaction, 0, len(l.Transactions))
	for _, tx := range l.Transactions {
		if excluded[tx.Category] {
			continue
		}
		switch tx.Amount.Sign() {
		case -1:
			if md.ExcludeNegative {
				continue
			}
		case 0:
			if md.ExcludeZero {
				continue
			}
		case 1:
			if md.ExcludePositive {
				continue
			}
		}
		out = append(out, tx)
	}
	return out
}

// Span returns the transactions dated within the period that starts at
// from (inclusive) and spans the given number of months.
func (l *Ledger) Span(from time.Time, months int) []Transaction {
	start := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, months, 0)

	var out []Transaction
	for _, tx := range l.Filter() {
		if !tx.Date.Before(start) && tx.Date.Before(end) {
			out = append(out, tx)
		}
	}
	return out
}
