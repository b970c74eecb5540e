// Package report aggregates mapped transactions into the category and
// period summaries the CLI and web surfaces render. All money math is done
// in decimals; floats only appear in weights and the trend smoother.
package report

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"

	"github.com/wgergely/expensetracker/ledger"
	"github.com/wgergely/expensetracker/status"
)

// CategoryRow is one category's aggregate over the reporting period.
type CategoryRow struct {
	Category    string
	DisplayName string
	Total       decimal.Decimal
	// Monthly breakdown of the period, zero-filled, oldest first.
	Monthly []decimal.Decimal
	Min     decimal.Decimal
	Max     decimal.Decimal
	Mean    decimal.Decimal
	Count   int
	// Weight is the category's share of the summed magnitudes, 0..1.
	Weight float64
}

// Breakdown is the category summary for a period of one or more months.
type Breakdown struct {
	From   time.Time
	Months int
	Rows   []CategoryRow
	Total  decimal.Decimal
}

// MonthTotal is the sum of all transactions in one calendar month.
type MonthTotal struct {
	Month time.Time
	Total decimal.Decimal
}

// ParseYearMonth parses a "2006-01" period start.
func ParseYearMonth(s string) (time.Time, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return time.Time{}, status.New(status.LedgerConfigInvalid, "bad yearmonth %q; want YYYY-MM", s)
	}
	return t, nil
}

// NewBreakdown summarizes the period starting at yearmonth and spanning the
// given number of months. With summary mode "monthly" the totals are
// averaged over the span instead of summed, so a 6-month view reads as a
// typical month.
func NewBreakdown(l *ledger.Ledger, yearmonth string, span int) (*Breakdown, error) {
	if span < 1 {
		return nil, status.New(status.LedgerConfigInvalid, "span must be at least 1, got %d", span)
	}
	from, err := ParseYearMonth(yearmonth)
	if err != nil {
		return nil, err
	}

	cfg := l.Config()
	monthly := span > 1 && cfg.Metadata.SummaryMode == "monthly"
	divisor := decimal.NewFromInt(int64(span))

	type bucket struct {
		monthly []decimal.Decimal
		count   int
	}
	buckets := make(map[string]*bucket)
	for _, tx := range l.Span(from, span) {
		b, ok := buckets[tx.Category]
		if !ok {
			b = &bucket{monthly: make([]decimal.Decimal, span)}
			buckets[tx.Category] = b
		}
		offset := monthOffset(from, tx.Date)
		b.monthly[offset] = b.monthly[offset].Add(tx.Amount)
		b.count++
	}

	// Configured categories without transactions show as zero rows unless
	// hidden.
	if !cfg.Metadata.HideEmptyCategories {
		excluded := cfg.ExcludedCategories()
		for name := range cfg.Categories {
			if _, ok := buckets[name]; !ok && !excluded[name] {
				buckets[name] = &bucket{monthly: make([]decimal.Decimal, span)}
			}
		}
	}

	bd := &Breakdown{From: from, Months: span, Rows: make([]CategoryRow, 0, len(buckets))}
	var magnitude decimal.Decimal
	for category, b := range buckets {
		row := CategoryRow{
			Category:    category,
			DisplayName: cfg.DisplayName(category),
			Monthly:     b.monthly,
			Count:       b.count,
			Min:         b.monthly[0],
			Max:         b.monthly[0],
		}
		var sum decimal.Decimal
		for _, m := range b.monthly {
			sum = sum.Add(m)
			if m.LessThan(row.Min) {
				row.Min = m
			}
			if m.GreaterThan(row.Max) {
				row.Max = m
			}
		}
		row.Mean = sum.DivRound(divisor, 2)
		row.Total = sum
		if monthly {
			row.Total = row.Mean
		}

		bd.Total = bd.Total.Add(row.Total)
		magnitude = magnitude.Add(row.Total.Abs())
		bd.Rows = append(bd.Rows, row)
	}

	if !magnitude.IsZero() {
		for i := range bd.Rows {
			bd.Rows[i].Weight, _ = bd.Rows[i].Total.Abs().Div(magnitude).Float64()
		}
	}

	sortRows(bd.Rows)
	return bd, nil
}

// MonthlyTotals sums every transaction per calendar month over the period,
// zero-filling months without data.
func MonthlyTotals(l *ledger.Ledger, from time.Time, months int) []MonthTotal {
	out := make([]MonthTotal, months)
	start := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i].Month = start.AddDate(0, i, 0)
	}
	for _, tx := range l.Span(from, months) {
		offset := monthOffset(start, tx.Date)
		out[offset].Total = out[offset].Total.Add(tx.Amount)
	}
	return out
}

func monthOffset(from, date time.Time) int {
	return (date.Year()-from.Year())*12 + int(date.Month()) - int(from.Month())
}

// sortRows orders by total ascending so the heaviest spending comes first,
// with the category name as tie-breaker.
func sortRows(rows []CategoryRow) {
	slices.SortFunc(rows, func(a, b CategoryRow) int {
		if c := a.Total.Cmp(b.Total); c != 0 {
			return c
		}
		return strings.Compare(a.Category, b.Category)
	})
}
