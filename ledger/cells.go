package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"

	"github.com/wgergely/expensetracker/status"
)

func cellString(row []any, idx int) string {
	if idx < 0 || idx >= len(row) || row[idx] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[idx]))
}

func cellDecimal(row []any, idx int) decimal.Decimal {
	if idx < 0 || idx >= len(row) || row[idx] == nil {
		return decimal.Zero
	}
	switch v := row[idx].(type) {
	case float64:
		return decimal.NewFromFloat(v)
	case int64:
		return decimal.NewFromInt(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, status.New(status.CacheInvalid, "bad cached date %q", s)
	}
	return d, nil
}

func joinNonEmpty(parts []string) string {
	return strings.Join(parts, descriptionJoin)
}

func sortStrings(s []string) {
	slices.Sort(s)
}
