package cache

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/wgergely/expensetracker/config"
	"github.com/wgergely/expensetracker/sheets"
)

// fallbackDate is stored when a date cell cannot be parsed. It is obviously
// wrong on sight, which beats silently dropping the row.
const fallbackDate = "1980-01-01"

// dateLayouts are tried in order when a date arrives as text instead of a
// serial number.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"01/02/2006",
	"02/01/2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// Cast converts a raw sheet cell to the declared column type. Unparseable
// values fall back to a type-appropriate zero value with a warning, so one
// bad cell never sinks a fetch.
func Cast(value any, t config.ColumnType, row int, column string) any {
	switch t {
	case config.TypeInt:
		return castInt(value, row, column)
	case config.TypeFloat:
		return castFloat(value, row, column)
	case config.TypeDate:
		return castDate(value, row, column)
	default:
		if value == nil {
			return ""
		}
		return fmt.Sprint(value)
	}
}

func castInt(value any, row int, column string) int64 {
	switch v := value.(type) {
	case nil:
		return 0
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			// A sparse sheet leaves numeric cells empty; that is a zero,
			// not garbage.
			return 0
		}
		n, err := strconv.ParseInt(trimmed, 10, 64)
		if err == nil {
			return n
		}
	}
	log.Warn("cell is not an integer", "row", row, "column", column, "value", value)
	return 0
}

func castFloat(value any, row int, column string) float64 {
	switch v := value.(type) {
	case nil:
		return 0
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float64:
		return v
	case string:
		cleaned := strings.TrimSpace(strings.ReplaceAll(v, ",", ""))
		if cleaned == "" {
			return 0
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		if err == nil {
			return f
		}
	}
	log.Warn("cell is not a number", "row", row, "column", column, "value", value)
	return 0
}

// castDate handles the two shapes Sheets produces for date cells: a serial
// number when the cell is formatted as a date, or text otherwise.
func castDate(value any, row int, column string) string {
	switch v := value.(type) {
	case nil:
		// fall through to the warning
	case float64:
		iso, err := sheets.SerialToISO(v)
		if err == nil {
			return iso
		}
	case int:
		iso, err := sheets.SerialToISO(float64(v))
		if err == nil {
			return iso
		}
	case int64:
		iso, err := sheets.SerialToISO(float64(v))
		if err == nil {
			return iso
		}
	case string:
		text := strings.TrimSpace(v)
		for _, layout := range dateLayouts {
			if d, err := time.Parse(layout, text); err == nil {
				return d.Format("2006-01-02")
			}
		}
	}
	log.Warn("cell is not a date", "row", row, "column", column, "value", value, "fallback", fallbackDate)
	return fallbackDate
}
