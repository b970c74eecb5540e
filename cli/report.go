package cli

import (
	"fmt"
	"strconv"

	"github.com/alecthomas/kong"

	"github.com/wgergely/expensetracker/cache"
	"github.com/wgergely/expensetracker/config"
	"github.com/wgergely/expensetracker/ledger"
	"github.com/wgergely/expensetracker/report"
	"github.com/wgergely/expensetracker/status"
)

type ReportCmd struct {
	Month string `help:"Period start as YYYY-MM (defaults to the configured yearmonth)." placeholder:"YYYY-MM"`
	Span  int    `help:"Number of months to cover (defaults to the configured span)."`
}

func (cmd *ReportCmd) Run(kctx *kong.Context, globals *Globals) error {
	settings, err := openSettings(globals)
	if err != nil {
		return reportError(kctx.Stderr, err)
	}
	store, err := openStore(settings)
	if err != nil {
		return reportError(kctx.Stderr, err)
	}
	defer store.Close()

	l, err := loadLedger(settings, store)
	if err != nil {
		return reportError(kctx.Stderr, err)
	}

	cfg := settings.Ledger()
	month := cmd.Month
	if month == "" {
		month = cfg.Metadata.YearMonth
	}
	span := cmd.Span
	if span == 0 {
		span = cfg.Metadata.Span
	}

	bd, err := report.NewBreakdown(l, month, span)
	if err != nil {
		return reportError(kctx.Stderr, err)
	}

	title := month
	if span > 1 {
		title = fmt.Sprintf("%s + %d months", month, span-1)
	}
	printInfof(kctx.Stdout, "%s, %s", cfg.Metadata.Name, title)
	_, _ = fmt.Fprintln(kctx.Stdout)

	columns := []column{{title: "Category"}, {title: "Total", right: true}}
	if span > 1 {
		columns = append(columns,
			column{title: "Mean", right: true},
			column{title: "Min", right: true},
			column{title: "Max", right: true})
	}
	columns = append(columns, column{title: "Txns", right: true}, column{title: "Share"})

	rows := make([][]string, 0, len(bd.Rows)+1)
	for _, row := range bd.Rows {
		cells := []string{row.DisplayName, row.Total.StringFixed(2)}
		if span > 1 {
			cells = append(cells,
				row.Mean.StringFixed(2),
				row.Min.StringFixed(2),
				row.Max.StringFixed(2))
		}
		cells = append(cells, strconv.Itoa(row.Count), bar(row.Weight))
		rows = append(rows, cells)
	}

	totalCells := []string{"Total", bd.Total.StringFixed(2)}
	if span > 1 {
		totalCells = append(totalCells, "", "", "")
	}
	totalCells = append(totalCells, "", "")
	rows = append(rows, totalCells)

	renderTable(kctx.Stdout, columns, rows)
	return nil
}

// loadLedger maps the cached snapshot with the configured mapping. A stale
// or broken cache is refused rather than read.
func loadLedger(settings *config.Settings, store *cache.Store) (*ledger.Ledger, error) {
	switch state := store.Verify(settings.Ledger().Header); state {
	case cache.StateValid, cache.StateEmpty:
	default:
		return nil, status.New(status.CacheInvalid, "(cache is %s)", state)
	}
	columns, rows, err := store.Rows()
	if err != nil {
		return nil, err
	}
	return ledger.FromRows(settings.Ledger(), columns, rows)
}
