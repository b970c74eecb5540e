package cli

import (
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/wgergely/expensetracker/report"
)

type TrendCmd struct {
	Category string `help:"Restrict to a single category (defaults to all spending)."`
}

func (cmd *TrendCmd) Run(kctx *kong.Context, globals *Globals) error {
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

	points, err := report.Trend(l, cmd.Category)
	if err != nil {
		return reportError(kctx.Stderr, err)
	}

	cfg := settings.Ledger()
	subject := "spending"
	if cmd.Category != "" {
		subject = cmd.Category
	}
	printInfof(kctx.Stdout, "%s, %s over %d months", cfg.Metadata.Name, subject, len(points))
	_, _ = fmt.Fprintln(kctx.Stdout)

	// Scale bars to the busiest month.
	var peak float64
	for _, p := range points {
		if spent, _ := p.Spending.Float64(); spent > peak {
			peak = spent
		}
	}

	columns := []column{
		{title: "Month"},
		{title: "Spending", right: true},
		{title: "Smoothed", right: true},
		{title: ""},
	}
	rows := make([][]string, 0, len(points))
	for _, p := range points {
		weight := 0.0
		if peak > 0 {
			spent, _ := p.Spending.Float64()
			weight = spent / peak
		}
		rows = append(rows, []string{
			p.Month,
			p.Spending.StringFixed(2),
			fmt.Sprintf("%.2f", p.Smoothed),
			bar(weight),
		})
	}
	renderTable(kctx.Stdout, columns, rows)
	return nil
}
