package cli

import (
	"fmt"
	"time"

	"github.com/alecthomas/kong"

	"github.com/wgergely/expensetracker/sync"
)

type EditCmd struct {
	Row   int    `arg:"" help:"Cached row id of the transaction (see 'report' or the web UI)."`
	Value string `arg:"" help:"New value for the edited field."`
	Field string `help:"Logical field to change." enum:"category,account,date,amount,description" default:"category"`
}

func (cmd *EditCmd) Run(kctx *kong.Context, globals *Globals) error {
	settings, err := openSettings(globals)
	if err != nil {
		return reportError(kctx.Stderr, err)
	}
	store, err := openStore(settings)
	if err != nil {
		return reportError(kctx.Stderr, err)
	}
	defer store.Close()

	cfg := settings.Ledger()
	if cmd.Field == "category" {
		if _, ok := cfg.Categories[cmd.Value]; !ok {
			printInfof(kctx.Stdout, "Category %q is not configured; it will be created on the sheet as-is.", cmd.Value)
		}
	}

	edit, err := sync.QueueField(store, cfg, cmd.Row, cmd.Field, cmd.Value)
	if err != nil {
		return reportError(kctx.Stderr, err)
	}

	printSuccess(kctx.Stdout, fmt.Sprintf("Queued: row %d %s %q → %q (%s, %s)",
		edit.Row, cmd.Field, edit.Orig, edit.Value, edit.KeyDesc, edit.KeyDate))
	printInfof(kctx.Stdout, "Run 'expensetracker commit' to write queued edits to the sheet.")
	return nil
}

type EditsCmd struct {
	Drop  string `help:"Discard a single queued edit by id." placeholder:"ID"`
	Clear bool   `help:"Discard every queued edit."`
}

func (cmd *EditsCmd) Run(kctx *kong.Context, globals *Globals) error {
	settings, err := openSettings(globals)
	if err != nil {
		return reportError(kctx.Stderr, err)
	}
	store, err := openStore(settings)
	if err != nil {
		return reportError(kctx.Stderr, err)
	}
	defer store.Close()

	switch {
	case cmd.Drop != "":
		if err := store.DropEdit(cmd.Drop); err != nil {
			return reportError(kctx.Stderr, err)
		}
		printSuccess(kctx.Stdout, "Edit discarded")
		return nil

	case cmd.Clear:
		if err := store.ClearEdits(); err != nil {
			return reportError(kctx.Stderr, err)
		}
		printSuccess(kctx.Stdout, "Queue cleared")
		return nil
	}

	edits, err := store.Edits()
	if err != nil {
		return reportError(kctx.Stderr, err)
	}
	if len(edits) == 0 {
		printInfof(kctx.Stdout, "No queued edits.")
		return nil
	}

	columns := []column{
		{title: "ID"},
		{title: "Row", right: true},
		{title: "Date"},
		{title: "Description"},
		{title: "Change"},
		{title: "Queued"},
	}
	rows := make([][]string, 0, len(edits))
	for _, e := range edits {
		rows = append(rows, []string{
			e.ID,
			fmt.Sprintf("%d", e.Row),
			e.KeyDate,
			e.KeyDesc,
			fmt.Sprintf("%s → %s", e.Orig, e.Value),
			e.Created.Local().Format(time.RFC822),
		})
	}
	renderTable(kctx.Stdout, columns, rows)
	return nil
}
