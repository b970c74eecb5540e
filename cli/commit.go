package cli

import (
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/wgergely/expensetracker/sync"
	"github.com/wgergely/expensetracker/telemetry"
)

type CommitCmd struct {
	Yes bool `help:"Skip the confirmation prompt." short:"y"`
}

func (cmd *CommitCmd) Run(kctx *kong.Context, globals *Globals) error {
	runCtx, report := withTelemetry(kctx, globals)
	defer report()

	timer := telemetry.FromContext(runCtx).Start("commit")
	defer timer.End()

	settings, err := openSettings(globals)
	if err != nil {
		return reportError(kctx.Stderr, err)
	}
	store, err := openStore(settings)
	if err != nil {
		return reportError(kctx.Stderr, err)
	}
	defer store.Close()

	edits, err := store.Edits()
	if err != nil {
		return reportError(kctx.Stderr, err)
	}
	if len(edits) == 0 {
		printInfof(kctx.Stdout, "No queued edits.")
		return nil
	}

	for _, e := range edits {
		printInfof(kctx.Stdout, "row %d: %s (%s): %s → %s", e.Row, e.KeyDesc, e.KeyDate, e.Orig, e.Value)
	}

	if !cmd.Yes {
		confirmed, err := promptYesNo(fmt.Sprintf("Write %d edit(s) to the spreadsheet?", len(edits)))
		if err != nil {
			return reportError(kctx.Stderr, err)
		}
		if !confirmed {
			printInfof(kctx.Stdout, "Nothing written.")
			return nil
		}
	}

	client, err := newSheetsClient(runCtx, settings)
	if err != nil {
		return reportError(kctx.Stderr, err)
	}

	commitTimer := timer.Child("apply edits")
	result, err := sync.Commit(runCtx, client, store, settings.Ledger())
	commitTimer.End()
	if err != nil {
		for _, r := range result.Edits {
			if !r.OK {
				printError(kctx.Stderr, fmt.Sprintf("row %d (%s): %s", r.Row, r.Column, r.Message))
			}
		}
		return reportError(kctx.Stderr, err)
	}

	printSuccess(kctx.Stdout, fmt.Sprintf("Committed %d edit(s)", len(result.Applied)))
	return nil
}
