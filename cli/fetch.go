package cli

import (
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/wgergely/expensetracker/telemetry"
)

type FetchCmd struct{}

func (cmd *FetchCmd) Run(kctx *kong.Context, globals *Globals) error {
	runCtx, report := withTelemetry(kctx, globals)
	defer report()

	timer := telemetry.FromContext(runCtx).Start("fetch")
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

	client, err := newSheetsClient(runCtx, settings)
	if err != nil {
		return reportError(kctx.Stderr, err)
	}

	verifyTimer := timer.Child("verify access")
	ws, err := client.VerifyAccess(runCtx)
	verifyTimer.End()
	if err != nil {
		return reportError(kctx.Stderr, err)
	}

	fetchTimer := timer.Child("fetch rows")
	headers, rows, err := client.FetchAll(runCtx)
	fetchTimer.End()
	if err != nil {
		return reportError(kctx.Stderr, err)
	}

	cfg := settings.Ledger()
	if err := cfg.VerifyHeaders(headers); err != nil {
		return reportError(kctx.Stderr, err)
	}

	storeTimer := timer.Child("store rows")
	err = store.Replace(headers, cfg.Header, rows)
	storeTimer.End()
	if err != nil {
		return reportError(kctx.Stderr, err)
	}

	printSuccess(kctx.Stdout, fmt.Sprintf("Fetched %d rows from %q", len(rows), ws.Title))
	return nil
}
