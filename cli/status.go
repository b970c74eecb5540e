package cli

import (
	"fmt"
	"time"

	"github.com/alecthomas/kong"

	"github.com/wgergely/expensetracker/auth"
	"github.com/wgergely/expensetracker/cache"
	"github.com/wgergely/expensetracker/config"
)

type StatusCmd struct{}

func (cmd *StatusCmd) Run(kctx *kong.Context, globals *Globals) error {
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

	_, secretErr := settings.ClientSecret()

	rows := []struct{ key, value string }{
		{"Ledger", cfg.Metadata.Name},
		{"Config", pathStyle.Render(settings.Paths.BaseDir)},
		{"Spreadsheet", cfg.Spreadsheet.ID},
		{"Worksheet", cfg.Spreadsheet.Worksheet},
		{"Client secret", presence(secretErr == nil)},
		{"Signed in", presence(signedIn(settings))},
		{"Cache", cacheSummary(store, cfg)},
		{"Pending edits", pendingSummary(store)},
	}

	for _, row := range rows {
		_, _ = fmt.Fprintf(kctx.Stdout, "%s %s\n",
			dimStyle.Render(fmt.Sprintf("%-14s", row.key)), row.value)
	}
	return nil
}

func presence(ok bool) string {
	if ok {
		return successStyle.Render(successSymbol)
	}
	return errorStyle.Render(errorSymbol)
}

func signedIn(settings *config.Settings) bool {
	secret, err := settings.ClientSecret()
	if err != nil {
		return false
	}
	authenticator, err := auth.New(secret, settings.Paths.TokenPath)
	if err != nil {
		return false
	}
	return authenticator.Authenticated()
}

func cacheSummary(store *cache.Store, cfg *config.Ledger) string {
	state := store.Verify(cfg.Header)

	summary := state.String()
	switch state {
	case cache.StateValid:
		summary = successStyle.Render(summary)
	case cache.StateUninitialized, cache.StateEmpty, cache.StateStale:
		summary = infoStyle.Render(summary)
	default:
		summary = errorStyle.Render(summary)
	}

	if last, ok := store.LastSync(); ok {
		summary += dimStyle.Render(fmt.Sprintf(" (synced %s)", last.Local().Format(time.RFC822)))
	}
	return summary
}

func pendingSummary(store *cache.Store) string {
	edits, err := store.Edits()
	if err != nil {
		return errorStyle.Render("unreadable")
	}
	if len(edits) == 0 {
		return "none"
	}
	return fmt.Sprintf("%d (run 'expensetracker commit')", len(edits))
}
