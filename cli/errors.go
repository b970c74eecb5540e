package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/wgergely/expensetracker/status"
	"github.com/wgergely/expensetracker/sync"
)

// reportError prints err in a user-facing form and returns a CommandError
// carrying the exit code. Status errors show their advice line; everything
// else prints as-is.
func reportError(w io.Writer, err error) error {
	var serr *status.Error
	switch {
	case errors.As(err, &serr):
		printError(w, serr.Error())
		if hint := hintFor(serr.Code); hint != "" {
			_, _ = fmt.Fprintf(w, "  %s\n", dimStyle.Render(hint))
		}
	case errors.Is(err, sync.ErrConflict):
		printError(w, err.Error())
		_, _ = fmt.Fprintf(w, "  %s\n", dimStyle.Render("Run 'expensetracker fetch' and queue the edits again."))
	default:
		printError(w, err.Error())
	}
	return NewCommandError(1)
}

// hintFor suggests the next command for errors the user can fix themselves.
func hintFor(code status.Code) string {
	switch code {
	case status.ClientSecretNotFound, status.ClientSecretInvalid:
		return "Place your Google client_secret.json in the configuration directory."
	case status.CredsNotFound, status.CredsInvalid, status.NotAuthenticated:
		return "Run 'expensetracker auth' to sign in."
	case status.SpreadsheetIDNotConfigured, status.WorksheetNotConfigured:
		return "Set spreadsheet.id and spreadsheet.worksheet in ledger.json."
	case status.CacheInvalid:
		return "Run 'expensetracker fetch' to rebuild the cache."
	default:
		return ""
	}
}
