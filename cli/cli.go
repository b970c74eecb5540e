// Package cli implements the expensetracker commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/wgergely/expensetracker/auth"
	"github.com/wgergely/expensetracker/cache"
	"github.com/wgergely/expensetracker/config"
	"github.com/wgergely/expensetracker/output"
	"github.com/wgergely/expensetracker/sheets"
	"github.com/wgergely/expensetracker/telemetry"
)

var (
	successSymbol = "✓"
	errorSymbol   = "✗"
	infoSymbol    = "→"

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00D787", Dark: "#00D787"})
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"})
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#5FAFFF", Dark: "#5FAFFF"})
	pathStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00D7D7", Dark: "#00D7D7"})
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

func printSuccess(w io.Writer, message string) {
	_, _ = fmt.Fprintf(w, "%s %s\n",
		successStyle.Render(successSymbol),
		message,
	)
}

func printError(w io.Writer, message string) {
	_, _ = fmt.Fprintf(w, "%s %s\n",
		errorStyle.Render(errorSymbol),
		errorStyle.Render(message),
	)
}

func printInfof(w io.Writer, format string, args ...interface{}) {
	formatted := fmt.Sprintf(format, args...)
	_, _ = fmt.Fprintf(w, "%s %s\n",
		infoStyle.Render(infoSymbol),
		formatted,
	)
}

// promptYesNo prompts the user with a yes/no question.
// Returns false by default if stdin is not a terminal.
func promptYesNo(question string) (bool, error) {
	if !isTerminal() {
		return false, nil
	}

	var confirm bool

	form := huh.NewConfirm().
		Title(question).
		WithButtonAlignment(lipgloss.Left).
		Value(&confirm)

	if err := form.Run(); err != nil {
		return false, fmt.Errorf("failed to read response: %w", err)
	}
	return confirm, nil
}

func isTerminal() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// openSettings loads the configuration, honoring --config.
func openSettings(globals *Globals) (*config.Settings, error) {
	var opts []config.Option
	if globals.Config != "" {
		opts = append(opts, config.WithBaseDir(globals.Config))
	}
	return config.Open(opts...)
}

// openStore opens the cache database under the settings directory.
func openStore(settings *config.Settings) (*cache.Store, error) {
	return cache.Open(settings.Paths.CachePath)
}

// newSheetsClient builds an authenticated client for the configured
// spreadsheet. It never prompts; the caller surfaces authentication errors
// and points the user at the auth command.
func newSheetsClient(ctx context.Context, settings *config.Settings) (*sheets.Client, error) {
	secret, err := settings.ClientSecret()
	if err != nil {
		return nil, err
	}

	authenticator, err := auth.New(secret, settings.Paths.TokenPath)
	if err != nil {
		return nil, err
	}
	source, err := authenticator.TokenSource(ctx)
	if err != nil {
		return nil, err
	}

	api, err := sheets.NewService(ctx, source)
	if err != nil {
		return nil, err
	}
	return sheets.NewClient(api, settings.Ledger().Spreadsheet), nil
}

// withTelemetry attaches a timing collector when --telemetry is set and
// returns a report function to defer.
func withTelemetry(kctx *kong.Context, globals *Globals) (context.Context, func()) {
	runCtx := context.Background()
	if !globals.Telemetry {
		return runCtx, func() {}
	}

	collector := telemetry.NewTimingCollector()
	runCtx = telemetry.WithCollector(runCtx, collector)

	return runCtx, func() {
		_, _ = fmt.Fprintln(kctx.Stderr)
		collector.Report(kctx.Stderr, output.NewStyles(kctx.Stderr))
	}
}
