package cli

import (
	"github.com/charmbracelet/log"
)

var (
	Version   = ""
	CommitSHA = ""
)

// Globals defines global flags available to all commands.
type Globals struct {
	Telemetry bool   `help:"Show timing telemetry for operations."`
	Verbose   bool   `help:"Enable debug logging." short:"v"`
	Config    string `help:"Override the configuration directory." type:"path" placeholder:"DIR"`
}

// AfterApply configures logging once flags are parsed.
func (g *Globals) AfterApply() error {
	if g.Verbose {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.WarnLevel)
	}
	return nil
}

type Commands struct {
	Globals

	Auth   AuthCmd   `cmd:"" help:"Sign in to Google, or drop the stored credentials."`
	Fetch  FetchCmd  `cmd:"" help:"Fetch the ledger from the spreadsheet into the local cache."`
	Status StatusCmd `cmd:"" help:"Show configuration, authentication and cache health."`
	Report ReportCmd `cmd:"" help:"Show the category breakdown for a period."`
	Trend  TrendCmd  `cmd:"" help:"Show smoothed monthly spending."`
	Edit   EditCmd   `cmd:"" help:"Queue a category change for a transaction."`
	Edits  EditsCmd  `cmd:"" help:"List or discard queued edits."`
	Commit CommitCmd `cmd:"" help:"Write queued edits back to the spreadsheet."`
	Preset PresetCmd `cmd:"" help:"Manage configuration presets."`
	Doctor DoctorCmd `cmd:"" help:"Diagnose the local setup."`
	Web    WebCmd    `cmd:"" help:"Start a local web server over the cached ledger."`
}
