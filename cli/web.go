package cli

import (
	"github.com/alecthomas/kong"

	"github.com/wgergely/expensetracker/web"
)

type WebCmd struct {
	Port     int  `help:"Port to listen on." default:"8080"`
	ReadOnly bool `help:"Serve without accepting edits." short:"r"`
	NoWatch  bool `help:"Disable the config and cache file watcher."`
}

func (cmd *WebCmd) Run(kctx *kong.Context, globals *Globals) error {
	runCtx, report := withTelemetry(kctx, globals)
	defer report()

	settings, err := openSettings(globals)
	if err != nil {
		return reportError(kctx.Stderr, err)
	}
	store, err := openStore(settings)
	if err != nil {
		return reportError(kctx.Stderr, err)
	}
	defer store.Close()

	server := web.New(cmd.Port, settings, store)
	server.ReadOnly = cmd.ReadOnly
	server.WatchEnabled = !cmd.NoWatch
	server.Version = Version
	server.CommitSHA = CommitSHA

	printInfof(kctx.Stdout, "Starting server on %s:%d", server.Host, cmd.Port)
	printInfof(kctx.Stdout, "Serving ledger: %s", pathStyle.Render(settings.Paths.LedgerPath))
	if cmd.ReadOnly {
		printInfof(kctx.Stdout, "Server running in READ-ONLY mode")
	}

	if err := server.Start(runCtx); err != nil {
		return reportError(kctx.Stderr, err)
	}
	return nil
}
