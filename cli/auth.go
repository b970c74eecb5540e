package cli

import (
	"github.com/alecthomas/kong"

	"github.com/wgergely/expensetracker/auth"
)

type AuthCmd struct {
	SignOut bool `help:"Discard the stored credentials instead of signing in."`
	Force   bool `help:"Discard the stored credentials and sign in from scratch." short:"f"`
}

func (cmd *AuthCmd) Run(kctx *kong.Context, globals *Globals) error {
	runCtx, report := withTelemetry(kctx, globals)
	defer report()

	settings, err := openSettings(globals)
	if err != nil {
		return reportError(kctx.Stderr, err)
	}

	secret, err := settings.ClientSecret()
	if err != nil {
		return reportError(kctx.Stderr, err)
	}
	authenticator, err := auth.New(secret, settings.Paths.TokenPath)
	if err != nil {
		return reportError(kctx.Stderr, err)
	}

	if cmd.SignOut {
		if err := authenticator.SignOut(); err != nil {
			return reportError(kctx.Stderr, err)
		}
		printSuccess(kctx.Stdout, "Signed out")
		return nil
	}
	if cmd.Force {
		if err := authenticator.SignOut(); err != nil {
			return reportError(kctx.Stderr, err)
		}
	}

	// A usable cached token makes the browser round trip unnecessary.
	if _, err := authenticator.Token(runCtx); err == nil {
		printSuccess(kctx.Stdout, "Already signed in")
		return nil
	}

	err = authenticator.SignIn(runCtx, func(url string) {
		printInfof(kctx.Stdout, "Open this link in your browser to sign in:")
		_, _ = kctx.Stdout.Write([]byte("\n  " + pathStyle.Render(url) + "\n\n"))
	})
	if err != nil {
		return reportError(kctx.Stderr, err)
	}

	printSuccess(kctx.Stdout, "Signed in")
	return nil
}
