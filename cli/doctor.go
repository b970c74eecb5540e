package cli

import (
	"context"
	"fmt"

	"github.com/alecthomas/kong"
	"github.com/alecthomas/repr"

	"github.com/wgergely/expensetracker/auth"
	"github.com/wgergely/expensetracker/cache"
	"github.com/wgergely/expensetracker/status"
)

// DoctorCmd walks the whole setup in dependency order and reports the
// first thing that needs fixing at each layer.
type DoctorCmd struct {
	Remote bool `help:"Also verify spreadsheet access and header layout against the live sheet."`
	Dump   bool `help:"Dump the effective configuration after the checks."`
}

type check struct {
	name string
	run  func(ctx context.Context) error
}

func (cmd *DoctorCmd) Run(kctx *kong.Context, globals *Globals) error {
	runCtx, report := withTelemetry(kctx, globals)
	defer report()

	settings, err := openSettings(globals)
	if err != nil {
		// Without a config nothing below can run.
		printError(kctx.Stderr, err.Error())
		return NewCommandError(1)
	}

	checks := []check{
		{"ledger config", func(ctx context.Context) error {
			return settings.Ledger().Validate()
		}},
		{"client secret", func(ctx context.Context) error {
			secret, err := settings.ClientSecret()
			if err != nil {
				return err
			}
			return secret.Validate()
		}},
		{"credentials", func(ctx context.Context) error {
			secret, err := settings.ClientSecret()
			if err != nil {
				return err
			}
			authenticator, err := auth.New(secret, settings.Paths.TokenPath)
			if err != nil {
				return err
			}
			_, err = authenticator.Token(ctx)
			return err
		}},
		{"cache", func(ctx context.Context) error {
			store, err := openStore(settings)
			if err != nil {
				return err
			}
			defer store.Close()

			switch state := store.Verify(settings.Ledger().Header); state {
			case cache.StateValid:
				return nil
			case cache.StateError:
				return status.Err(status.CacheInvalid)
			default:
				return status.New(status.CacheInvalid, "cache is %s; run 'expensetracker fetch'", state)
			}
		}},
	}

	if cmd.Remote {
		checks = append(checks,
			check{"spreadsheet access", func(ctx context.Context) error {
				client, err := newSheetsClient(ctx, settings)
				if err != nil {
					return err
				}
				_, err = client.VerifyAccess(ctx)
				return err
			}},
			check{"remote headers", func(ctx context.Context) error {
				client, err := newSheetsClient(ctx, settings)
				if err != nil {
					return err
				}
				headers, err := client.Headers(ctx)
				if err != nil {
					return err
				}
				if err := settings.Ledger().VerifyHeaders(headers); err != nil {
					return err
				}
				return settings.Ledger().VerifyMapping(headers)
			}},
		)
	}

	if cmd.Dump {
		repr.New(kctx.Stdout).Println(settings.Ledger())
		_, _ = fmt.Fprintln(kctx.Stdout)
	}

	failed := 0
	for _, c := range checks {
		if err := c.run(runCtx); err != nil {
			failed++
			_, _ = fmt.Fprintf(kctx.Stdout, "%s %-20s %s\n",
				errorStyle.Render(errorSymbol), c.name, dimStyle.Render(err.Error()))
			continue
		}
		_, _ = fmt.Fprintf(kctx.Stdout, "%s %s\n", successStyle.Render(successSymbol), c.name)
	}

	if failed > 0 {
		_, _ = fmt.Fprintln(kctx.Stdout)
		printError(kctx.Stdout, fmt.Sprintf("%d check(s) failed", failed))
		return NewCommandError(1)
	}

	_, _ = fmt.Fprintln(kctx.Stdout)
	printSuccess(kctx.Stdout, "All checks passed")
	return nil
}
