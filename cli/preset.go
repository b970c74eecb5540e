package cli

import (
	"fmt"

	"github.com/alecthomas/kong"
)

type PresetCmd struct {
	List     PresetListCmd     `cmd:"" default:"1" help:"List saved presets."`
	Save     PresetSaveCmd     `cmd:"" help:"Save the current configuration as a preset."`
	Activate PresetActivateCmd `cmd:"" help:"Replace the current configuration with a preset."`
	Delete   PresetDeleteCmd   `cmd:"" help:"Delete a preset."`
}

type PresetListCmd struct{}

func (cmd *PresetListCmd) Run(kctx *kong.Context, globals *Globals) error {
	settings, err := openSettings(globals)
	if err != nil {
		return reportError(kctx.Stderr, err)
	}

	presets, err := settings.ListPresets()
	if err != nil {
		return reportError(kctx.Stderr, err)
	}
	if len(presets) == 0 {
		printInfof(kctx.Stdout, "No presets saved. Use 'preset save <name>' to create one.")
		return nil
	}

	for _, p := range presets {
		marker := " "
		switch {
		case p.Invalid:
			marker = errorStyle.Render(errorSymbol)
		case p.Active && p.Modified:
			marker = infoStyle.Render("~")
		case p.Active:
			marker = successStyle.Render(successSymbol)
		}

		line := fmt.Sprintf("%s %s", marker, p.Name)
		if p.Description != "" {
			line += dimStyle.Render(" - " + p.Description)
		}
		_, _ = fmt.Fprintln(kctx.Stdout, line)
	}
	return nil
}

type PresetSaveCmd struct {
	Name string `arg:"" help:"Preset name."`
}

func (cmd *PresetSaveCmd) Run(kctx *kong.Context, globals *Globals) error {
	settings, err := openSettings(globals)
	if err != nil {
		return reportError(kctx.Stderr, err)
	}
	if err := settings.SavePreset(cmd.Name); err != nil {
		return reportError(kctx.Stderr, err)
	}
	printSuccess(kctx.Stdout, fmt.Sprintf("Saved preset %q", cmd.Name))
	return nil
}

type PresetActivateCmd struct {
	Name string `arg:"" help:"Preset name."`
	Yes  bool   `help:"Skip the confirmation prompt." short:"y"`
}

func (cmd *PresetActivateCmd) Run(kctx *kong.Context, globals *Globals) error {
	settings, err := openSettings(globals)
	if err != nil {
		return reportError(kctx.Stderr, err)
	}

	if !cmd.Yes {
		confirmed, err := promptYesNo(fmt.Sprintf("Replace the current configuration with preset %q?", cmd.Name))
		if err != nil {
			return reportError(kctx.Stderr, err)
		}
		if !confirmed {
			printInfof(kctx.Stdout, "Configuration unchanged.")
			return nil
		}
	}

	if err := settings.ActivatePreset(cmd.Name); err != nil {
		return reportError(kctx.Stderr, err)
	}
	printSuccess(kctx.Stdout, fmt.Sprintf("Activated preset %q", cmd.Name))
	printInfof(kctx.Stdout, "Run 'expensetracker fetch' to refresh the cache for the new ledger.")
	return nil
}

type PresetDeleteCmd struct {
	Name string `arg:"" help:"Preset name."`
}

func (cmd *PresetDeleteCmd) Run(kctx *kong.Context, globals *Globals) error {
	settings, err := openSettings(globals)
	if err != nil {
		return reportError(kctx.Stderr, err)
	}
	if err := settings.DeletePreset(cmd.Name); err != nil {
		return reportError(kctx.Stderr, err)
	}
	printSuccess(kctx.Stdout, fmt.Sprintf("Deleted preset %q", cmd.Name))
	return nil
}
