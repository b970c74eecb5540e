package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const appName = "ExpenseTracker"

// Paths resolves every file the application persists. All files live under a
// single base directory so presets can snapshot and restore it wholesale.
type Paths struct {
	BaseDir      string
	LedgerPath   string
	ClientSecret string
	TokenPath    string
	CachePath    string
	PresetsDir   string
}

// DefaultPaths resolves the per-user base directory (os.UserConfigDir).
func DefaultPaths() (Paths, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return Paths{}, fmt.Errorf("failed to resolve user config directory: %w", err)
	}
	return NewPaths(filepath.Join(dir, appName)), nil
}

// NewPaths lays out the application files under the given base directory.
func NewPaths(baseDir string) Paths {
	return Paths{
		BaseDir:      baseDir,
		LedgerPath:   filepath.Join(baseDir, "ledger.json"),
		ClientSecret: filepath.Join(baseDir, "client_secret.json"),
		TokenPath:    filepath.Join(baseDir, "auth", "creds.json"),
		CachePath:    filepath.Join(baseDir, "db", "cache.db"),
		PresetsDir:   filepath.Join(baseDir, "presets"),
	}
}

// Ensure creates the directory tree.
func (p Paths) Ensure() error {
	for _, dir := range []string{
		p.BaseDir,
		filepath.Dir(p.TokenPath),
		filepath.Dir(p.CachePath),
		p.PresetsDir,
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}
