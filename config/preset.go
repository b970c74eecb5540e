package config

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/wgergely/expensetracker/status"
)

// A preset is a ZIP archive bundling ledger.json and client_secret.json so a
// complete configuration can be snapshotted, shared, and restored.

const presetExt = ".zip"

// presetMembers are the archive entries a preset must contain.
var presetMembers = []string{"ledger.json", "client_secret.json"}

// Preset describes one stored snapshot.
type Preset struct {
	Name        string
	Path        string
	Description string

	// Invalid marks an archive that could not be read or parsed. Invalid
	// presets are listed but never activated.
	Invalid bool
	// Active means the preset's ledger name matches the live configuration.
	Active bool
	// Modified means the stored ledger differs from the live document.
	Modified bool
}

// ListPresets scans the presets directory and classifies each archive
// against the live configuration.
func (s *Settings) ListPresets() ([]Preset, error) {
	entries, err := os.ReadDir(s.Paths.PresetsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read presets directory: %w", err)
	}

	liveJSON, err := json.Marshal(s.ledger)
	if err != nil {
		return nil, fmt.Errorf("failed to encode live ledger: %w", err)
	}

	var presets []Preset
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), presetExt) {
			continue
		}
		path := filepath.Join(s.Paths.PresetsDir, entry.Name())
		preset := Preset{
			Name: strings.TrimSuffix(entry.Name(), presetExt),
			Path: path,
		}

		stored, err := readPresetLedger(path)
		if err != nil {
			log.Warn("skipping unreadable preset", "path", path, "err", err)
			preset.Invalid = true
			presets = append(presets, preset)
			continue
		}

		preset.Description = stored.Metadata.Description
		preset.Active = stored.Metadata.Name == s.ledger.Metadata.Name
		if preset.Active {
			storedJSON, err := json.Marshal(stored)
			if err == nil && !bytes.Equal(canonicalJSON(storedJSON), canonicalJSON(liveJSON)) {
				preset.Modified = true
			}
		}
		presets = append(presets, preset)
	}

	sort.Slice(presets, func(i, j int) bool { return presets[i].Name < presets[j].Name })
	return presets, nil
}

// SavePreset snapshots the live configuration files into a new archive.
// An existing preset of the same name is overwritten.
func (s *Settings) SavePreset(name string) error {
	if name = strings.TrimSpace(name); name == "" {
		return fmt.Errorf("preset name must not be empty")
	}

	path := filepath.Join(s.Paths.PresetsDir, name+presetExt)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create preset: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	sources := map[string]string{
		"ledger.json":        s.Paths.LedgerPath,
		"client_secret.json": s.Paths.ClientSecret,
	}
	for member, src := range sources {
		data, err := os.ReadFile(src)
		if err != nil {
			if os.IsNotExist(err) && member == "client_secret.json" {
				// A preset without credentials is still a valid snapshot of
				// the ledger configuration.
				data = []byte("{}\n")
			} else {
				return fmt.Errorf("failed to read %s: %w", src, err)
			}
		}
		w, err := zw.Create(member)
		if err != nil {
			return fmt.Errorf("failed to add %s to preset: %w", member, err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("failed to write %s to preset: %w", member, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize preset: %w", err)
	}

	log.Info("saved preset", "name", name, "path", path)
	return nil
}

// ActivatePreset replaces the live configuration files with the preset's
// contents and reloads. The stored ledger is validated before anything on
// disk is touched.
func (s *Settings) ActivatePreset(name string) error {
	path := filepath.Join(s.Paths.PresetsDir, name+presetExt)

	members, err := readPresetMembers(path)
	if err != nil {
		return err
	}

	var ledger Ledger
	if err := json.Unmarshal(members["ledger.json"], &ledger); err != nil {
		return status.Wrap(status.LedgerConfigInvalid, err, "preset %q", name)
	}
	if err := ledger.Validate(); err != nil {
		return err
	}

	if err := os.WriteFile(s.Paths.LedgerPath, members["ledger.json"], 0o600); err != nil {
		return fmt.Errorf("failed to write ledger config: %w", err)
	}
	// An empty client secret member means the preset was saved without
	// credentials; keep whatever is live.
	if secret := members["client_secret.json"]; len(bytes.TrimSpace(secret)) > 2 {
		if err := os.WriteFile(s.Paths.ClientSecret, secret, 0o600); err != nil {
			return fmt.Errorf("failed to write client secret: %w", err)
		}
	}

	log.Info("activated preset", "name", name)
	return s.Reload()
}

// DeletePreset removes a stored preset.
func (s *Settings) DeletePreset(name string) error {
	path := filepath.Join(s.Paths.PresetsDir, name+presetExt)
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete preset %q: %w", name, err)
	}
	return nil
}

func readPresetMembers(path string) (map[string][]byte, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open preset %s: %w", path, err)
	}
	defer zr.Close()

	members := make(map[string][]byte)
	for _, f := range zr.File {
		for _, want := range presetMembers {
			if f.Name != want {
				continue
			}
			rc, err := f.Open()
			if err != nil {
				return nil, fmt.Errorf("failed to open %s in preset: %w", f.Name, err)
			}
			data, err := io.ReadAll(rc)
			_ = rc.Close()
			if err != nil {
				return nil, fmt.Errorf("failed to read %s in preset: %w", f.Name, err)
			}
			members[f.Name] = data
		}
	}

	if _, ok := members["ledger.json"]; !ok {
		return nil, fmt.Errorf("preset %s is missing ledger.json", path)
	}
	return members, nil
}

func readPresetLedger(path string) (*Ledger, error) {
	members, err := readPresetMembers(path)
	if err != nil {
		return nil, err
	}
	var ledger Ledger
	if err := json.Unmarshal(members["ledger.json"], &ledger); err != nil {
		return nil, fmt.Errorf("failed to parse ledger.json in %s: %w", path, err)
	}
	return &ledger, nil
}

// canonicalJSON reindents a JSON document so byte comparison ignores
// formatting differences.
func canonicalJSON(data []byte) []byte {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return data
	}
	out, err := json.Marshal(v)
	if err != nil {
		return data
	}
	return out
}
