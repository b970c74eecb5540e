package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/wgergely/expensetracker/status"
)

// Settings owns the on-disk configuration: the ledger document and the OAuth
// client secret. Mutations go through section-level setters that validate
// before persisting and roll back the in-memory state on failure.
type Settings struct {
	Paths Paths

	ledger *Ledger
	secret *ClientSecret
}

// Option configures Settings.
type Option func(*Settings)

// WithBaseDir overrides the default per-user base directory.
func WithBaseDir(dir string) Option {
	return func(s *Settings) {
		s.Paths = NewPaths(dir)
	}
}

// Open resolves paths, ensures the directory tree, and loads both
// configuration files. A missing ledger.json is created from the built-in
// template so a fresh install starts from a valid document.
func Open(opts ...Option) (*Settings, error) {
	paths, err := DefaultPaths()
	if err != nil {
		return nil, err
	}
	s := &Settings{Paths: paths}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.Paths.Ensure(); err != nil {
		return nil, err
	}

	if _, err := os.Stat(s.Paths.LedgerPath); os.IsNotExist(err) {
		log.Debug("no ledger config found, writing template", "path", s.Paths.LedgerPath)
		if err := writeJSON(s.Paths.LedgerPath, TemplateLedger()); err != nil {
			return nil, err
		}
	}

	if err := s.loadLedger(); err != nil {
		return nil, err
	}
	// The client secret is only required once the user talks to Google, so a
	// missing file is not an error here.
	if _, err := os.Stat(s.Paths.ClientSecret); err == nil {
		if err := s.loadClientSecret(); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Ledger returns the validated ledger document.
func (s *Settings) Ledger() *Ledger { return s.ledger }

// ClientSecret returns the loaded client secret, or a CredsNotFound-style
// status error when client_secret.json is absent.
func (s *Settings) ClientSecret() (*ClientSecret, error) {
	if s.secret == nil {
		return nil, status.New(status.ClientSecretNotFound, "expected at %s", s.Paths.ClientSecret)
	}
	return s.secret, nil
}

func (s *Settings) loadLedger() error {
	log.Debug("loading ledger config", "path", s.Paths.LedgerPath)

	data, err := os.ReadFile(s.Paths.LedgerPath)
	if err != nil {
		if os.IsNotExist(err) {
			return status.New(status.LedgerConfigNotFound, "expected at %s", s.Paths.LedgerPath)
		}
		return fmt.Errorf("failed to read %s: %w", s.Paths.LedgerPath, err)
	}

	var ledger Ledger
	if err := json.Unmarshal(data, &ledger); err != nil {
		return status.Wrap(status.LedgerConfigInvalid, err, "failed to parse %s", s.Paths.LedgerPath)
	}
	if err := ledger.Validate(); err != nil {
		return err
	}

	s.ledger = &ledger
	return nil
}

func (s *Settings) loadClientSecret() error {
	log.Debug("loading client secret", "path", s.Paths.ClientSecret)

	secret, err := LoadClientSecret(s.Paths.ClientSecret)
	if err != nil {
		return err
	}
	s.secret = secret
	return nil
}

// Reload re-reads both configuration files from disk.
func (s *Settings) Reload() error {
	if err := s.loadLedger(); err != nil {
		return err
	}
	if _, err := os.Stat(s.Paths.ClientSecret); err == nil {
		return s.loadClientSecret()
	}
	s.secret = nil
	return nil
}

// SetSpreadsheet replaces the spreadsheet section, validating and persisting.
func (s *Settings) SetSpreadsheet(sp Spreadsheet) error {
	return s.mutate(func(l *Ledger) { l.Spreadsheet = sp })
}

// SetHeader replaces the header section.
func (s *Settings) SetHeader(header map[string]ColumnType) error {
	return s.mutate(func(l *Ledger) { l.Header = header })
}

// SetMapping replaces the mapping section.
func (s *Settings) SetMapping(m Mapping) error {
	return s.mutate(func(l *Ledger) { l.Mapping = m })
}

// SetCategories replaces the categories section.
func (s *Settings) SetCategories(categories map[string]Category) error {
	return s.mutate(func(l *Ledger) { l.Categories = categories })
}

// SetMetadata replaces the metadata section.
func (s *Settings) SetMetadata(md Metadata) error {
	return s.mutate(func(l *Ledger) { l.Metadata = md })
}

// mutate applies fn to a copy of the document, validates it, persists it,
// and only then swaps it in. The live document is never left invalid.
func (s *Settings) mutate(fn func(*Ledger)) error {
	next := *s.ledger
	fn(&next)
	if err := next.Validate(); err != nil {
		return err
	}
	if err := writeJSON(s.Paths.LedgerPath, &next); err != nil {
		return err
	}
	s.ledger = &next
	return nil
}

// RevertLedger restores ledger.json from the built-in template.
func (s *Settings) RevertLedger() error {
	tmpl := TemplateLedger()
	if err := writeJSON(s.Paths.LedgerPath, tmpl); err != nil {
		return err
	}
	s.ledger = tmpl
	return nil
}

// Save persists the current in-memory state of both documents.
func (s *Settings) Save() error {
	if err := s.ledger.Validate(); err != nil {
		return err
	}
	if err := writeJSON(s.Paths.LedgerPath, s.ledger); err != nil {
		return err
	}
	if s.secret != nil {
		return writeJSON(s.Paths.ClientSecret, s.secret)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// TemplateLedger returns the default document a fresh install starts from.
// The spreadsheet id is a placeholder the user must replace; everything else
// carries working defaults.
func TemplateLedger() *Ledger {
	return &Ledger{
		Spreadsheet: Spreadsheet{ID: "REPLACE_ME", Worksheet: "Ledger"},
		Header: map[string]ColumnType{
			"Date":        TypeDate,
			"Amount":      TypeFloat,
			"Description": TypeString,
			"Category":    TypeString,
			"Account":     TypeString,
		},
		Mapping: Mapping{
			Date:        "Date",
			Amount:      "Amount",
			Description: "Description",
			Category:    "Category",
			Account:     "Account",
		},
		Categories: map[string]Category{
			"Uncategorized": {
				DisplayName: "Uncategorized",
				Color:       "#9E9E9E",
				Description: "Transactions without a category",
				Icon:        "question",
			},
		},
		Metadata: Metadata{
			Name:                "My Ledger",
			Description:         "Personal finance ledger",
			Locale:              "en_GB",
			SummaryMode:         "total",
			HideEmptyCategories: true,
			YearMonth:           "2025-01",
			Span:                1,
			Theme:               "dark",
			LoessFraction:       0.4,
			NegativeSpan:        12,
		},
	}
}
