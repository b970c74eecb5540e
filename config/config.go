// Package config implements the ledger.json settings layer: the document
// schema, validation, section-level persistence, and ZIP-bundled presets.
//
// A ledger document has five sections:
//
//   - spreadsheet: the remote document id and worksheet title
//   - header: sheet column name -> column type, defining the cache schema
//   - mapping: logical field (date, amount, ...) -> source column spec
//   - categories: category name -> display configuration
//   - metadata: presentation and filtering preferences
//
// Validation is strict on load and on every set: invalid data never replaces
// valid in-memory data.
package config

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/wgergely/expensetracker/status"
)

// ColumnType is the declared type of a sheet column.
type ColumnType string

const (
	TypeString ColumnType = "string"
	TypeInt    ColumnType = "int"
	TypeFloat  ColumnType = "float"
	TypeDate   ColumnType = "date"
)

// ColumnTypes lists every valid header type.
var ColumnTypes = []ColumnType{TypeString, TypeInt, TypeFloat, TypeDate}

// MappingSeparators are the characters that join multiple source columns in
// a mapping spec. Only the description mapping may use them.
const MappingSeparators = "|+"

var hexColorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Spreadsheet identifies the remote document.
type Spreadsheet struct {
	ID        string `json:"id"`
	Worksheet string `json:"worksheet"`
}

// Mapping binds the logical transaction fields to sheet columns. Every field
// is required. Description may reference several columns joined with '|' or
// '+'; the other fields must name exactly one column.
type Mapping struct {
	Date        string `json:"date"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Account     string `json:"account"`
}

// Category holds the display configuration for one category.
type Category struct {
	DisplayName string `json:"display_name"`
	Color       string `json:"color"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Excluded    bool   `json:"excluded"`
}

// Metadata holds presentation and filtering preferences.
type Metadata struct {
	Name                string  `json:"name"`
	Description         string  `json:"description"`
	Locale              string  `json:"locale"`
	SummaryMode         string  `json:"summary_mode"`
	HideEmptyCategories bool    `json:"hide_empty_categories"`
	ExcludeNegative     bool    `json:"exclude_negative"`
	ExcludeZero         bool    `json:"exclude_zero"`
	ExcludePositive     bool    `json:"exclude_positive"`
	YearMonth           string  `json:"yearmonth"`
	Span                int     `json:"span"`
	Theme               string  `json:"theme"`
	LoessFraction       float64 `json:"loess_fraction"`
	NegativeSpan        int     `json:"negative_span"`
}

// Ledger is the full ledger.json document.
type Ledger struct {
	Spreadsheet Spreadsheet           `json:"spreadsheet"`
	Header      map[string]ColumnType `json:"header"`
	Mapping     Mapping               `json:"mapping"`
	Categories  map[string]Category   `json:"categories"`
	Metadata    Metadata              `json:"metadata"`
}

// SplitMappingSpec splits a mapping specification into its source column
// names, trimming whitespace and dropping empty segments.
func SplitMappingSpec(spec string) []string {
	parts := strings.FieldsFunc(spec, func(r rune) bool {
		return strings.ContainsRune(MappingSeparators, r)
	})
	columns := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			columns = append(columns, p)
		}
	}
	return columns
}

// Fields returns the logical mapping fields in a stable order, paired with
// their specs.
func (m Mapping) Fields() []MappingField {
	return []MappingField{
		{Name: "date", Spec: m.Date},
		{Name: "amount", Spec: m.Amount},
		{Name: "description", Spec: m.Description},
		{Name: "category", Spec: m.Category},
		{Name: "account", Spec: m.Account},
	}
}

// MappingField is one logical field of the mapping with its raw spec.
type MappingField struct {
	Name string
	Spec string
}

// Columns returns every source column the mapping references, deduplicated,
// in field order.
func (m Mapping) Columns() []string {
	seen := make(map[string]bool)
	var columns []string
	for _, f := range m.Fields() {
		for _, col := range SplitMappingSpec(f.Spec) {
			if !seen[col] {
				seen[col] = true
				columns = append(columns, col)
			}
		}
	}
	return columns
}

// Spec returns the raw spec for a logical field name, or "".
func (m Mapping) Spec(field string) string {
	for _, f := range m.Fields() {
		if f.Name == field {
			return f.Spec
		}
	}
	return ""
}

// Validate checks the document against the schema.
func (l *Ledger) Validate() error {
	if l.Spreadsheet.ID == "" {
		return status.New(status.LedgerConfigInvalid, `missing "spreadsheet.id"`)
	}
	if l.Spreadsheet.Worksheet == "" {
		return status.New(status.LedgerConfigInvalid, `missing "spreadsheet.worksheet"`)
	}

	if len(l.Header) == 0 {
		return status.New(status.HeadersInvalid, "no header columns configured")
	}
	for col, typ := range l.Header {
		if !validColumnType(typ) {
			return status.New(status.HeadersInvalid,
				"column %q has unknown type %q, must be one of %v", col, typ, ColumnTypes)
		}
	}

	if err := l.validateMapping(); err != nil {
		return err
	}

	for name, cat := range l.Categories {
		if !hexColorRe.MatchString(cat.Color) {
			return status.New(status.CategoriesInvalid,
				"category %q color must be #RRGGBB, got %q", name, cat.Color)
		}
	}

	if err := l.Metadata.validate(); err != nil {
		return err
	}

	return nil
}

func (l *Ledger) validateMapping() error {
	for _, f := range l.Mapping.Fields() {
		if strings.TrimSpace(f.Spec) == "" {
			return status.New(status.MappingInvalid, "mapping %q is empty", f.Name)
		}
		// Only description may join multiple source columns.
		if f.Name != "description" && strings.ContainsAny(f.Spec, MappingSeparators) {
			return status.New(status.MappingInvalid,
				"mapping %q must reference a single column, got %q", f.Name, f.Spec)
		}
		for _, col := range SplitMappingSpec(f.Spec) {
			if _, ok := l.Header[col]; !ok {
				return status.New(status.MappingInvalid,
					"mapping %q references column %q not present in the header section", f.Name, col)
			}
		}
	}

	// The date and amount sources must carry compatible types.
	if typ := l.Header[l.Mapping.Date]; typ != TypeDate {
		return status.New(status.MappingInvalid,
			"date column %q must be of type date, got %q", l.Mapping.Date, typ)
	}
	if typ := l.Header[l.Mapping.Amount]; typ != TypeFloat && typ != TypeInt {
		return status.New(status.MappingInvalid,
			"amount column %q must be numeric, got %q", l.Mapping.Amount, typ)
	}

	return nil
}

func (md Metadata) validate() error {
	switch md.SummaryMode {
	case "total", "monthly":
	default:
		return status.New(status.LedgerConfigInvalid,
			`metadata summary_mode must be "total" or "monthly", got %q`, md.SummaryMode)
	}
	if md.Span < 1 {
		return status.New(status.LedgerConfigInvalid, "metadata span must be at least 1")
	}
	if md.LoessFraction <= 0 || md.LoessFraction > 1 {
		return status.New(status.LedgerConfigInvalid, "metadata loess_fraction must be in (0, 1]")
	}
	if md.NegativeSpan < 1 {
		return status.New(status.LedgerConfigInvalid, "metadata negative_span must be at least 1")
	}
	return nil
}

// VerifyHeaders checks that the remote header row carries exactly the
// configured columns. The configured header set defines the cache schema,
// so any divergence is rejected here rather than discovered as a stale
// cache on the next read.
func (l *Ledger) VerifyHeaders(remote []string) error {
	remoteSet := make(map[string]bool, len(remote))
	for _, h := range remote {
		remoteSet[h] = true
	}
	var missing []string
	for col := range l.Header {
		if !remoteSet[col] {
			missing = append(missing, col)
		}
	}
	var unexpected []string
	for _, h := range remote {
		if _, ok := l.Header[h]; !ok {
			unexpected = append(unexpected, h)
		}
	}
	var problems []string
	if len(missing) > 0 {
		sort.Strings(missing)
		problems = append(problems, fmt.Sprintf("%s not found", strings.Join(missing, ", ")))
	}
	if len(unexpected) > 0 {
		problems = append(problems, fmt.Sprintf("%s not configured", strings.Join(unexpected, ", ")))
	}
	if len(problems) > 0 {
		return status.New(status.HeadersInvalid,
			"remote sheet headers do not match the expected configuration: %s",
			strings.Join(problems, "; "))
	}
	return nil
}

// VerifyMapping checks that every mapped source column exists in the remote
// header row.
func (l *Ledger) VerifyMapping(remote []string) error {
	remoteSet := make(map[string]bool, len(remote))
	for _, h := range remote {
		remoteSet[h] = true
	}
	var missing []string
	for _, col := range l.Mapping.Columns() {
		if !remoteSet[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return status.New(status.MappingInvalid,
			"header mapping references columns not found in the remote sheet: %s",
			strings.Join(missing, ", "))
	}
	return nil
}

// DisplayName returns the configured display name for a category, falling
// back to the raw name.
func (l *Ledger) DisplayName(category string) string {
	if cat, ok := l.Categories[category]; ok && cat.DisplayName != "" {
		return cat.DisplayName
	}
	return category
}

// ExcludedCategories returns the set of categories flagged excluded.
func (l *Ledger) ExcludedCategories() map[string]bool {
	excluded := make(map[string]bool)
	for name, cat := range l.Categories {
		if cat.Excluded {
			excluded[name] = true
		}
	}
	return excluded
}

func validColumnType(t ColumnType) bool {
	for _, v := range ColumnTypes {
		if t == v {
			return true
		}
	}
	return false
}
