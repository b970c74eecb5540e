// Package cache keeps a local SQLite copy of the remote ledger so reports
// and edits work without a network round trip. The transactions table is
// rebuilt on every fetch with one column per configured header, typed
// according to the header's declared type. Pending category edits are
// persisted alongside the data so they survive between invocations.
package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	_ "modernc.org/sqlite"

	"github.com/wgergely/expensetracker/config"
	"github.com/wgergely/expensetracker/status"
)

// MaxAge is how long a fetched snapshot stays usable before it is
// considered stale.
const MaxAge = 7 * 24 * time.Hour

// State describes the usability of the local snapshot.
type State int

const (
	StateUninitialized State = iota
	StateEmpty
	StateStale
	StateError
	StateValid
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateEmpty:
		return "empty"
	case StateStale:
		return "stale"
	case StateError:
		return "error"
	case StateValid:
		return "valid"
	}
	return "unknown"
}

// Store is a handle to the cache database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the cache database and ensures the fixed tables
// exist. The transactions table is created lazily by Replace because its
// columns depend on the configured header.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, status.Wrap(status.CacheInvalid, err, "failed to open cache at %s", path)
	}
	// The cache is single-writer; one connection avoids table locked errors.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS pending_edits (
			id         TEXT PRIMARY KEY,
			row        INTEGER NOT NULL,
			column     TEXT NOT NULL,
			orig_value TEXT NOT NULL DEFAULT '',
			value      TEXT NOT NULL,
			key_date   TEXT NOT NULL,
			key_amount TEXT NOT NULL,
			key_desc   TEXT NOT NULL,
			created    TEXT NOT NULL,
			UNIQUE (row, column)
		)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, status.Wrap(status.CacheInvalid, err, "failed to initialize cache schema")
		}
	}
	return &Store{db: db, path: path}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// LastSync returns the time of the last successful fetch, or false when the
// cache has never been populated.
func (s *Store) LastSync() (time.Time, bool) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = 'last_sync'`).Scan(&value)
	if err != nil {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Verify reports the state of the snapshot against the configured header:
// never fetched, fetched but empty, stale by age, stale because the
// configured columns no longer match the stored ones, or valid.
func (s *Store) Verify(header map[string]config.ColumnType) State {
	lastSync, ok := s.LastSync()
	if !ok {
		return StateUninitialized
	}

	stored, err := s.Columns()
	if err != nil {
		log.Error("cache column introspection failed", "err", err)
		return StateError
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM transactions`).Scan(&count); err != nil {
		log.Error("cache row count failed", "err", err)
		return StateError
	}
	if count == 0 {
		return StateEmpty
	}

	if time.Since(lastSync) > MaxAge {
		log.Warn("cache is stale", "last_sync", lastSync.Format(time.RFC3339))
		return StateStale
	}
	if diff := symmetricDifference(stored, keys(header)); len(diff) > 0 {
		log.Warn("cached columns diverge from configured header", "columns", strings.Join(diff, ", "))
		return StateStale
	}
	return StateValid
}

// Columns returns the stored transaction columns in table order, without
// the synthetic id column. An empty slice means the table does not exist
// yet.
func (s *Store) Columns() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM pragma_table_info('transactions')`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if name != "id" {
			columns = append(columns, name)
		}
	}
	return columns, rows.Err()
}

// Replace rebuilds the transactions table from a fetched snapshot. Cell
// values are cast to the declared column types; the row id is the
// zero-based data row index, so sheet row N is id N-2.
func (s *Store) Replace(headers []string, types map[string]config.ColumnType, data [][]any) error {
	tx, err := s.db.Begin()
	if err != nil {
		return status.Wrap(status.CacheInvalid, err, "failed to start cache rebuild")
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DROP TABLE IF EXISTS transactions`); err != nil {
		return status.Wrap(status.CacheInvalid, err, "failed to drop stale snapshot")
	}

	defs := make([]string, 0, len(headers)+1)
	defs = append(defs, "id INTEGER PRIMARY KEY")
	for _, h := range headers {
		defs = append(defs, fmt.Sprintf("%s %s", quoteIdent(h), sqlType(types[h])))
	}
	create := fmt.Sprintf("CREATE TABLE transactions (%s)", strings.Join(defs, ", "))
	if _, err := tx.Exec(create); err != nil {
		return status.Wrap(status.CacheInvalid, err, "failed to create snapshot table")
	}

	quoted := make([]string, len(headers))
	marks := make([]string, len(headers)+1)
	marks[0] = "?"
	for i, h := range headers {
		quoted[i] = quoteIdent(h)
		marks[i+1] = "?"
	}
	insert := fmt.Sprintf("INSERT INTO transactions (id, %s) VALUES (%s)",
		strings.Join(quoted, ", "), strings.Join(marks, ", "))
	stmt, err := tx.Prepare(insert)
	if err != nil {
		return status.Wrap(status.CacheInvalid, err, "failed to prepare snapshot insert")
	}
	defer stmt.Close()

	for rowIdx, row := range data {
		args := make([]any, len(headers)+1)
		args[0] = rowIdx
		for col, h := range headers {
			var cell any
			if col < len(row) {
				cell = row[col]
			}
			args[col+1] = Cast(cell, types[h], rowIdx, h)
		}
		if _, err := stmt.Exec(args...); err != nil {
			return status.Wrap(status.CacheInvalid, err, "failed to store row %d", rowIdx)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(
		`INSERT INTO meta (key, value) VALUES ('last_sync', ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`, now); err != nil {
		return status.Wrap(status.CacheInvalid, err, "failed to record sync time")
	}

	if err := tx.Commit(); err != nil {
		return status.Wrap(status.CacheInvalid, err, "failed to commit cache rebuild")
	}
	log.Info("cache rebuilt", "rows", len(data), "columns", len(headers))
	return nil
}

// Rows returns the stored columns and every row in id order. Cell values
// come back as the driver's native types: int64, float64 or string.
func (s *Store) Rows() ([]string, [][]any, error) {
	columns, err := s.Columns()
	if err != nil {
		return nil, nil, status.Wrap(status.CacheInvalid, err, "failed to read snapshot columns")
	}
	if len(columns) == 0 {
		return nil, nil, status.New(status.CacheInvalid, "no snapshot table; fetch first")
	}

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
	}
	query := fmt.Sprintf("SELECT %s FROM transactions ORDER BY id", strings.Join(quoted, ", "))
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, nil, status.Wrap(status.CacheInvalid, err, "failed to read snapshot rows")
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, status.Wrap(status.CacheInvalid, err, "failed to scan snapshot row")
		}
		out = append(out, values)
	}
	return columns, out, rows.Err()
}

// Row returns a single stored row by id as a column name to value map.
func (s *Store) Row(id int) (map[string]any, error) {
	columns, rows, err := s.Rows()
	if err != nil {
		return nil, err
	}
	if id < 0 || id >= len(rows) {
		return nil, status.New(status.CacheInvalid, "row %d not in cache", id)
	}
	out := make(map[string]any, len(columns))
	for i, c := range columns {
		out[c] = rows[id][i]
	}
	return out, nil
}

// UpdateCell writes one cell of the snapshot, used after a committed edit
// so the local copy matches the sheet without a refetch.
func (s *Store) UpdateCell(id int, column string, value any) error {
	query := fmt.Sprintf("UPDATE transactions SET %s = ? WHERE id = ?", quoteIdent(column))
	res, err := s.db.Exec(query, value, id)
	if err != nil {
		return status.Wrap(status.CacheInvalid, err, "failed to update cached cell")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return status.New(status.CacheInvalid, "row %d not in cache", id)
	}
	return nil
}

// Delete closes the store and removes the database file. Removal is retried
// briefly because the file can stay locked for a moment after Close.
func (s *Store) Delete() error {
	if err := s.db.Close(); err != nil {
		return status.Wrap(status.CacheInvalid, err, "failed to close cache")
	}
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		err = os.Remove(s.path)
		if err == nil || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return status.Wrap(status.CacheInvalid, err, "failed to remove cache file")
}

func sqlType(t config.ColumnType) string {
	switch t {
	case config.TypeInt:
		return "INTEGER"
	case config.TypeFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func keys(m map[string]config.ColumnType) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// symmetricDifference returns the elements present in exactly one of the
// two sets.
func symmetricDifference(a, b []string) []string {
	inA := make(map[string]bool, len(a))
	for _, s := range a {
		inA[s] = true
	}
	inB := make(map[string]bool, len(b))
	for _, s := range b {
		inB[s] = true
	}

	var diff []string
	for _, s := range a {
		if !inB[s] {
			diff = append(diff, s)
		}
	}
	for _, s := range b {
		if !inA[s] {
			diff = append(diff, s)
		}
	}
	return diff
}
