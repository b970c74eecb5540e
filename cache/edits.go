package cache

import (
	"time"

	"github.com/google/uuid"

	"github.com/wgergely/expensetracker/status"
)

// Edit is a queued cell change waiting to be committed to the sheet. The
// key fields snapshot the row's identifying values at queue time; the
// commit refuses to write if the remote row no longer matches them.
type Edit struct {
	ID     string
	Row    int
	Column string
	// Orig is the cell's value when the first edit for it was queued.
	// Re-queueing the same cell keeps it, so the queue always shows the
	// full change against the fetched snapshot.
	Orig    string
	Value   string
	KeyDate string
	KeyAmt  string
	KeyDesc string
	Created time.Time
}

// QueueEdit stores a pending edit. A newer edit for the same cell replaces
// the older one, so the queue holds at most one change per cell. The
// original value of the first edit survives the replacement.
func (s *Store) QueueEdit(e Edit) (Edit, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Created.IsZero() {
		e.Created = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO pending_edits (id, row, column, orig_value, value, key_date, key_amount, key_desc, created)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (row, column) DO UPDATE SET
			id = excluded.id,
			value = excluded.value,
			key_date = excluded.key_date,
			key_amount = excluded.key_amount,
			key_desc = excluded.key_desc,
			created = excluded.created`,
		e.ID, e.Row, e.Column, e.Orig, e.Value, e.KeyDate, e.KeyAmt, e.KeyDesc,
		e.Created.Format(time.RFC3339))
	if err != nil {
		return Edit{}, status.Wrap(status.CacheInvalid, err, "failed to queue edit")
	}

	// On a squash the stored original is the first edit's, not the caller's.
	err = s.db.QueryRow(
		`SELECT orig_value FROM pending_edits WHERE row = ? AND column = ?`,
		e.Row, e.Column).Scan(&e.Orig)
	if err != nil {
		return Edit{}, status.Wrap(status.CacheInvalid, err, "failed to read queued edit")
	}
	return e, nil
}

// Edits returns every pending edit, oldest first.
func (s *Store) Edits() ([]Edit, error) {
	rows, err := s.db.Query(
		`SELECT id, row, column, orig_value, value, key_date, key_amount, key_desc, created
		 FROM pending_edits ORDER BY created, row`)
	if err != nil {
		return nil, status.Wrap(status.CacheInvalid, err, "failed to read pending edits")
	}
	defer rows.Close()

	var edits []Edit
	for rows.Next() {
		var e Edit
		var created string
		if err := rows.Scan(&e.ID, &e.Row, &e.Column, &e.Orig, &e.Value,
			&e.KeyDate, &e.KeyAmt, &e.KeyDesc, &created); err != nil {
			return nil, status.Wrap(status.CacheInvalid, err, "failed to scan pending edit")
		}
		e.Created, _ = time.Parse(time.RFC3339, created)
		edits = append(edits, e)
	}
	return edits, rows.Err()
}

// DropEdit removes a single pending edit by id.
func (s *Store) DropEdit(id string) error {
	res, err := s.db.Exec(`DELETE FROM pending_edits WHERE id = ?`, id)
	if err != nil {
		return status.Wrap(status.CacheInvalid, err, "failed to drop edit")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return status.New(status.CacheInvalid, "no pending edit %s", id)
	}
	return nil
}

// ClearEdits empties the queue.
func (s *Store) ClearEdits() error {
	_, err := s.db.Exec(`DELETE FROM pending_edits`)
	if err != nil {
		return status.Wrap(status.CacheInvalid, err, "failed to clear pending edits")
	}
	return nil
}
