package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type ObligationRow struct {
	ID              string
	Name            string
	Kind            string
	OriginAmount    int64
	RecurringAmount int64
	DueDay          int64
	TermPeriods     int64
	StartDate       sql.NullString
	Status          string
}

type EntryRow struct {
	ObligationID string
	ID           string
	EntryDate    string
	Amount       int64
	Note         string
	Kind         sql.NullString
}

const obligationColumns = `id, name, kind, origin_amount, recurring_amount, due_day, term_periods, start_date, status`

func scanObligation(s interface{ Scan(...interface{}) error }) (ObligationRow, error) {
	var o ObligationRow
	err := s.Scan(&o.ID, &o.Name, &o.Kind, &o.OriginAmount, &o.RecurringAmount,
		&o.DueDay, &o.TermPeriods, &o.StartDate, &o.Status)
	return o, err
}

const listObligations = `SELECT ` + obligationColumns + ` FROM obligations ORDER BY position, id`

func (q *Queries) ListObligations(ctx context.Context) ([]ObligationRow, error) {
	rows, err := q.db.QueryContext(ctx, listObligations)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ObligationRow
	for rows.Next() {
		o, err := scanObligation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

const getObligation = `SELECT ` + obligationColumns + ` FROM obligations WHERE id = ?`

func (q *Queries) GetObligation(ctx context.Context, id string) (ObligationRow, error) {
	return scanObligation(q.db.QueryRowContext(ctx, getObligation, id))
}

const obligationExists = `SELECT COUNT(1) FROM obligations WHERE id = ?`

func (q *Queries) ObligationExists(ctx context.Context, id string) (bool, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, obligationExists, id).Scan(&n)
	return n > 0, err
}

const upsertObligation = `
INSERT INTO obligations (` + obligationColumns + `, position)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM obligations))
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    kind = excluded.kind,
    origin_amount = excluded.origin_amount,
    recurring_amount = excluded.recurring_amount,
    due_day = excluded.due_day,
    term_periods = excluded.term_periods,
    start_date = excluded.start_date,
    status = excluded.status,
    updated_at = CURRENT_TIMESTAMP`

func (q *Queries) UpsertObligation(ctx context.Context, o ObligationRow) error {
	_, err := q.db.ExecContext(ctx, upsertObligation,
		o.ID, o.Name, o.Kind, o.OriginAmount, o.RecurringAmount,
		o.DueDay, o.TermPeriods, o.StartDate, o.Status)
	return err
}

const entryColumns = `obligation_id, id, entry_date, amount, note, kind`

func scanEntry(s interface{ Scan(...interface{}) error }) (EntryRow, error) {
	var e EntryRow
	err := s.Scan(&e.ObligationID, &e.ID, &e.EntryDate, &e.Amount, &e.Note, &e.Kind)
	return e, err
}

func (q *Queries) queryEntries(ctx context.Context, query string, args ...interface{}) ([]EntryRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []EntryRow
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

const listEntries = `SELECT ` + entryColumns + ` FROM ledger_entries ORDER BY obligation_id, rowid`

func (q *Queries) ListEntries(ctx context.Context) ([]EntryRow, error) {
	return q.queryEntries(ctx, listEntries)
}

const listEntriesByObligation = `SELECT ` + entryColumns + ` FROM ledger_entries WHERE obligation_id = ? ORDER BY rowid`

func (q *Queries) ListEntriesByObligation(ctx context.Context, obligationID string) ([]EntryRow, error) {
	return q.queryEntries(ctx, listEntriesByObligation, obligationID)
}

const listUntaggedEntries = `SELECT ` + entryColumns + ` FROM ledger_entries WHERE kind IS NULL OR kind = '' ORDER BY rowid`

func (q *Queries) ListUntaggedEntries(ctx context.Context) ([]EntryRow, error) {
	return q.queryEntries(ctx, listUntaggedEntries)
}

const insertEntry = `INSERT INTO ledger_entries (` + entryColumns + `) VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertEntry(ctx context.Context, e EntryRow) error {
	_, err := q.db.ExecContext(ctx, insertEntry, e.ObligationID, e.ID, e.EntryDate, e.Amount, e.Note, e.Kind)
	return err
}

const deleteEntry = `DELETE FROM ledger_entries WHERE obligation_id = ? AND id = ?`

func (q *Queries) DeleteEntry(ctx context.Context, obligationID, id string) error {
	_, err := q.db.ExecContext(ctx, deleteEntry, obligationID, id)
	return err
}

const deleteEntriesByObligation = `DELETE FROM ledger_entries WHERE obligation_id = ?`

func (q *Queries) DeleteEntriesByObligation(ctx context.Context, obligationID string) error {
	_, err := q.db.ExecContext(ctx, deleteEntriesByObligation, obligationID)
	return err
}

const setEntryKind = `UPDATE ledger_entries SET kind = ? WHERE obligation_id = ? AND id = ?`

func (q *Queries) SetEntryKind(ctx context.Context, kind, obligationID, id string) error {
	_, err := q.db.ExecContext(ctx, setEntryKind, kind, obligationID, id)
	return err
}
