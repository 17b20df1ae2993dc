package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"ledger/internal/core"
	"ledger/internal/engine"
	"ledger/internal/ledger"
	"ledger/internal/log"

	_ "modernc.org/sqlite"
)

const (
	dateLayout  = "2006-01-02"
	entryLayout = time.RFC3339Nano
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ ledger.Store = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens the database, applies pending migrations and tags
// any untagged legacy entries.
func NewSQLiteRepository(ctx context.Context, dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
	}

	if _, err := repo.MigrateLegacyKinds(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ListObligations implements ledger.ObligationReader
func (r *SQLiteRepository) ListObligations(ctx context.Context) ([]core.Obligation, error) {
	rows, err := r.queries.ListObligations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list obligations: %w", err)
	}
	entries, err := r.queries.ListEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	byObligation := make(map[string][]core.LedgerEntry, len(rows))
	for _, e := range entries {
		entry, err := toEntry(e)
		if err != nil {
			return nil, err
		}
		byObligation[e.ObligationID] = append(byObligation[e.ObligationID], entry)
	}

	out := make([]core.Obligation, 0, len(rows))
	for _, row := range rows {
		o, err := toObligation(row)
		if err != nil {
			return nil, err
		}
		o.Entries = byObligation[row.ID]
		out = append(out, o)
	}
	return out, nil
}

// GetObligation implements ledger.ObligationReader
func (r *SQLiteRepository) GetObligation(ctx context.Context, id string) (core.Obligation, error) {
	row, err := r.queries.GetObligation(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Obligation{}, fmt.Errorf("%w: %s", core.ErrObligationNotFound, id)
	}
	if err != nil {
		return core.Obligation{}, fmt.Errorf("get obligation %s: %w", id, err)
	}
	o, err := toObligation(row)
	if err != nil {
		return core.Obligation{}, err
	}

	entries, err := r.queries.ListEntriesByObligation(ctx, id)
	if err != nil {
		return core.Obligation{}, fmt.Errorf("list entries for %s: %w", id, err)
	}
	for _, e := range entries {
		entry, err := toEntry(e)
		if err != nil {
			return core.Obligation{}, err
		}
		o.Entries = append(o.Entries, entry)
	}
	return o, nil
}

// AppendEntries implements ledger.EntryWriter
func (r *SQLiteRepository) AppendEntries(ctx context.Context, obligationID string, entries ...core.LedgerEntry) error {
	return r.inTx(ctx, func(q *Queries) error {
		if err := requireObligation(ctx, q, obligationID); err != nil {
			return err
		}
		for _, e := range entries {
			if err := q.InsertEntry(ctx, fromEntry(obligationID, e)); err != nil {
				return fmt.Errorf("insert entry %s: %w", e.ID, err)
			}
		}
		slog.InfoContext(ctx, "Ledger entries saved to SQLite",
			"obligation_id", obligationID,
			"count", len(entries))
		return nil
	})
}

// RemoveEntries implements ledger.EntryWriter
func (r *SQLiteRepository) RemoveEntries(ctx context.Context, obligationID string, entryIDs ...string) error {
	return r.inTx(ctx, func(q *Queries) error {
		if err := requireObligation(ctx, q, obligationID); err != nil {
			return err
		}
		for _, id := range entryIDs {
			if err := q.DeleteEntry(ctx, obligationID, id); err != nil {
				return fmt.Errorf("delete entry %s: %w", id, err)
			}
		}
		slog.InfoContext(ctx, "Ledger entries removed from SQLite",
			"obligation_id", obligationID,
			"count", len(entryIDs))
		return nil
	})
}

// SaveObligation implements ledger.ObligationWriter. The stored entries are
// replaced by o.Entries.
func (r *SQLiteRepository) SaveObligation(ctx context.Context, o core.Obligation) error {
	if o.ID == "" {
		return fmt.Errorf("save obligation: id is required")
	}
	return r.inTx(ctx, func(q *Queries) error {
		if err := q.UpsertObligation(ctx, fromObligation(o)); err != nil {
			return fmt.Errorf("upsert obligation %s: %w", o.ID, err)
		}
		if err := q.DeleteEntriesByObligation(ctx, o.ID); err != nil {
			return fmt.Errorf("clear entries for %s: %w", o.ID, err)
		}
		for _, e := range o.Entries {
			if err := q.InsertEntry(ctx, fromEntry(o.ID, e)); err != nil {
				return fmt.Errorf("insert entry %s: %w", e.ID, err)
			}
		}
		return nil
	})
}

// MigrateLegacyKinds tags every entry stored without a kind using the legacy
// id and note markers. It runs in one transaction and returns the number of
// rows tagged.
func (r *SQLiteRepository) MigrateLegacyKinds(ctx context.Context) (int, error) {
	tagged := 0
	err := r.inTx(ctx, func(q *Queries) error {
		rows, err := q.ListUntaggedEntries(ctx)
		if err != nil {
			return fmt.Errorf("list untagged entries: %w", err)
		}
		for _, row := range rows {
			kind := engine.ClassifyLegacy(core.LedgerEntry{ID: row.ID, Note: row.Note})
			if err := q.SetEntryKind(ctx, string(kind), row.ObligationID, row.ID); err != nil {
				return fmt.Errorf("tag entry %s: %w", row.ID, err)
			}
			tagged++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("migrate legacy kinds: %w", err)
	}
	if tagged > 0 {
		slog.InfoContext(ctx, "Tagged legacy ledger entries",
			log.FieldComponent, log.ComponentStorage,
			log.FieldOperation, log.OpMigrate,
			"count", tagged)
	}
	return tagged, nil
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func requireObligation(ctx context.Context, q *Queries, id string) error {
	ok, err := q.ObligationExists(ctx, id)
	if err != nil {
		return fmt.Errorf("check obligation %s: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrObligationNotFound, id)
	}
	return nil
}

func toObligation(row ObligationRow) (core.Obligation, error) {
	o := core.Obligation{
		ID:              row.ID,
		Name:            row.Name,
		Kind:            core.ObligationKind(row.Kind),
		OriginAmount:    core.M(row.OriginAmount),
		RecurringAmount: core.M(row.RecurringAmount),
		DueDay:          int(row.DueDay),
		TermPeriods:     int(row.TermPeriods),
		Status:          core.ObligationStatus(row.Status),
	}
	if row.StartDate.Valid && row.StartDate.String != "" {
		t, err := time.Parse(dateLayout, row.StartDate.String)
		if err != nil {
			return core.Obligation{}, fmt.Errorf("parse start date of %s: %w", row.ID, err)
		}
		o.StartDate = core.Date{Time: t}
	}
	return o, nil
}

func fromObligation(o core.Obligation) ObligationRow {
	row := ObligationRow{
		ID:              o.ID,
		Name:            o.Name,
		Kind:            string(o.Kind),
		OriginAmount:    o.OriginAmount.Units,
		RecurringAmount: o.RecurringAmount.Units,
		DueDay:          int64(o.DueDay),
		TermPeriods:     int64(o.TermPeriods),
		Status:          string(o.Status),
	}
	if row.Kind == "" {
		row.Kind = string(core.Loan)
	}
	if row.Status == "" {
		row.Status = string(core.Active)
	}
	if !o.StartDate.IsEmpty() {
		row.StartDate = sql.NullString{String: o.StartDate.Format(dateLayout), Valid: true}
	}
	return row
}

func toEntry(row EntryRow) (core.LedgerEntry, error) {
	t, err := time.Parse(entryLayout, row.EntryDate)
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("parse date of entry %s: %w", row.ID, err)
	}
	return core.LedgerEntry{
		ID:     row.ID,
		Date:   core.Date{Time: t},
		Amount: core.M(row.Amount),
		Note:   row.Note,
		Kind:   core.EntryKind(row.Kind.String),
	}, nil
}

func fromEntry(obligationID string, e core.LedgerEntry) EntryRow {
	return EntryRow{
		ObligationID: obligationID,
		ID:           e.ID,
		EntryDate:    e.Date.Time.Format(entryLayout),
		Amount:       e.Amount.Units,
		Note:         e.Note,
		Kind:         sql.NullString{String: string(e.Kind), Valid: e.Kind != ""},
	}
}
