// Package ledger declares the ports the services and workers depend on and
// the seed file format shared by the stores.
package ledger

import (
	"context"

	"ledger/internal/core"
	"ledger/internal/engine"
)

// Operations announced on the event bus.
const (
	OpEntriesAdded    = "entries_added"
	OpEntriesRemoved  = "entries_removed"
	OpObligationSaved = "obligation_saved"
)

// Ports for outbound adapters.
type (
	ObligationReader interface {
		// ListObligations returns every obligation with its entries, in a
		// stable order. Callers own the returned values.
		ListObligations(ctx context.Context) ([]core.Obligation, error)
		// GetObligation returns core.ErrObligationNotFound for unknown ids.
		GetObligation(ctx context.Context, id string) (core.Obligation, error)
	}

	EntryWriter interface {
		AppendEntries(ctx context.Context, obligationID string, entries ...core.LedgerEntry) error
		// RemoveEntries deletes the listed entries. Unknown entry ids are ignored.
		RemoveEntries(ctx context.Context, obligationID string, entryIDs ...string) error
	}

	ObligationWriter interface {
		// SaveObligation inserts or replaces o together with its entries.
		SaveObligation(ctx context.Context, o core.Obligation) error
	}

	Store interface {
		ObligationReader
		EntryWriter
		ObligationWriter
	}

	// ScheduleWriter exports a projected schedule to an external sink.
	ScheduleWriter interface {
		WriteSchedule(ctx context.Context, asOf core.Period, s engine.Schedule) error
	}

	// EventPublisher announces ledger changes to other processes.
	EventPublisher interface {
		PublishLedgerChanged(ctx context.Context, obligationID, operation string, entryIDs []string) error
	}
)
