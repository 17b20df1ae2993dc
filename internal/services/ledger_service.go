package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"ledger/internal/core"
	"ledger/internal/engine"
	"ledger/internal/ledger"
	"ledger/internal/log"
)

// LedgerService owns every write to the ledger and hands the engine
// read-only snapshots.
type LedgerService struct {
	store  ledger.Store
	events ledger.EventPublisher
	engine *engine.Engine
	logger *log.StructuredLogger
	newID  func() string

	loads   singleflight.Group
	writeMu sync.Mutex
}

// NewLedgerService wires the service. events may be nil when no event bus is
// configured; eng may be nil for an engine without memoization.
func NewLedgerService(store ledger.Store, events ledger.EventPublisher, eng *engine.Engine) *LedgerService {
	if eng == nil {
		eng = engine.New(nil)
	}
	logger := log.New(log.Config{Component: log.ComponentLedger, Handler: slog.Default().Handler()})
	return &LedgerService{
		store:  store,
		events: events,
		engine: eng,
		logger: log.NewStructuredLogger(logger),
		newID:  uuid.NewString,
	}
}

// Snapshot loads every obligation. Concurrent callers share one load and
// each receives its own copy.
func (s *LedgerService) Snapshot(ctx context.Context) ([]core.Obligation, error) {
	v, err, _ := s.loads.Do("snapshot", func() (interface{}, error) {
		return s.store.ListObligations(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	shared := v.([]core.Obligation)
	out := make([]core.Obligation, len(shared))
	for i, o := range shared {
		out[i] = o.Clone()
	}
	return out, nil
}

// Fingerprint identifies the current snapshot for response caching.
func (s *LedgerService) Fingerprint(ctx context.Context) (string, error) {
	obs, err := s.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	return engine.Fingerprint(obs), nil
}

func (s *LedgerService) Obligation(ctx context.Context, id string) (core.Obligation, error) {
	return s.store.GetObligation(ctx, id)
}

// View returns the derived state of one obligation.
func (s *LedgerService) View(ctx context.Context, id string, now time.Time) (engine.View, error) {
	o, err := s.store.GetObligation(ctx, id)
	if err != nil {
		return engine.View{}, err
	}
	v, _ := s.engine.Overview([]core.Obligation{o}, now).View(id)
	return v, nil
}

func (s *LedgerService) Overview(ctx context.Context, now time.Time) (engine.Portfolio, error) {
	obs, err := s.Snapshot(ctx)
	if err != nil {
		return engine.Portfolio{}, err
	}
	return s.engine.Overview(obs, now), nil
}

// Schedule projects the payment plan. Overrides naming unknown obligations
// are rejected with core.ErrObligationNotFound.
func (s *LedgerService) Schedule(ctx context.Context, now time.Time, overrides []core.EarlySettlementOverride) (engine.Schedule, error) {
	obs, err := s.Snapshot(ctx)
	if err != nil {
		return engine.Schedule{}, err
	}
	known := make(map[string]bool, len(obs))
	for _, o := range obs {
		known[o.ID] = true
	}
	for _, ov := range overrides {
		if !known[ov.ObligationID] {
			return engine.Schedule{}, fmt.Errorf("payoff override: %w: %s", core.ErrObligationNotFound, ov.ObligationID)
		}
	}

	sched := s.engine.ProjectSchedule(obs, now, overrides)
	if sched.Incomplete {
		slog.WarnContext(ctx, "Schedule truncated at projection limit",
			"months", engine.MaxScheduleMonths,
			"obligations", len(obs))
	}
	return sched, nil
}

func (s *LedgerService) Series(ctx context.Context, now time.Time) (engine.SeriesSet, error) {
	obs, err := s.Snapshot(ctx)
	if err != nil {
		return engine.SeriesSet{}, err
	}
	return s.engine.BalanceSeries(obs, now), nil
}

// TogglePeriod flips the obligation's status for the month containing now
// and persists the resulting ledger change.
func (s *LedgerService) TogglePeriod(ctx context.Context, id string, now time.Time) (engine.Transition, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	o, err := s.store.GetObligation(ctx, id)
	if err != nil {
		return engine.Transition{}, err
	}

	t, err := s.engine.Toggle(o, now, s.newID)
	if err != nil {
		return engine.Transition{}, fmt.Errorf("toggle %s: %w", id, err)
	}

	if len(t.Added) > 0 {
		if err := s.store.AppendEntries(ctx, id, t.Added...); err != nil {
			return engine.Transition{}, fmt.Errorf("save settlement: %w", err)
		}
		s.publish(ctx, id, ledger.OpEntriesAdded, entryIDs(t.Added))
	}
	if len(t.Removed) > 0 {
		if err := s.store.RemoveEntries(ctx, id, entryIDs(t.Removed)...); err != nil {
			return engine.Transition{}, fmt.Errorf("remove settlements: %w", err)
		}
		s.publish(ctx, id, ledger.OpEntriesRemoved, entryIDs(t.Removed))
	}

	s.logger.LogToggle(ctx, id, string(t.From), string(t.To), len(t.Added), len(t.Removed))
	return t, nil
}

// AddEntry records a tagged ledger entry. A missing id is generated.
func (s *LedgerService) AddEntry(ctx context.Context, id string, e core.LedgerEntry) (core.LedgerEntry, error) {
	if e.ID == "" {
		e.ID = s.newID()
	}
	if err := e.Validate(); err != nil {
		return core.LedgerEntry{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.store.AppendEntries(ctx, id, e); err != nil {
		return core.LedgerEntry{}, fmt.Errorf("add entry: %w", err)
	}
	s.publish(ctx, id, ledger.OpEntriesAdded, []string{e.ID})
	s.logger.LogEntryAdded(ctx, id, e.ID, string(e.Kind), e.Amount.Units)
	return e, nil
}

// SaveObligation inserts or replaces an obligation with its entries.
func (s *LedgerService) SaveObligation(ctx context.Context, o core.Obligation) error {
	if o.ID == "" {
		return fmt.Errorf("save obligation: id is required")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.store.SaveObligation(ctx, o); err != nil {
		return fmt.Errorf("save obligation: %w", err)
	}
	s.publish(ctx, o.ID, ledger.OpObligationSaved, nil)
	return nil
}

// publish only logs failures; the write has already been stored.
func (s *LedgerService) publish(ctx context.Context, obligationID, op string, ids []string) {
	if s.events == nil {
		slog.DebugContext(ctx, "No event bus configured, skipping ledger changed message")
		return
	}
	if err := s.events.PublishLedgerChanged(ctx, obligationID, op, ids); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger changed message",
			"obligation_id", obligationID,
			"operation", op,
			"error", err)
	}
}

func entryIDs(entries []core.LedgerEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}
