package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ledger/internal/core"
	"ledger/internal/engine"
	"ledger/internal/ledger"
	"ledger/internal/ledger/memory"
)

type published struct {
	obligationID string
	operation    string
	entryIDs     []string
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (f *fakePublisher) PublishLedgerChanged(_ context.Context, obligationID, operation string, entryIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, published{obligationID, operation, entryIDs})
	return f.err
}

func carLoan() core.Obligation {
	return core.Obligation{
		ID:              "car",
		Name:            "Car loan",
		Kind:            core.Loan,
		OriginAmount:    core.M(12_000_000),
		RecurringAmount: core.M(1_000_000),
		DueDay:          10,
		TermPeriods:     12,
		StartDate:       core.NewDate(2026, 1, 1),
		Status:          core.Active,
	}
}

func newService(t *testing.T, pub ledger.EventPublisher, obs ...core.Obligation) (*LedgerService, *memory.Store) {
	t.Helper()
	store := memory.New(obs...)
	svc := NewLedgerService(store, pub, nil)
	n := 0
	svc.newID = func() string {
		n++
		return "gen-" + string(rune('a'+n-1))
	}
	return svc, store
}

var now = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

func TestTogglePeriod(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	svc, store := newService(t, pub, carLoan())

	tr, err := svc.TogglePeriod(ctx, "car", now)
	if err != nil {
		t.Fatalf("TogglePeriod() error = %v", err)
	}
	if tr.From != engine.StatusOverdue || tr.To != engine.StatusPaid {
		t.Errorf("TogglePeriod() = %q -> %q, want overdue -> paid", tr.From, tr.To)
	}

	stored, _ := store.GetObligation(ctx, "car")
	if len(stored.Entries) != 1 || stored.Entries[0].ID != "gen-a" || stored.Entries[0].Kind != core.Settlement {
		t.Fatalf("stored entries = %+v", stored.Entries)
	}

	tr, err = svc.TogglePeriod(ctx, "car", now)
	if err != nil {
		t.Fatalf("second TogglePeriod() error = %v", err)
	}
	if tr.To != engine.StatusOverdue || len(tr.Removed) != 1 {
		t.Errorf("second TogglePeriod() = %+v", tr)
	}
	stored, _ = store.GetObligation(ctx, "car")
	if len(stored.Entries) != 0 {
		t.Errorf("entries after retraction = %+v", stored.Entries)
	}

	if len(pub.msgs) != 2 {
		t.Fatalf("published %d messages, want 2", len(pub.msgs))
	}
	if pub.msgs[0].operation != ledger.OpEntriesAdded || pub.msgs[1].operation != ledger.OpEntriesRemoved {
		t.Errorf("operations = %q, %q", pub.msgs[0].operation, pub.msgs[1].operation)
	}
	if pub.msgs[1].entryIDs[0] != "gen-a" {
		t.Errorf("removed ids = %v, want [gen-a]", pub.msgs[1].entryIDs)
	}
}

func TestTogglePeriodErrors(t *testing.T) {
	ctx := context.Background()
	rent := core.Obligation{ID: "rent", Kind: core.FixedExpense, Status: core.Active}
	svc, _ := newService(t, nil, rent)

	if _, err := svc.TogglePeriod(ctx, "missing", now); !errors.Is(err, core.ErrObligationNotFound) {
		t.Errorf("TogglePeriod(missing) error = %v, want %v", err, core.ErrObligationNotFound)
	}
	if _, err := svc.TogglePeriod(ctx, "rent", now); !errors.Is(err, core.ErrStatusNotApplicable) {
		t.Errorf("TogglePeriod(rent) error = %v, want %v", err, core.ErrStatusNotApplicable)
	}
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{err: errors.New("broker down")}
	svc, store := newService(t, pub, carLoan())

	if _, err := svc.TogglePeriod(ctx, "car", now); err != nil {
		t.Fatalf("TogglePeriod() error = %v", err)
	}
	stored, _ := store.GetObligation(ctx, "car")
	if len(stored.Entries) != 1 {
		t.Errorf("entry not stored after publish failure")
	}
}

func TestAddEntry(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	svc, store := newService(t, pub, carLoan())

	tests := []struct {
		name    string
		entry   core.LedgerEntry
		wantErr error
	}{
		{"zero amount", core.LedgerEntry{Date: core.NewDate(2026, 10, 1), Kind: core.Settlement}, core.ErrInvalidAmount},
		{"untagged", core.LedgerEntry{Date: core.NewDate(2026, 10, 1), Amount: core.M(1)}, core.ErrInvalidEntryKind},
		{"unknown kind", core.LedgerEntry{Date: core.NewDate(2026, 10, 1), Amount: core.M(1), Kind: "refund"}, core.ErrInvalidEntryKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.AddEntry(ctx, "car", tt.entry); !errors.Is(err, tt.wantErr) {
				t.Errorf("AddEntry() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	added, err := svc.AddEntry(ctx, "car", core.LedgerEntry{
		Date:   core.NewDate(2026, 2, 1),
		Amount: core.M(3_000_000),
		Note:   "top up",
		Kind:   core.PrincipalAdjustment,
	})
	if err != nil {
		t.Fatalf("AddEntry() error = %v", err)
	}
	if added.ID == "" {
		t.Error("AddEntry() did not assign an id")
	}

	v, err := svc.View(ctx, "car", now)
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
	if v.Balance.EffectivePrincipal != core.M(15_000_000) {
		t.Errorf("EffectivePrincipal = %v, want 15,000,000", v.Balance.EffectivePrincipal)
	}
	if len(pub.msgs) != 1 {
		t.Errorf("published %d messages, want 1", len(pub.msgs))
	}

	if _, err := svc.AddEntry(ctx, "missing", added); !errors.Is(err, core.ErrObligationNotFound) {
		t.Errorf("AddEntry(missing) error = %v", err)
	}
	stored, _ := store.GetObligation(ctx, "car")
	if len(stored.Entries) != 1 {
		t.Errorf("stored %d entries, want 1", len(stored.Entries))
	}
}

func TestScheduleRejectsUnknownOverride(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, nil, carLoan())

	_, err := svc.Schedule(ctx, now, []core.EarlySettlementOverride{{ObligationID: "ghost", Target: core.NewPeriod(2026, 11)}})
	if !errors.Is(err, core.ErrObligationNotFound) {
		t.Errorf("Schedule() error = %v, want %v", err, core.ErrObligationNotFound)
	}

	s, err := svc.Schedule(ctx, now, []core.EarlySettlementOverride{{ObligationID: "car", Target: core.NewPeriod(2026, 11)}})
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	if len(s.Months) != 2 {
		t.Errorf("Schedule() months = %d, want 2", len(s.Months))
	}
}

func TestSnapshotReturnsIndependentCopies(t *testing.T) {
	ctx := context.Background()
	o := carLoan()
	o.Entries = []core.LedgerEntry{{ID: "e1", Date: core.NewDate(2026, 1, 5), Amount: core.M(1_000_000), Kind: core.Settlement}}
	svc, _ := newService(t, nil, o)

	a, err := svc.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	a[0].Entries[0].Amount = core.M(1)

	b, _ := svc.Snapshot(ctx)
	if b[0].Entries[0].Amount != core.M(1_000_000) {
		t.Error("Snapshot() callers share entries")
	}
}

func TestOverviewSeriesAndSave(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	svc, _ := newService(t, pub, carLoan())

	card := carLoan()
	card.ID = "card"
	card.Name = "Visa"
	card.Kind = core.CreditCard
	card.TermPeriods = 0
	if err := svc.SaveObligation(ctx, card); err != nil {
		t.Fatalf("SaveObligation() error = %v", err)
	}
	if err := svc.SaveObligation(ctx, core.Obligation{}); err == nil {
		t.Error("SaveObligation() without id should fail")
	}

	p, err := svc.Overview(ctx, now)
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}
	if len(p.Views) != 2 || p.Overdue != 2 {
		t.Errorf("Overview() = %d views, %d overdue", len(p.Views), p.Overdue)
	}

	set, err := svc.Series(ctx, now)
	if err != nil {
		t.Fatalf("Series() error = %v", err)
	}
	if len(set.Series) != 1 || set.Series[0].ObligationID != "car" {
		t.Errorf("Series() = %+v, want only the installment loan", set.Series)
	}

	before, _ := svc.Fingerprint(ctx)
	if _, err := svc.TogglePeriod(ctx, "card", now); err != nil {
		t.Fatal(err)
	}
	after, _ := svc.Fingerprint(ctx)
	if before == after {
		t.Error("Fingerprint() unchanged after a write")
	}
	if pub.msgs[0].operation != ledger.OpObligationSaved {
		t.Errorf("first message = %q, want %q", pub.msgs[0].operation, ledger.OpObligationSaved)
	}
}
