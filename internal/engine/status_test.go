package engine

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"ledger/internal/core"
)

func at(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 9, 30, 0, 0, time.UTC)
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return "entry-" + strconv.Itoa(n)
	}
}

func loan() core.Obligation {
	return core.Obligation{
		ID:              "loan",
		Name:            "Bank loan",
		Kind:            core.Loan,
		OriginAmount:    core.M(12_000_000),
		RecurringAmount: core.M(1_000_000),
		DueDay:          10,
		TermPeriods:     12,
		StartDate:       core.NewDate(2026, 1, 1),
		Status:          core.Active,
	}
}

func TestStatus(t *testing.T) {
	paid := loan()
	paid.Entries = []core.LedgerEntry{settlement("s1", core.NewDate(2026, 10, 3), 1_000_000)}

	lastMonth := loan()
	lastMonth.Entries = []core.LedgerEntry{settlement("s1", core.NewDate(2026, 9, 30), 1_000_000)}

	lastYear := loan()
	lastYear.Entries = []core.LedgerEntry{settlement("s1", core.NewDate(2025, 10, 3), 1_000_000)}

	adjusted := loan()
	adjusted.Entries = []core.LedgerEntry{adjustment("a1", core.NewDate(2026, 10, 3), 1_000_000)}

	noRecurring := loan()
	noRecurring.RecurringAmount = core.Money{}

	noDueDay := loan()
	noDueDay.DueDay = 0

	tests := []struct {
		name string
		o    core.Obligation
		now  time.Time
		want PeriodStatus
	}{
		{"after due day", loan(), at(2026, 10, 15), StatusOverdue},
		{"on due day", loan(), at(2026, 10, 10), StatusUnpaid},
		{"before due day", loan(), at(2026, 10, 1), StatusUnpaid},
		{"paid this month", paid, at(2026, 10, 15), StatusPaid},
		{"paid last month", lastMonth, at(2026, 10, 15), StatusOverdue},
		{"same month last year", lastYear, at(2026, 10, 5), StatusUnpaid},
		{"adjustment is not a payment", adjusted, at(2026, 10, 15), StatusOverdue},
		{"no recurring amount", noRecurring, at(2026, 10, 15), StatusNotApplicable},
		{"no due day", noDueDay, at(2026, 10, 15), StatusNotApplicable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Status(tt.o, tt.now); got != tt.want {
				t.Errorf("Status() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestScenarioOverdueThenPaid(t *testing.T) {
	now := at(2026, 10, 15)
	o := loan()

	if got := Status(o, now); got != StatusOverdue {
		t.Fatalf("Status() = %q, want %q", got, StatusOverdue)
	}
	if got := Remaining(o); got != core.M(12_000_000) {
		t.Fatalf("Remaining() = %v, want 12,000,000", got)
	}

	o.Entries = append(o.Entries, settlement("s1", core.Date{Time: now}, 1_000_000))

	if got := Status(o, now); got != StatusPaid {
		t.Errorf("Status() = %q, want %q", got, StatusPaid)
	}
	b := ComputeBalance(o)
	if b.Remaining != core.M(11_000_000) {
		t.Errorf("Remaining = %v, want 11,000,000", b.Remaining)
	}
	if b.PaidToDate != core.M(1_000_000) {
		t.Errorf("PaidToDate = %v, want 1,000,000", b.PaidToDate)
	}
}

func TestToggleMarksPaid(t *testing.T) {
	now := at(2026, 10, 15)
	o := loan()

	tr, err := Toggle(o, now, sequentialIDs())
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if tr.From != StatusOverdue || tr.To != StatusPaid {
		t.Errorf("Toggle() = %q -> %q, want overdue -> paid", tr.From, tr.To)
	}
	if len(tr.Added) != 1 || len(tr.Removed) != 0 {
		t.Fatalf("Toggle() added %d removed %d, want 1 and 0", len(tr.Added), len(tr.Removed))
	}
	added := tr.Added[0]
	if added.ID != "entry-1" || added.Kind != core.Settlement || added.Amount != o.RecurringAmount {
		t.Errorf("added entry = %+v", added)
	}
	if !added.Date.Equal(now) {
		t.Errorf("added entry date = %v, want %v", added.Date, now)
	}
	if len(o.Entries) != 0 {
		t.Error("Toggle() mutated its input")
	}
}

func TestToggleRemovesAllSettlementsThisMonth(t *testing.T) {
	now := at(2026, 10, 15)
	o := loan()
	o.Entries = []core.LedgerEntry{
		settlement("sep", core.NewDate(2026, 9, 5), 1_000_000),
		settlement("oct-a", core.NewDate(2026, 10, 2), 400_000),
		adjustment("oct-adj", core.NewDate(2026, 10, 3), 2_000_000),
		settlement("oct-b", core.NewDate(2026, 10, 9), 600_000),
	}

	tr, err := Toggle(o, now, sequentialIDs())
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if tr.From != StatusPaid || tr.To != StatusOverdue {
		t.Errorf("Toggle() = %q -> %q, want paid -> overdue", tr.From, tr.To)
	}
	if len(tr.Removed) != 2 || tr.Removed[0].ID != "oct-a" || tr.Removed[1].ID != "oct-b" {
		t.Errorf("Toggle() removed = %+v, want oct-a and oct-b", tr.Removed)
	}
	if len(tr.Obligation.Entries) != 2 {
		t.Errorf("remaining entries = %d, want 2", len(tr.Obligation.Entries))
	}
	if len(o.Entries) != 4 {
		t.Error("Toggle() mutated its input")
	}
}

func TestToggleTwiceRestoresPaidToDate(t *testing.T) {
	now := at(2026, 10, 15)
	o := loan()
	o.Entries = []core.LedgerEntry{
		settlement("sep", core.NewDate(2026, 9, 5), 1_000_000),
		settlement("oct", core.NewDate(2026, 10, 5), 1_000_000),
	}
	before := PaidToDate(o)

	unpaid, err := Toggle(o, now, sequentialIDs())
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	repaid, err := Toggle(unpaid.Obligation, now, sequentialIDs())
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if repaid.To != StatusPaid {
		t.Errorf("second Toggle() to = %q, want %q", repaid.To, StatusPaid)
	}
	if got := PaidToDate(repaid.Obligation); got != before {
		t.Errorf("PaidToDate() = %v, want %v", got, before)
	}
}

func TestToggleNotApplicable(t *testing.T) {
	o := loan()
	o.RecurringAmount = core.Money{}
	_, err := Toggle(o, at(2026, 10, 15), sequentialIDs())
	if !errors.Is(err, core.ErrStatusNotApplicable) {
		t.Errorf("Toggle() error = %v, want %v", err, core.ErrStatusNotApplicable)
	}
}
