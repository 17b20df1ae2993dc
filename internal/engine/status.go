package engine

import (
	"time"

	"ledger/internal/core"
)

// PeriodStatus is an obligation's state for the calendar month containing now.
type PeriodStatus string

const (
	StatusNotApplicable PeriodStatus = ""
	StatusUnpaid        PeriodStatus = "unpaid"
	StatusPaid          PeriodStatus = "paid"
	StatusOverdue       PeriodStatus = "overdue"
)

// Applicable reports whether the status should be shown to the user.
func (s PeriodStatus) Applicable() bool {
	return s != StatusNotApplicable
}

// Label is the badge text for the status.
func (s PeriodStatus) Label() string {
	switch s {
	case StatusPaid:
		return "Paid"
	case StatusUnpaid:
		return "Unpaid"
	case StatusOverdue:
		return "Overdue"
	default:
		return ""
	}
}

// Transition describes the ledger change that moves an obligation from one
// status to the next. Obligation holds the resulting ledger; the input
// obligation is left untouched.
type Transition struct {
	From       PeriodStatus
	To         PeriodStatus
	Added      []core.LedgerEntry
	Removed    []core.LedgerEntry
	Obligation core.Obligation
}

// StatusApplies reports whether o has a recurring amount and a due day.
func StatusApplies(o core.Obligation) bool {
	return o.RecurringAmount.IsPositive() && o.HasDueDay()
}

// Status resolves o's status for the month containing now.
func Status(o core.Obligation, now time.Time) PeriodStatus {
	if !StatusApplies(o) {
		return StatusNotApplicable
	}
	if PaidThisPeriod(o, now) {
		return StatusPaid
	}
	if now.Day() > o.DueDay {
		return StatusOverdue
	}
	return StatusUnpaid
}

// PaidThisPeriod reports whether any Settlement is dated in now's month.
func PaidThisPeriod(o core.Obligation, now time.Time) bool {
	p := core.PeriodOf(now)
	for _, e := range o.Entries {
		if Classify(e) == core.Settlement && p.Contains(e.Date.Time) {
			return true
		}
	}
	return false
}

// Toggle flips o between paid and unpaid for the month containing now.
//
// Marking paid appends one Settlement dated now for the recurring amount.
// Marking unpaid removes every Settlement dated in the month, so several
// partial payments are undone together. newID supplies the id of an added
// entry.
func Toggle(o core.Obligation, now time.Time, newID func() string) (Transition, error) {
	from := Status(o, now)
	if !from.Applicable() {
		return Transition{}, core.ErrStatusNotApplicable
	}

	next := o.Clone()
	t := Transition{From: from}

	if from == StatusPaid {
		p := core.PeriodOf(now)
		kept := make([]core.LedgerEntry, 0, len(next.Entries))
		for _, e := range next.Entries {
			if Classify(e) == core.Settlement && p.Contains(e.Date.Time) {
				t.Removed = append(t.Removed, e)
				continue
			}
			kept = append(kept, e)
		}
		next.Entries = kept
	} else {
		entry := core.LedgerEntry{
			ID:     newID(),
			Date:   core.Date{Time: now},
			Amount: o.RecurringAmount,
			Kind:   core.Settlement,
		}
		next.Entries = append(next.Entries, entry)
		t.Added = []core.LedgerEntry{entry}
	}

	t.Obligation = next
	t.To = Status(next, now)
	return t, nil
}
