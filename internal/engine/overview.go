package engine

import (
	"time"

	"ledger/internal/core"
)

// View is everything list and detail screens show for one obligation.
type View struct {
	Obligation       core.Obligation
	Balance          Balance
	Status           PeriodStatus
	RemainingPeriods int
}

// Portfolio aggregates the views of a snapshot.
type Portfolio struct {
	Period         core.Period
	Views          []View
	TotalRemaining core.Money
	// DueThisPeriod sums the recurring amounts not yet paid this month.
	DueThisPeriod core.Money
	Paid          int
	Unpaid        int
	Overdue       int
}

// View returns the view for obligationID.
func (p Portfolio) View(obligationID string) (View, bool) {
	for _, v := range p.Views {
		if v.Obligation.ID == obligationID {
			return v, true
		}
	}
	return View{}, false
}

// Overview computes a View for every obligation and the portfolio totals.
// Completed obligations are listed but never counted as due.
func Overview(obligations []core.Obligation, now time.Time) Portfolio {
	return overview(obligations, now, ComputeBalance)
}

func overview(obligations []core.Obligation, now time.Time, balance func(core.Obligation) Balance) Portfolio {
	p := Portfolio{Period: core.PeriodOf(now), Views: make([]View, 0, len(obligations))}
	for _, o := range obligations {
		b := balance(o)
		v := View{
			Obligation:       o,
			Balance:          b,
			RemainingPeriods: remainingPeriods(b.Remaining, o.RecurringAmount),
		}
		if o.Status.IsActive() {
			v.Status = Status(o, now)
			p.TotalRemaining = p.TotalRemaining.Add(b.Remaining)
		}
		switch v.Status {
		case StatusPaid:
			p.Paid++
		case StatusUnpaid:
			p.Unpaid++
			p.DueThisPeriod = p.DueThisPeriod.Add(o.RecurringAmount)
		case StatusOverdue:
			p.Overdue++
			p.DueThisPeriod = p.DueThisPeriod.Add(o.RecurringAmount)
		}
		p.Views = append(p.Views, v)
	}
	return p
}
