package engine

import (
	"time"

	"ledger/internal/core"
)

// MaxScheduleMonths bounds every forward projection.
const MaxScheduleMonths = 600

// Schedule is the projected payment plan across all active obligations.
type Schedule struct {
	Months []core.MonthlyScheduleEntry
	// Incomplete is set when some balance was still owed after
	// MaxScheduleMonths months.
	Incomplete bool
	// Skipped lists active obligations left out for having no recurring amount.
	Skipped []string
}

// Total sums every payment in the schedule.
func (s Schedule) Total() core.Money {
	var total core.Money
	for _, m := range s.Months {
		total = total.Add(m.Total)
	}
	return total
}

// FinalInstallment returns the month in which obligationID is paid off.
func (s Schedule) FinalInstallment(obligationID string) (core.Period, bool) {
	for _, m := range s.Months {
		if l, ok := m.Line(obligationID); ok && l.RemainingAfter.IsZero() {
			return m.Period, true
		}
	}
	return core.Period{}, false
}

// ProjectSchedule plans payments month by month starting with now's month,
// until every active obligation's balance reaches zero or the month cap is
// hit. An override pays the whole remaining balance in its target month.
func ProjectSchedule(obligations []core.Obligation, now time.Time, overrides []core.EarlySettlementOverride) Schedule {
	return projectSchedule(obligations, now, overrides, ComputeBalance)
}

func projectSchedule(obligations []core.Obligation, now time.Time, overrides []core.EarlySettlementOverride, balance func(core.Obligation) Balance) Schedule {
	var (
		sched      Schedule
		candidates []core.Obligation
		remaining  []core.Money
	)
	for _, o := range obligations {
		if !o.Status.IsActive() {
			continue
		}
		if !o.RecurringAmount.IsPositive() {
			sched.Skipped = append(sched.Skipped, o.ID)
			continue
		}
		candidates = append(candidates, o)
		remaining = append(remaining, balance(o).Remaining)
	}

	payoff := make(map[string]core.Period, len(overrides))
	for _, ov := range overrides {
		payoff[ov.ObligationID] = ov.Target
	}

	start := core.PeriodOf(now)
	for offset := 0; offset < MaxScheduleMonths; offset++ {
		if allSettled(remaining) {
			break
		}
		target := start.AddMonths(offset)
		month := core.MonthlyScheduleEntry{Period: target, Label: target.Label()}

		for i, o := range candidates {
			if !remaining[i].IsPositive() {
				continue
			}
			payment := remaining[i].Min(o.RecurringAmount)
			if p, ok := payoff[o.ID]; ok && p.Equal(target) {
				payment = remaining[i]
			}
			remaining[i] = remaining[i].Sub(payment)
			if payment.IsPositive() {
				month.Lines = append(month.Lines, core.ScheduleLine{
					ObligationID:   o.ID,
					Name:           o.Name,
					AmountDue:      payment,
					RemainingAfter: remaining[i],
				})
				month.Total = month.Total.Add(payment)
			}
		}

		if month.Total.IsPositive() {
			sched.Months = append(sched.Months, month)
		}
	}

	sched.Incomplete = !allSettled(remaining)
	return sched
}

func allSettled(remaining []core.Money) bool {
	for _, r := range remaining {
		if r.IsPositive() {
			return false
		}
	}
	return true
}
