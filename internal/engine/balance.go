package engine

import "ledger/internal/core"

// Balance is the derived money state of one obligation.
type Balance struct {
	PaidToDate         core.Money
	EffectivePrincipal core.Money
	Remaining          core.Money
	ProgressPercent    float64
}

// PaidToDate sums the Settlement entries.
func PaidToDate(o core.Obligation) core.Money {
	var total core.Money
	for _, e := range o.Entries {
		if Classify(e) == core.Settlement {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// EffectivePrincipal is the origin amount plus every principal adjustment.
func EffectivePrincipal(o core.Obligation) core.Money {
	total := o.OriginAmount
	for _, e := range o.Entries {
		if Classify(e) == core.PrincipalAdjustment {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// Remaining is never negative.
func Remaining(o core.Obligation) core.Money {
	return ComputeBalance(o).Remaining
}

// ProgressPercent is capped at 100. The denominator is floored at 1.
func ProgressPercent(o core.Obligation) float64 {
	return ComputeBalance(o).ProgressPercent
}

// ComputeBalance derives all balance figures in one pass over the entries.
func ComputeBalance(o core.Obligation) Balance {
	paid := core.Money{}
	principal := o.OriginAmount
	for _, e := range o.Entries {
		switch Classify(e) {
		case core.Settlement:
			paid = paid.Add(e.Amount)
		case core.PrincipalAdjustment:
			principal = principal.Add(e.Amount)
		}
	}
	return Balance{
		PaidToDate:         paid,
		EffectivePrincipal: principal,
		Remaining:          principal.Sub(paid).ClampZero(),
		ProgressPercent:    progress(paid, principal),
	}
}

func progress(paid, principal core.Money) float64 {
	denom := principal.Units
	if denom < 1 {
		denom = 1
	}
	pct := float64(paid.Units) / float64(denom) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// RemainingPeriods is the number of installments still needed to clear the
// balance, ceil(Remaining / RecurringAmount). It is the single "months left"
// figure used by the schedule, the balance series and the overview. Zero when
// nothing is owed or no recurring amount is configured.
func RemainingPeriods(o core.Obligation) int {
	return remainingPeriods(ComputeBalance(o).Remaining, o.RecurringAmount)
}

func remainingPeriods(remaining, recurring core.Money) int {
	if !remaining.IsPositive() || !recurring.IsPositive() {
		return 0
	}
	return int((remaining.Units + recurring.Units - 1) / recurring.Units)
}
