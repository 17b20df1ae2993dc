package engine

import (
	"strconv"
	"time"

	"ledger/internal/core"
)

// BalanceSeries is one obligation's balance at every point of the shared
// timeline. Label is for display only; ObligationID is the key.
type BalanceSeries struct {
	ObligationID string
	Label        string
	Points       []core.Money
}

// SeriesSet holds every series on one shared monthly timeline.
type SeriesSet struct {
	Timeline []core.Period
	Series   []BalanceSeries
}

// Labels returns the human readable month labels of the timeline.
func (s SeriesSet) Labels() []string {
	out := make([]string, len(s.Timeline))
	for i, p := range s.Timeline {
		out[i] = p.Label()
	}
	return out
}

// Lookup returns the series for obligationID.
func (s SeriesSet) Lookup(obligationID string) (BalanceSeries, bool) {
	for _, bs := range s.Series {
		if bs.ObligationID == obligationID {
			return bs, true
		}
	}
	return BalanceSeries{}, false
}

// At returns the obligation's balance in period p.
func (s SeriesSet) At(obligationID string, p core.Period) (core.Money, bool) {
	bs, ok := s.Lookup(obligationID)
	if !ok || len(s.Timeline) == 0 {
		return core.Money{}, false
	}
	i := s.Timeline[0].MonthsUntil(p)
	if i < 0 || i >= len(bs.Points) {
		return core.Money{}, false
	}
	return bs.Points[i], true
}

// GenerateSeries builds a monthly balance series for every active installment
// obligation. The timeline runs from the earliest contractual start to the
// later of now and the last projected payoff, which never runs past an
// obligation's contractual end.
//
// For each month the balance is the origin amount before the start, zero
// after the contractual end, the live remaining balance in the current month, a
// reconstruction from settlements in earlier months and a decay by the
// recurring amount in later ones.
func GenerateSeries(obligations []core.Obligation, now time.Time) SeriesSet {
	return generateSeries(obligations, now, ComputeBalance)
}

func generateSeries(obligations []core.Obligation, now time.Time, balance func(core.Obligation) Balance) SeriesSet {
	current := core.PeriodOf(now)

	var (
		candidates []core.Obligation
		balances   []Balance
	)
	first, last := current, current
	for _, o := range obligations {
		if !o.Status.IsActive() || !o.IsInstallment() {
			continue
		}
		b := balance(o)
		candidates = append(candidates, o)
		balances = append(balances, b)

		if start := o.StartDate.Period(); !o.StartDate.IsEmpty() && start.Before(first) {
			first = start
		}
		payoff := current.AddMonths(remainingPeriods(b.Remaining, o.RecurringAmount))
		if end := o.StartDate.Period().AddMonths(o.TermPeriods); !o.StartDate.IsEmpty() && payoff.After(end) {
			payoff = end
		}
		if payoff.After(last) {
			last = payoff
		}
	}
	if len(candidates) == 0 {
		return SeriesSet{}
	}
	if limit := current.AddMonths(MaxScheduleMonths); last.After(limit) {
		last = limit
	}

	timeline := make([]core.Period, 0, first.MonthsUntil(last)+1)
	for p := first; !p.After(last); p = p.AddMonths(1) {
		timeline = append(timeline, p)
	}

	labels := disambiguate(candidates)
	set := SeriesSet{Timeline: timeline, Series: make([]BalanceSeries, len(candidates))}
	for i, o := range candidates {
		set.Series[i] = BalanceSeries{
			ObligationID: o.ID,
			Label:        labels[i],
			Points:       seriesPoints(o, balances[i], timeline, current),
		}
	}
	return set
}

func seriesPoints(o core.Obligation, b Balance, timeline []core.Period, current core.Period) []core.Money {
	start := o.StartDate.Period()
	end := start.AddMonths(o.TermPeriods)
	points := make([]core.Money, len(timeline))

	for i, p := range timeline {
		switch {
		case !o.StartDate.IsEmpty() && p.Before(start):
			points[i] = o.OriginAmount
		case !o.StartDate.IsEmpty() && p.After(end):
			points[i] = core.Money{}
		case p.Equal(current):
			points[i] = b.Remaining
		case p.After(current):
			prev := b.Remaining
			if i > 0 {
				prev = points[i-1]
			}
			points[i] = prev.Sub(o.RecurringAmount).ClampZero()
		default:
			points[i] = b.EffectivePrincipal.Sub(settledBy(o, p)).ClampZero()
		}
	}
	return points
}

// settledBy sums Settlements dated in p or earlier. Entries are bucketed by
// their own calendar month, as PaidThisPeriod does.
func settledBy(o core.Obligation, p core.Period) core.Money {
	var total core.Money
	for _, e := range o.Entries {
		if Classify(e) == core.Settlement && !e.Date.Period().After(p) {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// disambiguate numbers repeated display names: "Car loan", "Car loan (2)".
func disambiguate(obligations []core.Obligation) []string {
	seen := make(map[string]int, len(obligations))
	out := make([]string, len(obligations))
	for i, o := range obligations {
		name := o.Name
		if name == "" {
			name = o.ID
		}
		seen[name]++
		if n := seen[name]; n > 1 {
			out[i] = name + " (" + strconv.Itoa(n) + ")"
		} else {
			out[i] = name
		}
	}
	return out
}
