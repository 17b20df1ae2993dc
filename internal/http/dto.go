package http

import (
	"time"

	"ledger/internal/core"
	"ledger/internal/engine"
)

type entryJSON struct {
	ID     string `json:"id"`
	Date   string `json:"date"`
	Amount int64  `json:"amount"`
	Note   string `json:"note,omitempty"`
	Kind   string `json:"kind"`
}

type obligationJSON struct {
	ID                 string      `json:"id"`
	Name               string      `json:"name"`
	Kind               string      `json:"kind"`
	Status             string      `json:"status"`
	OriginAmount       int64       `json:"origin_amount"`
	RecurringAmount    int64       `json:"recurring_amount"`
	DueDay             int         `json:"due_day,omitempty"`
	TermPeriods        int         `json:"term_periods,omitempty"`
	StartDate          string      `json:"start_date,omitempty"`
	PaidToDate         int64       `json:"paid_to_date"`
	EffectivePrincipal int64       `json:"effective_principal"`
	Remaining          int64       `json:"remaining"`
	ProgressPercent    float64     `json:"progress_percent"`
	RemainingPeriods   int         `json:"remaining_periods"`
	PeriodStatus       string      `json:"period_status,omitempty"`
	PeriodStatusLabel  string      `json:"period_status_label,omitempty"`
	Entries            []entryJSON `json:"entries,omitempty"`
}

type portfolioJSON struct {
	Period         string           `json:"period"`
	TotalRemaining int64            `json:"total_remaining"`
	DueThisPeriod  int64            `json:"due_this_period"`
	Paid           int              `json:"paid"`
	Unpaid         int              `json:"unpaid"`
	Overdue        int              `json:"overdue"`
	Obligations    []obligationJSON `json:"obligations"`
}

type transitionJSON struct {
	ObligationID string         `json:"obligation_id"`
	From         string         `json:"from"`
	To           string         `json:"to"`
	Added        []entryJSON    `json:"added,omitempty"`
	Removed      []entryJSON    `json:"removed,omitempty"`
	Obligation   obligationJSON `json:"obligation"`
}

type scheduleLineJSON struct {
	ObligationID   string `json:"obligation_id"`
	Name           string `json:"name"`
	AmountDue      int64  `json:"amount_due"`
	RemainingAfter int64  `json:"remaining_after"`
	Final          bool   `json:"final"`
}

type scheduleMonthJSON struct {
	Period string             `json:"period"`
	Label  string             `json:"label"`
	Total  int64              `json:"total"`
	Lines  []scheduleLineJSON `json:"lines"`
}

type scheduleJSON struct {
	AsOf       string              `json:"as_of"`
	Total      int64               `json:"total"`
	Incomplete bool                `json:"incomplete"`
	Skipped    []string            `json:"skipped,omitempty"`
	Months     []scheduleMonthJSON `json:"months"`
}

type seriesJSON struct {
	ObligationID string  `json:"obligation_id"`
	Label        string  `json:"label"`
	Points       []int64 `json:"points"`
}

type seriesSetJSON struct {
	Timeline []string     `json:"timeline"`
	Labels   []string     `json:"labels"`
	Series   []seriesJSON `json:"series"`
}

type errorJSON struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func toEntryJSON(e core.LedgerEntry) entryJSON {
	return entryJSON{
		ID:     e.ID,
		Date:   e.Date.Format(time.RFC3339),
		Amount: e.Amount.Units,
		Note:   e.Note,
		Kind:   string(engine.Classify(e)),
	}
}

func toEntriesJSON(entries []core.LedgerEntry) []entryJSON {
	if len(entries) == 0 {
		return nil
	}
	out := make([]entryJSON, len(entries))
	for i, e := range entries {
		out[i] = toEntryJSON(e)
	}
	return out
}

func toObligationJSON(v engine.View, withEntries bool) obligationJSON {
	o := v.Obligation
	out := obligationJSON{
		ID:                 o.ID,
		Name:               o.Name,
		Kind:               string(o.Kind),
		Status:             string(o.Status),
		OriginAmount:       o.OriginAmount.Units,
		RecurringAmount:    o.RecurringAmount.Units,
		DueDay:             o.DueDay,
		TermPeriods:        o.TermPeriods,
		PaidToDate:         v.Balance.PaidToDate.Units,
		EffectivePrincipal: v.Balance.EffectivePrincipal.Units,
		Remaining:          v.Balance.Remaining.Units,
		ProgressPercent:    v.Balance.ProgressPercent,
		RemainingPeriods:   v.RemainingPeriods,
		PeriodStatus:       string(v.Status),
		PeriodStatusLabel:  v.Status.Label(),
	}
	if !o.StartDate.IsEmpty() {
		out.StartDate = o.StartDate.Format("2006-01-02")
	}
	if withEntries {
		out.Entries = toEntriesJSON(o.Entries)
	}
	return out
}

func toPortfolioJSON(p engine.Portfolio) portfolioJSON {
	out := portfolioJSON{
		Period:         p.Period.String(),
		TotalRemaining: p.TotalRemaining.Units,
		DueThisPeriod:  p.DueThisPeriod.Units,
		Paid:           p.Paid,
		Unpaid:         p.Unpaid,
		Overdue:        p.Overdue,
		Obligations:    make([]obligationJSON, len(p.Views)),
	}
	for i, v := range p.Views {
		out.Obligations[i] = toObligationJSON(v, false)
	}
	return out
}

func toScheduleJSON(asOf core.Period, s engine.Schedule) scheduleJSON {
	out := scheduleJSON{
		AsOf:       asOf.String(),
		Total:      s.Total().Units,
		Incomplete: s.Incomplete,
		Skipped:    s.Skipped,
		Months:     make([]scheduleMonthJSON, len(s.Months)),
	}
	for i, m := range s.Months {
		month := scheduleMonthJSON{
			Period: m.Period.String(),
			Label:  m.Label,
			Total:  m.Total.Units,
			Lines:  make([]scheduleLineJSON, len(m.Lines)),
		}
		for j, l := range m.Lines {
			month.Lines[j] = scheduleLineJSON{
				ObligationID:   l.ObligationID,
				Name:           l.Name,
				AmountDue:      l.AmountDue.Units,
				RemainingAfter: l.RemainingAfter.Units,
				Final:          l.RemainingAfter.IsZero(),
			}
		}
		out.Months[i] = month
	}
	return out
}

func toSeriesSetJSON(set engine.SeriesSet) seriesSetJSON {
	out := seriesSetJSON{
		Timeline: make([]string, len(set.Timeline)),
		Labels:   set.Labels(),
		Series:   make([]seriesJSON, len(set.Series)),
	}
	for i, p := range set.Timeline {
		out.Timeline[i] = p.String()
	}
	for i, s := range set.Series {
		points := make([]int64, len(s.Points))
		for j, m := range s.Points {
			points[j] = m.Units
		}
		out.Series[i] = seriesJSON{ObligationID: s.ObligationID, Label: s.Label, Points: points}
	}
	return out
}
