package google

import (
	"ledger/internal/core"
	"ledger/internal/engine"
)

var scheduleHeader = []any{"Month", "Obligation", "Amount due", "Remaining after", "Final"}

// scheduleRows lays out a schedule as sheet rows: a header, one row per
// obligation line and a total row closing each month. A truncated schedule
// ends with a marker row.
func scheduleRows(asOf core.Period, s engine.Schedule) [][]any {
	rows := [][]any{
		{"Projected from", asOf.String(), "", "", ""},
		scheduleHeader,
	}
	for _, m := range s.Months {
		for _, l := range m.Lines {
			final := ""
			if l.RemainingAfter.IsZero() {
				final = "yes"
			}
			rows = append(rows, []any{m.Period.String(), displayName(l), l.AmountDue.Units, l.RemainingAfter.Units, final})
		}
		rows = append(rows, []any{m.Period.String(), "Total", m.Total.Units, "", ""})
	}
	if s.Incomplete {
		rows = append(rows, []any{"", "Schedule truncated", "", "", ""})
	}
	return rows
}

func displayName(l core.ScheduleLine) string {
	if l.Name != "" {
		return l.Name
	}
	return l.ObligationID
}
