package core

// ScheduleLine is one obligation's installment within a scheduled month.
type ScheduleLine struct {
	ObligationID   string
	Name           string
	AmountDue      Money
	RemainingAfter Money // zero marks the final installment
}

// MonthlyScheduleEntry is one month of the projected payment plan.
type MonthlyScheduleEntry struct {
	Period Period
	Label  string
	Total  Money
	Lines  []ScheduleLine
}

// Line returns the line for obligationID, if the month has one.
func (m MonthlyScheduleEntry) Line(obligationID string) (ScheduleLine, bool) {
	for _, l := range m.Lines {
		if l.ObligationID == obligationID {
			return l, true
		}
	}
	return ScheduleLine{}, false
}
