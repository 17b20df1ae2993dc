package core

import (
	"errors"
	"time"
)

const (
	Loan         ObligationKind = "loan"
	CreditCard   ObligationKind = "credit_card"
	FixedExpense ObligationKind = "fixed_expense"
)

const (
	Active    ObligationStatus = "ACTIVE"
	Completed ObligationStatus = "COMPLETED"
)

const (
	Settlement          EntryKind = "settlement"
	PrincipalAdjustment EntryKind = "principal_adjustment"
)

type (
	ObligationKind   string
	ObligationStatus string

	// EntryKind tags a ledger entry. The zero value marks untagged legacy data.
	EntryKind string

	Date struct {
		time.Time
	}

	LedgerEntry struct {
		ID     string
		Date   Date
		Amount Money
		Note   string
		Kind   EntryKind
	}

	// Obligation is a recurring liability. Loans, credit cards and fixed
	// expenses share this shape and differ only in which fields are set.
	Obligation struct {
		ID              string
		Name            string
		Kind            ObligationKind
		OriginAmount    Money
		RecurringAmount Money // installment or minimum payment
		DueDay          int   // 1-31, 0 when not configured
		TermPeriods     int   // 0 when not configured
		StartDate       Date
		Status          ObligationStatus
		Entries         []LedgerEntry
	}

	// EarlySettlementOverride asks the projector to pay off ObligationID in
	// full during Target. Simulation input only; never persisted.
	EarlySettlementOverride struct {
		ObligationID string
		Target       Period
	}
)

var (
	ErrObligationNotFound  = errors.New("obligation not found")
	ErrStatusNotApplicable = errors.New("period status not applicable")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidPeriod       = errors.New("invalid period")
	ErrInvalidEntryKind    = errors.New("invalid entry kind")
	ErrInvalidDay          = errors.New("invalid day")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Period returns the calendar month the date falls in.
func (d Date) Period() Period {
	return PeriodOf(d.Time)
}

// IsEmpty returns true if the date is zero
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// IsValid reports whether k is one of the explicit tags.
func (k EntryKind) IsValid() bool {
	switch k {
	case Settlement, PrincipalAdjustment:
		return true
	default:
		return false
	}
}

func (s ObligationStatus) IsActive() bool {
	return s == Active
}

// HasDueDay reports whether a monthly due day is configured.
func (o Obligation) HasDueDay() bool {
	return o.DueDay >= 1 && o.DueDay <= 31
}

// IsInstallment reports whether the obligation has a contractual term.
func (o Obligation) IsInstallment() bool {
	return o.RecurringAmount.IsPositive() && o.TermPeriods > 0
}

// Clone returns a copy whose Entries slice does not alias o's.
func (o Obligation) Clone() Obligation {
	c := o
	if o.Entries != nil {
		c.Entries = make([]LedgerEntry, len(o.Entries))
		copy(c.Entries, o.Entries)
	}
	return c
}

// Validate checks an entry created through the mutation path. Legacy entries
// loaded from storage are never validated here.
func (e LedgerEntry) Validate() error {
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !e.Kind.IsValid() {
		return ErrInvalidEntryKind
	}
	if e.Date.IsZero() {
		return errors.New("entry date cannot be zero")
	}
	return nil
}
