package ledger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"ledger/internal/core"
)

// Seed is the TOML document used to populate a store:
//
//	[[obligation]]
//	id = "car"
//	name = "Car loan"
//	kind = "loan"
//	origin_amount = 12000000
//	recurring_amount = 1000000
//	due_day = 10
//	term_periods = 12
//	start_date = 2026-01-01
//
//	  [[obligation.entry]]
//	  id = "car-2026-01"
//	  date = 2026-01-05
//	  amount = 1000000
//	  kind = "settlement"
type Seed struct {
	Obligations []SeedObligation `toml:"obligation"`
}

type SeedObligation struct {
	ID              string      `toml:"id"`
	Name            string      `toml:"name"`
	Kind            string      `toml:"kind"`
	OriginAmount    int64       `toml:"origin_amount"`
	RecurringAmount int64       `toml:"recurring_amount"`
	DueDay          int         `toml:"due_day"`
	TermPeriods     int         `toml:"term_periods"`
	StartDate       time.Time   `toml:"start_date"`
	Status          string      `toml:"status"`
	Entries         []SeedEntry `toml:"entry"`
}

type SeedEntry struct {
	ID     string    `toml:"id"`
	Date   time.Time `toml:"date"`
	Amount int64     `toml:"amount"`
	Note   string    `toml:"note"`
	Kind   string    `toml:"kind"`
}

// LoadSeedFile reads and validates a seed file.
func LoadSeedFile(path string) ([]core.Obligation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return ReadSeed(f)
}

// ReadSeed decodes a seed document. Entries without a kind are kept untagged
// so that they go through the same legacy classification as stored data.
func ReadSeed(r io.Reader) ([]core.Obligation, error) {
	var seed Seed
	md, err := toml.NewDecoder(r).Decode(&seed)
	if err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown seed keys: %s", strings.Join(keys, ", "))
	}

	var problems []string
	seen := make(map[string]bool, len(seed.Obligations))
	out := make([]core.Obligation, 0, len(seed.Obligations))
	for i, so := range seed.Obligations {
		o, errs := so.toObligation()
		if o.ID != "" && seen[o.ID] {
			errs = append(errs, "duplicate id")
		}
		seen[o.ID] = true
		for _, e := range errs {
			problems = append(problems, fmt.Sprintf("obligation %d (%s): %s", i+1, so.ID, e))
		}
		out = append(out, o)
	}
	if len(problems) > 0 {
		return nil, errors.New("invalid seed: " + strings.Join(problems, "; "))
	}
	return out, nil
}

func (so SeedObligation) toObligation() (core.Obligation, []string) {
	var errs []string
	o := core.Obligation{
		ID:              strings.TrimSpace(so.ID),
		Name:            strings.TrimSpace(so.Name),
		Kind:            core.ObligationKind(so.Kind),
		OriginAmount:    core.M(so.OriginAmount),
		RecurringAmount: core.M(so.RecurringAmount),
		DueDay:          so.DueDay,
		TermPeriods:     so.TermPeriods,
		StartDate:       toDate(so.StartDate),
		Status:          core.ObligationStatus(strings.ToUpper(so.Status)),
	}
	if o.ID == "" {
		errs = append(errs, "id is required")
	}
	switch o.Kind {
	case core.Loan, core.CreditCard, core.FixedExpense:
	case "":
		o.Kind = core.Loan
	default:
		errs = append(errs, fmt.Sprintf("unknown kind %q", so.Kind))
	}
	switch o.Status {
	case core.Active, core.Completed:
	case "":
		o.Status = core.Active
	default:
		errs = append(errs, fmt.Sprintf("unknown status %q", so.Status))
	}
	if so.OriginAmount < 0 || so.RecurringAmount < 0 {
		errs = append(errs, "amounts cannot be negative")
	}
	if so.DueDay < 0 || so.DueDay > 31 {
		errs = append(errs, core.ErrInvalidDay.Error())
	}
	if so.TermPeriods < 0 {
		errs = append(errs, "term_periods cannot be negative")
	}

	ids := make(map[string]bool, len(so.Entries))
	for j, se := range so.Entries {
		e := core.LedgerEntry{
			ID:     strings.TrimSpace(se.ID),
			Date:   toDate(se.Date),
			Amount: core.M(se.Amount),
			Note:   se.Note,
			Kind:   core.EntryKind(se.Kind),
		}
		if e.ID == "" {
			e.ID = fmt.Sprintf("%s-%d", o.ID, j+1)
		}
		if ids[e.ID] {
			errs = append(errs, fmt.Sprintf("duplicate entry id %q", e.ID))
		}
		ids[e.ID] = true
		if e.Kind != "" && !e.Kind.IsValid() {
			errs = append(errs, fmt.Sprintf("entry %s: %v", e.ID, core.ErrInvalidEntryKind))
		}
		if !e.Amount.IsPositive() {
			errs = append(errs, fmt.Sprintf("entry %s: %v", e.ID, core.ErrInvalidAmount))
		}
		if e.Date.IsEmpty() {
			errs = append(errs, fmt.Sprintf("entry %s: date is required", e.ID))
		}
		o.Entries = append(o.Entries, e)
	}
	return o, errs
}

// TOML local dates decode as midnight in time.Local; keep the calendar day.
func toDate(t time.Time) core.Date {
	if t.IsZero() {
		return core.Date{}
	}
	return core.NewDate(t.Year(), int(t.Month()), t.Day())
}
