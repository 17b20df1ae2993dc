// Package engine derives balances, period status, payment schedules and
// balance series from an immutable snapshot of obligations.
//
// Nothing in this package performs I/O or mutates its inputs. Callers that
// change the ledger do so through the owning store and recompute.
package engine

import (
	"encoding/binary"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"

	"ledger/internal/cache"
	"ledger/internal/core"
)

// Engine wraps the pure computations with an optional balance memo. Several
// consumers ask for the same balances within one rendering pass.
type Engine struct {
	memo cache.Cache[Balance]
}

// New returns an Engine. A nil memo disables memoization.
func New(memo cache.Cache[Balance]) *Engine {
	return &Engine{memo: memo}
}

// Balance returns the memoized balance for o.
func (e *Engine) Balance(o core.Obligation) Balance {
	if e == nil || e.memo == nil {
		return ComputeBalance(o)
	}
	key := BalanceKey(o)
	if b, ok := e.memo.Get(key); ok {
		return b
	}
	b := ComputeBalance(o)
	e.memo.Set(key, b)
	return b
}

// BalanceKey identifies the inputs that determine an obligation's balance:
// its id, the number of entries and a hash over the origin amount and every
// entry's id, date, amount, note and kind.
func BalanceKey(o core.Obligation) string {
	d := xxhash.New()
	writeInt(d, o.OriginAmount.Units)
	for _, en := range o.Entries {
		_, _ = d.WriteString(en.ID)
		writeInt(d, en.Date.UnixNano())
		writeInt(d, en.Amount.Units)
		_, _ = d.WriteString(en.Note)
		_, _ = d.WriteString(string(en.Kind))
		_, _ = d.Write([]byte{0})
	}
	return o.ID + ":" + strconv.Itoa(len(o.Entries)) + ":" + strconv.FormatUint(d.Sum64(), 16)
}

// Fingerprint hashes a whole snapshot. Two snapshots with equal fingerprints
// produce identical schedules and series for the same month.
func Fingerprint(obligations []core.Obligation) string {
	d := xxhash.New()
	for _, o := range obligations {
		_, _ = d.WriteString(BalanceKey(o))
		_, _ = d.WriteString(string(o.Status))
		writeInt(d, o.RecurringAmount.Units)
		writeInt(d, int64(o.DueDay))
		writeInt(d, int64(o.TermPeriods))
		writeInt(d, o.StartDate.UnixNano())
		_, _ = d.WriteString(o.Name)
	}
	return strconv.FormatUint(d.Sum64(), 16)
}

func writeInt(d *xxhash.Digest, v int64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	_, _ = d.Write(buf[:])
}

// Status resolves o's period status.
func (e *Engine) Status(o core.Obligation, now time.Time) PeriodStatus {
	return Status(o, now)
}

// Toggle flips o's period status. See Toggle.
func (e *Engine) Toggle(o core.Obligation, now time.Time, newID func() string) (Transition, error) {
	return Toggle(o, now, newID)
}

// ProjectSchedule projects the payment plan using memoized balances.
func (e *Engine) ProjectSchedule(obligations []core.Obligation, now time.Time, overrides []core.EarlySettlementOverride) Schedule {
	return projectSchedule(obligations, now, overrides, e.Balance)
}

// BalanceSeries builds the chart series using memoized balances.
func (e *Engine) BalanceSeries(obligations []core.Obligation, now time.Time) SeriesSet {
	return generateSeries(obligations, now, e.Balance)
}

// Overview builds the portfolio using memoized balances.
func (e *Engine) Overview(obligations []core.Obligation, now time.Time) Portfolio {
	return overview(obligations, now, e.Balance)
}
