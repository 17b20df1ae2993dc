package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"ledger/internal/core"
)

const maxBodyBytes = 64 << 10

var errBadRequest = errors.New("bad request")

// amountField accepts a JSON number or a string with thousands separators.
type amountField string

func (a *amountField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amountField(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("%w: amount must be a number or string", core.ErrInvalidAmount)
	}
	*a = amountField(n.String())
	return nil
}

type entryRequest struct {
	Amount amountField `json:"amount"`
	Kind   string      `json:"kind"`
	Note   string      `json:"note"`
	Date   string      `json:"date"`
}

// parseEntryRequest decodes an entry body. A missing date is now.
func parseEntryRequest(w http.ResponseWriter, r *http.Request, now time.Time) (core.LedgerEntry, error) {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	var req entryRequest
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, core.ErrInvalidAmount) {
			return core.LedgerEntry{}, err
		}
		return core.LedgerEntry{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return core.LedgerEntry{}, fmt.Errorf("%w: trailing data after JSON body", errBadRequest)
	}

	amount, err := core.ParseAmount(string(req.Amount))
	if err != nil {
		return core.LedgerEntry{}, err
	}

	date := core.Date{Time: now}
	if v := strings.TrimSpace(req.Date); v != "" {
		date, err = parseDate(v)
		if err != nil {
			return core.LedgerEntry{}, fmt.Errorf("%w: date must be YYYY-MM-DD or RFC 3339", errBadRequest)
		}
	}

	return core.LedgerEntry{
		Date:   date,
		Amount: amount,
		Note:   sanitizeInput(req.Note),
		Kind:   core.EntryKind(strings.TrimSpace(req.Kind)),
	}, nil
}

func parseDate(s string) (core.Date, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return core.Date{Time: t}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return core.Date{}, err
	}
	return core.Date{Time: t}, nil
}

// parsePayoffs reads repeated payoff=<id>@YYYY-MM parameters, one override
// per parameter. A later value for the same obligation replaces an earlier one.
func parsePayoffs(r *http.Request) ([]core.EarlySettlementOverride, error) {
	byID := make(map[string]core.Period)
	for _, raw := range r.URL.Query()["payoff"] {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		ov, err := core.ParseOverride(raw)
		if err != nil {
			return nil, err
		}
		byID[ov.ObligationID] = ov.Target
	}

	out := make([]core.EarlySettlementOverride, 0, len(byID))
	for id, p := range byID {
		out = append(out, core.EarlySettlementOverride{ObligationID: id, Target: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ObligationID < out[j].ObligationID })
	return out, nil
}

// overridesKey quotes each override so ids containing the separator cannot
// collide.
func overridesKey(overrides []core.EarlySettlementOverride) string {
	parts := make([]string, len(overrides))
	for i, ov := range overrides {
		parts[i] = strconv.Quote(ov.String())
	}
	return strings.Join(parts, ",")
}

// sanitizeInput removes control characters except tab and newlines and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
