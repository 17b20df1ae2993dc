package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/ledger/memory"
	"ledger/internal/services"
)

var fixedNow = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

func fixtures() []core.Obligation {
	return []core.Obligation{
		{
			ID:              "car",
			Name:            "Car loan",
			Kind:            core.Loan,
			OriginAmount:    core.M(12_000_000),
			RecurringAmount: core.M(1_000_000),
			DueDay:          10,
			TermPeriods:     12,
			StartDate:       core.NewDate(2026, 1, 1),
			Status:          core.Active,
		},
		{
			ID:           "rent",
			Name:         "Rent",
			Kind:         core.FixedExpense,
			OriginAmount: core.M(5_000_000),
			Status:       core.Active,
		},
	}
}

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	svc := services.NewLedgerService(memory.New(fixtures()...), nil, nil)
	srv := NewServer(":0", svc, opts)
	srv.now = func() time.Time { return fixedNow }
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, Options{})
	for _, path := range []string{"/healthz", "/readyz"} {
		if rr := do(t, srv, http.MethodGet, path, ""); rr.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rr.Code)
		}
	}

	down := newTestServer(t, Options{Ready: func(context.Context) error { return errors.New("db locked") }})
	if rr := do(t, down, http.MethodGet, "/readyz", ""); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("/readyz with failing check = %d, want 503", rr.Code)
	}
}

func TestListObligations(t *testing.T) {
	srv := newTestServer(t, Options{})
	rr := do(t, srv, http.MethodGet, "/api/obligations", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}

	p := decode[portfolioJSON](t, rr)
	if p.Period != "2026-10" || len(p.Obligations) != 2 || p.Overdue != 1 {
		t.Fatalf("portfolio = %+v", p)
	}
	if p.Obligations[0].PeriodStatus != "overdue" || p.Obligations[0].PeriodStatusLabel != "Overdue" {
		t.Errorf("car status = %q", p.Obligations[0].PeriodStatus)
	}
	if strings.Contains(rr.Body.String(), `"period_status":""`) {
		t.Error("not applicable status should be omitted")
	}
	if p.Obligations[1].PeriodStatus != "" {
		t.Errorf("rent status = %q, want omitted", p.Obligations[1].PeriodStatus)
	}
}

func TestGetObligation(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodGet, "/api/obligations/car", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	o := decode[obligationJSON](t, rr)
	if o.Remaining != 12_000_000 || o.RemainingPeriods != 12 || o.StartDate != "2026-01-01" {
		t.Errorf("car = %+v", o)
	}

	rr = do(t, srv, http.MethodGet, "/api/obligations/ghost", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing status = %d, want 404", rr.Code)
	}
	e := decode[errorJSON](t, rr)
	if !strings.Contains(e.Error, "obligation not found") || e.RequestID == "" {
		t.Errorf("error body = %+v", e)
	}
}

func TestToggle(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodPost, "/api/obligations/car/toggle", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	tr := decode[transitionJSON](t, rr)
	if tr.From != "overdue" || tr.To != "paid" || len(tr.Added) != 1 {
		t.Errorf("transition = %+v", tr)
	}
	if tr.Added[0].Kind != "settlement" || tr.Added[0].Amount != 1_000_000 {
		t.Errorf("added = %+v", tr.Added[0])
	}
	if tr.Obligation.PaidToDate != 1_000_000 {
		t.Errorf("paid to date = %d", tr.Obligation.PaidToDate)
	}

	rr = do(t, srv, http.MethodPost, "/api/obligations/car/toggle", "")
	tr = decode[transitionJSON](t, rr)
	if tr.To != "overdue" || len(tr.Removed) != 1 || tr.Obligation.PaidToDate != 0 {
		t.Errorf("second toggle = %+v", tr)
	}

	if rr := do(t, srv, http.MethodPost, "/api/obligations/rent/toggle", ""); rr.Code != http.StatusConflict {
		t.Errorf("rent toggle = %d, want 409", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/api/obligations/car/toggle", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET toggle = %d, want 405", rr.Code)
	}
}

func TestAddEntry(t *testing.T) {
	tests := []struct {
		name string
		id   string
		body string
		want int
	}{
		{"string amount", "car", `{"amount":"3,000,000","kind":"principal_adjustment","note":"top up","date":"2026-02-01"}`, http.StatusCreated},
		{"number amount", "car", `{"amount":500000,"kind":"settlement"}`, http.StatusCreated},
		{"zero amount", "car", `{"amount":0,"kind":"settlement"}`, http.StatusUnprocessableEntity},
		{"bad amount", "car", `{"amount":"abc","kind":"settlement"}`, http.StatusUnprocessableEntity},
		{"missing kind", "car", `{"amount":"1000"}`, http.StatusUnprocessableEntity},
		{"unknown field", "car", `{"amount":"1000","kind":"settlement","extra":1}`, http.StatusBadRequest},
		{"bad date", "car", `{"amount":"1000","kind":"settlement","date":"01/02/2026"}`, http.StatusBadRequest},
		{"malformed", "car", `{"amount":`, http.StatusBadRequest},
		{"unknown obligation", "ghost", `{"amount":"1000","kind":"settlement"}`, http.StatusNotFound},
	}
	srv := newTestServer(t, Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/api/obligations/"+tt.id+"/entries", tt.body)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d, body %s", rr.Code, tt.want, rr.Body.String())
			}
		})
	}

	o := decode[obligationJSON](t, do(t, srv, http.MethodGet, "/api/obligations/car", ""))
	if o.EffectivePrincipal != 15_000_000 || o.PaidToDate != 500_000 {
		t.Errorf("after entries: principal %d, paid %d", o.EffectivePrincipal, o.PaidToDate)
	}
}

func TestSchedule(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodGet, "/api/schedule", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	s := decode[scheduleJSON](t, rr)
	if s.AsOf != "2026-10" || len(s.Months) != 12 || s.Total != 12_000_000 {
		t.Errorf("schedule = %d months, total %d", len(s.Months), s.Total)
	}
	if len(s.Skipped) != 1 || s.Skipped[0] != "rent" {
		t.Errorf("skipped = %v", s.Skipped)
	}
	if last := s.Months[len(s.Months)-1]; !last.Lines[0].Final || last.Period != "2027-09" {
		t.Errorf("last month = %+v", last)
	}

	rr = do(t, srv, http.MethodGet, "/api/schedule?payoff=car@2026-11", "")
	s = decode[scheduleJSON](t, rr)
	if len(s.Months) != 2 || s.Months[1].Total != 11_000_000 || !s.Months[1].Lines[0].Final {
		t.Errorf("payoff schedule = %+v", s.Months)
	}

	if rr := do(t, srv, http.MethodGet, "/api/schedule?payoff=car@2026-13", ""); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad period = %d, want 422", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/api/schedule?payoff=car", ""); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("missing period = %d, want 422", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/api/schedule?payoff=ghost@2026-11", ""); rr.Code != http.StatusNotFound {
		t.Errorf("unknown override = %d, want 404", rr.Code)
	}
}

func TestScheduleCache(t *testing.T) {
	srv := newTestServer(t, Options{Cache: cache.NewLRUCache[[]byte](16, time.Minute)})

	if rr := do(t, srv, http.MethodGet, "/api/schedule", ""); rr.Header().Get("X-Cache") != "miss" {
		t.Errorf("first request X-Cache = %q", rr.Header().Get("X-Cache"))
	}
	if rr := do(t, srv, http.MethodGet, "/api/schedule", ""); rr.Header().Get("X-Cache") != "hit" {
		t.Errorf("second request X-Cache = %q", rr.Header().Get("X-Cache"))
	}
	if rr := do(t, srv, http.MethodGet, "/api/schedule?payoff=car@2026-11", ""); rr.Header().Get("X-Cache") != "miss" {
		t.Errorf("overrides should have their own entry")
	}

	do(t, srv, http.MethodPost, "/api/obligations/car/toggle", "")
	rr := do(t, srv, http.MethodGet, "/api/schedule", "")
	if rr.Header().Get("X-Cache") != "miss" {
		t.Errorf("write should invalidate, X-Cache = %q", rr.Header().Get("X-Cache"))
	}
	if s := decode[scheduleJSON](t, rr); s.Total != 11_000_000 {
		t.Errorf("total after toggle = %d, want 11,000,000", s.Total)
	}
}

func TestSeries(t *testing.T) {
	srv := newTestServer(t, Options{})
	rr := do(t, srv, http.MethodGet, "/api/series", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	set := decode[seriesSetJSON](t, rr)
	if len(set.Series) != 1 || set.Series[0].ObligationID != "car" {
		t.Fatalf("series = %+v", set.Series)
	}
	if len(set.Timeline) != len(set.Series[0].Points) || len(set.Labels) != len(set.Timeline) {
		t.Errorf("timeline %d, labels %d, points %d", len(set.Timeline), len(set.Labels), len(set.Series[0].Points))
	}
	if set.Timeline[0] != "2026-01" || set.Labels[0] != "Jan 2026" {
		t.Errorf("timeline starts %q / %q", set.Timeline[0], set.Labels[0])
	}
}

func TestRateLimitOnWrites(t *testing.T) {
	srv := newTestServer(t, Options{RateLimitPerMinute: 1})

	if rr := do(t, srv, http.MethodPost, "/api/obligations/car/toggle", ""); rr.Code != http.StatusOK {
		t.Fatalf("first write = %d", rr.Code)
	}
	if rr := do(t, srv, http.MethodPost, "/api/obligations/car/toggle", ""); rr.Code != http.StatusTooManyRequests {
		t.Errorf("second write = %d, want 429", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/api/obligations", ""); rr.Code != http.StatusOK {
		t.Errorf("reads should not be limited, got %d", rr.Code)
	}
	if got := srv.Metrics().TotalRequests; got != 3 {
		t.Errorf("TotalRequests = %d, want 3", got)
	}
}
