package google

import (
	"context"
	"os"
	"testing"

	"ledger/internal/core"
	"ledger/internal/engine"
)

func TestNewFromEnv_MissingSpreadsheetID(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")

	_, err := NewFromEnv(context.Background())
	if err == nil {
		t.Fatal("expected error for missing GOOGLE_SPREADSHEET_ID")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestServiceAccountCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	if _, err := serviceAccountCredentials(); err == nil {
		t.Error("expected error without credentials")
	}

	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", `{"type":"service_account"}`)
	b, err := serviceAccountCredentials()
	if err != nil || string(b) != `{"type":"service_account"}` {
		t.Errorf("serviceAccountCredentials() = %q, %v", b, err)
	}

	path := t.TempDir() + "/sa.json"
	if err := os.WriteFile(path, []byte(`{}`), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", path)
	if b, err := serviceAccountCredentials(); err != nil || string(b) != `{}` {
		t.Errorf("serviceAccountCredentials() from file = %q, %v", b, err)
	}
}

func TestWriteScheduleWithoutService(t *testing.T) {
	c := &Client{spreadsheetID: "test", scheduleBase: "Schedule"}
	if err := c.WriteSchedule(context.Background(), core.NewPeriod(2026, 10), engine.Schedule{}); err == nil {
		t.Error("expected error when service is not initialized")
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Schedule", 2026, "2026 Schedule"},
		{"2025 Schedule", 2026, "2025 Schedule"},
		{"  Plan ", 2027, "2027 Plan"},
		{"", 2026, ""},
		{"20261", 2026, "2026 20261"},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
		}
	}
}

func TestQuoteSheet(t *testing.T) {
	if got := quoteSheet("2026 Bob's plan"); got != "'2026 Bob''s plan'" {
		t.Errorf("quoteSheet() = %q", got)
	}
}

func TestScheduleRows(t *testing.T) {
	obs := []core.Obligation{
		{ID: "a", Name: "Car", OriginAmount: core.M(2_000_000), RecurringAmount: core.M(1_000_000), Status: core.Active},
		{ID: "b", OriginAmount: core.M(1_500_000), RecurringAmount: core.M(1_500_000), Status: core.Active},
	}
	now := core.NewPeriod(2026, 10)
	s := engine.ProjectSchedule(obs, now.End(), nil)

	rows := scheduleRows(now, s)

	// preamble + header + (2 lines + total) + (1 line + total)
	if len(rows) != 7 {
		t.Fatalf("scheduleRows() = %d rows, want 7", len(rows))
	}
	if rows[1][0] != "Month" {
		t.Errorf("header = %v", rows[1])
	}
	if got := rows[2]; got[0] != "2026-10" || got[1] != "Car" || got[2] != int64(1_000_000) || got[4] != "" {
		t.Errorf("first line = %v", got)
	}
	if got := rows[3]; got[1] != "b" || got[4] != "yes" {
		t.Errorf("second line = %v", got)
	}
	if got := rows[4]; got[1] != "Total" || got[2] != int64(2_500_000) {
		t.Errorf("total row = %v", got)
	}
	if got := rows[5]; got[0] != "2026-11" || got[4] != "yes" {
		t.Errorf("final month line = %v", got)
	}
}

func TestScheduleRowsIncomplete(t *testing.T) {
	rows := scheduleRows(core.NewPeriod(2026, 1), engine.Schedule{Incomplete: true})
	if last := rows[len(rows)-1]; last[1] != "Schedule truncated" {
		t.Errorf("last row = %v, want truncation marker", last)
	}
}
