package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const seed = `
[[obligation]]
id = "car"
name = "Car loan"
kind = "loan"
origin_amount = 12000000
recurring_amount = 1000000
due_day = 10
term_periods = 12
start_date = 2026-01-05
status = "active"

  [[obligation.entry]]
  date = 2026-09-10
  amount = 9000000
  kind = "settlement"

[[obligation]]
id = "rent"
name = "Rent"
kind = "fixed_expense"
recurring_amount = 7000000
due_day = 20
status = "active"
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.toml")
	if err := os.WriteFile(path, []byte(seed), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AMQP_URL", "")
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(append([]string{"--backend", "memory", "--seed", path, "--now", "2026-10-15"}, args...))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

func TestStatusCommand(t *testing.T) {
	out, err := run(t, "status")
	if err != nil {
		t.Fatalf("status error = %v", err)
	}
	for _, want := range []string{"Car loan", "Rent", "3,000,000", "Overdue", "Unpaid"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestScheduleCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
		want    []string
	}{
		{
			name: "plain projection",
			args: []string{"schedule"},
			want: []string{"Oct 2026", "Dec 2026", "Car loan ✓", "3 months"},
		},
		{
			name: "early payoff",
			args: []string{"schedule", "--payoff", "car@2026-10"},
			want: []string{"3,000,000", "1 months"},
		},
		{
			name:    "malformed payoff",
			args:    []string{"schedule", "--payoff", "car-2026-10"},
			wantErr: true,
		},
		{
			name:    "unknown obligation",
			args:    []string{"schedule", "--payoff", "boat@2026-10"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("schedule error = %v, wantErr %v", err, tt.wantErr)
			}
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("schedule output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestToggleCommand(t *testing.T) {
	out, err := run(t, "toggle", "car")
	if err != nil {
		t.Fatalf("toggle error = %v", err)
	}
	if !strings.Contains(out, "car: Overdue -> Paid") || !strings.Contains(out, "+ settlement 1,000,000 on 2026-10-15") {
		t.Errorf("toggle output = %q", out)
	}

	if _, err := run(t, "toggle", "missing"); err == nil {
		t.Error("toggle on unknown obligation succeeded")
	}
}

func TestAddCommand(t *testing.T) {
	out, err := run(t, "add", "car", "--amount", "500,000", "--date", "2026-10-01")
	if err != nil {
		t.Fatalf("add error = %v", err)
	}
	if !strings.Contains(out, "car: recorded settlement 500,000") {
		t.Errorf("add output = %q", out)
	}

	if _, err := run(t, "add", "car", "--amount", "500000", "--kind", "refund"); err == nil {
		t.Error("add with unknown kind succeeded")
	}
}

func TestMigrateNeedsSQLite(t *testing.T) {
	if _, err := run(t, "migrate"); err == nil || !strings.Contains(err.Error(), "sqlite") {
		t.Errorf("migrate on memory backend error = %v, want sqlite hint", err)
	}
}

func TestParseNow(t *testing.T) {
	tests := []struct {
		in      string
		wantDay int
		wantErr bool
	}{
		{"2026-10-15", 15, false},
		{"2026-10-15T08:00:00Z", 15, false},
		{"15/10/2026", 0, true},
	}
	for _, tt := range tests {
		got, err := parseNow(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseNow(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got.Day() != tt.wantDay {
			t.Errorf("parseNow(%q) day = %d, want %d", tt.in, got.Day(), tt.wantDay)
		}
	}
}
