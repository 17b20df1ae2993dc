package engine

import (
	"testing"

	"ledger/internal/core"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		entry core.LedgerEntry
		want  core.EntryKind
	}{
		{"explicit settlement", core.LedgerEntry{ID: "borrow-more-1", Kind: core.Settlement}, core.Settlement},
		{"explicit adjustment", core.LedgerEntry{ID: "p1", Kind: core.PrincipalAdjustment}, core.PrincipalAdjustment},
		{"legacy borrow prefix", core.LedgerEntry{ID: "borrow-more-20240101"}, core.PrincipalAdjustment},
		{"legacy lend prefix", core.LedgerEntry{ID: "lend-more-7"}, core.PrincipalAdjustment},
		{"legacy note marker", core.LedgerEntry{ID: "x1", Note: "Vay thêm 5tr"}, core.PrincipalAdjustment},
		{"legacy note lend marker", core.LedgerEntry{ID: "x2", Note: "cho vay thêm"}, core.PrincipalAdjustment},
		{"legacy plain payment", core.LedgerEntry{ID: "pay-1", Note: "tháng 10"}, core.Settlement},
		{"prefix not at start", core.LedgerEntry{ID: "x-borrow-more"}, core.Settlement},
		{"unknown kind falls back", core.LedgerEntry{ID: "lend-more-1", Kind: "refund"}, core.PrincipalAdjustment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.entry); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassifyLegacyIgnoresTag(t *testing.T) {
	e := core.LedgerEntry{ID: "borrow-more-1", Kind: core.Settlement}
	if got := ClassifyLegacy(e); got != core.PrincipalAdjustment {
		t.Errorf("ClassifyLegacy() = %q, want %q", got, core.PrincipalAdjustment)
	}
}

func TestClassifyOrderIndependent(t *testing.T) {
	entries := []core.LedgerEntry{
		{ID: "a", Amount: core.M(100)},
		{ID: "borrow-more-b", Amount: core.M(50)},
		{ID: "c", Amount: core.M(25), Note: "vay thêm"},
	}
	reversed := []core.LedgerEntry{entries[2], entries[1], entries[0]}

	a := ComputeBalance(core.Obligation{OriginAmount: core.M(1000), Entries: entries})
	b := ComputeBalance(core.Obligation{OriginAmount: core.M(1000), Entries: reversed})
	if a != b {
		t.Errorf("ComputeBalance() depends on order: %+v vs %+v", a, b)
	}
}

func TestTagLegacy(t *testing.T) {
	in := []core.LedgerEntry{
		{ID: "pay-1"},
		{ID: "borrow-more-1"},
		{ID: "pay-2", Kind: core.Settlement},
	}
	out, changed := TagLegacy(in)

	if changed != 2 {
		t.Errorf("TagLegacy() changed = %d, want 2", changed)
	}
	want := []core.EntryKind{core.Settlement, core.PrincipalAdjustment, core.Settlement}
	for i, e := range out {
		if e.Kind != want[i] {
			t.Errorf("TagLegacy()[%d].Kind = %q, want %q", i, e.Kind, want[i])
		}
	}
	if in[0].Kind != "" {
		t.Error("TagLegacy() mutated its input")
	}
}
