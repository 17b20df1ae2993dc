package engine

import (
	"strings"

	"ledger/internal/core"
)

// Reserved markers written by older clients for "borrow more" and
// "lend more" records before entries carried an explicit kind.
var (
	legacyAdjustmentIDPrefixes = []string{"borrow-more", "lend-more"}
	legacyAdjustmentNote       = "vay thêm"
)

// Classify returns the entry's kind. Explicitly tagged entries keep their tag;
// untagged legacy entries go through ClassifyLegacy.
func Classify(e core.LedgerEntry) core.EntryKind {
	if e.Kind.IsValid() {
		return e.Kind
	}
	return ClassifyLegacy(e)
}

// ClassifyLegacy infers a kind from the id and note markers. It only exists
// to migrate untagged data and ignores any explicit tag.
func ClassifyLegacy(e core.LedgerEntry) core.EntryKind {
	for _, prefix := range legacyAdjustmentIDPrefixes {
		if strings.HasPrefix(e.ID, prefix) {
			return core.PrincipalAdjustment
		}
	}
	if strings.Contains(strings.ToLower(e.Note), legacyAdjustmentNote) {
		return core.PrincipalAdjustment
	}
	return core.Settlement
}

// TagLegacy returns a copy of entries with every untagged entry's Kind filled
// in, and the number of entries that were tagged.
func TagLegacy(entries []core.LedgerEntry) ([]core.LedgerEntry, int) {
	out := make([]core.LedgerEntry, len(entries))
	changed := 0
	for i, e := range entries {
		if !e.Kind.IsValid() {
			e.Kind = ClassifyLegacy(e)
			changed++
		}
		out[i] = e
	}
	return out, changed
}
