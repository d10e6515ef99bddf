// Package dedupe removes duplicate ITR rows using the composite
// ITEM|Rule|Test|Form key. Duplicates enter the workbook when export
// runs overlap; the first occurrence is authoritative.
package dedupe

import (
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/itr-cli/internal/model"
)

const (
	keyDelimiter = "|"

	// nilPlaceholder stands in for an absent component so two rows
	// missing the same fields still compare equal.
	nilPlaceholder = "<nil>"
)

// Key returns the composite deduplication key for a record.
func Key(rec model.Record) string {
	parts := [4]string{
		component(rec.Item),
		component(rec.Rule),
		component(rec.Test),
		component(rec.Form),
	}
	return strings.Join(parts[:], keyDelimiter)
}

func component(v *string) string {
	if v == nil {
		return nilPlaceholder
	}
	return *v
}

// Deduplicate returns the records surviving deduplication, in source
// order, plus the number of rows removed. When hasDedupColumns is
// false the workbook predates the key columns and every row is kept.
func Deduplicate(records []model.Record, hasDedupColumns bool) ([]model.Record, int) {
	if !hasDedupColumns {
		return records, 0
	}

	seen := make(map[string]struct{}, len(records))
	kept := make([]model.Record, 0, len(records))
	for _, rec := range records {
		k := Key(rec)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, rec)
	}

	removed := len(records) - len(kept)
	zap.L().Info("deduplication complete",
		zap.Int("input", len(records)),
		zap.Int("kept", len(kept)),
		zap.Int("removed", removed),
	)

	return kept, removed
}
