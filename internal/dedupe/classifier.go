// Package dedupe flags records whose corrected identity occurs more than
// once in the resolved set.
package dedupe

import "github.com/ppiankov/bufilter/internal/model"

// KeyOf returns the composite key of a resolved record. It uses the
// corrected values, so inputs that reach the same master identity through
// different typos share a key.
func KeyOf(rec model.ResolvedRecord) model.CompositeKey {
	return model.CompositeKey{
		Group:    rec.AssignedGroup,
		Email:    rec.CorrectedEmail,
		Name:     rec.CorrectedName,
		Position: rec.CorrectedPosition,
	}
}

// Count returns the number of occurrences of every composite key
func Count(records []model.ResolvedRecord) map[model.CompositeKey]int {
	counts := make(map[model.CompositeKey]int, len(records))
	for _, rec := range records {
		counts[KeyOf(rec)]++
	}
	return counts
}

// Classify sets Duplicate on every record from global occurrence counts.
// All counting finishes before the first flag is written. Unmatched
// records are classified too; their all-absent keys usually collide.
func Classify(records []model.ResolvedRecord) {
	counts := Count(records)
	for i := range records {
		if counts[KeyOf(records[i])] > 1 {
			records[i].Duplicate = model.DuplicateConsolidated
		} else {
			records[i].Duplicate = model.DuplicateUnique
		}
	}
}
