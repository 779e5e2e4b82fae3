// Package partition groups resolved records by business unit and applies
// per-group deduplication.
package partition

import (
	"github.com/ppiankov/bufilter/internal/dedupe"
	"github.com/ppiankov/bufilter/internal/model"
)

// Partition groups records by assigned group in order of first appearance.
// Unmatched records go to a single group named invalidLabel.
//
// Named groups keep only the first record of each composite key, in input
// order. The invalid group keeps every record regardless of its duplicate
// flag, since reviewers need every raw submission. Records are copied; the
// input slice is not modified.
func Partition(records []model.ResolvedRecord, invalidLabel string) []model.Group {
	var groups []*model.Group
	// A business unit may share its name with invalidLabel; the flag keeps them apart
	type groupID struct {
		label   string
		invalid bool
	}
	index := make(map[groupID]*model.Group)
	seen := make(map[groupID]map[model.CompositeKey]struct{})

	for _, rec := range records {
		label, invalid := labelOf(rec, invalidLabel)
		id := groupID{label: label, invalid: invalid}

		g, ok := index[id]
		if !ok {
			g = &model.Group{Label: label, Invalid: invalid}
			index[id] = g
			groups = append(groups, g)
			seen[id] = make(map[model.CompositeKey]struct{})
		}

		if !invalid {
			key := dedupe.KeyOf(rec)
			if _, dup := seen[id][key]; dup {
				g.Removed++
				continue
			}
			seen[id][key] = struct{}{}
		}

		g.Records = append(g.Records, rec)
	}

	out := make([]model.Group, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	return out
}

// labelOf returns the group label of rec and whether it is the invalid group
func labelOf(rec model.ResolvedRecord, invalidLabel string) (string, bool) {
	group, ok := rec.AssignedGroup.Get()
	if !ok || !rec.Status.Matched() {
		return invalidLabel, true
	}
	return group, false
}
