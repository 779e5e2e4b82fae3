package match

import (
	"github.com/ppiankov/bufilter/internal/model"
	"github.com/ppiankov/bufilter/internal/normalize"
)

// NameCorrection describes an email match whose input name differs from
// the master name
type NameCorrection struct {
	Row        int
	Email      model.Value
	InputName  model.Value
	MasterName model.Value
}

// Observer receives name corrections found during resolution. It is called
// from whichever goroutine runs Resolve and has no effect on the result.
type Observer func(NameCorrection)

// Resolver matches input records against an Index
type Resolver struct {
	index    *Index
	observer Observer
}

// NewResolver creates a resolver over a fully built index
func NewResolver(index *Index) *Resolver {
	return &Resolver{index: index}
}

// WithObserver returns a copy of the resolver that reports name corrections to fn
func (r *Resolver) WithObserver(fn Observer) *Resolver {
	return &Resolver{index: r.index, observer: fn}
}

// Resolve produces exactly one resolved record for rec. It never fails:
// a record that matches nothing is InvalidUnmatched with all corrected
// fields absent.
func (r *Resolver) Resolve(rec model.InputRecord) model.ResolvedRecord {
	out := model.ResolvedRecord{InputRecord: rec}

	email := normalize.Key(rec.Email)
	if m, ok := r.index.ByEmail(email); ok {
		apply(&out, m)
		out.Status = model.StatusMatchedByEmail
		r.observe(rec, m)
		return out
	}

	name := normalize.Key(rec.Name)
	if m, ok := r.index.ByName(name); ok {
		apply(&out, m)
		// Blank on either side counts as a difference unless both are blank
		if email != normalize.Key(m.NormalizedEmail) {
			out.Status = model.StatusMatchedByNameEmailCorrected
		} else {
			out.Status = model.StatusMatchedByName
		}
		return out
	}

	out.CorrectedName = model.Absent()
	out.CorrectedEmail = model.Absent()
	out.CorrectedPosition = model.Absent()
	out.AssignedCompany = model.Absent()
	out.AssignedGroup = model.Absent()
	out.Status = model.StatusInvalidUnmatched
	return out
}

// ResolveAll resolves records sequentially, preserving order
func (r *Resolver) ResolveAll(records []model.InputRecord) []model.ResolvedRecord {
	out := make([]model.ResolvedRecord, len(records))
	for i, rec := range records {
		out[i] = r.Resolve(rec)
	}
	return out
}

func apply(out *model.ResolvedRecord, m *model.MasterRecord) {
	out.CorrectedName = m.Name
	out.CorrectedEmail = m.Email
	out.CorrectedPosition = m.Position
	out.AssignedCompany = m.Company
	out.AssignedGroup = model.Of(m.Group)
}

func (r *Resolver) observe(rec model.InputRecord, m *model.MasterRecord) {
	if r.observer == nil || normalize.IsBlank(rec.Name) || normalize.IsBlank(m.Name) {
		return
	}
	if normalize.Key(rec.Name) != normalize.Key(m.NormalizedName) {
		r.observer(NameCorrection{
			Row:        rec.Row,
			Email:      rec.Email,
			InputName:  rec.Name,
			MasterName: m.Name,
		})
	}
}
