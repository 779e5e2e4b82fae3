// Package match builds the master lookup index and resolves input records
// against it.
package match

import (
	"github.com/ppiankov/bufilter/internal/model"
	"github.com/ppiankov/bufilter/internal/normalize"
)

// Index holds master records keyed by normalized email and normalized name.
// It is read-only once BuildIndex returns.
//
// When several master rows share a key the last one inserted wins. Tables
// are inserted in the order given, rows in table order. This is a known
// data-quality gap of the master data; Collisions reports how often it
// happened so callers can surface it.
type Index struct {
	byEmail    map[string]*model.MasterRecord
	byName     map[string]*model.MasterRecord
	records    int
	collisions int
}

// BuildIndex indexes every row of every table
func BuildIndex(tables []model.MasterTable) *Index {
	idx := &Index{
		byEmail: make(map[string]*model.MasterRecord),
		byName:  make(map[string]*model.MasterRecord),
	}

	for _, tbl := range tables {
		for _, row := range tbl.Rows {
			rec := &model.MasterRecord{
				Email:           row.Email,
				Name:            row.Name,
				Position:        row.Position,
				Company:         row.Company,
				NormalizedEmail: normalize.Value(row.Email),
				NormalizedName:  normalize.Value(row.Name),
				Group:           tbl.Group,
				Source:          tbl.Source,
			}
			idx.records++
			idx.insert(idx.byEmail, rec.NormalizedEmail, rec)
			idx.insert(idx.byName, rec.NormalizedName, rec)
		}
	}

	return idx
}

// insert skips blank keys so key-less master rows never become match targets
func (i *Index) insert(m map[string]*model.MasterRecord, key model.Value, rec *model.MasterRecord) {
	if key.IsBlank() {
		return
	}
	k := key.String()
	if _, exists := m[k]; exists {
		i.collisions++
	}
	m[k] = rec
}

// ByEmail looks up a master record by normalized email
func (i *Index) ByEmail(key string) (*model.MasterRecord, bool) {
	if key == "" {
		return nil, false
	}
	rec, ok := i.byEmail[key]
	return rec, ok
}

// ByName looks up a master record by normalized name
func (i *Index) ByName(key string) (*model.MasterRecord, bool) {
	if key == "" {
		return nil, false
	}
	rec, ok := i.byName[key]
	return rec, ok
}

// Len returns the number of master rows indexed
func (i *Index) Len() int {
	return i.records
}

// Collisions returns how many insertions overwrote an existing email or name key
func (i *Index) Collisions() int {
	return i.collisions
}

// Emails returns the number of distinct email keys
func (i *Index) Emails() int {
	return len(i.byEmail)
}

// Names returns the number of distinct name keys
func (i *Index) Names() int {
	return len(i.byName)
}
