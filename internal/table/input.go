package table

import (
	"strings"

	"github.com/ppiankov/bufilter/internal/model"
)

// Input is the parsed user sheet
type Input struct {
	Records []model.InputRecord
	Missing []string // Configured headers the sheet lacks; their values are absent
}

// LoadInput reads the input sheet and maps it onto input records. A
// configured column the sheet lacks is tolerated and reads as absent;
// a sheet with none of the configured columns is a configuration error.
func LoadInput(cfg model.InputConfig) (*Input, error) {
	t, err := ReadFile(cfg.Path, cfg.Sheet)
	if err != nil {
		return nil, model.NewConfigurationError("input.path", "cannot read input "+cfg.Path, err)
	}

	cols := cfg.Columns
	missing := t.Missing(cols.Headers())
	if len(missing) == len(cols.Headers()) {
		return nil, model.NewConfigurationError("input.columns",
			"none of the configured columns found (want "+strings.Join(cols.Headers(), ", ")+")", nil)
	}

	name := t.Column(cols.Name)
	email := t.Column(cols.Email)
	position := t.Column(cols.Position)
	bu := t.Column(cols.BusinessUnit)

	extra := make(map[string]int, len(cfg.Extra))
	for _, h := range cfg.Extra {
		c := t.Column(h)
		if c < 0 {
			missing = append(missing, h)
		}
		extra[h] = c
	}

	in := &Input{Records: make([]model.InputRecord, 0, len(t.Rows)), Missing: missing}
	for r := range t.Rows {
		rec := model.InputRecord{
			Row:          t.Lines[r],
			Name:         t.Cell(r, name),
			Email:        t.Cell(r, email),
			Position:     t.Cell(r, position),
			BusinessUnit: t.Cell(r, bu),
		}
		if len(extra) > 0 {
			rec.Extra = make(map[string]model.Value, len(extra))
			for h, c := range extra {
				rec.Extra[h] = t.Cell(r, c)
			}
		}
		in.Records = append(in.Records, rec)
	}
	return in, nil
}
