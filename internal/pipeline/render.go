package pipeline

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/ppiankov/bufilter/internal/model"
)

// maxSheetName is Excel's sheet name limit
const maxSheetName = 31

// Renderer writes a report in one of the supported formats
type Renderer struct {
	output model.OutputConfig
	extra  []string
}

// NewRenderer creates a renderer. extra lists input columns appended to
// every sheet after the fixed layout.
func NewRenderer(output model.OutputConfig, extra []string) *Renderer {
	return &Renderer{output: output, extra: extra}
}

// column is one output column: an internal field name and how to read it
type column struct {
	field string
	value func(r *model.ResolvedRecord) model.Value
}

func status(r *model.ResolvedRecord) model.Value    { return model.Of(string(r.Status)) }
func duplicate(r *model.ResolvedRecord) model.Value { return model.Of(string(r.Duplicate)) }

var (
	colCorrectedName     = column{model.FieldCorrectedName, func(r *model.ResolvedRecord) model.Value { return r.CorrectedName }}
	colCorrectedPosition = column{model.FieldCorrectedPosition, func(r *model.ResolvedRecord) model.Value { return r.CorrectedPosition }}
	colAssignedCompany   = column{model.FieldAssignedCompany, func(r *model.ResolvedRecord) model.Value { return r.AssignedCompany }}
	colCorrectedEmail    = column{model.FieldCorrectedEmail, func(r *model.ResolvedRecord) model.Value { return r.CorrectedEmail }}
	colInputName         = column{model.FieldInputName, func(r *model.ResolvedRecord) model.Value { return r.Name }}
	colInputEmail        = column{model.FieldInputEmail, func(r *model.ResolvedRecord) model.Value { return r.Email }}
	colInputPosition     = column{model.FieldInputPosition, func(r *model.ResolvedRecord) model.Value { return r.Position }}
	colInputBusinessUnit = column{model.FieldInputBusinessUnit, func(r *model.ResolvedRecord) model.Value { return r.BusinessUnit }}
	colAssignedGroup     = column{model.FieldAssignedGroup, func(r *model.ResolvedRecord) model.Value { return r.AssignedGroup }}
	colValidationStatus  = column{model.FieldValidationStatus, status}
	colDuplicateFlag     = column{model.FieldDuplicateFlag, duplicate}
)

// Named business unit sheets lead with the corrected identity
var groupLayout = []column{
	colCorrectedName,
	colCorrectedPosition,
	colAssignedCompany,
	colCorrectedEmail,
	colInputBusinessUnit,
	colAssignedGroup,
	colValidationStatus,
	colDuplicateFlag,
}

// The invalid sheet leads with what the user submitted
var invalidLayout = []column{
	colInputName,
	colInputEmail,
	colInputPosition,
	colInputBusinessUnit,
	colCorrectedName,
	colCorrectedPosition,
	colAssignedCompany,
	colCorrectedEmail,
	colAssignedGroup,
	colValidationStatus,
}

// Database tables carry every field so no information is lost
var fullLayout = []column{
	colInputName,
	colInputEmail,
	colInputPosition,
	colInputBusinessUnit,
	colCorrectedName,
	colCorrectedPosition,
	colAssignedCompany,
	colCorrectedEmail,
	colAssignedGroup,
	colValidationStatus,
	colDuplicateFlag,
}

func (r *Renderer) layout(g model.Group) []column {
	base := groupLayout
	if g.Invalid {
		base = invalidLayout
	}
	return r.withExtra(base)
}

func (r *Renderer) withExtra(base []column) []column {
	cols := make([]column, 0, len(base)+len(r.extra))
	cols = append(cols, base...)
	for _, h := range r.extra {
		h := h
		cols = append(cols, column{field: h, value: func(rec *model.ResolvedRecord) model.Value {
			return rec.Extra[h]
		}})
	}
	return cols
}

// header relabels internal field names; extra input columns keep their own name
func (r *Renderer) header(cols []column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = r.output.Header(c.field)
	}
	return out
}

func cells(cols []column, rec *model.ResolvedRecord) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.value(rec).String()
	}
	return out
}

// Render writes report to path in the configured format
func (r *Renderer) Render(report *model.Report, path string) error {
	switch r.output.Format {
	case model.FormatXLSX, "":
		return r.RenderXLSX(report, path)
	case model.FormatCSV:
		return r.RenderCSV(report, path)
	case model.FormatSQLite:
		return r.RenderSQLite(report, path)
	case model.FormatJSON:
		return writeTo(path, func(w io.Writer) error { return r.RenderJSON(w, report) })
	case model.FormatYAML:
		return writeTo(path, func(w io.Writer) error { return r.RenderYAML(w, report) })
	default:
		return fmt.Errorf("%w: %s", model.ErrUnsupportedFormat, r.output.Format)
	}
}

// writeTo opens path for writing; "-" means stdout
func writeTo(path string, fn func(w io.Writer) error) error {
	if path == "-" {
		return fn(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// RenderXLSX writes one sheet per group
func (r *Renderer) RenderXLSX(report *model.Report, path string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	groups := report.Groups
	if len(groups) == 0 {
		// Keep the workbook readable: a single empty invalid sheet
		groups = []model.Group{{Label: r.output.InvalidLabel, Invalid: true}}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	names := SheetNames(groups)
	for i, g := range groups {
		name := names[i]
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return fmt.Errorf("name sheet %q: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %q: %w", name, err)
		}

		cols := r.layout(g)
		if err := setRow(f, name, 1, r.header(cols)); err != nil {
			return err
		}
		last, _ := excelize.CoordinatesToCellName(len(cols), 1)
		if err := f.SetCellStyle(name, "A1", last, bold); err != nil {
			return fmt.Errorf("style header %q: %w", name, err)
		}
		for n := range g.Records {
			if err := setRow(f, name, n+2, cells(cols, &g.Records[n])); err != nil {
				return err
			}
		}
	}
	f.SetActiveSheet(0)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	vals := make([]any, len(values))
	for i, v := range values {
		vals[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

// RenderCSV writes one <sheet>.csv per group into dir
func (r *Renderer) RenderCSV(report *model.Report, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	names := SheetNames(report.Groups)
	for i, g := range report.Groups {
		path := filepath.Join(dir, names[i]+".csv")
		err := writeTo(path, func(w io.Writer) error {
			cw := csv.NewWriter(w)
			cols := r.layout(g)
			if err := cw.Write(r.header(cols)); err != nil {
				return err
			}
			for n := range g.Records {
				if err := cw.Write(cells(cols, &g.Records[n])); err != nil {
					return err
				}
			}
			cw.Flush()
			return cw.Error()
		})
		if err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}

// RenderSQLite writes one table per group plus a summary table. Tables use
// the full layout, so the duplicate flag is kept for the invalid group too.
func (r *Renderer) RenderSQLite(report *model.Report, path string) error {
	_ = os.Remove(path)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = db.Close() }()

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	cols := r.withExtra(fullLayout)
	names := uniqueNames(report.Groups, "summary")
	for i, g := range report.Groups {
		if err := writeTable(tx, names[i], cols, g.Records); err != nil {
			return fmt.Errorf("write table %q: %w", names[i], err)
		}
	}
	if err := writeSummaryTable(tx, report, names); err != nil {
		return fmt.Errorf("write summary table: %w", err)
	}

	return tx.Commit()
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func writeTable(tx *sql.Tx, name string, cols []column, records []model.ResolvedRecord) error {
	defs := []string{`"row" INTEGER`}
	qCols := []string{`"row"`}
	for _, name := range columnNames(cols) {
		defs = append(defs, quoteIdent(name)+" TEXT")
		qCols = append(qCols, quoteIdent(name))
	}

	if _, err := tx.Exec(`CREATE TABLE ` + quoteIdent(name) + ` (` + strings.Join(defs, ",") + `)`); err != nil {
		return err
	}

	ph := strings.TrimRight(strings.Repeat("?,", len(qCols)), ",")
	stmt, err := tx.Prepare(`INSERT INTO ` + quoteIdent(name) + ` (` + strings.Join(qCols, ",") + `) VALUES (` + ph + `)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for n := range records {
		rec := &records[n]
		args := make([]any, 0, len(qCols))
		args = append(args, rec.Row)
		for _, c := range cols {
			args = append(args, sqliteValue(c.value(rec)))
		}
		if _, err := stmt.Exec(args...); err != nil {
			return err
		}
	}
	return nil
}

// columnNames returns one SQL column name per column. SQLite compares
// identifiers case-insensitively and "row" holds the sheet row number, so
// an extra input column that clashes gets a numeric suffix.
func columnNames(cols []column) []string {
	used := map[string]bool{"row": true}
	names := make([]string, len(cols))
	for i, c := range cols {
		name := c.field
		for n := 2; used[strings.ToLower(name)]; n++ {
			name = c.field + "_" + strconv.Itoa(n)
		}
		used[strings.ToLower(name)] = true
		names[i] = name
	}
	return names
}

// sqliteValue stores absent values as NULL
func sqliteValue(v model.Value) any {
	if s, ok := v.Get(); ok {
		return s
	}
	return nil
}

func writeSummaryTable(tx *sql.Tx, report *model.Report, names []string) error {
	if _, err := tx.Exec(`CREATE TABLE "summary" ("kind" TEXT, "key" TEXT, "count" INTEGER)`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO "summary" ("kind", "key", "count") VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	s := report.Summary
	rows := [][3]any{
		{"total", "records", s.Total},
		{"total", "emitted", s.Emitted},
		{"total", "removed", s.Removed},
		{"total", "master_records", s.MasterRecords},
		{"total", "master_collisions", s.MasterCollisions},
	}
	for _, st := range model.Statuses {
		rows = append(rows, [3]any{"status", string(st), s.ByStatus[st]})
	}
	for _, fl := range []model.DuplicateFlag{model.DuplicateConsolidated, model.DuplicateUnique} {
		rows = append(rows, [3]any{"duplicate", string(fl), s.ByDuplicate[fl]})
	}
	for i, g := range report.Groups {
		rows = append(rows, [3]any{"table", names[i], len(g.Records)})
	}

	for _, row := range rows {
		if _, err := stmt.Exec(row[0], row[1], row[2]); err != nil {
			return err
		}
	}
	return nil
}

// RenderJSON writes the whole report as indented JSON
func (r *Renderer) RenderJSON(w io.Writer, report *model.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

// RenderYAML writes the whole report as YAML
func (r *Renderer) RenderYAML(w io.Writer, report *model.Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode YAML: %w", err)
	}
	return enc.Close()
}

// RenderSummary prints status and duplicate counts and per-group sizes
func (r *Renderer) RenderSummary(w io.Writer, report *model.Report) {
	s := report.Summary

	fmt.Fprintf(w, "\nRun %s\n", report.RunID)
	fmt.Fprintf(w, "Input: %s (%d records)\n", report.InputPath, s.Total)
	fmt.Fprintf(w, "Master: %s (%d records", report.MasterDir, s.MasterRecords)
	if s.MasterCollisions > 0 {
		fmt.Fprintf(w, ", %d repeated keys", s.MasterCollisions)
	}
	fmt.Fprintln(w, ")")

	fmt.Fprintln(w, "\nValidation status:")
	for _, st := range model.Statuses {
		fmt.Fprintf(w, "  %-36s %d\n", st, s.ByStatus[st])
	}

	fmt.Fprintln(w, "\nDuplicate status:")
	for _, fl := range []model.DuplicateFlag{model.DuplicateConsolidated, model.DuplicateUnique} {
		fmt.Fprintf(w, "  %-36s %d\n", fl, s.ByDuplicate[fl])
	}

	fmt.Fprintln(w, "\nSheets:")
	names := SheetNames(report.Groups)
	for i, g := range report.Groups {
		fmt.Fprintf(w, "  %-36s %d", names[i], len(g.Records))
		if g.Removed > 0 {
			fmt.Fprintf(w, " (deduplicated %d)", g.Removed)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "\nEmitted %d of %d records, %d removed as duplicates\n", s.Emitted, s.Total, s.Removed)
}

// SanitizeSheetName makes s usable as an Excel sheet name: path
// separators become dashes, other forbidden characters are dropped and
// the result is cut to 31 characters
func SanitizeSheetName(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch c {
		case '/', '\\':
			b.WriteRune('-')
		case ':', '*', '?', '[', ']':
		default:
			b.WriteRune(c)
		}
	}
	name := strings.Trim(strings.TrimSpace(b.String()), "'")
	if name == "" {
		name = "Sheet"
	}
	return truncate(name, maxSheetName)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n]))
}

// SheetNames returns a sanitized sheet name per group. Excel compares
// names case-insensitively, so clashes get a numeric suffix.
func SheetNames(groups []model.Group) []string {
	return uniqueNames(groups)
}

func uniqueNames(groups []model.Group, reserved ...string) []string {
	used := make(map[string]bool, len(groups)+len(reserved))
	for _, r := range reserved {
		used[strings.ToLower(r)] = true
	}

	names := make([]string, len(groups))
	for i, g := range groups {
		base := SanitizeSheetName(g.Label)
		name := base
		for n := 2; used[strings.ToLower(name)]; n++ {
			suffix := " (" + strconv.Itoa(n) + ")"
			name = truncate(base, maxSheetName-len(suffix)) + suffix
		}
		used[strings.ToLower(name)] = true
		names[i] = name
	}
	return names
}
