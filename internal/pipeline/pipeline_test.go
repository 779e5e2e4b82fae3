package pipeline

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/bufilter/internal/model"
)

const inputCSV = `Full Name (as per NRIC/Passport),Work Email Address,Position / Job Title,Department / Business Unit,Notes
J Doe,A@X.com ,Rep,Sales,first
Jane Doe,a@x.com,Rep,Sales,second
Ann Poe,wrong@x.com,,Ops,
Nobody,nobody@z.com,,HR,
Nobody,nobody@z.com,,HR,
`

func fixture(t *testing.T) *model.Config {
	t.Helper()
	dir := t.TempDir()

	master := filepath.Join(dir, "master")
	require.NoError(t, os.Mkdir(master, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(master, "Sales.csv"),
		[]byte("First Name,Email,Position,Company\nJane Doe,a@x.com,Rep,Acme\nJohn Roe,b@x.com,Clerk,Acme\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(master, "Ops.csv"),
		[]byte("First Name,Email,Position,Company\nAnn Poe,c@x.com,Engineer,Acme Ops\n"), 0644))

	input := filepath.Join(dir, "people.csv")
	require.NoError(t, os.WriteFile(input, []byte(inputCSV), 0644))

	cfg := model.DefaultConfig()
	cfg.Input.Path = input
	cfg.Input.Extra = []string{"Notes"}
	cfg.Master.Dir = master
	cfg.Cache.Enabled = false
	cfg.Concurrency.Workers = 2
	return cfg
}

func run(t *testing.T, cfg *model.Config, logger zerolog.Logger) *model.Report {
	t.Helper()
	p := NewPipeline(cfg, logger)
	p.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	return report
}

func TestPipeline_Run(t *testing.T) {
	var logs bytes.Buffer
	logger := zerolog.New(&logs).Level(zerolog.DebugLevel)
	report := run(t, fixture(t), logger)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), report.GeneratedAt)

	require.Len(t, report.Groups, 3)
	sales, ops, invalid := report.Groups[0], report.Groups[1], report.Groups[2]

	assert.Equal(t, "Sales", sales.Label)
	require.Len(t, sales.Records, 1)
	assert.Equal(t, 1, sales.Removed)
	assert.Equal(t, 2, sales.Records[0].Row, "first occurrence kept")
	assert.Equal(t, model.Of("Jane Doe"), sales.Records[0].CorrectedName)
	assert.Equal(t, model.DuplicateConsolidated, sales.Records[0].Duplicate)
	assert.Equal(t, model.Of("first"), sales.Records[0].Extra["Notes"])

	assert.Equal(t, "Ops", ops.Label)
	require.Len(t, ops.Records, 1)
	assert.Equal(t, model.StatusMatchedByNameEmailCorrected, ops.Records[0].Status)
	assert.Equal(t, model.Of("c@x.com"), ops.Records[0].CorrectedEmail)

	assert.Equal(t, model.DefaultInvalidLabel, invalid.Label)
	assert.True(t, invalid.Invalid)
	assert.Len(t, invalid.Records, 2, "invalid group keeps repeats")

	s := report.Summary
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 4, s.Emitted)
	assert.Equal(t, 1, s.Removed)
	assert.Equal(t, 2, s.ByStatus[model.StatusMatchedByEmail])
	assert.Equal(t, 1, s.ByStatus[model.StatusMatchedByNameEmailCorrected])
	assert.Equal(t, 2, s.ByStatus[model.StatusInvalidUnmatched])
	assert.Equal(t, 4, s.ByDuplicate[model.DuplicateConsolidated])
	assert.Equal(t, 1, s.ByDuplicate[model.DuplicateUnique])
	assert.Equal(t, 3, s.MasterRecords)
	assert.Empty(t, report.MissingColumns)

	out := logs.String()
	assert.Contains(t, out, `"run_id":"`+report.RunID+`"`)
	assert.Contains(t, out, "name corrected")
	assert.Contains(t, out, `"deduplicated":1`)
	assert.Contains(t, out, `"resolved":5,"message":"records resolved"`)
	assert.Contains(t, out, `"message":"master table loaded"`, "loader logs through the run logger")
}

func TestPipeline_MissingMasterDir(t *testing.T) {
	cfg := fixture(t)
	cfg.Master.Dir = filepath.Join(t.TempDir(), "missing")

	_, err := NewPipeline(cfg, zerolog.Nop()).Run(context.Background())
	require.Error(t, err)
	assert.True(t, model.IsConfigurationError(err))
}

func TestPipeline_MissingInputColumns(t *testing.T) {
	cfg := fixture(t)
	cfg.Input.Columns.Position = "Job"

	report := run(t, cfg, zerolog.Nop())
	assert.Equal(t, []string{"Job"}, report.MissingColumns)
	assert.Equal(t, 5, report.Summary.Total)
}

func TestPipeline_WithCache(t *testing.T) {
	cfg := fixture(t)
	cfg.Cache.Enabled = true
	cfg.Cache.Dir = t.TempDir()

	first := run(t, cfg, zerolog.Nop())
	second := run(t, cfg, zerolog.Nop())
	assert.Equal(t, first.Summary, second.Summary)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestOutputPath(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Input.Path = filepath.Join("in", "people.xlsx")

	tests := map[string]string{
		model.FormatXLSX:   "filtered-people.xlsx",
		model.FormatCSV:    "filtered-people",
		model.FormatSQLite: "filtered-people.db",
		model.FormatJSON:   "filtered-people.json",
		model.FormatYAML:   "filtered-people.yaml",
	}
	for format, want := range tests {
		cfg.Output.Format = format
		assert.Equal(t, want, OutputPath(cfg), format)
	}

	cfg.Output.Path = "out.json"
	assert.Equal(t, "out.json", OutputPath(cfg))
}

func TestRenderXLSX(t *testing.T) {
	cfg := fixture(t)
	report := run(t, cfg, zerolog.Nop())
	path := filepath.Join(t.TempDir(), "out.xlsx")

	require.NoError(t, NewRenderer(cfg.Output, cfg.Input.Extra).Render(report, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{"Sales", "Ops", model.DefaultInvalidLabel}, f.GetSheetList())

	rows, err := f.GetRows("Sales")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Full Name", "Position", "Company", "Email", "Original Department/BU",
		"Assigned Business Unit", "Validation Status", "Duplicate Status", "Notes"}, rows[0])
	assert.Equal(t, []string{"Jane Doe", "Rep", "Acme", "a@x.com", "Sales",
		"Sales", "Matched by Email", "Consolidated Duplicate", "first"}, rows[1])

	rows, err = f.GetRows(model.DefaultInvalidLabel)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Original Input Name", "Original Input Email", "Original Input Position",
		"Original Department/BU", "Full Name", "Position", "Company", "Email",
		"Assigned Business Unit", "Validation Status", "Notes"}, rows[0])
	assert.Equal(t, "Nobody", rows[1][0])
	assert.Equal(t, "Invalid/Unmatched", rows[1][9])
}

func TestRenderXLSX_Empty(t *testing.T) {
	cfg := model.DefaultConfig()
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, NewRenderer(cfg.Output, nil).RenderXLSX(&model.Report{}, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.Equal(t, []string{model.DefaultInvalidLabel}, f.GetSheetList())
}

func TestRenderCSV(t *testing.T) {
	cfg := fixture(t)
	cfg.Output.Format = model.FormatCSV
	cfg.Output.Headers = map[string]string{"corrected_name": "Name"}
	report := run(t, cfg, zerolog.Nop())
	dir := filepath.Join(t.TempDir(), "out")

	require.NoError(t, NewRenderer(cfg.Output, nil).Render(report, dir))

	for _, name := range []string{"Sales.csv", "Ops.csv", model.DefaultInvalidLabel + ".csv"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	f, err := os.Open(filepath.Join(dir, "Ops.csv"))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Name", records[0][0], "header override from a lowercased config key")
	assert.Equal(t, "Matched by Name (Email Corrected)", records[1][6])
}

func TestRenderSQLite(t *testing.T) {
	cfg := fixture(t)
	cfg.Output.Format = model.FormatSQLite
	report := run(t, cfg, zerolog.Nop())
	path := filepath.Join(t.TempDir(), "out.db")

	require.NoError(t, NewRenderer(cfg.Output, cfg.Input.Extra).Render(report, path))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "Invalid_Uncategorized"`).Scan(&n))
	assert.Equal(t, 2, n)

	var flag string
	var company sql.NullString
	require.NoError(t, db.QueryRow(`SELECT "Duplicate_Flag", "Assigned_Company" FROM "Invalid_Uncategorized" LIMIT 1`).Scan(&flag, &company))
	assert.Equal(t, "Consolidated Duplicate", flag, "flag kept for the invalid group")
	assert.False(t, company.Valid, "absent stored as NULL")

	var notes string
	require.NoError(t, db.QueryRow(`SELECT "Notes" FROM "Sales" WHERE "row" = 2`).Scan(&notes))
	assert.Equal(t, "first", notes)

	require.NoError(t, db.QueryRow(`SELECT "count" FROM "summary" WHERE "kind" = 'total' AND "key" = 'removed'`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestRenderSQLite_ClashingExtraColumns(t *testing.T) {
	cfg := fixture(t)
	cfg.Output.Format = model.FormatSQLite
	report := run(t, cfg, zerolog.Nop())
	path := filepath.Join(t.TempDir(), "out.db")

	extra := []string{"Row", "corrected_name", "Notes"}
	for i := range report.Groups {
		for n := range report.Groups[i].Records {
			rec := &report.Groups[i].Records[n]
			rec.Extra["Row"] = model.Of("r")
			rec.Extra["corrected_name"] = model.Of("typed")
		}
	}

	require.NoError(t, NewRenderer(cfg.Output, extra).RenderSQLite(report, path))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var row int
	var extraRow, name, typed string
	require.NoError(t, db.QueryRow(`SELECT "row", "Row_2", "Corrected_Name", "corrected_name_2" FROM "Sales"`).
		Scan(&row, &extraRow, &name, &typed))
	assert.Equal(t, 2, row)
	assert.Equal(t, "r", extraRow)
	assert.Equal(t, "Jane Doe", name)
	assert.Equal(t, "typed", typed)
}

func TestColumnNames(t *testing.T) {
	cols := []column{{field: "A"}, {field: "a"}, {field: "ROW"}, {field: "a_2"}, {field: "B"}}
	assert.Equal(t, []string{"A", "a_2", "ROW_2", "a_2_2", "B"}, columnNames(cols))
}

func TestRenderJSON(t *testing.T) {
	report := run(t, fixture(t), zerolog.Nop())

	var buf bytes.Buffer
	require.NoError(t, NewRenderer(model.DefaultConfig().Output, nil).RenderJSON(&buf, report))

	var decoded model.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, report.RunID, decoded.RunID)
	require.Len(t, decoded.Groups, 3)
	assert.True(t, decoded.Groups[2].Records[0].AssignedGroup.IsAbsent())
	assert.Contains(t, buf.String(), `"assigned_group": null`)
}

func TestRenderYAML(t *testing.T) {
	report := run(t, fixture(t), zerolog.Nop())

	var buf bytes.Buffer
	require.NoError(t, NewRenderer(model.DefaultConfig().Output, nil).RenderYAML(&buf, report))

	var decoded model.Report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, report.Summary.Total, decoded.Summary.Total)
	require.Len(t, decoded.Groups, 3)
	assert.Equal(t, model.Of("Jane Doe"), decoded.Groups[0].Records[0].CorrectedName)
}

func TestRender_UnsupportedFormat(t *testing.T) {
	out := model.DefaultConfig().Output
	out.Format = "pdf"
	err := NewRenderer(out, nil).Render(&model.Report{}, "x.pdf")
	assert.ErrorIs(t, err, model.ErrUnsupportedFormat)
}

func TestRenderSummary(t *testing.T) {
	report := run(t, fixture(t), zerolog.Nop())

	var buf bytes.Buffer
	NewRenderer(model.DefaultConfig().Output, nil).RenderSummary(&buf, report)
	out := buf.String()

	assert.Contains(t, out, "Matched by Email")
	assert.Contains(t, out, "(deduplicated 1)")
	assert.Contains(t, out, "Emitted 4 of 5 records, 1 removed as duplicates")
	assert.True(t, strings.Index(out, "Sales") < strings.Index(out, "Ops"))
}

func TestSanitizeSheetName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Sales", "Sales"},
		{"R&D / Ops", "R&D - Ops"},
		{`A\B`, "A-B"},
		{"What? [Really]: *", "What Really"},
		{"", "Sheet"},
		{"???", "Sheet"},
		{"'quoted'", "quoted"},
		{strings.Repeat("x", 40), strings.Repeat("x", 31)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeSheetName(tt.in), tt.in)
	}
}

func TestSheetNames_Unique(t *testing.T) {
	long := strings.Repeat("y", 35)
	groups := []model.Group{
		{Label: "Sales/EU"},
		{Label: "Sales\\EU"},
		{Label: "sales-eu"},
		{Label: long},
		{Label: long + "z"},
	}

	names := SheetNames(groups)
	assert.Equal(t, "Sales-EU", names[0])
	assert.Equal(t, "Sales-EU (2)", names[1])
	assert.Equal(t, "sales-eu (3)", names[2])
	assert.Equal(t, strings.Repeat("y", 31), names[3])
	assert.Equal(t, strings.Repeat("y", 27)+" (2)", names[4])
	for _, n := range names {
		assert.LessOrEqual(t, len([]rune(n)), 31)
	}
}

func TestUniqueNames_Reserved(t *testing.T) {
	names := uniqueNames([]model.Group{{Label: "Summary"}}, "summary")
	assert.Equal(t, []string{"Summary (2)"}, names)
}
