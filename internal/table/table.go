// Package table reads CSV and XLSX sheets into header-addressed rows and
// turns them into master tables and input records.
package table

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ppiankov/bufilter/internal/model"
)

// Table is a parsed sheet. Every row has len(Headers) cells; empty or
// missing cells are absent. Blank rows are dropped.
type Table struct {
	Headers []string
	Rows    [][]model.Value
	Lines   []int // Sheet row number of each row; the header is row 1
}

// Column returns the index of header, or -1
func (t *Table) Column(header string) int {
	for i, h := range t.Headers {
		if h == header {
			return i
		}
	}
	return -1
}

// Missing returns the headers from want that the table does not have
func (t *Table) Missing(want []string) []string {
	var missing []string
	for _, h := range want {
		if t.Column(h) < 0 {
			missing = append(missing, h)
		}
	}
	return missing
}

// Cell returns the value at row r, column c; absent when c < 0
func (t *Table) Cell(r, c int) model.Value {
	if c < 0 || c >= len(t.Rows[r]) {
		return model.Absent()
	}
	return t.Rows[r][c]
}

// Supported reports whether path has a readable table extension
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".xlsx":
		return true
	}
	return false
}

// ReadFile reads a CSV or XLSX file; sheet is ignored for CSV and
// defaults to the first sheet for XLSX
func ReadFile(path, sheet string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(path)
	case ".xlsx":
		return ReadXLSX(path, sheet)
	default:
		return nil, fmt.Errorf("%w: %s", model.ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// build turns raw string rows into a Table, padding ragged rows. lines
// gives the sheet row of each raw row; nil means raw rows are contiguous
// from row 2.
func build(headers []string, raw [][]string, lines []int) *Table {
	t := &Table{Headers: make([]string, len(headers))}
	for i, h := range headers {
		t.Headers[i] = strings.TrimSpace(h)
	}

	for n, rec := range raw {
		if isEmptyRow(rec) {
			continue
		}
		row := make([]model.Value, len(headers))
		for i := range headers {
			if i < len(rec) && rec[i] != "" {
				row[i] = model.Of(rec[i])
			}
		}
		t.Rows = append(t.Rows, row)
		if lines != nil {
			t.Lines = append(t.Lines, lines[n])
		} else {
			t.Lines = append(t.Lines, n+2)
		}
	}
	return t
}

func isEmptyRow(rec []string) bool {
	for _, c := range rec {
		if c != "" {
			return false
		}
	}
	return true
}
