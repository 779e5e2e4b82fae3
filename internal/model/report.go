package model

import "time"

// Report represents the complete partitioned reconciliation output
type Report struct {
	RunID       string    `json:"run_id" yaml:"run_id"`
	InputPath   string    `json:"input_path" yaml:"input_path"`
	MasterDir   string    `json:"master_dir" yaml:"master_dir"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`

	Groups  []Group `json:"groups" yaml:"groups"`
	Summary Summary `json:"summary" yaml:"summary"`

	MissingColumns []string `json:"missing_columns,omitempty" yaml:"missing_columns,omitempty"` // Configured input columns absent from the sheet
}

// Group is the final record set for one business unit, or for the
// reserved invalid label
type Group struct {
	Label   string           `json:"label" yaml:"label"`
	Invalid bool             `json:"invalid" yaml:"invalid"`
	Records []ResolvedRecord `json:"records" yaml:"records"`
	Removed int              `json:"removed" yaml:"removed"` // Rows dropped by per-group deduplication
}

// Summary aggregates the resolved set before partitioning
type Summary struct {
	Total       int                      `json:"total" yaml:"total"`
	ByStatus    map[ValidationStatus]int `json:"by_status" yaml:"by_status"`
	ByDuplicate map[DuplicateFlag]int    `json:"by_duplicate" yaml:"by_duplicate"`
	Removed     int                      `json:"removed" yaml:"removed"`
	Emitted     int                      `json:"emitted" yaml:"emitted"`

	MasterRecords    int `json:"master_records" yaml:"master_records"`
	MasterCollisions int `json:"master_collisions" yaml:"master_collisions"`
}

// Summarize counts statuses and flags over the resolved set and removal over the groups
func Summarize(records []ResolvedRecord, groups []Group) Summary {
	s := Summary{
		Total:       len(records),
		ByStatus:    make(map[ValidationStatus]int),
		ByDuplicate: make(map[DuplicateFlag]int),
	}
	for _, r := range records {
		s.ByStatus[r.Status]++
		s.ByDuplicate[r.Duplicate]++
	}
	for _, g := range groups {
		s.Removed += g.Removed
		s.Emitted += len(g.Records)
	}
	return s
}
