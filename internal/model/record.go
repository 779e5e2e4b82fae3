package model

// MasterRecord is one row of the trusted master dataset.
// Raw values are copied into corrected output; matching only uses the
// normalized email and name.
type MasterRecord struct {
	Email    Value `json:"email" yaml:"email"`
	Name     Value `json:"name" yaml:"name"`
	Position Value `json:"position" yaml:"position"`
	Company  Value `json:"company" yaml:"company"`

	NormalizedEmail Value `json:"normalized_email" yaml:"normalized_email"`
	NormalizedName  Value `json:"normalized_name" yaml:"normalized_name"`

	Group  string `json:"group" yaml:"group"`   // Business unit, from the source file stem
	Source string `json:"source" yaml:"source"` // Source file name
}

// InputRecord is one user-submitted row
type InputRecord struct {
	Row          int              `json:"row" yaml:"row"` // 1-based data row in the source sheet
	Name         Value            `json:"name" yaml:"name"`
	Email        Value            `json:"email" yaml:"email"`
	Position     Value            `json:"position" yaml:"position"`
	BusinessUnit Value            `json:"business_unit" yaml:"business_unit"`
	Extra        map[string]Value `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// ValidationStatus is the terminal classification of a resolved record
type ValidationStatus string

const (
	StatusMatchedByEmail              ValidationStatus = "Matched by Email"
	StatusMatchedByNameEmailCorrected ValidationStatus = "Matched by Name (Email Corrected)"
	StatusMatchedByName               ValidationStatus = "Matched by Name"
	StatusInvalidUnmatched            ValidationStatus = "Invalid/Unmatched"
)

// Statuses lists every status in display order
var Statuses = []ValidationStatus{
	StatusMatchedByEmail,
	StatusMatchedByNameEmailCorrected,
	StatusMatchedByName,
	StatusInvalidUnmatched,
}

// Matched reports whether the status is one of the matched outcomes
func (s ValidationStatus) Matched() bool {
	return s == StatusMatchedByEmail || s == StatusMatchedByNameEmailCorrected || s == StatusMatchedByName
}

// DuplicateFlag marks whether a record's composite key occurs more than once
type DuplicateFlag string

const (
	DuplicateUnset        DuplicateFlag = ""
	DuplicateConsolidated DuplicateFlag = "Consolidated Duplicate"
	DuplicateUnique       DuplicateFlag = "Unique"
)

// ResolvedRecord is an InputRecord after matching against the master index.
// Only Duplicate changes after creation, and only once.
type ResolvedRecord struct {
	InputRecord `yaml:",inline"`

	CorrectedName     Value `json:"corrected_name" yaml:"corrected_name"`
	CorrectedEmail    Value `json:"corrected_email" yaml:"corrected_email"`
	CorrectedPosition Value `json:"corrected_position" yaml:"corrected_position"`
	AssignedCompany   Value `json:"assigned_company" yaml:"assigned_company"`
	AssignedGroup     Value `json:"assigned_group" yaml:"assigned_group"`

	Status    ValidationStatus `json:"validation_status" yaml:"validation_status"`
	Duplicate DuplicateFlag    `json:"duplicate_flag" yaml:"duplicate_flag"`
}

// CompositeKey identifies a person within a business unit for duplicate detection
type CompositeKey struct {
	Group    Value
	Email    Value
	Name     Value
	Position Value
}

// MasterRow is one raw row of a master source table
type MasterRow struct {
	Email    Value `json:"email"`
	Name     Value `json:"name"`
	Position Value `json:"position"`
	Company  Value `json:"company"`
}

// MasterTable is one master source with its derived group label
type MasterTable struct {
	Group  string      `json:"group"`  // File stem, e.g. "Sales" for Sales.csv
	Source string      `json:"source"` // File name
	Rows   []MasterRow `json:"rows"`
}
