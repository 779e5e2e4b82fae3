package model

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Config holds all bufilter settings
type Config struct {
	Input       InputConfig       `yaml:"input" mapstructure:"input"`
	Master      MasterConfig      `yaml:"master" mapstructure:"master"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// InputConfig describes the user-submitted sheet
type InputConfig struct {
	Path    string       `yaml:"path" mapstructure:"path" validate:"required"`
	Sheet   string       `yaml:"sheet" mapstructure:"sheet"` // XLSX only
	Columns InputColumns `yaml:"columns" mapstructure:"columns"`
	Extra   []string     `yaml:"extra_columns,omitempty" mapstructure:"extra_columns" validate:"dive,required"`
}

// InputColumns maps input fields to sheet headers
type InputColumns struct {
	Name         string `yaml:"name" mapstructure:"name" validate:"required"`
	Email        string `yaml:"email" mapstructure:"email" validate:"required"`
	Position     string `yaml:"position" mapstructure:"position" validate:"required"`
	BusinessUnit string `yaml:"business_unit" mapstructure:"business_unit" validate:"required"`
}

// Headers returns the configured headers in reading order
func (c InputColumns) Headers() []string {
	return []string{c.Name, c.Email, c.Position, c.BusinessUnit}
}

// MasterConfig describes the master data directory
type MasterConfig struct {
	Dir     string        `yaml:"dir" mapstructure:"dir" validate:"required"`
	Columns MasterColumns `yaml:"columns" mapstructure:"columns"`
}

// MasterColumns maps master fields to CSV headers
type MasterColumns struct {
	Name     string `yaml:"name" mapstructure:"name" validate:"required"`
	Email    string `yaml:"email" mapstructure:"email" validate:"required"`
	Position string `yaml:"position" mapstructure:"position" validate:"required"`
	Company  string `yaml:"company" mapstructure:"company" validate:"required"`
}

// Headers returns the required master headers
func (c MasterColumns) Headers() []string {
	return []string{c.Name, c.Email, c.Position, c.Company}
}

// Output formats
const (
	FormatXLSX   = "xlsx"
	FormatCSV    = "csv"
	FormatSQLite = "sqlite"
	FormatJSON   = "json"
	FormatYAML   = "yaml"
)

// OutputConfig controls report rendering
type OutputConfig struct {
	Path         string            `yaml:"path,omitempty" mapstructure:"path"` // Empty: filtered-<input stem>.<ext>
	Format       string            `yaml:"format" mapstructure:"format" validate:"oneof=xlsx csv sqlite json yaml"`
	InvalidLabel string            `yaml:"invalid_label" mapstructure:"invalid_label" validate:"required,max=31"`
	Headers      map[string]string `yaml:"headers" mapstructure:"headers"`
	Summary      bool              `yaml:"summary" mapstructure:"summary"`
}

// ConcurrencyConfig controls record resolution parallelism
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers" validate:"gte=0"`
}

// CacheConfig controls the master table cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// LogConfig controls structured logging
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=auto console json"`
}

// Internal field names used as keys of OutputConfig.Headers
const (
	FieldCorrectedName     = "Corrected_Name"
	FieldCorrectedPosition = "Corrected_Position"
	FieldAssignedCompany   = "Assigned_Company"
	FieldCorrectedEmail    = "Corrected_Email"
	FieldInputName         = "Input_Name"
	FieldInputEmail        = "Input_Email"
	FieldInputPosition     = "Input_Position"
	FieldInputBusinessUnit = "Input_Business_Unit"
	FieldAssignedGroup     = "Assigned_Business_Unit"
	FieldValidationStatus  = "Validation_Status"
	FieldDuplicateFlag     = "Duplicate_Flag"
)

// DefaultInvalidLabel is the reserved group label for unmatched records
const DefaultInvalidLabel = "Invalid_Uncategorized"

// DefaultHeaders returns the default output header relabeling
func DefaultHeaders() map[string]string {
	return map[string]string{
		FieldCorrectedName:     "Full Name",
		FieldCorrectedPosition: "Position",
		FieldAssignedCompany:   "Company",
		FieldCorrectedEmail:    "Email",
		FieldInputName:         "Original Input Name",
		FieldInputEmail:        "Original Input Email",
		FieldInputPosition:     "Original Input Position",
		FieldInputBusinessUnit: "Original Department/BU",
		FieldAssignedGroup:     "Assigned Business Unit",
		FieldValidationStatus:  "Validation Status",
		FieldDuplicateFlag:     "Duplicate Status",
	}
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	cacheDir := filepath.Join(os.TempDir(), "bufilter-cache")
	if home, err := os.UserHomeDir(); err == nil {
		cacheDir = filepath.Join(home, ".bufilter", "cache")
	}

	return &Config{
		Input: InputConfig{
			Path:  "excel_file_to_be_filtered.xlsx",
			Sheet: "Sheet1",
			Columns: InputColumns{
				Name:         "Full Name (as per NRIC/Passport)",
				Email:        "Work Email Address",
				Position:     "Position / Job Title",
				BusinessUnit: "Department / Business Unit",
			},
		},
		Master: MasterConfig{
			Dir: "master_data",
			Columns: MasterColumns{
				Name:     "First Name",
				Email:    "Email",
				Position: "Position",
				Company:  "Company",
			},
		},
		Output: OutputConfig{
			Format:       FormatXLSX,
			InvalidLabel: DefaultInvalidLabel,
			Headers:      DefaultHeaders(),
			Summary:      true,
		},
		Concurrency: ConcurrencyConfig{
			Workers: runtime.NumCPU(),
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       cacheDir,
			MemoryTTL: 10 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Header returns the external header for an internal field name
func (c OutputConfig) Header(field string) string {
	if h, ok := c.Headers[field]; ok && h != "" {
		return h
	}
	// viper lowercases map keys read from files and env
	for k, h := range c.Headers {
		if h != "" && strings.EqualFold(k, field) {
			return h
		}
	}
	if h, ok := DefaultHeaders()[field]; ok {
		return h
	}
	return field
}
