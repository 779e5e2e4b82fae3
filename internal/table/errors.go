package table

import "errors"

var (
	// ErrNoHeader indicates an empty file or sheet
	ErrNoHeader = errors.New("no header row")

	// ErrSheetNotFound indicates a missing worksheet
	ErrSheetNotFound = errors.New("sheet not found")
)
