package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig indicates a missing or malformed configuration value
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNoMasterData indicates that no master table could be loaded
	ErrNoMasterData = errors.New("no master data loaded")

	// ErrUnsupportedFormat indicates an unknown table or report format
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// ConfigurationError is raised at the I/O boundary when a required
// column mapping or path is missing. The matching engine never returns it.
type ConfigurationError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ConfigurationError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", msg, e.Err)
	}
	return "configuration error: " + msg
}

// Unwrap implements errors.Unwrap
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// NewConfigurationError creates a new ConfigurationError
func NewConfigurationError(field, message string, err error) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: message, Err: err}
}

// IsConfigurationError reports whether err is or wraps a configuration error
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}
