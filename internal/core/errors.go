package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSerialization is returned when a record value has no canonical form.
	ErrSerialization = errors.New("serialization error")

	// ErrReportExists is returned when a report for the run id was already written.
	ErrReportExists = errors.New("report already exists")

	// ErrNotFound is returned by lookups for unknown keys.
	ErrNotFound = errors.New("not found")
)

// ConfigurationError reports a missing or malformed rule set or option.
// It is raised before any processing begins.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	if len(e.Problems) == 1 {
		return "configuration error: " + e.Problems[0]
	}
	return "configuration error:\n  - " + strings.Join(e.Problems, "\n  - ")
}

func newConfigError(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Problems: []string{fmt.Sprintf(format, args...)}}
}

// StructuralValidationError reports required columns absent from the batch.
type StructuralValidationError struct {
	RunID   string
	Missing []string
}

func (e *StructuralValidationError) Error() string {
	return fmt.Sprintf("structural validation failed: missing required column(s): %s",
		strings.Join(e.Missing, ", "))
}

// ContentValidationError is returned only when validation is configured as
// blocking and the report carries content violations.
type ContentValidationError struct {
	Report ValidationReport
}

func (e *ContentValidationError) Error() string {
	return fmt.Sprintf("content validation failed for run %s: %d violation(s)",
		e.Report.RunID, len(e.Report.Errors))
}

// StorageError wraps any failure writing or reading persistent state.
// It is always fatal to the run.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// storageErr wraps err as a StorageError, passing nil and existing
// StorageErrors through unchanged.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// IsValidationFailure reports whether err aborted a run because of the
// validation verdict.
func IsValidationFailure(err error) bool {
	var se *StructuralValidationError
	var ce *ContentValidationError
	return errors.As(err, &se) || errors.As(err, &ce)
}
