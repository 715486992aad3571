package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
)

// ReportStore persists validation reports keyed by run id. A report is
// written once and never replaced.
type ReportStore interface {
	WriteReport(ctx context.Context, report ValidationReport) error
	ReadReport(ctx context.Context, runID string) (ValidationReport, error)
}

var runIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// FileReportStore writes each report as <Dir>/<run_id>.json.
type FileReportStore struct {
	Dir string
}

// NewFileReportStore creates a report store rooted at dir.
func NewFileReportStore(dir string) *FileReportStore {
	return &FileReportStore{Dir: dir}
}

// Path returns the file path of the report for runID.
func (s *FileReportStore) Path(runID string) (string, error) {
	if !runIDPattern.MatchString(runID) {
		return "", fmt.Errorf("invalid run id %q", runID)
	}
	return filepath.Join(s.Dir, runID+".json"), nil
}

// WriteReport creates the report file. Returns ErrReportExists if a report
// for the run id is already present.
func (s *FileReportStore) WriteReport(_ context.Context, report ValidationReport) error {
	path, err := s.Path(report.RunID)
	if err != nil {
		return err
	}
	if report.Errors == nil {
		report.Errors = []string{}
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return storageErr("create report dir", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("write report %s: %w", report.RunID, ErrReportExists)
		}
		return storageErr("write report", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return storageErr("write report", err)
	}
	if err := f.Close(); err != nil {
		return storageErr("write report", err)
	}
	return nil
}

// ReadReport loads the report for runID. Returns ErrNotFound if none exists.
func (s *FileReportStore) ReadReport(_ context.Context, runID string) (ValidationReport, error) {
	path, err := s.Path(runID)
	if err != nil {
		return ValidationReport{}, fmt.Errorf("report %s: %w", runID, ErrNotFound)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ValidationReport{}, fmt.Errorf("report %s: %w", runID, ErrNotFound)
		}
		return ValidationReport{}, storageErr("read report", err)
	}

	var report ValidationReport
	if err := json.Unmarshal(data, &report); err != nil {
		return ValidationReport{}, fmt.Errorf("decode report %s: %w", runID, err)
	}
	return report, nil
}
