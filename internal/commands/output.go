package commands

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fatih/color"

	"github.com/JonMunkholm/featureprep/internal/core"
)

const maxPrintedViolations = 20

func printReport(report core.ValidationReport, path string) {
	if report.Passed {
		color.Green("Validation passed (run %s)", report.RunID)
	} else {
		color.Red("Validation failed (run %s): %d violation(s)", report.RunID, len(report.Errors))
		for i, e := range report.Errors {
			if i == maxPrintedViolations {
				fmt.Printf("  ... and %d more\n", len(report.Errors)-maxPrintedViolations)
				break
			}
			fmt.Printf("  - %s\n", e)
		}
	}
	if path != "" {
		fmt.Printf("  Report: %s\n", path)
	}
}

func printRunResult(r *core.RunResult, reportsDir string) {
	bold := color.New(color.Bold)
	_, _ = bold.Printf("Run %s\n", r.RunID)
	fmt.Printf("  Feature version: %s\n", r.FeatureVersion)
	fmt.Printf("  Raw events:      %d\n", r.RawEvents)

	if r.Report.RunID != "" {
		printReport(r.Report, filepath.Join(reportsDir, r.RunID+".json"))
	}
	if r.Staging.Input > 0 {
		fmt.Printf("  Staged:          %d (changed %d, missing key %d, negative %d, duplicate %d)\n",
			r.Staging.Staged, r.Staging.Changed, r.Staging.MissingKey, r.Staging.Negative, r.Staging.Duplicate)
	}
	if r.FeatureRows > 0 {
		fmt.Printf("  Feature rows:    %d\n", r.FeatureRows)
		lineage := color.GreenString("registered")
		if !r.LineageCreated {
			lineage = color.YellowString("already registered")
		}
		fmt.Printf("  Lineage:         %s\n", lineage)
		fmt.Printf("  Splits:          train=%d val=%d test=%d\n", r.Splits.Train, r.Splits.Val, r.Splits.Test)
	}
	fmt.Printf("  Duration:        %s\n", r.Duration.Round(time.Millisecond))
}
