package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/featureprep/internal/config"
	"github.com/JonMunkholm/featureprep/internal/core"
	"github.com/JonMunkholm/featureprep/internal/ingest"
)

// NewValidateCmd creates the validate command. It writes the report and
// touches no database.
func NewValidateCmd(load configLoader) *cobra.Command {
	var flags pipelineFlags

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate an input file and write its report without loading it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if err := flags.apply(cfg); err != nil {
				return err
			}
			_, err = validateFile(cmd.Context(), cfg)
			return err
		},
	}

	cmd.Flags().StringVarP(&flags.input, "input", "i", "", "CSV file to validate")
	cmd.Flags().StringVar(&flags.dataset, "dataset", "", "registered dataset key")
	cmd.Flags().StringVar(&flags.rules, "rules", "", "rule set YAML file")
	return cmd
}

// validateFile runs both validation phases over the configured input. Any
// failed check is returned as a validation error after the report is
// written.
func validateFile(ctx context.Context, cfg *config.Config) (core.ValidationReport, error) {
	def, rules, err := datasetRules(cfg)
	if err != nil {
		return core.ValidationReport{}, err
	}
	validator, err := core.NewValidator(rules, def.Fields)
	if err != nil {
		return core.ValidationReport{}, err
	}

	input, err := ingest.ReadFile(cfg.Pipeline.InputPath, ingest.Options{
		MaxFileSize: cfg.Pipeline.MaxFileSize,
		InferTypes:  true,
	})
	if err != nil {
		return core.ValidationReport{}, err
	}

	runID, err := core.NewRunID()
	if err != nil {
		return core.ValidationReport{}, err
	}
	report := validator.Validate(ctx, runID, input.Batch)

	reports := core.NewFileReportStore(cfg.Artifacts.ReportsDir)
	if err := reports.WriteReport(ctx, report); err != nil {
		return report, err
	}
	path, _ := reports.Path(runID)
	printReport(report, path)

	switch {
	case report.Structural():
		return report, &core.StructuralValidationError{RunID: runID, Missing: report.Missing}
	case !report.Passed:
		return report, &core.ContentValidationError{Report: report}
	}
	return report, nil
}
