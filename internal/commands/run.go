package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/featureprep/internal/config"
	"github.com/JonMunkholm/featureprep/internal/core"
	"github.com/JonMunkholm/featureprep/internal/ingest"
	"github.com/JonMunkholm/featureprep/internal/metrics"
	"github.com/JonMunkholm/featureprep/internal/provenance"
	"github.com/JonMunkholm/featureprep/internal/telemetry"
)

// NewRunCmd creates the run command.
func NewRunCmd(load configLoader, version string) *cobra.Command {
	var flags pipelineFlags
	var continueOnError bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Ingest, validate, stage, version and split one input file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if err := flags.apply(cfg); err != nil {
				return err
			}
			if continueOnError {
				cfg.Pipeline.FailOnError = false
			}
			return runPipeline(cmd.Context(), cfg, version)
		},
	}

	cmd.Flags().StringVarP(&flags.input, "input", "i", "", "CSV file to ingest")
	cmd.Flags().StringVar(&flags.source, "source", "", "source label stored with raw events")
	cmd.Flags().StringVar(&flags.dataset, "dataset", "", "registered dataset key")
	cmd.Flags().StringVar(&flags.rules, "rules", "", "rule set YAML file")
	cmd.Flags().StringVar(&flags.version, "feature-version", "", "reuse an existing feature version")
	cmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "keep going when content validation fails")
	return cmd
}

func runPipeline(ctx context.Context, cfg *config.Config, version string) error {
	def, rules, err := datasetRules(cfg)
	if err != nil {
		return err
	}
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Options{
		Enabled:     cfg.Telemetry.TraceStdout,
		Writer:      os.Stderr,
		ServiceName: "featureprep",
		Version:     version,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}()

	input, err := ingest.ReadFile(cfg.Pipeline.InputPath, ingest.Options{
		MaxFileSize: cfg.Pipeline.MaxFileSize,
		InferTypes:  true,
	})
	if err != nil {
		return err
	}
	if input.Replaced > 0 {
		slog.Warn("replaced invalid UTF-8 bytes", "count", input.Replaced, "file", cfg.Pipeline.InputPath)
	}

	pool, err := openPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	features, err := core.LoadSQLFeatureSource(pool, cfg.Pipeline.FeatureQueryPath,
		cfg.Pipeline.EntityColumn, cfg.Pipeline.TimeColumn)
	if err != nil {
		return err
	}

	svc, err := core.NewService(
		core.NewPostgresStore(pool),
		core.NewFileReportStore(cfg.Artifacts.ReportsDir),
		features,
		core.ServiceConfig{
			Fields:      def.Fields,
			Rules:       rules,
			FailOnError: cfg.Pipeline.FailOnError,
			Splits: core.SplitConfig{
				TrainRatio: cfg.Splits.TrainRatio,
				ValRatio:   cfg.Splits.ValRatio,
			},
		},
	)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(ctx, cfg.Pipeline.Timeout)
	defer cancel()

	result, runErr := svc.Run(runCtx, core.RunInput{
		Source:         cfg.Pipeline.Source,
		Batch:          input.Batch,
		SourceHash:     input.Hash,
		CodeSHA:        provenance.CodeRevision(ctx, cfg.Pipeline.CodeSHA),
		FeatureVersion: cfg.Pipeline.FeatureVersion,
	})

	if err := metrics.Push(context.WithoutCancel(ctx), cfg.Telemetry.PushgatewayURL, cfg.Telemetry.JobName); err != nil {
		slog.Warn("metrics push failed", "error", err)
	}

	if result != nil {
		printRunResult(result, cfg.Artifacts.ReportsDir)
	}
	if runErr != nil {
		return fmt.Errorf("run failed: %w", runErr)
	}
	return nil
}
