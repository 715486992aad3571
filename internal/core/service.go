package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/JonMunkholm/featureprep/internal/logging"
	"github.com/JonMunkholm/featureprep/internal/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxMintAttempts = 5

var tracer = otel.Tracer("github.com/JonMunkholm/featureprep/internal/core")

// ServiceConfig is passed explicitly into every run.
type ServiceConfig struct {
	Fields      FieldMap
	Rules       RuleSet
	FailOnError bool // Content violations abort the run
	Splits      SplitConfig
}

// Service runs the pipeline: raw capture, validation, staging, feature
// versioning, lineage and splits.
type Service struct {
	store    Store
	reports  ReportStore
	features FeatureSource
	cfg      ServiceConfig

	validator *Validator
	rawLog    *RawLog
	merger    *Merger
	registry  *Registry
	splitter  *Splitter
	minter    *VersionMinter
	now       func() time.Time
}

// NewService validates cfg and wires the pipeline components.
func NewService(store Store, reports ReportStore, features FeatureSource, cfg ServiceConfig) (*Service, error) {
	var problems []string
	if store == nil {
		problems = append(problems, "store is required")
	}
	if reports == nil {
		problems = append(problems, "report store is required")
	}
	if features == nil {
		problems = append(problems, "feature source is required")
	}
	f := cfg.Fields
	if f.ID == "" || f.Owner == "" || f.Timestamp == "" || f.Amount == "" {
		problems = append(problems, "field map needs id, owner, timestamp and amount columns")
	}
	if len(problems) > 0 {
		return nil, &ConfigurationError{Problems: problems}
	}

	validator, err := NewValidator(cfg.Rules, cfg.Fields)
	if err != nil {
		return nil, err
	}
	splitter, err := NewSplitter(store, cfg.Splits)
	if err != nil {
		return nil, err
	}

	return &Service{
		store:     store,
		reports:   reports,
		features:  features,
		cfg:       cfg,
		validator: validator,
		rawLog:    NewRawLog(store),
		merger:    NewMerger(store, cfg.Fields),
		registry:  NewRegistry(store),
		splitter:  splitter,
		minter:    NewVersionMinter(),
		now:       time.Now,
	}, nil
}

// RunInput is one batch plus its provenance.
type RunInput struct {
	Source     string
	Batch      Batch
	SourceHash string // Content hash of the original input
	CodeSHA    string // Code revision

	// FeatureVersion reuses an existing version instead of minting one.
	// The lineage entry of a reused version is never rewritten.
	FeatureVersion string
}

// RunResult summarizes a completed or aborted run.
type RunResult struct {
	RunID          string           `json:"runId"`
	FeatureVersion string           `json:"featureVersion"`
	Report         ValidationReport `json:"report"`
	RawEvents      int              `json:"rawEvents"`
	Staging        StagingStats     `json:"staging"`
	FeatureRows    int              `json:"featureRows"`
	LineageCreated bool             `json:"lineageCreated"`
	Splits         SplitCounts      `json:"splits"`
	Duration       time.Duration    `json:"duration"`
}

// Run processes one batch end to end. Each stage commits on its own; a
// failed run is recovered by rerunning the same input.
//
// The validation report is written before any validation-driven abort.
// Structural failures always abort. Content failures abort only when
// FailOnError is set.
func (s *Service) Run(ctx context.Context, in RunInput) (*RunResult, error) {
	if strings.TrimSpace(in.Source) == "" {
		return nil, newConfigError("run needs a source label")
	}

	start := s.now()
	runID, err := NewRunID()
	if err != nil {
		return nil, err
	}
	version, err := s.resolveVersion(ctx, in.FeatureVersion)
	if err != nil {
		return nil, err
	}

	ctx, log := logging.WithRun(ctx, runID, version)
	ctx, span := tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.String("feature_version", version),
		attribute.String("source", in.Source),
		attribute.Int("records", in.Batch.Len()),
	))
	defer span.End()

	result := &RunResult{RunID: runID, FeatureVersion: version}
	run := RunRecord{
		RunID:          runID,
		FeatureVersion: version,
		Source:         in.Source,
		Status:         RunRunning,
		StartedAt:      start.UTC(),
	}
	if err := s.store.RecordRun(ctx, run); err != nil {
		return nil, storageErr("record run", err)
	}
	log.Info("run started", "source", in.Source, "records", in.Batch.Len())

	err = s.execute(ctx, log, in, result)

	result.Duration = s.now().Sub(start)
	s.finishRun(ctx, log, run, result, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}
	return result, nil
}

func (s *Service) execute(ctx context.Context, log *slog.Logger, in RunInput, result *RunResult) error {
	err := s.stage(ctx, log, "raw_capture", func(ctx context.Context) error {
		n, err := s.rawLog.Append(ctx, result.RunID, in.Source, in.Batch)
		result.RawEvents = n
		metrics.RecordsTotal.WithLabelValues("raw_capture", "captured").Add(float64(n))
		return err
	})
	if err != nil {
		return err
	}

	err = s.stage(ctx, log, "validate", func(ctx context.Context) error {
		result.Report = s.validator.Validate(ctx, result.RunID, in.Batch)
		metrics.ValidationViolations.Add(float64(len(result.Report.Errors)))
		return s.reports.WriteReport(ctx, result.Report)
	})
	if err != nil {
		return err
	}

	report := result.Report
	if report.Structural() {
		log.Warn("structural validation failed", "missing", report.Missing)
		return &StructuralValidationError{RunID: result.RunID, Missing: report.Missing}
	}
	if !report.Passed {
		if s.cfg.FailOnError {
			log.Warn("content validation failed", "violations", len(report.Errors))
			return &ContentValidationError{Report: report}
		}
		log.Warn("content validation failed, continuing", "violations", len(report.Errors), "errors", report.Errors)
	}

	err = s.stage(ctx, log, "staging", func(ctx context.Context) error {
		stats, err := s.merger.Stage(ctx, in.Batch)
		result.Staging = stats
		metrics.RecordsTotal.WithLabelValues("staging", "staged").Add(float64(stats.Staged))
		metrics.RecordsTotal.WithLabelValues("staging", "missing_key").Add(float64(stats.MissingKey))
		metrics.RecordsTotal.WithLabelValues("staging", "negative").Add(float64(stats.Negative))
		metrics.RecordsTotal.WithLabelValues("staging", "duplicate").Add(float64(stats.Duplicate))
		return err
	})
	if err != nil {
		return err
	}

	var rows []FeatureRow
	err = s.stage(ctx, log, "features", func(ctx context.Context) error {
		computed, err := s.features.Compute(ctx)
		if err != nil {
			return storageErr("compute features", err)
		}
		rows = make([]FeatureRow, len(computed))
		for i, r := range computed {
			r.Version = result.FeatureVersion
			rows[i] = r
		}
		result.FeatureRows = len(rows)
		inserted, err := s.store.InsertFeatureRows(ctx, rows)
		metrics.RecordsTotal.WithLabelValues("features", "inserted").Add(float64(inserted))
		return storageErr("insert feature rows", err)
	})
	if err != nil {
		return err
	}

	err = s.stage(ctx, log, "lineage", func(ctx context.Context) error {
		created, err := s.registry.Register(ctx, LineageEntry{
			FeatureVersion:   result.FeatureVersion,
			CodeSHA:          in.CodeSHA,
			SourceHash:       in.SourceHash,
			RowCount:         len(rows),
			ValidationPassed: report.Passed,
		})
		result.LineageCreated = created
		if err == nil && !created {
			log.Info("lineage already registered, keeping first entry")
		}
		return err
	})
	if err != nil {
		return err
	}

	return s.stage(ctx, log, "splits", func(ctx context.Context) error {
		counts, err := s.splitter.Split(ctx, result.FeatureVersion)
		result.Splits = counts
		metrics.SplitRows.WithLabelValues(string(SplitTrain)).Set(float64(counts.Train))
		metrics.SplitRows.WithLabelValues(string(SplitVal)).Set(float64(counts.Val))
		metrics.SplitRows.WithLabelValues(string(SplitTest)).Set(float64(counts.Test))
		return err
	})
}

// stage runs fn inside its own span and records its duration.
func (s *Service) stage(ctx context.Context, log *slog.Logger, name string, fn func(context.Context) error) error {
	ctx, span := tracer.Start(ctx, "stage."+name)
	defer span.End()

	start := s.now()
	err := fn(ctx)
	elapsed := s.now().Sub(start)
	metrics.StageDuration.WithLabelValues(name).Observe(elapsed.Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("stage failed", "stage", name, "duration_ms", elapsed.Milliseconds(), "error", err)
		return err
	}
	log.Info("stage completed", "stage", name, "duration_ms", elapsed.Milliseconds())
	return nil
}

// resolveVersion returns the requested version, or mints one that is not
// yet registered.
func (s *Service) resolveVersion(ctx context.Context, requested string) (string, error) {
	if requested = strings.TrimSpace(requested); requested != "" {
		return requested, nil
	}
	for i := 0; i < maxMintAttempts; i++ {
		version, err := s.minter.Mint()
		if err != nil {
			return "", err
		}
		exists, err := s.registry.Exists(ctx, version)
		if err != nil {
			return "", err
		}
		if !exists {
			return version, nil
		}
	}
	return "", fmt.Errorf("mint feature version: %d attempts collided", maxMintAttempts)
}

// finishRun records the final run status. A failure to record it is
// logged and does not replace the run error.
func (s *Service) finishRun(ctx context.Context, log *slog.Logger, run RunRecord, result *RunResult, runErr error) {
	finished := s.now().UTC()
	run.FinishedAt = &finished
	run.ValidationPassed = result.Report.Passed
	run.RawEvents = result.RawEvents
	run.StagedOrders = result.Staging.Staged
	run.FeatureRows = result.FeatureRows
	run.Status = RunSucceeded
	if runErr != nil {
		run.Status = RunFailed
		run.Error = runErr.Error()
	}

	metrics.RunsTotal.WithLabelValues(string(run.Status)).Inc()
	metrics.LastRunTimestamp.Set(float64(finished.Unix()))

	if err := s.store.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		log.Error("failed to record run status", "status", run.Status, "error", err)
	}

	if runErr != nil {
		log.Error("run failed", "duration_ms", result.Duration.Milliseconds(), "error", runErr)
		return
	}
	log.Info("run completed",
		"duration_ms", result.Duration.Milliseconds(),
		"raw_events", result.RawEvents,
		"staged", result.Staging.Staged,
		"feature_rows", result.FeatureRows,
		"train", result.Splits.Train,
		"val", result.Splits.Val,
		"test", result.Splits.Test,
	)
}
