package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/featureprep/internal/config"
	"github.com/JonMunkholm/featureprep/internal/core"
)

// openPool connects to the configured database and verifies the connection.
func openPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, &core.ConfigurationError{Problems: []string{fmt.Sprintf("parse database url: %v", err)}}
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, &core.StorageError{Op: "connect", Err: err}
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &core.StorageError{Op: "ping database", Err: err}
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Debug("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}
	return pool, nil
}

// datasetRules resolves the configured dataset and loads its rule set.
func datasetRules(cfg *config.Config) (core.DatasetDefinition, core.RuleSet, error) {
	def, err := core.MustGet(cfg.Pipeline.Dataset)
	if err != nil {
		return core.DatasetDefinition{}, core.RuleSet{}, err
	}
	rules, err := core.LoadRuleSet(cfg.Pipeline.RulesPath, def.Info.Key)
	if err != nil {
		return core.DatasetDefinition{}, core.RuleSet{}, err
	}
	return def, rules, nil
}

// pipelineFlags are the run and validate overrides of the pipeline section.
type pipelineFlags struct {
	input   string
	source  string
	dataset string
	rules   string
	version string
}

func (f pipelineFlags) apply(cfg *config.Config) error {
	if f.input != "" {
		cfg.Pipeline.InputPath = f.input
	}
	if f.source != "" {
		cfg.Pipeline.Source = f.source
	}
	if f.dataset != "" {
		cfg.Pipeline.Dataset = f.dataset
	}
	if f.rules != "" {
		cfg.Pipeline.RulesPath = f.rules
	}
	if f.version != "" {
		cfg.Pipeline.FeatureVersion = f.version
	}
	if strings.TrimSpace(cfg.Pipeline.InputPath) == "" {
		return &core.ConfigurationError{Problems: []string{"input path is required (set --input or PIPELINE_INPUT)"}}
	}
	return nil
}
