// Package commands implements the featureprep CLI subcommands.
package commands

import (
	"errors"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/featureprep/internal/config"
	"github.com/JonMunkholm/featureprep/internal/core"
	_ "github.com/JonMunkholm/featureprep/internal/core/datasets" // Register all datasets
	"github.com/JonMunkholm/featureprep/internal/ingest"
	"github.com/JonMunkholm/featureprep/internal/logging"
)

// Process exit codes.
const (
	ExitOK         = 0
	ExitUnexpected = 1
	ExitConfig     = 2
	ExitValidation = 3
	ExitStorage    = 4
)

// NewRootCmd builds the featureprep command tree.
func NewRootCmd(version string) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "featureprep",
		Short: "Validated, versioned feature datasets from order exports",
		Long: `featureprep captures raw order records, validates them against a declarative
rule set, merges them into a staging table, computes versioned per-customer
features with lineage, and assigns a leakage-free temporal train/val/test split.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "pipeline YAML file (env vars override it)")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, &core.ConfigurationError{Problems: []string{err.Error()}}
		}
		logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
		return cfg, nil
	}

	root.AddCommand(
		NewRunCmd(load, version),
		NewValidateCmd(load),
		NewMigrateCmd(load),
		NewServeCmd(load),
		NewSeedCmd(),
		NewDatasetsCmd(),
	)
	return root
}

// configLoader loads and validates configuration for one command.
type configLoader func() (*config.Config, error)

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var cfgErr *core.ConfigurationError
	var storeErr *core.StorageError
	switch {
	case errors.As(err, &cfgErr), errors.Is(err, config.ErrDatabaseRequired):
		return ExitConfig
	case core.IsValidationFailure(err),
		errors.Is(err, ingest.ErrEmptyFile),
		errors.Is(err, ingest.ErrInvalidCSV),
		errors.Is(err, ingest.ErrFileTooLarge):
		return ExitValidation
	case errors.As(err, &storeErr):
		return ExitStorage
	case errors.Is(err, fs.ErrNotExist):
		return ExitConfig
	default:
		return ExitUnexpected
	}
}
