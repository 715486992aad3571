package commands

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/featureprep/internal/core"
	"github.com/JonMunkholm/featureprep/internal/database"
)

// NewMigrateCmd creates the migrate command with up and down subcommands.
func NewMigrateCmd(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the database schema",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration(load, func(url string) (uint, error) {
				return database.MigrateUp(url)
			})
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations (all of them unless --steps is set)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration(load, func(url string) (uint, error) {
				return database.MigrateDown(url, steps)
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 0, "number of migrations to roll back")

	cmd.AddCommand(up, down)
	return cmd
}

func runMigration(load configLoader, migrate func(url string) (uint, error)) error {
	cfg, err := load()
	if err != nil {
		return err
	}
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}

	version, err := migrate(cfg.Database.URL)
	if err != nil {
		return &core.StorageError{Op: "migrate", Err: err}
	}
	color.Green("Schema at version %d", version)
	return nil
}
