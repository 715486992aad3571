package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/featureprep/internal/seed"
)

// NewSeedCmd creates the seed command.
func NewSeedCmd() *cobra.Command {
	opts := seed.DefaultOptions()
	var out string
	var days int

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write a synthetic orders CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days <= 0 {
				return fmt.Errorf("--days must be positive")
			}
			opts.End = time.Now().UTC().Truncate(24 * time.Hour)
			opts.Start = opts.End.AddDate(0, 0, -days)

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}

			stats, err := seed.Generate(w, opts)
			if err != nil {
				return err
			}
			if out != "" && out != "-" {
				color.Green("Wrote %d rows (%d with defects) to %s", stats.Rows, stats.Dirty, out)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().IntVar(&opts.Rows, "rows", opts.Rows, "number of orders")
	cmd.Flags().IntVar(&opts.Customers, "customers", opts.Customers, "number of distinct customers")
	cmd.Flags().IntVar(&days, "days", 90, "order timestamps span this many days up to today")
	cmd.Flags().Int64Var(&opts.Seed, "seed", opts.Seed, "random seed")
	cmd.Flags().Float64Var(&opts.DirtyRate, "dirty-rate", 0, "fraction of rows with an injected defect")
	return cmd
}
