package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/featureprep/internal/core"
)

// NewDatasetsCmd creates the datasets command.
func NewDatasetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List registered datasets and their column mapping",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			bold := color.New(color.Bold)
			for _, def := range core.All() {
				_, _ = bold.Fprintf(w, "%s", def.Info.Key)
				fmt.Fprintf(w, "  %s\n", def.Info.Label)
				f := def.Fields
				fmt.Fprintf(w, "  id=%s owner=%s timestamp=%s amount=%s status=%s\n",
					f.ID, f.Owner, f.Timestamp, f.Amount, orNone(f.Status))
			}
			return nil
		},
	}
}

func orNone(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
