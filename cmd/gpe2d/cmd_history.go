package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/devloper-gazi/2D-GPE-SplitStep-Simulator/internal/runstore"
)

func newHistoryCmd(c *cli) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := runstore.Open(ctx, c.cfg.Store.Path)
			if err != nil {
				return fmt.Errorf("opening run history: %w", err)
			}
			defer store.Close()

			runs, err := store.List(ctx, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if c.jsonOut {
				if runs == nil {
					runs = []runstore.Run{}
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTARTED\tSTATUS\tGRID\tSTEPS\tNORM\tENERGY\tTOOK")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%dx%d\t%d\t%.10f\t%.6g\t%s\n",
					r.ID,
					r.StartedAt.Local().Format(time.DateTime),
					r.Status,
					r.Config.Nx, r.Config.Ny,
					r.Steps,
					r.Norm,
					r.Energy,
					r.Duration,
				)
				if r.Error != "" {
					fmt.Fprintf(tw, "\t\terror: %s\t\t\t\t\t\n", r.Error)
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	cmd.Flags().String("store-path", "", "History database file")
	return cmd
}
