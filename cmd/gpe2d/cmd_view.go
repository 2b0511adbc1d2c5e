package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/devloper-gazi/2D-GPE-SplitStep-Simulator/internal/viewer"
)

func newViewCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Watch the evolution in a window",
		Long: `View runs the configured simulation in the background and shows the
density and phase as they evolve. Closing the window stops the run.
Nothing is written to disk.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.cfg
			res, err := viewer.Run(cmd.Context(), viewer.Options{
				Config:        cfg.Simulation,
				Workers:       cfg.Runtime.Workers,
				SnapshotEvery: cfg.Runtime.SnapshotEvery,
				Colormap:      cfg.Output.Colormap,
				Logger:        c.log,
			})
			if errors.Is(err, context.Canceled) {
				c.log.Info("view stopped before the last step")
				return nil
			}
			if err != nil {
				return fmt.Errorf("view: %w", err)
			}
			c.log.Info("view finished",
				zap.Int("steps", res.Steps),
				zap.Float64("norm", res.Norm),
				zap.Float64("energy", res.Energy))
			return nil
		},
	}
	addSimulationFlags(cmd.Flags())
	cmd.Flags().Int("snapshot-every", 0, "Steps between plot refreshes")
	return cmd
}
