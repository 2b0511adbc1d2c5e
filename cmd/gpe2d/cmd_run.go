package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/devloper-gazi/2D-GPE-SplitStep-Simulator/internal/config"
	"github.com/devloper-gazi/2D-GPE-SplitStep-Simulator/internal/export"
	"github.com/devloper-gazi/2D-GPE-SplitStep-Simulator/internal/gpe"
	"github.com/devloper-gazi/2D-GPE-SplitStep-Simulator/internal/runstore"
)

// runReport is what run prints on success.
type runReport struct {
	RunID    string   `json:"run_id"`
	Steps    int      `json:"steps"`
	SimTime  float64  `json:"sim_time"`
	Norm     float64  `json:"norm"`
	Peak     float64  `json:"peak_density"`
	Energy   float64  `json:"energy"`
	Duration string   `json:"duration"`
	Files    []string `json:"files"`
}

func newRunCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evolve the condensate and write the final density",
		Long: `Run integrates the configured number of steps, then writes the final
density (PNG and/or CSV) and a YAML summary to the output directory and
records the run in the history database.

A run that fails, whether in the evolution or while writing results, is
recorded as failed and leaves no output files behind.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	fs := cmd.Flags()
	addSimulationFlags(fs)
	d := config.Default()
	fs.String("out", d.Output.Dir, "Output directory")
	fs.Bool("png", d.Output.PNG, "Write the density image")
	fs.Bool("csv", d.Output.CSV, "Write the density as CSV")
	fs.Bool("summary", d.Output.Summary, "Write a YAML run summary")
	fs.Int("image-size", d.Output.ImageSize, "PNG edge length in pixels (0 = one pixel per grid point)")
	fs.Bool("store", d.Store.Enabled, "Record the run in the history database")
	fs.String("store-path", d.Store.Path, "History database file")
	return cmd
}

func (c *cli) run(ctx context.Context, out io.Writer) error {
	cfg := c.cfg
	started := time.Now()
	rec := runstore.NewRun(cfg.Simulation, started)
	log := c.log.With(zap.String("run_id", rec.ID))

	res, err := gpe.Run(ctx, cfg.Simulation,
		gpe.WithWorkers(cfg.Runtime.Workers),
		gpe.WithLogger(log),
	)
	took := time.Since(started)
	if err != nil {
		return c.fail(ctx, log, &rec, err, took)
	}
	rec.Complete(res, took)

	files, err := export.Write(res, export.Summary{
		RunID:     rec.ID,
		StartedAt: rec.StartedAt,
		Duration:  took,
		Config:    cfg.Simulation,
		Steps:     res.Steps,
		SimTime:   res.Time,
		Norm:      res.Norm,
		Peak:      res.Peak,
		Energy:    res.Energy,
		Extent:    res.Extent,
	}, export.Options{
		Dir:       cfg.Output.Dir,
		PNG:       cfg.Output.PNG,
		CSV:       cfg.Output.CSV,
		Summary:   cfg.Output.Summary,
		Colormap:  cfg.Output.Colormap,
		ImageSize: cfg.Output.ImageSize,
	})
	if err != nil {
		return c.fail(ctx, log, &rec, fmt.Errorf("writing results: %w", err), took)
	}
	log.Info("results written", zap.Strings("files", files))

	if err := c.record(ctx, rec); err != nil {
		return err
	}

	report := runReport{
		RunID:    rec.ID,
		Steps:    res.Steps,
		SimTime:  res.Time,
		Norm:     res.Norm,
		Peak:     res.Peak,
		Energy:   res.Energy,
		Duration: took.Round(time.Millisecond).String(),
		Files:    files,
	}
	if c.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	fmt.Fprintf(out, "run %s: %d steps, t = %.6g\n", report.RunID, report.Steps, report.SimTime)
	fmt.Fprintf(out, "  norm   %.12f\n", report.Norm)
	fmt.Fprintf(out, "  peak   %.6g\n", report.Peak)
	fmt.Fprintf(out, "  energy %.6g\n", report.Energy)
	fmt.Fprintf(out, "  took   %s\n", report.Duration)
	for _, f := range files {
		fmt.Fprintf(out, "  wrote  %s\n", f)
	}
	return nil
}

// fail records rec as failed with err and returns err tagged with the run id.
func (c *cli) fail(ctx context.Context, log *zap.Logger, rec *runstore.Run, err error, took time.Duration) error {
	rec.Fail(err, took)
	if rerr := c.record(ctx, *rec); rerr != nil {
		log.Warn("failed to record run", zap.Error(rerr))
	}
	return fmt.Errorf("run %s: %w", rec.ID, err)
}

// record stores rec in the history database when it is enabled. It outlives
// cancellation of ctx so interrupted runs are still recorded.
func (c *cli) record(ctx context.Context, rec runstore.Run) error {
	if !c.cfg.Store.Enabled {
		return nil
	}
	ctx = context.WithoutCancel(ctx)
	store, err := runstore.Open(ctx, c.cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("opening run history: %w", err)
	}
	defer store.Close()
	if err := store.Record(ctx, rec); err != nil {
		return err
	}
	c.log.Debug("run recorded", zap.String("run_id", rec.ID), zap.String("status", rec.Status))
	return nil
}
