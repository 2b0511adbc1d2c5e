// Package export writes run results to disk: density as CSV, the density
// image as PNG and a YAML summary of the run.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/devloper-gazi/2D-GPE-SplitStep-Simulator/internal/gpe"
	"github.com/devloper-gazi/2D-GPE-SplitStep-Simulator/internal/render"
)

// Summary is the YAML sidecar written next to the density output.
type Summary struct {
	RunID     string        `yaml:"run_id"`
	StartedAt time.Time     `yaml:"started_at"`
	Duration  time.Duration `yaml:"duration"`
	Config    gpe.Config    `yaml:"config"`
	Steps     int           `yaml:"steps"`
	SimTime   float64       `yaml:"sim_time"`
	Norm      float64       `yaml:"norm"`
	Peak      float64       `yaml:"peak_density"`
	Energy    float64       `yaml:"energy"`
	Extent    [4]float64    `yaml:"extent,flow"`
	Files     []string      `yaml:"files,omitempty"`
}

// Transpose returns the [j][i] view of an [i][j] array.
func Transpose(f [][]float64) [][]float64 {
	if len(f) == 0 {
		return nil
	}
	rows, cols := len(f), len(f[0])
	out := make([][]float64, cols)
	for j := range out {
		out[j] = make([]float64, rows)
		for i := 0; i < rows; i++ {
			out[j][i] = f[i][j]
		}
	}
	return out
}

// WriteDensityCSV writes density with one line per y index, ascending from
// the bottom of the box, and one column per x index.
func WriteDensityCSV(w io.Writer, density [][]float64) error {
	cw := csv.NewWriter(w)
	record := []string{}
	for _, row := range Transpose(density) {
		record = record[:0]
		for _, v := range row {
			record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummary encodes s as YAML.
func WriteSummary(w io.Writer, s Summary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	return enc.Close()
}

// Options selects which files Write produces.
type Options struct {
	Dir      string
	PNG      bool
	CSV      bool
	Summary  bool
	Colormap string

	// ImageSize is the PNG edge length in pixels; 0 uses one pixel per sample.
	ImageSize int
}

// Write stores the requested artifacts for one run under opts.Dir, named
// after the run id, and returns the paths written. On error every file it
// already wrote is removed again and no paths are returned.
func Write(res *gpe.Result, summary Summary, opts Options) (files []string, err error) {
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	defer func() {
		if err != nil {
			for _, f := range files {
				_ = os.Remove(f)
			}
			files = nil
		}
	}()
	base := filepath.Join(opts.Dir, summary.RunID)

	if opts.CSV {
		path := base + "_density.csv"
		files = append(files, path)
		if err := writeFile(path, func(w io.Writer) error { return WriteDensityCSV(w, res.Density) }); err != nil {
			return files, err
		}
	}

	if opts.PNG {
		cmap, err := render.Lookup(opts.Colormap)
		if err != nil {
			return files, err
		}
		w, h := len(res.Density), 0
		if w > 0 {
			h = len(res.Density[0])
		}
		if opts.ImageSize > 0 {
			w, h = opts.ImageSize, opts.ImageSize
		}
		img := render.Density(res.Density, w, h, cmap)
		path := base + "_density.png"
		files = append(files, path)
		if err := writeFile(path, func(out io.Writer) error { return render.WritePNG(out, img) }); err != nil {
			return files, err
		}
	}

	if opts.Summary {
		path := base + "_summary.yaml"
		files = append(files, path)
		summary.Files = append([]string(nil), files...)
		if err := writeFile(path, func(w io.Writer) error { return WriteSummary(w, summary) }); err != nil {
			return files, err
		}
	}
	return files, nil
}

func writeFile(path string, fn func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()
	return fn(f)
}
