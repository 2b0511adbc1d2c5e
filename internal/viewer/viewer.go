// Package viewer shows a running simulation in a fyne window: density and
// phase plots side by side, refreshed from snapshots.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"github.com/devloper-gazi/2D-GPE-SplitStep-Simulator/internal/gpe"
	"github.com/devloper-gazi/2D-GPE-SplitStep-Simulator/internal/render"
)

const (
	plotSize    = 320
	noCoords    = "(x, y) = (---, ---)"
	updateQueue = 8

	pauseLabel  = "Pause"
	resumeLabel = "Resume"
)

// Options configures Run.
type Options struct {
	Config        gpe.Config
	Workers       int
	SnapshotEvery int
	Colormap      string
	Logger        *zap.Logger
}

// Viewer owns the plot widgets, the run controls and the most recent
// snapshot.
type Viewer struct {
	densityPlot *canvas.Raster
	phasePlot   *canvas.Raster
	statusLabel *widget.Label
	coordLabel  *widget.Label
	pauseButton *widget.Button
	resetButton *widget.Button
	content     fyne.CanvasObject

	grid   *gpe.Grid
	cmap   render.Colormap
	ctl    *control
	closed atomic.Bool

	mu   sync.Mutex
	last gpe.Snapshot
}

// New builds the plot layout for fields sampled on grid. Nothing is shown
// until the content is placed in a window.
func New(grid *gpe.Grid, cmap render.Colormap) *Viewer {
	v := &Viewer{grid: grid, cmap: cmap, ctl: newControl()}

	v.statusLabel = widget.NewLabel(statusText(gpe.Snapshot{}))
	v.statusLabel.Alignment = fyne.TextAlignTrailing
	v.coordLabel = widget.NewLabel(noCoords)

	v.pauseButton = widget.NewButton(pauseLabel, v.togglePause)
	v.resetButton = widget.NewButton("Reset", v.reset)

	v.densityPlot = canvas.NewRaster(v.drawDensity)
	v.densityPlot.SetMinSize(fyne.NewSize(plotSize, plotSize))
	v.phasePlot = canvas.NewRaster(v.drawPhase)
	v.phasePlot.SetMinSize(fyne.NewSize(plotSize, plotSize))

	densityPanel := container.NewBorder(
		widget.NewLabelWithStyle("Density |psi|^2", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		nil, nil, nil,
		newHoverRaster(v.densityPlot, v.hover),
	)
	phasePanel := container.NewBorder(
		widget.NewLabelWithStyle("Phase arg(psi)", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		nil, nil, nil,
		newHoverRaster(v.phasePlot, v.hover),
	)
	plots := container.NewGridWithColumns(2, densityPanel, phasePanel)
	buttons := container.NewHBox(v.pauseButton, v.resetButton)
	status := container.NewBorder(nil, nil, container.NewHBox(buttons, v.coordLabel), v.statusLabel, layout.NewSpacer())

	v.content = container.NewBorder(nil, status, nil, nil, plots)
	return v
}

// Content returns the root canvas object.
func (v *Viewer) Content() fyne.CanvasObject {
	return v.content
}

// Update stores s and schedules a redraw. Safe to call from any goroutine.
// Once the window has closed only the stored snapshot changes.
func (v *Viewer) Update(s gpe.Snapshot) {
	v.mu.Lock()
	v.last = s
	v.mu.Unlock()

	if v.closed.Load() {
		return
	}
	fyne.Do(func() {
		v.statusLabel.SetText(statusText(s))
		v.densityPlot.Refresh()
		v.phasePlot.Refresh()
	})
}

func (v *Viewer) snapshot() gpe.Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.last
}

func (v *Viewer) drawDensity(w, h int) image.Image {
	return render.Density(v.snapshot().Density, w, h, v.cmap)
}

func (v *Viewer) drawPhase(w, h int) image.Image {
	return render.Phase(v.snapshot().Phase, w, h)
}

// togglePause switches between holding and releasing the run.
func (v *Viewer) togglePause() {
	if v.ctl.Paused() {
		v.ctl.Resume()
		v.pauseButton.SetText(pauseLabel)
		return
	}
	v.ctl.Pause()
	v.pauseButton.SetText(resumeLabel)
}

// reset restarts the evolution from the initial state.
func (v *Viewer) reset() {
	v.ctl.Reset()
	v.pauseButton.SetText(pauseLabel)
}

func (v *Viewer) hover(pos fyne.Position, size fyne.Size, inside bool) {
	text := noCoords
	if inside {
		s := v.snapshot()
		if x, y, ok := Coordinates(s.Extent, pos, size); ok {
			text = fmt.Sprintf("(x, y) = (%.2f, %.2f)", x, y)
			if d, ok := v.densityAt(s, x, y); ok {
				text += fmt.Sprintf("  |psi|^2 = %.4g", d)
			}
		}
	}
	v.coordLabel.SetText(text)
}

// densityAt returns the density of the grid point nearest to (x, y).
func (v *Viewer) densityAt(s gpe.Snapshot, x, y float64) (float64, bool) {
	if v.grid == nil || len(s.Density) != v.grid.Nx || len(s.Density[0]) != v.grid.Ny {
		return 0, false
	}
	i, j := v.grid.Index(x, y)
	return s.Density[i][j], true
}

// Coordinates maps a position inside a plot of the given size to physical
// coordinates. The plot has y pointing up.
func Coordinates(extent [4]float64, pos fyne.Position, size fyne.Size) (x, y float64, ok bool) {
	if extent == [4]float64{} || size.Width < 1 || size.Height < 1 {
		return 0, 0, false
	}
	fx := float64(pos.X / size.Width)
	fy := float64((size.Height - pos.Y) / size.Height)
	if fx < 0 || fx > 1 || fy < 0 || fy > 1 {
		return 0, 0, false
	}
	x = extent[0] + fx*(extent[1]-extent[0])
	y = extent[2] + fy*(extent[3]-extent[2])
	return x, y, true
}

func statusText(s gpe.Snapshot) string {
	return fmt.Sprintf("step %d  t = %.4f  norm = %.10f", s.Step, s.Time, s.Norm)
}

// Run opens a window and evolves opts.Config in the background, feeding
// snapshots to the plots. The window can pause the run and restart it from
// the initial state; closing it cancels the run. Run blocks until the window
// is closed and returns the outcome of the last run.
func Run(ctx context.Context, opts Options) (*gpe.Result, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	cmap, err := render.Lookup(opts.Colormap)
	if err != nil {
		return nil, err
	}
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	grid, err := gpe.NewGrid(cfg.Nx, cfg.Ny, cfg.Lx, cfg.Ly)
	if err != nil {
		return nil, err
	}
	every := opts.SnapshotEvery
	if every <= 0 {
		every = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a := app.NewWithID("io.github.gpe2d.viewer")
	w := a.NewWindow(fmt.Sprintf("GPE 2D split-step - %dx%d", cfg.Nx, cfg.Ny))
	v := New(grid, cmap)
	w.SetContent(v.Content())
	w.Resize(fyne.NewSize(2*plotSize+40, plotSize+100))
	w.SetOnClosed(func() {
		log.Debug("viewer window closed")
		v.closed.Store(true)
		cancel()
	})

	updates := make(chan gpe.Snapshot, updateQueue)
	var (
		wg      sync.WaitGroup
		res     *gpe.Result
		runErr  error
		dropped int
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		for s := range updates {
			v.Update(s)
		}
	}()
	go func() {
		defer wg.Done()
		defer close(updates)
		v.ctl.loop(ctx, func(runCtx context.Context) error {
			log.Debug("viewer run starting")
			res, runErr = gpe.Run(runCtx, cfg,
				gpe.WithWorkers(opts.Workers),
				gpe.WithLogger(log),
				gpe.WithObserver(every, func(s gpe.Snapshot) {
					if v.ctl.wait(runCtx) != nil {
						return
					}
					select {
					case updates <- s:
					default:
						dropped++
					}
				}),
			)
			return runErr
		}, func(err error) {
			if err != nil && !errors.Is(err, context.Canceled) && !v.closed.Load() {
				fyne.Do(func() { dialog.ShowError(err, w) })
			}
			log.Debug("viewer run finished", zap.Error(err), zap.Int("dropped_snapshots", dropped))
		})
	}()

	w.ShowAndRun()
	cancel()
	wg.Wait()
	return res, runErr
}
