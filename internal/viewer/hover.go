package viewer

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// hoverRaster wraps a raster so pointer movement over it can be reported.
type hoverRaster struct {
	widget.BaseWidget
	raster  *canvas.Raster
	onHover func(pos fyne.Position, size fyne.Size, inside bool)
}

var _ desktop.Hoverable = (*hoverRaster)(nil)

func newHoverRaster(r *canvas.Raster, onHover func(fyne.Position, fyne.Size, bool)) *hoverRaster {
	h := &hoverRaster{raster: r, onHover: onHover}
	h.ExtendBaseWidget(h)
	return h
}

func (h *hoverRaster) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(h.raster)
}

func (h *hoverRaster) MouseIn(ev *desktop.MouseEvent) {
	h.MouseMoved(ev)
}

func (h *hoverRaster) MouseMoved(ev *desktop.MouseEvent) {
	if h.onHover != nil {
		h.onHover(ev.Position, h.Size(), true)
	}
}

func (h *hoverRaster) MouseOut() {
	if h.onHover != nil {
		h.onHover(fyne.Position{}, h.Size(), false)
	}
}
