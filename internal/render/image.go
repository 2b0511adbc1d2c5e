package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
)

var (
	// Background fills plots that have no data yet.
	Background = color.NRGBA{R: 20, G: 20, B: 40, A: 255}
	// Invalid marks NaN and Inf samples.
	Invalid = color.NRGBA{R: 255, G: 0, B: 255, A: 255}
)

// Field draws a real array f[i][j], sampled at (x_i, y_j), into a w x h image
// with x to the right and y upwards (the first y index is the bottom row).
// Each sample is passed through scale before colouring.
func Field(f [][]float64, w, h int, scale func(float64) (float64, bool), cmap Colormap) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	if len(f) == 0 || len(f[0]) == 0 {
		fill(img, Background)
		return img
	}
	nx, ny := len(f), len(f[0])

	for py := 0; py < h; py++ {
		j := (h - 1 - py) * ny / h
		for px := 0; px < w; px++ {
			i := px * nx / w
			v, ok := scale(f[i][j])
			if !ok {
				img.SetNRGBA(px, py, Invalid)
				continue
			}
			img.SetNRGBA(px, py, cmap(v))
		}
	}
	return img
}

// Density draws a density array normalized to its largest finite value.
func Density(d [][]float64, w, h int, cmap Colormap) *image.NRGBA {
	top := 0.0
	for _, row := range d {
		for _, v := range row {
			if finite(v) && v > top {
				top = v
			}
		}
	}
	if top <= 0 {
		top = 1
	}
	return Field(d, w, h, func(v float64) (float64, bool) {
		return v / top, finite(v)
	}, cmap)
}

// Phase draws a phase array in (-pi, pi] on the HSV circle.
func Phase(p [][]float64, w, h int) *image.NRGBA {
	return Field(p, w, h, func(v float64) (float64, bool) {
		return (v + math.Pi) / (2 * math.Pi), finite(v)
	}, HSV)
}

// WritePNG encodes img as PNG.
func WritePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encoding png: %w", err)
	}
	return nil
}

func fill(img *image.NRGBA, c color.NRGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
