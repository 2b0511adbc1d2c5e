// Package render turns density and phase arrays into images.
package render

import (
	"fmt"
	"image/color"
	"math"
)

// Colormap maps a value in [0, 1] to a colour. Inputs outside the range are
// clamped.
type Colormap func(v float64) color.NRGBA

// anchor is one control point of a piecewise-linear colormap.
type anchor struct {
	pos     float64
	r, g, b float64
}

var infernoAnchors = []anchor{
	{0.00, 0, 0, 4},
	{0.13, 31, 12, 72},
	{0.25, 85, 15, 109},
	{0.38, 136, 34, 106},
	{0.50, 186, 54, 85},
	{0.63, 227, 89, 51},
	{0.75, 249, 140, 10},
	{0.88, 249, 201, 50},
	{1.00, 252, 255, 164},
}

var viridisAnchors = []anchor{
	{0.00, 68, 1, 84},
	{0.25, 59, 82, 139},
	{0.50, 33, 145, 140},
	{0.75, 94, 201, 98},
	{1.00, 253, 231, 37},
}

// Inferno approximates matplotlib's inferno map.
func Inferno(v float64) color.NRGBA {
	return interpolate(infernoAnchors, v)
}

// Viridis approximates matplotlib's viridis map.
func Viridis(v float64) color.NRGBA {
	return interpolate(viridisAnchors, v)
}

// HSV maps v in [0, 1) around the hue circle at full saturation. Used for
// phase plots, where 0 and 1 are the same angle.
func HSV(v float64) color.NRGBA {
	h := math.Mod(v, 1)
	if h < 0 {
		h += 1
	}
	i := math.Floor(h * 6)
	f := h*6 - i
	q, t := 1-f, f

	var r, g, b float64
	switch int(i) % 6 {
	case 0:
		r, g, b = 1, t, 0
	case 1:
		r, g, b = q, 1, 0
	case 2:
		r, g, b = 0, 1, t
	case 3:
		r, g, b = 0, q, 1
	case 4:
		r, g, b = t, 0, 1
	default:
		r, g, b = 1, 0, q
	}
	return color.NRGBA{R: uint8(r * 255), G: uint8(g * 255), B: uint8(b * 255), A: 255}
}

// Lookup returns the named density colormap.
func Lookup(name string) (Colormap, error) {
	switch name {
	case "inferno", "":
		return Inferno, nil
	case "viridis":
		return Viridis, nil
	default:
		return nil, fmt.Errorf("unknown colormap %q", name)
	}
}

func interpolate(anchors []anchor, v float64) color.NRGBA {
	v = math.Max(0, math.Min(1, v))
	if math.IsNaN(v) {
		v = 0
	}
	for k := 1; k < len(anchors); k++ {
		lo, hi := anchors[k-1], anchors[k]
		if v > hi.pos && k < len(anchors)-1 {
			continue
		}
		f := (v - lo.pos) / (hi.pos - lo.pos)
		f = math.Max(0, math.Min(1, f))
		return color.NRGBA{
			R: channel(lo.r + f*(hi.r-lo.r)),
			G: channel(lo.g + f*(hi.g-lo.g)),
			B: channel(lo.b + f*(hi.b-lo.b)),
			A: 255,
		}
	}
	a := anchors[len(anchors)-1]
	return color.NRGBA{R: channel(a.r), G: channel(a.g), B: channel(a.b), A: 255}
}

func channel(x float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(255, x))))
}
