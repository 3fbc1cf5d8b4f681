// Package palette reduces populations of RGB samples to small representative palettes.
//
// Two strategies are provided: median-cut partitioning (MedianCut) and k-means
// clustering followed by lightness-based role selection (DominantColors).
package palette

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/justestif/go-spotify-radio-dj/internal/vector"
)

// MaxChannel is the largest channel intensity before normalization.
const MaxChannel = 255.0

// Color is an RGB sample. Channels are in [0,255] before normalization and
// in [0,1] after it.
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// FromRGB8 builds a sample from 8-bit channel values.
func FromRGB8(r, g, b uint8) Color {
	return Color{R: float64(r), G: float64(g), B: float64(b)}
}

// Normalize maps a [0,255] sample to [0,1].
func Normalize(c Color) Color {
	return Color{R: c.R / MaxChannel, G: c.G / MaxChannel, B: c.B / MaxChannel}
}

// Scale multiplies every channel by f.
func (c Color) Scale(f float64) Color {
	return Color{R: c.R * f, G: c.G * f, B: c.B * f}
}

// Channel returns channel i (0=R, 1=G, 2=B).
func (c Color) Channel(i int) float64 {
	switch i {
	case 0:
		return c.R
	case 1:
		return c.G
	default:
		return c.B
	}
}

// Vector returns the sample as a 3-vector.
func (c Color) Vector() vector.Vector {
	return vector.New(c.R, c.G, c.B)
}

// FromVector converts a 3-vector back to a sample.
func FromVector(v vector.Vector) Color {
	return Color{R: v[0], G: v[1], B: v[2]}
}

// Lightness returns the HSL lightness of a normalized color: (max+min)/2.
func (c Color) Lightness() float64 {
	_, _, l := c.colorful().Hsl()
	return l
}

// Hex renders a normalized color as #rrggbb, clamping out-of-range channels.
func (c Color) Hex() string {
	return c.colorful().Clamped().Hex()
}

func (c Color) colorful() colorful.Color {
	return colorful.Color{R: c.R, G: c.G, B: c.B}
}

// Dataset converts samples to vectors for clustering. Index i of the
// dataset is sample i.
func Dataset(samples []Color) vector.Dataset {
	data := make(vector.Dataset, len(samples))
	for i, s := range samples {
		data[i] = s.Vector()
	}
	return data
}
