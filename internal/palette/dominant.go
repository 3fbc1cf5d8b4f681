package palette

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/justestif/go-spotify-radio-dj/internal/clustering"
)

// DefaultDarkenFactor dims every palette channel so theme colors sit well
// behind foreground content.
const DefaultDarkenFactor = 0.9

// DefaultK is the cluster count used for theme extraction.
const DefaultK = 3

// Theme is the three-slot color theme consumed by the visualizer.
type Theme struct {
	Primary   Color `json:"primary"`   // darkest
	Secondary Color `json:"secondary"` // middle
	Tertiary  Color `json:"tertiary"`  // lightest
}

// Colors returns the roles in order primary, secondary, tertiary.
func (t Theme) Colors() [3]Color {
	return [3]Color{t.Primary, t.Secondary, t.Tertiary}
}

// Extractor derives dominant colors with k-means.
type Extractor struct {
	rng           *rand.Rand
	darken        float64
	maxIterations int
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithDarkenFactor overrides DefaultDarkenFactor.
func WithDarkenFactor(f float64) ExtractorOption {
	return func(e *Extractor) {
		if f > 0 {
			e.darken = f
		}
	}
}

// WithMaxIterations bounds the underlying k-means run.
func WithMaxIterations(n int) ExtractorOption {
	return func(e *Extractor) {
		e.maxIterations = n
	}
}

// NewExtractor creates an Extractor drawing randomness from rng.
func NewExtractor(rng *rand.Rand, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		rng:           rng,
		darken:        DefaultDarkenFactor,
		maxIterations: clustering.DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DarkenFactor returns the multiplier applied to every channel.
func (e *Extractor) DarkenFactor() float64 {
	return e.darken
}

// Centroids clusters samples ([0,255] channels) into k groups with k-means++
// and returns the normalized, darkened centroid of every non-empty group
// sorted by ascending lightness.
func (e *Extractor) Centroids(samples []Color, k int) ([]Color, *clustering.Result, error) {
	km := clustering.New(e.rng, clustering.WithMaxIterations(e.maxIterations))
	res, err := km.Cluster(Dataset(samples), k, true)
	if err != nil {
		return nil, nil, fmt.Errorf("clustering samples: %w", err)
	}

	nonEmpty := res.NonEmpty()
	colors := make([]Color, len(nonEmpty))
	for i, c := range nonEmpty {
		colors[i] = Normalize(FromVector(c.Centroid)).Scale(e.darken)
	}
	SortByLightness(colors)
	return colors, res, nil
}

// DominantColors returns exactly three colors sorted by ascending lightness.
// See SelectRoles for how fewer than three distinct clusters are handled.
func (e *Extractor) DominantColors(samples []Color, k int) ([3]Color, error) {
	colors, _, err := e.Centroids(samples, k)
	if err != nil {
		return [3]Color{}, err
	}
	return SelectRoles(colors), nil
}

// Theme is DominantColors expressed as named roles.
func (e *Extractor) Theme(samples []Color, k int) (Theme, error) {
	c, err := e.DominantColors(samples, k)
	if err != nil {
		return Theme{}, err
	}
	return Theme{Primary: c[0], Secondary: c[1], Tertiary: c[2]}, nil
}

// DominantColors clusters samples with k-means++ and selects the darkest,
// middle and lightest darkened centroids.
func DominantColors(samples []Color, k int, rng *rand.Rand) ([3]Color, error) {
	return NewExtractor(rng).DominantColors(samples, k)
}

// SortByLightness orders colors by ascending HSL lightness. Equal lightness
// keeps the input order.
func SortByLightness(colors []Color) {
	sort.SliceStable(colors, func(i, j int) bool {
		return colors[i].Lightness() < colors[j].Lightness()
	})
}

// MidpointIndex returns floor(n/2), the index of the secondary role in a
// lightness-sorted slice of length n.
func MidpointIndex(n int) int {
	return n / 2
}

// SelectRoles picks index 0, MidpointIndex and the last index from colors,
// which must already be sorted by lightness. With fewer than three colors the
// indexes overlap: one color fills every role, two colors give
// [dark, light, light]. An empty slice yields three zero colors.
func SelectRoles(colors []Color) [3]Color {
	n := len(colors)
	if n == 0 {
		return [3]Color{}
	}
	return [3]Color{colors[0], colors[MidpointIndex(n)], colors[n-1]}
}

// ThemeFrom builds a theme from lightness-sorted colors.
func ThemeFrom(colors []Color) Theme {
	c := SelectRoles(colors)
	return Theme{Primary: c[0], Secondary: c[1], Tertiary: c[2]}
}
