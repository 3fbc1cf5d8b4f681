package palette

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justestif/go-spotify-radio-dj/internal/clustering"
	"github.com/justestif/go-spotify-radio-dj/internal/vector"
)

const tol = 1e-9

func repeat(c Color, n int) []Color {
	out := make([]Color, n)
	for i := range out {
		out[i] = c
	}
	return out
}

func assertColorNear(t *testing.T, want, got Color) {
	t.Helper()
	assert.InDelta(t, want.R, got.R, tol, "R")
	assert.InDelta(t, want.G, got.G, tol, "G")
	assert.InDelta(t, want.B, got.B, tol, "B")
}

func TestMedianCutBlackAndWhite(t *testing.T) {
	samples := append(repeat(FromRGB8(0, 0, 0), 100), repeat(FromRGB8(255, 255, 255), 100)...)

	got := MedianCut(samples, 1)

	require.Len(t, got, 2)
	assertColorNear(t, Color{0, 0, 0}, got[0])
	assertColorNear(t, Color{1, 1, 1}, got[1])
}

func TestMedianCutUniformColor(t *testing.T) {
	colors := []Color{FromRGB8(200, 40, 90), FromRGB8(3, 3, 3), FromRGB8(255, 1, 128)}

	for _, c := range colors {
		want := Normalize(c)
		for _, n := range []int{1, 2, 37, 49, 200} {
			for depth := 0; depth <= MaxDepth; depth++ {
				got := MedianCut(repeat(c, n), depth)
				require.NotEmpty(t, got, "n %d depth %d", n, depth)
				for _, g := range got {
					assert.Equal(t, want, g, "color %v n %d depth %d", c, n, depth)
				}
			}
		}
	}
}

func TestMedianCutBucketCount(t *testing.T) {
	var samples []Color
	for r := 0; r < 256; r += 17 {
		for g := 0; g < 256; g += 51 {
			for b := 0; b < 256; b += 85 {
				samples = append(samples, FromRGB8(uint8(r), uint8(g), uint8(b)))
			}
		}
	}

	tests := []struct {
		depth int
		want  int
	}{
		{0, 1},
		{1, 2},
		{2, 4},
		{3, 8},
		{4, 16},
		{9, 16}, // clamped to MaxDepth
	}

	for _, tt := range tests {
		got := MedianCut(samples, tt.depth)
		assert.Len(t, got, tt.want, "depth %d", tt.depth)
		for _, c := range got {
			assert.True(t, c.R >= 0 && c.R <= 1 && c.G >= 0 && c.G <= 1 && c.B >= 0 && c.B <= 1, "not normalized: %+v", c)
		}
	}
}

func TestMedianCutFewSamples(t *testing.T) {
	samples := []Color{FromRGB8(10, 0, 0), FromRGB8(250, 0, 0), FromRGB8(130, 0, 0)}

	got := MedianCut(samples, MaxDepth)

	// Empty buckets contribute nothing, so three samples give three colors.
	require.Len(t, got, 3)
	assertColorNear(t, Normalize(FromRGB8(10, 0, 0)), got[0])
	assertColorNear(t, Normalize(FromRGB8(130, 0, 0)), got[1])
	assertColorNear(t, Normalize(FromRGB8(250, 0, 0)), got[2])
}

func TestMedianCutEmpty(t *testing.T) {
	assert.Empty(t, MedianCut(nil, MaxDepth))
	assert.Empty(t, Quantize([]Color{}, 2))
}

func TestMedianCutSplitsWidestChannel(t *testing.T) {
	// Blue spans 0..200, red and green only 0..10.
	samples := []Color{
		{R: 0, G: 10, B: 200},
		{R: 10, G: 0, B: 0},
		{R: 5, G: 5, B: 190},
		{R: 0, G: 0, B: 10},
	}

	got := MedianCut(samples, 1)

	require.Len(t, got, 2)
	assertColorNear(t, Normalize(Color{R: 5, G: 0, B: 5}), got[0])
	assertColorNear(t, Normalize(Color{R: 2.5, G: 7.5, B: 195}), got[1])
}

func TestMedianCutLeavesAreContiguousMeans(t *testing.T) {
	var samples []Color
	for i := 0; i < 64; i++ {
		samples = append(samples, Color{R: float64(i * 4), G: 0, B: 0})
	}

	got := MedianCut(samples, 2)

	// Red is the only varying channel, so the four leaves are the four
	// quarters of the red ramp.
	require.Len(t, got, 4)
	for q := 0; q < 4; q++ {
		var sum float64
		for i := q * 16; i < (q+1)*16; i++ {
			sum += float64(i * 4)
		}
		assert.InDelta(t, sum/16/MaxChannel, got[q].R, tol, "quarter %d", q)
	}
}

func TestMedianCutDoesNotMutateInput(t *testing.T) {
	samples := []Color{{R: 200}, {R: 10}, {R: 100}}
	orig := append([]Color(nil), samples...)

	MedianCut(samples, 2)

	assert.Equal(t, orig, samples)
}

func TestDominantColorsSortedByLightness(t *testing.T) {
	rng := clustering.NewRand(42)
	var samples []Color
	for i := 0; i < 300; i++ {
		samples = append(samples, FromRGB8(uint8(rng.IntN(256)), uint8(rng.IntN(256)), uint8(rng.IntN(256))))
	}

	for k := 3; k <= 8; k++ {
		got, err := DominantColors(samples, k, clustering.NewRand(uint64(k)))
		require.NoError(t, err)
		assert.LessOrEqual(t, got[0].Lightness(), got[1].Lightness(), "k=%d", k)
		assert.LessOrEqual(t, got[1].Lightness(), got[2].Lightness(), "k=%d", k)
	}
}

func TestDominantColorsDarkensCentroids(t *testing.T) {
	samples := append(repeat(FromRGB8(0, 0, 0), 50), repeat(FromRGB8(255, 255, 255), 50)...)
	samples = append(samples, repeat(FromRGB8(255, 0, 0), 50)...)

	got, err := DominantColors(samples, 3, clustering.NewRand(1))
	require.NoError(t, err)

	assertColorNear(t, Color{0, 0, 0}, got[0])
	assertColorNear(t, Color{0.9, 0, 0}, got[1])
	assertColorNear(t, Color{0.9, 0.9, 0.9}, got[2])
}

func TestDominantColorsCustomDarkenFactor(t *testing.T) {
	samples := repeat(FromRGB8(255, 255, 255), 10)

	e := NewExtractor(clustering.NewRand(1), WithDarkenFactor(0.5))
	theme, err := e.Theme(samples, 3)
	require.NoError(t, err)

	for _, c := range theme.Colors() {
		assertColorNear(t, Color{0.5, 0.5, 0.5}, c)
	}
}

func TestDominantColorsFewerClustersThanRoles(t *testing.T) {
	samples := append(repeat(FromRGB8(20, 20, 20), 10), repeat(FromRGB8(220, 220, 220), 10)...)

	for _, k := range []int{1, 2} {
		got, err := DominantColors(samples, k, clustering.NewRand(3))
		require.NoError(t, err, "k=%d", k)
		assert.LessOrEqual(t, got[0].Lightness(), got[2].Lightness())
	}

	// Two distinct colors with k=3 leave one cluster empty.
	got, err := DominantColors(samples, 3, clustering.NewRand(3))
	require.NoError(t, err)
	assertColorNear(t, Normalize(FromRGB8(20, 20, 20)).Scale(DefaultDarkenFactor), got[0])
	assertColorNear(t, Normalize(FromRGB8(220, 220, 220)).Scale(DefaultDarkenFactor), got[1])
	assertColorNear(t, Normalize(FromRGB8(220, 220, 220)).Scale(DefaultDarkenFactor), got[2])
}

func TestDominantColorsInvalidInput(t *testing.T) {
	_, err := DominantColors(nil, 3, clustering.NewRand(1))
	assert.True(t, errors.Is(err, vector.ErrEmptyDataset), "got %v", err)

	_, err = DominantColors([]Color{{R: 1}}, 0, clustering.NewRand(1))
	assert.True(t, errors.Is(err, clustering.ErrInvalidK), "got %v", err)
}

func TestSelectRoles(t *testing.T) {
	c := func(v float64) Color { return Color{v, v, v} }

	tests := []struct {
		name   string
		colors []Color
		want   [3]Color
	}{
		{"empty", nil, [3]Color{}},
		{"one", []Color{c(0.1)}, [3]Color{c(0.1), c(0.1), c(0.1)}},
		{"two", []Color{c(0.1), c(0.2)}, [3]Color{c(0.1), c(0.2), c(0.2)}},
		{"three", []Color{c(0.1), c(0.2), c(0.3)}, [3]Color{c(0.1), c(0.2), c(0.3)}},
		{"four", []Color{c(0.1), c(0.2), c(0.3), c(0.4)}, [3]Color{c(0.1), c(0.3), c(0.4)}},
		{"five", []Color{c(0.1), c(0.2), c(0.3), c(0.4), c(0.5)}, [3]Color{c(0.1), c(0.3), c(0.5)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectRoles(tt.colors))
		})
	}
}

func TestLightnessAndHex(t *testing.T) {
	tests := []struct {
		name      string
		c         Color
		lightness float64
		hex       string
	}{
		{"black", Color{0, 0, 0}, 0, "#000000"},
		{"white", Color{1, 1, 1}, 1, "#ffffff"},
		{"pure red", Color{1, 0, 0}, 0.5, "#ff0000"},
		{"dim teal", Color{0, 0.4, 0.4}, 0.2, "#006666"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.lightness, tt.c.Lightness(), tol)
			assert.Equal(t, tt.hex, tt.c.Hex())
		})
	}
}
