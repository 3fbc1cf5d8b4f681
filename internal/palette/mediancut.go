package palette

import (
	"sort"

	"github.com/justestif/go-spotify-radio-dj/internal/vector"
)

// MaxDepth caps median-cut recursion, giving at most 2^4 = 16 buckets.
const MaxDepth = 4

// MedianCut quantizes samples ([0,255] channels) into at most 2^depth colors.
//
// Each bucket is split along its widest channel at the midpoint index after
// sorting by that channel. Leaves at depth (clamped to [0, MaxDepth]) emit the
// mean of their samples, normalized to [0,1]; empty buckets emit nothing.
// Output order follows the recursion: lower half before upper half.
//
// The sort is not stable, so samples that tie on the split channel may land
// on either side of the midpoint. Buckets can then differ for inputs that
// contain equal channel values in different orders.
func MedianCut(samples []Color, depth int) []Color {
	if depth < 0 {
		depth = 0
	}
	if depth > MaxDepth {
		depth = MaxDepth
	}

	bucket := make([]Color, len(samples))
	copy(bucket, samples)

	out := make([]Color, 0, 1<<depth)
	return cut(bucket, 0, depth, out)
}

// Quantize is MedianCut.
func Quantize(samples []Color, depth int) []Color {
	return MedianCut(samples, depth)
}

func cut(bucket []Color, depth, maxDepth int, out []Color) []Color {
	if len(bucket) == 0 {
		return out
	}
	if depth >= maxDepth {
		return append(out, Normalize(bucketMean(bucket)))
	}

	ch := widestChannel(bucket)
	sort.Slice(bucket, func(i, j int) bool {
		return bucket[i].Channel(ch) < bucket[j].Channel(ch)
	})

	mid := len(bucket) / 2
	out = cut(bucket[:mid], depth+1, maxDepth, out)
	return cut(bucket[mid:], depth+1, maxDepth, out)
}

// widestChannel returns the channel with the greatest value range.
// Ties resolve to the first of R, G, B.
func widestChannel(bucket []Color) int {
	best, bestRange := 0, -1.0
	for ch := 0; ch < 3; ch++ {
		lo, hi := bucket[0].Channel(ch), bucket[0].Channel(ch)
		for _, c := range bucket[1:] {
			v := c.Channel(ch)
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if hi-lo > bestRange {
			best, bestRange = ch, hi-lo
		}
	}
	return best
}

func bucketMean(bucket []Color) Color {
	points := make([]vector.Vector, len(bucket))
	for i, c := range bucket {
		points[i] = c.Vector()
	}
	mean, ok := vector.Mean(points)
	if !ok {
		return Color{}
	}
	return FromVector(mean)
}
