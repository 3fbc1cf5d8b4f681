package clustering

import (
	"github.com/justestif/go-spotify-radio-dj/internal/vector"
)

// seed picks k initial centroids. The returned vectors are copies.
func (c *Clusterer) seed(data vector.Dataset, k int, strategy Init) []vector.Vector {
	var idx []int
	if strategy == InitKMeansPlusPlus {
		idx = c.plusPlusIndexes(data, k)
	} else {
		idx = c.naiveIndexes(len(data), k)
	}

	centroids := make([]vector.Vector, k)
	for j, i := range idx {
		centroids[j] = data[i].Clone()
	}
	return centroids
}

// naiveIndexes samples k indexes without replacement, then with replacement
// once all n indexes are used.
func (c *Clusterer) naiveIndexes(n, k int) []int {
	perm := c.rng.Perm(n)
	if k <= n {
		return perm[:k]
	}
	idx := make([]int, 0, k)
	idx = append(idx, perm...)
	for len(idx) < k {
		idx = append(idx, c.rng.IntN(n))
	}
	return idx
}

// plusPlusIndexes implements k-means++ seeding.
//
// The first index is uniform. Each following index is drawn with probability
// proportional to the squared distance to the nearest chosen centroid. Chosen
// points have weight zero, so no index repeats while positive weight remains.
// When every remaining point coincides with a chosen centroid the draw is
// uniform over unchosen indexes, and uniform over all indexes once n < k
// leaves none.
func (c *Clusterer) plusPlusIndexes(data vector.Dataset, k int) []int {
	n := len(data)
	chosen := make([]bool, n)
	idx := make([]int, 0, k)

	first := c.rng.IntN(n)
	idx = append(idx, first)
	chosen[first] = true

	// minDist[i] is the squared distance from point i to its nearest chosen centroid.
	minDist := make([]float64, n)
	for i, p := range data {
		minDist[i] = vector.SquaredDistance(p, data[first])
	}

	for len(idx) < k {
		next := c.weightedIndex(minDist, chosen)
		idx = append(idx, next)
		chosen[next] = true

		for i, p := range data {
			if d := vector.SquaredDistance(p, data[next]); d < minDist[i] {
				minDist[i] = d
			}
		}
	}
	return idx
}

func (c *Clusterer) weightedIndex(weights []float64, chosen []bool) int {
	var total float64
	for i, w := range weights {
		if !chosen[i] {
			total += w
		}
	}

	if total > 0 {
		r := c.rng.Float64() * total
		last := -1
		var acc float64
		for i, w := range weights {
			if chosen[i] || w <= 0 {
				continue
			}
			acc += w
			last = i
			if r < acc {
				return i
			}
		}
		// Rounding left r at or past the final boundary.
		return last
	}

	var free []int
	for i, used := range chosen {
		if !used {
			free = append(free, i)
		}
	}
	if len(free) > 0 {
		return free[c.rng.IntN(len(free))]
	}
	return c.rng.IntN(len(weights))
}
