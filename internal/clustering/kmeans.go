package clustering

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/justestif/go-spotify-radio-dj/internal/vector"
)

// Clusterer runs k-means with an injected random source.
// A Clusterer is not safe for concurrent use because it advances its generator.
type Clusterer struct {
	rng           *rand.Rand
	maxIterations int
}

// Option configures a Clusterer.
type Option func(*Clusterer)

// WithMaxIterations sets the maximum number of reassignment passes.
func WithMaxIterations(n int) Option {
	return func(c *Clusterer) {
		if n > 0 {
			c.maxIterations = n
		}
	}
}

// New creates a Clusterer drawing all randomness from rng.
// A nil rng is replaced by NewRand(0).
func New(rng *rand.Rand, opts ...Option) *Clusterer {
	if rng == nil {
		rng = NewRand(0)
	}
	c := &Clusterer{
		rng:           rng,
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MaxIterations returns the configured pass limit.
func (c *Clusterer) MaxIterations() int {
	return c.maxIterations
}

// Cluster partitions data into k clusters.
//
// The result always has exactly k slots. When k exceeds the number of
// (distinct) points some slots stay empty; their centroid remains at its
// seed position. Every dataset index appears in exactly one slot.
func (c *Clusterer) Cluster(data vector.Dataset, k int, useKpp bool) (*Result, error) {
	if err := checkK(k); err != nil {
		return nil, err
	}
	if _, err := data.Validate(); err != nil {
		return nil, err
	}

	strategy := InitNaive
	if useKpp {
		strategy = InitKMeansPlusPlus
	}
	centroids := c.seed(data, k, strategy)

	assignments := make([]int, len(data))
	for i := range assignments {
		assignments[i] = -1
	}

	var (
		iterations int
		converged  bool
	)
	for iterations < c.maxIterations {
		changed := assign(data, centroids, assignments)
		iterations++
		if !changed {
			converged = true
			break
		}
		update(data, centroids, assignments)
	}

	return buildResult(centroids, assignments, iterations, converged), nil
}

// Seeds returns the initial centroids the given strategy would choose.
// It advances the generator exactly as Cluster does.
func (c *Clusterer) Seeds(data vector.Dataset, k int, strategy Init) ([]vector.Vector, error) {
	if err := checkK(k); err != nil {
		return nil, err
	}
	if _, err := data.Validate(); err != nil {
		return nil, err
	}
	return c.seed(data, k, strategy), nil
}

// Assign returns, for each point, the index of the nearest centroid.
// Ties go to the lowest centroid index.
func Assign(data vector.Dataset, centroids []vector.Vector) []int {
	out := make([]int, len(data))
	for i, p := range data {
		out[i] = nearest(p, centroids)
	}
	return out
}

// Run runs k-means with a fresh Clusterer using rng.
func Run(data vector.Dataset, k int, useKpp bool, rng *rand.Rand) (*Result, error) {
	return New(rng).Cluster(data, k, useKpp)
}

func checkK(k int) error {
	if k < 1 || k > MaxK {
		return fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}
	return nil
}

func nearest(p vector.Vector, centroids []vector.Vector) int {
	best := 0
	bestDist := math.Inf(1)
	for j, ctr := range centroids {
		d := vector.SquaredDistance(p, ctr)
		if d < bestDist {
			bestDist = d
			best = j
		}
	}
	return best
}

// assign updates assignments in place and reports whether any point moved.
func assign(data vector.Dataset, centroids []vector.Vector, assignments []int) bool {
	changed := false
	for i, p := range data {
		best := nearest(p, centroids)
		if assignments[i] != best {
			assignments[i] = best
			changed = true
		}
	}
	return changed
}

// update moves each centroid to the mean of its points.
// Centroids without points keep their position.
func update(data vector.Dataset, centroids []vector.Vector, assignments []int) {
	members := make([][]vector.Vector, len(centroids))
	for i, slot := range assignments {
		members[slot] = append(members[slot], data[i])
	}
	for j := range centroids {
		if mean, ok := vector.Mean(members[j]); ok {
			centroids[j] = mean
		}
	}
}

func buildResult(centroids []vector.Vector, assignments []int, iterations int, converged bool) *Result {
	res := &Result{
		Clusters:   make([]Cluster, len(centroids)),
		Centroids:  make([]vector.Vector, len(centroids)),
		Iterations: iterations,
		Converged:  converged,
	}
	for j, ctr := range centroids {
		res.Centroids[j] = ctr.Clone()
		res.Clusters[j] = Cluster{
			Centroid: ctr.Clone(),
			Indexes:  []int{},
		}
	}
	for i, slot := range assignments {
		res.Clusters[slot].Indexes = append(res.Clusters[slot].Indexes, i)
	}
	return res
}
