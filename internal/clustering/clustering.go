// Package clustering implements k-means partitioning over numeric vectors.
//
// Results are reproducible: all randomness comes from the *rand.Rand handed
// to New, never from a package-level generator.
package clustering

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/justestif/go-spotify-radio-dj/internal/vector"
)

// DefaultMaxIterations bounds the number of reassignment passes.
const DefaultMaxIterations = 100

// MaxK is the largest accepted cluster count. Every run allocates k
// centroids up front, so k is bounded independently of the dataset size.
const MaxK = 100_000

// ErrInvalidK is returned when k is not in [1, MaxK].
var ErrInvalidK = fmt.Errorf("%w: k must be at least 1 and at most %d", vector.ErrInvalidInput, MaxK)

// ErrUnknownInit is returned by ParseInit for unrecognized strategy names.
var ErrUnknownInit = errors.New("unknown init strategy")

// Init selects how initial centroids are chosen.
type Init int

const (
	// InitNaive samples k points uniformly at random.
	InitNaive Init = iota
	// InitKMeansPlusPlus samples points with probability proportional to
	// their squared distance from the nearest centroid chosen so far.
	InitKMeansPlusPlus
)

// String returns the configuration name of the strategy.
func (i Init) String() string {
	switch i {
	case InitKMeansPlusPlus:
		return "kmeans++"
	default:
		return "naive"
	}
}

// ParseInit parses "naive" or "kmeans++" (also "kpp").
func ParseInit(s string) (Init, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "naive", "random":
		return InitNaive, nil
	case "kmeans++", "kpp", "plusplus":
		return InitKMeansPlusPlus, nil
	default:
		return InitNaive, fmt.Errorf("%w: %q", ErrUnknownInit, s)
	}
}

// Cluster is one partition: its centroid and the dataset indexes assigned to it.
// Indexes are in ascending order.
type Cluster struct {
	Centroid vector.Vector
	Indexes  []int
}

// Empty reports whether no points were assigned to the cluster.
func (c Cluster) Empty() bool {
	return len(c.Indexes) == 0
}

// Result is the outcome of a k-means run.
type Result struct {
	Clusters   []Cluster
	Centroids  []vector.Vector
	Iterations int  // completed reassignment passes
	Converged  bool // last pass changed no membership
}

// NonEmpty returns the clusters that received at least one point, in slot order.
func (r *Result) NonEmpty() []Cluster {
	out := make([]Cluster, 0, len(r.Clusters))
	for _, c := range r.Clusters {
		if !c.Empty() {
			out = append(out, c)
		}
	}
	return out
}

// Assignments returns the cluster slot of every dataset index.
func (r *Result) Assignments(n int) []int {
	out := make([]int, n)
	for slot, c := range r.Clusters {
		for _, idx := range c.Indexes {
			out[idx] = slot
		}
	}
	return out
}

// NewRand returns a generator seeded with seed. Equal seeds yield equal streams.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
