// Package vector provides the numeric primitives shared by the clustering and
// palette packages: fixed-length points, datasets and distance helpers.
package vector

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ErrInvalidInput is the class of all input validation failures.
// Every more specific validation error matches it with errors.Is.
var ErrInvalidInput = errors.New("invalid input")

// Validation errors.
var (
	// ErrEmptyDataset is returned when a dataset holds no vectors.
	ErrEmptyDataset = fmt.Errorf("%w: empty dataset", ErrInvalidInput)

	// ErrDimensionMismatch is returned when vectors in one dataset differ in length.
	ErrDimensionMismatch = fmt.Errorf("%w: dimension mismatch", ErrInvalidInput)

	// ErrNonFinite is returned when a coordinate is NaN or infinite.
	ErrNonFinite = fmt.Errorf("%w: non-finite coordinate", ErrInvalidInput)
)

// Vector is an ordered, fixed-length point in n-dimensional space.
type Vector []float64

// New returns a vector holding a copy of vals.
func New(vals ...float64) Vector {
	v := make(Vector, len(vals))
	copy(v, vals)
	return v
}

// Zero returns the origin in dim dimensions.
func Zero(dim int) Vector {
	return make(Vector, dim)
}

// Dim returns the number of coordinates.
func (v Vector) Dim() int {
	return len(v)
}

// Clone returns a copy that shares no memory with v.
func (v Vector) Clone() Vector {
	return New(v...)
}

// Equal reports whether v and o have the same coordinates.
func (v Vector) Equal(o Vector) bool {
	if len(v) != len(o) {
		return false
	}
	return floats.Equal(v, o)
}

// EqualApprox reports whether every coordinate of v and o is within tol.
func (v Vector) EqualApprox(o Vector, tol float64) bool {
	if len(v) != len(o) {
		return false
	}
	return floats.EqualApprox(v, o, tol)
}

// SquaredDistance returns the squared Euclidean distance between a and b.
// Both vectors must have the same length.
func SquaredDistance(a, b Vector) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Vector) float64 {
	return floats.Distance(a, b, 2)
}

// Mean returns the coordinate-wise arithmetic mean of points.
// The second result is false when points is empty; no division happens then.
func Mean(points []Vector) (Vector, bool) {
	if len(points) == 0 {
		return nil, false
	}
	sum := Zero(len(points[0]))
	for _, p := range points {
		floats.Add(sum, p)
	}
	// Dividing by n keeps the mean of identical integer-valued points exact.
	n := float64(len(points))
	for i := range sum {
		sum[i] /= n
	}
	return sum, true
}

// Dataset is an ordered collection of vectors. Index i always refers to the
// i-th source item supplied by the caller.
type Dataset []Vector

// Len returns the number of vectors.
func (d Dataset) Len() int {
	return len(d)
}

// Validate checks the dataset is usable for clustering and returns its dimensionality.
func (d Dataset) Validate() (int, error) {
	if len(d) == 0 {
		return 0, ErrEmptyDataset
	}

	dim := len(d[0])
	if dim == 0 {
		return 0, fmt.Errorf("%w: vector 0 has no coordinates", ErrDimensionMismatch)
	}

	for i, v := range d {
		if len(v) != dim {
			return 0, fmt.Errorf("%w: vector %d has %d coordinates, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
		for _, x := range v {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return 0, fmt.Errorf("%w: vector %d", ErrNonFinite, i)
			}
		}
	}

	return dim, nil
}

// Subset returns the vectors at the given indexes, in order.
func (d Dataset) Subset(indexes []int) []Vector {
	out := make([]Vector, len(indexes))
	for i, idx := range indexes {
		out[i] = d[idx]
	}
	return out
}

// Distinct counts the number of distinct points in the dataset.
func (d Dataset) Distinct() int {
	seen := make(map[string]struct{}, len(d))
	for _, v := range d {
		seen[fmt.Sprint([]float64(v))] = struct{}{}
	}
	return len(seen)
}
