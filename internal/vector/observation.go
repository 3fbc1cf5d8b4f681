package vector

// The muesli/clusters adapter lets a dataset run through muesli/kmeans, which
// the clustering tests use as a reference implementation. Production code
// clusters with internal/clustering, which needs an injected random source and
// lowest-index tie-breaking that muesli/kmeans does not offer.

import (
	"github.com/muesli/clusters"
)

// observation wraps a dataset entry to implement clusters.Observation.
type observation struct {
	index  int
	coords clusters.Coordinates
}

func (o observation) Coordinates() clusters.Coordinates {
	return o.coords
}

func (o observation) Distance(point clusters.Coordinates) float64 {
	return o.coords.Distance(point)
}

// Observations converts the dataset to the muesli/clusters representation.
// Coordinates are copied. Distances follow the library convention and are
// squared Euclidean.
func (d Dataset) Observations() clusters.Observations {
	obs := make(clusters.Observations, len(d))
	for i, v := range d {
		obs[i] = observation{
			index:  i,
			coords: clusters.Coordinates(v.Clone()),
		}
	}
	return obs
}

// IndexOf returns the dataset index an observation produced by Observations
// refers to, or -1 for foreign observations.
func IndexOf(o clusters.Observation) int {
	if to, ok := o.(observation); ok {
		return to.index
	}
	return -1
}
