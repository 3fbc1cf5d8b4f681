package clustering

import (
	"math/rand/v2"

	"github.com/justestif/go-spotify-radio-dj/internal/vector"
)

// randomDataset returns n points with dim coordinates in [0, 1).
func randomDataset(rng *rand.Rand, n, dim int) vector.Dataset {
	data := make(vector.Dataset, n)
	for i := range data {
		v := make(vector.Vector, dim)
		for j := range v {
			v[j] = rng.Float64()
		}
		data[i] = v
	}
	return data
}
