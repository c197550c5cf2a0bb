// Package metric provides named pairwise distance functions over
// float64 coordinate vectors.
package metric

import (
	"fmt"
	"math"

	"github.com/viterin/vek"
)

// Func computes the distance between two coordinate vectors of equal
// length. Implementations must be symmetric and zero on identical
// inputs.
type Func func(a, b []float64) float64

// Euclidean is the name of the only metric with spatial-index support.
const Euclidean = "euclidean"

// ByName returns the distance function registered under name.
// Unknown names are an error.
func ByName(name string) (m Func, err error) {
	switch name {
	case Euclidean:
		m = vek.Distance
	case "sqeuclidean":
		m = func(a, b []float64) float64 {
			d := vek.Distance(a, b)
			return d * d
		}
	case "cityblock", "manhattan":
		m = vek.ManhattanDistance
	case "chebyshev":
		m = chebyshev
	case "cosine":
		m = cosine
	default:
		err = fmt.Errorf("unknown metric %q", name)
	}
	return
}

func chebyshev(a, b []float64) float64 {
	var max float64
	for i := range a {
		if d := math.Abs(a[i] - b[i]); d > max {
			max = d
		}
	}
	return max
}

func cosine(a, b []float64) float64 {
	return 1 - vek.CosineSimilarity(a, b)
}
