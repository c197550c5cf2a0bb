package space

import (
	"fmt"

	"github.com/rhugonnet/scikit-gstat/internal/metric"
	"github.com/rhugonnet/scikit-gstat/internal/sparse"
)

// Pair composes two Spaces and provides the cross-distance matrix
// between every point of the first and every point of the second. Both
// spaces must share the same metric and the same cutoff. The Pair holds
// references to the spaces; it does not own their coordinates.
type Pair struct {
	a, b *Space

	dists Dists
}

// NewPair validates that a and b agree on metric and cutoff.
func NewPair(a, b *Space) (*Pair, error) {
	if a.name != b.name {
		return nil, fmt.Errorf("%w: metrics differ: %q != %q", ErrConfiguration, a.name, b.name)
	}
	if a.maxDist != b.maxDist {
		return nil, fmt.Errorf("%w: cutoffs differ: %f != %f", ErrConfiguration, a.maxDist, b.maxDist)
	}
	return &Pair{a: a, b: b}, nil
}

// MetricName returns the metric shared by both spaces.
func (p *Pair) MetricName() string { return p.a.name }

// MaxDist returns the cutoff shared by both spaces, 0 for none.
func (p *Pair) MaxDist() float64 { return p.a.maxDist }

// Distances returns the cross-distance matrix, computed and cached on
// first use. With a positive cutoff and the euclidean metric it is
// assembled sparsely from a two-index range query; otherwise it is the
// dense matrix of all cross pairs.
func (p *Pair) Distances() (Dists, error) {
	if p.dists != nil {
		return p.dists, nil
	}

	if p.a.maxDist > 0 && p.a.name == metric.Euclidean {
		ta, err := p.a.Tree()
		if err != nil {
			return nil, err
		}
		tb, err := p.b.Tree()
		if err != nil {
			return nil, err
		}
		p.dists = sparseDists{sparse.New(p.a.Len(), p.b.Len(), ta.CrossRange(tb, p.a.maxDist))}
	} else {
		p.dists = denseDists{crossPairwise(p.a.coords, p.b.coords, p.a.metric)}
	}
	return p.dists, nil
}

// FindClosest returns the indices of points in the second space within
// maxDist of point i of the first space, at most k of them.
func (p *Pair) FindClosest(i int, maxDist float64, k int) ([]int, error) {
	d, err := p.Distances()
	if err != nil {
		return nil, err
	}
	return closest(d, p.a.maxDist, maxDist, i, k)
}
