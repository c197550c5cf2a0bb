// Package space implements distance spaces for variogram estimation: a
// point cloud paired with a metric and an optional distance cutoff,
// exposing an efficient, possibly sparse pairwise distance matrix, plus
// sampling strategies that trade exactness for scalability on large
// point sets.
package space

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/rhugonnet/scikit-gstat/internal/kd"
	"github.com/rhugonnet/scikit-gstat/internal/metric"
	"github.com/rhugonnet/scikit-gstat/internal/sparse"
)

var (
	// ErrInvalidMetric is returned when a metric name cannot be resolved
	// at construction time.
	ErrInvalidMetric = errors.New("invalid metric")

	// ErrUnsupportedMetric is returned when a spatial index is requested
	// for a metric other than euclidean.
	ErrUnsupportedMetric = errors.New("unsupported metric")

	// ErrConfiguration is returned for mismatched cutoffs or metrics and
	// other structurally invalid configuration.
	ErrConfiguration = errors.New("invalid configuration")
)

// Dists is a read-only distance matrix, dense or sparse. Sparse
// matrices only store pairs within the cutoff; absent entries mean the
// distance exceeds it, not that it is zero.
type Dists interface {
	mat.Matrix

	// Row returns the stored entries of row i: column indices in
	// ascending order and the corresponding distances. Dense rows store
	// every column. The returned slices must not be modified.
	Row(i int) (cols []int, dists []float64)

	// Sparse reports whether the matrix omits pairs beyond a cutoff.
	Sparse() bool
}

type sparseDists struct{ *sparse.CSR }

func (sparseDists) Sparse() bool { return true }

type denseDists struct{ *mat.Dense }

func (denseDists) Sparse() bool { return false }

func (d denseDists) Row(i int) (cols []int, dists []float64) {
	_, c := d.Dims()
	cols = make([]int, c)
	for j := range cols {
		cols[j] = j
	}
	return cols, d.RawRowView(i)
}

// Space is a point cloud together with a distance metric and an
// optional cutoff. The distance matrix is computed on first use and
// cached for the lifetime of the Space; coordinates are copied at
// construction and never mutated.
//
// Lazy first builds are not synchronized. Concurrent reads are safe
// once a matrix or tree has been built.
type Space struct {
	coords  [][]float64
	name    string
	metric  metric.Func
	maxDist float64

	tree  *kd.Tree
	dists Dists
}

// New constructs a Space from an (Npoints, Ndim) coordinate array. A
// maxDist of 0 means no cutoff; with a positive cutoff and the
// euclidean metric the distance matrix is assembled sparsely from
// spatial-index range queries.
func New(coords [][]float64, metricName string, maxDist float64) (*Space, error) {
	m, err := validate(coords, metricName, maxDist)
	if err != nil {
		return nil, err
	}
	return &Space{
		coords:  copyCoords(coords),
		name:    metricName,
		metric:  m,
		maxDist: maxDist,
	}, nil
}

func validate(coords [][]float64, metricName string, maxDist float64) (metric.Func, error) {
	m, err := metric.ByName(metricName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetric, err)
	}
	if maxDist < 0 {
		return nil, fmt.Errorf("%w: negative cutoff %f", ErrConfiguration, maxDist)
	}
	dim := -1
	for _, c := range coords {
		if dim == -1 {
			dim = len(c)
		}
		if len(c) != dim || dim == 0 {
			return nil, fmt.Errorf("%w: coordinates must share one nonzero dimension", ErrConfiguration)
		}
	}
	if len(coords) > 0 {
		// Evaluate once on a trivial pair so a broken metric fails here
		// instead of deep inside a matrix computation.
		m(coords[0], coords[0])
	}
	return m, nil
}

func copyCoords(coords [][]float64) [][]float64 {
	cp := make([][]float64, len(coords))
	for i, c := range coords {
		cp[i] = append([]float64(nil), c...)
	}
	return cp
}

// Len returns the number of points.
func (s *Space) Len() int { return len(s.coords) }

// Dim returns the coordinate dimension, or 0 for an empty space.
func (s *Space) Dim() int {
	if len(s.coords) == 0 {
		return 0
	}
	return len(s.coords[0])
}

// MetricName returns the name of the distance metric.
func (s *Space) MetricName() string { return s.name }

// MaxDist returns the cutoff, or 0 when none is set.
func (s *Space) MaxDist() float64 { return s.maxDist }

// Tree returns the spatial index over the coordinates, building it on
// first use. Only the euclidean metric is supported.
func (s *Space) Tree() (*kd.Tree, error) {
	if s.name != metric.Euclidean {
		return nil, fmt.Errorf("%w: a coordinate tree requires the euclidean metric, have %q",
			ErrUnsupportedMetric, s.name)
	}
	if s.tree == nil {
		s.tree = kd.New(s.coords)
	}
	return s.tree, nil
}

// Distances returns the pairwise distance matrix, computing and caching
// it on first use. With a positive cutoff and the euclidean metric the
// result is sparse and stores only pairs within the cutoff (the
// diagonal is never stored); otherwise it is the dense symmetric
// matrix over all pairs. An empty space always yields an empty sparse
// matrix, as mat.Dense does not represent zero dimensions.
func (s *Space) Distances() (Dists, error) {
	if s.dists != nil {
		return s.dists, nil
	}

	n := len(s.coords)
	if n == 0 {
		s.dists = sparseDists{sparse.New(0, 0, nil)}
	} else if s.maxDist > 0 && s.name == metric.Euclidean {
		t, err := s.Tree()
		if err != nil {
			return nil, err
		}
		s.dists = sparseDists{sparse.New(n, n, t.SelfRange(s.maxDist))}
	} else {
		s.dists = denseDists{fullPairwise(s.coords, s.metric)}
	}
	return s.dists, nil
}

// Diagonal returns the condensed upper-triangle vector of the distance
// matrix, optionally restricted to a subset of point indices. Pairs a
// sparse matrix does not store are reported as +Inf.
func (s *Space) Diagonal(subset []int) ([]float64, error) {
	d, err := s.Distances()
	if err != nil {
		return nil, err
	}
	return diagonal(d, s.Len(), subset), nil
}

// FindClosest returns the indices of points within maxDist of point i,
// at most k of them. A maxDist of 0 inherits the space's cutoff; a k of
// 0 disables truncation. Results are truncated to the k nearest, ties
// broken by storage order; untruncated results keep storage order.
func (s *Space) FindClosest(i int, maxDist float64, k int) ([]int, error) {
	d, err := s.Distances()
	if err != nil {
		return nil, err
	}
	return closest(d, s.maxDist, maxDist, i, k)
}

// fullPairwise evaluates the metric over all unordered pairs and
// mirrors the result into a symmetric square matrix with zero diagonal.
func fullPairwise(coords [][]float64, m metric.Func) *mat.Dense {
	n := len(coords)
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := m(coords[i], coords[j])
			d.Set(i, j, v)
			d.Set(j, i, v)
		}
	}
	return d
}

// crossPairwise evaluates the metric for every point of a against
// every point of b.
func crossPairwise(a, b [][]float64, m metric.Func) *mat.Dense {
	d := mat.NewDense(len(a), len(b), nil)
	for i := range a {
		for j := range b {
			d.Set(i, j, m(a[i], b[j]))
		}
	}
	return d
}

// diagonal flattens the upper triangle of the (optionally
// subset-restricted) matrix into a condensed vector. Absent sparse
// entries read as +Inf; the diagonal itself is excluded by
// construction, so its zero convention is preserved.
func diagonal(d Dists, n int, subset []int) []float64 {
	if subset == nil {
		subset = make([]int, n)
		for i := range subset {
			subset[i] = i
		}
	}

	sp, isSparse := d.(sparseDists)
	m := len(subset)
	out := make([]float64, 0, m*(m-1)/2)
	for i := 0; i < m; i++ {
		for j := i + 1; j < m; j++ {
			gi, gj := subset[i], subset[j]
			if isSparse && !sp.Has(gi, gj) {
				out = append(out, math.Inf(+1))
				continue
			}
			out = append(out, d.At(gi, gj))
		}
	}
	return out
}

func subsetCoords(coords [][]float64, idx []int) [][]float64 {
	sub := make([][]float64, len(idx))
	for i, j := range idx {
		sub[i] = coords[j]
	}
	return sub
}
