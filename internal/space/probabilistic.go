package space

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"

	"github.com/rhugonnet/scikit-gstat/internal/kd"
	"github.com/rhugonnet/scikit-gstat/internal/metric"
	"github.com/rhugonnet/scikit-gstat/internal/sparse"
)

// DefaultSamples is the subsample size used when none is given: half of
// the point count.
const DefaultSamples = 0.5

// Probabilistic is a Space that only materializes distances between two
// independently drawn random subsets of the points, as a sparse matrix
// addressed in the original coordinate indices.
//
// samples below 1 is a fraction of the point count; 1 or above is an
// absolute count.
type Probabilistic struct {
	coords  [][]float64
	name    string
	metric  metric.Func
	maxDist float64
	samples float64
	rnd     *rand.Rand

	lidx, ridx   []int
	ltree, rtree *kd.Tree
	dists        Dists
}

// NewProbabilistic constructs the sampler. A nil rnd draws from an
// unseeded source; pass rand.New(rand.NewSource(seed)) for reproducible
// sampling. A samples of 0 means DefaultSamples.
func NewProbabilistic(coords [][]float64, metricName string, maxDist, samples float64, rnd *rand.Rand) (*Probabilistic, error) {
	m, err := validate(coords, metricName, maxDist)
	if err != nil {
		return nil, err
	}
	if samples == 0 {
		samples = DefaultSamples
	}
	if samples < 0 {
		return nil, fmt.Errorf("%w: negative sample size %f", ErrConfiguration, samples)
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(rand.Uint64()))
	}

	s := &Probabilistic{
		coords:  copyCoords(coords),
		name:    metricName,
		metric:  m,
		maxDist: maxDist,
		samples: samples,
		rnd:     rnd,
	}
	if s.SampleCount() > s.Len() {
		return nil, fmt.Errorf("%w: sample count %d exceeds %d points",
			ErrConfiguration, s.SampleCount(), s.Len())
	}
	return s, nil
}

// Len returns the number of points in the full coordinate set.
func (s *Probabilistic) Len() int { return len(s.coords) }

// MetricName returns the name of the distance metric.
func (s *Probabilistic) MetricName() string { return s.name }

// MaxDist returns the cutoff, or 0 when none is set.
func (s *Probabilistic) MaxDist() float64 { return s.maxDist }

// SampleCount resolves the sample size to an absolute count.
func (s *Probabilistic) SampleCount() int {
	if s.samples >= 1 {
		return int(s.samples)
	}
	return int(s.samples * float64(len(s.coords)))
}

// LeftIndices returns the left sample: SampleCount indices into the
// coordinate set drawn without replacement, cached after the first
// draw. The left set is always drawn before the right one so a seeded
// source reproduces identical samples regardless of access order.
func (s *Probabilistic) LeftIndices() []int {
	if s.lidx == nil {
		s.lidx = s.draw(s.SampleCount(), s.Len())
	}
	return s.lidx
}

// RightIndices returns the right sample, drawn independently of the
// left one. The two may overlap.
func (s *Probabilistic) RightIndices() []int {
	s.LeftIndices()
	if s.ridx == nil {
		s.ridx = s.draw(s.SampleCount(), s.Len())
	}
	return s.ridx
}

func (s *Probabilistic) draw(k, n int) []int {
	if k == 0 {
		return []int{}
	}
	idx := make([]int, k)
	sampleuv.WithoutReplacement(idx, n, s.rnd)
	return idx
}

// LeftTree returns the spatial index over the left sample's
// coordinates. Only the euclidean metric is supported.
func (s *Probabilistic) LeftTree() (*kd.Tree, error) {
	if s.name != metric.Euclidean {
		return nil, fmt.Errorf("%w: a coordinate tree requires the euclidean metric, have %q",
			ErrUnsupportedMetric, s.name)
	}
	if s.ltree == nil {
		s.ltree = kd.New(subsetCoords(s.coords, s.LeftIndices()))
	}
	return s.ltree, nil
}

// RightTree returns the spatial index over the right sample's
// coordinates.
func (s *Probabilistic) RightTree() (*kd.Tree, error) {
	if s.name != metric.Euclidean {
		return nil, fmt.Errorf("%w: a coordinate tree requires the euclidean metric, have %q",
			ErrUnsupportedMetric, s.name)
	}
	if s.rtree == nil {
		s.rtree = kd.New(subsetCoords(s.coords, s.RightIndices()))
	}
	return s.rtree, nil
}

// Distances returns the sparse cross-distance matrix between the two
// samples, sized and addressed in the full coordinate set's indices.
// Without a cutoff the range query runs with the largest representable
// radius, so every sampled pair is stored.
func (s *Probabilistic) Distances() (Dists, error) {
	if s.dists != nil {
		return s.dists, nil
	}

	maxDist := s.maxDist
	if maxDist == 0 {
		maxDist = math.MaxFloat64
	}

	lt, err := s.LeftTree()
	if err != nil {
		return nil, err
	}
	rt, err := s.RightTree()
	if err != nil {
		return nil, err
	}

	entries := lt.CrossRange(rt, maxDist)

	// Remap the sample-local indices to global coordinate indices, one
	// axis at a time: the column pass in the row-major entry order, then
	// the row pass. Values stay attached to their pair throughout;
	// compression re-canonicalizes the ordering afterwards.
	ridx := s.RightIndices()
	for i := range entries {
		entries[i].Col = ridx[entries[i].Col]
	}
	lidx := s.LeftIndices()
	for i := range entries {
		entries[i].Row = lidx[entries[i].Row]
	}

	n := s.Len()
	s.dists = sparseDists{sparse.New(n, n, entries)}
	return s.dists, nil
}

// Diagonal returns the condensed upper-triangle vector of the sampled
// distance matrix; unsampled pairs read as +Inf.
func (s *Probabilistic) Diagonal(subset []int) ([]float64, error) {
	d, err := s.Distances()
	if err != nil {
		return nil, err
	}
	return diagonal(d, s.Len(), subset), nil
}

// FindClosest returns the indices of sampled points within maxDist of
// point i, at most k of them.
func (s *Probabilistic) FindClosest(i int, maxDist float64, k int) ([]int, error) {
	d, err := s.Distances()
	if err != nil {
		return nil, err
	}
	return closest(d, s.maxDist, maxDist, i, k)
}
