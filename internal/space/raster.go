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

// DefaultRuns is the number of independent sampling rounds used when
// none is given.
const DefaultRuns = 10

// RasterConfig configures a RasterEquidistant space beyond the plain
// Space parameters.
type RasterConfig struct {
	// Shape is the raster grid size (X, Y).
	Shape [2]int
	// Extent is the geographic extent (Xmin, Xmax, Ymin, Ymax).
	Extent [4]float64
	// Runs is the number of independent sampling rounds; 0 means
	// DefaultRuns.
	Runs int
	// MaxDist restricts pairs to this distance; 0 derives the largest
	// possible in-grid distance from Shape and the pixel resolution.
	MaxDist float64
	// Samples is the per-round subset size, an absolute count or a
	// fraction below 1; 0 means DefaultSamples.
	Samples float64
	// Rnd is the random source; nil draws from an unseeded one.
	Rnd *rand.Rand
}

// RasterEquidistant subsamples pairwise distances of 2D gridded data.
// Each round draws a random center, a "center" subset in a disk around
// it and an "equidistant" subset stratified over rings of geometrically
// growing radius, then stores the center-to-equidistant distances
// within the cutoff. Rounds accumulate into one sparse matrix in which
// the first round to sample a pair wins; later duplicates are dropped,
// never summed.
type RasterEquidistant struct {
	coords  [][]float64
	name    string
	metric  metric.Func
	maxDist float64
	samples float64
	shape   [2]int
	extent  [4]float64
	res     float64
	runs    int
	rnd     *rand.Rand

	dists Dists
}

// NewRasterEquidistant constructs the sampler for 2D coordinates laid
// out on the grid described by cfg.Shape and cfg.Extent.
func NewRasterEquidistant(coords [][]float64, metricName string, cfg RasterConfig) (*RasterEquidistant, error) {
	m, err := validate(coords, metricName, cfg.MaxDist)
	if err != nil {
		return nil, err
	}
	if len(coords) > 0 && len(coords[0]) != 2 {
		return nil, fmt.Errorf("%w: raster sampling requires 2D coordinates, have %dD",
			ErrConfiguration, len(coords[0]))
	}
	if cfg.Shape[0] <= 0 || cfg.Shape[1] <= 0 {
		return nil, fmt.Errorf("%w: invalid raster shape %v", ErrConfiguration, cfg.Shape)
	}
	if cfg.Samples == 0 {
		cfg.Samples = DefaultSamples
	}
	if cfg.Samples < 0 {
		return nil, fmt.Errorf("%w: negative sample size %f", ErrConfiguration, cfg.Samples)
	}
	if cfg.Runs == 0 {
		cfg.Runs = DefaultRuns
	}
	if cfg.Runs < 0 || cfg.Runs > len(coords) {
		return nil, fmt.Errorf("%w: %d runs for %d points", ErrConfiguration, cfg.Runs, len(coords))
	}
	if cfg.Rnd == nil {
		cfg.Rnd = rand.New(rand.NewSource(rand.Uint64()))
	}

	// Pixel resolution: the diagonal length of one grid cell.
	dx := (cfg.Extent[1] - cfg.Extent[0]) / float64(cfg.Shape[0])
	dy := (cfg.Extent[3] - cfg.Extent[2]) / float64(cfg.Shape[1])
	res := math.Hypot(dx, dy)

	maxDist := cfg.MaxDist
	if maxDist == 0 {
		// Upper bound on any in-grid distance.
		maxDist = float64(max(cfg.Shape[0], cfg.Shape[1])) * res
	}

	return &RasterEquidistant{
		coords:  copyCoords(coords),
		name:    metricName,
		metric:  m,
		maxDist: maxDist,
		samples: cfg.Samples,
		shape:   cfg.Shape,
		extent:  cfg.Extent,
		res:     res,
		runs:    cfg.Runs,
		rnd:     cfg.Rnd,
	}, nil
}

// Len returns the number of points.
func (s *RasterEquidistant) Len() int { return len(s.coords) }

// MetricName returns the name of the distance metric.
func (s *RasterEquidistant) MetricName() string { return s.name }

// MaxDist returns the cutoff. Unlike plain spaces it is always set,
// derived from the grid dimensions when not configured.
func (s *RasterEquidistant) MaxDist() float64 { return s.maxDist }

// Resolution returns the pixel resolution derived from shape and
// extent.
func (s *RasterEquidistant) Resolution() float64 { return s.res }

// Runs returns the number of sampling rounds.
func (s *RasterEquidistant) Runs() int { return s.runs }

// SampleCount resolves the per-round sample size to an absolute count.
func (s *RasterEquidistant) SampleCount() int {
	if s.samples >= 1 {
		return int(s.samples)
	}
	return int(s.samples * float64(len(s.coords)))
}

// CenterRadius returns the radius of the disk around a round's center,
// sized so the disk holds roughly twice the sample count of grid
// points.
func (s *RasterEquidistant) CenterRadius() float64 {
	return math.Sqrt(float64(s.SampleCount())/math.Pi) * s.res
}

// Distances runs all sampling rounds and returns the accumulated sparse
// distance matrix, cached after the first call. Only the euclidean
// metric is supported.
//
// Rounds draw in a fixed order from the injected source: one batch of
// run centers up front, then per round one disk keep draw followed by
// one keep draw per ring, innermost first. Each round's index sets and
// trees are discarded before the next round starts.
func (s *RasterEquidistant) Distances() (Dists, error) {
	if s.dists != nil {
		return s.dists, nil
	}
	if s.name != metric.Euclidean {
		return nil, fmt.Errorf("%w: raster sampling requires the euclidean metric, have %q",
			ErrUnsupportedMetric, s.name)
	}

	n := len(s.coords)
	radius := s.CenterRadius()

	centers := make([]int, s.runs)
	if s.runs > 0 {
		sampleuv.WithoutReplacement(centers, n, s.rnd)
	}

	var entries []sparse.Entry
	for _, c := range centers {
		center := s.coords[c]

		// Distances of every grid point to this round's center.
		dc := make([]float64, n)
		for i, p := range s.coords {
			dc[i] = math.Hypot(p[0]-center[0], p[1]-center[1])
		}

		cidx := s.centerSample(dc, radius)
		eqidx := s.equidistantSample(dc, radius)
		if len(cidx) == 0 || len(eqidx) == 0 {
			continue // degenerate round, nothing to contribute
		}

		ctree := kd.New(subsetCoords(s.coords, cidx))
		eqtree := kd.New(subsetCoords(s.coords, eqidx))

		for _, e := range ctree.CrossRange(eqtree, s.maxDist) {
			entries = append(entries, sparse.Entry{
				Row: cidx[e.Row],
				Col: eqidx[e.Col],
				Val: e.Val,
			})
		}
		// cidx, eqidx and both trees are dropped here; only the entries
		// accumulate across rounds.
	}

	s.dists = sparseDists{sparse.New(n, n, entries)}
	return s.dists, nil
}

// centerSample selects the points inside the center disk and randomly
// keeps half of them, reserving the rest for the low-distance rings of
// the equidistant sample.
func (s *RasterEquidistant) centerSample(dc []float64, radius float64) []int {
	var cand []int
	for i, d := range dc {
		if d < radius {
			cand = append(cand, i)
		}
	}
	return s.keep(cand, len(cand)/2)
}

// equidistantSample stratifies the cutoff range into rings of
// geometrically growing radius and samples each ring independently:
// up to SampleCount points drawn without replacement, of which a
// random half is kept. Rings contributing fewer than two points are
// skipped.
func (s *RasterEquidistant) equidistantSample(dc []float64, radius float64) []int {
	edges := ringEdges(radius, s.maxDist)

	var out []int
	for b := 0; b+1 < len(edges); b++ {
		lo, hi := edges[b], edges[b+1]

		var cand []int
		for i, d := range dc {
			if d >= lo && d < hi {
				cand = append(cand, i)
			}
		}
		if len(cand) == 0 {
			continue
		}

		k := min(len(cand), s.SampleCount())
		sel := s.keep(cand, k)
		sel = sel[:len(sel)/2]
		if len(sel) < 2 {
			continue
		}
		out = append(out, sel...)
	}
	return out
}

// keep draws k of the candidates without replacement, in random order.
func (s *RasterEquidistant) keep(cand []int, k int) []int {
	if k <= 0 {
		return nil
	}
	pick := make([]int, k)
	sampleuv.WithoutReplacement(pick, len(cand), s.rnd)

	out := make([]int, k)
	for i, p := range pick {
		out[i] = cand[p]
	}
	return out
}

// ringEdges returns the ring bin edges: 0, then the center radius grown
// by 1.5 per ring until the cutoff, which terminates the list. A
// nonpositive radius degenerates to the single ring [0, maxDist).
func ringEdges(radius, maxDist float64) []float64 {
	edges := []float64{0}
	if radius > 0 {
		for r := radius; r < maxDist; r *= 1.5 {
			edges = append(edges, r)
		}
	}
	return append(edges, maxDist)
}

// Diagonal returns the condensed upper-triangle vector of the sampled
// distance matrix; unsampled pairs read as +Inf.
func (s *RasterEquidistant) Diagonal(subset []int) ([]float64, error) {
	d, err := s.Distances()
	if err != nil {
		return nil, err
	}
	return diagonal(d, s.Len(), subset), nil
}

// FindClosest returns the indices of sampled points within maxDist of
// point i, at most k of them.
func (s *RasterEquidistant) FindClosest(i int, maxDist float64, k int) ([]int, error) {
	d, err := s.Distances()
	if err != nil {
		return nil, err
	}
	return closest(d, s.maxDist, maxDist, i, k)
}
