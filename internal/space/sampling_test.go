package space

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

// gridCoords lays out an n x n grid with unit spacing.
func gridCoords(n int) [][]float64 {
	coords := make([][]float64, 0, n*n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			coords = append(coords, []float64{float64(x), float64(y)})
		}
	}
	return coords
}

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func TestProbabilisticIndices(t *testing.T) {
	coords := gridCoords(10)
	s, err := NewProbabilistic(coords, "euclidean", 0, 20, seeded(1))
	require.NoError(t, err)

	assert.Equal(t, 20, s.SampleCount())

	for _, idx := range [][]int{s.LeftIndices(), s.RightIndices()} {
		require.Len(t, idx, 20)
		seen := make(map[int]bool)
		for _, i := range idx {
			assert.GreaterOrEqual(t, i, 0)
			assert.Less(t, i, s.Len())
			assert.False(t, seen[i], "index %d drawn twice", i)
			seen[i] = true
		}
	}

	// Cached after the first draw.
	assert.Equal(t, s.LeftIndices(), s.LeftIndices())
}

func TestProbabilisticFraction(t *testing.T) {
	s, err := NewProbabilistic(gridCoords(10), "euclidean", 0, 0.25, seeded(1))
	require.NoError(t, err)
	assert.Equal(t, 25, s.SampleCount())

	s, err = NewProbabilistic(gridCoords(10), "euclidean", 0, 0, seeded(1))
	require.NoError(t, err)
	assert.Equal(t, 50, s.SampleCount(), "default samples half the points")
}

func TestProbabilisticDistances(t *testing.T) {
	coords := gridCoords(10)
	s, err := NewProbabilistic(coords, "euclidean", 0, 30, seeded(7))
	require.NoError(t, err)

	d, err := s.Distances()
	require.NoError(t, err)

	r, c := d.Dims()
	assert.Equal(t, s.Len(), r)
	assert.Equal(t, s.Len(), c)

	left := make(map[int]bool)
	for _, i := range s.LeftIndices() {
		left[i] = true
	}
	right := make(map[int]bool)
	for _, i := range s.RightIndices() {
		right[i] = true
	}

	sp := d.(sparseDists)
	assert.Greater(t, sp.NNZ(), 0)

	// Every stored position lies in left x right, and every stored value
	// is the true distance of the remapped global pair.
	for i := 0; i < r; i++ {
		cols, vals := sp.Row(i)
		if len(cols) > 0 {
			assert.True(t, left[i], "row %d not in the left sample", i)
		}
		for k, j := range cols {
			assert.True(t, right[j], "column %d not in the right sample", j)
			want := math.Hypot(coords[i][0]-coords[j][0], coords[i][1]-coords[j][1])
			assert.InDelta(t, want, vals[k], 1e-12, "remapped value for pair (%d, %d)", i, j)
		}
	}
}

func TestProbabilisticCutoff(t *testing.T) {
	s, err := NewProbabilistic(gridCoords(10), "euclidean", 3, 30, seeded(7))
	require.NoError(t, err)

	d, err := s.Distances()
	require.NoError(t, err)
	sp := d.(sparseDists)
	for i := 0; i < s.Len(); i++ {
		_, vals := sp.Row(i)
		for _, v := range vals {
			assert.LessOrEqual(t, v, 3.0)
		}
	}
}

func TestProbabilisticDeterminism(t *testing.T) {
	coords := gridCoords(10)

	a, err := NewProbabilistic(coords, "euclidean", 0, 30, seeded(42))
	require.NoError(t, err)
	b, err := NewProbabilistic(coords, "euclidean", 0, 30, seeded(42))
	require.NoError(t, err)

	assert.Equal(t, a.LeftIndices(), b.LeftIndices())
	assert.Equal(t, a.RightIndices(), b.RightIndices())

	da, err := a.Distances()
	require.NoError(t, err)
	db, err := b.Distances()
	require.NoError(t, err)
	assertSameSparse(t, da, db)
}

func TestProbabilisticUnsupportedMetric(t *testing.T) {
	s, err := NewProbabilistic(gridCoords(4), "cityblock", 0, 4, seeded(1))
	require.NoError(t, err)

	_, err = s.Distances()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedMetric)
}

func TestProbabilisticOversample(t *testing.T) {
	_, err := NewProbabilistic(gridCoords(3), "euclidean", 0, 100, seeded(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func rasterConfig(runs int, seed uint64) RasterConfig {
	return RasterConfig{
		Shape:   [2]int{10, 10},
		Extent:  [4]float64{0, 10, 0, 10},
		Runs:    runs,
		Samples: 10,
		Rnd:     seeded(seed),
	}
}

func TestRasterDefaults(t *testing.T) {
	coords := gridCoords(10)
	s, err := NewRasterEquidistant(coords, "euclidean", RasterConfig{
		Shape:  [2]int{10, 10},
		Extent: [4]float64{0, 10, 0, 10},
		Rnd:    seeded(1),
	})
	require.NoError(t, err)

	assert.InDelta(t, math.Sqrt2, s.Resolution(), 1e-12)
	assert.Equal(t, DefaultRuns, s.Runs())
	assert.Equal(t, 50, s.SampleCount(), "default samples half the points")
	assert.InDelta(t, 10*math.Sqrt2, s.MaxDist(), 1e-12, "default cutoff spans the grid")
}

func TestRasterDistances(t *testing.T) {
	coords := gridCoords(10)
	s, err := NewRasterEquidistant(coords, "euclidean", rasterConfig(5, 3))
	require.NoError(t, err)

	d, err := s.Distances()
	require.NoError(t, err)

	r, c := d.Dims()
	assert.Equal(t, s.Len(), r)
	assert.Equal(t, s.Len(), c)

	sp := d.(sparseDists)
	assert.Greater(t, sp.NNZ(), 0)

	// Every stored entry honors the cutoff and carries the true distance
	// of its global pair, round remapping included.
	for i := 0; i < r; i++ {
		cols, vals := sp.Row(i)
		for k, j := range cols {
			assert.LessOrEqual(t, vals[k], s.MaxDist())
			want := math.Hypot(coords[i][0]-coords[j][0], coords[i][1]-coords[j][1])
			assert.InDelta(t, want, vals[k], 1e-12, "stored value for pair (%d, %d)", i, j)
		}
	}
}

func TestRasterDeterminism(t *testing.T) {
	coords := gridCoords(10)

	a, err := NewRasterEquidistant(coords, "euclidean", rasterConfig(5, 99))
	require.NoError(t, err)
	b, err := NewRasterEquidistant(coords, "euclidean", rasterConfig(5, 99))
	require.NoError(t, err)

	da, err := a.Distances()
	require.NoError(t, err)
	db, err := b.Distances()
	require.NoError(t, err)
	assertSameSparse(t, da, db)
}

func TestRasterUnsupportedMetric(t *testing.T) {
	s, err := NewRasterEquidistant(gridCoords(10), "cityblock", rasterConfig(2, 1))
	require.NoError(t, err)

	_, err = s.Distances()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedMetric)
}

func TestRasterRejectsNon2D(t *testing.T) {
	_, err := NewRasterEquidistant([][]float64{{0, 0, 0}}, "euclidean", RasterConfig{
		Shape:  [2]int{1, 1},
		Extent: [4]float64{0, 1, 0, 1},
		Runs:   1,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestRingEdges(t *testing.T) {
	edges := ringEdges(2, 10)
	want := []float64{0, 2, 3, 4.5, 6.75, 10}
	require.Len(t, edges, len(want))
	for i := range want {
		assert.InDelta(t, want[i], edges[i], 1e-12)
	}

	// A center radius at or beyond the cutoff leaves one ring, as does
	// a degenerate zero radius.
	assert.Equal(t, []float64{0, 10}, ringEdges(10, 10))
	assert.Equal(t, []float64{0, 10}, ringEdges(0, 10))
}

func TestRasterZeroSampleCount(t *testing.T) {
	// A single point with the default fractional sample size resolves to
	// a sample count of 0 and a center radius of 0. Every round is then
	// empty; the result is a valid matrix with nothing stored.
	s, err := NewRasterEquidistant([][]float64{{0, 0}}, "euclidean", RasterConfig{
		Shape:  [2]int{1, 1},
		Extent: [4]float64{0, 1, 0, 1},
		Runs:   1,
		Rnd:    seeded(1),
	})
	require.NoError(t, err)
	require.Equal(t, 0, s.SampleCount())
	require.Equal(t, 0.0, s.CenterRadius())

	d, err := s.Distances()
	require.NoError(t, err)

	r, c := d.Dims()
	assert.Equal(t, 1, r)
	assert.Equal(t, 1, c)
	assert.Equal(t, 0, d.(sparseDists).NNZ())
}

// assertSameSparse compares the stored structure and values of two
// sparse matrices.
func assertSameSparse(t *testing.T, a, b Dists) {
	t.Helper()

	sa := a.(sparseDists)
	sb := b.(sparseDists)
	require.Equal(t, sa.NNZ(), sb.NNZ())

	r, _ := a.Dims()
	for i := 0; i < r; i++ {
		ca, va := sa.Row(i)
		cb, vb := sb.Row(i)
		assert.Equal(t, ca, cb, "row %d columns differ", i)
		assert.Equal(t, va, vb, "row %d values differ", i)
	}
}

func BenchmarkRasterDistances(b *testing.B) {
	coords := gridCoords(50)
	cfg := RasterConfig{
		Shape:   [2]int{50, 50},
		Extent:  [4]float64{0, 50, 0, 50},
		Runs:    10,
		Samples: 100,
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cfg.Rnd = seeded(uint64(i) + 1)
		s, err := NewRasterEquidistant(coords, "euclidean", cfg)
		if err != nil {
			b.Fatal(err)
		}
		if _, err := s.Distances(); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSparseDistances(b *testing.B) {
	coords := gridCoords(40)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s, err := New(coords, "euclidean", 5)
		if err != nil {
			b.Fatal(err)
		}
		if _, err := s.Distances(); err != nil {
			b.Fatal(err)
		}
	}
}
