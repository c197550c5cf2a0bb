// Package kd provides a kd-tree spatial index over Euclidean
// coordinates, with the range queries needed to assemble sparse
// distance matrices.
package kd

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/rhugonnet/scikit-gstat/internal/sparse"
)

// point is a coordinate vector tagged with its position in the set the
// tree was built from.
type point struct {
	vec []float64
	id  int
}

func (p point) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.vec[d] - c.(point).vec[d]
}

func (p point) Dims() int { return len(p.vec) }

// Distance returns the squared Euclidean distance; range radii must be
// squared to match.
func (p point) Distance(c kdtree.Comparable) float64 {
	q := c.(point)
	var sum float64
	for i, v := range p.vec {
		d := v - q.vec[i]
		sum += d * d
	}
	return sum
}

type points []point

func (p points) Index(i int) kdtree.Comparable         { return p[i] }
func (p points) Len() int                              { return len(p) }
func (p points) Slice(start, end int) kdtree.Interface { return p[start:end] }

func (p points) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(plane{points: p, Dim: d},
		kdtree.MedianOfRandoms(plane{points: p, Dim: d}, 100))
}

type plane struct {
	points
	kdtree.Dim
}

func (p plane) Less(i, j int) bool {
	return p.points[i].vec[p.Dim] < p.points[j].vec[p.Dim]
}

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	return plane{points: p.points[start:end], Dim: p.Dim}
}

func (p plane) Swap(i, j int) {
	p.points[i], p.points[j] = p.points[j], p.points[i]
}

// Tree is a spatial index over a list of coordinates. Query results
// identify points by their position in the list passed to New.
type Tree struct {
	tree *kdtree.Tree
	pts  points
}

// New builds a Tree over coords. The coordinates are referenced, not
// copied; callers must not mutate them afterwards.
func New(coords [][]float64) *Tree {
	pts := make(points, len(coords))
	for i, c := range coords {
		pts[i] = point{vec: c, id: i}
	}

	t := &Tree{pts: pts}
	if len(pts) > 0 {
		t.tree = kdtree.New(pts, true)
	}
	return t
}

// Len returns the number of indexed points.
func (t *Tree) Len() int { return len(t.pts) }

// Within returns the ids of all points at distance <= r from q,
// together with their distances.
func (t *Tree) Within(q []float64, r float64) (ids []int, dists []float64) {
	if t.tree == nil {
		return nil, nil
	}

	keep := kdtree.NewDistKeeper(r * r)
	t.tree.NearestSet(keep, point{vec: q, id: -1})

	for _, c := range keep.Heap {
		if c.Comparable == nil {
			continue // the keeper's radius sentinel
		}
		ids = append(ids, c.Comparable.(point).id)
		dists = append(dists, math.Sqrt(c.Dist))
	}
	return ids, dists
}

// SelfRange returns an entry for every ordered pair (i, j), i != j, of
// indexed points with distance <= maxDist. The diagonal is skipped so
// that sparse self-distance matrices do not store it.
func (t *Tree) SelfRange(maxDist float64) []sparse.Entry {
	var entries []sparse.Entry
	for _, p := range t.pts {
		ids, dists := t.Within(p.vec, maxDist)
		for k, j := range ids {
			if j == p.id {
				continue
			}
			entries = append(entries, sparse.Entry{Row: p.id, Col: j, Val: dists[k]})
		}
	}
	return entries
}

// CrossRange returns an entry for every pair (i in t, j in u) with
// distance <= maxDist.
func (t *Tree) CrossRange(u *Tree, maxDist float64) []sparse.Entry {
	var entries []sparse.Entry
	for _, p := range t.pts {
		ids, dists := u.Within(p.vec, maxDist)
		for k, j := range ids {
			entries = append(entries, sparse.Entry{Row: p.id, Col: j, Val: dists[k]})
		}
	}
	return entries
}
