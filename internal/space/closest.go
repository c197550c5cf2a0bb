package space

import (
	"fmt"
	"sort"
)

// closest implements the neighbor query shared by single spaces and
// space pairs, over any Dists row.
//
// spaceMax is the cutoff the matrix was built with (0 for none);
// queryMax is the per-call cutoff (0 to inherit). A positive queryMax
// that disagrees with a positive spaceMax is a configuration error.
//
// Candidates are the stored columns of row i (sparse) or the columns
// within the cutoff (dense). When more than k candidates exist they are
// stable-sorted by distance and truncated to k; otherwise their storage
// order is preserved untouched, so callers get reproducible results in
// both regimes.
func closest(d Dists, spaceMax, queryMax float64, i, k int) ([]int, error) {
	if queryMax > 0 && spaceMax > 0 && queryMax != spaceMax {
		return nil, fmt.Errorf("%w: query cutoff %f != space cutoff %f",
			ErrConfiguration, queryMax, spaceMax)
	}
	cutoff := queryMax
	if cutoff <= 0 {
		cutoff = spaceMax
	}

	r, _ := d.Dims()
	if i < 0 || i >= r {
		return nil, fmt.Errorf("%w: point index %d out of range [0, %d)", ErrConfiguration, i, r)
	}

	cols, dists := d.Row(i)

	var idx []int
	var dd []float64
	switch {
	case d.Sparse():
		// Every stored entry already honors the cutoff.
		idx, dd = cols, dists
	case cutoff > 0:
		for j, v := range dists {
			if v <= cutoff {
				idx = append(idx, cols[j])
				dd = append(dd, v)
			}
		}
	default:
		idx, dd = cols, dists
	}

	if k <= 0 || len(idx) <= k {
		return append([]int(nil), idx...), nil
	}

	// Truncation requires ordering by distance; ties keep their column
	// order, hence the stable sort.
	ord := make([]int, len(idx))
	for j := range ord {
		ord[j] = j
	}
	sort.SliceStable(ord, func(a, b int) bool { return dd[ord[a]] < dd[ord[b]] })

	out := make([]int, k)
	for j := 0; j < k; j++ {
		out[j] = idx[ord[j]]
	}
	return out, nil
}
