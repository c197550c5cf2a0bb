// Package sparse implements a compressed sparse row matrix for distance
// data. Stored entries may be explicit zeros (coincident points); an
// absent entry means the pair was never measured, not that its distance
// is zero.
package sparse

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Entry is one stored value in coordinate format.
type Entry struct {
	Row, Col int
	Val      float64
}

// CSR is a compressed sparse row matrix. It satisfies mat.Matrix, with
// At reporting 0 for absent entries per sparse-storage convention; use
// Dense with an explicit fill value where that distinction matters.
type CSR struct {
	rows, cols int
	indptr     []int
	indices    []int
	data       []float64
}

// New builds a CSR matrix from entries. Entries are ordered by (row, col)
// with a stable sort; when the same position occurs more than once, the
// first occurrence wins and later ones are dropped.
func New(rows, cols int, entries []Entry) *CSR {
	es := make([]Entry, len(entries))
	copy(es, entries)

	sort.SliceStable(es, func(i, j int) bool {
		if es[i].Row != es[j].Row {
			return es[i].Row < es[j].Row
		}
		return es[i].Col < es[j].Col
	})

	m := &CSR{
		rows:    rows,
		cols:    cols,
		indptr:  make([]int, rows+1),
		indices: make([]int, 0, len(es)),
		data:    make([]float64, 0, len(es)),
	}

	prevRow, prevCol := -1, -1
	for _, e := range es {
		if e.Row < 0 || e.Row >= rows || e.Col < 0 || e.Col >= cols {
			panic("sparse: entry out of range")
		}
		if e.Row == prevRow && e.Col == prevCol {
			continue // duplicate; keep the first
		}
		m.indices = append(m.indices, e.Col)
		m.data = append(m.data, e.Val)
		m.indptr[e.Row+1]++
		prevRow, prevCol = e.Row, e.Col
	}
	for i := 0; i < rows; i++ {
		m.indptr[i+1] += m.indptr[i]
	}
	return m
}

// Dims returns the matrix dimensions.
func (m *CSR) Dims() (r, c int) { return m.rows, m.cols }

// At returns the stored value at (i, j), or 0 when no entry is stored.
func (m *CSR) At(i, j int) float64 {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		panic("sparse: index out of range")
	}
	lo, hi := m.indptr[i], m.indptr[i+1]
	k := lo + sort.SearchInts(m.indices[lo:hi], j)
	if k < hi && m.indices[k] == j {
		return m.data[k]
	}
	return 0
}

// T returns the transpose of the matrix.
func (m *CSR) T() mat.Matrix { return mat.Transpose{Matrix: m} }

// Has reports whether an entry is stored at (i, j).
func (m *CSR) Has(i, j int) bool {
	lo, hi := m.indptr[i], m.indptr[i+1]
	k := lo + sort.SearchInts(m.indices[lo:hi], j)
	return k < hi && m.indices[k] == j
}

// NNZ returns the number of stored entries.
func (m *CSR) NNZ() int { return len(m.data) }

// Row returns the stored entries of row i: column indices in ascending
// order and the corresponding values. The slices share the matrix's
// backing storage and must not be modified.
func (m *CSR) Row(i int) (cols []int, vals []float64) {
	if i < 0 || i >= m.rows {
		panic("sparse: row index out of range")
	}
	lo, hi := m.indptr[i], m.indptr[i+1]
	return m.indices[lo:hi], m.data[lo:hi]
}

// Dense expands the matrix to dense form, writing fill into every
// position that has no stored entry.
func (m *CSR) Dense(fill float64) *mat.Dense {
	d := mat.NewDense(m.rows, m.cols, nil)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			d.Set(i, j, fill)
		}
	}
	for i := 0; i < m.rows; i++ {
		cols, vals := m.Row(i)
		for k, j := range cols {
			d.Set(i, j, vals[k])
		}
	}
	return d
}
