// Package matrix implements dense matrix algebra over gf.GF(2^8): element
// access, submatrix extraction, column operations, matrix-vector and
// matrix-matrix multiply, and Gauss-Jordan inversion. It is the shared
// linear-algebra layer under the coefficient builder (package rscode) and
// the incremental-recovery decode-matrix synthesis (package ir).
package matrix

import (
	"github.com/pkg/errors"
	"github.com/xtaci/ecparity/gf"
)

// ErrSingular is returned by Invert when a pivot column is entirely zero.
// This is not necessarily a programmer error: pathological failure
// patterns can produce a non-invertible survivor submatrix, and the
// caller (the repair scheduler) must be able to observe and react to it.
var ErrSingular = errors.New("matrix: singular, cannot invert")

// ErrShape is returned when an operation is given matrices of incompatible
// dimensions.
var ErrShape = errors.New("matrix: incompatible shape")

// Matrix is a dense row-major matrix over GF(2^8).
type Matrix struct {
	rows, cols int
	data       [][]uint8
}

// New allocates a zeroed rows x cols matrix.
func New(rows, cols int) *Matrix {
	data := make([][]uint8, rows)
	for r := range data {
		data[r] = make([]uint8, cols)
	}
	return &Matrix{rows: rows, cols: cols, data: data}
}

// Identity returns the n x n identity matrix.
func Identity(n int) *Matrix {
	m := New(n, n)
	for i := 0; i < n; i++ {
		m.data[i][i] = 1
	}
	return m
}

// Rows reports the number of rows.
func (m *Matrix) Rows() int { return m.rows }

// Cols reports the number of columns.
func (m *Matrix) Cols() int { return m.cols }

// At returns the element at (r, c).
func (m *Matrix) At(r, c int) uint8 { return m.data[r][c] }

// Set assigns the element at (r, c).
func (m *Matrix) Set(r, c int, v uint8) { m.data[r][c] = v }

// Row returns the backing slice for row r; mutating it mutates the matrix.
func (m *Matrix) Row(r int) []uint8 { return m.data[r] }

// RowCopy copies row r into a freshly allocated slice.
func (m *Matrix) RowCopy(r int) []uint8 {
	out := make([]uint8, m.cols)
	copy(out, m.data[r])
	return out
}

// SubMatrix extracts the rRows x cCols submatrix starting at (rOff, cOff).
func (m *Matrix) SubMatrix(rOff, cOff, rRows, cCols int) (*Matrix, error) {
	if rOff < 0 || cOff < 0 || rOff+rRows > m.rows || cOff+cCols > m.cols {
		return nil, ErrShape
	}
	out := New(rRows, cCols)
	for r := 0; r < rRows; r++ {
		copy(out.data[r], m.data[rOff+r][cOff:cOff+cCols])
	}
	return out, nil
}

// SelectRows builds a new matrix from the rows of m at the given indices,
// in the order the indices are given. Used to build the survivor
// submatrix from an alive index set.
func (m *Matrix) SelectRows(idx []int) *Matrix {
	out := New(len(idx), m.cols)
	for i, r := range idx {
		copy(out.data[i], m.data[r])
	}
	return out
}

// ColOperate applies op(m[r][col], scalar) to every row of column col,
// in place.
func (m *Matrix) ColOperate(col int, scalar uint8, op func(a, b uint8) uint8) {
	for r := 0; r < m.rows; r++ {
		m.data[r][col] = op(m.data[r][col], scalar)
	}
}

// ColsOperate folds scalar*src-column into dst-column for every row:
// m[r][dst] = op(m[r][dst], scalar*m[r][src]).
func (m *Matrix) ColsOperate(dst, src int, scalar uint8, op func(a, b uint8) uint8) {
	for r := 0; r < m.rows; r++ {
		m.data[r][dst] = op(m.data[r][dst], gf.Mul(scalar, m.data[r][src]))
	}
}

// Multiply computes m x other, requiring m.cols == other.rows.
func (m *Matrix) Multiply(other *Matrix) (*Matrix, error) {
	if m.cols != other.rows {
		return nil, ErrShape
	}
	out := New(m.rows, other.cols)
	for r := 0; r < m.rows; r++ {
		for c := 0; c < other.cols; c++ {
			var acc uint8
			for k := 0; k < m.cols; k++ {
				acc ^= gf.Mul(m.data[r][k], other.data[k][c])
			}
			out.data[r][c] = acc
		}
	}
	return out, nil
}

// MultiplyVector computes m x v, a column vector of length m.cols.
func (m *Matrix) MultiplyVector(v []uint8) ([]uint8, error) {
	if len(v) != m.cols {
		return nil, ErrShape
	}
	out := make([]uint8, m.rows)
	for r := 0; r < m.rows; r++ {
		var acc uint8
		row := m.data[r]
		for k, vk := range v {
			acc ^= gf.Mul(row[k], vk)
		}
		out[r] = acc
	}
	return out, nil
}

// Augment returns a new matrix with other's columns appended after m's,
// requiring equal row counts.
func (m *Matrix) Augment(other *Matrix) (*Matrix, error) {
	if m.rows != other.rows {
		return nil, ErrShape
	}
	out := New(m.rows, m.cols+other.cols)
	for r := 0; r < m.rows; r++ {
		copy(out.data[r], m.data[r])
		copy(out.data[r][m.cols:], other.data[r])
	}
	return out, nil
}

// Invert computes the inverse of a square matrix by Gauss-Jordan
// elimination over GF(2^8). It returns ErrSingular when a pivot column
// is entirely zero; this is a normal, expected outcome for pathological
// failure patterns and must be surfaced to the caller, never papered
// over.
func (m *Matrix) Invert() (*Matrix, error) {
	if m.rows != m.cols {
		return nil, ErrShape
	}
	n := m.rows
	work, err := m.Augment(Identity(n))
	if err != nil {
		return nil, err
	}

	for col := 0; col < n; col++ {
		// Find a nonzero pivot in this column at or below the diagonal.
		pivot := -1
		for r := col; r < n; r++ {
			if work.data[r][col] != 0 {
				pivot = r
				break
			}
		}
		if pivot == -1 {
			return nil, ErrSingular
		}
		if pivot != col {
			work.data[pivot], work.data[col] = work.data[col], work.data[pivot]
		}

		// Scale the pivot row so the pivot element becomes 1.
		if work.data[col][col] != 1 {
			scale := gf.Inv(work.data[col][col])
			row := work.data[col]
			for c := range row {
				row[c] = gf.Mul(row[c], scale)
			}
		}

		// Eliminate this column from every other row.
		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			factor := work.data[r][col]
			if factor == 0 {
				continue
			}
			dst := work.data[r]
			src := work.data[col]
			for c := range dst {
				dst[c] ^= gf.Mul(factor, src[c])
			}
		}
	}

	inv, err := work.SubMatrix(0, n, n, n)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// IsIdentity reports whether m is the n x n identity matrix. Used to
// verify that a normalized generator's top block came out systematic.
func (m *Matrix) IsIdentity() bool {
	if m.rows != m.cols {
		return false
	}
	for r := 0; r < m.rows; r++ {
		for c := 0; c < m.cols; c++ {
			want := uint8(0)
			if r == c {
				want = 1
			}
			if m.data[r][c] != want {
				return false
			}
		}
	}
	return true
}

// Clone returns a deep copy of m.
func (m *Matrix) Clone() *Matrix {
	out := New(m.rows, m.cols)
	for r := range m.data {
		copy(out.data[r], m.data[r])
	}
	return out
}
