package rscode

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/xtaci/ecparity/matrix"
)

// ErrTooFewSurvivors is returned when fewer than N alive blocks are
// available to synthesize a decode matrix.
var ErrTooFewSurvivors = errors.New("rscode: fewer than N alive blocks")

// DecodeMatrix synthesizes the matrix mapping the N alive blocks in
// alive (given in ascending index order) to the len(failed) failed
// blocks (also ascending): row r of the result is row f of T^-1 for a
// failed data block f, or E[f] . T^-1 for a failed parity block, where
// T is the submatrix of e selected by alive's rows.
//
// survivorInverse is also returned so callers recovering many stripes
// against one failure pattern can cache it and skip the Gauss-Jordan
// step on subsequent calls.
func DecodeMatrix(e *matrix.Matrix, n int, alive, failed []int) (decodeMatrix, survivorInverse *matrix.Matrix, err error) {
	if len(alive) < n {
		return nil, nil, ErrTooFewSurvivors
	}
	if !sort.IntsAreSorted(alive) || !sort.IntsAreSorted(failed) {
		// Both callers (bulk recover and IR's mat_compute) build these in
		// ascending order; a caller that doesn't is a programmer error.
		panic("rscode: alive/failed index sets must be sorted ascending")
	}

	a := alive[:n]
	tRows := e.SelectRows(a)
	tInv, err := tRows.Invert()
	if err != nil {
		return nil, nil, err
	}

	decode := matrix.New(len(failed), n)
	for r, f := range failed {
		if f < n {
			copy(decode.Row(r), tInv.Row(f))
			continue
		}
		parityRow := matrix.New(1, n)
		copy(parityRow.Row(0), e.Row(f))
		product, err := parityRow.Multiply(tInv)
		if err != nil {
			return nil, nil, err
		}
		copy(decode.Row(r), product.Row(0))
	}

	return decode, tInv, nil
}

// DecodeMatrixFromInverse synthesizes the decode matrix from an
// already-computed survivor inverse, without repeating the Gauss-Jordan
// step. Each parity row's product with the inverse is computed exactly
// once, regardless of how many failed indices share the call.
func DecodeMatrixFromInverse(e *matrix.Matrix, n int, survivorInverse *matrix.Matrix, failed []int) (*matrix.Matrix, error) {
	decode := matrix.New(len(failed), n)
	for r, f := range failed {
		if f < n {
			copy(decode.Row(r), survivorInverse.Row(f))
			continue
		}
		parityRow := matrix.New(1, n)
		copy(parityRow.Row(0), e.Row(f))
		product, err := parityRow.Multiply(survivorInverse)
		if err != nil {
			return nil, err
		}
		copy(decode.Row(r), product.Row(0))
	}
	return decode, nil
}
