// Package rscode builds the Reed-Solomon coefficient tables used by the
// engine and IR packages: the systematic Vandermonde generator matrix for
// a given (N, K), and the per-recovery decode matrix synthesized from an
// alive/failed index split.
package rscode

import (
	"github.com/pkg/errors"
	"github.com/xtaci/ecparity/gf"
	"github.com/xtaci/ecparity/matrix"
)

// ErrUnsupportedShape is returned when (N, K) cannot produce a systematic
// generator matrix (the normalized top block is not the identity).
var ErrUnsupportedShape = errors.New("rscode: (N,K) does not normalize to a systematic generator")

// ErrInvalidShape is returned for out-of-range N, K.
var ErrInvalidShape = errors.New("rscode: invalid N or K")

// MaxN is the largest supported number of data blocks.
const MaxN = 128

// vandermonde builds the (rows x cols) matrix E[y][x] = y^x over GF(2^8).
func vandermonde(rows, cols int) *matrix.Matrix {
	m := matrix.New(rows, cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			m.Set(y, x, gf.Pow(uint8(y), x))
		}
	}
	return m
}

// BuildGenerator builds the systematic (N+K) x N encoding matrix E for
// the given N, K: a Vandermonde matrix whose top N x N block has been
// normalized to the identity by column operations, leaving the bottom
// K x N block as the parity matrix P.
func BuildGenerator(n, k int) (*matrix.Matrix, error) {
	if n <= 0 || k <= 0 || n > MaxN || n+k > gf.Size {
		return nil, ErrInvalidShape
	}

	vm := vandermonde(n+k, n)

	top, err := vm.SubMatrix(0, 0, n, n)
	if err != nil {
		return nil, err
	}
	topInv, err := top.Invert()
	if err != nil {
		return nil, errors.Wrap(ErrUnsupportedShape, "vandermonde top block is singular")
	}

	e, err := vm.Multiply(topInv)
	if err != nil {
		return nil, err
	}

	normalizedTop, err := e.SubMatrix(0, 0, n, n)
	if err != nil {
		return nil, err
	}
	if !normalizedTop.IsIdentity() {
		return nil, ErrUnsupportedShape
	}

	return e, nil
}

// ParitySubmatrix returns the bottom K x N block of the generator matrix,
// the coefficients used to compute parity from data.
func ParitySubmatrix(e *matrix.Matrix, n, k int) (*matrix.Matrix, error) {
	return e.SubMatrix(n, 0, k, n)
}
