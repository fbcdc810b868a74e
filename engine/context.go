// Package engine presents the encode/diff/recover facade over a fixed
// (N, K) math context, dispatching to a plain-XOR codec when K=1 and to
// the full Reed-Solomon byte kernel otherwise. A Context is immutable
// after Init; it may be shared read-only across goroutines once built.
package engine

import (
	"github.com/pkg/errors"
	"github.com/xtaci/ecparity/matrix"
	"github.com/xtaci/ecparity/rscode"
)

// Algorithm tags the codec a Context dispatches to.
type Algorithm int

const (
	// XOR is used when K=1: parity is the XOR of all data blocks.
	XOR Algorithm = iota
	// RS is used when K>=2: full Vandermonde-based Reed-Solomon coding.
	RS
)

func (a Algorithm) String() string {
	if a == XOR {
		return "XOR"
	}
	return "RS"
}

// ErrInvalidShape is returned by Init when N or K is out of the
// supported range (1 <= K <= N <= 128).
var ErrInvalidShape = errors.New("engine: invalid N or K")

// Context holds everything needed to code one stripe shape: N, K, the
// algorithm tag, the systematic encoding matrix E, and its parity
// submatrix P.
type Context struct {
	N, K int
	Algo Algorithm
	E    *matrix.Matrix
	P    *matrix.Matrix

	stats stats
}

// Init builds a math context for (N, K).
func Init(n, k int) (*Context, error) {
	if k < 1 || n < k || n > rscode.MaxN {
		return nil, ErrInvalidShape
	}

	algo := RS
	if k == 1 {
		algo = XOR
	}

	e, err := rscode.BuildGenerator(n, k)
	if err != nil {
		return nil, err
	}
	p, err := rscode.ParitySubmatrix(e, n, k)
	if err != nil {
		return nil, err
	}

	return &Context{N: n, K: k, Algo: algo, E: e, P: p}, nil
}

// Fini releases a Context. The Go runtime reclaims the matrices via the
// garbage collector; this exists for callers that pool/track contexts
// explicitly and pair every Init with a Fini.
func (c *Context) Fini() {}

func checkBlocks(blocks [][]byte, want int) error {
	if len(blocks) != want {
		return ErrShape
	}
	if len(blocks) == 0 {
		return nil
	}
	l := len(blocks[0])
	for _, b := range blocks {
		if len(b) != l {
			return ErrShape
		}
	}
	return nil
}

// ErrShape is returned when block counts or lengths are inconsistent.
var ErrShape = errors.New("engine: block count or length mismatch")
