package engine

import (
	"github.com/xtaci/ecparity/kernel"
	"github.com/xtaci/ecparity/matrix"
	"github.com/xtaci/ecparity/rscode"
)

// Calculate produces parity from data.
func (c *Context) Calculate(data, parity [][]byte) error {
	if err := checkBlocks(data, c.N); err != nil {
		return err
	}
	if err := checkBlocks(parity, c.K); err != nil {
		return err
	}
	c.stats.calculateCalls.Add(1)
	c.stats.bytesEncoded.Add(totalLen(data))
	if c.Algo == XOR {
		return kernel.XorAll(data, parity[0])
	}
	return kernel.Code(c.P, data, parity)
}

// Diff updates parity in place for a single data-block change at idx.
// old and new must be full N-block sets so the byte length at idx can
// be validated against the rest of the stripe.
func (c *Context) Diff(old, new, parity [][]byte, idx int) error {
	if err := checkBlocks(old, c.N); err != nil {
		return err
	}
	if err := checkBlocks(new, c.N); err != nil {
		return err
	}
	if err := checkBlocks(parity, c.K); err != nil {
		return err
	}
	if idx < 0 || idx >= c.N {
		panic("engine: diff index out of range")
	}
	if len(old[idx]) != len(new[idx]) {
		return ErrShape
	}

	c.stats.diffCalls.Add(1)
	delta := make([]byte, len(old[idx]))
	copy(delta, old[idx])
	if err := kernel.Xor(delta, new[idx]); err != nil {
		return err
	}

	if c.Algo == XOR {
		return kernel.Xor(parity[0], delta)
	}
	for r := 0; r < c.K; r++ {
		if err := kernel.Gfaxpy(parity[r], delta, c.P.At(r, idx)); err != nil {
			return err
		}
	}
	return nil
}

// Refine is semantically equivalent to a full recompute of parity from
// data after a change at changedIdx; no delta optimization is promised.
func (c *Context) Refine(data, parity [][]byte, changedIdx int) error {
	if changedIdx < 0 || changedIdx >= c.N {
		panic("engine: refine index out of range")
	}
	return c.Calculate(data, parity)
}

// BufferXor computes dst ^= src over one block. Applying it twice with
// the same src is identity on dst.
func BufferXor(dst, src []byte) error {
	return kernel.Xor(dst, src)
}

// RecoverAlgo selects how recover synthesizes its decode matrix.
type RecoverAlgo int

const (
	// Gaussian recomputes the survivor inverse from scratch every call.
	Gaussian RecoverAlgo = iota
	// Inverse inverts the survivor matrix and derives the decode matrix
	// from that inverse via rscode.DecodeMatrixFromInverse. Recover does
	// not keep the inverse between calls; RecovMatGen/Apply is the cached
	// path.
	Inverse
)

// splitFails extracts ascending alive and failed index lists from a
// failure vector of length N+K, nonzero at index i iff block i is
// failed.
func splitFails(fails []byte, n, k int) (alive, failed []int) {
	for i := 0; i < n+k; i++ {
		if fails[i] != 0 {
			failed = append(failed, i)
		} else {
			alive = append(alive, i)
		}
	}
	return alive, failed
}

// ErrUnrecoverable is returned when the extracted survivor matrix is
// singular and the failed blocks cannot be reconstructed.
var ErrUnrecoverable = matrix.ErrSingular

// Recover reconstructs every block marked failed in fails. data and
// parity are read for surviving blocks and written for failed ones.
func (c *Context) Recover(data, parity [][]byte, fails []byte, algo RecoverAlgo) error {
	if len(fails) != c.N+c.K {
		return ErrShape
	}
	if err := checkBlocks(data, c.N); err != nil {
		return err
	}
	if err := checkBlocks(parity, c.K); err != nil {
		return err
	}

	alive, failed := splitFails(fails, c.N, c.K)
	if len(failed) == 0 {
		return nil
	}
	if len(alive) < c.N {
		return rscode.ErrTooFewSurvivors
	}
	c.stats.recoverCalls.Add(1)

	block := func(idx int) []byte {
		if idx < c.N {
			return data[idx]
		}
		return parity[idx-c.N]
	}

	if c.Algo == XOR {
		if len(failed) != 1 {
			panic("engine: XOR recover supports exactly one failure")
		}
		f := failed[0]
		if f >= c.N {
			return c.Calculate(data, parity)
		}
		survivors := make([][]byte, 0, len(alive))
		for _, a := range alive {
			if a >= c.N {
				continue
			}
			survivors = append(survivors, data[a])
		}
		survivors = append(survivors, parity[0])
		if err := kernel.XorAll(survivors, data[f]); err != nil {
			return err
		}
		c.stats.bytesRecovered.Add(uint64(len(data[f])))
		return nil
	}

	var decode *matrix.Matrix
	switch algo {
	case Inverse:
		t := c.E.SelectRows(alive[:c.N])
		inv, err := t.Invert()
		if err != nil {
			return err
		}
		decode, err = rscode.DecodeMatrixFromInverse(c.E, c.N, inv, failed)
		if err != nil {
			return err
		}
	default: // Gaussian
		var err error
		decode, _, err = rscode.DecodeMatrix(c.E, c.N, alive, failed)
		if err != nil {
			return err
		}
	}

	// The decode matrix maps exactly the N selected survivors; alive
	// blocks beyond the first N do not contribute.
	survivors := make([][]byte, c.N)
	for i, a := range alive[:c.N] {
		survivors[i] = block(a)
	}
	outputs := make([][]byte, len(failed))
	for i, f := range failed {
		outputs[i] = block(f)
	}

	if err := kernel.Code(decode, survivors, outputs); err != nil {
		return err
	}
	c.stats.bytesRecovered.Add(totalLen(outputs))
	return nil
}

// RecovMat caches the survivor inverse for repeated INVERSE-mode
// recovery against the same failure pattern, so a caller recovering
// many stripes that share one failure pattern pays the Gauss-Jordan
// inversion once.
type RecovMat struct {
	ctx     *Context
	alive   []int
	failed  []int
	inverse *matrix.Matrix
}

// RecovMatGen precomputes and caches the survivor inverse for fails.
func (c *Context) RecovMatGen(fails []byte) (*RecovMat, error) {
	if len(fails) != c.N+c.K {
		return nil, ErrShape
	}
	alive, failed := splitFails(fails, c.N, c.K)
	if len(alive) < c.N {
		return nil, rscode.ErrTooFewSurvivors
	}
	t := c.E.SelectRows(alive[:c.N])
	inv, err := t.Invert()
	if err != nil {
		return nil, err
	}
	return &RecovMat{ctx: c, alive: alive, failed: failed, inverse: inv}, nil
}

// Apply runs bulk recovery for rm's cached failure pattern against the
// given data/parity blocks.
func (rm *RecovMat) Apply(data, parity [][]byte) error {
	c := rm.ctx
	if err := checkBlocks(data, c.N); err != nil {
		return err
	}
	if err := checkBlocks(parity, c.K); err != nil {
		return err
	}
	if len(rm.failed) == 0 {
		return nil
	}

	block := func(idx int) []byte {
		if idx < c.N {
			return data[idx]
		}
		return parity[idx-c.N]
	}

	decode, err := rscode.DecodeMatrixFromInverse(c.E, c.N, rm.inverse, rm.failed)
	if err != nil {
		return err
	}
	survivors := make([][]byte, c.N)
	for i, a := range rm.alive[:c.N] {
		survivors[i] = block(a)
	}
	outputs := make([][]byte, len(rm.failed))
	for i, f := range rm.failed {
		outputs[i] = block(f)
	}
	if err := kernel.Code(decode, survivors, outputs); err != nil {
		return err
	}
	c.stats.recoverCalls.Add(1)
	c.stats.bytesRecovered.Add(totalLen(outputs))
	return nil
}

// Destroy releases rm's cached inverse.
func (rm *RecovMat) Destroy() {
	rm.inverse = nil
}
