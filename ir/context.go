// Package ir implements the Incremental Recovery state machine: a
// per-stripe context that accepts one survivor contribution at a time
// (local or remote, raw or already-summed) and cumulatively reconstructs
// every failed block, without ever materializing all N survivors at
// once.
package ir

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/xtaci/ecparity/bufvec"
	"github.com/xtaci/ecparity/engine"
	"github.com/xtaci/ecparity/matrix"
	"github.com/xtaci/ecparity/rscode"
)

// InvalidCol is the sentinel data_recov_mat_col value for an alive
// block that is not one of the N selected data-recovery contributors.
const InvalidCol = -1

// Status is an IR block's lifecycle state. It transitions exactly once,
// ALIVE -> FAILED.
type Status int

const (
	Alive Status = iota
	Failed
)

// BlockType distinguishes a LOCAL survivor contribution (untransformed,
// single block) from a REMOTE one (already summed across several
// blocks, described by its bitmap).
type BlockType int

const (
	Local BlockType = iota
	Remote
)

// Errors returned by the IR entry points.
var (
	ErrOverQuota      = errors.New("ir: alive block count dropped below N")
	ErrAlreadyFailed  = errors.New("ir: block already marked failed")
	ErrMatNotComputed = errors.New("ir: recovery matrices have not been computed")
	ErrTerminal       = errors.New("ir: context is terminal after a singular matrix")
)

// block is one stripe position's IR bookkeeping.
type block struct {
	idx             int
	status          Status
	addr            *bufvec.BufVec
	recovMatRow     int
	dataRecovMatCol int
	bitmap          Bitmap
}

// Context is the per-stripe mutable IR state.
type Context struct {
	math *engine.Context

	blocks []block

	siDataNr, siParityNr   int
	siLocalNr              int
	siFailedDataNr         int
	siAliveNr              int

	dataRecovMat *matrix.Matrix // shape: len(failedData) x N
	mixed        bool
	matComputed  bool
	terminal     bool
}

// Init builds a fresh IR context for math. localNr is the number of
// untransformed LOCAL contributions the caller expects to deliver
// before IR can complete.
func Init(math *engine.Context, localNr int) (*Context, error) {
	n, k := math.N, math.K
	c := &Context{
		math:       math,
		blocks:     make([]block, n+k),
		siDataNr:   n,
		siParityNr: k,
		siLocalNr:  localNr,
		siAliveNr:  n + k,
	}
	for i := range c.blocks {
		c.blocks[i] = block{idx: i, status: Alive, dataRecovMatCol: InvalidCol}
	}
	return c, nil
}

// FailureRegister marks blocks[failedIndex] FAILED and attaches addr as
// its reconstruction buffer.
func (c *Context) FailureRegister(addr *bufvec.BufVec, failedIndex int) error {
	b := &c.blocks[failedIndex]
	if b.status == Failed {
		return ErrAlreadyFailed
	}
	b.status = Failed
	b.addr = addr
	if failedIndex < c.math.N {
		c.siFailedDataNr++
	}
	c.siAliveNr--
	if c.siAliveNr < c.math.N {
		return ErrOverQuota
	}
	return nil
}

// aliveIndices returns the ascending list of currently-ALIVE block
// indices.
func (c *Context) aliveIndices() []int {
	var out []int
	for i := range c.blocks {
		if c.blocks[i].status == Alive {
			out = append(out, i)
		}
	}
	return out
}

func (c *Context) failedDataIndices() []int {
	var out []int
	for i := 0; i < c.math.N; i++ {
		if c.blocks[i].status == Failed {
			out = append(out, i)
		}
	}
	return out
}

func (c *Context) failedParityIndices() []int {
	var out []int
	for i := c.math.N; i < c.math.N+c.math.K; i++ {
		if c.blocks[i].status == Failed {
			out = append(out, i)
		}
	}
	return out
}

// MatCompute assigns a data-recovery column to the first N alive
// blocks, builds the data-recovery matrix if any data block failed,
// assigns each failed block's recovery-matrix row, and primes the
// dependency bitmaps.
func (c *Context) MatCompute() error {
	alive := c.aliveIndices()
	if len(alive) < c.math.N {
		return rscode.ErrTooFewSurvivors
	}
	sort.Ints(alive)
	contributors := alive[:c.math.N]
	for i, a := range contributors {
		c.blocks[a].dataRecovMatCol = i
	}

	failedData := c.failedDataIndices()
	failedParity := c.failedParityIndices()
	c.mixed = len(failedData) > 0 && len(failedParity) > 0

	if len(failedData) > 0 {
		decode, _, err := rscode.DecodeMatrix(c.math.E, c.math.N, contributors, failedData)
		if err != nil {
			c.terminal = true
			return err
		}
		c.dataRecovMat = decode
	}

	for row, f := range failedData {
		b := &c.blocks[f]
		b.recovMatRow = row
		for _, a := range contributors {
			b.bitmap.Set(a)
		}
	}
	for _, f := range failedParity {
		b := &c.blocks[f]
		b.recovMatRow = f - c.math.N
		for d := 0; d < c.math.N; d++ {
			b.bitmap.Set(d)
		}
	}

	c.matComputed = true
	return nil
}

// Fini releases the context; pairs with Init.
func (c *Context) Fini() {}

// Done reports whether every failed block's dependency bitmap is empty.
func (c *Context) Done() bool {
	for i := range c.blocks {
		if c.blocks[i].status == Failed && !c.blocks[i].bitmap.Empty() {
			return false
		}
	}
	return true
}
