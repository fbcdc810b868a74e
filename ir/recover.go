package ir

import (
	"github.com/pkg/errors"
	"github.com/xtaci/ecparity/bufvec"
	"github.com/xtaci/ecparity/matrix"
)

// ErrBadBitmap is returned when a LOCAL contribution's single bit names
// a block that is not ALIVE or arrives after every announced LOCAL
// contribution has been absorbed, or when a REMOTE contribution's failed
// index is out of range or not FAILED. A LOCAL bitmap with other than
// exactly one bit set is not reported here: Bitmap.OnlyBit panics on it.
var ErrBadBitmap = errors.New("ir: malformed contribution bitmap")

// recoveryMat returns the matrix a failed block's recovery row is
// indexed against: the data recovery matrix for a failed data block,
// the constant parity submatrix P for a failed parity block.
func (c *Context) recoveryMat(failedIdx int) *matrix.Matrix {
	if failedIdx < c.math.N {
		return c.dataRecovMat
	}
	return c.math.P
}

// lastUsableBlockID returns, for a failed data block, the largest alive
// index whose data-recovery column has been assigned, or the sentinel
// N+K ("none usable") if no alive block has one yet; for a failed
// parity block, N-1 (only data contributes to parity reconstruction).
func (c *Context) lastUsableBlockID(failedIdx int) int {
	n, k := c.math.N, c.math.K
	if failedIdx >= n {
		return n - 1
	}
	lastUsable := n + k
	for i := 0; i < n+k; i++ {
		if c.blocks[i].status != Alive {
			continue
		}
		if c.blocks[i].dataRecovMatCol == InvalidCol {
			return lastUsable
		}
		lastUsable = i
	}
	return lastUsable
}

// incrRecover applies one alive block's weighted contribution to one
// failed block's reconstruction buffer, if that failed block still
// depends on it and the alive block is within its last-usable range.
func (c *Context) incrRecover(f, alive *block) error {
	lastUsable := c.lastUsableBlockID(f.idx)
	if alive.idx > lastUsable || !f.bitmap.Get(alive.idx) {
		return nil
	}
	mat := c.recoveryMat(f.idx)
	row := f.recovMatRow
	var col int
	if f.idx < c.math.N {
		col = alive.dataRecovMatCol
	} else {
		col = alive.idx
	}
	alpha := mat.At(row, col)
	return bufvec.Gfaxpy(f.addr, alive.addr, alpha)
}

// failedDataBlocksXform treats each now-fully-reconstructed failed-data
// block as a LOCAL contribution to every failed-parity block, run once
// all LOCAL contributions have been absorbed in a mixed failure
// pattern.
func (c *Context) failedDataBlocksXform() error {
	for i := range c.blocks {
		if c.blocks[i].idx >= c.math.N || c.blocks[i].status != Failed {
			continue
		}
		resBlock := &c.blocks[i]
		for j := range c.blocks {
			if c.blocks[j].idx < c.math.N || c.blocks[j].status != Failed {
				continue
			}
			parBlock := &c.blocks[j]
			if err := c.incrRecover(parBlock, resBlock); err != nil {
				return err
			}
			parBlock.bitmap.Clear(resBlock.idx)
		}
	}
	return nil
}

// forwardRectification treats an incoming REMOTE bufvec for a failed
// data block as if it were that block's (still partially reconstructed)
// buffer, and folds its weighted contribution into every failed parity
// block, so parity reconstruction tracks the partial data reconstruction
// while local absorption is still in progress.
func (c *Context) forwardRectification(in *bufvec.BufVec, failedIndex int) error {
	inBlock := c.blocks[failedIndex]
	inBlock.addr = in
	for j := range c.blocks {
		if c.blocks[j].idx < c.math.N || c.blocks[j].status != Failed {
			continue
		}
		if err := c.incrRecover(&c.blocks[j], &inBlock); err != nil {
			return err
		}
	}
	return nil
}

// IrRecover absorbs one contribution into the IR context. LOCAL
// contributions carry a bitmap with exactly one bit set (the survivor's
// own stripe index) and are applied, via incrRecover, to every failed
// block. REMOTE contributions carry a bitmap describing every index
// already summed into buf; they are applied only if usable and may
// trigger forward rectification for failed data blocks.
func (c *Context) IrRecover(buf *bufvec.BufVec, bitmap *Bitmap, failedIndex int, blockType BlockType) error {
	if c.terminal {
		return ErrTerminal
	}
	if !c.matComputed {
		return ErrMatNotComputed
	}

	switch blockType {
	case Local:
		if c.siLocalNr == 0 {
			return ErrBadBitmap
		}
		aliveIdx := bitmap.OnlyBit()
		if aliveIdx >= len(c.blocks) || c.blocks[aliveIdx].status != Alive {
			return ErrBadBitmap
		}
		c.siLocalNr--
		c.blocks[aliveIdx].addr = buf
		alive := &c.blocks[aliveIdx]
		for j := range c.blocks {
			if c.blocks[j].status != Failed {
				continue
			}
			if err := c.incrRecover(&c.blocks[j], alive); err != nil {
				return err
			}
			c.blocks[j].bitmap.Clear(alive.idx)
		}
		if c.siLocalNr == 0 && c.mixed {
			return c.failedDataBlocksXform()
		}
		return nil

	case Remote:
		if failedIndex < 0 || failedIndex >= len(c.blocks) {
			return ErrBadBitmap
		}
		f := &c.blocks[failedIndex]
		if f.status != Failed {
			return ErrBadBitmap
		}
		if !c.isUsable(bitmap, f) {
			return nil
		}
		if err := bufvec.Gfaxpy(f.addr, buf, 1); err != nil {
			return err
		}
		f.bitmap.ClearAllIn(bitmap)
		if failedIndex < c.math.N && c.mixed && c.siLocalNr != 0 {
			return c.forwardRectification(buf, failedIndex)
		}
		return nil

	default:
		return ErrBadBitmap
	}
}

// isUsable decides whether a REMOTE contribution can be absorbed: every
// bit the incoming bitmap sets must still be set in f's own dependency
// bitmap (the remote only summed blocks f still needs, none it has
// already absorbed), and f's last usable block id must not be the
// "none usable" sentinel.
func (c *Context) isUsable(in *Bitmap, f *block) bool {
	lastUsable := c.lastUsableBlockID(f.idx)
	if lastUsable == c.math.N+c.math.K {
		return false
	}
	return in.SubsetOf(&f.bitmap)
}
