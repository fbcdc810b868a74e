// Package kernel implements the byte-parallel GF(2^8) multiply-accumulate
// primitives used by every operation that touches whole blocks: the
// encode/diff/recover façade (package engine) and incremental recovery's
// gfaxpy (package ir). Code treats its outputs as zero beforehand: the
// first input's contribution overwrites whatever they held. Gfaxpy, and
// MulAccumulate with first=false, fold into the existing contents.
package kernel

import (
	"github.com/klauspost/cpuid"
	"github.com/pkg/errors"
	"github.com/templexxx/xorsimd"
	"github.com/xtaci/ecparity/gf"
	"github.com/xtaci/ecparity/matrix"
)

// ErrShardSize is returned when input/output blocks in a single call do
// not all share the same length.
var ErrShardSize = errors.New("kernel: block lengths do not match")

// defaultChunk is used when the CPU cache size cannot be detected.
const defaultChunk = 128 << 10

// ChunkSize returns the byte count a single calculate/recover call should
// process per round, sized so that one input block plus outputCount
// parity/output accumulators fit comfortably in L1/L2 cache. This mirrors
// reedsolomon.New's r.o.perRound derivation from cpuid.CPU.Cache.
func ChunkSize(outputCount int) int {
	size := cpuid.CPU.Cache.L2
	if size <= 0 {
		size = defaultChunk
	}
	if cpuid.CPU.ThreadsPerCore > 1 && cpuid.CPU.PhysicalCores > 0 {
		size /= cpuid.CPU.ThreadsPerCore
	}
	if outputCount > 0 {
		size /= outputCount + 1
	}
	size = ((size + 63) / 64) * 64
	if size <= 0 {
		size = defaultChunk
	}
	return size
}

// MulAccumulate computes out[i] ^= coef*in[i] for all i, writing the
// result as a fresh value when first is true (i.e. out is treated as
// zero beforehand) rather than folding into whatever out already holds.
func MulAccumulate(coef uint8, in, out []uint8, first bool) {
	out = out[:len(in)]
	if coef == 1 {
		if first {
			copy(out, in)
		} else {
			xorsimd.Bytes(out, out, in)
		}
		return
	}
	row := gf.MulTableRow(coef)
	if first {
		for i, v := range in {
			out[i] = row[v]
		}
		return
	}
	for i, v := range in {
		out[i] ^= row[v]
	}
}

// Xor computes dst ^= src in place over a single block.
func Xor(dst, src []uint8) error {
	if len(dst) != len(src) {
		return ErrShardSize
	}
	xorsimd.Bytes(dst, dst, src)
	return nil
}

// XorAll computes out = XOR of all of in, the K=1 fast path used by
// engine's XOR codec.
func XorAll(in [][]uint8, out []uint8) error {
	if len(in) == 0 {
		return nil
	}
	l := len(in[0])
	if len(out) != l {
		return ErrShardSize
	}
	for _, b := range in {
		if len(b) != l {
			return ErrShardSize
		}
	}
	xorsimd.Encode(out, in)
	return nil
}

// Code runs the core byte kernel: each output row r is set to the sum
// over input columns i of gmul(rowCoefs[r][i], in[i]), over the full
// block length. The previous contents of out are overwritten.
// rowCoefs has one row per output, one column per input; it is typically
// a decode matrix (package rscode) or the parity submatrix P.
func Code(rowCoefs *matrix.Matrix, in, out [][]uint8) error {
	if rowCoefs.Rows() != len(out) || rowCoefs.Cols() != len(in) {
		return ErrShardSize
	}
	if len(in) == 0 || len(out) == 0 {
		return nil
	}
	l := len(in[0])
	for _, b := range in {
		if len(b) != l {
			return ErrShardSize
		}
	}
	for _, b := range out {
		if len(b) != l {
			return ErrShardSize
		}
	}

	chunk := ChunkSize(len(out))
	for start := 0; start < l; start += chunk {
		end := start + chunk
		if end > l {
			end = l
		}
		for c := 0; c < len(in); c++ {
			inChunk := in[c][start:end]
			for r := 0; r < len(out); r++ {
				MulAccumulate(rowCoefs.At(r, c), inChunk, out[r][start:end], c == 0)
			}
		}
	}
	return nil
}

// Gfaxpy computes y[i] ^= alpha*x[i] for equal-length byte slices,
// special-casing alpha==1 to a plain XOR merge.
func Gfaxpy(y, x []uint8, alpha uint8) error {
	if len(y) != len(x) {
		return ErrShardSize
	}
	if alpha == 0 {
		return nil
	}
	MulAccumulate(alpha, x, y, false)
	return nil
}
