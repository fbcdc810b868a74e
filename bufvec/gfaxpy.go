package bufvec

import "github.com/xtaci/ecparity/kernel"

// Gfaxpy computes y <- y + alpha*x across two identically-segmented
// BufVecs, segment by segment, via kernel.Gfaxpy (which takes a plain
// XOR path when alpha==1).
func Gfaxpy(y, x *BufVec, alpha uint8) error {
	return ForEachPair(y, x, func(segY, segX []byte) error {
		return kernel.Gfaxpy(segY, segX, alpha)
	})
}
