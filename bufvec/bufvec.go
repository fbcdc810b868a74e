// Package bufvec implements the segmented-buffer abstraction used by
// incremental recovery to stream large blocks without requiring a
// single contiguous allocation per stripe. A BufVec is an ordered
// sequence of equal-sized segments; two BufVecs cooperating in an
// operation must share identical segmentation, checked once up front
// rather than per segment.
package bufvec

import "github.com/pkg/errors"

// ErrEmpty is returned when constructing a BufVec with zero segments.
var ErrEmpty = errors.New("bufvec: no segments")

// ErrSegmentSize is returned when a BufVec's segments do not all share
// the same length.
var ErrSegmentSize = errors.New("bufvec: segments have unequal size")

// ErrSegmentation is returned when two BufVecs used together do not
// share identical segmentation (same segment count and segment size).
var ErrSegmentation = errors.New("bufvec: segmentation mismatch")

// BufVec is an ordered sequence of equal-sized byte segments, addressed
// as a single logical block.
type BufVec struct {
	segs    [][]byte
	segSize int
}

// New builds a BufVec from segs, validating that every segment shares
// the same length.
func New(segs [][]byte) (*BufVec, error) {
	if len(segs) == 0 {
		return nil, ErrEmpty
	}
	size := len(segs[0])
	for _, s := range segs {
		if len(s) != size {
			return nil, ErrSegmentSize
		}
	}
	return &BufVec{segs: segs, segSize: size}, nil
}

// Split builds a BufVec over a single contiguous buffer, cut into
// segCount equal-sized segments. buf's length must divide evenly.
func Split(buf []byte, segCount int) (*BufVec, error) {
	if segCount <= 0 || len(buf)%segCount != 0 {
		return nil, ErrSegmentSize
	}
	size := len(buf) / segCount
	segs := make([][]byte, segCount)
	for i := range segs {
		segs[i] = buf[i*size : (i+1)*size]
	}
	return New(segs)
}

// NumSegments reports the segment count.
func (b *BufVec) NumSegments() int { return len(b.segs) }

// SegmentSize reports the shared byte count of every segment.
func (b *BufVec) SegmentSize() int { return b.segSize }

// Len reports the total byte count across all segments.
func (b *BufVec) Len() int { return len(b.segs) * b.segSize }

// Segment returns segment i directly; mutating it mutates the BufVec.
func (b *BufVec) Segment(i int) []byte { return b.segs[i] }

// sameSegmentation reports whether a and b can be cursored together.
func sameSegmentation(a, b *BufVec) bool {
	return a.NumSegments() == b.NumSegments() && a.SegmentSize() == b.SegmentSize()
}

// ForEachPair walks two identically-segmented BufVecs with synchronized
// cursors, calling fn(segA, segB) once per segment pair. It asserts
// matching segmentation once, up front, rather than re-checking on
// every step.
func ForEachPair(a, b *BufVec, fn func(segA, segB []byte) error) error {
	if !sameSegmentation(a, b) {
		return ErrSegmentation
	}
	for i := range a.segs {
		if err := fn(a.segs[i], b.segs[i]); err != nil {
			return err
		}
	}
	return nil
}

// ForEach walks a single BufVec's segments in order.
func (b *BufVec) ForEach(fn func(seg []byte) error) error {
	for _, s := range b.segs {
		if err := fn(s); err != nil {
			return err
		}
	}
	return nil
}
