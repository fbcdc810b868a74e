package engine

import (
	"fmt"
	"sync/atomic"
)

// Stats holds operation counters for a Context, incremented by
// Calculate/Diff/Recover so a caller can periodically snapshot engine
// activity without instrumenting every call site itself.
type Stats struct {
	CalculateCalls uint64
	DiffCalls      uint64
	RecoverCalls   uint64
	BytesEncoded   uint64
	BytesRecovered uint64
}

// Header returns the CSV column names for a Stats row, in the same
// order ToSlice emits values.
func (Stats) Header() []string {
	return []string{
		"CalculateCalls",
		"DiffCalls",
		"RecoverCalls",
		"BytesEncoded",
		"BytesRecovered",
	}
}

// ToSlice formats Stats as a row of strings, for CSV logging.
func (s Stats) ToSlice() []string {
	return []string{
		fmt.Sprint(s.CalculateCalls),
		fmt.Sprint(s.DiffCalls),
		fmt.Sprint(s.RecoverCalls),
		fmt.Sprint(s.BytesEncoded),
		fmt.Sprint(s.BytesRecovered),
	}
}

// stats is a Context's live, atomically-updated counter block.
type stats struct {
	calculateCalls atomic.Uint64
	diffCalls      atomic.Uint64
	recoverCalls   atomic.Uint64
	bytesEncoded   atomic.Uint64
	bytesRecovered atomic.Uint64
}

// Snapshot returns a point-in-time copy of c's operation counters.
func (c *Context) Snapshot() Stats {
	return Stats{
		CalculateCalls: c.stats.calculateCalls.Load(),
		DiffCalls:      c.stats.diffCalls.Load(),
		RecoverCalls:   c.stats.recoverCalls.Load(),
		BytesEncoded:   c.stats.bytesEncoded.Load(),
		BytesRecovered: c.stats.bytesRecovered.Load(),
	}
}

func totalLen(blocks [][]byte) uint64 {
	var n uint64
	for _, b := range blocks {
		n += uint64(len(b))
	}
	return n
}
