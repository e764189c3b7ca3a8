// slice.go - Slice-Fenster-Datenmodell
//
// Dieses Modul enthaelt:
// - SplitFactors: Anzahl Abschnitte pro Batch-/Hoehen-Dimension
// - SlicePair/SliceInfo: materialisierte Index-Bereiche pro Tensor
// - OutSliceInfo: gleichmaessige Partition einer Ausgabe
// - Strukturgleichheit und Invarianten-Pruefung
package lgroup

import (
	"fmt"
)

// SplitFactors is the candidate slice count for the batch (NSecs) and
// height (HSecs) dimensions. Both are at least 1 and non-decreasing over
// one search.
type SplitFactors struct {
	NSecs int64
	HSecs int64
}

func (s SplitFactors) String() string {
	return fmt.Sprintf("n=%d,h=%d", s.NSecs, s.HSecs)
}

// SlicePair is one contiguous slice (start index, length) along a
// dimension.
type SlicePair struct {
	Start int64
	Len   int64
}

// SliceInfo records which index ranges of a tensor are materialized
// together, per dimension.
type SliceInfo struct {
	N []SlicePair
	H []SlicePair
}

// SameSliceInfo reports structural equality: same ordered pairs on both
// dimensions.
func SameSliceInfo(a, b SliceInfo) bool {
	if len(a.N) != len(b.N) || len(a.H) != len(b.H) {
		return false
	}
	for i := range a.N {
		if a.N[i] != b.N[i] {
			return false
		}
	}
	for i := range a.H {
		if a.H[i] != b.H[i] {
			return false
		}
	}
	return true
}

// OutSliceInfo partitions the full extents n and h evenly into the given
// section counts. The remainder is spread over the leading slices so no
// two slices differ by more than one row.
func OutSliceInfo(secs SplitFactors, n, h int64) SliceInfo {
	return SliceInfo{
		N: evenPartition(n, secs.NSecs),
		H: evenPartition(h, secs.HSecs),
	}
}

func evenPartition(extent, secs int64) []SlicePair {
	pairs := make([]SlicePair, 0, secs)
	for i := int64(0); i < secs; i++ {
		step := extent / secs
		if extent%secs > i {
			step++
		}
		idx := extent / secs * i
		if extent%secs > i {
			idx += i
		} else {
			idx += extent % secs
		}
		slice := step
		if extent-idx < step {
			slice = extent - idx
		}
		pairs = append(pairs, SlicePair{Start: idx, Len: slice})
	}
	return pairs
}

// maxSliceNH is the worst-case single slice extent per dimension.
func maxSliceNH(si SliceInfo) (maxN, maxH int64) {
	for _, s := range si.N {
		if s.Len > maxN {
			maxN = s.Len
		}
	}
	for _, s := range si.H {
		if s.Len > maxH {
			maxH = s.Len
		}
	}
	return maxN, maxH
}

// checkHeightGrowth rejects slice infos whose height slices sum to more
// than 1.5x the true height. Overlapping receptive fields of windowed
// operations duplicate rows; past that bound the duplication outweighs the
// split.
func checkHeightGrowth(si SliceInfo, h int64) bool {
	var total int64
	for _, s := range si.H {
		total += s.Len
	}
	return total*2 <= h*3
}

// Validate checks the partition invariants for a tensor with true extents
// n and h: slices are contiguous, non-overlapping and sum exactly to the
// extent. Degenerate (0,1) windows are allowed for broadcast operands
// whose true extent is 1. Backward-derived records of windowed operations
// overlap and are not expected to pass this check.
func (si SliceInfo) Validate(n, h int64) error {
	if err := validateDim("n", si.N, n); err != nil {
		return err
	}
	return validateDim("h", si.H, h)
}

func validateDim(name string, pairs []SlicePair, extent int64) error {
	if len(pairs) == 0 {
		return fmt.Errorf("dimension %s has no slices", name)
	}
	if extent == 1 && len(pairs) == 1 && pairs[0] == (SlicePair{0, 1}) {
		return nil
	}

	next := int64(0)
	for i, p := range pairs {
		if p.Len < 1 {
			return fmt.Errorf("dimension %s: slice %d has length %d", name, i, p.Len)
		}
		if p.Start != next {
			return fmt.Errorf("dimension %s: slice %d starts at %d, want %d", name, i, p.Start, next)
		}
		next = p.Start + p.Len
	}
	if next != extent {
		return fmt.Errorf("dimension %s: slices sum to %d, extent is %d", name, next, extent)
	}
	return nil
}
