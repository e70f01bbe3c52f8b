// Package ordering implements the bounded integer ordering scheme used to
// place tasks within and across status columns. Positions are signed 32-bit
// integers; new placements take the midpoint between their neighbors so a
// move touches exactly one record. When the gap between two neighbors runs
// out the placement degrades and the column is due for a rebalance.
//
// Every function in this package is pure and safe for concurrent use.
package ordering

import "math"

// MinPosition and related constants bound the ordering key space.
const (
	MinPosition int32 = math.MinInt32
	MaxPosition int32 = math.MaxInt32

	// Gap is the spacing used when inserting at the head or tail of a column.
	Gap int32 = 1000

	// RebalanceThreshold is the smallest adjacent gap a healthy column may
	// carry. Anything tighter and further insertions at that slot degrade.
	RebalanceThreshold int32 = 10
)

// CalculateNewPosition computes the ordering key for a new placement between
// two neighbors. A nil prev means the slot is at the head of the column, a
// nil next means the tail. When both neighbors are present prev must be
// strictly less than next; violating that returns ErrInvalidNeighborOrder.
//
// The degraded result is true when no room with spare gap remained and the
// returned key is a forward-progress placement only: the caller should
// schedule a rebalance of the column.
func CalculateNewPosition(prev, next *int32) (pos int32, degraded bool, err error) {
	switch {
	case prev == nil && next == nil:
		return 0, false, nil

	case prev == nil:
		candidate := int64(*next) - int64(Gap)
		if candidate >= int64(MinPosition) {
			return int32(candidate), false, nil
		}
		if *next > MinPosition {
			return *next - 1, true, nil
		}
		return MinPosition, true, nil

	case next == nil:
		candidate := int64(*prev) + int64(Gap)
		if candidate <= int64(MaxPosition) {
			return int32(candidate), false, nil
		}
		if *prev < MaxPosition {
			return *prev + 1, true, nil
		}
		return MaxPosition, true, nil

	default:
		if *prev >= *next {
			return 0, false, ErrInvalidNeighborOrder
		}
		if int64(*next)-int64(*prev) < 2 {
			return *prev + 1, true, nil
		}
		sum := int64(*prev) + int64(*next)
		mid := sum / 2
		if sum < 0 && sum%2 != 0 {
			mid-- // floor division for negative sums
		}
		return int32(mid), false, nil
	}
}

// NeedsRebalancing reports whether some adjacent pair in the ascending
// position sequence sits closer than RebalanceThreshold. Input must be
// sorted ascending; the predicate has no visibility into tiebreak keys.
func NeedsRebalancing(positions []int32) bool {
	for i := 1; i < len(positions); i++ {
		if int64(positions[i])-int64(positions[i-1]) < int64(RebalanceThreshold) {
			return true
		}
	}
	return false
}
