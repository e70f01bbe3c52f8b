package ordering

// PositionedItem is the minimal view of a task this package orders: an
// identifier and its current ordering key. Task content stays with the
// caller.
type PositionedItem struct {
	ID       string
	Position int32
}

// PlacedItem pairs an item with its newly computed ordering key.
type PlacedItem struct {
	ID       string
	Position int32
}

// RebalancePositions redistributes ordering keys evenly across the full key
// space, preserving input order. Input must already be in final desired
// order (position ascending, caller-side tiebreak applied); this function
// has no visibility into secondary keys. An empty input yields an empty,
// non-nil result.
func RebalancePositions(items []PositionedItem) []PlacedItem {
	out := make([]PlacedItem, 0, len(items))
	if len(items) == 0 {
		return out
	}
	span := int64(MaxPosition) - int64(MinPosition)
	gap := span / int64(len(items)+1)
	for i, item := range items {
		pos := int64(MinPosition) + gap*int64(i+1)
		out = append(out, PlacedItem{ID: item.ID, Position: int32(pos)})
	}
	return out
}
