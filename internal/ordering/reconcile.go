package ordering

// DropEvent describes one completed drag gesture as produced by the UI
// layer: which item was dragged, where it came from, and where it landed.
// TargetIndex is the slot within the target column after the dragged item is
// removed from consideration; a negative index means "no specific sibling",
// which appends to the end of the target column.
type DropEvent struct {
	ItemID       string
	SourceStatus string
	TargetStatus string
	TargetIndex  int
}

// MutationKind represents a selectable mutation outcome.
type MutationKind string

// MutationNoOp and related constants name the reconcile outcomes.
const (
	MutationNoOp         MutationKind = "noop"
	MutationStatusChange MutationKind = "status_change"
	MutationReposition   MutationKind = "reposition"
)

// Mutation is the single intended write produced by Reconcile. NewStatus is
// empty when the item stays in its column. RebalanceDue flags that the
// placement was degraded and the target column should be rebalanced by
// whoever owns the write path; the mutation itself is still valid.
type Mutation struct {
	Kind         MutationKind
	ItemID       string
	NewStatus    string
	NewPosition  int32
	RebalanceDue bool
}

// Reconcile turns one drop event plus the current per-column ordered lists
// into a single intended mutation. Columns map a status label to its items
// in board order (position ascending, caller-side tiebreak applied).
// Reconcile performs no I/O; dispatching the mutation is the caller's job.
func Reconcile(ev DropEvent, columns map[string][]PositionedItem) (Mutation, error) {
	current, ok := findItem(columns[ev.SourceStatus], ev.ItemID)
	if !ok {
		return Mutation{}, ErrUnknownItem
	}

	target := withoutItem(columns[ev.TargetStatus], ev.ItemID)
	crossColumn := ev.TargetStatus != ev.SourceStatus
	appendDrop := ev.TargetIndex < 0 || ev.TargetIndex > len(target)

	idx := ev.TargetIndex
	if appendDrop {
		idx = len(target)
	}

	var prev, next *int32
	if idx > 0 {
		prev = &target[idx-1].Position
	}
	if idx < len(target) {
		next = &target[idx].Position
	}

	pos, degraded, err := CalculateNewPosition(prev, next)
	if err != nil {
		return Mutation{}, err
	}

	if !crossColumn && pos == current.Position {
		return Mutation{Kind: MutationNoOp, ItemID: ev.ItemID}, nil
	}

	m := Mutation{
		Kind:         MutationReposition,
		ItemID:       ev.ItemID,
		NewPosition:  pos,
		RebalanceDue: degraded,
	}
	if crossColumn {
		m.NewStatus = ev.TargetStatus
		if appendDrop {
			// Dropped onto the column itself rather than a sibling slot.
			m.Kind = MutationStatusChange
		}
	}
	return m, nil
}

// findItem locates an item by ID within one ordered column.
func findItem(items []PositionedItem, id string) (PositionedItem, bool) {
	for _, item := range items {
		if item.ID == id {
			return item, true
		}
	}
	return PositionedItem{}, false
}

// withoutItem returns the column with the dragged item removed. The input
// slice is never mutated.
func withoutItem(items []PositionedItem, id string) []PositionedItem {
	out := make([]PositionedItem, 0, len(items))
	for _, item := range items {
		if item.ID == id {
			continue
		}
		out = append(out, item)
	}
	return out
}
