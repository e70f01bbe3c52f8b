package domain

import "sort"

// SortBoardOrder sorts tasks in place into board order: position ascending,
// ties broken by creation time descending. Position ties only appear when
// concurrent writers land on the same key; the tiebreak keeps the display
// stable until a rebalance separates them.
func SortBoardOrder(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Position != tasks[j].Position {
			return tasks[i].Position < tasks[j].Position
		}
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
}

// GroupByStatus splits tasks into per-status columns, each in board order.
func GroupByStatus(tasks []Task) map[string][]Task {
	out := map[string][]Task{}
	for _, t := range tasks {
		out[t.Status] = append(out[t.Status], t)
	}
	for status := range out {
		SortBoardOrder(out[status])
	}
	return out
}
