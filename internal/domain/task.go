package domain

import (
	"slices"
	"strings"
	"time"
)

// Task represents one board card. Status names the column the task lives
// in; Position is its ordering key within that column. The key has no
// meaning beyond relative order.
type Task struct {
	ID          string
	Status      string
	Position    int32
	Title       string
	Description string
	Labels      []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ArchivedAt  *time.Time
}

// TaskInput holds input values for task construction.
type TaskInput struct {
	ID          string
	Status      string
	Position    int32
	Title       string
	Description string
	Labels      []string
}

// NewTask constructs a validated task.
func NewTask(in TaskInput, now time.Time) (Task, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Status = strings.TrimSpace(in.Status)
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)

	if in.ID == "" {
		return Task{}, ErrInvalidID
	}
	if in.Status == "" {
		return Task{}, ErrInvalidStatus
	}
	if in.Title == "" {
		return Task{}, ErrInvalidTitle
	}

	return Task{
		ID:          in.ID,
		Status:      in.Status,
		Position:    in.Position,
		Title:       in.Title,
		Description: in.Description,
		Labels:      normalizeLabels(in.Labels),
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}, nil
}

// Move places the task into a column at the given ordering key. An empty
// status keeps the current column.
func (t *Task) Move(status string, position int32, now time.Time) error {
	status = strings.TrimSpace(status)
	if status == "" {
		status = t.Status
	}
	if status == "" {
		return ErrInvalidStatus
	}
	t.Status = status
	t.Position = position
	t.UpdatedAt = now.UTC()
	return nil
}

// UpdateDetails replaces the task content fields.
func (t *Task) UpdateDetails(title, description string, labels []string, now time.Time) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrInvalidTitle
	}
	t.Title = title
	t.Description = strings.TrimSpace(description)
	t.Labels = normalizeLabels(labels)
	t.UpdatedAt = now.UTC()
	return nil
}

// Archive archives the task.
func (t *Task) Archive(now time.Time) {
	ts := now.UTC()
	t.ArchivedAt = &ts
	t.UpdatedAt = ts
}

// Restore restores an archived task.
func (t *Task) Restore(now time.Time) {
	t.ArchivedAt = nil
	t.UpdatedAt = now.UTC()
}

func normalizeLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	seen := map[string]struct{}{}
	for _, raw := range labels {
		label := strings.ToLower(strings.TrimSpace(raw))
		if label == "" {
			continue
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	slices.Sort(out)
	return out
}
