package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hylla/ranka/internal/domain"
	"github.com/hylla/ranka/internal/ordering"
)

// StatusTemplate names one board column and its display label.
type StatusTemplate struct {
	ID   string
	Name string
}

// ServiceConfig holds configuration for the service.
type ServiceConfig struct {
	Statuses []StatusTemplate
}

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// Service owns the write path of the board: every placement goes through
// the ordering reconciler, and degraded placements trigger a synchronous
// rebalance of the affected column before the call returns. The service
// performs no retries; persistence failures propagate to the caller.
type Service struct {
	repo     Repository
	idGen    IDGenerator
	clock    Clock
	statuses []StatusTemplate
}

// NewService constructs a new service.
func NewService(repo Repository, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	statuses := sanitizeStatuses(cfg.Statuses)
	if len(statuses) == 0 {
		statuses = defaultStatuses()
	}
	return &Service{
		repo:     repo,
		idGen:    idGen,
		clock:    clock,
		statuses: statuses,
	}
}

// Statuses returns the configured board columns in display order.
func (s *Service) Statuses() []StatusTemplate {
	out := make([]StatusTemplate, len(s.statuses))
	copy(out, s.statuses)
	return out
}

// BoardSnapshot is one consistent read of the whole board.
type BoardSnapshot struct {
	Statuses []StatusTemplate
	Columns  map[string][]domain.Task
}

// Board returns every column in board order.
func (s *Service) Board(ctx context.Context, includeArchived bool) (BoardSnapshot, error) {
	tasks, err := s.repo.ListTasks(ctx, includeArchived)
	if err != nil {
		return BoardSnapshot{}, err
	}
	columns := domain.GroupByStatus(tasks)
	for _, st := range s.statuses {
		if _, ok := columns[st.ID]; !ok {
			columns[st.ID] = []domain.Task{}
		}
	}
	return BoardSnapshot{Statuses: s.Statuses(), Columns: columns}, nil
}

// CreateTaskInput holds input values for task creation.
type CreateTaskInput struct {
	Status      string
	Title       string
	Description string
	Labels      []string
}

// CreateTask appends a task to the end of its column.
func (s *Service) CreateTask(ctx context.Context, in CreateTaskInput) (domain.Task, error) {
	status, err := s.resolveStatus(in.Status)
	if err != nil {
		return domain.Task{}, err
	}

	column, err := s.columnItems(ctx, status)
	if err != nil {
		return domain.Task{}, err
	}
	var prev *int32
	if len(column) > 0 {
		prev = &column[len(column)-1].Position
	}
	pos, degraded, err := ordering.CalculateNewPosition(prev, nil)
	if err != nil {
		return domain.Task{}, err
	}

	task, err := domain.NewTask(domain.TaskInput{
		ID:          s.idGen(),
		Status:      status,
		Position:    pos,
		Title:       in.Title,
		Description: in.Description,
		Labels:      in.Labels,
	}, s.clock())
	if err != nil {
		return domain.Task{}, err
	}
	if err := s.repo.CreateTask(ctx, task); err != nil {
		return domain.Task{}, err
	}
	if degraded {
		if err := s.RebalanceColumn(ctx, status); err != nil {
			return domain.Task{}, err
		}
		return s.repo.GetTask(ctx, task.ID)
	}
	return task, nil
}

// MoveTask applies one drop event: the task identified by taskID lands in
// targetStatus at targetIndex (negative index appends). The reconciler
// decides the single mutation; a degraded placement is persisted first and
// the column rebalanced immediately after, so callers always observe a
// healthy column once the call returns.
func (s *Service) MoveTask(ctx context.Context, taskID, targetStatus string, targetIndex int) (domain.Task, error) {
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	target, err := s.resolveStatus(targetStatus)
	if err != nil {
		return domain.Task{}, err
	}

	columns := map[string][]ordering.PositionedItem{}
	sourceItems, err := s.columnItems(ctx, task.Status)
	if err != nil {
		return domain.Task{}, err
	}
	columns[task.Status] = sourceItems
	if target != task.Status {
		targetItems, err := s.columnItems(ctx, target)
		if err != nil {
			return domain.Task{}, err
		}
		columns[target] = targetItems
	}

	mutation, err := ordering.Reconcile(ordering.DropEvent{
		ItemID:       taskID,
		SourceStatus: task.Status,
		TargetStatus: target,
		TargetIndex:  targetIndex,
	}, columns)
	if err != nil {
		return domain.Task{}, err
	}
	if mutation.Kind == ordering.MutationNoOp {
		return task, nil
	}

	if err := task.Move(mutation.NewStatus, mutation.NewPosition, s.clock()); err != nil {
		return domain.Task{}, err
	}
	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return domain.Task{}, err
	}
	if mutation.RebalanceDue {
		if err := s.RebalanceColumn(ctx, target); err != nil {
			return domain.Task{}, err
		}
		return s.repo.GetTask(ctx, taskID)
	}
	return task, nil
}

// RebalanceColumn redistributes one column's ordering keys across the full
// key space in a single atomic write. An empty column is a no-op.
func (s *Service) RebalanceColumn(ctx context.Context, status string) error {
	status, err := s.resolveStatus(status)
	if err != nil {
		return err
	}
	items, err := s.columnItems(ctx, status)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	placed := ordering.RebalancePositions(items)
	return s.repo.BulkUpdatePositions(ctx, placed)
}

// GetTask returns one task.
func (s *Service) GetTask(ctx context.Context, taskID string) (domain.Task, error) {
	return s.repo.GetTask(ctx, taskID)
}

// UpdateTaskInput holds input values for task updates.
type UpdateTaskInput struct {
	TaskID      string
	Title       string
	Description string
	Labels      []string
}

// UpdateTask replaces a task's content fields.
func (s *Service) UpdateTask(ctx context.Context, in UpdateTaskInput) (domain.Task, error) {
	task, err := s.repo.GetTask(ctx, in.TaskID)
	if err != nil {
		return domain.Task{}, err
	}
	if err := task.UpdateDetails(in.Title, in.Description, in.Labels, s.clock()); err != nil {
		return domain.Task{}, err
	}
	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

// ArchiveTask archives a task without touching its ordering key.
func (s *Service) ArchiveTask(ctx context.Context, taskID string) (domain.Task, error) {
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	task.Archive(s.clock())
	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

// RestoreTask restores an archived task.
func (s *Service) RestoreTask(ctx context.Context, taskID string) (domain.Task, error) {
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	task.Restore(s.clock())
	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

// DeleteTask removes a task and its attachments.
func (s *Service) DeleteTask(ctx context.Context, taskID string) error {
	attachments, err := s.repo.ListAttachmentsByTask(ctx, taskID)
	if err != nil {
		return err
	}
	for _, att := range attachments {
		if err := s.repo.DeleteAttachment(ctx, att.ID); err != nil {
			return err
		}
	}
	return s.repo.DeleteTask(ctx, taskID)
}

// CreateLabel adds a label to the catalog.
func (s *Service) CreateLabel(ctx context.Context, name, color string) (domain.Label, error) {
	label, err := domain.NewLabel(s.idGen(), name, color, s.clock())
	if err != nil {
		return domain.Label{}, err
	}
	if err := s.repo.CreateLabel(ctx, label); err != nil {
		return domain.Label{}, err
	}
	return label, nil
}

// UpdateLabel renames or recolors a catalog label.
func (s *Service) UpdateLabel(ctx context.Context, labelID, name, color string) (domain.Label, error) {
	label, err := s.repo.GetLabel(ctx, labelID)
	if err != nil {
		return domain.Label{}, err
	}
	if err := label.Update(name, color, s.clock()); err != nil {
		return domain.Label{}, err
	}
	if err := s.repo.UpdateLabel(ctx, label); err != nil {
		return domain.Label{}, err
	}
	return label, nil
}

// ListLabels returns the label catalog.
func (s *Service) ListLabels(ctx context.Context) ([]domain.Label, error) {
	return s.repo.ListLabels(ctx)
}

// DeleteLabel removes a catalog label.
func (s *Service) DeleteLabel(ctx context.Context, labelID string) error {
	return s.repo.DeleteLabel(ctx, labelID)
}

// AddAttachmentInput holds input values for attachment registration.
type AddAttachmentInput struct {
	TaskID   string
	FileName string
	MimeType string
	FileSize int64
	SHA256   string
}

// AddAttachment registers a file against a task. An attachment with the
// same content hash on the same task is returned as-is instead of creating
// a duplicate record.
func (s *Service) AddAttachment(ctx context.Context, in AddAttachmentInput) (domain.Attachment, error) {
	if _, err := s.repo.GetTask(ctx, in.TaskID); err != nil {
		return domain.Attachment{}, err
	}
	if sha := strings.ToLower(strings.TrimSpace(in.SHA256)); sha != "" {
		existing, err := s.repo.FindAttachmentBySHA256(ctx, sha)
		if err == nil && existing.TaskID == in.TaskID {
			return existing, nil
		}
	}
	att, err := domain.NewAttachment(domain.AttachmentInput{
		ID:       s.idGen(),
		TaskID:   in.TaskID,
		FileName: in.FileName,
		MimeType: in.MimeType,
		FileSize: in.FileSize,
		SHA256:   in.SHA256,
	}, s.clock())
	if err != nil {
		return domain.Attachment{}, err
	}
	if err := s.repo.CreateAttachment(ctx, att); err != nil {
		return domain.Attachment{}, err
	}
	return att, nil
}

// ListAttachments returns a task's attachments.
func (s *Service) ListAttachments(ctx context.Context, taskID string) ([]domain.Attachment, error) {
	return s.repo.ListAttachmentsByTask(ctx, taskID)
}

// RemoveAttachment removes one attachment record.
func (s *Service) RemoveAttachment(ctx context.Context, attachmentID string) error {
	return s.repo.DeleteAttachment(ctx, attachmentID)
}

// columnItems returns the active tasks of one column as ordering items, in
// board order.
func (s *Service) columnItems(ctx context.Context, status string) ([]ordering.PositionedItem, error) {
	tasks, err := s.repo.ListTasksByStatus(ctx, status, false)
	if err != nil {
		return nil, err
	}
	domain.SortBoardOrder(tasks)
	items := make([]ordering.PositionedItem, len(tasks))
	for i, t := range tasks {
		items[i] = ordering.PositionedItem{ID: t.ID, Position: t.Position}
	}
	return items, nil
}

// resolveStatus validates a status against the configured columns.
func (s *Service) resolveStatus(status string) (string, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return "", fmt.Errorf("%w: empty status", ErrUnknownStatus)
	}
	for _, st := range s.statuses {
		if st.ID == status {
			return status, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownStatus, status)
}

func sanitizeStatuses(in []StatusTemplate) []StatusTemplate {
	out := make([]StatusTemplate, 0, len(in))
	seen := map[string]struct{}{}
	for _, st := range in {
		st.ID = strings.TrimSpace(st.ID)
		st.Name = strings.TrimSpace(st.Name)
		if st.ID == "" {
			continue
		}
		if _, ok := seen[st.ID]; ok {
			continue
		}
		seen[st.ID] = struct{}{}
		if st.Name == "" {
			st.Name = st.ID
		}
		out = append(out, st)
	}
	return out
}

func defaultStatuses() []StatusTemplate {
	return []StatusTemplate{
		{ID: "todo", Name: "To Do"},
		{ID: "progress", Name: "In Progress"},
		{ID: "done", Name: "Done"},
	}
}
