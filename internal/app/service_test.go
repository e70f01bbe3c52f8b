package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hylla/ranka/internal/domain"
	"github.com/hylla/ranka/internal/ordering"
)

type fakeRepo struct {
	tasks       map[string]domain.Task
	labels      map[string]domain.Label
	attachments map[string]domain.Attachment
	bulkCalls   int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		tasks:       map[string]domain.Task{},
		labels:      map[string]domain.Label{},
		attachments: map[string]domain.Attachment{},
	}
}

func (f *fakeRepo) CreateTask(_ context.Context, t domain.Task) error {
	f.tasks[t.ID] = t
	return nil
}

func (f *fakeRepo) UpdateTask(_ context.Context, t domain.Task) error {
	if _, ok := f.tasks[t.ID]; !ok {
		return ErrNotFound
	}
	f.tasks[t.ID] = t
	return nil
}

func (f *fakeRepo) GetTask(_ context.Context, id string) (domain.Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return domain.Task{}, ErrNotFound
	}
	return t, nil
}

func (f *fakeRepo) ListTasks(_ context.Context, includeArchived bool) ([]domain.Task, error) {
	out := make([]domain.Task, 0, len(f.tasks))
	for _, t := range f.tasks {
		if !includeArchived && t.ArchivedAt != nil {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeRepo) ListTasksByStatus(_ context.Context, status string, includeArchived bool) ([]domain.Task, error) {
	out := []domain.Task{}
	for _, t := range f.tasks {
		if t.Status != status {
			continue
		}
		if !includeArchived && t.ArchivedAt != nil {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeRepo) DeleteTask(_ context.Context, id string) error {
	if _, ok := f.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeRepo) BulkUpdatePositions(_ context.Context, placed []ordering.PlacedItem) error {
	f.bulkCalls++
	for _, p := range placed {
		t, ok := f.tasks[p.ID]
		if !ok {
			return ErrNotFound
		}
		t.Position = p.Position
		f.tasks[p.ID] = t
	}
	return nil
}

func (f *fakeRepo) CreateLabel(_ context.Context, l domain.Label) error {
	f.labels[l.ID] = l
	return nil
}

func (f *fakeRepo) UpdateLabel(_ context.Context, l domain.Label) error {
	if _, ok := f.labels[l.ID]; !ok {
		return ErrNotFound
	}
	f.labels[l.ID] = l
	return nil
}

func (f *fakeRepo) GetLabel(_ context.Context, id string) (domain.Label, error) {
	l, ok := f.labels[id]
	if !ok {
		return domain.Label{}, ErrNotFound
	}
	return l, nil
}

func (f *fakeRepo) ListLabels(_ context.Context) ([]domain.Label, error) {
	out := make([]domain.Label, 0, len(f.labels))
	for _, l := range f.labels {
		out = append(out, l)
	}
	return out, nil
}

func (f *fakeRepo) DeleteLabel(_ context.Context, id string) error {
	if _, ok := f.labels[id]; !ok {
		return ErrNotFound
	}
	delete(f.labels, id)
	return nil
}

func (f *fakeRepo) CreateAttachment(_ context.Context, a domain.Attachment) error {
	f.attachments[a.ID] = a
	return nil
}

func (f *fakeRepo) ListAttachmentsByTask(_ context.Context, taskID string) ([]domain.Attachment, error) {
	out := []domain.Attachment{}
	for _, a := range f.attachments {
		if a.TaskID == taskID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeRepo) FindAttachmentBySHA256(_ context.Context, sha string) (domain.Attachment, error) {
	for _, a := range f.attachments {
		if a.SHA256 == sha {
			return a, nil
		}
	}
	return domain.Attachment{}, ErrNotFound
}

func (f *fakeRepo) DeleteAttachment(_ context.Context, id string) error {
	if _, ok := f.attachments[id]; !ok {
		return ErrNotFound
	}
	delete(f.attachments, id)
	return nil
}

func newTestService(repo *fakeRepo) *Service {
	n := 0
	idGen := func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	tick := 0
	clock := func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return NewService(repo, idGen, clock, ServiceConfig{})
}

func seedTask(t *testing.T, repo *fakeRepo, id, status string, pos int32, created time.Time) domain.Task {
	t.Helper()
	task, err := domain.NewTask(domain.TaskInput{
		ID:       id,
		Status:   status,
		Position: pos,
		Title:    "task " + id,
	}, created)
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}
	repo.tasks[id] = task
	return task
}

func TestCreateTaskAppendsWithGap(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	now := time.Now()
	seedTask(t, repo, "a", "todo", 1000, now)
	seedTask(t, repo, "b", "todo", 2000, now)

	task, err := svc.CreateTask(ctx, CreateTaskInput{Status: "todo", Title: "new"})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if task.Position != 3000 {
		t.Fatalf("position = %d, want 3000", task.Position)
	}
}

func TestCreateTaskEmptyColumnStartsAtZero(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	task, err := svc.CreateTask(context.Background(), CreateTaskInput{Status: "done", Title: "first"})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if task.Position != 0 {
		t.Fatalf("position = %d, want 0", task.Position)
	}
}

func TestCreateTaskUnknownStatus(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	_, err := svc.CreateTask(context.Background(), CreateTaskInput{Status: "limbo", Title: "x"})
	if !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("error = %v, want ErrUnknownStatus", err)
	}
}

func TestMoveTaskBetweenSiblings(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	now := time.Now()
	seedTask(t, repo, "a", "todo", 1000, now)
	seedTask(t, repo, "b", "todo", 2000, now)
	seedTask(t, repo, "c", "todo", 3000, now)
	seedTask(t, repo, "d", "progress", 0, now)

	moved, err := svc.MoveTask(ctx, "d", "todo", 2)
	if err != nil {
		t.Fatalf("MoveTask() error = %v", err)
	}
	if moved.Status != "todo" {
		t.Fatalf("status = %q, want todo", moved.Status)
	}
	if moved.Position != 2500 {
		t.Fatalf("position = %d, want 2500", moved.Position)
	}
	if repo.bulkCalls != 0 {
		t.Fatalf("bulk updates = %d, want 0 for healthy placement", repo.bulkCalls)
	}
}

func TestMoveTaskOwnSlotIsNoOp(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	now := time.Now()
	seedTask(t, repo, "a", "todo", 1000, now)
	b := seedTask(t, repo, "b", "todo", 2000, now)
	seedTask(t, repo, "c", "todo", 3000, now)

	moved, err := svc.MoveTask(ctx, "b", "todo", 1)
	if err != nil {
		t.Fatalf("MoveTask() error = %v", err)
	}
	if moved.Position != b.Position || moved.UpdatedAt != b.UpdatedAt {
		t.Fatalf("task changed on no-op drop: %+v", moved)
	}
}

func TestMoveTaskDegradedTriggersRebalance(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	now := time.Now()
	seedTask(t, repo, "a", "todo", 1000, now)
	seedTask(t, repo, "b", "todo", 1001, now.Add(time.Second))
	// c is newest, so the created-at tiebreak keeps it ahead of b once the
	// degraded placement collides with b's key.
	seedTask(t, repo, "c", "todo", 9000, now.Add(2*time.Second))

	moved, err := svc.MoveTask(ctx, "c", "todo", 1)
	if err != nil {
		t.Fatalf("MoveTask() error = %v", err)
	}
	if repo.bulkCalls != 1 {
		t.Fatalf("bulk updates = %d, want 1 after degraded placement", repo.bulkCalls)
	}

	tasks, _ := repo.ListTasksByStatus(ctx, "todo", false)
	domain.SortBoardOrder(tasks)
	if tasks[1].ID != "c" {
		t.Fatalf("order after rebalance = %v, want c second", taskIDs(tasks))
	}
	positions := make([]int32, len(tasks))
	for i, task := range tasks {
		positions[i] = task.Position
	}
	if ordering.NeedsRebalancing(positions) {
		t.Fatalf("column still degraded after rebalance: %v", positions)
	}
	if moved.Position != tasks[1].Position {
		t.Fatalf("returned task has stale position %d, want %d", moved.Position, tasks[1].Position)
	}
}

func TestMoveTaskColumnDrop(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	now := time.Now()
	seedTask(t, repo, "a", "todo", 1000, now)
	seedTask(t, repo, "d", "done", 400, now)

	moved, err := svc.MoveTask(ctx, "a", "done", -1)
	if err != nil {
		t.Fatalf("MoveTask() error = %v", err)
	}
	if moved.Status != "done" {
		t.Fatalf("status = %q, want done", moved.Status)
	}
	if moved.Position != 1400 {
		t.Fatalf("position = %d, want tail 1400", moved.Position)
	}
}

func TestRebalanceColumnEmptyIsNoOp(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	if err := svc.RebalanceColumn(context.Background(), "todo"); err != nil {
		t.Fatalf("RebalanceColumn() error = %v", err)
	}
	if repo.bulkCalls != 0 {
		t.Fatalf("bulk updates = %d, want 0 for empty column", repo.bulkCalls)
	}
}

func TestBoardIncludesConfiguredEmptyColumns(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	seedTask(t, repo, "a", "todo", 1000, time.Now())

	board, err := svc.Board(context.Background(), false)
	if err != nil {
		t.Fatalf("Board() error = %v", err)
	}
	for _, st := range []string{"todo", "progress", "done"} {
		if _, ok := board.Columns[st]; !ok {
			t.Fatalf("column %q missing from board", st)
		}
	}
	if len(board.Columns["todo"]) != 1 {
		t.Fatalf("todo column = %v", board.Columns["todo"])
	}
}

func TestAddAttachmentDeduplicatesBySHA(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	seedTask(t, repo, "t1", "todo", 0, time.Now())

	first, err := svc.AddAttachment(ctx, AddAttachmentInput{
		TaskID:   "t1",
		FileName: "shot.png",
		MimeType: "image/png",
		FileSize: 1234,
		SHA256:   "deadbeef",
	})
	if err != nil {
		t.Fatalf("AddAttachment() error = %v", err)
	}
	second, err := svc.AddAttachment(ctx, AddAttachmentInput{
		TaskID:   "t1",
		FileName: "copy-of-shot.png",
		MimeType: "image/png",
		FileSize: 1234,
		SHA256:   "DEADBEEF",
	})
	if err != nil {
		t.Fatalf("AddAttachment() error = %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected deduplicated attachment, got %q and %q", first.ID, second.ID)
	}
	if len(repo.attachments) != 1 {
		t.Fatalf("attachments = %d, want 1", len(repo.attachments))
	}
}

func TestDeleteTaskRemovesAttachments(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	seedTask(t, repo, "t1", "todo", 0, time.Now())
	if _, err := svc.AddAttachment(ctx, AddAttachmentInput{TaskID: "t1", FileName: "a.txt"}); err != nil {
		t.Fatalf("AddAttachment() error = %v", err)
	}

	if err := svc.DeleteTask(ctx, "t1"); err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}
	if len(repo.attachments) != 0 {
		t.Fatalf("attachments = %d, want 0", len(repo.attachments))
	}
	if _, err := repo.GetTask(ctx, "t1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected task gone, got %v", err)
	}
}

func TestLabelLifecycle(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	label, err := svc.CreateLabel(ctx, "Bug", "")
	if err != nil {
		t.Fatalf("CreateLabel() error = %v", err)
	}
	if label.Color != domain.DefaultLabelColor {
		t.Fatalf("color = %q, want default", label.Color)
	}

	updated, err := svc.UpdateLabel(ctx, label.ID, "defect", "#ff0000")
	if err != nil {
		t.Fatalf("UpdateLabel() error = %v", err)
	}
	if updated.Name != "defect" || updated.Color != "#ff0000" {
		t.Fatalf("unexpected label %+v", updated)
	}

	if err := svc.DeleteLabel(ctx, label.ID); err != nil {
		t.Fatalf("DeleteLabel() error = %v", err)
	}
	labels, _ := svc.ListLabels(ctx)
	if len(labels) != 0 {
		t.Fatalf("labels = %d, want 0", len(labels))
	}
}

func taskIDs(tasks []domain.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}
