package tui

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/hylla/ranka/internal/app"
	"github.com/hylla/ranka/internal/domain"
)

// fakeService is an in-memory board used to drive the model in tests.
type fakeService struct {
	statuses []app.StatusTemplate
	tasks    []domain.Task
	err      error

	lastMoveID     string
	lastMoveStatus string
	lastMoveIndex  int
	rebalanced     []string
	nextID         int
}

func newFakeService(tasks []domain.Task) *fakeService {
	return &fakeService{
		statuses: []app.StatusTemplate{
			{ID: "todo", Name: "To Do"},
			{ID: "progress", Name: "In Progress"},
			{ID: "done", Name: "Done"},
		},
		tasks: tasks,
	}
}

func (f *fakeService) Board(_ context.Context, includeArchived bool) (app.BoardSnapshot, error) {
	if f.err != nil {
		return app.BoardSnapshot{}, f.err
	}
	visible := make([]domain.Task, 0, len(f.tasks))
	for _, t := range f.tasks {
		if !includeArchived && t.ArchivedAt != nil {
			continue
		}
		visible = append(visible, t)
	}
	columns := domain.GroupByStatus(visible)
	for _, st := range f.statuses {
		if _, ok := columns[st.ID]; !ok {
			columns[st.ID] = []domain.Task{}
		}
	}
	return app.BoardSnapshot{Statuses: f.statuses, Columns: columns}, nil
}

func (f *fakeService) CreateTask(_ context.Context, in app.CreateTaskInput) (domain.Task, error) {
	if f.err != nil {
		return domain.Task{}, f.err
	}
	f.nextID++
	task, err := domain.NewTask(domain.TaskInput{
		ID:       fmt.Sprintf("t-new-%d", f.nextID),
		Status:   in.Status,
		Position: int32(1000 * (len(f.tasks) + 1)),
		Title:    in.Title,
	}, time.Now().UTC())
	if err != nil {
		return domain.Task{}, err
	}
	f.tasks = append(f.tasks, task)
	return task, nil
}

func (f *fakeService) MoveTask(_ context.Context, taskID, status string, index int) (domain.Task, error) {
	f.lastMoveID = taskID
	f.lastMoveStatus = status
	f.lastMoveIndex = index
	if f.err != nil {
		return domain.Task{}, f.err
	}
	for i := range f.tasks {
		if f.tasks[i].ID == taskID {
			f.tasks[i].Status = status
			return f.tasks[i], nil
		}
	}
	return domain.Task{}, app.ErrNotFound
}

func (f *fakeService) ArchiveTask(_ context.Context, taskID string) (domain.Task, error) {
	for i := range f.tasks {
		if f.tasks[i].ID == taskID {
			f.tasks[i].Archive(time.Now().UTC())
			return f.tasks[i], nil
		}
	}
	return domain.Task{}, app.ErrNotFound
}

func (f *fakeService) RestoreTask(_ context.Context, taskID string) (domain.Task, error) {
	for i := range f.tasks {
		if f.tasks[i].ID == taskID {
			f.tasks[i].Restore(time.Now().UTC())
			return f.tasks[i], nil
		}
	}
	return domain.Task{}, app.ErrNotFound
}

func (f *fakeService) DeleteTask(_ context.Context, taskID string) error {
	for i := range f.tasks {
		if f.tasks[i].ID == taskID {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return app.ErrNotFound
}

func (f *fakeService) RebalanceColumn(_ context.Context, status string) error {
	f.rebalanced = append(f.rebalanced, status)
	return nil
}

func testTask(t *testing.T, id, status string, pos int32, title string) domain.Task {
	t.Helper()
	task, err := domain.NewTask(domain.TaskInput{
		ID:       id,
		Status:   status,
		Position: pos,
		Title:    title,
	}, time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}
	return task
}

// loadModel constructs a model and applies one window size plus the initial load.
func loadModel(t *testing.T, svc Service, opts ...Option) Model {
	t.Helper()
	m := NewModel(svc, opts...)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 35})
	m = updated.(Model)
	msg := m.Init()()
	updated, _ = m.Update(msg)
	return updated.(Model)
}

// press sends one key press and applies any resulting commands synchronously.
func press(t *testing.T, m Model, k tea.KeyPressMsg) Model {
	t.Helper()
	updated, cmd := m.Update(k)
	m = updated.(Model)
	for cmd != nil {
		msg := cmd()
		if msg == nil {
			break
		}
		updated, cmd = m.Update(msg)
		m = updated.(Model)
	}
	return m
}

func keyRune(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func TestModelLoadsBoard(t *testing.T) {
	svc := newFakeService([]domain.Task{
		testTask(t, "t1", "todo", 0, "First"),
		testTask(t, "t2", "todo", 1000, "Second"),
		testTask(t, "t3", "done", 0, "Shipped"),
	})
	m := loadModel(t, svc)

	if m.err != nil {
		t.Fatalf("err = %v, want nil", m.err)
	}
	if len(m.statuses) != 3 {
		t.Fatalf("statuses = %d, want 3", len(m.statuses))
	}
	out := m.render()
	for _, want := range []string{"First", "Second", "Shipped", "To Do", "Done"} {
		if !strings.Contains(out, want) {
			t.Fatalf("view missing %q", want)
		}
	}
}

func TestModelNavigation(t *testing.T) {
	svc := newFakeService([]domain.Task{
		testTask(t, "t1", "todo", 0, "First"),
		testTask(t, "t2", "todo", 1000, "Second"),
	})
	m := loadModel(t, svc)

	m = press(t, m, keyRune('j'))
	if m.selectedTask != 1 {
		t.Fatalf("selectedTask = %d, want 1", m.selectedTask)
	}
	m = press(t, m, keyRune('l'))
	if m.selectedColumn != 1 {
		t.Fatalf("selectedColumn = %d, want 1", m.selectedColumn)
	}
	if m.selectedTask != 0 {
		t.Fatalf("selectedTask = %d, want 0 after switching to empty column", m.selectedTask)
	}
	m = press(t, m, keyRune('h'))
	if m.selectedColumn != 0 {
		t.Fatalf("selectedColumn = %d, want 0", m.selectedColumn)
	}
}

func TestModelAddTaskFlow(t *testing.T) {
	svc := newFakeService(nil)
	m := loadModel(t, svc)

	m = press(t, m, keyRune('n'))
	if m.mode != modeAddTask {
		t.Fatalf("mode = %d, want modeAddTask", m.mode)
	}
	for _, r := range "Ship it" {
		m = press(t, m, keyRune(r))
	}
	m = press(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if m.mode != modeNone {
		t.Fatalf("mode = %d, want modeNone after submit", m.mode)
	}
	if len(svc.tasks) != 1 || svc.tasks[0].Title != "Ship it" {
		t.Fatalf("created tasks = %+v", svc.tasks)
	}
	if len(m.columns["todo"]) != 1 {
		t.Fatalf("todo column = %d tasks after reload, want 1", len(m.columns["todo"]))
	}
	if got, _ := m.selectedTaskValue(); got.Title != "Ship it" {
		t.Fatalf("cursor not on created task: %+v", got)
	}
}

func TestModelAddTaskEscCancels(t *testing.T) {
	svc := newFakeService(nil)
	m := loadModel(t, svc)

	m = press(t, m, keyRune('n'))
	m = press(t, m, keyRune('x'))
	m = press(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if m.mode != modeNone {
		t.Fatalf("mode = %d, want modeNone after esc", m.mode)
	}
	if len(svc.tasks) != 0 {
		t.Fatalf("tasks = %d, want 0", len(svc.tasks))
	}
}

func TestModelMoveTaskWithinColumn(t *testing.T) {
	svc := newFakeService([]domain.Task{
		testTask(t, "t1", "todo", 0, "First"),
		testTask(t, "t2", "todo", 1000, "Second"),
	})
	m := loadModel(t, svc)

	m = press(t, m, keyRune('j'))
	_ = press(t, m, tea.KeyPressMsg{Code: 'K', Text: "K"})
	if svc.lastMoveID != "t2" || svc.lastMoveStatus != "todo" || svc.lastMoveIndex != 0 {
		t.Fatalf("move call = (%q, %q, %d), want (t2, todo, 0)", svc.lastMoveID, svc.lastMoveStatus, svc.lastMoveIndex)
	}
}

func TestModelMoveTaskAcrossColumns(t *testing.T) {
	svc := newFakeService([]domain.Task{
		testTask(t, "t1", "todo", 0, "First"),
	})
	m := loadModel(t, svc)

	m = press(t, m, keyRune(']'))
	if svc.lastMoveID != "t1" || svc.lastMoveStatus != "progress" {
		t.Fatalf("move call = (%q, %q), want (t1, progress)", svc.lastMoveID, svc.lastMoveStatus)
	}
	if m.selectedColumn != 1 {
		t.Fatalf("selectedColumn = %d, want 1 to follow the task", m.selectedColumn)
	}
}

func TestModelDeleteRequiresConfirmation(t *testing.T) {
	svc := newFakeService([]domain.Task{
		testTask(t, "t1", "todo", 0, "First"),
	})
	m := loadModel(t, svc)

	m = press(t, m, tea.KeyPressMsg{Code: 'D', Text: "D"})
	if m.mode != modeConfirmDelete {
		t.Fatalf("mode = %d, want modeConfirmDelete", m.mode)
	}
	if len(svc.tasks) != 1 {
		t.Fatalf("task deleted before confirmation")
	}

	m = press(t, m, keyRune('n'))
	if len(svc.tasks) != 1 {
		t.Fatalf("tasks = %d after cancel, want 1", len(svc.tasks))
	}

	m = press(t, m, tea.KeyPressMsg{Code: 'D', Text: "D"})
	m = press(t, m, keyRune('y'))
	if len(svc.tasks) != 0 {
		t.Fatalf("tasks = %d after confirm, want 0", len(svc.tasks))
	}
}

func TestModelArchiveAndToggleArchived(t *testing.T) {
	svc := newFakeService([]domain.Task{
		testTask(t, "t1", "todo", 0, "First"),
	})
	m := loadModel(t, svc)

	m = press(t, m, keyRune('a'))
	if svc.tasks[0].ArchivedAt == nil {
		t.Fatalf("task not archived")
	}
	if len(m.columns["todo"]) != 0 {
		t.Fatalf("archived task still visible: %d", len(m.columns["todo"]))
	}

	m = press(t, m, keyRune('t'))
	if len(m.columns["todo"]) != 1 {
		t.Fatalf("archived task hidden with toggle on: %d", len(m.columns["todo"]))
	}
}

func TestModelYankUsesClipboardWriter(t *testing.T) {
	svc := newFakeService([]domain.Task{
		testTask(t, "t1", "todo", 0, "Copy me"),
	})
	var copied string
	m := loadModel(t, svc, WithClipboardWriter(func(s string) error {
		copied = s
		return nil
	}))

	m = press(t, m, keyRune('y'))
	if copied != "Copy me" {
		t.Fatalf("copied = %q, want Copy me", copied)
	}
	if !strings.Contains(m.status, "copied") {
		t.Fatalf("status = %q, want copied notice", m.status)
	}
}

func TestModelRebalanceColumn(t *testing.T) {
	svc := newFakeService([]domain.Task{
		testTask(t, "t1", "todo", 1000, "First"),
		testTask(t, "t2", "todo", 1001, "Second"),
	})
	m := loadModel(t, svc)

	_ = press(t, m, tea.KeyPressMsg{Code: 'R', Text: "R"})
	if len(svc.rebalanced) != 1 || svc.rebalanced[0] != "todo" {
		t.Fatalf("rebalanced = %v, want [todo]", svc.rebalanced)
	}
}

func TestModelTaskInfoOverlay(t *testing.T) {
	task := testTask(t, "t1", "todo", 0, "Detailed")
	if err := task.UpdateDetails("Detailed", "some **markdown** body", nil, task.CreatedAt); err != nil {
		t.Fatalf("UpdateDetails() error = %v", err)
	}
	svc := newFakeService([]domain.Task{task})
	m := loadModel(t, svc)

	m = press(t, m, keyRune('i'))
	if m.mode != modeTaskInfo {
		t.Fatalf("mode = %d, want modeTaskInfo", m.mode)
	}
	out := m.render()
	if !strings.Contains(out, "Detailed") {
		t.Fatalf("info overlay missing task title")
	}

	m = press(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if m.mode != modeNone {
		t.Fatalf("mode = %d, want modeNone after esc", m.mode)
	}
}

func TestModelLoadErrorShowsRetryView(t *testing.T) {
	svc := newFakeService(nil)
	svc.err = fmt.Errorf("database locked")
	m := loadModel(t, svc)

	out := m.render()
	if !strings.Contains(out, "database locked") {
		t.Fatalf("error view missing cause: %q", out)
	}

	svc.err = nil
	m = press(t, m, keyRune('r'))
	if m.err != nil {
		t.Fatalf("err = %v after retry, want nil", m.err)
	}
}
