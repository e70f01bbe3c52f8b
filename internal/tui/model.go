package tui

import (
	"context"
	"fmt"
	"image/color"
	"strings"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/atotto/clipboard"

	"github.com/hylla/ranka/internal/app"
	"github.com/hylla/ranka/internal/domain"
)

// Service represents service data used by this package.
type Service interface {
	Board(context.Context, bool) (app.BoardSnapshot, error)
	CreateTask(context.Context, app.CreateTaskInput) (domain.Task, error)
	MoveTask(context.Context, string, string, int) (domain.Task, error)
	ArchiveTask(context.Context, string) (domain.Task, error)
	RestoreTask(context.Context, string) (domain.Task, error)
	DeleteTask(context.Context, string) error
	RebalanceColumn(context.Context, string) error
}

// inputMode represents a selectable mode.
type inputMode int

// modeNone and related constants define package defaults.
const (
	modeNone inputMode = iota
	modeAddTask
	modeTaskInfo
	modeConfirmDelete
)

// Model represents model data used by this package.
type Model struct {
	svc Service

	ready  bool
	width  int
	height int
	err    error

	status string

	help help.Model
	keys keyMap

	statuses       []app.StatusTemplate
	columns        map[string][]domain.Task
	selectedColumn int
	selectedTask   int

	mode         inputMode
	showArchived bool

	titleInput textinput.Model

	infoTaskID  string
	confirmTask domain.Task

	pendingFocusTaskID string

	markdown markdownRenderer

	writeClipboard func(string) error
}

// loadedMsg carries message data through update handling.
type loadedMsg struct {
	board app.BoardSnapshot
	err   error
}

// actionMsg carries message data through update handling.
type actionMsg struct {
	err         error
	status      string
	reload      bool
	focusTaskID string
}

// NewModel constructs a new value for this package.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	titleInput := textinput.New()
	titleInput.Prompt = "title: "
	titleInput.Placeholder = "what needs doing?"
	titleInput.CharLimit = 200
	m := Model{
		svc:            svc,
		status:         "loading...",
		help:           h,
		keys:           newKeyMap(),
		columns:        map[string][]domain.Task{},
		titleInput:     titleInput,
		writeClipboard: clipboard.WriteAll,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// Init handles init.
func (m Model) Init() tea.Cmd {
	return m.loadData
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.statuses = msg.board.Statuses
		m.columns = msg.board.Columns
		m.selectedColumn = clamp(m.selectedColumn, 0, max(0, len(m.statuses)-1))
		if m.pendingFocusTaskID != "" {
			m.focusTask(m.pendingFocusTaskID)
			m.pendingFocusTaskID = ""
		}
		m.selectedTask = clamp(m.selectedTask, 0, max(0, len(m.selectedColumnTasks())-1))
		if m.status == "loading..." {
			m.status = "ready"
		}
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.status = "error: " + msg.err.Error()
			return m, nil
		}
		if msg.status != "" {
			m.status = msg.status
		}
		if msg.focusTaskID != "" {
			m.pendingFocusTaskID = msg.focusTaskID
		}
		if msg.reload {
			return m, m.loadData
		}
		return m, nil

	case tea.KeyPressMsg:
		if m.mode != modeNone {
			return m.handleInputModeKey(msg)
		}
		return m.handleNormalModeKey(msg)

	default:
		return m, nil
	}
}

// handleNormalModeKey handles board navigation and task actions.
func (m Model) handleNormalModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.reload):
		m.status = "reloading..."
		return m, m.loadData

	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.moveLeft):
		if m.selectedColumn > 0 {
			m.selectedColumn--
			m.selectedTask = clamp(m.selectedTask, 0, max(0, len(m.selectedColumnTasks())-1))
		}
		return m, nil

	case key.Matches(msg, m.keys.moveRight):
		if m.selectedColumn < len(m.statuses)-1 {
			m.selectedColumn++
			m.selectedTask = clamp(m.selectedTask, 0, max(0, len(m.selectedColumnTasks())-1))
		}
		return m, nil

	case key.Matches(msg, m.keys.moveUp):
		if m.selectedTask > 0 {
			m.selectedTask--
		}
		return m, nil

	case key.Matches(msg, m.keys.moveDown):
		if m.selectedTask < len(m.selectedColumnTasks())-1 {
			m.selectedTask++
		}
		return m, nil

	case key.Matches(msg, m.keys.addTask):
		if len(m.statuses) == 0 {
			return m, nil
		}
		m.mode = modeAddTask
		m.titleInput.SetValue("")
		return m, m.titleInput.Focus()

	case key.Matches(msg, m.keys.taskInfo):
		task, ok := m.selectedTaskValue()
		if !ok {
			return m, nil
		}
		m.mode = modeTaskInfo
		m.infoTaskID = task.ID
		return m, nil

	case key.Matches(msg, m.keys.moveTaskLeft):
		return m.moveSelectedToColumn(m.selectedColumn - 1)

	case key.Matches(msg, m.keys.moveTaskRight):
		return m.moveSelectedToColumn(m.selectedColumn + 1)

	case key.Matches(msg, m.keys.moveTaskUp):
		return m.moveSelectedWithinColumn(-1)

	case key.Matches(msg, m.keys.moveTaskDown):
		return m.moveSelectedWithinColumn(+1)

	case key.Matches(msg, m.keys.archiveTask):
		task, ok := m.selectedTaskValue()
		if !ok || task.ArchivedAt != nil {
			return m, nil
		}
		return m, m.archiveTaskCmd(task)

	case key.Matches(msg, m.keys.restoreTask):
		task, ok := m.selectedTaskValue()
		if !ok || task.ArchivedAt == nil {
			return m, nil
		}
		return m, m.restoreTaskCmd(task)

	case key.Matches(msg, m.keys.deleteTask):
		task, ok := m.selectedTaskValue()
		if !ok {
			return m, nil
		}
		m.mode = modeConfirmDelete
		m.confirmTask = task
		return m, nil

	case key.Matches(msg, m.keys.yankTitle):
		task, ok := m.selectedTaskValue()
		if !ok {
			return m, nil
		}
		if err := m.writeClipboard(task.Title); err != nil {
			m.status = "clipboard unavailable: " + err.Error()
		} else {
			m.status = "copied: " + truncate(task.Title, 40)
		}
		return m, nil

	case key.Matches(msg, m.keys.rebalanceColumn):
		status, ok := m.selectedStatus()
		if !ok {
			return m, nil
		}
		return m, m.rebalanceColumnCmd(status.ID)

	case key.Matches(msg, m.keys.toggleArchived):
		m.showArchived = !m.showArchived
		return m, m.loadData

	default:
		return m, nil
	}
}

// handleInputModeKey handles keys while an overlay is active.
func (m Model) handleInputModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeAddTask:
		switch msg.String() {
		case "esc":
			m.mode = modeNone
			m.titleInput.Blur()
			return m, nil
		case "enter":
			title := strings.TrimSpace(m.titleInput.Value())
			if title == "" {
				return m, nil
			}
			status, ok := m.selectedStatus()
			if !ok {
				m.mode = modeNone
				return m, nil
			}
			m.mode = modeNone
			m.titleInput.Blur()
			return m, m.createTaskCmd(status.ID, title)
		default:
			var cmd tea.Cmd
			m.titleInput, cmd = m.titleInput.Update(msg)
			return m, cmd
		}

	case modeTaskInfo:
		switch msg.String() {
		case "esc", "q", "i", "enter":
			m.mode = modeNone
			m.infoTaskID = ""
		}
		return m, nil

	case modeConfirmDelete:
		switch msg.String() {
		case "y", "Y", "enter":
			task := m.confirmTask
			m.mode = modeNone
			m.confirmTask = domain.Task{}
			return m, m.deleteTaskCmd(task)
		case "n", "N", "esc":
			m.mode = modeNone
			m.confirmTask = domain.Task{}
			m.status = "delete cancelled"
		}
		return m, nil

	default:
		m.mode = modeNone
		return m, nil
	}
}

// View handles view.
func (m Model) View() tea.View {
	v := tea.NewView(m.render())
	v.AltScreen = true
	return v
}

// render produces the full frame content.
func (m Model) render() string {
	if m.err != nil {
		return "error: " + m.err.Error() + "\n\npress r to retry • q quit\n"
	}
	if !m.ready {
		return "loading..."
	}

	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle := lipgloss.NewStyle().Foreground(dim)

	header := titleStyle.Render("ranka")
	if m.showArchived {
		header += statusStyle.Render("  showing archived")
	}

	colWidth := m.columnWidth()
	colHeight := m.columnHeight()
	baseColStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dim).
		Padding(1, 2).
		MarginRight(1).
		Width(colWidth)
	selColStyle := baseColStyle.BorderForeground(accent)
	colTitle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	archivedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	selectedTaskStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	labelStyle := lipgloss.NewStyle().Foreground(muted)

	columnViews := make([]string, 0, len(m.statuses))
	for colIdx, st := range m.statuses {
		tasks := m.columns[st.ID]
		lines := []string{colTitle.Render(fmt.Sprintf("%s (%d)", st.Name, len(tasks)))}

		if len(tasks) == 0 {
			lines = append(lines, archivedStyle.Render("(empty)"))
		}
		for taskIdx, task := range tasks {
			selected := colIdx == m.selectedColumn && taskIdx == m.selectedTask
			prefix := "   "
			if selected {
				prefix = "│  "
			}
			title := prefix + truncate(task.Title, max(1, colWidth-8))
			switch {
			case task.ArchivedAt != nil:
				title = archivedStyle.Render(title)
			case selected:
				title = selectedTaskStyle.Render(title)
			}
			lines = append(lines, title)
			if len(task.Labels) > 0 {
				lines = append(lines, prefix+labelStyle.Render(truncate(strings.Join(task.Labels, ", "), max(1, colWidth-8))))
			}
		}

		content := fitLines(strings.Join(lines, "\n"), max(1, colHeight-4))
		if colIdx == m.selectedColumn {
			columnViews = append(columnViews, selColStyle.Render(content))
		} else {
			columnViews = append(columnViews, baseColStyle.Render(content))
		}
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, columnViews...)

	sections := []string{header, "", body}
	if strings.TrimSpace(m.status) != "" && m.status != "ready" {
		sections = append(sections, statusStyle.Render(m.status))
	}
	content := strings.Join(sections, "\n")

	helpBubble := m.help
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(muted).
		BorderTop(true).
		BorderForeground(dim).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(m.keys))

	if m.height > 0 {
		content = fitLines(content, max(0, m.height-lipgloss.Height(helpLine)))
	}
	fullContent := content + "\n" + helpLine

	if overlay := m.renderOverlay(accent, muted, dim); overlay != "" {
		overlayHeight := lipgloss.Height(fullContent)
		if m.height > 0 {
			overlayHeight = m.height
		}
		fullContent = lipgloss.Place(max(1, m.width), max(1, overlayHeight), lipgloss.Center, lipgloss.Center, overlay)
	}

	return fullContent
}

// renderOverlay renders the active modal, or "" when no overlay applies.
func (m Model) renderOverlay(accent, muted, dim color.Color) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(1, 2).
		Width(min(max(40, m.width-8), 80))
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	hintStyle := lipgloss.NewStyle().Foreground(muted)

	switch m.mode {
	case modeAddTask:
		status, _ := m.selectedStatus()
		return boxStyle.Render(strings.Join([]string{
			titleStyle.Render("New task in " + status.Name),
			"",
			m.titleInput.View(),
			"",
			hintStyle.Render("enter save • esc cancel"),
		}, "\n"))

	case modeTaskInfo:
		task, ok := m.taskByID(m.infoTaskID)
		if !ok {
			return ""
		}
		sections := []string{titleStyle.Render(task.Title)}
		meta := fmt.Sprintf("status: %s  position: %d", task.Status, task.Position)
		if task.ArchivedAt != nil {
			meta += "  archived"
		}
		sections = append(sections, hintStyle.Render(meta))
		if len(task.Labels) > 0 {
			sections = append(sections, hintStyle.Render("labels: "+strings.Join(task.Labels, ", ")))
		}
		if desc := m.markdown.render(task.Description, min(max(40, m.width-12), 76)); desc != "" {
			sections = append(sections, "", desc)
		}
		sections = append(sections, "", hintStyle.Render("esc close"))
		return boxStyle.Render(strings.Join(sections, "\n"))

	case modeConfirmDelete:
		return boxStyle.Render(strings.Join([]string{
			titleStyle.Render("Delete task?"),
			"",
			truncate(m.confirmTask.Title, 70),
			"",
			hintStyle.Render("y delete • n cancel"),
		}, "\n"))

	default:
		return ""
	}
}

// loadData loads the full board snapshot.
func (m Model) loadData() tea.Msg {
	board, err := m.svc.Board(context.Background(), m.showArchived)
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{board: board}
}

func (m Model) createTaskCmd(status, title string) tea.Cmd {
	return func() tea.Msg {
		task, err := m.svc.CreateTask(context.Background(), app.CreateTaskInput{Status: status, Title: title})
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "created: " + truncate(task.Title, 40), reload: true, focusTaskID: task.ID}
	}
}

func (m Model) moveTaskCmd(task domain.Task, targetStatus string, targetIndex int) tea.Cmd {
	return func() tea.Msg {
		moved, err := m.svc.MoveTask(context.Background(), task.ID, targetStatus, targetIndex)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "moved: " + truncate(moved.Title, 40), reload: true, focusTaskID: moved.ID}
	}
}

func (m Model) archiveTaskCmd(task domain.Task) tea.Cmd {
	return func() tea.Msg {
		if _, err := m.svc.ArchiveTask(context.Background(), task.ID); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "archived: " + truncate(task.Title, 40), reload: true}
	}
}

func (m Model) restoreTaskCmd(task domain.Task) tea.Cmd {
	return func() tea.Msg {
		if _, err := m.svc.RestoreTask(context.Background(), task.ID); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "restored: " + truncate(task.Title, 40), reload: true, focusTaskID: task.ID}
	}
}

func (m Model) deleteTaskCmd(task domain.Task) tea.Cmd {
	return func() tea.Msg {
		if err := m.svc.DeleteTask(context.Background(), task.ID); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "deleted: " + truncate(task.Title, 40), reload: true}
	}
}

func (m Model) rebalanceColumnCmd(status string) tea.Cmd {
	return func() tea.Msg {
		if err := m.svc.RebalanceColumn(context.Background(), status); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "rebalanced " + status, reload: true}
	}
}

// moveSelectedToColumn moves the selected task to an adjacent column, keeping
// its visual row where the target column allows it.
func (m Model) moveSelectedToColumn(targetIdx int) (tea.Model, tea.Cmd) {
	task, ok := m.selectedTaskValue()
	if !ok || targetIdx < 0 || targetIdx >= len(m.statuses) {
		return m, nil
	}
	target := m.statuses[targetIdx]
	index := m.selectedTask
	if index > len(m.columns[target.ID]) {
		index = -1
	}
	m.selectedColumn = targetIdx
	return m, m.moveTaskCmd(task, target.ID, index)
}

// moveSelectedWithinColumn repositions the selected task one row up or down.
func (m Model) moveSelectedWithinColumn(delta int) (tea.Model, tea.Cmd) {
	task, ok := m.selectedTaskValue()
	if !ok {
		return m, nil
	}
	tasks := m.selectedColumnTasks()
	target := m.selectedTask + delta
	if target < 0 || target >= len(tasks) {
		return m, nil
	}
	status, _ := m.selectedStatus()
	return m, m.moveTaskCmd(task, status.ID, target)
}

// focusTask moves the cursor onto the named task wherever it landed.
func (m *Model) focusTask(taskID string) {
	for colIdx, st := range m.statuses {
		for taskIdx, task := range m.columns[st.ID] {
			if task.ID == taskID {
				m.selectedColumn = colIdx
				m.selectedTask = taskIdx
				return
			}
		}
	}
}

func (m Model) selectedStatus() (app.StatusTemplate, bool) {
	if len(m.statuses) == 0 {
		return app.StatusTemplate{}, false
	}
	return m.statuses[clamp(m.selectedColumn, 0, len(m.statuses)-1)], true
}

func (m Model) selectedColumnTasks() []domain.Task {
	status, ok := m.selectedStatus()
	if !ok {
		return nil
	}
	return m.columns[status.ID]
}

func (m Model) selectedTaskValue() (domain.Task, bool) {
	tasks := m.selectedColumnTasks()
	if len(tasks) == 0 || m.selectedTask < 0 || m.selectedTask >= len(tasks) {
		return domain.Task{}, false
	}
	return tasks[m.selectedTask], true
}

func (m Model) taskByID(taskID string) (domain.Task, bool) {
	for _, st := range m.statuses {
		for _, task := range m.columns[st.ID] {
			if task.ID == taskID {
				return task, true
			}
		}
	}
	return domain.Task{}, false
}

func (m Model) columnWidth() int {
	if len(m.statuses) == 0 {
		return 24
	}
	width := m.width/len(m.statuses) - 4
	return clamp(width, 18, 48)
}

func (m Model) columnHeight() int {
	if m.height <= 0 {
		return 20
	}
	return max(8, m.height-6)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(runes[:width-1]) + "…"
}

// fitLines pads or trims content to exactly height lines.
func fitLines(content string, height int) string {
	if height <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
