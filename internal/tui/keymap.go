package tui

import "charm.land/bubbles/v2/key"

// keyMap represents key map data used by this package.
type keyMap struct {
	quit            key.Binding
	reload          key.Binding
	toggleHelp      key.Binding
	moveLeft        key.Binding
	moveRight       key.Binding
	moveUp          key.Binding
	moveDown        key.Binding
	addTask         key.Binding
	taskInfo        key.Binding
	moveTaskLeft    key.Binding
	moveTaskRight   key.Binding
	moveTaskUp      key.Binding
	moveTaskDown    key.Binding
	archiveTask     key.Binding
	restoreTask     key.Binding
	deleteTask      key.Binding
	yankTitle       key.Binding
	rebalanceColumn key.Binding
	toggleArchived  key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:            key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:          key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		toggleHelp:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		moveLeft:        key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "column left")),
		moveRight:       key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "column right")),
		moveUp:          key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "task up")),
		moveDown:        key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "task down")),
		addTask:         key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new task")),
		taskInfo:        key.NewBinding(key.WithKeys("i", "enter"), key.WithHelp("i/enter", "task info")),
		moveTaskLeft:    key.NewBinding(key.WithKeys("["), key.WithHelp("[", "move task left")),
		moveTaskRight:   key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "move task right")),
		moveTaskUp:      key.NewBinding(key.WithKeys("K", "shift+up"), key.WithHelp("K", "move task up")),
		moveTaskDown:    key.NewBinding(key.WithKeys("J", "shift+down"), key.WithHelp("J", "move task down")),
		archiveTask:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "archive task")),
		restoreTask:     key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "restore task")),
		deleteTask:      key.NewBinding(key.WithKeys("D", "shift+d"), key.WithHelp("D", "delete task")),
		yankTitle:       key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yank title")),
		rebalanceColumn: key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "rebalance column")),
		toggleArchived:  key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "toggle archived")),
	}
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.addTask, k.taskInfo, k.archiveTask, k.toggleHelp, k.quit,
	}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.addTask, k.taskInfo, k.yankTitle, k.toggleArchived, k.toggleHelp, k.reload, k.quit},
		{k.moveLeft, k.moveRight, k.moveUp, k.moveDown, k.moveTaskLeft, k.moveTaskRight, k.moveTaskUp, k.moveTaskDown},
		{k.archiveTask, k.restoreTask, k.deleteTask, k.rebalanceColumn},
	}
}
