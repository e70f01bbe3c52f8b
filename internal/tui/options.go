package tui

// Option configures a Model at construction time.
type Option func(*Model)

// WithShowArchived starts the board with archived tasks visible.
func WithShowArchived(show bool) Option {
	return func(m *Model) {
		m.showArchived = show
	}
}

// WithClipboardWriter replaces the system clipboard writer, mainly for tests
// and clipboard-less environments.
func WithClipboardWriter(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.writeClipboard = write
		}
	}
}
