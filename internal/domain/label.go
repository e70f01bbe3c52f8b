package domain

import (
	"strings"
	"time"
)

// DefaultLabelColor is assigned when a label is created without one.
const DefaultLabelColor = "#6366f1"

// Label is a named, colored tag tasks can carry. Tasks reference labels by
// name; the catalog entry owns the display color.
type Label struct {
	ID        string
	Name      string
	Color     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewLabel constructs a validated label. Color falls back to
// DefaultLabelColor when empty.
func NewLabel(id, name, color string, now time.Time) (Label, error) {
	id = strings.TrimSpace(id)
	name = strings.ToLower(strings.TrimSpace(name))
	color = strings.TrimSpace(color)
	if id == "" {
		return Label{}, ErrInvalidID
	}
	if name == "" {
		return Label{}, ErrInvalidName
	}
	if color == "" {
		color = DefaultLabelColor
	}
	if !validHexColor(color) {
		return Label{}, ErrInvalidColor
	}
	return Label{
		ID:        id,
		Name:      name,
		Color:     color,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}, nil
}

// Update renames and recolors the label. Empty values keep the current ones.
func (l *Label) Update(name, color string, now time.Time) error {
	name = strings.ToLower(strings.TrimSpace(name))
	color = strings.TrimSpace(color)
	if name != "" {
		l.Name = name
	}
	if color != "" {
		if !validHexColor(color) {
			return ErrInvalidColor
		}
		l.Color = color
	}
	l.UpdatedAt = now.UTC()
	return nil
}

func validHexColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, r := range s[1:] {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
