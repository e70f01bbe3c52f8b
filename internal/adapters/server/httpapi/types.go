package httpapi

import (
	"time"

	"github.com/hylla/ranka/internal/app"
	"github.com/hylla/ranka/internal/domain"
)

// taskDTO is the wire shape of one task.
type taskDTO struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	Position    int32      `json:"position"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Labels      []string   `json:"labels,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty"`
}

func taskDTOFrom(t domain.Task) taskDTO {
	return taskDTO{
		ID:          t.ID,
		Status:      t.Status,
		Position:    t.Position,
		Title:       t.Title,
		Description: t.Description,
		Labels:      t.Labels,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		ArchivedAt:  t.ArchivedAt,
	}
}

// labelDTO is the wire shape of one catalog label.
type labelDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

func labelDTOFrom(l domain.Label) labelDTO {
	return labelDTO{ID: l.ID, Name: l.Name, Color: l.Color}
}

// attachmentDTO is the wire shape of one attachment record.
type attachmentDTO struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	FileName  string    `json:"file_name"`
	MimeType  string    `json:"mime_type"`
	FileSize  int64     `json:"file_size"`
	SHA256    string    `json:"sha256,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func attachmentDTOFrom(a domain.Attachment) attachmentDTO {
	return attachmentDTO{
		ID:        a.ID,
		TaskID:    a.TaskID,
		FileName:  a.FileName,
		MimeType:  a.MimeType,
		FileSize:  a.FileSize,
		SHA256:    a.SHA256,
		CreatedAt: a.CreatedAt,
	}
}

// columnDTO is one board column with its display name and ordered tasks.
type columnDTO struct {
	Status string    `json:"status"`
	Name   string    `json:"name"`
	Tasks  []taskDTO `json:"tasks"`
}

// boardDTO is the wire shape of a full board snapshot.
type boardDTO struct {
	Columns []columnDTO `json:"columns"`
}

func boardDTOFrom(board app.BoardSnapshot) boardDTO {
	out := boardDTO{Columns: make([]columnDTO, 0, len(board.Statuses))}
	for _, st := range board.Statuses {
		col := columnDTO{Status: st.ID, Name: st.Name, Tasks: []taskDTO{}}
		for _, t := range board.Columns[st.ID] {
			col.Tasks = append(col.Tasks, taskDTOFrom(t))
		}
		out.Columns = append(out.Columns, col)
	}
	return out
}
