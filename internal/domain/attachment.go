package domain

import (
	"strings"
	"time"
)

// Attachment records a file attached to a task. The file contents live
// outside this module; SHA256 is kept for deduplication.
type Attachment struct {
	ID        string
	TaskID    string
	FileName  string
	MimeType  string
	FileSize  int64
	SHA256    string
	CreatedAt time.Time
}

// AttachmentInput holds input values for attachment construction.
type AttachmentInput struct {
	ID       string
	TaskID   string
	FileName string
	MimeType string
	FileSize int64
	SHA256   string
}

// NewAttachment constructs a validated attachment record.
func NewAttachment(in AttachmentInput, now time.Time) (Attachment, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.TaskID = strings.TrimSpace(in.TaskID)
	in.FileName = strings.TrimSpace(in.FileName)
	in.MimeType = strings.TrimSpace(in.MimeType)
	in.SHA256 = strings.ToLower(strings.TrimSpace(in.SHA256))

	if in.ID == "" || in.TaskID == "" {
		return Attachment{}, ErrInvalidID
	}
	if in.FileName == "" {
		return Attachment{}, ErrInvalidFileName
	}
	if in.MimeType == "" {
		in.MimeType = "application/octet-stream"
	}

	return Attachment{
		ID:        in.ID,
		TaskID:    in.TaskID,
		FileName:  in.FileName,
		MimeType:  in.MimeType,
		FileSize:  in.FileSize,
		SHA256:    in.SHA256,
		CreatedAt: now.UTC(),
	}, nil
}
