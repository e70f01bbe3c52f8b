package app

import (
	"context"

	"github.com/hylla/ranka/internal/domain"
	"github.com/hylla/ranka/internal/ordering"
)

// Repository is the persistence port the service writes through. List
// methods take an include-archived flag. BulkUpdatePositions must apply the
// whole set atomically; a rebalance that half-lands would corrupt the
// column's order.
type Repository interface {
	CreateTask(context.Context, domain.Task) error
	UpdateTask(context.Context, domain.Task) error
	GetTask(context.Context, string) (domain.Task, error)
	ListTasks(context.Context, bool) ([]domain.Task, error)
	ListTasksByStatus(context.Context, string, bool) ([]domain.Task, error)
	DeleteTask(context.Context, string) error
	BulkUpdatePositions(context.Context, []ordering.PlacedItem) error

	CreateLabel(context.Context, domain.Label) error
	UpdateLabel(context.Context, domain.Label) error
	GetLabel(context.Context, string) (domain.Label, error)
	ListLabels(context.Context) ([]domain.Label, error)
	DeleteLabel(context.Context, string) error

	CreateAttachment(context.Context, domain.Attachment) error
	ListAttachmentsByTask(context.Context, string) ([]domain.Attachment, error)
	FindAttachmentBySHA256(context.Context, string) (domain.Attachment, error)
	DeleteAttachment(context.Context, string) error
}
