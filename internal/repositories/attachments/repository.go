// Package attachments persists file records linked to tasks.
package attachments

import (
	"context"

	"github.com/otabek-dev/taskhub/internal/models"
)

type Repository interface {
	Create(ctx context.Context, a *models.Attachment) (*models.Attachment, error)
	GetByID(ctx context.Context, id string) (*models.Attachment, error)
	ListByTask(ctx context.Context, taskID string) ([]*models.Attachment, error)
	Delete(ctx context.Context, id string) error
}
