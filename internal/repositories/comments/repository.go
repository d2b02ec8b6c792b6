// Package comments persists authored notes on tasks.
package comments

import (
	"context"

	"github.com/otabek-dev/taskhub/internal/models"
)

type Repository interface {
	Create(ctx context.Context, c *models.Comment) (*models.Comment, error)
	GetByID(ctx context.Context, id string) (*models.Comment, error)
	ListByTask(ctx context.Context, taskID string) ([]*models.Comment, error)
	UpdateContent(ctx context.Context, id, content string) (*models.Comment, error)
	Delete(ctx context.Context, id string) error
}
