// Package subtasks persists checklist items under tasks.
package subtasks

import (
	"context"

	"github.com/otabek-dev/taskhub/internal/models"
)

type Repository interface {
	Create(ctx context.Context, s *models.Subtask) (*models.Subtask, error)
	GetByID(ctx context.Context, id string) (*models.Subtask, error)
	ListByTask(ctx context.Context, taskID string) ([]*models.Subtask, error)
	Update(ctx context.Context, s *models.Subtask) (*models.Subtask, error)
	Delete(ctx context.Context, id string) error
}
