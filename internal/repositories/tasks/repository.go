// Package tasks persists task records and their tag links.
package tasks

import (
	"context"

	"github.com/otabek-dev/taskhub/internal/models"
)

type Repository interface {
	Create(ctx context.Context, t *models.Task, tagIDs []string) (*models.Task, error)
	GetByID(ctx context.Context, id string) (*models.Task, error)
	ListByProject(ctx context.Context, projectID string, status *models.TaskStatus) ([]*models.Task, error)
	Update(ctx context.Context, t *models.Task, tagIDs []string) (*models.Task, error)
	Delete(ctx context.Context, id string) error

	// ListFileURLs collects the task image and attachment URLs for
	// best-effort blob cleanup before deletion.
	ListFileURLs(ctx context.Context, id string) ([]string, error)
	ListTags(ctx context.Context, id string) ([]*models.Tag, error)
}
