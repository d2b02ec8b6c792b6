// Package projects persists project records.
package projects

import (
	"context"

	"github.com/otabek-dev/taskhub/internal/models"
)

type Repository interface {
	Create(ctx context.Context, p *models.Project) (*models.Project, error)
	GetByID(ctx context.Context, id string) (*models.Project, error)
	ListForUser(ctx context.Context, userID string) ([]*models.Project, error)
	Update(ctx context.Context, p *models.Project) (*models.Project, error)
	Delete(ctx context.Context, id string) error

	// ListFileURLs collects every blob URL owned by the project (project
	// image, task images, attachment files) for best-effort cleanup before
	// the row cascade.
	ListFileURLs(ctx context.Context, id string) ([]string, error)
}
