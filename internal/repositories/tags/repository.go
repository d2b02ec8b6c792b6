// Package tags persists the platform-global tag taxonomy.
package tags

import (
	"context"

	"github.com/otabek-dev/taskhub/internal/models"
)

type Repository interface {
	Create(ctx context.Context, t *models.Tag) (*models.Tag, error)
	GetByID(ctx context.Context, id string) (*models.Tag, error)
	List(ctx context.Context) ([]*models.Tag, error)
	Update(ctx context.Context, t *models.Tag) (*models.Tag, error)
	Delete(ctx context.Context, id string) error
}
