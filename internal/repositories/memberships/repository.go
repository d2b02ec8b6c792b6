// Package memberships persists the (user, project, role) triples the
// authorization engine is built on.
package memberships

import (
	"context"

	"github.com/otabek-dev/taskhub/internal/models"
)

type Repository interface {
	Create(ctx context.Context, m *models.Membership) (*models.Membership, error)
	Get(ctx context.Context, projectID, userID string) (*models.Membership, error)
	ListByProject(ctx context.Context, projectID string) ([]*models.MembershipView, error)
	UpdateRole(ctx context.Context, projectID, userID string, role models.ProjectRole) (*models.Membership, error)
	Delete(ctx context.Context, projectID, userID string) error
}
