package services

import (
	"context"
	"database/sql"

	"github.com/otabek-dev/taskhub/internal/apperr"
	"github.com/otabek-dev/taskhub/internal/models"
	"github.com/otabek-dev/taskhub/internal/repositories/repomanager"
)

// TagService manages the platform-global tag taxonomy. Reads are open to
// any authenticated user; mutations are gated on the global role.
type TagService struct {
	db    *sql.DB
	repos repomanager.RepositoryManager
}

func NewTagService(db *sql.DB, repos repomanager.RepositoryManager) *TagService {
	return &TagService{db: db, repos: repos}
}

func (s *TagService) requireAdmin(ctx context.Context, userID string) error {
	user, err := s.repos.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Role != models.RoleAdmin && user.Role != models.RoleSuperAdmin {
		return apperr.ErrForbidden
	}
	return nil
}

// Create adds a tag; ADMIN/SUPER_ADMIN only. A duplicate name surfaces as
// a conflict from the unique constraint.
func (s *TagService) Create(ctx context.Context, userID, name string, color *string) (*models.Tag, error) {
	if err := s.requireAdmin(ctx, userID); err != nil {
		return nil, err
	}
	return s.repos.Tags(s.db).Create(ctx, &models.Tag{Name: name, Color: color})
}

// List returns all tags.
func (s *TagService) List(ctx context.Context) ([]*models.Tag, error) {
	return s.repos.Tags(s.db).List(ctx)
}

// Get returns a single tag.
func (s *TagService) Get(ctx context.Context, id string) (*models.Tag, error) {
	return s.repos.Tags(s.db).GetByID(ctx, id)
}

// Update renames or recolors a tag; ADMIN/SUPER_ADMIN only.
func (s *TagService) Update(ctx context.Context, userID, id string, name *string, color *string) (*models.Tag, error) {
	if err := s.requireAdmin(ctx, userID); err != nil {
		return nil, err
	}
	repo := s.repos.Tags(s.db)

	tag, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if name != nil {
		tag.Name = *name
	}
	if color != nil {
		tag.Color = color
	}
	return repo.Update(ctx, tag)
}

// Delete removes a tag everywhere; ADMIN/SUPER_ADMIN only. Task links go
// with the row cascade.
func (s *TagService) Delete(ctx context.Context, userID, id string) error {
	if err := s.requireAdmin(ctx, userID); err != nil {
		return err
	}
	return s.repos.Tags(s.db).Delete(ctx, id)
}
