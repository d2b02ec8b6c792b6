package services

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/otabek-dev/taskhub/internal/apperr"
	"github.com/otabek-dev/taskhub/internal/authz"
	"github.com/otabek-dev/taskhub/internal/dbx"
	"github.com/otabek-dev/taskhub/internal/models"
	"github.com/otabek-dev/taskhub/internal/repositories/repomanager"
	"github.com/otabek-dev/taskhub/internal/storage"
)

// ProjectService manages projects and their memberships.
type ProjectService struct {
	db    *sql.DB
	repos repomanager.RepositoryManager
	authz *authz.Engine
	files storage.FileStore
	log   *zap.SugaredLogger
}

func NewProjectService(db *sql.DB, repos repomanager.RepositoryManager, az *authz.Engine, files storage.FileStore, log *zap.SugaredLogger) *ProjectService {
	return &ProjectService{db: db, repos: repos, authz: az, files: files, log: log}
}

// Create stores the project and its OWNER membership in one transaction;
// the creator becomes OWNER and that membership is immutable afterwards.
func (s *ProjectService) Create(ctx context.Context, userID, name string, description *string, image *FileUpload) (*models.Project, error) {
	var imageURL *string
	if image != nil {
		url, err := s.files.Upload(ctx, image.Data, image.ContentType, image.FileName)
		if err != nil {
			return nil, fmt.Errorf("uploading project image: %w", err)
		}
		imageURL = &url
	}

	var created *models.Project
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		p, err := s.repos.Projects(tx).Create(ctx, &models.Project{
			Name:            name,
			Description:     description,
			ProjectImageURL: imageURL,
			OwnerID:         userID,
		})
		if err != nil {
			return err
		}
		if _, err := s.repos.Memberships(tx).Create(ctx, &models.Membership{
			UserID:    userID,
			ProjectID: p.ID,
			Role:      models.ProjectRoleOwner,
		}); err != nil {
			return err
		}
		created = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ListForUser returns the projects the caller is a member of.
func (s *ProjectService) ListForUser(ctx context.Context, userID string) ([]*models.Project, error) {
	return s.repos.Projects(s.db).ListForUser(ctx, userID)
}

// Get returns a project to its members only.
func (s *ProjectService) Get(ctx context.Context, projectID, userID string) (*models.Project, error) {
	if _, err := s.authz.RequireMembership(ctx, projectID, userID); err != nil {
		return nil, err
	}
	return s.repos.Projects(s.db).GetByID(ctx, projectID)
}

// Update edits name/description/image; OWNER or project ADMIN only.
func (s *ProjectService) Update(ctx context.Context, projectID, userID string, name *string, description *string, image *FileUpload) (*models.Project, error) {
	if _, err := s.authz.RequireRole(ctx, projectID, userID, models.ProjectRoleOwner, models.ProjectRoleAdmin); err != nil {
		return nil, err
	}

	repo := s.repos.Projects(s.db)
	p, err := repo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if name != nil {
		p.Name = *name
	}
	if description != nil {
		p.Description = description
	}
	if image != nil {
		if p.ProjectImageURL != nil {
			_ = s.files.Delete(ctx, *p.ProjectImageURL)
		}
		url, err := s.files.Upload(ctx, image.Data, image.ContentType, image.FileName)
		if err != nil {
			return nil, fmt.Errorf("uploading project image: %w", err)
		}
		p.ProjectImageURL = &url
	}

	return repo.Update(ctx, p)
}

// Delete removes the project; OWNER only. Blob cleanup of the project
// image, task images, and attachments happens first, best-effort; the row
// cascade handles the rest.
func (s *ProjectService) Delete(ctx context.Context, projectID, userID string) error {
	if _, err := s.authz.RequireRole(ctx, projectID, userID, models.ProjectRoleOwner); err != nil {
		return err
	}

	repo := s.repos.Projects(s.db)
	urls, err := repo.ListFileURLs(ctx, projectID)
	if err != nil {
		return err
	}
	for _, u := range urls {
		_ = s.files.Delete(ctx, u)
	}
	return repo.Delete(ctx, projectID)
}

// AddMember attaches a user to the project; OWNER or project ADMIN only.
// The OWNER role cannot be granted after creation, and the unique
// membership constraint rejects duplicates.
func (s *ProjectService) AddMember(ctx context.Context, projectID, callerID, newUserID string, role models.ProjectRole) (*models.Membership, error) {
	if _, err := s.authz.RequireRole(ctx, projectID, callerID, models.ProjectRoleOwner, models.ProjectRoleAdmin); err != nil {
		return nil, err
	}
	if role == models.ProjectRoleOwner {
		return nil, apperr.ErrForbidden
	}
	if role == "" {
		role = models.ProjectRoleMember
	}

	return s.repos.Memberships(s.db).Create(ctx, &models.Membership{
		UserID:    newUserID,
		ProjectID: projectID,
		Role:      role,
	})
}

// ListMembers returns the roster to any member.
func (s *ProjectService) ListMembers(ctx context.Context, projectID, userID string) ([]*models.MembershipView, error) {
	if _, err := s.authz.RequireMembership(ctx, projectID, userID); err != nil {
		return nil, err
	}
	return s.repos.Memberships(s.db).ListByProject(ctx, projectID)
}

// UpdateMemberRole changes a member's role; OWNER or project ADMIN only.
// The OWNER membership is immutable, no one can be promoted into OWNER,
// and an ADMIN may not touch another ADMIN (peer protection).
func (s *ProjectService) UpdateMemberRole(ctx context.Context, projectID, callerID, memberID string, newRole models.ProjectRole) (*models.Membership, error) {
	caller, err := s.authz.RequireRole(ctx, projectID, callerID, models.ProjectRoleOwner, models.ProjectRoleAdmin)
	if err != nil {
		return nil, err
	}
	if newRole == models.ProjectRoleOwner {
		return nil, apperr.ErrForbidden
	}

	target, err := s.repos.Memberships(s.db).Get(ctx, projectID, memberID)
	if err != nil {
		return nil, err
	}
	if target.Role == models.ProjectRoleOwner {
		return nil, apperr.ErrForbidden
	}
	if caller.Role == models.ProjectRoleAdmin && target.Role == models.ProjectRoleAdmin {
		return nil, apperr.ErrForbidden
	}

	return s.repos.Memberships(s.db).UpdateRole(ctx, projectID, memberID, newRole)
}

// RemoveMember detaches a member; OWNER or project ADMIN only, same
// protections as role updates, and no self-removal.
func (s *ProjectService) RemoveMember(ctx context.Context, projectID, callerID, memberID string) error {
	caller, err := s.authz.RequireRole(ctx, projectID, callerID, models.ProjectRoleOwner, models.ProjectRoleAdmin)
	if err != nil {
		return err
	}
	if memberID == callerID {
		return fmt.Errorf("%w: cannot remove yourself from a project", apperr.ErrValidation)
	}

	target, err := s.repos.Memberships(s.db).Get(ctx, projectID, memberID)
	if err != nil {
		return err
	}
	if target.Role == models.ProjectRoleOwner {
		return apperr.ErrForbidden
	}
	if caller.Role == models.ProjectRoleAdmin && target.Role == models.ProjectRoleAdmin {
		return apperr.ErrForbidden
	}

	return s.repos.Memberships(s.db).Delete(ctx, projectID, memberID)
}
