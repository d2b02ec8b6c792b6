package services

import (
	"context"
	"database/sql"

	"github.com/otabek-dev/taskhub/internal/apperr"
	"github.com/otabek-dev/taskhub/internal/authz"
	"github.com/otabek-dev/taskhub/internal/models"
	"github.com/otabek-dev/taskhub/internal/repositories/repomanager"
)

// CommentService manages task comments. Membership is resolved through
// comment→task→project; the client never supplies a project id.
type CommentService struct {
	db    *sql.DB
	repos repomanager.RepositoryManager
	authz *authz.Engine
}

func NewCommentService(db *sql.DB, repos repomanager.RepositoryManager, az *authz.Engine) *CommentService {
	return &CommentService{db: db, repos: repos, authz: az}
}

func (s *CommentService) projectOfTask(ctx context.Context, taskID string) (string, error) {
	task, err := s.repos.Tasks(s.db).GetByID(ctx, taskID)
	if err != nil {
		return "", err
	}
	return task.ProjectID, nil
}

// Create posts a comment; any member of the task's project.
func (s *CommentService) Create(ctx context.Context, taskID, userID, content string) (*models.Comment, error) {
	projectID, err := s.projectOfTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authz.RequireMembership(ctx, projectID, userID); err != nil {
		return nil, err
	}
	return s.repos.Comments(s.db).Create(ctx, &models.Comment{
		Content:  content,
		TaskID:   taskID,
		AuthorID: userID,
	})
}

// ListByTask returns the task's comments to project members.
func (s *CommentService) ListByTask(ctx context.Context, taskID, userID string) ([]*models.Comment, error) {
	projectID, err := s.projectOfTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authz.RequireMembership(ctx, projectID, userID); err != nil {
		return nil, err
	}
	return s.repos.Comments(s.db).ListByTask(ctx, taskID)
}

// Update edits a comment; the author only.
func (s *CommentService) Update(ctx context.Context, commentID, userID, content string) (*models.Comment, error) {
	repo := s.repos.Comments(s.db)

	comment, err := repo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != userID {
		return nil, apperr.ErrForbidden
	}
	return repo.UpdateContent(ctx, commentID, content)
}

// Delete removes a comment; the author, or OWNER/ADMIN of the project.
func (s *CommentService) Delete(ctx context.Context, commentID, userID string) error {
	repo := s.repos.Comments(s.db)

	comment, err := repo.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	projectID, err := s.projectOfTask(ctx, comment.TaskID)
	if err != nil {
		return err
	}
	if err := s.authz.RequireRoleOrOwnership(ctx, projectID, userID, comment.AuthorID,
		models.ProjectRoleOwner, models.ProjectRoleAdmin); err != nil {
		return err
	}
	return repo.Delete(ctx, commentID)
}
