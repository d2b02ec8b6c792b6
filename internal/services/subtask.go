package services

import (
	"context"
	"database/sql"

	"github.com/otabek-dev/taskhub/internal/authz"
	"github.com/otabek-dev/taskhub/internal/models"
	"github.com/otabek-dev/taskhub/internal/repositories/repomanager"
)

// SubtaskService manages checklist items. Membership is resolved through
// the parent task's project.
type SubtaskService struct {
	db    *sql.DB
	repos repomanager.RepositoryManager
	authz *authz.Engine
}

func NewSubtaskService(db *sql.DB, repos repomanager.RepositoryManager, az *authz.Engine) *SubtaskService {
	return &SubtaskService{db: db, repos: repos, authz: az}
}

// projectOfTask walks subtask→task→project for chain authorization.
func (s *SubtaskService) projectOfTask(ctx context.Context, taskID string) (string, error) {
	task, err := s.repos.Tasks(s.db).GetByID(ctx, taskID)
	if err != nil {
		return "", err
	}
	return task.ProjectID, nil
}

// Create adds a subtask; any member of the parent project.
func (s *SubtaskService) Create(ctx context.Context, taskID, userID, title string) (*models.Subtask, error) {
	projectID, err := s.projectOfTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authz.RequireMembership(ctx, projectID, userID); err != nil {
		return nil, err
	}
	return s.repos.Subtasks(s.db).Create(ctx, &models.Subtask{Title: title, TaskID: taskID})
}

// ListByTask returns the task's subtasks to project members.
func (s *SubtaskService) ListByTask(ctx context.Context, taskID, userID string) ([]*models.Subtask, error) {
	projectID, err := s.projectOfTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authz.RequireMembership(ctx, projectID, userID); err != nil {
		return nil, err
	}
	return s.repos.Subtasks(s.db).ListByTask(ctx, taskID)
}

// Update edits title/done state; any member of the parent project.
func (s *SubtaskService) Update(ctx context.Context, subtaskID, userID string, title *string, isDone *bool) (*models.Subtask, error) {
	repo := s.repos.Subtasks(s.db)

	sub, err := repo.GetByID(ctx, subtaskID)
	if err != nil {
		return nil, err
	}
	projectID, err := s.projectOfTask(ctx, sub.TaskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authz.RequireMembership(ctx, projectID, userID); err != nil {
		return nil, err
	}

	if title != nil {
		sub.Title = *title
	}
	if isDone != nil {
		sub.IsDone = *isDone
	}
	return repo.Update(ctx, sub)
}

// Delete removes a subtask; OWNER/ADMIN of the project.
func (s *SubtaskService) Delete(ctx context.Context, subtaskID, userID string) error {
	repo := s.repos.Subtasks(s.db)

	sub, err := repo.GetByID(ctx, subtaskID)
	if err != nil {
		return err
	}
	projectID, err := s.projectOfTask(ctx, sub.TaskID)
	if err != nil {
		return err
	}
	if _, err := s.authz.RequireRole(ctx, projectID, userID,
		models.ProjectRoleOwner, models.ProjectRoleAdmin); err != nil {
		return err
	}
	return repo.Delete(ctx, subtaskID)
}
