package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/otabek-dev/taskhub/internal/authz"
	"github.com/otabek-dev/taskhub/internal/models"
	"github.com/otabek-dev/taskhub/internal/repositories/repomanager"
	"github.com/otabek-dev/taskhub/internal/storage"
)

// TaskService manages tasks inside projects. Authorization always resolves
// through the task's own project id, never a client-supplied one.
type TaskService struct {
	db    *sql.DB
	repos repomanager.RepositoryManager
	authz *authz.Engine
	files storage.FileStore
}

func NewTaskService(db *sql.DB, repos repomanager.RepositoryManager, az *authz.Engine, files storage.FileStore) *TaskService {
	return &TaskService{db: db, repos: repos, authz: az, files: files}
}

// CreateTaskInput is the task creation payload.
type CreateTaskInput struct {
	ProjectID   string
	Title       string
	Description *string
	DueDate     *time.Time
	TagIDs      []string
}

// Create adds a task; any project member may create one.
func (s *TaskService) Create(ctx context.Context, userID string, in CreateTaskInput, image *FileUpload) (*models.Task, error) {
	if _, err := s.authz.RequireMembership(ctx, in.ProjectID, userID); err != nil {
		return nil, err
	}

	var imageURL *string
	if image != nil {
		url, err := s.files.Upload(ctx, image.Data, image.ContentType, image.FileName)
		if err != nil {
			return nil, fmt.Errorf("uploading task image: %w", err)
		}
		imageURL = &url
	}

	return s.repos.Tasks(s.db).Create(ctx, &models.Task{
		Title:        in.Title,
		Description:  in.Description,
		Status:       models.TaskStatusTodo,
		TaskImageURL: imageURL,
		DueDate:      in.DueDate,
		ProjectID:    in.ProjectID,
		AuthorID:     userID,
	}, in.TagIDs)
}

// ListByProject returns the project's tasks, optionally filtered by status.
func (s *TaskService) ListByProject(ctx context.Context, projectID, userID string, status *models.TaskStatus) ([]*models.Task, error) {
	if _, err := s.authz.RequireMembership(ctx, projectID, userID); err != nil {
		return nil, err
	}
	return s.repos.Tasks(s.db).ListByProject(ctx, projectID, status)
}

// Get returns a task to members of its project.
func (s *TaskService) Get(ctx context.Context, taskID, userID string) (*models.Task, error) {
	task, err := s.repos.Tasks(s.db).GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authz.RequireMembership(ctx, task.ProjectID, userID); err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateTaskInput is the task update payload. Nil fields are left as-is;
// TagIDs nil leaves tag links untouched.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *models.TaskStatus
	DueDate     *time.Time
	TagIDs      []string
}

// Update edits a task; allowed for its author or OWNER/ADMIN of the
// project.
func (s *TaskService) Update(ctx context.Context, taskID, userID string, in UpdateTaskInput, image *FileUpload) (*models.Task, error) {
	repo := s.repos.Tasks(s.db)

	task, err := repo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.RequireRoleOrOwnership(ctx, task.ProjectID, userID, task.AuthorID,
		models.ProjectRoleOwner, models.ProjectRoleAdmin); err != nil {
		return nil, err
	}

	if in.Title != nil {
		task.Title = *in.Title
	}
	if in.Description != nil {
		task.Description = in.Description
	}
	if in.Status != nil {
		task.Status = *in.Status
	}
	if in.DueDate != nil {
		task.DueDate = in.DueDate
	}
	if image != nil {
		if task.TaskImageURL != nil {
			_ = s.files.Delete(ctx, *task.TaskImageURL)
		}
		url, err := s.files.Upload(ctx, image.Data, image.ContentType, image.FileName)
		if err != nil {
			return nil, fmt.Errorf("uploading task image: %w", err)
		}
		task.TaskImageURL = &url
	}

	return repo.Update(ctx, task, in.TagIDs)
}

// Delete removes a task; author or OWNER/ADMIN. Blobs are cleaned up
// best-effort before the row cascade.
func (s *TaskService) Delete(ctx context.Context, taskID, userID string) error {
	repo := s.repos.Tasks(s.db)

	task, err := repo.GetByID(ctx, taskID)
	if err != nil {
		return err
	}
	if err := s.authz.RequireRoleOrOwnership(ctx, task.ProjectID, userID, task.AuthorID,
		models.ProjectRoleOwner, models.ProjectRoleAdmin); err != nil {
		return err
	}

	urls, err := repo.ListFileURLs(ctx, taskID)
	if err != nil {
		return err
	}
	for _, u := range urls {
		_ = s.files.Delete(ctx, u)
	}
	return repo.Delete(ctx, taskID)
}

// ListTags returns the task's tags to project members.
func (s *TaskService) ListTags(ctx context.Context, taskID, userID string) ([]*models.Tag, error) {
	task, err := s.repos.Tasks(s.db).GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authz.RequireMembership(ctx, task.ProjectID, userID); err != nil {
		return nil, err
	}
	return s.repos.Tasks(s.db).ListTags(ctx, taskID)
}
