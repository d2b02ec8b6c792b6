package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/otabek-dev/taskhub/internal/authz"
	"github.com/otabek-dev/taskhub/internal/models"
	"github.com/otabek-dev/taskhub/internal/repositories/repomanager"
	"github.com/otabek-dev/taskhub/internal/storage"
)

// AttachmentService manages files linked to tasks. The blob lives in the
// file store, the record in the database; membership resolves through the
// parent task's project.
type AttachmentService struct {
	db    *sql.DB
	repos repomanager.RepositoryManager
	authz *authz.Engine
	files storage.FileStore
}

func NewAttachmentService(db *sql.DB, repos repomanager.RepositoryManager, az *authz.Engine, files storage.FileStore) *AttachmentService {
	return &AttachmentService{db: db, repos: repos, authz: az, files: files}
}

func (s *AttachmentService) projectOfTask(ctx context.Context, taskID string) (string, error) {
	task, err := s.repos.Tasks(s.db).GetByID(ctx, taskID)
	if err != nil {
		return "", err
	}
	return task.ProjectID, nil
}

// Upload stores the blob first, then the record; any member of the task's
// project. If the record insert fails the orphaned blob is removed.
func (s *AttachmentService) Upload(ctx context.Context, taskID, userID string, file *FileUpload) (*models.Attachment, error) {
	projectID, err := s.projectOfTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authz.RequireMembership(ctx, projectID, userID); err != nil {
		return nil, err
	}

	url, err := s.files.Upload(ctx, file.Data, file.ContentType, file.FileName)
	if err != nil {
		return nil, fmt.Errorf("uploading attachment: %w", err)
	}

	att, err := s.repos.Attachments(s.db).Create(ctx, &models.Attachment{
		FileURL:      url,
		FileName:     file.FileName,
		MimeType:     file.ContentType,
		TaskID:       taskID,
		UploadedByID: userID,
	})
	if err != nil {
		_ = s.files.Delete(ctx, url)
		return nil, err
	}
	return att, nil
}

// ListByTask returns the task's attachments to project members.
func (s *AttachmentService) ListByTask(ctx context.Context, taskID, userID string) ([]*models.Attachment, error) {
	projectID, err := s.projectOfTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authz.RequireMembership(ctx, projectID, userID); err != nil {
		return nil, err
	}
	return s.repos.Attachments(s.db).ListByTask(ctx, taskID)
}

// Delete removes an attachment; the uploader, or OWNER/ADMIN of the
// project. The blob delete is best-effort, the record delete is not.
func (s *AttachmentService) Delete(ctx context.Context, attachmentID, userID string) error {
	repo := s.repos.Attachments(s.db)

	att, err := repo.GetByID(ctx, attachmentID)
	if err != nil {
		return err
	}
	projectID, err := s.projectOfTask(ctx, att.TaskID)
	if err != nil {
		return err
	}
	if err := s.authz.RequireRoleOrOwnership(ctx, projectID, userID, att.UploadedByID,
		models.ProjectRoleOwner, models.ProjectRoleAdmin); err != nil {
		return err
	}

	_ = s.files.Delete(ctx, att.FileURL)
	return repo.Delete(ctx, attachmentID)
}
