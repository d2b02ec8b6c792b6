package attachments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/otabek-dev/taskhub/internal/apperr"
	"github.com/otabek-dev/taskhub/internal/dbx"
	"github.com/otabek-dev/taskhub/internal/models"
)

const attachmentColumns = `id, file_url, file_name, mime_type, task_id, uploaded_by_id, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanAttachment(row interface{ Scan(...any) error }) (*models.Attachment, error) {
	a := &models.Attachment{}
	err := row.Scan(&a.ID, &a.FileURL, &a.FileName, &a.MimeType, &a.TaskID, &a.UploadedByID, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) Create(ctx context.Context, a *models.Attachment) (*models.Attachment, error) {
	query := `INSERT INTO attachments (file_url, file_name, mime_type, task_id, uploaded_by_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING ` + attachmentColumns
	return scanAttachment(r.db.QueryRowContext(ctx, query,
		a.FileURL, a.FileName, a.MimeType, a.TaskID, a.UploadedByID))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Attachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM attachments WHERE id = $1`
	return scanAttachment(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) ListByTask(ctx context.Context, taskID string) ([]*models.Attachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM attachments WHERE task_id = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Attachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attachments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
