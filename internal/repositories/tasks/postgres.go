package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/otabek-dev/taskhub/internal/apperr"
	"github.com/otabek-dev/taskhub/internal/dbx"
	"github.com/otabek-dev/taskhub/internal/models"
)

const taskColumns = `id, title, description, status, task_image_url, due_date, project_id, author_id, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanTask(row interface{ Scan(...any) error }) (*models.Task, error) {
	t := &models.Task{}
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.TaskImageURL, &t.DueDate,
		&t.ProjectID, &t.AuthorID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) Create(ctx context.Context, t *models.Task, tagIDs []string) (*models.Task, error) {
	query := `INSERT INTO tasks (title, description, status, task_image_url, due_date, project_id, author_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING ` + taskColumns

	created, err := scanTask(r.db.QueryRowContext(ctx, query,
		t.Title, t.Description, t.Status, t.TaskImageURL, t.DueDate, t.ProjectID, t.AuthorID))
	if err != nil {
		return nil, err
	}
	if err := r.setTags(ctx, created.ID, tagIDs, false); err != nil {
		return nil, err
	}
	return created, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	return scanTask(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) ListByProject(ctx context.Context, projectID string, status *models.TaskStatus) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE project_id = $1`
	args := []any{projectID}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// Update rewrites the task row and, when tagIDs is non-nil, replaces its tag
// links.
func (r *PostgresRepository) Update(ctx context.Context, t *models.Task, tagIDs []string) (*models.Task, error) {
	query := `UPDATE tasks
		 SET title = $2, description = $3, status = $4, task_image_url = $5, due_date = $6, updated_at = now()
		 WHERE id = $1
		 RETURNING ` + taskColumns

	updated, err := scanTask(r.db.QueryRowContext(ctx, query,
		t.ID, t.Title, t.Description, t.Status, t.TaskImageURL, t.DueDate))
	if err != nil {
		return nil, err
	}
	if tagIDs != nil {
		if err := r.setTags(ctx, updated.ID, tagIDs, true); err != nil {
			return nil, err
		}
	}
	return updated, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ListFileURLs(ctx context.Context, id string) ([]string, error) {
	query := `SELECT task_image_url FROM tasks WHERE id = $1 AND task_image_url IS NOT NULL
		 UNION ALL
		 SELECT file_url FROM attachments WHERE task_id = $1`

	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		urls = append(urls, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return urls, nil
}

func (r *PostgresRepository) ListTags(ctx context.Context, id string) ([]*models.Tag, error) {
	query := `SELECT t.id, t.name, t.color FROM tags t
		 JOIN task_tags tt ON tt.tag_id = t.id
		 WHERE tt.task_id = $1
		 ORDER BY t.name`

	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Tag
	for rows.Next() {
		tag := &models.Tag{}
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.Color); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) setTags(ctx context.Context, taskID string, tagIDs []string, replace bool) error {
	if replace {
		if _, err := r.db.ExecContext(ctx, `DELETE FROM task_tags WHERE task_id = $1`, taskID); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	for _, tagID := range tagIDs {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO task_tags (task_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, taskID, tagID); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}
