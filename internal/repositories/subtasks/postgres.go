package subtasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/otabek-dev/taskhub/internal/apperr"
	"github.com/otabek-dev/taskhub/internal/dbx"
	"github.com/otabek-dev/taskhub/internal/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanSubtask(row interface{ Scan(...any) error }) (*models.Subtask, error) {
	s := &models.Subtask{}
	err := row.Scan(&s.ID, &s.Title, &s.IsDone, &s.TaskID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) Create(ctx context.Context, s *models.Subtask) (*models.Subtask, error) {
	query := `INSERT INTO subtasks (title, task_id)
		 VALUES ($1, $2)
		 RETURNING id, title, is_done, task_id, created_at, updated_at`
	return scanSubtask(r.db.QueryRowContext(ctx, query, s.Title, s.TaskID))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Subtask, error) {
	query := `SELECT id, title, is_done, task_id, created_at, updated_at FROM subtasks WHERE id = $1`
	return scanSubtask(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) ListByTask(ctx context.Context, taskID string) ([]*models.Subtask, error) {
	query := `SELECT id, title, is_done, task_id, created_at, updated_at FROM subtasks
		 WHERE task_id = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Subtask
	for rows.Next() {
		s, err := scanSubtask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Update(ctx context.Context, s *models.Subtask) (*models.Subtask, error) {
	query := `UPDATE subtasks SET title = $2, is_done = $3, updated_at = now()
		 WHERE id = $1
		 RETURNING id, title, is_done, task_id, created_at, updated_at`
	return scanSubtask(r.db.QueryRowContext(ctx, query, s.ID, s.Title, s.IsDone))
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subtasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
