package comments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/otabek-dev/taskhub/internal/apperr"
	"github.com/otabek-dev/taskhub/internal/dbx"
	"github.com/otabek-dev/taskhub/internal/models"
)

const commentColumns = `id, content, task_id, author_id, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanComment(row interface{ Scan(...any) error }) (*models.Comment, error) {
	c := &models.Comment{}
	err := row.Scan(&c.ID, &c.Content, &c.TaskID, &c.AuthorID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.Comment) (*models.Comment, error) {
	query := `INSERT INTO comments (content, task_id, author_id)
		 VALUES ($1, $2, $3)
		 RETURNING ` + commentColumns
	return scanComment(r.db.QueryRowContext(ctx, query, c.Content, c.TaskID, c.AuthorID))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE id = $1`
	return scanComment(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) ListByTask(ctx context.Context, taskID string) ([]*models.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE task_id = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) UpdateContent(ctx context.Context, id, content string) (*models.Comment, error) {
	query := `UPDATE comments SET content = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING ` + commentColumns
	return scanComment(r.db.QueryRowContext(ctx, query, id, content))
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
