package tags

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

func scanTag(row interface{ Scan(...any) error }) (*models.Tag, error) {
	t := &models.Tag{}
	err := row.Scan(&t.ID, &t.Name, &t.Color)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		if dbx.IsUniqueViolation(err) {
			return nil, apperr.ErrConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) Create(ctx context.Context, t *models.Tag) (*models.Tag, error) {
	query := `INSERT INTO tags (name, color) VALUES ($1, $2) RETURNING id, name, color`
	return scanTag(r.db.QueryRowContext(ctx, query, t.Name, t.Color))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Tag, error) {
	return scanTag(r.db.QueryRowContext(ctx, `SELECT id, name, color FROM tags WHERE id = $1`, id))
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.Tag, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, color FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Tag
	for rows.Next() {
		t, err := scanTag(rows)
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

func (r *PostgresRepository) Update(ctx context.Context, t *models.Tag) (*models.Tag, error) {
	query := `UPDATE tags SET name = $2, color = $3 WHERE id = $1 RETURNING id, name, color`
	return scanTag(r.db.QueryRowContext(ctx, query, t.ID, t.Name, t.Color))
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
