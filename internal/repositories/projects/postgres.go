package projects

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/otabek-dev/taskhub/internal/apperr"
	"github.com/otabek-dev/taskhub/internal/dbx"
	"github.com/otabek-dev/taskhub/internal/models"
)

const projectColumns = `id, name, description, project_image_url, owner_id, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanProject(row interface{ Scan(...any) error }) (*models.Project, error) {
	p := &models.Project{}
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.ProjectImageURL, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Project) (*models.Project, error) {
	query := `INSERT INTO projects (name, description, project_image_url, owner_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING ` + projectColumns

	return scanProject(r.db.QueryRowContext(ctx, query, p.Name, p.Description, p.ProjectImageURL, p.OwnerID))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	return scanProject(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) ListForUser(ctx context.Context, userID string) ([]*models.Project, error) {
	query := `SELECT p.id, p.name, p.description, p.project_image_url, p.owner_id, p.created_at, p.updated_at
		 FROM projects p
		 JOIN project_members pm ON pm.project_id = p.id
		 WHERE pm.user_id = $1
		 ORDER BY p.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Update(ctx context.Context, p *models.Project) (*models.Project, error) {
	query := `UPDATE projects
		 SET name = $2, description = $3, project_image_url = $4, updated_at = now()
		 WHERE id = $1
		 RETURNING ` + projectColumns

	return scanProject(r.db.QueryRowContext(ctx, query, p.ID, p.Name, p.Description, p.ProjectImageURL))
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ListFileURLs(ctx context.Context, id string) ([]string, error) {
	query := `SELECT project_image_url FROM projects WHERE id = $1 AND project_image_url IS NOT NULL
		 UNION ALL
		 SELECT task_image_url FROM tasks WHERE project_id = $1 AND task_image_url IS NOT NULL
		 UNION ALL
		 SELECT a.file_url FROM attachments a JOIN tasks t ON t.id = a.task_id WHERE t.project_id = $1`

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
