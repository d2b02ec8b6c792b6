package memberships

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

func (r *PostgresRepository) Create(ctx context.Context, m *models.Membership) (*models.Membership, error) {
	query := `INSERT INTO project_members (user_id, project_id, role)
		 VALUES ($1, $2, $3)
		 RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query, m.UserID, m.ProjectID, m.Role).Scan(&m.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, apperr.ErrConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) Get(ctx context.Context, projectID, userID string) (*models.Membership, error) {
	query := `SELECT user_id, project_id, role, created_at FROM project_members
		 WHERE project_id = $1 AND user_id = $2`

	m := &models.Membership{}
	err := r.db.QueryRowContext(ctx, query, projectID, userID).
		Scan(&m.UserID, &m.ProjectID, &m.Role, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) ListByProject(ctx context.Context, projectID string) ([]*models.MembershipView, error) {
	query := `SELECT pm.user_id, pm.project_id, pm.role, pm.created_at,
		 u.first_name, u.last_name, u.email, u.avatar_image_url
		 FROM project_members pm
		 JOIN users u ON u.id = pm.user_id
		 WHERE pm.project_id = $1
		 ORDER BY pm.created_at`

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.MembershipView
	for rows.Next() {
		v := &models.MembershipView{}
		if err := rows.Scan(&v.UserID, &v.ProjectID, &v.Role, &v.CreatedAt,
			&v.FirstName, &v.LastName, &v.Email, &v.AvatarImageURL); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) UpdateRole(ctx context.Context, projectID, userID string, role models.ProjectRole) (*models.Membership, error) {
	query := `UPDATE project_members SET role = $3
		 WHERE project_id = $1 AND user_id = $2
		 RETURNING user_id, project_id, role, created_at`

	m := &models.Membership{}
	err := r.db.QueryRowContext(ctx, query, projectID, userID, role).
		Scan(&m.UserID, &m.ProjectID, &m.Role, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, projectID, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM project_members WHERE project_id = $1 AND user_id = $2`, projectID, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
