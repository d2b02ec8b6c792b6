package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/otabek-dev/taskhub/internal/apperr"
	"github.com/otabek-dev/taskhub/internal/dbx"
	"github.com/otabek-dev/taskhub/internal/models"
)

const userColumns = `id, first_name, last_name, email, username, phone_number, password_hash, role,
		is_active, is_verified, refresh_token_hash, verification_code,
		reset_password_token, reset_token_expires, reactivation_token, reactivation_token_expires,
		pending_email, avatar_image_url, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Username, &u.PhoneNumber,
		&u.PasswordHash, &u.Role, &u.IsActive, &u.IsVerified, &u.RefreshTokenHash,
		&u.VerificationCode, &u.ResetPasswordToken, &u.ResetTokenExpires,
		&u.ReactivationToken, &u.ReactivationTokenExpires, &u.PendingEmail,
		&u.AvatarImageURL, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := `INSERT INTO users (first_name, last_name, email, username, phone_number, password_hash, role, is_verified, verification_code)
		 VALUES ($1, $2, lower($3), $4, $5, $6, $7, $8, $9)
		 RETURNING ` + userColumns

	row := r.db.QueryRowContext(ctx, query,
		user.FirstName, user.LastName, user.Email, user.Username, user.PhoneNumber,
		user.PasswordHash, user.Role, user.IsVerified, user.VerificationCode)

	created, err := scanUser(row)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, apperr.ErrConflict
		}
		return nil, err
	}
	return created, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = lower($1)`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = lower($1) OR username = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, login))
}

func (r *PostgresRepository) GetByVerificationCode(ctx context.Context, code string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE verification_code = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, code))
}

func (r *PostgresRepository) GetByResetToken(ctx context.Context, token string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		 WHERE reset_password_token = $1 AND reset_token_expires >= now()`
	return scanUser(r.db.QueryRowContext(ctx, query, token))
}

func (r *PostgresRepository) GetByReactivationToken(ctx context.Context, token string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		 WHERE reactivation_token = $1 AND reactivation_token_expires >= now()`
	return scanUser(r.db.QueryRowContext(ctx, query, token))
}

func (r *PostgresRepository) List(ctx context.Context, roles []models.Role, page, limit int) ([]*models.User, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	where := `is_active = TRUE`
	args := []any{}
	if len(roles) > 0 {
		placeholders := ""
		for i, role := range roles {
			if i > 0 {
				placeholders += ", "
			}
			placeholders += fmt.Sprintf("$%d", i+1)
			args = append(args, role)
		}
		where += ` AND role IN (` + placeholders + `)`
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM users WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, (page-1)*limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	return out, total, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	return r.exec(ctx, `DELETE FROM users WHERE id = $1`, id)
}

func (r *PostgresRepository) SetRefreshTokenHash(ctx context.Context, id, digest string) error {
	return r.exec(ctx, `UPDATE users SET refresh_token_hash = $2, updated_at = now() WHERE id = $1`, id, digest)
}

// ClearRefreshTokenHash is guarded by "hash not null" so two concurrent
// sign-outs do not report a lost update.
func (r *PostgresRepository) ClearRefreshTokenHash(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET refresh_token_hash = NULL, updated_at = now()
		 WHERE id = $1 AND refresh_token_hash IS NOT NULL`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.exec(ctx, `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, passwordHash)
}

func (r *PostgresRepository) UpdatePasswordClearReset(ctx context.Context, id, passwordHash string) error {
	return r.exec(ctx,
		`UPDATE users SET password_hash = $2, reset_password_token = NULL, reset_token_expires = NULL, updated_at = now()
		 WHERE id = $1`, id, passwordHash)
}

func (r *PostgresRepository) SetResetToken(ctx context.Context, id, token string, expires time.Time) error {
	return r.exec(ctx,
		`UPDATE users SET reset_password_token = $2, reset_token_expires = $3, updated_at = now() WHERE id = $1`,
		id, token, expires)
}

func (r *PostgresRepository) SetReactivationToken(ctx context.Context, id, token string, expires time.Time) error {
	return r.exec(ctx,
		`UPDATE users SET reactivation_token = $2, reactivation_token_expires = $3, updated_at = now() WHERE id = $1`,
		id, token, expires)
}

func (r *PostgresRepository) ClearReactivationToken(ctx context.Context, id string) error {
	return r.exec(ctx,
		`UPDATE users SET reactivation_token = NULL, reactivation_token_expires = NULL, updated_at = now() WHERE id = $1`, id)
}

func (r *PostgresRepository) MarkVerified(ctx context.Context, id string) error {
	return r.exec(ctx,
		`UPDATE users SET is_verified = TRUE, is_active = TRUE, verification_code = NULL, updated_at = now() WHERE id = $1`, id)
}

func (r *PostgresRepository) Deactivate(ctx context.Context, id string) error {
	return r.exec(ctx,
		`UPDATE users SET is_active = FALSE, refresh_token_hash = NULL, updated_at = now() WHERE id = $1`, id)
}

func (r *PostgresRepository) Reactivate(ctx context.Context, id string) error {
	return r.exec(ctx,
		`UPDATE users SET is_active = TRUE, is_verified = TRUE, reactivation_token = NULL, reactivation_token_expires = NULL, updated_at = now()
		 WHERE id = $1`, id)
}

func (r *PostgresRepository) SetPendingEmail(ctx context.Context, id, email string) error {
	return r.exec(ctx, `UPDATE users SET pending_email = lower($2), updated_at = now() WHERE id = $1`, id, email)
}

func (r *PostgresRepository) ApplyEmailChange(ctx context.Context, id, newEmail string) error {
	err := r.exec(ctx,
		`UPDATE users SET email = lower($2), pending_email = NULL, updated_at = now() WHERE id = $1`, id, newEmail)
	if dbx.IsUniqueViolation(err) {
		return apperr.ErrConflict
	}
	return err
}

func (r *PostgresRepository) UpdateRole(ctx context.Context, id string, role models.Role) error {
	return r.exec(ctx, `UPDATE users SET role = $2, updated_at = now() WHERE id = $1`, id, role)
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, user *models.User) (*models.User, error) {
	query := `UPDATE users
		 SET first_name = $2, last_name = $3, username = $4, phone_number = $5, avatar_image_url = $6, updated_at = now()
		 WHERE id = $1
		 RETURNING ` + userColumns

	row := r.db.QueryRowContext(ctx, query,
		user.ID, user.FirstName, user.LastName, user.Username, user.PhoneNumber, user.AvatarImageURL)

	updated, err := scanUser(row)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, apperr.ErrConflict
		}
		return nil, err
	}
	return updated, nil
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return apperr.ErrConflict
		}
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
