// Package users persists account records.
package users

import (
	"context"
	"time"

	"github.com/otabek-dev/taskhub/internal/models"
)

// Repository is the credential store. Action-token lookups match only
// unexpired tokens; expired ones behave as absent.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByLogin(ctx context.Context, login string) (*models.User, error)
	GetByVerificationCode(ctx context.Context, code string) (*models.User, error)
	GetByResetToken(ctx context.Context, token string) (*models.User, error)
	GetByReactivationToken(ctx context.Context, token string) (*models.User, error)
	List(ctx context.Context, roles []models.Role, page, limit int) ([]*models.User, int64, error)

	// Delete hard-removes a row; used only as the compensating action when
	// the verification email cannot be dispatched after creation.
	Delete(ctx context.Context, id string) error

	SetRefreshTokenHash(ctx context.Context, id, digest string) error
	ClearRefreshTokenHash(ctx context.Context, id string) error

	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdatePasswordClearReset(ctx context.Context, id, passwordHash string) error
	SetResetToken(ctx context.Context, id, token string, expires time.Time) error
	SetReactivationToken(ctx context.Context, id, token string, expires time.Time) error
	ClearReactivationToken(ctx context.Context, id string) error

	MarkVerified(ctx context.Context, id string) error
	Deactivate(ctx context.Context, id string) error
	Reactivate(ctx context.Context, id string) error

	SetPendingEmail(ctx context.Context, id, email string) error
	ApplyEmailChange(ctx context.Context, id, newEmail string) error

	UpdateRole(ctx context.Context, id string, role models.Role) error
	UpdateProfile(ctx context.Context, user *models.User) (*models.User, error)
}
