package services

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"golang.org/x/crypto/bcrypt"

	"github.com/otabek-dev/taskhub/internal/apperr"
	"github.com/otabek-dev/taskhub/internal/models"
	"github.com/otabek-dev/taskhub/internal/repositories/repomanager"
	"github.com/otabek-dev/taskhub/internal/storage"
)

// FileUpload carries a parsed multipart file into the services.
type FileUpload struct {
	Data        []byte
	ContentType string
	FileName    string
}

// PageMeta describes a paginated listing.
type PageMeta struct {
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	Limit    int   `json:"limit"`
	LastPage int   `json:"lastPage"`
}

// UserService covers platform-wide user management: admin provisioning,
// listings, global role changes, and profile updates.
type UserService struct {
	db       *sql.DB
	repos    repomanager.RepositoryManager
	accounts *AccountService
	files    storage.FileStore
}

func NewUserService(db *sql.DB, repos repomanager.RepositoryManager, accounts *AccountService, files storage.FileStore) *UserService {
	return &UserService{db: db, repos: repos, accounts: accounts, files: files}
}

// CreateUserInput is the admin provisioning payload.
type CreateUserInput struct {
	FirstName       string
	LastName        string
	Email           string
	Username        *string
	PhoneNumber     *string
	Role            models.Role
	Password        string
	ConfirmPassword string
}

// CreateUserByAdmin pre-provisions an account. Only a SUPER_ADMIN may
// create ADMIN or SUPER_ADMIN accounts. The new user still has to verify
// their email; mail failure rolls the creation back like self-signup.
func (s *UserService) CreateUserByAdmin(ctx context.Context, adminID string, in CreateUserInput) (*models.User, error) {
	if in.Password != in.ConfirmPassword {
		return nil, apperr.ErrPasswordMismatch
	}

	if in.Role == models.RoleAdmin || in.Role == models.RoleSuperAdmin {
		admin, err := s.repos.Users(s.db).GetByID(ctx, adminID)
		if err != nil {
			return nil, err
		}
		if admin.Role != models.RoleSuperAdmin {
			return nil, apperr.ErrForbidden
		}
	}
	if in.Role == "" {
		in.Role = models.RoleUser
	}

	return s.accounts.createUnverified(ctx, &models.User{
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Email:       in.Email,
		Username:    in.Username,
		PhoneNumber: in.PhoneNumber,
		Role:        in.Role,
	}, in.Password)
}

// UpdateGlobalRole changes a user's platform role. SUPER_ADMIN's role is
// immutable.
func (s *UserService) UpdateGlobalRole(ctx context.Context, targetID string, role models.Role) (*models.User, error) {
	repo := s.repos.Users(s.db)

	user, err := repo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if user.Role == models.RoleSuperAdmin && role != models.RoleSuperAdmin {
		return nil, apperr.ErrForbidden
	}
	if err := repo.UpdateRole(ctx, user.ID, role); err != nil {
		return nil, err
	}
	user.Role = role
	return user, nil
}

// AdminResetPassword sets a new password without knowing the old one.
func (s *UserService) AdminResetPassword(ctx context.Context, targetID, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return apperr.ErrPasswordMismatch
	}
	repo := s.repos.Users(s.db)

	user, err := repo.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	return repo.UpdatePassword(ctx, user.ID, string(hash))
}

// GetProfile returns an active user; deactivated accounts read as absent.
func (s *UserService) GetProfile(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repos.Users(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperr.ErrNotFound
	}
	return user, nil
}

// ListActiveUsers pages through all active accounts.
func (s *UserService) ListActiveUsers(ctx context.Context, page, limit int) ([]*models.User, *PageMeta, error) {
	return s.list(ctx, nil, page, limit)
}

// ListAdmins pages through active ADMIN and SUPER_ADMIN accounts.
func (s *UserService) ListAdmins(ctx context.Context, page, limit int) ([]*models.User, *PageMeta, error) {
	return s.list(ctx, []models.Role{models.RoleAdmin, models.RoleSuperAdmin}, page, limit)
}

// ListPlainUsers pages through active USER accounts.
func (s *UserService) ListPlainUsers(ctx context.Context, page, limit int) ([]*models.User, *PageMeta, error) {
	return s.list(ctx, []models.Role{models.RoleUser}, page, limit)
}

func (s *UserService) list(ctx context.Context, roles []models.Role, page, limit int) ([]*models.User, *PageMeta, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	out, total, err := s.repos.Users(s.db).List(ctx, roles, page, limit)
	if err != nil {
		return nil, nil, err
	}
	meta := &PageMeta{
		Total:    total,
		Page:     page,
		Limit:    limit,
		LastPage: int(math.Ceil(float64(total) / float64(limit))),
	}
	return out, meta, nil
}

// UpdateProfileInput carries the self-service profile fields.
type UpdateProfileInput struct {
	FirstName   *string
	LastName    *string
	Username    *string
	PhoneNumber *string
}

// UpdateProfile applies profile fields and, when an avatar is supplied,
// replaces the stored blob. Username/phone collisions surface as conflicts
// from the store's unique constraints.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput, avatar *FileUpload) (*models.User, error) {
	repo := s.repos.Users(s.db)

	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.FirstName != nil {
		user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		user.LastName = *in.LastName
	}
	if in.Username != nil {
		user.Username = in.Username
	}
	if in.PhoneNumber != nil {
		user.PhoneNumber = in.PhoneNumber
	}

	if avatar != nil {
		if user.AvatarImageURL != nil {
			_ = s.files.Delete(ctx, *user.AvatarImageURL)
		}
		url, err := s.files.Upload(ctx, avatar.Data, avatar.ContentType, avatar.FileName)
		if err != nil {
			return nil, fmt.Errorf("uploading avatar: %w", err)
		}
		user.AvatarImageURL = &url
	}

	return repo.UpdateProfile(ctx, user)
}
