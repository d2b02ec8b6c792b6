package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/otabek-dev/taskhub/internal/apperr"
	"github.com/otabek-dev/taskhub/internal/mail"
	"github.com/otabek-dev/taskhub/internal/models"
	"github.com/otabek-dev/taskhub/internal/repositories/repomanager"
	"github.com/otabek-dev/taskhub/internal/token"
)

// AccountService drives the account lifecycle: signup and verification,
// deactivation and reactivation, password reset/change, and two-phase email
// change.
type AccountService struct {
	db        *sql.DB
	repos     repomanager.RepositoryManager
	tokens    *token.Manager
	mail      *mail.Service
	actionTTL time.Duration
	log       *zap.SugaredLogger
}

func NewAccountService(db *sql.DB, repos repomanager.RepositoryManager, tokens *token.Manager, mailSvc *mail.Service, actionTTL time.Duration, log *zap.SugaredLogger) *AccountService {
	return &AccountService{db: db, repos: repos, tokens: tokens, mail: mailSvc, actionTTL: actionTTL, log: log}
}

// SignUpInput is the self-registration payload.
type SignUpInput struct {
	FirstName       string
	LastName        string
	Email           string
	Username        *string
	Password        string
	ConfirmPassword string
}

// SignUp creates an unverified account and dispatches the verification
// email. Signup is atomic from the caller's view: if the email cannot be
// sent, the created row is deleted again and an error surfaces.
func (s *AccountService) SignUp(ctx context.Context, in SignUpInput) error {
	if in.Password != in.ConfirmPassword {
		return apperr.ErrPasswordMismatch
	}

	_, err := s.createUnverified(ctx, &models.User{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Username:  in.Username,
		Role:      models.RoleUser,
	}, in.Password)
	return err
}

// createUnverified hashes the password, stores the user with a fresh
// verification code, and mails the confirmation link, deleting the row
// again when dispatch fails. Shared by self-signup and admin creation.
func (s *AccountService) createUnverified(ctx context.Context, user *models.User, password string) (*models.User, error) {
	repo := s.repos.Users(s.db)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	code := token.NewActionToken()
	user.PasswordHash = string(hash)
	user.VerificationCode = &code
	user.IsVerified = false

	created, err := repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.ErrConflict
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	if err := s.mail.SendVerificationEmail(ctx, created.Email, created.FirstName, code); err != nil {
		// Compensating delete: either a verifiable account exists, or none.
		if delErr := repo.Delete(ctx, created.ID); delErr != nil {
			s.log.Errorw("rollback of unverifiable account failed", "user_id", created.ID, "error", delErr)
		}
		return nil, apperr.ErrMailDelivery
	}
	return created, nil
}

// Activate consumes a verification code and marks the account verified and
// active.
func (s *AccountService) Activate(ctx context.Context, code string) error {
	repo := s.repos.Users(s.db)

	user, err := repo.GetByVerificationCode(ctx, code)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.ErrNotFound
		}
		return fmt.Errorf("looking up verification code: %w", err)
	}
	if user.IsVerified {
		return apperr.ErrAlreadyActivated
	}
	return repo.MarkVerified(ctx, user.ID)
}

// DeactivateUser soft-deletes the account and clears the refresh digest,
// forcing sign-out everywhere. SUPER_ADMIN accounts can never be
// deactivated.
func (s *AccountService) DeactivateUser(ctx context.Context, targetID string) error {
	repo := s.repos.Users(s.db)

	user, err := repo.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	if user.Role == models.RoleSuperAdmin {
		return apperr.ErrForbidden
	}
	return repo.Deactivate(ctx, user.ID)
}

// RequestReactivation issues a 15-minute reactivation token and mails the
// confirmation link. An unknown email reports success all the same, so the
// flow cannot be used to enumerate accounts; an already-active account is
// the one explicit rejection.
func (s *AccountService) RequestReactivation(ctx context.Context, email string) error {
	repo := s.repos.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("looking up user: %w", err)
	}
	if user.IsActive {
		return apperr.ErrAlreadyActive
	}

	tok := token.NewActionToken()
	if err := repo.SetReactivationToken(ctx, user.ID, tok, time.Now().Add(s.actionTTL)); err != nil {
		return err
	}
	// A surfaced mail failure would reveal that the account exists, so the
	// generic reply stands and the failure only gets logged.
	if err := s.mail.SendReactivationEmail(ctx, user.Email, tok); err != nil {
		s.log.Errorw("reactivation mail failed", "user_id", user.ID, "error", err)
	}
	return nil
}

// ConfirmReactivation consumes the token. Confirming an already-active
// account just clears the token.
func (s *AccountService) ConfirmReactivation(ctx context.Context, tok string) error {
	repo := s.repos.Users(s.db)

	user, err := repo.GetByReactivationToken(ctx, tok)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.ErrInvalidToken
		}
		return fmt.Errorf("looking up reactivation token: %w", err)
	}
	if user.IsActive {
		return repo.ClearReactivationToken(ctx, user.ID)
	}
	return repo.Reactivate(ctx, user.ID)
}

// ForgotPassword issues a 15-minute reset token and mails the link. Unknown
// emails report success identically to known ones.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) error {
	repo := s.repos.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("looking up user: %w", err)
	}

	tok := token.NewActionToken()
	if err := repo.SetResetToken(ctx, user.ID, tok, time.Now().Add(s.actionTTL)); err != nil {
		return err
	}
	// Same anti-enumeration stance as reactivation: log, reply generically.
	if err := s.mail.SendResetPasswordEmail(ctx, user.Email, tok); err != nil {
		s.log.Errorw("password reset mail failed", "user_id", user.ID, "error", err)
	}
	return nil
}

// ResetPassword consumes a reset token and stores the new password hash.
func (s *AccountService) ResetPassword(ctx context.Context, tok, password, confirmPassword string) error {
	if password != confirmPassword {
		return apperr.ErrPasswordMismatch
	}
	repo := s.repos.Users(s.db)

	user, err := repo.GetByResetToken(ctx, tok)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.ErrInvalidToken
		}
		return fmt.Errorf("looking up reset token: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	return repo.UpdatePasswordClearReset(ctx, user.ID, string(hash))
}

// ChangeOwnPassword verifies the old password before storing the new one.
func (s *AccountService) ChangeOwnPassword(ctx context.Context, userID, oldPassword, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return apperr.ErrPasswordMismatch
	}
	repo := s.repos.Users(s.db)

	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.IsActive {
		return apperr.ErrNotFound
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)) != nil {
		return fmt.Errorf("%w: old password does not match", apperr.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	return repo.UpdatePassword(ctx, user.ID, string(hash))
}

// RequestEmailChange stages the new address and mails a signed confirmation
// token to it. The caller must present their current password.
func (s *AccountService) RequestEmailChange(ctx context.Context, userID, currentPassword, newEmail string) error {
	// Emails are stored case-folded; fold here too so the signed claim
	// matches the staged pendingEmail on confirmation.
	newEmail = strings.ToLower(newEmail)
	repo := s.repos.Users(s.db)

	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)) != nil {
		return apperr.ErrUnauthorized
	}
	if _, err := repo.GetByEmail(ctx, newEmail); err == nil {
		return apperr.ErrConflict
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return fmt.Errorf("checking email: %w", err)
	}

	if err := repo.SetPendingEmail(ctx, user.ID, newEmail); err != nil {
		return err
	}

	tok, err := s.tokens.IssueEmailChangeToken(user.ID, newEmail, s.actionTTL)
	if err != nil {
		return fmt.Errorf("issuing email-change token: %w", err)
	}
	if err := s.mail.SendEmailChangeEmail(ctx, newEmail, tok); err != nil {
		return apperr.ErrMailDelivery
	}
	return nil
}

// ConfirmEmailChange verifies the signed token and swaps the address. The
// token's claim must still match the staged pendingEmail, which guards
// against a second change staged mid-flight.
func (s *AccountService) ConfirmEmailChange(ctx context.Context, tok string) error {
	claims, err := s.tokens.VerifyEmailChangeToken(tok)
	if err != nil {
		return apperr.ErrInvalidToken
	}
	repo := s.repos.Users(s.db)

	user, err := repo.GetByID(ctx, claims.UserID)
	if err != nil {
		return apperr.ErrInvalidToken
	}
	if user.PendingEmail == nil || *user.PendingEmail != claims.NewEmail {
		return apperr.ErrInvalidToken
	}
	return repo.ApplyEmailChange(ctx, user.ID, claims.NewEmail)
}
