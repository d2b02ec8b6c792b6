// Package services contains the business logic of the taskhub backend.
// This file implements the session manager: sign-in, sign-out, and
// refresh-token rotation.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/otabek-dev/taskhub/internal/apperr"
	"github.com/otabek-dev/taskhub/internal/models"
	"github.com/otabek-dev/taskhub/internal/repositories/repomanager"
	"github.com/otabek-dev/taskhub/internal/token"
)

// SessionService issues and revokes session token pairs. The digest of the
// current refresh token stored on the user row is the single point of truth
// for session validity: one live session per account.
type SessionService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	tokens *token.Manager
}

func NewSessionService(db *sql.DB, repos repomanager.RepositoryManager, tokens *token.Manager) *SessionService {
	return &SessionService{db: db, repos: repos, tokens: tokens}
}

// SignIn verifies credentials and mints a token pair. The login matches
// either email or username; a missing user and a wrong password yield the
// same error so accounts cannot be enumerated.
func (s *SessionService) SignIn(ctx context.Context, login, password string) (*token.Pair, error) {
	repo := s.repos.Users(s.db)

	user, err := repo.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, apperr.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperr.ErrAccountInactive
	}
	if !user.IsVerified {
		return nil, apperr.ErrNotVerified
	}

	return s.issueAndStore(ctx, user.ID, user.Email, user.Role)
}

// Refresh rotates the session: the presented token must match the stored
// digest, and a fresh pair replaces it. The previous refresh token becomes
// invalid immediately, bounding replay of a stolen token to one use.
func (s *SessionService) Refresh(ctx context.Context, userID, presented string) (*token.Pair, error) {
	repo := s.repos.Users(s.db)

	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrForbidden
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	if user.RefreshTokenHash == nil {
		return nil, apperr.ErrForbidden
	}
	if !token.DigestEquals(token.RefreshDigest(presented), *user.RefreshTokenHash) {
		return nil, apperr.ErrForbidden
	}

	return s.issueAndStore(ctx, user.ID, user.Email, user.Role)
}

// SignOut clears the stored refresh digest. The repository guards the
// update with "digest not null", so a concurrent sign-out is a no-op rather
// than a lost update.
func (s *SessionService) SignOut(ctx context.Context, userID string) error {
	if err := s.repos.Users(s.db).ClearRefreshTokenHash(ctx, userID); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

// issueAndStore mints a pair and overwrites the stored digest, revoking any
// prior session for the user.
func (s *SessionService) issueAndStore(ctx context.Context, userID, email string, role models.Role) (*token.Pair, error) {
	pair, err := s.tokens.IssueSessionTokens(userID, email, role)
	if err != nil {
		return nil, fmt.Errorf("issuing tokens: %w", err)
	}
	if err := s.repos.Users(s.db).SetRefreshTokenHash(ctx, userID, token.RefreshDigest(pair.RefreshToken)); err != nil {
		return nil, fmt.Errorf("storing refresh digest: %w", err)
	}
	return pair, nil
}
