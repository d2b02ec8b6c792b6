// Package token issues and verifies the signed tokens of the system:
// HS256 session pairs (access + refresh, each with its own secret), the
// email-change action JWT (third secret), and opaque single-use action
// tokens. Splitting secrets per kind keeps a leaked access-token secret
// from forging refresh or email-change tokens.
package token

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/otabek-dev/taskhub/internal/apperr"
	"github.com/otabek-dev/taskhub/internal/models"
)

// Claims is the session claim bundle carried by both access and refresh
// tokens.
type Claims struct {
	UserID string      `json:"id"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// EmailChangeClaims binds an email-change confirmation to the user and the
// staged address.
type EmailChangeClaims struct {
	UserID   string `json:"sub"`
	NewEmail string `json:"newEmail"`
	jwt.RegisteredClaims
}

// Pair bundles a short-lived access token and a long-lived refresh token.
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// Manager signs and verifies all token kinds.
type Manager struct {
	accessSecret      []byte
	refreshSecret     []byte
	emailChangeSecret []byte
	accessTTL         time.Duration
	refreshTTL        time.Duration
}

func NewManager(accessSecret, refreshSecret, emailChangeSecret string, accessTTL, refreshTTL time.Duration) *Manager {
	return &Manager{
		accessSecret:      []byte(accessSecret),
		refreshSecret:     []byte(refreshSecret),
		emailChangeSecret: []byte(emailChangeSecret),
		accessTTL:         accessTTL,
		refreshTTL:        refreshTTL,
	}
}

// RefreshTTL reports the configured refresh-token lifetime, used for the
// session cookie max-age.
func (m *Manager) RefreshTTL() time.Duration { return m.refreshTTL }

// IssueSessionTokens produces an access/refresh pair carrying the same
// claims but signed with distinct secrets and lifetimes.
func (m *Manager) IssueSessionTokens(userID, email string, role models.Role) (*Pair, error) {
	access, err := m.sign(userID, email, role, m.accessSecret, m.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := m.sign(userID, email, role, m.refreshSecret, m.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &Pair{AccessToken: access, RefreshToken: refresh}, nil
}

func (m *Manager) sign(userID, email string, role models.Role, secret []byte, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			// The jti keeps tokens issued within the same second distinct,
			// so rotating a refresh token always invalidates the old one.
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// VerifyAccess validates an access token and returns its claims.
func (m *Manager) VerifyAccess(tokenString string) (*Claims, error) {
	return m.verify(tokenString, m.accessSecret)
}

// VerifyRefresh validates a refresh token and returns its claims.
func (m *Manager) VerifyRefresh(tokenString string) (*Claims, error) {
	return m.verify(tokenString, m.refreshSecret)
}

func (m *Manager) verify(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.ErrTokenExpired
		}
		return nil, apperr.ErrInvalidToken
	}
	if !t.Valid {
		return nil, apperr.ErrInvalidToken
	}
	return claims, nil
}

// IssueEmailChangeToken signs a short-lived JWT binding userID to the new
// address, mailed to that address for confirmation.
func (m *Manager) IssueEmailChangeToken(userID, newEmail string, ttl time.Duration) (string, error) {
	claims := EmailChangeClaims{
		UserID:   userID,
		NewEmail: newEmail,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.emailChangeSecret)
}

// VerifyEmailChangeToken validates an email-change token and returns its
// claims.
func (m *Manager) VerifyEmailChangeToken(tokenString string) (*EmailChangeClaims, error) {
	claims := &EmailChangeClaims{}
	t, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.emailChangeSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.ErrTokenExpired
		}
		return nil, apperr.ErrInvalidToken
	}
	if !t.Valid {
		return nil, apperr.ErrInvalidToken
	}
	return claims, nil
}

// NewActionToken returns an opaque single-use token for emailed links
// (verification, password reset, reactivation). The TTL is stored next to
// the token on the user row.
func NewActionToken() string {
	return uuid.NewString()
}

// RefreshDigest returns the SHA-256 hex digest of a refresh token. Only the
// digest is persisted; matching it is the single point of truth for session
// validity.
func RefreshDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// DigestEquals compares two digests in constant time.
func DigestEquals(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
