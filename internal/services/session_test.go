package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/otabek-dev/taskhub/internal/apperr"
	"github.com/otabek-dev/taskhub/internal/models"
	"github.com/otabek-dev/taskhub/internal/token"
)

func mustHash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(h)
}

func newSessionFixture(t *testing.T, seed ...*models.User) (*SessionService, *fakeUsersRepo) {
	t.Helper()
	repo := newFakeUsersRepo(seed...)
	rm := &fakeRepoManager{users: repo}
	tokens := token.NewManager("a", "r", "e", time.Minute, time.Hour)
	return NewSessionService(nil, rm, tokens), repo
}

func activeUser(t *testing.T, id, email, password string) *models.User {
	t.Helper()
	return &models.User{
		ID:           id,
		Email:        email,
		PasswordHash: mustHash(t, password),
		Role:         models.RoleUser,
		IsActive:     true,
		IsVerified:   true,
	}
}

func TestSignIn_Success(t *testing.T) {
	svc, repo := newSessionFixture(t, activeUser(t, "u1", "a@b.c", "secretpw"))

	pair, err := svc.SignIn(context.Background(), "a@b.c", "secretpw")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected a complete token pair")
	}

	stored := repo.byID["u1"].RefreshTokenHash
	if stored == nil {
		t.Fatal("refresh digest not stored")
	}
	if *stored != token.RefreshDigest(pair.RefreshToken) {
		t.Error("stored digest does not match issued refresh token")
	}
}

func TestSignIn_ByUsername(t *testing.T) {
	u := activeUser(t, "u1", "a@b.c", "secretpw")
	name := "alice"
	u.Username = &name
	svc, _ := newSessionFixture(t, u)

	if _, err := svc.SignIn(context.Background(), "alice", "secretpw"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSignIn_Rejections(t *testing.T) {
	inactive := activeUser(t, "u2", "inactive@b.c", "secretpw")
	inactive.IsActive = false
	unverified := activeUser(t, "u3", "unverified@b.c", "secretpw")
	unverified.IsVerified = false

	svc, _ := newSessionFixture(t,
		activeUser(t, "u1", "a@b.c", "secretpw"), inactive, unverified)
	ctx := context.Background()

	tests := []struct {
		name     string
		login    string
		password string
		wantErr  error
	}{
		{"unknown login", "nobody@b.c", "secretpw", apperr.ErrInvalidCredentials},
		{"wrong password", "a@b.c", "wrong", apperr.ErrInvalidCredentials},
		{"deactivated account", "inactive@b.c", "secretpw", apperr.ErrAccountInactive},
		{"unverified account", "unverified@b.c", "secretpw", apperr.ErrNotVerified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.SignIn(ctx, tt.login, tt.password); !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRefresh_RotatesDigest(t *testing.T) {
	svc, repo := newSessionFixture(t, activeUser(t, "u1", "a@b.c", "secretpw"))
	ctx := context.Background()

	pair, err := svc.SignIn(ctx, "a@b.c", "secretpw")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}

	rotated, err := svc.Refresh(ctx, "u1", pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	stored := repo.byID["u1"].RefreshTokenHash
	if stored == nil || *stored != token.RefreshDigest(rotated.RefreshToken) {
		t.Error("stored digest was not rotated to the new refresh token")
	}

	// Rotation invalidates the previous token: replaying it must fail.
	if _, err := svc.Refresh(ctx, "u1", pair.RefreshToken); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("replayed old token: got %v, want ErrForbidden", err)
	}
}

func TestRefresh_RejectsMismatchedToken(t *testing.T) {
	u := activeUser(t, "u1", "a@b.c", "secretpw")
	digest := token.RefreshDigest("the-current-token")
	u.RefreshTokenHash = &digest
	svc, _ := newSessionFixture(t, u)

	_, err := svc.Refresh(context.Background(), "u1", "some-other-token")
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("got %v, want ErrForbidden", err)
	}
}

func TestRefresh_RejectsSignedOutUser(t *testing.T) {
	svc, _ := newSessionFixture(t, activeUser(t, "u1", "a@b.c", "secretpw"))

	_, err := svc.Refresh(context.Background(), "u1", "anything")
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("no stored digest: got %v, want ErrForbidden", err)
	}
}

func TestRefresh_UnknownUser(t *testing.T) {
	svc, _ := newSessionFixture(t)

	_, err := svc.Refresh(context.Background(), "ghost", "anything")
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("got %v, want ErrForbidden", err)
	}
}

func TestSignOut_ClearsDigest(t *testing.T) {
	svc, repo := newSessionFixture(t, activeUser(t, "u1", "a@b.c", "secretpw"))
	ctx := context.Background()

	if _, err := svc.SignIn(ctx, "a@b.c", "secretpw"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if err := svc.SignOut(ctx, "u1"); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if repo.byID["u1"].RefreshTokenHash != nil {
		t.Error("refresh digest not cleared")
	}

	// Second sign-out is a no-op, not an error.
	if err := svc.SignOut(ctx, "u1"); err != nil {
		t.Errorf("repeated sign out: %v", err)
	}
}
