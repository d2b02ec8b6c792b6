package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/otabek-dev/taskhub/internal/apperr"
	"github.com/otabek-dev/taskhub/internal/mail"
	"github.com/otabek-dev/taskhub/internal/models"
	"github.com/otabek-dev/taskhub/internal/token"
)

func newAccountFixture(t *testing.T, seed ...*models.User) (*AccountService, *fakeUsersRepo, *fakeMailer) {
	t.Helper()
	repo := newFakeUsersRepo(seed...)
	rm := &fakeRepoManager{users: repo}
	tokens := token.NewManager("a", "r", "e", time.Minute, time.Hour)
	mailer := &fakeMailer{}
	mailSvc := mail.NewService(mailer, "http://front", "http://back/api")
	svc := NewAccountService(nil, rm, tokens, mailSvc, 15*time.Minute, zap.NewNop().Sugar())
	return svc, repo, mailer
}

func validSignUp() SignUpInput {
	return SignUpInput{
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Email:           "ada@b.c",
		Password:        "secretpw",
		ConfirmPassword: "secretpw",
	}
}

func TestSignUp_Success(t *testing.T) {
	svc, repo, mailer := newAccountFixture(t)

	if err := svc.SignUp(context.Background(), validSignUp()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	u, err := repo.GetByEmail(context.Background(), "ada@b.c")
	if err != nil {
		t.Fatalf("user not stored: %v", err)
	}
	if u.IsVerified {
		t.Error("new account must start unverified")
	}
	if u.VerificationCode == nil || *u.VerificationCode == "" {
		t.Error("verification code not set")
	}
	if u.PasswordHash == "secretpw" {
		t.Error("password stored in plain text")
	}

	if len(mailer.sent) != 1 || mailer.sent[0].To != "ada@b.c" {
		t.Fatalf("expected one verification mail to ada@b.c, got %v", mailer.sent)
	}
}

func TestSignUp_PasswordMismatch(t *testing.T) {
	svc, repo, _ := newAccountFixture(t)

	in := validSignUp()
	in.ConfirmPassword = "different"
	if err := svc.SignUp(context.Background(), in); !errors.Is(err, apperr.ErrPasswordMismatch) {
		t.Errorf("got %v, want ErrPasswordMismatch", err)
	}
	if len(repo.byID) != 0 {
		t.Error("no user should be created on mismatch")
	}
}

func TestSignUp_EmailTaken(t *testing.T) {
	svc, _, _ := newAccountFixture(t, &models.User{ID: "u1", Email: "ada@b.c"})

	if err := svc.SignUp(context.Background(), validSignUp()); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("got %v, want ErrConflict", err)
	}
}

func TestSignUp_MailFailureRollsBack(t *testing.T) {
	svc, repo, mailer := newAccountFixture(t)
	mailer.sendErr = errors.New("smtp down")

	err := svc.SignUp(context.Background(), validSignUp())
	if !errors.Is(err, apperr.ErrMailDelivery) {
		t.Fatalf("got %v, want ErrMailDelivery", err)
	}
	if len(repo.byID) != 0 {
		t.Error("account must be deleted when the verification mail fails")
	}
	if len(repo.deleted) != 1 {
		t.Error("expected exactly one compensating delete")
	}
}

func TestActivate(t *testing.T) {
	code := "code-1"
	svc, repo, _ := newAccountFixture(t, &models.User{
		ID: "u1", Email: "a@b.c", VerificationCode: &code,
	})
	ctx := context.Background()

	if err := svc.Activate(ctx, "wrong"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown code: got %v, want ErrNotFound", err)
	}

	if err := svc.Activate(ctx, code); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u := repo.byID["u1"]
	if !u.IsVerified || !u.IsActive {
		t.Error("account not marked verified and active")
	}
}

func TestActivate_AlreadyVerified(t *testing.T) {
	code := "code-1"
	svc, _, _ := newAccountFixture(t, &models.User{
		ID: "u1", Email: "a@b.c", VerificationCode: &code, IsVerified: true,
	})

	if err := svc.Activate(context.Background(), code); !errors.Is(err, apperr.ErrAlreadyActivated) {
		t.Errorf("got %v, want ErrAlreadyActivated", err)
	}
}

func TestDeactivateUser(t *testing.T) {
	digest := "d"
	svc, repo, _ := newAccountFixture(t,
		&models.User{ID: "u1", Email: "a@b.c", Role: models.RoleUser, IsActive: true, RefreshTokenHash: &digest},
		&models.User{ID: "root", Email: "root@b.c", Role: models.RoleSuperAdmin, IsActive: true},
	)
	ctx := context.Background()

	if err := svc.DeactivateUser(ctx, "root"); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("super admin: got %v, want ErrForbidden", err)
	}

	if err := svc.DeactivateUser(ctx, "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u := repo.byID["u1"]
	if u.IsActive {
		t.Error("account still active")
	}
	if u.RefreshTokenHash != nil {
		t.Error("deactivation must revoke the live session")
	}
}

func TestRequestReactivation(t *testing.T) {
	svc, repo, mailer := newAccountFixture(t,
		&models.User{ID: "u1", Email: "gone@b.c", IsActive: false},
		&models.User{ID: "u2", Email: "live@b.c", IsActive: true},
	)
	ctx := context.Background()

	// Unknown email reports success so the flow cannot enumerate accounts.
	if err := svc.RequestReactivation(ctx, "nobody@b.c"); err != nil {
		t.Errorf("unknown email: got %v, want nil", err)
	}
	if len(mailer.sent) != 0 {
		t.Error("no mail expected for unknown email")
	}

	if err := svc.RequestReactivation(ctx, "live@b.c"); !errors.Is(err, apperr.ErrAlreadyActive) {
		t.Errorf("active account: got %v, want ErrAlreadyActive", err)
	}

	if err := svc.RequestReactivation(ctx, "gone@b.c"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u := repo.byID["u1"]
	if u.ReactivationToken == nil || u.ReactivationTokenExpires == nil {
		t.Fatal("reactivation token not stored")
	}
	if len(mailer.sent) != 1 || mailer.sent[0].To != "gone@b.c" {
		t.Errorf("expected one reactivation mail, got %v", mailer.sent)
	}
}

func TestConfirmReactivation(t *testing.T) {
	tok := "react-1"
	exp := time.Now().Add(10 * time.Minute)
	svc, repo, _ := newAccountFixture(t, &models.User{
		ID: "u1", Email: "gone@b.c", IsActive: false,
		ReactivationToken: &tok, ReactivationTokenExpires: &exp,
	})
	ctx := context.Background()

	if err := svc.ConfirmReactivation(ctx, "wrong"); !errors.Is(err, apperr.ErrInvalidToken) {
		t.Errorf("unknown token: got %v, want ErrInvalidToken", err)
	}

	if err := svc.ConfirmReactivation(ctx, tok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u := repo.byID["u1"]
	if !u.IsActive || !u.IsVerified {
		t.Error("account not reactivated")
	}
	if u.ReactivationToken != nil {
		t.Error("token not cleared after consumption")
	}
}

func TestConfirmReactivation_ExpiredToken(t *testing.T) {
	tok := "react-1"
	exp := time.Now().Add(-time.Minute)
	svc, _, _ := newAccountFixture(t, &models.User{
		ID: "u1", Email: "gone@b.c", IsActive: false,
		ReactivationToken: &tok, ReactivationTokenExpires: &exp,
	})

	if err := svc.ConfirmReactivation(context.Background(), tok); !errors.Is(err, apperr.ErrInvalidToken) {
		t.Errorf("expired token: got %v, want ErrInvalidToken", err)
	}
}

func TestForgotPassword_AntiEnumeration(t *testing.T) {
	svc, repo, mailer := newAccountFixture(t, &models.User{ID: "u1", Email: "a@b.c", IsActive: true})
	ctx := context.Background()

	if err := svc.ForgotPassword(ctx, "nobody@b.c"); err != nil {
		t.Errorf("unknown email: got %v, want nil", err)
	}

	// A mail failure must not surface either, or it would reveal that the
	// account exists.
	mailer.sendErr = errors.New("smtp down")
	if err := svc.ForgotPassword(ctx, "a@b.c"); err != nil {
		t.Errorf("mail failure: got %v, want nil", err)
	}
	mailer.sendErr = nil

	if err := svc.ForgotPassword(ctx, "a@b.c"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.byID["u1"].ResetPasswordToken == nil {
		t.Error("reset token not stored")
	}
	if len(mailer.sent) != 1 {
		t.Errorf("expected one reset mail, got %d", len(mailer.sent))
	}
}

func TestResetPassword(t *testing.T) {
	tok := "reset-1"
	exp := time.Now().Add(10 * time.Minute)
	svc, repo, _ := newAccountFixture(t, &models.User{
		ID: "u1", Email: "a@b.c", PasswordHash: "old",
		ResetPasswordToken: &tok, ResetTokenExpires: &exp,
	})
	ctx := context.Background()

	if err := svc.ResetPassword(ctx, tok, "newpass1", "different"); !errors.Is(err, apperr.ErrPasswordMismatch) {
		t.Errorf("mismatch: got %v, want ErrPasswordMismatch", err)
	}
	if err := svc.ResetPassword(ctx, "wrong", "newpass1", "newpass1"); !errors.Is(err, apperr.ErrInvalidToken) {
		t.Errorf("unknown token: got %v, want ErrInvalidToken", err)
	}

	if err := svc.ResetPassword(ctx, tok, "newpass1", "newpass1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u := repo.byID["u1"]
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("newpass1")) != nil {
		t.Error("new password not stored")
	}
	if u.ResetPasswordToken != nil {
		t.Error("reset token not cleared")
	}
}

func TestChangeOwnPassword(t *testing.T) {
	svc, repo, _ := newAccountFixture(t, &models.User{
		ID: "u1", Email: "a@b.c", IsActive: true,
		PasswordHash: mustHash(t, "oldpass1"),
	})
	ctx := context.Background()

	if err := svc.ChangeOwnPassword(ctx, "u1", "wrong", "newpass1", "newpass1"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("wrong old password: got %v, want ErrValidation", err)
	}

	if err := svc.ChangeOwnPassword(ctx, "u1", "oldpass1", "newpass1", "newpass1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(repo.byID["u1"].PasswordHash), []byte("newpass1")) != nil {
		t.Error("new password not stored")
	}
}

func TestRequestEmailChange(t *testing.T) {
	svc, repo, mailer := newAccountFixture(t,
		&models.User{ID: "u1", Email: "a@b.c", IsActive: true, PasswordHash: mustHash(t, "secretpw")},
		&models.User{ID: "u2", Email: "taken@b.c", IsActive: true},
	)
	ctx := context.Background()

	if err := svc.RequestEmailChange(ctx, "u1", "wrong", "new@b.c"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("wrong password: got %v, want ErrUnauthorized", err)
	}
	if err := svc.RequestEmailChange(ctx, "u1", "secretpw", "taken@b.c"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("taken email: got %v, want ErrConflict", err)
	}

	if err := svc.RequestEmailChange(ctx, "u1", "secretpw", "new@b.c"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u := repo.byID["u1"]
	if u.PendingEmail == nil || *u.PendingEmail != "new@b.c" {
		t.Error("pending email not staged")
	}
	// The confirmation goes to the new address, proving its owner controls it.
	if len(mailer.sent) != 1 || mailer.sent[0].To != "new@b.c" {
		t.Errorf("expected one mail to new@b.c, got %v", mailer.sent)
	}
}

func TestConfirmEmailChange(t *testing.T) {
	svc, repo, _ := newAccountFixture(t, &models.User{
		ID: "u1", Email: "a@b.c", IsActive: true, PasswordHash: mustHash(t, "secretpw"),
	})
	ctx := context.Background()

	if err := svc.RequestEmailChange(ctx, "u1", "secretpw", "new@b.c"); err != nil {
		t.Fatalf("request: %v", err)
	}

	tokens := token.NewManager("a", "r", "e", time.Minute, time.Hour)
	tok, err := tokens.IssueEmailChangeToken("u1", "new@b.c", 15*time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if err := svc.ConfirmEmailChange(ctx, "garbage"); !errors.Is(err, apperr.ErrInvalidToken) {
		t.Errorf("bad token: got %v, want ErrInvalidToken", err)
	}

	if err := svc.ConfirmEmailChange(ctx, tok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u := repo.byID["u1"]
	if u.Email != "new@b.c" {
		t.Errorf("email not swapped, got %q", u.Email)
	}
	if u.PendingEmail != nil {
		t.Error("pending email not cleared")
	}
}

func TestConfirmEmailChange_StalePending(t *testing.T) {
	pending := "second@b.c"
	svc, _, _ := newAccountFixture(t, &models.User{
		ID: "u1", Email: "a@b.c", IsActive: true, PendingEmail: &pending,
	})

	// Token for a previously staged address that was superseded.
	tokens := token.NewManager("a", "r", "e", time.Minute, time.Hour)
	tok, err := tokens.IssueEmailChangeToken("u1", "first@b.c", 15*time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if err := svc.ConfirmEmailChange(context.Background(), tok); !errors.Is(err, apperr.ErrInvalidToken) {
		t.Errorf("stale token: got %v, want ErrInvalidToken", err)
	}
}

func TestConfirmEmailChange_MixedCaseAddress(t *testing.T) {
	svc, repo, mailer := newAccountFixture(t, &models.User{
		ID: "u1", Email: "a@b.c", IsActive: true, PasswordHash: mustHash(t, "secretpw"),
	})
	ctx := context.Background()

	if err := svc.RequestEmailChange(ctx, "u1", "secretpw", "New.Owner@Example.COM"); err != nil {
		t.Fatalf("request: %v", err)
	}
	u := repo.byID["u1"]
	if u.PendingEmail == nil || *u.PendingEmail != "new.owner@example.com" {
		t.Fatalf("pending email not folded, got %v", u.PendingEmail)
	}

	// The link in the mail carries the token that was actually signed; its
	// claim must match the folded pendingEmail or confirmation is impossible.
	_, rest, found := strings.Cut(mailer.sent[0].Body, "token=")
	if !found {
		t.Fatalf("no token in mail body: %q", mailer.sent[0].Body)
	}
	tok, _, _ := strings.Cut(rest, `"`)

	if err := svc.ConfirmEmailChange(ctx, tok); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if repo.byID["u1"].Email != "new.owner@example.com" {
		t.Errorf("email not swapped, got %q", repo.byID["u1"].Email)
	}
}
