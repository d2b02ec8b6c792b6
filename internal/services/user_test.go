package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/otabek-dev/taskhub/internal/apperr"
	"github.com/otabek-dev/taskhub/internal/mail"
	"github.com/otabek-dev/taskhub/internal/models"
	"github.com/otabek-dev/taskhub/internal/token"
)

func newUserFixture(t *testing.T, seed ...*models.User) (*UserService, *fakeUsersRepo, *fakeMailer) {
	t.Helper()
	repo := newFakeUsersRepo(seed...)
	rm := &fakeRepoManager{users: repo}
	tokens := token.NewManager("a", "r", "e", time.Minute, time.Hour)
	mailer := &fakeMailer{}
	accounts := NewAccountService(nil, rm, tokens, mail.NewService(mailer, "http://front", "http://back/api"),
		15*time.Minute, zap.NewNop().Sugar())
	return NewUserService(nil, rm, accounts, nil), repo, mailer
}

func validCreateUser(role models.Role) CreateUserInput {
	return CreateUserInput{
		FirstName:       "Bob",
		LastName:        "Builder",
		Email:           "bob@b.c",
		Role:            role,
		Password:        "secretpw",
		ConfirmPassword: "secretpw",
	}
}

func TestCreateUserByAdmin(t *testing.T) {
	svc, repo, mailer := newUserFixture(t,
		&models.User{ID: "root", Email: "root@b.c", Role: models.RoleSuperAdmin, IsActive: true},
	)

	u, err := svc.CreateUserByAdmin(context.Background(), "root", validCreateUser(models.RoleAdmin))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Role != models.RoleAdmin {
		t.Errorf("got role %q, want ADMIN", u.Role)
	}
	if u.IsVerified {
		t.Error("pre-provisioned account must still verify its email")
	}
	if stored, _ := repo.GetByEmail(context.Background(), "bob@b.c"); stored == nil {
		t.Error("user not stored")
	}
	if len(mailer.sent) != 1 {
		t.Errorf("expected one verification mail, got %d", len(mailer.sent))
	}
}

func TestCreateUserByAdmin_PrivilegedRoleNeedsSuperAdmin(t *testing.T) {
	svc, _, _ := newUserFixture(t,
		&models.User{ID: "adm", Email: "adm@b.c", Role: models.RoleAdmin, IsActive: true},
	)

	_, err := svc.CreateUserByAdmin(context.Background(), "adm", validCreateUser(models.RoleAdmin))
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("admin creating admin: got %v, want ErrForbidden", err)
	}

	// Plain USER accounts are fine for an ADMIN to create.
	if _, err := svc.CreateUserByAdmin(context.Background(), "adm", validCreateUser(models.RoleUser)); err != nil {
		t.Errorf("admin creating user: unexpected error %v", err)
	}
}

func TestCreateUserByAdmin_DefaultsRole(t *testing.T) {
	svc, _, _ := newUserFixture(t,
		&models.User{ID: "adm", Email: "adm@b.c", Role: models.RoleAdmin, IsActive: true},
	)

	u, err := svc.CreateUserByAdmin(context.Background(), "adm", validCreateUser(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Role != models.RoleUser {
		t.Errorf("got role %q, want USER", u.Role)
	}
}

func TestUpdateGlobalRole(t *testing.T) {
	svc, repo, _ := newUserFixture(t,
		&models.User{ID: "u1", Email: "a@b.c", Role: models.RoleUser, IsActive: true},
		&models.User{ID: "root", Email: "root@b.c", Role: models.RoleSuperAdmin, IsActive: true},
	)
	ctx := context.Background()

	u, err := svc.UpdateGlobalRole(ctx, "u1", models.RoleAdmin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Role != models.RoleAdmin || repo.byID["u1"].Role != models.RoleAdmin {
		t.Error("role not updated")
	}

	// SUPER_ADMIN's role is immutable.
	if _, err := svc.UpdateGlobalRole(ctx, "root", models.RoleUser); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("demote super admin: got %v, want ErrForbidden", err)
	}
}

func TestGetProfile_HidesDeactivated(t *testing.T) {
	svc, _, _ := newUserFixture(t,
		&models.User{ID: "u1", Email: "a@b.c", IsActive: false},
	)

	if _, err := svc.GetProfile(context.Background(), "u1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestAdminResetPassword(t *testing.T) {
	svc, repo, _ := newUserFixture(t,
		&models.User{ID: "u1", Email: "a@b.c", PasswordHash: "old", IsActive: true},
	)
	ctx := context.Background()

	if err := svc.AdminResetPassword(ctx, "u1", "newpass1", "other"); !errors.Is(err, apperr.ErrPasswordMismatch) {
		t.Errorf("mismatch: got %v, want ErrPasswordMismatch", err)
	}
	if err := svc.AdminResetPassword(ctx, "u1", "newpass1", "newpass1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.byID["u1"].PasswordHash == "old" {
		t.Error("password not replaced")
	}
}
