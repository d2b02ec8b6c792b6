package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/otabek-dev/taskhub/internal/apperr"
	"github.com/otabek-dev/taskhub/internal/dbx"
	"github.com/otabek-dev/taskhub/internal/models"
	"github.com/otabek-dev/taskhub/internal/repositories/attachments"
	"github.com/otabek-dev/taskhub/internal/repositories/comments"
	"github.com/otabek-dev/taskhub/internal/repositories/memberships"
	"github.com/otabek-dev/taskhub/internal/repositories/projects"
	"github.com/otabek-dev/taskhub/internal/repositories/subtasks"
	"github.com/otabek-dev/taskhub/internal/repositories/tags"
	"github.com/otabek-dev/taskhub/internal/repositories/tasks"
	"github.com/otabek-dev/taskhub/internal/repositories/users"
)

// --- in-memory users repository ---

type fakeUsersRepo struct {
	byID map[string]*models.User

	createErr error
	deleted   []string
	nextID    int
}

func newFakeUsersRepo(seed ...*models.User) *fakeUsersRepo {
	f := &fakeUsersRepo{byID: map[string]*models.User{}}
	for _, u := range seed {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsersRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, u := range f.byID {
		if u.Email == user.Email {
			return nil, apperr.ErrConflict
		}
	}
	f.nextID++
	cp := *user
	if cp.ID == "" {
		cp.ID = fmt.Sprintf("gen-%d", f.nextID)
	}
	f.byID[cp.ID] = &cp
	return &cp, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (f *fakeUsersRepo) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	for _, u := range f.byID {
		if u.Email == login || (u.Username != nil && *u.Username == login) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (f *fakeUsersRepo) GetByVerificationCode(ctx context.Context, code string) (*models.User, error) {
	for _, u := range f.byID {
		if u.VerificationCode != nil && *u.VerificationCode == code {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (f *fakeUsersRepo) GetByResetToken(ctx context.Context, token string) (*models.User, error) {
	for _, u := range f.byID {
		if u.ResetPasswordToken != nil && *u.ResetPasswordToken == token &&
			u.ResetTokenExpires != nil && u.ResetTokenExpires.After(time.Now()) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (f *fakeUsersRepo) GetByReactivationToken(ctx context.Context, token string) (*models.User, error) {
	for _, u := range f.byID {
		if u.ReactivationToken != nil && *u.ReactivationToken == token &&
			u.ReactivationTokenExpires != nil && u.ReactivationTokenExpires.After(time.Now()) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (f *fakeUsersRepo) List(ctx context.Context, roles []models.Role, page, limit int) ([]*models.User, int64, error) {
	var out []*models.User
	for _, u := range f.byID {
		if !u.IsActive {
			continue
		}
		if len(roles) > 0 {
			found := false
			for _, r := range roles {
				if u.Role == r {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		cp := *u
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (f *fakeUsersRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeUsersRepo) SetRefreshTokenHash(ctx context.Context, id, digest string) error {
	u, ok := f.byID[id]
	if !ok {
		return apperr.ErrNotFound
	}
	u.RefreshTokenHash = &digest
	return nil
}

func (f *fakeUsersRepo) ClearRefreshTokenHash(ctx context.Context, id string) error {
	if u, ok := f.byID[id]; ok {
		u.RefreshTokenHash = nil
	}
	return nil
}

func (f *fakeUsersRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	u, ok := f.byID[id]
	if !ok {
		return apperr.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (f *fakeUsersRepo) UpdatePasswordClearReset(ctx context.Context, id, passwordHash string) error {
	u, ok := f.byID[id]
	if !ok {
		return apperr.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.ResetPasswordToken = nil
	u.ResetTokenExpires = nil
	return nil
}

func (f *fakeUsersRepo) SetResetToken(ctx context.Context, id, token string, expires time.Time) error {
	u, ok := f.byID[id]
	if !ok {
		return apperr.ErrNotFound
	}
	u.ResetPasswordToken = &token
	u.ResetTokenExpires = &expires
	return nil
}

func (f *fakeUsersRepo) SetReactivationToken(ctx context.Context, id, token string, expires time.Time) error {
	u, ok := f.byID[id]
	if !ok {
		return apperr.ErrNotFound
	}
	u.ReactivationToken = &token
	u.ReactivationTokenExpires = &expires
	return nil
}

func (f *fakeUsersRepo) ClearReactivationToken(ctx context.Context, id string) error {
	if u, ok := f.byID[id]; ok {
		u.ReactivationToken = nil
		u.ReactivationTokenExpires = nil
	}
	return nil
}

func (f *fakeUsersRepo) MarkVerified(ctx context.Context, id string) error {
	u, ok := f.byID[id]
	if !ok {
		return apperr.ErrNotFound
	}
	u.IsVerified = true
	u.IsActive = true
	u.VerificationCode = nil
	return nil
}

func (f *fakeUsersRepo) Deactivate(ctx context.Context, id string) error {
	u, ok := f.byID[id]
	if !ok {
		return apperr.ErrNotFound
	}
	u.IsActive = false
	u.RefreshTokenHash = nil
	return nil
}

func (f *fakeUsersRepo) Reactivate(ctx context.Context, id string) error {
	u, ok := f.byID[id]
	if !ok {
		return apperr.ErrNotFound
	}
	u.IsActive = true
	u.IsVerified = true
	u.ReactivationToken = nil
	u.ReactivationTokenExpires = nil
	return nil
}

func (f *fakeUsersRepo) SetPendingEmail(ctx context.Context, id, email string) error {
	u, ok := f.byID[id]
	if !ok {
		return apperr.ErrNotFound
	}
	u.PendingEmail = &email
	return nil
}

func (f *fakeUsersRepo) ApplyEmailChange(ctx context.Context, id, newEmail string) error {
	u, ok := f.byID[id]
	if !ok {
		return apperr.ErrNotFound
	}
	u.Email = newEmail
	u.PendingEmail = nil
	return nil
}

func (f *fakeUsersRepo) UpdateRole(ctx context.Context, id string, role models.Role) error {
	u, ok := f.byID[id]
	if !ok {
		return apperr.ErrNotFound
	}
	u.Role = role
	return nil
}

func (f *fakeUsersRepo) UpdateProfile(ctx context.Context, user *models.User) (*models.User, error) {
	u, ok := f.byID[user.ID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	*u = *user
	cp := *u
	return &cp, nil
}

// --- in-memory memberships repository, keyed projectID+"/"+userID ---

type fakeMembershipsRepo struct {
	rows map[string]*models.Membership
}

func newFakeMembershipsRepo(seed ...*models.Membership) *fakeMembershipsRepo {
	f := &fakeMembershipsRepo{rows: map[string]*models.Membership{}}
	for _, m := range seed {
		f.rows[m.ProjectID+"/"+m.UserID] = m
	}
	return f
}

func (f *fakeMembershipsRepo) Create(ctx context.Context, m *models.Membership) (*models.Membership, error) {
	key := m.ProjectID + "/" + m.UserID
	if _, ok := f.rows[key]; ok {
		return nil, apperr.ErrConflict
	}
	cp := *m
	f.rows[key] = &cp
	return &cp, nil
}

func (f *fakeMembershipsRepo) Get(ctx context.Context, projectID, userID string) (*models.Membership, error) {
	m, ok := f.rows[projectID+"/"+userID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMembershipsRepo) ListByProject(ctx context.Context, projectID string) ([]*models.MembershipView, error) {
	var out []*models.MembershipView
	for _, m := range f.rows {
		if m.ProjectID == projectID {
			out = append(out, &models.MembershipView{Membership: *m})
		}
	}
	return out, nil
}

func (f *fakeMembershipsRepo) UpdateRole(ctx context.Context, projectID, userID string, role models.ProjectRole) (*models.Membership, error) {
	m, ok := f.rows[projectID+"/"+userID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	m.Role = role
	cp := *m
	return &cp, nil
}

func (f *fakeMembershipsRepo) Delete(ctx context.Context, projectID, userID string) error {
	key := projectID + "/" + userID
	if _, ok := f.rows[key]; !ok {
		return apperr.ErrNotFound
	}
	delete(f.rows, key)
	return nil
}

// --- in-memory tasks repository ---

type fakeTasksRepo struct {
	byID    map[string]*models.Task
	deleted []string
}

func newFakeTasksRepo(seed ...*models.Task) *fakeTasksRepo {
	f := &fakeTasksRepo{byID: map[string]*models.Task{}}
	for _, task := range seed {
		f.byID[task.ID] = task
	}
	return f
}

func (f *fakeTasksRepo) Create(ctx context.Context, task *models.Task, tagIDs []string) (*models.Task, error) {
	cp := *task
	if cp.ID == "" {
		cp.ID = fmt.Sprintf("task-%d", len(f.byID)+1)
	}
	f.byID[cp.ID] = &cp
	return &cp, nil
}

func (f *fakeTasksRepo) GetByID(ctx context.Context, id string) (*models.Task, error) {
	task, ok := f.byID[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *task
	return &cp, nil
}

func (f *fakeTasksRepo) ListByProject(ctx context.Context, projectID string, status *models.TaskStatus) ([]*models.Task, error) {
	var out []*models.Task
	for _, task := range f.byID {
		if task.ProjectID != projectID {
			continue
		}
		if status != nil && task.Status != *status {
			continue
		}
		cp := *task
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeTasksRepo) Update(ctx context.Context, task *models.Task, tagIDs []string) (*models.Task, error) {
	stored, ok := f.byID[task.ID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	*stored = *task
	cp := *stored
	return &cp, nil
}

func (f *fakeTasksRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeTasksRepo) ListFileURLs(ctx context.Context, id string) ([]string, error) {
	return nil, nil
}

func (f *fakeTasksRepo) ListTags(ctx context.Context, id string) ([]*models.Tag, error) {
	return nil, nil
}

// --- repo manager vending the fakes ---

type fakeRepoManager struct {
	users       *fakeUsersRepo
	memberships *fakeMembershipsRepo
	tasks       *fakeTasksRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository             { return m.users }
func (m *fakeRepoManager) Memberships(dbx.DBTX) memberships.Repository { return m.memberships }
func (m *fakeRepoManager) Projects(dbx.DBTX) projects.Repository       { return nil }
func (m *fakeRepoManager) Tasks(dbx.DBTX) tasks.Repository             { return m.tasks }
func (m *fakeRepoManager) Subtasks(dbx.DBTX) subtasks.Repository       { return nil }
func (m *fakeRepoManager) Comments(dbx.DBTX) comments.Repository       { return nil }
func (m *fakeRepoManager) Tags(dbx.DBTX) tags.Repository               { return nil }
func (m *fakeRepoManager) Attachments(dbx.DBTX) attachments.Repository { return nil }

// --- mail capture ---

type fakeMailer struct {
	sent    []sentMail
	sendErr error
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

func (f *fakeMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, Body: htmlBody})
	return nil
}
