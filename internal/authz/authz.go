// Package authz is the project-scoped authorization engine. Every resource
// service resolves the caller's membership through these three primitives
// before mutating anything that belongs to a project.
package authz

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/otabek-dev/taskhub/internal/apperr"
	"github.com/otabek-dev/taskhub/internal/dbx"
	"github.com/otabek-dev/taskhub/internal/models"
	"github.com/otabek-dev/taskhub/internal/repositories/memberships"
)

// Engine resolves effective project roles against the membership store.
type Engine struct {
	db   dbx.DBTX
	repo func(dbx.DBTX) memberships.Repository
}

func NewEngine(db dbx.DBTX, repo func(dbx.DBTX) memberships.Repository) *Engine {
	return &Engine{db: db, repo: repo}
}

// RequireMembership returns the caller's membership in the project, or
// ErrForbidden. A missing membership and a missing project are deliberately
// indistinguishable so non-members cannot probe project existence.
func (e *Engine) RequireMembership(ctx context.Context, projectID, userID string) (*models.Membership, error) {
	m, err := e.repo(e.db).Get(ctx, projectID, userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrForbidden
		}
		return nil, fmt.Errorf("resolving membership: %w", err)
	}
	return m, nil
}

// RequireRole returns the caller's membership if it exists and its role is
// one of allowed; ErrForbidden otherwise.
func (e *Engine) RequireRole(ctx context.Context, projectID, userID string, allowed ...models.ProjectRole) (*models.Membership, error) {
	m, err := e.RequireMembership(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(allowed, m.Role) {
		return nil, apperr.ErrForbidden
	}
	return m, nil
}

// RequireRoleOrOwnership short-circuits to success when the caller owns the
// resource (a task's author may always edit their own task), otherwise
// falls back to RequireRole.
func (e *Engine) RequireRoleOrOwnership(ctx context.Context, projectID, userID, resourceOwnerID string, allowed ...models.ProjectRole) error {
	if userID == resourceOwnerID {
		// Ownership does not waive membership itself.
		_, err := e.RequireMembership(ctx, projectID, userID)
		return err
	}
	_, err := e.RequireRole(ctx, projectID, userID, allowed...)
	return err
}
