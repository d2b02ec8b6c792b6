// Package repomanager vends repository implementations over a dbx.DBTX,
// letting services switch the same repository between a plain connection
// and a transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/otabek-dev/taskhub/internal/dbx"
	"github.com/otabek-dev/taskhub/internal/repositories/attachments"
	"github.com/otabek-dev/taskhub/internal/repositories/comments"
	"github.com/otabek-dev/taskhub/internal/repositories/memberships"
	"github.com/otabek-dev/taskhub/internal/repositories/projects"
	"github.com/otabek-dev/taskhub/internal/repositories/subtasks"
	"github.com/otabek-dev/taskhub/internal/repositories/tags"
	"github.com/otabek-dev/taskhub/internal/repositories/tasks"
	"github.com/otabek-dev/taskhub/internal/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Memberships(db dbx.DBTX) memberships.Repository
	Projects(db dbx.DBTX) projects.Repository
	Tasks(db dbx.DBTX) tasks.Repository
	Subtasks(db dbx.DBTX) subtasks.Repository
	Comments(db dbx.DBTX) comments.Repository
	Tags(db dbx.DBTX) tags.Repository
	Attachments(db dbx.DBTX) attachments.Repository
}
