package models

import "time"

// ProjectRole scopes a member's privileges inside a single project.
// Ordering of trust: OWNER > ADMIN > MEMBER.
type ProjectRole string

const (
	ProjectRoleOwner  ProjectRole = "OWNER"
	ProjectRoleAdmin  ProjectRole = "ADMIN"
	ProjectRoleMember ProjectRole = "MEMBER"
)

// Project groups tasks and members. Deleting a project cascades over its
// tasks, subtasks, comments and attachments.
type Project struct {
	ID              string
	Name            string
	Description     *string
	ProjectImageURL *string
	OwnerID         string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Membership is the (user, project, role) triple every project-scoped
// authorization decision is made against. Exactly one row exists per
// (user, project) pair, and exactly one OWNER per project, fixed at
// project creation.
type Membership struct {
	UserID    string
	ProjectID string
	Role      ProjectRole
	CreatedAt time.Time
}

// MembershipView is a membership joined with display fields of the member.
type MembershipView struct {
	Membership
	FirstName      string
	LastName       string
	Email          string
	AvatarImageURL *string
}
