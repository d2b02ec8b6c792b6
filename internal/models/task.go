package models

import "time"

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "TODO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusDone       TaskStatus = "DONE"
)

// Task belongs to a project and records its author. Authorization for any
// task operation is resolved through ProjectID.
type Task struct {
	ID           string
	Title        string
	Description  *string
	Status       TaskStatus
	TaskImageURL *string
	DueDate      *time.Time
	ProjectID    string
	AuthorID     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Subtask is a checklist item under a task.
type Subtask struct {
	ID        string
	Title     string
	IsDone    bool
	TaskID    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Comment is an authored note on a task.
type Comment struct {
	ID        string
	Content   string
	TaskID    string
	AuthorID  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Tag is a platform-global label; names are unique. Mutations are gated on
// the global ADMIN/SUPER_ADMIN role.
type Tag struct {
	ID    string
	Name  string
	Color *string
}

// Attachment is an uploaded file linked to a task. FileURL points into the
// blob store.
type Attachment struct {
	ID           string
	FileURL      string
	FileName     string
	MimeType     string
	TaskID       string
	UploadedByID string
	CreatedAt    time.Time
}
