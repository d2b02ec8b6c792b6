package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/otabek-dev/taskhub/internal/apperr"
	"github.com/otabek-dev/taskhub/internal/models"
	"github.com/otabek-dev/taskhub/internal/services"
)

type taskResponse struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	Description  *string           `json:"description,omitempty"`
	Status       models.TaskStatus `json:"status"`
	TaskImageURL *string           `json:"taskImageUrl,omitempty"`
	DueDate      *time.Time        `json:"dueDate,omitempty"`
	ProjectID    string            `json:"projectId"`
	AuthorID     string            `json:"authorId"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

func toTaskResponse(t *models.Task) taskResponse {
	return taskResponse{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		Status:       t.Status,
		TaskImageURL: t.TaskImageURL,
		DueDate:      t.DueDate,
		ProjectID:    t.ProjectID,
		AuthorID:     t.AuthorID,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

// parseStatus validates an optional status string. Empty means no filter.
func parseStatus(v string) (*models.TaskStatus, error) {
	if v == "" {
		return nil, nil
	}
	st := models.TaskStatus(v)
	switch st {
	case models.TaskStatusTodo, models.TaskStatusInProgress, models.TaskStatusDone:
		return &st, nil
	}
	return nil, apperr.ErrValidation
}

// handleCreateTask accepts a multipart form: text fields, repeated tagIds,
// optional image.
func (s *Server) handleCreateTask(c *gin.Context) {
	title, ok := c.GetPostForm("title")
	if !ok || title == "" {
		s.writeError(c, apperr.ErrValidation)
		return
	}
	in := services.CreateTaskInput{
		ProjectID: c.Param("projectID"),
		Title:     title,
		TagIDs:    c.PostFormArray("tagIds"),
	}
	if v, found := c.GetPostForm("description"); found {
		in.Description = &v
	}
	if v, found := c.GetPostForm("dueDate"); found {
		due, err := time.Parse(time.RFC3339, v)
		if err != nil {
			s.writeError(c, apperr.ErrValidation)
			return
		}
		in.DueDate = &due
	}
	image, err := fileFromForm(c, "image")
	if err != nil {
		s.writeError(c, apperr.ErrValidation)
		return
	}

	task, err := s.tasks.Create(c.Request.Context(), sessionClaims(c).UserID, in, image)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTaskResponse(task))
}

func (s *Server) handleListTasks(c *gin.Context) {
	status, err := parseStatus(c.Query("status"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	list, err := s.tasks.ListByProject(c.Request.Context(), c.Param("projectID"),
		sessionClaims(c).UserID, status)
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]taskResponse, 0, len(list))
	for _, t := range list {
		out = append(out, toTaskResponse(t))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetTask(c *gin.Context) {
	task, err := s.tasks.Get(c.Request.Context(), c.Param("taskID"), sessionClaims(c).UserID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTaskResponse(task))
}

func (s *Server) handleUpdateTask(c *gin.Context) {
	var in services.UpdateTaskInput
	if v, ok := c.GetPostForm("title"); ok {
		in.Title = &v
	}
	if v, ok := c.GetPostForm("description"); ok {
		in.Description = &v
	}
	if v, ok := c.GetPostForm("status"); ok {
		st, err := parseStatus(v)
		if err != nil || st == nil {
			s.writeError(c, apperr.ErrValidation)
			return
		}
		in.Status = st
	}
	if v, ok := c.GetPostForm("dueDate"); ok {
		due, err := time.Parse(time.RFC3339, v)
		if err != nil {
			s.writeError(c, apperr.ErrValidation)
			return
		}
		in.DueDate = &due
	}
	if _, ok := c.GetPostFormArray("tagIds"); ok {
		in.TagIDs = c.PostFormArray("tagIds")
	}
	image, err := fileFromForm(c, "image")
	if err != nil {
		s.writeError(c, apperr.ErrValidation)
		return
	}

	task, err := s.tasks.Update(c.Request.Context(), c.Param("taskID"), sessionClaims(c).UserID, in, image)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTaskResponse(task))
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	if err := s.tasks.Delete(c.Request.Context(), c.Param("taskID"), sessionClaims(c).UserID); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "task deleted"})
}

func (s *Server) handleListTaskTags(c *gin.Context) {
	tags, err := s.tasks.ListTags(c.Request.Context(), c.Param("taskID"), sessionClaims(c).UserID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTagResponses(tags))
}
