package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/otabek-dev/taskhub/internal/apperr"
	"github.com/otabek-dev/taskhub/internal/models"
)

type subtaskResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	IsDone    bool      `json:"isDone"`
	TaskID    string    `json:"taskId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toSubtaskResponse(sub *models.Subtask) subtaskResponse {
	return subtaskResponse{
		ID:        sub.ID,
		Title:     sub.Title,
		IsDone:    sub.IsDone,
		TaskID:    sub.TaskID,
		CreatedAt: sub.CreatedAt,
		UpdatedAt: sub.UpdatedAt,
	}
}

type createSubtaskRequest struct {
	Title string `json:"title" binding:"required"`
}

func (s *Server) handleCreateSubtask(c *gin.Context) {
	var req createSubtaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, apperr.ErrValidation)
		return
	}
	sub, err := s.subtasks.Create(c.Request.Context(), c.Param("taskID"),
		sessionClaims(c).UserID, req.Title)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toSubtaskResponse(sub))
}

func (s *Server) handleListSubtasks(c *gin.Context) {
	list, err := s.subtasks.ListByTask(c.Request.Context(), c.Param("taskID"), sessionClaims(c).UserID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]subtaskResponse, 0, len(list))
	for _, sub := range list {
		out = append(out, toSubtaskResponse(sub))
	}
	c.JSON(http.StatusOK, out)
}

type updateSubtaskRequest struct {
	Title  *string `json:"title"`
	IsDone *bool   `json:"isDone"`
}

func (s *Server) handleUpdateSubtask(c *gin.Context) {
	var req updateSubtaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, apperr.ErrValidation)
		return
	}
	sub, err := s.subtasks.Update(c.Request.Context(), c.Param("subtaskID"),
		sessionClaims(c).UserID, req.Title, req.IsDone)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSubtaskResponse(sub))
}

func (s *Server) handleDeleteSubtask(c *gin.Context) {
	err := s.subtasks.Delete(c.Request.Context(), c.Param("subtaskID"), sessionClaims(c).UserID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "subtask deleted"})
}
