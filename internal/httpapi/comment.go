package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/otabek-dev/taskhub/internal/apperr"
	"github.com/otabek-dev/taskhub/internal/models"
)

type commentResponse struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	TaskID    string    `json:"taskId"`
	AuthorID  string    `json:"authorId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toCommentResponse(cm *models.Comment) commentResponse {
	return commentResponse{
		ID:        cm.ID,
		Content:   cm.Content,
		TaskID:    cm.TaskID,
		AuthorID:  cm.AuthorID,
		CreatedAt: cm.CreatedAt,
		UpdatedAt: cm.UpdatedAt,
	}
}

type commentRequest struct {
	Content string `json:"content" binding:"required"`
}

func (s *Server) handleCreateComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, apperr.ErrValidation)
		return
	}
	cm, err := s.comments.Create(c.Request.Context(), c.Param("taskID"),
		sessionClaims(c).UserID, req.Content)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCommentResponse(cm))
}

func (s *Server) handleListComments(c *gin.Context) {
	list, err := s.comments.ListByTask(c.Request.Context(), c.Param("taskID"), sessionClaims(c).UserID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]commentResponse, 0, len(list))
	for _, cm := range list {
		out = append(out, toCommentResponse(cm))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleUpdateComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, apperr.ErrValidation)
		return
	}
	cm, err := s.comments.Update(c.Request.Context(), c.Param("commentID"),
		sessionClaims(c).UserID, req.Content)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCommentResponse(cm))
}

func (s *Server) handleDeleteComment(c *gin.Context) {
	err := s.comments.Delete(c.Request.Context(), c.Param("commentID"), sessionClaims(c).UserID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "comment deleted"})
}
