package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/otabek-dev/taskhub/internal/apperr"
	"github.com/otabek-dev/taskhub/internal/models"
)

type tagResponse struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Color *string `json:"color,omitempty"`
}

func toTagResponse(t *models.Tag) tagResponse {
	return tagResponse{ID: t.ID, Name: t.Name, Color: t.Color}
}

func toTagResponses(tags []*models.Tag) []tagResponse {
	out := make([]tagResponse, 0, len(tags))
	for _, t := range tags {
		out = append(out, toTagResponse(t))
	}
	return out
}

type createTagRequest struct {
	Name  string  `json:"name" binding:"required"`
	Color *string `json:"color"`
}

func (s *Server) handleCreateTag(c *gin.Context) {
	var req createTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, apperr.ErrValidation)
		return
	}
	tag, err := s.tags.Create(c.Request.Context(), sessionClaims(c).UserID, req.Name, req.Color)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTagResponse(tag))
}

func (s *Server) handleListTags(c *gin.Context) {
	tags, err := s.tags.List(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTagResponses(tags))
}

func (s *Server) handleGetTag(c *gin.Context) {
	tag, err := s.tags.Get(c.Request.Context(), c.Param("tagID"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTagResponse(tag))
}

type updateTagRequest struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

func (s *Server) handleUpdateTag(c *gin.Context) {
	var req updateTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, apperr.ErrValidation)
		return
	}
	tag, err := s.tags.Update(c.Request.Context(), sessionClaims(c).UserID, c.Param("tagID"),
		req.Name, req.Color)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTagResponse(tag))
}

func (s *Server) handleDeleteTag(c *gin.Context) {
	if err := s.tags.Delete(c.Request.Context(), sessionClaims(c).UserID, c.Param("tagID")); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "tag deleted"})
}
