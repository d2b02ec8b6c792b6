package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/otabek-dev/taskhub/internal/apperr"
	"github.com/otabek-dev/taskhub/internal/models"
)

type projectResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     *string   `json:"description,omitempty"`
	ProjectImageURL *string   `json:"projectImageUrl,omitempty"`
	OwnerID         string    `json:"ownerId"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func toProjectResponse(p *models.Project) projectResponse {
	return projectResponse{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		ProjectImageURL: p.ProjectImageURL,
		OwnerID:         p.OwnerID,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

type memberResponse struct {
	UserID         string             `json:"userId"`
	Role           models.ProjectRole `json:"role"`
	FirstName      string             `json:"firstName"`
	LastName       string             `json:"lastName"`
	Email          string             `json:"email"`
	AvatarImageURL *string            `json:"avatarImageUrl,omitempty"`
	JoinedAt       time.Time          `json:"joinedAt"`
}

// handleCreateProject accepts a multipart form so the project image can
// travel with the text fields.
func (s *Server) handleCreateProject(c *gin.Context) {
	name, ok := c.GetPostForm("name")
	if !ok || name == "" {
		s.writeError(c, apperr.ErrValidation)
		return
	}
	var description *string
	if v, found := c.GetPostForm("description"); found {
		description = &v
	}
	image, err := fileFromForm(c, "image")
	if err != nil {
		s.writeError(c, apperr.ErrValidation)
		return
	}

	p, err := s.projects.Create(c.Request.Context(), sessionClaims(c).UserID, name, description, image)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toProjectResponse(p))
}

func (s *Server) handleListProjects(c *gin.Context) {
	list, err := s.projects.ListForUser(c.Request.Context(), sessionClaims(c).UserID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]projectResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toProjectResponse(p))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetProject(c *gin.Context) {
	p, err := s.projects.Get(c.Request.Context(), c.Param("projectID"), sessionClaims(c).UserID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProjectResponse(p))
}

func (s *Server) handleUpdateProject(c *gin.Context) {
	var name, description *string
	if v, ok := c.GetPostForm("name"); ok {
		name = &v
	}
	if v, ok := c.GetPostForm("description"); ok {
		description = &v
	}
	image, err := fileFromForm(c, "image")
	if err != nil {
		s.writeError(c, apperr.ErrValidation)
		return
	}

	p, err := s.projects.Update(c.Request.Context(), c.Param("projectID"), sessionClaims(c).UserID,
		name, description, image)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProjectResponse(p))
}

func (s *Server) handleDeleteProject(c *gin.Context) {
	if err := s.projects.Delete(c.Request.Context(), c.Param("projectID"), sessionClaims(c).UserID); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "project deleted"})
}

type addMemberRequest struct {
	UserID string             `json:"userId" binding:"required"`
	Role   models.ProjectRole `json:"role" binding:"omitempty,oneof=ADMIN MEMBER"`
}

func (s *Server) handleAddMember(c *gin.Context) {
	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, apperr.ErrValidation)
		return
	}
	m, err := s.projects.AddMember(c.Request.Context(), c.Param("projectID"),
		sessionClaims(c).UserID, req.UserID, req.Role)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"userId": m.UserID, "projectId": m.ProjectID, "role": m.Role})
}

func (s *Server) handleListMembers(c *gin.Context) {
	members, err := s.projects.ListMembers(c.Request.Context(), c.Param("projectID"), sessionClaims(c).UserID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]memberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, memberResponse{
			UserID:         m.UserID,
			Role:           m.Role,
			FirstName:      m.FirstName,
			LastName:       m.LastName,
			Email:          m.Email,
			AvatarImageURL: m.AvatarImageURL,
			JoinedAt:       m.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

type updateMemberRoleRequest struct {
	Role models.ProjectRole `json:"role" binding:"required,oneof=ADMIN MEMBER"`
}

func (s *Server) handleUpdateMemberRole(c *gin.Context) {
	var req updateMemberRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, apperr.ErrValidation)
		return
	}
	m, err := s.projects.UpdateMemberRole(c.Request.Context(), c.Param("projectID"),
		sessionClaims(c).UserID, c.Param("userID"), req.Role)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"userId": m.UserID, "projectId": m.ProjectID, "role": m.Role})
}

func (s *Server) handleRemoveMember(c *gin.Context) {
	err := s.projects.RemoveMember(c.Request.Context(), c.Param("projectID"),
		sessionClaims(c).UserID, c.Param("userID"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "member removed"})
}
