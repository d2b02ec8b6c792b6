package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/otabek-dev/taskhub/internal/apperr"
	"github.com/otabek-dev/taskhub/internal/models"
	"github.com/otabek-dev/taskhub/internal/services"
)

// userResponse is the public view of a user row. Credential material and
// action tokens never leave the server.
type userResponse struct {
	ID             string      `json:"id"`
	FirstName      string      `json:"firstName"`
	LastName       string      `json:"lastName"`
	Email          string      `json:"email"`
	Username       *string     `json:"username,omitempty"`
	PhoneNumber    *string     `json:"phoneNumber,omitempty"`
	Role           models.Role `json:"role"`
	IsActive       bool        `json:"isActive"`
	IsVerified     bool        `json:"isVerified"`
	AvatarImageURL *string     `json:"avatarImageUrl,omitempty"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:             u.ID,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Email:          u.Email,
		Username:       u.Username,
		PhoneNumber:    u.PhoneNumber,
		Role:           u.Role,
		IsActive:       u.IsActive,
		IsVerified:     u.IsVerified,
		AvatarImageURL: u.AvatarImageURL,
	}
}

func toUserResponses(users []*models.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out
}

type userListResponse struct {
	Users []userResponse     `json:"users"`
	Meta  *services.PageMeta `json:"meta"`
}

func pageParams(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	return page, limit
}

func (s *Server) handleGetMe(c *gin.Context) {
	user, err := s.users.GetProfile(c.Request.Context(), sessionClaims(c).UserID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

// handleUpdateProfile accepts a multipart form so the avatar can travel
// with the text fields.
func (s *Server) handleUpdateProfile(c *gin.Context) {
	var in services.UpdateProfileInput
	if v, ok := c.GetPostForm("firstName"); ok {
		in.FirstName = &v
	}
	if v, ok := c.GetPostForm("lastName"); ok {
		in.LastName = &v
	}
	if v, ok := c.GetPostForm("username"); ok {
		in.Username = &v
	}
	if v, ok := c.GetPostForm("phoneNumber"); ok {
		in.PhoneNumber = &v
	}
	avatar, err := fileFromForm(c, "avatar")
	if err != nil {
		s.writeError(c, apperr.ErrValidation)
		return
	}

	user, err := s.users.UpdateProfile(c.Request.Context(), sessionClaims(c).UserID, in, avatar)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

func (s *Server) handleDeactivateSelf(c *gin.Context) {
	if err := s.accounts.DeactivateUser(c.Request.Context(), sessionClaims(c).UserID); err != nil {
		s.writeError(c, err)
		return
	}
	s.clearRefreshCookie(c)
	c.JSON(http.StatusOK, messageResponse{Message: "account deactivated"})
}

type emailChangeRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewEmail        string `json:"newEmail" binding:"required,email"`
}

func (s *Server) handleRequestEmailChange(c *gin.Context) {
	var req emailChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, apperr.ErrValidation)
		return
	}
	err := s.accounts.RequestEmailChange(c.Request.Context(), sessionClaims(c).UserID,
		req.CurrentPassword, req.NewEmail)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "confirmation email sent to the new address"})
}

func (s *Server) handleConfirmEmailChange(c *gin.Context) {
	tok := c.Query("token")
	if tok == "" {
		s.writeError(c, apperr.ErrInvalidToken)
		return
	}
	if err := s.accounts.ConfirmEmailChange(c.Request.Context(), tok); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "email updated"})
}

type createUserRequest struct {
	FirstName       string      `json:"firstName" binding:"required"`
	LastName        string      `json:"lastName" binding:"required"`
	Email           string      `json:"email" binding:"required,email"`
	Username        *string     `json:"username"`
	PhoneNumber     *string     `json:"phoneNumber"`
	Role            models.Role `json:"role"`
	Password        string      `json:"password" binding:"required,min=8"`
	ConfirmPassword string      `json:"confirmPassword" binding:"required"`
}

func (s *Server) handleCreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, apperr.ErrValidation)
		return
	}
	user, err := s.users.CreateUserByAdmin(c.Request.Context(), sessionClaims(c).UserID,
		services.CreateUserInput{
			FirstName:       req.FirstName,
			LastName:        req.LastName,
			Email:           req.Email,
			Username:        req.Username,
			PhoneNumber:     req.PhoneNumber,
			Role:            req.Role,
			Password:        req.Password,
			ConfirmPassword: req.ConfirmPassword,
		})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toUserResponse(user))
}

func (s *Server) handleListUsers(c *gin.Context) {
	page, limit := pageParams(c)
	users, meta, err := s.users.ListActiveUsers(c.Request.Context(), page, limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, userListResponse{Users: toUserResponses(users), Meta: meta})
}

func (s *Server) handleListAdmins(c *gin.Context) {
	page, limit := pageParams(c)
	users, meta, err := s.users.ListAdmins(c.Request.Context(), page, limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, userListResponse{Users: toUserResponses(users), Meta: meta})
}

func (s *Server) handleListPlainUsers(c *gin.Context) {
	page, limit := pageParams(c)
	users, meta, err := s.users.ListPlainUsers(c.Request.Context(), page, limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, userListResponse{Users: toUserResponses(users), Meta: meta})
}

func (s *Server) handleGetUser(c *gin.Context) {
	user, err := s.users.GetProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

type updateRoleRequest struct {
	Role models.Role `json:"role" binding:"required,oneof=USER ADMIN SUPER_ADMIN"`
}

func (s *Server) handleUpdateRole(c *gin.Context) {
	var req updateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, apperr.ErrValidation)
		return
	}
	user, err := s.users.UpdateGlobalRole(c.Request.Context(), c.Param("id"), req.Role)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

type adminResetPasswordRequest struct {
	Password        string `json:"password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

func (s *Server) handleAdminResetPassword(c *gin.Context) {
	var req adminResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, apperr.ErrValidation)
		return
	}
	err := s.users.AdminResetPassword(c.Request.Context(), c.Param("id"),
		req.Password, req.ConfirmPassword)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "password updated"})
}

func (s *Server) handleDeactivateUser(c *gin.Context) {
	if err := s.accounts.DeactivateUser(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "account deactivated"})
}
