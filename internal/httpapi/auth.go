package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/otabek-dev/taskhub/internal/apperr"
	"github.com/otabek-dev/taskhub/internal/services"
	"github.com/otabek-dev/taskhub/internal/token"
)

// refreshCookie is the httpOnly cookie carrying the refresh token. The
// access token only ever travels in response bodies and bearer headers.
const refreshCookie = "refresh_token"

func (s *Server) setRefreshCookie(c *gin.Context, pair *token.Pair) {
	c.SetCookie(refreshCookie, pair.RefreshToken,
		int(s.tokens.RefreshTTL().Seconds()), "/", "", s.secureCookies, true)
}

func (s *Server) clearRefreshCookie(c *gin.Context) {
	c.SetCookie(refreshCookie, "", -1, "/", "", s.secureCookies, true)
}

type signUpRequest struct {
	FirstName       string  `json:"firstName" binding:"required"`
	LastName        string  `json:"lastName" binding:"required"`
	Email           string  `json:"email" binding:"required,email"`
	Username        *string `json:"username"`
	Password        string  `json:"password" binding:"required,min=8"`
	ConfirmPassword string  `json:"confirmPassword" binding:"required"`
}

func (s *Server) handleSignUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, apperr.ErrValidation)
		return
	}
	err := s.accounts.SignUp(c.Request.Context(), services.SignUpInput{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		Username:        req.Username,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, messageResponse{Message: "verification email sent"})
}

type signInRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type signInResponse struct {
	AccessToken string `json:"accessToken"`
}

func (s *Server) handleSignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, apperr.ErrValidation)
		return
	}
	pair, err := s.sessions.SignIn(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.setRefreshCookie(c, pair)
	c.JSON(http.StatusOK, signInResponse{AccessToken: pair.AccessToken})
}

// handleRefresh rotates the session from the refresh cookie. The token is
// verified cryptographically first, then against the stored digest.
func (s *Server) handleRefresh(c *gin.Context) {
	presented, err := c.Cookie(refreshCookie)
	if err != nil || presented == "" {
		s.writeError(c, apperr.ErrUnauthorized)
		return
	}
	claims, err := s.tokens.VerifyRefresh(presented)
	if err != nil {
		s.writeError(c, apperr.ErrForbidden)
		return
	}
	pair, err := s.sessions.Refresh(c.Request.Context(), claims.UserID, presented)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.setRefreshCookie(c, pair)
	c.JSON(http.StatusOK, signInResponse{AccessToken: pair.AccessToken})
}

func (s *Server) handleSignOut(c *gin.Context) {
	if err := s.sessions.SignOut(c.Request.Context(), sessionClaims(c).UserID); err != nil {
		s.writeError(c, err)
		return
	}
	s.clearRefreshCookie(c)
	c.JSON(http.StatusOK, messageResponse{Message: "signed out"})
}

func (s *Server) handleActivate(c *gin.Context) {
	if err := s.accounts.Activate(c.Request.Context(), c.Param("code")); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "account activated"})
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (s *Server) handleForgotPassword(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, apperr.ErrValidation)
		return
	}
	if err := s.accounts.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "if the account exists, a reset email was sent"})
}

type resetPasswordRequest struct {
	Password        string `json:"password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

func (s *Server) handleResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, apperr.ErrValidation)
		return
	}
	err := s.accounts.ResetPassword(c.Request.Context(), c.Param("token"), req.Password, req.ConfirmPassword)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "password updated"})
}

func (s *Server) handleRequestReactivation(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, apperr.ErrValidation)
		return
	}
	if err := s.accounts.RequestReactivation(c.Request.Context(), req.Email); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "if the account exists, a reactivation email was sent"})
}

func (s *Server) handleConfirmReactivation(c *gin.Context) {
	if err := s.accounts.ConfirmReactivation(c.Request.Context(), c.Param("token")); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "account reactivated"})
}

type changePasswordRequest struct {
	OldPassword     string `json:"oldPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

func (s *Server) handleChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, apperr.ErrValidation)
		return
	}
	err := s.accounts.ChangeOwnPassword(c.Request.Context(), sessionClaims(c).UserID,
		req.OldPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "password updated"})
}
