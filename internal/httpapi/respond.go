package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/otabek-dev/taskhub/internal/apperr"
)

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// statusOf maps domain sentinels onto HTTP statuses. Anything unmapped is
// an internal error and its detail stays out of the response body.
func statusOf(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation),
		errors.Is(err, apperr.ErrPasswordMismatch),
		errors.Is(err, apperr.ErrInvalidToken),
		errors.Is(err, apperr.ErrAlreadyActivated),
		errors.Is(err, apperr.ErrAlreadyActive):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrInvalidCredentials),
		errors.Is(err, apperr.ErrUnauthorized),
		errors.Is(err, apperr.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden),
		errors.Is(err, apperr.ErrAccountInactive),
		errors.Is(err, apperr.ErrNotVerified):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.log.Errorw("request failed", "path", c.FullPath(), "error", err)
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: msg})
}
