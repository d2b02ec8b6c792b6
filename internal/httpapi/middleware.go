package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/otabek-dev/taskhub/internal/apperr"
	"github.com/otabek-dev/taskhub/internal/models"
	"github.com/otabek-dev/taskhub/internal/token"
)

const claimsKey = "session_claims"

// requireAuth validates the bearer access token and stores its claims on
// the request context.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tok, found := strings.CutPrefix(header, "Bearer ")
		if !found || tok == "" {
			s.writeError(c, apperr.ErrUnauthorized)
			return
		}
		claims, err := s.tokens.VerifyAccess(tok)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// requireGlobalRole gates a route on the platform-wide role carried in the
// access token. Must run after requireAuth.
func (s *Server) requireGlobalRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := sessionClaims(c)
		for _, r := range roles {
			if claims.Role == r {
				c.Next()
				return
			}
		}
		s.writeError(c, apperr.ErrForbidden)
	}
}

func sessionClaims(c *gin.Context) *token.Claims {
	return c.MustGet(claimsKey).(*token.Claims)
}

// requestLogger emits one structured line per request.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debugw("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"size", c.Writer.Size(),
			"duration", time.Since(start),
		)
	}
}

func (s *Server) recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				s.log.Errorw("panic recovered", "path", c.Request.URL.Path, "panic", r)
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					errorResponse{Error: "internal server error"})
			}
		}()
		c.Next()
	}
}
