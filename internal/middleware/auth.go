package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/models"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/response"
	"github.com/Emi-Dz/formulario-clientes-parcelas/pkg/logging"

	"github.com/gin-gonic/gin"
)

// Context keys set by SessionAuthMiddleware
const (
	ContextUserKey  = "auth_user"
	ContextTokenKey = "session_token"
)

// Authenticator resolves session tokens
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.AuthUser, bool, error)
}

// SessionToken reads the token from the Authorization bearer header, then X-Session-Token
func SessionToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(c.GetHeader("X-Session-Token"))
}

// SessionAuthMiddleware requires a valid session
func SessionAuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := SessionToken(c)
		if token == "" {
			response.AbortJSON(c, http.StatusUnauthorized, "Missing session token")
			return
		}

		user, ok, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			logging.Errorf("Session lookup failed: %v", err)
			response.AbortJSON(c, http.StatusInternalServerError, "Session lookup failed")
			return
		}
		if !ok {
			response.AbortJSON(c, http.StatusUnauthorized, "Invalid or expired session")
			return
		}

		c.Set(ContextUserKey, user)
		c.Set(ContextTokenKey, token)
		c.Set("request_time", time.Now())
		c.Next()
	}
}

// RequireAdmin rejects sellers. It must run after SessionAuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentUser(c).IsAdmin() {
			response.AbortJSON(c, http.StatusForbidden, "Administrator role required")
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user, or the zero user
func CurrentUser(c *gin.Context) models.AuthUser {
	if v, exists := c.Get(ContextUserKey); exists {
		if user, ok := v.(models.AuthUser); ok {
			return user
		}
	}
	return models.AuthUser{}
}
