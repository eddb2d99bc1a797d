package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"permadrop/internal/pkg/jwt"
	"permadrop/internal/pkg/response"
)

// RequireAuth rejects requests without a valid bearer credential and
// stores the caller's identity in the gin context.
func RequireAuth(tokens *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := identityFromHeader(c, tokens)
		if !ok {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "valid bearer token required")
			c.Abort()
			return
		}
		c.Set("user_id", identity.UserID)
		c.Set("email", identity.Email)
		c.Next()
	}
}

// OptionalAuth attaches the caller's identity when a valid credential is
// present and lets anonymous requests through. Used on the free upload
// endpoint, where a signed-in caller gets the record attached to their
// account.
func OptionalAuth(tokens *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if identity, ok := identityFromHeader(c, tokens); ok {
			c.Set("user_id", identity.UserID)
			c.Set("email", identity.Email)
		}
		c.Next()
	}
}

func identityFromHeader(c *gin.Context, tokens *jwt.Service) (*jwt.Identity, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return nil, false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, false
	}
	identity, err := tokens.Verify(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, false
	}
	return identity, true
}
