package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sadwiik06/SocialFlow/internal/auth"
	"github.com/sadwiik06/SocialFlow/internal/util"
)

// TokenValidator is the part of auth.Service the middleware needs
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// AuthMiddleware validates the bearer JWT and sets user_id and username
func AuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			util.RespondUnauthorized(c, "no token provided")
			c.Abort()
			return
		}

		claims, err := tokens.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			util.RespondUnauthorized(c, "invalid token")
			c.Abort()
			return
		}

		c.Set(util.ContextUserID, claims.UserID)
		c.Set("username", claims.Username)
		c.Next()
	}
}

// HeaderAuth trusts the X-User-ID header. It exists for handler tests and
// must never be mounted in the server.
func HeaderAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			util.RespondUnauthorized(c)
			c.Abort()
			return
		}
		c.Set(util.ContextUserID, userID)
		c.Next()
	}
}
