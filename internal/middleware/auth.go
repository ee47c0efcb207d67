package middleware

import (
	"net/http"
	"strings"

	"garment-dashboard/internal/model"

	"github.com/gin-gonic/gin"
)

const (
	contextKeyUser = "user"
	contextKeyRole = "role"

	// TokenCookie is the cookie the dashboard sends the access token in
	TokenCookie = "access-token"
)

// TokenValidator turns an access token into the request principal
type TokenValidator interface {
	ValidateToken(tokenString string) (*model.User, error)
}

// AuthMiddleware requires a valid access token
func AuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := extractToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		user, err := tokens.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(contextKeyUser, user)
		c.Next()
	}
}

// OptionalAuth sets the principal when a valid token is present and continues
// either way. Guarded views decide what an anonymous request gets.
func OptionalAuth(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := extractToken(c); ok {
			if user, err := tokens.ValidateToken(token); err == nil {
				c.Set(contextKeyUser, user)
			}
		}
		c.Next()
	}
}

// GetUserFromContext returns the principal set by the auth middleware
func GetUserFromContext(c *gin.Context) (*model.User, bool) {
	user, exists := c.Get(contextKeyUser)
	if !exists {
		return nil, false
	}
	userModel, ok := user.(*model.User)
	return userModel, ok && userModel != nil
}

// GetRoleFromContext returns the role resolved by RequirePermission or RouteGuard
func GetRoleFromContext(c *gin.Context) (model.Role, bool) {
	role, exists := c.Get(contextKeyRole)
	if !exists {
		return "", false
	}
	r, ok := role.(model.Role)
	return r, ok
}

func extractToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.Split(header, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	if cookie, err := c.Cookie(TokenCookie); err == nil && cookie != "" {
		return cookie, true
	}
	return "", false
}
