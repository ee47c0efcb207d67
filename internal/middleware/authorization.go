package middleware

import (
	"context"
	"net/http"

	"garment-dashboard/internal/model"
	"garment-dashboard/internal/service"

	"github.com/gin-gonic/gin"
)

// RoleResolver resolves the principal's current role
type RoleResolver interface {
	ResolveRole(ctx context.Context, principal *model.User) (model.Role, error)
}

// RequirePermission lets the request through only if the principal's role holds perm
func RequirePermission(authzService *service.AuthorizationService, roles RoleResolver, perm service.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, exists := GetUserFromContext(c)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
			return
		}

		role, err := roles.ResolveRole(c.Request.Context(), user)
		if err != nil {
			// The client went away before the role was known.
			c.Abort()
			return
		}

		allowed, err := authzService.CheckPermission(role, perm)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Authorization check failed"})
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":    "Access denied",
				"resource": perm.Resource,
				"action":   perm.Action,
			})
			return
		}

		c.Set(contextKeyRole, role)
		c.Next()
	}
}

// RouteGuard protects dashboard views. Anonymous requests are sent to the login page
// with the requested path, principals without the required role to their role home,
// and nothing at all is written if the role could not be resolved.
func RouteGuard(guard *service.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _ := GetUserFromContext(c)
		decision := guard.Authorize(c.Request.Context(), user, c.Request.URL.Path)

		switch decision.Kind {
		case service.DecisionAllow:
			c.Set(contextKeyRole, decision.Role)
			c.Next()
		case service.DecisionUnauthenticated:
			c.Redirect(http.StatusSeeOther, decision.LoginURL())
			c.Abort()
		case service.DecisionRedirect:
			c.Redirect(http.StatusSeeOther, decision.Target)
			c.Abort()
		default:
			c.Abort()
		}
	}
}
