package handler

import (
	"net/http"
	"strings"
	"time"

	"garment-dashboard/internal/middleware"
	"garment-dashboard/internal/model"
	"garment-dashboard/internal/service"

	"github.com/gin-gonic/gin"
)

const defaultAuditWindow = 30 * 24 * time.Hour

// UserHandler serves the user directory and its admin operations
type UserHandler struct {
	users service.UserService
	authz *service.AuthorizationService
	roles middleware.RoleResolver
}

// NewUserHandler creates a new user handler
func NewUserHandler(users service.UserService, authz *service.AuthorizationService, roles middleware.RoleResolver) *UserHandler {
	return &UserHandler{users: users, authz: authz, roles: roles}
}

// GetByEmail returns the directory entry for an email. Users may look themselves up;
// anyone else needs users:manage.
func (h *UserHandler) GetByEmail(c *gin.Context) {
	principal, exists := middleware.GetUserFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
		return
	}

	email := c.Param("email")
	if !strings.EqualFold(strings.TrimSpace(email), principal.Email) {
		role, err := h.roles.ResolveRole(c.Request.Context(), principal)
		if err != nil {
			respondError(c, err)
			return
		}
		allowed, err := h.authz.CheckPermission(role, service.PermUsersManage)
		if err != nil {
			respondError(c, err)
			return
		}
		if !allowed {
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}
	}

	user, err := h.users.GetUserByEmail(c.Request.Context(), email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// List returns users filtered by role, status and email
func (h *UserHandler) List(c *gin.Context) {
	filters := service.UserFilters{
		Role:   model.Role(c.Query("role")),
		Status: model.UserStatus(c.Query("status")),
		Email:  c.Query("email"),
	}

	users, err := h.users.ListUsers(c.Request.Context(), filters)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "total": len(users)})
}

// Update changes a user's role, status or profile
func (h *UserHandler) Update(c *gin.Context) {
	principal, exists := middleware.GetUserFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
		return
	}

	var req service.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.UpdateUser(c.Request.Context(), principal.ID, c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// AuditLog returns role changes between from and to (RFC 3339), the last 30 days by default
func (h *UserHandler) AuditLog(c *gin.Context) {
	to := time.Now()
	from := to.Add(-defaultAuditWindow)

	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from time"})
			return
		}
		from = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid to time"})
			return
		}
		to = t
	}

	changes, err := h.users.GetAuditLog(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changes": changes, "from": from, "to": to})
}
