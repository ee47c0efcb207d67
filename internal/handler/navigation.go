package handler

import (
	"net/http"

	"garment-dashboard/internal/middleware"
	"garment-dashboard/internal/model"
	"garment-dashboard/internal/service"

	"github.com/gin-gonic/gin"
)

// NavigationHandler lets the client ask the guard before navigating
type NavigationHandler struct {
	guard *service.Guard
	authz *service.AuthorizationService
	roles middleware.RoleResolver
}

// NewNavigationHandler creates a new navigation handler
func NewNavigationHandler(guard *service.Guard, authz *service.AuthorizationService, roles middleware.RoleResolver) *NavigationHandler {
	return &NavigationHandler{guard: guard, authz: authz, roles: roles}
}

// Authorize returns the guard decision for ?path=
func (h *NavigationHandler) Authorize(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}

	user, _ := middleware.GetUserFromContext(c)
	decision := h.guard.Authorize(c.Request.Context(), user, path)
	if decision.Kind == service.DecisionPending {
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, decision)
}

// MenuItem is one dashboard link
type MenuItem struct {
	Path  string       `json:"path"`
	Roles []model.Role `json:"roles"`
}

// Menu lists the dashboard routes the caller's role may open
func (h *NavigationHandler) Menu(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}

	role, err := h.roles.ResolveRole(c.Request.Context(), user)
	if err != nil {
		respondError(c, err)
		return
	}

	items := []MenuItem{}
	for _, rule := range service.DashboardRoutes() {
		allowed, err := h.authz.CanView(role, rule.Pattern)
		if err != nil {
			respondError(c, err)
			return
		}
		if allowed {
			items = append(items, MenuItem{Path: rule.Pattern, Roles: rule.Roles})
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"role":  role,
		"home":  h.guard.Home(role),
		"items": items,
	})
}
