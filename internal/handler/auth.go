package handler

import (
	"net/http"

	"garment-dashboard/internal/auth"
	"garment-dashboard/internal/middleware"
	"garment-dashboard/internal/model"
	"garment-dashboard/internal/service"

	"github.com/gin-gonic/gin"
)

// AuthHandler serves registration, login and the current principal
type AuthHandler struct {
	authService *auth.Service
	users       service.UserService
	roles       middleware.RoleResolver
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.Service, users service.UserService, roles middleware.RoleResolver) *AuthHandler {
	return &AuthHandler{authService: authService, users: users, roles: roles}
}

// Register creates an account and returns a token for it
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response)
}

// Login exchanges credentials for a token
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// Me returns the signed-in user with the currently resolved role
func (h *AuthHandler) Me(c *gin.Context) {
	principal, exists := middleware.GetUserFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
		return
	}

	role, err := h.roles.ResolveRole(c.Request.Context(), principal)
	if err != nil {
		respondError(c, err)
		return
	}

	user, err := h.users.GetUserByID(c.Request.Context(), principal.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	user.Role = role
	c.JSON(http.StatusOK, gin.H{"user": user})
}
