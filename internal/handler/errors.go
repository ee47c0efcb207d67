package handler

import (
	"context"
	"errors"
	"net/http"

	"garment-dashboard/internal/auth"
	"garment-dashboard/internal/service"

	"github.com/gin-gonic/gin"
)

// respondError maps a service error onto the HTTP response. Nothing is written when
// the request context ended.
func respondError(c *gin.Context, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		c.Abort()
		return
	}

	var te *service.TransitionError
	if errors.As(err, &te) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":               "Invalid transition",
			"current":             te.From,
			"requested":           te.To,
			"reason":              te.Reason,
			"actor_not_permitted": errors.Is(err, service.ErrActorNotPermitted),
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrOrderStore):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Order store unavailable", "retryable": true})
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrPrincipalSuspended),
		errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrTransitionInProgress),
		errors.Is(err, service.ErrConcurrentUpdate),
		errors.Is(err, service.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrQuantityOutOfRange),
		errors.Is(err, service.ErrInvalidBooking),
		errors.Is(err, service.ErrInvalidProduct),
		errors.Is(err, service.ErrInvalidOrderFilter),
		errors.Is(err, service.ErrInvalidUserUpdate),
		errors.Is(err, auth.ErrRoleNotSelfAssignable):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
