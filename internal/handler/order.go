package handler

import (
	"net/http"
	"strconv"

	"garment-dashboard/internal/middleware"
	"garment-dashboard/internal/model"
	"garment-dashboard/internal/service"

	"github.com/gin-gonic/gin"
)

// OrderHandler serves booking, the order boards and status changes
type OrderHandler struct {
	orders *service.OrderService
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// CreateOrder books an order for the caller
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}

	var req model.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), user, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// GetOrder returns one order
func (h *OrderHandler) GetOrder(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}

	order, err := h.orders.Get(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// ListByBuyer returns a buyer's orders
func (h *OrderHandler) ListByBuyer(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}

	orders, err := h.orders.ListByBuyer(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "total": len(orders)})
}

// ListPending returns the orders waiting for review
func (h *OrderHandler) ListPending(c *gin.Context) {
	orders, err := h.orders.ListPending(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "total": len(orders)})
}

// ListApproved returns the approved-orders board
func (h *OrderHandler) ListApproved(c *gin.Context) {
	orders, err := h.orders.ListApproved(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "total": len(orders)})
}

// ListAll returns one page of orders, filtered by the status and search query
// parameters
func (h *OrderHandler) ListAll(c *gin.Context) {
	resp, err := h.orders.ListAll(c.Request.Context(), orderFilters(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func orderFilters(c *gin.Context) service.OrderFilters {
	filters := service.OrderFilters{
		Status: model.OrderStatus(c.Query("status")),
		Search: c.Query("search"),
	}
	if page, err := strconv.Atoi(c.Query("page")); err == nil && page > 0 {
		filters.Page = page
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 {
		filters.Limit = limit
	}
	return filters
}

// UpdateStatus requests a status change
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	h.transition(c)
}

// AddTracking records a production or shipping update. It is a status change
// carrying a location.
func (h *OrderHandler) AddTracking(c *gin.Context) {
	h.transition(c)
}

// Cancel cancels the caller's pending order
func (h *OrderHandler) Cancel(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}

	order, err := h.orders.Cancel(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// Tracking returns the progress projection; view is "deep" (default) or "buyer"
func (h *OrderHandler) Tracking(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}

	view := service.TrackingView(c.DefaultQuery("view", string(service.TrackingViewDeep)))
	projection, err := h.orders.Tracking(c.Request.Context(), user, c.Param("id"), view)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, projection)
}

func (h *OrderHandler) transition(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}

	var req model.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orders.Transition(c.Request.Context(), user, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func principal(c *gin.Context) (*model.User, bool) {
	user, exists := middleware.GetUserFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
		return nil, false
	}
	return user, true
}
