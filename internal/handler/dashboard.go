package handler

import (
	"net/http"

	"garment-dashboard/internal/middleware"
	"garment-dashboard/internal/model"
	"garment-dashboard/internal/service"

	"github.com/gin-gonic/gin"
)

// DefaultPaymentOptions are offered on the add-product form
var DefaultPaymentOptions = []string{"Cash on Delivery", "PayFirst"}

// OrderCard is an order with its progress, as listed on the boards
type OrderCard struct {
	Order    model.Order        `json:"order"`
	Tracking service.Projection `json:"tracking"`
}

// DashboardHandler renders the view models of the guarded dashboard routes. The
// route guard has already admitted the caller.
type DashboardHandler struct {
	orders   *service.OrderService
	products service.ProductService
	users    service.UserService
	guard    *service.Guard
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(orders *service.OrderService, products service.ProductService, users service.UserService, guard *service.Guard) *DashboardHandler {
	return &DashboardHandler{orders: orders, products: products, users: users, guard: guard}
}

// Index is the dashboard landing view
func (h *DashboardHandler) Index(c *gin.Context) {
	role, _ := middleware.GetRoleFromContext(c)
	c.JSON(http.StatusOK, gin.H{"role": role, "home": h.guard.Home(role)})
}

// Profile shows the signed-in user
func (h *DashboardHandler) Profile(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}
	profile, err := h.users.GetUserByID(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	profile.Role, _ = middleware.GetRoleFromContext(c)
	c.JSON(http.StatusOK, gin.H{"user": profile})
}

// MyOrders lists the caller's orders with the condensed progress bar
func (h *DashboardHandler) MyOrders(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}
	orders, err := h.orders.ListByBuyer(c.Request.Context(), user, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": cards(orders, service.TrackingViewBuyer)})
}

// TrackOrder shows the production-level timeline of one order, taken from the path
// or the id query parameter. Without an id it lists the caller's orders to pick from.
func (h *DashboardHandler) TrackOrder(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if id == "" {
		id = c.Query("id")
	}
	if id == "" {
		orders, err := h.orders.ListByBuyer(c.Request.Context(), user, user.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": cards(orders, service.TrackingViewDeep)})
		return
	}
	projection, err := h.orders.Tracking(c.Request.Context(), user, id, service.TrackingViewDeep)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, projection)
}

// AddProduct returns the defaults of the add-product form
func (h *DashboardHandler) AddProduct(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"defaults": gin.H{
			"minimum_order_quantity": 1,
			"payment_options":        DefaultPaymentOptions,
		},
	})
}

// ManageProducts lists the products the caller manages; admins see all of them
func (h *DashboardHandler) ManageProducts(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}
	filters := service.ProductFilters{CreatedBy: user.ID, Limit: 100}
	if role, _ := middleware.GetRoleFromContext(c); role == model.RoleAdmin {
		filters.CreatedBy = ""
	}
	h.productList(c, filters)
}

// PendingOrders is the review board
func (h *DashboardHandler) PendingOrders(c *gin.Context) {
	orders, err := h.orders.ListPending(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": cards(orders, service.TrackingViewDeep)})
}

// ApprovedOrders is the production and shipping board
func (h *DashboardHandler) ApprovedOrders(c *gin.Context) {
	orders, err := h.orders.ListApproved(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orders":   cards(orders, service.TrackingViewDeep),
		"location": service.FactoryLocation,
	})
}

// ManageUsers lists every user
func (h *DashboardHandler) ManageUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context(), service.UserFilters{
		Role:   model.Role(c.Query("role")),
		Status: model.UserStatus(c.Query("status")),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "total": len(users)})
}

// AllProducts lists the whole catalog
func (h *DashboardHandler) AllProducts(c *gin.Context) {
	h.productList(c, service.ProductFilters{Limit: 100})
}

// AllOrders lists one page of every order, with the same filters as the API
func (h *DashboardHandler) AllOrders(c *gin.Context) {
	resp, err := h.orders.ListAll(c.Request.Context(), orderFilters(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orders": cards(resp.Orders, service.TrackingViewDeep),
		"total":  resp.Total,
		"page":   resp.Page,
		"limit":  resp.Limit,
	})
}

func (h *DashboardHandler) productList(c *gin.Context, filters service.ProductFilters) {
	resp, err := h.products.ListProducts(c.Request.Context(), filters)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func cards(orders []model.Order, view service.TrackingView) []OrderCard {
	out := make([]OrderCard, 0, len(orders))
	for i := range orders {
		out = append(out, OrderCard{Order: orders[i], Tracking: service.Project(&orders[i], view)})
	}
	return out
}
