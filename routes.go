package main

import (
	"context"
	"net/http"

	"garment-dashboard/internal/auth"
	"garment-dashboard/internal/handler"
	"garment-dashboard/internal/middleware"
	"garment-dashboard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type routerDeps struct {
	logger       *zap.Logger
	registry     *prometheus.Registry
	authService  *auth.Service
	authzService *service.AuthorizationService
	roles        middleware.RoleResolver
	guard        *service.Guard
	users        service.UserService
	products     service.ProductService
	orders       *service.OrderService
	health       func(ctx context.Context) map[string]error
}

func newRouter(d routerDeps) *gin.Engine {
	authHandler := handler.NewAuthHandler(d.authService, d.users, d.roles)
	userHandler := handler.NewUserHandler(d.users, d.authzService, d.roles)
	productHandler := handler.NewProductHandler(d.products)
	orderHandler := handler.NewOrderHandler(d.orders)
	navigationHandler := handler.NewNavigationHandler(d.guard, d.authzService, d.roles)
	dashboardHandler := handler.NewDashboardHandler(d.orders, d.products, d.users, d.guard)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(d.logger))

	// CORS for the dashboard client
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	requires := func(perm service.Permission) gin.HandlerFunc {
		return middleware.RequirePermission(d.authzService, d.roles, perm)
	}

	// Public routes
	r.POST("/api/auth/register", authHandler.Register)
	r.POST("/api/auth/login", authHandler.Login)

	r.GET("/health", func(c *gin.Context) {
		status := gin.H{"status": "healthy", "service": "garment-dashboard"}
		code := http.StatusOK
		if d.health != nil {
			for name, err := range d.health(c.Request.Context()) {
				if err != nil {
					status[name] = "unhealthy"
					status["status"] = "degraded"
					code = http.StatusServiceUnavailable
				} else {
					status[name] = "healthy"
				}
			}
		}
		c.JSON(code, status)
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{})))

	// Protected API
	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(d.authService))

	api.GET("/auth/me", authHandler.Me)

	api.GET("/users/email/:email", userHandler.GetByEmail)
	api.GET("/users", requires(service.PermUsersManage), userHandler.List)
	api.GET("/users/audit-log", requires(service.PermUsersManage), userHandler.AuditLog)
	api.PATCH("/users/:id", requires(service.PermUsersManage), userHandler.Update)

	api.GET("/products", productHandler.GetProducts)
	api.GET("/products/:id", productHandler.GetProduct)
	api.POST("/products", requires(service.PermProductsManage), productHandler.CreateProduct)
	api.PUT("/products/:id", requires(service.PermProductsManage), productHandler.UpdateProduct)

	api.POST("/orders", requires(service.PermOrdersCreate), orderHandler.CreateOrder)
	api.GET("/orders", requires(service.PermOrdersReadAll), orderHandler.ListAll)
	api.GET("/orders/pending", requires(service.PermOrdersReview), orderHandler.ListPending)
	api.GET("/orders/approved", requires(service.PermOrdersReview), orderHandler.ListApproved)
	api.GET("/orders/user/:id", orderHandler.ListByBuyer)
	api.GET("/orders/:id", orderHandler.GetOrder)
	api.GET("/orders/:id/tracking", orderHandler.Tracking)
	api.PUT("/orders/:id/status", orderHandler.UpdateStatus)
	api.POST("/orders/:id/tracking", orderHandler.AddTracking)
	api.PATCH("/orders/:id/cancel", orderHandler.Cancel)

	api.GET("/navigation/menu", navigationHandler.Menu)

	// Navigation checks answer for anonymous callers too
	r.GET("/api/navigation/authorize", middleware.OptionalAuth(d.authService), navigationHandler.Authorize)

	// Guarded dashboard views
	dash := r.Group("/dashboard")
	dash.Use(middleware.OptionalAuth(d.authService), middleware.RouteGuard(d.guard))
	{
		dash.GET("", dashboardHandler.Index)
		dash.GET("/profile", dashboardHandler.Profile)
		dash.GET("/my-orders", dashboardHandler.MyOrders)
		dash.GET("/track-order", dashboardHandler.TrackOrder)
		dash.GET("/track-order/:id", dashboardHandler.TrackOrder)
		dash.GET("/add-product", dashboardHandler.AddProduct)
		dash.GET("/manage-products", dashboardHandler.ManageProducts)
		dash.GET("/pending-orders", dashboardHandler.PendingOrders)
		dash.GET("/approved-orders", dashboardHandler.ApprovedOrders)
		dash.GET("/manage-users", dashboardHandler.ManageUsers)
		dash.GET("/all-products", dashboardHandler.AllProducts)
		dash.GET("/all-orders", dashboardHandler.AllOrders)
	}

	return r
}
