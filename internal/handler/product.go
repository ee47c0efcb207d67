package handler

import (
	"net/http"
	"strconv"

	"garment-dashboard/internal/middleware"
	"garment-dashboard/internal/model"
	"garment-dashboard/internal/service"

	"github.com/gin-gonic/gin"
)

// ProductHandler serves the catalog
type ProductHandler struct {
	productService service.ProductService
}

// NewProductHandler creates a new product handler
func NewProductHandler(productService service.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// GetProducts lists products, optionally by category, paged with page and limit
func (h *ProductHandler) GetProducts(c *gin.Context) {
	c.JSON(h.list(c, service.ProductFilters{Category: c.Query("category")}))
}

// GetProduct returns one product
func (h *ProductHandler) GetProduct(c *gin.Context) {
	product, err := h.productService.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// CreateProduct adds a product owned by the caller
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	user, exists := middleware.GetUserFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
		return
	}

	var req model.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), &req, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

// UpdateProduct replaces a product's editable fields
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	var req model.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) list(c *gin.Context, filters service.ProductFilters) (int, any) {
	if page, err := strconv.Atoi(c.Query("page")); err == nil && page > 0 {
		filters.Page = page
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 {
		filters.Limit = limit
	}

	resp, err := h.productService.ListProducts(c.Request.Context(), filters)
	if err != nil {
		return http.StatusInternalServerError, gin.H{"error": "Failed to get products"}
	}
	return http.StatusOK, resp
}
