package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"garment-dashboard/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductService is the catalog
type ProductService interface {
	CreateProduct(ctx context.Context, req *model.ProductRequest, createdBy string) (*model.Product, error)
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	ListProducts(ctx context.Context, filters ProductFilters) (*model.ProductListResponse, error)
	UpdateProduct(ctx context.Context, id string, req *model.ProductRequest) (*model.Product, error)
}

// ProductFilters restricts ListProducts
type ProductFilters struct {
	Category  string
	CreatedBy string
	Page      int // 1-based
	Limit     int
}

type productServiceImpl struct {
	db *gorm.DB
}

// NewProductService creates the gorm-backed catalog
func NewProductService(db *gorm.DB) ProductService {
	return &productServiceImpl{db: db}
}

// CreateProduct adds a product to the catalog
func (s *productServiceImpl) CreateProduct(ctx context.Context, req *model.ProductRequest, createdBy string) (*model.Product, error) {
	if err := validateProduct(req); err != nil {
		return nil, err
	}

	now := time.Now()
	product := &model.Product{
		ID:                   uuid.New().String(),
		Title:                req.Title,
		Description:          req.Description,
		Category:             req.Category,
		UnitPrice:            req.UnitPrice,
		MinimumOrderQuantity: req.MinimumOrderQuantity,
		AvailableQuantity:    req.AvailableQuantity,
		PaymentOptions:       req.PaymentOptions,
		CreatedBy:            createdBy,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return product, nil
}

// GetProduct returns a product by id
func (s *productServiceImpl) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	var product model.Product
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

// ListProducts returns one page of products, newest first
func (s *productServiceImpl) ListProducts(ctx context.Context, filters ProductFilters) (*model.ProductListResponse, error) {
	page := filters.Page
	if page < 1 {
		page = 1
	}
	limit := filters.Limit
	if limit < 1 {
		limit = 20
	}

	query := s.db.WithContext(ctx).Model(&model.Product{})
	if filters.Category != "" {
		query = query.Where("category = ?", filters.Category)
	}
	if filters.CreatedBy != "" {
		query = query.Where("created_by = ?", filters.CreatedBy)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	var products []model.Product
	if err := query.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return &model.ProductListResponse{Products: products, Total: int(total)}, nil
}

// UpdateProduct replaces the editable fields of a product. Orders already placed keep
// their booking-time snapshot.
func (s *productServiceImpl) UpdateProduct(ctx context.Context, id string, req *model.ProductRequest) (*model.Product, error) {
	if err := validateProduct(req); err != nil {
		return nil, err
	}

	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	product.Title = req.Title
	product.Description = req.Description
	product.Category = req.Category
	product.UnitPrice = req.UnitPrice
	product.MinimumOrderQuantity = req.MinimumOrderQuantity
	product.AvailableQuantity = req.AvailableQuantity
	product.PaymentOptions = req.PaymentOptions
	product.UpdatedAt = time.Now()

	if err := s.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return product, nil
}

func validateProduct(req *model.ProductRequest) error {
	if req.MinimumOrderQuantity < 1 {
		return fmt.Errorf("%w: minimum order quantity must be at least 1", ErrInvalidProduct)
	}
	if req.AvailableQuantity < 0 {
		return fmt.Errorf("%w: available quantity cannot be negative", ErrInvalidProduct)
	}
	if req.UnitPrice <= 0 {
		return fmt.Errorf("%w: unit price must be positive", ErrInvalidProduct)
	}
	return nil
}
