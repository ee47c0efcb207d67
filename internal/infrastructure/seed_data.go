package infrastructure

import (
	"context"
	"fmt"

	"garment-dashboard/internal/model"
	"garment-dashboard/internal/service"

	"go.uber.org/zap"
)

// SeedDataManager loads sample users and garments into an empty database
type SeedDataManager struct {
	userService    service.UserService
	productService service.ProductService
	logger         *zap.Logger
}

// NewSeedDataManager creates a new seed data manager
func NewSeedDataManager(userService service.UserService, productService service.ProductService, logger *zap.Logger) *SeedDataManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeedDataManager{
		userService:    userService,
		productService: productService,
		logger:         logger,
	}
}

// SeedAll seeds users, then products owned by the sample manager. Existing data is
// left alone.
func (s *SeedDataManager) SeedAll(ctx context.Context) error {
	managerID, err := s.setupSampleUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to setup sample users: %w", err)
	}
	if err := s.setupSampleProducts(ctx, managerID); err != nil {
		return fmt.Errorf("failed to setup sample products: %w", err)
	}
	return nil
}

func (s *SeedDataManager) setupSampleUsers(ctx context.Context) (string, error) {
	users, err := s.userService.ListUsers(ctx, service.UserFilters{})
	if err != nil {
		return "", fmt.Errorf("failed to check existing users: %w", err)
	}
	if len(users) > 0 {
		s.logger.Info("sample users already exist, skipping creation")
		for _, u := range users {
			if u.Role == model.RoleManager {
				return u.ID, nil
			}
		}
		return users[0].ID, nil
	}

	sampleUsers := []service.CreateUserRequest{
		{Email: "admin@garments.test", Password: "password123", DisplayName: "Ayesha Rahman", Role: model.RoleAdmin},
		{Email: "manager@garments.test", Password: "password123", DisplayName: "Tanvir Hasan", Role: model.RoleManager},
		{Email: "buyer@garments.test", Password: "password123", DisplayName: "Nusrat Jahan", Role: model.RoleBuyer},
		{Email: "suspended@garments.test", Password: "password123", DisplayName: "Rafiq Islam", Role: model.RoleBuyer, Status: model.UserStatusSuspended},
	}

	var managerID string
	for i := range sampleUsers {
		req := sampleUsers[i]
		user, err := s.userService.CreateUser(ctx, &req)
		if err != nil {
			s.logger.Warn("failed to create sample user", zap.String("email", req.Email), zap.Error(err))
			continue
		}
		if user.Role == model.RoleManager {
			managerID = user.ID
		}
		s.logger.Info("created sample user",
			zap.String("email", user.Email),
			zap.String("role", string(user.Role)),
			zap.String("id", user.ID))
	}
	return managerID, nil
}

func (s *SeedDataManager) setupSampleProducts(ctx context.Context, createdBy string) error {
	existing, err := s.productService.ListProducts(ctx, service.ProductFilters{Limit: 1})
	if err != nil {
		return fmt.Errorf("failed to check existing products: %w", err)
	}
	if existing.Total > 0 {
		s.logger.Info("sample products already exist, skipping creation")
		return nil
	}

	payments := []string{"Cash on Delivery", "PayFirst"}
	sampleProducts := []model.ProductRequest{
		{Title: "Classic Cotton Polo", Description: "Pique knit polo, 220 GSM", Category: "shirts", UnitPrice: 500, MinimumOrderQuantity: 3, AvailableQuantity: 10, PaymentOptions: payments},
		{Title: "Denim Work Jacket", Description: "14 oz rigid denim with corozo buttons", Category: "jackets", UnitPrice: 1850, MinimumOrderQuantity: 20, AvailableQuantity: 400, PaymentOptions: payments},
		{Title: "Slim Chino Trousers", Description: "Stretch twill, garment dyed", Category: "pants", UnitPrice: 950, MinimumOrderQuantity: 50, AvailableQuantity: 1200, PaymentOptions: payments},
		{Title: "Crew Neck Tee", Description: "Combed cotton single jersey", Category: "t-shirts", UnitPrice: 280, MinimumOrderQuantity: 100, AvailableQuantity: 5000, PaymentOptions: []string{"PayFirst"}},
		{Title: "Fleece Hoodie", Description: "Brushed back fleece, kangaroo pocket", Category: "hoodies", UnitPrice: 1250, MinimumOrderQuantity: 30, AvailableQuantity: 600, PaymentOptions: payments},
		{Title: "Linen Summer Shirt", Description: "Pure linen, relaxed fit", Category: "shirts", UnitPrice: 1100, MinimumOrderQuantity: 25, AvailableQuantity: 300, PaymentOptions: []string{"Cash on Delivery"}},
	}

	for i := range sampleProducts {
		req := sampleProducts[i]
		product, err := s.productService.CreateProduct(ctx, &req, createdBy)
		if err != nil {
			s.logger.Warn("failed to create sample product", zap.String("title", req.Title), zap.Error(err))
			continue
		}
		s.logger.Info("created sample product", zap.String("title", product.Title), zap.String("id", product.ID))
	}
	return nil
}
