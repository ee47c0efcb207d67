package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"garment-dashboard/internal/model"
	"garment-dashboard/internal/service"

	"gorm.io/gorm"
)

// GormOrderStore keeps orders in PostgreSQL with their history in order_events
type GormOrderStore struct {
	db *gorm.DB
}

// NewGormOrderStore creates the relational order store
func NewGormOrderStore(db *gorm.DB) *GormOrderStore {
	return &GormOrderStore{db: db}
}

// CreateOrder inserts the order together with its initial history
func (s *GormOrderStore) CreateOrder(ctx context.Context, order *model.Order) error {
	if err := s.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// GetOrder loads an order with its history, oldest event first
func (s *GormOrderStore) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	var order model.Order
	if err := s.withHistory(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", service.ErrOrderNotFound, id)
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

// ListOrdersByBuyer returns a buyer's orders, newest first
func (s *GormOrderStore) ListOrdersByBuyer(ctx context.Context, buyerID string) ([]model.Order, error) {
	var orders []model.Order
	if err := s.withHistory(ctx).Where("buyer_id = ?", buyerID).Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders by buyer: %w", err)
	}
	return orders, nil
}

// ListOrdersByStatus returns orders in any of statuses, newest first
func (s *GormOrderStore) ListOrdersByStatus(ctx context.Context, statuses ...model.OrderStatus) ([]model.Order, error) {
	if len(statuses) == 0 {
		return []model.Order{}, nil
	}
	var orders []model.Order
	if err := s.withHistory(ctx).Where("status IN ?", statuses).Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders by status: %w", err)
	}
	return orders, nil
}

// ListOrders returns one page of the orders matching filters, newest first, and
// the number of matching orders
func (s *GormOrderStore) ListOrders(ctx context.Context, filters service.OrderFilters) ([]model.Order, int, error) {
	scope := orderFilterScope(filters)

	var total int64
	if err := s.db.WithContext(ctx).Model(&model.Order{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	orders := []model.Order{}
	err := s.withHistory(ctx).Scopes(scope).
		Order("created_at DESC").
		Offset(filters.Offset()).
		Limit(filters.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, int(total), nil
}

func orderFilterScope(filters service.OrderFilters) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filters.Status != "" {
			db = db.Where("status = ?", filters.Status)
		}
		if filters.Search != "" {
			pattern := "%" + likeEscaper.Replace(strings.ToLower(filters.Search)) + "%"
			db = db.Where("LOWER(id) LIKE ? OR LOWER(product_title) LIKE ?", pattern, pattern)
		}
		return db
	}
}

// likeEscaper escapes LIKE wildcards; backslash is the PostgreSQL default escape.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// SaveTransition updates the status only if it still equals expected and appends
// event in the same transaction.
func (s *GormOrderStore) SaveTransition(ctx context.Context, order *model.Order, expected model.OrderStatus, event model.OrderEvent) error {
	if event.Status != order.Status {
		return fmt.Errorf("event status %s does not match order status %s", event.Status, order.Status)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Order{}).
			Where("id = ? AND status = ?", order.ID, expected).
			Updates(map[string]interface{}{
				"status":     order.Status,
				"updated_at": order.UpdatedAt,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to update order status: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&model.Order{}).Where("id = ?", order.ID).Count(&count).Error; err != nil {
				return fmt.Errorf("failed to check order: %w", err)
			}
			if count == 0 {
				return fmt.Errorf("%w: %s", service.ErrOrderNotFound, order.ID)
			}
			return fmt.Errorf("%w: expected %s", service.ErrConcurrentUpdate, expected)
		}

		event.ID = 0
		event.OrderID = order.ID
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("failed to append order event: %w", err)
		}
		return nil
	})
}

func (s *GormOrderStore) withHistory(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Preload("History", func(db *gorm.DB) *gorm.DB {
		return db.Order("occurred_at ASC, id ASC")
	})
}
