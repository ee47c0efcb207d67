package service

import (
	"context"
	"sync"
	"time"

	"garment-dashboard/internal/model"
	"garment-dashboard/internal/telemetry"

	"go.uber.org/zap"
)

// Order event types published on every successful booking and status change
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderStore persists orders and their history. ListOrders receives normalized
// filters and returns one page, newest first, with the number of matching orders.
// SaveTransition must fail with ErrConcurrentUpdate when the stored status is no
// longer expected, and with ErrOrderNotFound for an unknown order.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *model.Order) error
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	ListOrdersByBuyer(ctx context.Context, buyerID string) ([]model.Order, error)
	ListOrdersByStatus(ctx context.Context, statuses ...model.OrderStatus) ([]model.Order, error)
	ListOrders(ctx context.Context, filters OrderFilters) ([]model.Order, int, error)
	SaveTransition(ctx context.Context, order *model.Order, expected model.OrderStatus, event model.OrderEvent) error
}

// OrderEventMessage is the payload published for order events
type OrderEventMessage struct {
	Type       string            `json:"type"`
	OrderID    string            `json:"order_id"`
	BuyerID    string            `json:"buyer_id"`
	From       model.OrderStatus `json:"from,omitempty"`
	To         model.OrderStatus `json:"to"`
	ActorID    string            `json:"actor_id"`
	Notes      string            `json:"notes,omitempty"`
	Location   string            `json:"location,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// EventPublisher delivers order events to downstream consumers
type EventPublisher interface {
	Publish(ctx context.Context, msg OrderEventMessage) error
}

// principalResolver is the part of RoleResolver the order service uses. The
// account status it returns comes from the directory, not the token.
type principalResolver interface {
	Resolve(ctx context.Context, principal *model.User) (RoleCacheEntry, error)
}

type productReader interface {
	GetProduct(ctx context.Context, id string) (*model.Product, error)
}

// OrderService books orders and drives them through the lifecycle
type OrderService struct {
	store    OrderStore
	products productReader
	roles    principalResolver
	authz    *AuthorizationService
	engine   *Engine
	events   EventPublisher
	logger   *zap.Logger
	metrics  *telemetry.Metrics

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewOrderService wires the order service. events may be nil.
func NewOrderService(store OrderStore, products productReader, roles principalResolver, authz *AuthorizationService,
	engine *Engine, events EventPublisher, logger *zap.Logger, metrics *telemetry.Metrics) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if engine == nil {
		engine = NewEngine()
	}
	return &OrderService{
		store:    store,
		products: products,
		roles:    roles,
		authz:    authz,
		engine:   engine,
		events:   events,
		logger:   logger,
		metrics:  metrics,
		inFlight: make(map[string]struct{}),
	}
}

// CreateOrder books a new pending order for the principal
func (s *OrderService) CreateOrder(ctx context.Context, principal *model.User, req model.CreateOrderRequest) (*model.Order, error) {
	if _, err := s.resolveActive(ctx, principal); err != nil {
		return nil, err
	}

	product, err := s.products.GetProduct(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	order, err := s.engine.Book(Actor{ID: principal.ID}, product, req)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, storeFailure("create order", err)
	}

	s.logger.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("buyer_id", order.BuyerID),
		zap.String("product_id", order.ProductID),
		zap.Int("quantity", order.Quantity))

	s.publish(ctx, OrderEventMessage{
		Type:       EventOrderCreated,
		OrderID:    order.ID,
		BuyerID:    order.BuyerID,
		To:         order.Status,
		ActorID:    principal.ID,
		OccurredAt: order.CreatedAt,
	})
	return order, nil
}

// Transition moves an order to the requested status on behalf of the principal.
// Only one transition per order runs at a time; a concurrent request fails with
// ErrTransitionInProgress.
func (s *OrderService) Transition(ctx context.Context, principal *model.User, orderID string, req model.TransitionRequest) (*model.Order, error) {
	resolved, err := s.resolveActive(ctx, principal)
	if err != nil {
		return nil, err
	}

	if !s.acquire(orderID) {
		s.metrics.Transition(string(req.Status), "in_progress")
		return nil, ErrTransitionInProgress
	}
	defer s.release(orderID)

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, storeFailure("load order", err)
	}

	next, err := s.engine.ApplyTransition(order, req.Status, Actor{ID: principal.ID, Role: resolved.Role}, req.Notes, req.Location)
	if err != nil {
		s.metrics.Transition(string(req.Status), "rejected")
		s.logger.Info("transition refused",
			zap.String("order_id", orderID),
			zap.String("actor_id", principal.ID),
			zap.Error(err))
		return nil, err
	}
	if next == order {
		s.metrics.Transition(string(req.Status), "noop")
		return order, nil
	}

	event := *next.LastEvent()
	if err := s.store.SaveTransition(ctx, next, order.Status, event); err != nil {
		s.metrics.Transition(string(req.Status), "store_error")
		s.logger.Error("failed to save transition",
			zap.String("order_id", orderID),
			zap.String("from", string(order.Status)),
			zap.String("to", string(next.Status)),
			zap.Error(err))
		return nil, storeFailure("save transition", err)
	}
	s.metrics.Transition(string(next.Status), "applied")

	s.logger.Info("order status changed",
		zap.String("order_id", next.ID),
		zap.String("from", string(order.Status)),
		zap.String("to", string(next.Status)),
		zap.String("actor_id", principal.ID))

	s.publish(ctx, OrderEventMessage{
		Type:       EventOrderStatusChanged,
		OrderID:    next.ID,
		BuyerID:    next.BuyerID,
		From:       order.Status,
		To:         next.Status,
		ActorID:    principal.ID,
		Notes:      event.Notes,
		Location:   event.Location,
		OccurredAt: event.OccurredAt,
	})
	return next, nil
}

// Cancel cancels a pending order on behalf of its buyer
func (s *OrderService) Cancel(ctx context.Context, principal *model.User, orderID string) (*model.Order, error) {
	return s.Transition(ctx, principal, orderID, model.TransitionRequest{
		Status: model.OrderStatusCancelled,
		Notes:  "Cancelled by buyer",
	})
}

// Get returns an order the principal may read
func (s *OrderService) Get(ctx context.Context, principal *model.User, orderID string) (*model.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, storeFailure("get order", err)
	}
	if principal != nil && order.BuyerID == principal.ID {
		return order, nil
	}
	if err := s.requireReadAll(ctx, principal); err != nil {
		return nil, err
	}
	return order, nil
}

// ListByBuyer returns the orders of buyerID, newest first
func (s *OrderService) ListByBuyer(ctx context.Context, principal *model.User, buyerID string) ([]model.Order, error) {
	if principal == nil || principal.ID != buyerID {
		if err := s.requireReadAll(ctx, principal); err != nil {
			return nil, err
		}
	}
	orders, err := s.store.ListOrdersByBuyer(ctx, buyerID)
	if err != nil {
		return nil, storeFailure("list buyer orders", err)
	}
	return orders, nil
}

// ListPending returns the orders waiting for review
func (s *OrderService) ListPending(ctx context.Context) ([]model.Order, error) {
	orders, err := s.store.ListOrdersByStatus(ctx, model.OrderStatusPending)
	if err != nil {
		return nil, storeFailure("list pending orders", err)
	}
	return orders, nil
}

// ListApproved returns approved orders and those further along in production or shipping
func (s *OrderService) ListApproved(ctx context.Context) ([]model.Order, error) {
	orders, err := s.store.ListOrdersByStatus(ctx, ApprovedBoardStatuses()...)
	if err != nil {
		return nil, storeFailure("list approved orders", err)
	}
	return orders, nil
}

// ListAll returns one page of the orders matching filters, newest first
func (s *OrderService) ListAll(ctx context.Context, filters OrderFilters) (*model.OrderListResponse, error) {
	filters, err := filters.Normalize()
	if err != nil {
		return nil, err
	}
	orders, total, err := s.store.ListOrders(ctx, filters)
	if err != nil {
		return nil, storeFailure("list orders", err)
	}
	return &model.OrderListResponse{Orders: orders, Total: total, Page: filters.Page, Limit: filters.Limit}, nil
}

// Tracking projects a readable order onto the step list of view
func (s *OrderService) Tracking(ctx context.Context, principal *model.User, orderID string, view TrackingView) (*Projection, error) {
	order, err := s.Get(ctx, principal, orderID)
	if err != nil {
		return nil, err
	}
	p := Project(order, view)
	return &p, nil
}

func (s *OrderService) requireReadAll(ctx context.Context, principal *model.User) error {
	if principal == nil {
		return ErrForbidden
	}
	resolved, err := s.roles.Resolve(ctx, principal)
	if err != nil {
		return err
	}
	allowed, err := s.authz.CheckPermission(resolved.Role, PermOrdersReadAll)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrForbidden
	}
	return nil
}

// resolveActive refuses principals suspended either in their token or in the
// directory. A token issued before the suspension stays valid until it expires.
func (s *OrderService) resolveActive(ctx context.Context, principal *model.User) (RoleCacheEntry, error) {
	if principal == nil {
		return RoleCacheEntry{}, ErrForbidden
	}
	if principal.Suspended() {
		return RoleCacheEntry{}, ErrPrincipalSuspended
	}
	resolved, err := s.roles.Resolve(ctx, principal)
	if err != nil {
		return RoleCacheEntry{}, err
	}
	if resolved.Suspended() {
		s.logger.Warn("suspended principal refused",
			zap.String("principal_id", principal.ID))
		return RoleCacheEntry{}, ErrPrincipalSuspended
	}
	return resolved, nil
}

func (s *OrderService) acquire(orderID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[orderID]; busy {
		return false
	}
	s.inFlight[orderID] = struct{}{}
	return true
}

func (s *OrderService) release(orderID string) {
	s.mu.Lock()
	delete(s.inFlight, orderID)
	s.mu.Unlock()
}

func (s *OrderService) publish(ctx context.Context, msg OrderEventMessage) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, msg); err != nil {
		s.logger.Warn("failed to publish order event",
			zap.String("type", msg.Type),
			zap.String("order_id", msg.OrderID),
			zap.Error(err))
	}
}
