package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"garment-dashboard/internal/model"
)

// memOrderStore keeps orders in memory with the same compare-and-set rule as the
// real stores.
type memOrderStore struct {
	mu      sync.Mutex
	orders  map[string]*model.Order
	getHook func()
	saveErr error
	getErr  error
}

func newMemOrderStore() *memOrderStore {
	return &memOrderStore{orders: map[string]*model.Order{}}
}

func (s *memOrderStore) CreateOrder(_ context.Context, order *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[order.ID]; ok {
		return fmt.Errorf("duplicate order %s", order.ID)
	}
	s.orders[order.ID] = order.Clone()
	return nil
}

func (s *memOrderStore) GetOrder(_ context.Context, id string) (*model.Order, error) {
	if s.getHook != nil {
		s.getHook()
	}
	if s.getErr != nil {
		return nil, s.getErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	return o.Clone(), nil
}

func (s *memOrderStore) ListOrdersByBuyer(_ context.Context, buyerID string) ([]model.Order, error) {
	return s.filter(func(o *model.Order) bool { return o.BuyerID == buyerID }), nil
}

func (s *memOrderStore) ListOrdersByStatus(_ context.Context, statuses ...model.OrderStatus) ([]model.Order, error) {
	want := map[model.OrderStatus]bool{}
	for _, st := range statuses {
		want[st] = true
	}
	return s.filter(func(o *model.Order) bool { return want[o.Status] }), nil
}

func (s *memOrderStore) ListOrders(_ context.Context, filters OrderFilters) ([]model.Order, int, error) {
	orders := s.filter(func(o *model.Order) bool { return filters.Matches(o) })
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	start, end := filters.Window(len(orders))
	return orders[start:end], len(orders), nil
}

func (s *memOrderStore) SaveTransition(_ context.Context, order *model.Order, expected model.OrderStatus, event model.OrderEvent) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.orders[order.ID]
	if !ok {
		return ErrOrderNotFound
	}
	if stored.Status != expected {
		return ErrConcurrentUpdate
	}
	next := stored.Clone()
	next.History = append(next.History, event)
	next.Status = event.Status
	next.UpdatedAt = order.UpdatedAt
	s.orders[order.ID] = next
	return nil
}

func (s *memOrderStore) put(o *model.Order) {
	s.mu.Lock()
	s.orders[o.ID] = o.Clone()
	s.mu.Unlock()
}

func (s *memOrderStore) stored(id string) *model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[id].Clone()
}

func (s *memOrderStore) filter(keep func(*model.Order) bool) []model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Order{}
	for _, o := range s.orders {
		if keep(o) {
			out = append(out, *o.Clone())
		}
	}
	return out
}

type memKV struct {
	mu     sync.Mutex
	data   map[string]string
	getErr error
}

func newMemKV() *memKV {
	return &memKV{data: map[string]string{}}
}

func (m *memKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memKV) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// countingDirectory answers from a fixed table and counts lookups. When gate is set
// every lookup waits for it to close.
type countingDirectory struct {
	entries map[string]*DirectoryEntry
	err     error
	gate    chan struct{}
	calls   atomic.Int32
}

func (d *countingDirectory) LookupByEmail(_ context.Context, email string) (*DirectoryEntry, error) {
	d.calls.Add(1)
	if d.gate != nil {
		<-d.gate
	}
	if d.err != nil {
		return nil, d.err
	}
	if e, ok := d.entries[email]; ok {
		return e, nil
	}
	return nil, errors.New("no such user")
}

// stubRoles resolves roles and directory statuses from tables keyed by principal
// id. Principals missing from statuses are active.
type stubRoles struct {
	roles    map[string]model.Role
	statuses map[string]model.UserStatus
	err      error
}

func (s stubRoles) Resolve(ctx context.Context, principal *model.User) (RoleCacheEntry, error) {
	role, err := s.ResolveRole(ctx, principal)
	if err != nil {
		return RoleCacheEntry{}, err
	}
	status, ok := s.statuses[principal.ID]
	if !ok {
		status = model.UserStatusActive
	}
	return RoleCacheEntry{Role: role, Status: status}, nil
}

func (s stubRoles) ResolveRole(ctx context.Context, principal *model.User) (model.Role, error) {
	if s.err != nil {
		return "", s.err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if r, ok := s.roles[principal.ID]; ok {
		return r, nil
	}
	return model.RoleBuyer, nil
}

type fakeProducts map[string]*model.Product

func (f fakeProducts) GetProduct(_ context.Context, id string) (*model.Product, error) {
	if p, ok := f[id]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []OrderEventMessage
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, msg OrderEventMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func (p *recordingPublisher) published() []OrderEventMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]OrderEventMessage(nil), p.msgs...)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func samplePolo() *model.Product {
	return &model.Product{
		ID:                   "prod-polo",
		Title:                "Classic Cotton Polo",
		UnitPrice:            500,
		MinimumOrderQuantity: 3,
		AvailableQuantity:    10,
		PaymentOptions:       []string{"Cash on Delivery", "PayFirst"},
	}
}
