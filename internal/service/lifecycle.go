package service

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"garment-dashboard/internal/model"

	"github.com/google/uuid"
)

const (
	// FactoryLocation is recorded for production stage events without a location
	FactoryLocation = "Factory"

	bookingLocation = "Online Store"
	bookingNotes    = "Order placed"
)

// Actor is whoever requests a transition
type Actor struct {
	ID   string
	Role model.Role
}

// actorRule names who may move an order into a state.
type actorRule int

const (
	ruleNobody actorRule = iota
	ruleStaff
	ruleOwningBuyer
)

// stateSpec is one row of the lifecycle table. Tracking steps for both views are
// read from it.
type stateSpec struct {
	next       []model.OrderStatus
	enteredBy  actorRule
	production bool
	stopped    bool
	deepStep   TrackingStep
	buyerStep  TrackingStep
}

var lifecycle = map[model.OrderStatus]stateSpec{
	model.OrderStatusPending: {
		next:      []model.OrderStatus{model.OrderStatusApproved, model.OrderStatusRejected, model.OrderStatusCancelled},
		enteredBy: ruleNobody,
		deepStep:  StepOrdered,
		buyerStep: StepPending,
	},
	model.OrderStatusApproved: {
		next:      []model.OrderStatus{model.OrderStatusCutting},
		enteredBy: ruleStaff,
		deepStep:  StepConfirmed,
		buyerStep: StepApproved,
	},
	model.OrderStatusRejected: {
		enteredBy: ruleStaff,
		stopped:   true,
	},
	model.OrderStatusCutting: {
		next:       []model.OrderStatus{model.OrderStatusSewing},
		enteredBy:  ruleStaff,
		production: true,
		deepStep:   StepCutting,
		buyerStep:  StepApproved,
	},
	model.OrderStatusSewing: {
		next:       []model.OrderStatus{model.OrderStatusFinishing},
		enteredBy:  ruleStaff,
		production: true,
		deepStep:   StepSewing,
		buyerStep:  StepApproved,
	},
	model.OrderStatusFinishing: {
		next:       []model.OrderStatus{model.OrderStatusQC},
		enteredBy:  ruleStaff,
		production: true,
		deepStep:   StepFinishing,
		buyerStep:  StepApproved,
	},
	// QC has no step of its own; the finishing step covers quality checks.
	model.OrderStatusQC: {
		next:       []model.OrderStatus{model.OrderStatusPacked},
		enteredBy:  ruleStaff,
		production: true,
		deepStep:   StepFinishing,
		buyerStep:  StepApproved,
	},
	model.OrderStatusPacked: {
		next:       []model.OrderStatus{model.OrderStatusShipped},
		enteredBy:  ruleStaff,
		production: true,
		deepStep:   StepPacked,
		buyerStep:  StepApproved,
	},
	model.OrderStatusShipped: {
		next:      []model.OrderStatus{model.OrderStatusDelivered},
		enteredBy: ruleStaff,
		deepStep:  StepShipped,
		buyerStep: StepShipped,
	},
	model.OrderStatusDelivered: {
		enteredBy: ruleStaff,
		deepStep:  StepDelivered,
		buyerStep: StepDelivered,
	},
	model.OrderStatusCancelled: {
		enteredBy: ruleOwningBuyer,
		stopped:   true,
	},
}

// KnownStatus reports whether s is part of the lifecycle.
func KnownStatus(s model.OrderStatus) bool {
	_, ok := lifecycle[s]
	return ok
}

// Successors returns the statuses directly reachable from s.
func Successors(s model.OrderStatus) []model.OrderStatus {
	return append([]model.OrderStatus(nil), lifecycle[s].next...)
}

// CanTransition reports whether to is a direct successor of from.
func CanTransition(from, to model.OrderStatus) bool {
	return slices.Contains(lifecycle[from].next, to)
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s model.OrderStatus) bool {
	entry, ok := lifecycle[s]
	return ok && len(entry.next) == 0
}

// IsStopped reports whether s ends the order without delivery.
func IsStopped(s model.OrderStatus) bool {
	return lifecycle[s].stopped
}

// InProduction reports whether s is one of the factory stages.
func InProduction(s model.OrderStatus) bool {
	return lifecycle[s].production
}

// ApprovedBoardStatuses are the statuses listed on the approved-orders board.
func ApprovedBoardStatuses() []model.OrderStatus {
	return []model.OrderStatus{
		model.OrderStatusApproved,
		model.OrderStatusCutting,
		model.OrderStatusSewing,
		model.OrderStatusFinishing,
		model.OrderStatusQC,
		model.OrderStatusPacked,
		model.OrderStatusShipped,
		model.OrderStatusDelivered,
	}
}

// Engine applies lifecycle transitions. It performs no I/O.
type Engine struct {
	now   func() time.Time
	newID func() string
}

// NewEngine creates an engine using the wall clock
func NewEngine() *Engine {
	return &Engine{
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

// Book validates a booking against the product and builds the pending order.
func (e *Engine) Book(buyer Actor, product *model.Product, req model.CreateOrderRequest) (*model.Order, error) {
	if buyer.ID == "" {
		return nil, fmt.Errorf("%w: buyer is required", ErrInvalidBooking)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if req.Quantity < product.MinimumOrderQuantity || req.Quantity > product.AvailableQuantity {
		return nil, fmt.Errorf("%w: quantity %d must be between %d and %d",
			ErrQuantityOutOfRange, req.Quantity, product.MinimumOrderQuantity, product.AvailableQuantity)
	}
	if strings.TrimSpace(req.DeliveryAddress) == "" {
		return nil, fmt.Errorf("%w: delivery address is required", ErrInvalidBooking)
	}
	if strings.TrimSpace(req.ContactNumber) == "" {
		return nil, fmt.Errorf("%w: contact number is required", ErrInvalidBooking)
	}

	payment := req.PaymentOption
	if payment == "" && len(product.PaymentOptions) > 0 {
		payment = product.PaymentOptions[0]
	}
	if payment != "" && len(product.PaymentOptions) > 0 && !slices.Contains(product.PaymentOptions, payment) {
		return nil, fmt.Errorf("%w: payment option %q not offered", ErrInvalidBooking, payment)
	}

	id, now := e.newID(), e.now()
	return &model.Order{
		ID:        id,
		BuyerID:   buyer.ID,
		ProductID: product.ID,
		Product: model.ProductSnapshot{
			Title:     product.Title,
			UnitPrice: product.UnitPrice,
		},
		Quantity:        req.Quantity,
		UnitPrice:       product.UnitPrice,
		TotalPrice:      float64(req.Quantity) * product.UnitPrice,
		DeliveryAddress: req.DeliveryAddress,
		ContactNumber:   req.ContactNumber,
		PaymentOption:   payment,
		Notes:           req.Notes,
		Status:          model.OrderStatusPending,
		History: []model.OrderEvent{{
			OrderID:    id,
			Status:     model.OrderStatusPending,
			Location:   bookingLocation,
			Notes:      bookingNotes,
			ActorID:    buyer.ID,
			OccurredAt: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ApplyTransition moves order to the requested status on behalf of actor. The input
// order is never modified: on success a copy with one appended event is returned,
// and re-requesting the current status returns the input unchanged.
func (e *Engine) ApplyTransition(order *model.Order, to model.OrderStatus, actor Actor, notes, location string) (*model.Order, error) {
	from := order.Status
	entry, ok := lifecycle[to]
	if !ok {
		return nil, &TransitionError{From: from, To: to, Reason: "unknown status"}
	}

	switch entry.enteredBy {
	case ruleNobody:
		if to != from {
			return nil, &TransitionError{From: from, To: to, Reason: "status cannot be requested"}
		}
	case ruleStaff:
		if actor.Role != model.RoleManager && actor.Role != model.RoleAdmin {
			return nil, &TransitionError{From: from, To: to, Reason: "requires manager or admin", actor: true}
		}
	case ruleOwningBuyer:
		if actor.ID == "" || actor.ID != order.BuyerID {
			return nil, &TransitionError{From: from, To: to, Reason: "only the ordering buyer may cancel", actor: true}
		}
	}

	if to == from {
		return order, nil
	}

	if !CanTransition(from, to) {
		reason := "not a direct successor"
		if to == model.OrderStatusCancelled {
			reason = "orders can only be cancelled while pending"
		} else if IsTerminal(from) {
			reason = "order is in a terminal state"
		}
		return nil, &TransitionError{From: from, To: to, Reason: reason}
	}

	if location == "" && entry.production {
		location = FactoryLocation
	}

	now := e.now()
	next := order.Clone()
	next.History = append(next.History, model.OrderEvent{
		OrderID:    order.ID,
		Status:     to,
		Location:   location,
		Notes:      notes,
		ActorID:    actor.ID,
		OccurredAt: now,
	})
	next.Status = next.LastEvent().Status
	next.UpdatedAt = now
	return next, nil
}
