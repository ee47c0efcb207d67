package service

import (
	"errors"
	"fmt"

	"garment-dashboard/internal/model"
)

var (
	// ErrInvalidTransition is matched by every rejected status change
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrActorNotPermitted marks a transition refused because of who asked for it
	ErrActorNotPermitted = errors.New("actor not permitted for transition")

	// ErrQuantityOutOfRange is returned when a booking quantity is outside the product limits
	ErrQuantityOutOfRange = errors.New("quantity out of range")

	// ErrInvalidBooking is returned for an incomplete booking request
	ErrInvalidBooking = errors.New("invalid booking")

	// ErrPrincipalSuspended is returned when a suspended principal tries to mutate an order
	ErrPrincipalSuspended = errors.New("principal is suspended")

	// ErrTransitionInProgress is returned while another transition for the same order is running
	ErrTransitionInProgress = errors.New("transition already in progress for order")

	// ErrConcurrentUpdate is returned by stores when the persisted status moved underneath a transition
	ErrConcurrentUpdate = errors.New("order status changed concurrently")

	// ErrOrderStore wraps persistence failures; the caller may retry
	ErrOrderStore = errors.New("order store failure")

	ErrOrderNotFound   = errors.New("order not found")
	ErrProductNotFound = errors.New("product not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrForbidden       = errors.New("forbidden")

	// ErrInvalidCredentials is returned for a failed login
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken is returned when registering an existing email
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidUserUpdate is returned for an unknown role or status
	ErrInvalidUserUpdate = errors.New("invalid user update")
	// ErrInvalidProduct is returned for product data that could never be booked
	ErrInvalidProduct = errors.New("invalid product")
	// ErrInvalidOrderFilter is returned for an order list filter naming an unknown status
	ErrInvalidOrderFilter = errors.New("invalid order filter")
)

// TransitionError describes a refused status change. It matches ErrInvalidTransition,
// and ErrActorNotPermitted when the actor was the reason.
type TransitionError struct {
	From   model.OrderStatus
	To     model.OrderStatus
	Reason string
	actor  bool
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s: %s", e.From, e.To, e.Reason)
}

func (e *TransitionError) Unwrap() []error {
	if e.actor {
		return []error{ErrInvalidTransition, ErrActorNotPermitted}
	}
	return []error{ErrInvalidTransition}
}

func storeFailure(op string, err error) error {
	if errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrConcurrentUpdate) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrOrderStore, err)
}
