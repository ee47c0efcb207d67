package service

import (
	"fmt"
	"strings"

	"garment-dashboard/internal/model"
)

// Page sizes of the all-orders list
const (
	DefaultOrderPageLimit = 10
	MaxOrderPageLimit     = 100
)

// OrderFilters restricts ListAll. Search matches the order id or the product title,
// ignoring case.
type OrderFilters struct {
	Status model.OrderStatus
	Search string
	Page   int // 1-based
	Limit  int
}

// Normalize fills in the first page and the default limit and validates Status
func (f OrderFilters) Normalize() (OrderFilters, error) {
	if f.Status != "" && !KnownStatus(f.Status) {
		return f, fmt.Errorf("%w: unknown status %q", ErrInvalidOrderFilter, f.Status)
	}
	f.Search = strings.TrimSpace(f.Search)
	if f.Page < 1 {
		f.Page = 1
	}
	switch {
	case f.Limit < 1:
		f.Limit = DefaultOrderPageLimit
	case f.Limit > MaxOrderPageLimit:
		f.Limit = MaxOrderPageLimit
	}
	return f, nil
}

// Offset is the number of matching orders before the page
func (f OrderFilters) Offset() int {
	return (f.Page - 1) * f.Limit
}

// Matches reports whether order passes the status and search filters
func (f OrderFilters) Matches(order *model.Order) bool {
	if f.Status != "" && order.Status != f.Status {
		return false
	}
	if f.Search == "" {
		return true
	}
	return strings.Contains(SearchKey(order), strings.ToLower(f.Search))
}

// Window returns the bounds of the page within total matching orders
func (f OrderFilters) Window(total int) (start, end int) {
	start = min(f.Offset(), total)
	end = min(start+f.Limit, total)
	return start, end
}

// SearchKey is the lowercase text a search is matched against
func SearchKey(order *model.Order) string {
	return strings.ToLower(order.ID) + "\n" + strings.ToLower(order.Product.Title)
}
