package subscription

import (
	"errors"
	"fmt"
)

var ErrStoreNotFound = errors.New("store not found")

// LimitKind names the resource a plan limit applies to.
type LimitKind string

const (
	LimitProducts LimitKind = "products"
	LimitOrders   LimitKind = "orders"
)

// LimitExceededError is returned when a creation is blocked by the plan limit.
type LimitExceededError struct {
	Kind    LimitKind
	Limit   int
	Current int64
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("%s limit reached (%d/%d)", e.Kind, e.Current, e.Limit)
}

func (e *LimitExceededError) Code() string {
	if e.Kind == LimitOrders {
		return "ORDER_LIMIT_EXCEEDED"
	}
	return "PRODUCT_LIMIT_EXCEEDED"
}
