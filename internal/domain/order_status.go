package domain

import "errors"

type OrderStatus string

// remember to add new statuses to the validOrderStatuses map
const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusAccepted  OrderStatus = "accepted"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var validOrderStatuses = map[OrderStatus]struct{}{
	OrderStatusPending:   {},
	OrderStatusAccepted:  {},
	OrderStatusPreparing: {},
	OrderStatusReady:     {},
	OrderStatusCompleted: {},
	OrderStatusCancelled: {},
}

// rank orders the vendor progression pending → accepted → preparing →
// ready → completed. Cancelled is outside the progression.
var statusRank = map[OrderStatus]int{
	OrderStatusPending:   0,
	OrderStatusAccepted:  1,
	OrderStatusPreparing: 2,
	OrderStatusReady:     3,
	OrderStatusCompleted: 4,
}

func ToOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if _, ok := validOrderStatuses[status]; ok {
		return status, nil
	}

	return "", errors.New("invalid order status")
}

func OrderStatuses() []OrderStatus {
	result := make([]OrderStatus, 0, len(validOrderStatuses))
	for status := range validOrderStatuses {
		result = append(result, status)
	}
	return result
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// Cancellable reports whether an order in this status may still be
// cancelled by its customer or vendor.
func (s OrderStatus) Cancellable() bool {
	return s == OrderStatusPending || s == OrderStatusAccepted
}

// ValidateAdvance checks a vendor-driven move from the current status to
// next. Moves must go forward along the progression; an order cannot jump
// from pending straight to completed without being accepted first.
func (s OrderStatus) ValidateAdvance(next OrderStatus) error {
	from, ok := statusRank[s]
	if !ok {
		return ErrInvalidStatusTransition
	}

	to, ok := statusRank[next]
	if !ok {
		return ErrInvalidStatusTransition
	}

	if to <= from {
		return ErrInvalidStatusTransition
	}

	if s == OrderStatusPending && next == OrderStatusCompleted {
		return ErrMustAcceptFirst
	}

	return nil
}
