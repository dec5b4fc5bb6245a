package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

type DeliveryAddress struct {
	Street  string
	City    string
	State   string
	Pincode string
}

// PaymentRecord holds the gateway confirmation applied to an order. It is
// written once, by a successful verification.
type PaymentRecord struct {
	GatewayOrderID   string
	GatewayPaymentID string
	GatewaySignature string

	PaidAt *time.Time
}

// Order is created per (customer, shop) pair at checkout. Items freeze the
// product name and unit price at order time, so later catalog changes do not
// affect historical orders. Orders are never deleted, cancellation is a
// terminal status.
type Order struct {
	ID         uuid.UUID
	CustomerID string
	ShopID     uuid.UUID

	Items       []OrderItem
	TotalAmount Money

	Status        OrderStatus
	PaymentStatus PaymentStatus
	Payment       PaymentRecord

	DeliveryAddress DeliveryAddress

	CreatedAt time.Time
	UpdatedAt time.Time
}

type OrderItem struct {
	ProductID uuid.UUID
	Name      string
	UnitPrice Money
	Quantity  int32
}

// ComputeTotal sums unit price times quantity over all items.
func (o Order) ComputeTotal() (Money, error) {
	var m Money

	if len(o.Items) == 0 {
		return m, fmt.Errorf("no items in order")
	}

	total := o.Items[0].UnitPrice.Mul(o.Items[0].Quantity)
	for _, item := range o.Items[1:] {
		sum, err := total.Add(item.UnitPrice.Mul(item.Quantity))
		if err != nil {
			return m, fmt.Errorf("total.Add: %w", err)
		}
		total = sum
	}

	return total, nil
}
