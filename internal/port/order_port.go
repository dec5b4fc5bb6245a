package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/nikolayk812/marketplace/internal/domain"
)

type OrderRepository interface {
	GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error)

	SearchOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)

	InsertOrder(ctx context.Context, order domain.Order) (uuid.UUID, error)

	// UpdateOrderStatus is a compare-and-swap: it only applies when the
	// stored status still equals from, and reports whether it did.
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, from, to domain.OrderStatus) (bool, error)

	MarkPaid(ctx context.Context, orderID uuid.UUID, record domain.PaymentRecord) error
	MarkPaymentFailed(ctx context.Context, orderID uuid.UUID) error
}
