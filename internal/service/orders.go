package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/marketplace/internal/cache"
	"github.com/nikolayk812/marketplace/internal/domain"
	"github.com/nikolayk812/marketplace/internal/metrics"
	"github.com/nikolayk812/marketplace/internal/port"
	"github.com/nikolayk812/marketplace/internal/repository"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
)

// Actor is the authenticated identity performing an order operation.
// Vendors are matched against the owner of the order's shop.
type Actor struct {
	ID   string
	Role Role
}

type OrderService struct {
	pool        *pgxpool.Pool
	orders      port.OrderRepository
	shops       port.ShopRepository
	invalidator *cache.Invalidator
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

func NewOrders(pool *pgxpool.Pool, orders port.OrderRepository, shops port.ShopRepository,
	invalidator *cache.Invalidator, m *metrics.Metrics, logger *zap.Logger,
) *OrderService {
	if m == nil {
		m = metrics.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OrderService{
		pool:        pool,
		orders:      orders,
		shops:       shops,
		invalidator: invalidator,
		metrics:     m,
		logger:      logger,
	}
}

func (s *OrderService) GetOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("orders.GetOrder: %w", err)
	}

	if err := s.authorize(ctx, actor, order); err != nil {
		return domain.Order{}, err
	}

	return order, nil
}

// ListOrders returns the actor's own orders: a customer sees orders they
// placed, a vendor sees orders against the shops they own.
func (s *OrderService) ListOrders(ctx context.Context, actor Actor, statuses []domain.OrderStatus) ([]domain.Order, error) {
	filter := domain.OrderFilter{Statuses: statuses}

	switch actor.Role {
	case RoleCustomer:
		filter.CustomerIDs = []string{actor.ID}
	case RoleVendor:
		shops, err := s.shops.GetShopsByOwner(ctx, actor.ID)
		if err != nil {
			return nil, fmt.Errorf("shops.GetShopsByOwner: %w", err)
		}
		if len(shops) == 0 {
			return nil, nil
		}
		filter.ShopIDs = lo.Map(shops, func(shop domain.Shop, _ int) uuid.UUID { return shop.ID })
	default:
		return nil, domain.ErrAccessDenied
	}

	orders, err := s.orders.SearchOrders(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("orders.SearchOrders: %w", err)
	}

	return orders, nil
}

// UpdateStatus advances an order along the vendor progression. Only the
// vendor owning the order's shop may advance it; cancellation has its own
// entry point.
func (s *OrderService) UpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, next domain.OrderStatus) (domain.Order, error) {
	var o domain.Order

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return o, fmt.Errorf("orders.GetOrder: %w", err)
	}

	if actor.Role != RoleVendor {
		return o, domain.ErrAccessDenied
	}
	if err := s.authorize(ctx, actor, order); err != nil {
		return o, err
	}

	if next == domain.OrderStatusCancelled {
		return o, domain.ErrInvalidStatusTransition
	}

	if err := order.Status.ValidateAdvance(next); err != nil {
		return o, err
	}

	applied, err := s.orders.UpdateOrderStatus(ctx, orderID, order.Status, next)
	if err != nil {
		return o, fmt.Errorf("orders.UpdateOrderStatus: %w", err)
	}
	if !applied {
		// Lost a race with a concurrent transition.
		return o, domain.ErrInvalidStatusTransition
	}

	updated, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return o, fmt.Errorf("orders.GetOrder: %w", err)
	}

	return updated, nil
}

// Cancel is allowed for the customer or the owning vendor while the order
// is still pending or accepted. It restores each item's stock and then
// invalidates listing caches.
func (s *OrderService) Cancel(ctx context.Context, actor Actor, orderID uuid.UUID) (_ domain.Order, txErr error) {
	var o domain.Order

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return o, fmt.Errorf("orders.GetOrder: %w", err)
	}

	if err := s.authorize(ctx, actor, order); err != nil {
		return o, err
	}

	if !order.Status.Cancellable() {
		return o, domain.ErrCannotCancel
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return o, fmt.Errorf("pool.Begin: %w", err)
	}

	defer func() {
		if txErr != nil {
			rollbackErr := tx.Rollback(ctx)
			if rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				txErr = errors.Join(txErr, fmt.Errorf("tx.Rollback: %w", rollbackErr))
			}
		}
	}()

	ordersRepo := repository.NewOrderWithTx(tx)
	products := repository.NewProductWithTx(tx)

	applied, err := ordersRepo.UpdateOrderStatus(ctx, orderID, order.Status, domain.OrderStatusCancelled)
	if err != nil {
		return o, fmt.Errorf("ordersRepo.UpdateOrderStatus: %w", err)
	}
	if !applied {
		// The order moved concurrently; it is no longer cancellable in
		// the state this actor observed.
		return o, domain.ErrCannotCancel
	}

	for _, item := range order.Items {
		if err := products.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			return o, fmt.Errorf("products.IncrementStock[%s]: %w", item.ProductID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return o, fmt.Errorf("tx.Commit: %w", err)
	}

	s.metrics.OrdersCancelledTotal.Inc()
	s.logger.Info("order cancelled",
		zap.String("order_id", orderID.String()),
		zap.String("actor_role", string(actor.Role)))

	productIDs := lo.Map(order.Items, func(item domain.OrderItem, _ int) uuid.UUID { return item.ProductID })
	s.invalidator.StockChanged(ctx, []uuid.UUID{order.ShopID}, productIDs)

	updated, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return o, fmt.Errorf("orders.GetOrder: %w", err)
	}

	return updated, nil
}

// authorize checks read/write access: the customer who placed the order or
// the vendor owning its shop.
func (s *OrderService) authorize(ctx context.Context, actor Actor, order domain.Order) error {
	switch actor.Role {
	case RoleCustomer:
		if order.CustomerID == actor.ID {
			return nil
		}
	case RoleVendor:
		shop, err := s.shops.GetShop(ctx, order.ShopID)
		if err != nil {
			return fmt.Errorf("shops.GetShop: %w", err)
		}
		if shop.OwnerID == actor.ID {
			return nil
		}
	}

	return domain.ErrAccessDenied
}
