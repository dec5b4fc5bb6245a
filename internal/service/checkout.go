package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/marketplace/internal/cache"
	"github.com/nikolayk812/marketplace/internal/domain"
	"github.com/nikolayk812/marketplace/internal/metrics"
	"github.com/nikolayk812/marketplace/internal/repository"
	"go.uber.org/zap"
)

// CheckoutService converts a customer's cart into one order per vendor.
// All order inserts and all stock decrements of a single checkout run in
// one transaction, so a failure rolls back the whole split: no orphan
// orders, no lost stock.
type CheckoutService struct {
	pool        *pgxpool.Pool
	cartSvc     *CartService
	invalidator *cache.Invalidator
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

func NewCheckout(pool *pgxpool.Pool, cartSvc *CartService, invalidator *cache.Invalidator, m *metrics.Metrics, logger *zap.Logger) *CheckoutService {
	if m == nil {
		m = metrics.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CheckoutService{
		pool:        pool,
		cartSvc:     cartSvc,
		invalidator: invalidator,
		metrics:     m,
		logger:      logger,
	}
}

func (s *CheckoutService) Checkout(ctx context.Context, customerID string, address domain.DeliveryAddress) ([]domain.Order, error) {
	start := time.Now()

	orders, err := s.checkout(ctx, customerID, address)

	s.metrics.CheckoutDuration.Observe(time.Since(start).Seconds())
	s.metrics.CheckoutTotal.WithLabelValues(resultLabel(err)).Inc()

	if err != nil {
		return nil, err
	}

	s.metrics.OrdersCreatedTotal.Add(float64(len(orders)))
	s.logger.Info("checkout completed",
		zap.String("customer_id", customerID),
		zap.Int("orders", len(orders)))

	return orders, nil
}

func (s *CheckoutService) checkout(ctx context.Context, customerID string, address domain.DeliveryAddress) (_ []domain.Order, txErr error) {
	view, err := s.cartSvc.Snapshot(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("cartSvc.Snapshot: %w", err)
	}

	if len(view.Items) == 0 {
		return nil, domain.ErrEmptyCart
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("pool.Begin: %w", err)
	}

	defer func() {
		if txErr != nil {
			rollbackErr := tx.Rollback(ctx)
			if rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				txErr = errors.Join(txErr, fmt.Errorf("tx.Rollback: %w", rollbackErr))
			}
		}
	}()

	products := repository.NewProductWithTx(tx)
	ordersRepo := repository.NewOrderWithTx(tx)

	// Re-validate every item against the live ledger inside the
	// transaction and freeze name and price from that read.
	groups := make(map[uuid.UUID][]domain.OrderItem)
	var groupOrder []uuid.UUID

	for _, item := range view.Items {
		if item.Product.ShopID == uuid.Nil || item.Shop.ID == uuid.Nil {
			return nil, fmt.Errorf("product[%s]: %w", item.Product.ID, domain.ErrUnlinkedProduct)
		}

		product, err := products.GetProduct(ctx, item.Product.ID)
		if err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				return nil, fmt.Errorf("product[%s]: %w", item.Product.ID, domain.ErrProductUnavailable)
			}
			return nil, fmt.Errorf("products.GetProduct: %w", err)
		}

		if !product.Orderable() {
			return nil, fmt.Errorf("product[%s]: %w", product.ID, domain.ErrProductUnavailable)
		}

		if product.Stock < item.Quantity {
			return nil, fmt.Errorf("product[%s]: %w", product.ID, domain.ErrInsufficientStock)
		}

		// The product's own shop reference wins over the one embedded
		// in the cart row.
		shopID := product.ShopID
		if _, seen := groups[shopID]; !seen {
			groupOrder = append(groupOrder, shopID)
		}

		groups[shopID] = append(groups[shopID], domain.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.EffectivePrice(),
			Quantity:  item.Quantity,
		})
	}

	var orderIDs []uuid.UUID
	for _, shopID := range groupOrder {
		order := domain.Order{
			CustomerID:      customerID,
			ShopID:          shopID,
			Items:           groups[shopID],
			DeliveryAddress: address,
		}

		total, err := order.ComputeTotal()
		if err != nil {
			return nil, fmt.Errorf("order.ComputeTotal: %w", err)
		}
		order.TotalAmount = total

		orderID, err := ordersRepo.InsertOrder(ctx, order)
		if err != nil {
			return nil, fmt.Errorf("ordersRepo.InsertOrder: %w", err)
		}
		orderIDs = append(orderIDs, orderID)
	}

	// Conditional decrements settle the race between concurrent
	// checkouts: losing here surfaces as InsufficientStock at commit time
	// and rolls back every order of this checkout.
	for _, shopID := range groupOrder {
		for _, item := range groups[shopID] {
			if err := products.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				return nil, fmt.Errorf("products.DecrementStock[%s]: %w", item.ProductID, err)
			}
		}
	}

	var orders []domain.Order
	for _, orderID := range orderIDs {
		order, err := ordersRepo.GetOrder(ctx, orderID)
		if err != nil {
			return nil, fmt.Errorf("ordersRepo.GetOrder: %w", err)
		}
		orders = append(orders, order)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("tx.Commit: %w", err)
	}

	// The cart is intentionally left intact: it is cleared only once a
	// payment confirmation succeeds, keeping retries possible.

	productIDs := make([]uuid.UUID, 0, len(view.Items))
	for _, shopID := range groupOrder {
		for _, item := range groups[shopID] {
			productIDs = append(productIDs, item.ProductID)
		}
	}
	s.invalidator.StockChanged(ctx, groupOrder, productIDs)

	return orders, nil
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}

	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		return "rejected"
	}
	return "error"
}
