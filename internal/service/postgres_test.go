package service_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/marketplace/internal/cache"
	"github.com/nikolayk812/marketplace/internal/domain"
	"github.com/nikolayk812/marketplace/internal/port"
	"github.com/nikolayk812/marketplace/internal/repository"
	"github.com/nikolayk812/marketplace/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/text/currency"
)

const testGatewaySecret = "test-gateway-secret"

// env wires the full service stack against a single postgres container,
// with a no-op cache behind the invalidator.
type env struct {
	container testcontainers.Container
	pool      *pgxpool.Pool

	carts    port.CartRepository
	products port.ProductRepository
	shops    port.ShopRepository
	orders   port.OrderRepository

	cartSvc     *service.CartService
	checkoutSvc *service.CheckoutService
	orderSvc    *service.OrderService
	paymentSvc  *service.PaymentService
}

func newEnv(ctx context.Context) (*env, error) {
	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithInitScripts(filepath.Join("..", "..", "migrations", "001_init.sql")),
		postgres.WithDatabase("marketplace"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres.Run: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, fmt.Errorf("container.ConnectionString: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	e := &env{
		container: container,
		pool:      pool,
		carts:     repository.NewCart(pool),
		products:  repository.NewProduct(pool),
		shops:     repository.NewShop(pool),
		orders:    repository.NewOrder(pool),
	}

	invalidator := cache.NewInvalidator(cache.NewNop(), nil)

	e.cartSvc = service.NewCart(e.carts, e.products, nil)
	e.checkoutSvc = service.NewCheckout(pool, e.cartSvc, invalidator, nil, nil)
	e.orderSvc = service.NewOrders(pool, e.orders, e.shops, invalidator, nil, nil)
	e.paymentSvc = service.NewPayment(e.orders, e.carts, []byte(testGatewaySecret), nil, nil)

	return e, nil
}

func (e *env) close(ctx context.Context) error {
	if e.pool != nil {
		e.pool.Close()
	}
	if e.container != nil {
		return e.container.Terminate(ctx)
	}
	return nil
}

func (e *env) createShop(t *testing.T, ownerID string) uuid.UUID {
	t.Helper()

	shopID, err := e.shops.InsertShop(t.Context(), domain.Shop{
		OwnerID: ownerID,
		Name:    gofakeit.Company(),
	})
	require.NoError(t, err)

	return shopID
}

func (e *env) createProduct(t *testing.T, shopID uuid.UUID, price string, stock int32) uuid.UUID {
	t.Helper()

	productID, err := e.products.InsertProduct(t.Context(), domain.Product{
		ShopID:      shopID,
		Name:        gofakeit.ProductName(),
		Price:       money(price),
		Stock:       stock,
		IsAvailable: true,
	})
	require.NoError(t, err)

	return productID
}

func money(amount string) domain.Money {
	return domain.Money{
		Amount:   decimal.RequireFromString(amount),
		Currency: currency.USD,
	}
}

func fakeAddress() domain.DeliveryAddress {
	return domain.DeliveryAddress{
		Street:  gofakeit.Street(),
		City:    gofakeit.City(),
		State:   gofakeit.State(),
		Pincode: gofakeit.Zip(),
	}
}
