package service_test

import (
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/nikolayk812/marketplace/internal/domain"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

type checkoutSuite struct {
	suite.Suite

	env *env
}

// entry point to run the tests in the suite
func TestCheckoutSuite(t *testing.T) {
	// Verifies no leaks after all tests in the suite run.
	defer goleak.VerifyNone(t)

	suite.Run(t, new(checkoutSuite))
}

// before all tests in the suite
func (suite *checkoutSuite) SetupSuite() {
	ctx := suite.T().Context()

	var err error
	suite.env, err = newEnv(ctx)
	suite.NoError(err)
}

// after all tests in the suite
func (suite *checkoutSuite) TearDownSuite() {
	if suite.env != nil {
		suite.NoError(suite.env.close(suite.T().Context()))
	}
}

func (suite *checkoutSuite) TestEmptyCart() {
	t := suite.T()

	_, err := suite.env.checkoutSvc.Checkout(t.Context(), gofakeit.UUID(), fakeAddress())
	require.ErrorIs(t, err, domain.ErrEmptyCart)
}

func (suite *checkoutSuite) TestSplitsPerShop() {
	t := suite.T()
	ctx := t.Context()
	e := suite.env

	customerID := gofakeit.UUID()
	address := fakeAddress()

	shopA := e.createShop(t, gofakeit.UUID())
	shopB := e.createShop(t, gofakeit.UUID())

	productA1 := e.createProduct(t, shopA, "10", 5)
	productA2 := e.createProduct(t, shopA, "2.50", 5)
	productB1 := e.createProduct(t, shopB, "7", 5)

	require.NoError(t, e.cartSvc.AddItem(ctx, customerID, productA1, 2))
	require.NoError(t, e.cartSvc.AddItem(ctx, customerID, productA2, 1))
	require.NoError(t, e.cartSvc.AddItem(ctx, customerID, productB1, 3))

	orders, err := e.checkoutSvc.Checkout(ctx, customerID, address)
	require.NoError(t, err)
	require.Len(t, orders, 2)

	byShop := lo.KeyBy(orders, func(o domain.Order) uuid.UUID { return o.ShopID })

	orderA, ok := byShop[shopA]
	require.True(t, ok)
	assert.Len(t, orderA.Items, 2)
	assert.True(t, orderA.TotalAmount.Amount.Equal(decimal.RequireFromString("22.50")),
		"shop A total: %s", orderA.TotalAmount.Amount)

	orderB, ok := byShop[shopB]
	require.True(t, ok)
	assert.Len(t, orderB.Items, 1)
	assert.True(t, orderB.TotalAmount.Amount.Equal(decimal.RequireFromString("21")),
		"shop B total: %s", orderB.TotalAmount.Amount)

	for _, order := range orders {
		assert.Equal(t, customerID, order.CustomerID)
		assert.Equal(t, domain.OrderStatusPending, order.Status)
		assert.Equal(t, domain.PaymentStatusPending, order.PaymentStatus)
		assert.Equal(t, address, order.DeliveryAddress)
	}

	// stock is decremented for every ordered item
	product, err := e.products.GetProduct(ctx, productA1)
	require.NoError(t, err)
	assert.EqualValues(t, 3, product.Stock)

	product, err = e.products.GetProduct(ctx, productB1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, product.Stock)

	// the cart survives checkout, it is cleared on payment confirmation
	cart, err := e.carts.GetCart(ctx, customerID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 3)
}

func (suite *checkoutSuite) TestInsufficientStockRollsBackSplit() {
	t := suite.T()
	ctx := t.Context()
	e := suite.env

	customerID := gofakeit.UUID()

	shopA := e.createShop(t, gofakeit.UUID())
	shopB := e.createShop(t, gofakeit.UUID())

	plenty := e.createProduct(t, shopA, "10", 10)
	scarce := e.createProduct(t, shopB, "5", 1)

	require.NoError(t, e.cartSvc.AddItem(ctx, customerID, plenty, 2))
	require.NoError(t, e.cartSvc.AddItem(ctx, customerID, scarce, 2))

	_, err := e.checkoutSvc.Checkout(ctx, customerID, fakeAddress())
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	// the whole split rolled back: no orders, no stock movement anywhere
	orders, err := e.orders.SearchOrders(ctx, domain.OrderFilter{CustomerIDs: []string{customerID}})
	require.NoError(t, err)
	assert.Empty(t, orders)

	product, err := e.products.GetProduct(ctx, plenty)
	require.NoError(t, err)
	assert.EqualValues(t, 10, product.Stock)

	product, err = e.products.GetProduct(ctx, scarce)
	require.NoError(t, err)
	assert.EqualValues(t, 1, product.Stock)
}

func (suite *checkoutSuite) TestUnavailableItemsAreDropped() {
	t := suite.T()
	ctx := t.Context()
	e := suite.env

	customerID := gofakeit.UUID()
	shopID := e.createShop(t, gofakeit.UUID())

	available := e.createProduct(t, shopID, "10", 5)
	soldOut := e.createProduct(t, shopID, "20", 1)

	require.NoError(t, e.cartSvc.AddItem(ctx, customerID, available, 1))
	require.NoError(t, e.cartSvc.AddItem(ctx, customerID, soldOut, 1))

	// drain the second product, which also flips it unavailable
	require.NoError(t, e.products.DecrementStock(ctx, soldOut, 1))

	orders, err := e.checkoutSvc.Checkout(ctx, customerID, fakeAddress())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Len(t, orders[0].Items, 1)
	assert.Equal(t, available, orders[0].Items[0].ProductID)
}

func (suite *checkoutSuite) TestSnapshotsDiscountedPrice() {
	t := suite.T()
	ctx := t.Context()
	e := suite.env

	customerID := gofakeit.UUID()
	shopID := e.createShop(t, gofakeit.UUID())

	discounted := money("79.90")
	productID, err := e.products.InsertProduct(ctx, domain.Product{
		ShopID:          shopID,
		Name:            gofakeit.ProductName(),
		Price:           money("100"),
		DiscountedPrice: &discounted,
		Stock:           5,
		IsAvailable:     true,
	})
	require.NoError(t, err)

	require.NoError(t, e.cartSvc.AddItem(ctx, customerID, productID, 2))

	orders, err := e.checkoutSvc.Checkout(ctx, customerID, fakeAddress())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Len(t, orders[0].Items, 1)

	item := orders[0].Items[0]
	assert.True(t, item.UnitPrice.Amount.Equal(discounted.Amount))
	assert.True(t, orders[0].TotalAmount.Amount.Equal(decimal.RequireFromString("159.80")))
}

// N customers racing for k units: exactly k checkouts succeed, the rest are
// rejected with InsufficientStock and leave nothing behind.
func (suite *checkoutSuite) TestConcurrentCheckouts() {
	t := suite.T()
	ctx := t.Context()
	e := suite.env

	const (
		stock     = 3
		customers = 5
	)

	shopID := e.createShop(t, gofakeit.UUID())
	productID := e.createProduct(t, shopID, "10", stock)

	customerIDs := make([]string, customers)
	for i := range customerIDs {
		customerIDs[i] = gofakeit.UUID()
		require.NoError(t, e.cartSvc.AddItem(ctx, customerIDs[i], productID, 1))
	}

	var wg sync.WaitGroup
	errs := make(chan error, customers)

	for _, customerID := range customerIDs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.checkoutSvc.Checkout(ctx, customerID, fakeAddress())
			errs <- err
		}()
	}

	wg.Wait()
	close(errs)

	var succeeded, insufficient int
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case assert.ErrorIs(t, err, domain.ErrInsufficientStock):
			insufficient++
		}
	}

	assert.Equal(t, stock, succeeded)
	assert.Equal(t, customers-stock, insufficient)

	product, err := e.products.GetProduct(ctx, productID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, product.Stock)
}
