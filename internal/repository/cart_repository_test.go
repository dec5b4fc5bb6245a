package repository_test

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/marketplace/internal/domain"
	"github.com/nikolayk812/marketplace/internal/port"
	"github.com/nikolayk812/marketplace/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"go.uber.org/goleak"
	"golang.org/x/text/currency"
)

type cartRepositorySuite struct {
	suite.Suite

	pool      *pgxpool.Pool
	repo      port.CartRepository
	shops     port.ShopRepository
	products  port.ProductRepository
	container testcontainers.Container
}

// entry point to run the tests in the suite
func TestCartRepositorySuite(t *testing.T) {
	// Verifies no leaks after all tests in the suite run.
	defer goleak.VerifyNone(t)

	suite.Run(t, new(cartRepositorySuite))
}

// before all tests in the suite
func (suite *cartRepositorySuite) SetupSuite() {
	ctx := suite.T().Context()

	var (
		connStr string
		err     error
	)

	suite.container, connStr, err = startPostgres(ctx)
	suite.NoError(err)

	suite.pool, err = pgxpool.New(ctx, connStr)
	suite.NoError(err)

	suite.repo = repository.NewCart(suite.pool)
	suite.shops = repository.NewShop(suite.pool)
	suite.products = repository.NewProduct(suite.pool)
}

// after all tests in the suite
func (suite *cartRepositorySuite) TearDownSuite() {
	ctx := suite.T().Context()

	if suite.pool != nil {
		suite.pool.Close()
	}
	if suite.container != nil {
		suite.NoError(suite.container.Terminate(ctx))
	}
}

func (suite *cartRepositorySuite) TestAddItem() {
	t := suite.T()
	ctx := t.Context()

	ownerID := gofakeit.UUID()
	item := fakeCartItem()

	err := suite.repo.AddItem(ctx, ownerID, item)
	require.NoError(t, err)

	actualCart, err := suite.repo.GetCart(ctx, ownerID)
	require.NoError(t, err)

	assertCart(t, domain.Cart{
		OwnerID: ownerID,
		Items:   []domain.CartItem{item},
	}, actualCart)
}

func (suite *cartRepositorySuite) TestAddItemMergesQuantity() {
	t := suite.T()
	ctx := t.Context()

	ownerID := gofakeit.UUID()
	item := fakeCartItem()
	item.Quantity = 2

	require.NoError(t, suite.repo.AddItem(ctx, ownerID, item))

	again := item
	again.Quantity = 3
	require.NoError(t, suite.repo.AddItem(ctx, ownerID, again))

	actualCart, err := suite.repo.GetCart(ctx, ownerID)
	require.NoError(t, err)

	merged := item
	merged.Quantity = 5
	assertCart(t, domain.Cart{
		OwnerID: ownerID,
		Items:   []domain.CartItem{merged},
	}, actualCart)
}

func (suite *cartRepositorySuite) TestGetCartEmpty() {
	t := suite.T()
	ctx := t.Context()

	ownerID := gofakeit.UUID()

	cart, err := suite.repo.GetCart(ctx, ownerID)
	require.NoError(t, err)

	assert.Equal(t, ownerID, cart.OwnerID)
	assert.Empty(t, cart.Items)
}

func (suite *cartRepositorySuite) TestUpdateItemQuantity() {
	t := suite.T()
	ctx := t.Context()

	ownerID := gofakeit.UUID()
	item := fakeCartItem()

	require.NoError(t, suite.repo.AddItem(ctx, ownerID, item))

	tests := []struct {
		name      string
		productID uuid.UUID
		quantity  int32
		wantFound bool
	}{
		{name: "existing item: ok", productID: item.ProductID, quantity: 7, wantFound: true},
		{name: "missing item: not found", productID: uuid.New(), quantity: 2, wantFound: false},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			t := suite.T()

			found, err := suite.repo.UpdateItemQuantity(t.Context(), ownerID, tt.productID, tt.quantity)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFound, found)
		})
	}

	cart, err := suite.repo.GetCart(ctx, ownerID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.EqualValues(t, 7, cart.Items[0].Quantity)
}

func (suite *cartRepositorySuite) TestDeleteItem() {
	t := suite.T()
	ctx := t.Context()

	ownerID := gofakeit.UUID()
	item := fakeCartItem()

	require.NoError(t, suite.repo.AddItem(ctx, ownerID, item))

	tests := []struct {
		name      string
		productID uuid.UUID
		wantFound bool
	}{
		{name: "delete existing item: ok", productID: item.ProductID, wantFound: true},
		{name: "delete non-existing item: not found", productID: uuid.New(), wantFound: false},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			t := suite.T()

			found, err := suite.repo.DeleteItem(t.Context(), ownerID, tt.productID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFound, found)
		})
	}
}

func (suite *cartRepositorySuite) TestClearCart() {
	t := suite.T()
	ctx := t.Context()

	ownerID := gofakeit.UUID()
	require.NoError(t, suite.repo.AddItem(ctx, ownerID, fakeCartItem()))
	require.NoError(t, suite.repo.AddItem(ctx, ownerID, fakeCartItem()))

	require.NoError(t, suite.repo.ClearCart(ctx, ownerID))

	cart, err := suite.repo.GetCart(ctx, ownerID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func (suite *cartRepositorySuite) TestGetCartView() {
	t := suite.T()
	ctx := t.Context()

	ownerID := gofakeit.UUID()

	shopID, err := suite.shops.InsertShop(ctx, domain.Shop{
		OwnerID: gofakeit.UUID(),
		Name:    gofakeit.Company(),
	})
	require.NoError(t, err)

	discounted := money("79.90")
	product := domain.Product{
		ShopID:          shopID,
		Name:            gofakeit.ProductName(),
		Price:           money("100"),
		DiscountedPrice: &discounted,
		Stock:           10,
		IsAvailable:     true,
	}
	productID, err := suite.products.InsertProduct(ctx, product)
	require.NoError(t, err)

	require.NoError(t, suite.repo.AddItem(ctx, ownerID, domain.CartItem{
		ProductID: productID,
		ShopID:    shopID,
		Quantity:  2,
	}))

	// cart_items has no FK on product_id: a row pointing at a vanished
	// product must simply not show up in the view.
	require.NoError(t, suite.repo.AddItem(ctx, ownerID, fakeCartItem()))

	view, err := suite.repo.GetCartView(ctx, ownerID)
	require.NoError(t, err)

	require.Len(t, view.Items, 1)
	item := view.Items[0]

	assert.EqualValues(t, 2, item.Quantity)
	assert.Equal(t, productID, item.Product.ID)
	assert.Equal(t, product.Name, item.Product.Name)
	assert.Equal(t, shopID, item.Shop.ID)
	require.NotNil(t, item.Product.DiscountedPrice)
	assert.True(t, item.Product.DiscountedPrice.Amount.Equal(discounted.Amount))
	assert.True(t, item.Product.EffectivePrice().Amount.Equal(discounted.Amount))
}

func fakeCartItem() domain.CartItem {
	return domain.CartItem{
		ProductID: uuid.New(),
		ShopID:    uuid.New(),
		Quantity:  int32(gofakeit.IntRange(1, 9)),
	}
}

func money(amount string) domain.Money {
	return domain.Money{
		Amount:   decimal.RequireFromString(amount),
		Currency: currency.USD,
	}
}

func assertCart(t *testing.T, expected domain.Cart, actual domain.Cart) {
	t.Helper()

	// Ignore the CreatedAt field in CartItem and
	// Treat empty slices as equal to nil
	opts := cmp.Options{
		cmpopts.IgnoreFields(domain.CartItem{}, "CreatedAt"),
		cmpopts.EquateEmpty(),
	}

	diff := cmp.Diff(expected, actual, opts)
	assert.Empty(t, diff)
}
