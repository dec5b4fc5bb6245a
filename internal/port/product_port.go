package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/nikolayk812/marketplace/internal/domain"
)

// ProductRepository owns all stock mutation. DecrementStock and
// IncrementStock are single guarded statements; no caller may
// read-modify-write the stock counter through any other path.
type ProductRepository interface {
	GetProduct(ctx context.Context, productID uuid.UUID) (domain.Product, error)
	InsertProduct(ctx context.Context, product domain.Product) (uuid.UUID, error)

	// DecrementStock fails with domain.ErrInsufficientStock when the
	// counter would go below zero, as one atomic conditional update.
	DecrementStock(ctx context.Context, productID uuid.UUID, quantity int32) error
	IncrementStock(ctx context.Context, productID uuid.UUID, quantity int32) error
}

type ShopRepository interface {
	GetShop(ctx context.Context, shopID uuid.UUID) (domain.Shop, error)
	GetShopsByOwner(ctx context.Context, ownerID string) ([]domain.Shop, error)
	InsertShop(ctx context.Context, shop domain.Shop) (uuid.UUID, error)
}
