package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/nikolayk812/marketplace/internal/domain"
)

type CartRepository interface {
	GetCart(ctx context.Context, ownerID string) (domain.Cart, error)

	// GetCartView resolves each cart item's product and shop in a single
	// read-time join. Items whose product row is gone are not returned;
	// availability filtering is the caller's concern.
	GetCartView(ctx context.Context, ownerID string) (domain.CartView, error)

	// AddItem merges quantities when the product is already in the cart.
	AddItem(ctx context.Context, ownerID string, item domain.CartItem) error

	UpdateItemQuantity(ctx context.Context, ownerID string, productID uuid.UUID, quantity int32) (bool, error)
	DeleteItem(ctx context.Context, ownerID string, productID uuid.UUID) (bool, error)
	ClearCart(ctx context.Context, ownerID string) error
}
