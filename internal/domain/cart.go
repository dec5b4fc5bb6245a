package domain

import (
	"time"

	"github.com/google/uuid"
)

type Cart struct {
	OwnerID string
	Items   []CartItem
}

// CartItem references a product by id only; price and name are resolved
// at read time so the cart always reflects the live catalog.
type CartItem struct {
	ProductID uuid.UUID
	ShopID    uuid.UUID
	Quantity  int32

	CreatedAt time.Time
}

// CartView is a cart with each item's product and shop loaded.
type CartView struct {
	OwnerID string
	Items   []CartViewItem
}

type CartViewItem struct {
	Product  Product
	Shop     Shop
	Quantity int32
}
