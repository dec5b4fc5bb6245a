package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nikolayk812/marketplace/internal/domain"
	"github.com/nikolayk812/marketplace/internal/port"
	"github.com/nikolayk812/marketplace/internal/repository"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// CartService owns the cart mutation surface and the snapshot read used by
// checkout.
type CartService struct {
	carts    port.CartRepository
	products port.ProductRepository
	logger   *zap.Logger
}

func NewCart(carts port.CartRepository, products port.ProductRepository, logger *zap.Logger) *CartService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CartService{
		carts:    carts,
		products: products,
		logger:   logger,
	}
}

// Snapshot returns the cart with products and shops resolved. Items whose
// product is gone, unavailable or banned are dropped from the view only;
// the stored cart keeps them, so a product coming back restores the item.
func (s *CartService) Snapshot(ctx context.Context, ownerID string) (domain.CartView, error) {
	view, err := s.carts.GetCartView(ctx, ownerID)
	if err != nil {
		return domain.CartView{}, fmt.Errorf("carts.GetCartView: %w", err)
	}

	view.Items = lo.Filter(view.Items, func(item domain.CartViewItem, _ int) bool {
		return item.Product.Orderable()
	})

	return view, nil
}

// AddItem resolves the product's authoritative shop reference before
// storing the cart row; re-adding merges quantities.
func (s *CartService) AddItem(ctx context.Context, ownerID string, productID uuid.UUID, quantity int32) error {
	if quantity < 1 {
		return fmt.Errorf("quantity[%d] is less than 1", quantity)
	}

	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return fmt.Errorf("products.GetProduct: %w", domain.ErrProductUnavailable)
		}
		return fmt.Errorf("products.GetProduct: %w", err)
	}

	if !product.Orderable() {
		return domain.ErrProductUnavailable
	}

	item := domain.CartItem{
		ProductID: product.ID,
		ShopID:    product.ShopID,
		Quantity:  quantity,
	}

	if err := s.carts.AddItem(ctx, ownerID, item); err != nil {
		return fmt.Errorf("carts.AddItem: %w", err)
	}

	return nil
}

func (s *CartService) UpdateQuantity(ctx context.Context, ownerID string, productID uuid.UUID, quantity int32) (bool, error) {
	found, err := s.carts.UpdateItemQuantity(ctx, ownerID, productID, quantity)
	if err != nil {
		return false, fmt.Errorf("carts.UpdateItemQuantity: %w", err)
	}
	return found, nil
}

func (s *CartService) RemoveItem(ctx context.Context, ownerID string, productID uuid.UUID) (bool, error) {
	found, err := s.carts.DeleteItem(ctx, ownerID, productID)
	if err != nil {
		return false, fmt.Errorf("carts.DeleteItem: %w", err)
	}
	return found, nil
}

func (s *CartService) Clear(ctx context.Context, ownerID string) error {
	if err := s.carts.ClearCart(ctx, ownerID); err != nil {
		return fmt.Errorf("carts.ClearCart: %w", err)
	}
	return nil
}
