package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/marketplace/internal/domain"
	"github.com/nikolayk812/marketplace/internal/port"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

type cartRepository struct {
	db   DB
	pool *pgxpool.Pool
}

func NewCart(pool *pgxpool.Pool) port.CartRepository {
	return &cartRepository{
		db:   pool,
		pool: pool,
	}
}

func NewCartWithTx(tx pgx.Tx) port.CartRepository {
	return &cartRepository{
		db:   tx,
		pool: nil, // use provided transaction instead
	}
}

func (r *cartRepository) GetCart(ctx context.Context, ownerID string) (domain.Cart, error) {
	if ownerID == "" {
		return domain.Cart{}, fmt.Errorf("ownerID is empty")
	}

	rows, err := r.db.Query(ctx,
		`SELECT product_id, shop_id, quantity, created_at
		 FROM cart_items
		 WHERE owner_id = $1
		 ORDER BY created_at`, ownerID)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("db.Query: %w", err)
	}
	defer rows.Close()

	var items []domain.CartItem
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.ProductID, &item.ShopID, &item.Quantity, &item.CreatedAt); err != nil {
			return domain.Cart{}, fmt.Errorf("rows.Scan: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return domain.Cart{}, fmt.Errorf("rows.Err: %w", err)
	}

	// A customer without cart rows simply has an empty cart.
	return domain.Cart{
		OwnerID: ownerID,
		Items:   items,
	}, nil
}

func (r *cartRepository) GetCartView(ctx context.Context, ownerID string) (domain.CartView, error) {
	if ownerID == "" {
		return domain.CartView{}, fmt.Errorf("ownerID is empty")
	}

	// Inner join on products drops items whose product row is gone; the
	// left join keeps unlinked products visible so the checkout can
	// reject them explicitly.
	rows, err := r.db.Query(ctx,
		`SELECT ci.quantity,
		        p.id, p.shop_id, p.name, p.price_amount, p.price_currency, p.discounted_amount,
		        p.stock, p.is_available, p.is_banned,
		        s.id, s.owner_id, s.name, s.status
		 FROM cart_items ci
		 JOIN products p ON p.id = ci.product_id
		 LEFT JOIN shops s ON s.id = p.shop_id
		 WHERE ci.owner_id = $1
		 ORDER BY ci.created_at`, ownerID)
	if err != nil {
		return domain.CartView{}, fmt.Errorf("db.Query: %w", err)
	}
	defer rows.Close()

	var items []domain.CartViewItem
	for rows.Next() {
		item, err := scanCartViewItem(rows)
		if err != nil {
			return domain.CartView{}, fmt.Errorf("scanCartViewItem: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return domain.CartView{}, fmt.Errorf("rows.Err: %w", err)
	}

	return domain.CartView{
		OwnerID: ownerID,
		Items:   items,
	}, nil
}

func (r *cartRepository) AddItem(ctx context.Context, ownerID string, item domain.CartItem) error {
	if ownerID == "" {
		return fmt.Errorf("ownerID is empty")
	}
	if item.Quantity < 1 {
		return fmt.Errorf("quantity[%d] is less than 1", item.Quantity)
	}

	// Re-adding a product merges quantities instead of duplicating rows.
	_, err := r.db.Exec(ctx,
		`INSERT INTO cart_items (owner_id, product_id, shop_id, quantity)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (owner_id, product_id)
		 DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = now()`,
		ownerID, item.ProductID, item.ShopID, item.Quantity)
	if err != nil {
		return fmt.Errorf("db.Exec: %w", err)
	}

	return nil
}

func (r *cartRepository) UpdateItemQuantity(ctx context.Context, ownerID string, productID uuid.UUID, quantity int32) (bool, error) {
	if ownerID == "" {
		return false, fmt.Errorf("ownerID is empty")
	}
	if quantity < 1 {
		return false, fmt.Errorf("quantity[%d] is less than 1", quantity)
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE cart_items SET quantity = $3, updated_at = now()
		 WHERE owner_id = $1 AND product_id = $2`,
		ownerID, productID, quantity)
	if err != nil {
		return false, fmt.Errorf("db.Exec: %w", err)
	}

	return cmdTag.RowsAffected() > 0, nil
}

func (r *cartRepository) DeleteItem(ctx context.Context, ownerID string, productID uuid.UUID) (bool, error) {
	if ownerID == "" {
		return false, fmt.Errorf("ownerID is empty")
	}

	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM cart_items WHERE owner_id = $1 AND product_id = $2`,
		ownerID, productID)
	if err != nil {
		return false, fmt.Errorf("db.Exec: %w", err)
	}

	return cmdTag.RowsAffected() > 0, nil
}

func (r *cartRepository) ClearCart(ctx context.Context, ownerID string) error {
	if ownerID == "" {
		return fmt.Errorf("ownerID is empty")
	}

	if _, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE owner_id = $1`, ownerID); err != nil {
		return fmt.Errorf("db.Exec: %w", err)
	}

	return nil
}

func scanCartViewItem(rows pgx.Rows) (domain.CartViewItem, error) {
	var (
		item domain.CartViewItem

		priceAmount      decimal.Decimal
		priceCurrency    string
		discountedAmount decimal.NullDecimal

		shopID      *uuid.UUID
		shopOwnerID *string
		shopName    *string
		shopStatus  *string
	)

	err := rows.Scan(
		&item.Quantity,
		&item.Product.ID, &item.Product.ShopID, &item.Product.Name,
		&priceAmount, &priceCurrency, &discountedAmount,
		&item.Product.Stock, &item.Product.IsAvailable, &item.Product.IsBanned,
		&shopID, &shopOwnerID, &shopName, &shopStatus,
	)
	if err != nil {
		return domain.CartViewItem{}, fmt.Errorf("rows.Scan: %w", err)
	}

	price, err := parseMoney(priceAmount, priceCurrency)
	if err != nil {
		return domain.CartViewItem{}, fmt.Errorf("parseMoney: %w", err)
	}
	item.Product.Price = price

	if discountedAmount.Valid {
		item.Product.DiscountedPrice = &domain.Money{
			Amount:   discountedAmount.Decimal,
			Currency: price.Currency,
		}
	}

	// Shop columns are null when the product points at a missing shop.
	if shopID != nil {
		item.Shop = domain.Shop{
			ID:      *shopID,
			OwnerID: derefString(shopOwnerID),
			Name:    derefString(shopName),
			Status:  domain.ShopStatus(derefString(shopStatus)),
		}
	}

	return item, nil
}

func parseMoney(amount decimal.Decimal, currencyCode string) (domain.Money, error) {
	parsedCurrency, err := currency.ParseISO(currencyCode)
	if err != nil {
		return domain.Money{}, fmt.Errorf("currency[%s] is not valid: %w", currencyCode, err)
	}

	return domain.Money{Amount: amount, Currency: parsedCurrency}, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
