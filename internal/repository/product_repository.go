package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/marketplace/internal/domain"
	"github.com/nikolayk812/marketplace/internal/port"
	"github.com/shopspring/decimal"
)

var ErrProductNotFound = errors.New("product not found")

type productRepository struct {
	db   DB
	pool *pgxpool.Pool
}

func NewProduct(pool *pgxpool.Pool) port.ProductRepository {
	return &productRepository{
		db:   pool,
		pool: pool,
	}
}

func NewProductWithTx(tx pgx.Tx) port.ProductRepository {
	return &productRepository{
		db:   tx,
		pool: nil, // use provided transaction instead
	}
}

func (r *productRepository) GetProduct(ctx context.Context, productID uuid.UUID) (domain.Product, error) {
	var (
		p domain.Product

		priceAmount      decimal.Decimal
		priceCurrency    string
		discountedAmount decimal.NullDecimal
	)

	err := r.db.QueryRow(ctx,
		`SELECT id, shop_id, name, price_amount, price_currency, discounted_amount,
		        stock, is_available, is_banned, created_at, updated_at
		 FROM products
		 WHERE id = $1`, productID).
		Scan(&p.ID, &p.ShopID, &p.Name, &priceAmount, &priceCurrency, &discountedAmount,
			&p.Stock, &p.IsAvailable, &p.IsBanned, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return p, fmt.Errorf("db.QueryRow: %w", ErrProductNotFound)
		}
		return p, fmt.Errorf("db.QueryRow: %w", err)
	}

	price, err := parseMoney(priceAmount, priceCurrency)
	if err != nil {
		return p, fmt.Errorf("parseMoney: %w", err)
	}
	p.Price = price

	if discountedAmount.Valid {
		p.DiscountedPrice = &domain.Money{
			Amount:   discountedAmount.Decimal,
			Currency: price.Currency,
		}
	}

	return p, nil
}

func (r *productRepository) InsertProduct(ctx context.Context, product domain.Product) (uuid.UUID, error) {
	if product.ShopID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("shopID is empty")
	}

	var discounted decimal.NullDecimal
	if product.DiscountedPrice != nil {
		discounted = decimal.NullDecimal{Decimal: product.DiscountedPrice.Amount, Valid: true}
	}

	var productID uuid.UUID
	err := r.db.QueryRow(ctx,
		`INSERT INTO products (shop_id, name, price_amount, price_currency, discounted_amount,
		                       stock, is_available, is_banned)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		product.ShopID, product.Name, product.Price.Amount, product.Price.Currency.String(),
		discounted, product.Stock, product.IsAvailable && product.Stock > 0, product.IsBanned).
		Scan(&productID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("db.QueryRow: %w", err)
	}

	return productID, nil
}

// DecrementStock is the ledger's conditional decrement: the guard and the
// arithmetic are one statement, so two concurrent checkouts can never both
// take the last unit. Zero rows affected on an existing product means the
// stock would have gone negative.
func (r *productRepository) DecrementStock(ctx context.Context, productID uuid.UUID, quantity int32) error {
	if quantity < 1 {
		return fmt.Errorf("quantity[%d] is less than 1", quantity)
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE products
		 SET stock = stock - $2,
		     is_available = CASE WHEN stock - $2 <= 0 THEN false ELSE is_available END,
		     updated_at = now()
		 WHERE id = $1 AND stock >= $2`,
		productID, quantity)
	if err != nil {
		return fmt.Errorf("db.Exec: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		exists, err := r.productExists(ctx, productID)
		if err != nil {
			return fmt.Errorf("r.productExists: %w", err)
		}
		if !exists {
			return ErrProductNotFound
		}
		return domain.ErrInsufficientStock
	}

	return nil
}

// IncrementStock restores quantity, re-enabling availability only for
// products that were auto-disabled by hitting zero.
func (r *productRepository) IncrementStock(ctx context.Context, productID uuid.UUID, quantity int32) error {
	if quantity < 1 {
		return fmt.Errorf("quantity[%d] is less than 1", quantity)
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE products
		 SET stock = stock + $2,
		     is_available = CASE WHEN stock = 0 THEN true ELSE is_available END,
		     updated_at = now()
		 WHERE id = $1`,
		productID, quantity)
	if err != nil {
		return fmt.Errorf("db.Exec: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}

	return nil
}

func (r *productRepository) productExists(ctx context.Context, productID uuid.UUID) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists); err != nil {
		return false, fmt.Errorf("db.QueryRow: %w", err)
	}
	return exists, nil
}
