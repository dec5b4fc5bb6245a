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
)

var ErrShopNotFound = errors.New("shop not found")

type shopRepository struct {
	db   DB
	pool *pgxpool.Pool
}

func NewShop(pool *pgxpool.Pool) port.ShopRepository {
	return &shopRepository{
		db:   pool,
		pool: pool,
	}
}

func (r *shopRepository) GetShop(ctx context.Context, shopID uuid.UUID) (domain.Shop, error) {
	var s domain.Shop

	var status string
	err := r.db.QueryRow(ctx,
		`SELECT id, owner_id, name, status, created_at FROM shops WHERE id = $1`, shopID).
		Scan(&s.ID, &s.OwnerID, &s.Name, &status, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s, fmt.Errorf("db.QueryRow: %w", ErrShopNotFound)
		}
		return s, fmt.Errorf("db.QueryRow: %w", err)
	}

	s.Status = domain.ShopStatus(status)
	return s, nil
}

func (r *shopRepository) GetShopsByOwner(ctx context.Context, ownerID string) ([]domain.Shop, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("ownerID is empty")
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, owner_id, name, status, created_at FROM shops WHERE owner_id = $1 ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("db.Query: %w", err)
	}
	defer rows.Close()

	var shops []domain.Shop
	for rows.Next() {
		var (
			s      domain.Shop
			status string
		)
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.Name, &status, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
		s.Status = domain.ShopStatus(status)
		shops = append(shops, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	return shops, nil
}

func (r *shopRepository) InsertShop(ctx context.Context, shop domain.Shop) (uuid.UUID, error) {
	if shop.OwnerID == "" {
		return uuid.Nil, fmt.Errorf("ownerID is empty")
	}

	status := shop.Status
	if status == "" {
		status = domain.ShopStatusApproved
	}

	var shopID uuid.UUID
	err := r.db.QueryRow(ctx,
		`INSERT INTO shops (owner_id, name, status) VALUES ($1, $2, $3) RETURNING id`,
		shop.OwnerID, shop.Name, string(status)).
		Scan(&shopID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("db.QueryRow: %w", err)
	}

	return shopID, nil
}
