package domain

import (
	"time"

	"github.com/google/uuid"
)

type Product struct {
	ID     uuid.UUID
	ShopID uuid.UUID
	Name   string

	Price           Money
	DiscountedPrice *Money

	Stock       int32
	IsAvailable bool
	IsBanned    bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EffectivePrice is the price used when ordering: the discounted price if
// one is set, the list price otherwise.
func (p Product) EffectivePrice() Money {
	if p.DiscountedPrice != nil {
		return *p.DiscountedPrice
	}
	return p.Price
}

func (p Product) Orderable() bool {
	return p.IsAvailable && !p.IsBanned
}
