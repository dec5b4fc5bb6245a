package domain

import (
	"time"

	"github.com/google/uuid"
)

type ShopStatus string

const (
	ShopStatusPending  ShopStatus = "pending"
	ShopStatusApproved ShopStatus = "approved"
	ShopStatusBlocked  ShopStatus = "blocked"
)

// Shop approval gating happens upstream of the order core; the core only
// uses the shop for vendor partitioning and ownership checks.
type Shop struct {
	ID      uuid.UUID
	OwnerID string
	Name    string
	Status  ShopStatus

	CreatedAt time.Time
}
