package httpapi

import (
	"time"

	"github.com/nikolayk812/marketplace/internal/domain"
	"github.com/samber/lo"
)

type moneyDTO struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func toMoneyDTO(m domain.Money) moneyDTO {
	return moneyDTO{
		Amount:   m.Amount.String(),
		Currency: m.Currency.String(),
	}
}

type addressDTO struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

type orderItemDTO struct {
	ProductID string   `json:"productId"`
	Name      string   `json:"name"`
	UnitPrice moneyDTO `json:"unitPrice"`
	Quantity  int32    `json:"quantity"`
}

type orderDTO struct {
	ID            string         `json:"id"`
	CustomerID    string         `json:"customerId"`
	ShopID        string         `json:"shopId"`
	Items         []orderItemDTO `json:"items"`
	TotalAmount   moneyDTO       `json:"totalAmount"`
	Status        string         `json:"status"`
	PaymentStatus string         `json:"paymentStatus"`
	Address       addressDTO     `json:"deliveryAddress"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

func toOrderDTO(o domain.Order) orderDTO {
	return orderDTO{
		ID:         o.ID.String(),
		CustomerID: o.CustomerID,
		ShopID:     o.ShopID.String(),
		Items: lo.Map(o.Items, func(item domain.OrderItem, _ int) orderItemDTO {
			return orderItemDTO{
				ProductID: item.ProductID.String(),
				Name:      item.Name,
				UnitPrice: toMoneyDTO(item.UnitPrice),
				Quantity:  item.Quantity,
			}
		}),
		TotalAmount:   toMoneyDTO(o.TotalAmount),
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		Address: addressDTO{
			Street:  o.DeliveryAddress.Street,
			City:    o.DeliveryAddress.City,
			State:   o.DeliveryAddress.State,
			Pincode: o.DeliveryAddress.Pincode,
		},
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

type cartItemDTO struct {
	ProductID   string   `json:"productId"`
	ShopID      string   `json:"shopId"`
	Name        string   `json:"name"`
	UnitPrice   moneyDTO `json:"unitPrice"`
	Quantity    int32    `json:"quantity"`
	Stock       int32    `json:"stock"`
	IsAvailable bool     `json:"isAvailable"`
}

type cartDTO struct {
	OwnerID string        `json:"ownerId"`
	Items   []cartItemDTO `json:"items"`
}

func toCartDTO(view domain.CartView) cartDTO {
	return cartDTO{
		OwnerID: view.OwnerID,
		Items: lo.Map(view.Items, func(item domain.CartViewItem, _ int) cartItemDTO {
			return cartItemDTO{
				ProductID:   item.Product.ID.String(),
				ShopID:      item.Product.ShopID.String(),
				Name:        item.Product.Name,
				UnitPrice:   toMoneyDTO(item.Product.EffectivePrice()),
				Quantity:    item.Quantity,
				Stock:       item.Product.Stock,
				IsAvailable: item.Product.IsAvailable,
			}
		}),
	}
}
