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
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type orderRepository struct {
	db   DB
	pool *pgxpool.Pool
}

func NewOrder(pool *pgxpool.Pool) port.OrderRepository {
	return &orderRepository{
		db:   pool,
		pool: pool,
	}
}

func NewOrderWithTx(tx pgx.Tx) port.OrderRepository {
	return &orderRepository{
		db:   tx,
		pool: nil, // use provided transaction instead
	}
}

func (r *orderRepository) GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	var o domain.Order

	order, err := withTx(ctx, r.pool, r.db, func(db DB) (domain.Order, error) {
		order, err := getOrderRow(ctx, db, orderID)
		if err != nil {
			return o, fmt.Errorf("getOrderRow: %w", err)
		}

		items, err := getOrderItems(ctx, db, orderID)
		if err != nil {
			return o, fmt.Errorf("getOrderItems: %w", err)
		}

		order.Items = items
		return order, nil
	})
	if err != nil {
		return o, fmt.Errorf("withTx: %w", err)
	}

	return order, nil
}

func (r *orderRepository) InsertOrder(ctx context.Context, order domain.Order) (uuid.UUID, error) {
	if len(order.Items) == 0 {
		return uuid.Nil, errors.New("no items in order")
	}
	if order.CustomerID == "" {
		return uuid.Nil, errors.New("customerID is empty")
	}
	if order.ShopID == uuid.Nil {
		return uuid.Nil, errors.New("shopID is empty")
	}

	orderID, err := withTx(ctx, r.pool, r.db, func(db DB) (uuid.UUID, error) {
		var orderID uuid.UUID

		err := db.QueryRow(ctx,
			`INSERT INTO orders (customer_id, shop_id, total_amount, total_currency,
			                     status, payment_status,
			                     address_street, address_city, address_state, address_pincode)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 RETURNING id`,
			order.CustomerID, order.ShopID,
			order.TotalAmount.Amount, order.TotalAmount.Currency.String(),
			string(domain.OrderStatusPending), string(domain.PaymentStatusPending),
			order.DeliveryAddress.Street, order.DeliveryAddress.City,
			order.DeliveryAddress.State, order.DeliveryAddress.Pincode).
			Scan(&orderID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("db.QueryRow: %w", err)
		}

		for _, item := range order.Items {
			_, err := db.Exec(ctx,
				`INSERT INTO order_items (order_id, product_id, name, unit_price_amount, unit_price_currency, quantity)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				orderID, item.ProductID, item.Name,
				item.UnitPrice.Amount, item.UnitPrice.Currency.String(), item.Quantity)
			if err != nil {
				return uuid.Nil, fmt.Errorf("db.Exec: %w", err)
			}
		}

		return orderID, nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("withTx: %w", err)
	}

	return orderID, nil
}

func (r *orderRepository) SearchOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("filter.Validate: %w", err)
	}

	statuses := lo.Map(filter.Statuses, func(s domain.OrderStatus, _ int) string { return string(s) })

	var createdAfter, createdBefore any
	if filter.CreatedAt != nil {
		if filter.CreatedAt.After != nil {
			createdAfter = *filter.CreatedAt.After
		}
		if filter.CreatedAt.Before != nil {
			createdBefore = *filter.CreatedAt.Before
		}
	}

	rows, err := r.db.Query(ctx,
		`SELECT o.id, o.customer_id, o.shop_id, o.total_amount, o.total_currency,
		        o.status, o.payment_status,
		        o.gateway_order_id, o.gateway_payment_id, o.gateway_signature, o.paid_at,
		        o.address_street, o.address_city, o.address_state, o.address_pincode,
		        o.created_at, o.updated_at,
		        i.product_id, i.name, i.unit_price_amount, i.unit_price_currency, i.quantity
		 FROM orders o
		 JOIN order_items i ON i.order_id = o.id
		 WHERE ($1::uuid[] IS NULL OR o.id = ANY ($1))
		   AND ($2::text[] IS NULL OR o.customer_id = ANY ($2))
		   AND ($3::uuid[] IS NULL OR o.shop_id = ANY ($3))
		   AND ($4::text[] IS NULL OR o.status = ANY ($4))
		   AND ($5::timestamptz IS NULL OR o.created_at >= $5)
		   AND ($6::timestamptz IS NULL OR o.created_at <= $6)
		 ORDER BY o.created_at DESC, o.id`,
		nilSliceIfEmpty(filter.IDs), nilSliceIfEmpty(filter.CustomerIDs), nilSliceIfEmpty(filter.ShopIDs),
		nilSliceIfEmpty(statuses), createdAfter, createdBefore)
	if err != nil {
		return nil, fmt.Errorf("db.Query: %w", err)
	}
	defer rows.Close()

	// Group joined rows into orders and their items
	orderMap := make(map[uuid.UUID]domain.Order)
	var orderIDs []uuid.UUID

	for rows.Next() {
		order, item, err := scanOrderJoinRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanOrderJoinRow: %w", err)
		}

		if _, exists := orderMap[order.ID]; !exists {
			orderMap[order.ID] = order
			orderIDs = append(orderIDs, order.ID)
		}

		grouped := orderMap[order.ID]
		grouped.Items = append(grouped.Items, item)
		orderMap[order.ID] = grouped
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	return lo.Map(orderIDs, func(id uuid.UUID, _ int) domain.Order { return orderMap[id] }), nil
}

func (r *orderRepository) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, from, to domain.OrderStatus) (bool, error) {
	if orderID == uuid.Nil {
		return false, fmt.Errorf("orderID is empty")
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE orders SET status = $3, updated_at = now()
		 WHERE id = $1 AND status = $2`,
		orderID, string(from), string(to))
	if err != nil {
		return false, fmt.Errorf("db.Exec: %w", err)
	}

	return cmdTag.RowsAffected() > 0, nil
}

func (r *orderRepository) MarkPaid(ctx context.Context, orderID uuid.UUID, record domain.PaymentRecord) error {
	if orderID == uuid.Nil {
		return fmt.Errorf("orderID is empty")
	}

	// The payment_status guard makes a concurrent double-apply a no-op.
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE orders
		 SET payment_status = $2, gateway_order_id = $3, gateway_payment_id = $4,
		     gateway_signature = $5, paid_at = now(), updated_at = now()
		 WHERE id = $1 AND payment_status <> $2`,
		orderID, string(domain.PaymentStatusPaid),
		record.GatewayOrderID, record.GatewayPaymentID, record.GatewaySignature)
	if err != nil {
		return fmt.Errorf("db.Exec: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		exists, err := r.orderExists(ctx, orderID)
		if err != nil {
			return fmt.Errorf("r.orderExists: %w", err)
		}
		if !exists {
			return domain.ErrOrderNotFound
		}
		// already paid
	}

	return nil
}

func (r *orderRepository) MarkPaymentFailed(ctx context.Context, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return fmt.Errorf("orderID is empty")
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE orders SET payment_status = $2, updated_at = now() WHERE id = $1`,
		orderID, string(domain.PaymentStatusFailed))
	if err != nil {
		return fmt.Errorf("db.Exec: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}

	return nil
}

func (r *orderRepository) orderExists(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, orderID).Scan(&exists); err != nil {
		return false, fmt.Errorf("db.QueryRow: %w", err)
	}
	return exists, nil
}

func getOrderRow(ctx context.Context, db DB, orderID uuid.UUID) (domain.Order, error) {
	var (
		o domain.Order

		totalAmount   decimal.Decimal
		totalCurrency string
		status        string
		paymentStatus string

		gatewayOrderID   *string
		gatewayPaymentID *string
		gatewaySignature *string
	)

	err := db.QueryRow(ctx,
		`SELECT id, customer_id, shop_id, total_amount, total_currency,
		        status, payment_status,
		        gateway_order_id, gateway_payment_id, gateway_signature, paid_at,
		        address_street, address_city, address_state, address_pincode,
		        created_at, updated_at
		 FROM orders
		 WHERE id = $1`, orderID).
		Scan(&o.ID, &o.CustomerID, &o.ShopID, &totalAmount, &totalCurrency,
			&status, &paymentStatus,
			&gatewayOrderID, &gatewayPaymentID, &gatewaySignature, &o.Payment.PaidAt,
			&o.DeliveryAddress.Street, &o.DeliveryAddress.City,
			&o.DeliveryAddress.State, &o.DeliveryAddress.Pincode,
			&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return o, fmt.Errorf("db.QueryRow: %w", domain.ErrOrderNotFound)
		}
		return o, fmt.Errorf("db.QueryRow: %w", err)
	}

	total, err := parseMoney(totalAmount, totalCurrency)
	if err != nil {
		return o, fmt.Errorf("parseMoney: %w", err)
	}
	o.TotalAmount = total

	orderStatus, err := domain.ToOrderStatus(status)
	if err != nil {
		return o, fmt.Errorf("domain.ToOrderStatus[%s]: %w", status, err)
	}
	o.Status = orderStatus

	o.PaymentStatus = domain.PaymentStatus(paymentStatus)
	o.Payment.GatewayOrderID = lo.FromPtr(gatewayOrderID)
	o.Payment.GatewayPaymentID = lo.FromPtr(gatewayPaymentID)
	o.Payment.GatewaySignature = lo.FromPtr(gatewaySignature)

	return o, nil
}

func getOrderItems(ctx context.Context, db DB, orderID uuid.UUID) ([]domain.OrderItem, error) {
	rows, err := db.Query(ctx,
		`SELECT product_id, name, unit_price_amount, unit_price_currency, quantity
		 FROM order_items
		 WHERE order_id = $1
		 ORDER BY created_at, product_id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("db.Query: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var (
			item          domain.OrderItem
			priceAmount   decimal.Decimal
			priceCurrency string
		)

		if err := rows.Scan(&item.ProductID, &item.Name, &priceAmount, &priceCurrency, &item.Quantity); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}

		price, err := parseMoney(priceAmount, priceCurrency)
		if err != nil {
			return nil, fmt.Errorf("parseMoney: %w", err)
		}
		item.UnitPrice = price

		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	return items, nil
}

func scanOrderJoinRow(rows pgx.Rows) (domain.Order, domain.OrderItem, error) {
	var (
		o    domain.Order
		item domain.OrderItem

		totalAmount   decimal.Decimal
		totalCurrency string
		status        string
		paymentStatus string

		gatewayOrderID   *string
		gatewayPaymentID *string
		gatewaySignature *string

		itemPriceAmount   decimal.Decimal
		itemPriceCurrency string
	)

	err := rows.Scan(&o.ID, &o.CustomerID, &o.ShopID, &totalAmount, &totalCurrency,
		&status, &paymentStatus,
		&gatewayOrderID, &gatewayPaymentID, &gatewaySignature, &o.Payment.PaidAt,
		&o.DeliveryAddress.Street, &o.DeliveryAddress.City,
		&o.DeliveryAddress.State, &o.DeliveryAddress.Pincode,
		&o.CreatedAt, &o.UpdatedAt,
		&item.ProductID, &item.Name, &itemPriceAmount, &itemPriceCurrency, &item.Quantity)
	if err != nil {
		return o, item, fmt.Errorf("rows.Scan: %w", err)
	}

	total, err := parseMoney(totalAmount, totalCurrency)
	if err != nil {
		return o, item, fmt.Errorf("parseMoney: %w", err)
	}
	o.TotalAmount = total

	orderStatus, err := domain.ToOrderStatus(status)
	if err != nil {
		return o, item, fmt.Errorf("domain.ToOrderStatus[%s]: %w", status, err)
	}
	o.Status = orderStatus

	o.PaymentStatus = domain.PaymentStatus(paymentStatus)
	o.Payment.GatewayOrderID = lo.FromPtr(gatewayOrderID)
	o.Payment.GatewayPaymentID = lo.FromPtr(gatewayPaymentID)
	o.Payment.GatewaySignature = lo.FromPtr(gatewaySignature)

	itemPrice, err := parseMoney(itemPriceAmount, itemPriceCurrency)
	if err != nil {
		return o, item, fmt.Errorf("parseMoney: %w", err)
	}
	item.UnitPrice = itemPrice

	return o, item, nil
}

func nilSliceIfEmpty[T any](s []T) []T {
	if len(s) == 0 {
		return nil
	}
	return s
}
