package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"github.com/nikolayk812/marketplace/internal/domain"
	"github.com/nikolayk812/marketplace/internal/metrics"
	"github.com/nikolayk812/marketplace/internal/port"
	"go.uber.org/zap"
)

// PaymentConfirmation is the gateway-issued triple posted back after a
// customer completes payment.
type PaymentConfirmation struct {
	OrderID          uuid.UUID
	GatewayOrderID   string
	GatewayPaymentID string
	GatewaySignature string
}

// PaymentService reconciles gateway confirmations with orders. Successful
// verification marks the order paid exactly once and clears the customer's
// cart; the separate failure path takes the gateway's word without a
// signature and must stay a distinct, lower-trust entry point.
type PaymentService struct {
	orders  port.OrderRepository
	carts   port.CartRepository
	secret  []byte
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewPayment(orders port.OrderRepository, carts port.CartRepository, secret []byte, m *metrics.Metrics, logger *zap.Logger) *PaymentService {
	if m == nil {
		m = metrics.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PaymentService{
		orders:  orders,
		carts:   carts,
		secret:  secret,
		metrics: m,
		logger:  logger,
	}
}

// Signature computes the expected gateway signature:
// hex(HMAC-SHA256(secret, gatewayOrderID|gatewayPaymentID)).
func Signature(secret []byte, gatewayOrderID, gatewayPaymentID string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *PaymentService) Verify(ctx context.Context, confirmation PaymentConfirmation) (domain.Order, error) {
	var o domain.Order

	order, err := s.orders.GetOrder(ctx, confirmation.OrderID)
	if err != nil {
		return o, fmt.Errorf("orders.GetOrder: %w", err)
	}

	// Re-verifying an already-paid order is a no-op.
	if order.PaymentStatus == domain.PaymentStatusPaid {
		return order, nil
	}

	expected := Signature(s.secret, confirmation.GatewayOrderID, confirmation.GatewayPaymentID)
	if !hmac.Equal([]byte(expected), []byte(confirmation.GatewaySignature)) {
		s.metrics.PaymentVerifications.WithLabelValues("rejected").Inc()
		return o, domain.ErrInvalidPaymentSignature
	}

	record := domain.PaymentRecord{
		GatewayOrderID:   confirmation.GatewayOrderID,
		GatewayPaymentID: confirmation.GatewayPaymentID,
		GatewaySignature: confirmation.GatewaySignature,
	}
	if err := s.orders.MarkPaid(ctx, confirmation.OrderID, record); err != nil {
		return o, fmt.Errorf("orders.MarkPaid: %w", err)
	}

	// A confirmed payment finally releases the cart. The order is already
	// paid at this point, so a clearing failure is logged, not returned.
	if err := s.carts.ClearCart(ctx, order.CustomerID); err != nil {
		s.logger.Warn("cart clearing after payment failed",
			zap.String("customer_id", order.CustomerID), zap.Error(err))
	}

	s.metrics.PaymentVerifications.WithLabelValues("ok").Inc()
	s.logger.Info("payment verified",
		zap.String("order_id", confirmation.OrderID.String()),
		zap.String("gateway_payment_id", confirmation.GatewayPaymentID))

	updated, err := s.orders.GetOrder(ctx, confirmation.OrderID)
	if err != nil {
		return o, fmt.Errorf("orders.GetOrder: %w", err)
	}

	return updated, nil
}

// MarkFailed records a gateway-reported payment failure. There is no
// signature on this path, it applies unconditionally given an order id.
func (s *PaymentService) MarkFailed(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	var o domain.Order

	if err := s.orders.MarkPaymentFailed(ctx, orderID); err != nil {
		return o, fmt.Errorf("orders.MarkPaymentFailed: %w", err)
	}

	s.metrics.PaymentVerifications.WithLabelValues("failed").Inc()

	updated, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return o, fmt.Errorf("orders.GetOrder: %w", err)
	}

	return updated, nil
}
