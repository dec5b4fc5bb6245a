package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/marketplace/internal/domain"
	"github.com/nikolayk812/marketplace/internal/port"
	"github.com/nikolayk812/marketplace/internal/service"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Identity comes from upstream auth as trusted headers; token issuance and
// validation are outside this service.
const (
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"
)

const failedWebhookWindow = time.Hour

type Handler struct {
	carts    *service.CartService
	checkout *service.CheckoutService
	orders   *service.OrderService
	payments *service.PaymentService
	cache    port.Cache
	logger   *zap.Logger
}

func NewHandler(carts *service.CartService, checkout *service.CheckoutService,
	orders *service.OrderService, payments *service.PaymentService,
	cache port.Cache, logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Handler{
		carts:    carts,
		checkout: checkout,
		orders:   orders,
		payments: payments,
		cache:    cache,
		logger:   logger.With(zap.String("component", "http_server")),
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /cart", h.handleGetCart)
	mux.HandleFunc("POST /cart/items", h.handleAddCartItem)
	mux.HandleFunc("PATCH /cart/items/{productID}", h.handleUpdateCartItem)
	mux.HandleFunc("DELETE /cart/items/{productID}", h.handleRemoveCartItem)
	mux.HandleFunc("DELETE /cart", h.handleClearCart)

	mux.HandleFunc("POST /orders", h.handleCheckout)
	mux.HandleFunc("GET /orders", h.handleListOrders)
	mux.HandleFunc("GET /orders/{orderID}", h.handleGetOrder)
	mux.HandleFunc("PATCH /orders/{orderID}/status", h.handleUpdateOrderStatus)
	mux.HandleFunc("PATCH /orders/{orderID}/cancel", h.handleCancelOrder)

	mux.HandleFunc("POST /payments/verify", h.handleVerifyPayment)
	mux.HandleFunc("POST /payments/failed", h.handleFailedPayment)

	mux.HandleFunc("GET /health", h.handleHealth)

	return mux
}

func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	view, err := h.carts.Snapshot(r.Context(), actor.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCartDTO(view))
}

func (h *Handler) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req struct {
		ProductID string `json:"productId"`
		Quantity  int32  `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{Code: "BAD_REQUEST", Message: "invalid JSON body"}})
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{Code: "BAD_REQUEST", Message: "invalid productId"}})
		return
	}
	if req.Quantity < 1 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{Code: "BAD_REQUEST", Message: "quantity must be at least 1"}})
		return
	}

	if err := h.carts.AddItem(r.Context(), actor.ID, productID, req.Quantity); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	productID, err := uuid.Parse(r.PathValue("productID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{Code: "BAD_REQUEST", Message: "invalid product id"}})
		return
	}

	var req struct {
		Quantity int32 `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity < 1 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{Code: "BAD_REQUEST", Message: "quantity must be at least 1"}})
		return
	}

	found, err := h.carts.UpdateQuantity(r.Context(), actor.ID, productID, req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: errorBody{Code: "NOT_FOUND", Message: "item not in cart"}})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	productID, err := uuid.Parse(r.PathValue("productID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{Code: "BAD_REQUEST", Message: "invalid product id"}})
		return
	}

	found, err := h.carts.RemoveItem(r.Context(), actor.ID, productID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: errorBody{Code: "NOT_FOUND", Message: "item not in cart"}})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.carts.Clear(r.Context(), actor.ID); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req struct {
		DeliveryAddress addressDTO `json:"deliveryAddress"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{Code: "BAD_REQUEST", Message: "invalid JSON body"}})
		return
	}

	address := domain.DeliveryAddress{
		Street:  req.DeliveryAddress.Street,
		City:    req.DeliveryAddress.City,
		State:   req.DeliveryAddress.State,
		Pincode: req.DeliveryAddress.Pincode,
	}

	orders, err := h.checkout.Checkout(r.Context(), actor.ID, address)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, lo.Map(orders, func(o domain.Order, _ int) orderDTO {
		return toOrderDTO(o)
	}))
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var statuses []domain.OrderStatus
	for _, raw := range r.URL.Query()["status"] {
		status, err := domain.ToOrderStatus(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{Code: "BAD_REQUEST", Message: fmt.Sprintf("invalid status %q", raw)}})
			return
		}
		statuses = append(statuses, status)
	}

	orders, err := h.orders.ListOrders(r.Context(), actor, statuses)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, lo.Map(orders, func(o domain.Order, _ int) orderDTO {
		return toOrderDTO(o)
	}))
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	orderID, err := uuid.Parse(r.PathValue("orderID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{Code: "BAD_REQUEST", Message: "invalid order id"}})
		return
	}

	order, err := h.orders.GetOrder(r.Context(), actor, orderID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderDTO(order))
}

func (h *Handler) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	orderID, err := uuid.Parse(r.PathValue("orderID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{Code: "BAD_REQUEST", Message: "invalid order id"}})
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{Code: "BAD_REQUEST", Message: "invalid JSON body"}})
		return
	}

	status, err := domain.ToOrderStatus(req.Status)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{Code: "BAD_REQUEST", Message: fmt.Sprintf("invalid status %q", req.Status)}})
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), actor, orderID, status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderDTO(order))
}

func (h *Handler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	actor, err := requireActor(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	orderID, err := uuid.Parse(r.PathValue("orderID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{Code: "BAD_REQUEST", Message: "invalid order id"}})
		return
	}

	order, err := h.orders.Cancel(r.Context(), actor, orderID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderDTO(order))
}

func (h *Handler) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderID          string `json:"orderId"`
		GatewayOrderID   string `json:"gatewayOrderId"`
		GatewayPaymentID string `json:"gatewayPaymentId"`
		GatewaySignature string `json:"gatewaySignature"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{Code: "BAD_REQUEST", Message: "invalid JSON body"}})
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{Code: "BAD_REQUEST", Message: "invalid orderId"}})
		return
	}

	order, err := h.payments.Verify(r.Context(), service.PaymentConfirmation{
		OrderID:          orderID,
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		GatewaySignature: req.GatewaySignature,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderDTO(order))
}

func (h *Handler) handleFailedPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderID string `json:"orderId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{Code: "BAD_REQUEST", Message: "invalid JSON body"}})
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{Code: "BAD_REQUEST", Message: "invalid orderId"}})
		return
	}

	// Soft rate counter on the unauthenticated webhook; the cache is
	// best-effort so a counting failure never blocks the webhook.
	key := "webhook:payment_failed:" + orderID.String()
	if count, err := h.cache.IncrementWithExpiry(r.Context(), key, failedWebhookWindow); err == nil && count > 5 {
		h.logger.Warn("repeated payment failure webhooks",
			zap.String("order_id", orderID.String()), zap.Int64("count", count))
	}

	order, err := h.payments.MarkFailed(r.Context(), orderID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderDTO(order))
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func requireActor(r *http.Request) (service.Actor, error) {
	userID := r.Header.Get(headerUserID)
	if userID == "" {
		return service.Actor{}, domain.ErrAccessDenied
	}

	role := service.Role(r.Header.Get(headerUserRole))
	if role == "" {
		role = service.RoleCustomer
	}
	if role != service.RoleCustomer && role != service.RoleVendor {
		return service.Actor{}, domain.ErrAccessDenied
	}

	return service.Actor{ID: userID, Role: role}, nil
}
