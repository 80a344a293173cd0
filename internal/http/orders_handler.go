package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/fjod/go_store/internal/domain"
	"github.com/fjod/go_store/internal/events"
	"github.com/fjod/go_store/internal/service"
	"github.com/go-chi/chi/v5"
)

type OrdersHandler struct {
	orders service.OrderService
}

func NewOrdersHandler(orders service.OrderService) *OrdersHandler {
	return &OrdersHandler{orders: orders}
}

// GET /orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	customer, ok := customerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing customer authentication")
		return
	}

	orders, err := h.orders.ListOrders(r.Context(), customer)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}
	respondJSON(w, http.StatusOK, orders)
}

// GET /orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	customer, ok := customerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing customer authentication")
		return
	}
	orderID, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(r.Context(), customer, orderID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// GET /orders/{order_id}/payments
func (h *OrdersHandler) PaymentHistory(w http.ResponseWriter, r *http.Request) {
	customer, ok := customerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing customer authentication")
		return
	}
	orderID, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	history, err := h.orders.PaymentHistory(r.Context(), customer, orderID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if history == nil {
		history = []*events.PaymentEvent{}
	}
	respondJSON(w, http.StatusOK, history)
}

func parseOrderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "order_id"), 10, 64)
	if err != nil || orderID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a positive integer")
		return 0, false
	}
	return orderID, true
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, service.ErrForbiddenOrder):
		respondError(w, http.StatusForbidden, "permission_denied", err.Error())
	case errors.Is(err, service.ErrCartNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
