package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_bookstore/internal/backend"
	"github.com/go-chi/chi/v5"
)

type OrdersHandler struct {
	client  *backend.Client
	timeout time.Duration
}

func NewOrdersHandler(client *backend.Client, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		client:  client,
		timeout: timeout,
	}
}

// GET /api/v1/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders, err := forCaller(r.Context(), h.client).MyOrders(ctx)
	if err != nil {
		handleBackendError(w, err)
		return
	}
	if orders == nil {
		orders = []backend.Order{}
	}

	respondJSON(w, http.StatusOK, orders)
}

// GET /api/v1/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, err := strconv.ParseInt(chi.URLParam(r, "order_id"), 10, 64)
	if err != nil || orderID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a positive integer")
		return
	}

	order, err := forCaller(r.Context(), h.client).Order(ctx, orderID)
	if err != nil {
		handleBackendError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}
