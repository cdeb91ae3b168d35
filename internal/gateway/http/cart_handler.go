package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_bookstore/internal/backend"
	"github.com/fjod/go_bookstore/internal/cart/domain"
	cartservice "github.com/fjod/go_bookstore/internal/cart/service"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CartHandler struct {
	carts   *cartservice.CartService
	client  *backend.Client
	timeout time.Duration
	logger  *zap.Logger
}

func NewCartHandler(carts *cartservice.CartService, client *backend.Client, timeout time.Duration, logger *zap.Logger) *CartHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartHandler{
		carts:   carts,
		client:  client,
		timeout: timeout,
		logger:  logger,
	}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Delta int `json:"delta"`
}

type CartResponseDTO struct {
	Items     []domain.LineItem `json:"items"`
	ItemCount int               `json:"item_count"`
	Subtotal  decimal.Decimal   `json:"subtotal"`
}

func toCartDTO(c domain.Cart) CartResponseDTO {
	items := c.Items
	if items == nil {
		items = []domain.LineItem{}
	}
	return CartResponseDTO{
		Items:     items,
		ItemCount: c.ItemCount(),
		Subtotal:  c.Subtotal(),
	}
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, toCartDTO(h.carts.GetCart(r.Context(), h.key(r))))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	// The cart keeps a snapshot of the product as it looked when it was added.
	product, err := forCaller(r.Context(), h.client).Product(ctx, req.ProductID)
	if err != nil {
		handleBackendError(w, err)
		return
	}

	cart, err := h.carts.AddToCart(ctx, h.key(r), domain.LineItem{
		ID:    product.ID,
		Name:  product.Name,
		Price: product.Price,
		Image: product.CoverImage(),
		Qty:   req.Quantity,
	})
	if err != nil {
		h.handleCartError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, toCartDTO(cart))
}

// PATCH /api/v1/cart/items/{product_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	cart, err := h.carts.UpdateQuantity(r.Context(), h.key(r), productID, req.Delta)
	if err != nil {
		h.handleCartError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartDTO(cart))
}

// DELETE /api/v1/cart/items/{product_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	cart, err := h.carts.RemoveItem(r.Context(), h.key(r), productID)
	if err != nil {
		h.handleCartError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartDTO(cart))
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.ClearCart(r.Context(), h.key(r)); err != nil {
		h.handleCartError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartDTO(domain.Cart{}))
}

func (h *CartHandler) key(r *http.Request) string {
	return cartservice.SessionKey(getSessionID(r.Context()))
}

func (h *CartHandler) handleCartError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrInvalidItem) {
		respondErrorDetails(w, http.StatusUnprocessableEntity, "invalid_item", "product cannot be added to the cart", err.Error())
		return
	}
	h.logger.Error("cart update failed", zap.Error(err))
	respondError(w, http.StatusServiceUnavailable, "storage_unavailable", "cart could not be saved")
}

func productIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil || productID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return 0, false
	}
	return productID, true
}
