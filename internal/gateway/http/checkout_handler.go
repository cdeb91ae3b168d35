package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_bookstore/internal/backend"
	d "github.com/fjod/go_bookstore/internal/checkout/domain"
	"github.com/fjod/go_bookstore/internal/checkout/service"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CheckoutHandler struct {
	checkout service.CheckoutService
	client   *backend.Client
	timeout  time.Duration
	logger   *zap.Logger
}

func NewCheckoutHandler(checkout service.CheckoutService, client *backend.Client, timeout time.Duration, logger *zap.Logger) *CheckoutHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutHandler{
		checkout: checkout,
		client:   client,
		timeout:  timeout,
		logger:   logger,
	}
}

type PlaceOrderRequestDTO struct {
	Phone           string `json:"phone"`
	ShippingAddress string `json:"shipping_address"`
	PaymentMethod   string `json:"payment_method"`
}

type CheckoutPageDTO struct {
	Draft         d.Draft          `json:"draft"`
	Profile       *backend.Profile `json:"profile,omitempty"`
	Authenticated bool             `json:"authenticated"`
}

type CheckoutResponseDTO struct {
	Status     string          `json:"status"`
	OrderID    int64           `json:"order_id,omitempty"`
	Total      decimal.Decimal `json:"total"`
	PaymentURL string          `json:"payment_url,omitempty"`
	Redirect   d.Navigation    `json:"redirect"`
	Failure    string          `json:"failure,omitempty"`
}

func toCheckoutDTO(c d.Checkout) CheckoutResponseDTO {
	dto := CheckoutResponseDTO{
		Status:     c.Status.String(),
		OrderID:    c.OrderID,
		Total:      c.OrderTotal,
		PaymentURL: c.PaymentURL,
		Redirect:   c.Target(),
	}
	if c.Failure != nil {
		dto.Failure = c.Failure.Error()
	}
	return dto
}

// GET /api/v1/checkout
func (h *CheckoutHandler) Load(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	session := h.session(r)
	page, err := h.checkout.Load(ctx, session)
	if err != nil {
		handleBackendError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, CheckoutPageDTO{
		Draft:         page.Draft,
		Profile:       page.Profile,
		Authenticated: page.Profile != nil,
	})
}

// POST /api/v1/checkout
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req PlaceOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	// An unknown method is left as sent and rejected by checkout validation.
	method, err := d.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		method = d.PaymentMethod(req.PaymentMethod)
	}

	c, err := h.checkout.PlaceOrder(ctx, h.session(r), service.Form{
		Phone:           req.Phone,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   method,
	})
	if err != nil {
		h.handleCheckoutError(w, r, err)
		return
	}

	status := http.StatusCreated
	if c.Status == d.CheckoutStatusFailed {
		status = http.StatusOK
	}
	respondJSON(w, status, toCheckoutDTO(c))
}

// GET /api/v1/checkout/return?order_id=
func (h *CheckoutHandler) Return(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, err := strconv.ParseInt(r.URL.Query().Get("order_id"), 10, 64)
	if err != nil || orderID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a positive integer")
		return
	}

	c, err := h.checkout.VerifyReturn(ctx, h.session(r), orderID)
	if err != nil {
		h.handleCheckoutError(w, r, err)
		return
	}

	http.Redirect(w, r, c.Target().Location, http.StatusSeeOther)
}

func (h *CheckoutHandler) session(r *http.Request) service.Session {
	return service.Session{
		ID:      getSessionID(r.Context()),
		Backend: forCaller(r.Context(), h.client),
	}
}

func (h *CheckoutHandler) handleCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, d.ErrAuthenticationRequired):
		respondError(w, http.StatusUnauthorized, "authentication_required", err.Error())
	case errors.Is(err, d.ErrCartEmpty):
		respondError(w, http.StatusUnprocessableEntity, "cart_empty", err.Error())
	case errors.Is(err, d.ErrMissingShippingDetails):
		respondError(w, http.StatusUnprocessableEntity, "missing_shipping_details", err.Error())
	case errors.Is(err, d.ErrInvalidPaymentMethod):
		respondError(w, http.StatusBadRequest, "invalid_payment_method", err.Error())
	case errors.Is(err, service.ErrSubmissionInProgress):
		respondError(w, http.StatusConflict, "submission_in_progress", err.Error())
	case errors.Is(err, service.ErrUnknownOrder):
		respondError(w, http.StatusNotFound, "unknown_order", err.Error())
	case errors.Is(err, service.ErrAttemptClosed), errors.Is(err, d.ErrIllegalTransition):
		respondError(w, http.StatusConflict, "attempt_closed", err.Error())
	case errors.Is(err, service.ErrPaymentPending):
		respondError(w, http.StatusConflict, "payment_pending", err.Error())
	case errors.As(err, new(*backend.APIError)), errors.Is(err, context.DeadlineExceeded):
		handleBackendError(w, err)
	default:
		h.logger.Error("checkout failed",
			zap.String("session_id", getSessionID(r.Context())),
			zap.String("request_id", getRequestID(r.Context())),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
