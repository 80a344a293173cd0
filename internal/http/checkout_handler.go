package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/fjod/go_store/internal/payment"
	"github.com/fjod/go_store/internal/service"
	"github.com/google/uuid"
)

const maxWebhookBody = 64 << 10

type CheckoutHandler struct {
	checkout service.CheckoutService
	webhooks service.WebhookService
	log      *slog.Logger
}

func NewCheckoutHandler(checkout service.CheckoutService, webhooks service.WebhookService, log *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		webhooks: webhooks,
		log:      log,
	}
}

type CheckoutRequestDTO struct {
	CartID string `json:"cartId"`
}

// POST /checkout
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	customer, ok := customerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing customer authentication")
		return
	}

	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	cartID, err := uuid.Parse(req.CartID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_cart_id", "cartId must be a UUID")
		return
	}

	resp, err := h.checkout.Checkout(r.Context(), cartID, customer)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, resp)
	case errors.Is(err, service.ErrCartNotFound):
		respondError(w, http.StatusBadRequest, "cart_not_found", err.Error())
	case errors.Is(err, service.ErrCartEmpty):
		respondError(w, http.StatusBadRequest, "cart_empty", err.Error())
	case errors.Is(err, payment.ErrPayment):
		respondError(w, http.StatusInternalServerError, "payment_error", "Error creating a checkout session.")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// POST /checkout/webhook
//
// The processor only looks at the status code, so every answer has an empty body.
func (h *CheckoutHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		h.log.WarnContext(r.Context(), "webhook body unreadable", "remote_addr", r.RemoteAddr, "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	err = h.webhooks.HandleWebhookEvent(r.Context(), r.Header, body)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusOK)
	case errors.Is(err, payment.ErrInvalidSignature):
		h.log.WarnContext(r.Context(), "webhook with invalid signature", "remote_addr", r.RemoteAddr)
		w.WriteHeader(http.StatusBadRequest)
	case errors.Is(err, payment.ErrMalformedEvent):
		w.WriteHeader(http.StatusBadRequest)
	default:
		// includes unknown orders: a 5xx keeps the processor redelivering
		w.WriteHeader(http.StatusInternalServerError)
	}
}
