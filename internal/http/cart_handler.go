package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/go_store/internal/catalog"
	"github.com/fjod/go_store/internal/domain"
	"github.com/fjod/go_store/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxQuantity = 99

type CartHandler struct {
	carts service.CartService
}

func NewCartHandler(carts service.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// POST /carts
func (h *CartHandler) CreateCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.CreateCart(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, cart)
}

// GET /carts/{cart_id}
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cartID, ok := parseCartID(w, r)
	if !ok {
		return
	}

	cart, err := h.carts.GetCart(r.Context(), cartID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

// POST /carts/{cart_id}/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	cartID, ok := parseCartID(w, r)
	if !ok {
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}
	if req.Quantity > maxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}
	quantity, err := domain.NewQuantity(req.Quantity)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	item, err := h.carts.AddItem(r.Context(), cartID, req.ProductID, quantity)
	switch {
	case err == nil:
		respondJSON(w, http.StatusCreated, item)
	case errors.Is(err, catalog.ErrProductNotFound):
		respondError(w, http.StatusBadRequest, "product_not_found", err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	default:
		handleServiceError(w, err)
	}
}

func parseCartID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	cartID, err := uuid.Parse(chi.URLParam(r, "cart_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_cart_id", "cart_id must be a UUID")
		return uuid.Nil, false
	}
	return cartID, true
}
