package httpapi

import (
	"fmt"
	"net/http"

	"marketplace-be/internal/apperror"
	"marketplace-be/internal/cart"
	"marketplace-be/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

var (
	errInvalidVariantID = apperror.InvalidRequest("variantId must be a UUID")
	errQuantityRange    = apperror.InvalidRequest(fmt.Sprintf("quantity must be between 1 and %d", cart.MaxQuantity))
)

type addItemRequest struct {
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

type cartHandler struct {
	svc cart.Service
}

func (h *cartHandler) routes(r chi.Router) {
	r.Use(middleware.RequireUser)

	r.Get("/", h.get)
	r.Post("/items", h.addItem)
	r.Patch("/items/{itemID}", h.updateItem)
	r.Delete("/items/{itemID}", h.removeItem)
}

func (h *cartHandler) get(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFrom(r.Context())

	view, err := h.svc.GetCart(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *cartHandler) addItem(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFrom(r.Context())

	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := uuid.Parse(req.VariantID); err != nil {
		writeError(w, r, errInvalidVariantID)
		return
	}
	if req.Quantity < 1 || req.Quantity > cart.MaxQuantity {
		writeError(w, r, errQuantityRange)
		return
	}

	view, err := h.svc.AddItem(r.Context(), cart.AddItemParams{
		UserID:    userID,
		VariantID: req.VariantID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *cartHandler) updateItem(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFrom(r.Context())

	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Quantity < 1 || req.Quantity > cart.MaxQuantity {
		writeError(w, r, errQuantityRange)
		return
	}

	view, err := h.svc.UpdateItem(r.Context(), cart.UpdateItemParams{
		UserID:   userID,
		ItemID:   chi.URLParam(r, "itemID"),
		Quantity: req.Quantity,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *cartHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFrom(r.Context())

	if err := h.svc.RemoveItem(r.Context(), userID, chi.URLParam(r, "itemID")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
