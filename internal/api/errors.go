package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/example/marketplace/internal/checkout"
	"github.com/example/marketplace/internal/domain/order"
	"github.com/example/marketplace/internal/inventory"
	"github.com/example/marketplace/internal/lifecycle"
	"github.com/example/marketplace/internal/query"
	"github.com/example/marketplace/internal/storage"
)

// errorBody is the wire shape of every failure: a stable machine-readable
// code plus a human message. Internals never leak past this point.
type errorBody struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondDomainError maps the error taxonomy onto transport responses.
// Anything unrecognized is a 500 with the real error kept to the log.
func (h *Handlers) respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var stockErr *inventory.StockError
	var validationErr *checkout.ValidationError

	switch {
	case errors.As(err, &validationErr):
		respondJSON(w, http.StatusBadRequest, errorBody{Detail: validationErr.Error(), Code: "validation_error"})
	case errors.Is(err, query.ErrBadFilter), errors.Is(err, inventory.ErrInvalidQuantity),
		errors.Is(err, lifecycle.ErrUnknownOption):
		respondJSON(w, http.StatusBadRequest, errorBody{Detail: err.Error(), Code: "validation_error"})
	case errors.Is(err, order.ErrInvalidID):
		respondJSON(w, http.StatusBadRequest, errorBody{Detail: "order id must be numeric", Code: "invalid_id"})
	case errors.As(err, &stockErr):
		respondJSON(w, http.StatusBadRequest, errorBody{Detail: stockErr.Error(), Code: "insufficient_stock"})
	case errors.Is(err, storage.ErrInsufficientStock):
		respondJSON(w, http.StatusBadRequest, errorBody{Detail: "insufficient stock", Code: "insufficient_stock"})
	case errors.Is(err, storage.ErrVariantNotFound):
		respondJSON(w, http.StatusBadRequest, errorBody{Detail: err.Error(), Code: "variant_not_found"})
	case errors.Is(err, storage.ErrOrderNotFound):
		respondJSON(w, http.StatusNotFound, errorBody{Detail: "order not found", Code: "order_not_found"})
	case errors.Is(err, storage.ErrStoreNotFound):
		respondJSON(w, http.StatusNotFound, errorBody{Detail: "store not found", Code: "store_not_found"})
	case errors.Is(err, order.ErrAlreadyCanceled):
		respondJSON(w, http.StatusConflict, errorBody{Detail: "order is already canceled", Code: "already_canceled"})
	case errors.Is(err, order.ErrNotCancelable):
		respondJSON(w, http.StatusConflict, errorBody{Detail: err.Error(), Code: "not_cancelable"})
	case errors.Is(err, order.ErrInvalidTransition):
		respondJSON(w, http.StatusConflict, errorBody{Detail: err.Error(), Code: "invalid_transition"})
	case errors.Is(err, storage.ErrSerialization):
		respondJSON(w, http.StatusServiceUnavailable, errorBody{Detail: "temporary conflict, please retry", Code: "conflict"})
	default:
		h.log.Error("unhandled error", zap.String("path", r.URL.Path), zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, errorBody{Detail: "internal error", Code: "internal_error"})
	}
}
