package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/marketplace/internal/domain/order"
	"github.com/example/marketplace/internal/storage"
)

// ErrBadFilter rejects unknown status values in list filters.
var ErrBadFilter = errors.New("invalid filter")

// Handler is the read side of the order surface. Lookups never touch live
// product data; everything shown comes from the snapshots taken at purchase.
type Handler struct {
	reader storage.OrderReader
}

func NewHandler(reader storage.OrderReader) *Handler {
	return &Handler{reader: reader}
}

// GetOrder resolves a user-supplied id, which may be zero-padded. A
// non-numeric id fails with order.ErrInvalidID, distinct from not-found.
func (h *Handler) GetOrder(ctx context.Context, rawID string) (*order.Order, error) {
	id, err := order.ParseID(rawID)
	if err != nil {
		return nil, err
	}
	o, err := h.reader.GetOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("order %d: %w", id, err)
	}
	return o, nil
}

// ListStoreOrders returns a store's orders newest first, optionally filtered
// by payment status, shipping status or buyer email.
func (h *Handler) ListStoreOrders(ctx context.Context, storeSlug string, f storage.OrderFilter) ([]*order.Order, error) {
	if f.PaymentStatus != "" && !order.ValidPaymentStatus(f.PaymentStatus) {
		return nil, fmt.Errorf("%w: unknown payment status %q", ErrBadFilter, f.PaymentStatus)
	}
	if f.ShippingStatus != "" && !order.ValidShippingStatus(f.ShippingStatus) {
		return nil, fmt.Errorf("%w: unknown shipping status %q", ErrBadFilter, f.ShippingStatus)
	}
	return h.reader.ListStoreOrders(ctx, storeSlug, f)
}
