package inventory

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/marketplace/internal/storage"
)

var ErrInvalidQuantity = errors.New("quantity must be positive")

// StockError reports which variant ran out of stock. It unwraps to
// storage.ErrInsufficientStock so boundaries can match the class while still
// naming the offending variant.
type StockError struct {
	VariantID int64
	Requested int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for variant %d (requested %d)", e.VariantID, e.Requested)
}

func (e *StockError) Unwrap() error { return storage.ErrInsufficientStock }

// Ledger owns the per-variant stock counters. It operates on the ambient
// transaction's store, so a reservation becomes durable only if the enclosing
// transaction commits.
type Ledger struct {
	inv InventoryStore
	log *zap.Logger
}

// InventoryStore is the slice of the storage layer the ledger needs.
type InventoryStore interface {
	DecrementStock(ctx context.Context, variantID int64, qty int) error
	IncrementStock(ctx context.Context, variantID int64, qty int) (bool, error)
}

func NewLedger(inv InventoryStore, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{inv: inv, log: log}
}

// Reserve atomically decrements the variant's stock by qty. The storage layer
// serializes concurrent reservations so the counter never goes negative.
func (l *Ledger) Reserve(ctx context.Context, variantID int64, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	err := l.inv.DecrementStock(ctx, variantID, qty)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrInsufficientStock):
		return &StockError{VariantID: variantID, Requested: qty}
	default:
		return fmt.Errorf("reserve variant %d: %w", variantID, err)
	}
}

// Release returns qty units to the variant's stock. A variant that no longer
// exists is logged and skipped, never an error: historical orders must remain
// cancelable after catalog changes.
func (l *Ledger) Release(ctx context.Context, variantID int64, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	found, err := l.inv.IncrementStock(ctx, variantID, qty)
	if err != nil {
		return fmt.Errorf("release variant %d: %w", variantID, err)
	}
	if !found {
		l.log.Warn("stock release skipped, variant no longer exists",
			zap.Int64("variant_id", variantID),
			zap.Int("quantity", qty))
	}
	return nil
}
