package storage

import (
	"context"
	"errors"

	"github.com/example/marketplace/internal/domain/catalog"
	"github.com/example/marketplace/internal/domain/order"
)

var (
	ErrVariantNotFound   = errors.New("variant not found")
	ErrStoreNotFound     = errors.New("store not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrSerialization is surfaced when the database aborts a transaction
	// because of lock or serialization conflicts. Callers may retry the
	// whole transaction.
	ErrSerialization = errors.New("serialization conflict")
)

// OrderFilter narrows a store's order listing. Empty fields match everything.
type OrderFilter struct {
	PaymentStatus  string
	ShippingStatus string
	BuyerEmail     string
}

// CatalogStore resolves cart lines against the live catalog.
type CatalogStore interface {
	// ResolveVariant returns the variant with its owning store and current
	// price, or ErrVariantNotFound.
	ResolveVariant(ctx context.Context, variantID int64) (*catalog.Variant, error)
}

// InventoryStore mutates per-variant stock counters. Both operations are
// atomic at the row level; inside a transaction the change is visible to
// others only after commit.
type InventoryStore interface {
	// DecrementStock subtracts qty from the variant's stock. It returns
	// ErrInsufficientStock when stock < qty (no change applied) and
	// ErrVariantNotFound when the variant does not exist.
	DecrementStock(ctx context.Context, variantID int64, qty int) error

	// IncrementStock adds qty back to the variant's stock. The returned
	// bool is false when the variant no longer exists, which callers
	// tolerate for historical orders.
	IncrementStock(ctx context.Context, variantID int64, qty int) (bool, error)
}

// OrderStore persists order aggregates.
type OrderStore interface {
	// InsertOrder persists the order and its lines, assigning ID, IssuedAt
	// and UpdatedAt.
	InsertOrder(ctx context.Context, o *order.Order) error

	// GetOrderForUpdate loads an order with its lines and locks the row for
	// the rest of the transaction, or returns ErrOrderNotFound.
	GetOrderForUpdate(ctx context.Context, id int64) (*order.Order, error)

	// UpdateOrderStatus writes back the mutable lifecycle fields (statuses,
	// tracking number, invoice ref) and bumps UpdatedAt.
	UpdateOrderStatus(ctx context.Context, o *order.Order) error
}

// TxStore is the view of the store available inside one transaction.
type TxStore interface {
	CatalogStore
	InventoryStore
	OrderStore
}

// OrderReader serves the read-only query surface outside transactions.
type OrderReader interface {
	// GetOrder loads an order with its lines, or returns ErrOrderNotFound.
	GetOrder(ctx context.Context, id int64) (*order.Order, error)

	// ListStoreOrders returns a store's orders matching the filter, newest
	// issued first, or ErrStoreNotFound for an unknown slug.
	ListStoreOrders(ctx context.Context, storeSlug string, f OrderFilter) ([]*order.Order, error)
}

// Store is the full persistence surface. WithinTx runs fn inside one
// transaction: any error from fn rolls everything back, including stock
// decrements already applied.
type Store interface {
	OrderReader
	WithinTx(ctx context.Context, fn func(tx TxStore) error) error
}
