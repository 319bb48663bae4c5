package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/marketplace/internal/storage"
)

// fakeInventory is a minimal in-memory InventoryStore.
type fakeInventory struct {
	stock map[int64]int
}

func newFakeInventory() *fakeInventory {
	return &fakeInventory{stock: make(map[int64]int)}
}

func (f *fakeInventory) DecrementStock(_ context.Context, variantID int64, qty int) error {
	current, ok := f.stock[variantID]
	if !ok {
		return storage.ErrVariantNotFound
	}
	if current < qty {
		return storage.ErrInsufficientStock
	}
	f.stock[variantID] = current - qty
	return nil
}

func (f *fakeInventory) IncrementStock(_ context.Context, variantID int64, qty int) (bool, error) {
	if _, ok := f.stock[variantID]; !ok {
		return false, nil
	}
	f.stock[variantID] += qty
	return true, nil
}

func TestLedger_Reserve_Success(t *testing.T) {
	inv := newFakeInventory()
	inv.stock[1] = 5
	ledger := NewLedger(inv, nil)

	require.NoError(t, ledger.Reserve(context.Background(), 1, 3))
	assert.Equal(t, 2, inv.stock[1])
}

func TestLedger_Reserve_InsufficientStock(t *testing.T) {
	inv := newFakeInventory()
	inv.stock[1] = 2
	ledger := NewLedger(inv, nil)

	err := ledger.Reserve(context.Background(), 1, 3)

	assert.ErrorIs(t, err, storage.ErrInsufficientStock)
	var stockErr *StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int64(1), stockErr.VariantID)
	assert.Equal(t, 3, stockErr.Requested)
	assert.Equal(t, 2, inv.stock[1], "failed reserve must not change stock")
}

func TestLedger_Reserve_UnknownVariant(t *testing.T) {
	ledger := NewLedger(newFakeInventory(), nil)

	err := ledger.Reserve(context.Background(), 99, 1)
	assert.ErrorIs(t, err, storage.ErrVariantNotFound)
}

func TestLedger_Reserve_InvalidQuantity(t *testing.T) {
	ledger := NewLedger(newFakeInventory(), nil)

	assert.ErrorIs(t, ledger.Reserve(context.Background(), 1, 0), ErrInvalidQuantity)
	assert.ErrorIs(t, ledger.Reserve(context.Background(), 1, -2), ErrInvalidQuantity)
}

func TestLedger_Release_Success(t *testing.T) {
	inv := newFakeInventory()
	inv.stock[1] = 1
	ledger := NewLedger(inv, nil)

	require.NoError(t, ledger.Release(context.Background(), 1, 2))
	assert.Equal(t, 3, inv.stock[1])
}

func TestLedger_Release_MissingVariantTolerated(t *testing.T) {
	ledger := NewLedger(newFakeInventory(), nil)

	// The variant was removed from the catalog after purchase; release is a
	// no-op, not an error.
	err := ledger.Release(context.Background(), 404, 2)
	assert.NoError(t, err)
}

func TestStockError_Unwrap(t *testing.T) {
	err := &StockError{VariantID: 7, Requested: 2}
	assert.True(t, errors.Is(err, storage.ErrInsufficientStock))
	assert.Contains(t, err.Error(), "variant 7")
}
