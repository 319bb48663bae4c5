package checkout

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/marketplace/internal/domain/order"
	"github.com/example/marketplace/internal/inventory"
	"github.com/example/marketplace/internal/storage"
	"github.com/example/marketplace/internal/storage/memstore"
)

var buyer = BuyerInfo{
	Email:   "buyer@example.com",
	Phone:   "+1 555 0100",
	Address: "1 Main St",
	Notes:   "leave at the door",
}

// seedTwoStores creates store s1 owning variant A (stock 5, price 10.00) and
// store s2 owning variant B (stock 3, price 5.00).
func seedTwoStores(t *testing.T) (*memstore.MemStore, int64, int64) {
	t.Helper()
	st := memstore.New()
	s1 := st.AddStore("alpha-wear")
	s2 := st.AddStore("beta-shoes")
	a := st.AddVariant(s1, "Linen Shirt", "ALW-SHIRT-M", "M", "10.00", 5)
	b := st.AddVariant(s2, "Canvas Sneaker", "BTS-SNKR-42", "42", "5.00", 3)
	return st, a, b
}

func TestCheckout_SplitsCartByStore(t *testing.T) {
	st, a, b := seedTwoStores(t)
	orch := NewOrchestrator(st, nil, nil, nil)

	orders, err := orch.Checkout(context.Background(), buyer, []CartItem{
		{VariantID: a, Quantity: 2},
		{VariantID: b, Quantity: 1},
	})

	require.NoError(t, err)
	require.Len(t, orders, 2)

	assert.Equal(t, "alpha-wear", orders[0].StoreSlug)
	assert.True(t, orders[0].TotalAmount.Equal(decimal.RequireFromString("20.00")))
	assert.Equal(t, "beta-shoes", orders[1].StoreSlug)
	assert.True(t, orders[1].TotalAmount.Equal(decimal.RequireFromString("5.00")))

	assert.Equal(t, 3, st.StockOf(a))
	assert.Equal(t, 2, st.StockOf(b))
}

func TestCheckout_TotalsMatchCart(t *testing.T) {
	st, a, b := seedTwoStores(t)
	orch := NewOrchestrator(st, nil, nil, nil)

	cart := []CartItem{
		{VariantID: a, Quantity: 3},
		{VariantID: b, Quantity: 2},
		{VariantID: a, Quantity: 1},
	}
	orders, err := orch.Checkout(context.Background(), buyer, cart)
	require.NoError(t, err)

	// 4*10.00 + 2*5.00
	want := decimal.RequireFromString("50.00")
	got := decimal.Zero
	for _, o := range orders {
		got = got.Add(o.TotalAmount)
	}
	assert.True(t, got.Equal(want), "sum of order totals %s, cart total %s", got, want)
}

func TestCheckout_SnapshotsAndSubtotals(t *testing.T) {
	st, a, _ := seedTwoStores(t)
	orch := NewOrchestrator(st, nil, nil, nil)

	orders, err := orch.Checkout(context.Background(), buyer, []CartItem{{VariantID: a, Quantity: 2}})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Len(t, orders[0].Lines, 1)

	line := orders[0].Lines[0]
	assert.Equal(t, 1, line.Seq)
	assert.Equal(t, "Linen Shirt", line.ProductName)
	assert.Equal(t, "ALW-SHIRT-M", line.ProductSKU)
	require.NotNil(t, line.VariantID)
	assert.Equal(t, a, *line.VariantID)
	assert.True(t, line.Subtotal.Equal(decimal.RequireFromString("20.00")))

	assert.Equal(t, order.PaymentPending, orders[0].PaymentStatus)
	assert.Equal(t, order.ShippingPending, orders[0].ShippingStatus)
	assert.Equal(t, "leave at the door", orders[0].Notes)
}

func TestCheckout_InsufficientStockRollsBackWholeCart(t *testing.T) {
	st, a, b := seedTwoStores(t)
	orch := NewOrchestrator(st, nil, nil, nil)

	// Variant A has plenty, variant B does not. Nothing may persist.
	orders, err := orch.Checkout(context.Background(), buyer, []CartItem{
		{VariantID: a, Quantity: 2},
		{VariantID: b, Quantity: 99},
	})

	require.Error(t, err)
	var stockErr *inventory.StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, b, stockErr.VariantID)

	assert.Nil(t, orders)
	assert.Equal(t, 0, st.OrderCount(), "no partial orders")
	assert.Equal(t, 5, st.StockOf(a), "no partial decrement")
	assert.Equal(t, 3, st.StockOf(b))
}

func TestCheckout_ZeroStockVariantNamedInError(t *testing.T) {
	st := memstore.New()
	s1 := st.AddStore("alpha-wear")
	s2 := st.AddStore("beta-shoes")
	a := st.AddVariant(s1, "Linen Shirt", "ALW-SHIRT-M", "M", "10.00", 5)
	b := st.AddVariant(s2, "Canvas Sneaker", "BTS-SNKR-42", "42", "5.00", 0)
	orch := NewOrchestrator(st, nil, nil, nil)

	_, err := orch.Checkout(context.Background(), buyer, []CartItem{
		{VariantID: a, Quantity: 2},
		{VariantID: b, Quantity: 1},
	})

	var stockErr *inventory.StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, b, stockErr.VariantID)
	assert.Equal(t, 5, st.StockOf(a))
}

func TestCheckout_UnknownVariant(t *testing.T) {
	st, a, _ := seedTwoStores(t)
	orch := NewOrchestrator(st, nil, nil, nil)

	_, err := orch.Checkout(context.Background(), buyer, []CartItem{
		{VariantID: a, Quantity: 1},
		{VariantID: 9999, Quantity: 1},
	})

	assert.ErrorIs(t, err, storage.ErrVariantNotFound)
	assert.Equal(t, 0, st.OrderCount())
	assert.Equal(t, 5, st.StockOf(a))
}

func TestCheckout_DuplicateLinesFoldIntoOneReservation(t *testing.T) {
	st, a, _ := seedTwoStores(t)
	orch := NewOrchestrator(st, nil, nil, nil)

	orders, err := orch.Checkout(context.Background(), buyer, []CartItem{
		{VariantID: a, Quantity: 2},
		{VariantID: a, Quantity: 3},
	})

	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Len(t, orders[0].Lines, 2, "cart lines stay separate on the order")
	assert.Equal(t, 0, st.StockOf(a))
}

func TestCheckout_ValidationBeforeAnySideEffect(t *testing.T) {
	st, a, _ := seedTwoStores(t)
	orch := NewOrchestrator(st, nil, nil, nil)
	ctx := context.Background()

	cases := []struct {
		name  string
		buyer BuyerInfo
		items []CartItem
	}{
		{"missing email", BuyerInfo{Phone: "1", Address: "x"}, []CartItem{{VariantID: a, Quantity: 1}}},
		{"missing phone", BuyerInfo{Email: "b@e.com", Address: "x"}, []CartItem{{VariantID: a, Quantity: 1}}},
		{"missing address", BuyerInfo{Email: "b@e.com", Phone: "1"}, []CartItem{{VariantID: a, Quantity: 1}}},
		{"empty cart", buyer, nil},
		{"zero quantity", buyer, []CartItem{{VariantID: a, Quantity: 0}}},
		{"negative quantity", buyer, []CartItem{{VariantID: a, Quantity: -1}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := orch.Checkout(ctx, tc.buyer, tc.items)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, 0, st.OrderCount())
			assert.Equal(t, 5, st.StockOf(a))
		})
	}
}

func TestCheckout_RetriesSerializationConflict(t *testing.T) {
	st, a, _ := seedTwoStores(t)
	st.SerializationFailures = 2
	orch := NewOrchestrator(st, nil, nil, nil)

	orders, err := orch.Checkout(context.Background(), buyer, []CartItem{{VariantID: a, Quantity: 1}})

	require.NoError(t, err)
	assert.Len(t, orders, 1)
	assert.Equal(t, 4, st.StockOf(a))
}

func TestCheckout_GivesUpAfterBoundedRetries(t *testing.T) {
	st, a, _ := seedTwoStores(t)
	st.SerializationFailures = 10
	orch := NewOrchestrator(st, nil, nil, nil)

	_, err := orch.Checkout(context.Background(), buyer, []CartItem{{VariantID: a, Quantity: 1}})

	assert.ErrorIs(t, err, storage.ErrSerialization)
	assert.Equal(t, 0, st.OrderCount())
}

func TestCheckout_ImmediatePaymentFlow(t *testing.T) {
	st, a, _ := seedTwoStores(t)
	orch := NewOrchestrator(st, nil, nil, nil)
	orch.SetInitialStatuses(StatusPair{Payment: order.PaymentPaid, Shipping: order.ShippingPending})

	orders, err := orch.Checkout(context.Background(), buyer, []CartItem{{VariantID: a, Quantity: 1}})

	require.NoError(t, err)
	assert.Equal(t, order.PaymentPaid, orders[0].PaymentStatus)
	assert.Equal(t, order.ShippingPending, orders[0].ShippingStatus)
}

func TestReservations_SortedByVariantID(t *testing.T) {
	got := reservations([]CartItem{
		{VariantID: 9, Quantity: 1},
		{VariantID: 3, Quantity: 2},
		{VariantID: 9, Quantity: 4},
	})

	require.Len(t, got, 2)
	assert.Equal(t, int64(3), got[0].variantID)
	assert.Equal(t, 2, got[0].quantity)
	assert.Equal(t, int64(9), got[1].variantID)
	assert.Equal(t, 5, got[1].quantity)
}
