package query

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/marketplace/internal/domain/order"
	"github.com/example/marketplace/internal/storage"
	"github.com/example/marketplace/internal/storage/memstore"
)

func seedOrders(t *testing.T) *memstore.MemStore {
	t.Helper()
	st := memstore.New()
	s1 := st.AddStore("alpha-wear")
	s2 := st.AddStore("beta-shoes")

	insert := func(storeID int64, slug, email string, shipping order.ShippingStatus) {
		o := &order.Order{
			StoreID:         storeID,
			StoreSlug:       slug,
			BuyerEmail:      email,
			BuyerPhone:      "+1 555 0100",
			ShippingAddress: "1 Main St",
			TotalAmount:     decimal.RequireFromString("10.00"),
			PaymentStatus:   order.PaymentPending,
			ShippingStatus:  shipping,
		}
		err := st.WithinTx(context.Background(), func(tx storage.TxStore) error {
			return tx.InsertOrder(context.Background(), o)
		})
		require.NoError(t, err)
	}

	insert(s1, "alpha-wear", "ann@example.com", order.ShippingPending)    // id 1
	insert(s1, "alpha-wear", "bob@example.com", order.ShippingProcessing) // id 2
	insert(s2, "beta-shoes", "ann@example.com", order.ShippingPending)    // id 3
	return st
}

func TestGetOrder_AcceptsZeroPaddedID(t *testing.T) {
	st := seedOrders(t)
	h := NewHandler(st)

	o, err := h.GetOrder(context.Background(), "00002")

	require.NoError(t, err)
	assert.Equal(t, int64(2), o.ID)
	assert.Equal(t, "00002", o.FormattedID())
}

func TestGetOrder_AcceptsPlainID(t *testing.T) {
	st := seedOrders(t)
	h := NewHandler(st)

	o, err := h.GetOrder(context.Background(), "2")

	require.NoError(t, err)
	assert.Equal(t, int64(2), o.ID)
}

func TestGetOrder_NonNumericIDIsNotNotFound(t *testing.T) {
	h := NewHandler(seedOrders(t))

	_, err := h.GetOrder(context.Background(), "abc")

	assert.ErrorIs(t, err, order.ErrInvalidID)
	assert.NotErrorIs(t, err, storage.ErrOrderNotFound)
}

func TestGetOrder_NotFound(t *testing.T) {
	h := NewHandler(seedOrders(t))

	_, err := h.GetOrder(context.Background(), "999")

	assert.ErrorIs(t, err, storage.ErrOrderNotFound)
}

func TestListStoreOrders_ScopedToStoreNewestFirst(t *testing.T) {
	h := NewHandler(seedOrders(t))

	orders, err := h.ListStoreOrders(context.Background(), "alpha-wear", storage.OrderFilter{})

	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, int64(2), orders[0].ID, "newest first")
	assert.Equal(t, int64(1), orders[1].ID)
	for _, o := range orders {
		assert.Equal(t, "alpha-wear", o.StoreSlug)
	}
}

func TestListStoreOrders_Filters(t *testing.T) {
	h := NewHandler(seedOrders(t))
	ctx := context.Background()

	byShipping, err := h.ListStoreOrders(ctx, "alpha-wear", storage.OrderFilter{ShippingStatus: "processing"})
	require.NoError(t, err)
	require.Len(t, byShipping, 1)
	assert.Equal(t, int64(2), byShipping[0].ID)

	byEmail, err := h.ListStoreOrders(ctx, "alpha-wear", storage.OrderFilter{BuyerEmail: "ann@example.com"})
	require.NoError(t, err)
	require.Len(t, byEmail, 1)
	assert.Equal(t, int64(1), byEmail[0].ID)

	byPayment, err := h.ListStoreOrders(ctx, "alpha-wear", storage.OrderFilter{PaymentStatus: "paid"})
	require.NoError(t, err)
	assert.Empty(t, byPayment)
}

func TestListStoreOrders_RejectsUnknownStatuses(t *testing.T) {
	h := NewHandler(seedOrders(t))
	ctx := context.Background()

	_, err := h.ListStoreOrders(ctx, "alpha-wear", storage.OrderFilter{ShippingStatus: "cancelled"})
	assert.ErrorIs(t, err, ErrBadFilter)

	_, err = h.ListStoreOrders(ctx, "alpha-wear", storage.OrderFilter{PaymentStatus: "void"})
	assert.ErrorIs(t, err, ErrBadFilter)
}

func TestListStoreOrders_UnknownStore(t *testing.T) {
	h := NewHandler(seedOrders(t))

	_, err := h.ListStoreOrders(context.Background(), "no-such-store", storage.OrderFilter{})

	assert.ErrorIs(t, err, storage.ErrStoreNotFound)
}
