package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/marketplace/internal/audit"
	"github.com/example/marketplace/internal/domain/catalog"
	"github.com/example/marketplace/internal/domain/order"
	"github.com/example/marketplace/internal/storage"
)

// MemStore is an in-memory implementation of storage.Store for tests. It
// honors the same transactional contract as the Postgres store: every
// mutation made inside WithinTx is rolled back when the callback errors.
type MemStore struct {
	mu sync.Mutex

	stores      map[int64]string
	storeBySlug map[string]int64
	variants    map[int64]*catalog.Variant
	orders      map[int64]*order.Order
	auditLogs   []audit.Entry

	nextStoreID   int64
	nextVariantID int64
	nextOrderID   int64
	clock         time.Time

	// SerializationFailures makes the next N transactions abort with
	// storage.ErrSerialization before running, for retry tests.
	SerializationFailures int
}

func New() *MemStore {
	return &MemStore{
		stores:      make(map[int64]string),
		storeBySlug: make(map[string]int64),
		variants:    make(map[int64]*catalog.Variant),
		orders:      make(map[int64]*order.Order),
		clock:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// AddStore seeds a seller tenant and returns its id.
func (s *MemStore) AddStore(slug string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextStoreID++
	s.stores[s.nextStoreID] = slug
	s.storeBySlug[slug] = s.nextStoreID
	return s.nextStoreID
}

// AddVariant seeds an inventory-tracked (product, size) unit and returns its id.
func (s *MemStore) AddVariant(storeID int64, productName, sku, sizeName, price string, stock int) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextVariantID++
	s.variants[s.nextVariantID] = &catalog.Variant{
		ID:          s.nextVariantID,
		ProductID:   s.nextVariantID,
		StoreID:     storeID,
		StoreSlug:   s.stores[storeID],
		ProductName: productName,
		SKU:         sku,
		SizeName:    sizeName,
		UnitPrice:   decimal.RequireFromString(price),
		Stock:       stock,
	}
	return s.nextVariantID
}

// DeleteVariant removes a variant from the catalog, as a product deletion
// cascade would.
func (s *MemStore) DeleteVariant(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.variants, id)
}

// StockOf returns the current stock counter, or -1 for a missing variant.
func (s *MemStore) StockOf(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.variants[id]
	if !ok {
		return -1
	}
	return v.Stock
}

// OrderCount returns the number of persisted orders.
func (s *MemStore) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// AuditEntries returns a copy of everything recorded so far.
func (s *MemStore) AuditEntries() []audit.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]audit.Entry(nil), s.auditLogs...)
}

// WithinTx implements storage.Store. State is snapshotted up front and
// restored wholesale when fn fails, which mimics a database rollback.
func (s *MemStore) WithinTx(_ context.Context, fn func(tx storage.TxStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.SerializationFailures > 0 {
		s.SerializationFailures--
		return storage.ErrSerialization
	}

	variants := make(map[int64]*catalog.Variant, len(s.variants))
	for id, v := range s.variants {
		c := *v
		variants[id] = &c
	}
	orders := make(map[int64]*order.Order, len(s.orders))
	for id, o := range s.orders {
		orders[id] = cloneOrder(o)
	}
	nextOrderID, clock := s.nextOrderID, s.clock

	if err := fn(&memTx{s: s}); err != nil {
		s.variants = variants
		s.orders = orders
		s.nextOrderID = nextOrderID
		s.clock = clock
		return err
	}
	return nil
}

func (s *MemStore) GetOrder(_ context.Context, id int64) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (s *MemStore) ListStoreOrders(_ context.Context, storeSlug string, f storage.OrderFilter) ([]*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	storeID, ok := s.storeBySlug[storeSlug]
	if !ok {
		return nil, storage.ErrStoreNotFound
	}

	var out []*order.Order
	for _, o := range s.orders {
		if o.StoreID != storeID {
			continue
		}
		if f.PaymentStatus != "" && string(o.PaymentStatus) != f.PaymentStatus {
			continue
		}
		if f.ShippingStatus != "" && string(o.ShippingStatus) != f.ShippingStatus {
			continue
		}
		if f.BuyerEmail != "" && o.BuyerEmail != f.BuyerEmail {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].IssuedAt.Equal(out[j].IssuedAt) {
			return out[i].IssuedAt.After(out[j].IssuedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// InsertAuditLog implements audit.Writer.
func (s *MemStore) InsertAuditLog(_ context.Context, e audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditLogs = append(s.auditLogs, e)
	return nil
}

// memTx operates directly on the parent store; WithinTx already holds the
// lock and owns the rollback snapshot.
type memTx struct {
	s *MemStore
}

func (t *memTx) ResolveVariant(_ context.Context, variantID int64) (*catalog.Variant, error) {
	v, ok := t.s.variants[variantID]
	if !ok {
		return nil, storage.ErrVariantNotFound
	}
	c := *v
	return &c, nil
}

func (t *memTx) DecrementStock(_ context.Context, variantID int64, qty int) error {
	v, ok := t.s.variants[variantID]
	if !ok {
		return storage.ErrVariantNotFound
	}
	if v.Stock < qty {
		return storage.ErrInsufficientStock
	}
	v.Stock -= qty
	return nil
}

func (t *memTx) IncrementStock(_ context.Context, variantID int64, qty int) (bool, error) {
	v, ok := t.s.variants[variantID]
	if !ok {
		return false, nil
	}
	v.Stock += qty
	return true, nil
}

func (t *memTx) InsertOrder(_ context.Context, o *order.Order) error {
	t.s.nextOrderID++
	t.s.clock = t.s.clock.Add(time.Second)
	o.ID = t.s.nextOrderID
	o.IssuedAt = t.s.clock
	o.UpdatedAt = t.s.clock
	for i := range o.Lines {
		line := &o.Lines[i]
		line.Subtotal = line.PricePerUnit.Mul(decimal.NewFromInt(int64(line.Quantity)))
	}
	t.s.orders[o.ID] = cloneOrder(o)
	return nil
}

func (t *memTx) GetOrderForUpdate(_ context.Context, id int64) (*order.Order, error) {
	o, ok := t.s.orders[id]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (t *memTx) UpdateOrderStatus(_ context.Context, o *order.Order) error {
	stored, ok := t.s.orders[o.ID]
	if !ok {
		return storage.ErrOrderNotFound
	}
	t.s.clock = t.s.clock.Add(time.Second)
	stored.PaymentStatus = o.PaymentStatus
	stored.ShippingStatus = o.ShippingStatus
	stored.TrackingNumber = o.TrackingNumber
	stored.ShippingInvoiceRef = o.ShippingInvoiceRef
	stored.UpdatedAt = t.s.clock
	o.UpdatedAt = t.s.clock
	return nil
}

func cloneOrder(o *order.Order) *order.Order {
	c := *o
	c.Lines = make([]order.Line, len(o.Lines))
	for i, line := range o.Lines {
		c.Lines[i] = line
		if line.VariantID != nil {
			v := *line.VariantID
			c.Lines[i].VariantID = &v
		}
	}
	return &c
}
