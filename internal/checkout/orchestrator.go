package checkout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/example/marketplace/internal/audit"
	"github.com/example/marketplace/internal/domain/order"
	"github.com/example/marketplace/internal/event"
	"github.com/example/marketplace/internal/inventory"
	"github.com/example/marketplace/internal/storage"
)

var ErrValidation = errors.New("validation failed")

// ValidationError rejects malformed input before any transaction is opened.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

const maxRetries = 3

// Orchestrator drives the whole checkout transaction: group the cart by
// store, reserve stock per line, persist one order per store, all-or-nothing
// across the entire cart.
type Orchestrator struct {
	store    storage.Store
	recorder audit.Recorder
	events   event.Publisher
	log      *zap.Logger
	initial  StatusPair
}

func NewOrchestrator(st storage.Store, rec audit.Recorder, pub event.Publisher, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	if rec == nil {
		rec = audit.Nop{}
	}
	if pub == nil {
		pub = event.Nop{}
	}
	return &Orchestrator{
		store:    st,
		recorder: rec,
		events:   pub,
		log:      log,
		initial:  DeferredPayment,
	}
}

// SetInitialStatuses configures the statuses new orders start in. The public
// checkout endpoint keeps the deferred-payment default; an immediate-payment
// integration passes paid/pending.
func (c *Orchestrator) SetInitialStatuses(p StatusPair) { c.initial = p }

// Checkout creates one order per store touched by the cart. A stock failure
// for any line rolls back every reservation and order already made in the
// same cart, so a buyer never ends up with a half-fulfilled checkout.
// Serialization conflicts retry the whole transaction a bounded number of
// times before surfacing.
func (c *Orchestrator) Checkout(ctx context.Context, buyer BuyerInfo, items []CartItem) ([]*order.Order, error) {
	if err := validate(buyer, items); err != nil {
		return nil, err
	}

	var orders []*order.Order
	var err error
	for attempt := 1; ; attempt++ {
		orders, err = c.checkoutOnce(ctx, buyer, items)
		if err == nil {
			break
		}
		if errors.Is(err, storage.ErrSerialization) && attempt < maxRetries {
			c.log.Warn("checkout transaction conflicted, retrying",
				zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		return nil, err
	}

	for _, o := range orders {
		c.recorder.Record(ctx, audit.Entry{
			Actor:        buyer.Email,
			Action:       audit.ActionCreate,
			Message:      fmt.Sprintf("order %s created for store %s, total %s", o.FormattedID(), o.StoreSlug, o.TotalAmount.StringFixed(2)),
			RelatedModel: "Order",
			RelatedID:    o.FormattedID(),
		})
		_ = c.events.PublishOrder(ctx, orderEvent(event.TypeOrderCreated, o))
	}

	return orders, nil
}

func (c *Orchestrator) checkoutOnce(ctx context.Context, buyer BuyerInfo, items []CartItem) ([]*order.Order, error) {
	var orders []*order.Order

	err := c.store.WithinTx(ctx, func(tx storage.TxStore) error {
		orders = nil

		groups, err := groupCart(ctx, tx, items)
		if err != nil {
			return err
		}

		// Reserve in ascending variant id order so concurrent checkouts
		// contending for overlapping variants acquire row locks in the
		// same sequence and cannot deadlock.
		ledger := inventory.NewLedger(tx, c.log)
		for _, r := range reservations(items) {
			if err := ledger.Reserve(ctx, r.variantID, r.quantity); err != nil {
				return err
			}
		}

		for _, group := range groups {
			o := buildOrder(group, buyer, c.initial)
			if err := tx.InsertOrder(ctx, o); err != nil {
				return err
			}
			orders = append(orders, o)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

type reservation struct {
	variantID int64
	quantity  int
}

// reservations folds duplicate cart lines into one decrement per variant and
// fixes the lock acquisition order.
func reservations(items []CartItem) []reservation {
	byVariant := make(map[int64]int, len(items))
	for _, item := range items {
		byVariant[item.VariantID] += item.Quantity
	}
	out := make([]reservation, 0, len(byVariant))
	for id, qty := range byVariant {
		out = append(out, reservation{variantID: id, quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].variantID < out[j].variantID })
	return out
}

func validate(buyer BuyerInfo, items []CartItem) error {
	switch {
	case !strings.Contains(buyer.Email, "@"):
		return &ValidationError{Field: "email", Reason: "must be a valid email address"}
	case strings.TrimSpace(buyer.Phone) == "":
		return &ValidationError{Field: "phone", Reason: "is required"}
	case strings.TrimSpace(buyer.Address) == "":
		return &ValidationError{Field: "address", Reason: "is required"}
	case len(items) == 0:
		return &ValidationError{Field: "items", Reason: "cart is empty"}
	}
	for _, item := range items {
		if item.VariantID <= 0 {
			return &ValidationError{Field: "items", Reason: "variant id must be positive"}
		}
		if item.Quantity <= 0 {
			return &ValidationError{Field: "items", Reason: "quantity must be positive"}
		}
	}
	return nil
}

func orderEvent(eventType string, o *order.Order) event.OrderEvent {
	items := make([]event.OrderItem, 0, len(o.Lines))
	for _, line := range o.Lines {
		items = append(items, event.OrderItem{
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			Price:       line.PricePerUnit.StringFixed(2),
		})
	}
	return event.OrderEvent{
		Type:        eventType,
		OrderID:     o.ID,
		FormattedID: o.FormattedID(),
		StoreSlug:   o.StoreSlug,
		BuyerEmail:  o.BuyerEmail,
		Total:       o.TotalAmount.StringFixed(2),
		Items:       items,
	}
}
