package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/example/marketplace/internal/audit"
	"github.com/example/marketplace/internal/domain/order"
	"github.com/example/marketplace/internal/event"
	"github.com/example/marketplace/internal/inventory"
	"github.com/example/marketplace/internal/storage"
)

// Resolve options offered to administrators on a disputed order.
const (
	OptionDeliver = "deliver"
	OptionRefund  = "refund"
)

var ErrUnknownOption = errors.New("unknown resolve option")

// Controller is the only writer of an existing order's status fields. Each
// operation loads the order under lock, checks the exact precondition and
// applies the transition inside one transaction, so a compensating stock
// release can never outlive a failed status write.
type Controller struct {
	store    storage.Store
	recorder audit.Recorder
	events   event.Publisher
	log      *zap.Logger
}

func NewController(st storage.Store, rec audit.Recorder, pub event.Publisher, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	if rec == nil {
		rec = audit.Nop{}
	}
	if pub == nil {
		pub = event.Nop{}
	}
	return &Controller{store: st, recorder: rec, events: pub, log: log}
}

// AttachInvoice stores the shipping invoice reference plus tracking number
// and marks the order in transit. Re-attaching while already in transit
// overwrites the reference.
func (c *Controller) AttachInvoice(ctx context.Context, orderID int64, actor, invoiceRef, trackingNumber string) (*order.Order, error) {
	var o *order.Order
	err := c.store.WithinTx(ctx, func(tx storage.TxStore) error {
		var err error
		o, err = tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := o.AttachInvoice(invoiceRef, trackingNumber); err != nil {
			return err
		}
		return tx.UpdateOrderStatus(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	c.recorder.Record(ctx, audit.Entry{
		Actor:        actor,
		Action:       audit.ActionUpdate,
		Message:      fmt.Sprintf("order %s marked in transit, tracking %s", o.FormattedID(), trackingNumber),
		RelatedModel: "Order",
		RelatedID:    o.FormattedID(),
	})
	return o, nil
}

// Cancel reverses the order: every line's reservation is released back to
// stock, shipping becomes canceled and payment becomes failed. Lines whose
// variant has since been deleted are skipped without failing the
// cancellation. A second cancel fails with ErrAlreadyCanceled before any
// stock is touched, so stock is never released twice.
func (c *Controller) Cancel(ctx context.Context, orderID int64, actor string) (*order.Order, error) {
	var o *order.Order
	err := c.store.WithinTx(ctx, func(tx storage.TxStore) error {
		var err error
		o, err = tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := o.BeginCancel(); err != nil {
			return err
		}

		ledger := inventory.NewLedger(tx, c.log)
		for _, line := range o.Lines {
			if line.VariantID == nil {
				c.log.Warn("stock release skipped, line has no variant reference",
					zap.Int64("order_id", o.ID),
					zap.Int("seq", line.Seq))
				continue
			}
			if err := ledger.Release(ctx, *line.VariantID, line.Quantity); err != nil {
				return err
			}
		}

		o.FinishCancel()
		return tx.UpdateOrderStatus(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	c.recorder.Record(ctx, audit.Entry{
		Actor:        actor,
		Action:       audit.ActionCancel,
		Message:      fmt.Sprintf("order %s canceled, stock restored", o.FormattedID()),
		RelatedModel: "Order",
		RelatedID:    o.FormattedID(),
	})
	_ = c.events.PublishOrder(ctx, event.OrderEvent{
		Type:        event.TypeOrderCanceled,
		OrderID:     o.ID,
		FormattedID: o.FormattedID(),
		StoreSlug:   o.StoreSlug,
		BuyerEmail:  o.BuyerEmail,
		Total:       o.TotalAmount.StringFixed(2),
	})
	return o, nil
}

// Resolve settles an order in transit or canceled: deliver completes the
// shipment, refund settles the payment of a canceled order.
func (c *Controller) Resolve(ctx context.Context, orderID int64, actor, option string) (*order.Order, error) {
	option = strings.ToLower(strings.TrimSpace(option))

	var o *order.Order
	err := c.store.WithinTx(ctx, func(tx storage.TxStore) error {
		var err error
		o, err = tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		switch option {
		case OptionDeliver:
			err = o.MarkDelivered()
		case OptionRefund:
			err = o.MarkRefunded()
		default:
			err = fmt.Errorf("%w: %q", ErrUnknownOption, option)
		}
		if err != nil {
			return err
		}
		return tx.UpdateOrderStatus(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	c.recorder.Record(ctx, audit.Entry{
		Actor:        actor,
		Action:       audit.ActionUpdate,
		Message:      fmt.Sprintf("order %s resolved: %s", o.FormattedID(), option),
		RelatedModel: "Order",
		RelatedID:    o.FormattedID(),
	})
	return o, nil
}
