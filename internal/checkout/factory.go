package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/example/marketplace/internal/domain/order"
)

// StatusPair is the initial (payment, shipping) state of a created order.
// Which pair applies is decided by the surrounding payment flow, not here:
// a deferred-payment flow starts pending/pending, an immediate-payment flow
// paid/pending.
type StatusPair struct {
	Payment  order.PaymentStatus
	Shipping order.ShippingStatus
}

// DeferredPayment is the default flow of the public checkout endpoint.
var DeferredPayment = StatusPair{Payment: order.PaymentPending, Shipping: order.ShippingPending}

// buildOrder turns one store group into an order aggregate. Product name and
// sku are copied into each line so later catalog edits never alter the
// historical record, and subtotals are recomputed here rather than trusted
// from input. All arithmetic is fixed-point decimal.
func buildOrder(group StoreGroup, buyer BuyerInfo, initial StatusPair) *order.Order {
	o := &order.Order{
		StoreID:         group.StoreID,
		StoreSlug:       group.StoreSlug,
		BuyerEmail:      buyer.Email,
		BuyerPhone:      buyer.Phone,
		ShippingAddress: buyer.Address,
		Notes:           buyer.Notes,
		PaymentStatus:   initial.Payment,
		ShippingStatus:  initial.Shipping,
		TotalAmount:     decimal.Zero,
		Lines:           make([]order.Line, 0, len(group.Lines)),
	}

	for i, line := range group.Lines {
		variantID := line.Variant.ID
		subtotal := line.Variant.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		o.Lines = append(o.Lines, order.Line{
			Seq:          i + 1,
			VariantID:    &variantID,
			Quantity:     line.Quantity,
			PricePerUnit: line.Variant.UnitPrice,
			Subtotal:     subtotal,
			ProductName:  line.Variant.ProductName,
			ProductSKU:   line.Variant.SKU,
		})
		o.TotalAmount = o.TotalAmount.Add(subtotal)
	}

	return o
}
