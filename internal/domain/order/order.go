package order

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type ShippingStatus string

const (
	ShippingPending    ShippingStatus = "pending"
	ShippingProcessing ShippingStatus = "processing"
	ShippingShipped    ShippingStatus = "shipped"
	ShippingDelivered  ShippingStatus = "delivered"
	ShippingCanceled   ShippingStatus = "canceled"
)

var (
	ErrInvalidID         = errors.New("invalid order id")
	ErrAlreadyCanceled   = errors.New("order is already canceled")
	ErrNotCancelable     = errors.New("order is not cancelable")
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// ValidPaymentStatus reports whether s is one of the known payment statuses.
func ValidPaymentStatus(s string) bool {
	switch PaymentStatus(s) {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// ValidShippingStatus reports whether s is one of the known shipping statuses.
func ValidShippingStatus(s string) bool {
	switch ShippingStatus(s) {
	case ShippingPending, ShippingProcessing, ShippingShipped, ShippingDelivered, ShippingCanceled:
		return true
	}
	return false
}

// Order is one seller's share of a checkout. Buyer contact details and the
// total are snapshots taken at purchase time and never recomputed from the
// live catalog.
type Order struct {
	ID                 int64           `json:"id"`
	StoreID            int64           `json:"-"`
	StoreSlug          string          `json:"store"`
	BuyerEmail         string          `json:"buyer_email"`
	BuyerPhone         string          `json:"buyer_phone"`
	ShippingAddress    string          `json:"shipping_address"`
	Notes              string          `json:"notes,omitempty"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	PaymentStatus      PaymentStatus   `json:"payment_status"`
	ShippingStatus     ShippingStatus  `json:"shipping_status"`
	TrackingNumber     string          `json:"tracking_number,omitempty"`
	ShippingInvoiceRef string          `json:"shipping_invoice_ref,omitempty"`
	IssuedAt           time.Time       `json:"issued_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	Lines              []Line          `json:"items"`
}

// Line is a single purchased article. VariantID is a weak reference kept for
// stock reversal only; it becomes nil when the variant is removed from the
// catalog, and the name/sku snapshots carry the historical display.
type Line struct {
	Seq          int             `json:"seq"`
	VariantID    *int64          `json:"variant_id,omitempty"`
	Quantity     int             `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	ProductName  string          `json:"product_name"`
	ProductSKU   string          `json:"product_sku,omitempty"`
}

// FormattedID is the zero-padded id shown to buyers on invoices.
func (o *Order) FormattedID() string {
	return fmt.Sprintf("%05d", o.ID)
}

// ParseID parses a user-supplied order id (plain or zero-padded). A
// non-numeric id is ErrInvalidID, which boundaries must keep distinct
// from not-found.
func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return id, nil
}
