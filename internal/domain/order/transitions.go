package order

import "fmt"

// The lifecycle runs over two independent status axes, but every operation is
// gated on an exact combination. Preconditions are checked verbatim; nothing
// here coerces state to make an operation fit.

// AttachInvoice stores the shipping invoice reference and tracking number and
// moves the order into processing. Re-attaching while already processing is
// allowed and simply overwrites the reference.
func (o *Order) AttachInvoice(invoiceRef, trackingNumber string) error {
	switch o.ShippingStatus {
	case ShippingPending, ShippingProcessing:
		o.ShippingInvoiceRef = invoiceRef
		o.TrackingNumber = trackingNumber
		o.ShippingStatus = ShippingProcessing
		return nil
	default:
		return fmt.Errorf("%w: cannot attach invoice while %s", ErrInvalidTransition, o.ShippingStatus)
	}
}

// BeginCancel validates the cancel precondition without mutating the order.
// The caller releases stock for each line first, then calls FinishCancel.
// A second cancel must fail here so stock is never released twice.
func (o *Order) BeginCancel() error {
	switch o.ShippingStatus {
	case ShippingCanceled:
		return ErrAlreadyCanceled
	case ShippingProcessing:
		return nil
	default:
		return fmt.Errorf("%w: shipping status is %s", ErrNotCancelable, o.ShippingStatus)
	}
}

// FinishCancel applies the terminal cancel state. Payment moves to failed so
// a later refund has something to act on.
func (o *Order) FinishCancel() {
	o.ShippingStatus = ShippingCanceled
	o.PaymentStatus = PaymentFailed
}

// MarkDelivered completes forward shipping progress. No inventory side
// effects.
func (o *Order) MarkDelivered() error {
	if o.ShippingStatus != ShippingProcessing {
		return fmt.Errorf("%w: cannot deliver while %s", ErrInvalidTransition, o.ShippingStatus)
	}
	o.ShippingStatus = ShippingDelivered
	return nil
}

// MarkRefunded settles a canceled order. It is only meaningful once payment
// has already been marked failed by a cancel.
func (o *Order) MarkRefunded() error {
	if o.PaymentStatus != PaymentFailed {
		return fmt.Errorf("%w: cannot refund while payment is %s", ErrInvalidTransition, o.PaymentStatus)
	}
	o.PaymentStatus = PaymentRefunded
	return nil
}
