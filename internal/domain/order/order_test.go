package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormattedID_ZeroPadded(t *testing.T) {
	o := &Order{ID: 42}
	assert.Equal(t, "00042", o.FormattedID())

	o.ID = 123456
	assert.Equal(t, "123456", o.FormattedID())
}

func TestParseID_RoundTrip(t *testing.T) {
	o := &Order{ID: 7}

	id, err := ParseID(o.FormattedID())
	require.NoError(t, err)
	assert.Equal(t, o.ID, id)
}

func TestParseID_PlainNumeric(t *testing.T) {
	id, err := ParseID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestParseID_NonNumeric(t *testing.T) {
	for _, raw := range []string{"abc", "12x", "", "-5", "0"} {
		_, err := ParseID(raw)
		assert.ErrorIs(t, err, ErrInvalidID, "raw id %q", raw)
	}
}

// ============================================
// Lifecycle transition tests
// ============================================

func TestAttachInvoice_FromPending(t *testing.T) {
	o := &Order{PaymentStatus: PaymentPending, ShippingStatus: ShippingPending}

	err := o.AttachInvoice("invoices/abc.png", "TRACK-1")

	require.NoError(t, err)
	assert.Equal(t, ShippingProcessing, o.ShippingStatus)
	assert.Equal(t, "invoices/abc.png", o.ShippingInvoiceRef)
	assert.Equal(t, "TRACK-1", o.TrackingNumber)
}

func TestAttachInvoice_ReattachOverwrites(t *testing.T) {
	o := &Order{ShippingStatus: ShippingProcessing, ShippingInvoiceRef: "invoices/old.png"}

	err := o.AttachInvoice("invoices/new.png", "TRACK-2")

	require.NoError(t, err)
	assert.Equal(t, ShippingProcessing, o.ShippingStatus)
	assert.Equal(t, "invoices/new.png", o.ShippingInvoiceRef)
}

func TestAttachInvoice_RejectedAfterDispatch(t *testing.T) {
	for _, status := range []ShippingStatus{ShippingShipped, ShippingDelivered, ShippingCanceled} {
		o := &Order{ShippingStatus: status}
		err := o.AttachInvoice("ref", "track")
		assert.ErrorIs(t, err, ErrInvalidTransition, "status %s", status)
	}
}

func TestBeginCancel_OnlyFromProcessing(t *testing.T) {
	o := &Order{ShippingStatus: ShippingProcessing}
	assert.NoError(t, o.BeginCancel())
}

func TestBeginCancel_AlreadyCanceled(t *testing.T) {
	o := &Order{ShippingStatus: ShippingCanceled}
	assert.ErrorIs(t, o.BeginCancel(), ErrAlreadyCanceled)
}

func TestBeginCancel_NotCancelable(t *testing.T) {
	for _, status := range []ShippingStatus{ShippingPending, ShippingShipped, ShippingDelivered} {
		o := &Order{ShippingStatus: status}
		assert.ErrorIs(t, o.BeginCancel(), ErrNotCancelable, "status %s", status)
	}
}

func TestFinishCancel_SetsBothAxes(t *testing.T) {
	o := &Order{PaymentStatus: PaymentPending, ShippingStatus: ShippingProcessing}

	o.FinishCancel()

	assert.Equal(t, ShippingCanceled, o.ShippingStatus)
	assert.Equal(t, PaymentFailed, o.PaymentStatus)
}

func TestMarkDelivered(t *testing.T) {
	o := &Order{ShippingStatus: ShippingProcessing}
	require.NoError(t, o.MarkDelivered())
	assert.Equal(t, ShippingDelivered, o.ShippingStatus)

	// Terminal: a second deliver must be rejected.
	assert.ErrorIs(t, o.MarkDelivered(), ErrInvalidTransition)
}

func TestMarkRefunded_RequiresFailedPayment(t *testing.T) {
	o := &Order{PaymentStatus: PaymentFailed}
	require.NoError(t, o.MarkRefunded())
	assert.Equal(t, PaymentRefunded, o.PaymentStatus)

	for _, status := range []PaymentStatus{PaymentPending, PaymentPaid, PaymentRefunded} {
		o := &Order{PaymentStatus: status}
		assert.ErrorIs(t, o.MarkRefunded(), ErrInvalidTransition, "status %s", status)
	}
}

func TestStatusValidation(t *testing.T) {
	assert.True(t, ValidPaymentStatus("pending"))
	assert.True(t, ValidPaymentStatus("refunded"))
	assert.False(t, ValidPaymentStatus("unknown"))

	assert.True(t, ValidShippingStatus("processing"))
	assert.True(t, ValidShippingStatus("canceled"))
	assert.False(t, ValidShippingStatus("cancelled"))
}
