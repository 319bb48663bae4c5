package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/example/marketplace/internal/event"
)

// BuildOrderConfirmationBody builds the HTML body for the order confirmation
// email. Prices in the event payload are already formatted decimal strings.
func BuildOrderConfirmationBody(e event.OrderEvent) string {
	var itemsHTML strings.Builder
	for _, item := range e.Items {
		itemsHTML.WriteString(fmt.Sprintf(
			`<tr>
				<td style="padding: 12px; border-bottom: 1px solid #eee;">%s</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: center;">%d</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">$%s</td>
			</tr>`,
			html.EscapeString(item.ProductName),
			item.Quantity,
			item.Price,
		))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<h1 style="font-size: 22px;">Thank you for your order</h1>
	<p>Your order with <strong>%s</strong> has been received.</p>

	<div style="background: #f8f9fa; padding: 15px; border-radius: 5px; margin: 20px 0;">
		<p style="margin: 0; font-size: 14px; color: #666;">Order number</p>
		<p style="margin: 5px 0 0 0; font-size: 18px; font-weight: bold; font-family: monospace;">%s</p>
	</div>

	<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
		<thead>
			<tr style="background: #f8f9fa;">
				<th style="padding: 12px; text-align: left;">Item</th>
				<th style="padding: 12px; text-align: center;">Qty</th>
				<th style="padding: 12px; text-align: right;">Unit price</th>
			</tr>
		</thead>
		<tbody>
			%s
		</tbody>
	</table>

	<div style="text-align: right; padding: 20px; background: #f8f9fa; border-radius: 5px;">
		<span style="font-size: 14px; color: #666;">Total</span>
		<span style="font-size: 22px; font-weight: bold; margin-left: 10px;">$%s</span>
	</div>

	<p style="font-size: 12px; color: #999;">This is an automated message; please contact support with any questions.</p>
</body>
</html>`, html.EscapeString(e.StoreSlug), e.FormattedID, itemsHTML.String(), e.Total)
}

// BuildOrderCanceledBody builds the HTML body for the cancellation notice.
func BuildOrderCanceledBody(e event.OrderEvent) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<h1 style="font-size: 22px;">Your order was canceled</h1>
	<p>Order <strong style="font-family: monospace;">%s</strong> from <strong>%s</strong> has been canceled
	and the items returned to stock. If you already paid, a refund of <strong>$%s</strong> will follow.</p>
	<p style="font-size: 12px; color: #999;">This is an automated message; please contact support with any questions.</p>
</body>
</html>`, e.FormattedID, html.EscapeString(e.StoreSlug), e.Total)
}
