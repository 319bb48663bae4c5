package event

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Order event types carried on the order topic and consumed by the notifier.
const (
	TypeOrderCreated  = "order_created"
	TypeOrderCanceled = "order_canceled"
)

// OrderItem is the reduced line payload used in notifications.
type OrderItem struct {
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Price       string `json:"price"`
}

// OrderEvent announces an order lifecycle fact to downstream consumers.
// Amounts travel as fixed-point decimal strings.
type OrderEvent struct {
	Type        string      `json:"type"`
	OrderID     int64       `json:"order_id"`
	FormattedID string      `json:"formatted_id"`
	StoreSlug   string      `json:"store"`
	BuyerEmail  string      `json:"buyer_email"`
	Total       string      `json:"total"`
	Items       []OrderItem `json:"items,omitempty"`
	OccurredAt  time.Time   `json:"occurred_at"`
}

// Publisher fans order events out after the owning transaction has committed.
type Publisher interface {
	PublishOrder(ctx context.Context, e OrderEvent) error
}

// Sender matches the Kafka producer's publish signature.
type Sender interface {
	Publish(ctx context.Context, key string, event any) error
}

// BusPublisher publishes order events to the message bus, keyed by formatted
// order id so one order's events stay on one partition.
type BusPublisher struct {
	sender Sender
	log    *zap.Logger
}

func NewBusPublisher(sender Sender, log *zap.Logger) *BusPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &BusPublisher{sender: sender, log: log}
}

func (p *BusPublisher) PublishOrder(ctx context.Context, e OrderEvent) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	if err := p.sender.Publish(ctx, e.FormattedID, e); err != nil {
		p.log.Warn("order event publish failed",
			zap.String("type", e.Type),
			zap.Int64("order_id", e.OrderID),
			zap.Error(err))
		return err
	}
	return nil
}

// Nop discards events; used in tests.
type Nop struct{}

func (Nop) PublishOrder(context.Context, OrderEvent) error { return nil }
