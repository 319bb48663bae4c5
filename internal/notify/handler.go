package notify

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/example/marketplace/internal/event"
)

// Mailer is the slice of Service the handler needs; split out so tests can
// capture sends without an SMTP server.
type Mailer interface {
	SendOrderConfirmation(to string, e event.OrderEvent) error
	SendOrderCanceled(to string, e event.OrderEvent) error
}

// Handler consumes order events from the bus and mails the buyer.
type Handler struct {
	mailer Mailer
	log    *zap.Logger
}

func NewHandler(mailer Mailer, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{mailer: mailer, log: log}
}

// HandleMessage processes one message from the order topic. Unknown message
// types are skipped; notification delivery failures are logged but not
// returned, since the order itself already committed.
func (h *Handler) HandleMessage(_ context.Context, _, value []byte) error {
	var e event.OrderEvent
	if err := json.Unmarshal(value, &e); err != nil {
		h.log.Warn("skipping undecodable message", zap.Error(err))
		return nil
	}
	if e.BuyerEmail == "" {
		return nil
	}

	var err error
	switch e.Type {
	case event.TypeOrderCreated:
		err = h.mailer.SendOrderConfirmation(e.BuyerEmail, e)
	case event.TypeOrderCanceled:
		err = h.mailer.SendOrderCanceled(e.BuyerEmail, e)
	default:
		return nil
	}
	if err != nil {
		h.log.Warn("notification delivery failed",
			zap.String("type", e.Type),
			zap.String("order", e.FormattedID),
			zap.Error(err))
	}
	return nil
}
