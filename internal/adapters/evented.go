package adapters

import (
	"context"
	"log/slog"

	"tutordesk/internal/amqp"
	"tutordesk/internal/core"
	"tutordesk/internal/store"
)

// Publisher sends payment events to a broker.
type Publisher interface {
	PublishPaymentEvent(ctx context.Context, ev *amqp.PaymentEvent) error
}

// EventedGateway wraps a store.Gateway and announces payment writes. The
// write result is never affected by a failed publish; those are logged.
type EventedGateway struct {
	store.Gateway
	publisher Publisher
	logger    *slog.Logger
}

var _ store.Gateway = (*EventedGateway)(nil)

func NewEventedGateway(gw store.Gateway, publisher Publisher, logger *slog.Logger) *EventedGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventedGateway{Gateway: gw, publisher: publisher, logger: logger}
}

func (g *EventedGateway) CreatePayment(ctx context.Context, p core.Payment) (string, error) {
	id, err := g.Gateway.CreatePayment(ctx, p)
	if err != nil {
		return "", err
	}
	g.announce(ctx, amqp.PaymentRecorded, id, p.StudentID)
	return id, nil
}

func (g *EventedGateway) UpdatePayment(ctx context.Context, id string, p core.Payment) error {
	if err := g.Gateway.UpdatePayment(ctx, id, p); err != nil {
		return err
	}
	g.announce(ctx, amqp.PaymentUpdated, id, p.StudentID)
	return nil
}

func (g *EventedGateway) DeletePayment(ctx context.Context, id string) error {
	if err := g.Gateway.DeletePayment(ctx, id); err != nil {
		return err
	}
	g.announce(ctx, amqp.PaymentDeleted, id, "")
	return nil
}

func (g *EventedGateway) announce(ctx context.Context, kind amqp.EventKind, paymentID, studentID string) {
	if g.publisher == nil {
		return
	}
	ev := amqp.NewPaymentEvent(kind, paymentID, studentID)
	if err := g.publisher.PublishPaymentEvent(ctx, ev); err != nil {
		g.logger.WarnContext(ctx, "Payment event not published",
			"kind", kind,
			"payment_id", paymentID,
			"error", err)
	}
}

// Ping forwards to the wrapped gateway when it supports it.
func (g *EventedGateway) Ping(ctx context.Context) error {
	if p, ok := g.Gateway.(store.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
