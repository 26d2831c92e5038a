package services

import (
	"context"
	"log/slog"

	"ledger/internal/amqp"
)

// Publisher delivers ledger change notifications. *amqp.Client implements it.
type Publisher interface {
	PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// notifier publishes after a successful write. Failures are logged and never
// surface to the caller: the write already happened.
type notifier struct {
	publisher Publisher
}

func (n notifier) notify(ctx context.Context, entity amqp.Entity, action amqp.Action, id string, version int64) {
	if n.publisher == nil {
		slog.DebugContext(ctx, "Event publisher not configured, skipping ledger event",
			"entity", entity, "id", id)
		return
	}
	if err := n.publisher.PublishLedgerEvent(ctx, amqp.NewLedgerEvent(entity, action, id, version)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"entity", entity,
			"action", action,
			"id", id,
			"version", version,
			"error", err)
	}
}
