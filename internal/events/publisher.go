package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/pkg/logging"
)

// Publisher records a committed domain event.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

// OutboxPublisher appends events to the Postgres outbox; a Deliverer ships them.
type OutboxPublisher struct {
	store *OutboxStore
}

func NewOutboxPublisher(store *OutboxStore) *OutboxPublisher {
	return &OutboxPublisher{store: store}
}

func (p *OutboxPublisher) Publish(ctx context.Context, eventType string, payload any) error {
	_, err := p.store.Insert(ctx, eventType, payload)
	return err
}

// InlinePublisher hands events straight to a handler. It is used when no
// database is configured; handler errors are logged, not returned.
type InlinePublisher struct {
	handler DeliveryHandler
	logger  *logging.Logger
}

func NewInlinePublisher(handler DeliveryHandler, logger *logging.Logger) *InlinePublisher {
	if logger == nil {
		logger = logging.Default()
	}
	return &InlinePublisher{handler: handler, logger: logger}
}

func (p *InlinePublisher) Publish(ctx context.Context, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("events: marshal payload: %w", err)
	}
	if p.handler == nil {
		return nil
	}
	entry := OutboxEntry{ID: uuid.New(), Type: eventType, Payload: data, CreatedAt: time.Now().UTC()}
	if err := p.handler.Handle(ctx, entry); err != nil {
		p.logger.Error("inline event delivery failed", "error", err, "event_id", entry.ID, "type", eventType)
	}
	return nil
}
